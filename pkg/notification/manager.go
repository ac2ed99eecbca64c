// Package notification tells subscribed Telegram users that a race can be analysed.
package notification

import (
	"context"
	"strconv"

	"f1consistencybot/pkg/model"
	"f1consistencybot/pkg/storage"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/nikoksr/notify"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

const subject = "Nueva carrera disponible para analizar:"

type Lister interface {
	ListSubscribers() ([]storage.Subscriber, error)
}

// NotifierFactory builds the notifier that reaches the given chats.
type NotifierFactory func(chatIDs []int64) notify.Notifier

// TelegramNotifier sends through the bot client already used by the bot.
func TelegramNotifier(bot *tgbotapi.BotAPI) NotifierFactory {
	return func(chatIDs []int64) notify.Notifier {
		tg := &Telegram{}
		tg.SetClient(bot)
		tg.AddReceivers(chatIDs...)
		return notify.NewWithServices(tg)
	}
}

type Manager struct {
	ctx      context.Context
	lister   Lister
	notifier NotifierFactory
}

func NewManager(ctx context.Context, lister Lister, notifier NotifierFactory) *Manager {
	return &Manager{
		ctx:      ctx,
		lister:   lister,
		notifier: notifier,
	}
}

// Start notifies every published race received on racesChan until exitChan
// fires or racesChan is closed.
func (m *Manager) Start(racesChan <-chan model.RacePublished, exitChan <-chan bool) {
	for {
		select {
		case <-exitChan:
			return
		case race, ok := <-racesChan:
			if !ok {
				return
			}
			if err := m.handleNotification(race); err != nil {
				logrus.WithError(err).WithField("event", race.EventName).Error("notifying race")
			}
		}
	}
}

func (m *Manager) handleNotification(race model.RacePublished) error {
	subscribers, err := m.lister.ListSubscribers()
	if err != nil {
		return errors.Wrap(err, "listing subscribers")
	}
	logrus.WithFields(logrus.Fields{
		"event":       race.EventName,
		"subscribers": len(subscribers),
	}).Info("sending race notification")
	if len(subscribers) == 0 {
		return nil
	}

	chatIDs := make([]int64, 0, len(subscribers))
	for _, s := range subscribers {
		chatID, err := strconv.ParseInt(s.ChatID, 10, 64)
		if err != nil {
			logrus.WithField("user", s.UserID).Warnf("invalid chat id %q", s.ChatID)
			continue
		}
		chatIDs = append(chatIDs, chatID)
	}
	if len(chatIDs) == 0 {
		return nil
	}

	return m.notifier(chatIDs).Send(m.ctx, subject, race.String())
}
