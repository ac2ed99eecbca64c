// Package alerts lets a user subscribe to a notice when a new race can be analysed.
package alerts

import (
	"context"
	"strings"

	"f1consistencybot/pkg/apps"
	"f1consistencybot/pkg/menus"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/sirupsen/logrus"
)

const (
	subcommandAlerts = "alerts"
	actionToggle     = "toggle"
)

type Subscriptions interface {
	ToggleSubscription(userID, chatID string) (bool, error)
	IsSubscribed(userID string) (bool, error)
}

type App struct {
	bot     apps.Sender
	appMenu menus.ApplicationMenu
	sm      Subscriptions
}

func NewApp(bot apps.Sender, appMenu menus.ApplicationMenu, sm Subscriptions) *App {
	return &App{
		bot:     bot,
		appMenu: appMenu,
		sm:      sm,
	}
}

func (a *App) AcceptCommand(command string) (bool, func(ctx context.Context, chatId int64) error) {
	return false, nil
}

func (a *App) AcceptButton(button string) (bool, func(ctx context.Context, chatId int64) error) {
	if button == a.appMenu.Name {
		return true, a.renderStatus(nil)
	}
	return false, nil
}

func (a *App) AcceptCallback(query *tgbotapi.CallbackQuery) (bool, func(ctx context.Context, query *tgbotapi.CallbackQuery) error) {
	data := strings.Split(query.Data, ":")
	if len(data) < 2 || data[0] != subcommandAlerts || data[1] != actionToggle {
		return false, nil
	}
	return true, func(ctx context.Context, query *tgbotapi.CallbackQuery) error {
		userID, ok := apps.UserID(ctx)
		if !ok {
			return a.sendText(query.Message.Chat.ID, "No se pudo leer el usuario")
		}
		chatID, ok := apps.ChatID(ctx)
		if !ok {
			return a.sendText(query.Message.Chat.ID, "No se pudo leer información del chat")
		}

		enabled, err := a.sm.ToggleSubscription(userID, chatID)
		if err != nil {
			logrus.WithError(err).WithField("user", userID).Error("toggling subscription")
			return a.sendText(query.Message.Chat.ID, "No se pudo cambiar el estado del aviso")
		}
		notice := "Avisos desactivados"
		if enabled {
			notice = "Avisos activados"
		}
		if err := apps.Answer(a.bot, query, notice); err != nil {
			logrus.WithError(err).Debug("answering callback")
		}
		return a.renderStatus(&query.Message.MessageID)(ctx, query.Message.Chat.ID)
	}
}

func (a *App) renderStatus(messageID *int) func(ctx context.Context, chatId int64) error {
	return func(ctx context.Context, chatId int64) error {
		userID, ok := apps.UserID(ctx)
		if !ok {
			return a.sendText(chatId, "No se pudo leer el usuario")
		}
		enabled, err := a.sm.IsSubscribed(userID)
		if err != nil {
			logrus.WithError(err).WithField("user", userID).Error("reading subscription")
			return a.sendText(chatId, "No se pudo leer el estado del aviso")
		}

		text := statusText(enabled)
		keyboard := tgbotapi.NewInlineKeyboardMarkup(
			tgbotapi.NewInlineKeyboardRow(
				tgbotapi.NewInlineKeyboardButtonData(toggleLabel(enabled), subcommandAlerts+":"+actionToggle),
			),
		)

		var cfg tgbotapi.Chattable
		if messageID == nil {
			msg := tgbotapi.NewMessage(chatId, text)
			msg.ReplyMarkup = keyboard
			cfg = msg
		} else {
			msg := tgbotapi.NewEditMessageText(chatId, *messageID, text)
			msg.ReplyMarkup = &keyboard
			cfg = msg
		}
		_, err = a.bot.Send(cfg)
		return err
	}
}

func statusText(enabled bool) string {
	if enabled {
		return "🔔 Recibirás un aviso cuando haya vueltas de una nueva carrera para analizar."
	}
	return "🔕 No recibes avisos de nuevas carreras."
}

func toggleLabel(enabled bool) string {
	if enabled {
		return "Desactivar avisos"
	}
	return "Activar avisos"
}

func (a *App) sendText(chatId int64, text string) error {
	msg := tgbotapi.NewMessage(chatId, text)
	msg.ReplyMarkup = a.appMenu.PrevMenu()
	_, err := a.bot.Send(msg)
	return err
}
