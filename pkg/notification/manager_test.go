package notification

import (
	"context"
	"strings"
	"testing"
	"time"

	"f1consistencybot/pkg/model"
	"f1consistencybot/pkg/storage"

	"github.com/nikoksr/notify"
)

type staticLister []storage.Subscriber

func (l staticLister) ListSubscribers() ([]storage.Subscriber, error) {
	return l, nil
}

type sentMessage struct {
	chatIDs []int64
	subject string
	message string
}

type recordingService struct {
	chatIDs []int64
	sent    chan sentMessage
}

func (r *recordingService) Send(ctx context.Context, subject, message string) error {
	r.sent <- sentMessage{chatIDs: r.chatIDs, subject: subject, message: message}
	return nil
}

func TestStartNotifiesSubscribers(t *testing.T) {
	sent := make(chan sentMessage, 1)
	factory := func(chatIDs []int64) notify.Notifier {
		return notify.NewWithServices(&recordingService{chatIDs: chatIDs, sent: sent})
	}
	lister := staticLister{
		{UserID: "1", ChatID: "100"},
		{UserID: "2", ChatID: "not-a-number"},
		{UserID: "3", ChatID: "300"},
	}
	m := NewManager(context.Background(), lister, factory)

	races := make(chan model.RacePublished)
	exit := make(chan bool)
	done := make(chan struct{})
	go func() {
		m.Start(races, exit)
		close(done)
	}()

	races <- model.RacePublished{Season: 2024, Round: 3, EventName: "Australian Grand Prix"}

	select {
	case msg := <-sent:
		if len(msg.chatIDs) != 2 || msg.chatIDs[0] != 100 || msg.chatIDs[1] != 300 {
			t.Errorf("unexpected receivers %v", msg.chatIDs)
		}
		if msg.subject != subject {
			t.Errorf("unexpected subject %q", msg.subject)
		}
		if !strings.Contains(msg.message, "Australian Grand Prix") {
			t.Errorf("unexpected message %q", msg.message)
		}
	case <-time.After(time.Second):
		t.Fatal("no notification sent")
	}

	close(races)
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("manager did not stop when the race channel closed")
	}
}

func TestNoSubscribers(t *testing.T) {
	factory := func(chatIDs []int64) notify.Notifier {
		t.Fatalf("notifier must not be built without subscribers")
		return nil
	}
	m := NewManager(context.Background(), staticLister{}, factory)
	if err := m.handleNotification(model.RacePublished{Season: 2024, Round: 1, EventName: "Bahrain Grand Prix"}); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
}
