package alerts

import (
	"context"
	"strings"
	"testing"

	"f1consistencybot/pkg/apps"
	"f1consistencybot/pkg/menus"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

type fakeBot struct {
	sent     []tgbotapi.Chattable
	requests []tgbotapi.Chattable
}

func (b *fakeBot) Send(c tgbotapi.Chattable) (tgbotapi.Message, error) {
	b.sent = append(b.sent, c)
	return tgbotapi.Message{}, nil
}

func (b *fakeBot) Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error) {
	b.requests = append(b.requests, c)
	return &tgbotapi.APIResponse{Ok: true}, nil
}

type memorySubscriptions map[string]string

func (m memorySubscriptions) ToggleSubscription(userID, chatID string) (bool, error) {
	if _, ok := m[userID]; ok {
		delete(m, userID)
		return false, nil
	}
	m[userID] = chatID
	return true, nil
}

func (m memorySubscriptions) IsSubscribed(userID string) (bool, error) {
	_, ok := m[userID]
	return ok, nil
}

type staticMenu struct{}

func (staticMenu) Menu() tgbotapi.ReplyKeyboardMarkup {
	return tgbotapi.NewReplyKeyboard(tgbotapi.NewKeyboardButtonRow(tgbotapi.NewKeyboardButton("Avisos")))
}

func TestToggle(t *testing.T) {
	bot := &fakeBot{}
	subs := memorySubscriptions{}
	a := NewApp(bot, menus.NewApplicationMenu("Avisos", "menú", staticMenu{}), subs)
	ctx := apps.WithUpdate(context.Background(), &tgbotapi.User{ID: 7}, &tgbotapi.Chat{ID: 70})

	ok, render := a.AcceptButton("Avisos")
	if !ok {
		t.Fatal("button not accepted")
	}
	if err := render(ctx, 70); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if msg := bot.sent[0].(tgbotapi.MessageConfig); !strings.Contains(msg.Text, "No recibes") {
		t.Errorf("unexpected status %q", msg.Text)
	}

	query := &tgbotapi.CallbackQuery{ID: "q", Data: "alerts:toggle", Message: &tgbotapi.Message{MessageID: 3, Chat: &tgbotapi.Chat{ID: 70}}}
	ok, toggle := a.AcceptCallback(query)
	if !ok {
		t.Fatal("callback not accepted")
	}
	if err := toggle(ctx, query); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if subs["7"] != "70" {
		t.Errorf("expected user 7 subscribed in chat 70, got %v", subs)
	}
	edit := bot.sent[1].(tgbotapi.EditMessageTextConfig)
	if !strings.Contains(edit.Text, "Recibirás") {
		t.Errorf("unexpected status %q", edit.Text)
	}
	if cb := bot.requests[0].(tgbotapi.CallbackConfig); cb.Text != "Avisos activados" {
		t.Errorf("unexpected notice %q", cb.Text)
	}
}

func TestToggleWithoutUser(t *testing.T) {
	bot := &fakeBot{}
	a := NewApp(bot, menus.NewApplicationMenu("Avisos", "menú", staticMenu{}), memorySubscriptions{})

	query := &tgbotapi.CallbackQuery{ID: "q", Data: "alerts:toggle", Message: &tgbotapi.Message{MessageID: 3, Chat: &tgbotapi.Chat{ID: 70}}}
	_, toggle := a.AcceptCallback(query)
	if err := toggle(context.Background(), query); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if msg := bot.sent[0].(tgbotapi.MessageConfig); msg.Text != "No se pudo leer el usuario" {
		t.Errorf("unexpected message %q", msg.Text)
	}
}
