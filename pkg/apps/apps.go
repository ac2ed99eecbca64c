package apps

import (
	"context"
	"fmt"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

type ContextUser string
type ContextChatID string

const (
	UserContextKey ContextUser   = "user"
	ChatContextKey ContextChatID = "chat"
)

type Accepter interface {
	AcceptCommand(command string) (bool, func(ctx context.Context, chatId int64) error)
	AcceptButton(button string) (bool, func(ctx context.Context, chatId int64) error)
	AcceptCallback(query *tgbotapi.CallbackQuery) (bool, func(ctx context.Context, query *tgbotapi.CallbackQuery) error)
}

// Sender is the part of *tgbotapi.BotAPI the applications talk to.
type Sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
}

// WithUpdate stores the user and chat of an update in ctx.
func WithUpdate(ctx context.Context, user *tgbotapi.User, chat *tgbotapi.Chat) context.Context {
	if user != nil {
		ctx = context.WithValue(ctx, UserContextKey, user)
	}
	if chat != nil {
		ctx = context.WithValue(ctx, ChatContextKey, chat)
	}
	return ctx
}

// UserID returns the id of the user stored in ctx.
func UserID(ctx context.Context) (string, bool) {
	user, ok := ctx.Value(UserContextKey).(*tgbotapi.User)
	if !ok || user == nil {
		return "", false
	}
	return fmt.Sprintf("%d", user.ID), true
}

// ChatID returns the id of the chat stored in ctx.
func ChatID(ctx context.Context) (string, bool) {
	chat, ok := ctx.Value(ChatContextKey).(*tgbotapi.Chat)
	if !ok || chat == nil {
		return "", false
	}
	return fmt.Sprintf("%d", chat.ID), true
}

// Answer acknowledges a callback query, showing text as a notice when not empty.
func Answer(bot Sender, query *tgbotapi.CallbackQuery, text string) error {
	_, err := bot.Request(tgbotapi.NewCallback(query.ID, text))
	return err
}
