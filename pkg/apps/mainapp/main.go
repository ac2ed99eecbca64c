package mainapp

import (
	"context"
	"fmt"

	"f1consistencybot/pkg/apps"
	"f1consistencybot/pkg/apps/alerts"
	"f1consistencybot/pkg/apps/consistency"
	"f1consistencybot/pkg/dashboard"
	"f1consistencybot/pkg/menus"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

const (
	menuStart         = "/start"
	menuMenu          = "/menu"
	buttonConsistency = "Consistencia"
	buttonAlerts      = "Avisos"
	appName           = "menú"
)

func newMenuKeyboard(withAlerts bool) tgbotapi.ReplyKeyboardMarkup {
	buttons := []tgbotapi.KeyboardButton{tgbotapi.NewKeyboardButton(buttonConsistency)}
	if withAlerts {
		buttons = append(buttons, tgbotapi.NewKeyboardButton(buttonAlerts))
	}
	return tgbotapi.NewReplyKeyboard(tgbotapi.NewKeyboardButtonRow(buttons...))
}

type menuer struct {
	keyboard tgbotapi.ReplyKeyboardMarkup
}

func (m menuer) Menu() tgbotapi.ReplyKeyboardMarkup {
	return m.keyboard
}

type MainApp struct {
	bot          apps.Sender
	accepters    []apps.Accepter
	menuKeyboard tgbotapi.ReplyKeyboardMarkup
}

// NewMainApp wires the applications reachable from the main menu. subscriptions
// may be nil, which hides the alerts application.
func NewMainApp(bot apps.Sender, d *dashboard.Dashboard, subscriptions alerts.Subscriptions) *MainApp {
	menuKeyboard := newMenuKeyboard(subscriptions != nil)
	mainMenu := menuer{keyboard: menuKeyboard}

	consistencyAppMenu := menus.NewApplicationMenu(buttonConsistency, appName, mainMenu)
	consistencyApp := consistency.NewApp(bot, consistencyAppMenu, d)

	accepters := []apps.Accepter{consistencyApp}
	if subscriptions != nil {
		alertsAppMenu := menus.NewApplicationMenu(buttonAlerts, appName, mainMenu)
		accepters = append(accepters, alerts.NewApp(bot, alertsAppMenu, subscriptions))
	}

	return &MainApp{
		bot:          bot,
		accepters:    accepters,
		menuKeyboard: menuKeyboard,
	}
}

func (m *MainApp) AcceptCommand(command string) (bool, func(ctx context.Context, chatId int64) error) {
	if command == menuStart {
		return true, m.renderStart()
	} else if command == menuMenu {
		return true, m.renderMenu()
	}
	for _, accepter := range m.accepters {
		accept, handler := accepter.AcceptCommand(command)
		if accept {
			return true, handler
		}
	}

	return false, nil
}

func (m *MainApp) AcceptCallback(query *tgbotapi.CallbackQuery) (bool, func(ctx context.Context, query *tgbotapi.CallbackQuery) error) {
	for _, accepter := range m.accepters {
		accept, handler := accepter.AcceptCallback(query)
		if accept {
			return true, handler
		}
	}

	return false, nil
}

func (m *MainApp) AcceptButton(button string) (bool, func(ctx context.Context, chatId int64) error) {
	for _, accepter := range m.accepters {
		accept, handler := accepter.AcceptButton(button)
		if accept {
			return true, handler
		}
	}
	return false, nil
}

func (m *MainApp) renderStart() func(ctx context.Context, chatId int64) error {
	return func(ctx context.Context, chatId int64) error {
		message := "Hola, soy el bot que mide la consistencia de los pilotos de F1 a lo largo de una carrera.\n\n"
		message += "Elige una temporada, un Gran Premio y uno o dos pilotos para ver la desviación estándar móvil de sus tiempos por vuelta.\n\n"
		message += "Puedes usar el siguiente comando:\n\n"
		message += fmt.Sprintf("%s - Muestra el menú del bot\n", menuMenu)
		msg := tgbotapi.NewMessage(chatId, message)
		msg.ReplyMarkup = m.menuKeyboard
		_, err := m.bot.Send(msg)
		return err
	}
}

func (m *MainApp) renderMenu() func(ctx context.Context, chatId int64) error {
	return func(ctx context.Context, chatId int64) error {
		message := "Menú del bot.\n\n"
		msg := tgbotapi.NewMessage(chatId, message)
		msg.ReplyMarkup = m.menuKeyboard
		_, err := m.bot.Send(msg)
		return err
	}
}
