// Package consistency is the Telegram application that walks a chat through a
// season, a Grand Prix and one or two drivers, then sends the consistency chart.
package consistency

import (
	"bytes"
	"context"
	"fmt"
	"strconv"
	"strings"

	"f1consistencybot/pkg/apps"
	"f1consistencybot/pkg/chart"
	"f1consistencybot/pkg/dashboard"
	"f1consistencybot/pkg/menus"
	"f1consistencybot/pkg/model"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

const (
	callbackPrefix = "cons"

	subcommandSeason = "season"
	subcommandPager  = "pager"
	subcommandEvent  = "event"
	subcommandMode   = "mode"
	subcommandPick   = "pick"
	subcommandGo     = "go"

	modeSingle     = "s"
	modeComparison = "c"

	eventsPerPage      = 8
	competitorsPerRow  = 4
	buttonCompare      = "Comparar 📈"
	symbolSelected     = "✅"
	symbolSeason       = "📅"
	symbolBack         = "↩️"
	maxCallbackDataLen = 64
)

type App struct {
	bot          apps.Sender
	appMenu      menus.ApplicationMenu
	dashboard    *dashboard.Dashboard
	menuKeyboard tgbotapi.ReplyKeyboardMarkup
	selections   *selections
}

func NewApp(bot apps.Sender, appMenu menus.ApplicationMenu, d *dashboard.Dashboard) *App {
	seasonButtons := []tgbotapi.KeyboardButton{}
	for _, season := range d.Seasons() {
		seasonButtons = append(seasonButtons, tgbotapi.NewKeyboardButton(seasonButton(season)))
	}
	menuKeyboard := tgbotapi.NewReplyKeyboard(
		tgbotapi.NewKeyboardButtonRow(seasonButtons...),
		tgbotapi.NewKeyboardButtonRow(
			tgbotapi.NewKeyboardButton(appMenu.ButtonBackTo()),
		),
	)

	return &App{
		bot:          bot,
		appMenu:      appMenu,
		dashboard:    d,
		menuKeyboard: menuKeyboard,
		selections:   newSelections(),
	}
}

func seasonButton(season int) string {
	return fmt.Sprintf("%s %d", symbolSeason, season)
}

func (a *App) Menu() tgbotapi.ReplyKeyboardMarkup {
	return a.menuKeyboard
}

func (a *App) AcceptCommand(command string) (bool, func(ctx context.Context, chatId int64) error) {
	return false, nil
}

func (a *App) AcceptButton(button string) (bool, func(ctx context.Context, chatId int64) error) {
	switch {
	case button == a.appMenu.Name:
		return true, func(ctx context.Context, chatId int64) error {
			msg := tgbotapi.NewMessage(chatId, "Elige la temporada para analizar la consistencia de los pilotos.")
			msg.ReplyMarkup = a.menuKeyboard
			_, err := a.bot.Send(msg)
			return err
		}
	case button == a.appMenu.ButtonBackTo():
		return true, func(ctx context.Context, chatId int64) error {
			a.selections.clear(chatId)
			msg := tgbotapi.NewMessage(chatId, "OK")
			msg.ReplyMarkup = a.appMenu.PrevMenu()
			_, err := a.bot.Send(msg)
			return err
		}
	}
	for _, season := range a.dashboard.Seasons() {
		if button == seasonButton(season) {
			season := season
			return true, func(ctx context.Context, chatId int64) error {
				return a.sendEvents(ctx, chatId, nil, season, 0)
			}
		}
	}
	return false, nil
}

func (a *App) AcceptCallback(query *tgbotapi.CallbackQuery) (bool, func(ctx context.Context, query *tgbotapi.CallbackQuery) error) {
	data := strings.Split(query.Data, ":")
	if len(data) < 2 || data[0] != callbackPrefix {
		return false, nil
	}

	switch data[1] {
	case subcommandSeason:
		return true, a.withAnswer(a.renderSeasonCallback(data[2:]))
	case subcommandPager:
		return true, a.withAnswer(a.renderPagerCallback(data[2:]))
	case subcommandEvent:
		return true, a.withAnswer(a.renderEventCallback(data[2:]))
	case subcommandMode:
		return true, a.withAnswer(a.renderModeCallback(data[2:]))
	case subcommandPick:
		return true, a.renderPickCallback(data[2:])
	case subcommandGo:
		return true, a.renderGoCallback(data[2:])
	}
	return false, nil
}

// withAnswer acknowledges the callback before running handler.
func (a *App) withAnswer(handler func(ctx context.Context, query *tgbotapi.CallbackQuery) error) func(ctx context.Context, query *tgbotapi.CallbackQuery) error {
	return func(ctx context.Context, query *tgbotapi.CallbackQuery) error {
		if err := apps.Answer(a.bot, query, ""); err != nil {
			logrus.WithError(err).Debug("answering callback")
		}
		return handler(ctx, query)
	}
}

func callbackData(parts ...any) string {
	s := make([]string, 0, len(parts)+1)
	s = append(s, callbackPrefix)
	for _, p := range parts {
		s = append(s, fmt.Sprint(p))
	}
	data := strings.Join(s, ":")
	if len(data) > maxCallbackDataLen {
		logrus.Warnf("callback data %q exceeds %d bytes", data, maxCallbackDataLen)
	}
	return data
}

func atoi(data []string, i int) (int, error) {
	if i >= len(data) {
		return 0, errors.Errorf("missing callback field %d", i)
	}
	return strconv.Atoi(data[i])
}

func modeCode(mode dashboard.Mode) string {
	if mode == dashboard.ModeSingle {
		return modeSingle
	}
	return modeComparison
}

func modeFromCode(code string) dashboard.Mode {
	if code == modeSingle {
		return dashboard.ModeSingle
	}
	return dashboard.ModeComparison
}

// parseKey reads the season:round:mode fields that start pick and go data.
func parseKey(data []string) (selectionKey, error) {
	season, err := atoi(data, 0)
	if err != nil {
		return selectionKey{}, err
	}
	round, err := atoi(data, 1)
	if err != nil {
		return selectionKey{}, err
	}
	if len(data) < 3 {
		return selectionKey{}, errors.Errorf("missing mode in %v", data)
	}
	return selectionKey{season: season, round: round, mode: modeFromCode(data[2])}, nil
}

func (a *App) renderSeasonCallback(data []string) func(ctx context.Context, query *tgbotapi.CallbackQuery) error {
	return func(ctx context.Context, query *tgbotapi.CallbackQuery) error {
		season, err := atoi(data, 0)
		if err != nil {
			return err
		}
		return a.sendEvents(ctx, query.Message.Chat.ID, &query.Message.MessageID, season, 0)
	}
}

func (a *App) renderPagerCallback(data []string) func(ctx context.Context, query *tgbotapi.CallbackQuery) error {
	return func(ctx context.Context, query *tgbotapi.CallbackQuery) error {
		if len(data) < 3 {
			return errors.Errorf("malformed pager data %v", data)
		}
		season, err := atoi(data, 1)
		if err != nil {
			return err
		}
		currentPage, err := atoi(data, 2)
		if err != nil {
			return err
		}

		events, err := a.dashboard.Events(ctx, season)
		if err != nil {
			return a.sendError(query.Message.Chat.ID, err)
		}
		maxPages := pages(len(events))

		page := currentPage
		switch data[0] {
		case "init":
			page = 0
		case "prev":
			page = currentPage - 1
		case "next":
			page = currentPage + 1
		case "end":
			page = maxPages - 1
		}
		if page < 0 || page >= maxPages || page == currentPage {
			return nil
		}
		return a.sendEvents(ctx, query.Message.Chat.ID, &query.Message.MessageID, season, page)
	}
}

func pages(items int) int {
	if items == 0 {
		return 1
	}
	return (items + eventsPerPage - 1) / eventsPerPage
}

func (a *App) sendEvents(ctx context.Context, chatId int64, messageId *int, season, page int) error {
	events, err := a.dashboard.Events(ctx, season)
	if err != nil {
		return a.sendError(chatId, err)
	}
	text, keyboard := eventsTextMarkup(season, page, events)
	return a.sendOrEdit(chatId, messageId, text, keyboard)
}

func eventsTextMarkup(season, page int, events []model.Event) (string, tgbotapi.InlineKeyboardMarkup) {
	maxPages := pages(len(events))
	from := page * eventsPerPage
	to := min(from+eventsPerPage, len(events))

	text := fmt.Sprintf("Elige el Gran Premio de %d (%d/%d):", season, page+1, maxPages)
	var rows [][]tgbotapi.InlineKeyboardButton
	for _, e := range events[from:to] {
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData(e.String(), callbackData(subcommandEvent, season, e.Round)),
		))
	}
	if maxPages > 1 {
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("⏮", callbackData(subcommandPager, "init", season, page)),
			tgbotapi.NewInlineKeyboardButtonData("◀️", callbackData(subcommandPager, "prev", season, page)),
			tgbotapi.NewInlineKeyboardButtonData("▶️", callbackData(subcommandPager, "next", season, page)),
			tgbotapi.NewInlineKeyboardButtonData("⏭", callbackData(subcommandPager, "end", season, page)),
		))
	}
	return text, tgbotapi.NewInlineKeyboardMarkup(rows...)
}

func (a *App) renderEventCallback(data []string) func(ctx context.Context, query *tgbotapi.CallbackQuery) error {
	return func(ctx context.Context, query *tgbotapi.CallbackQuery) error {
		season, err := atoi(data, 0)
		if err != nil {
			return err
		}
		round, err := atoi(data, 1)
		if err != nil {
			return err
		}
		event, err := a.dashboard.EventByRound(ctx, season, round)
		if err != nil {
			return a.sendError(query.Message.Chat.ID, err)
		}

		text := fmt.Sprintf("%s %d\n\nElige el tipo de análisis:", event.Name, season)
		keyboard := tgbotapi.NewInlineKeyboardMarkup(
			tgbotapi.NewInlineKeyboardRow(
				tgbotapi.NewInlineKeyboardButtonData(dashboard.ModeComparison.Label(), callbackData(subcommandMode, season, round, modeComparison)),
			),
			tgbotapi.NewInlineKeyboardRow(
				tgbotapi.NewInlineKeyboardButtonData(dashboard.ModeSingle.Label(), callbackData(subcommandMode, season, round, modeSingle)),
			),
			tgbotapi.NewInlineKeyboardRow(
				tgbotapi.NewInlineKeyboardButtonData(symbolBack+" Grandes Premios", callbackData(subcommandSeason, season)),
			),
		)
		return a.sendOrEdit(query.Message.Chat.ID, &query.Message.MessageID, text, keyboard)
	}
}

func (a *App) renderModeCallback(data []string) func(ctx context.Context, query *tgbotapi.CallbackQuery) error {
	return func(ctx context.Context, query *tgbotapi.CallbackQuery) error {
		chatId := query.Message.Chat.ID
		season, err := atoi(data, 0)
		if err != nil {
			return err
		}
		round, err := atoi(data, 1)
		if err != nil {
			return err
		}
		mode := dashboard.ModeComparison
		if len(data) > 2 {
			mode = modeFromCode(data[2])
		}

		event, err := a.dashboard.EventByRound(ctx, season, round)
		if err != nil {
			return a.sendError(chatId, err)
		}
		competitors, err := a.dashboard.Competitors(ctx, season, event.Name)
		if err != nil {
			return a.sendError(chatId, err)
		}

		a.selections.start(chatId, dashboard.Selection{Season: season, Event: event.Name, Mode: mode}, round, competitors)
		cs, _ := a.selections.get(chatId)
		text, keyboard := competitorsTextMarkup(cs)
		return a.sendOrEdit(chatId, &query.Message.MessageID, text, keyboard)
	}
}

func competitorsTextMarkup(cs chatSelection) (string, tgbotapi.InlineKeyboardMarkup) {
	sel := cs.selection
	mode := modeCode(sel.Mode)
	selected := map[string]bool{}
	for _, c := range sel.Competitors {
		selected[c] = true
	}

	var text string
	if sel.Mode == dashboard.ModeSingle {
		text = fmt.Sprintf("%s %d\n\nElige un piloto:", sel.Event, sel.Season)
	} else {
		picks := "ninguno"
		if len(sel.Competitors) > 0 {
			picks = strings.Join(sel.Competitors, " vs ")
		}
		text = fmt.Sprintf("%s %d\n\nElige %d pilotos y pulsa %q.\nSeleccionados: %s", sel.Event, sel.Season, dashboard.MaxCompetitors, buttonCompare, picks)
	}

	var rows [][]tgbotapi.InlineKeyboardButton
	var row []tgbotapi.InlineKeyboardButton
	for _, c := range cs.available {
		label := c
		if selected[c] {
			label = symbolSelected + " " + c
		}
		row = append(row, tgbotapi.NewInlineKeyboardButtonData(label, callbackData(subcommandPick, sel.Season, cs.round, mode, c)))
		if len(row) == competitorsPerRow {
			rows = append(rows, row)
			row = nil
		}
	}
	if len(row) > 0 {
		rows = append(rows, row)
	}
	last := []tgbotapi.InlineKeyboardButton{
		tgbotapi.NewInlineKeyboardButtonData(symbolBack, callbackData(subcommandEvent, sel.Season, cs.round)),
	}
	if sel.Mode == dashboard.ModeComparison {
		last = append(last, tgbotapi.NewInlineKeyboardButtonData(buttonCompare, callbackData(subcommandGo, sel.Season, cs.round, mode)))
	}
	rows = append(rows, last)
	return text, tgbotapi.NewInlineKeyboardMarkup(rows...)
}

// renderPickCallback handles cons:pick:<season>:<round>:<mode>:<competitor>.
// Picks made on the keyboard of an older selection are rejected.
func (a *App) renderPickCallback(data []string) func(ctx context.Context, query *tgbotapi.CallbackQuery) error {
	return func(ctx context.Context, query *tgbotapi.CallbackQuery) error {
		chatId := query.Message.Chat.ID
		key, err := parseKey(data)
		if err != nil || len(data) < 4 {
			return errors.Errorf("malformed pick data %v", data)
		}
		competitor := data[3]

		cs, err := a.selections.current(chatId, key)
		if err != nil {
			return apps.Answer(a.bot, query, dashboard.UserMessage(err))
		}
		if cs.selection.Mode == dashboard.ModeSingle {
			if err := apps.Answer(a.bot, query, ""); err != nil {
				logrus.WithError(err).Debug("answering callback")
			}
			sel := cs.selection
			sel.Competitors = []string{competitor}
			return a.render(ctx, chatId, sel)
		}

		_, err = a.selections.toggle(chatId, key, competitor)
		if err != nil {
			// rejected picks only get a notice, the keyboard stays as it is
			return apps.Answer(a.bot, query, dashboard.UserMessage(err))
		}
		if err := apps.Answer(a.bot, query, ""); err != nil {
			logrus.WithError(err).Debug("answering callback")
		}

		cs, _ = a.selections.get(chatId)
		text, keyboard := competitorsTextMarkup(cs)
		return a.sendOrEdit(chatId, &query.Message.MessageID, text, keyboard)
	}
}

func (a *App) renderGoCallback(data []string) func(ctx context.Context, query *tgbotapi.CallbackQuery) error {
	return func(ctx context.Context, query *tgbotapi.CallbackQuery) error {
		chatId := query.Message.Chat.ID
		key, err := parseKey(data)
		if err != nil {
			return errors.Wrapf(err, "malformed go data %v", data)
		}
		cs, err := a.selections.current(chatId, key)
		if err != nil {
			return apps.Answer(a.bot, query, dashboard.UserMessage(err))
		}
		if err := apps.Answer(a.bot, query, ""); err != nil {
			logrus.WithError(err).Debug("answering callback")
		}
		return a.render(ctx, chatId, cs.selection)
	}
}

// render sends the chart as a photo followed by the values as a table. Invalid
// selections and races without data only get the inline message.
func (a *App) render(ctx context.Context, chatId int64, sel dashboard.Selection) error {
	spec, err := a.dashboard.Render(ctx, sel)
	if err != nil {
		return a.sendError(chatId, err)
	}

	var buf bytes.Buffer
	err = chart.RenderPNG(spec, &buf)
	switch {
	case err == nil:
		photo := tgbotapi.NewPhoto(chatId, tgbotapi.FileBytes{Name: "consistency.png", Bytes: buf.Bytes()})
		photo.Caption = spec.Title
		if _, err := a.bot.Send(photo); err != nil {
			return err
		}
	case errors.Is(err, chart.ErrNothingToPlot):
		logrus.WithField("title", spec.Title).Debug("no defined values, sending table only")
	default:
		logrus.WithError(err).WithField("title", spec.Title).Error("rendering chart")
	}

	text := fmt.Sprintf("```\n%s\n\n%s```", escapeCode(spec.Title), escapeCode(chart.RenderTable(spec)))
	msg := tgbotapi.NewMessage(chatId, text)
	msg.ParseMode = tgbotapi.ModeMarkdownV2
	_, err = a.bot.Send(msg)
	return err
}

// escapeCode escapes text placed inside a MarkdownV2 code block.
func escapeCode(s string) string {
	return strings.NewReplacer("\\", "\\\\", "`", "\\`").Replace(s)
}

func (a *App) sendError(chatId int64, err error) error {
	logrus.WithError(err).WithField("chat", chatId).Info("selection not rendered")
	msg := tgbotapi.NewMessage(chatId, dashboard.UserMessage(err))
	_, sendErr := a.bot.Send(msg)
	return sendErr
}

func (a *App) sendOrEdit(chatId int64, messageId *int, text string, keyboard tgbotapi.InlineKeyboardMarkup) error {
	var cfg tgbotapi.Chattable
	if messageId == nil {
		msg := tgbotapi.NewMessage(chatId, text)
		msg.ReplyMarkup = keyboard
		cfg = msg
	} else {
		msg := tgbotapi.NewEditMessageText(chatId, *messageId, text)
		msg.ReplyMarkup = &keyboard
		cfg = msg
	}
	_, err := a.bot.Send(cfg)
	return err
}
