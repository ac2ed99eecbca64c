package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"f1consistencybot/pkg/apps"
	"f1consistencybot/pkg/apps/alerts"
	"f1consistencybot/pkg/apps/mainapp"
	"f1consistencybot/pkg/cache"
	"f1consistencybot/pkg/config"
	"f1consistencybot/pkg/dashboard"
	"f1consistencybot/pkg/notification"
	"f1consistencybot/pkg/provider"
	"f1consistencybot/pkg/pubsub"
	"f1consistencybot/pkg/storage"
	"f1consistencybot/pkg/watcher"
	"f1consistencybot/pkg/webserver"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/sirupsen/logrus"
)

func main() {
	configPath := flag.String("config", config.DefaultPath, "path to the YAML configuration file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		logrus.WithError(err).Fatal("loading configuration")
	}
	logrus.SetLevel(cfg.LogLevel())

	sm, err := storage.NewManager(cfg.Storage.Path)
	if err != nil {
		logrus.WithError(err).Fatal("opening storage")
	}
	defer sm.Close()

	// Create a new cancellable background context. Calling `cancel()` leads to the cancellation of the context
	ctx, cancel := context.WithCancel(context.Background())
	exitChan := make(chan bool)
	var wg sync.WaitGroup

	client := provider.NewClient(cfg.Provider.BaseURL, cfg.Provider.Timeout, cfg.Provider.PageSize)
	loader := cache.NewLoader(client, sm)
	scheduleTicker := time.NewTicker(cfg.Cache.ScheduleTTL)
	defer scheduleTicker.Stop()
	loader.Sync(scheduleTicker, exitChan)

	d := dashboard.NewDashboard(cfg.Seasons, loader, loader)

	ws := webserver.NewManager(cfg.Webserver.Address, d)
	ws.Debug()
	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := ws.Serve(ctx); err != nil {
			logrus.WithError(err).Error("webserver stopped")
		}
	}()

	var bot *tgbotapi.BotAPI
	if cfg.BotEnabled() {
		bot, err = tgbotapi.NewBotAPI(cfg.Telegram.Token)
		if err != nil {
			logrus.WithError(err).Fatal("connecting to telegram")
		}
		// Set this to true to log all interactions with telegram servers
		bot.Debug = cfg.Telegram.Debug

		// alerts are only offered when someone is watching for new races
		var subscriptions alerts.Subscriptions
		if cfg.WatchEnabled() {
			subscriptions = sm
		}
		mainApp := mainapp.NewMainApp(bot, d, subscriptions)

		u := tgbotapi.NewUpdate(0)
		u.Timeout = 60
		// `updates` is a golang channel which receives telegram updates
		updates := bot.GetUpdatesChan(u)
		wg.Add(1)
		go func() {
			defer wg.Done()
			receiveUpdates(ctx, updates, mainApp)
		}()
		logrus.Infof("bot @%s listening for updates", bot.Self.UserName)
	} else {
		logrus.Info("no telegram token configured, running the HTTP API only")
	}

	if cfg.WatchEnabled() {
		if bot != nil {
			nm := notification.NewManager(ctx, sm, notification.TelegramNotifier(bot))
			racesChan := pubsub.RacePublishedPubSub.Subscribe(pubsub.TopicRacePublished)
			go nm.Start(racesChan, exitChan)
		}
		watchTicker := time.NewTicker(cfg.Watch.Interval)
		defer watchTicker.Stop()
		wm := watcher.NewManager(ctx, loader, loader, sm, pubsub.RacePublishedPubSub, pubsub.TopicRacePublished)
		wm.Sync(watchTicker, exitChan)
	}

	logrus.Info("Start listening. Press Ctrl-C to stop it")
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, os.Interrupt, syscall.SIGTERM)

	// lock the main thread until we receive a signal
	<-sigs

	close(exitChan)
	cancel()
	if bot != nil {
		bot.StopReceivingUpdates()
	}
	wg.Wait()
	logrus.Info("bye")
}

func receiveUpdates(ctx context.Context, updates tgbotapi.UpdatesChannel, app *mainapp.MainApp) {
	for {
		select {
		// stop looping if ctx is cancelled
		case <-ctx.Done():
			return
		case update, ok := <-updates:
			if !ok {
				return
			}
			handleUpdate(ctx, update, app)
		}
	}
}

func handleUpdate(ctx context.Context, update tgbotapi.Update, app *mainapp.MainApp) {
	switch {
	case update.Message != nil:
		ctx = apps.WithUpdate(ctx, update.Message.From, update.Message.Chat)
		handleMessage(ctx, update.Message, app)
	case update.CallbackQuery != nil:
		query := update.CallbackQuery
		var chat *tgbotapi.Chat
		if query.Message != nil {
			chat = query.Message.Chat
		}
		ctx = apps.WithUpdate(ctx, query.From, chat)
		accept, handler := app.AcceptCallback(query)
		if !accept {
			logrus.Debugf("ignoring callback %q", query.Data)
			return
		}
		if err := handler(ctx, query); err != nil {
			logrus.WithError(err).WithField("data", query.Data).Error("handling callback")
		}
	}
}

func handleMessage(ctx context.Context, message *tgbotapi.Message, app *mainapp.MainApp) {
	user := message.From
	text := message.Text
	if user == nil || message.Chat == nil {
		return
	}

	logrus.WithField("user", user.UserName).Debugf("wrote %q", text)

	var (
		accept  bool
		handler func(ctx context.Context, chatId int64) error
	)
	if message.IsCommand() {
		accept, handler = app.AcceptCommand("/" + message.Command())
	} else {
		accept, handler = app.AcceptButton(text)
	}
	if !accept {
		return
	}
	if err := handler(ctx, message.Chat.ID); err != nil {
		logrus.WithError(err).Errorf("handling %q", text)
	}
}
