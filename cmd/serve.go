package cmd

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"vpnbot/app"
	"vpnbot/handlers"
	"vpnbot/services"
	"vpnbot/telegram_bot"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

const shutdownTimeout = 10 * time.Second

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the admin API, the Telegram bot and the expiry watcher",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer cancel()
		return runServe(ctx)
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe(ctx context.Context) error {
	cfg, err := loadConfig()
	if err != nil {
		return configError(err)
	}
	if err := cfg.Validate(); err != nil {
		return configError(err)
	}

	a, err := app.InitializeApp(ctx, cfg)
	if err != nil {
		return err
	}
	defer a.Close()

	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           a.APIServer(Version).Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	var notifier services.Notifier = telegram_bot.LogNotifier{}
	var bot *telegram_bot.Bot
	if cfg.BotToken != "" {
		bot, err = telegram_bot.NewBot(cfg.BotToken)
		if err != nil {
			return err
		}
		if err := bot.SetBotCommands(); err != nil {
			log.Warnf("SERVE: Команды бота не установлены: %v", err)
		}
		notifier = telegram_bot.NewNotifier(bot.API)
	} else {
		log.Warnf("SERVE: BOT_TOKEN не задан, Telegram бот не запускается")
	}
	watcher := services.NewExpiryWatcher(a.Store, notifier, cfg.ExpiryCheckInterval)

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		log.Printf("SERVE: HTTP API слушает %s", cfg.HTTPAddr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		log.Printf("SERVE: Остановка HTTP API")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
	g.Go(func() error {
		return watcher.Run(ctx)
	})
	if bot != nil {
		h := handlers.New(bot.API, a.Store, a.Subscriptions, a.Panel, handlers.Config{
			AdminIDs:      cfg.AdminIDs,
			ConfigBaseURL: cfg.ConfigBaseURL,
			SupportLink:   cfg.SupportLink,
		})
		g.Go(func() error {
			return bot.Run(ctx, h)
		})
	}

	err = g.Wait()
	log.Printf("SERVE: Все компоненты остановлены")
	return err
}
