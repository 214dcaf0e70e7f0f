package main

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/example/schedulebot/internal/bot"
	"github.com/example/schedulebot/internal/config"
	"github.com/example/schedulebot/internal/database"
	"github.com/example/schedulebot/internal/excel"
	"github.com/example/schedulebot/internal/schedule"
	"github.com/example/schedulebot/internal/scheduler"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/joho/godotenv"
)

func main() {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		slog.Warn("failed to read .env file", "error", err)
	}

	cfg, err := config.Load()
	if err != nil {
		slog.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: cfg.LogLevel}))
	slog.SetDefault(logger)

	if err := run(cfg, logger); err != nil {
		logger.Error("bot exited with error", "error", err)
		os.Exit(1)
	}
	logger.Info("bot stopped successfully")
}

func run(cfg *config.Config, logger *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := database.Open(cfg.DatabaseURL)
	if err != nil {
		return err
	}
	defer db.Close()
	logger.Info("database ready", "driver", db.DriverName())

	api, err := tgbotapi.NewBotAPI(cfg.BotToken)
	if err != nil {
		return err
	}
	logger.Info("authorized on account", "username", api.Self.UserName)

	botConfig := bot.DefaultConfig()
	botConfig.SendTimeout = cfg.SendTimeout
	botConfig.SendRate = cfg.SendRate

	messenger := bot.NewMessenger(api, botConfig)
	service := schedule.NewService(db, messenger, cfg.AdminIDs, logger, schedule.WithSendTimeout(cfg.SendTimeout))

	importer, err := excel.NewImporter(service, excel.DefaultImportConfig(), logger)
	if err != nil {
		return err
	}

	if cfg.EnableScheduler {
		reminders := scheduler.New(db, messenger, logger, scheduler.Config{
			Interval:    cfg.TickInterval,
			CatchUp:     cfg.CatchUpWindow,
			SendTimeout: cfg.SendTimeout,
		})
		if err := reminders.Start(); err != nil {
			return err
		}
		defer reminders.Stop()
	}

	b := bot.New(api, messenger, service, importer, botConfig, logger)
	if err := b.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}
