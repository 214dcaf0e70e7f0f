package bot

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/example/schedulebot/internal/excel"
	"github.com/example/schedulebot/internal/schedule"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// botAPI is the subset of tgbotapi.BotAPI the bot relies on
type botAPI interface {
	sender
	GetUpdatesChan(config tgbotapi.UpdateConfig) tgbotapi.UpdatesChannel
	StopReceivingUpdates()
	GetFileDirectURL(fileID string) (string, error)
}

// Bot represents the Telegram bot application
type Bot struct {
	api       botAPI
	messenger *Messenger
	service   *schedule.Service
	importer  *excel.Importer
	states    *conversations
	config    *BotConfig
	logger    *slog.Logger
	client    *http.Client
	wg        sync.WaitGroup
}

// New creates a new bot instance. Replies go out through messenger.
func New(api botAPI, messenger *Messenger, service *schedule.Service, importer *excel.Importer, config *BotConfig, logger *slog.Logger) *Bot {
	if config == nil {
		config = DefaultConfig()
	}
	return &Bot{
		api:       api,
		messenger: messenger,
		service:   service,
		importer:  importer,
		states:    newConversations(config.ConversationTTL, time.Now),
		config:    config,
		logger:    logger,
		client:    &http.Client{Timeout: time.Minute},
	}
}

// Start receives updates until ctx is cancelled. Updates are handled
// concurrently; Start returns once every in-flight handler has finished.
func (b *Bot) Start(ctx context.Context) error {
	updateConfig := tgbotapi.NewUpdate(0)
	updateConfig.Timeout = b.config.UpdateTimeout

	updates := b.api.GetUpdatesChan(updateConfig)
	b.logger.Info("bot started, waiting for updates")

	// Handlers finish their replies even after shutdown begins
	handlerCtx := context.WithoutCancel(ctx)

	for {
		select {
		case <-ctx.Done():
			b.api.StopReceivingUpdates()
			b.wg.Wait()
			b.logger.Info("bot stopped")
			return ctx.Err()
		case update, ok := <-updates:
			if !ok {
				b.wg.Wait()
				return nil
			}
			b.wg.Add(1)
			go func() {
				defer b.wg.Done()
				b.handleUpdate(handlerCtx, update)
			}()
		}
	}
}

// handleUpdate handles incoming updates from Telegram
func (b *Bot) handleUpdate(ctx context.Context, update tgbotapi.Update) {
	message := update.Message
	if message == nil || message.From == nil || message.Chat == nil {
		return
	}

	defer func() {
		if r := recover(); r != nil {
			b.logger.Error("panic while handling update", "update_id", update.UpdateID, "panic", r)
		}
	}()

	var err error
	switch {
	case message.IsCommand():
		err = b.handleCommand(ctx, message)
	case message.Document != nil:
		err = b.handleDocument(ctx, message)
	default:
		err = b.handleText(ctx, message)
	}

	if err != nil {
		b.replyError(ctx, message.Chat.ID, err)
	}
}

func (b *Bot) reply(ctx context.Context, chatID int64, text string) {
	sendCtx, cancel := context.WithTimeout(ctx, b.config.SendTimeout)
	defer cancel()

	if err := b.messenger.SendMessage(sendCtx, chatID, text); err != nil {
		b.logger.Error("failed to send reply", "chat_id", chatID, "error", err)
	}
}

// replyError turns a command failure into a message for the user.
// Unexpected failures are logged and reported generically.
func (b *Bot) replyError(ctx context.Context, chatID int64, err error) {
	var verr *schedule.ValidationError
	var text string

	switch {
	case errors.As(err, &verr):
		text = "❌ " + verr.Message
	case errors.Is(err, schedule.ErrForbidden):
		text = "❌ Ця команда доступна лише адміністраторам"
	case errors.Is(err, schedule.ErrNoGroup):
		text = "❌ Спочатку встановіть групу командою /setgroup"
	case errors.Is(err, schedule.ErrNotFound):
		text = "❌ Не знайдено"
	case errors.Is(err, excel.ErrUnsupportedFormat):
		text = "❌ Підтримуються лише файли .xlsx та .csv"
	default:
		b.logger.Error("command failed", "chat_id", chatID, "error", err)
		text = "⚠️ Сталася помилка. Спробуйте пізніше."
	}

	b.reply(ctx, chatID, text)
}

// downloadFile fetches an uploaded document from Telegram
func (b *Bot) downloadFile(ctx context.Context, fileID string) (io.ReadCloser, error) {
	url, err := b.api.GetFileDirectURL(fileID)
	if err != nil {
		return nil, fmt.Errorf("failed to get file URL: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build download request: %w", err)
	}

	resp, err := b.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to download file: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		return nil, fmt.Errorf("failed to download file: status %s", resp.Status)
	}
	return resp.Body, nil
}
