package bot

import (
	"context"
	"math"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"golang.org/x/time/rate"
)

// sender is the part of tgbotapi.BotAPI that delivers messages
type sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

// Messenger sends plain text to Telegram chats. It is shared by command replies,
// admin broadcasts and scheduled reminders so they all respect one rate limit.
type Messenger struct {
	api       sender
	limiter   *rate.Limiter
	maxLength int
}

// NewMessenger creates a rate-limited messenger
func NewMessenger(api sender, config *BotConfig) *Messenger {
	limit := rate.Inf
	burst := 1
	if config.SendRate > 0 {
		limit = rate.Limit(config.SendRate)
		burst = int(math.Ceil(config.SendRate))
	}

	return &Messenger{
		api:       api,
		limiter:   rate.NewLimiter(limit, burst),
		maxLength: config.MaxMessageLength,
	}
}

// SendMessage delivers text to chatID, split into several messages when it is
// too long. It gives up when ctx is done, even if Telegram has not answered yet.
func (m *Messenger) SendMessage(ctx context.Context, chatID int64, text string) error {
	for _, part := range splitMessage(text, m.maxLength) {
		if err := m.limiter.Wait(ctx); err != nil {
			return err
		}
		if err := m.send(ctx, tgbotapi.NewMessage(chatID, part)); err != nil {
			return err
		}
	}
	return nil
}

func (m *Messenger) send(ctx context.Context, c tgbotapi.Chattable) error {
	done := make(chan error, 1)
	go func() {
		_, err := m.api.Send(c)
		done <- err
	}()

	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}
