package scheduler

import "context"

//go:generate mockgen -source=transport.go -destination=../../mocks/transport_mock.go -package=mocks

// Transport delivers a text message to one Telegram chat.
// A failed delivery is reported per call and never affects other recipients.
type Transport interface {
	SendMessage(ctx context.Context, chatID int64, text string) error
}
