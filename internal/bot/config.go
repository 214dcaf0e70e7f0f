package bot

import (
	"time"
)

// BotConfig represents the configuration for the bot
type BotConfig struct {
	// Replies longer than this many characters are split on line boundaries
	MaxMessageLength int
	// Upper bound for one outbound Telegram call
	SendTimeout time.Duration
	// Outbound messages per second across all chats
	SendRate float64
	// Long polling timeout in seconds
	UpdateTimeout int
	// Largest timetable file accepted by /import_schedule, in bytes
	MaxImportSize int
	// Pending conversations are dropped after this long without input
	ConversationTTL time.Duration
}

// DefaultConfig returns the default bot configuration
func DefaultConfig() *BotConfig {
	return &BotConfig{
		MaxMessageLength: 4000,
		SendTimeout:      10 * time.Second,
		SendRate:         25,
		UpdateTimeout:    60,
		MaxImportSize:    5 << 20,
		ConversationTTL:  15 * time.Minute,
	}
}
