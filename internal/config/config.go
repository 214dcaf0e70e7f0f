package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds process-wide settings. It is read once at startup and never mutated.
type Config struct {
	BotToken        string
	AdminIDs        map[int64]bool
	DatabaseURL     string
	EnableScheduler bool
	// TickInterval is how often the scheduler scans for starting events
	TickInterval time.Duration
	// CatchUpWindow bounds how far back a late tick still delivers reminders
	CatchUpWindow time.Duration
	SendTimeout   time.Duration
	SendRate      float64
	LogLevel      slog.Level
}

// Load parses configuration values from the current process environment
func Load() (*Config, error) {
	cfg := &Config{
		AdminIDs:        make(map[int64]bool),
		DatabaseURL:     getEnv("DATABASE_URL", "sqlite:///schedule.db"),
		EnableScheduler: getEnv("ENABLE_SCHEDULER", "true") != "false",
		TickInterval:    time.Minute,
		CatchUpWindow:   10 * time.Minute,
		SendTimeout:     10 * time.Second,
		SendRate:        25,
		LogLevel:        slog.LevelInfo,
	}

	var missing, invalid []string

	cfg.BotToken = getEnv("BOT_TOKEN", getEnv("TELEGRAM_BOT_TOKEN", ""))
	if cfg.BotToken == "" {
		missing = append(missing, "BOT_TOKEN")
	}

	if ids := getEnv("ADMIN_IDS", ""); ids != "" {
		for _, idStr := range strings.Split(ids, ",") {
			idStr = strings.TrimSpace(idStr)
			if idStr == "" {
				continue
			}
			id, err := strconv.ParseInt(idStr, 10, 64)
			if err != nil {
				invalid = append(invalid, "ADMIN_IDS")
				break
			}
			cfg.AdminIDs[id] = true
		}
	}

	if v := getEnv("SCHEDULER_TICK", ""); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil || d <= 0 || d > time.Minute {
			invalid = append(invalid, "SCHEDULER_TICK")
		} else {
			cfg.TickInterval = d
		}
	}

	if v := getEnv("SCHEDULER_CATCHUP", ""); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil || d < 0 {
			invalid = append(invalid, "SCHEDULER_CATCHUP")
		} else {
			cfg.CatchUpWindow = d
		}
	}

	if v := getEnv("SEND_TIMEOUT", ""); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil || d <= 0 {
			invalid = append(invalid, "SEND_TIMEOUT")
		} else {
			cfg.SendTimeout = d
		}
	}

	if v := getEnv("SEND_RATE", ""); v != "" {
		r, err := strconv.ParseFloat(v, 64)
		if err != nil || r <= 0 {
			invalid = append(invalid, "SEND_RATE")
		} else {
			cfg.SendRate = r
		}
	}

	if v := getEnv("LOG_LEVEL", ""); v != "" {
		if err := cfg.LogLevel.UnmarshalText([]byte(v)); err != nil {
			invalid = append(invalid, "LOG_LEVEL")
		}
	}

	if len(missing) > 0 {
		return nil, fmt.Errorf("required environment variables are not set: %s", strings.Join(missing, ", "))
	}
	if len(invalid) > 0 {
		return nil, fmt.Errorf("invalid environment variable values: %s", strings.Join(invalid, ", "))
	}

	return cfg, nil
}

func getEnv(key, defaultValue string) string {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		return value
	}
	return defaultValue
}
