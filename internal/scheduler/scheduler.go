package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/example/schedulebot/internal/database"
	"github.com/example/schedulebot/pkg/models"
	"github.com/go-co-op/gocron"
)

const (
	dateLayout = "2006-01-02"
	timeLayout = "15:04"
)

// Defaults used when Config leaves a field empty
const (
	DefaultInterval    = time.Minute
	DefaultSendTimeout = 10 * time.Second
)

// Config controls the reminder scheduler
type Config struct {
	// Interval between ticks. Matching is per minute, so anything up to a minute works.
	Interval time.Duration
	// CatchUp is how far back a tick still delivers reminders for minutes that
	// no earlier tick scanned. Zero means only the current minute.
	CatchUp     time.Duration
	SendTimeout time.Duration
	// Now is the clock; nil means time.Now
	Now func() time.Time
}

// TickResult summarises one scan
type TickResult struct {
	Minutes int
	Matched int
	Sent    int
	Failed  int
}

// Scheduler periodically looks for events starting "now" and reminds the
// opted-in members of each event's group.
type Scheduler struct {
	scheduler *gocron.Scheduler
	events    *database.EventRepository
	users     *database.UserRepository
	transport Transport
	logger    *slog.Logger
	cfg       Config

	mu       sync.Mutex
	lastScan time.Time
}

// New creates a new scheduler instance
func New(db *database.DB, transport Transport, logger *slog.Logger, cfg Config) *Scheduler {
	if cfg.Interval <= 0 {
		cfg.Interval = DefaultInterval
	}
	if cfg.SendTimeout <= 0 {
		cfg.SendTimeout = DefaultSendTimeout
	}
	if cfg.CatchUp < 0 {
		cfg.CatchUp = 0
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}

	return &Scheduler{
		scheduler: gocron.NewScheduler(time.Local),
		events:    database.NewEventRepository(db),
		users:     database.NewUserRepository(db),
		transport: transport,
		logger:    logger,
		cfg:       cfg,
	}
}

// Start begins ticking in the background. The first tick runs immediately.
func (s *Scheduler) Start() error {
	// A tick always runs to completion; the next one waits for it
	s.scheduler.SingletonModeAll()

	if _, err := s.scheduler.Every(s.cfg.Interval).Do(s.run); err != nil {
		return fmt.Errorf("failed to schedule reminder job: %w", err)
	}
	s.scheduler.StartAsync()

	s.logger.Info("scheduler started", "interval", s.cfg.Interval, "catch_up", s.cfg.CatchUp)
	return nil
}

// Stop terminates the ticking job
func (s *Scheduler) Stop() {
	s.scheduler.Stop()
	s.logger.Info("scheduler stopped")
}

func (s *Scheduler) run() {
	result, err := s.Tick(context.Background())
	if err != nil {
		s.logger.Error("reminder tick aborted", "error", err)
		return
	}
	if result.Matched > 0 {
		s.logger.Info("reminder tick finished",
			"minutes", result.Minutes, "events", result.Matched, "sent", result.Sent, "failed", result.Failed)
	}
}

// Tick scans every minute that has not been scanned yet, up to the current one,
// and sends reminders for events whose date and time match exactly.
// A storage failure aborts the tick; minutes already processed stay processed.
func (s *Scheduler) Tick(ctx context.Context) (TickResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var result TickResult
	eventsByDate := make(map[string][]models.Event)

	for _, minute := range s.pendingMinutes(truncateToMinute(s.cfg.Now())) {
		date := minute.Format(dateLayout)
		targetTime := minute.Format(timeLayout)

		events, ok := eventsByDate[date]
		if !ok {
			var err error
			events, err = s.events.GetByDate(ctx, date)
			if err != nil {
				return result, fmt.Errorf("failed to get events for %s: %w", date, err)
			}
			eventsByDate[date] = events
		}

		for _, event := range events {
			if event.Time != targetTime {
				continue
			}
			result.Matched++

			sent, failed, err := s.remind(ctx, event)
			if err != nil {
				return result, err
			}
			result.Sent += sent
			result.Failed += failed
		}

		s.lastScan = minute
		result.Minutes++
	}

	return result, nil
}

// pendingMinutes lists the minutes to scan for a tick at now.
// Must be called with s.mu held.
func (s *Scheduler) pendingMinutes(now time.Time) []time.Time {
	last := s.lastScan
	if !last.IsZero() && now.Equal(last) {
		return nil
	}

	start := now
	if !last.IsZero() && now.After(last) {
		start = last.Add(time.Minute)
		if earliest := now.Add(-s.cfg.CatchUp); start.Before(earliest) {
			s.logger.Warn("reminders dropped for minutes outside the catch-up window",
				"from", start.Format(dateLayout+" "+timeLayout),
				"to", earliest.Add(-time.Minute).Format(dateLayout+" "+timeLayout))
			start = earliest
		}
	}

	var minutes []time.Time
	for m := start; !m.After(now); m = m.Add(time.Minute) {
		minutes = append(minutes, m)
	}
	return minutes
}

func (s *Scheduler) remind(ctx context.Context, event models.Event) (sent, failed int, err error) {
	users, err := s.users.GetNotifiableByGroup(ctx, event.GroupName)
	if err != nil {
		return 0, 0, fmt.Errorf("failed to get users for group %s: %w", event.GroupName, err)
	}
	if len(users) == 0 {
		s.logger.Info("no users to notify", "event_id", event.ID, "group", event.GroupName)
		return 0, 0, nil
	}

	text := FormatReminder(event)
	for _, user := range users {
		sendCtx, cancel := context.WithTimeout(ctx, s.cfg.SendTimeout)
		err := s.transport.SendMessage(sendCtx, user.ID, text)
		cancel()

		if err != nil {
			failed++
			s.logger.Error("failed to send reminder",
				"chat_id", user.ID, "event_id", event.ID, "group", event.GroupName, "error", err)
			continue
		}
		sent++
		s.logger.Debug("reminder sent", "chat_id", user.ID, "event_id", event.ID)
	}
	return sent, failed, nil
}

// FormatReminder renders the reminder text for an event
func FormatReminder(event models.Event) string {
	return fmt.Sprintf("⏰ Нагадування: %s о %s\n📅 Дата: %s\n🏫 Аудиторія: %s\n👥 Група: %s",
		event.Title, event.Time, event.Date, event.Room, event.GroupName)
}

func truncateToMinute(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), t.Hour(), t.Minute(), 0, 0, t.Location())
}
