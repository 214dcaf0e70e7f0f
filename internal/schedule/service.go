package schedule

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/example/schedulebot/internal/database"
	"github.com/example/schedulebot/pkg/models"
)

// Sender delivers a text message to one Telegram chat
type Sender interface {
	SendMessage(ctx context.Context, chatID int64, text string) error
}

// Service applies student and admin commands to the timetable.
// Input is validated before anything is written.
type Service struct {
	users       *database.UserRepository
	events      *database.EventRepository
	stats       *database.StatisticsRepository
	sender      Sender
	admins      map[int64]bool
	logger      *slog.Logger
	now         func() time.Time
	sendTimeout time.Duration
}

// Option customises a Service
type Option func(*Service)

// WithClock replaces the wall clock used for "today"
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// WithSendTimeout bounds every outbound message of a bulk notification
func WithSendTimeout(d time.Duration) Option {
	return func(s *Service) { s.sendTimeout = d }
}

// NewService creates the command service. admins is copied.
func NewService(db *database.DB, sender Sender, admins map[int64]bool, logger *slog.Logger, opts ...Option) *Service {
	allowList := make(map[int64]bool, len(admins))
	for id, ok := range admins {
		if ok {
			allowList[id] = true
		}
	}

	s := &Service{
		users:       database.NewUserRepository(db),
		events:      database.NewEventRepository(db),
		stats:       database.NewStatisticsRepository(db),
		sender:      sender,
		admins:      allowList,
		logger:      logger,
		now:         time.Now,
		sendTimeout: 10 * time.Second,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// IsAdmin checks the static allow-list
func (s *Service) IsAdmin(userID int64) bool {
	return s.admins[userID]
}

// Register records the user on first contact. A known user is returned unchanged.
func (s *Service) Register(ctx context.Context, userID int64) (*models.User, error) {
	if err := s.users.Create(ctx, userID, "", s.IsAdmin(userID)); err != nil {
		return nil, err
	}
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, ErrNotFound
	}
	return user, nil
}

// SetGroup validates and stores the user's group, returning the stored name
func (s *Service) SetGroup(ctx context.Context, userID int64, group string) (string, error) {
	group, err := ValidateGroupName(group)
	if err != nil {
		return "", err
	}
	if err := s.users.Create(ctx, userID, "", s.IsAdmin(userID)); err != nil {
		return "", err
	}
	if _, err := s.users.SetGroup(ctx, userID, group); err != nil {
		return "", err
	}
	return group, nil
}

// SetName validates and stores the user's full name
func (s *Service) SetName(ctx context.Context, userID int64, name string) (string, error) {
	name, err := ValidateFullName(name)
	if err != nil {
		return "", err
	}
	if err := s.users.Create(ctx, userID, "", s.IsAdmin(userID)); err != nil {
		return "", err
	}
	if _, err := s.users.SetName(ctx, userID, name); err != nil {
		return "", err
	}
	return name, nil
}

// ToggleNotifications flips the reminder flag and returns the new value
func (s *Service) ToggleNotifications(ctx context.Context, userID int64) (bool, error) {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return false, err
	}
	if user == nil {
		return false, ErrNotFound
	}
	return s.SetNotifications(ctx, userID, !user.NotificationsEnabled)
}

// SetNotifications switches reminders on or off explicitly
func (s *Service) SetNotifications(ctx context.Context, userID int64, enabled bool) (bool, error) {
	ok, err := s.users.SetNotifications(ctx, userID, enabled)
	if err != nil {
		return false, err
	}
	if !ok {
		return false, ErrNotFound
	}
	return enabled, nil
}

// GroupSchedule returns the timetable of the user's group.
// An empty date means the whole timetable.
func (s *Service) GroupSchedule(ctx context.Context, userID int64, date string) (string, []models.Event, error) {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return "", nil, err
	}
	if user == nil || !user.HasGroup() {
		return "", nil, ErrNoGroup
	}

	if date != "" {
		if date, err = ParseDate(date); err != nil {
			return "", nil, err
		}
	}

	events, err := s.events.GetByGroup(ctx, user.GroupName.String, date)
	if err != nil {
		return "", nil, err
	}
	return user.GroupName.String, events, nil
}

// Today returns the user's group events for the current date
func (s *Service) Today(ctx context.Context, userID int64) (string, []models.Event, error) {
	return s.GroupSchedule(ctx, userID, s.now().Format(DateLayout))
}

// AddEvent validates the input and upserts the event.
// Re-adding an identical event returns the existing row.
func (s *Service) AddEvent(ctx context.Context, actorID int64, in EventInput) (models.Event, error) {
	if !s.IsAdmin(actorID) {
		return models.Event{}, ErrForbidden
	}
	event, err := validateEvent(in)
	if err != nil {
		return models.Event{}, err
	}

	id, err := s.events.Upsert(ctx, event)
	if err != nil {
		return models.Event{}, err
	}
	event.ID = id

	s.logger.Info("event saved", "event_id", id, "group", event.GroupName, "date", event.Date, "time", event.Time, "admin_id", actorID)
	return event, nil
}

// EditEvent rewrites every field of the event with the given ID
func (s *Service) EditEvent(ctx context.Context, actorID int64, rawID string, in EventInput) (models.Event, error) {
	if !s.IsAdmin(actorID) {
		return models.Event{}, ErrForbidden
	}
	id, err := ParseEventID(rawID)
	if err != nil {
		return models.Event{}, err
	}
	event, err := validateEvent(in)
	if err != nil {
		return models.Event{}, err
	}
	event.ID = id

	updated, err := s.events.Update(ctx, event)
	if errors.Is(err, database.ErrDuplicateEvent) {
		return models.Event{}, invalid("event", "Така подія вже існує")
	}
	if err != nil {
		return models.Event{}, err
	}
	if !updated {
		return models.Event{}, ErrNotFound
	}

	s.logger.Info("event edited", "event_id", id, "group", event.GroupName, "admin_id", actorID)
	return event, nil
}

// DeleteEvent removes the event. Deleting an absent ID yields ErrNotFound.
func (s *Service) DeleteEvent(ctx context.Context, actorID int64, rawID string) (int64, error) {
	if !s.IsAdmin(actorID) {
		return 0, ErrForbidden
	}
	id, err := ParseEventID(rawID)
	if err != nil {
		return 0, err
	}

	removed, err := s.events.Delete(ctx, id)
	if err != nil {
		return 0, err
	}
	if !removed {
		return id, ErrNotFound
	}

	s.logger.Info("event deleted", "event_id", id, "admin_id", actorID)
	return id, nil
}

// AllEvents lists every event ordered by date and time
func (s *Service) AllEvents(ctx context.Context, actorID int64) ([]models.Event, error) {
	if !s.IsAdmin(actorID) {
		return nil, ErrForbidden
	}
	return s.events.GetAll(ctx)
}

// ListStudents lists every registered user ordered by group and name
func (s *Service) ListStudents(ctx context.Context, actorID int64) ([]models.User, error) {
	if !s.IsAdmin(actorID) {
		return nil, ErrForbidden
	}
	return s.users.GetAll(ctx)
}

// Stats returns bot-wide counters
func (s *Service) Stats(ctx context.Context, actorID int64) (*models.Statistics, error) {
	if !s.IsAdmin(actorID) {
		return nil, ErrForbidden
	}
	return s.stats.Get(ctx)
}

// NotifyGroup sends text to every opted-in member of the group and returns how
// many deliveries succeeded. A failed delivery is logged and skipped.
func (s *Service) NotifyGroup(ctx context.Context, actorID int64, group, text string) (int, error) {
	if !s.IsAdmin(actorID) {
		return 0, ErrForbidden
	}
	group = strings.TrimSpace(group)
	text = strings.TrimSpace(text)
	if text == "" {
		return 0, invalid("text", "Повідомлення не може бути порожнім")
	}

	users, err := s.users.GetNotifiableByGroup(ctx, group)
	if err != nil {
		return 0, err
	}
	if len(users) == 0 {
		return 0, ErrNotFound
	}

	message := fmt.Sprintf("📢 Повідомлення для групи %s:\n\n%s", group, text)
	return s.broadcast(ctx, users, message, "group", group), nil
}

// NotifyStudent sends text to every user whose full name contains name
func (s *Service) NotifyStudent(ctx context.Context, actorID int64, name, text string) (int, error) {
	if !s.IsAdmin(actorID) {
		return 0, ErrForbidden
	}
	name = strings.TrimSpace(name)
	text = strings.TrimSpace(text)
	if name == "" {
		return 0, invalid("name", "Вкажіть ім'я студента")
	}
	if text == "" {
		return 0, invalid("text", "Повідомлення не може бути порожнім")
	}

	users, err := s.users.SearchByName(ctx, name)
	if err != nil {
		return 0, err
	}
	if len(users) == 0 {
		return 0, ErrNotFound
	}

	message := fmt.Sprintf("📢 Персональне повідомлення від адміністратора:\n\n%s", text)
	return s.broadcast(ctx, users, message, "name", name), nil
}

func (s *Service) broadcast(ctx context.Context, users []models.User, message string, attrs ...any) int {
	sent := 0
	for _, user := range users {
		sendCtx, cancel := context.WithTimeout(ctx, s.sendTimeout)
		err := s.sender.SendMessage(sendCtx, user.ID, message)
		cancel()
		if err != nil {
			s.logger.Error("failed to deliver admin message", append([]any{"chat_id", user.ID, "error", err}, attrs...)...)
			continue
		}
		sent++
	}
	return sent
}
