package database

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/example/schedulebot/pkg/models"
)

const eventColumns = "id, date, time, title, COALESCE(room, '') AS room, group_name"

// EventRepository handles database operations for timetable events
type EventRepository struct {
	db *DB
}

// NewEventRepository creates a new repository instance
func NewEventRepository(db *DB) *EventRepository {
	return &EventRepository{db: db}
}

// Upsert inserts the event or, when an identical (date, time, title, room, group)
// row already exists, keeps that row. It returns the row ID either way.
func (r *EventRepository) Upsert(ctx context.Context, event models.Event) (int64, error) {
	query := r.db.Rebind(`
		INSERT INTO events (date, time, title, room, group_name)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT (date, time, title, room, group_name) DO UPDATE SET title = excluded.title
		RETURNING id
	`)

	var id int64
	err := r.db.QueryRowxContext(ctx, query,
		event.Date,
		event.Time,
		event.Title,
		event.Room,
		event.GroupName,
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("failed to upsert event: %w", err)
	}
	return id, nil
}

// GetByID returns an event by ID, or nil when there is none
func (r *EventRepository) GetByID(ctx context.Context, id int64) (*models.Event, error) {
	var event models.Event
	query := r.db.Rebind("SELECT " + eventColumns + " FROM events WHERE id = ?")

	err := r.db.GetContext(ctx, &event, query, id)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get event by ID: %w", err)
	}
	return &event, nil
}

// Update rewrites every field of the event with event.ID.
// It reports false when no such row exists and ErrDuplicateEvent when the new
// values collide with another event.
func (r *EventRepository) Update(ctx context.Context, event models.Event) (bool, error) {
	query := r.db.Rebind(`
		UPDATE events SET date = ?, time = ?, title = ?, room = ?, group_name = ?
		WHERE id = ?
	`)

	result, err := r.db.ExecContext(ctx, query,
		event.Date,
		event.Time,
		event.Title,
		event.Room,
		event.GroupName,
		event.ID,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return false, ErrDuplicateEvent
		}
		return false, fmt.Errorf("failed to update event: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return rows > 0, nil
}

// Delete removes the event and reports whether a row was actually removed
func (r *EventRepository) Delete(ctx context.Context, id int64) (bool, error) {
	query := r.db.Rebind("DELETE FROM events WHERE id = ?")

	result, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return false, fmt.Errorf("failed to delete event: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return rows > 0, nil
}

// GetByGroup returns the group's events. With an empty date the whole timetable
// is returned ordered by date and time; otherwise only that day ordered by time.
func (r *EventRepository) GetByGroup(ctx context.Context, group, date string) ([]models.Event, error) {
	query := "SELECT " + eventColumns + " FROM events WHERE group_name = ? ORDER BY date, time, id"
	args := []interface{}{group}
	if date != "" {
		query = "SELECT " + eventColumns + " FROM events WHERE group_name = ? AND date = ? ORDER BY time, id"
		args = append(args, date)
	}

	return r.selectEvents(ctx, r.db.Rebind(query), args...)
}

// GetAll returns every event ordered by date and time
func (r *EventRepository) GetAll(ctx context.Context) ([]models.Event, error) {
	return r.selectEvents(ctx, "SELECT "+eventColumns+" FROM events ORDER BY date, time, id")
}

// GetByDate returns all events on the date, in no particular order
func (r *EventRepository) GetByDate(ctx context.Context, date string) ([]models.Event, error) {
	return r.selectEvents(ctx, r.db.Rebind("SELECT "+eventColumns+" FROM events WHERE date = ?"), date)
}

func (r *EventRepository) selectEvents(ctx context.Context, query string, args ...interface{}) ([]models.Event, error) {
	events := make([]models.Event, 0)
	if err := r.db.SelectContext(ctx, &events, query, args...); err != nil {
		return nil, fmt.Errorf("failed to get events: %w", err)
	}
	return events, nil
}
