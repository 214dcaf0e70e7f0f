package database

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/example/schedulebot/pkg/models"
)

const userColumns = "user_id, group_name, full_name, is_admin, notifications_enabled"

// UserRepository handles database operations for users
type UserRepository struct {
	db *DB
}

// NewUserRepository creates a new repository instance
func NewUserRepository(db *DB) *UserRepository {
	return &UserRepository{db: db}
}

// Create inserts the user if it is not known yet. An existing row is left untouched.
// An empty group is stored as NULL.
func (r *UserRepository) Create(ctx context.Context, id int64, group string, isAdmin bool) error {
	query := r.db.Rebind(`
		INSERT INTO users (user_id, group_name, is_admin, notifications_enabled)
		VALUES (?, ?, ?, ?)
		ON CONFLICT (user_id) DO NOTHING
	`)

	_, err := r.db.ExecContext(ctx, query, id, nullString(group), isAdmin, true)
	if err != nil {
		return fmt.Errorf("failed to create user: %w", err)
	}
	return nil
}

// GetByID returns a user by Telegram ID, or nil when the user is unknown
func (r *UserRepository) GetByID(ctx context.Context, id int64) (*models.User, error) {
	var user models.User
	query := r.db.Rebind("SELECT " + userColumns + " FROM users WHERE user_id = ?")

	err := r.db.GetContext(ctx, &user, query, id)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get user by ID: %w", err)
	}
	return &user, nil
}

// SetGroup changes the user's group. It reports false when the user doesn't exist.
func (r *UserRepository) SetGroup(ctx context.Context, id int64, group string) (bool, error) {
	return r.update(ctx, "group_name", nullString(group), id)
}

// SetName changes the user's full name
func (r *UserRepository) SetName(ctx context.Context, id int64, name string) (bool, error) {
	return r.update(ctx, "full_name", nullString(name), id)
}

// SetNotifications switches reminders on or off for the user
func (r *UserRepository) SetNotifications(ctx context.Context, id int64, enabled bool) (bool, error) {
	return r.update(ctx, "notifications_enabled", enabled, id)
}

func (r *UserRepository) update(ctx context.Context, column string, value interface{}, id int64) (bool, error) {
	query := r.db.Rebind("UPDATE users SET " + column + " = ? WHERE user_id = ?")

	result, err := r.db.ExecContext(ctx, query, value, id)
	if err != nil {
		return false, fmt.Errorf("failed to update user %s: %w", column, err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return rows > 0, nil
}

// GetNotifiableByGroup returns members of the group with notifications enabled.
// An unknown group yields an empty slice.
func (r *UserRepository) GetNotifiableByGroup(ctx context.Context, group string) ([]models.User, error) {
	query := r.db.Rebind("SELECT " + userColumns + " FROM users WHERE group_name = ? AND notifications_enabled = ? ORDER BY user_id")

	users := make([]models.User, 0)
	if err := r.db.SelectContext(ctx, &users, query, group, true); err != nil {
		return nil, fmt.Errorf("failed to get users for group: %w", err)
	}
	return users, nil
}

// SearchByName returns users whose full name contains fragment (case-sensitive)
func (r *UserRepository) SearchByName(ctx context.Context, fragment string) ([]models.User, error) {
	// LIKE is case-insensitive in SQLite, so match on the substring position instead
	condition := "instr(full_name, ?) > 0"
	if r.db.IsPostgres() {
		condition = "strpos(full_name, ?) > 0"
	}
	query := r.db.Rebind("SELECT " + userColumns + " FROM users WHERE full_name IS NOT NULL AND " + condition + " ORDER BY user_id")

	users := make([]models.User, 0)
	if err := r.db.SelectContext(ctx, &users, query, fragment); err != nil {
		return nil, fmt.Errorf("failed to search users by name: %w", err)
	}
	return users, nil
}

// GetAll returns every user ordered by group and then by name
func (r *UserRepository) GetAll(ctx context.Context) ([]models.User, error) {
	query := "SELECT " + userColumns + " FROM users ORDER BY COALESCE(group_name, ''), COALESCE(full_name, ''), user_id"

	users := make([]models.User, 0)
	if err := r.db.SelectContext(ctx, &users, query); err != nil {
		return nil, fmt.Errorf("failed to get users: %w", err)
	}
	return users, nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
