package models

import "database/sql"

// User represents a Telegram user of the schedule bot
type User struct {
	ID                   int64          `json:"user_id" db:"user_id"` // Telegram User ID
	GroupName            sql.NullString `json:"group_name" db:"group_name"`
	FullName             sql.NullString `json:"full_name" db:"full_name"`
	IsAdmin              bool           `json:"is_admin" db:"is_admin"`
	NotificationsEnabled bool           `json:"notifications_enabled" db:"notifications_enabled"`
}

// HasGroup reports whether the user has joined a group yet
func (u *User) HasGroup() bool {
	return u.GroupName.Valid && u.GroupName.String != ""
}
