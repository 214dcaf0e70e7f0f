package models

// Statistics holds bot-wide counters shown to admins
type Statistics struct {
	TotalUsers           int `json:"total_users" db:"total_users"`
	Admins               int `json:"admins" db:"admins"`
	NotificationsEnabled int `json:"notifications_enabled" db:"notifications_enabled"`
	Groups               int `json:"groups" db:"groups_count"`
	Events               int `json:"events" db:"events"`
}
