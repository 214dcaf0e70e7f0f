package database

import (
	"fmt"

	"github.com/GuiaBolso/darwin"
)

var sqliteMigrations = []darwin.Migration{
	{
		Version:     1,
		Description: "create users table",
		Script: `CREATE TABLE IF NOT EXISTS users (
			user_id INTEGER PRIMARY KEY,
			group_name TEXT,
			full_name TEXT,
			is_admin BOOLEAN NOT NULL DEFAULT 0,
			notifications_enabled BOOLEAN NOT NULL DEFAULT 1
		)`,
	},
	{
		Version:     2,
		Description: "create events table",
		Script: `CREATE TABLE IF NOT EXISTS events (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			date TEXT NOT NULL,
			time TEXT NOT NULL,
			title TEXT NOT NULL,
			room TEXT NOT NULL DEFAULT '',
			group_name TEXT NOT NULL
		)`,
	},
	{
		Version:     3,
		Description: "unique natural key for events",
		Script:      `CREATE UNIQUE INDEX IF NOT EXISTS idx_events_natural_key ON events (date, time, title, room, group_name)`,
	},
	{
		Version:     4,
		Description: "index users by group",
		Script:      `CREATE INDEX IF NOT EXISTS idx_users_group ON users (group_name, notifications_enabled)`,
	},
}

var postgresMigrations = []darwin.Migration{
	{
		Version:     1,
		Description: "create users table",
		Script: `CREATE TABLE IF NOT EXISTS users (
			user_id BIGINT PRIMARY KEY,
			group_name TEXT,
			full_name TEXT,
			is_admin BOOLEAN NOT NULL DEFAULT FALSE,
			notifications_enabled BOOLEAN NOT NULL DEFAULT TRUE
		)`,
	},
	{
		Version:     2,
		Description: "create events table",
		Script: `CREATE TABLE IF NOT EXISTS events (
			id BIGSERIAL PRIMARY KEY,
			date TEXT NOT NULL,
			time TEXT NOT NULL,
			title TEXT NOT NULL,
			room TEXT NOT NULL DEFAULT '',
			group_name TEXT NOT NULL
		)`,
	},
	{
		Version:     3,
		Description: "unique natural key for events",
		Script:      `CREATE UNIQUE INDEX IF NOT EXISTS idx_events_natural_key ON events (date, time, title, room, group_name)`,
	},
	{
		Version:     4,
		Description: "index users by group",
		Script:      `CREATE INDEX IF NOT EXISTS idx_users_group ON users (group_name, notifications_enabled)`,
	},
}

// CreateSchema applies pending migrations. Running it again is a no-op.
func (db *DB) CreateSchema() error {
	var dialect darwin.Dialect = darwin.SqliteDialect{}
	migrations := sqliteMigrations
	if db.IsPostgres() {
		dialect = darwin.PostgresDialect{}
		migrations = postgresMigrations
	}

	driver := darwin.NewGenericDriver(db.DB.DB, dialect)
	if err := darwin.New(driver, migrations, nil).Migrate(); err != nil {
		return fmt.Errorf("failed to migrate schema: %w", err)
	}
	return nil
}
