package database

import (
	"context"
	"fmt"

	"github.com/example/schedulebot/pkg/models"
)

// StatisticsRepository computes bot-wide counters
type StatisticsRepository struct {
	db *DB
}

// NewStatisticsRepository creates a new repository instance
func NewStatisticsRepository(db *DB) *StatisticsRepository {
	return &StatisticsRepository{db: db}
}

// Get returns user and event counters in one round trip
func (r *StatisticsRepository) Get(ctx context.Context) (*models.Statistics, error) {
	query := r.db.Rebind(`
		SELECT
			(SELECT COUNT(*) FROM users) AS total_users,
			(SELECT COUNT(*) FROM users WHERE is_admin = ?) AS admins,
			(SELECT COUNT(*) FROM users WHERE notifications_enabled = ?) AS notifications_enabled,
			(SELECT COUNT(DISTINCT group_name) FROM users WHERE group_name IS NOT NULL AND group_name <> '') AS groups_count,
			(SELECT COUNT(*) FROM events) AS events
	`)

	var stats models.Statistics
	if err := r.db.GetContext(ctx, &stats, query, true, true); err != nil {
		return nil, fmt.Errorf("failed to get statistics: %w", err)
	}
	return &stats, nil
}
