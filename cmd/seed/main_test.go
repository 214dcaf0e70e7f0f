package main

import (
	"context"
	"testing"
	"time"

	"github.com/example/schedulebot/internal/database"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSeed(t *testing.T) {
	db := database.SetupTestDB(t)
	ctx := context.Background()
	start := time.Date(2025, 9, 15, 12, 0, 0, 0, time.Local)

	require.NoError(t, seed(ctx, db, []string{"КС-21", "КС-22"}, 3, 2, start))
	// seeding twice leaves the same data
	require.NoError(t, seed(ctx, db, []string{"КС-21", "КС-22"}, 3, 2, start))

	stats, err := database.NewStatisticsRepository(db).Get(ctx)
	require.NoError(t, err)
	assert.Equal(t, 6, stats.TotalUsers)
	assert.Equal(t, 2, stats.Groups)
	assert.Equal(t, 2*2*5, stats.Events)

	events, err := database.NewEventRepository(db).GetByGroup(ctx, "КС-22", "2025-09-16")
	require.NoError(t, err)
	require.Len(t, events, 5)
	assert.Equal(t, "08:30", events[0].Time)
}

func TestSplitGroups(t *testing.T) {
	assert.Equal(t, []string{"A", "B"}, splitGroups(" A, ,B,"))
}
