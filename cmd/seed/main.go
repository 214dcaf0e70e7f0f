// Command seed fills the database with synthetic students and a weekly timetable.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/example/schedulebot/internal/database"
	"github.com/example/schedulebot/pkg/models"
	"github.com/joho/godotenv"
)

var (
	subjects = []string{"Алгебра", "Прога", "АК", "БД", "Фізра"}
	rooms    = []string{"101", "201", "301", "401", "501"}
	slots    = []string{"08:30", "10:10", "11:50", "13:30", "15:10"}
)

func main() {
	_ = godotenv.Load()

	groups := flag.String("groups", "КС-21,КС-22,КС-23", "comma separated group names")
	usersPerGroup := flag.Int("users", 50, "students per group")
	days := flag.Int("days", 7, "number of days to fill, starting today")
	databaseURL := flag.String("database", os.Getenv("DATABASE_URL"), "database URL (defaults to DATABASE_URL)")
	flag.Parse()

	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))

	url := *databaseURL
	if url == "" {
		url = "sqlite:///schedule.db"
	}

	db, err := database.Open(url)
	if err != nil {
		logger.Error("failed to open database", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	if err := seed(context.Background(), db, splitGroups(*groups), *usersPerGroup, *days, time.Now()); err != nil {
		logger.Error("seed failed", "error", err)
		os.Exit(1)
	}
	logger.Info("seed done", "groups", *groups, "users_per_group", *usersPerGroup, "days", *days)
}

func splitGroups(s string) []string {
	var groups []string
	for _, g := range strings.Split(s, ",") {
		if g = strings.TrimSpace(g); g != "" {
			groups = append(groups, g)
		}
	}
	return groups
}

func seed(ctx context.Context, db *database.DB, groups []string, usersPerGroup, days int, start time.Time) error {
	users := database.NewUserRepository(db)
	events := database.NewEventRepository(db)

	for gi, group := range groups {
		for i := 0; i < usersPerGroup; i++ {
			id := int64(10_000_000 + gi*100_000 + i)
			if err := users.Create(ctx, id, group, false); err != nil {
				return fmt.Errorf("failed to create user %d: %w", id, err)
			}
		}
	}

	for d := 0; d < days; d++ {
		day := start.AddDate(0, 0, d).Format("2006-01-02")
		for _, group := range groups {
			for i, slot := range slots {
				event := models.Event{Date: day, Time: slot, Title: subjects[i], Room: rooms[i], GroupName: group}
				if _, err := events.Upsert(ctx, event); err != nil {
					return fmt.Errorf("failed to add event: %w", err)
				}
			}
		}
	}
	return nil
}
