package schedule

import (
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/example/schedulebot/pkg/models"
)

const (
	// DateLayout is the canonical stored form of event dates
	DateLayout = "2006-01-02"
	// TimeLayout is the canonical stored form of event start times
	TimeLayout = "15:04"

	MaxGroupNameLength = 20
	MinFullNameLength  = 3
)

// EventInput is an event as typed by an admin, before validation
type EventInput struct {
	Date  string
	Time  string
	Title string
	Room  string
	Group string
}

// ParseDate validates a YYYY-MM-DD date and returns it in canonical form
func ParseDate(value string) (string, error) {
	d, err := time.Parse(DateLayout, strings.TrimSpace(value))
	if err != nil {
		return "", invalid("date", "Неправильний формат дати! Використовуйте YYYY-MM-DD")
	}
	return d.Format(DateLayout), nil
}

// ParseTime validates an HH:MM time and returns it zero-padded
func ParseTime(value string) (string, error) {
	t, err := time.Parse(TimeLayout, strings.TrimSpace(value))
	if err != nil {
		return "", invalid("time", "Неправильний формат часу! Використовуйте HH:MM")
	}
	return t.Format(TimeLayout), nil
}

// ParseEventID validates a numeric event ID
func ParseEventID(value string) (int64, error) {
	id, err := strconv.ParseInt(strings.TrimSpace(value), 10, 64)
	if err != nil || id <= 0 {
		return 0, invalid("id", "ID події має бути числом!")
	}
	return id, nil
}

// ValidateGroupName trims the name and enforces its length bounds
func ValidateGroupName(value string) (string, error) {
	group := strings.TrimSpace(value)
	if group == "" {
		return "", invalid("group", "Будь ласка, вкажіть назву групи!")
	}
	if utf8.RuneCountInString(group) > MaxGroupNameLength {
		return "", invalid("group", "Назва групи занадто довга! Максимум 20 символів")
	}
	return group, nil
}

// ValidateFullName trims the name and enforces its minimum length
func ValidateFullName(value string) (string, error) {
	name := strings.TrimSpace(value)
	if utf8.RuneCountInString(name) < MinFullNameLength {
		return "", invalid("name", "Ім'я занадто коротке!")
	}
	return name, nil
}

func validateEvent(in EventInput) (models.Event, error) {
	date, err := ParseDate(in.Date)
	if err != nil {
		return models.Event{}, err
	}
	hhmm, err := ParseTime(in.Time)
	if err != nil {
		return models.Event{}, err
	}
	title := strings.TrimSpace(in.Title)
	if title == "" {
		return models.Event{}, invalid("title", "Назва події не може бути порожньою")
	}
	group, err := ValidateGroupName(in.Group)
	if err != nil {
		return models.Event{}, err
	}

	return models.Event{
		Date:      date,
		Time:      hhmm,
		Title:     title,
		Room:      strings.TrimSpace(in.Room),
		GroupName: group,
	}, nil
}
