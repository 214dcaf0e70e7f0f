package bot

import (
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/example/schedulebot/internal/excel"
	"github.com/example/schedulebot/pkg/models"
)

// splitMessage cuts text into parts of at most limit characters, breaking
// after a newline where possible. Empty text yields no parts.
func splitMessage(text string, limit int) []string {
	if text == "" {
		return nil
	}
	if limit <= 0 || utf8.RuneCountInString(text) <= limit {
		return []string{text}
	}

	var (
		parts []string
		cur   strings.Builder
		size  int
	)
	flush := func() {
		if cur.Len() > 0 {
			parts = append(parts, cur.String())
			cur.Reset()
			size = 0
		}
	}

	for _, line := range strings.SplitAfter(text, "\n") {
		n := utf8.RuneCountInString(line)
		if size+n > limit {
			flush()
		}
		for n > limit {
			runes := []rune(line)
			parts = append(parts, string(runes[:limit]))
			line = string(runes[limit:])
			n -= limit
		}
		cur.WriteString(line)
		size += n
	}
	flush()
	return parts
}

// splitArgs returns the first n whitespace separated words of s and the
// untouched remainder.
func splitArgs(s string, n int) ([]string, string) {
	words := make([]string, 0, n)
	s = strings.TrimSpace(s)
	for len(words) < n && s != "" {
		i := strings.IndexFunc(s, unicode.IsSpace)
		if i < 0 {
			words = append(words, s)
			s = ""
			break
		}
		words = append(words, s[:i])
		s = strings.TrimSpace(s[i:])
	}
	return words, s
}

func formatEventLine(e models.Event) string {
	return fmt.Sprintf("⏰ %s: %s (ауд. %s)\n", e.Time, e.Title, e.Room)
}

func formatGroupSchedule(group string, events []models.Event) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "📋 Розклад для %s:\n", group)

	currentDate := ""
	for _, e := range events {
		if e.Date != currentDate {
			currentDate = e.Date
			fmt.Fprintf(&sb, "\n📅 %s:\n", currentDate)
		}
		sb.WriteString(formatEventLine(e))
	}
	return sb.String()
}

func formatDaySchedule(title string, events []models.Event) string {
	var sb strings.Builder
	sb.WriteString(title + "\n\n")
	for _, e := range events {
		sb.WriteString(formatEventLine(e))
	}
	return sb.String()
}

func formatAllEvents(events []models.Event) string {
	var sb strings.Builder
	sb.WriteString("📋 Всі події:\n\n")
	for _, e := range events {
		fmt.Fprintf(&sb, "#%d %s %s: %s (ауд. %s) для %s\n", e.ID, e.Date, e.Time, e.Title, e.Room, e.GroupName)
	}
	return sb.String()
}

func formatEvent(e models.Event) string {
	return fmt.Sprintf("📝 %s\n⏰ %s %s\n👥 %s\n🏫 Ауд. %s", e.Title, e.Time, e.Date, e.GroupName, e.Room)
}

func formatStudents(users []models.User) string {
	var sb strings.Builder
	sb.WriteString("👥 Список всіх студентів:\n")

	first := true
	currentGroup := ""
	for _, u := range users {
		group := u.GroupName.String
		if first || group != currentGroup {
			first = false
			currentGroup = group
			if group == "" {
				group = "Без групи"
			}
			fmt.Fprintf(&sb, "\n🏫 Група %s:\n", group)
		}

		name := u.FullName.String
		if name == "" {
			name = "Без імені"
		}
		fmt.Fprintf(&sb, "👤 %s (ID: %d)\n", name, u.ID)
	}
	return sb.String()
}

func formatStats(s *models.Statistics) string {
	return fmt.Sprintf("📊 Статистика бота:\n\n"+
		"👥 Загалом користувачів: %d\n"+
		"👨‍💼 Адміністраторів: %d\n"+
		"🔔 Сповіщення увімкнено: %d\n"+
		"🏫 Груп: %d\n"+
		"📅 Подій у розкладі: %d",
		s.TotalUsers, s.Admins, s.NotificationsEnabled, s.Groups, s.Events)
}

func formatImportResult(r *excel.ImportResult) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "📥 Імпорт завершено\n\nОброблено рядків: %d\nДодано подій: %d\n", r.TotalProcessed, r.Imported)
	if len(r.Errors) > 0 {
		fmt.Fprintf(&sb, "\n⚠️ Помилки (%d):\n", len(r.Errors))
		for _, e := range r.Errors {
			sb.WriteString(e + "\n")
		}
	}
	return sb.String()
}
