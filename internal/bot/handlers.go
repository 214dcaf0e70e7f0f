package bot

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/example/schedulebot/internal/excel"
	"github.com/example/schedulebot/internal/schedule"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

const studentHelp = "📚 Список всіх команд студента:\n\n" +
	"🏫 Встановити групу:\n/setgroup <назва_групи>\nПриклад: /setgroup КС-21\n\n" +
	"👤 Встановити ім'я:\n/setname <Ім'я Прізвище>\nПриклад: /setname Іван Іванов\n\n" +
	"📅 Розклад на сьогодні:\n/today\n\n" +
	"📋 Повний розклад:\n/schedule або /schedule <YYYY-MM-DD>\n\n" +
	"🔔 Керування сповіщеннями:\n/notifications, /notifications on, /notifications off\n\n" +
	"ℹ️ Довідка:\n/help, /commands\n\n" +
	"🚀 Початок роботи:\n/start"

const adminHelp = "👨‍💼 Список всіх адмін-команд:\n\n" +
	"📤 Робота з розкладом:\n" +
	"/import_schedule - завантажити розклад з файлу .xlsx або .csv\n" +
	"/add_event <дата> <час> <назва> <аудиторія> <група> - додати подію\n" +
	"/edit_event <id> <дата> <час> <назва> <аудиторія> <група> - редагувати подію\n" +
	"/delete_event <id> - видалити подію\n" +
	"/all_events - переглянути всі події\n\n" +
	"📢 Повідомлення:\n" +
	"/notify_group - відправити повідомлення всій групі\n" +
	"/notify_student <Ім'я> <Прізвище> <текст> - повідомлення студенту\n" +
	"/list_students - список всіх студентів\n\n" +
	"📊 Статистика:\n/stats\n\n" +
	"/cancel - скасувати поточну дію"

const (
	usageAddEvent      = "❌ Неправильний формат!\nФормат: /add_event <дата> <час> <назва> <аудиторія> <група>\nПриклад: /add_event 2025-09-16 10:00 Алгебра 301 КС-21"
	usageEditEvent     = "❌ Неправильний формат!\nФормат: /edit_event <id> <дата> <час> <назва> <аудиторія> <група>"
	usageDeleteEvent   = "❌ Неправильний формат!\nФормат: /delete_event <id>"
	usageNotifyStudent = "❌ Неправильний формат!\nФормат: /notify_student <Ім'я> <Прізвище> <повідомлення>\nПриклад: /notify_student Іван Іванов Прийди завтра на пару"
	usageNotifications = "❌ Формат: /notifications, /notifications on або /notifications off"
	msgStartFirst      = "❌ Спочатку запустіть бота командою /start"
)

// handleCommand dispatches a bot command. Any new command ends a pending conversation.
func (b *Bot) handleCommand(ctx context.Context, message *tgbotapi.Message) error {
	command := message.Command()
	args := message.CommandArguments()
	userID := message.From.ID
	chatID := message.Chat.ID

	b.states.clear(userID)
	b.logger.Debug("command received", "command", command, "user_id", userID)

	switch command {
	case "start":
		return b.handleStart(ctx, message)
	case "help", "commands":
		return b.handleHelp(ctx, userID, chatID)
	case "setgroup":
		return b.handleSetGroup(ctx, userID, chatID, args)
	case "setname":
		return b.handleSetName(ctx, userID, chatID, args)
	case "schedule":
		return b.handleSchedule(ctx, userID, chatID, args)
	case "today":
		return b.handleToday(ctx, userID, chatID)
	case "notifications":
		return b.handleNotifications(ctx, userID, chatID, args)
	case "admin_help", "admin_commands":
		return b.handleAdminHelp(ctx, userID, chatID)
	case "add_event":
		return b.handleAddEvent(ctx, userID, chatID, args)
	case "edit_event":
		return b.handleEditEvent(ctx, userID, chatID, args)
	case "delete_event":
		return b.handleDeleteEvent(ctx, userID, chatID, args)
	case "all_events":
		return b.handleAllEvents(ctx, userID, chatID)
	case "notify_group":
		return b.handleNotifyGroup(ctx, userID, chatID, args)
	case "notify_student":
		return b.handleNotifyStudent(ctx, userID, chatID, args)
	case "list_students":
		return b.handleListStudents(ctx, userID, chatID)
	case "stats":
		return b.handleStats(ctx, userID, chatID)
	case "import_schedule", "upload_schedule":
		return b.handleImportSchedule(ctx, userID, chatID)
	case "cancel":
		// state was cleared above
		b.reply(ctx, chatID, "❎ Дію скасовано")
		return nil
	default:
		b.reply(ctx, chatID, "❓ Невідома команда. Використовуйте /help")
		return nil
	}
}

func (b *Bot) handleStart(ctx context.Context, message *tgbotapi.Message) error {
	user, err := b.service.Register(ctx, message.From.ID)
	if err != nil {
		return fmt.Errorf("failed to register user: %w", err)
	}

	name := message.From.UserName
	if name == "" {
		name = message.From.FirstName
	}

	text := fmt.Sprintf("👋 Вітаю, %s!\n\n📚 Я бот для відстеження розкладу занять\n\n", name) + studentHelp
	if user.IsAdmin {
		text += "\n\n👨‍💼 Ви також адміністратор!\nДоступні адмін-команди: /admin_help або /admin_commands"
	}

	b.reply(ctx, message.Chat.ID, text)
	return nil
}

func (b *Bot) handleHelp(ctx context.Context, userID, chatID int64) error {
	text := studentHelp
	if b.service.IsAdmin(userID) {
		text += "\n\n👨‍💼 Адмін-команди:\n/admin_help - довідка адміністратора\n/admin_commands - список адмін-команд"
	}
	b.reply(ctx, chatID, text)
	return nil
}

func (b *Bot) handleSetGroup(ctx context.Context, userID, chatID int64, args string) error {
	if strings.TrimSpace(args) == "" {
		b.reply(ctx, chatID, "❌ Будь ласка, вкажіть назву групи!\nПриклад: /setgroup КС-21")
		return nil
	}

	group, err := b.service.SetGroup(ctx, userID, args)
	if err != nil {
		return err
	}
	b.reply(ctx, chatID, fmt.Sprintf("✅ Групу встановлено: %s", group))
	return nil
}

func (b *Bot) handleSetName(ctx context.Context, userID, chatID int64, args string) error {
	if strings.TrimSpace(args) == "" {
		b.reply(ctx, chatID, "❌ Будь ласка, вкажіть ім'я та прізвище!\nПриклад: /setname Іван Іванов")
		return nil
	}

	name, err := b.service.SetName(ctx, userID, args)
	if err != nil {
		return err
	}
	b.reply(ctx, chatID, fmt.Sprintf("✅ Ім'я встановлено: %s", name))
	return nil
}

func (b *Bot) handleSchedule(ctx context.Context, userID, chatID int64, args string) error {
	date := strings.TrimSpace(args)

	group, events, err := b.service.GroupSchedule(ctx, userID, date)
	if err != nil {
		return err
	}

	switch {
	case len(events) == 0 && date == "":
		b.reply(ctx, chatID, fmt.Sprintf("📭 Для групи %s немає запланованих подій", group))
	case len(events) == 0:
		b.reply(ctx, chatID, fmt.Sprintf("📭 На %s для %s немає подій", displayDate(date), group))
	case date == "":
		b.reply(ctx, chatID, formatGroupSchedule(group, events))
	default:
		b.reply(ctx, chatID, formatDaySchedule(fmt.Sprintf("📅 Розклад на %s для %s:", events[0].Date, group), events))
	}
	return nil
}

// displayDate canonicalises a date the user typed for display
func displayDate(date string) string {
	if d, err := schedule.ParseDate(date); err == nil {
		return d
	}
	return date
}

func (b *Bot) handleToday(ctx context.Context, userID, chatID int64) error {
	group, events, err := b.service.Today(ctx, userID)
	if err != nil {
		return err
	}

	if len(events) == 0 {
		b.reply(ctx, chatID, fmt.Sprintf("📭 На сьогодні для %s немає подій", group))
		return nil
	}
	b.reply(ctx, chatID, formatDaySchedule(fmt.Sprintf("📅 Розклад на сьогодні для %s:", group), events))
	return nil
}

func (b *Bot) handleNotifications(ctx context.Context, userID, chatID int64, args string) error {
	var (
		enabled bool
		err     error
	)

	switch strings.ToLower(strings.TrimSpace(args)) {
	case "":
		enabled, err = b.service.ToggleNotifications(ctx, userID)
	case "on", "увімк", "увімкнути":
		enabled, err = b.service.SetNotifications(ctx, userID, true)
	case "off", "вимк", "вимкнути":
		enabled, err = b.service.SetNotifications(ctx, userID, false)
	default:
		b.reply(ctx, chatID, usageNotifications)
		return nil
	}

	if errors.Is(err, schedule.ErrNotFound) {
		b.reply(ctx, chatID, msgStartFirst)
		return nil
	}
	if err != nil {
		return err
	}

	if enabled {
		b.reply(ctx, chatID, "🔔 Сповіщення увімкнено!")
	} else {
		b.reply(ctx, chatID, "🔕 Сповіщення вимкнено!")
	}
	return nil
}

func (b *Bot) handleAdminHelp(ctx context.Context, userID, chatID int64) error {
	if !b.service.IsAdmin(userID) {
		return schedule.ErrForbidden
	}
	b.reply(ctx, chatID, adminHelp)
	return nil
}

func (b *Bot) handleAddEvent(ctx context.Context, userID, chatID int64, args string) error {
	if !b.service.IsAdmin(userID) {
		return schedule.ErrForbidden
	}

	words, group := splitArgs(args, 4)
	if len(words) < 4 || group == "" {
		b.reply(ctx, chatID, usageAddEvent)
		return nil
	}

	event, err := b.service.AddEvent(ctx, userID, schedule.EventInput{
		Date:  words[0],
		Time:  words[1],
		Title: words[2],
		Room:  words[3],
		Group: group,
	})
	if err != nil {
		return err
	}

	b.reply(ctx, chatID, fmt.Sprintf("✅ Подію #%d додано:\n%s", event.ID, formatEvent(event)))
	return nil
}

func (b *Bot) handleEditEvent(ctx context.Context, userID, chatID int64, args string) error {
	if !b.service.IsAdmin(userID) {
		return schedule.ErrForbidden
	}

	words, group := splitArgs(args, 5)
	if len(words) < 5 || group == "" {
		b.reply(ctx, chatID, usageEditEvent)
		return nil
	}

	event, err := b.service.EditEvent(ctx, userID, words[0], schedule.EventInput{
		Date:  words[1],
		Time:  words[2],
		Title: words[3],
		Room:  words[4],
		Group: group,
	})
	if errors.Is(err, schedule.ErrNotFound) {
		b.reply(ctx, chatID, fmt.Sprintf("❌ Подію #%s не знайдено", words[0]))
		return nil
	}
	if err != nil {
		return err
	}

	b.reply(ctx, chatID, fmt.Sprintf("✅ Подію #%d відредаговано:\n%s", event.ID, formatEvent(event)))
	return nil
}

func (b *Bot) handleDeleteEvent(ctx context.Context, userID, chatID int64, args string) error {
	if !b.service.IsAdmin(userID) {
		return schedule.ErrForbidden
	}

	fields := strings.Fields(args)
	if len(fields) != 1 {
		b.reply(ctx, chatID, usageDeleteEvent)
		return nil
	}

	id, err := b.service.DeleteEvent(ctx, userID, fields[0])
	if errors.Is(err, schedule.ErrNotFound) {
		b.reply(ctx, chatID, fmt.Sprintf("❌ Подію #%d не знайдено", id))
		return nil
	}
	if err != nil {
		return err
	}

	b.reply(ctx, chatID, fmt.Sprintf("✅ Подію #%d видалено", id))
	return nil
}

func (b *Bot) handleAllEvents(ctx context.Context, userID, chatID int64) error {
	events, err := b.service.AllEvents(ctx, userID)
	if err != nil {
		return err
	}

	if len(events) == 0 {
		b.reply(ctx, chatID, "📭 Немає жодної події")
		return nil
	}
	b.reply(ctx, chatID, formatAllEvents(events))
	return nil
}

func (b *Bot) handleNotifyGroup(ctx context.Context, userID, chatID int64, args string) error {
	if !b.service.IsAdmin(userID) {
		return schedule.ErrForbidden
	}

	if group := strings.TrimSpace(args); group != "" {
		b.states.set(userID, conversation{step: stepNotifyGroupText, group: group})
		b.reply(ctx, chatID, "💬 Введіть повідомлення для групи:")
		return nil
	}

	b.states.set(userID, conversation{step: stepNotifyGroupName})
	b.reply(ctx, chatID, "👥 Введіть назву групи для повідомлення:")
	return nil
}

func (b *Bot) handleNotifyStudent(ctx context.Context, userID, chatID int64, args string) error {
	if !b.service.IsAdmin(userID) {
		return schedule.ErrForbidden
	}

	words, text := splitArgs(args, 2)
	if len(words) < 2 || text == "" {
		b.reply(ctx, chatID, usageNotifyStudent)
		return nil
	}
	name := words[0] + " " + words[1]

	sent, err := b.service.NotifyStudent(ctx, userID, name, text)
	if errors.Is(err, schedule.ErrNotFound) {
		b.reply(ctx, chatID, fmt.Sprintf("❌ Студента '%s' не знайдено", name))
		return nil
	}
	if err != nil {
		return err
	}

	b.reply(ctx, chatID, fmt.Sprintf("✅ Повідомлення надіслано %d студентам", sent))
	return nil
}

func (b *Bot) handleListStudents(ctx context.Context, userID, chatID int64) error {
	users, err := b.service.ListStudents(ctx, userID)
	if err != nil {
		return err
	}

	if len(users) == 0 {
		b.reply(ctx, chatID, "📭 Немає зареєстрованих студентів")
		return nil
	}
	b.reply(ctx, chatID, formatStudents(users))
	return nil
}

func (b *Bot) handleStats(ctx context.Context, userID, chatID int64) error {
	stats, err := b.service.Stats(ctx, userID)
	if err != nil {
		return err
	}
	b.reply(ctx, chatID, formatStats(stats))
	return nil
}

func (b *Bot) handleImportSchedule(ctx context.Context, userID, chatID int64) error {
	if !b.service.IsAdmin(userID) {
		return schedule.ErrForbidden
	}

	b.states.set(userID, conversation{step: stepImportFile})
	b.reply(ctx, chatID, "📎 Надішліть файл .xlsx або .csv з колонками: дата, час, назва, аудиторія, група.\n"+
		"Перший рядок вважається заголовком. /cancel - скасувати")
	return nil
}

// handleText continues a pending conversation
func (b *Bot) handleText(ctx context.Context, message *tgbotapi.Message) error {
	userID := message.From.ID
	chatID := message.Chat.ID
	text := strings.TrimSpace(message.Text)

	conv, ok := b.states.get(userID)
	if !ok {
		b.reply(ctx, chatID, "Використовуйте /help для списку команд")
		return nil
	}

	switch conv.step {
	case stepNotifyGroupName:
		if text == "" {
			b.reply(ctx, chatID, "👥 Введіть назву групи для повідомлення:")
			return nil
		}
		b.states.set(userID, conversation{step: stepNotifyGroupText, group: text})
		b.reply(ctx, chatID, "💬 Введіть повідомлення для групи:")
		return nil

	case stepNotifyGroupText:
		b.states.clear(userID)

		sent, err := b.service.NotifyGroup(ctx, userID, conv.group, message.Text)
		if errors.Is(err, schedule.ErrNotFound) {
			b.reply(ctx, chatID, fmt.Sprintf("❌ Не знайдено студентів у групі %s", conv.group))
			return nil
		}
		if err != nil {
			return err
		}
		b.reply(ctx, chatID, fmt.Sprintf("✅ Повідомлення відправлено %d студентам групи %s", sent, conv.group))
		return nil

	case stepImportFile:
		b.reply(ctx, chatID, "📎 Очікую файл .xlsx або .csv. /cancel - скасувати")
		return nil
	}

	return nil
}

// handleDocument imports an uploaded timetable
func (b *Bot) handleDocument(ctx context.Context, message *tgbotapi.Message) error {
	userID := message.From.ID
	chatID := message.Chat.ID
	doc := message.Document

	conv, ok := b.states.get(userID)
	if !ok || conv.step != stepImportFile {
		b.reply(ctx, chatID, "Щоб імпортувати розклад, спочатку надішліть /import_schedule")
		return nil
	}
	if !excel.Supported(doc.FileName) {
		return excel.ErrUnsupportedFormat
	}
	if b.config.MaxImportSize > 0 && doc.FileSize > b.config.MaxImportSize {
		b.reply(ctx, chatID, "❌ Файл занадто великий")
		return nil
	}
	b.states.clear(userID)

	body, err := b.downloadFile(ctx, doc.FileID)
	if err != nil {
		return err
	}
	defer body.Close()

	var r io.Reader = body
	if b.config.MaxImportSize > 0 {
		r = io.LimitReader(body, int64(b.config.MaxImportSize))
	}

	result, err := b.importer.Import(ctx, userID, doc.FileName, r)
	if err != nil {
		return err
	}
	b.reply(ctx, chatID, formatImportResult(result))
	return nil
}
