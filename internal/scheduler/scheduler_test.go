package scheduler_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/example/schedulebot/internal/database"
	"github.com/example/schedulebot/internal/schedule"
	"github.com/example/schedulebot/internal/scheduler"
	"github.com/example/schedulebot/mocks"
	"github.com/example/schedulebot/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

var discard = slog.New(slog.NewTextHandler(io.Discard, nil))

// testClock is a settable clock shared with the scheduler under test
type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func newClock(value string) *testClock {
	c := &testClock{}
	c.Set(value)
	return c
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Set(value string) {
	t, err := time.ParseInLocation("2006-01-02 15:04:05", value, time.Local)
	if err != nil {
		panic(err)
	}
	c.mu.Lock()
	c.now = t
	c.mu.Unlock()
}

type fixture struct {
	db        *database.DB
	events    *database.EventRepository
	users     *database.UserRepository
	transport *mocks.MockTransport
	clock     *testClock
	sched     *scheduler.Scheduler
}

func newFixture(t *testing.T, now string, catchUp time.Duration) *fixture {
	t.Helper()

	db := database.SetupTestDB(t)
	ctrl := gomock.NewController(t)
	f := &fixture{
		db:        db,
		events:    database.NewEventRepository(db),
		users:     database.NewUserRepository(db),
		transport: mocks.NewMockTransport(ctrl),
		clock:     newClock(now),
	}
	f.sched = scheduler.New(db, f.transport, discard, scheduler.Config{
		Interval:    time.Minute,
		CatchUp:     catchUp,
		SendTimeout: time.Second,
		Now:         f.clock.Now,
	})
	return f
}

func (f *fixture) addEvent(t *testing.T, date, hhmm, title, room, group string) models.Event {
	t.Helper()
	event := models.Event{Date: date, Time: hhmm, Title: title, Room: room, GroupName: group}
	id, err := f.events.Upsert(context.Background(), event)
	require.NoError(t, err)
	event.ID = id
	return event
}

func (f *fixture) addUser(t *testing.T, id int64, group string, notify bool) {
	t.Helper()
	ctx := context.Background()
	require.NoError(t, f.users.Create(ctx, id, group, false))
	_, err := f.users.SetNotifications(ctx, id, notify)
	require.NoError(t, err)
}

func TestFormatReminder(t *testing.T) {
	text := scheduler.FormatReminder(models.Event{
		Date: "2025-09-16", Time: "10:00", Title: "Math", Room: "301", GroupName: "CS-21",
	})
	assert.Equal(t, "⏰ Нагадування: Math о 10:00\n📅 Дата: 2025-09-16\n🏫 Аудиторія: 301\n👥 Група: CS-21", text)
}

func TestTick_SendsToOptedInMembersAtExactMinute(t *testing.T) {
	f := newFixture(t, "2025-09-16 10:00:27", 0)
	event := f.addEvent(t, "2025-09-16", "10:00", "Math", "301", "CS-21")
	f.addEvent(t, "2025-09-16", "10:01", "Physics", "12", "CS-21")
	f.addUser(t, 111, "CS-21", true)
	f.addUser(t, 222, "CS-21", false)
	f.addUser(t, 333, "CS-22", true)

	f.transport.EXPECT().
		SendMessage(gomock.Any(), int64(111), scheduler.FormatReminder(event)).
		Return(nil).
		Times(1)

	result, err := f.sched.Tick(context.Background())
	require.NoError(t, err)
	assert.Equal(t, scheduler.TickResult{Minutes: 1, Matched: 1, Sent: 1}, result)
}

func TestTick_NoMatchingEventSendsNothing(t *testing.T) {
	f := newFixture(t, "2025-09-16 10:00:00", 0)
	f.addEvent(t, "2025-09-16", "10:05", "Math", "301", "CS-21")
	f.addEvent(t, "2025-09-17", "10:00", "Math", "301", "CS-21")
	f.addUser(t, 111, "CS-21", true)

	result, err := f.sched.Tick(context.Background())
	require.NoError(t, err)
	assert.Zero(t, result.Matched)
	assert.Zero(t, result.Sent)
}

func TestTick_FailingRecipientDoesNotStopOthers(t *testing.T) {
	f := newFixture(t, "2025-09-16 10:00:00", 0)
	f.addEvent(t, "2025-09-16", "10:00", "Math", "301", "CS-21")
	f.addEvent(t, "2025-09-16", "10:00", "Lab", "7", "CS-22")
	f.addUser(t, 111, "CS-21", true)
	f.addUser(t, 112, "CS-21", true)
	f.addUser(t, 211, "CS-22", true)

	gomock.InOrder(
		f.transport.EXPECT().SendMessage(gomock.Any(), int64(111), gomock.Any()).
			Return(errors.New("Forbidden: bot was blocked by the user")),
		f.transport.EXPECT().SendMessage(gomock.Any(), int64(112), gomock.Any()).Return(nil),
	)
	f.transport.EXPECT().SendMessage(gomock.Any(), int64(211), gomock.Any()).Return(nil)

	result, err := f.sched.Tick(context.Background())
	require.NoError(t, err)
	assert.Equal(t, scheduler.TickResult{Minutes: 1, Matched: 2, Sent: 2, Failed: 1}, result)
}

func TestTick_SendHasDeadline(t *testing.T) {
	f := newFixture(t, "2025-09-16 10:00:00", 0)
	f.addEvent(t, "2025-09-16", "10:00", "Math", "301", "CS-21")
	f.addUser(t, 111, "CS-21", true)

	f.transport.EXPECT().SendMessage(gomock.Any(), int64(111), gomock.Any()).
		DoAndReturn(func(ctx context.Context, _ int64, _ string) error {
			_, ok := ctx.Deadline()
			assert.True(t, ok, "send context must carry a deadline")
			return nil
		})

	_, err := f.sched.Tick(context.Background())
	require.NoError(t, err)
}

func TestTick_SameMinuteIsScannedOnce(t *testing.T) {
	f := newFixture(t, "2025-09-16 10:00:05", 5*time.Minute)
	f.addEvent(t, "2025-09-16", "10:00", "Math", "301", "CS-21")
	f.addUser(t, 111, "CS-21", true)

	f.transport.EXPECT().SendMessage(gomock.Any(), int64(111), gomock.Any()).Return(nil).Times(1)

	ctx := context.Background()
	_, err := f.sched.Tick(ctx)
	require.NoError(t, err)

	f.clock.Set("2025-09-16 10:00:50")
	result, err := f.sched.Tick(ctx)
	require.NoError(t, err)
	assert.Zero(t, result.Minutes)
}

func TestTick_CatchesUpMissedMinutes(t *testing.T) {
	f := newFixture(t, "2025-09-16 09:57:00", 10*time.Minute)
	f.addEvent(t, "2025-09-16", "09:59", "Math", "301", "CS-21")
	f.addEvent(t, "2025-09-16", "09:57", "Already", "1", "CS-21")
	f.addUser(t, 111, "CS-21", true)

	ctx := context.Background()

	f.transport.EXPECT().SendMessage(gomock.Any(), int64(111), gomock.Any()).
		DoAndReturn(func(_ context.Context, _ int64, text string) error {
			assert.Contains(t, text, "Already")
			return nil
		}).Times(1)
	_, err := f.sched.Tick(ctx)
	require.NoError(t, err)

	f.clock.Set("2025-09-16 10:00:10")
	f.transport.EXPECT().SendMessage(gomock.Any(), int64(111), gomock.Any()).
		DoAndReturn(func(_ context.Context, _ int64, text string) error {
			assert.Contains(t, text, "Math")
			return nil
		}).Times(1)

	result, err := f.sched.Tick(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, result.Minutes, "09:58, 09:59 and 10:00")
}

func TestTick_CatchUpIsBoundedByWindow(t *testing.T) {
	f := newFixture(t, "2025-09-16 09:00:00", 2*time.Minute)
	f.addEvent(t, "2025-09-16", "09:30", "Stale", "1", "CS-21")
	f.addEvent(t, "2025-09-16", "09:59", "Recent", "2", "CS-21")
	f.addUser(t, 111, "CS-21", true)

	ctx := context.Background()
	_, err := f.sched.Tick(ctx)
	require.NoError(t, err)

	f.clock.Set("2025-09-16 10:00:00")
	f.transport.EXPECT().SendMessage(gomock.Any(), int64(111), gomock.Any()).
		DoAndReturn(func(_ context.Context, _ int64, text string) error {
			assert.Contains(t, text, "Recent")
			return nil
		}).Times(1)

	result, err := f.sched.Tick(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, result.Minutes)
}

func TestTick_CatchUpAcrossMidnight(t *testing.T) {
	f := newFixture(t, "2025-09-16 23:59:00", 5*time.Minute)
	f.addEvent(t, "2025-09-17", "00:00", "Night", "N", "CS-21")
	f.addUser(t, 111, "CS-21", true)

	ctx := context.Background()
	_, err := f.sched.Tick(ctx)
	require.NoError(t, err)

	f.clock.Set("2025-09-17 00:01:30")
	f.transport.EXPECT().SendMessage(gomock.Any(), int64(111), gomock.Any()).Return(nil).Times(1)

	result, err := f.sched.Tick(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, result.Matched)
}

func TestTick_ClockMovingBackwardsScansCurrentMinute(t *testing.T) {
	f := newFixture(t, "2025-09-16 10:05:00", 10*time.Minute)
	f.addEvent(t, "2025-09-16", "10:00", "Math", "301", "CS-21")
	f.addUser(t, 111, "CS-21", true)

	ctx := context.Background()
	_, err := f.sched.Tick(ctx)
	require.NoError(t, err)

	f.clock.Set("2025-09-16 10:00:00")
	f.transport.EXPECT().SendMessage(gomock.Any(), int64(111), gomock.Any()).Return(nil).Times(1)

	result, err := f.sched.Tick(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, result.Minutes)
}

func TestTick_StorageFailureAbortsTick(t *testing.T) {
	db, err := database.Open("sqlite:///:memory:")
	require.NoError(t, err)

	transport := mocks.NewMockTransport(gomock.NewController(t))
	clock := newClock("2025-09-16 10:00:00")
	sched := scheduler.New(db, transport, discard, scheduler.Config{Now: clock.Now})

	require.NoError(t, db.Close())

	result, err := sched.Tick(context.Background())
	require.Error(t, err)
	assert.Zero(t, result.Minutes)
}

func TestScheduler_StartRunsTicks(t *testing.T) {
	f := newFixture(t, "2025-09-16 10:00:00", 0)
	f.addEvent(t, "2025-09-16", "10:00", "Math", "301", "CS-21")
	f.addUser(t, 111, "CS-21", true)

	sched := scheduler.New(f.db, f.transport, discard, scheduler.Config{
		Interval: 20 * time.Millisecond,
		Now:      f.clock.Now,
	})

	delivered := make(chan struct{})
	f.transport.EXPECT().SendMessage(gomock.Any(), int64(111), gomock.Any()).
		DoAndReturn(func(context.Context, int64, string) error {
			close(delivered)
			return nil
		}).Times(1)

	require.NoError(t, sched.Start())
	defer sched.Stop()

	select {
	case <-delivered:
	case <-time.After(2 * time.Second):
		t.Fatal("reminder was not delivered")
	}
}

// Admin creates an event, a student joins the group and opts in, and the
// scheduler delivers exactly one reminder at the event's minute.
func TestEndToEnd_AdminEventReachesStudent(t *testing.T) {
	const (
		admin   int64 = 1
		student int64 = 555
	)
	ctx := context.Background()
	db := database.SetupTestDB(t)

	svc := schedule.NewService(db, nil, map[int64]bool{admin: true}, discard)
	_, err := svc.AddEvent(ctx, admin, schedule.EventInput{
		Date: "2025-09-16", Time: "10:00", Title: "Math", Room: "301", Group: "CS-21",
	})
	require.NoError(t, err)

	_, err = svc.SetGroup(ctx, student, "CS-21")
	require.NoError(t, err)
	_, err = svc.SetNotifications(ctx, student, true)
	require.NoError(t, err)

	transport := mocks.NewMockTransport(gomock.NewController(t))
	clock := newClock("2025-09-16 10:00:00")
	sched := scheduler.New(db, transport, discard, scheduler.Config{Now: clock.Now})

	transport.EXPECT().SendMessage(gomock.Any(), student, gomock.Any()).
		DoAndReturn(func(_ context.Context, _ int64, text string) error {
			assert.True(t, strings.Contains(text, "Math") && strings.Contains(text, "301"))
			return nil
		}).Times(1)

	_, err = sched.Tick(ctx)
	require.NoError(t, err)
}
