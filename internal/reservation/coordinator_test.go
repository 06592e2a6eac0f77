package reservation

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Leganyst/booking-core/internal/availability"
	"github.com/Leganyst/booking-core/internal/calendar"
	"github.com/Leganyst/booking-core/internal/config"
	"github.com/Leganyst/booking-core/internal/db"
	"github.com/Leganyst/booking-core/internal/model"
	"github.com/Leganyst/booking-core/internal/notify"
	"github.com/Leganyst/booking-core/internal/repository"
	"github.com/Leganyst/booking-core/internal/session"
)

type recorder struct {
	mu  sync.Mutex
	got []notify.Notification
	err error
}

func (r *recorder) Notify(_ context.Context, n notify.Notification) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.got = append(r.got, n)
	return r.err
}

func (r *recorder) kinds() []notify.Kind {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]notify.Kind, 0, len(r.got))
	for _, n := range r.got {
		out = append(out, n.Kind)
	}
	return out
}

type fixture struct {
	c        *Coordinator
	notes    *recorder
	bookings *repository.GormBookingRepository
	blocked  *repository.GormBlockedDateRepository
	weekdays *repository.GormWeekdayRepository
	events   *repository.GormEventRepository
}

type fixtureOpt func(*Options)

func newFixture(t *testing.T, today time.Time, opts ...fixtureOpt) *fixture {
	t.Helper()

	gdb, err := db.NewGormDB(&config.DBConfig{Driver: config.DriverSQLite, Path: ":memory:"})
	require.NoError(t, err)
	require.NoError(t, model.AutoMigrate(gdb))
	t.Cleanup(func() {
		if sqlDB, err := gdb.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})

	f := &fixture{
		notes:    &recorder{},
		bookings: repository.NewGormBookingRepository(gdb, 5*time.Second),
		blocked:  repository.NewGormBlockedDateRepository(gdb, 5*time.Second),
		weekdays: repository.NewGormWeekdayRepository(gdb, 5*time.Second),
		events:   repository.NewGormEventRepository(gdb, 5*time.Second),
	}
	engine := availability.NewEngine(f.blocked, f.weekdays, f.bookings, availability.Options{
		Slots: config.DefaultSlotTimes,
		Now:   func() time.Time { return today.Add(10 * time.Hour) },
	})

	o := Options{
		Admins:   []int64{900},
		Notifier: f.notes,
		Events:   f.events,
	}
	for _, opt := range opts {
		opt(&o)
	}
	f.c = NewCoordinator(engine, f.bookings, f.blocked, f.weekdays, o)
	return f
}

func reserve(f *fixture, date, slot string, user int64) (*model.Booking, error) {
	return f.c.Reserve(context.Background(), ReserveRequest{Date: date, Time: slot, UserID: user, Name: "client"})
}

func TestReserve_CapacityAndSlotScenario(t *testing.T) {
	f := newFixture(t, calendar.Date(2024, 1, 1))

	b, err := reserve(f, "2024-01-15", "10:00", 1)
	require.NoError(t, err)
	assert.Equal(t, "15.01.2024", b.Date)

	_, err = reserve(f, "2024-01-15", "10:00", 2)
	assert.ErrorIs(t, err, availability.ErrSlotTaken)

	_, err = reserve(f, "2024-01-15", "11:00", 2)
	require.NoError(t, err)

	_, err = reserve(f, "2024-01-15", "12:00", 3)
	assert.ErrorIs(t, err, availability.ErrFull)
}

func TestReserve_AcceptsDisplayFormat(t *testing.T) {
	f := newFixture(t, calendar.Date(2024, 1, 1))

	_, err := reserve(f, "15.01.2024", "10:00", 1)
	require.NoError(t, err)

	// тот же день в другом формате
	_, err = reserve(f, "2024-01-15", "10:00", 2)
	assert.ErrorIs(t, err, availability.ErrSlotTaken)
}

func TestReserve_Rejections(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, calendar.Date(2024, 1, 1))

	_, err := f.weekdays.Toggle(ctx, 5)
	require.NoError(t, err)
	_, err = f.blocked.InsertMissing(ctx, []string{"2024-01-10"})
	require.NoError(t, err)

	cases := []struct {
		name string
		date string
		slot string
		want error
	}{
		{"past", "2023-12-31", "10:00", availability.ErrOutOfRange},
		{"beyond horizon", "2025-06-01", "10:00", availability.ErrOutOfRange},
		{"blocked date", "2024-01-10", "10:00", availability.ErrBlocked},
		{"closed saturday", "2024-01-06", "10:00", availability.ErrBlocked},
		{"unknown time", "2024-01-11", "13:00", availability.ErrInvalidArgument},
		{"bad date", "2024-02-30", "10:00", availability.ErrInvalidArgument},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			_, err := reserve(f, c.date, c.slot, 1)
			assert.ErrorIs(t, err, c.want)
		})
	}

	assert.Empty(t, f.notes.kinds())
}

func TestReserve_ConcurrentSameSlotSucceedsOnce(t *testing.T) {
	f := newFixture(t, calendar.Date(2024, 1, 1))

	const workers = 8
	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		ok       int
		rejected int
	)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(user int64) {
			defer wg.Done()
			_, err := reserve(f, "2024-01-20", "14:00", user)
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				ok++
			case errors.Is(err, availability.ErrSlotTaken):
				rejected++
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}(int64(i + 1))
	}
	wg.Wait()

	assert.Equal(t, 1, ok)
	assert.Equal(t, workers-1, rejected)
}

func TestReserve_ConcurrentDayNeverOverCapacity(t *testing.T) {
	f := newFixture(t, calendar.Date(2024, 1, 1))

	var wg sync.WaitGroup
	for i, slot := range config.DefaultSlotTimes {
		wg.Add(1)
		go func(user int64, slot string) {
			defer wg.Done()
			_, err := reserve(f, "2024-01-22", slot, user)
			if err != nil && !errors.Is(err, availability.ErrFull) {
				t.Errorf("unexpected error: %v", err)
			}
		}(int64(i+1), slot)
	}
	wg.Wait()

	n, err := f.bookings.CountByDate(context.Background(), "22.01.2024")
	require.NoError(t, err)
	assert.EqualValues(t, availability.MaxBookingsPerDay, n)
}

func TestReserve_NotifiesAdminsAndAudits(t *testing.T) {
	f := newFixture(t, calendar.Date(2024, 1, 1))
	f.notes.err = errors.New("forbidden: bot was blocked by the user")

	b, err := reserve(f, "2024-01-15", "10:00", 1)
	require.NoError(t, err, "notification failure must not fail the reservation")

	require.Len(t, f.notes.got, 1)
	assert.Equal(t, int64(900), f.notes.got[0].Recipient)
	assert.Equal(t, notify.KindBookingCreated, f.notes.got[0].Kind)

	events, err := f.events.ListByBooking(context.Background(), b.ID)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, model.EventTypeBookingCreated, events[0].EventType)
}

func TestReschedule(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, calendar.Date(2024, 1, 1))

	b, err := reserve(f, "2024-01-15", "10:00", 1)
	require.NoError(t, err)

	moved, err := f.c.Reschedule(ctx, b.ID, "2024-01-17")
	require.NoError(t, err)
	assert.Equal(t, "17.01.2024", moved.Date)
	assert.Equal(t, "10:00", moved.Time)

	stored, err := f.bookings.GetByID(ctx, b.ID)
	require.NoError(t, err)
	assert.Equal(t, "17.01.2024", stored.Date, "date is stored in display format")

	last := f.notes.got[len(f.notes.got)-1]
	assert.Equal(t, notify.KindBookingRescheduled, last.Kind)
	assert.Equal(t, int64(1), last.Recipient)
	assert.Equal(t, "15.01.2024", last.PrevDate)
}

func TestReschedule_Rejections(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, calendar.Date(2024, 1, 1))

	b, err := reserve(f, "2024-01-15", "10:00", 1)
	require.NoError(t, err)

	_, err = f.blocked.InsertMissing(ctx, []string{"2024-01-18"})
	require.NoError(t, err)
	_, err = f.weekdays.Toggle(ctx, 6)
	require.NoError(t, err)

	_, err = f.c.Reschedule(ctx, b.ID, "18.01.2024")
	assert.ErrorIs(t, err, availability.ErrBlocked)

	_, err = f.c.Reschedule(ctx, b.ID, "2024-01-21") // воскресенье
	assert.ErrorIs(t, err, availability.ErrBlocked)

	_, err = f.c.Reschedule(ctx, uuid.New(), "2024-01-19")
	assert.ErrorIs(t, err, availability.ErrNotFound)

	// то же время на целевой дате уже занято
	_, err = reserve(f, "2024-01-19", "10:00", 2)
	require.NoError(t, err)
	_, err = f.c.Reschedule(ctx, b.ID, "2024-01-19")
	assert.ErrorIs(t, err, availability.ErrSlotTaken)
}

func TestReschedule_Capacity(t *testing.T) {
	ctx := context.Background()

	setup := func(f *fixture) *model.Booking {
		_, err := reserve(f, "2024-01-19", "11:00", 2)
		require.NoError(t, err)
		_, err = reserve(f, "2024-01-19", "12:00", 3)
		require.NoError(t, err)
		b, err := reserve(f, "2024-01-15", "10:00", 1)
		require.NoError(t, err)
		return b
	}

	strict := newFixture(t, calendar.Date(2024, 1, 1))
	b := setup(strict)
	_, err := strict.c.Reschedule(ctx, b.ID, "2024-01-19")
	assert.ErrorIs(t, err, availability.ErrFull)

	stored, err := strict.bookings.GetByID(ctx, b.ID)
	require.NoError(t, err)
	assert.Equal(t, "15.01.2024", stored.Date)

	lenient := newFixture(t, calendar.Date(2024, 1, 1), func(o *Options) { o.RescheduleIgnoresCapacity = true })
	b = setup(lenient)
	_, err = lenient.c.Reschedule(ctx, b.ID, "2024-01-19")
	require.NoError(t, err)
	n, err := lenient.bookings.CountByDate(ctx, "19.01.2024")
	require.NoError(t, err)
	assert.EqualValues(t, 3, n)
}

func TestCancel(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, calendar.Date(2024, 1, 1))

	b, err := reserve(f, "2024-01-15", "10:00", 1)
	require.NoError(t, err)

	_, err = f.c.Cancel(ctx, b.ID)
	require.NoError(t, err)

	_, err = f.c.Cancel(ctx, b.ID)
	assert.ErrorIs(t, err, availability.ErrNotFound)

	last := f.notes.got[len(f.notes.got)-1]
	assert.Equal(t, notify.KindBookingCancelled, last.Kind)
	assert.Equal(t, int64(1), last.Recipient)

	// освободившееся время снова доступно
	_, err = reserve(f, "2024-01-15", "10:00", 2)
	require.NoError(t, err)
}

func TestBlockRange_OrderIndependent(t *testing.T) {
	ctx := context.Background()
	d := calendar.Date(2024, 3, 1)
	d1 := calendar.FormatISO(d.AddDate(0, 0, 1))
	d3 := calendar.FormatISO(d.AddDate(0, 0, 3))

	forward := newFixture(t, d)
	n, err := forward.c.BlockRange(ctx, d1, d3)
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	backward := newFixture(t, d)
	n, err = backward.c.BlockRange(ctx, d3, d1)
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	a, err := forward.c.BlockedDates(ctx)
	require.NoError(t, err)
	b, err := backward.c.BlockedDates(ctx)
	require.NoError(t, err)
	assert.Equal(t, a, b)
	assert.Equal(t, []string{"2024-03-02", "2024-03-03", "2024-03-04"}, a)
}

func TestBlockRange_Idempotent(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, calendar.Date(2024, 3, 1))

	_, err := f.c.BlockRange(ctx, "2024-03-05", "2024-03-07")
	require.NoError(t, err)

	// пересекающийся диапазон добавляет только новые дни; форматы смешаны
	n, err := f.c.BlockRange(ctx, "06.03.2024", "2024-03-09")
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	single, err := f.c.BlockRange(ctx, "2024-03-20", "2024-03-20")
	require.NoError(t, err)
	assert.Equal(t, 1, single)

	_, err = f.c.BlockRange(ctx, "2024-01-01", "2027-01-01")
	assert.ErrorIs(t, err, availability.ErrInvalidArgument)
}

func TestToggleAndClear(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, calendar.Date(2024, 3, 1))

	blocked, err := f.c.ToggleBlock(ctx, "10.03.2024")
	require.NoError(t, err)
	assert.True(t, blocked)

	_, err = f.c.BlockRange(ctx, "2024-03-01", "2024-03-02")
	require.NoError(t, err)

	removed, err := f.c.ClearBlocks(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, removed)

	closed, err := f.c.ToggleWeekday(ctx, 0)
	require.NoError(t, err)
	assert.True(t, closed)

	days, err := f.c.ClosedWeekdays(ctx)
	require.NoError(t, err)
	assert.Equal(t, []int{0}, days)

	_, err = f.c.ToggleWeekday(ctx, 7)
	assert.ErrorIs(t, err, availability.ErrInvalidArgument)
}

func TestListBookings_Chronological(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, calendar.Date(2024, 1, 1))

	for _, r := range []struct{ date, slot string }{
		{"2024-02-03", "10:00"},
		{"2024-01-20", "14:00"},
		{"2024-01-20", "10:00"},
	} {
		_, err := reserve(f, r.date, r.slot, 1)
		require.NoError(t, err)
	}

	page, err := f.c.ListBookings(ctx, 0, 1, 2)
	require.NoError(t, err)
	require.Len(t, page.Items, 2)
	assert.Equal(t, 3, page.Total)
	assert.True(t, page.HasNext)
	assert.Equal(t, "20.01.2024", page.Items[0].Date)
	assert.Equal(t, "10:00", page.Items[0].Time)
	assert.Equal(t, "14:00", page.Items[1].Time)

	page, err = f.c.ListBookings(ctx, 0, 2, 2)
	require.NoError(t, err)
	require.Len(t, page.Items, 1)
	assert.Equal(t, "03.02.2024", page.Items[0].Date)
}

func TestComments(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, calendar.Date(2024, 1, 1))

	_, err := f.c.AttachComment(ctx, 1, "hello")
	assert.ErrorIs(t, err, availability.ErrNotFound)

	b, err := reserve(f, "2024-01-15", "10:00", 1)
	require.NoError(t, err)

	got, err := f.c.AttachComment(ctx, 1, "  буду с собакой ")
	require.NoError(t, err)
	assert.Equal(t, b.ID, got.ID)
	require.NotNil(t, got.Comment)
	assert.Equal(t, "буду с собакой", *got.Comment)
	assert.Contains(t, f.notes.kinds(), notify.KindCommentAdded)

	// повторный комментарий не перезаписывает
	_, err = f.c.AttachComment(ctx, 1, "ещё")
	assert.ErrorIs(t, err, availability.ErrNotFound)

	_, err = reserve(f, "2024-01-16", "10:00", 1)
	require.NoError(t, err)
	skipped, err := f.c.SkipComment(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, "", *skipped.Comment)
}

func TestSelectDate_StateMachine(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, calendar.Date(2024, 3, 1))
	s := session.New(900)

	// Idle: одиночное переключение
	res, err := f.c.SelectDate(ctx, s, "2024-03-15")
	require.NoError(t, err)
	assert.True(t, res.Toggled)
	assert.True(t, res.Blocked)
	assert.Equal(t, session.StageIdle, s.Range.Stage)

	f.c.BeginRangeSelection(s)
	assert.Equal(t, session.StageAwaitingStart, s.Range.Stage)

	res, err = f.c.SelectDate(ctx, s, "2024-03-12")
	require.NoError(t, err)
	assert.Equal(t, session.StageAwaitingEnd, res.Stage)
	assert.Equal(t, "2024-03-12", s.Range.Start)

	// конец раньше начала — диапазон нормализуется
	res, err = f.c.SelectDate(ctx, s, "10.03.2024")
	require.NoError(t, err)
	assert.Equal(t, session.StageIdle, res.Stage)
	assert.Equal(t, 3, res.Inserted)
	assert.True(t, s.Empty())

	dates, err := f.c.BlockedDates(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"2024-03-10", "2024-03-11", "2024-03-12", "2024-03-15"}, dates)
}

func TestSelectDate_CancelAndInvalid(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, calendar.Date(2024, 3, 1))
	s := session.New(900)

	f.c.BeginRangeSelection(s)
	_, err := f.c.SelectDate(ctx, s, "2024-03-12")
	require.NoError(t, err)

	_, err = f.c.SelectDate(ctx, s, "not-a-date")
	assert.ErrorIs(t, err, availability.ErrInvalidArgument)
	assert.Equal(t, session.StageAwaitingEnd, s.Range.Stage, "failed tap keeps the selection")

	f.c.CancelRangeSelection(s)
	assert.Equal(t, session.StageIdle, s.Range.Stage)
	assert.Empty(t, s.Range.Start)

	dates, err := f.c.BlockedDates(ctx)
	require.NoError(t, err)
	assert.Empty(t, dates)
}

// stuckNotifier ведёт себя как брокер, который принимает соединение и не отвечает.
type stuckNotifier struct{}

func (stuckNotifier) Notify(ctx context.Context, _ notify.Notification) error {
	<-ctx.Done()
	return ctx.Err()
}

func TestReserve_StuckNotifierDoesNotDelayCommit(t *testing.T) {
	f := newFixture(t, calendar.Date(2024, 1, 1), func(o *Options) {
		o.Admins = []int64{900, 901}
		o.Notifier = stuckNotifier{}
		o.NotifyTimeout = 50 * time.Millisecond
	})

	// у клиента короткий дедлайн: ответ должен прийти до него
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	start := time.Now()
	b, err := f.c.Reserve(ctx, ReserveRequest{Date: "2024-01-15", Time: "10:00", UserID: 1, Name: "client"})
	require.NoError(t, err)
	assert.Less(t, time.Since(start), 500*time.Millisecond)
	require.NoError(t, ctx.Err())

	n, err := f.bookings.CountByDate(context.Background(), "15.01.2024")
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)

	// аудит записан, хотя уведомление не ушло
	events, err := f.events.ListByBooking(context.Background(), b.ID)
	require.NoError(t, err)
	assert.Len(t, events, 1)
}

func TestReserve_AuditSurvivesCallerCancel(t *testing.T) {
	f := newFixture(t, calendar.Date(2024, 1, 1))

	b, err := reserve(f, "2024-01-15", "10:00", 1)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	f.c.audit(ctx, model.EventTypeBookingCancelled, nil, &b.ID, nil)

	events, err := f.events.ListByBooking(context.Background(), b.ID)
	require.NoError(t, err)
	assert.Len(t, events, 2)
}

func TestReserve_RejectsNonPositiveUser(t *testing.T) {
	f := newFixture(t, calendar.Date(2024, 1, 1))

	for _, user := range []int64{0, -100500} {
		_, err := reserve(f, "2024-01-15", "10:00", user)
		assert.ErrorIs(t, err, availability.ErrInvalidArgument, "user %d", user)
	}

	_, err := f.c.SkipComment(context.Background(), -1)
	assert.ErrorIs(t, err, availability.ErrInvalidArgument)
}

func TestReschedule_SameDayIsNoop(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, calendar.Date(2024, 1, 1))

	b, err := reserve(f, "2024-01-15", "10:00", 1)
	require.NoError(t, err)
	before := len(f.notes.kinds())

	// день заполнен, но запись уже на нём: перенос на себя не отказ
	_, err = reserve(f, "2024-01-15", "11:00", 2)
	require.NoError(t, err)

	got, err := f.c.Reschedule(ctx, b.ID, "2024-01-15")
	require.NoError(t, err)
	assert.Equal(t, "15.01.2024", got.Date)

	notes := f.notes.kinds()
	assert.Len(t, notes, before+1, "only the second reservation notified admins")
	assert.NotContains(t, notes, notify.KindBookingRescheduled)
}

func TestToggles_AreAudited(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, calendar.Date(2024, 3, 1))

	_, err := f.c.ToggleBlock(ctx, "2024-03-10")
	require.NoError(t, err)
	_, err = f.c.ToggleWeekday(ctx, 2)
	require.NoError(t, err)
	_, err = f.c.ClearBlocks(ctx)
	require.NoError(t, err)

	for _, et := range []model.EventType{
		model.EventTypeDateToggled,
		model.EventTypeWeekdayToggled,
		model.EventTypeBlocksCleared,
	} {
		events, err := f.events.ListByType(ctx, et)
		require.NoError(t, err)
		assert.Len(t, events, 1, string(et))
	}

	toggled, err := f.events.ListByType(ctx, model.EventTypeDateToggled)
	require.NoError(t, err)
	assert.JSONEq(t, `{"date":"2024-03-10","blocked":true}`, string(toggled[0].Details))
}
