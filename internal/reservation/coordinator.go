// Package reservation commits slot selections, date moves, cancellations
// and schedule blocks under the availability rules.
package reservation

import (
	"context"
	"log/slog"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/Leganyst/booking-core/internal/availability"
	"github.com/Leganyst/booking-core/internal/calendar"
	"github.com/Leganyst/booking-core/internal/model"
	"github.com/Leganyst/booking-core/internal/notify"
	"github.com/Leganyst/booking-core/internal/repository"
)

// MaxRangeDays ограничивает блокировку диапазона двумя годами.
const MaxRangeDays = 731

type Options struct {
	// Кому уходят уведомления о новых записях и комментариях.
	Admins []int64
	// Не проверять лимит дня при переносе (поведение старого бота):
	// остаются только проверка блокировок и уникальный индекс времени.
	RescheduleIgnoresCapacity bool

	Notifier notify.Notifier
	// Сколько операция ждёт уведомления; 0 — notify.DefaultDeliverTimeout.
	NotifyTimeout time.Duration

	Events repository.EventRepository
	Logger *slog.Logger
}

type Coordinator struct {
	engine   *availability.Engine
	bookings repository.BookingRepository
	blocked  repository.BlockedDateRepository
	weekdays repository.WeekdayRepository
	events   repository.EventRepository

	notifier                  notify.Notifier
	notifyTimeout             time.Duration
	admins                    []int64
	rescheduleIgnoresCapacity bool

	logger *slog.Logger
	tracer trace.Tracer
}

func NewCoordinator(
	engine *availability.Engine,
	bookings repository.BookingRepository,
	blocked repository.BlockedDateRepository,
	weekdays repository.WeekdayRepository,
	opts Options,
) *Coordinator {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Coordinator{
		engine:                    engine,
		bookings:                  bookings,
		blocked:                   blocked,
		weekdays:                  weekdays,
		events:                    opts.Events,
		notifier:                  opts.Notifier,
		notifyTimeout:             opts.NotifyTimeout,
		admins:                    slices.Clone(opts.Admins),
		rescheduleIgnoresCapacity: opts.RescheduleIgnoresCapacity,
		logger:                    logger,
		tracer:                    otel.Tracer("github.com/Leganyst/booking-core/internal/reservation"),
	}
}

type ReserveRequest struct {
	Date   string // ГГГГ-ММ-ДД или ДД.ММ.ГГГГ
	Time   string
	UserID int64
	Name   string
}

// Reserve заново проверяет день на момент подтверждения (календарь мог
// устареть) и создаёт запись. Подсчёт лимита и вставка — одна транзакция,
// занятость времени дополнительно держит уникальный индекс.
func (c *Coordinator) Reserve(ctx context.Context, req ReserveRequest) (_ *model.Booking, err error) {
	const op = "reservation.reserve"
	ctx, span := c.tracer.Start(ctx, op, trace.WithAttributes(
		attribute.String("booking.date", req.Date),
		attribute.String("booking.time", req.Time),
	))
	defer func() { endSpan(span, err) }()

	if req.UserID <= 0 {
		return nil, availability.E(op, availability.KindInvalidArgument, "user id must be positive")
	}
	day, err := calendar.ParseDay(req.Date)
	if err != nil {
		return nil, availability.E(op, availability.KindInvalidArgument, "date %q", req.Date)
	}
	if !c.engine.ValidSlot(req.Time) {
		return nil, availability.E(op, availability.KindInvalidArgument, "time %q is not offered", req.Time)
	}

	minDate, maxDate := c.engine.BookingBounds()
	verdict, err := c.engine.Check(ctx, day, minDate, maxDate)
	if err != nil {
		return nil, err
	}
	switch verdict.Status {
	case availability.StatusOutOfRange:
		return nil, availability.E(op, availability.KindOutOfRange, "%s", calendar.FormatISO(day))
	case availability.StatusBlocked:
		return nil, availability.E(op, availability.KindBlocked, "%s", calendar.FormatISO(day))
	case availability.StatusFull:
		return nil, availability.E(op, availability.KindFull, "%s", calendar.FormatISO(day))
	}

	date := calendar.FormatDisplay(day)
	taken, err := c.bookings.ExistsAt(ctx, date, req.Time)
	if err != nil {
		return nil, availability.FromStorage(op, err)
	}
	if taken {
		return nil, availability.E(op, availability.KindSlotTaken, "%s %s", date, req.Time)
	}

	booking := &model.Booking{
		UserID: req.UserID,
		Name:   strings.TrimSpace(req.Name),
		Date:   date,
		Time:   req.Time,
	}
	if err := c.bookings.CreateWithinCapacity(ctx, booking, availability.MaxBookingsPerDay); err != nil {
		return nil, availability.FromStorage(op, err)
	}

	c.logger.InfoContext(ctx, "booking created",
		"booking_id", booking.ID,
		"user_id", booking.UserID,
		"date", booking.Date,
		"time", booking.Time,
	)
	c.audit(ctx, model.EventTypeBookingCreated, &req.UserID, &booking.ID, map[string]string{
		"date": booking.Date,
		"time": booking.Time,
	})
	c.notify(ctx, notify.ToAll(c.admins, notify.Notification{
		Kind:      notify.KindBookingCreated,
		BookingID: booking.ID.String(),
		UserID:    booking.UserID,
		Name:      booking.Name,
		Date:      booking.Date,
		Time:      booking.Time,
	})...)

	return booking, nil
}

// Reschedule переносит запись на другую дату, время сохраняется.
// Проверяются блокировка даты, выходной день недели и лимит дня
// (последний отключается RescheduleIgnoresCapacity).
func (c *Coordinator) Reschedule(ctx context.Context, id uuid.UUID, newDate string) (_ *model.Booking, err error) {
	const op = "reservation.reschedule"
	ctx, span := c.tracer.Start(ctx, op, trace.WithAttributes(
		attribute.String("booking.id", id.String()),
		attribute.String("booking.new_date", newDate),
	))
	defer func() { endSpan(span, err) }()

	day, err := calendar.ParseDay(newDate)
	if err != nil {
		return nil, availability.E(op, availability.KindInvalidArgument, "date %q", newDate)
	}

	booking, err := c.bookings.GetByID(ctx, id)
	if err != nil {
		return nil, availability.FromStorage(op, err)
	}
	if calendar.SameDay(booking.Date, newDate) {
		// перенос на тот же день ничего не меняет
		return booking, nil
	}

	blocked, err := c.blocked.Exists(ctx, calendar.FormatISO(day))
	if err != nil {
		return nil, availability.FromStorage(op, err)
	}
	closed, err := c.weekdays.Exists(ctx, calendar.WeekdayIndex(day))
	if err != nil {
		return nil, availability.FromStorage(op, err)
	}
	if blocked || closed {
		return nil, availability.E(op, availability.KindBlocked, "%s", calendar.FormatISO(day))
	}

	capacity := availability.MaxBookingsPerDay
	if c.rescheduleIgnoresCapacity {
		capacity = 0
	}

	prevDate := booking.Date
	booking.Date = calendar.FormatDisplay(day)
	if err := c.bookings.UpdateDate(ctx, id, booking.Date, capacity); err != nil {
		return nil, availability.FromStorage(op, err)
	}

	c.logger.InfoContext(ctx, "booking rescheduled",
		"booking_id", booking.ID,
		"from", prevDate,
		"to", booking.Date,
	)
	c.audit(ctx, model.EventTypeBookingRescheduled, nil, &booking.ID, map[string]string{
		"from": prevDate,
		"to":   booking.Date,
		"time": booking.Time,
	})
	c.notify(ctx, notify.Notification{
		Recipient: booking.UserID,
		Kind:      notify.KindBookingRescheduled,
		BookingID: booking.ID.String(),
		UserID:    booking.UserID,
		Name:      booking.Name,
		Date:      booking.Date,
		Time:      booking.Time,
		PrevDate:  prevDate,
	})

	return booking, nil
}

// Cancel удаляет запись и уведомляет её владельца.
func (c *Coordinator) Cancel(ctx context.Context, id uuid.UUID) (_ *model.Booking, err error) {
	const op = "reservation.cancel"
	ctx, span := c.tracer.Start(ctx, op, trace.WithAttributes(attribute.String("booking.id", id.String())))
	defer func() { endSpan(span, err) }()

	booking, err := c.bookings.GetByID(ctx, id)
	if err != nil {
		return nil, availability.FromStorage(op, err)
	}
	if err := c.bookings.Delete(ctx, id); err != nil {
		return nil, availability.FromStorage(op, err)
	}

	c.logger.InfoContext(ctx, "booking cancelled", "booking_id", booking.ID, "date", booking.Date)
	c.audit(ctx, model.EventTypeBookingCancelled, nil, &booking.ID, map[string]string{
		"date": booking.Date,
		"time": booking.Time,
	})
	c.notify(ctx, notify.Notification{
		Recipient: booking.UserID,
		Kind:      notify.KindBookingCancelled,
		BookingID: booking.ID.String(),
		UserID:    booking.UserID,
		Name:      booking.Name,
		Date:      booking.Date,
		Time:      booking.Time,
	})

	return booking, nil
}

// BlockRange блокирует все дни между датами включительно, порядок
// аргументов не важен. Возвращает число реально добавленных дат.
func (c *Coordinator) BlockRange(ctx context.Context, start, end string) (_ int, err error) {
	const op = "reservation.block_range"
	ctx, span := c.tracer.Start(ctx, op, trace.WithAttributes(
		attribute.String("range.start", start),
		attribute.String("range.end", end),
	))
	defer func() { endSpan(span, err) }()

	from, err := calendar.ParseDay(start)
	if err != nil {
		return 0, availability.E(op, availability.KindInvalidArgument, "start %q", start)
	}
	to, err := calendar.ParseDay(end)
	if err != nil {
		return 0, availability.E(op, availability.KindInvalidArgument, "end %q", end)
	}
	from, to, err = calendar.NormalizeDateRange(from, to)
	if err != nil {
		return 0, availability.E(op, availability.KindInvalidArgument, "%v", err)
	}

	days := calendar.DaysInRange(from, to)
	if len(days) > MaxRangeDays {
		return 0, availability.E(op, availability.KindInvalidArgument, "range of %d days is too long", len(days))
	}
	dates := make([]string, 0, len(days))
	for _, d := range days {
		dates = append(dates, calendar.FormatISO(d))
	}

	inserted, err := c.blocked.InsertMissing(ctx, dates)
	if err != nil {
		return 0, availability.FromStorage(op, err)
	}

	c.logger.InfoContext(ctx, "dates blocked",
		"start", dates[0],
		"end", dates[len(dates)-1],
		"inserted", inserted,
	)
	c.audit(ctx, model.EventTypeDatesBlocked, nil, nil, map[string]any{
		"start":    dates[0],
		"end":      dates[len(dates)-1],
		"inserted": inserted,
	})
	return inserted, nil
}

// ToggleBlock переключает блокировку одной даты.
func (c *Coordinator) ToggleBlock(ctx context.Context, date string) (_ bool, err error) {
	const op = "reservation.toggle_block"
	ctx, span := c.tracer.Start(ctx, op, trace.WithAttributes(attribute.String("block.date", date)))
	defer func() { endSpan(span, err) }()

	iso, err := calendar.ToISO(date)
	if err != nil {
		return false, availability.E(op, availability.KindInvalidArgument, "date %q", date)
	}
	blocked, err := c.blocked.Toggle(ctx, iso)
	if err != nil {
		return false, availability.FromStorage(op, err)
	}

	c.logger.InfoContext(ctx, "date block toggled", "date", iso, "blocked", blocked)
	c.audit(ctx, model.EventTypeDateToggled, nil, nil, map[string]any{
		"date":    iso,
		"blocked": blocked,
	})
	return blocked, nil
}

func (c *Coordinator) ClearBlocks(ctx context.Context) (_ int, err error) {
	const op = "reservation.clear_blocks"
	ctx, span := c.tracer.Start(ctx, op)
	defer func() { endSpan(span, err) }()

	n, err := c.blocked.DeleteAll(ctx)
	if err != nil {
		return 0, availability.FromStorage(op, err)
	}
	c.logger.InfoContext(ctx, "blocked dates cleared", "removed", n)
	c.audit(ctx, model.EventTypeBlocksCleared, nil, nil, map[string]int{"removed": n})
	return n, nil
}

func (c *Coordinator) BlockedDates(ctx context.Context) ([]string, error) {
	dates, err := c.blocked.List(ctx)
	if err != nil {
		return nil, availability.FromStorage("reservation.blocked_dates", err)
	}
	return dates, nil
}

// ToggleWeekday переключает регулярный выходной (0=Пн .. 6=Вс).
func (c *Coordinator) ToggleWeekday(ctx context.Context, weekday int) (_ bool, err error) {
	const op = "reservation.toggle_weekday"
	ctx, span := c.tracer.Start(ctx, op, trace.WithAttributes(attribute.Int("weekday", weekday)))
	defer func() { endSpan(span, err) }()

	if !calendar.ValidWeekday(weekday) {
		return false, availability.E(op, availability.KindInvalidArgument, "%v", calendar.ErrInvalidWeekday)
	}
	closed, err := c.weekdays.Toggle(ctx, weekday)
	if err != nil {
		return false, availability.FromStorage(op, err)
	}

	c.logger.InfoContext(ctx, "weekday toggled", "weekday", weekday, "closed", closed)
	c.audit(ctx, model.EventTypeWeekdayToggled, nil, nil, map[string]any{
		"weekday": weekday,
		"closed":  closed,
	})
	return closed, nil
}

func (c *Coordinator) ClosedWeekdays(ctx context.Context) ([]int, error) {
	days, err := c.weekdays.List(ctx)
	if err != nil {
		return nil, availability.FromStorage("reservation.closed_weekdays", err)
	}
	return days, nil
}

// ListBookings отдаёт записи в хронологическом порядке, постранично.
// userID == 0: все записи.
func (c *Coordinator) ListBookings(ctx context.Context, userID int64, page, pageSize int) (calendar.Page[model.Booking], error) {
	bookings, err := c.bookings.List(ctx, userID)
	if err != nil {
		return calendar.Page[model.Booking]{}, availability.FromStorage("reservation.list_bookings", err)
	}

	slices.SortStableFunc(bookings, func(a, b model.Booking) int {
		da, _ := calendar.ParseDay(a.Date)
		db, _ := calendar.ParseDay(b.Date)
		if n := da.Compare(db); n != 0 {
			return n
		}
		return strings.Compare(a.Time, b.Time)
	})
	return calendar.Paginate(bookings, page, pageSize), nil
}

// AttachComment сохраняет текст как комментарий к последней записи
// пользователя без комментария. Комментарий прикрепляется один раз.
func (c *Coordinator) AttachComment(ctx context.Context, userID int64, text string) (_ *model.Booking, err error) {
	const op = "reservation.attach_comment"
	ctx, span := c.tracer.Start(ctx, op, trace.WithAttributes(attribute.Int64("user.id", userID)))
	defer func() { endSpan(span, err) }()

	text = strings.TrimSpace(text)
	if text == "" {
		return nil, availability.E(op, availability.KindInvalidArgument, "empty comment")
	}

	booking, err := c.setComment(ctx, op, userID, text)
	if err != nil {
		return nil, err
	}

	c.notify(ctx, notify.ToAll(c.admins, notify.Notification{
		Kind:      notify.KindCommentAdded,
		BookingID: booking.ID.String(),
		UserID:    booking.UserID,
		Name:      booking.Name,
		Date:      booking.Date,
		Time:      booking.Time,
		Text:      text,
	})...)
	return booking, nil
}

// SkipComment закрывает ожидание комментария пустой строкой.
func (c *Coordinator) SkipComment(ctx context.Context, userID int64) (_ *model.Booking, err error) {
	const op = "reservation.skip_comment"
	ctx, span := c.tracer.Start(ctx, op, trace.WithAttributes(attribute.Int64("user.id", userID)))
	defer func() { endSpan(span, err) }()

	return c.setComment(ctx, op, userID, "")
}

func (c *Coordinator) setComment(ctx context.Context, op string, userID int64, text string) (*model.Booking, error) {
	if userID <= 0 {
		return nil, availability.E(op, availability.KindInvalidArgument, "user id must be positive")
	}
	booking, err := c.bookings.LatestAwaitingComment(ctx, userID)
	if err != nil {
		return nil, availability.FromStorage(op, err)
	}
	if !booking.AwaitingComment() {
		return nil, availability.E(op, availability.KindNotFound, "booking %s already has a comment", booking.ID)
	}
	if err := c.bookings.SetComment(ctx, booking.ID, text); err != nil {
		return nil, availability.FromStorage(op, err)
	}
	booking.Comment = &text
	return booking, nil
}

// audit пишет событие журнала; сбой журнала не отменяет операцию.
// Изменение уже сохранено, поэтому отмена запроса журнал не прерывает.
func (c *Coordinator) audit(ctx context.Context, t model.EventType, actor *int64, bookingID *uuid.UUID, details any) {
	if c.events == nil {
		return
	}
	if err := c.events.Record(context.WithoutCancel(ctx), t, actor, bookingID, details); err != nil {
		c.logger.WarnContext(ctx, "audit event dropped", "event_type", t, "err", err)
	}
}

// notify отправляет уведомления с ограниченным ожиданием.
func (c *Coordinator) notify(ctx context.Context, ns ...notify.Notification) {
	notify.DeliverWithin(ctx, c.notifyTimeout, c.notifier, c.logger, ns...)
}

func endSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, string(availability.KindOf(err)))
	}
	span.End()
}
