package availability

import (
	"context"
	"slices"
	"time"

	"github.com/Leganyst/booking-core/internal/calendar"
	"github.com/Leganyst/booking-core/internal/repository"
)

// Горизонт записи: 30 дней на каждый месяц окна.
const DefaultHorizonDaysPerMonth = 30

type Options struct {
	// Фиксированная упорядоченная сетка времени (ЧЧ:ММ).
	Slots []string
	// Часы; nil — time.Now.
	Now      func() time.Time
	Location *time.Location
	// Дней горизонта на один месяц окна.
	HorizonDaysPerMonth int
}

type Engine struct {
	blocked  repository.BlockedDateRepository
	weekdays repository.WeekdayRepository
	bookings repository.BookingRepository

	slots        []string
	now          func() time.Time
	loc          *time.Location
	daysPerMonth int
}

func NewEngine(
	blocked repository.BlockedDateRepository,
	weekdays repository.WeekdayRepository,
	bookings repository.BookingRepository,
	opts Options,
) *Engine {
	e := &Engine{
		blocked:      blocked,
		weekdays:     weekdays,
		bookings:     bookings,
		slots:        slices.Clone(opts.Slots),
		now:          opts.Now,
		loc:          opts.Location,
		daysPerMonth: opts.HorizonDaysPerMonth,
	}
	if e.now == nil {
		e.now = time.Now
	}
	if e.daysPerMonth <= 0 {
		e.daysPerMonth = DefaultHorizonDaysPerMonth
	}
	return e
}

func (e *Engine) Today() time.Time {
	return calendar.Today(e.now(), e.loc)
}

// Bounds возвращает [сегодня, сегодня + daysPerMonth*span].
func (e *Engine) Bounds(span int) (time.Time, time.Time) {
	today := e.Today()
	return today, today.AddDate(0, 0, e.daysPerMonth*span)
}

// BookingBounds: самое широкое окно, которое может показать календарь.
func (e *Engine) BookingBounds() (time.Time, time.Time) {
	return e.Bounds(slices.Max(calendar.Spans))
}

// TimeSlots отдаёт копию сетки времени в исходном порядке.
func (e *Engine) TimeSlots() []string {
	return slices.Clone(e.slots)
}

func (e *Engine) ValidSlot(slot string) bool {
	return slices.Contains(e.slots, slot)
}

// Check классифицирует один день, каждое правило одним запросом.
func (e *Engine) Check(ctx context.Context, day time.Time, minDate, maxDate time.Time) (Verdict, error) {
	const op = "availability.check"

	day = calendar.DateOnly(day)
	if day.Before(minDate) || day.After(maxDate) {
		return Classify(day, 0, false, false, minDate, maxDate), nil
	}

	blocked, err := e.blocked.Exists(ctx, calendar.FormatISO(day))
	if err != nil {
		return Verdict{}, FromStorage(op, err)
	}
	closed, err := e.weekdays.Exists(ctx, calendar.WeekdayIndex(day))
	if err != nil {
		return Verdict{}, FromStorage(op, err)
	}
	count, err := e.bookings.CountByDate(ctx, calendar.FormatDisplay(day))
	if err != nil {
		return Verdict{}, FromStorage(op, err)
	}
	return Classify(day, int(count), blocked, closed, minDate, maxDate), nil
}

// Day — ячейка календаря. Number == 0 — пустая ячейка вне месяца.
type Day struct {
	Number        int    `json:"number"`
	Date          string `json:"date,omitempty"`
	Status        Status `json:"status,omitempty"`
	Bookings      int    `json:"bookings,omitempty"`
	Blocked       bool   `json:"blocked,omitempty"`
	ClosedWeekday bool   `json:"closed_weekday,omitempty"`
	Selectable    bool   `json:"selectable"`
}

type Month struct {
	Year  int        `json:"year"`
	Month time.Month `json:"month"`
	Weeks [][7]Day   `json:"weeks"`
}

type Calendar struct {
	View    calendar.View `json:"view"`
	MinDate string        `json:"min_date"`
	MaxDate string        `json:"max_date"`
	Months  []Month       `json:"months"`
}

// Render строит View.Span месячных сеток со статусом каждого дня.
// Правила читаются пакетно: три запроса на весь рендер.
func (e *Engine) Render(ctx context.Context, view calendar.View) (*Calendar, error) {
	const op = "availability.render"

	if err := view.Validate(); err != nil {
		return nil, E(op, KindInvalidArgument, "%v", err)
	}

	minDate, maxDate := e.Bounds(view.Span)

	var isoDays, displayDays []string
	for _, ym := range view.Months() {
		year, month := ym[0], time.Month(ym[1])
		for d := 1; d <= calendar.DaysIn(year, month); d++ {
			day := calendar.Date(year, month, d)
			if day.Before(minDate) || day.After(maxDate) {
				continue
			}
			isoDays = append(isoDays, calendar.FormatISO(day))
			displayDays = append(displayDays, calendar.FormatDisplay(day))
		}
	}

	closed, err := e.closedSet(ctx)
	if err != nil {
		return nil, FromStorage(op, err)
	}
	blocked, err := e.blocked.ExistingAmong(ctx, isoDays)
	if err != nil {
		return nil, FromStorage(op, err)
	}
	counts, err := e.bookings.CountByDates(ctx, displayDays)
	if err != nil {
		return nil, FromStorage(op, err)
	}

	out := &Calendar{
		View:    view,
		MinDate: calendar.FormatISO(minDate),
		MaxDate: calendar.FormatISO(maxDate),
		Months:  make([]Month, 0, view.Span),
	}

	for _, ym := range view.Months() {
		year, month := ym[0], time.Month(ym[1])
		grid := calendar.MonthGrid(year, month)
		m := Month{Year: year, Month: month, Weeks: make([][7]Day, len(grid))}

		for w, week := range grid {
			for col, number := range week {
				if number == 0 {
					continue
				}
				day := calendar.Date(year, month, number)
				iso := calendar.FormatISO(day)
				cell := Day{
					Number:        number,
					Date:          iso,
					Blocked:       blocked[iso],
					ClosedWeekday: closed[col],
				}
				cell.Bookings = counts[calendar.FormatDisplay(day)]

				verdict := Classify(day, cell.Bookings, cell.Blocked, cell.ClosedWeekday, minDate, maxDate)
				cell.Status = verdict.Status
				cell.Selectable = selectable(verdict.Status, view.Mode)
				m.Weeks[w][col] = cell
			}
		}
		out.Months = append(out.Months, m)
	}

	return out, nil
}

// В админском режиме любой день в диапазоне переключается (блок/разблок),
// в пользовательском только те, что можно предложить.
func selectable(s Status, mode calendar.Mode) bool {
	if s == StatusOutOfRange {
		return false
	}
	if mode == calendar.ModeAdmin {
		return true
	}
	return s.Offerable()
}

func (e *Engine) closedSet(ctx context.Context) ([7]bool, error) {
	var set [7]bool
	days, err := e.weekdays.List(ctx)
	if err != nil {
		return set, err
	}
	for _, wd := range days {
		if calendar.ValidWeekday(wd) {
			set[wd] = true
		}
	}
	return set, nil
}
