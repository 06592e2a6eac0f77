package calendar

import (
	"errors"
	"strings"
	"time"
)

var (
	ErrInvalidDate      = errors.New("invalid date")
	ErrInvalidDateRange = errors.New("invalid date range")
	ErrInvalidWeekday   = errors.New("weekday must be in [0, 6]")
)

const (
	// идентификатор дня для блокировок и callback-данных
	ISOLayout = "2006-01-02"
	// в этом формате хранятся записи
	DisplayLayout = "02.01.2006"
)

// Date возвращает календарный день. Все дни в ядре — полночь UTC,
// чтобы сравнение и арифметика не зависели от часового пояса.
func Date(year int, month time.Month, day int) time.Time {
	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
}

// DateOnly отбрасывает время, сохраняя календарный день в зоне t.
func DateOnly(t time.Time) time.Time {
	year, month, day := t.Date()
	return Date(year, month, day)
}

// Today возвращает текущий день в зоне loc (при nil берётся зона now).
func Today(now time.Time, loc *time.Location) time.Time {
	if loc != nil {
		now = now.In(loc)
	}
	return DateOnly(now)
}

// ParseDay принимает оба формата: ГГГГ-ММ-ДД и ДД.ММ.ГГГГ.
func ParseDay(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	layout := ISOLayout
	if strings.Contains(s, ".") {
		layout = DisplayLayout
	}
	t, err := time.Parse(layout, s)
	if err != nil {
		return time.Time{}, ErrInvalidDate
	}
	return DateOnly(t), nil
}

func FormatISO(day time.Time) string {
	return day.Format(ISOLayout)
}

func FormatDisplay(day time.Time) string {
	return day.Format(DisplayLayout)
}

// ToISO переводит любой поддерживаемый формат в ГГГГ-ММ-ДД.
func ToISO(s string) (string, error) {
	day, err := ParseDay(s)
	if err != nil {
		return "", err
	}
	return FormatISO(day), nil
}

// SameDay сравнивает идентичность дня независимо от формата записи.
func SameDay(a, b string) bool {
	da, errA := ParseDay(a)
	db, errB := ParseDay(b)
	return errA == nil && errB == nil && da.Equal(db)
}

// WeekdayIndex — номер дня недели с понедельника: 0=Пн .. 6=Вс.
func WeekdayIndex(day time.Time) int {
	return (int(day.Weekday()) + 6) % 7
}

func ValidWeekday(wd int) bool {
	return wd >= 0 && wd <= 6
}

// NormalizeDateRange меняет местами границы, если они перепутаны.
func NormalizeDateRange(start, end time.Time) (time.Time, time.Time, error) {
	if start.IsZero() || end.IsZero() {
		return time.Time{}, time.Time{}, ErrInvalidDateRange
	}
	start, end = DateOnly(start), DateOnly(end)
	if end.Before(start) {
		start, end = end, start
	}
	return start, end, nil
}

// DaysInRange перечисляет дни [start, end] включительно.
func DaysInRange(start, end time.Time) []time.Time {
	if end.Before(start) {
		return nil
	}
	days := make([]time.Time, 0, int(end.Sub(start).Hours()/24)+1)
	for d := start; !d.After(end); d = d.AddDate(0, 0, 1) {
		days = append(days, d)
	}
	return days
}

// AddMonths сдвигает (year, month) на delta месяцев с переносом года.
func AddMonths(year int, month time.Month, delta int) (int, time.Month) {
	idx := year*12 + int(month) - 1 + delta
	return idx / 12, time.Month(idx%12 + 1)
}
