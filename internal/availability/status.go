// Package availability decides which days can take a booking and renders
// the status-annotated calendar.
package availability

import "time"

// MaxBookingsPerDay — вместимость одного дня.
const MaxBookingsPerDay = 2

type Status string

const (
	StatusOpen       Status = "open"
	StatusPartial    Status = "partial"
	StatusFull       Status = "full"
	StatusBlocked    Status = "blocked"
	StatusOutOfRange Status = "out_of_range"
)

// Offerable сообщает, можно ли предложить день пользователю.
func (s Status) Offerable() bool {
	return s == StatusOpen || s == StatusPartial
}

// Verdict — статус дня и число записей на него.
type Verdict struct {
	Status Status `json:"status"`
	Count  int    `json:"count"`
}

// Classify применяет правила по приоритету, первое совпадение побеждает:
// вне диапазона, заблокирован (дата или день недели), полный, частично занят, свободен.
func Classify(date time.Time, count int, blocked, closedWeekday bool, minDate, maxDate time.Time) Verdict {
	v := Verdict{Count: count}
	switch {
	case date.Before(minDate) || date.After(maxDate):
		v.Status = StatusOutOfRange
	case blocked || closedWeekday:
		v.Status = StatusBlocked
	case count >= MaxBookingsPerDay:
		v.Status = StatusFull
	case count == 1:
		v.Status = StatusPartial
	default:
		v.Status = StatusOpen
	}
	return v
}
