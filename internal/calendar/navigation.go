package calendar

import (
	"errors"
	"time"
)

var ErrInvalidView = errors.New("invalid calendar view")

// Mode — режим отображения календаря.
type Mode string

const (
	ModeUser  Mode = "user"
	ModeAdmin Mode = "admin"
)

// Допустимые размеры окна в месяцах.
var Spans = []int{1, 2, 12}

// View — всё состояние навигации по календарю. Скрытого состояния нет:
// каждый шаг является чистой функцией от текущего View.
type View struct {
	Year  int        `json:"year"`
	Month time.Month `json:"month"`
	Span  int        `json:"span"`
	Mode  Mode       `json:"mode"`
}

// NewView открывает окно span месяцев с месяца today.
func NewView(today time.Time, span int, mode Mode) View {
	return View{Year: today.Year(), Month: today.Month(), Span: span, Mode: mode}
}

func ValidSpan(span int) bool {
	for _, s := range Spans {
		if s == span {
			return true
		}
	}
	return false
}

func (v View) Validate() error {
	if v.Year < 1 || v.Month < time.January || v.Month > time.December {
		return ErrInvalidView
	}
	if !ValidSpan(v.Span) {
		return ErrInvalidView
	}
	if v.Mode != ModeUser && v.Mode != ModeAdmin {
		return ErrInvalidView
	}
	return nil
}

// на месяц назад
func (v View) Prev() View {
	v.Year, v.Month = AddMonths(v.Year, v.Month, -1)
	return v
}

// на месяц вперёд
func (v View) Next() View {
	v.Year, v.Month = AddMonths(v.Year, v.Month, 1)
	return v
}

// Jump переходит к явно выбранному месяцу; окно сужается до одного месяца,
// как при выборе из сетки месяцев.
func (v View) Jump(year int, month time.Month) View {
	v.Year, v.Month, v.Span = year, month, 1
	return v
}

// WithSpan меняет размер окна, оставляя начальный месяц.
func (v View) WithSpan(span int) View {
	v.Span = span
	return v
}

// Months перечисляет (год, месяц) отображаемых месяцев по порядку.
func (v View) Months() [][2]int {
	out := make([][2]int, 0, v.Span)
	for i := 0; i < v.Span; i++ {
		y, m := AddMonths(v.Year, v.Month, i)
		out = append(out, [2]int{y, int(m)})
	}
	return out
}

// MonthPicker — сетка выбора месяца внутри года (по 4 в ряд) и соседние годы.
type MonthPicker struct {
	Year     int            `json:"year"`
	Rows     [][]time.Month `json:"rows"`
	PrevYear int            `json:"prev_year"`
	NextYear int            `json:"next_year"`
	Mode     Mode           `json:"mode"`
}

func NewMonthPicker(year int, mode Mode) MonthPicker {
	rows := make([][]time.Month, 0, 3)
	row := make([]time.Month, 0, 4)
	for m := time.January; m <= time.December; m++ {
		row = append(row, m)
		if len(row) == 4 {
			rows = append(rows, row)
			row = make([]time.Month, 0, 4)
		}
	}
	return MonthPicker{Year: year, Rows: rows, PrevYear: year - 1, NextYear: year + 1, Mode: mode}
}
