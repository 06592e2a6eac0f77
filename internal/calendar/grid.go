package calendar

import "time"

// Week — семь дней с понедельника; 0 означает ячейку вне месяца.
type Week [7]int

// DaysIn — количество дней в месяце.
func DaysIn(year int, month time.Month) int {
	return Date(year, month+1, 0).Day()
}

// MonthGrid раскладывает месяц по неделям, понедельник первым.
func MonthGrid(year int, month time.Month) []Week {
	first := Date(year, month, 1)
	offset := WeekdayIndex(first)
	days := DaysIn(year, month)

	weeks := make([]Week, 0, 6)
	var week Week
	col := offset
	for day := 1; day <= days; day++ {
		week[col] = day
		col++
		if col == 7 {
			weeks = append(weeks, week)
			week = Week{}
			col = 0
		}
	}
	if col > 0 {
		weeks = append(weeks, week)
	}
	return weeks
}
