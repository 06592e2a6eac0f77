package calendar

import (
	"testing"
	"time"
)

func TestDaysIn(t *testing.T) {
	if got := DaysIn(2024, time.February); got != 29 {
		t.Fatalf("leap February: expected 29, got %d", got)
	}
	if got := DaysIn(2023, time.February); got != 28 {
		t.Fatalf("February: expected 28, got %d", got)
	}
	if got := DaysIn(2024, time.December); got != 31 {
		t.Fatalf("December: expected 31, got %d", got)
	}
}

func TestMonthGrid_MondayStart(t *testing.T) {
	// январь 2024 начинается в понедельник
	weeks := MonthGrid(2024, time.January)
	if weeks[0][0] != 1 {
		t.Fatalf("expected day 1 in first column, got %v", weeks[0])
	}
	if len(weeks) != 5 {
		t.Fatalf("expected 5 weeks, got %d", len(weeks))
	}
	last := weeks[len(weeks)-1]
	if last[2] != 31 || last[3] != 0 {
		t.Fatalf("expected 31 on Wednesday and padding after, got %v", last)
	}
}

func TestMonthGrid_LeadingPadding(t *testing.T) {
	// сентябрь 2024 начинается в воскресенье
	weeks := MonthGrid(2024, time.September)
	first := weeks[0]
	for i := 0; i < 6; i++ {
		if first[i] != 0 {
			t.Fatalf("expected padding in column %d, got %v", i, first)
		}
	}
	if first[6] != 1 {
		t.Fatalf("expected day 1 on Sunday, got %v", first)
	}
	if len(weeks) != 6 {
		t.Fatalf("expected 6 weeks, got %d", len(weeks))
	}
}

func TestMonthGrid_EveryDayOnce(t *testing.T) {
	for m := time.January; m <= time.December; m++ {
		seen := make(map[int]bool)
		for _, w := range MonthGrid(2025, m) {
			for col, d := range w {
				if d == 0 {
					continue
				}
				if seen[d] {
					t.Fatalf("%v: day %d twice", m, d)
				}
				seen[d] = true
				if got := WeekdayIndex(Date(2025, m, d)); got != col {
					t.Fatalf("%v %d: expected column %d, got %d", m, d, got, col)
				}
			}
		}
		if len(seen) != DaysIn(2025, m) {
			t.Fatalf("%v: expected %d days, got %d", m, DaysIn(2025, m), len(seen))
		}
	}
}
