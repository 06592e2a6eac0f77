package model

import "time"

// blocked_dates — отдельные заблокированные дни, дата в ISO 8601.
type BlockedDate struct {
	Date      string    `gorm:"type:varchar(10);primaryKey"`
	CreatedAt time.Time `gorm:"not null"`
}

// closed_weekdays — регулярные выходные (0=Пн .. 6=Вс).
type ClosedWeekday struct {
	Weekday   int       `gorm:"primaryKey;autoIncrement:false"`
	CreatedAt time.Time `gorm:"not null"`
}
