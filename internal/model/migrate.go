package model

import "gorm.io/gorm"

// AutoMigrate выполняет миграцию всех сущностей ядра записи.
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&Booking{},
		&BlockedDate{},
		&ClosedWeekday{},
		&Review{},
		&Event{},
	)
}
