package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// bookings
//
// Пара (date, time) уникальна на уровне схемы: это вторая линия защиты от двойной записи
// помимо проверки в координаторе.
type Booking struct {
	ID uuid.UUID `gorm:"type:uuid;primaryKey"`

	// Telegram ID владельца записи.
	UserID int64  `gorm:"not null;index"`
	Name   string `gorm:"type:varchar(255)"`

	// ДД.ММ.ГГГГ
	Date string `gorm:"type:varchar(10);not null;uniqueIndex:idx_bookings_date_time,priority:1"`
	// ЧЧ:ММ из фиксированной сетки
	Time string `gorm:"type:varchar(5);not null;uniqueIndex:idx_bookings_date_time,priority:2"`

	// nil — комментарий ещё не запрошен/не получен; "" — пользователь пропустил.
	Comment *string `gorm:"type:text"`

	CreatedAt time.Time `gorm:"not null"`
	UpdatedAt time.Time `gorm:"not null"`
}

func (b *Booking) BeforeCreate(*gorm.DB) error {
	if b.ID == uuid.Nil {
		b.ID = uuid.New()
	}
	return nil
}

// AwaitingComment — запись ещё ждёт комментарий.
func (b *Booking) AwaitingComment() bool {
	return b.Comment == nil
}
