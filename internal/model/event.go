package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Тип события аудита.
type EventType string

const (
	EventTypeBookingCreated     EventType = "booking_created"
	EventTypeBookingCancelled   EventType = "booking_cancelled"
	EventTypeBookingRescheduled EventType = "booking_rescheduled"
	EventTypeDatesBlocked       EventType = "dates_blocked"
	EventTypeDateToggled        EventType = "date_toggled"
	EventTypeBlocksCleared      EventType = "blocks_cleared"
	EventTypeWeekdayToggled     EventType = "weekday_toggled"
)

// events — события аудита
type Event struct {
	ID uuid.UUID `gorm:"type:uuid;primaryKey"`

	EventType EventType `gorm:"type:varchar(64);not null;index"`

	CreatedAt time.Time `gorm:"not null;index"`

	// Кто инициировал (Telegram ID), если известно.
	ActorID   *int64     `gorm:"index"`
	BookingID *uuid.UUID `gorm:"type:uuid;index"`

	Details datatypes.JSON
}

func (e *Event) BeforeCreate(*gorm.DB) error {
	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}
	return nil
}
