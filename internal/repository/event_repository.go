package repository

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/Leganyst/booking-core/internal/model"
)

// EventRepository — журнал аудита.
type EventRepository interface {
	Record(ctx context.Context, eventType model.EventType, actorID *int64, bookingID *uuid.UUID, details any) error
	ListByBooking(ctx context.Context, bookingID uuid.UUID) ([]model.Event, error)
	ListByType(ctx context.Context, eventType model.EventType) ([]model.Event, error)
}

type GormEventRepository struct {
	db      *gorm.DB
	timeout time.Duration
}

func NewGormEventRepository(db *gorm.DB, timeout time.Duration) *GormEventRepository {
	return &GormEventRepository{db: db, timeout: timeout}
}

func (r *GormEventRepository) Record(
	ctx context.Context,
	eventType model.EventType,
	actorID *int64,
	bookingID *uuid.UUID,
	details any,
) error {
	var payload datatypes.JSON
	if details != nil {
		raw, err := json.Marshal(details)
		if err != nil {
			return err
		}
		payload = datatypes.JSON(raw)
	}

	ctx, cancel := queryCtx(ctx, r.timeout)
	defer cancel()

	ev := &model.Event{
		EventType: eventType,
		ActorID:   actorID,
		BookingID: bookingID,
		Details:   payload,
	}
	return translate(r.db.WithContext(ctx).Create(ev).Error)
}

func (r *GormEventRepository) ListByBooking(ctx context.Context, bookingID uuid.UUID) ([]model.Event, error) {
	ctx, cancel := queryCtx(ctx, r.timeout)
	defer cancel()

	var events []model.Event
	err := r.db.WithContext(ctx).
		Where("booking_id = ?", bookingID).
		Order("created_at ASC").
		Find(&events).
		Error
	return events, translate(err)
}

func (r *GormEventRepository) ListByType(ctx context.Context, eventType model.EventType) ([]model.Event, error) {
	ctx, cancel := queryCtx(ctx, r.timeout)
	defer cancel()

	var events []model.Event
	err := r.db.WithContext(ctx).
		Where("event_type = ?", eventType).
		Order("created_at ASC").
		Find(&events).
		Error
	return events, translate(err)
}
