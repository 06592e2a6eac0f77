package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/Leganyst/booking-core/internal/model"
)

type BookingRepository interface {
	// Создать запись, если на дату набрано меньше capacity (capacity <= 0 — без проверки).
	// Подсчёт и вставка выполняются одной транзакцией.
	CreateWithinCapacity(ctx context.Context, booking *model.Booking, capacity int) error
	// Получить запись по ID.
	GetByID(ctx context.Context, id uuid.UUID) (*model.Booking, error)
	// Количество записей на дату (ДД.ММ.ГГГГ).
	CountByDate(ctx context.Context, date string) (int64, error)
	// Количество записей по набору дат одним запросом.
	CountByDates(ctx context.Context, dates []string) (map[string]int, error)
	// Есть ли запись ровно на (date, time).
	ExistsAt(ctx context.Context, date, slot string) (bool, error)
	// Перенести запись на другую дату; capacity <= 0 — без проверки лимита.
	UpdateDate(ctx context.Context, id uuid.UUID, date string, capacity int) error
	// Удалить запись.
	Delete(ctx context.Context, id uuid.UUID) error
	// Все записи (userID == 0) или записи одного пользователя.
	List(ctx context.Context, userID int64) ([]model.Booking, error)
	// Последняя запись пользователя, ожидающая комментарий.
	LatestAwaitingComment(ctx context.Context, userID int64) (*model.Booking, error)
	// Сохранить комментарий, если он ещё не был сохранён.
	SetComment(ctx context.Context, id uuid.UUID, comment string) error
}

// Реализация на GORM.
type GormBookingRepository struct {
	db      *gorm.DB
	timeout time.Duration
}

func NewGormBookingRepository(db *gorm.DB, timeout time.Duration) *GormBookingRepository {
	return &GormBookingRepository{db: db, timeout: timeout}
}

func (r *GormBookingRepository) CreateWithinCapacity(ctx context.Context, booking *model.Booking, capacity int) error {
	ctx, cancel := queryCtx(ctx, r.timeout)
	defer cancel()

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := lockDate(tx, booking.Date); err != nil {
			return err
		}
		if capacity > 0 {
			var n int64
			if err := tx.Model(&model.Booking{}).Where("date = ?", booking.Date).Count(&n).Error; err != nil {
				return err
			}
			if n >= int64(capacity) {
				return ErrCapacityReached
			}
		}
		return tx.Create(booking).Error
	})
	return translate(err)
}

func (r *GormBookingRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.Booking, error) {
	ctx, cancel := queryCtx(ctx, r.timeout)
	defer cancel()

	var b model.Booking
	if err := r.db.WithContext(ctx).First(&b, "id = ?", id).Error; err != nil {
		return nil, translate(err)
	}
	return &b, nil
}

func (r *GormBookingRepository) CountByDate(ctx context.Context, date string) (int64, error) {
	ctx, cancel := queryCtx(ctx, r.timeout)
	defer cancel()

	var n int64
	err := r.db.WithContext(ctx).
		Model(&model.Booking{}).
		Where("date = ?", date).
		Count(&n).
		Error
	return n, translate(err)
}

func (r *GormBookingRepository) CountByDates(ctx context.Context, dates []string) (map[string]int, error) {
	out := make(map[string]int, len(dates))
	if len(dates) == 0 {
		return out, nil
	}

	ctx, cancel := queryCtx(ctx, r.timeout)
	defer cancel()

	var rows []struct {
		Date string
		N    int
	}
	err := r.db.WithContext(ctx).
		Model(&model.Booking{}).
		Select("date, COUNT(*) AS n").
		Where("date IN ?", dates).
		Group("date").
		Scan(&rows).
		Error
	if err != nil {
		return nil, translate(err)
	}
	for _, row := range rows {
		out[row.Date] = row.N
	}
	return out, nil
}

func (r *GormBookingRepository) ExistsAt(ctx context.Context, date, slot string) (bool, error) {
	ctx, cancel := queryCtx(ctx, r.timeout)
	defer cancel()

	var n int64
	err := r.db.WithContext(ctx).
		Model(&model.Booking{}).
		Where("date = ? AND time = ?", date, slot).
		Count(&n).
		Error
	return n > 0, translate(err)
}

func (r *GormBookingRepository) UpdateDate(ctx context.Context, id uuid.UUID, date string, capacity int) error {
	ctx, cancel := queryCtx(ctx, r.timeout)
	defer cancel()

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := lockDate(tx, date); err != nil {
			return err
		}
		if capacity > 0 {
			var n int64
			err := tx.Model(&model.Booking{}).
				Where("date = ? AND id <> ?", date, id).
				Count(&n).
				Error
			if err != nil {
				return err
			}
			if n >= int64(capacity) {
				return ErrCapacityReached
			}
		}

		res := tx.Model(&model.Booking{}).Where("id = ?", id).Update("date", date)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrNotFound
		}
		return nil
	})
	return translate(err)
}

func (r *GormBookingRepository) Delete(ctx context.Context, id uuid.UUID) error {
	ctx, cancel := queryCtx(ctx, r.timeout)
	defer cancel()

	res := r.db.WithContext(ctx).Where("id = ?", id).Delete(&model.Booking{})
	if res.Error != nil {
		return translate(res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *GormBookingRepository) List(ctx context.Context, userID int64) ([]model.Booking, error) {
	ctx, cancel := queryCtx(ctx, r.timeout)
	defer cancel()

	q := r.db.WithContext(ctx).Model(&model.Booking{})
	if userID != 0 {
		q = q.Where("user_id = ?", userID)
	}

	var bookings []model.Booking
	if err := q.Order("created_at ASC").Find(&bookings).Error; err != nil {
		return nil, translate(err)
	}
	return bookings, nil
}

func (r *GormBookingRepository) LatestAwaitingComment(ctx context.Context, userID int64) (*model.Booking, error) {
	ctx, cancel := queryCtx(ctx, r.timeout)
	defer cancel()

	var b model.Booking
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND comment IS NULL", userID).
		Order("created_at DESC").
		First(&b).
		Error
	if err != nil {
		return nil, translate(err)
	}
	return &b, nil
}

func (r *GormBookingRepository) SetComment(ctx context.Context, id uuid.UUID, comment string) error {
	ctx, cancel := queryCtx(ctx, r.timeout)
	defer cancel()

	// условие comment IS NULL гарантирует не более одного комментария
	res := r.db.WithContext(ctx).
		Model(&model.Booking{}).
		Where("id = ? AND comment IS NULL", id).
		Update("comment", comment)
	if res.Error != nil {
		return translate(res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// lockDate сериализует транзакции по одной дате. В postgres — advisory lock
// до конца транзакции; sqlite работает через одно соединение и лок не нужен.
func lockDate(tx *gorm.DB, date string) error {
	if tx.Dialector.Name() != "postgres" {
		return nil
	}
	return tx.Exec("SELECT pg_advisory_xact_lock(hashtext(?))", "bookings:"+date).Error
}
