package repository

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/Leganyst/booking-core/internal/model"
)

// Дни недели: 0=Пн .. 6=Вс.
type WeekdayRepository interface {
	Exists(ctx context.Context, weekday int) (bool, error)
	List(ctx context.Context) ([]int, error)
	// Переключить выходной, вернуть новое состояние.
	Toggle(ctx context.Context, weekday int) (bool, error)
}

type GormWeekdayRepository struct {
	db      *gorm.DB
	timeout time.Duration
}

func NewGormWeekdayRepository(db *gorm.DB, timeout time.Duration) *GormWeekdayRepository {
	return &GormWeekdayRepository{db: db, timeout: timeout}
}

func (r *GormWeekdayRepository) Exists(ctx context.Context, weekday int) (bool, error) {
	ctx, cancel := queryCtx(ctx, r.timeout)
	defer cancel()

	var n int64
	err := r.db.WithContext(ctx).
		Model(&model.ClosedWeekday{}).
		Where("weekday = ?", weekday).
		Count(&n).
		Error
	return n > 0, translate(err)
}

func (r *GormWeekdayRepository) List(ctx context.Context) ([]int, error) {
	ctx, cancel := queryCtx(ctx, r.timeout)
	defer cancel()

	var days []int
	err := r.db.WithContext(ctx).
		Model(&model.ClosedWeekday{}).
		Order("weekday ASC").
		Pluck("weekday", &days).
		Error
	return days, translate(err)
}

func (r *GormWeekdayRepository) Toggle(ctx context.Context, weekday int) (bool, error) {
	ctx, cancel := queryCtx(ctx, r.timeout)
	defer cancel()

	var closed bool
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Where("weekday = ?", weekday).Delete(&model.ClosedWeekday{})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected > 0 {
			closed = false
			return nil
		}
		closed = true
		// Select нужен, чтобы понедельник (0) не выпал из INSERT как нулевое значение
		return tx.Select("Weekday", "CreatedAt").
			Create(&model.ClosedWeekday{Weekday: weekday, CreatedAt: tx.NowFunc()}).
			Error
	})
	return closed, translate(err)
}
