package repository

import (
	"context"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/Leganyst/booking-core/internal/model"
)

// Даты здесь всегда в ISO (ГГГГ-ММ-ДД).
type BlockedDateRepository interface {
	Exists(ctx context.Context, date string) (bool, error)
	// Какие из дат заблокированы — одним запросом.
	ExistingAmong(ctx context.Context, dates []string) (map[string]bool, error)
	// Добавить отсутствующие даты, вернуть число реально добавленных.
	InsertMissing(ctx context.Context, dates []string) (int, error)
	// Переключить блокировку, вернуть новое состояние.
	Toggle(ctx context.Context, date string) (bool, error)
	DeleteAll(ctx context.Context) (int, error)
	List(ctx context.Context) ([]string, error)
}

type GormBlockedDateRepository struct {
	db      *gorm.DB
	timeout time.Duration
}

func NewGormBlockedDateRepository(db *gorm.DB, timeout time.Duration) *GormBlockedDateRepository {
	return &GormBlockedDateRepository{db: db, timeout: timeout}
}

func (r *GormBlockedDateRepository) Exists(ctx context.Context, date string) (bool, error) {
	ctx, cancel := queryCtx(ctx, r.timeout)
	defer cancel()

	var n int64
	err := r.db.WithContext(ctx).
		Model(&model.BlockedDate{}).
		Where("date = ?", date).
		Count(&n).
		Error
	return n > 0, translate(err)
}

func (r *GormBlockedDateRepository) ExistingAmong(ctx context.Context, dates []string) (map[string]bool, error) {
	out := make(map[string]bool)
	if len(dates) == 0 {
		return out, nil
	}

	ctx, cancel := queryCtx(ctx, r.timeout)
	defer cancel()

	var found []string
	err := r.db.WithContext(ctx).
		Model(&model.BlockedDate{}).
		Where("date IN ?", dates).
		Pluck("date", &found).
		Error
	if err != nil {
		return nil, translate(err)
	}
	for _, d := range found {
		out[d] = true
	}
	return out, nil
}

func (r *GormBlockedDateRepository) InsertMissing(ctx context.Context, dates []string) (int, error) {
	if len(dates) == 0 {
		return 0, nil
	}

	ctx, cancel := queryCtx(ctx, r.timeout)
	defer cancel()

	now := r.db.NowFunc()
	rows := make([]model.BlockedDate, 0, len(dates))
	for _, d := range dates {
		rows = append(rows, model.BlockedDate{Date: d, CreatedAt: now})
	}

	res := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&rows)
	if res.Error != nil {
		return 0, translate(res.Error)
	}
	return int(res.RowsAffected), nil
}

func (r *GormBlockedDateRepository) Toggle(ctx context.Context, date string) (bool, error) {
	ctx, cancel := queryCtx(ctx, r.timeout)
	defer cancel()

	var blocked bool
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Where("date = ?", date).Delete(&model.BlockedDate{})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected > 0 {
			blocked = false
			return nil
		}
		blocked = true
		return tx.Create(&model.BlockedDate{Date: date, CreatedAt: tx.NowFunc()}).Error
	})
	return blocked, translate(err)
}

func (r *GormBlockedDateRepository) DeleteAll(ctx context.Context) (int, error) {
	ctx, cancel := queryCtx(ctx, r.timeout)
	defer cancel()

	res := r.db.WithContext(ctx).
		Session(&gorm.Session{AllowGlobalUpdate: true}).
		Delete(&model.BlockedDate{})
	return int(res.RowsAffected), translate(res.Error)
}

func (r *GormBlockedDateRepository) List(ctx context.Context) ([]string, error) {
	ctx, cancel := queryCtx(ctx, r.timeout)
	defer cancel()

	var dates []string
	err := r.db.WithContext(ctx).
		Model(&model.BlockedDate{}).
		Order("date ASC").
		Pluck("date", &dates).
		Error
	return dates, translate(err)
}
