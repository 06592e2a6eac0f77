package repository

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/Leganyst/booking-core/internal/model"
)

type ReviewRepository interface {
	Create(ctx context.Context, review *model.Review) error
	// Последние отзывы, новые первыми.
	ListRecent(ctx context.Context, limit int) ([]model.Review, error)
}

type GormReviewRepository struct {
	db      *gorm.DB
	timeout time.Duration
}

func NewGormReviewRepository(db *gorm.DB, timeout time.Duration) *GormReviewRepository {
	return &GormReviewRepository{db: db, timeout: timeout}
}

func (r *GormReviewRepository) Create(ctx context.Context, review *model.Review) error {
	ctx, cancel := queryCtx(ctx, r.timeout)
	defer cancel()

	return translate(r.db.WithContext(ctx).Create(review).Error)
}

func (r *GormReviewRepository) ListRecent(ctx context.Context, limit int) ([]model.Review, error) {
	ctx, cancel := queryCtx(ctx, r.timeout)
	defer cancel()

	q := r.db.WithContext(ctx).Order("created_at DESC")
	if limit > 0 {
		q = q.Limit(limit)
	}

	var reviews []model.Review
	if err := q.Find(&reviews).Error; err != nil {
		return nil, translate(err)
	}
	return reviews, nil
}
