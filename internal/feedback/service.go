// Package feedback stores user reviews.
package feedback

import (
	"context"
	"log/slog"
	"slices"
	"strings"

	"github.com/Leganyst/booking-core/internal/availability"
	"github.com/Leganyst/booking-core/internal/model"
	"github.com/Leganyst/booking-core/internal/notify"
	"github.com/Leganyst/booking-core/internal/repository"
	"github.com/Leganyst/booking-core/internal/session"
)

const DefaultListLimit = 10

type Service struct {
	reviews  repository.ReviewRepository
	notifier notify.Notifier
	admins   []int64
	logger   *slog.Logger
}

func NewService(reviews repository.ReviewRepository, notifier notify.Notifier, admins []int64, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		reviews:  reviews,
		notifier: notifier,
		admins:   slices.Clone(admins),
		logger:   logger,
	}
}

// Begin — следующее сообщение пользователя станет отзывом.
func (s *Service) Begin(sess *session.Session) {
	sess.PendingReview = true
}

// Submit сохраняет отзыв, если он ожидался, и снимает флаг.
func (s *Service) Submit(ctx context.Context, sess *session.Session, name, text string) (*model.Review, error) {
	const op = "feedback.submit"

	if !sess.PendingReview {
		return nil, availability.E(op, availability.KindInvalidArgument, "review was not requested")
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, availability.E(op, availability.KindInvalidArgument, "empty review")
	}

	review := &model.Review{UserID: sess.UserID, Name: strings.TrimSpace(name), Text: text}
	if err := s.reviews.Create(ctx, review); err != nil {
		return nil, availability.FromStorage(op, err)
	}
	sess.PendingReview = false

	notify.Deliver(ctx, s.notifier, s.logger, notify.ToAll(s.admins, notify.Notification{
		Kind:   notify.KindReviewAdded,
		UserID: review.UserID,
		Name:   review.Name,
		Text:   review.Text,
	})...)
	return review, nil
}

func (s *Service) List(ctx context.Context, limit int) ([]model.Review, error) {
	if limit <= 0 {
		limit = DefaultListLimit
	}
	reviews, err := s.reviews.ListRecent(ctx, limit)
	if err != nil {
		return nil, availability.FromStorage("feedback.list", err)
	}
	return reviews, nil
}
