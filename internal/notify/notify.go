// Package notify sends best-effort messages to users and admins.
package notify

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"
)

// DefaultDeliverTimeout ограничивает ожидание доставки уведомлений одной операции.
const DefaultDeliverTimeout = 2 * time.Second

type Kind string

const (
	KindBookingCreated     Kind = "booking_created"
	KindBookingRescheduled Kind = "booking_rescheduled"
	KindBookingCancelled   Kind = "booking_cancelled"
	KindCommentAdded       Kind = "comment_added"
	KindReviewAdded        Kind = "review_added"
)

// Notification — данные для сообщения; текст формирует слой представления.
type Notification struct {
	Recipient int64  `json:"recipient"`
	Kind      Kind   `json:"kind"`
	BookingID string `json:"booking_id,omitempty"`
	UserID    int64  `json:"user_id,omitempty"`
	Name      string `json:"name,omitempty"`
	Date      string `json:"date,omitempty"`
	Time      string `json:"time,omitempty"`
	// Прежняя дата при переносе.
	PrevDate string `json:"prev_date,omitempty"`
	Text     string `json:"text,omitempty"`
}

type Notifier interface {
	Notify(ctx context.Context, n Notification) error
}

// BatchNotifier отправляет пачку уведомлений одним вызовом.
type BatchNotifier interface {
	NotifyAll(ctx context.Context, ns ...Notification) error
}

// Multi рассылает через все нотификаторы, ошибки объединяются.
type Multi []Notifier

func (m Multi) Notify(ctx context.Context, n Notification) error {
	return m.NotifyAll(ctx, n)
}

func (m Multi) NotifyAll(ctx context.Context, ns ...Notification) error {
	var errs []error
	for _, nt := range m {
		if err := notifyAll(ctx, nt, ns); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Deliver отправляет уведомления и проглатывает ошибки: получатель мог
// заблокировать бота, на результат операции это не влияет.
func Deliver(ctx context.Context, nt Notifier, logger *slog.Logger, ns ...Notification) {
	DeliverWithin(ctx, DefaultDeliverTimeout, nt, logger, ns...)
}

// DeliverWithin ждёт доставку не дольше timeout. Запись к этому моменту уже
// сохранена, поэтому отмена запроса доставку не прерывает, а медленный
// брокер не задерживает ответ.
func DeliverWithin(ctx context.Context, timeout time.Duration, nt Notifier, logger *slog.Logger, ns ...Notification) {
	if nt == nil || len(ns) == 0 {
		return
	}
	if logger == nil {
		logger = slog.Default()
	}
	if timeout <= 0 {
		timeout = DefaultDeliverTimeout
	}

	sendCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), timeout)
	defer cancel()

	done := make(chan error, 1)
	go func() { done <- notifyAll(sendCtx, nt, ns) }()

	select {
	case err := <-done:
		if err != nil {
			logger.WarnContext(ctx, "notification dropped",
				"kind", ns[0].Kind,
				"count", len(ns),
				"err", err,
			)
		}
	case <-sendCtx.Done():
		logger.WarnContext(ctx, "notification delivery timed out",
			"kind", ns[0].Kind,
			"count", len(ns),
			"timeout", timeout,
		)
	}
}

func notifyAll(ctx context.Context, nt Notifier, ns []Notification) error {
	if b, ok := nt.(BatchNotifier); ok {
		return b.NotifyAll(ctx, ns...)
	}
	var errs []error
	for _, n := range ns {
		if err := nt.Notify(ctx, n); err != nil {
			errs = append(errs, fmt.Errorf("recipient %d: %w", n.Recipient, err))
		}
	}
	return errors.Join(errs...)
}

// ToAll размножает уведомление на список получателей.
func ToAll(recipients []int64, n Notification) []Notification {
	out := make([]Notification, 0, len(recipients))
	for _, r := range recipients {
		n.Recipient = r
		out = append(out, n)
	}
	return out
}

// LogNotifier пишет уведомления в лог; используется, когда брокер не настроен.
type LogNotifier struct {
	logger *slog.Logger
}

func NewLogNotifier(logger *slog.Logger) *LogNotifier {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogNotifier{logger: logger}
}

func (l *LogNotifier) Notify(ctx context.Context, n Notification) error {
	l.logger.InfoContext(ctx, "notification",
		"kind", n.Kind,
		"recipient", n.Recipient,
		"booking_id", n.BookingID,
		"date", n.Date,
		"time", n.Time,
	)
	return nil
}
