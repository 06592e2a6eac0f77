package availability

import (
	"context"
	"errors"
	"fmt"

	"github.com/Leganyst/booking-core/internal/repository"
)

// Kind — тип отказа, по которому вызывающий выбирает сообщение пользователю.
type Kind string

const (
	KindUnknown            Kind = ""
	KindOutOfRange         Kind = "out_of_range"
	KindBlocked            Kind = "blocked"
	KindFull               Kind = "full"
	KindSlotTaken          Kind = "slot_taken"
	KindNotFound           Kind = "not_found"
	KindStorageUnavailable Kind = "storage_unavailable"
	KindInvalidArgument    Kind = "invalid_argument"
	KindPermissionDenied   Kind = "permission_denied"
)

// Error — типизированный отказ ядра. Op — операция, Reason — подробности
// (сообщение причины хранилища, но никогда сам драйверный error).
type Error struct {
	Kind   Kind
	Op     string
	Reason string
}

func (e *Error) Error() string {
	msg := string(e.Kind)
	if e.Op != "" {
		msg = e.Op + ": " + msg
	}
	if e.Reason != "" {
		msg += ": " + e.Reason
	}
	return msg
}

// Is сравнивает только Kind, поэтому errors.Is(err, ErrFull) работает
// для любой операции.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Kind == e.Kind
}

var (
	ErrOutOfRange         = &Error{Kind: KindOutOfRange}
	ErrBlocked            = &Error{Kind: KindBlocked}
	ErrFull               = &Error{Kind: KindFull}
	ErrSlotTaken          = &Error{Kind: KindSlotTaken}
	ErrNotFound           = &Error{Kind: KindNotFound}
	ErrStorageUnavailable = &Error{Kind: KindStorageUnavailable}
	ErrInvalidArgument    = &Error{Kind: KindInvalidArgument}
	ErrPermissionDenied   = &Error{Kind: KindPermissionDenied}
)

func E(op string, kind Kind, format string, args ...any) error {
	return &Error{Kind: kind, Op: op, Reason: fmt.Sprintf(format, args...)}
}

// FromStorage переводит ошибку репозитория в типизированный отказ.
func FromStorage(op string, err error) error {
	if err == nil {
		return nil
	}

	var own *Error
	if errors.As(err, &own) {
		return err
	}

	switch {
	case errors.Is(err, repository.ErrNotFound):
		return &Error{Kind: KindNotFound, Op: op}
	case errors.Is(err, repository.ErrDuplicate):
		return &Error{Kind: KindSlotTaken, Op: op}
	case errors.Is(err, repository.ErrCapacityReached):
		return &Error{Kind: KindFull, Op: op}
	case errors.Is(err, context.Canceled):
		return &Error{Kind: KindStorageUnavailable, Op: op, Reason: "request cancelled"}
	}
	return &Error{Kind: KindStorageUnavailable, Op: op, Reason: err.Error()}
}

// KindOf возвращает тип отказа; KindUnknown для посторонних ошибок.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnknown
}

// IsRetryable: повторять имеет смысл только временную недоступность
// хранилища, и только для чтений.
func IsRetryable(err error) bool {
	return KindOf(err) == KindStorageUnavailable
}
