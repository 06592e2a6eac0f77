package service

import (
	"errors"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/Leganyst/booking-core/internal/availability"
)

var kindCodes = map[availability.Kind]codes.Code{
	availability.KindOutOfRange:         codes.OutOfRange,
	availability.KindBlocked:            codes.FailedPrecondition,
	availability.KindFull:               codes.ResourceExhausted,
	availability.KindSlotTaken:          codes.AlreadyExists,
	availability.KindNotFound:           codes.NotFound,
	availability.KindStorageUnavailable: codes.Unavailable,
	availability.KindInvalidArgument:    codes.InvalidArgument,
	availability.KindPermissionDenied:   codes.PermissionDenied,
}

// toStatus переводит отказ ядра в gRPC-статус. Уже готовые статусы не трогает.
func toStatus(err error) error {
	if err == nil {
		return nil
	}
	var own *availability.Error
	if !errors.As(err, &own) {
		if _, ok := status.FromError(err); ok {
			return err
		}
		return status.Error(codes.Internal, err.Error())
	}
	code, ok := kindCodes[own.Kind]
	if !ok {
		code = codes.Internal
	}
	return status.Error(code, err.Error())
}

// fromStatus — обратное преобразование на стороне клиента.
func fromStatus(method string, err error) error {
	if err == nil {
		return nil
	}
	st, ok := status.FromError(err)
	if !ok {
		return availability.E(method, availability.KindStorageUnavailable, "%v", err)
	}
	for kind, code := range kindCodes {
		if st.Code() == code {
			return &availability.Error{Kind: kind, Op: method, Reason: st.Message()}
		}
	}
	// DeadlineExceeded/Canceled и прочее транспортное
	return err
}
