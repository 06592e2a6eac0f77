package service

import (
	"context"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/Leganyst/booking-core/internal/availability"
	"github.com/Leganyst/booking-core/internal/calendar"
	"github.com/Leganyst/booking-core/internal/feedback"
	"github.com/Leganyst/booking-core/internal/reservation"
	"github.com/Leganyst/booking-core/internal/session"
)

// AdminChecker отвечает, является ли пользователь администратором.
type AdminChecker interface {
	IsAdmin(userID int64) bool
}

// Число полос блокировки сессий; один пользователь всегда попадает в одну полосу.
const sessionLockStripes = 64

// SchedulingService — gRPC-фасад ядра записи для чат-слоя.
type SchedulingService struct {
	engine      *availability.Engine
	coordinator *reservation.Coordinator
	reviews     *feedback.Service
	sessions    session.Store
	admins      AdminChecker
	logger      *slog.Logger

	sessionLocks [sessionLockStripes]sync.Mutex
}

func NewSchedulingService(
	engine *availability.Engine,
	coordinator *reservation.Coordinator,
	reviews *feedback.Service,
	sessions session.Store,
	admins AdminChecker,
	logger *slog.Logger,
) *SchedulingService {
	if logger == nil {
		logger = slog.Default()
	}
	return &SchedulingService{
		engine:      engine,
		coordinator: coordinator,
		reviews:     reviews,
		sessions:    sessions,
		admins:      admins,
		logger:      logger,
	}
}

// RenderCalendar строит календарь; навигация применяется к переданному окну.
func (s *SchedulingService) RenderCalendar(ctx context.Context, req *RenderCalendarRequest) (*RenderCalendarResponse, error) {
	mode := req.Mode
	if mode == "" {
		mode = calendar.ModeUser
	}
	if mode == calendar.ModeAdmin {
		if err := s.requireAdmin("RenderCalendar", req.UserID); err != nil {
			return nil, err
		}
	}

	span := req.Span
	if span == 0 {
		span = 1
	}

	view := calendar.NewView(s.engine.Today(), span, mode)
	if req.Year != 0 {
		view = calendar.View{Year: req.Year, Month: time.Month(req.Month), Span: span, Mode: mode}
	}
	switch req.Nav {
	case "":
	case "prev":
		view = view.Prev()
	case "next":
		view = view.Next()
	default:
		return nil, toStatus(availability.E("RenderCalendar", availability.KindInvalidArgument, "unknown nav %q", req.Nav))
	}

	cal, err := s.engine.Render(ctx, view)
	if err != nil {
		return nil, toStatus(err)
	}
	return &RenderCalendarResponse{Calendar: cal}, nil
}

func (s *SchedulingService) MonthPicker(ctx context.Context, req *MonthPickerRequest) (*MonthPickerResponse, error) {
	mode := req.Mode
	if mode == "" {
		mode = calendar.ModeUser
	}
	year := req.Year
	if year == 0 {
		year = s.engine.Today().Year()
	}
	return &MonthPickerResponse{Picker: calendar.NewMonthPicker(year, mode)}, nil
}

// Сетка времени фиксирована, занятость проверяет Reserve.
func (s *SchedulingService) ListTimeSlots(ctx context.Context, req *ListTimeSlotsRequest) (*ListTimeSlotsResponse, error) {
	day, err := calendar.ParseDay(req.Date)
	if err != nil {
		return nil, toStatus(availability.E("ListTimeSlots", availability.KindInvalidArgument, "date %q", req.Date))
	}
	return &ListTimeSlotsResponse{Date: calendar.FormatISO(day), Times: s.engine.TimeSlots()}, nil
}

func (s *SchedulingService) Reserve(ctx context.Context, req *ReserveRequest) (*BookingResponse, error) {
	b, err := s.coordinator.Reserve(ctx, reservation.ReserveRequest{
		Date:   req.Date,
		Time:   req.Time,
		UserID: req.UserID,
		Name:   req.Name,
	})
	if err != nil {
		return nil, toStatus(err)
	}
	return &BookingResponse{Booking: mapBooking(b)}, nil
}

func (s *SchedulingService) Reschedule(ctx context.Context, req *RescheduleRequest) (*BookingResponse, error) {
	if err := s.requireAdmin("Reschedule", req.UserID); err != nil {
		return nil, err
	}
	id, err := parseBookingID("Reschedule", req.BookingID)
	if err != nil {
		return nil, err
	}

	b, err := s.coordinator.Reschedule(ctx, id, req.NewDate)
	if err != nil {
		return nil, toStatus(err)
	}
	return &BookingResponse{Booking: mapBooking(b)}, nil
}

func (s *SchedulingService) Cancel(ctx context.Context, req *CancelRequest) (*BookingResponse, error) {
	if err := s.requireAdmin("Cancel", req.UserID); err != nil {
		return nil, err
	}
	id, err := parseBookingID("Cancel", req.BookingID)
	if err != nil {
		return nil, err
	}

	b, err := s.coordinator.Cancel(ctx, id)
	if err != nil {
		return nil, toStatus(err)
	}
	return &BookingResponse{Booking: mapBooking(b)}, nil
}

func (s *SchedulingService) ListBookings(ctx context.Context, req *ListBookingsRequest) (*ListBookingsResponse, error) {
	owner := req.UserID
	if s.admins.IsAdmin(req.UserID) {
		owner = 0
	} else if owner <= 0 {
		return nil, toStatus(availability.E("ListBookings", availability.KindInvalidArgument, "user id is required"))
	}

	page, err := s.coordinator.ListBookings(ctx, owner, req.Page, req.PageSize)
	if err != nil {
		return nil, toStatus(err)
	}

	items := make([]Booking, 0, len(page.Items))
	for i := range page.Items {
		items = append(items, mapBooking(&page.Items[i]))
	}
	return &ListBookingsResponse{Page: calendar.Page[Booking]{
		Items:    items,
		Page:     page.Page,
		PageSize: page.PageSize,
		HasNext:  page.HasNext,
		HasPrev:  page.HasPrev,
		Total:    page.Total,
	}}, nil
}

// SelectAdminDate обрабатывает нажатие админа на дату в админском календаре.
func (s *SchedulingService) SelectAdminDate(ctx context.Context, req *SelectAdminDateRequest) (*SelectAdminDateResponse, error) {
	if err := s.requireAdmin("SelectAdminDate", req.UserID); err != nil {
		return nil, err
	}

	var res reservation.TapResult
	err := s.withSession(ctx, req.UserID, func(sess *session.Session) error {
		var err error
		res, err = s.coordinator.SelectDate(ctx, sess, req.Date)
		return err
	})
	if err != nil {
		return nil, toStatus(err)
	}
	return &SelectAdminDateResponse{Result: res}, nil
}

func (s *SchedulingService) BeginRangeSelection(ctx context.Context, req *UserRequest) (*RangeStageResponse, error) {
	if err := s.requireAdmin("BeginRangeSelection", req.UserID); err != nil {
		return nil, err
	}

	var stage session.Stage
	err := s.withSession(ctx, req.UserID, func(sess *session.Session) error {
		s.coordinator.BeginRangeSelection(sess)
		stage = sess.Range.Stage
		return nil
	})
	if err != nil {
		return nil, toStatus(err)
	}
	return &RangeStageResponse{Stage: stage}, nil
}

func (s *SchedulingService) CancelRangeSelection(ctx context.Context, req *UserRequest) (*RangeStageResponse, error) {
	if err := s.requireAdmin("CancelRangeSelection", req.UserID); err != nil {
		return nil, err
	}

	err := s.withSession(ctx, req.UserID, func(sess *session.Session) error {
		s.coordinator.CancelRangeSelection(sess)
		return nil
	})
	if err != nil {
		return nil, toStatus(err)
	}
	return &RangeStageResponse{Stage: session.StageIdle}, nil
}

func (s *SchedulingService) BlockRange(ctx context.Context, req *BlockRangeRequest) (*BlockRangeResponse, error) {
	if err := s.requireAdmin("BlockRange", req.UserID); err != nil {
		return nil, err
	}

	n, err := s.coordinator.BlockRange(ctx, req.Start, req.End)
	if err != nil {
		return nil, toStatus(err)
	}
	return &BlockRangeResponse{Inserted: n}, nil
}

func (s *SchedulingService) ClearBlocks(ctx context.Context, req *UserRequest) (*ClearBlocksResponse, error) {
	if err := s.requireAdmin("ClearBlocks", req.UserID); err != nil {
		return nil, err
	}

	n, err := s.coordinator.ClearBlocks(ctx)
	if err != nil {
		return nil, toStatus(err)
	}
	return &ClearBlocksResponse{Removed: n}, nil
}

func (s *SchedulingService) ToggleWeekday(ctx context.Context, req *ToggleWeekdayRequest) (*ToggleWeekdayResponse, error) {
	if err := s.requireAdmin("ToggleWeekday", req.UserID); err != nil {
		return nil, err
	}

	closed, err := s.coordinator.ToggleWeekday(ctx, req.Weekday)
	if err != nil {
		return nil, toStatus(err)
	}
	days, err := s.coordinator.ClosedWeekdays(ctx)
	if err != nil {
		return nil, toStatus(err)
	}
	return &ToggleWeekdayResponse{Closed: closed, ClosedWeekdays: days}, nil
}

func (s *SchedulingService) ListClosedWeekdays(ctx context.Context, req *UserRequest) (*ClosedWeekdaysResponse, error) {
	if err := s.requireAdmin("ListClosedWeekdays", req.UserID); err != nil {
		return nil, err
	}

	days, err := s.coordinator.ClosedWeekdays(ctx)
	if err != nil {
		return nil, toStatus(err)
	}
	return &ClosedWeekdaysResponse{Weekdays: days}, nil
}

// SubmitMessage — свободный текст пользователя: отзыв, если он ожидается,
// иначе комментарий к последней записи.
func (s *SchedulingService) SubmitMessage(ctx context.Context, req *SubmitMessageRequest) (*SubmitMessageResponse, error) {
	var resp *SubmitMessageResponse
	err := s.withSession(ctx, req.UserID, func(sess *session.Session) error {
		if sess.PendingReview {
			r, err := s.reviews.Submit(ctx, sess, req.Name, req.Text)
			if err != nil {
				return err
			}
			view := mapReview(r)
			resp = &SubmitMessageResponse{Kind: "review", Review: &view}
			return nil
		}

		b, err := s.coordinator.AttachComment(ctx, req.UserID, req.Text)
		if err != nil {
			return err
		}
		view := mapBooking(b)
		resp = &SubmitMessageResponse{Kind: "comment", Booking: &view}
		return nil
	})
	if err != nil {
		return nil, toStatus(err)
	}
	return resp, nil
}

func (s *SchedulingService) SkipComment(ctx context.Context, req *UserRequest) (*BookingResponse, error) {
	b, err := s.coordinator.SkipComment(ctx, req.UserID)
	if err != nil {
		return nil, toStatus(err)
	}
	return &BookingResponse{Booking: mapBooking(b)}, nil
}

func (s *SchedulingService) BeginReview(ctx context.Context, req *UserRequest) (*Empty, error) {
	err := s.withSession(ctx, req.UserID, func(sess *session.Session) error {
		s.reviews.Begin(sess)
		return nil
	})
	if err != nil {
		return nil, toStatus(err)
	}
	return &Empty{}, nil
}

func (s *SchedulingService) ListReviews(ctx context.Context, req *ListReviewsRequest) (*ListReviewsResponse, error) {
	reviews, err := s.reviews.List(ctx, req.Limit)
	if err != nil {
		return nil, toStatus(err)
	}
	out := make([]Review, 0, len(reviews))
	for i := range reviews {
		out = append(out, mapReview(&reviews[i]))
	}
	return &ListReviewsResponse{Reviews: out}, nil
}

func (s *SchedulingService) requireAdmin(op string, userID int64) error {
	if userID <= 0 || !s.admins.IsAdmin(userID) {
		return toStatus(availability.E(op, availability.KindPermissionDenied, "user %d is not an admin", userID))
	}
	return nil
}

// withSession загружает сессию, выполняет fn и сохраняет результат.
// Сессия сохраняется и при ошибке fn: операции меняют её только при успехе.
// Запросы одного пользователя проходят load-fn-save по очереди (в пределах процесса).
func (s *SchedulingService) withSession(ctx context.Context, userID int64, fn func(*session.Session) error) error {
	const op = "session"

	if userID <= 0 {
		return availability.E(op, availability.KindInvalidArgument, "user id is required")
	}
	mu := s.sessionLock(userID)
	mu.Lock()
	defer mu.Unlock()

	sess, err := s.sessions.Load(ctx, userID)
	if err != nil {
		return availability.E(op, availability.KindStorageUnavailable, "load: %v", err)
	}

	fnErr := fn(sess)

	if err := s.sessions.Save(ctx, sess); err != nil {
		s.logger.WarnContext(ctx, "session save failed", "user_id", userID, "err", err)
		if fnErr == nil {
			return availability.E(op, availability.KindStorageUnavailable, "save: %v", err)
		}
	}
	return fnErr
}

func (s *SchedulingService) sessionLock(userID int64) *sync.Mutex {
	return &s.sessionLocks[uint64(userID)%sessionLockStripes]
}

func parseBookingID(op, raw string) (uuid.UUID, error) {
	id, err := uuid.Parse(strings.TrimSpace(raw))
	if err != nil {
		return uuid.Nil, toStatus(availability.E(op, availability.KindInvalidArgument, "booking_id %q", raw))
	}
	return id, nil
}
