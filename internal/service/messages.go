package service

import (
	"time"

	"github.com/Leganyst/booking-core/internal/availability"
	"github.com/Leganyst/booking-core/internal/calendar"
	"github.com/Leganyst/booking-core/internal/model"
	"github.com/Leganyst/booking-core/internal/reservation"
	"github.com/Leganyst/booking-core/internal/session"
)

// Во всех запросах UserID — Telegram ID того, кто действует.

type Empty struct{}

type Booking struct {
	ID      string  `json:"id"`
	UserID  int64   `json:"user_id"`
	Name    string  `json:"name"`
	Date    string  `json:"date"`
	Time    string  `json:"time"`
	Comment *string `json:"comment,omitempty"`
}

type Review struct {
	ID        string    `json:"id"`
	UserID    int64     `json:"user_id"`
	Name      string    `json:"name"`
	Text      string    `json:"text"`
	CreatedAt time.Time `json:"created_at"`
}

// Year == 0 — окно с текущего месяца. Nav: "", "prev", "next".
type RenderCalendarRequest struct {
	UserID int64         `json:"user_id"`
	Mode   calendar.Mode `json:"mode"`
	Year   int           `json:"year,omitempty"`
	Month  int           `json:"month,omitempty"`
	Span   int           `json:"span,omitempty"`
	Nav    string        `json:"nav,omitempty"`
}

type RenderCalendarResponse struct {
	Calendar *availability.Calendar `json:"calendar"`
}

type MonthPickerRequest struct {
	UserID int64         `json:"user_id"`
	Year   int           `json:"year,omitempty"`
	Mode   calendar.Mode `json:"mode"`
}

type MonthPickerResponse struct {
	Picker calendar.MonthPicker `json:"picker"`
}

type ListTimeSlotsRequest struct {
	Date string `json:"date"`
}

type ListTimeSlotsResponse struct {
	Date  string   `json:"date"`
	Times []string `json:"times"`
}

type ReserveRequest struct {
	UserID int64  `json:"user_id"`
	Name   string `json:"name"`
	Date   string `json:"date"`
	Time   string `json:"time"`
}

type BookingResponse struct {
	Booking Booking `json:"booking"`
}

type RescheduleRequest struct {
	UserID    int64  `json:"user_id"`
	BookingID string `json:"booking_id"`
	NewDate   string `json:"new_date"`
}

type CancelRequest struct {
	UserID    int64  `json:"user_id"`
	BookingID string `json:"booking_id"`
}

// Админ видит все записи, остальные только свои.
type ListBookingsRequest struct {
	UserID   int64 `json:"user_id"`
	Page     int   `json:"page,omitempty"`
	PageSize int   `json:"page_size,omitempty"`
}

type ListBookingsResponse struct {
	Page calendar.Page[Booking] `json:"page"`
}

type SelectAdminDateRequest struct {
	UserID int64  `json:"user_id"`
	Date   string `json:"date"`
}

type SelectAdminDateResponse struct {
	Result reservation.TapResult `json:"result"`
}

type UserRequest struct {
	UserID int64 `json:"user_id"`
}

type RangeStageResponse struct {
	Stage session.Stage `json:"stage"`
}

type BlockRangeRequest struct {
	UserID int64  `json:"user_id"`
	Start  string `json:"start"`
	End    string `json:"end"`
}

type BlockRangeResponse struct {
	Inserted int `json:"inserted"`
}

type ClearBlocksResponse struct {
	Removed int `json:"removed"`
}

type ToggleWeekdayRequest struct {
	UserID  int64 `json:"user_id"`
	Weekday int   `json:"weekday"`
}

type ToggleWeekdayResponse struct {
	Closed         bool  `json:"closed"`
	ClosedWeekdays []int `json:"closed_weekdays"`
}

type ClosedWeekdaysResponse struct {
	Weekdays []int `json:"weekdays"`
}

type SubmitMessageRequest struct {
	UserID int64  `json:"user_id"`
	Name   string `json:"name"`
	Text   string `json:"text"`
}

// Kind: "review" или "comment".
type SubmitMessageResponse struct {
	Kind    string   `json:"kind"`
	Booking *Booking `json:"booking,omitempty"`
	Review  *Review  `json:"review,omitempty"`
}

type ListReviewsRequest struct {
	Limit int `json:"limit,omitempty"`
}

type ListReviewsResponse struct {
	Reviews []Review `json:"reviews"`
}

func mapBooking(b *model.Booking) Booking {
	return Booking{
		ID:      b.ID.String(),
		UserID:  b.UserID,
		Name:    b.Name,
		Date:    b.Date,
		Time:    b.Time,
		Comment: b.Comment,
	}
}

func mapReview(r *model.Review) Review {
	return Review{
		ID:        r.ID.String(),
		UserID:    r.UserID,
		Name:      r.Name,
		Text:      r.Text,
		CreatedAt: r.CreatedAt,
	}
}
