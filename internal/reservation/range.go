package reservation

import (
	"context"

	"github.com/Leganyst/booking-core/internal/availability"
	"github.com/Leganyst/booking-core/internal/calendar"
	"github.com/Leganyst/booking-core/internal/session"
)

// TapResult — итог нажатия админа на дату календаря.
type TapResult struct {
	// Стадия выбора после нажатия.
	Stage session.Stage `json:"stage"`
	Start string        `json:"start,omitempty"`
	End   string        `json:"end,omitempty"`
	// Сколько дат добавил завершённый диапазон.
	Inserted int `json:"inserted,omitempty"`
	// Нажатие вне выбора диапазона переключило одну дату.
	Toggled bool `json:"toggled,omitempty"`
	Blocked bool `json:"blocked,omitempty"`
}

// BeginRangeSelection: любое состояние -> AwaitingStart.
func (c *Coordinator) BeginRangeSelection(s *session.Session) {
	s.Range = session.RangeSelection{Stage: session.StageAwaitingStart}
}

// CancelRangeSelection: любое состояние -> Idle.
func (c *Coordinator) CancelRangeSelection(s *session.Session) {
	s.Range = session.RangeSelection{}
}

// SelectDate продвигает выбор диапазона:
//
//	Idle          -> Idle (переключение одной даты)
//	AwaitingStart -> AwaitingEnd (запоминается начало)
//	AwaitingEnd   -> Idle (BlockRange(start, date))
//
// При ошибке состояние сессии не меняется.
func (c *Coordinator) SelectDate(ctx context.Context, s *session.Session, date string) (TapResult, error) {
	const op = "reservation.select_date"

	day, err := calendar.ParseDay(date)
	if err != nil {
		return TapResult{Stage: s.Range.Stage}, availability.E(op, availability.KindInvalidArgument, "date %q", date)
	}
	iso := calendar.FormatISO(day)

	switch s.Range.Stage {
	case session.StageAwaitingStart:
		s.Range = session.RangeSelection{Stage: session.StageAwaitingEnd, Start: iso}
		return TapResult{Stage: s.Range.Stage, Start: iso}, nil

	case session.StageAwaitingEnd:
		start := s.Range.Start
		inserted, err := c.BlockRange(ctx, start, iso)
		if err != nil {
			return TapResult{Stage: s.Range.Stage, Start: start}, err
		}
		s.Range = session.RangeSelection{}
		return TapResult{Stage: session.StageIdle, Start: start, End: iso, Inserted: inserted}, nil

	default:
		blocked, err := c.ToggleBlock(ctx, iso)
		if err != nil {
			return TapResult{}, err
		}
		return TapResult{Stage: session.StageIdle, Start: iso, Toggled: true, Blocked: blocked}, nil
	}
}
