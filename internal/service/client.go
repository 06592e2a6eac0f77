package service

import (
	"context"

	"google.golang.org/grpc"
)

// Client — типизированный клиент SchedulingService. Ошибки возвращаются
// как *availability.Error, чтобы чат-слой выбирал сообщение по Kind.
type Client struct {
	cc grpc.ClientConnInterface
}

func NewClient(cc grpc.ClientConnInterface) *Client {
	return &Client{cc: cc}
}

func invoke[Resp any](ctx context.Context, cc grpc.ClientConnInterface, method string, req any) (*Resp, error) {
	out := new(Resp)
	if err := cc.Invoke(ctx, fullMethod(method), req, out, grpc.CallContentSubtype(codecName)); err != nil {
		return nil, fromStatus(method, err)
	}
	return out, nil
}

func (c *Client) RenderCalendar(ctx context.Context, req *RenderCalendarRequest) (*RenderCalendarResponse, error) {
	return invoke[RenderCalendarResponse](ctx, c.cc, "RenderCalendar", req)
}

func (c *Client) MonthPicker(ctx context.Context, req *MonthPickerRequest) (*MonthPickerResponse, error) {
	return invoke[MonthPickerResponse](ctx, c.cc, "MonthPicker", req)
}

func (c *Client) ListTimeSlots(ctx context.Context, req *ListTimeSlotsRequest) (*ListTimeSlotsResponse, error) {
	return invoke[ListTimeSlotsResponse](ctx, c.cc, "ListTimeSlots", req)
}

func (c *Client) Reserve(ctx context.Context, req *ReserveRequest) (*BookingResponse, error) {
	return invoke[BookingResponse](ctx, c.cc, "Reserve", req)
}

func (c *Client) Reschedule(ctx context.Context, req *RescheduleRequest) (*BookingResponse, error) {
	return invoke[BookingResponse](ctx, c.cc, "Reschedule", req)
}

func (c *Client) Cancel(ctx context.Context, req *CancelRequest) (*BookingResponse, error) {
	return invoke[BookingResponse](ctx, c.cc, "Cancel", req)
}

func (c *Client) ListBookings(ctx context.Context, req *ListBookingsRequest) (*ListBookingsResponse, error) {
	return invoke[ListBookingsResponse](ctx, c.cc, "ListBookings", req)
}

func (c *Client) SelectAdminDate(ctx context.Context, req *SelectAdminDateRequest) (*SelectAdminDateResponse, error) {
	return invoke[SelectAdminDateResponse](ctx, c.cc, "SelectAdminDate", req)
}

func (c *Client) BeginRangeSelection(ctx context.Context, req *UserRequest) (*RangeStageResponse, error) {
	return invoke[RangeStageResponse](ctx, c.cc, "BeginRangeSelection", req)
}

func (c *Client) CancelRangeSelection(ctx context.Context, req *UserRequest) (*RangeStageResponse, error) {
	return invoke[RangeStageResponse](ctx, c.cc, "CancelRangeSelection", req)
}

func (c *Client) BlockRange(ctx context.Context, req *BlockRangeRequest) (*BlockRangeResponse, error) {
	return invoke[BlockRangeResponse](ctx, c.cc, "BlockRange", req)
}

func (c *Client) ClearBlocks(ctx context.Context, req *UserRequest) (*ClearBlocksResponse, error) {
	return invoke[ClearBlocksResponse](ctx, c.cc, "ClearBlocks", req)
}

func (c *Client) ToggleWeekday(ctx context.Context, req *ToggleWeekdayRequest) (*ToggleWeekdayResponse, error) {
	return invoke[ToggleWeekdayResponse](ctx, c.cc, "ToggleWeekday", req)
}

func (c *Client) ListClosedWeekdays(ctx context.Context, req *UserRequest) (*ClosedWeekdaysResponse, error) {
	return invoke[ClosedWeekdaysResponse](ctx, c.cc, "ListClosedWeekdays", req)
}

func (c *Client) SubmitMessage(ctx context.Context, req *SubmitMessageRequest) (*SubmitMessageResponse, error) {
	return invoke[SubmitMessageResponse](ctx, c.cc, "SubmitMessage", req)
}

func (c *Client) SkipComment(ctx context.Context, req *UserRequest) (*BookingResponse, error) {
	return invoke[BookingResponse](ctx, c.cc, "SkipComment", req)
}

func (c *Client) BeginReview(ctx context.Context, req *UserRequest) (*Empty, error) {
	return invoke[Empty](ctx, c.cc, "BeginReview", req)
}

func (c *Client) ListReviews(ctx context.Context, req *ListReviewsRequest) (*ListReviewsResponse, error) {
	return invoke[ListReviewsResponse](ctx, c.cc, "ListReviews", req)
}
