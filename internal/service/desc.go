package service

import (
	"context"

	"google.golang.org/grpc"
)

const ServiceName = "booking.v1.SchedulingService"

// SchedulingServer — контракт SchedulingService. Сообщения кодируются JSON
// (content-subtype "json"), поэтому описание сервиса собрано вручную.
type SchedulingServer interface {
	RenderCalendar(context.Context, *RenderCalendarRequest) (*RenderCalendarResponse, error)
	MonthPicker(context.Context, *MonthPickerRequest) (*MonthPickerResponse, error)
	ListTimeSlots(context.Context, *ListTimeSlotsRequest) (*ListTimeSlotsResponse, error)
	Reserve(context.Context, *ReserveRequest) (*BookingResponse, error)
	Reschedule(context.Context, *RescheduleRequest) (*BookingResponse, error)
	Cancel(context.Context, *CancelRequest) (*BookingResponse, error)
	ListBookings(context.Context, *ListBookingsRequest) (*ListBookingsResponse, error)
	SelectAdminDate(context.Context, *SelectAdminDateRequest) (*SelectAdminDateResponse, error)
	BeginRangeSelection(context.Context, *UserRequest) (*RangeStageResponse, error)
	CancelRangeSelection(context.Context, *UserRequest) (*RangeStageResponse, error)
	BlockRange(context.Context, *BlockRangeRequest) (*BlockRangeResponse, error)
	ClearBlocks(context.Context, *UserRequest) (*ClearBlocksResponse, error)
	ToggleWeekday(context.Context, *ToggleWeekdayRequest) (*ToggleWeekdayResponse, error)
	ListClosedWeekdays(context.Context, *UserRequest) (*ClosedWeekdaysResponse, error)
	SubmitMessage(context.Context, *SubmitMessageRequest) (*SubmitMessageResponse, error)
	SkipComment(context.Context, *UserRequest) (*BookingResponse, error)
	BeginReview(context.Context, *UserRequest) (*Empty, error)
	ListReviews(context.Context, *ListReviewsRequest) (*ListReviewsResponse, error)
}

var _ SchedulingServer = (*SchedulingService)(nil)

func RegisterSchedulingServer(r grpc.ServiceRegistrar, srv SchedulingServer) {
	r.RegisterService(&schedulingServiceDesc, srv)
}

var schedulingServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*SchedulingServer)(nil),
	Methods: []grpc.MethodDesc{
		unary("RenderCalendar", SchedulingServer.RenderCalendar),
		unary("MonthPicker", SchedulingServer.MonthPicker),
		unary("ListTimeSlots", SchedulingServer.ListTimeSlots),
		unary("Reserve", SchedulingServer.Reserve),
		unary("Reschedule", SchedulingServer.Reschedule),
		unary("Cancel", SchedulingServer.Cancel),
		unary("ListBookings", SchedulingServer.ListBookings),
		unary("SelectAdminDate", SchedulingServer.SelectAdminDate),
		unary("BeginRangeSelection", SchedulingServer.BeginRangeSelection),
		unary("CancelRangeSelection", SchedulingServer.CancelRangeSelection),
		unary("BlockRange", SchedulingServer.BlockRange),
		unary("ClearBlocks", SchedulingServer.ClearBlocks),
		unary("ToggleWeekday", SchedulingServer.ToggleWeekday),
		unary("ListClosedWeekdays", SchedulingServer.ListClosedWeekdays),
		unary("SubmitMessage", SchedulingServer.SubmitMessage),
		unary("SkipComment", SchedulingServer.SkipComment),
		unary("BeginReview", SchedulingServer.BeginReview),
		unary("ListReviews", SchedulingServer.ListReviews),
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "booking/v1/scheduling.json",
}

func fullMethod(name string) string {
	return "/" + ServiceName + "/" + name
}

// unary собирает обработчик метода так же, как это делает protoc-gen-go-grpc.
func unary[Req, Resp any](
	name string,
	call func(SchedulingServer, context.Context, *Req) (*Resp, error),
) grpc.MethodDesc {
	return grpc.MethodDesc{
		MethodName: name,
		Handler: func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
			in := new(Req)
			if err := dec(in); err != nil {
				return nil, err
			}
			if interceptor == nil {
				return call(srv.(SchedulingServer), ctx, in)
			}
			info := &grpc.UnaryServerInfo{
				Server:     srv,
				FullMethod: fullMethod(name),
			}
			handler := func(ctx context.Context, req any) (any, error) {
				return call(srv.(SchedulingServer), ctx, req.(*Req))
			}
			return interceptor(ctx, in, info, handler)
		},
	}
}
