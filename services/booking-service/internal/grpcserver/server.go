// Package grpcserver exposes slot computation over gRPC. Messages are
// google.protobuf.Struct values so no generated stubs are needed.
package grpcserver

import (
	"context"
	"errors"
	"fmt"
	"math"

	"github.com/md-rashed-zaman/dojobook/services/booking-service/internal/booking"
	"github.com/md-rashed-zaman/dojobook/services/booking-service/internal/model"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"
)

const (
	ServiceName       = "dojobook.availability.v1.AvailabilityService"
	ComputeSlotsRoute = "/" + ServiceName + "/ComputeSlots"
)

type Slots interface {
	ComputeSlots(ctx context.Context, coachID int64, date model.Date, sessionTypeID *int64) ([]booking.Slot, error)
}

// AvailabilityServer is the server API for the availability service.
type AvailabilityServer interface {
	ComputeSlots(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error)
}

var serviceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*AvailabilityServer)(nil),
	Methods: []grpc.MethodDesc{{
		MethodName: "ComputeSlots",
		Handler:    computeSlotsHandler,
	}},
	Streams:  []grpc.StreamDesc{},
	Metadata: "dojobook/availability/v1/availability.proto",
}

func computeSlotsHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(structpb.Struct)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(AvailabilityServer).ComputeSlots(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: ComputeSlotsRoute}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(AvailabilityServer).ComputeSlots(ctx, req.(*structpb.Struct))
	}
	return interceptor(ctx, in, info, handler)
}

type server struct {
	slots Slots
}

func Register(s grpc.ServiceRegistrar, slots Slots) {
	s.RegisterService(&serviceDesc, &server{slots: slots})
}

func (s *server) ComputeSlots(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	fields := req.GetFields()

	coachID, err := idField(fields, "coach_id")
	if err != nil {
		return nil, status.Error(codes.InvalidArgument, err.Error())
	}
	if coachID == nil {
		return nil, status.Error(codes.InvalidArgument, "coach_id is required")
	}
	date, err := model.ParseDate(fields["date"].GetStringValue())
	if err != nil {
		return nil, status.Error(codes.InvalidArgument, err.Error())
	}
	sessionTypeID, err := idField(fields, "session_type_id")
	if err != nil {
		return nil, status.Error(codes.InvalidArgument, err.Error())
	}

	slots, err := s.slots.ComputeSlots(ctx, *coachID, date, sessionTypeID)
	if err != nil {
		return nil, toStatus(err)
	}

	list := make([]any, 0, len(slots))
	for _, sl := range slots {
		item := map[string]any{
			"start_time":       sl.StartTime.String(),
			"end_time":         sl.EndTime.String(),
			"duration_minutes": sl.DurationMinutes,
		}
		if sl.LocationID != nil {
			item["location_id"] = *sl.LocationID
		}
		list = append(list, item)
	}
	out, err := structpb.NewStruct(map[string]any{"date": date.String(), "slots": list})
	if err != nil {
		return nil, status.Error(codes.Internal, "encode response")
	}
	return out, nil
}

// idField reads an optional positive integer. Struct numbers are doubles.
func idField(fields map[string]*structpb.Value, key string) (*int64, error) {
	v, ok := fields[key]
	if !ok {
		return nil, nil
	}
	if _, isNull := v.GetKind().(*structpb.Value_NullValue); isNull {
		return nil, nil
	}
	n, isNum := v.GetKind().(*structpb.Value_NumberValue)
	if !isNum || n.NumberValue <= 0 || n.NumberValue != math.Trunc(n.NumberValue) || n.NumberValue > math.MaxInt64/2 {
		return nil, fmt.Errorf("%s must be a positive integer", key)
	}
	id := int64(n.NumberValue)
	return &id, nil
}

func toStatus(err error) error {
	code, msg := codes.Internal, "internal error"
	switch {
	case errors.Is(err, booking.ErrValidation):
		code, msg = codes.InvalidArgument, err.Error()
	case errors.Is(err, booking.ErrInvalidSessionType):
		code, msg = codes.InvalidArgument, "invalid session type"
	case errors.Is(err, booking.ErrNotFound):
		code, msg = codes.NotFound, err.Error()
	}
	return status.Error(code, msg)
}
