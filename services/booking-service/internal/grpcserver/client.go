package grpcserver

import (
	"context"
	"fmt"

	"github.com/md-rashed-zaman/dojobook/services/booking-service/internal/booking"
	"github.com/md-rashed-zaman/dojobook/services/booking-service/internal/model"
	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/structpb"
)

// Client calls the availability service over an existing connection.
type Client struct {
	cc grpc.ClientConnInterface
}

func NewClient(cc grpc.ClientConnInterface) *Client {
	return &Client{cc: cc}
}

func (c *Client) ComputeSlots(ctx context.Context, coachID int64, date model.Date, sessionTypeID *int64) ([]booking.Slot, error) {
	req := map[string]any{"coach_id": coachID, "date": date.String()}
	if sessionTypeID != nil {
		req["session_type_id"] = *sessionTypeID
	}
	in, err := structpb.NewStruct(req)
	if err != nil {
		return nil, err
	}
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, ComputeSlotsRoute, in, out); err != nil {
		return nil, err
	}

	var slots []booking.Slot
	for _, v := range out.GetFields()["slots"].GetListValue().GetValues() {
		f := v.GetStructValue().GetFields()
		start, err := model.ParseClock(f["start_time"].GetStringValue())
		if err != nil {
			return nil, fmt.Errorf("decode slot: %w", err)
		}
		end, err := model.ParseClock(f["end_time"].GetStringValue())
		if err != nil {
			return nil, fmt.Errorf("decode slot: %w", err)
		}
		slot := booking.Slot{
			StartTime:       start,
			EndTime:         end,
			DurationMinutes: int(f["duration_minutes"].GetNumberValue()),
		}
		if loc, ok := f["location_id"]; ok {
			id := int64(loc.GetNumberValue())
			slot.LocationID = &id
		}
		slots = append(slots, slot)
	}
	return slots, nil
}
