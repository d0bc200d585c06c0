// Package events holds the payload contracts shared by producers and consumers of
// booking events. The Kafka topic equals the event type.
package events

const (
	BookingConfirmed = "booking.confirmed.v1"
	BookingCancelled = "booking.cancelled.v1"
)

// BookingTopics lists every booking event topic.
var BookingTopics = []string{BookingConfirmed, BookingCancelled}

type Booking struct {
	BookingID          int64  `json:"booking_id"`
	Reference          string `json:"booking_reference"`
	Status             string `json:"status"`
	CoachID            int64  `json:"coach_id"`
	SessionTypeID      int64  `json:"session_type_id"`
	SessionTypeName    string `json:"session_type_name,omitempty"`
	StudentName        string `json:"student_name"`
	StudentEmail       string `json:"student_email"`
	BookingDate        string `json:"booking_date"`
	StartTime          string `json:"start_time"`
	EndTime            string `json:"end_time"`
	CancellationReason string `json:"cancellation_reason,omitempty"`
	OccurredAt         string `json:"occurred_at"`
}
