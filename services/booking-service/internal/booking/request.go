package booking

import (
	"errors"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/md-rashed-zaman/dojobook/services/booking-service/internal/model"
)

type CreateBookingRequest struct {
	CoachID         int64  `json:"coach_id" validate:"required,gt=0"`
	SessionTypeID   int64  `json:"session_type_id" validate:"required,gt=0"`
	LocationID      *int64 `json:"location_id,omitempty" validate:"omitempty,gt=0"`
	StudentName     string `json:"student_name" validate:"required,max=200"`
	StudentEmail    string `json:"student_email" validate:"required,email,max=254"`
	StudentPhone    string `json:"student_phone,omitempty" validate:"max=40"`
	BookingDate     string `json:"booking_date" validate:"required"`
	StartTime       string `json:"start_time" validate:"required"`
	SpecialRequests string `json:"special_requests,omitempty" validate:"max=2000"`
}

// Confirmation is returned for a newly created booking.
type Confirmation struct {
	BookingID int64               `json:"booking_id"`
	Reference string              `json:"booking_reference"`
	Status    model.BookingStatus `json:"status"`
}

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// normalize trims the free-text fields in place.
func (r *CreateBookingRequest) normalize() {
	r.StudentName = strings.TrimSpace(r.StudentName)
	r.StudentEmail = strings.TrimSpace(r.StudentEmail)
	r.StudentPhone = strings.TrimSpace(r.StudentPhone)
	r.BookingDate = strings.TrimSpace(r.BookingDate)
	r.StartTime = strings.TrimSpace(r.StartTime)
	r.SpecialRequests = strings.TrimSpace(r.SpecialRequests)
}

func validationError(err error) error {
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return invalid("%v", err)
	}

	var missing, malformed []string
	for _, fe := range fieldErrs {
		if fe.Tag() == "required" {
			missing = append(missing, fe.Field())
		} else {
			malformed = append(malformed, fe.Field())
		}
	}
	if len(missing) > 0 {
		return invalid("Missing required fields: %s", strings.Join(missing, ", "))
	}
	return invalid("Invalid fields: %s", strings.Join(malformed, ", "))
}
