// Package wizard holds the booking flow as a finite-state machine. Each
// transition requires the data collected by the previous step.
package wizard

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/md-rashed-zaman/dojobook/services/booking-service/internal/booking"
	"github.com/md-rashed-zaman/dojobook/services/booking-service/internal/model"
)

type State int

const (
	ChoosingCoach State = iota
	ChoosingSlot
	EnteringDetails
	Confirmed
)

func (s State) String() string {
	switch s {
	case ChoosingCoach:
		return "ChoosingCoach"
	case ChoosingSlot:
		return "ChoosingSlot"
	case EnteringDetails:
		return "EnteringDetails"
	case Confirmed:
		return "Confirmed"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// ErrTransition is returned when an event is not valid in the current state.
var ErrTransition = errors.New("invalid wizard transition")

// Details are the student fields entered in the last step.
type Details struct {
	StudentName     string `validate:"required,max=200"`
	StudentEmail    string `validate:"required,email"`
	StudentPhone    string `validate:"max=40"`
	SpecialRequests string `validate:"max=2000"`
}

type Wizard struct {
	state        State
	coach        model.Coach
	sessionType  model.SessionType
	date         model.Date
	slot         booking.Slot
	confirmation booking.Confirmation
	validate     *validator.Validate
}

func New() *Wizard {
	return &Wizard{validate: validator.New()}
}

func (w *Wizard) State() State                       { return w.state }
func (w *Wizard) Coach() model.Coach                 { return w.coach }
func (w *Wizard) SessionType() model.SessionType     { return w.sessionType }
func (w *Wizard) Date() model.Date                   { return w.date }
func (w *Wizard) Slot() booking.Slot                 { return w.slot }
func (w *Wizard) Confirmation() booking.Confirmation { return w.confirmation }

func (w *Wizard) expect(s State) error {
	if w.state != s {
		return fmt.Errorf("%w: in %s, need %s", ErrTransition, w.state, s)
	}
	return nil
}

func (w *Wizard) Reset() {
	*w = Wizard{validate: w.validate}
}

func (w *Wizard) ChooseCoach(c model.Coach) error {
	if err := w.expect(ChoosingCoach); err != nil {
		return err
	}
	if c.ID <= 0 {
		return errors.New("choose a coach")
	}
	w.coach = c
	w.state = ChoosingSlot
	return nil
}

// ChooseSlot accepts a slot only if it is as long as the chosen session type.
func (w *Wizard) ChooseSlot(st model.SessionType, date model.Date, slot booking.Slot) error {
	if err := w.expect(ChoosingSlot); err != nil {
		return err
	}
	if st.ID <= 0 {
		return errors.New("choose a session type")
	}
	if date.IsZero() {
		return errors.New("choose a date")
	}
	if slot.EndTime <= slot.StartTime {
		return errors.New("choose a time")
	}
	if st.DurationMinutes > 0 && slot.DurationMinutes != st.DurationMinutes {
		return fmt.Errorf("slot lasts %d minutes but %s needs %d", slot.DurationMinutes, st.Name, st.DurationMinutes)
	}
	w.sessionType, w.date, w.slot = st, date, slot
	w.state = EnteringDetails
	return nil
}

// Request validates the details and builds the create-booking body.
func (w *Wizard) Request(d Details) (booking.CreateBookingRequest, error) {
	if err := w.expect(EnteringDetails); err != nil {
		return booking.CreateBookingRequest{}, err
	}
	d.StudentName = strings.TrimSpace(d.StudentName)
	d.StudentEmail = strings.TrimSpace(d.StudentEmail)
	d.StudentPhone = strings.TrimSpace(d.StudentPhone)
	d.SpecialRequests = strings.TrimSpace(d.SpecialRequests)
	if err := w.validate.Struct(d); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			return booking.CreateBookingRequest{}, fmt.Errorf("%s is invalid", verrs[0].Field())
		}
		return booking.CreateBookingRequest{}, err
	}
	return booking.CreateBookingRequest{
		CoachID:         w.coach.ID,
		SessionTypeID:   w.sessionType.ID,
		LocationID:      w.slot.LocationID,
		StudentName:     d.StudentName,
		StudentEmail:    d.StudentEmail,
		StudentPhone:    d.StudentPhone,
		BookingDate:     w.date.String(),
		StartTime:       w.slot.StartTime.String(),
		SpecialRequests: d.SpecialRequests,
	}, nil
}

func (w *Wizard) Confirm(c booking.Confirmation) error {
	if err := w.expect(EnteringDetails); err != nil {
		return err
	}
	if c.Reference == "" {
		return errors.New("confirmation has no booking reference")
	}
	w.confirmation = c
	w.state = Confirmed
	return nil
}

// SlotTaken returns to slot selection after the server rejects the slot.
func (w *Wizard) SlotTaken() error {
	if err := w.expect(EnteringDetails); err != nil {
		return err
	}
	w.slot = booking.Slot{}
	w.state = ChoosingSlot
	return nil
}

// Back steps one state back. It is a no-op at the start and after confirmation.
func (w *Wizard) Back() {
	switch w.state {
	case EnteringDetails:
		w.slot = booking.Slot{}
		w.state = ChoosingSlot
	case ChoosingSlot:
		w.coach = model.Coach{}
		w.sessionType = model.SessionType{}
		w.date = model.Date{}
		w.state = ChoosingCoach
	}
}
