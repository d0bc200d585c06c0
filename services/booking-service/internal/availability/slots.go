package availability

import "github.com/md-rashed-zaman/dojobook/services/booking-service/internal/model"

const (
	DefaultDuration = 60
	hourStep        = model.MinutesPerHour
)

// Interval is a half-open time-of-day range [Start, End).
type Interval struct {
	Start model.Clock
	End   model.Clock
}

// Overlaps reports whether a and b share any minute: [a.Start,a.End) overlaps
// [b.Start,b.End) iff a.Start < b.End && b.Start < a.End.
func Overlaps(a, b Interval) bool {
	return a.Start < b.End && b.Start < a.End
}

func (i Interval) Minutes() int { return int(i.End - i.Start) }

// HourlyWindow narrows w to whole hours: start rounds up, end rounds down.
func HourlyWindow(w Interval) Interval {
	start := w.Start
	if rem := int(start) % model.MinutesPerHour; rem != 0 {
		start = start.Add(model.MinutesPerHour - rem)
	}
	end := w.End - model.Clock(int(w.End)%model.MinutesPerHour)
	return Interval{Start: start, End: end}
}

// AvailableSlots returns the intervals of length duration that start at window.Start
// plus a multiple of step, fit inside window, and overlap none of busy. Ascending order.
func AvailableSlots(window Interval, duration, step int, busy []Interval) []Interval {
	if duration <= 0 || step <= 0 {
		return nil
	}
	if window.End <= window.Start || window.Start.Add(duration) > window.End {
		return nil
	}

	var slots []Interval
	for t := window.Start; t.Add(duration) <= window.End; t = t.Add(step) {
		candidate := Interval{Start: t, End: t.Add(duration)}
		if !overlapsAny(candidate, busy) {
			slots = append(slots, candidate)
		}
	}
	return slots
}

func overlapsAny(c Interval, busy []Interval) bool {
	for _, b := range busy {
		if Overlaps(c, b) {
			return true
		}
	}
	return false
}

// Exception is the date-specific override relevant to slot generation.
type Exception struct {
	Type  model.ExceptionType
	Hours *Interval
}

// Day is everything known about one coach on one date.
type Day struct {
	// Rule is the recurring weekly window; nil when the coach does not work that weekday.
	Rule      *Interval
	Exception *Exception
	Busy      []Interval
}

// ComputeSlots generates hourly slots for one coach-day. A duration of zero or less
// means the default 60-minute session.
//
// A custom_hours exception with both times set replaces the recurring window, but
// only on days that already have a recurring rule.
func ComputeSlots(day Day, duration int) []Interval {
	if day.Rule == nil {
		return []Interval{}
	}
	window := *day.Rule
	if ex := day.Exception; ex != nil {
		switch ex.Type {
		case model.ExceptionUnavailable:
			return []Interval{}
		case model.ExceptionCustomHours:
			if ex.Hours != nil {
				window = *ex.Hours
			}
		}
	}
	if duration <= 0 {
		duration = DefaultDuration
	}

	slots := AvailableSlots(HourlyWindow(window), duration, hourStep, day.Busy)
	if slots == nil {
		return []Interval{}
	}
	return slots
}
