package booking

import (
	"context"
	"database/sql"
	"sync"
	"time"

	"github.com/md-rashed-zaman/dojobook/services/booking-service/internal/availability"
	"github.com/md-rashed-zaman/dojobook/services/booking-service/internal/model"
	"github.com/md-rashed-zaman/dojobook/services/booking-service/internal/outbox"
	"github.com/md-rashed-zaman/dojobook/services/booking-service/internal/storage"
)

// memStore is an in-memory booking store. WithinTx holds one mutex for the whole
// transaction, standing in for the coach row lock.
type memStore struct {
	mu       sync.Mutex
	coaches  map[int64]bool
	sessions map[int64]model.SessionType
	rules    map[int64]map[int]model.CoachAvailability
	except   map[int64]map[string]model.AvailabilityException
	bookings []model.Booking
	events   []outbox.Event
	nextID   int64
}

func newMemStore() *memStore {
	return &memStore{
		coaches: map[int64]bool{1: true, 2: true, 3: false},
		sessions: map[int64]model.SessionType{
			1: {ID: 1, Name: "Private Lesson", DurationMinutes: 60, IsActive: true},
			2: {ID: 2, Name: "Intensive", DurationMinutes: 90, IsActive: true},
		},
		rules:  map[int64]map[int]model.CoachAvailability{},
		except: map[int64]map[string]model.AvailabilityException{},
	}
}

func (s *memStore) GetActive(_ context.Context, id int64) (model.Coach, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.coaches[id] {
		return model.Coach{}, sql.ErrNoRows
	}
	return model.Coach{ID: id, IsActive: true}, nil
}

func (s *memStore) GetSessionType(_ context.Context, id int64) (model.SessionType, error) {
	st, ok := s.sessions[id]
	if !ok {
		return model.SessionType{}, sql.ErrNoRows
	}
	return st, nil
}

func (s *memStore) RuleFor(_ context.Context, coachID int64, weekday int) (*model.CoachAvailability, error) {
	r, ok := s.rules[coachID][weekday]
	if !ok {
		return nil, nil
	}
	return &r, nil
}

func (s *memStore) ExceptionOn(_ context.Context, coachID int64, date model.Date) (*model.AvailabilityException, error) {
	ex, ok := s.except[coachID][date.String()]
	if !ok {
		return nil, nil
	}
	return &ex, nil
}

func (s *memStore) Busy(_ context.Context, coachID int64, date model.Date) ([]availability.Interval, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []availability.Interval
	for _, b := range s.bookings {
		if b.CoachID == coachID && b.BookingDate.String() == date.String() && blocking(b.Status) {
			out = append(out, availability.Interval{Start: b.StartTime, End: b.EndTime})
		}
	}
	return out, nil
}

func (s *memStore) addRule(coachID int64, weekday time.Weekday, start, end string, location *int64) {
	st, _ := model.ParseClock(start)
	en, _ := model.ParseClock(end)
	if s.rules[coachID] == nil {
		s.rules[coachID] = map[int]model.CoachAvailability{}
	}
	s.rules[coachID][int(weekday)] = model.CoachAvailability{CoachID: coachID, DayOfWeek: int(weekday), StartTime: st, EndTime: en, LocationID: location, IsActive: true}
}

func (s *memStore) addException(coachID int64, date model.Date, typ model.ExceptionType) {
	if s.except[coachID] == nil {
		s.except[coachID] = map[string]model.AvailabilityException{}
	}
	s.except[coachID][date.String()] = model.AvailabilityException{CoachID: coachID, ExceptionDate: date, Type: typ}
}

func blocking(st model.BookingStatus) bool {
	return st == model.StatusConfirmed || st == model.StatusRescheduled
}

func (s *memStore) WithinTx(ctx context.Context, fn func(storage.BookingTx) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx := &memTx{s: s}
	if err := fn(tx); err != nil {
		return err
	}
	s.bookings = append(s.bookings, tx.inserted...)
	for _, u := range tx.updated {
		s.bookings[u.idx] = u.b
	}
	s.events = append(s.events, tx.events...)
	return nil
}

type update struct {
	idx int
	b   model.Booking
}

type memTx struct {
	s        *memStore
	inserted []model.Booking
	updated  []update
	events   []outbox.Event
}

func (t *memTx) LockCoach(_ context.Context, coachID int64) error {
	if !t.s.coaches[coachID] {
		return sql.ErrNoRows
	}
	return nil
}

func (t *memTx) HasOverlap(_ context.Context, coachID int64, date model.Date, start, end model.Clock) (bool, error) {
	for _, b := range append(t.s.bookings, t.inserted...) {
		if b.CoachID == coachID && b.BookingDate.String() == date.String() && blocking(b.Status) &&
			availability.Overlaps(availability.Interval{Start: start, End: end}, availability.Interval{Start: b.StartTime, End: b.EndTime}) {
			return true, nil
		}
	}
	return false, nil
}

func (t *memTx) Insert(_ context.Context, b *model.Booking) (bool, error) {
	for _, existing := range append(t.s.bookings, t.inserted...) {
		if existing.Reference == b.Reference {
			return false, nil
		}
	}
	t.s.nextID++
	b.ID = t.s.nextID
	b.CreatedAt = time.Now()
	t.inserted = append(t.inserted, *b)
	return true, nil
}

func (t *memTx) CancelByReference(_ context.Context, ref, reason string) (model.Booking, error) {
	for i, b := range t.s.bookings {
		if b.Reference == ref && b.Status == model.StatusConfirmed {
			now := time.Now()
			b.Status = model.StatusCancelled
			b.CancellationReason = reason
			b.CancelledAt = &now
			t.updated = append(t.updated, update{idx: i, b: b})
			return b, nil
		}
	}
	return model.Booking{}, sql.ErrNoRows
}

func (t *memTx) Publish(_ context.Context, evt outbox.Event) error {
	t.events = append(t.events, evt)
	return nil
}

// sequence returns a generator yielding refs in order, then repeating the last.
func sequence(refs ...string) func() (string, error) {
	var mu sync.Mutex
	i := 0
	return func() (string, error) {
		mu.Lock()
		defer mu.Unlock()
		r := refs[i]
		if i < len(refs)-1 {
			i++
		}
		return r, nil
	}
}
