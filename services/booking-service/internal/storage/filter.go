package storage

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/md-rashed-zaman/dojobook/services/booking-service/internal/model"
)

// where composes AND-ed conditions with $n placeholders. Conditions are written
// with '?' and numbered as they are added, so user input only travels in args.
type where struct {
	conds []string
	args  []any
}

func (w *where) add(cond string, args ...any) {
	for _, a := range args {
		w.args = append(w.args, a)
		cond = strings.Replace(cond, "?", fmt.Sprintf("$%d", len(w.args)), 1)
	}
	w.conds = append(w.conds, cond)
}

// anyOf adds (c1 OR c2 ...) where each ci is cond bound to one value.
func (w *where) anyOf(cond string, values []any) {
	if len(values) == 0 {
		return
	}
	parts := make([]string, 0, len(values))
	for _, v := range values {
		w.args = append(w.args, v)
		parts = append(parts, strings.Replace(cond, "?", fmt.Sprintf("$%d", len(w.args)), 1))
	}
	w.conds = append(w.conds, "("+strings.Join(parts, " OR ")+")")
}

func (w *where) sql() string {
	if len(w.conds) == 0 {
		return ""
	}
	return " WHERE " + strings.Join(w.conds, " AND ")
}

// CoachFilter narrows the coach listing. Styles and Languages match a coach that
// lists any of the given values.
type CoachFilter struct {
	Styles        []string
	Languages     []string
	ExperienceMin *int
	AvailableOn   *model.Date
}

func (f CoachFilter) where() *where {
	w := &where{}
	w.add("c.is_active = ?", true)
	w.anyOf(`c.martial_arts_styles LIKE ? ESCAPE '\'`, containsPatterns(f.Styles))
	w.anyOf(`c.languages LIKE ? ESCAPE '\'`, containsPatterns(f.Languages))
	if f.ExperienceMin != nil {
		w.add("c.experience_years >= ?", *f.ExperienceMin)
	}
	if f.AvailableOn != nil {
		w.add(`EXISTS (SELECT 1 FROM coach_availability a
			WHERE a.coach_id = c.id AND a.is_active AND a.day_of_week = ?)`, int(f.AvailableOn.Weekday()))
		w.add(`NOT EXISTS (SELECT 1 FROM availability_exceptions e
			WHERE e.coach_id = c.id AND e.exception_date = ? AND e.exception_type = 'unavailable')`, *f.AvailableOn)
	}
	return w
}

// containsPatterns builds LIKE patterns matching a whole JSON array element, so
// "Judo" does not match "Judo-Jitsu".
func containsPatterns(values []string) []any {
	var out []any
	for _, v := range values {
		v = strings.TrimSpace(v)
		if v == "" {
			continue
		}
		quoted, _ := json.Marshal(v)
		out = append(out, "%"+escapeLike(string(quoted))+"%")
	}
	return out
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func escapeLike(s string) string {
	return likeEscaper.Replace(s)
}

// BookingFilter narrows booking listings.
type BookingFilter struct {
	DateFrom     *model.Date
	DateTo       *model.Date
	CoachID      *int64
	Status       *model.BookingStatus
	StudentEmail string
}

func (f BookingFilter) where() *where {
	w := &where{}
	if f.DateFrom != nil {
		w.add("b.booking_date >= ?", *f.DateFrom)
	}
	if f.DateTo != nil {
		w.add("b.booking_date <= ?", *f.DateTo)
	}
	if f.CoachID != nil {
		w.add("b.coach_id = ?", *f.CoachID)
	}
	if f.Status != nil {
		w.add("b.status = ?", string(*f.Status))
	}
	if f.StudentEmail != "" {
		w.add("lower(b.student_email) = lower(?)", f.StudentEmail)
	}
	return w
}
