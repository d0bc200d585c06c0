package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/md-rashed-zaman/dojobook/services/booking-service/internal/client"
	"github.com/md-rashed-zaman/dojobook/services/booking-service/internal/model"
	"github.com/md-rashed-zaman/dojobook/services/booking-service/internal/wizard"
)

// prompter reads one answer per line.
type prompter struct {
	sc  *bufio.Scanner
	out io.Writer
}

func (p *prompter) ask(question string) (string, error) {
	fmt.Fprintf(p.out, "%s: ", question)
	if !p.sc.Scan() {
		if err := p.sc.Err(); err != nil {
			return "", err
		}
		return "", io.ErrUnexpectedEOF
	}
	return strings.TrimSpace(p.sc.Text()), nil
}

// choose asks for a 1-based index into n options. "b" goes back.
func (p *prompter) choose(question string, n int) (int, bool, error) {
	for {
		answer, err := p.ask(question)
		if err != nil {
			return 0, false, err
		}
		if strings.EqualFold(answer, "b") {
			return 0, true, nil
		}
		i, err := strconv.Atoi(answer)
		if err == nil && i >= 1 && i <= n {
			return i - 1, false, nil
		}
		fmt.Fprintf(p.out, "enter a number between 1 and %d, or b to go back\n", n)
	}
}

func book(ctx context.Context, api *client.Client, in io.Reader, out io.Writer) error {
	p := &prompter{sc: bufio.NewScanner(in), out: out}
	w := wizard.New()

	sessionTypes, err := api.SessionTypes(ctx)
	if err != nil {
		return err
	}
	if len(sessionTypes) == 0 {
		return errors.New("no session types are offered")
	}

	for w.State() != wizard.Confirmed {
		switch w.State() {
		case wizard.ChoosingCoach:
			coaches, err := api.Coaches(ctx, client.CoachQuery{})
			if err != nil {
				return err
			}
			if len(coaches) == 0 {
				return errors.New("no coaches are taking bookings")
			}
			for i, c := range coaches {
				fmt.Fprintf(out, "%2d) %s (%s)\n", i+1, c.Name, strings.Join(c.Styles, ", "))
			}
			i, back, err := p.choose("coach", len(coaches))
			if err != nil {
				return err
			}
			if back {
				continue
			}
			if err := w.ChooseCoach(coaches[i].Coach); err != nil {
				return err
			}

		case wizard.ChoosingSlot:
			for i, st := range sessionTypes {
				fmt.Fprintf(out, "%2d) %s, %d min\n", i+1, st.Name, st.DurationMinutes)
			}
			si, back, err := p.choose("session type", len(sessionTypes))
			if err != nil {
				return err
			}
			if back {
				w.Back()
				continue
			}
			rawDate, err := p.ask("date (YYYY-MM-DD)")
			if err != nil {
				return err
			}
			date, err := model.ParseDate(rawDate)
			if err != nil {
				fmt.Fprintln(out, err)
				continue
			}
			st := sessionTypes[si]
			slots, err := api.Slots(ctx, w.Coach().ID, date.String(), st.ID)
			if err != nil {
				return err
			}
			if len(slots) == 0 {
				fmt.Fprintf(out, "%s has no open slots on %s\n", w.Coach().Name, date)
				continue
			}
			for i, s := range slots {
				fmt.Fprintf(out, "%2d) %s-%s\n", i+1, s.StartTime, s.EndTime)
			}
			ti, back, err := p.choose("time", len(slots))
			if err != nil {
				return err
			}
			if back {
				continue
			}
			if err := w.ChooseSlot(st, date, slots[ti]); err != nil {
				fmt.Fprintln(out, err)
			}

		case wizard.EnteringDetails:
			var d wizard.Details
			if d.StudentName, err = p.ask("your name"); err != nil {
				return err
			}
			if d.StudentEmail, err = p.ask("email"); err != nil {
				return err
			}
			if d.StudentPhone, err = p.ask("phone (optional)"); err != nil {
				return err
			}
			if d.SpecialRequests, err = p.ask("anything we should know (optional)"); err != nil {
				return err
			}
			req, err := w.Request(d)
			if err != nil {
				fmt.Fprintln(out, err)
				continue
			}
			conf, err := api.CreateBooking(ctx, req)
			if client.IsStatus(err, http.StatusConflict) {
				fmt.Fprintln(out, "that slot was just taken, pick another")
				if err := w.SlotTaken(); err != nil {
					return err
				}
				continue
			}
			if err != nil {
				return err
			}
			if err := w.Confirm(conf); err != nil {
				return err
			}
		}
	}

	slot := w.Slot()
	fmt.Fprintf(out, "booked %s with %s on %s at %s. reference %s\n",
		w.SessionType().Name, w.Coach().Name, w.Date(), slot.StartTime, w.Confirmation().Reference)
	return nil
}
