// Command studioctl talks to the booking API from a terminal.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/md-rashed-zaman/dojobook/libs/config"
	"github.com/md-rashed-zaman/dojobook/libs/grpcx"
	"github.com/md-rashed-zaman/dojobook/libs/runtime"
	"github.com/md-rashed-zaman/dojobook/services/booking-service/internal/booking"
	"github.com/md-rashed-zaman/dojobook/services/booking-service/internal/client"
	"github.com/md-rashed-zaman/dojobook/services/booking-service/internal/grpcserver"
	"github.com/md-rashed-zaman/dojobook/services/booking-service/internal/model"
)

const usage = `usage: studioctl [-base-url URL] <command> [flags]

commands:
  coaches        list coaches (-styles, -languages, -experience-min, -date)
  slots          list open slots (-coach, -date, -session-type, -grpc ADDR)
  book           book a session interactively
  bookings       list a student's bookings (-email)
  cancel         cancel a booking (-ref, -reason)
  admin          list bookings as staff (-user, -password, -from, -to, -coach, -status)
`

func main() {
	ctx, stop := runtime.SignalContext()
	defer stop()

	if err := run(ctx, os.Args[1:], os.Stdin, os.Stdout); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			os.Exit(2)
		}
		fmt.Fprintln(os.Stderr, "studioctl:", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string, in io.Reader, out io.Writer) error {
	global := flag.NewFlagSet("studioctl", flag.ContinueOnError)
	global.SetOutput(out)
	global.Usage = func() { fmt.Fprint(out, usage) }
	baseURL := global.String("base-url", config.String("DOJOBOOK_URL", "http://localhost:8080"), "booking service base url")
	if err := global.Parse(args); err != nil {
		return err
	}
	if global.NArg() == 0 {
		global.Usage()
		return flag.ErrHelp
	}

	api := client.New(*baseURL)
	cmd, rest := global.Arg(0), global.Args()[1:]
	switch cmd {
	case "coaches":
		return listCoaches(ctx, api, rest, out)
	case "slots":
		return listSlots(ctx, api, rest, out)
	case "book":
		return book(ctx, api, in, out)
	case "bookings":
		return studentBookings(ctx, api, rest, out)
	case "cancel":
		return cancel(ctx, api, rest, out)
	case "admin":
		return adminBookings(ctx, api, rest, out)
	default:
		global.Usage()
		return fmt.Errorf("unknown command %q", cmd)
	}
}

func listCoaches(ctx context.Context, api *client.Client, args []string, out io.Writer) error {
	fs := flag.NewFlagSet("coaches", flag.ContinueOnError)
	fs.SetOutput(out)
	styles := fs.String("styles", "", "comma separated styles")
	languages := fs.String("languages", "", "comma separated languages")
	expMin := fs.Int("experience-min", -1, "minimum years of experience")
	date := fs.String("date", "", "only coaches working on this date (YYYY-MM-DD)")
	if err := fs.Parse(args); err != nil {
		return err
	}

	q := client.CoachQuery{Styles: config.List(*styles), Languages: config.List(*languages), AvailableDate: *date}
	if *expMin >= 0 {
		q.ExperienceMin = expMin
	}
	coaches, err := api.Coaches(ctx, q)
	if err != nil {
		return err
	}
	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tNAME\tSTYLES\tLANGUAGES\tYEARS\tLOCATIONS")
	for _, c := range coaches {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%d\t%s\n", c.ID, c.Name,
			strings.Join(c.Styles, ", "), strings.Join(c.Languages, ", "), c.ExperienceYears, c.LocationNames)
	}
	return tw.Flush()
}

func listSlots(ctx context.Context, api *client.Client, args []string, out io.Writer) error {
	fs := flag.NewFlagSet("slots", flag.ContinueOnError)
	fs.SetOutput(out)
	coach := fs.Int64("coach", 0, "coach id")
	date := fs.String("date", "", "date (YYYY-MM-DD)")
	sessionType := fs.Int64("session-type", 0, "session type id (sets slot length)")
	grpcAddr := fs.String("grpc", config.String("DOJOBOOK_GRPC_ADDR", ""), "query the gRPC availability API at this address instead of HTTP")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *coach <= 0 || *date == "" {
		return errors.New("-coach and -date are required")
	}

	var (
		slots []booking.Slot
		err   error
	)
	if *grpcAddr != "" {
		slots, err = grpcSlots(ctx, *grpcAddr, *coach, *date, *sessionType)
	} else {
		slots, err = api.Slots(ctx, *coach, *date, *sessionType)
	}
	if err != nil {
		return err
	}
	if len(slots) == 0 {
		fmt.Fprintln(out, "no open slots")
		return nil
	}
	for _, s := range slots {
		fmt.Fprintf(out, "%s-%s (%d min)\n", s.StartTime, s.EndTime, s.DurationMinutes)
	}
	return nil
}

func grpcSlots(ctx context.Context, addr string, coachID int64, date string, sessionTypeID int64) ([]booking.Slot, error) {
	d, err := model.ParseDate(date)
	if err != nil {
		return nil, errors.New("-date must be YYYY-MM-DD")
	}
	var st *int64
	if sessionTypeID > 0 {
		st = &sessionTypeID
	}
	conn, err := grpcx.Dial(addr, nil)
	if err != nil {
		return nil, err
	}
	defer conn.Close()
	return grpcserver.NewClient(conn).ComputeSlots(ctx, coachID, d, st)
}

func studentBookings(ctx context.Context, api *client.Client, args []string, out io.Writer) error {
	fs := flag.NewFlagSet("bookings", flag.ContinueOnError)
	fs.SetOutput(out)
	email := fs.String("email", "", "student email")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *email == "" {
		return errors.New("-email is required")
	}
	list, err := api.StudentBookings(ctx, *email)
	if err != nil {
		return err
	}
	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "REFERENCE\tDATE\tTIME\tCOACH\tSESSION\tSTATUS")
	for _, b := range list {
		fmt.Fprintf(tw, "%s\t%s\t%s-%s\t%s\t%s\t%s\n", b.Reference, b.BookingDate, b.StartTime, b.EndTime, b.CoachName, b.SessionTypeName, b.Status)
	}
	return tw.Flush()
}

func cancel(ctx context.Context, api *client.Client, args []string, out io.Writer) error {
	fs := flag.NewFlagSet("cancel", flag.ContinueOnError)
	fs.SetOutput(out)
	ref := fs.String("ref", "", "booking reference")
	reason := fs.String("reason", "", "cancellation reason")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *ref == "" {
		return errors.New("-ref is required")
	}
	if err := api.Cancel(ctx, *ref, *reason); err != nil {
		return err
	}
	fmt.Fprintf(out, "booking %s cancelled\n", strings.ToUpper(*ref))
	return nil
}

func adminBookings(ctx context.Context, api *client.Client, args []string, out io.Writer) error {
	fs := flag.NewFlagSet("admin", flag.ContinueOnError)
	fs.SetOutput(out)
	user := fs.String("user", config.String("DOJOBOOK_ADMIN_USER", ""), "admin username")
	password := fs.String("password", config.String("DOJOBOOK_ADMIN_PASSWORD", ""), "admin password")
	from := fs.String("from", "", "date_from (YYYY-MM-DD)")
	to := fs.String("to", "", "date_to (YYYY-MM-DD)")
	coach := fs.Int64("coach", 0, "coach id")
	status := fs.String("status", "", "booking status")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *user == "" || *password == "" {
		return errors.New("-user and -password are required")
	}
	if _, err := api.Login(ctx, *user, *password); err != nil {
		return err
	}
	list, err := api.AdminBookings(ctx, client.AdminQuery{DateFrom: *from, DateTo: *to, CoachID: *coach, Status: *status})
	if err != nil {
		return err
	}
	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "REFERENCE\tDATE\tTIME\tCOACH\tSTUDENT\tSTATUS")
	for _, b := range list {
		fmt.Fprintf(tw, "%s\t%s\t%s-%s\t%s\t%s <%s>\t%s\n", b.Reference, b.BookingDate, b.StartTime, b.EndTime, b.CoachName, b.StudentName, b.StudentEmail, b.Status)
	}
	return tw.Flush()
}
