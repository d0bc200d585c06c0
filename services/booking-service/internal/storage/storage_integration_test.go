package storage

import (
	"context"
	"os"
	"testing"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/jmoiron/sqlx"
	"github.com/md-rashed-zaman/dojobook/libs/db"
	"github.com/md-rashed-zaman/dojobook/services/booking-service/internal/model"
	"github.com/md-rashed-zaman/dojobook/services/booking-service/internal/outbox"
	"github.com/md-rashed-zaman/dojobook/services/booking-service/migrations"
	"github.com/stretchr/testify/suite"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
)

type StorageIntegrationTestSuite struct {
	suite.Suite
	ctx      context.Context
	pgc      *postgres.PostgresContainer
	db       *sqlx.DB
	coaches  *CoachRepository
	bookings *BookingRepository
}

func (s *StorageIntegrationTestSuite) SetupSuite() {
	s.ctx = context.Background()

	pgc, err := postgres.Run(s.ctx,
		"postgres:16-alpine",
		postgres.WithDatabase("dojobook"),
		postgres.WithUsername("user"),
		postgres.WithPassword("password"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(30*time.Second),
		),
	)
	s.Require().NoError(err)
	s.pgc = pgc

	connStr, err := pgc.ConnectionString(s.ctx, "sslmode=disable")
	s.Require().NoError(err)

	s.db, err = sqlx.Connect("pgx", connStr)
	s.Require().NoError(err)
	s.Require().NoError(db.Migrate(s.ctx, s.db.DB, migrations.FS))

	s.coaches = NewCoachRepository(s.db)
	s.bookings = NewBookingRepository(s.db, outbox.NewRepository())
}

func (s *StorageIntegrationTestSuite) TearDownSuite() {
	if s.db != nil {
		_ = s.db.Close()
	}
	if s.pgc != nil {
		_ = s.pgc.Terminate(s.ctx)
	}
}

func (s *StorageIntegrationTestSuite) TestStylesRoundTripPreservesOrder() {
	styles := model.StringList{"Wrestling", "Aikido", "Capoeira", "Aikido"}
	var id int64
	s.Require().NoError(s.db.GetContext(s.ctx, &id, `
		INSERT INTO coaches (name, martial_arts_styles) VALUES ('Round Trip', $1) RETURNING id`, styles))

	coach, err := s.coaches.GetActive(s.ctx, id)
	s.Require().NoError(err)
	s.Equal(styles, coach.Styles)
	s.Equal(model.StringList{}, coach.Languages)
}

func (s *StorageIntegrationTestSuite) TestFilterByStyleMatchesWholeElement() {
	out, err := s.coaches.List(s.ctx, CoachFilter{Styles: []string{"Judo"}})
	s.Require().NoError(err)
	s.Require().NotEmpty(out)
	for _, c := range out {
		s.Contains([]string(c.Styles), "Judo")
	}

	out, err = s.coaches.List(s.ctx, CoachFilter{Styles: []string{"Jud"}})
	s.Require().NoError(err)
	s.Empty(out)
}

func (s *StorageIntegrationTestSuite) TestExclusionConstraintRejectsOverlap() {
	date := model.NewDate(2031, 6, 2)
	insert := func(ref string, start, end model.Clock) error {
		return s.bookings.WithinTx(s.ctx, func(tx BookingTx) error {
			_, err := tx.Insert(s.ctx, &model.Booking{
				CoachID: 1, SessionTypeID: 1, StudentName: "Kim", StudentEmail: "kim@example.com",
				BookingDate: date, StartTime: start, EndTime: end,
				DurationMinutes: int(end - start), Status: model.StatusConfirmed, Reference: ref,
			})
			return err
		})
	}

	s.Require().NoError(insert("BKEXCL01", model.NewClock(9, 0), model.NewClock(10, 0)))
	s.Require().NoError(insert("BKEXCL02", model.NewClock(10, 0), model.NewClock(11, 0)), "adjacent slots are allowed")
	err := insert("BKEXCL03", model.NewClock(9, 30), model.NewClock(10, 30))
	s.True(IsConflict(err), "expected exclusion violation, got %v", err)
}

func (s *StorageIntegrationTestSuite) TestCancelOnlyOnce() {
	date := model.NewDate(2031, 6, 3)
	s.Require().NoError(s.bookings.WithinTx(s.ctx, func(tx BookingTx) error {
		ok, err := tx.Insert(s.ctx, &model.Booking{
			CoachID: 2, SessionTypeID: 1, StudentName: "Lee", StudentEmail: "lee@example.com",
			BookingDate: date, StartTime: model.NewClock(10, 0), EndTime: model.NewClock(11, 0),
			DurationMinutes: 60, Status: model.StatusConfirmed, Reference: "BKCANC01",
		})
		s.True(ok)
		return err
	}))

	cancel := func() (model.Booking, error) {
		var b model.Booking
		err := s.bookings.WithinTx(s.ctx, func(tx BookingTx) error {
			var err error
			b, err = tx.CancelByReference(s.ctx, "BKCANC01", "injury")
			return err
		})
		return b, err
	}

	b, err := cancel()
	s.Require().NoError(err)
	s.Equal(model.StatusCancelled, b.Status)
	s.Equal("injury", b.CancellationReason)
	s.NotNil(b.CancelledAt)

	_, err = cancel()
	s.True(IsNotFound(err))
}

func TestStorageIntegration(t *testing.T) {
	if os.Getenv("DOCKER_HOST") == "" {
		t.Skip("Docker is not available, skipping integration test.")
	}
	suite.Run(t, new(StorageIntegrationTestSuite))
}
