package sweep

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/suite"

	"gatehouse/internal/audit"
	"gatehouse/internal/capacity"
	"gatehouse/internal/credential"
	"gatehouse/internal/platform/metrics"
	"gatehouse/internal/visitor/models"
	"gatehouse/internal/visitor/store"
)

type SweepSuite struct {
	suite.Suite
	sweeper    *Sweeper
	visitStore *store.InMemoryStore
	ledger     *capacity.InMemoryLedger
	auditStore *audit.InMemoryStore
	now        time.Time // Monday 2025-01-06 10:00 local
}

func TestSweepSuite(t *testing.T) {
	suite.Run(t, new(SweepSuite))
}

func (s *SweepSuite) SetupTest() {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	s.visitStore = store.NewInMemoryStore()
	s.ledger = capacity.NewInMemoryLedger(20)
	s.auditStore = audit.NewInMemoryStore()
	s.now = time.Date(2025, 1, 6, 10, 0, 0, 0, time.Local)
	s.sweeper = New(s.visitStore, s.ledger, audit.NewPublisher(s.auditStore, logger),
		metrics.NewWith(prometheus.NewRegistry()), logger)
}

func (s *SweepSuite) seed(date models.Date, status models.Status) *models.VisitRecord {
	ctx := context.Background()
	rec := &models.VisitRecord{
		ID:         uuid.New(),
		Name:       "Ada Lovelace",
		Email:      "ada@example.com",
		Phone:      "+1-555-0100",
		VisitDate:  date,
		VisitTime:  models.TimeOfDay{Hour: 11},
		Status:     status,
		Credential: credential.New(),
		IsActive:   true,
	}
	s.Require().NoError(s.visitStore.Create(ctx, rec))
	if status.Active() {
		res, err := s.ledger.TryReserve(ctx, date, 11, 1)
		s.Require().NoError(err)
		s.Require().True(res.Allowed)
	}
	return rec
}

func (s *SweepSuite) status(id uuid.UUID) models.Status {
	rec, err := s.visitStore.FindByID(context.Background(), id)
	s.Require().NoError(err)
	return rec.Status
}

func (s *SweepSuite) TestRun() {
	ctx := context.Background()
	yesterday := models.DateOf(s.now.AddDate(0, 0, -1))
	today := models.DateOf(s.now)
	tomorrow := models.DateOf(s.now.AddDate(0, 0, 1))

	stalePending := s.seed(yesterday, models.StatusPending)
	staleVerified := s.seed(yesterday, models.StatusVerified)
	todayPending := s.seed(today, models.StatusPending)
	futurePending := s.seed(tomorrow, models.StatusPending)
	cancelled := s.seed(yesterday, models.StatusCancelled)

	result, err := s.sweeper.Run(ctx, s.now)
	s.Require().NoError(err)
	s.Equal(1, result.Expired)
	s.Equal(1, result.Completed)

	s.Equal(models.StatusExpired, s.status(stalePending.ID))
	s.Equal(models.StatusCompleted, s.status(staleVerified.ID))
	s.Equal(models.StatusPending, s.status(todayPending.ID))
	s.Equal(models.StatusPending, s.status(futurePending.ID))
	s.Equal(models.StatusCancelled, s.status(cancelled.ID))

	// Completed visits get a checkout timestamp from the sweep.
	done, err := s.visitStore.FindByID(ctx, staleVerified.ID)
	s.Require().NoError(err)
	s.NotNil(done.CheckedOutAt)

	// Both stale records gave their seats back.
	count, err := s.ledger.CurrentCount(ctx, yesterday, 11)
	s.Require().NoError(err)
	s.Equal(0, count)

	entries, err := s.auditStore.ListByVisitor(ctx, stalePending.ID)
	s.Require().NoError(err)
	s.Require().Len(entries, 1)
	s.Equal(audit.ActionExpired, entries[0].Action)

	entries, err = s.auditStore.ListByVisitor(ctx, staleVerified.ID)
	s.Require().NoError(err)
	s.Require().Len(entries, 1)
	s.Equal(audit.ActionCompleted, entries[0].Action)
}

func (s *SweepSuite) TestRunIsIdempotent() {
	ctx := context.Background()
	yesterday := models.DateOf(s.now.AddDate(0, 0, -1))
	rec := s.seed(yesterday, models.StatusPending)

	first, err := s.sweeper.Run(ctx, s.now)
	s.Require().NoError(err)
	s.Equal(1, first.Expired)

	second, err := s.sweeper.Run(ctx, s.now)
	s.Require().NoError(err)
	s.Equal(0, second.Expired)
	s.Equal(0, second.Completed)

	entries, err := s.auditStore.ListByVisitor(ctx, rec.ID)
	s.Require().NoError(err)
	s.Len(entries, 1)
}

func (s *SweepSuite) TestRunEmptyStore() {
	result, err := s.sweeper.Run(context.Background(), s.now)
	s.Require().NoError(err)
	s.Equal(Result{}, result)
}
