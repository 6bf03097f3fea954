//go:build integration

package store_test

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"

	"gatehouse/internal/visitor/models"
	"gatehouse/internal/visitor/store"
	dErrors "gatehouse/pkg/domain-errors"
	"gatehouse/pkg/testutil/containers"
)

type PostgresStoreSuite struct {
	suite.Suite
	postgres *containers.PostgresContainer
	store    *store.PostgresStore
}

func TestPostgresStoreSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(PostgresStoreSuite))
}

func (s *PostgresStoreSuite) SetupSuite() {
	s.postgres = containers.NewPostgresContainer(s.T())
	s.store = store.NewPostgresStore(s.postgres.Pool)
}

func (s *PostgresStoreSuite) SetupTest() {
	s.Require().NoError(s.postgres.TruncateTables(context.Background(), "visit_records"))
}

func (s *PostgresStoreSuite) record(credential string) *models.VisitRecord {
	now := time.Now().UTC().Truncate(time.Microsecond)
	return &models.VisitRecord{
		ID:              uuid.New(),
		Name:            "Ada Lovelace",
		Email:           "ada@example.com",
		Phone:           "+1-555-0100",
		VisitorType:     models.VisitorTypeProfessional,
		VisitorCategory: models.CategoryIndustry,
		Purpose:         models.PurposeBusinessMeeting,
		VisitDate:       models.Date{Year: 2025, Month: time.January, Day: 7},
		VisitTime:       models.TimeOfDay{Hour: 10},
		Status:          models.StatusPending,
		Credential:      credential,
		IsActive:        true,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
}

func (s *PostgresStoreSuite) TestRoundTrip() {
	ctx := context.Background()
	rec := s.record("VMS-00000001")
	s.Require().NoError(s.store.Create(ctx, rec))

	got, err := s.store.FindByID(ctx, rec.ID)
	s.Require().NoError(err)
	s.Equal(rec.Name, got.Name)
	s.Equal(rec.VisitDate, got.VisitDate)
	s.Equal(rec.VisitTime, got.VisitTime)
	s.Equal(rec.Status, got.Status)
	s.Nil(got.CheckedInAt)
	s.Nil(got.OriginalVisitDate)

	byCred, err := s.store.FindByCredential(ctx, "VMS-00000001")
	s.Require().NoError(err)
	s.Equal(rec.ID, byCred.ID)
}

// TestCreateRejectsDuplicateCredential pins the retry contract: a credential
// collision must come back as a conflict so the booking service regenerates
// and retries instead of failing the request.
func (s *PostgresStoreSuite) TestCreateRejectsDuplicateCredential() {
	ctx := context.Background()
	s.Require().NoError(s.store.Create(ctx, s.record("VMS-00000001")))

	err := s.store.Create(ctx, s.record("VMS-00000001"))
	s.Require().Error(err)
	s.True(dErrors.Is(err, dErrors.CodeConflict))
}

func (s *PostgresStoreSuite) TestCreateBatchRollsBackOnCollision() {
	ctx := context.Background()
	s.Require().NoError(s.store.Create(ctx, s.record("VMS-00000001")))

	err := s.store.CreateBatch(ctx, []*models.VisitRecord{
		s.record("VMS-00000002"),
		s.record("VMS-00000001"),
	})
	s.Require().Error(err)
	s.True(dErrors.Is(err, dErrors.CodeConflict))

	_, err = s.store.FindByCredential(ctx, "VMS-00000002")
	s.True(dErrors.Is(err, dErrors.CodeNotFound))
}

func (s *PostgresStoreSuite) TestMutateRejectsRotationToTakenCredential() {
	ctx := context.Background()
	s.Require().NoError(s.store.Create(ctx, s.record("VMS-00000001")))
	rec := s.record("VMS-00000002")
	s.Require().NoError(s.store.Create(ctx, rec))

	_, err := s.store.Mutate(ctx, rec.ID, func(r *models.VisitRecord) error {
		r.Credential = "VMS-00000001"
		return nil
	})
	s.Require().Error(err)
	s.True(dErrors.Is(err, dErrors.CodeConflict))

	got, err := s.store.FindByID(ctx, rec.ID)
	s.Require().NoError(err)
	s.Equal("VMS-00000002", got.Credential)
}

func (s *PostgresStoreSuite) TestMutatePersistsRotationAndOptionalFields() {
	ctx := context.Background()
	rec := s.record("VMS-00000001")
	s.Require().NoError(s.store.Create(ctx, rec))

	prevDate := rec.VisitDate
	prevTime := rec.VisitTime
	updated, err := s.store.Mutate(ctx, rec.ID, func(r *models.VisitRecord) error {
		r.VisitDate = models.Date{Year: 2025, Month: time.January, Day: 8}
		r.VisitTime = models.TimeOfDay{Hour: 14, Minute: 30}
		r.PreviousCredential = r.Credential
		r.Credential = "VMS-00000099"
		r.IsRescheduled = true
		r.OriginalVisitDate = &prevDate
		r.OriginalVisitTime = &prevTime
		return nil
	})
	s.Require().NoError(err)
	s.Equal("VMS-00000099", updated.Credential)

	got, err := s.store.FindByID(ctx, rec.ID)
	s.Require().NoError(err)
	s.True(got.IsRescheduled)
	s.Require().NotNil(got.OriginalVisitDate)
	s.Equal(prevDate, *got.OriginalVisitDate)
	s.Require().NotNil(got.OriginalVisitTime)
	s.Equal(prevTime, *got.OriginalVisitTime)

	_, err = s.store.FindByCredential(ctx, "VMS-00000001")
	s.True(dErrors.Is(err, dErrors.CodeNotFound))

	stale, err := s.store.FindBySupersededCredential(ctx, "VMS-00000001")
	s.Require().NoError(err)
	s.Equal(rec.ID, stale.ID)
}

// TestMutateSerializesTransitions runs racing pending -> verified transitions;
// the row lock must admit exactly one.
func (s *PostgresStoreSuite) TestMutateSerializesTransitions() {
	ctx := context.Background()
	rec := s.record("VMS-00000001")
	s.Require().NoError(s.store.Create(ctx, rec))

	var wg sync.WaitGroup
	var wins atomic.Int32
	for range 20 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := s.store.Mutate(ctx, rec.ID, func(r *models.VisitRecord) error {
				if r.Status != models.StatusPending {
					return dErrors.New(dErrors.CodeInvalidTransition, "already moved")
				}
				r.Status = models.StatusVerified
				return nil
			})
			if err == nil {
				wins.Add(1)
			}
		}()
	}
	wg.Wait()
	s.Equal(int32(1), wins.Load())
}

func (s *PostgresStoreSuite) TestListActiveBySlot() {
	ctx := context.Background()

	inSlot := s.record("VMS-00000001")
	s.Require().NoError(s.store.Create(ctx, inSlot))

	halfPast := s.record("VMS-00000002")
	halfPast.VisitTime = models.TimeOfDay{Hour: 10, Minute: 30}
	s.Require().NoError(s.store.Create(ctx, halfPast))

	cancelled := s.record("VMS-00000003")
	cancelled.Status = models.StatusCancelled
	s.Require().NoError(s.store.Create(ctx, cancelled))

	nextHour := s.record("VMS-00000004")
	nextHour.VisitTime = models.TimeOfDay{Hour: 11}
	s.Require().NoError(s.store.Create(ctx, nextHour))

	slot, err := s.store.ListActiveBySlot(ctx, inSlot.VisitDate, 10)
	s.Require().NoError(err)
	s.Len(slot, 2)
}
