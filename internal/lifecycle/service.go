// Package lifecycle owns the check-in and check-out transitions of a visit
// record: credential verification at the gate and completion at departure.
package lifecycle

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"gatehouse/internal/audit"
	"gatehouse/internal/capacity"
	"gatehouse/internal/platform/metrics"
	"gatehouse/internal/visitor/models"
	"gatehouse/internal/visitor/store"
	dErrors "gatehouse/pkg/domain-errors"
)

// Verification outcome labels, also used as the metric outcome dimension.
const (
	OutcomeVerified        = "verified"
	OutcomeAlreadyVerified = "already_verified"
	OutcomeExpired         = "expired"
	OutcomeWrongDay        = "wrong_day"
	OutcomeRescheduled     = "rescheduled"
	OutcomeNotFound        = "not_found"
	OutcomeInvalid         = "invalid"
)

type Service struct {
	store   store.Store
	ledger  capacity.Ledger
	audit   *audit.Publisher
	metrics *metrics.Metrics
	logger  *slog.Logger
	now     func() time.Time
}

type Option func(*Service)

// WithClock overrides the wall clock, for tests.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

func New(st store.Store, ledger capacity.Ledger, auditPub *audit.Publisher, m *metrics.Metrics, logger *slog.Logger, opts ...Option) *Service {
	s := &Service{
		store:   st,
		ledger:  ledger,
		audit:   auditPub,
		metrics: m,
		logger:  logger,
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Verify checks a presented credential against the gate rules and, when they
// pass, moves the visit to verified. Presenting the credential of an already
// verified visit succeeds without a second transition.
//
// The checks run in a fixed order so the visitor always gets the most
// actionable message: stale code from before a reschedule, then unknown code,
// then expiry, then wrong day, then the idempotent short-circuit.
func (s *Service) Verify(ctx context.Context, req models.VerifyRequest) (*models.VerifyResult, error) {
	rec, err := s.store.FindByCredential(ctx, req.Credential)
	if err != nil {
		if dErrors.Is(err, dErrors.CodeNotFound) {
			if moved, staleErr := s.store.FindBySupersededCredential(ctx, req.Credential); staleErr == nil {
				s.metrics.Verifications.WithLabelValues(OutcomeRescheduled).Inc()
				return nil, dErrors.Newf(dErrors.CodeInvalidTransition,
					"visit was rescheduled to %s %s; use the updated credential", moved.VisitDate, moved.VisitTime)
			}
			s.metrics.Verifications.WithLabelValues(OutcomeNotFound).Inc()
			return nil, dErrors.New(dErrors.CodeNotFound, "invalid credential; visitor not found in records")
		}
		return nil, err
	}

	now := s.now()
	if rec.CredentialExpired(now) {
		s.metrics.Verifications.WithLabelValues(OutcomeExpired).Inc()
		return nil, dErrors.Newf(dErrors.CodeInvalidTransition,
			"credential has expired; it was only valid for %s", rec.VisitDate)
	}
	if !rec.IsVisitDay(now) {
		s.metrics.Verifications.WithLabelValues(OutcomeWrongDay).Inc()
		return nil, dErrors.Newf(dErrors.CodeInvalidTransition,
			"credential can only be used on the visit day (%s)", rec.VisitDate)
	}
	if rec.Status == models.StatusVerified {
		s.metrics.Verifications.WithLabelValues(OutcomeAlreadyVerified).Inc()
		return &models.VerifyResult{Record: rec, AlreadyVerified: true}, nil
	}

	updated, err := s.store.Mutate(ctx, rec.ID, func(r *models.VisitRecord) error {
		if r.Status == models.StatusVerified {
			return nil
		}
		if r.Status != models.StatusPending {
			return dErrors.Newf(dErrors.CodeInvalidTransition, "cannot verify a %s visit", r.Status)
		}
		checkedIn := now
		r.Status = models.StatusVerified
		r.CheckedInAt = &checkedIn
		r.UpdatedAt = now
		return nil
	})
	if err != nil {
		s.metrics.Verifications.WithLabelValues(OutcomeInvalid).Inc()
		return nil, err
	}

	s.metrics.Verifications.WithLabelValues(OutcomeVerified).Inc()
	if auditErr := s.audit.Emit(ctx, audit.Entry{
		VisitorID: updated.ID,
		Action:    audit.ActionVerified,
		Timestamp: now,
		ActorID:   req.ActorID,
	}); auditErr != nil {
		s.logger.ErrorContext(ctx, "audit emit failed",
			"visitor_id", updated.ID, "action", audit.ActionVerified, "error", auditErr)
	}
	return &models.VerifyResult{Record: updated}, nil
}

// Complete checks a visitor out: the visit moves to completed and its seat
// returns to the slot. Pending visits may be completed directly by staff.
func (s *Service) Complete(ctx context.Context, id uuid.UUID, actorID string) (*models.VisitRecord, error) {
	now := s.now()
	var relDate models.Date
	var relHour int

	rec, err := s.store.Mutate(ctx, id, func(r *models.VisitRecord) error {
		if !r.Status.Active() {
			return dErrors.Newf(dErrors.CodeInvalidTransition, "cannot complete a %s visit", r.Status)
		}
		relDate, relHour = r.VisitDate, r.VisitTime.Hour
		checkedOut := now
		r.Status = models.StatusCompleted
		r.CheckedOutAt = &checkedOut
		r.UpdatedAt = now
		return nil
	})
	if err != nil {
		return nil, err
	}

	if relErr := s.ledger.Release(ctx, relDate, relHour, 1); relErr != nil {
		s.logger.ErrorContext(ctx, "failed to release reservation on completion",
			"visitor_id", id, "error", relErr)
	}
	if auditErr := s.audit.Emit(ctx, audit.Entry{
		VisitorID: rec.ID,
		Action:    audit.ActionCheckedOut,
		Timestamp: now,
		ActorID:   actorID,
	}); auditErr != nil {
		s.logger.ErrorContext(ctx, "audit emit failed",
			"visitor_id", rec.ID, "action", audit.ActionCheckedOut, "error", auditErr)
	}
	return rec, nil
}
