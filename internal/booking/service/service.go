// Package service orchestrates the booking paths: single reservation,
// reschedule, and bulk reservation. It composes the validator, the capacity
// ledger, and the visitor store so handlers stay thin.
package service

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"gatehouse/internal/audit"
	"gatehouse/internal/booking"
	"gatehouse/internal/capacity"
	"gatehouse/internal/credential"
	"gatehouse/internal/notify"
	"gatehouse/internal/platform/metrics"
	"gatehouse/internal/sweep"
	"gatehouse/internal/visitor/models"
	"gatehouse/internal/visitor/store"
	dErrors "gatehouse/pkg/domain-errors"
)

// DefaultMaxBulk caps how many registrations one batch may carry.
const DefaultMaxBulk = 20

// createRetries bounds retries on credential collisions at insert.
const createRetries = 3

type Service struct {
	store     store.Store
	ledger    capacity.Ledger
	validator *booking.Validator
	audit     *audit.Publisher
	notifier  notify.Notifier
	issuer    credential.Issuer
	metrics   *metrics.Metrics
	logger    *slog.Logger
	sweeper   *sweep.Sweeper
	now       func() time.Time
	maxBulk   int
}

type Option func(*Service)

// WithClock overrides the wall clock, for tests.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// WithSweeper refreshes expirations before list reads, so stale pending
// records never show as upcoming visits.
func WithSweeper(sw *sweep.Sweeper) Option {
	return func(s *Service) { s.sweeper = sw }
}

func WithMaxBulk(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.maxBulk = n
		}
	}
}

func New(
	st store.Store,
	ledger capacity.Ledger,
	validator *booking.Validator,
	auditPub *audit.Publisher,
	notifier notify.Notifier,
	issuer credential.Issuer,
	m *metrics.Metrics,
	logger *slog.Logger,
	opts ...Option,
) *Service {
	s := &Service{
		store:     st,
		ledger:    ledger,
		validator: validator,
		audit:     auditPub,
		notifier:  notifier,
		issuer:    issuer,
		metrics:   m,
		logger:    logger,
		now:       time.Now,
		maxBulk:   DefaultMaxBulk,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// BookResult carries the committed record plus non-fatal collaborator
// warnings (credential rendering, notification dispatch).
type BookResult struct {
	Record   *models.VisitRecord `json:"visitor"`
	Warnings []string            `json:"warnings,omitempty"`
}

// Book validates the requested slot, commits capacity, and creates the visit
// record in pending state. Notifications are dispatched after the commit and
// never block or roll it back.
func (s *Service) Book(ctx context.Context, req models.CreateVisitorRequest, actorID string) (*BookResult, error) {
	start := time.Now()
	defer func() { s.metrics.BookingDuration.Observe(time.Since(start).Seconds()) }()

	if err := req.Validate(); err != nil {
		return nil, err
	}
	now := s.now()
	if err := s.validator.Validate(ctx, req.VisitDate, req.VisitTime, now, nil); err != nil {
		if dErrors.Is(err, dErrors.CodeCapacityExceeded) {
			s.metrics.CapacityRejections.Inc()
		}
		return nil, err
	}

	res, err := s.ledger.TryReserve(ctx, req.VisitDate, req.VisitTime.Hour, 1)
	if err != nil {
		return nil, dErrors.Wrap(dErrors.CodeInternal, "capacity ledger unavailable", err)
	}
	if !res.Allowed {
		s.metrics.CapacityRejections.Inc()
		return nil, dErrors.New(dErrors.CodeCapacityExceeded, res.Reason)
	}

	rec := s.buildRecord(req, now)
	if err := s.createWithRetry(ctx, rec); err != nil {
		// Reservation must not leak when the record never materialized.
		if relErr := s.ledger.Release(ctx, req.VisitDate, req.VisitTime.Hour, 1); relErr != nil {
			s.logger.ErrorContext(ctx, "failed to release reservation after create failure",
				"visit_date", req.VisitDate.String(), "hour", req.VisitTime.Hour, "error", relErr)
		}
		return nil, err
	}

	s.metrics.VisitorsRegistered.Inc()
	s.emitAudit(ctx, audit.Entry{
		VisitorID: rec.ID,
		Action:    audit.ActionRegistered,
		Timestamp: now,
		ActorID:   actorID,
	})

	result := &BookResult{Record: rec}
	if _, err := s.issuer.Issue(rec); err != nil {
		s.logger.WarnContext(ctx, "credential issuance failed",
			"visitor_id", rec.ID, "error", err)
		result.Warnings = append(result.Warnings, "credential rendering unavailable; code delivered as text")
	}

	s.dispatch(ctx, func(ctx context.Context) {
		if err := s.notifier.NotifyVisitorConfirmed(ctx, rec); err != nil {
			s.logger.WarnContext(ctx, "confirmation notification failed", "visitor_id", rec.ID, "error", err)
		}
		if err := s.notifier.NotifyHost(ctx, rec); err != nil {
			s.logger.WarnContext(ctx, "host notification failed", "visitor_id", rec.ID, "error", err)
		}
	})
	return result, nil
}

// Reschedule atomically moves a record to a new slot: release the old bucket,
// reserve the new one, rotate the credential, and remember the immediately
// previous slot. A failed new-slot reservation restores the old one; no net
// capacity is lost or duplicated.
func (s *Service) Reschedule(ctx context.Context, id uuid.UUID, req models.RescheduleRequest, actorID string) (*models.VisitRecord, error) {
	current, err := s.store.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !current.Status.Active() {
		return nil, dErrors.Newf(dErrors.CodeInvalidTransition,
			"cannot reschedule a %s visit", current.Status)
	}
	if current.VisitDate == req.VisitDate && current.VisitTime == req.VisitTime {
		return nil, dErrors.New(dErrors.CodeBadRequest, "cannot reschedule to the same date and time")
	}

	now := s.now()
	if err := s.validator.Validate(ctx, req.VisitDate, req.VisitTime, now, &id); err != nil {
		if dErrors.Is(err, dErrors.CodeCapacityExceeded) {
			s.metrics.CapacityRejections.Inc()
		}
		return nil, err
	}

	oldDate, oldTime := current.VisitDate, current.VisitTime
	sameBucket := oldDate == req.VisitDate && oldTime.Hour == req.VisitTime.Hour

	if !sameBucket {
		if err := s.ledger.Release(ctx, oldDate, oldTime.Hour, 1); err != nil {
			return nil, dErrors.Wrap(dErrors.CodeInternal, "capacity ledger unavailable", err)
		}
		res, err := s.ledger.TryReserve(ctx, req.VisitDate, req.VisitTime.Hour, 1)
		if err != nil || !res.Allowed {
			// Compensate: the visit still holds its original slot.
			if _, compErr := s.ledger.TryReserve(ctx, oldDate, oldTime.Hour, 1); compErr != nil {
				s.logger.ErrorContext(ctx, "failed to restore reservation after reschedule failure",
					"visitor_id", id, "visit_date", oldDate.String(), "hour", oldTime.Hour, "error", compErr)
			}
			if err != nil {
				return nil, dErrors.Wrap(dErrors.CodeInternal, "capacity ledger unavailable", err)
			}
			s.metrics.CapacityRejections.Inc()
			return nil, dErrors.New(dErrors.CodeCapacityExceeded, res.Reason)
		}
	}

	oldCredential := current.Credential
	newCredential := credential.New()

	rec, err := s.store.Mutate(ctx, id, func(r *models.VisitRecord) error {
		if !r.Status.Active() {
			return dErrors.Newf(dErrors.CodeInvalidTransition, "cannot reschedule a %s visit", r.Status)
		}
		if r.VisitDate != oldDate || r.VisitTime != oldTime {
			return dErrors.New(dErrors.CodeConflict, "visit was rescheduled concurrently; retry")
		}
		prevDate, prevTime := r.VisitDate, r.VisitTime
		r.VisitDate = req.VisitDate
		r.VisitTime = req.VisitTime
		// A moved visit must be verified again on the new day, so even a
		// verified record drops back to pending.
		r.Status = models.StatusPending
		r.CheckedInAt = nil
		r.PreviousCredential = r.Credential
		r.Credential = newCredential
		r.IsRescheduled = true
		r.OriginalVisitDate = &prevDate
		r.OriginalVisitTime = &prevTime
		r.UpdatedAt = now
		return nil
	})
	if err != nil {
		if !sameBucket {
			// Undo the ledger move so the record's real slot stays reserved.
			if relErr := s.ledger.Release(ctx, req.VisitDate, req.VisitTime.Hour, 1); relErr != nil {
				s.logger.ErrorContext(ctx, "failed to undo reservation after reschedule abort",
					"visitor_id", id, "error", relErr)
			}
			if _, resErr := s.ledger.TryReserve(ctx, oldDate, oldTime.Hour, 1); resErr != nil {
				s.logger.ErrorContext(ctx, "failed to restore reservation after reschedule abort",
					"visitor_id", id, "error", resErr)
			}
		}
		return nil, err
	}

	s.emitAudit(ctx, audit.Entry{
		VisitorID: rec.ID,
		Action:    audit.ActionRescheduled,
		Timestamp: now,
		ActorID:   actorID,
		Notes: "rescheduled from " + oldDate.String() + " " + oldTime.String() +
			" to " + req.VisitDate.String() + " " + req.VisitTime.String() +
			"; credential " + oldCredential + " superseded",
	})

	s.dispatch(ctx, func(ctx context.Context) {
		if err := s.notifier.NotifyVisitorRescheduled(ctx, rec, oldDate, oldTime); err != nil {
			s.logger.WarnContext(ctx, "reschedule notification failed", "visitor_id", rec.ID, "error", err)
		}
	})
	return rec, nil
}

func (s *Service) buildRecord(req models.CreateVisitorRequest, now time.Time) *models.VisitRecord {
	vt := req.VisitorType
	if vt == "" {
		vt = models.VisitorTypeProfessional
	}
	vc := req.VisitorCategory
	if vc == "" {
		vc = models.CategoryIndustry
	}
	return &models.VisitRecord{
		ID:              uuid.New(),
		Name:            req.Name,
		Email:           req.Email,
		Phone:           req.Phone,
		Company:         req.Company,
		VisitorType:     vt,
		VisitorCategory: vc,
		Purpose:         req.Purpose,
		Department:      req.Department,
		VisitDate:       req.VisitDate,
		VisitTime:       req.VisitTime,
		HostName:        req.HostName,
		HostEmail:       req.HostEmail,
		Status:          models.StatusPending,
		Credential:      credential.New(),
		Notes:           req.Notes,
		IsActive:        true,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
}

func (s *Service) createWithRetry(ctx context.Context, rec *models.VisitRecord) error {
	var err error
	for range createRetries {
		err = s.store.Create(ctx, rec)
		if err == nil || !dErrors.Is(err, dErrors.CodeConflict) {
			return err
		}
		rec.Credential = credential.New()
	}
	return err
}

func (s *Service) emitAudit(ctx context.Context, entry audit.Entry) {
	if err := s.audit.Emit(ctx, entry); err != nil {
		s.logger.ErrorContext(ctx, "audit emit failed",
			"visitor_id", entry.VisitorID, "action", entry.Action, "error", err)
	}
}

// dispatch runs follow-up work detached from the request: the state change
// has committed, so cancellation of the inbound request must not abort it.
func (s *Service) dispatch(ctx context.Context, fn func(context.Context)) {
	detached := context.WithoutCancel(ctx)
	go fn(detached)
}
