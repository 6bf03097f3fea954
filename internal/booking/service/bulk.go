package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"gatehouse/internal/audit"
	"gatehouse/internal/bulkimport"
	"gatehouse/internal/visitor/models"
	dErrors "gatehouse/pkg/domain-errors"
)

// notifyConcurrency bounds the parallel notification fan-out after a batch
// commits.
const notifyConcurrency = 5

// BulkRequest reserves one shared slot for a batch of visitors.
type BulkRequest struct {
	VisitDate  models.Date      `json:"visit_date"`
	VisitTime  models.TimeOfDay `json:"visit_time"`
	Purpose    models.Purpose   `json:"purpose"`
	Department string           `json:"department"`
	HostName   string           `json:"host_name"`
	HostEmail  string           `json:"host_email"`
	Rows       []bulkimport.Row `json:"visitors"`
}

// BulkResult reports a committed batch.
type BulkResult struct {
	Records  []*models.VisitRecord `json:"visitors"`
	Warnings []string              `json:"warnings,omitempty"`
}

// RowValidationError carries per-row failures for a rejected batch. The
// batch is all-or-nothing, so one bad row fails the whole upload.
type RowValidationError struct {
	Rows []bulkimport.RowError
}

func (e *RowValidationError) Error() string {
	return fmt.Sprintf("%d row(s) failed validation", len(e.Rows))
}

// ReserveBatch registers a batch of visitors into one slot atomically:
// either every row gets a record and the slot absorbs the full party size,
// or nothing is committed.
func (s *Service) ReserveBatch(ctx context.Context, req BulkRequest, actorID string) (*BulkResult, error) {
	n := len(req.Rows)
	if n == 0 {
		return nil, dErrors.New(dErrors.CodeBadRequest, "batch contains no visitors")
	}
	if n > s.maxBulk {
		return nil, dErrors.Newf(dErrors.CodeBadRequest,
			"batch size %d exceeds the maximum of %d", n, s.maxBulk)
	}
	if req.Purpose != "" && !models.ValidPurposes[req.Purpose] {
		return nil, dErrors.Newf(dErrors.CodeBadRequest, "invalid purpose %q", req.Purpose)
	}

	normalized, warnings, rowErrors := bulkimport.NormalizeRows(req.Rows)
	if len(rowErrors) > 0 {
		return nil, &RowValidationError{Rows: rowErrors}
	}

	now := s.now()
	if err := s.validator.Validate(ctx, req.VisitDate, req.VisitTime, now, nil); err != nil {
		if dErrors.Is(err, dErrors.CodeCapacityExceeded) {
			s.metrics.CapacityRejections.Inc()
		}
		return nil, err
	}

	res, err := s.ledger.TryReserve(ctx, req.VisitDate, req.VisitTime.Hour, n)
	if err != nil {
		return nil, dErrors.Wrap(dErrors.CodeInternal, "capacity ledger unavailable", err)
	}
	if !res.Allowed {
		s.metrics.CapacityRejections.Inc()
		return nil, dErrors.New(dErrors.CodeCapacityExceeded, res.Reason)
	}

	records := make([]*models.VisitRecord, 0, n)
	for _, row := range normalized {
		records = append(records, s.buildRecord(models.CreateVisitorRequest{
			Name:            row.Row.Name,
			Email:           row.Row.Email,
			Phone:           row.Row.Phone,
			Company:         row.Row.Company,
			VisitorType:     row.VisitorType,
			VisitorCategory: row.VisitorCategory,
			Purpose:         req.Purpose,
			Department:      req.Department,
			VisitDate:       req.VisitDate,
			VisitTime:       req.VisitTime,
			HostName:        req.HostName,
			HostEmail:       req.HostEmail,
			Notes:           row.Row.Notes,
		}, now))
	}

	if err := s.store.CreateBatch(ctx, records); err != nil {
		if relErr := s.ledger.Release(ctx, req.VisitDate, req.VisitTime.Hour, n); relErr != nil {
			s.logger.ErrorContext(ctx, "failed to release batch reservation after create failure",
				"visit_date", req.VisitDate.String(), "hour", req.VisitTime.Hour,
				"count", n, "error", relErr)
		}
		return nil, err
	}

	s.metrics.BulkBatchesReserved.Inc()
	for i, rec := range records {
		s.metrics.VisitorsRegistered.Inc()
		s.emitAudit(ctx, audit.Entry{
			VisitorID: rec.ID,
			Action:    audit.ActionRegistered,
			Timestamp: now,
			ActorID:   actorID,
			Notes:     fmt.Sprintf("bulk registration, row %d of %d", i+1, n),
		})
	}

	s.dispatch(ctx, func(ctx context.Context) {
		s.notifyBatch(ctx, req, records)
	})
	return &BulkResult{Records: records, Warnings: warnings}, nil
}

// notifyBatch fans out visitor confirmations with bounded concurrency, then
// sends the host one roll-up rather than a message per row.
func (s *Service) notifyBatch(ctx context.Context, req BulkRequest, records []*models.VisitRecord) {
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(notifyConcurrency)
	for _, rec := range records {
		g.Go(func() error {
			if err := s.notifier.NotifyVisitorConfirmed(ctx, rec); err != nil {
				s.logger.WarnContext(ctx, "confirmation notification failed",
					"visitor_id", rec.ID, "error", err)
			}
			return nil
		})
	}
	_ = g.Wait()

	if req.HostEmail == "" {
		return
	}
	if err := s.notifier.NotifyHostBulk(ctx, req.HostName, req.HostEmail, records,
		req.VisitDate, req.VisitTime, req.Purpose); err != nil {
		s.logger.WarnContext(ctx, "host batch notification failed",
			"count", len(records), "error", err)
	}
}

// Cancel aborts a non-terminal visit and releases its seat.
func (s *Service) Cancel(ctx context.Context, id uuid.UUID, actorID string) (*models.VisitRecord, error) {
	now := s.now()
	var wasActive bool
	var relDate models.Date
	var relHour int

	rec, err := s.store.Mutate(ctx, id, func(r *models.VisitRecord) error {
		if r.Status.Terminal() {
			return dErrors.Newf(dErrors.CodeInvalidTransition, "cannot cancel a %s visit", r.Status)
		}
		wasActive = r.Status.Active()
		relDate, relHour = r.VisitDate, r.VisitTime.Hour
		r.Status = models.StatusCancelled
		r.UpdatedAt = now
		return nil
	})
	if err != nil {
		return nil, err
	}

	if wasActive {
		if relErr := s.ledger.Release(ctx, relDate, relHour, 1); relErr != nil {
			s.logger.ErrorContext(ctx, "failed to release reservation on cancel",
				"visitor_id", id, "error", relErr)
		}
	}
	s.emitAudit(ctx, audit.Entry{
		VisitorID: rec.ID,
		Action:    audit.ActionCancelled,
		Timestamp: now,
		ActorID:   actorID,
	})
	return rec, nil
}

// Delete removes a record entirely. Active visits give their seat back
// first; terminal ones already released it.
func (s *Service) Delete(ctx context.Context, id uuid.UUID, actorID string) error {
	rec, err := s.store.FindByID(ctx, id)
	if err != nil {
		return err
	}
	if rec.Status.Active() {
		if relErr := s.ledger.Release(ctx, rec.VisitDate, rec.VisitTime.Hour, 1); relErr != nil {
			s.logger.ErrorContext(ctx, "failed to release reservation on delete",
				"visitor_id", id, "error", relErr)
		}
	}
	if err := s.store.Delete(ctx, id); err != nil {
		return err
	}
	s.emitAudit(ctx, audit.Entry{
		VisitorID: id,
		Action:    audit.ActionDeleted,
		Timestamp: s.now(),
		ActorID:   actorID,
	})
	return nil
}

// ResendConfirmation re-sends the confirmation for an active visit.
func (s *Service) ResendConfirmation(ctx context.Context, id uuid.UUID, actorID string) error {
	rec, err := s.store.FindByID(ctx, id)
	if err != nil {
		return err
	}
	if !rec.Status.Active() {
		return dErrors.Newf(dErrors.CodeInvalidTransition,
			"cannot resend confirmation for a %s visit", rec.Status)
	}
	if err := s.notifier.NotifyVisitorConfirmed(ctx, rec); err != nil {
		return dErrors.Wrap(dErrors.CodeInternal, "failed to send confirmation", err)
	}
	s.emitAudit(ctx, audit.Entry{
		VisitorID: rec.ID,
		Action:    audit.ActionEmailResent,
		Timestamp: s.now(),
		ActorID:   actorID,
	})
	return nil
}
