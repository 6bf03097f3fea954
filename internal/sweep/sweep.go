// Package sweep reconciles records whose visit day has passed: pending
// visits that never showed up become expired, verified visits that never
// checked out become completed. The sweep runs periodically and is also
// invoked before listings so reads never show a stale active record.
package sweep

import (
	"context"
	"log/slog"
	"time"

	"gatehouse/internal/audit"
	"gatehouse/internal/capacity"
	"gatehouse/internal/platform/metrics"
	"gatehouse/internal/visitor/models"
	"gatehouse/internal/visitor/store"
)

// Result counts the transitions applied by one sweep pass.
type Result struct {
	Expired   int `json:"expired"`
	Completed int `json:"completed"`
}

type Sweeper struct {
	store   store.Store
	ledger  capacity.Ledger
	audit   *audit.Publisher
	metrics *metrics.Metrics
	logger  *slog.Logger
}

func New(st store.Store, ledger capacity.Ledger, auditPub *audit.Publisher, m *metrics.Metrics, logger *slog.Logger) *Sweeper {
	return &Sweeper{store: st, ledger: ledger, audit: auditPub, metrics: m, logger: logger}
}

// Run applies the sweep rules as of now. Each record transitions under its
// own lock, so a sweep racing a verification or checkout loses cleanly: the
// closure re-checks status and skips records that moved on. Running twice
// with the same clock is a no-op the second time.
func (s *Sweeper) Run(ctx context.Context, now time.Time) (Result, error) {
	var result Result

	candidates, err := s.store.ListNonTerminal(ctx)
	if err != nil {
		return result, err
	}
	today := models.DateOf(now)

	for _, candidate := range candidates {
		if !candidate.VisitDate.Before(today) {
			continue
		}

		var applied models.Status
		_, err := s.store.Mutate(ctx, candidate.ID, func(r *models.VisitRecord) error {
			applied = ""
			if !r.VisitDate.Before(today) {
				return nil
			}
			switch r.Status {
			case models.StatusPending:
				r.Status = models.StatusExpired
			case models.StatusVerified:
				checkedOut := now
				r.Status = models.StatusCompleted
				r.CheckedOutAt = &checkedOut
			default:
				return nil
			}
			applied = r.Status
			r.UpdatedAt = now
			return nil
		})
		if err != nil {
			s.logger.ErrorContext(ctx, "sweep transition failed",
				"visitor_id", candidate.ID, "error", err)
			continue
		}
		if applied == "" {
			continue
		}

		if relErr := s.ledger.Release(ctx, candidate.VisitDate, candidate.VisitTime.Hour, 1); relErr != nil {
			s.logger.ErrorContext(ctx, "failed to release reservation during sweep",
				"visitor_id", candidate.ID, "error", relErr)
		}

		action := audit.ActionExpired
		if applied == models.StatusCompleted {
			action = audit.ActionCompleted
			result.Completed++
		} else {
			result.Expired++
		}
		s.metrics.SweepTransitions.WithLabelValues(string(applied)).Inc()
		if auditErr := s.audit.Emit(ctx, audit.Entry{
			VisitorID: candidate.ID,
			Action:    action,
			Timestamp: now,
			Notes:     "visit day passed",
		}); auditErr != nil {
			s.logger.ErrorContext(ctx, "audit emit failed",
				"visitor_id", candidate.ID, "action", action, "error", auditErr)
		}
	}

	if result.Expired > 0 || result.Completed > 0 {
		s.logger.InfoContext(ctx, "sweep pass applied transitions",
			"expired", result.Expired, "completed", result.Completed)
	}
	return result, nil
}

// Worker runs the sweep on a fixed interval until the context is cancelled.
type Worker struct {
	sweeper  *Sweeper
	interval time.Duration
	logger   *slog.Logger
}

func NewWorker(sweeper *Sweeper, interval time.Duration, logger *slog.Logger) *Worker {
	return &Worker{sweeper: sweeper, interval: interval, logger: logger}
}

func (w *Worker) Run(ctx context.Context) {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	w.logger.InfoContext(ctx, "sweep worker started", "interval", w.interval.String())
	for {
		select {
		case <-ctx.Done():
			w.logger.InfoContext(ctx, "sweep worker stopped")
			return
		case <-ticker.C:
			if _, err := w.sweeper.Run(ctx, time.Now()); err != nil {
				w.logger.ErrorContext(ctx, "sweep pass failed", "error", err)
			}
		}
	}
}
