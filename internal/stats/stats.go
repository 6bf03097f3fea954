// Package stats aggregates visitor records into the dashboard summary.
package stats

import (
	"context"
	"log/slog"
	"sort"
	"time"

	"gatehouse/internal/sweep"
	"gatehouse/internal/visitor/models"
	"gatehouse/internal/visitor/store"
)

const recentLimit = 5

// GroupCount is one bucket of a grouped count, largest first.
type GroupCount struct {
	Key   string `json:"key"`
	Count int    `json:"count"`
}

// Summary is the dashboard payload.
type Summary struct {
	TotalVisitorsToday  int                   `json:"total_visitors_today"`
	VerifiedVisitors    int                   `json:"verified_visitors"`
	PendingVerification int                   `json:"pending_verification"`
	TotalThisMonth      int                   `json:"total_this_month"`
	RecentVisitors      []*models.VisitRecord `json:"recent_visitors"`
	DepartmentStats     []GroupCount          `json:"department_stats"`
	PurposeStats        []GroupCount          `json:"purpose_stats"`
}

type Service struct {
	store   store.Store
	sweeper *sweep.Sweeper
	logger  *slog.Logger
	now     func() time.Time
}

type Option func(*Service)

func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

func New(st store.Store, sweeper *sweep.Sweeper, logger *slog.Logger, opts ...Option) *Service {
	s := &Service{store: st, sweeper: sweeper, logger: logger, now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Summary sweeps stale records first so the counts never include a pending
// visit whose day already passed, then aggregates in one pass over the
// store. Listings are newest first, so the recent slice is a prefix.
func (s *Service) Summary(ctx context.Context) (*Summary, error) {
	now := s.now()
	if _, err := s.sweeper.Run(ctx, now); err != nil {
		s.logger.WarnContext(ctx, "pre-stats sweep failed", "error", err)
	}

	records, err := s.store.List(ctx, models.ListFilter{})
	if err != nil {
		return nil, err
	}

	today := models.DateOf(now)
	summary := &Summary{
		RecentVisitors:  []*models.VisitRecord{},
		DepartmentStats: []GroupCount{},
		PurposeStats:    []GroupCount{},
	}
	departments := make(map[string]int)
	purposes := make(map[string]int)

	for _, rec := range records {
		if rec.VisitDate == today {
			summary.TotalVisitorsToday++
		}
		if rec.VisitDate.Year == today.Year && rec.VisitDate.Month == today.Month {
			summary.TotalThisMonth++
		}
		switch rec.Status {
		case models.StatusVerified:
			summary.VerifiedVisitors++
		case models.StatusPending:
			summary.PendingVerification++
		}
		departments[rec.Department]++
		purposes[string(rec.Purpose)]++
	}

	if len(records) > recentLimit {
		summary.RecentVisitors = records[:recentLimit]
	} else {
		summary.RecentVisitors = records
	}
	summary.DepartmentStats = sortedCounts(departments)
	summary.PurposeStats = sortedCounts(purposes)
	return summary, nil
}

func sortedCounts(m map[string]int) []GroupCount {
	out := make([]GroupCount, 0, len(m))
	for k, v := range m {
		out = append(out, GroupCount{Key: k, Count: v})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Key < out[j].Key
	})
	return out
}
