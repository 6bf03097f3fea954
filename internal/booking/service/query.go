package service

import (
	"context"

	"github.com/google/uuid"

	"gatehouse/internal/audit"
	"gatehouse/internal/booking"
	"gatehouse/internal/visitor/models"
	dErrors "gatehouse/pkg/domain-errors"
)

// Get returns one visit record by id.
func (s *Service) Get(ctx context.Context, id uuid.UUID) (*models.VisitRecord, error) {
	return s.store.FindByID(ctx, id)
}

// List returns visit records matching the filter, newest first. Expirations
// are refreshed first so past-day records never surface as pending.
func (s *Service) List(ctx context.Context, filter models.ListFilter) ([]*models.VisitRecord, error) {
	if s.sweeper != nil {
		if _, err := s.sweeper.Run(ctx, s.now()); err != nil {
			s.logger.WarnContext(ctx, "expiration refresh before list failed", "error", err.Error())
		}
	}
	return s.store.List(ctx, filter)
}

// Availability returns the bookable offers for a date as seen at call time.
func (s *Service) Availability(ctx context.Context, date models.Date) ([]booking.SlotOffer, error) {
	return s.validator.ListAvailable(ctx, date, s.now(), nil)
}

// SlotCheck reports whether one specific slot would currently be accepted.
type SlotCheck struct {
	Date      models.Date      `json:"visit_date"`
	Time      models.TimeOfDay `json:"visit_time"`
	Available bool             `json:"available"`
	Reason    string           `json:"reason,omitempty"`
}

// CheckSlot runs the booking rules against a single slot without reserving
// anything. Rule rejections come back as an unavailable result, not an error.
func (s *Service) CheckSlot(ctx context.Context, date models.Date, tod models.TimeOfDay) (*SlotCheck, error) {
	check := &SlotCheck{Date: date, Time: tod}
	err := s.validator.Validate(ctx, date, tod, s.now(), nil)
	switch {
	case err == nil:
		check.Available = true
	case dErrors.Is(err, dErrors.CodeBadRequest), dErrors.Is(err, dErrors.CodeCapacityExceeded):
		check.Reason = dErrors.MessageOf(err)
	default:
		return nil, err
	}
	return check, nil
}

// Logs returns the audit trail for one visitor, oldest first.
func (s *Service) Logs(ctx context.Context, id uuid.UUID) ([]audit.Entry, error) {
	if _, err := s.store.FindByID(ctx, id); err != nil {
		return nil, err
	}
	return s.audit.ListByVisitor(ctx, id)
}
