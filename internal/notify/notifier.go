// Package notify defines the outbound notification contract. Notifications
// are fire-and-forget follow-up work dispatched after a state change commits;
// failures are logged and surfaced as warnings, never rolled back into the
// booking result.
package notify

import (
	"context"
	"log/slog"

	"gatehouse/internal/visitor/models"
)

type Notifier interface {
	NotifyVisitorConfirmed(ctx context.Context, record *models.VisitRecord) error
	NotifyVisitorRescheduled(ctx context.Context, record *models.VisitRecord, oldDate models.Date, oldTime models.TimeOfDay) error
	NotifyHost(ctx context.Context, record *models.VisitRecord) error
	NotifyHostBulk(ctx context.Context, hostName, hostEmail string, records []*models.VisitRecord, date models.Date, t models.TimeOfDay, purpose models.Purpose) error
}

// LogNotifier writes notification intents to the log. It is the default when
// no delivery provider is configured, and keeps tests quiet and deterministic.
type LogNotifier struct {
	Logger *slog.Logger
}

func (n LogNotifier) NotifyVisitorConfirmed(ctx context.Context, record *models.VisitRecord) error {
	n.Logger.InfoContext(ctx, "visitor confirmation notification",
		"visitor_id", record.ID, "email", record.Email)
	return nil
}

func (n LogNotifier) NotifyVisitorRescheduled(ctx context.Context, record *models.VisitRecord, oldDate models.Date, oldTime models.TimeOfDay) error {
	n.Logger.InfoContext(ctx, "visitor reschedule notification",
		"visitor_id", record.ID, "email", record.Email,
		"old_date", oldDate.String(), "old_time", oldTime.String(),
		"new_date", record.VisitDate.String(), "new_time", record.VisitTime.String())
	return nil
}

func (n LogNotifier) NotifyHost(ctx context.Context, record *models.VisitRecord) error {
	if record.HostEmail == "" {
		return nil
	}
	n.Logger.InfoContext(ctx, "host notification",
		"visitor_id", record.ID, "host_email", record.HostEmail)
	return nil
}

func (n LogNotifier) NotifyHostBulk(ctx context.Context, hostName, hostEmail string, records []*models.VisitRecord, date models.Date, t models.TimeOfDay, purpose models.Purpose) error {
	n.Logger.InfoContext(ctx, "bulk host notification",
		"host_email", hostEmail, "visitors", len(records),
		"visit_date", date.String(), "visit_time", t.String())
	return nil
}
