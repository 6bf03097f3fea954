package notify

import (
	"context"
	"fmt"
	"strings"

	"github.com/resendlabs/resend-go"

	"gatehouse/internal/visitor/models"
)

// ResendNotifier delivers notifications through the Resend email API.
// Message bodies stay deliberately plain: full HTML templating belongs to a
// collaborator, this core only guarantees the facts reach the recipient.
type ResendNotifier struct {
	client *resend.Client
	from   string
}

func NewResendNotifier(apiKey, from string) *ResendNotifier {
	return &ResendNotifier{
		client: resend.NewClient(apiKey),
		from:   from,
	}
}

func (n *ResendNotifier) NotifyVisitorConfirmed(_ context.Context, record *models.VisitRecord) error {
	return n.send([]string{record.Email},
		"Your visit is confirmed",
		fmt.Sprintf("<p>Hi %s,</p><p>Your visit on %s at %s is confirmed. Your check-in code is <strong>%s</strong>.</p>",
			record.Name, record.VisitDate, record.VisitTime, record.Credential))
}

func (n *ResendNotifier) NotifyVisitorRescheduled(_ context.Context, record *models.VisitRecord, oldDate models.Date, oldTime models.TimeOfDay) error {
	return n.send([]string{record.Email},
		"Your visit has been rescheduled",
		fmt.Sprintf("<p>Hi %s,</p><p>Your visit has moved from %s %s to %s %s. Your previous check-in code is no longer valid; the new code is <strong>%s</strong>.</p>",
			record.Name, oldDate, oldTime, record.VisitDate, record.VisitTime, record.Credential))
}

func (n *ResendNotifier) NotifyHost(_ context.Context, record *models.VisitRecord) error {
	if record.HostEmail == "" {
		return nil
	}
	return n.send([]string{record.HostEmail},
		"Upcoming visitor: "+record.Name,
		fmt.Sprintf("<p>%s (%s) is scheduled to visit you on %s at %s.</p>",
			record.Name, record.Company, record.VisitDate, record.VisitTime))
}

func (n *ResendNotifier) NotifyHostBulk(_ context.Context, hostName, hostEmail string, records []*models.VisitRecord, date models.Date, t models.TimeOfDay, purpose models.Purpose) error {
	names := make([]string, 0, len(records))
	for _, rec := range records {
		names = append(names, rec.Name)
	}
	return n.send([]string{hostEmail},
		fmt.Sprintf("%d visitors scheduled for %s", len(records), date),
		fmt.Sprintf("<p>Hi %s,</p><p>%d visitors are scheduled on %s at %s (%s):</p><p>%s</p>",
			hostName, len(records), date, t, purpose, strings.Join(names, ", ")))
}

func (n *ResendNotifier) send(to []string, subject, html string) error {
	_, err := n.client.Emails.Send(&resend.SendEmailRequest{
		From:    n.from,
		To:      to,
		Subject: subject,
		Html:    html,
	})
	if err != nil {
		return fmt.Errorf("resend send: %w", err)
	}
	return nil
}
