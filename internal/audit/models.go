package audit

import (
	"time"

	"github.com/google/uuid"
)

// Action tags one lifecycle event in the append-only log.
type Action string

const (
	ActionRegistered  Action = "registered"
	ActionVerified    Action = "verified"
	ActionCheckedOut  Action = "checked_out"
	ActionCancelled   Action = "cancelled"
	ActionExpired     Action = "expired"
	ActionCompleted   Action = "completed"
	ActionRescheduled Action = "rescheduled"
	ActionEmailResent Action = "email_resent"
	ActionDeleted     Action = "deleted"
)

// Entry is emitted from domain logic to capture one lifecycle event. It is
// write-only from the core's perspective: never mutated, never deleted.
type Entry struct {
	VisitorID uuid.UUID `json:"visitor_id"`
	Action    Action    `json:"action"`
	Timestamp time.Time `json:"timestamp"`
	ActorID   string    `json:"actor_id,omitempty"`
	Notes     string    `json:"notes,omitempty"`
}
