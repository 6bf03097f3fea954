// Package capacity maintains per (date, hour) reservation counts for the
// visit schedule and enforces the per-bucket ceiling. It is pure counting:
// business rules about which slots may be booked live in the booking
// validator, not here.
package capacity

import (
	"context"
	"fmt"

	"gatehouse/internal/visitor/models"
)

const (
	// BusinessStartHour and BusinessEndHour bound the 9:00-17:00 visit
	// window; hour buckets run [9..16].
	BusinessStartHour = 9
	BusinessEndHour   = 17

	// DefaultCapacityPerBucket is the reservation ceiling per hour bucket.
	DefaultCapacityPerBucket = 20
)

// Result reports the outcome of a reservation attempt. Reason is user-visible
// when Allowed is false.
type Result struct {
	Allowed   bool
	Remaining int
	Reason    string
}

// Ledger is the slot-capacity contract. TryReserve must be atomic with
// respect to concurrent callers targeting the same bucket: the check and the
// increment happen in one step, and two racing reservations can never jointly
// exceed the ceiling. Release floors at zero; callers own the discipline of
// releasing exactly once per lifecycle transition. CurrentCount is a snapshot
// and may be stale the instant it returns.
type Ledger interface {
	TryReserve(ctx context.Context, date models.Date, hour, count int) (Result, error)
	Release(ctx context.Context, date models.Date, hour, count int) error
	CurrentCount(ctx context.Context, date models.Date, hour int) (int, error)
}

// InBusinessWindow reports whether the hour indexes a valid bucket.
func InBusinessWindow(hour int) bool {
	return hour >= BusinessStartHour && hour < BusinessEndHour
}

// BucketKey builds the canonical key for a (date, hour) bucket, shared by the
// redis ledger and log lines.
func BucketKey(date models.Date, hour int) string {
	return fmt.Sprintf("slot:%s:%02d", date, hour)
}

func fullyBookedReason(hour, current, cap int) string {
	return fmt.Sprintf("hour slot %02d:00-%02d:00 is fully booked (%d/%d slots taken)", hour, hour+1, current, cap)
}

func insufficientReason(hour, need, remaining int) string {
	return fmt.Sprintf("not enough capacity in hour slot %02d:00-%02d:00: need %d, %d remaining", hour, hour+1, need, remaining)
}
