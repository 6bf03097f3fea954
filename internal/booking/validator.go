// Package booking applies the business rules that decide whether a slot may
// be booked, and orchestrates the reservation, reschedule, and bulk paths on
// top of the capacity ledger.
package booking

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"gatehouse/internal/capacity"
	"gatehouse/internal/visitor/models"
	dErrors "gatehouse/pkg/domain-errors"
)

// LeadTime is the minimum gap between "now" and a same-day booking.
const LeadTime = 30 * time.Minute

// subSlotLimit caps bookings per half-hour sub-slot within an hour bucket.
const subSlotLimit = 2

// SlotReader is the record-level view the validator needs: which active
// bookings currently sit in a bucket. The authoritative capacity commit still
// goes through the ledger; this read feeds rule checks and availability
// listings.
type SlotReader interface {
	ListActiveBySlot(ctx context.Context, date models.Date, hour int) ([]*models.VisitRecord, error)
}

// SlotOffer describes one hour bucket's availability.
type SlotOffer struct {
	Hour      int      `json:"hour"`
	TimeSlot  string   `json:"time_slot"`
	Remaining int      `json:"remaining_count"`
	Times     []string `json:"times"`
}

// Validator answers "may this slot be booked" and "what is bookable on date
// D". It holds no state; every call recomputes from the store.
type Validator struct {
	slots    SlotReader
	capacity int
}

func NewValidator(slots SlotReader, cap int) *Validator {
	if cap <= 0 {
		cap = capacity.DefaultCapacityPerBucket
	}
	return &Validator{slots: slots, capacity: cap}
}

// Validate applies the booking rules in order; the first failure wins.
// excludeID discounts that record's own reservation, for reschedules.
func (v *Validator) Validate(ctx context.Context, date models.Date, t models.TimeOfDay, now time.Time, excludeID *uuid.UUID) error {
	today := models.DateOf(now)

	if date == today {
		buffer := models.TimeOfDayOf(now.Add(LeadTime))
		if !t.After(buffer) {
			return dErrors.New(dErrors.CodeBadRequest,
				"cannot book visits for past times or too close to the current time; choose a time at least 30 minutes from now")
		}
	}
	if date.Before(today) {
		return dErrors.New(dErrors.CodeBadRequest, "cannot book visits for past dates; choose a future date")
	}
	if !date.IsWeekday() {
		return dErrors.New(dErrors.CodeBadRequest, "visits are only allowed on weekdays (Monday-Friday)")
	}
	if !withinBusinessHours(t) {
		return dErrors.New(dErrors.CodeBadRequest, "visits are only allowed between 09:00 and 17:00")
	}

	count, err := v.activeCount(ctx, date, t.Hour, excludeID)
	if err != nil {
		return err
	}
	if count >= v.capacity {
		return dErrors.Newf(dErrors.CodeCapacityExceeded,
			"hour slot %02d:00-%02d:00 is fully booked (%d/%d slots taken)", t.Hour, t.Hour+1, count, v.capacity)
	}
	return nil
}

// ListAvailable computes the bookable offers for a date: per business hour,
// the remaining bucket capacity and the :00/:30 sub-slots that are neither
// past the same-day buffer nor already holding two bookings.
func (v *Validator) ListAvailable(ctx context.Context, date models.Date, now time.Time, excludeID *uuid.UUID) ([]SlotOffer, error) {
	if !date.IsWeekday() {
		return nil, nil
	}

	today := models.DateOf(now)
	buffer := models.TimeOfDayOf(now.Add(LeadTime))

	var offers []SlotOffer
	for hour := capacity.BusinessStartHour; hour < capacity.BusinessEndHour; hour++ {
		actives, err := v.slots.ListActiveBySlot(ctx, date, hour)
		if err != nil {
			return nil, err
		}
		actives = discount(actives, excludeID)

		remaining := v.capacity - len(actives)
		if remaining <= 0 {
			continue
		}

		var times []string
		for _, minute := range []int{0, 30} {
			sub := models.TimeOfDay{Hour: hour, Minute: minute}
			if date == today && !sub.After(buffer) {
				continue
			}
			if countAt(actives, sub) >= subSlotLimit {
				continue
			}
			times = append(times, sub.String())
		}
		if len(times) == 0 {
			continue
		}

		offers = append(offers, SlotOffer{
			Hour:      hour,
			TimeSlot:  fmt.Sprintf("%02d:00-%02d:00", hour, hour+1),
			Remaining: remaining,
			Times:     times,
		})
	}
	return offers, nil
}

func (v *Validator) activeCount(ctx context.Context, date models.Date, hour int, excludeID *uuid.UUID) (int, error) {
	actives, err := v.slots.ListActiveBySlot(ctx, date, hour)
	if err != nil {
		return 0, err
	}
	return len(discount(actives, excludeID)), nil
}

func withinBusinessHours(t models.TimeOfDay) bool {
	m := t.Minutes()
	return m >= capacity.BusinessStartHour*60 && m < capacity.BusinessEndHour*60
}

// discount copies rather than compacting in place; SlotReader implementations
// are free to return shared slices.
func discount(recs []*models.VisitRecord, excludeID *uuid.UUID) []*models.VisitRecord {
	if excludeID == nil {
		return recs
	}
	out := make([]*models.VisitRecord, 0, len(recs))
	for _, rec := range recs {
		if rec.ID != *excludeID {
			out = append(out, rec)
		}
	}
	return out
}

func countAt(recs []*models.VisitRecord, t models.TimeOfDay) int {
	n := 0
	for _, rec := range recs {
		if rec.VisitTime == t {
			n++
		}
	}
	return n
}
