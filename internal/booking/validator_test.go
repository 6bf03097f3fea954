package booking

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"

	"gatehouse/internal/capacity"
	"gatehouse/internal/visitor/models"
	dErrors "gatehouse/pkg/domain-errors"
)

type fakeSlots struct {
	records map[string][]*models.VisitRecord
}

func newFakeSlots() *fakeSlots {
	return &fakeSlots{records: make(map[string][]*models.VisitRecord)}
}

func (f *fakeSlots) ListActiveBySlot(_ context.Context, date models.Date, hour int) ([]*models.VisitRecord, error) {
	return f.records[capacity.BucketKey(date, hour)], nil
}

func (f *fakeSlots) add(date models.Date, t models.TimeOfDay) *models.VisitRecord {
	rec := &models.VisitRecord{
		ID:        uuid.New(),
		VisitDate: date,
		VisitTime: t,
		Status:    models.StatusPending,
	}
	key := capacity.BucketKey(date, t.Hour)
	f.records[key] = append(f.records[key], rec)
	return rec
}

type ValidatorSuite struct {
	suite.Suite
	slots     *fakeSlots
	validator *Validator
	now       time.Time // Monday 2025-01-06 10:00 local
}

func TestValidatorSuite(t *testing.T) {
	suite.Run(t, new(ValidatorSuite))
}

func (s *ValidatorSuite) SetupTest() {
	s.slots = newFakeSlots()
	s.validator = NewValidator(s.slots, 20)
	s.now = time.Date(2025, 1, 6, 10, 0, 0, 0, time.Local)
}

func (s *ValidatorSuite) date(day int) models.Date {
	return models.Date{Year: 2025, Month: time.January, Day: day}
}

func (s *ValidatorSuite) at(hour, minute int) models.TimeOfDay {
	return models.TimeOfDay{Hour: hour, Minute: minute}
}

func (s *ValidatorSuite) TestValidate() {
	ctx := context.Background()

	s.Run("accepts a future weekday slot", func() {
		s.NoError(s.validator.Validate(ctx, s.date(7), s.at(10, 0), s.now, nil))
	})

	s.Run("rejects past dates", func() {
		err := s.validator.Validate(ctx, s.date(3), s.at(10, 0), s.now, nil)
		s.True(dErrors.Is(err, dErrors.CodeBadRequest))
		s.Contains(dErrors.MessageOf(err), "past dates")
	})

	s.Run("rejects weekends", func() {
		err := s.validator.Validate(ctx, s.date(11), s.at(10, 0), s.now, nil)
		s.True(dErrors.Is(err, dErrors.CodeBadRequest))
		s.Contains(dErrors.MessageOf(err), "weekdays")
	})

	s.Run("rejects same-day times inside the lead buffer", func() {
		err := s.validator.Validate(ctx, s.date(6), s.at(10, 15), s.now, nil)
		s.True(dErrors.Is(err, dErrors.CodeBadRequest))
		s.Contains(dErrors.MessageOf(err), "30 minutes")
	})

	s.Run("rejects same-day time exactly at the buffer edge", func() {
		err := s.validator.Validate(ctx, s.date(6), s.at(10, 30), s.now, nil)
		s.True(dErrors.Is(err, dErrors.CodeBadRequest))
	})

	s.Run("accepts same-day time past the buffer", func() {
		s.NoError(s.validator.Validate(ctx, s.date(6), s.at(10, 31), s.now, nil))
	})

	s.Run("rejects times before business hours", func() {
		err := s.validator.Validate(ctx, s.date(7), s.at(8, 30), s.now, nil)
		s.True(dErrors.Is(err, dErrors.CodeBadRequest))
		s.Contains(dErrors.MessageOf(err), "09:00")
	})

	s.Run("rejects times at or after closing", func() {
		s.Error(s.validator.Validate(ctx, s.date(7), s.at(17, 0), s.now, nil))
		s.Error(s.validator.Validate(ctx, s.date(7), s.at(18, 0), s.now, nil))
	})

	s.Run("accepts the last bookable sub-slot", func() {
		s.NoError(s.validator.Validate(ctx, s.date(7), s.at(16, 30), s.now, nil))
	})
}

func (s *ValidatorSuite) TestValidateCapacity() {
	ctx := context.Background()
	date := s.date(7)

	for range 20 {
		s.slots.add(date, s.at(10, 0))
	}

	err := s.validator.Validate(ctx, date, s.at(10, 30), s.now, nil)
	s.True(dErrors.Is(err, dErrors.CodeCapacityExceeded))
	s.Contains(dErrors.MessageOf(err), "fully booked")

	// A different hour is unaffected.
	s.NoError(s.validator.Validate(ctx, date, s.at(11, 0), s.now, nil))
}

func (s *ValidatorSuite) TestValidateExcludesOwnRecord() {
	ctx := context.Background()
	date := s.date(7)

	var own *models.VisitRecord
	for i := range 20 {
		rec := s.slots.add(date, s.at(10, 0))
		if i == 0 {
			own = rec
		}
	}

	s.Error(s.validator.Validate(ctx, date, s.at(10, 30), s.now, nil))
	s.NoError(s.validator.Validate(ctx, date, s.at(10, 30), s.now, &own.ID))
}

// TestValidateLeavesReaderSliceIntact guards against the validator compacting
// a slice the slot reader still owns: the fake here hands out its backing
// array directly, as a store implementation may.
func (s *ValidatorSuite) TestValidateLeavesReaderSliceIntact() {
	ctx := context.Background()
	date := s.date(7)

	own := s.slots.add(date, s.at(10, 0))
	other := s.slots.add(date, s.at(10, 30))

	s.Require().NoError(s.validator.Validate(ctx, date, s.at(10, 0), s.now, &own.ID))

	shared := s.slots.records[capacity.BucketKey(date, 10)]
	s.Require().Len(shared, 2)
	s.Equal(own.ID, shared[0].ID)
	s.Equal(other.ID, shared[1].ID)
}

func (s *ValidatorSuite) TestListAvailable() {
	ctx := context.Background()

	s.Run("returns nothing for weekends", func() {
		offers, err := s.validator.ListAvailable(ctx, s.date(11), s.now, nil)
		s.NoError(err)
		s.Empty(offers)
	})

	s.Run("offers every business hour on an empty future day", func() {
		offers, err := s.validator.ListAvailable(ctx, s.date(7), s.now, nil)
		s.NoError(err)
		s.Len(offers, 8)
		s.Equal(9, offers[0].Hour)
		s.Equal("09:00-10:00", offers[0].TimeSlot)
		s.Equal(20, offers[0].Remaining)
		s.Equal([]string{"09:00", "09:30"}, offers[0].Times)
		s.Equal(16, offers[len(offers)-1].Hour)
	})

	s.Run("same-day offers drop times inside the buffer", func() {
		offers, err := s.validator.ListAvailable(ctx, s.date(6), s.now, nil)
		s.NoError(err)
		// 09:00-10:00 is entirely in the past at 10:00, and 10:00/10:30 sit
		// inside the 30 minute buffer.
		s.Equal(11, offers[0].Hour)
	})

	s.Run("full sub-slot is withheld while the hour stays offered", func() {
		date := s.date(8)
		s.slots.add(date, s.at(9, 0))
		s.slots.add(date, s.at(9, 0))

		offers, err := s.validator.ListAvailable(ctx, date, s.now, nil)
		s.NoError(err)
		s.Equal(9, offers[0].Hour)
		s.Equal(18, offers[0].Remaining)
		s.Equal([]string{"09:30"}, offers[0].Times)
	})

	s.Run("full hour bucket disappears", func() {
		date := s.date(9)
		for i := range 20 {
			minute := 0
			if i%2 == 0 {
				minute = 30
			}
			s.slots.add(date, s.at(9, minute))
		}

		offers, err := s.validator.ListAvailable(ctx, date, s.now, nil)
		s.NoError(err)
		s.Len(offers, 7)
		s.Equal(10, offers[0].Hour)
	})
}
