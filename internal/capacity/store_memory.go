package capacity

import (
	"context"
	"sync"

	"gatehouse/internal/visitor/models"
)

// InMemoryLedger keeps bucket counts in process memory. Each bucket carries
// its own mutex so concurrent reservations against different buckets never
// serialize on each other; the outer lock only guards bucket creation.
type InMemoryLedger struct {
	mu       sync.RWMutex
	buckets  map[string]*memBucket
	capacity int
}

type memBucket struct {
	mu       sync.Mutex
	reserved int
}

func NewInMemoryLedger(capacity int) *InMemoryLedger {
	if capacity <= 0 {
		capacity = DefaultCapacityPerBucket
	}
	return &InMemoryLedger{
		buckets:  make(map[string]*memBucket),
		capacity: capacity,
	}
}

// TryReserve checks and increments under the bucket's lock in one step.
func (l *InMemoryLedger) TryReserve(_ context.Context, date models.Date, hour, count int) (Result, error) {
	b := l.bucket(date, hour)
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.reserved+count > l.capacity {
		remaining := l.capacity - b.reserved
		reason := fullyBookedReason(hour, b.reserved, l.capacity)
		if count > 1 {
			reason = insufficientReason(hour, count, remaining)
		}
		return Result{Allowed: false, Remaining: remaining, Reason: reason}, nil
	}
	b.reserved += count
	return Result{Allowed: true, Remaining: l.capacity - b.reserved}, nil
}

func (l *InMemoryLedger) Release(_ context.Context, date models.Date, hour, count int) error {
	b := l.bucket(date, hour)
	b.mu.Lock()
	defer b.mu.Unlock()
	b.reserved -= count
	if b.reserved < 0 {
		b.reserved = 0
	}
	return nil
}

func (l *InMemoryLedger) CurrentCount(_ context.Context, date models.Date, hour int) (int, error) {
	l.mu.RLock()
	b := l.buckets[BucketKey(date, hour)]
	l.mu.RUnlock()
	if b == nil {
		return 0, nil
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.reserved, nil
}

func (l *InMemoryLedger) bucket(date models.Date, hour int) *memBucket {
	key := BucketKey(date, hour)

	l.mu.RLock()
	b := l.buckets[key]
	l.mu.RUnlock()
	if b != nil {
		return b
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	if b = l.buckets[key]; b == nil {
		b = &memBucket{}
		l.buckets[key] = b
	}
	return b
}
