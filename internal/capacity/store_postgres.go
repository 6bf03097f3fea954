package capacity

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"gatehouse/internal/visitor/models"
)

// PostgresLedger stores one row per bucket. The conditional upsert makes the
// check-and-increment a single statement, so row-level locking gives the same
// linearizability per bucket as the in-memory mutex.
type PostgresLedger struct {
	pool     *pgxpool.Pool
	capacity int
}

func NewPostgresLedger(pool *pgxpool.Pool, capacity int) *PostgresLedger {
	if capacity <= 0 {
		capacity = DefaultCapacityPerBucket
	}
	return &PostgresLedger{pool: pool, capacity: capacity}
}

// Schema for reference; migrations are managed outside the service.
//
//	CREATE TABLE slot_buckets (
//	    visit_date     date    NOT NULL,
//	    hour_slot      int     NOT NULL,
//	    reserved_count int     NOT NULL DEFAULT 0,
//	    PRIMARY KEY (visit_date, hour_slot)
//	);

func (l *PostgresLedger) TryReserve(ctx context.Context, date models.Date, hour, count int) (Result, error) {
	if count > l.capacity {
		return Result{
			Allowed:   false,
			Remaining: 0,
			Reason:    insufficientReason(hour, count, l.capacity),
		}, nil
	}

	var reserved int
	err := l.pool.QueryRow(ctx, `
		INSERT INTO slot_buckets (visit_date, hour_slot, reserved_count)
		VALUES ($1, $2, $3)
		ON CONFLICT (visit_date, hour_slot) DO UPDATE
		SET reserved_count = slot_buckets.reserved_count + $3
		WHERE slot_buckets.reserved_count + $3 <= $4
		RETURNING reserved_count
	`, date.String(), hour, count, l.capacity).Scan(&reserved)
	if errors.Is(err, pgx.ErrNoRows) {
		current, cErr := l.CurrentCount(ctx, date, hour)
		if cErr != nil {
			return Result{}, cErr
		}
		remaining := l.capacity - current
		reason := fullyBookedReason(hour, current, l.capacity)
		if count > 1 {
			reason = insufficientReason(hour, count, remaining)
		}
		return Result{Allowed: false, Remaining: remaining, Reason: reason}, nil
	}
	if err != nil {
		return Result{}, fmt.Errorf("reserve bucket %s: %w", BucketKey(date, hour), err)
	}
	return Result{Allowed: true, Remaining: l.capacity - reserved}, nil
}

func (l *PostgresLedger) Release(ctx context.Context, date models.Date, hour, count int) error {
	_, err := l.pool.Exec(ctx, `
		UPDATE slot_buckets
		SET reserved_count = GREATEST(reserved_count - $3, 0)
		WHERE visit_date = $1 AND hour_slot = $2
	`, date.String(), hour, count)
	if err != nil {
		return fmt.Errorf("release bucket %s: %w", BucketKey(date, hour), err)
	}
	return nil
}

func (l *PostgresLedger) CurrentCount(ctx context.Context, date models.Date, hour int) (int, error) {
	var reserved int
	err := l.pool.QueryRow(ctx, `
		SELECT reserved_count FROM slot_buckets
		WHERE visit_date = $1 AND hour_slot = $2
	`, date.String(), hour).Scan(&reserved)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("count bucket %s: %w", BucketKey(date, hour), err)
	}
	return reserved, nil
}
