package audit

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresStore persists audit entries. The table has no UPDATE or DELETE
// paths in this codebase.
type PostgresStore struct {
	pool *pgxpool.Pool
}

func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

// Schema for reference; migrations are managed outside the service.
//
//	CREATE TABLE visitor_logs (
//	    id         bigserial PRIMARY KEY,
//	    visitor_id uuid NOT NULL,
//	    action     text NOT NULL,
//	    timestamp  timestamptz NOT NULL,
//	    actor_id   text NOT NULL DEFAULT '',
//	    notes      text NOT NULL DEFAULT ''
//	);
//	CREATE INDEX visitor_logs_visitor_idx ON visitor_logs (visitor_id, timestamp DESC);

func (s *PostgresStore) Append(ctx context.Context, entry Entry) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO visitor_logs (visitor_id, action, timestamp, actor_id, notes)
		VALUES ($1, $2, $3, $4, $5)
	`, entry.VisitorID, string(entry.Action), entry.Timestamp, entry.ActorID, entry.Notes)
	if err != nil {
		return fmt.Errorf("append audit entry: %w", err)
	}
	return nil
}

func (s *PostgresStore) ListByVisitor(ctx context.Context, visitorID uuid.UUID) ([]Entry, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT visitor_id, action, timestamp, actor_id, notes
		FROM visitor_logs
		WHERE visitor_id = $1
		ORDER BY timestamp DESC
	`, visitorID)
	if err != nil {
		return nil, fmt.Errorf("list audit entries: %w", err)
	}
	defer rows.Close()

	var out []Entry
	for rows.Next() {
		var entry Entry
		var action string
		if err := rows.Scan(&entry.VisitorID, &action, &entry.Timestamp, &entry.ActorID, &entry.Notes); err != nil {
			return nil, fmt.Errorf("scan audit entry: %w", err)
		}
		entry.Action = Action(action)
		out = append(out, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}
