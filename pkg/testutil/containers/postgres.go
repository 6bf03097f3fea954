//go:build integration

package containers

import (
	"context"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
)

const schema = `
CREATE TABLE IF NOT EXISTS slot_buckets (
    visit_date     date NOT NULL,
    hour_slot      int  NOT NULL,
    reserved_count int  NOT NULL DEFAULT 0,
    PRIMARY KEY (visit_date, hour_slot)
);

CREATE TABLE IF NOT EXISTS visit_records (
    id                  uuid PRIMARY KEY,
    name                text NOT NULL,
    email               text NOT NULL,
    phone               text NOT NULL,
    company             text NOT NULL DEFAULT '',
    visitor_type        text NOT NULL,
    visitor_category    text NOT NULL,
    purpose             text NOT NULL,
    department          text NOT NULL DEFAULT '',
    visit_date          date NOT NULL,
    visit_time          text NOT NULL,
    host_name           text NOT NULL DEFAULT '',
    host_email          text NOT NULL DEFAULT '',
    status              text NOT NULL,
    credential          text NOT NULL UNIQUE,
    previous_credential text NOT NULL DEFAULT '',
    checked_in_at       timestamptz,
    checked_out_at      timestamptz,
    notes               text NOT NULL DEFAULT '',
    is_active           boolean NOT NULL DEFAULT true,
    is_rescheduled      boolean NOT NULL DEFAULT false,
    original_visit_date date,
    original_visit_time text,
    created_at          timestamptz NOT NULL,
    updated_at          timestamptz NOT NULL
);
CREATE INDEX IF NOT EXISTS visit_records_slot_idx ON visit_records (visit_date, status);

CREATE TABLE IF NOT EXISTS visitor_logs (
    id         bigserial PRIMARY KEY,
    visitor_id uuid NOT NULL,
    action     text NOT NULL,
    timestamp  timestamptz NOT NULL,
    actor_id   text NOT NULL DEFAULT '',
    notes      text NOT NULL DEFAULT ''
);
CREATE INDEX IF NOT EXISTS visitor_logs_visitor_idx ON visitor_logs (visitor_id, timestamp DESC);
`

// PostgresContainer wraps a testcontainers PostgreSQL instance with the
// application schema applied and a ready pgx pool.
type PostgresContainer struct {
	Container testcontainers.Container
	Pool      *pgxpool.Pool
}

// NewPostgresContainer starts PostgreSQL and applies the schema.
func NewPostgresContainer(t *testing.T) *PostgresContainer {
	t.Helper()

	ctx := context.Background()
	container, err := tcpostgres.Run(ctx, "postgres:16-alpine",
		tcpostgres.WithDatabase("gatehouse_test"),
		tcpostgres.WithUsername("gatehouse"),
		tcpostgres.WithPassword("gatehouse"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).WithStartupTimeout(60*time.Second)),
	)
	if err != nil {
		t.Fatalf("failed to start postgres container: %v", err)
	}

	dsn, err := container.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		_ = container.Terminate(ctx)
		t.Fatalf("failed to get postgres connection string: %v", err)
	}

	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		_ = container.Terminate(ctx)
		t.Fatalf("failed to connect to postgres: %v", err)
	}
	if _, err := pool.Exec(ctx, schema); err != nil {
		pool.Close()
		_ = container.Terminate(ctx)
		t.Fatalf("failed to apply schema: %v", err)
	}

	pc := &PostgresContainer{Container: container, Pool: pool}
	t.Cleanup(func() {
		pc.Pool.Close()
		_ = pc.Container.Terminate(context.Background())
	})
	return pc
}

// TruncateTables empties the given tables between tests.
func (p *PostgresContainer) TruncateTables(ctx context.Context, tables ...string) error {
	for _, table := range tables {
		if _, err := p.Pool.Exec(ctx, "TRUNCATE TABLE "+table); err != nil {
			return err
		}
	}
	return nil
}
