package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"gatehouse/internal/visitor/models"
)

// uniqueViolation is the postgres error code for a unique constraint breach;
// on this table that can only be the credential index. Surfacing it as a
// conflict lets the booking service retry with a fresh credential.
const uniqueViolation = "23505"

func writeError(err error, credential, op string) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
		return errCredentialTaken(credential)
	}
	return fmt.Errorf("%s: %w", op, err)
}

// PostgresStore persists visit records in PostgreSQL. Mutate runs the guard
// inside a SELECT ... FOR UPDATE transaction so concurrent transitions on the
// same record serialize at the row.
type PostgresStore struct {
	pool *pgxpool.Pool
}

func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

// Schema for reference; migrations are managed outside the service.
//
//	CREATE TABLE visit_records (
//	    id                  uuid PRIMARY KEY,
//	    name                text NOT NULL,
//	    email               text NOT NULL,
//	    phone               text NOT NULL,
//	    company             text NOT NULL DEFAULT '',
//	    visitor_type        text NOT NULL,
//	    visitor_category    text NOT NULL,
//	    purpose             text NOT NULL,
//	    department          text NOT NULL DEFAULT '',
//	    visit_date          date NOT NULL,
//	    visit_time          text NOT NULL,
//	    host_name           text NOT NULL DEFAULT '',
//	    host_email          text NOT NULL DEFAULT '',
//	    status              text NOT NULL,
//	    credential          text NOT NULL UNIQUE,
//	    previous_credential text NOT NULL DEFAULT '',
//	    checked_in_at       timestamptz,
//	    checked_out_at      timestamptz,
//	    notes               text NOT NULL DEFAULT '',
//	    is_active           boolean NOT NULL DEFAULT true,
//	    is_rescheduled      boolean NOT NULL DEFAULT false,
//	    original_visit_date date,
//	    original_visit_time text,
//	    created_at          timestamptz NOT NULL,
//	    updated_at          timestamptz NOT NULL
//	);
//	CREATE INDEX visit_records_slot_idx ON visit_records (visit_date, status);

const visitColumns = `id, name, email, phone, company, visitor_type, visitor_category,
	purpose, department, visit_date, visit_time, host_name, host_email, status,
	credential, previous_credential, checked_in_at, checked_out_at, notes, is_active,
	is_rescheduled, original_visit_date, original_visit_time, created_at, updated_at`

func (s *PostgresStore) Create(ctx context.Context, rec *models.VisitRecord) error {
	_, err := s.pool.Exec(ctx, insertVisitSQL, insertArgs(rec)...)
	if err != nil {
		return writeError(err, rec.Credential, "create visit record")
	}
	return nil
}

func (s *PostgresStore) CreateBatch(ctx context.Context, recs []*models.VisitRecord) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin batch create: %w", err)
	}
	defer tx.Rollback(ctx)

	for _, rec := range recs {
		if _, err := tx.Exec(ctx, insertVisitSQL, insertArgs(rec)...); err != nil {
			return writeError(err, rec.Credential, "batch create visit record")
		}
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit batch create: %w", err)
	}
	return nil
}

const insertVisitSQL = `
	INSERT INTO visit_records (` + visitColumns + `)
	VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18,$19,$20,$21,$22,$23,$24,$25)`

func insertArgs(rec *models.VisitRecord) []any {
	return []any{
		rec.ID, rec.Name, rec.Email, rec.Phone, rec.Company,
		string(rec.VisitorType), string(rec.VisitorCategory), string(rec.Purpose), rec.Department,
		rec.VisitDate.At(models.TimeOfDay{}), rec.VisitTime.String(),
		rec.HostName, rec.HostEmail, string(rec.Status), rec.Credential, rec.PreviousCredential,
		rec.CheckedInAt, rec.CheckedOutAt, rec.Notes, rec.IsActive, rec.IsRescheduled,
		nullableDate(rec.OriginalVisitDate), nullableTime(rec.OriginalVisitTime),
		rec.CreatedAt, rec.UpdatedAt,
	}
}

func (s *PostgresStore) FindByID(ctx context.Context, id uuid.UUID) (*models.VisitRecord, error) {
	row := s.pool.QueryRow(ctx, `SELECT `+visitColumns+` FROM visit_records WHERE id = $1`, id)
	return scanVisit(row)
}

func (s *PostgresStore) FindByCredential(ctx context.Context, credential string) (*models.VisitRecord, error) {
	row := s.pool.QueryRow(ctx, `SELECT `+visitColumns+` FROM visit_records WHERE credential = $1`, credential)
	return scanVisit(row)
}

func (s *PostgresStore) FindBySupersededCredential(ctx context.Context, credential string) (*models.VisitRecord, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT `+visitColumns+` FROM visit_records WHERE previous_credential = $1 AND previous_credential <> ''`,
		credential)
	return scanVisit(row)
}

func (s *PostgresStore) Mutate(ctx context.Context, id uuid.UUID, fn func(*models.VisitRecord) error) (*models.VisitRecord, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin mutate: %w", err)
	}
	defer tx.Rollback(ctx)

	row := tx.QueryRow(ctx, `SELECT `+visitColumns+` FROM visit_records WHERE id = $1 FOR UPDATE`, id)
	rec, err := scanVisit(row)
	if err != nil {
		return nil, err
	}

	if err := fn(rec); err != nil {
		return nil, err
	}

	_, err = tx.Exec(ctx, `
		UPDATE visit_records SET
			visit_date = $2, visit_time = $3, status = $4, credential = $5,
			previous_credential = $6, checked_in_at = $7, checked_out_at = $8,
			notes = $9, is_active = $10, is_rescheduled = $11,
			original_visit_date = $12, original_visit_time = $13, updated_at = $14
		WHERE id = $1
	`, rec.ID, rec.VisitDate.At(models.TimeOfDay{}), rec.VisitTime.String(), string(rec.Status),
		rec.Credential, rec.PreviousCredential, rec.CheckedInAt, rec.CheckedOutAt, rec.Notes,
		rec.IsActive, rec.IsRescheduled, nullableDate(rec.OriginalVisitDate),
		nullableTime(rec.OriginalVisitTime), rec.UpdatedAt)
	if err != nil {
		return nil, writeError(err, rec.Credential, "update visit record")
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit mutate: %w", err)
	}
	return rec, nil
}

func (s *PostgresStore) List(ctx context.Context, filter models.ListFilter) ([]*models.VisitRecord, error) {
	query := `SELECT ` + visitColumns + ` FROM visit_records WHERE 1=1`
	args := []any{}
	if filter.Status != "" {
		args = append(args, string(filter.Status))
		query += fmt.Sprintf(" AND status = $%d", len(args))
	}
	if filter.Purpose != "" {
		args = append(args, string(filter.Purpose))
		query += fmt.Sprintf(" AND purpose = $%d", len(args))
	}
	if filter.Query != "" {
		args = append(args, "%"+filter.Query+"%")
		n := len(args)
		query += fmt.Sprintf(" AND (name ILIKE $%d OR email ILIKE $%d OR company ILIKE $%d OR credential ILIKE $%d)", n, n, n, n)
	}
	query += " ORDER BY created_at DESC"

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list visit records: %w", err)
	}
	defer rows.Close()
	return scanVisits(rows)
}

func (s *PostgresStore) ListActiveBySlot(ctx context.Context, date models.Date, hour int) ([]*models.VisitRecord, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT `+visitColumns+` FROM visit_records
		WHERE visit_date = $1
		  AND visit_time >= $2 AND visit_time < $3
		  AND status IN ('pending', 'verified')
	`, date.At(models.TimeOfDay{}), fmt.Sprintf("%02d:00", hour), fmt.Sprintf("%02d:00", hour+1))
	if err != nil {
		return nil, fmt.Errorf("list active by slot: %w", err)
	}
	defer rows.Close()
	return scanVisits(rows)
}

func (s *PostgresStore) ListNonTerminal(ctx context.Context) ([]*models.VisitRecord, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT `+visitColumns+` FROM visit_records
		WHERE status IN ('pending', 'verified')
	`)
	if err != nil {
		return nil, fmt.Errorf("list non-terminal: %w", err)
	}
	defer rows.Close()
	return scanVisits(rows)
}

func (s *PostgresStore) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM visit_records WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete visit record: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanVisit(row rowScanner) (*models.VisitRecord, error) {
	var rec models.VisitRecord
	var visitDate time.Time
	var visitTime string
	var visitorType, visitorCategory, purpose, status string
	var origDate *time.Time
	var origTime *string

	err := row.Scan(
		&rec.ID, &rec.Name, &rec.Email, &rec.Phone, &rec.Company,
		&visitorType, &visitorCategory, &purpose, &rec.Department,
		&visitDate, &visitTime, &rec.HostName, &rec.HostEmail, &status,
		&rec.Credential, &rec.PreviousCredential, &rec.CheckedInAt, &rec.CheckedOutAt,
		&rec.Notes, &rec.IsActive, &rec.IsRescheduled, &origDate, &origTime,
		&rec.CreatedAt, &rec.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan visit record: %w", err)
	}

	rec.VisitorType = models.VisitorType(visitorType)
	rec.VisitorCategory = models.VisitorCategory(visitorCategory)
	rec.Purpose = models.Purpose(purpose)
	rec.Status = models.Status(status)
	rec.VisitDate = models.DateOf(visitDate)
	tod, err := models.ParseTimeOfDay(visitTime)
	if err != nil {
		return nil, err
	}
	rec.VisitTime = tod
	if origDate != nil {
		d := models.DateOf(*origDate)
		rec.OriginalVisitDate = &d
	}
	if origTime != nil {
		t, err := models.ParseTimeOfDay(*origTime)
		if err != nil {
			return nil, err
		}
		rec.OriginalVisitTime = &t
	}
	return &rec, nil
}

func scanVisits(rows pgx.Rows) ([]*models.VisitRecord, error) {
	var out []*models.VisitRecord
	for rows.Next() {
		rec, err := scanVisit(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

func nullableDate(d *models.Date) *time.Time {
	if d == nil {
		return nil
	}
	t := d.At(models.TimeOfDay{})
	return &t
}

func nullableTime(t *models.TimeOfDay) *string {
	if t == nil {
		return nil
	}
	s := t.String()
	return &s
}
