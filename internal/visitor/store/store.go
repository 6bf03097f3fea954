// Package store persists visit records. Implementations must make Mutate
// atomic per record: the guard and the write happen in one step so lifecycle
// transitions cannot race each other or the expiration sweep.
package store

import (
	"context"

	"github.com/google/uuid"

	"gatehouse/internal/visitor/models"
	dErrors "gatehouse/pkg/domain-errors"
)

// ErrNotFound keeps store-level 404s consistent across implementations.
var ErrNotFound = dErrors.New(dErrors.CodeNotFound, "visit record not found")

func errCredentialTaken(credential string) error {
	return dErrors.New(dErrors.CodeConflict, "credential already in use: "+credential)
}

type Store interface {
	Create(ctx context.Context, rec *models.VisitRecord) error

	// CreateBatch persists all records as one unit. On error no records are
	// visible; the bulk coordinator relies on this for all-or-nothing.
	CreateBatch(ctx context.Context, recs []*models.VisitRecord) error

	FindByID(ctx context.Context, id uuid.UUID) (*models.VisitRecord, error)
	FindByCredential(ctx context.Context, credential string) (*models.VisitRecord, error)

	// FindBySupersededCredential resolves a credential that a reschedule
	// retired, so the gate can point the visitor at the updated one.
	FindBySupersededCredential(ctx context.Context, credential string) (*models.VisitRecord, error)

	// Mutate loads the record, applies fn under the record's lock, and
	// persists the result. fn returning an error aborts with no change.
	Mutate(ctx context.Context, id uuid.UUID, fn func(*models.VisitRecord) error) (*models.VisitRecord, error)

	List(ctx context.Context, filter models.ListFilter) ([]*models.VisitRecord, error)

	// ListActiveBySlot returns records in {pending, verified} whose visit
	// time falls inside the given hour bucket.
	ListActiveBySlot(ctx context.Context, date models.Date, hour int) ([]*models.VisitRecord, error)

	// ListNonTerminal feeds the expiration sweep.
	ListNonTerminal(ctx context.Context) ([]*models.VisitRecord, error)

	Delete(ctx context.Context, id uuid.UUID) error
}
