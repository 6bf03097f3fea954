package store

import (
	"context"
	"sort"
	"strings"
	"sync"

	"github.com/google/uuid"

	"gatehouse/internal/visitor/models"
)

// InMemoryStore keeps visit records in process memory. Each record carries
// its own mutex so Mutate serializes per record, not across the store; the
// outer lock guards only the maps.
type InMemoryStore struct {
	mu               sync.RWMutex
	records          map[uuid.UUID]*recordEntry
	byCredential     map[string]uuid.UUID
	bySupersededCred map[string]uuid.UUID
}

type recordEntry struct {
	mu  sync.Mutex
	rec models.VisitRecord
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{
		records:          make(map[uuid.UUID]*recordEntry),
		byCredential:     make(map[string]uuid.UUID),
		bySupersededCred: make(map[string]uuid.UUID),
	}
}

func (s *InMemoryStore) Create(_ context.Context, rec *models.VisitRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.createLocked(rec)
}

func (s *InMemoryStore) CreateBatch(_ context.Context, recs []*models.VisitRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, rec := range recs {
		if _, taken := s.byCredential[rec.Credential]; taken {
			return errCredentialTaken(rec.Credential)
		}
	}
	for _, rec := range recs {
		if err := s.createLocked(rec); err != nil {
			return err
		}
	}
	return nil
}

func (s *InMemoryStore) createLocked(rec *models.VisitRecord) error {
	if _, taken := s.byCredential[rec.Credential]; taken {
		return errCredentialTaken(rec.Credential)
	}
	entry := &recordEntry{rec: *rec}
	s.records[rec.ID] = entry
	s.byCredential[rec.Credential] = rec.ID
	if rec.PreviousCredential != "" {
		s.bySupersededCred[rec.PreviousCredential] = rec.ID
	}
	return nil
}

func (s *InMemoryStore) FindByID(_ context.Context, id uuid.UUID) (*models.VisitRecord, error) {
	s.mu.RLock()
	entry := s.records[id]
	s.mu.RUnlock()
	if entry == nil {
		return nil, ErrNotFound
	}
	entry.mu.Lock()
	defer entry.mu.Unlock()
	rec := entry.rec
	return &rec, nil
}

func (s *InMemoryStore) FindByCredential(ctx context.Context, credential string) (*models.VisitRecord, error) {
	s.mu.RLock()
	id, ok := s.byCredential[credential]
	s.mu.RUnlock()
	if !ok {
		return nil, ErrNotFound
	}
	return s.FindByID(ctx, id)
}

func (s *InMemoryStore) FindBySupersededCredential(ctx context.Context, credential string) (*models.VisitRecord, error) {
	s.mu.RLock()
	id, ok := s.bySupersededCred[credential]
	s.mu.RUnlock()
	if !ok {
		return nil, ErrNotFound
	}
	return s.FindByID(ctx, id)
}

func (s *InMemoryStore) Mutate(_ context.Context, id uuid.UUID, fn func(*models.VisitRecord) error) (*models.VisitRecord, error) {
	s.mu.RLock()
	entry := s.records[id]
	s.mu.RUnlock()
	if entry == nil {
		return nil, ErrNotFound
	}

	entry.mu.Lock()
	defer entry.mu.Unlock()

	work := entry.rec
	oldCredential := work.Credential
	oldSuperseded := work.PreviousCredential
	if err := fn(&work); err != nil {
		return nil, err
	}

	if work.Credential != oldCredential || work.PreviousCredential != oldSuperseded {
		s.mu.Lock()
		if work.Credential != oldCredential {
			if _, taken := s.byCredential[work.Credential]; taken {
				s.mu.Unlock()
				return nil, errCredentialTaken(work.Credential)
			}
			delete(s.byCredential, oldCredential)
			s.byCredential[work.Credential] = id
		}
		if work.PreviousCredential != oldSuperseded {
			delete(s.bySupersededCred, oldSuperseded)
			if work.PreviousCredential != "" {
				s.bySupersededCred[work.PreviousCredential] = id
			}
		}
		s.mu.Unlock()
	}

	entry.rec = work
	rec := work
	return &rec, nil
}

func (s *InMemoryStore) List(_ context.Context, filter models.ListFilter) ([]*models.VisitRecord, error) {
	s.mu.RLock()
	entries := make([]*recordEntry, 0, len(s.records))
	for _, entry := range s.records {
		entries = append(entries, entry)
	}
	s.mu.RUnlock()

	var out []*models.VisitRecord
	for _, entry := range entries {
		entry.mu.Lock()
		rec := entry.rec
		entry.mu.Unlock()
		if matches(rec, filter) {
			copied := rec
			out = append(out, &copied)
		}
	}
	// Newest first, matching the admin listing order.
	sort.Slice(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}

func (s *InMemoryStore) ListActiveBySlot(ctx context.Context, date models.Date, hour int) ([]*models.VisitRecord, error) {
	all, err := s.List(ctx, models.ListFilter{})
	if err != nil {
		return nil, err
	}
	var out []*models.VisitRecord
	for _, rec := range all {
		if rec.Status.Active() && rec.VisitDate == date && rec.VisitTime.Hour == hour {
			out = append(out, rec)
		}
	}
	return out, nil
}

func (s *InMemoryStore) ListNonTerminal(ctx context.Context) ([]*models.VisitRecord, error) {
	all, err := s.List(ctx, models.ListFilter{})
	if err != nil {
		return nil, err
	}
	var out []*models.VisitRecord
	for _, rec := range all {
		if !rec.Status.Terminal() {
			out = append(out, rec)
		}
	}
	return out, nil
}

func (s *InMemoryStore) Delete(_ context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	entry := s.records[id]
	if entry == nil {
		return ErrNotFound
	}
	delete(s.byCredential, entry.rec.Credential)
	delete(s.bySupersededCred, entry.rec.PreviousCredential)
	delete(s.records, id)
	return nil
}

func matches(rec models.VisitRecord, filter models.ListFilter) bool {
	if filter.Status != "" && rec.Status != filter.Status {
		return false
	}
	if filter.Purpose != "" && rec.Purpose != filter.Purpose {
		return false
	}
	if filter.Query != "" {
		q := strings.ToLower(filter.Query)
		if !strings.Contains(strings.ToLower(rec.Name), q) &&
			!strings.Contains(strings.ToLower(rec.Email), q) &&
			!strings.Contains(strings.ToLower(rec.Company), q) &&
			!strings.Contains(strings.ToLower(rec.Credential), q) {
			return false
		}
	}
	return true
}
