package repository

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/idproof/idproof-backend/internal/verification/domain"
)

// MemoryStore keeps records in an in-process map with auto-incrementing ids.
// Store lifetime equals process lifetime; ids are never reused.
type MemoryStore struct {
	mu      sync.RWMutex
	records map[int64]*domain.Record
	nextID  int64
}

// NewMemoryStore creates an empty in-memory record store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		records: make(map[int64]*domain.Record),
		nextID:  1,
	}
}

// Create assigns the next id and stores a copy of the record
func (s *MemoryStore) Create(ctx context.Context, rec *domain.Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec.ID = s.nextID
	s.nextID++
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now().UTC()
	}

	stored := *rec
	s.records[stored.ID] = &stored
	return nil
}

// Get returns a copy of the record so callers cannot mutate stored state
func (s *MemoryStore) Get(ctx context.Context, id int64) (*domain.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rec, ok := s.records[id]
	if !ok {
		return nil, ErrRecordNotFound
	}
	out := *rec
	return &out, nil
}

// Update replaces the stored record state
func (s *MemoryStore) Update(ctx context.Context, rec *domain.Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.records[rec.ID]; !ok {
		return ErrRecordNotFound
	}
	stored := *rec
	s.records[rec.ID] = &stored
	return nil
}

// List returns copies of all records ordered by id
func (s *MemoryStore) List(ctx context.Context) ([]*domain.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*domain.Record, 0, len(s.records))
	for _, rec := range s.records {
		cp := *rec
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}
