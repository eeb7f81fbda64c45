package repository

import (
	"context"
	"errors"

	"github.com/idproof/idproof-backend/internal/verification/domain"
)

// ErrRecordNotFound is returned when a record id does not exist
var ErrRecordNotFound = errors.New("verification record not found")

// RecordStore is the persistence boundary for verification records.
// The orchestrator depends only on this interface so a durable backend can
// be substituted for the in-memory map without touching it.
type RecordStore interface {
	// Create persists a new record and assigns its sequential id
	Create(ctx context.Context, rec *domain.Record) error
	// Get returns the record with the given id or ErrRecordNotFound
	Get(ctx context.Context, id int64) (*domain.Record, error)
	// Update persists the full current state of an existing record
	Update(ctx context.Context, rec *domain.Record) error
	// List returns all records ordered by id
	List(ctx context.Context) ([]*domain.Record, error)
}
