package history

import (
	"context"
	"sync"
)

// maxMemoryRecords bounds the in-memory ring.
const maxMemoryRecords = 1000

// InMemoryRepository is an in-memory implementation of Repository for
// development and testing.
type InMemoryRepository struct {
	mu      sync.RWMutex
	records []*Record
}

// NewInMemoryRepository creates a new in-memory repository.
func NewInMemoryRepository() *InMemoryRepository {
	return &InMemoryRepository{}
}

// Save stores a record, evicting the oldest past the ring capacity.
func (r *InMemoryRepository) Save(_ context.Context, rec *Record) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.records = append(r.records, rec)
	if len(r.records) > maxMemoryRecords {
		r.records = r.records[len(r.records)-maxMemoryRecords:]
	}
	return nil
}

// List returns the most recent records, newest first.
func (r *InMemoryRepository) List(_ context.Context, limit int) ([]*Record, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if limit <= 0 || limit > len(r.records) {
		limit = len(r.records)
	}

	out := make([]*Record, 0, limit)
	for i := len(r.records) - 1; i >= 0 && len(out) < limit; i-- {
		out = append(out, r.records[i])
	}
	return out, nil
}
