package recordings

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	mmerrors "github.com/otherjamesbrown/minuteman/pkg/errors"
)

// MemoryStore is an in-memory Store implementation. It backs tests and the
// zero-dependency development mode; data does not survive a restart.
type MemoryStore struct {
	mu      sync.RWMutex
	records map[string]*Record
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{records: make(map[string]*Record)}
}

// Insert creates a new tracking record.
func (s *MemoryStore) Insert(ctx context.Context, rec *Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.records[rec.ID]; ok {
		return fmt.Errorf("record %s: %w", rec.ID, mmerrors.ErrAlreadyExists)
	}

	clone := *rec
	now := time.Now().UTC()
	if clone.CreatedAt.IsZero() {
		clone.CreatedAt = now
	}
	clone.UpdatedAt = now
	s.records[rec.ID] = &clone
	return nil
}

// UpdateFields applies a partial update with merge semantics.
func (s *MemoryStore) UpdateFields(ctx context.Context, id string, update Update) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.records[id]
	if !ok {
		return fmt.Errorf("record %s: %w", id, mmerrors.ErrNotFound)
	}

	if update.Status != nil {
		rec.Status = *update.Status
	}
	if update.Transcript != nil {
		rec.Transcript = *update.Transcript
	}
	if update.FailureReason != nil {
		rec.FailureReason = *update.FailureReason
	}
	rec.UpdatedAt = time.Now().UTC()
	return nil
}

// Find returns a copy of the record for a session id.
func (s *MemoryStore) Find(ctx context.Context, id string) (*Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rec, ok := s.records[id]
	if !ok {
		return nil, fmt.Errorf("record %s: %w", id, mmerrors.ErrNotFound)
	}
	clone := *rec
	return &clone, nil
}

// Delete removes a record.
func (s *MemoryStore) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.records[id]; !ok {
		return fmt.Errorf("record %s: %w", id, mmerrors.ErrNotFound)
	}
	delete(s.records, id)
	return nil
}

// DeleteByEvent removes all records for a calendar event.
func (s *MemoryStore) DeleteByEvent(ctx context.Context, eventID string) (int, error) {
	if eventID == "" {
		return 0, nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	deleted := 0
	for id, rec := range s.records {
		if rec.EventID == eventID {
			delete(s.records, id)
			deleted++
		}
	}
	return deleted, nil
}

// List returns all records, newest first.
func (s *MemoryStore) List(ctx context.Context) ([]*Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*Record, 0, len(s.records))
	for _, rec := range s.records {
		clone := *rec
		out = append(out, &clone)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID > out[j].ID
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}
