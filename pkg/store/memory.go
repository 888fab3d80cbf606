package store

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/harun/yatra/pkg/trip"
)

// MemoryStore keeps serialized trips in memory. It carries the same
// copy semantics as a real store (callers never share memory with the
// stored record), which makes it the store of choice for tests and
// ephemeral runs.
type MemoryStore struct {
	mu      sync.RWMutex
	records map[string][]byte
}

// NewMemoryStore creates an empty in-memory store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{records: make(map[string][]byte)}
}

// Put writes the full trip record, replacing any previous one
func (s *MemoryStore) Put(_ context.Context, t *trip.Trip) error {
	document, err := json.Marshal(t)
	if err != nil {
		return fmt.Errorf("failed to marshal trip: %w", err)
	}

	s.mu.Lock()
	s.records[t.ID] = document
	s.mu.Unlock()

	return nil
}

// Get loads the trip for the given id or returns ErrNotFound
func (s *MemoryStore) Get(_ context.Context, id string) (*trip.Trip, error) {
	s.mu.RLock()
	document, ok := s.records[id]
	s.mu.RUnlock()

	if !ok {
		return nil, ErrNotFound
	}

	var t trip.Trip
	if err := json.Unmarshal(document, &t); err != nil {
		return nil, fmt.Errorf("failed to parse trip %s: %w", id, err)
	}

	return &t, nil
}

// Len reports the number of stored trips
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.records)
}

// Close is a no-op for the in-memory store
func (s *MemoryStore) Close() error {
	return nil
}
