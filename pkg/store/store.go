package store

import (
	"context"
	"errors"

	"github.com/harun/yatra/pkg/trip"
)

// ErrNotFound is returned when no durable record exists for a trip id
var ErrNotFound = errors.New("trip not found")

// Store is the durable persistence boundary for trips. One record per
// trip id holding the full serialized trip; put and get are atomic per
// key and no multi-key semantics exist.
type Store interface {
	// Put writes the full trip record, replacing any previous one
	Put(ctx context.Context, t *trip.Trip) error

	// Get loads the trip for the given id or returns ErrNotFound
	Get(ctx context.Context, id string) (*trip.Trip, error)

	// Close releases the underlying resources
	Close() error
}
