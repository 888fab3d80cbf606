package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/harun/yatra/pkg/trip"
)

func setupSQLiteStore(t *testing.T) *SQLiteStore {
	t.Helper()
	s, err := NewSQLiteStore(filepath.Join(t.TempDir(), "trips.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func storedTrip(t *testing.T) *trip.Trip {
	t.Helper()
	tr, err := trip.New("trip-1", "Kyoto", 2, 30, time.Now().UTC())
	require.NoError(t, err)
	require.NoError(t, tr.BeginGeneration(time.Now().UTC()))
	require.NoError(t, tr.CompleteGeneration([]trip.DayPlan{
		{Summary: "Temples", Activities: []string{"Fushimi Inari"}},
		{Summary: "Food", Activities: []string{"Nishiki Market"}},
	}, time.Now().UTC()))
	return tr
}

func TestSQLiteStore_PutGet(t *testing.T) {
	s := setupSQLiteStore(t)
	ctx := context.Background()

	tr := storedTrip(t)
	require.NoError(t, s.Put(ctx, tr))

	got, err := s.Get(ctx, "trip-1")
	require.NoError(t, err)
	assert.Equal(t, tr.ID, got.ID)
	assert.Equal(t, trip.StatusReady, got.Status)
	require.Len(t, got.Itinerary, 2)
	assert.Equal(t, 1, got.Itinerary[0].DayNumber)
	assert.Equal(t, "Temples", got.Itinerary[0].Summary)
}

func TestSQLiteStore_GetUnknownID(t *testing.T) {
	s := setupSQLiteStore(t)

	_, err := s.Get(context.Background(), "nope")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestSQLiteStore_PutReplaces(t *testing.T) {
	s := setupSQLiteStore(t)
	ctx := context.Background()

	tr := storedTrip(t)
	require.NoError(t, s.Put(ctx, tr))

	require.NoError(t, tr.BeginReply("What should I pack?", time.Now().UTC()))
	require.NoError(t, tr.CompleteReply("Comfortable shoes.", time.Now().UTC()))
	require.NoError(t, s.Put(ctx, tr))

	got, err := s.Get(ctx, "trip-1")
	require.NoError(t, err)
	require.Len(t, got.Transcript, 2)
	assert.Equal(t, trip.RoleAgent, got.Transcript[1].Role)
}

func TestSQLiteStore_IgnoresUnknownFields(t *testing.T) {
	s := setupSQLiteStore(t)
	ctx := context.Background()

	// Simulate a record written by a newer version carrying an extra field
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO trips (id, document, updated_at) VALUES (?, ?, ?)`,
		"trip-future",
		`{"id":"trip-future","destination":"Oslo","durationDays":1,"status":"pending","someFutureField":42}`,
		time.Now().UTC().Format(time.RFC3339Nano),
	)
	require.NoError(t, err)

	got, err := s.Get(ctx, "trip-future")
	require.NoError(t, err)
	assert.Equal(t, "Oslo", got.Destination)
	assert.Equal(t, trip.StatusPending, got.Status)
}

func TestMemoryStore_PutGet(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	tr := storedTrip(t)
	require.NoError(t, s.Put(ctx, tr))

	got, err := s.Get(ctx, "trip-1")
	require.NoError(t, err)
	assert.Equal(t, tr.Destination, got.Destination)

	// Mutating the loaded copy must not affect the stored record
	got.Destination = "mutated"
	again, err := s.Get(ctx, "trip-1")
	require.NoError(t, err)
	assert.Equal(t, "Kyoto", again.Destination)

	_, err = s.Get(ctx, "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}
