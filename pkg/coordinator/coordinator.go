package coordinator

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/harun/yatra/internal/observability"
	"github.com/harun/yatra/pkg/planner"
	"github.com/harun/yatra/pkg/store"
	"github.com/harun/yatra/pkg/trip"
)

// Config holds coordinator behavior knobs
type Config struct {
	// MaxAttempts bounds model calls per operation, first try included
	MaxAttempts int `json:"max_attempts" mapstructure:"max_attempts"`
	// InitialBackoff is the wait after the first failed attempt; it
	// doubles after each further failure
	InitialBackoff time.Duration `json:"initial_backoff" mapstructure:"initial_backoff"`
	// AttemptTimeout bounds each individual model call
	AttemptTimeout time.Duration `json:"attempt_timeout" mapstructure:"attempt_timeout"`
	// MaxDurationDays bounds accepted trip durations
	MaxDurationDays int `json:"max_duration_days" mapstructure:"max_duration_days"`
}

// DefaultConfig returns default coordinator configuration
func DefaultConfig() Config {
	return Config{
		MaxAttempts:     3,
		InitialBackoff:  500 * time.Millisecond,
		AttemptTimeout:  60 * time.Second,
		MaxDurationDays: 30,
	}
}

// Coordinator is the single authority for one trip id's mutations.
// Every public operation takes the coordinator mutex, so commands for
// the same trip execute one at a time in arrival order; cross-trip
// concurrency lives entirely in the registry handing out one
// coordinator per id.
type Coordinator struct {
	id      string
	planner planner.Client
	trips   store.Store
	cfg     Config

	mu      sync.Mutex
	current *trip.Trip // nil until created or hydrated

	lastActiveMu sync.Mutex
	lastActive   time.Time
}

// New creates a coordinator for one trip id. No state is loaded until
// the first operation touches it.
func New(id string, p planner.Client, s store.Store, cfg Config) *Coordinator {
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = DefaultConfig().MaxAttempts
	}
	if cfg.InitialBackoff <= 0 {
		cfg.InitialBackoff = DefaultConfig().InitialBackoff
	}
	if cfg.AttemptTimeout <= 0 {
		cfg.AttemptTimeout = DefaultConfig().AttemptTimeout
	}

	return &Coordinator{
		id:         id,
		planner:    p,
		trips:      s,
		cfg:        cfg,
		lastActive: time.Now(),
	}
}

// ID returns the trip id this coordinator owns
func (c *Coordinator) ID() string {
	return c.id
}

// LastActive reports when the coordinator last processed a command
func (c *Coordinator) LastActive() time.Time {
	c.lastActiveMu.Lock()
	defer c.lastActiveMu.Unlock()
	return c.lastActive
}

func (c *Coordinator) touch() {
	c.lastActiveMu.Lock()
	c.lastActive = time.Now()
	c.lastActiveMu.Unlock()
}

// Create initializes the trip and generates its itinerary. If the trip
// already exists (memory or store) the call is an idempotent no-op
// returning the existing snapshot, whatever its status; no second
// generation is triggered.
func (c *Coordinator) Create(ctx context.Context, destination string, durationDays int) (*trip.Trip, error) {
	// Reject bad input before any state exists or any store write happens
	if err := trip.Validate(destination, durationDays, c.cfg.MaxDurationDays); err != nil {
		return nil, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.touch()

	if err := c.hydrate(ctx); err != nil {
		return nil, err
	}
	if c.current != nil {
		log.Debug().Str("trip_id", c.id).Str("status", string(c.current.Status)).
			Msg("Create on existing trip, returning current snapshot")
		return c.current.Snapshot(), nil
	}

	now := time.Now().UTC()
	t, err := trip.New(c.id, destination, durationDays, c.cfg.MaxDurationDays, now)
	if err != nil {
		return nil, err
	}
	if err := t.BeginGeneration(now); err != nil {
		return nil, err
	}

	log.Info().Str("trip_id", c.id).Str("destination", t.Destination).
		Int("days", durationDays).Msg("Generating itinerary")

	var itinerary []trip.DayPlan
	genErr := c.callModel(ctx, "generate_itinerary", func(callCtx context.Context) error {
		plans, err := c.planner.GenerateItinerary(callCtx, t.Destination, t.DurationDays)
		if err != nil {
			return err
		}
		itinerary = plans
		return nil
	})

	if genErr != nil {
		if err := t.FailGeneration(genErr.Error(), time.Now().UTC()); err != nil {
			return nil, err
		}
		log.Warn().Str("trip_id", c.id).Err(genErr).Msg("Itinerary generation exhausted retries")
	} else {
		if err := t.CompleteGeneration(itinerary, time.Now().UTC()); err != nil {
			return nil, err
		}
	}

	// Persistence is the final step; if it fails the trip was never
	// created and the caller may retry from scratch.
	if err := c.persist(ctx, t); err != nil {
		return nil, err
	}
	c.current = t

	observability.RecordTripCreated(string(t.Status))
	log.Info().Str("trip_id", c.id).Str("status", string(t.Status)).Msg("Trip created")

	return t.Snapshot(), nil
}

// Chat appends the user turn, persists it, then asks the model for a
// reply. The trip must be ready; a reply failure is recorded in the
// transcript rather than dropped, and the trip stays ready.
func (c *Coordinator) Chat(ctx context.Context, message string) (*trip.Trip, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.touch()

	if err := c.hydrate(ctx); err != nil {
		return nil, err
	}
	if c.current == nil {
		return nil, &trip.NotFoundError{ID: c.id}
	}

	t := c.current
	before := t.Snapshot()

	if err := t.BeginReply(message, time.Now().UTC()); err != nil {
		return nil, err
	}

	// Durability before generation: the user turn must survive even if
	// the process dies during the model call.
	if err := c.persist(ctx, t); err != nil {
		c.current = before // the append never happened
		return nil, err
	}
	observability.RecordChatTurn(string(trip.RoleUser), true)

	var reply string
	replyErr := c.callModel(ctx, "generate_reply", func(callCtx context.Context) error {
		text, err := c.planner.GenerateReply(callCtx, t)
		if err != nil {
			return err
		}
		reply = text
		return nil
	})

	if replyErr != nil {
		if err := t.FailReply(time.Now().UTC()); err != nil {
			return nil, err
		}
		observability.RecordChatTurn(string(trip.RoleAgent), false)
		log.Warn().Str("trip_id", c.id).Err(replyErr).Msg("Chat reply exhausted retries, recording error marker")
	} else {
		if err := t.CompleteReply(reply, time.Now().UTC()); err != nil {
			return nil, err
		}
		observability.RecordChatTurn(string(trip.RoleAgent), true)
	}

	if err := c.persist(ctx, t); err != nil {
		// The user turn is already durable; drop the unpersisted agent
		// turn so memory matches the store again.
		if reloaded, reloadErr := c.trips.Get(ctx, c.id); reloadErr == nil {
			c.current = reloaded
		}
		return nil, err
	}

	return t.Snapshot(), nil
}

// Get returns the current snapshot, hydrating from the store when the
// coordinator holds no in-memory state. It never transitions anything.
func (c *Coordinator) Get(ctx context.Context) (*trip.Trip, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.touch()

	if err := c.hydrate(ctx); err != nil {
		return nil, err
	}
	if c.current == nil {
		return nil, &trip.NotFoundError{ID: c.id}
	}

	return c.current.Snapshot(), nil
}

// hydrate lazily loads durable state. A missing record is not an
// error here; Create treats it as a fresh id and the readers report
// NotFound themselves.
func (c *Coordinator) hydrate(ctx context.Context) error {
	if c.current != nil {
		return nil
	}

	start := time.Now()
	t, err := c.trips.Get(ctx, c.id)
	observability.RecordStoreOp("get", time.Since(start))

	if errors.Is(err, store.ErrNotFound) {
		return nil
	}
	if err != nil {
		return &trip.StoreError{Op: "get", Err: err}
	}

	c.current = t
	observability.RecordHydration()
	log.Debug().Str("trip_id", c.id).Str("status", string(t.Status)).Msg("Trip hydrated from store")

	return nil
}

// persist writes the trip as the final step of a transition. The
// awaiting-reply sub-state only exists while a call is in flight, so
// it is stored as ready.
func (c *Coordinator) persist(ctx context.Context, t *trip.Trip) error {
	record := t
	if t.Status == trip.StatusAwaitingReply {
		record = t.Snapshot()
		record.Status = trip.StatusReady
	}

	start := time.Now()
	err := c.trips.Put(ctx, record)
	observability.RecordStoreOp("put", time.Since(start))

	if err != nil {
		log.Error().Str("trip_id", c.id).Err(err).Msg("Trip persistence failed")
		return &trip.StoreError{Op: "put", Err: err}
	}

	return nil
}

// callModel runs one model operation under the bounded retry policy:
// up to MaxAttempts tries, each under AttemptTimeout, with exponential
// backoff in between. A timed-out attempt counts against the budget.
func (c *Coordinator) callModel(ctx context.Context, op string, fn func(ctx context.Context) error) error {
	backoff := c.cfg.InitialBackoff

	var lastErr error
	attempts := 0

	for attempt := 1; attempt <= c.cfg.MaxAttempts; attempt++ {
		attempts = attempt

		attemptCtx, cancel := context.WithTimeout(ctx, c.cfg.AttemptTimeout)
		start := time.Now()
		err := fn(attemptCtx)
		cancel()

		observability.RecordModelCall(op, time.Since(start), err == nil)

		if err == nil {
			return nil
		}
		lastErr = err

		log.Warn().Str("trip_id", c.id).Str("op", op).Int("attempt", attempt).
			Err(err).Msg("Model call failed")

		if !planner.IsRetryable(err) || attempt == c.cfg.MaxAttempts {
			break
		}

		observability.RecordModelRetry(op)

		select {
		case <-time.After(backoff):
		case <-ctx.Done():
			return &trip.ModelError{Op: op, Attempts: attempts, Err: ctx.Err()}
		}
		backoff *= 2
	}

	return &trip.ModelError{Op: op, Attempts: attempts, Err: lastErr}
}
