package registry

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog/log"

	"github.com/harun/yatra/internal/observability"
	"github.com/harun/yatra/pkg/coordinator"
	"github.com/harun/yatra/pkg/planner"
	"github.com/harun/yatra/pkg/store"
	"github.com/harun/yatra/pkg/trip"
)

// Config holds registry configuration
type Config struct {
	// IdleAfter is how long a coordinator may sit unused before it is
	// evicted from memory. The durable record is never touched.
	IdleAfter time.Duration `json:"idle_after" mapstructure:"idle_after"`
	// SweepInterval is how often the eviction sweep runs
	SweepInterval time.Duration `json:"sweep_interval" mapstructure:"sweep_interval"`
}

// DefaultConfig returns default registry configuration
func DefaultConfig() Config {
	return Config{
		IdleAfter:     15 * time.Minute,
		SweepInterval: time.Minute,
	}
}

// entry tracks one live coordinator plus its in-flight command count,
// which guards eviction against racing an operation.
type entry struct {
	coord    *coordinator.Coordinator
	inFlight atomic.Int64
}

// Registry routes trip ids to coordinators, creating one lazily on
// first reference and guaranteeing at most one live coordinator per id
// at any time. That single-instance guarantee is what makes per-trip
// command serialization hold process-wide. The registry itself does no
// business logic, and its lock covers lookups only, never command
// processing.
type Registry struct {
	planner  planner.Client
	trips    store.Store
	coordCfg coordinator.Config
	cfg      Config

	mu      sync.Mutex
	entries map[string]*entry

	sweeper *cron.Cron
}

// New creates an empty registry
func New(p planner.Client, s store.Store, coordCfg coordinator.Config, cfg Config) *Registry {
	observability.EnsureRegistered()

	if cfg.IdleAfter <= 0 {
		cfg.IdleAfter = DefaultConfig().IdleAfter
	}
	if cfg.SweepInterval <= 0 {
		cfg.SweepInterval = DefaultConfig().SweepInterval
	}

	return &Registry{
		planner:  p,
		trips:    s,
		coordCfg: coordCfg,
		cfg:      cfg,
		entries:  make(map[string]*entry),
	}
}

// Create routes a create command to the trip's coordinator
func (r *Registry) Create(ctx context.Context, id, destination string, durationDays int) (*trip.Trip, error) {
	e := r.acquire(id)
	defer e.inFlight.Add(-1)
	return e.coord.Create(ctx, destination, durationDays)
}

// Chat routes a chat command to the trip's coordinator
func (r *Registry) Chat(ctx context.Context, id, message string) (*trip.Trip, error) {
	e := r.acquire(id)
	defer e.inFlight.Add(-1)
	return e.coord.Chat(ctx, message)
}

// Get routes a read to the trip's coordinator
func (r *Registry) Get(ctx context.Context, id string) (*trip.Trip, error) {
	e := r.acquire(id)
	defer e.inFlight.Add(-1)
	return e.coord.Get(ctx)
}

// acquire atomically looks up or creates the entry for an id and marks
// a command in flight so the sweep cannot evict underneath it.
func (r *Registry) acquire(id string) *entry {
	r.mu.Lock()
	defer r.mu.Unlock()

	e, ok := r.entries[id]
	if !ok {
		e = &entry{coord: coordinator.New(id, r.planner, r.trips, r.coordCfg)}
		r.entries[id] = e
		observability.SetActiveCoordinators(len(r.entries))
		log.Debug().Str("trip_id", id).Msg("Coordinator created")
	}

	e.inFlight.Add(1)
	return e
}

// Len reports the number of live coordinators
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.entries)
}

// EvictIdle removes coordinators that have been idle beyond the
// configured age and have no command in flight. Their durable state
// stays in the store and a later command hydrates a fresh coordinator.
func (r *Registry) EvictIdle() int {
	r.mu.Lock()
	defer r.mu.Unlock()

	cutoff := time.Now().Add(-r.cfg.IdleAfter)
	evicted := 0

	for id, e := range r.entries {
		if e.inFlight.Load() > 0 {
			continue
		}
		if e.coord.LastActive().After(cutoff) {
			continue
		}
		delete(r.entries, id)
		evicted++
		observability.RecordEviction()
		log.Debug().Str("trip_id", id).Msg("Idle coordinator evicted")
	}

	if evicted > 0 {
		observability.SetActiveCoordinators(len(r.entries))
		log.Info().Int("evicted", evicted).Int("remaining", len(r.entries)).Msg("Eviction sweep complete")
	}

	return evicted
}

// StartSweeper schedules the periodic eviction sweep
func (r *Registry) StartSweeper() error {
	if r.sweeper != nil {
		return fmt.Errorf("sweeper is already running")
	}

	c := cron.New()
	spec := fmt.Sprintf("@every %s", r.cfg.SweepInterval)
	if _, err := c.AddFunc(spec, func() { r.EvictIdle() }); err != nil {
		return fmt.Errorf("failed to schedule eviction sweep: %w", err)
	}
	c.Start()
	r.sweeper = c

	log.Info().Dur("idle_after", r.cfg.IdleAfter).Dur("interval", r.cfg.SweepInterval).
		Msg("Eviction sweeper started")

	return nil
}

// Close stops the sweeper and drops all live coordinators
func (r *Registry) Close() error {
	if r.sweeper != nil {
		ctx := r.sweeper.Stop()
		<-ctx.Done()
		r.sweeper = nil
	}

	r.mu.Lock()
	r.entries = make(map[string]*entry)
	observability.SetActiveCoordinators(0)
	r.mu.Unlock()

	log.Info().Msg("Registry closed")

	return nil
}
