package daemon

import (
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/harun/yatra/internal/config"
	"github.com/harun/yatra/internal/logger"
	"github.com/harun/yatra/internal/observability"
	"github.com/harun/yatra/pkg/coordinator"
	"github.com/harun/yatra/pkg/gateway"
	"github.com/harun/yatra/pkg/planner"
	"github.com/harun/yatra/pkg/registry"
	"github.com/harun/yatra/pkg/store"
)

// Daemon wires the trip service together: model client, trip store,
// coordinator registry and the HTTP gateway.
type Daemon struct {
	config *config.Config
	logger *logger.Logger

	planner  planner.Client
	trips    store.Store
	registry *registry.Registry
	gateway  *gateway.Server

	startTime time.Time
	running   bool
	mu        sync.RWMutex
}

// New creates a new daemon instance
func New(cfg *config.Config, log *logger.Logger) (*Daemon, error) {
	observability.EnsureRegistered()

	d := &Daemon{
		config: cfg,
		logger: log,
	}

	client, err := planner.New(planner.Config{
		Provider:           cfg.Planner.Provider,
		APIKey:             cfg.Planner.APIKey,
		Model:              cfg.Planner.Model,
		MaxTokens:          cfg.Planner.MaxTokens,
		Temperature:        cfg.Planner.Temperature,
		MaxTranscriptTurns: cfg.Planner.MaxTranscriptTurns,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create planner client: %w", err)
	}
	d.planner = client
	log.Info().Str("provider", cfg.Planner.Provider).Str("model", cfg.Planner.Model).
		Msg("Planner client initialized")

	trips, err := store.NewSQLiteStore(cfg.Store.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to open trip store: %w", err)
	}
	d.trips = trips
	log.Info().Str("path", cfg.Store.Path).Msg("Trip store opened")

	d.registry = registry.New(d.planner, d.trips,
		coordinator.Config{
			MaxAttempts:     cfg.Coordinator.MaxAttempts,
			InitialBackoff:  time.Duration(cfg.Coordinator.InitialBackoffMs) * time.Millisecond,
			AttemptTimeout:  time.Duration(cfg.Coordinator.AttemptTimeout) * time.Second,
			MaxDurationDays: cfg.Coordinator.MaxDurationDays,
		},
		registry.Config{
			IdleAfter:     time.Duration(cfg.Registry.IdleAfter) * time.Second,
			SweepInterval: time.Duration(cfg.Registry.SweepInterval) * time.Second,
		},
	)
	log.Info().Msg("Coordinator registry initialized")

	gw, err := gateway.NewServer(gateway.Config{
		Host:            cfg.Gateway.Host,
		Port:            cfg.Gateway.Port,
		RequestTimeout:  time.Duration(cfg.Gateway.RequestTimeout) * time.Second,
		ShutdownTimeout: time.Duration(cfg.Gateway.ShutdownTimeout) * time.Second,
	}, d.registry, log.GetZerolog())
	if err != nil {
		return nil, fmt.Errorf("failed to create gateway server: %w", err)
	}
	d.gateway = gw
	log.Info().Int("port", cfg.Gateway.Port).Msg("Gateway server initialized")

	return d, nil
}

// Start starts the daemon service
func (d *Daemon) Start() error {
	d.mu.Lock()
	if d.running {
		d.mu.Unlock()
		return fmt.Errorf("daemon is already running")
	}
	d.running = true
	d.startTime = time.Now()
	d.mu.Unlock()

	d.logger.Info().Msg("Starting Yatra daemon")

	if err := d.registry.StartSweeper(); err != nil {
		return fmt.Errorf("failed to start eviction sweeper: %w", err)
	}
	d.logger.Info().
		Int("idle_after_s", d.config.Registry.IdleAfter).
		Int("sweep_interval_s", d.config.Registry.SweepInterval).
		Msg("Eviction sweeper started")

	errCh := make(chan error, 1)
	go func() {
		errCh <- d.gateway.Start()
	}()

	// Give the listener a beat to fail fast on bind errors
	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("failed to start gateway server: %w", err)
		}
	case <-time.After(100 * time.Millisecond):
	}

	d.logger.Info().Msg("Daemon started successfully")
	return nil
}

// Stop stops the daemon service gracefully
func (d *Daemon) Stop() error {
	d.mu.Lock()
	if !d.running {
		d.mu.Unlock()
		return fmt.Errorf("daemon is not running")
	}
	d.running = false
	d.mu.Unlock()

	d.logger.Info().Msg("Stopping Yatra daemon")

	if err := d.gateway.Stop(); err != nil {
		d.logger.Error().Err(err).Msg("Failed to stop gateway server")
	}

	if err := d.registry.Close(); err != nil {
		d.logger.Error().Err(err).Msg("Failed to close coordinator registry")
	}

	if err := d.trips.Close(); err != nil {
		d.logger.Error().Err(err).Msg("Failed to close trip store")
	}

	d.logger.Info().Msg("Daemon stopped successfully")
	return nil
}

// Status represents daemon status
type Status struct {
	Running      bool
	Uptime       time.Duration
	StartTime    time.Time
	Coordinators int
}

// Status returns the daemon status
func (d *Daemon) Status() Status {
	d.mu.RLock()
	defer d.mu.RUnlock()

	status := Status{
		Running: d.running,
	}

	if d.running {
		status.Uptime = time.Since(d.startTime)
		status.StartTime = d.startTime
		status.Coordinators = d.registry.Len()
	}

	return status
}

// Wait blocks until SIGINT or SIGTERM, then stops the daemon
func (d *Daemon) Wait() {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigChan
	d.logger.Info().Str("signal", sig.String()).Msg("Received signal")

	if err := d.Stop(); err != nil {
		d.logger.Error().Err(err).Msg("Failed to stop daemon")
	}
}

// GetConfig returns the daemon configuration
func (d *Daemon) GetConfig() *config.Config {
	return d.config
}

// GetRegistry returns the coordinator registry
func (d *Daemon) GetRegistry() *registry.Registry {
	return d.registry
}

// GetGatewayServer returns the gateway server
func (d *Daemon) GetGatewayServer() *gateway.Server {
	return d.gateway
}
