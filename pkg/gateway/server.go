package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/harun/yatra/internal/observability"
	"github.com/harun/yatra/internal/tracing"
	"github.com/harun/yatra/pkg/registry"
	"github.com/harun/yatra/pkg/trip"
)

// Config holds gateway server configuration
type Config struct {
	Host            string        `json:"host" mapstructure:"host"`
	Port            int           `json:"port" mapstructure:"port"`
	RequestTimeout  time.Duration `json:"request_timeout" mapstructure:"request_timeout"`
	ShutdownTimeout time.Duration `json:"shutdown_timeout" mapstructure:"shutdown_timeout"`
}

// DefaultConfig returns default gateway configuration
func DefaultConfig() Config {
	return Config{
		Host:            "0.0.0.0",
		Port:            8080,
		RequestTimeout:  5 * time.Minute,
		ShutdownTimeout: 15 * time.Second,
	}
}

// Server is the HTTP boundary. It owns no trip state: it translates
// requests into registry commands, maps domain errors onto status
// codes and pushes trip events to websocket subscribers.
type Server struct {
	cfg         Config
	registry    *registry.Registry
	broadcaster *Broadcaster
	upgrader    websocket.Upgrader
	server      *http.Server
	logger      zerolog.Logger

	isShuttingDown bool
	shutdownMu     sync.RWMutex
	inFlightReqs   sync.WaitGroup
}

// NewServer creates a gateway server around a registry
func NewServer(cfg Config, reg *registry.Registry, logger zerolog.Logger) (*Server, error) {
	if reg == nil {
		return nil, fmt.Errorf("registry is required")
	}
	if cfg.Port <= 0 {
		cfg.Port = DefaultConfig().Port
	}
	if cfg.Host == "" {
		cfg.Host = DefaultConfig().Host
	}
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = DefaultConfig().RequestTimeout
	}
	if cfg.ShutdownTimeout <= 0 {
		cfg.ShutdownTimeout = DefaultConfig().ShutdownTimeout
	}

	return &Server{
		cfg:         cfg,
		registry:    reg,
		broadcaster: NewBroadcaster(logger),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
		logger: logger,
	}, nil
}

// Handler builds the HTTP routing table
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("POST /trips", s.withRequest(s.handleCreateTrip))
	mux.HandleFunc("GET /trips/{id}", s.withRequest(s.handleGetTrip))
	mux.HandleFunc("POST /trips/{id}/chat", s.withRequest(s.handleChat))
	mux.HandleFunc("GET /trips/{id}/messages", s.withRequest(s.handleMessages))
	mux.HandleFunc("GET /trips/{id}/events", s.handleEvents)

	mux.HandleFunc("GET /health", s.handleHealth)
	mux.Handle("GET /metrics", observability.MetricsHandler())

	return mux
}

// Start starts the HTTP server and blocks until it stops
func (s *Server) Start() error {
	s.server = &http.Server{
		Addr:    fmt.Sprintf("%s:%d", s.cfg.Host, s.cfg.Port),
		Handler: s.Handler(),
	}

	s.logger.Info().Str("addr", s.server.Addr).Msg("Gateway server starting")

	if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("gateway server failed: %w", err)
	}
	return nil
}

// Stop drains in-flight requests and shuts the server down
func (s *Server) Stop() error {
	s.shutdownMu.Lock()
	s.isShuttingDown = true
	s.shutdownMu.Unlock()

	done := make(chan struct{})
	go func() {
		s.inFlightReqs.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(s.cfg.ShutdownTimeout):
		s.logger.Warn().Msg("Timed out waiting for in-flight requests")
	}

	if s.server == nil {
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), s.cfg.ShutdownTimeout)
	defer cancel()

	return s.server.Shutdown(ctx)
}

// withRequest tracks in-flight requests and rejects new work during
// shutdown, so a stop never cuts a command in half.
func (s *Server) withRequest(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s.shutdownMu.RLock()
		shuttingDown := s.isShuttingDown
		s.shutdownMu.RUnlock()

		if shuttingDown {
			s.writeJSON(w, http.StatusServiceUnavailable, ErrorResponse{Error: "server is shutting down"})
			return
		}

		s.inFlightReqs.Add(1)
		defer s.inFlightReqs.Done()

		ctx := tracing.ExtractFromRequest(r)
		if id := r.PathValue("id"); id != "" {
			ctx = tracing.WithTripID(ctx, id)
		}
		tracing.InjectIntoResponse(ctx, w)

		ctx, cancel := context.WithTimeout(ctx, s.cfg.RequestTimeout)
		defer cancel()

		next(w, r.WithContext(ctx))
	}
}

func (s *Server) handleCreateTrip(w http.ResponseWriter, r *http.Request) {
	var req CreateTripRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
		return
	}

	id := uuid.NewString()

	snap, err := s.registry.Create(r.Context(), id, req.Destination, req.Days)
	if err != nil {
		s.writeError(w, err)
		return
	}

	s.broadcaster.Publish(snap.ID, EventTripCreated, snap)
	if snap.Status == trip.StatusReady {
		s.broadcaster.Publish(snap.ID, EventTripReady, nil)
	} else if snap.Status == trip.StatusFailed {
		s.broadcaster.Publish(snap.ID, EventTripFailed, snap.FailureReason)
	}

	logger := tracing.LoggerFromContext(r.Context(), s.logger)
	logger.Info().Str("trip_id", snap.ID).Str("destination", snap.Destination).
		Str("status", string(snap.Status)).Msg("Trip create handled")

	s.writeJSON(w, http.StatusCreated, snap)
}

func (s *Server) handleGetTrip(w http.ResponseWriter, r *http.Request) {
	snap, err := s.registry.Get(r.Context(), r.PathValue("id"))
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, snap)
}

func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	var req ChatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
		return
	}

	id := r.PathValue("id")

	snap, err := s.registry.Chat(r.Context(), id, req.Message)
	if err != nil {
		s.writeError(w, err)
		return
	}

	// The exchange appended exactly two turns: the user's and either
	// the reply or its error marker.
	if n := len(snap.Transcript); n >= 2 {
		for _, turn := range snap.Transcript[n-2:] {
			s.broadcaster.Publish(id, EventChatTurn, turnEvent{
				Role:      turn.Role,
				Text:      turn.Text,
				Timestamp: turn.Timestamp,
				Failed:    turn.Failed,
			})
		}
	}

	s.writeJSON(w, http.StatusOK, snap)
}

func (s *Server) handleMessages(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	snap, err := s.registry.Get(r.Context(), id)
	if err != nil {
		s.writeError(w, err)
		return
	}

	turns := snap.Transcript
	if turns == nil {
		turns = []trip.ChatTurn{}
	}

	s.writeJSON(w, http.StatusOK, TranscriptResponse{TripID: id, Turns: turns})
}

// handleEvents upgrades to a websocket and streams the trip's events
// until the client goes away.
func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	// Only known trips get an event stream
	if _, err := s.registry.Get(r.Context(), id); err != nil {
		s.writeError(w, err)
		return
	}

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn().Err(err).Str("trip_id", id).Msg("Websocket upgrade failed")
		return
	}

	subID := s.broadcaster.Subscribe(id, conn)
	defer func() {
		s.broadcaster.Unsubscribe(id, subID)
		conn.Close()
	}()

	// Drain client frames; the stream is push-only
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":       "ok",
		"coordinators": s.registry.Len(),
	})
}

// writeError maps domain errors onto HTTP status codes
func (s *Server) writeError(w http.ResponseWriter, err error) {
	var (
		validation *trip.ValidationError
		conflict   *trip.StateConflictError
		notFound   *trip.NotFoundError
		model      *trip.ModelError
		storeErr   *trip.StoreError
	)

	status := http.StatusInternalServerError
	switch {
	case errors.As(err, &validation):
		status = http.StatusBadRequest
	case errors.As(err, &conflict):
		status = http.StatusConflict
	case errors.As(err, &notFound):
		status = http.StatusNotFound
	case errors.As(err, &model):
		status = http.StatusBadGateway
	case errors.As(err, &storeErr):
		status = http.StatusInternalServerError
	case errors.Is(err, context.DeadlineExceeded):
		status = http.StatusGatewayTimeout
	}

	s.writeJSON(w, status, ErrorResponse{Error: err.Error()})
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		s.logger.Error().Err(err).Msg("Failed to write response")
	}
}
