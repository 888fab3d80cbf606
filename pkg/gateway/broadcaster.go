package gateway

import (
	"encoding/json"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	gonanoid "github.com/matoous/go-nanoid/v2"
	"github.com/rs/zerolog"
)

// subscriber is one websocket client watching a trip's events
type subscriber struct {
	id      string
	conn    *websocket.Conn
	writeMu sync.Mutex
}

func (s *subscriber) write(data []byte) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	return s.conn.WriteMessage(websocket.TextMessage, data)
}

// Broadcaster fans trip events out to the websocket subscribers of
// that trip. Subscribers of other trips never see them.
type Broadcaster struct {
	logger zerolog.Logger
	seq    atomic.Int64

	mu   sync.RWMutex
	subs map[string]map[string]*subscriber // trip id -> subscriber id
}

// NewBroadcaster creates an empty broadcaster
func NewBroadcaster(logger zerolog.Logger) *Broadcaster {
	return &Broadcaster{
		logger: logger,
		subs:   make(map[string]map[string]*subscriber),
	}
}

// Subscribe registers a websocket connection for a trip's events and
// returns the subscriber id used to unsubscribe it.
func (b *Broadcaster) Subscribe(tripID string, conn *websocket.Conn) string {
	id, err := gonanoid.New()
	if err != nil {
		// gonanoid only fails when the OS entropy source does
		id = time.Now().Format(time.RFC3339Nano)
	}

	b.mu.Lock()
	if b.subs[tripID] == nil {
		b.subs[tripID] = make(map[string]*subscriber)
	}
	b.subs[tripID][id] = &subscriber{id: id, conn: conn}
	count := len(b.subs[tripID])
	b.mu.Unlock()

	b.logger.Debug().Str("trip_id", tripID).Str("subscriber_id", id).
		Int("subscribers", count).Msg("Trip event subscriber added")

	return id
}

// Unsubscribe removes a subscriber; the connection is not closed here
func (b *Broadcaster) Unsubscribe(tripID, id string) {
	b.mu.Lock()
	if subs, ok := b.subs[tripID]; ok {
		delete(subs, id)
		if len(subs) == 0 {
			delete(b.subs, tripID)
		}
	}
	b.mu.Unlock()

	b.logger.Debug().Str("trip_id", tripID).Str("subscriber_id", id).
		Msg("Trip event subscriber removed")
}

// SubscriberCount reports how many clients watch a trip
func (b *Broadcaster) SubscriberCount(tripID string) int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs[tripID])
}

// Publish sends an event to every subscriber of the trip
func (b *Broadcaster) Publish(tripID, eventType string, data interface{}) {
	event := Event{
		Type:      eventType,
		TripID:    tripID,
		Data:      data,
		Timestamp: time.Now().UnixMilli(),
		Seq:       b.seq.Add(1),
	}

	payload, err := json.Marshal(event)
	if err != nil {
		b.logger.Error().Err(err).Str("event", eventType).Msg("Failed to marshal event")
		return
	}

	b.mu.RLock()
	targets := make([]*subscriber, 0, len(b.subs[tripID]))
	for _, s := range b.subs[tripID] {
		targets = append(targets, s)
	}
	b.mu.RUnlock()

	for _, s := range targets {
		if err := s.write(payload); err != nil {
			b.logger.Warn().Err(err).Str("trip_id", tripID).Str("subscriber_id", s.id).
				Str("event", eventType).Msg("Failed to push event to subscriber")
		}
	}
}
