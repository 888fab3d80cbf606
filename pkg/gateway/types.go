package gateway

import (
	"time"

	"github.com/harun/yatra/pkg/trip"
)

// CreateTripRequest is the body of POST /trips
type CreateTripRequest struct {
	Destination string `json:"destination"`
	Days        int    `json:"days"`
}

// ChatRequest is the body of POST /trips/{id}/chat
type ChatRequest struct {
	Message string `json:"message"`
}

// TranscriptResponse is the body of GET /trips/{id}/messages
type TranscriptResponse struct {
	TripID string          `json:"tripId"`
	Turns  []trip.ChatTurn `json:"turns"`
}

// ErrorResponse is the body of every non-2xx response
type ErrorResponse struct {
	Error string `json:"error"`
}

// Event is one message pushed to trip event subscribers
type Event struct {
	Type      string      `json:"type"`
	TripID    string      `json:"tripId"`
	Data      interface{} `json:"data,omitempty"`
	Timestamp int64       `json:"timestamp"`
	Seq       int64       `json:"seq"`
}

// Event types pushed over the trip event stream
const (
	EventTripCreated = "trip.created"
	EventTripReady   = "trip.ready"
	EventTripFailed  = "trip.failed"
	EventChatTurn    = "chat.turn"
)

// turnEvent is the payload of a chat.turn event
type turnEvent struct {
	Role      trip.Role `json:"role"`
	Text      string    `json:"text"`
	Timestamp time.Time `json:"timestamp"`
	Failed    bool      `json:"failed,omitempty"`
}
