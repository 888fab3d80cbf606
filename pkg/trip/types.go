package trip

import (
	"strings"
	"time"
)

// Status represents the lifecycle state of a trip
type Status string

const (
	// StatusPending is the initial state before generation has started
	StatusPending Status = "pending"
	// StatusGenerating means an itinerary generation call is in flight
	StatusGenerating Status = "generating"
	// StatusReady means the itinerary exists and the trip accepts chat
	StatusReady Status = "ready"
	// StatusAwaitingReply means a chat reply call is in flight
	StatusAwaitingReply Status = "awaiting_reply"
	// StatusFailed means itinerary generation exhausted its retry budget
	StatusFailed Status = "failed"
)

// Role identifies the author of a chat turn
type Role string

const (
	RoleUser  Role = "user"
	RoleAgent Role = "agent"
)

// ReplyUnavailable is the transcript placeholder recorded when a chat
// reply exhausts the retry budget. The turn is kept so the transcript
// stays a complete ordered record.
const ReplyUnavailable = "The assistant could not produce a reply. Please try again."

// DayPlan is one day's worth of itinerary content
type DayPlan struct {
	DayNumber  int      `json:"dayNumber"`
	Summary    string   `json:"summary"`
	Activities []string `json:"activities,omitempty"`
}

// ChatTurn is one message in the user/agent conversation transcript
type ChatTurn struct {
	Role      Role      `json:"role"`
	Text      string    `json:"text"`
	Timestamp time.Time `json:"timestamp"`
	// Failed marks an agent turn recorded after the reply call
	// exhausted its retries.
	Failed bool `json:"failed,omitempty"`
}

// Trip is the unit of session state: a destination, a write-once
// itinerary and an append-only chat transcript, identified by an
// opaque id assigned at creation.
type Trip struct {
	ID            string     `json:"id"`
	Destination   string     `json:"destination"`
	DurationDays  int        `json:"durationDays"`
	Itinerary     []DayPlan  `json:"itinerary,omitempty"`
	Transcript    []ChatTurn `json:"transcript,omitempty"`
	Status        Status     `json:"status"`
	FailureReason string     `json:"failureReason,omitempty"`
	CreatedAt     time.Time  `json:"createdAt"`
	UpdatedAt     time.Time  `json:"updatedAt"`
}

// New creates a trip in the pending state. Destination and duration are
// validated here, before any state exists anywhere.
func New(id, destination string, durationDays, maxDurationDays int, now time.Time) (*Trip, error) {
	if err := Validate(destination, durationDays, maxDurationDays); err != nil {
		return nil, err
	}

	return &Trip{
		ID:           id,
		Destination:  strings.TrimSpace(destination),
		DurationDays: durationDays,
		Status:       StatusPending,
		CreatedAt:    now,
		UpdatedAt:    now,
	}, nil
}

// Validate checks creation inputs without touching any state
func Validate(destination string, durationDays, maxDurationDays int) error {
	if strings.TrimSpace(destination) == "" {
		return &ValidationError{Field: "destination", Reason: "must not be empty"}
	}
	if durationDays < 1 {
		return &ValidationError{Field: "durationDays", Reason: "must be at least 1"}
	}
	if maxDurationDays > 0 && durationDays > maxDurationDays {
		return &ValidationError{Field: "durationDays", Reason: "exceeds the configured maximum"}
	}
	return nil
}

// Snapshot returns a deep copy safe to hand to callers outside the
// coordinator's serialization boundary.
func (t *Trip) Snapshot() *Trip {
	cp := *t

	if t.Itinerary != nil {
		cp.Itinerary = make([]DayPlan, len(t.Itinerary))
		copy(cp.Itinerary, t.Itinerary)
		for i, day := range t.Itinerary {
			if day.Activities != nil {
				cp.Itinerary[i].Activities = append([]string(nil), day.Activities...)
			}
		}
	}

	if t.Transcript != nil {
		cp.Transcript = make([]ChatTurn, len(t.Transcript))
		copy(cp.Transcript, t.Transcript)
	}

	return &cp
}
