package trip

import (
	"strings"
	"time"
)

// The trip lifecycle is a small state machine:
//
//	pending --> generating --> ready | failed
//	ready <--> awaiting_reply
//
// Generating and awaiting_reply only exist while a model call is in
// flight; the coordinator never persists them. All transition methods
// are pure against the receiver and return a StateConflictError when
// the transition is not legal from the current status.

// BeginGeneration moves a pending trip into generating
func (t *Trip) BeginGeneration(now time.Time) error {
	if t.Status != StatusPending {
		return &StateConflictError{Op: "generate itinerary", Status: t.Status}
	}
	t.Status = StatusGenerating
	t.UpdatedAt = now
	return nil
}

// CompleteGeneration stores the itinerary and marks the trip ready.
// The itinerary is write-once: exactly one plan per day, in order.
func (t *Trip) CompleteGeneration(itinerary []DayPlan, now time.Time) error {
	if t.Status != StatusGenerating {
		return &StateConflictError{Op: "complete generation", Status: t.Status}
	}
	if len(itinerary) != t.DurationDays {
		return &ValidationError{Field: "itinerary", Reason: "day count does not match trip duration"}
	}
	for i := range itinerary {
		itinerary[i].DayNumber = i + 1
	}
	t.Itinerary = itinerary
	t.Status = StatusReady
	t.FailureReason = ""
	t.UpdatedAt = now
	return nil
}

// FailGeneration marks the trip failed after generation exhausted its
// retries. The trip stays retrievable in this state.
func (t *Trip) FailGeneration(reason string, now time.Time) error {
	if t.Status != StatusGenerating {
		return &StateConflictError{Op: "fail generation", Status: t.Status}
	}
	t.Status = StatusFailed
	t.FailureReason = reason
	t.UpdatedAt = now
	return nil
}

// BeginReply appends the user turn and moves a ready trip into
// awaiting_reply. The user turn is recorded before any model call so
// it is never lost if the reply fails.
func (t *Trip) BeginReply(message string, now time.Time) error {
	if strings.TrimSpace(message) == "" {
		return &ValidationError{Field: "message", Reason: "must not be empty"}
	}
	if t.Status != StatusReady {
		return &StateConflictError{Op: "chat", Status: t.Status}
	}
	t.appendTurn(ChatTurn{Role: RoleUser, Text: message, Timestamp: now})
	t.Status = StatusAwaitingReply
	t.UpdatedAt = now
	return nil
}

// CompleteReply appends the agent turn and returns the trip to ready
func (t *Trip) CompleteReply(text string, now time.Time) error {
	if t.Status != StatusAwaitingReply {
		return &StateConflictError{Op: "complete reply", Status: t.Status}
	}
	t.appendTurn(ChatTurn{Role: RoleAgent, Text: text, Timestamp: now})
	t.Status = StatusReady
	t.UpdatedAt = now
	return nil
}

// FailReply records an agent turn carrying an error marker and returns
// the trip to ready, so the transcript stays complete and the trip
// stays usable for further chat.
func (t *Trip) FailReply(now time.Time) error {
	if t.Status != StatusAwaitingReply {
		return &StateConflictError{Op: "fail reply", Status: t.Status}
	}
	t.appendTurn(ChatTurn{Role: RoleAgent, Text: ReplyUnavailable, Timestamp: now, Failed: true})
	t.Status = StatusReady
	t.UpdatedAt = now
	return nil
}

// CanChat reports whether a chat command is legal right now
func (t *Trip) CanChat() bool {
	return t.Status == StatusReady
}

// appendTurn keeps transcript timestamps strictly increasing even when
// the clock stands still between two turns.
func (t *Trip) appendTurn(turn ChatTurn) {
	if n := len(t.Transcript); n > 0 {
		last := t.Transcript[n-1].Timestamp
		if !turn.Timestamp.After(last) {
			turn.Timestamp = last.Add(time.Nanosecond)
		}
	}
	t.Transcript = append(t.Transcript, turn)
}
