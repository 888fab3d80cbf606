package planner

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/harun/yatra/pkg/trip"
)

// fakeProvider returns canned responses and records requests
type fakeProvider struct {
	responses []string
	err       error
	requests  []CompletionRequest
}

func (f *fakeProvider) Name() string {
	return "fake"
}

func (f *fakeProvider) Complete(_ context.Context, req CompletionRequest) (string, error) {
	f.requests = append(f.requests, req)
	if f.err != nil {
		return "", f.err
	}
	if len(f.responses) == 0 {
		return "", errors.New("no canned response")
	}
	resp := f.responses[0]
	f.responses = f.responses[1:]
	return resp, nil
}

func itineraryJSON(days int) string {
	out := "["
	for i := 0; i < days; i++ {
		if i > 0 {
			out += ","
		}
		out += fmt.Sprintf(`{"summary":"Day %d plan","activities":["See things","Eat food"]}`, i+1)
	}
	return out + "]"
}

func TestGenerateItinerary_ParsesPlans(t *testing.T) {
	fake := &fakeProvider{responses: []string{itineraryJSON(3)}}
	p := NewWithProvider(fake, DefaultConfig())

	plans, err := p.GenerateItinerary(context.Background(), "Kyoto", 3)
	require.NoError(t, err)
	require.Len(t, plans, 3)
	assert.Equal(t, 1, plans[0].DayNumber)
	assert.Equal(t, "Day 1 plan", plans[0].Summary)
	assert.Len(t, plans[0].Activities, 2)

	require.Len(t, fake.requests, 1)
	assert.Contains(t, fake.requests[0].Messages[0].Content, "Kyoto")
}

func TestGenerateItinerary_ToleratesFences(t *testing.T) {
	fake := &fakeProvider{responses: []string{"Here you go:\n```json\n" + itineraryJSON(2) + "\n```"}}
	p := NewWithProvider(fake, DefaultConfig())

	plans, err := p.GenerateItinerary(context.Background(), "Oslo", 2)
	require.NoError(t, err)
	assert.Len(t, plans, 2)
}

func TestGenerateItinerary_RejectsBadPayloads(t *testing.T) {
	tests := []struct {
		name     string
		response string
	}{
		{"prose only", "I cannot help with that."},
		{"wrong day count", itineraryJSON(2)},
		{"missing summary", `[{"activities":["x"]},{"activities":["y"]},{"activities":["z"]}]`},
		{"not an array", `{"summary":"one day"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fake := &fakeProvider{responses: []string{tt.response}}
			p := NewWithProvider(fake, DefaultConfig())

			_, err := p.GenerateItinerary(context.Background(), "Kyoto", 3)
			require.Error(t, err)
			assert.True(t, IsRetryable(err), "schema rejects should stay retryable: %v", err)
		})
	}
}

func TestGenerateReply_SendsTranscriptAndItinerary(t *testing.T) {
	tr, err := trip.New("trip-1", "Kyoto", 1, 30, time.Now())
	require.NoError(t, err)
	require.NoError(t, tr.BeginGeneration(time.Now()))
	require.NoError(t, tr.CompleteGeneration([]trip.DayPlan{
		{Summary: "Temples", Activities: []string{"Fushimi Inari"}},
	}, time.Now()))
	require.NoError(t, tr.BeginReply("What should I pack?", time.Now()))

	fake := &fakeProvider{responses: []string{"Comfortable shoes."}}
	p := NewWithProvider(fake, DefaultConfig())

	reply, err := p.GenerateReply(context.Background(), tr)
	require.NoError(t, err)
	assert.Equal(t, "Comfortable shoes.", reply)

	require.Len(t, fake.requests, 1)
	req := fake.requests[0]
	assert.Contains(t, req.System, "Kyoto")
	assert.Contains(t, req.System, "Fushimi Inari")
	require.Len(t, req.Messages, 1)
	assert.Equal(t, "user", req.Messages[0].Role)
	assert.Equal(t, "What should I pack?", req.Messages[0].Content)
}

func TestTranscriptMessages_TruncatesOldestFirst(t *testing.T) {
	transcript := []trip.ChatTurn{}
	for i := 0; i < 6; i++ {
		role := trip.RoleUser
		if i%2 == 1 {
			role = trip.RoleAgent
		}
		transcript = append(transcript, trip.ChatTurn{
			Role: role, Text: fmt.Sprintf("turn-%d", i), Timestamp: time.Now(),
		})
	}

	messages := transcriptMessages(transcript, 4)
	require.Len(t, messages, 4)
	assert.Equal(t, "turn-2", messages[0].Content)
	assert.Equal(t, "turn-5", messages[3].Content)
}

func TestTranscriptMessages_SkipsFailedTurns(t *testing.T) {
	transcript := []trip.ChatTurn{
		{Role: trip.RoleUser, Text: "hi", Timestamp: time.Now()},
		{Role: trip.RoleAgent, Text: trip.ReplyUnavailable, Failed: true, Timestamp: time.Now()},
		{Role: trip.RoleUser, Text: "hello again", Timestamp: time.Now()},
	}

	messages := transcriptMessages(transcript, 0)
	require.Len(t, messages, 2)
	assert.Equal(t, "hi", messages[0].Content)
	assert.Equal(t, "hello again", messages[1].Content)
}

func TestIsRetryable(t *testing.T) {
	tests := []struct {
		name      string
		err       error
		retryable bool
	}{
		{"nil", nil, false},
		{"rate limit", errors.New("429 too many requests"), true},
		{"server error", errors.New("received 503 from backend"), true},
		{"timeout", errors.New("context deadline exceeded"), true},
		{"cancelled", context.Canceled, false},
		{"auth", errors.New("401 invalid api key"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.retryable, IsRetryable(tt.err))
		})
	}
}

func TestNew_UnsupportedProvider(t *testing.T) {
	_, err := New(Config{Provider: "delphi"})
	assert.Error(t, err)
}
