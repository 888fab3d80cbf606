package planner

import (
	"context"
	"fmt"
	"strings"

	"github.com/harun/yatra/pkg/trip"
)

// Client is the model boundary for trip planning. It knows nothing
// about trip ids or persistence; it only turns planning inputs into
// generated content and is expected to be slow and fallible.
type Client interface {
	// GenerateItinerary produces one DayPlan per day for the destination
	GenerateItinerary(ctx context.Context, destination string, durationDays int) ([]trip.DayPlan, error)

	// GenerateReply produces the agent's answer to the last user turn,
	// given the itinerary and the transcript so far
	GenerateReply(ctx context.Context, t *trip.Trip) (string, error)
}

// Provider is the raw completion boundary implemented per backend
type Provider interface {
	// Complete sends a completion request and returns the generated text
	Complete(ctx context.Context, req CompletionRequest) (string, error)

	// Name returns the provider name
	Name() string
}

// CompletionRequest carries one completion call's inputs
type CompletionRequest struct {
	System      string
	Messages    []Message
	MaxTokens   int
	Temperature float64
}

// Message is one conversational input to the model
type Message struct {
	Role    string // "user" or "assistant"
	Content string
}

// Config holds planner configuration
type Config struct {
	Provider           string  `json:"provider" mapstructure:"provider"` // anthropic, openai
	APIKey             string  `json:"api_key" mapstructure:"api_key"`
	Model              string  `json:"model" mapstructure:"model"`
	MaxTokens          int     `json:"max_tokens" mapstructure:"max_tokens"`
	Temperature        float64 `json:"temperature" mapstructure:"temperature"`
	MaxTranscriptTurns int     `json:"max_transcript_turns" mapstructure:"max_transcript_turns"`
}

// DefaultConfig returns default planner configuration
func DefaultConfig() Config {
	return Config{
		Provider:           "anthropic",
		Model:              "claude-3-5-sonnet-20241022",
		MaxTokens:          4096,
		Temperature:        0.7,
		MaxTranscriptTurns: 40,
	}
}

// Planner implements Client on top of a completion Provider
type Planner struct {
	provider Provider
	cfg      Config
}

// New creates a planner for the configured provider
func New(cfg Config) (*Planner, error) {
	if cfg.Model == "" {
		cfg.Model = DefaultConfig().Model
	}
	if cfg.MaxTokens == 0 {
		cfg.MaxTokens = DefaultConfig().MaxTokens
	}
	if cfg.MaxTranscriptTurns == 0 {
		cfg.MaxTranscriptTurns = DefaultConfig().MaxTranscriptTurns
	}

	var provider Provider
	switch cfg.Provider {
	case "anthropic":
		provider = NewAnthropicProvider(cfg.APIKey, cfg.Model)
	case "openai":
		provider = NewOpenAIProvider(cfg.APIKey, cfg.Model)
	default:
		return nil, fmt.Errorf("unsupported provider: %s", cfg.Provider)
	}

	return NewWithProvider(provider, cfg), nil
}

// NewWithProvider creates a planner around an explicit provider
func NewWithProvider(provider Provider, cfg Config) *Planner {
	if cfg.MaxTranscriptTurns == 0 {
		cfg.MaxTranscriptTurns = DefaultConfig().MaxTranscriptTurns
	}
	return &Planner{provider: provider, cfg: cfg}
}

const itinerarySystemPrompt = `You are a travel planner. You answer with a single JSON array and nothing else: no prose, no markdown fences. Each element describes one day as {"summary": string, "activities": [string, ...]}. The array must contain exactly one element per requested day, in day order.`

const replySystemPromptFormat = `You are a travel assistant for a planned trip to %s lasting %d days. The agreed itinerary is below; answer follow-up questions about this trip concisely and concretely.

Itinerary:
%s`

// GenerateItinerary produces one DayPlan per day for the destination
func (p *Planner) GenerateItinerary(ctx context.Context, destination string, durationDays int) ([]trip.DayPlan, error) {
	prompt := fmt.Sprintf("Plan a %d-day trip to %s.", durationDays, destination)

	text, err := p.provider.Complete(ctx, CompletionRequest{
		System:      itinerarySystemPrompt,
		Messages:    []Message{{Role: "user", Content: prompt}},
		MaxTokens:   p.cfg.MaxTokens,
		Temperature: p.cfg.Temperature,
	})
	if err != nil {
		return nil, fmt.Errorf("itinerary completion failed: %w", err)
	}

	plans, err := ParseItinerary(text, durationDays)
	if err != nil {
		return nil, fmt.Errorf("itinerary response rejected: %w", err)
	}

	return plans, nil
}

// GenerateReply produces the agent's answer to the last user turn
func (p *Planner) GenerateReply(ctx context.Context, t *trip.Trip) (string, error) {
	system := fmt.Sprintf(replySystemPromptFormat, t.Destination, t.DurationDays, renderItinerary(t.Itinerary))

	text, err := p.provider.Complete(ctx, CompletionRequest{
		System:      system,
		Messages:    transcriptMessages(t.Transcript, p.cfg.MaxTranscriptTurns),
		MaxTokens:   p.cfg.MaxTokens,
		Temperature: p.cfg.Temperature,
	})
	if err != nil {
		return "", fmt.Errorf("reply completion failed: %w", err)
	}

	reply := strings.TrimSpace(text)
	if reply == "" {
		return "", fmt.Errorf("reply completion returned empty text")
	}

	return reply, nil
}

// transcriptMessages converts the transcript into model messages,
// truncating oldest turns first when over budget. Turns are dropped
// whole, never split, and failed placeholder turns are skipped since
// they carry no conversational content.
func transcriptMessages(transcript []trip.ChatTurn, maxTurns int) []Message {
	turns := make([]trip.ChatTurn, 0, len(transcript))
	for _, turn := range transcript {
		if turn.Failed {
			continue
		}
		turns = append(turns, turn)
	}

	if maxTurns > 0 && len(turns) > maxTurns {
		turns = turns[len(turns)-maxTurns:]
	}

	messages := make([]Message, 0, len(turns))
	for _, turn := range turns {
		role := "user"
		if turn.Role == trip.RoleAgent {
			role = "assistant"
		}
		messages = append(messages, Message{Role: role, Content: turn.Text})
	}

	return messages
}

// renderItinerary formats the itinerary as plain text model context
func renderItinerary(itinerary []trip.DayPlan) string {
	var b strings.Builder
	for _, day := range itinerary {
		fmt.Fprintf(&b, "Day %d: %s\n", day.DayNumber, day.Summary)
		for _, activity := range day.Activities {
			fmt.Fprintf(&b, "  - %s\n", activity)
		}
	}
	return b.String()
}

// IsRetryable reports whether a provider error is worth another
// attempt (network resets, rate limits, backend 5xx).
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	if err == context.Canceled || strings.Contains(err.Error(), context.Canceled.Error()) {
		return false
	}

	msg := err.Error()
	for _, marker := range []string{
		"ECONNRESET", "ETIMEDOUT", "connection reset", "deadline exceeded",
		"429", "rate limit",
		"500", "502", "503", "504", "overloaded",
	} {
		if strings.Contains(msg, marker) {
			return true
		}
	}

	// A malformed itinerary payload is the model's fault, not ours;
	// another attempt may well produce valid JSON.
	return strings.Contains(msg, "itinerary response rejected")
}
