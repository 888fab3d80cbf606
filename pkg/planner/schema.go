package planner

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/xeipuuv/gojsonschema"

	"github.com/harun/yatra/pkg/trip"
)

// itinerarySchema constrains what we accept from the model before any
// of it reaches trip state.
const itinerarySchema = `{
	"type": "array",
	"minItems": 1,
	"items": {
		"type": "object",
		"properties": {
			"summary": {"type": "string", "minLength": 1},
			"activities": {
				"type": "array",
				"items": {"type": "string", "minLength": 1}
			}
		},
		"required": ["summary"],
		"additionalProperties": true
	}
}`

var itineraryLoader = gojsonschema.NewStringLoader(itinerarySchema)

// ParseItinerary validates and decodes the model's itinerary JSON.
// The payload must be a JSON array with exactly one entry per day.
func ParseItinerary(text string, durationDays int) ([]trip.DayPlan, error) {
	payload := extractJSONArray(text)
	if payload == "" {
		return nil, fmt.Errorf("no JSON array found in model output")
	}

	result, err := gojsonschema.Validate(itineraryLoader, gojsonschema.NewStringLoader(payload))
	if err != nil {
		return nil, fmt.Errorf("failed to validate itinerary payload: %w", err)
	}
	if !result.Valid() {
		reasons := make([]string, 0, len(result.Errors()))
		for _, desc := range result.Errors() {
			reasons = append(reasons, desc.String())
		}
		return nil, fmt.Errorf("itinerary payload does not match schema: %s", strings.Join(reasons, "; "))
	}

	var raw []struct {
		Summary    string   `json:"summary"`
		Activities []string `json:"activities"`
	}
	if err := json.Unmarshal([]byte(payload), &raw); err != nil {
		return nil, fmt.Errorf("failed to decode itinerary payload: %w", err)
	}

	if len(raw) != durationDays {
		return nil, fmt.Errorf("expected %d day plans, model returned %d", durationDays, len(raw))
	}

	plans := make([]trip.DayPlan, len(raw))
	for i, day := range raw {
		plans[i] = trip.DayPlan{
			DayNumber:  i + 1,
			Summary:    strings.TrimSpace(day.Summary),
			Activities: day.Activities,
		}
	}

	return plans, nil
}

// extractJSONArray pulls the outermost JSON array out of model text,
// tolerating markdown fences and surrounding prose.
func extractJSONArray(text string) string {
	start := strings.Index(text, "[")
	end := strings.LastIndex(text, "]")
	if start < 0 || end < start {
		return ""
	}
	return text[start : end+1]
}
