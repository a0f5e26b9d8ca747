package medtext

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/clinsift/clinsift/internal/structgen"
)

const tripletSystemPrompt = `You convert a single atomic eligibility statement into a structured
entity/relation/value predicate.

Rules:
- entity is the measured or required thing (e.g. "age", "hemoglobin",
  "type 2 diabetes"). Use the text's own terms, lowercased.
- relation is one of: =, !=, <, <=, >, >=, between, has, has_not.
- For "between", value holds both bounds (e.g. "45-75").
- unit is the unit of measure when present ("years", "g/dL"), else empty.
- confidence reflects how unambiguous the mapping is, in [0,1].
- Leave entity/relation/value empty when the statement has no structured
  reading, with a correspondingly low confidence.`

func tripletSchema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"entity":   map[string]any{"type": "string"},
			"relation": map[string]any{"type": "string"},
			"value":    map[string]any{"type": "string"},
			"unit":     map[string]any{"type": "string"},
			"confidence": map[string]any{
				"type":    "number",
				"minimum": 0.0,
				"maximum": 1.0,
			},
		},
		"required":             []string{"entity", "relation", "value", "unit", "confidence"},
		"additionalProperties": false,
	}
}

// ExtractTriplet maps one atomic statement to its structured predicate.
func (s *Service) ExtractTriplet(ctx context.Context, text string) (*Triplet, error) {
	var out Triplet
	err := s.gen.Unmarshal(ctx, newRequest(
		s.model,
		"medtext.extract_triplet",
		tripletSystemPrompt,
		fmt.Sprintf("Statement:\n%s", text),
		jsonSchema("criterion_triplet", tripletSchema()),
	), &out)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func newRequest(model, promptKey, system, user string, schema json.RawMessage) structgen.Request {
	return structgen.Request{
		SystemPrompt: system,
		UserPrompt:   user,
		Schema:       schema,
		Model:        model,
		PromptKey:    promptKey,
		Timeout:      60 * time.Second,
	}
}
