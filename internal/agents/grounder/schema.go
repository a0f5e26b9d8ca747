package grounder

import (
	"encoding/json"

	"github.com/clinsift/clinsift/internal/agent"
	"github.com/clinsift/clinsift/internal/criteria"
)

// MaxSteps is the grounding agent's step budget. Grounding needs more rounds
// than extraction: interpret, one search per concept, semantic-type lookups,
// then the final write.
const MaxSteps = 10

// Result is the grounding agent's output for one criterion.
type Result struct {
	Grounding criteria.GroundingResult `json:"grounding"`
}

// GroundingDraft is the wire shape the model submits via write_grounding
// and the salvage pass.
type GroundingDraft struct {
	Candidates      []criteria.GroundingCandidate `json:"candidates"`
	LogicalOperator string                        `json:"logical_operator"`
	FieldMapping    *criteria.FieldMapping        `json:"field_mapping"`
}

func candidateItemSchema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"code":         map[string]any{"type": "string"},
			"display_name": map[string]any{"type": "string"},
			"ontology":     map[string]any{"type": "string"},
			"confidence": map[string]any{
				"type":    "number",
				"minimum": 0.0,
				"maximum": 1.0,
			},
		},
		"required":             []string{"code", "display_name", "ontology", "confidence"},
		"additionalProperties": false,
	}
}

// GroundingDraftSchema describes the write_grounding parameters and the
// salvage response format.
func groundingDraftSchema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"candidates": map[string]any{
				"type":        "array",
				"items":       candidateItemSchema(),
				"description": "Terminology candidates, best first. Empty when nothing groundable.",
			},
			"logical_operator": map[string]any{
				"type":        "string",
				"enum":        []string{"", "AND", "OR"},
				"description": "How multiple grounded concepts combine; empty for a single concept",
			},
			"field_mapping": map[string]any{
				"type": []string{"object", "null"},
				"properties": map[string]any{
					"field":    map[string]any{"type": "string"},
					"relation": map[string]any{"type": "string"},
					"value":    map[string]any{"type": "string"},
					"confidence": map[string]any{
						"type":    "number",
						"minimum": 0.0,
						"maximum": 1.0,
					},
				},
				"required":             []string{"field", "relation", "value", "confidence"},
				"additionalProperties": false,
				"description":          "Structured predicate over a named field when the criterion is quantitative",
			},
		},
		"required":             []string{"candidates"},
		"additionalProperties": false,
	}
}

// WriteGroundingParameters is the write_grounding tool's input schema.
func WriteGroundingParameters() json.RawMessage {
	return agent.MustMarshal(groundingDraftSchema())
}

// GroundingSchema is the salvage response format.
func GroundingSchema() json.RawMessage {
	return agent.MustMarshal(map[string]any{
		"name":   "criterion_grounding",
		"strict": true,
		"schema": groundingDraftSchema(),
	})
}
