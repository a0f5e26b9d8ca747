package extractor

import (
	"encoding/json"

	"github.com/clinsift/clinsift/internal/agent"
	"github.com/clinsift/clinsift/internal/criteria"
)

// MaxSteps is the extraction agent's step budget. Two tools plus the final
// write keep convergence short; the budget reflects that.
const MaxSteps = 8

// Result is the extraction agent's output for one paragraph.
type Result struct {
	Criteria []criteria.Criterion `json:"criteria"`
}

// CriterionDraft is the wire shape the model submits per criterion.
type CriterionDraft struct {
	Text       string  `json:"text"`
	Type       string  `json:"criterion_type"`
	Entity     string  `json:"entity"`
	Relation   string  `json:"relation"`
	Value      string  `json:"value"`
	Unit       string  `json:"unit"`
	Confidence float64 `json:"confidence"`
}

// Criterion converts the draft into the domain type. Provenance and ID are
// stamped by the stage.
func (d CriterionDraft) Criterion() criteria.Criterion {
	return criteria.Criterion{
		Text:       d.Text,
		Type:       criteria.Type(d.Type),
		Entity:     d.Entity,
		Relation:   d.Relation,
		Value:      d.Value,
		Unit:       d.Unit,
		Confidence: d.Confidence,
	}
}

// CriterionItemSchema describes one criterion in tool parameters and the
// salvage schema alike.
func CriterionItemSchema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"text": map[string]any{
				"type":        "string",
				"description": "The atomic criterion, quoted or minimally rephrased from the paragraph",
			},
			"criterion_type": map[string]any{
				"type": "string",
				"enum": []string{"inclusion", "exclusion"},
			},
			"entity":   map[string]any{"type": "string"},
			"relation": map[string]any{"type": "string"},
			"value":    map[string]any{"type": "string"},
			"unit":     map[string]any{"type": "string"},
			"confidence": map[string]any{
				"type":        "number",
				"minimum":     0.0,
				"maximum":     1.0,
				"description": "Confidence reported by extract_triplet for this statement",
			},
		},
		"required":             []string{"text", "criterion_type", "confidence"},
		"additionalProperties": false,
	}
}

// CriteriaSchema is the salvage response format: the same shape
// write_criteria accepts, so a cut-off transcript can still be distilled
// into a usable (if degraded) result.
func CriteriaSchema() json.RawMessage {
	return agent.MustMarshal(map[string]any{
		"name":   "extracted_criteria",
		"strict": true,
		"schema": map[string]any{
			"type": "object",
			"properties": map[string]any{
				"criteria": map[string]any{
					"type":  "array",
					"items": CriterionItemSchema(),
				},
			},
			"required":             []string{"criteria"},
			"additionalProperties": false,
		},
	})
}
