// Package medtext provides the LLM-backed text interpretation services the
// agents call as tools: clinical concept interpretation, entity/relation/
// value triplet extraction, and ambiguity clarification with per-paragraph
// memoization.
package medtext

import (
	"encoding/json"

	"github.com/clinsift/clinsift/internal/agent"
	"github.com/clinsift/clinsift/internal/structgen"
)

// Service bundles the interpretation calls around one generator.
type Service struct {
	gen   *structgen.Generator
	model string
}

// New creates a Service. Model may be empty to use the client default.
func New(gen *structgen.Generator, model string) *Service {
	return &Service{gen: gen, model: model}
}

// ClinicalConcept is one groundable concept found in criterion text.
type ClinicalConcept struct {
	Term     string `json:"term"`
	Category string `json:"category"` // condition, medication, procedure, measurement, demographic, other
}

// Interpretation is the medical reading of one criterion.
type Interpretation struct {
	Concepts []ClinicalConcept `json:"concepts"`

	// LogicalOperator combines multiple concepts ("AND"/"OR"); empty for a
	// single concept.
	LogicalOperator string `json:"logical_operator"`

	// Quantitative is set when the text implies a numeric threshold or
	// range over a named field (age, lab value).
	Quantitative bool   `json:"quantitative"`
	Field        string `json:"field"`
}

// Triplet is the structured predicate extracted from one criterion.
type Triplet struct {
	Entity     string  `json:"entity"`
	Relation   string  `json:"relation"`
	Value      string  `json:"value"`
	Unit       string  `json:"unit"`
	Confidence float64 `json:"confidence"`
}

// jsonSchema wraps a bare schema document in the json_schema response-format
// envelope the chat API expects.
func jsonSchema(name string, schema map[string]any) json.RawMessage {
	return agent.MustMarshal(map[string]any{
		"name":   name,
		"strict": true,
		"schema": schema,
	})
}
