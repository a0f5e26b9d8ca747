// Package criteria defines the pipeline's output model: atomic eligibility
// criteria extracted from protocol text, and the terminology grounding
// attached to each one before human review.
package criteria

import (
	"fmt"

	"github.com/google/uuid"
)

// Type classifies a criterion as inclusion or exclusion.
type Type string

const (
	Inclusion Type = "inclusion"
	Exclusion Type = "exclusion"
)

// Valid reports whether t is a known criterion type.
func (t Type) Valid() bool {
	return t == Inclusion || t == Exclusion
}

// Criterion is a single, non-decomposable eligibility statement.
// Immutable after creation; deduplication picks one survivor per
// equivalence class rather than mutating members.
type Criterion struct {
	ID   string `json:"id" yaml:"id"`
	Text string `json:"text" yaml:"text"`
	Type Type   `json:"criterion_type" yaml:"criterion_type"`

	// Structured predicate (all optional)
	Entity   string `json:"entity,omitempty" yaml:"entity,omitempty"`
	Relation string `json:"relation,omitempty" yaml:"relation,omitempty"`
	Value    string `json:"value,omitempty" yaml:"value,omitempty"`
	Unit     string `json:"unit,omitempty" yaml:"unit,omitempty"`

	// Confidence inherited from the underlying structured generation.
	Confidence float64 `json:"confidence" yaml:"confidence"`

	// Provenance
	SourcePageIndex      int `json:"source_page_index" yaml:"source_page_index"`
	SourceParagraphIndex int `json:"source_paragraph_index" yaml:"source_paragraph_index"`
}

// NewID returns a fresh criterion ID.
func NewID() string {
	return uuid.New().String()
}

// Validate checks the invariants a criterion must satisfy before it leaves
// the extraction stage.
func (c *Criterion) Validate() error {
	if c.Text == "" {
		return fmt.Errorf("criterion has empty text")
	}
	if !c.Type.Valid() {
		return fmt.Errorf("criterion %q has invalid type %q", c.ID, c.Type)
	}
	if c.Confidence < 0 || c.Confidence > 1 {
		return fmt.Errorf("criterion %q has confidence %v outside [0,1]", c.ID, c.Confidence)
	}
	return nil
}

// GroundingCandidate is one standardized terminology code proposed for a
// criterion. Candidates are ranked highest confidence first; ties keep the
// terminology search's return order.
type GroundingCandidate struct {
	Code        string  `json:"code" yaml:"code"`
	DisplayName string  `json:"display_name" yaml:"display_name"`
	Ontology    string  `json:"ontology" yaml:"ontology"`
	Confidence  float64 `json:"confidence" yaml:"confidence"`
}

// FieldMapping expresses a criterion as a structured predicate over a named
// data field (e.g., age > 75) for downstream automated screening.
type FieldMapping struct {
	Field      string  `json:"field" yaml:"field"`
	Relation   string  `json:"relation" yaml:"relation"`
	Value      string  `json:"value" yaml:"value"`
	Confidence float64 `json:"confidence" yaml:"confidence"`
}

// GroundingResult is the grounding agent's output for one criterion.
type GroundingResult struct {
	CriterionID string               `json:"criterion_id" yaml:"criterion_id"`
	Candidates  []GroundingCandidate `json:"candidates" yaml:"candidates"`

	// LogicalOperator describes how multiple grounded terms combine
	// (e.g., "AND", "OR"). Empty when the criterion has a single term.
	LogicalOperator string `json:"logical_operator,omitempty" yaml:"logical_operator,omitempty"`

	// FieldMapping is the single best suggestion, when the criterion
	// implies a quantitative field.
	FieldMapping *FieldMapping `json:"field_mapping,omitempty" yaml:"field_mapping,omitempty"`
}

// Completeness annotates how a unit of work finished.
type Completeness string

const (
	Complete   Completeness = "complete"
	Degraded   Completeness = "degraded" // partial data from a cut-off agent run
	Failed     Completeness = "failed"   // no usable data for this unit
	Skipped    Completeness = "skipped"  // unit cancelled before it started
	Ungrounded Completeness = "ungrounded"
)
