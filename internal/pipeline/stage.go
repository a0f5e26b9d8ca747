// Package pipeline orders and runs the extraction stages: page filtering,
// paragraph filtering, criterion extraction, deduplication, and terminology
// grounding. Stages declare dependencies and run in topological order; the
// fan-out across paragraphs and criteria happens inside the stages.
package pipeline

import (
	"context"

	"github.com/clinsift/clinsift/internal/agents/extractor"
	"github.com/clinsift/clinsift/internal/agents/grounder"
	"github.com/clinsift/clinsift/internal/criteria"
	"github.com/clinsift/clinsift/internal/document"
)

// Stage is one step of the extraction pipeline. Stages communicate through
// the shared State and must be safe to run once per State.
type Stage interface {
	// Name identifies the stage, e.g. "filter-pages", "extract".
	Name() string

	// Dependencies lists stages that must complete first.
	Dependencies() []string

	// Description is a one-line summary for logs and CLI listings.
	Description() string

	// Run executes the stage against the shared run state. Unit-level
	// failures degrade the state rather than erroring; an error aborts the
	// run.
	Run(ctx context.Context, st *State) error
}

// State is the shared data flowing through one pipeline run.
type State struct {
	Doc   *document.Document
	RunID string

	// Filter output
	PageIndices   []int
	ParagraphRefs []document.ParagraphRef

	// Extraction output: one entry per paragraph ref, in ref order.
	Extractions []extractor.Extraction

	// Criteria after deduplication, and the pre-dedup count for reporting.
	Criteria       []criteria.Criterion
	RawCriteriaLen int

	// Grounding output keyed by criterion ID.
	Groundings map[string]grounder.Grounding
}
