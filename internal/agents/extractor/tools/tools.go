// Package tools implements the extraction agent's toolset: structured
// triplet extraction, memoized ambiguity clarification, and the final
// write_criteria submission.
package tools

import (
	"context"
	"sync"

	"github.com/clinsift/clinsift/internal/agent"
	"github.com/clinsift/clinsift/internal/agents/extractor"
	"github.com/clinsift/clinsift/internal/criteria"
	"github.com/clinsift/clinsift/internal/medtext"
)

// ExtractorTools provides the extraction agent's capabilities for one
// paragraph. Not safe for use by more than one agent; each paragraph run
// gets its own instance.
type ExtractorTools struct {
	mu sync.Mutex

	svc     *medtext.Service
	clarify *medtext.ClarifyCache

	pageIndex      int
	paragraphIndex int
	paragraphText  string

	// tripletByText remembers extract_triplet results keyed by normalized
	// statement text, so write_criteria can inherit the predicate and its
	// generation confidence instead of trusting the model's restatement.
	tripletByText map[string]tripletEntry

	registry *agent.Registry
	result   *extractor.Result
}

// New creates the toolset for one paragraph.
func New(svc *medtext.Service, clarify *medtext.ClarifyCache, pageIndex, paragraphIndex int, paragraphText string) *ExtractorTools {
	t := &ExtractorTools{
		svc:            svc,
		clarify:        clarify,
		pageIndex:      pageIndex,
		paragraphIndex: paragraphIndex,
		paragraphText:  paragraphText,
		tripletByText:  make(map[string]tripletEntry),
	}
	t.registry = agent.NewRegistry(
		t.extractTripletDef(),
		t.clarifyAmbiguityDef(),
		t.writeCriteriaDef(),
	)
	return t
}

// Specs returns the tool definitions in name order.
func (t *ExtractorTools) Specs() []agent.ToolSpec {
	return t.registry.Specs()
}

// Execute dispatches a tool call through the registry.
func (t *ExtractorTools) Execute(ctx context.Context, name string, args map[string]any) (string, error) {
	return t.registry.Execute(ctx, name, args)
}

// IsComplete reports whether write_criteria has been called.
func (t *ExtractorTools) IsComplete() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.result != nil
}

// Result returns the submitted criteria, or the partial accumulated state
// (triplets without a final write) when the run was cut off.
func (t *ExtractorTools) Result() any {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.result != nil {
		return t.result
	}
	return t.partialLocked()
}

// partialLocked distills accumulated triplets into a degraded result: each
// extracted triplet becomes a criterion with its statement text. Type is
// unknown at this point, so partials default to inclusion and rely on the
// salvage pass to do better.
func (t *ExtractorTools) partialLocked() *extractor.Result {
	out := &extractor.Result{}
	for _, e := range t.tripletByText {
		out.Criteria = append(out.Criteria, criteria.Criterion{
			Text:       e.text,
			Type:       criteria.Inclusion,
			Entity:     e.triplet.Entity,
			Relation:   e.triplet.Relation,
			Value:      e.triplet.Value,
			Unit:       e.triplet.Unit,
			Confidence: e.triplet.Confidence,
		})
	}
	return out
}

// tripletEntry pairs a statement's original text with its extracted
// predicate.
type tripletEntry struct {
	text    string
	triplet *medtext.Triplet
}
