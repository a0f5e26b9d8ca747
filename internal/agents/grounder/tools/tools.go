// Package tools implements the grounding agent's toolset: medical
// interpretation, terminology search, semantic-type disambiguation, and the
// final write_grounding submission.
package tools

import (
	"context"
	"sort"
	"sync"

	"github.com/clinsift/clinsift/internal/agent"
	"github.com/clinsift/clinsift/internal/agents/grounder"
	"github.com/clinsift/clinsift/internal/criteria"
	"github.com/clinsift/clinsift/internal/medtext"
	"github.com/clinsift/clinsift/internal/terminology"
)

// GrounderTools provides the grounding agent's capabilities for one
// criterion. Each criterion run gets its own instance.
type GrounderTools struct {
	mu sync.Mutex

	svc      *medtext.Service
	searcher terminology.Searcher

	criterion criteria.Criterion

	// seen accumulates every candidate returned by search_concepts, in
	// search order, deduplicated by (ontology, code). It backs the partial
	// result when a run is cut off before write_grounding.
	seen     []criteria.GroundingCandidate
	seenKeys map[[2]string]struct{}

	registry *agent.Registry
	result   *grounder.Result
}

// New creates the toolset for one criterion.
func New(svc *medtext.Service, searcher terminology.Searcher, c criteria.Criterion) *GrounderTools {
	t := &GrounderTools{
		svc:       svc,
		searcher:  searcher,
		criterion: c,
		seenKeys:  make(map[[2]string]struct{}),
	}
	t.registry = agent.NewRegistry(
		t.interpretMedicalTextDef(),
		t.searchConceptsDef(),
		t.getSemanticTypeDef(),
		t.writeGroundingDef(),
	)
	return t
}

// Specs returns the tool definitions in name order.
func (t *GrounderTools) Specs() []agent.ToolSpec {
	return t.registry.Specs()
}

// Execute dispatches a tool call through the registry.
func (t *GrounderTools) Execute(ctx context.Context, name string, args map[string]any) (string, error) {
	return t.registry.Execute(ctx, name, args)
}

// IsComplete reports whether write_grounding has been called.
func (t *GrounderTools) IsComplete() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.result != nil
}

// Result returns the submitted grounding, or a partial grounding built from
// the candidates seen so far when the run was cut off.
func (t *GrounderTools) Result() any {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.result != nil {
		return t.result
	}

	candidates := append([]criteria.GroundingCandidate(nil), t.seen...)
	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].Confidence > candidates[j].Confidence
	})
	return &grounder.Result{Grounding: criteria.GroundingResult{
		CriterionID: t.criterion.ID,
		Candidates:  candidates,
	}}
}

func (t *GrounderTools) recordSeen(candidates []terminology.Candidate) {
	t.mu.Lock()
	defer t.mu.Unlock()
	for _, c := range candidates {
		key := [2]string{c.Ontology, c.Code}
		if _, dup := t.seenKeys[key]; dup {
			continue
		}
		t.seenKeys[key] = struct{}{}
		t.seen = append(t.seen, criteria.GroundingCandidate{
			Code:        c.Code,
			DisplayName: c.DisplayName,
			Ontology:    c.Ontology,
			Confidence:  c.Confidence,
		})
	}
}
