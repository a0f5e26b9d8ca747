package tools

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/clinsift/clinsift/internal/agent"
	"github.com/clinsift/clinsift/internal/agents/extractor"
	"github.com/clinsift/clinsift/internal/criteria"
	"github.com/clinsift/clinsift/internal/providers"
)

func (t *ExtractorTools) writeCriteriaDef() agent.Def {
	return agent.Def{
		Spec: agent.ToolSpec{
			Type: "function",
			Function: providers.ToolFunction{
				Name: "write_criteria",
				Description: "Submit the final list of atomic criteria for this paragraph and " +
					"finish. Submit an empty list when the paragraph states no eligibility " +
					"requirement.",
				Parameters: agent.MustMarshal(map[string]any{
					"type": "object",
					"properties": map[string]any{
						"criteria": map[string]any{
							"type":  "array",
							"items": extractor.CriterionItemSchema(),
						},
					},
					"required":             []string{"criteria"},
					"additionalProperties": false,
				}),
			},
		},
		Run: t.runWriteCriteria,
	}
}

func (t *ExtractorTools) runWriteCriteria(_ context.Context, args map[string]any) (string, error) {
	raw, err := json.Marshal(args["criteria"])
	if err != nil {
		return agent.JSONError(fmt.Sprintf("unencodable criteria: %v", err)), nil
	}
	var drafts []extractor.CriterionDraft
	if err := json.Unmarshal(raw, &drafts); err != nil {
		return agent.JSONError(fmt.Sprintf("malformed criteria: %v", err)), nil
	}

	out := &extractor.Result{Criteria: make([]criteria.Criterion, 0, len(drafts))}
	for i, d := range drafts {
		c := d.Criterion()

		// Prefer the predicate and confidence the triplet generation actually
		// produced over the model's restatement of it.
		t.mu.Lock()
		entry, found := t.tripletByText[criteria.Normalize(d.Text)]
		t.mu.Unlock()
		if found {
			c.Entity = entry.triplet.Entity
			c.Relation = entry.triplet.Relation
			c.Value = entry.triplet.Value
			c.Unit = entry.triplet.Unit
			c.Confidence = entry.triplet.Confidence
		}

		if err := c.Validate(); err != nil {
			return agent.JSONError(fmt.Sprintf("criterion %d is invalid: %v", i, err)), nil
		}
		out.Criteria = append(out.Criteria, c)
	}

	t.mu.Lock()
	t.result = out
	t.mu.Unlock()

	return agent.JSONSuccess(map[string]any{
		"criteria_written": len(out.Criteria),
	}), nil
}
