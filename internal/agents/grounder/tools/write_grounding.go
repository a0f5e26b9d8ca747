package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"

	"github.com/clinsift/clinsift/internal/agent"
	"github.com/clinsift/clinsift/internal/agents/grounder"
	"github.com/clinsift/clinsift/internal/criteria"
	"github.com/clinsift/clinsift/internal/providers"
)

func (t *GrounderTools) writeGroundingDef() agent.Def {
	return agent.Def{
		Spec: agent.ToolSpec{
			Type: "function",
			Function: providers.ToolFunction{
				Name: "write_grounding",
				Description: "Submit the final grounding for this criterion and finish. " +
					"Rank candidates best first; submit an empty candidate list when " +
					"nothing groundable exists.",
				Parameters: grounder.WriteGroundingParameters(),
			},
		},
		Run: t.runWriteGrounding,
	}
}

func (t *GrounderTools) runWriteGrounding(_ context.Context, args map[string]any) (string, error) {
	raw, err := json.Marshal(args)
	if err != nil {
		return agent.JSONError(fmt.Sprintf("unencodable grounding: %v", err)), nil
	}
	var draft grounder.GroundingDraft
	if err := json.Unmarshal(raw, &draft); err != nil {
		return agent.JSONError(fmt.Sprintf("malformed grounding: %v", err)), nil
	}

	for i, c := range draft.Candidates {
		if c.Code == "" || c.Ontology == "" {
			return agent.JSONError(fmt.Sprintf("candidate %d is missing code or ontology", i)), nil
		}
		if c.Confidence < 0 || c.Confidence > 1 {
			return agent.JSONError(fmt.Sprintf("candidate %d has confidence %v outside [0,1]", i, c.Confidence)), nil
		}
	}
	if fm := draft.FieldMapping; fm != nil {
		if fm.Field == "" || fm.Relation == "" {
			return agent.JSONError("field_mapping requires field and relation"), nil
		}
	}

	// Highest confidence first; stable so equal-confidence candidates keep
	// the submitted (search ranking) order.
	candidates := append([]criteria.GroundingCandidate(nil), draft.Candidates...)
	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].Confidence > candidates[j].Confidence
	})

	t.mu.Lock()
	t.result = &grounder.Result{Grounding: criteria.GroundingResult{
		CriterionID:     t.criterion.ID,
		Candidates:      candidates,
		LogicalOperator: draft.LogicalOperator,
		FieldMapping:    draft.FieldMapping,
	}}
	t.mu.Unlock()

	return agent.JSONSuccess(map[string]any{
		"candidates_written": len(candidates),
	}), nil
}
