package tools

import (
	"context"

	"github.com/clinsift/clinsift/internal/agent"
	"github.com/clinsift/clinsift/internal/providers"
)

func (t *GrounderTools) getSemanticTypeDef() agent.Def {
	return agent.Def{
		Spec: agent.ToolSpec{
			Type: "function",
			Function: providers.ToolFunction{
				Name: "get_semantic_type",
				Description: "Look up a concept's semantic type (e.g. \"Disease or Syndrome\") " +
					"to disambiguate terms that match concepts in multiple categories.",
				Parameters: agent.MustMarshal(map[string]any{
					"type": "object",
					"properties": map[string]any{
						"concept_id": map[string]any{
							"type":        "string",
							"description": "The concept code from a search result",
						},
					},
					"required":             []string{"concept_id"},
					"additionalProperties": false,
				}),
			},
		},
		Run: t.runGetSemanticType,
	}
}

func (t *GrounderTools) runGetSemanticType(ctx context.Context, args map[string]any) (string, error) {
	conceptID, _ := args["concept_id"].(string)
	if conceptID == "" {
		return agent.JSONError("concept_id must not be empty"), nil
	}

	semType, err := t.searcher.SemanticType(ctx, conceptID)
	if err != nil {
		return "", err
	}

	return agent.JSONSuccess(map[string]any{
		"concept_id":    conceptID,
		"semantic_type": semType,
	}), nil
}
