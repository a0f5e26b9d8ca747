package tools

import (
	"context"

	"github.com/clinsift/clinsift/internal/agent"
	"github.com/clinsift/clinsift/internal/criteria"
	"github.com/clinsift/clinsift/internal/providers"
)

func (t *ExtractorTools) extractTripletDef() agent.Def {
	return agent.Def{
		Spec: agent.ToolSpec{
			Type: "function",
			Function: providers.ToolFunction{
				Name: "extract_triplet",
				Description: "Convert one atomic eligibility statement into a structured " +
					"entity/relation/value predicate with a confidence score. Call once " +
					"per criterion before writing the final result.",
				Parameters: agent.MustMarshal(map[string]any{
					"type": "object",
					"properties": map[string]any{
						"text": map[string]any{
							"type":        "string",
							"description": "The atomic statement, exactly as it will appear in the criterion",
						},
					},
					"required":             []string{"text"},
					"additionalProperties": false,
				}),
			},
		},
		Run: t.runExtractTriplet,
	}
}

func (t *ExtractorTools) runExtractTriplet(ctx context.Context, args map[string]any) (string, error) {
	text, _ := args["text"].(string)
	if text == "" {
		return agent.JSONError("text must not be empty"), nil
	}

	triplet, err := t.svc.ExtractTriplet(ctx, text)
	if err != nil {
		return "", err
	}

	t.mu.Lock()
	t.tripletByText[criteria.Normalize(text)] = tripletEntry{text: text, triplet: triplet}
	t.mu.Unlock()

	return agent.JSONSuccess(map[string]any{
		"entity":     triplet.Entity,
		"relation":   triplet.Relation,
		"value":      triplet.Value,
		"unit":       triplet.Unit,
		"confidence": triplet.Confidence,
	}), nil
}
