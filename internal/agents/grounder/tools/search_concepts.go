package tools

import (
	"context"

	"github.com/clinsift/clinsift/internal/agent"
	"github.com/clinsift/clinsift/internal/providers"
)

const defaultSearchLimit = 10

func (t *GrounderTools) searchConceptsDef() agent.Def {
	return agent.Def{
		Spec: agent.ToolSpec{
			Type: "function",
			Function: providers.ToolFunction{
				Name: "search_concepts",
				Description: "Search the terminology service for concepts matching a term. " +
					"Results are in the service's ranking order. An empty list means no " +
					"match exists; do not repeat the same term unchanged.",
				Parameters: agent.MustMarshal(map[string]any{
					"type": "object",
					"properties": map[string]any{
						"term": map[string]any{
							"type":        "string",
							"description": "The concept term to search for",
						},
						"limit": map[string]any{
							"type":        "integer",
							"minimum":     1,
							"maximum":     50,
							"description": "Maximum results to return (default 10)",
						},
					},
					"required":             []string{"term"},
					"additionalProperties": false,
				}),
			},
		},
		Run: t.runSearchConcepts,
	}
}

func (t *GrounderTools) runSearchConcepts(ctx context.Context, args map[string]any) (string, error) {
	term, _ := args["term"].(string)
	if term == "" {
		return agent.JSONError("term must not be empty"), nil
	}
	limit := defaultSearchLimit
	if v, ok := args["limit"].(float64); ok && v > 0 {
		limit = int(v)
	}

	candidates, err := t.searcher.Search(ctx, term, limit)
	if err != nil {
		return "", err
	}
	t.recordSeen(candidates)

	results := make([]map[string]any, 0, len(candidates))
	for _, c := range candidates {
		results = append(results, map[string]any{
			"code":         c.Code,
			"display_name": c.DisplayName,
			"ontology":     c.Ontology,
			"confidence":   c.Confidence,
		})
	}

	return agent.JSONSuccess(map[string]any{
		"term":    term,
		"results": results,
		"count":   len(results),
	}), nil
}
