package tools

import (
	"context"

	"github.com/clinsift/clinsift/internal/agent"
	"github.com/clinsift/clinsift/internal/providers"
)

func (t *ExtractorTools) clarifyAmbiguityDef() agent.Def {
	return agent.Def{
		Spec: agent.ToolSpec{
			Type: "function",
			Function: providers.ToolFunction{
				Name: "clarify_ambiguity",
				Description: "Ask a specific question about the paragraph when its wording is " +
					"ambiguous. Answers come from the paragraph text alone and repeated " +
					"questions are answered from cache.",
				Parameters: agent.MustMarshal(map[string]any{
					"type": "object",
					"properties": map[string]any{
						"question": map[string]any{
							"type":        "string",
							"description": "The specific ambiguity to resolve",
						},
					},
					"required":             []string{"question"},
					"additionalProperties": false,
				}),
			},
		},
		Run: t.runClarifyAmbiguity,
	}
}

func (t *ExtractorTools) runClarifyAmbiguity(ctx context.Context, args map[string]any) (string, error) {
	question, _ := args["question"].(string)
	if question == "" {
		return agent.JSONError("question must not be empty"), nil
	}

	answer, err := t.svc.Clarify(ctx, t.clarify, t.pageIndex, t.paragraphIndex, t.paragraphText, question)
	if err != nil {
		return "", err
	}

	return agent.JSONSuccess(map[string]any{"answer": answer}), nil
}
