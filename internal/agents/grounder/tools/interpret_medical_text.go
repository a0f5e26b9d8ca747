package tools

import (
	"context"

	"github.com/clinsift/clinsift/internal/agent"
	"github.com/clinsift/clinsift/internal/providers"
)

func (t *GrounderTools) interpretMedicalTextDef() agent.Def {
	return agent.Def{
		Spec: agent.ToolSpec{
			Type: "function",
			Function: providers.ToolFunction{
				Name: "interpret_medical_text",
				Description: "Read criterion text as a clinician would: name the groundable " +
					"clinical concepts, how multiple concepts combine, and whether the " +
					"criterion is a quantitative predicate over a named field.",
				Parameters: agent.MustMarshal(map[string]any{
					"type": "object",
					"properties": map[string]any{
						"text": map[string]any{
							"type":        "string",
							"description": "The criterion text to interpret",
						},
					},
					"required":             []string{"text"},
					"additionalProperties": false,
				}),
			},
		},
		Run: t.runInterpretMedicalText,
	}
}

func (t *GrounderTools) runInterpretMedicalText(ctx context.Context, args map[string]any) (string, error) {
	text, _ := args["text"].(string)
	if text == "" {
		return agent.JSONError("text must not be empty"), nil
	}

	interp, err := t.svc.Interpret(ctx, text)
	if err != nil {
		return "", err
	}

	concepts := make([]map[string]any, 0, len(interp.Concepts))
	for _, c := range interp.Concepts {
		concepts = append(concepts, map[string]any{
			"term":     c.Term,
			"category": c.Category,
		})
	}

	return agent.JSONSuccess(map[string]any{
		"concepts":         concepts,
		"logical_operator": interp.LogicalOperator,
		"quantitative":     interp.Quantitative,
		"field":            interp.Field,
	}), nil
}
