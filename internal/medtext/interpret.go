package medtext

import (
	"context"
	"fmt"
)

const interpretSystemPrompt = `You are a clinical terminology analyst. Given one eligibility criterion from a
clinical-trial protocol, identify the clinical concept(s) that should be mapped
to standardized terminology codes.

Rules:
- Extract only concepts present in the text; never invent conditions.
- When several concepts combine, report how: "AND" when all must hold,
  "OR" when any suffices.
- Mark the criterion quantitative when it encodes a numeric threshold or
  range (age, lab value, score), and name the measured field.`

// interpretSchema is the structured-output contract for Interpret.
func interpretSchema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"concepts": map[string]any{
				"type": "array",
				"items": map[string]any{
					"type": "object",
					"properties": map[string]any{
						"term": map[string]any{
							"type":        "string",
							"description": "The clinical concept to search for",
						},
						"category": map[string]any{
							"type": "string",
							"enum": []string{"condition", "medication", "procedure", "measurement", "demographic", "other"},
						},
					},
					"required":             []string{"term", "category"},
					"additionalProperties": false,
				},
			},
			"logical_operator": map[string]any{
				"type":        "string",
				"enum":        []string{"", "AND", "OR"},
				"description": "How multiple concepts combine; empty for a single concept",
			},
			"quantitative": map[string]any{
				"type": "boolean",
			},
			"field": map[string]any{
				"type":        "string",
				"description": "Measured field when quantitative (e.g. age, hemoglobin); empty otherwise",
			},
		},
		"required":             []string{"concepts", "logical_operator", "quantitative", "field"},
		"additionalProperties": false,
	}
}

// Interpret extracts the clinical concepts a criterion should be grounded to.
func (s *Service) Interpret(ctx context.Context, text string) (*Interpretation, error) {
	var out Interpretation
	err := s.gen.Unmarshal(ctx, newRequest(
		s.model,
		"medtext.interpret",
		interpretSystemPrompt,
		fmt.Sprintf("Criterion:\n%s", text),
		jsonSchema("clinical_interpretation", interpretSchema()),
	), &out)
	if err != nil {
		return nil, err
	}
	return &out, nil
}
