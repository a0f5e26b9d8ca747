package pagefilter

import (
	"encoding/json"

	"github.com/clinsift/clinsift/internal/agent"
)

// Selection is the structured result of one page filter call.
type Selection struct {
	PageIndices []int  `json:"page_indices"`
	Reasoning   string `json:"reasoning"`
}

// Schema returns the json_schema response format for the page filter.
func Schema() json.RawMessage {
	return agent.MustMarshal(map[string]any{
		"name":   "page_selection",
		"strict": true,
		"schema": map[string]any{
			"type": "object",
			"properties": map[string]any{
				"page_indices": map[string]any{
					"type":        "array",
					"items":       map[string]any{"type": "integer", "minimum": 0},
					"description": "Indices of pages containing eligibility-criteria content",
				},
				"reasoning": map[string]any{
					"type":        "string",
					"description": "1-2 sentence explanation of the selection",
				},
			},
			"required":             []string{"page_indices", "reasoning"},
			"additionalProperties": false,
		},
	})
}
