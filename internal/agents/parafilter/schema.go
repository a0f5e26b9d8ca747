package parafilter

import (
	"encoding/json"

	"github.com/clinsift/clinsift/internal/agent"
)

// Selection is the structured result of one paragraph filter call.
type Selection struct {
	Paragraphs []SelectedParagraph `json:"paragraphs"`
	Reasoning  string              `json:"reasoning"`
}

// SelectedParagraph identifies one selected paragraph.
type SelectedParagraph struct {
	PageIndex      int `json:"page_index"`
	ParagraphIndex int `json:"paragraph_index"`
}

// Schema returns the json_schema response format for the paragraph filter.
func Schema() json.RawMessage {
	return agent.MustMarshal(map[string]any{
		"name":   "paragraph_selection",
		"strict": true,
		"schema": map[string]any{
			"type": "object",
			"properties": map[string]any{
				"paragraphs": map[string]any{
					"type": "array",
					"items": map[string]any{
						"type": "object",
						"properties": map[string]any{
							"page_index":      map[string]any{"type": "integer", "minimum": 0},
							"paragraph_index": map[string]any{"type": "integer", "minimum": 0},
						},
						"required":             []string{"page_index", "paragraph_index"},
						"additionalProperties": false,
					},
				},
				"reasoning": map[string]any{
					"type":        "string",
					"description": "1-2 sentence explanation of the selection",
				},
			},
			"required":             []string{"paragraphs", "reasoning"},
			"additionalProperties": false,
		},
	})
}
