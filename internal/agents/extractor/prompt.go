package extractor

import (
	"bytes"
	_ "embed"
	"text/template"
)

//go:embed system.tmpl
var systemPrompt string

//go:embed user.tmpl
var userPromptTmpl string

var userTemplate = template.Must(template.New("user").Parse(userPromptTmpl))

// Prompt keys
const (
	SystemPromptKey = "agents.extractor.system"
	UserPromptKey   = "agents.extractor.user"
)

// SystemPrompt returns the extraction agent system prompt.
func SystemPrompt() string {
	return systemPrompt
}

// UserPromptData contains the data needed to render the user prompt.
type UserPromptData struct {
	PageIndex      int
	ParagraphIndex int
	Text           string
}

// UserPrompt renders the user prompt for one paragraph.
func UserPrompt(data UserPromptData) string {
	var buf bytes.Buffer
	if err := userTemplate.Execute(&buf, data); err != nil {
		return userPromptTmpl
	}
	return buf.String()
}
