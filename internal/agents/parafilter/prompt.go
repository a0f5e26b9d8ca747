package parafilter

import (
	"bytes"
	_ "embed"
	"text/template"

	"github.com/clinsift/clinsift/internal/document"
)

//go:embed system.tmpl
var systemPrompt string

//go:embed user.tmpl
var userPromptTmpl string

var userTemplate = template.Must(template.New("user").Parse(userPromptTmpl))

// Prompt keys
const (
	SystemPromptKey = "agents.parafilter.system"
	UserPromptKey   = "agents.parafilter.user"
)

// SystemPrompt returns the paragraph filter system prompt.
func SystemPrompt() string {
	return systemPrompt
}

// UserPromptData contains the data needed to render the user prompt.
type UserPromptData struct {
	Paragraphs []document.ParagraphView
}

// UserPrompt renders the user prompt for one paragraph batch.
func UserPrompt(data UserPromptData) string {
	var buf bytes.Buffer
	if err := userTemplate.Execute(&buf, data); err != nil {
		return userPromptTmpl
	}
	return buf.String()
}
