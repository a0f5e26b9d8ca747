package pagefilter

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
	SystemPromptKey = "agents.pagefilter.system"
	UserPromptKey   = "agents.pagefilter.user"
)

// SystemPrompt returns the page filter system prompt.
func SystemPrompt() string {
	return systemPrompt
}

// UserPromptData contains the data needed to render the user prompt.
type UserPromptData struct {
	Pages      []document.PageView
	TotalPages int
}

// UserPrompt renders the user prompt for one page batch.
func UserPrompt(data UserPromptData) string {
	var buf bytes.Buffer
	if err := userTemplate.Execute(&buf, data); err != nil {
		// Fallback to raw template on error
		return userPromptTmpl
	}
	return buf.String()
}
