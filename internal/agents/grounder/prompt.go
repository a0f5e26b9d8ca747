package grounder

import (
	"bytes"
	_ "embed"
	"text/template"

	"github.com/clinsift/clinsift/internal/criteria"
)

//go:embed system.tmpl
var systemPrompt string

//go:embed user.tmpl
var userPromptTmpl string

var userTemplate = template.Must(template.New("user").Parse(userPromptTmpl))

// Prompt keys
const (
	SystemPromptKey = "agents.grounder.system"
	UserPromptKey   = "agents.grounder.user"
)

// SystemPrompt returns the grounding agent system prompt.
func SystemPrompt() string {
	return systemPrompt
}

// UserPrompt renders the user prompt for one criterion.
func UserPrompt(c criteria.Criterion) string {
	var buf bytes.Buffer
	if err := userTemplate.Execute(&buf, c); err != nil {
		return userPromptTmpl
	}
	return buf.String()
}
