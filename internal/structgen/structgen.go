// Package structgen wraps a single model call that must return a value
// conforming to a declared JSON schema. Output is parsed, validated against
// the schema, and repaired with bounded re-prompting before the call is
// declared failed.
package structgen

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/clinsift/clinsift/internal/llmcall"
	"github.com/clinsift/clinsift/internal/providers"
)

// Sentinel errors for the structured generation boundary.
var (
	// ErrSchemaValidation means the model never produced output conforming
	// to the schema within the repair budget.
	ErrSchemaValidation = errors.New("structured output failed schema validation")

	// ErrModelUnavailable means the call failed at the transport level.
	ErrModelUnavailable = errors.New("model unavailable")
)

// maxRepairAttempts bounds self-repair re-prompts after the initial call.
const maxRepairAttempts = 2

// Request describes one structured generation call.
type Request struct {
	SystemPrompt string
	UserPrompt   string

	// Schema is the json_schema response-format wrapper sent to the model
	// and used for local validation.
	Schema json.RawMessage

	// Model options (client defaults apply when zero)
	Model       string
	Temperature float64
	MaxTokens   int
	Timeout     time.Duration

	// Observability
	PromptKey string
	Record    llmcall.RecordOptions
}

// Generator issues schema-validated generation calls against one client.
type Generator struct {
	client   providers.LLMClient
	recorder *llmcall.Recorder
}

// New creates a Generator. The recorder may be nil to disable call recording.
func New(client providers.LLMClient, recorder *llmcall.Recorder) *Generator {
	return &Generator{client: client, recorder: recorder}
}

// Generate runs the call and returns schema-valid JSON.
// On parse/validation failure it re-prompts with a repair message up to
// maxRepairAttempts times, then returns ErrSchemaValidation. Transport
// failures return ErrModelUnavailable.
func (g *Generator) Generate(ctx context.Context, req Request) (json.RawMessage, error) {
	if len(req.Schema) == 0 {
		return nil, fmt.Errorf("structgen: request has no schema")
	}

	messages := []providers.Message{
		{Role: "system", Content: req.SystemPrompt},
		{Role: "user", Content: req.UserPrompt},
	}

	var lastIssue error
	var lastOutput string

	for attempt := 0; attempt <= maxRepairAttempts; attempt++ {
		if attempt > 0 {
			messages = append(messages, providers.Message{
				Role:    "user",
				Content: providers.RepairPrompt(req.Schema, lastOutput, lastIssue),
			})
		}

		chatReq := &providers.ChatRequest{
			Messages:    messages,
			Model:       req.Model,
			Temperature: req.Temperature,
			MaxTokens:   req.MaxTokens,
			Timeout:     req.Timeout,
			ResponseFormat: &providers.ResponseFormat{
				Type:       "json_schema",
				JSONSchema: req.Schema,
			},
		}

		result, err := g.client.Chat(ctx, chatReq)
		g.record(result, req)

		if err != nil {
			// Parse failures are repairable; anything else that errored the
			// call is transport-level.
			if result == nil || result.ErrorType != "json_parse" {
				return nil, fmt.Errorf("%w: %v", ErrModelUnavailable, err)
			}
		}

		parsed := result.ParsedJSON
		if len(parsed) == 0 {
			var pErr error
			parsed, pErr = providers.ParseStructuredJSON(result.Content)
			if pErr != nil {
				lastIssue = pErr
				lastOutput = result.Content
				messages = appendAssistant(messages, result.Content)
				continue
			}
		}

		if vErr := providers.ValidateStructuredJSON(req.Schema, parsed); vErr != nil {
			lastIssue = vErr
			lastOutput = string(parsed)
			messages = appendAssistant(messages, result.Content)
			continue
		}

		return parsed, nil
	}

	return nil, fmt.Errorf("%w after %d repair attempts: %v", ErrSchemaValidation, maxRepairAttempts, lastIssue)
}

// Unmarshal runs Generate and decodes the validated value into out.
func (g *Generator) Unmarshal(ctx context.Context, req Request, out any) error {
	raw, err := g.Generate(ctx, req)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("%w: validated output did not decode: %v", ErrSchemaValidation, err)
	}
	return nil
}

func appendAssistant(messages []providers.Message, content string) []providers.Message {
	return append(messages, providers.Message{Role: "assistant", Content: content})
}

// record emits an observability record for one attempt. Never fails the call.
func (g *Generator) record(result *providers.ChatResult, req Request) {
	if g.recorder == nil || result == nil {
		return
	}
	opts := req.Record
	if opts.PromptKey == "" {
		opts.PromptKey = req.PromptKey
	}
	g.recorder.Record(result, opts)
}
