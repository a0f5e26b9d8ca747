// Package agent implements the reasoning-loop runtime: an iterative
// decide -> act -> observe loop alternating model reasoning with tool
// invocation, bounded by a per-role step budget. The loop terminates when a
// final structured answer is produced or the budget is exhausted, in which
// case a best-effort salvage pass runs before the result is surfaced as
// incomplete.
package agent

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/clinsift/clinsift/internal/agent/observability"
	"github.com/clinsift/clinsift/internal/providers"
)

// Default budgets. Budgets are fixed per agent role, not per invocation:
// more available tools mean more reasoning rounds to converge.
const (
	DefaultMaxSteps    = 8
	DefaultToolTimeout = 30 * time.Second
)

// Salvager attempts a best-effort structured extraction from the partial
// transcript after step exhaustion. Roles provide one backed by their final
// result schema; a nil salvager skips straight to the incomplete result.
type Salvager func(ctx context.Context, transcript []providers.Message) (any, error)

// Config configures an agent instance.
type Config struct {
	// ID uniquely identifies this agent (auto-generated if empty)
	ID string

	// Role names the agent type for traces, e.g. "extractor", "grounder".
	Role string

	// Tools provides the agent's capabilities.
	Tools Tools

	// InitialMessages sets up the conversation (system prompt + user prompt).
	InitialMessages []providers.Message

	// MaxSteps limits reasoning/tool rounds (default: DefaultMaxSteps).
	MaxSteps int

	// ToolTimeout bounds each tool call (default: DefaultToolTimeout).
	ToolTimeout time.Duration

	// InvocationTimeout bounds the whole run. Should exceed the sum of the
	// tool-call timeouts plus reasoning overhead. Zero disables it.
	InvocationTimeout time.Duration

	// Model options forwarded on every chat request.
	Model       string
	Temperature float64

	// Salvage runs after step exhaustion (optional).
	Salvage Salvager

	// Trace context
	RunID      string
	DocumentID string
	TraceStore observability.TraceStore
}

// Agent manages state for a single agent conversation.
type Agent struct {
	mu sync.Mutex

	id                string
	role              string
	tools             Tools
	maxSteps          int
	toolTimeout       time.Duration
	invocationTimeout time.Duration
	model             string
	temperature       float64
	salvage           Salvager

	// Conversation state
	messages []providers.Message

	// Step tracking
	step      int
	startTime time.Time

	// Completion state
	complete bool
	result   *Result

	logger *observability.Logger
}

// New creates a new Agent with the given configuration.
func New(cfg Config) *Agent {
	id := cfg.ID
	if id == "" {
		id = uuid.New().String()
	}

	maxSteps := cfg.MaxSteps
	if maxSteps <= 0 {
		maxSteps = DefaultMaxSteps
	}
	toolTimeout := cfg.ToolTimeout
	if toolTimeout <= 0 {
		toolTimeout = DefaultToolTimeout
	}

	messages := make([]providers.Message, len(cfg.InitialMessages))
	copy(messages, cfg.InitialMessages)

	return &Agent{
		id:                id,
		role:              cfg.Role,
		tools:             cfg.Tools,
		maxSteps:          maxSteps,
		toolTimeout:       toolTimeout,
		invocationTimeout: cfg.InvocationTimeout,
		model:             cfg.Model,
		temperature:       cfg.Temperature,
		salvage:           cfg.Salvage,
		messages:          messages,
		startTime:         time.Now(),
		logger:            observability.NewLogger(id, cfg.Role, cfg.RunID, cfg.DocumentID, cfg.TraceStore),
	}
}

// ID returns the agent's unique identifier.
func (a *Agent) ID() string {
	return a.id
}

// Step returns the current step number.
func (a *Agent) Step() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.step
}

// Run drives the reasoning loop to completion with the given client.
// Reasoning and tool calls are strictly sequential within one invocation.
//
// The returned Result is non-nil whenever err is nil; a run that exhausted
// its budget or timed out reports Incomplete=true rather than an error.
// Transport-level model failures are returned as errors for the stage caller
// to retry with backoff.
func (a *Agent) Run(ctx context.Context, client providers.LLMClient) (*Result, error) {
	if a.invocationTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, a.invocationTimeout)
		defer cancel()
	}

	for {
		a.mu.Lock()
		if a.complete {
			result := a.result
			a.mu.Unlock()
			return result, nil
		}

		a.step++
		if a.step > a.maxSteps {
			a.mu.Unlock()
			return a.finishExhausted(ctx, fmt.Sprintf("agent did not complete within %d steps", a.maxSteps))
		}

		req := &providers.ChatRequest{
			Messages:    append([]providers.Message(nil), a.messages...),
			Model:       a.model,
			Temperature: a.temperature,
		}
		specs := a.tools.Specs()
		a.mu.Unlock()

		chatResult, err := client.ChatWithTools(ctx, req, specs)
		if err != nil {
			// Invocation deadline behaves like step exhaustion; anything else
			// surfaces to the caller for a stage-level retry.
			if ctx.Err() != nil {
				return a.finishExhausted(ctx, fmt.Sprintf("invocation timed out at step %d: %v", a.step, ctx.Err()))
			}
			a.saveTrace(ctx, false, err)
			return nil, err
		}

		a.handleChatResult(ctx, chatResult)
	}
}

// handleChatResult appends the assistant turn, executes any requested tools,
// and checks for completion.
func (a *Agent) handleChatResult(ctx context.Context, result *providers.ChatResult) {
	assistantMsg := providers.Message{
		Role:    "assistant",
		Content: result.Content,
	}
	if len(result.ToolCalls) > 0 {
		assistantMsg.ToolCalls = result.ToolCalls
	}

	a.mu.Lock()
	a.messages = append(a.messages, assistantMsg)
	a.mu.Unlock()

	if len(result.ToolCalls) > 0 {
		// Tool calls are executed strictly in order, without holding the
		// agent lock across their (possibly network-bound) execution.
		for _, tc := range result.ToolCalls {
			payload := a.executeTool(ctx, tc)
			a.mu.Lock()
			a.messages = append(a.messages, providers.Message{
				Role:       "tool",
				Content:    payload,
				ToolCallID: tc.ID,
			})
			a.mu.Unlock()
		}
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	if a.tools.IsComplete() {
		a.completeLocked(ctx, true, "")
		return
	}

	if len(result.ToolCalls) == 0 {
		// Not complete but no tool calls - prompt to continue.
		a.messages = append(a.messages, providers.Message{
			Role:    "user",
			Content: "Please continue using the available tools to complete your task.",
		})
	}
}

// executeTool runs one tool with the per-call timeout. A tool call in
// flight is never interrupted by the step budget; it runs to completion and
// its observation lands in the transcript.
func (a *Agent) executeTool(ctx context.Context, tc providers.ToolCall) string {
	args := make(map[string]any)
	if tc.Function.Arguments != "" {
		if err := json.Unmarshal([]byte(tc.Function.Arguments), &args); err != nil {
			payload := JSONError(fmt.Sprintf("failed to parse tool arguments: %v", err))
			a.logger.LogToolCall(a.step, tc.Function.Name, args, payload, err)
			return payload
		}
	}

	toolCtx, cancel := context.WithTimeout(ctx, a.toolTimeout)
	defer cancel()

	payload, err := a.tools.Execute(toolCtx, tc.Function.Name, args)
	if err != nil {
		// Tools encode their own failures as data; an error here means the
		// call itself could not run. Still data to the model.
		payload = JSONError(fmt.Sprintf("Tool execution failed: %v", err))
	}
	a.logger.LogToolCall(a.step, tc.Function.Name, args, payload, err)
	return payload
}

func (a *Agent) completeLocked(ctx context.Context, success bool, errMsg string) {
	a.complete = true
	a.result = &Result{
		Success:       success,
		Error:         errMsg,
		Steps:         a.step,
		MaxSteps:      a.maxSteps,
		ExecutionTime: time.Since(a.startTime),
		FinalMessages: a.messages,
		ToolResult:    a.tools.Result(),
	}
	a.saveTrace(ctx, success, nil)
}

// finishExhausted handles step exhaustion and invocation timeout: salvage a
// structured result from the partial transcript if possible, otherwise
// surface whatever partial data the tools accumulated. Never silently empty.
func (a *Agent) finishExhausted(ctx context.Context, reason string) (*Result, error) {
	a.mu.Lock()
	transcript := append([]providers.Message(nil), a.messages...)
	steps := a.step
	a.mu.Unlock()

	result := &Result{
		Success:       false,
		Incomplete:    true,
		Error:         reason,
		Steps:         steps,
		MaxSteps:      a.maxSteps,
		ExecutionTime: time.Since(a.startTime),
		FinalMessages: transcript,
		ToolResult:    a.tools.Result(),
	}

	if a.salvage != nil {
		// The invocation deadline may already be gone; give salvage its own
		// bounded window derived from the parent, not the expired ctx.
		salvageCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), a.toolTimeout)
		defer cancel()

		if salvaged, err := a.salvage(salvageCtx, transcript); err == nil && salvaged != nil {
			result.ToolResult = salvaged
			result.Salvaged = true
		}
	}

	a.mu.Lock()
	a.complete = true
	a.result = result
	a.mu.Unlock()

	a.saveTrace(ctx, false, fmt.Errorf("%s", reason))
	return result, nil
}

func (a *Agent) saveTrace(ctx context.Context, success bool, err error) {
	a.logger.SetMessages(a.messages)
	a.logger.Save(context.WithoutCancel(ctx), success, a.step, a.resultData(), err)
}

func (a *Agent) resultData() any {
	if a.result != nil {
		return a.result.ToolResult
	}
	return nil
}
