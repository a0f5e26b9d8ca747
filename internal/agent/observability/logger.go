// Package observability captures agent execution traces: the conversation
// transcript, every tool call, and the final result. Trace persistence is
// log-and-continue; losing a trace never fails a pipeline run.
package observability

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/clinsift/clinsift/internal/providers"
)

// AgentRun captures a complete agent execution for debugging.
type AgentRun struct {
	// Context
	AgentID    string `json:"agent_id"`
	Role       string `json:"role"` // "extractor", "grounder", ...
	RunID      string `json:"run_id,omitempty"`
	DocumentID string `json:"document_id,omitempty"`

	// Execution
	StartedAt   time.Time `json:"started_at"`
	CompletedAt time.Time `json:"completed_at,omitempty"`
	Steps       int       `json:"steps"`
	Status      string    `json:"status"` // "completed", "failed"

	// Result
	Success bool   `json:"success"`
	Error   string `json:"error,omitempty"`

	// Conversation trace (JSON-encoded for flexibility)
	MessagesJSON string `json:"messages_json,omitempty"`

	// Tool calls summary
	ToolCallsJSON string `json:"tool_calls_json,omitempty"`

	// Final result (JSON-encoded)
	ResultJSON string `json:"result_json,omitempty"`
}

// ToolCallLog captures a single tool call for the trace.
type ToolCallLog struct {
	Step      int       `json:"step"`
	Timestamp time.Time `json:"timestamp"`
	ToolName  string    `json:"tool_name"`
	ArgsJSON  string    `json:"args_json"`
	ResultLen int       `json:"result_len"`
	Error     string    `json:"error,omitempty"`
}

// TraceStore persists agent runs. Implementations must tolerate being called
// from many agents concurrently.
type TraceStore interface {
	SaveAgentRun(ctx context.Context, run *AgentRun) error
}

// Logger records one agent execution. A nil store disables persistence but
// the logger still accumulates state so callers need no nil checks.
type Logger struct {
	agentID    string
	role       string
	runID      string
	documentID string

	store     TraceStore
	startedAt time.Time
	toolCalls []ToolCallLog
	messages  []providers.Message
}

// NewLogger creates a logger for one agent invocation.
func NewLogger(agentID, role, runID, documentID string, store TraceStore) *Logger {
	return &Logger{
		agentID:    agentID,
		role:       role,
		runID:      runID,
		documentID: documentID,
		store:      store,
		startedAt:  time.Now(),
		toolCalls:  make([]ToolCallLog, 0),
	}
}

// LogToolCall records a tool call.
func (l *Logger) LogToolCall(step int, toolName string, args map[string]any, result string, err error) {
	argsJSON, _ := json.Marshal(args)
	errStr := ""
	if err != nil {
		errStr = err.Error()
	}
	l.toolCalls = append(l.toolCalls, ToolCallLog{
		Step:      step,
		Timestamp: time.Now(),
		ToolName:  toolName,
		ArgsJSON:  string(argsJSON),
		ResultLen: len(result),
		Error:     errStr,
	})
}

// SetMessages captures the final conversation transcript.
func (l *Logger) SetMessages(messages []providers.Message) {
	l.messages = append([]providers.Message(nil), messages...)
}

// Save persists the trace. Failures are logged and swallowed.
func (l *Logger) Save(ctx context.Context, success bool, steps int, result any, runErr error) {
	if l.store == nil {
		return
	}

	run := &AgentRun{
		AgentID:     l.agentID,
		Role:        l.role,
		RunID:       l.runID,
		DocumentID:  l.documentID,
		StartedAt:   l.startedAt,
		CompletedAt: time.Now(),
		Steps:       steps,
		Success:     success,
		Status:      "completed",
	}
	if !success {
		run.Status = "failed"
	}
	if runErr != nil {
		run.Error = runErr.Error()
	}

	if b, err := json.Marshal(l.messages); err == nil {
		run.MessagesJSON = string(b)
	}
	if b, err := json.Marshal(l.toolCalls); err == nil {
		run.ToolCallsJSON = string(b)
	}
	if result != nil {
		if b, err := json.Marshal(result); err == nil {
			run.ResultJSON = string(b)
		}
	}

	if err := l.store.SaveAgentRun(ctx, run); err != nil {
		slog.Default().Warn("failed to persist agent trace",
			"agent_id", l.agentID,
			"role", l.role,
			"error", err)
	}
}
