package agent

import (
	"time"

	"github.com/clinsift/clinsift/internal/providers"
)

// Result holds the outcome of an agent run.
type Result struct {
	Success bool   // Whether the agent completed with a final answer
	Error   string // Failure reason when not successful

	// Incomplete marks a run cut off by its step budget or invocation
	// timeout. ToolResult then carries best-effort partial data.
	Incomplete bool

	// Salvaged marks an incomplete run whose ToolResult was recovered by a
	// structured extraction over the partial transcript.
	Salvaged bool

	// Step tracking
	Steps    int // Number of reasoning rounds taken
	MaxSteps int // Configured budget

	// Timing
	ExecutionTime time.Duration

	// Conversation
	FinalMessages []providers.Message

	// Role-specific result (from Tools.Result() or the salvager)
	ToolResult any
}
