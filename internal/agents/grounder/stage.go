// Package grounder runs the grounding agent: one reasoning-loop run per
// deduplicated criterion, attaching ranked terminology candidates, logical
// structure, and field mappings.
package grounder

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/clinsift/clinsift/internal/agent"
	"github.com/clinsift/clinsift/internal/agent/observability"
	"github.com/clinsift/clinsift/internal/criteria"
	"github.com/clinsift/clinsift/internal/providers"
	"github.com/clinsift/clinsift/internal/structgen"
)

// Options configures the grounding stage.
type Options struct {
	Model             string
	MaxSteps          int
	ToolTimeout       time.Duration
	InvocationTimeout time.Duration
}

// ToolFactory builds a fresh toolset for one criterion run.
type ToolFactory func(c criteria.Criterion) agent.Tools

// Stage drives one grounding agent per criterion.
type Stage struct {
	client     providers.LLMClient
	gen        *structgen.Generator
	newTools   ToolFactory
	opts       Options
	logger     *slog.Logger
	traceStore observability.TraceStore
}

// NewStage creates the grounding stage.
func NewStage(client providers.LLMClient, gen *structgen.Generator, newTools ToolFactory, opts Options, logger *slog.Logger, traceStore observability.TraceStore) *Stage {
	if logger == nil {
		logger = slog.Default()
	}
	if opts.MaxSteps <= 0 {
		opts.MaxSteps = MaxSteps
	}
	return &Stage{
		client:     client,
		gen:        gen,
		newTools:   newTools,
		opts:       opts,
		logger:     logger,
		traceStore: traceStore,
	}
}

// Grounding is the stage's output for one criterion.
type Grounding struct {
	Result       criteria.GroundingResult
	Completeness criteria.Completeness
}

// GroundCriterion runs the grounding agent on one criterion. A cut-off or
// salvaged run returns a degraded grounding, not an error; transport-level
// model failures are returned for the caller to retry.
func (s *Stage) GroundCriterion(ctx context.Context, documentID string, c criteria.Criterion, runID string) (*Grounding, error) {
	ag := agent.New(agent.Config{
		Role:  "grounder",
		Tools: s.newTools(c),
		InitialMessages: []providers.Message{
			{Role: "system", Content: SystemPrompt()},
			{Role: "user", Content: UserPrompt(c)},
		},
		MaxSteps:          s.opts.MaxSteps,
		ToolTimeout:       s.opts.ToolTimeout,
		InvocationTimeout: s.opts.InvocationTimeout,
		Model:             s.opts.Model,
		Salvage:           s.salvager(c),
		RunID:             runID,
		DocumentID:        documentID,
		TraceStore:        s.traceStore,
	})

	res, err := ag.Run(ctx, s.client)
	if err != nil {
		return nil, err
	}

	out := &Grounding{Completeness: criteria.Complete}
	if res.Incomplete {
		out.Completeness = criteria.Degraded
		s.logger.Warn("grounding run cut off",
			"document_id", documentID,
			"criterion_id", c.ID,
			"steps", res.Steps,
			"salvaged", res.Salvaged)
	}

	result, ok := res.ToolResult.(*Result)
	if !ok || result == nil {
		if res.Incomplete {
			out.Completeness = criteria.Failed
			out.Result = criteria.GroundingResult{CriterionID: c.ID}
			return out, nil
		}
		return nil, fmt.Errorf("grounding agent returned unexpected result type %T", res.ToolResult)
	}

	out.Result = result.Grounding
	out.Result.CriterionID = c.ID
	if out.Completeness == criteria.Complete && len(out.Result.Candidates) == 0 {
		out.Completeness = criteria.Ungrounded
	}
	return out, nil
}

// salvager distills a cut-off transcript into the write_grounding shape via
// a single structured-generation call.
func (s *Stage) salvager(c criteria.Criterion) agent.Salvager {
	return func(ctx context.Context, transcript []providers.Message) (any, error) {
		var draft GroundingDraft
		err := s.gen.Unmarshal(ctx, structgen.Request{
			SystemPrompt: "Distill the terminology grounding already established in the " +
				"following agent transcript. Include only candidates the transcript " +
				"supports; return an empty candidate list if none were found.",
			UserPrompt: transcriptText(transcript),
			Schema:     GroundingSchema(),
			Model:      s.opts.Model,
			PromptKey:  "agents.grounder.salvage",
			Timeout:    s.opts.ToolTimeout,
		}, &draft)
		if err != nil {
			return nil, err
		}

		return &Result{Grounding: criteria.GroundingResult{
			CriterionID:     c.ID,
			Candidates:      draft.Candidates,
			LogicalOperator: draft.LogicalOperator,
			FieldMapping:    draft.FieldMapping,
		}}, nil
	}
}

func transcriptText(messages []providers.Message) string {
	var b strings.Builder
	for _, m := range messages {
		if m.Role == "system" {
			continue
		}
		fmt.Fprintf(&b, "[%s]\n%s\n", m.Role, m.Content)
		for _, tc := range m.ToolCalls {
			fmt.Fprintf(&b, "(called %s with %s)\n", tc.Function.Name, tc.Function.Arguments)
		}
		b.WriteString("\n")
	}
	return b.String()
}
