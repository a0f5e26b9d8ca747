// Package extractor runs the extraction agent: one reasoning-loop run per
// candidate paragraph, producing atomic eligibility criteria with structured
// predicates and provenance.
package extractor

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/clinsift/clinsift/internal/agent"
	"github.com/clinsift/clinsift/internal/agent/observability"
	"github.com/clinsift/clinsift/internal/criteria"
	"github.com/clinsift/clinsift/internal/document"
	"github.com/clinsift/clinsift/internal/providers"
	"github.com/clinsift/clinsift/internal/structgen"
)

// Options configures the extraction stage.
type Options struct {
	Model             string
	MaxSteps          int
	ToolTimeout       time.Duration
	InvocationTimeout time.Duration
}

// ToolFactory builds a fresh toolset for one paragraph run. Indirected so
// the stage does not import its own tools subpackage.
type ToolFactory func(pageIndex, paragraphIndex int, paragraphText string) agent.Tools

// Stage drives one extraction agent per paragraph.
type Stage struct {
	client     providers.LLMClient
	gen        *structgen.Generator
	newTools   ToolFactory
	opts       Options
	logger     *slog.Logger
	traceStore observability.TraceStore
}

// NewStage creates the extraction stage.
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

// Extraction is the stage's output for one paragraph.
type Extraction struct {
	Ref          document.ParagraphRef
	Criteria     []criteria.Criterion
	Completeness criteria.Completeness
}

// ExtractParagraph runs the extraction agent on one paragraph. A cut-off or
// salvaged run returns a degraded extraction, not an error; transport-level
// model failures are returned for the caller to retry.
func (s *Stage) ExtractParagraph(ctx context.Context, doc *document.Document, ref document.ParagraphRef, runID string) (*Extraction, error) {
	para, err := doc.Paragraph(ref.PageIndex, ref.ParagraphIndex)
	if err != nil {
		return nil, fmt.Errorf("document %s: %w", doc.ID, err)
	}

	ag := agent.New(agent.Config{
		Role:  "extractor",
		Tools: s.newTools(ref.PageIndex, ref.ParagraphIndex, para.Text),
		InitialMessages: []providers.Message{
			{Role: "system", Content: SystemPrompt()},
			{Role: "user", Content: UserPrompt(UserPromptData{
				PageIndex:      ref.PageIndex,
				ParagraphIndex: ref.ParagraphIndex,
				Text:           para.Text,
			})},
		},
		MaxSteps:          s.opts.MaxSteps,
		ToolTimeout:       s.opts.ToolTimeout,
		InvocationTimeout: s.opts.InvocationTimeout,
		Model:             s.opts.Model,
		Salvage:           s.salvager(doc.ID),
		RunID:             runID,
		DocumentID:        doc.ID,
		TraceStore:        s.traceStore,
	})

	res, err := ag.Run(ctx, s.client)
	if err != nil {
		return nil, err
	}

	out := &Extraction{Ref: ref, Completeness: criteria.Complete}
	if res.Incomplete {
		out.Completeness = criteria.Degraded
		s.logger.Warn("extraction run cut off",
			"document_id", doc.ID,
			"page_index", ref.PageIndex,
			"paragraph_index", ref.ParagraphIndex,
			"steps", res.Steps,
			"salvaged", res.Salvaged)
	}

	result, ok := res.ToolResult.(*Result)
	if !ok || result == nil {
		if res.Incomplete {
			out.Completeness = criteria.Failed
			return out, nil
		}
		return nil, fmt.Errorf("extraction agent returned unexpected result type %T", res.ToolResult)
	}

	for _, c := range result.Criteria {
		c.SourcePageIndex = ref.PageIndex
		c.SourceParagraphIndex = ref.ParagraphIndex
		if c.ID == "" {
			c.ID = criteria.NewID()
		}
		if err := c.Validate(); err != nil {
			// Degraded paths can surface partially-filled criteria; drop
			// those rather than fail the paragraph.
			s.logger.Warn("dropping invalid criterion", "error", err, "document_id", doc.ID)
			continue
		}
		out.Criteria = append(out.Criteria, c)
	}
	return out, nil
}

// salvager distills a cut-off transcript into the same shape write_criteria
// accepts, via a single structured-generation call.
func (s *Stage) salvager(documentID string) agent.Salvager {
	return func(ctx context.Context, transcript []providers.Message) (any, error) {
		var out struct {
			Criteria []CriterionDraft `json:"criteria"`
		}
		err := s.gen.Unmarshal(ctx, structgen.Request{
			SystemPrompt: "Distill the atomic eligibility criteria already identified in the " +
				"following agent transcript. Include only criteria the transcript supports; " +
				"return an empty list if none were identified.",
			UserPrompt: transcriptText(transcript),
			Schema:     CriteriaSchema(),
			Model:      s.opts.Model,
			PromptKey:  "agents.extractor.salvage",
			Timeout:    s.opts.ToolTimeout,
		}, &out)
		if err != nil {
			return nil, err
		}

		result := &Result{}
		for _, d := range out.Criteria {
			result.Criteria = append(result.Criteria, d.Criterion())
		}
		return result, nil
	}
}

// transcriptText flattens a conversation for the salvage prompt.
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
