package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/avast/retry-go/v4"
	"golang.org/x/sync/errgroup"

	"github.com/clinsift/clinsift/internal/agents/extractor"
	"github.com/clinsift/clinsift/internal/agents/grounder"
	"github.com/clinsift/clinsift/internal/agents/pagefilter"
	"github.com/clinsift/clinsift/internal/agents/parafilter"
	"github.com/clinsift/clinsift/internal/criteria"
	"github.com/clinsift/clinsift/internal/structgen"
	"github.com/clinsift/clinsift/internal/svcctx"
)

// Stage names.
const (
	StageFilterPages      = "filter-pages"
	StageFilterParagraphs = "filter-paragraphs"
	StageExtract          = "extract"
	StageDedup            = "dedup"
	StageGround           = "ground"
)

// Default fan-out and retry settings for the agent stages.
const (
	DefaultConcurrency  = 4
	DefaultUnitAttempts = 3
)

// retryUnit retries one unit of work on transient model unavailability.
// Schema failures and everything else are not retried: they will not get
// better on a second attempt.
func retryUnit[T any](ctx context.Context, attempts uint, fn func() (T, error)) (T, error) {
	return retry.DoWithData(
		fn,
		retry.Context(ctx),
		retry.Attempts(attempts),
		retry.RetryIf(func(err error) bool {
			return errors.Is(err, structgen.ErrModelUnavailable)
		}),
		retry.Delay(time.Second),
		retry.DelayType(retry.BackOffDelay),
		retry.LastErrorOnly(true),
	)
}

// FilterPagesStage narrows the document to pages likely to carry
// eligibility criteria.
type FilterPagesStage struct {
	Filter *pagefilter.Filter
}

func (s *FilterPagesStage) Name() string            { return StageFilterPages }
func (s *FilterPagesStage) Dependencies() []string  { return nil }
func (s *FilterPagesStage) Description() string     { return "Select pages likely to contain eligibility criteria" }

func (s *FilterPagesStage) Run(ctx context.Context, st *State) error {
	indices, err := s.Filter.Run(ctx, st.Doc)
	if err != nil {
		return fmt.Errorf("page filter: %w", err)
	}
	st.PageIndices = indices
	return nil
}

// FilterParagraphsStage narrows the selected pages to candidate paragraphs.
type FilterParagraphsStage struct {
	Filter *parafilter.Filter
}

func (s *FilterParagraphsStage) Name() string           { return StageFilterParagraphs }
func (s *FilterParagraphsStage) Dependencies() []string { return []string{StageFilterPages} }
func (s *FilterParagraphsStage) Description() string    { return "Select eligibility paragraphs from the filtered pages" }

func (s *FilterParagraphsStage) Run(ctx context.Context, st *State) error {
	refs, err := s.Filter.Run(ctx, st.Doc, st.PageIndices)
	if err != nil {
		return fmt.Errorf("paragraph filter: %w", err)
	}
	st.ParagraphRefs = refs
	return nil
}

// ExtractStage fans the extraction agent out across candidate paragraphs.
// Paragraphs are independent units: one failing or being cut off degrades
// that paragraph only, never the run.
type ExtractStage struct {
	Stage        *extractor.Stage
	Concurrency  int
	UnitAttempts uint
	Logger       *slog.Logger
}

func (s *ExtractStage) Name() string           { return StageExtract }
func (s *ExtractStage) Dependencies() []string { return []string{StageFilterParagraphs} }
func (s *ExtractStage) Description() string    { return "Extract atomic criteria from each candidate paragraph" }

func (s *ExtractStage) Run(ctx context.Context, st *State) error {
	concurrency := s.Concurrency
	if concurrency <= 0 {
		concurrency = DefaultConcurrency
	}
	attempts := s.UnitAttempts
	if attempts == 0 {
		attempts = DefaultUnitAttempts
	}
	logger := s.Logger
	if logger == nil {
		logger = svcctx.LoggerFrom(ctx)
	}

	results := make([]extractor.Extraction, len(st.ParagraphRefs))

	g := new(errgroup.Group)
	g.SetLimit(concurrency)
	for i, ref := range st.ParagraphRefs {
		// Cancellation lands at unit boundaries: units not yet started are
		// recorded as skipped rather than launched against a dead context.
		if ctx.Err() != nil {
			results[i] = extractor.Extraction{Ref: ref, Completeness: criteria.Skipped}
			continue
		}

		g.Go(func() error {
			if ctx.Err() != nil {
				results[i] = extractor.Extraction{Ref: ref, Completeness: criteria.Skipped}
				return nil
			}

			ext, err := retryUnit(ctx, attempts, func() (*extractor.Extraction, error) {
				return s.Stage.ExtractParagraph(ctx, st.Doc, ref, st.RunID)
			})
			if err != nil {
				if ctx.Err() != nil {
					results[i] = extractor.Extraction{Ref: ref, Completeness: criteria.Skipped}
					return nil
				}
				logger.Warn("paragraph extraction failed",
					"document_id", st.Doc.ID,
					"page_index", ref.PageIndex,
					"paragraph_index", ref.ParagraphIndex,
					"error", err)
				results[i] = extractor.Extraction{Ref: ref, Completeness: criteria.Failed}
				return nil
			}
			results[i] = *ext
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	st.Extractions = results
	return nil
}

// DedupStage merges the per-paragraph criteria and collapses duplicates.
type DedupStage struct {
	SimilarityThreshold float64
}

func (s *DedupStage) Name() string           { return StageDedup }
func (s *DedupStage) Dependencies() []string { return []string{StageExtract} }
func (s *DedupStage) Description() string    { return "Collapse duplicate criteria across paragraphs" }

func (s *DedupStage) Run(_ context.Context, st *State) error {
	threshold := s.SimilarityThreshold
	if threshold == 0 {
		threshold = criteria.DefaultSimilarityThreshold
	}

	var all []criteria.Criterion
	for _, ext := range st.Extractions {
		all = append(all, ext.Criteria...)
	}
	st.RawCriteriaLen = len(all)
	st.Criteria = criteria.Dedup(all, threshold)
	return nil
}

// GroundStage fans the grounding agent out across deduplicated criteria.
type GroundStage struct {
	Stage        *grounder.Stage
	Concurrency  int
	UnitAttempts uint
	Logger       *slog.Logger
}

func (s *GroundStage) Name() string           { return StageGround }
func (s *GroundStage) Dependencies() []string { return []string{StageDedup} }
func (s *GroundStage) Description() string    { return "Ground each criterion in standardized terminology" }

func (s *GroundStage) Run(ctx context.Context, st *State) error {
	concurrency := s.Concurrency
	if concurrency <= 0 {
		concurrency = DefaultConcurrency
	}
	attempts := s.UnitAttempts
	if attempts == 0 {
		attempts = DefaultUnitAttempts
	}
	logger := s.Logger
	if logger == nil {
		logger = svcctx.LoggerFrom(ctx)
	}

	results := make([]grounder.Grounding, len(st.Criteria))

	g := new(errgroup.Group)
	g.SetLimit(concurrency)
	for i, c := range st.Criteria {
		if ctx.Err() != nil {
			results[i] = skippedGrounding(c)
			continue
		}

		g.Go(func() error {
			if ctx.Err() != nil {
				results[i] = skippedGrounding(c)
				return nil
			}

			gr, err := retryUnit(ctx, attempts, func() (*grounder.Grounding, error) {
				return s.Stage.GroundCriterion(ctx, st.Doc.ID, c, st.RunID)
			})
			if err != nil {
				if ctx.Err() != nil {
					results[i] = skippedGrounding(c)
					return nil
				}
				logger.Warn("criterion grounding failed",
					"document_id", st.Doc.ID,
					"criterion_id", c.ID,
					"error", err)
				results[i] = grounder.Grounding{
					Result:       criteria.GroundingResult{CriterionID: c.ID},
					Completeness: criteria.Failed,
				}
				return nil
			}
			results[i] = *gr
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	st.Groundings = make(map[string]grounder.Grounding, len(results))
	for _, gr := range results {
		st.Groundings[gr.Result.CriterionID] = gr
	}
	return nil
}

func skippedGrounding(c criteria.Criterion) grounder.Grounding {
	return grounder.Grounding{
		Result:       criteria.GroundingResult{CriterionID: c.ID},
		Completeness: criteria.Skipped,
	}
}
