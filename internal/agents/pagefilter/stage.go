// Package pagefilter narrows a protocol document down to the pages worth
// extracting from. It is a pure filter built on single structured-generation
// calls, one per page batch, with the per-batch selections unioned.
package pagefilter

import (
	"context"
	"log/slog"
	"sort"
	"time"

	"github.com/clinsift/clinsift/internal/document"
	"github.com/clinsift/clinsift/internal/llmcall"
	"github.com/clinsift/clinsift/internal/structgen"
)

// Options configures the page filter.
type Options struct {
	Model            string
	MaxCharsPerPage  int
	MaxPagesPerBatch int
	Timeout          time.Duration
}

// Filter selects candidate pages from a document.
type Filter struct {
	gen    *structgen.Generator
	opts   Options
	logger *slog.Logger
}

// New creates a page filter.
func New(gen *structgen.Generator, opts Options, logger *slog.Logger) *Filter {
	if logger == nil {
		logger = slog.Default()
	}
	if opts.Timeout == 0 {
		opts.Timeout = 60 * time.Second
	}
	return &Filter{gen: gen, opts: opts, logger: logger}
}

// Run returns the sorted union of selected page indices across batches.
// Indices outside the document's range are dropped defensively: a filter
// must never fabricate pages, and an out-of-range index is a filter bug,
// not grounds to crash the pipeline.
func (f *Filter) Run(ctx context.Context, doc *document.Document) ([]int, error) {
	batches := document.BatchPages(doc, f.opts.MaxCharsPerPage, f.opts.MaxPagesPerBatch)

	selected := make(map[int]struct{})
	for _, batch := range batches {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		var sel Selection
		err := f.gen.Unmarshal(ctx, structgen.Request{
			SystemPrompt: SystemPrompt(),
			UserPrompt: UserPrompt(UserPromptData{
				Pages:      batch.Pages,
				TotalPages: doc.PageCount(),
			}),
			Schema:    Schema(),
			Model:     f.opts.Model,
			PromptKey: SystemPromptKey,
			Timeout:   f.opts.Timeout,
			Record:    recordOpts(doc),
		}, &sel)
		if err != nil {
			return nil, err
		}

		inBatch := make(map[int]struct{}, len(batch.Pages))
		for _, pv := range batch.Pages {
			inBatch[pv.Index] = struct{}{}
		}

		for _, idx := range sel.PageIndices {
			if _, ok := inBatch[idx]; !ok {
				f.logger.Warn("page filter returned index outside batch, dropping",
					"page_index", idx,
					"document_id", doc.ID)
				continue
			}
			selected[idx] = struct{}{}
		}
	}

	indices := make([]int, 0, len(selected))
	for idx := range selected {
		indices = append(indices, idx)
	}
	sort.Ints(indices)
	return indices, nil
}

func recordOpts(doc *document.Document) llmcall.RecordOptions {
	return llmcall.RecordOptions{DocumentID: doc.ID}
}
