// Package parafilter selects eligibility paragraphs from pages already
// chosen by the page filter, with the same batching and defensive
// bounds-checking discipline.
package parafilter

import (
	"context"
	"log/slog"
	"sort"
	"time"

	"github.com/clinsift/clinsift/internal/document"
	"github.com/clinsift/clinsift/internal/llmcall"
	"github.com/clinsift/clinsift/internal/structgen"
)

// Options configures the paragraph filter.
type Options struct {
	Model            string
	MaxParasPerBatch int
	Timeout          time.Duration
}

// Filter selects candidate paragraphs from the selected pages.
type Filter struct {
	gen    *structgen.Generator
	opts   Options
	logger *slog.Logger
}

// New creates a paragraph filter.
func New(gen *structgen.Generator, opts Options, logger *slog.Logger) *Filter {
	if logger == nil {
		logger = slog.Default()
	}
	if opts.Timeout == 0 {
		opts.Timeout = 60 * time.Second
	}
	return &Filter{gen: gen, opts: opts, logger: logger}
}

// Run filters the paragraphs of the given pages, returning refs in document
// order. Refs outside the batch (or pointing at unselected pages) are
// dropped defensively.
func (f *Filter) Run(ctx context.Context, doc *document.Document, pageIndices []int) ([]document.ParagraphRef, error) {
	refs := doc.ParagraphsOnPages(pageIndices)
	batches := document.BatchParagraphs(doc, refs, f.opts.MaxParasPerBatch)

	selected := make(map[document.ParagraphRef]struct{})
	for _, batch := range batches {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		var sel Selection
		err := f.gen.Unmarshal(ctx, structgen.Request{
			SystemPrompt: SystemPrompt(),
			UserPrompt:   UserPrompt(UserPromptData{Paragraphs: batch}),
			Schema:       Schema(),
			Model:        f.opts.Model,
			PromptKey:    SystemPromptKey,
			Timeout:      f.opts.Timeout,
			Record:       llmcall.RecordOptions{DocumentID: doc.ID},
		}, &sel)
		if err != nil {
			return nil, err
		}

		inBatch := make(map[document.ParagraphRef]struct{}, len(batch))
		for _, pv := range batch {
			inBatch[pv.Ref] = struct{}{}
		}

		for _, sp := range sel.Paragraphs {
			ref := document.ParagraphRef{PageIndex: sp.PageIndex, ParagraphIndex: sp.ParagraphIndex}
			if _, ok := inBatch[ref]; !ok {
				f.logger.Warn("paragraph filter returned ref outside batch, dropping",
					"page_index", sp.PageIndex,
					"paragraph_index", sp.ParagraphIndex,
					"document_id", doc.ID)
				continue
			}
			selected[ref] = struct{}{}
		}
	}

	out := make([]document.ParagraphRef, 0, len(selected))
	for ref := range selected {
		out = append(out, ref)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].PageIndex != out[j].PageIndex {
			return out[i].PageIndex < out[j].PageIndex
		}
		return out[i].ParagraphIndex < out[j].ParagraphIndex
	})
	return out, nil
}
