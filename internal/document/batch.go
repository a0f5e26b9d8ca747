package document

// Batching limits for filter-stage prompts. Larger documents are processed
// in successive batches and the selections unioned by the caller.
const (
	DefaultMaxCharsPerPage  = 4000
	DefaultMaxPagesPerBatch = 6
	DefaultMaxParasPerBatch = 10
)

// PageBatch is a contiguous slice of pages small enough for one prompt.
type PageBatch struct {
	Pages []PageView
}

// PageView is a page prepared for prompting: its index plus text truncated
// to the per-page character budget.
type PageView struct {
	Index int
	Text  string
}

// BatchPages partitions a document into prompt-sized page batches.
// maxChars truncates each page's text; maxPages caps pages per batch.
// Zero or negative limits fall back to the defaults.
func BatchPages(doc *Document, maxChars, maxPages int) []PageBatch {
	if maxChars <= 0 {
		maxChars = DefaultMaxCharsPerPage
	}
	if maxPages <= 0 {
		maxPages = DefaultMaxPagesPerBatch
	}

	var batches []PageBatch
	var current PageBatch
	for _, page := range doc.Pages {
		text := page.Text()
		if len(text) > maxChars {
			text = text[:maxChars]
		}
		current.Pages = append(current.Pages, PageView{Index: page.Index, Text: text})
		if len(current.Pages) == maxPages {
			batches = append(batches, current)
			current = PageBatch{}
		}
	}
	if len(current.Pages) > 0 {
		batches = append(batches, current)
	}
	return batches
}

// ParagraphView pairs a paragraph ref with its text for prompting.
type ParagraphView struct {
	Ref  ParagraphRef
	Text string
}

// BatchParagraphs groups paragraph refs into batches of at most maxPerBatch.
// Refs that do not resolve against the document are dropped.
func BatchParagraphs(doc *Document, refs []ParagraphRef, maxPerBatch int) [][]ParagraphView {
	if maxPerBatch <= 0 {
		maxPerBatch = DefaultMaxParasPerBatch
	}

	var batches [][]ParagraphView
	var current []ParagraphView
	for _, ref := range refs {
		para, err := doc.Paragraph(ref.PageIndex, ref.ParagraphIndex)
		if err != nil {
			continue
		}
		current = append(current, ParagraphView{Ref: ref, Text: para.Text})
		if len(current) == maxPerBatch {
			batches = append(batches, current)
			current = nil
		}
	}
	if len(current) > 0 {
		batches = append(batches, current)
	}
	return batches
}
