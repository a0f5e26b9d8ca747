// Package document holds the immutable input model for one extraction run:
// a protocol document split into pages, each page split into paragraphs.
// Documents are loaded from pre-extracted text; PDF conversion happens
// upstream and is not this package's concern.
package document

import (
	"fmt"
	"strings"
)

// Paragraph is a single block of protocol text with a stable index.
// Indices are scoped to the owning page.
type Paragraph struct {
	Index int    `json:"index" yaml:"index"`
	Text  string `json:"text" yaml:"text"`
}

// Page is an ordered sequence of paragraphs.
type Page struct {
	Index      int         `json:"index" yaml:"index"`
	Paragraphs []Paragraph `json:"paragraphs" yaml:"paragraphs"`
}

// Text returns the page content with paragraphs joined by blank lines.
func (p Page) Text() string {
	parts := make([]string, 0, len(p.Paragraphs))
	for _, para := range p.Paragraphs {
		parts = append(parts, para.Text)
	}
	return strings.Join(parts, "\n\n")
}

// Document is an ordered sequence of pages. Immutable once loaded.
type Document struct {
	ID    string `json:"id" yaml:"id"`
	Title string `json:"title,omitempty" yaml:"title,omitempty"`
	Pages []Page `json:"pages" yaml:"pages"`
}

// PageCount returns the number of pages.
func (d *Document) PageCount() int {
	return len(d.Pages)
}

// Page returns the page at the given index, or nil if out of range.
func (d *Document) Page(idx int) *Page {
	if idx < 0 || idx >= len(d.Pages) {
		return nil
	}
	return &d.Pages[idx]
}

// Paragraph resolves a (page, paragraph) index pair.
func (d *Document) Paragraph(pageIdx, paraIdx int) (*Paragraph, error) {
	page := d.Page(pageIdx)
	if page == nil {
		return nil, fmt.Errorf("page %d out of range [0,%d)", pageIdx, len(d.Pages))
	}
	if paraIdx < 0 || paraIdx >= len(page.Paragraphs) {
		return nil, fmt.Errorf("paragraph %d out of range on page %d", paraIdx, pageIdx)
	}
	return &page.Paragraphs[paraIdx], nil
}

// ParagraphRef identifies a paragraph globally within a document.
type ParagraphRef struct {
	PageIndex      int `json:"page_index" yaml:"page_index"`
	ParagraphIndex int `json:"paragraph_index" yaml:"paragraph_index"`
}

// ParagraphsOnPages returns refs for every paragraph on the given pages,
// in document order. Unknown page indices are skipped.
func (d *Document) ParagraphsOnPages(pageIndices []int) []ParagraphRef {
	var refs []ParagraphRef
	for _, pi := range pageIndices {
		page := d.Page(pi)
		if page == nil {
			continue
		}
		for _, para := range page.Paragraphs {
			refs = append(refs, ParagraphRef{PageIndex: pi, ParagraphIndex: para.Index})
		}
	}
	return refs
}
