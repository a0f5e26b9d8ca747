package document

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"
)

// Load reads a document from disk, dispatching on extension.
// .yaml/.yml files use the fixture format; everything else is treated as
// plain text with form-feed page breaks.
func Load(path string) (*Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read document: %w", err)
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return ParseYAML(data)
	default:
		return ParseText(string(data), filepath.Base(path)), nil
	}
}

// ParseYAML decodes the YAML fixture format. Page and paragraph indices are
// renumbered sequentially so loaded documents always have dense 0-based
// indices regardless of what the fixture declares.
func ParseYAML(data []byte) (*Document, error) {
	var doc Document
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse document yaml: %w", err)
	}
	if doc.ID == "" {
		doc.ID = uuid.New().String()
	}
	for pi := range doc.Pages {
		doc.Pages[pi].Index = pi
		for qi := range doc.Pages[pi].Paragraphs {
			doc.Pages[pi].Paragraphs[qi].Index = qi
		}
	}
	return &doc, nil
}

// ParseText splits plain text into pages on form-feed characters and into
// paragraphs on blank lines. Text with no form feeds becomes a single page.
func ParseText(text, title string) *Document {
	doc := &Document{
		ID:    uuid.New().String(),
		Title: title,
	}

	for pi, pageText := range strings.Split(text, "\f") {
		page := Page{Index: pi}
		for _, block := range splitParagraphs(pageText) {
			page.Paragraphs = append(page.Paragraphs, Paragraph{
				Index: len(page.Paragraphs),
				Text:  block,
			})
		}
		doc.Pages = append(doc.Pages, page)
	}
	return doc
}

func splitParagraphs(text string) []string {
	var blocks []string
	for _, block := range strings.Split(text, "\n\n") {
		block = strings.TrimSpace(block)
		if block != "" {
			blocks = append(blocks, block)
		}
	}
	return blocks
}
