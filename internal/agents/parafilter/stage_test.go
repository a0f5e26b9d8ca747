package parafilter

import (
	"context"
	"reflect"
	"testing"

	"github.com/clinsift/clinsift/internal/document"
	"github.com/clinsift/clinsift/internal/providers"
	"github.com/clinsift/clinsift/internal/structgen"
)

func testDoc() *document.Document {
	return &document.Document{
		ID: "doc-1",
		Pages: []document.Page{
			{Index: 0, Paragraphs: []document.Paragraph{
				{Index: 0, Text: "Inclusion Criteria:"},
				{Index: 1, Text: "Age 45 to 75 years."},
			}},
			{Index: 1, Paragraphs: []document.Paragraph{
				{Index: 0, Text: "Exclusion Criteria:"},
				{Index: 1, Text: "Prior chemotherapy."},
			}},
		},
	}
}

func TestRun_SelectsInDocumentOrder(t *testing.T) {
	client := providers.NewMockClient()
	// One batch (4 paragraphs, default limit 10); selection arrives unordered.
	client.EnqueueJSON(`{
		"paragraphs": [
			{"page_index": 1, "paragraph_index": 1},
			{"page_index": 0, "paragraph_index": 1}
		],
		"reasoning": "criteria statements"
	}`)

	f := New(structgen.New(client, nil), Options{}, nil)
	got, err := f.Run(context.Background(), testDoc(), []int{0, 1})
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	want := []document.ParagraphRef{
		{PageIndex: 0, ParagraphIndex: 1},
		{PageIndex: 1, ParagraphIndex: 1},
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("got %v, want %v", got, want)
	}
}

func TestRun_DropsRefsOutsideBatch(t *testing.T) {
	client := providers.NewMockClient()
	// Page 1 was not selected, and page 0 has no paragraph 9.
	client.EnqueueJSON(`{
		"paragraphs": [
			{"page_index": 0, "paragraph_index": 0},
			{"page_index": 0, "paragraph_index": 9},
			{"page_index": 1, "paragraph_index": 0}
		],
		"reasoning": "x"
	}`)

	f := New(structgen.New(client, nil), Options{}, nil)
	got, err := f.Run(context.Background(), testDoc(), []int{0})
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	want := []document.ParagraphRef{{PageIndex: 0, ParagraphIndex: 0}}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("got %v, want %v", got, want)
	}
}

func TestRun_BatchesLargePageSets(t *testing.T) {
	client := providers.NewMockClient()
	client.EnqueueJSON(`{"paragraphs": [{"page_index": 0, "paragraph_index": 1}], "reasoning": "x"}`)
	client.EnqueueJSON(`{"paragraphs": [{"page_index": 1, "paragraph_index": 1}], "reasoning": "x"}`)

	f := New(structgen.New(client, nil), Options{MaxParasPerBatch: 2}, nil)
	got, err := f.Run(context.Background(), testDoc(), []int{0, 1})
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("got %d refs, want 2", len(got))
	}
	if client.RequestCount() != 2 {
		t.Errorf("got %d filter calls, want 2", client.RequestCount())
	}
}

func TestRun_NoSelectedPages(t *testing.T) {
	client := providers.NewMockClient()

	f := New(structgen.New(client, nil), Options{}, nil)
	got, err := f.Run(context.Background(), testDoc(), nil)
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if len(got) != 0 {
		t.Errorf("got %v, want empty", got)
	}
	if client.RequestCount() != 0 {
		t.Errorf("made %d model calls for an empty page set", client.RequestCount())
	}
}

func TestRun_ModelFailureSurfaces(t *testing.T) {
	client := providers.NewMockClient()
	client.ShouldFail = true

	f := New(structgen.New(client, nil), Options{}, nil)
	if _, err := f.Run(context.Background(), testDoc(), []int{0}); err == nil {
		t.Fatal("expected error from failing client")
	}
}
