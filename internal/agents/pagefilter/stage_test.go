package pagefilter

import (
	"context"
	"reflect"
	"testing"

	"github.com/clinsift/clinsift/internal/document"
	"github.com/clinsift/clinsift/internal/providers"
	"github.com/clinsift/clinsift/internal/structgen"
)

func testDoc(pages int) *document.Document {
	doc := &document.Document{ID: "doc-1", Title: "Protocol"}
	for i := 0; i < pages; i++ {
		doc.Pages = append(doc.Pages, document.Page{
			Index: i,
			Paragraphs: []document.Paragraph{
				{Index: 0, Text: "Some protocol text."},
			},
		})
	}
	return doc
}

func TestRun_UnionsBatchesSorted(t *testing.T) {
	client := providers.NewMockClient()
	// Two batches of two pages each; selections arrive out of order and
	// overlap across batches is impossible (each batch sees its own pages).
	client.EnqueueJSON(`{"page_indices": [1, 0], "reasoning": "both relevant"}`)
	client.EnqueueJSON(`{"page_indices": [3], "reasoning": "criteria section"}`)

	f := New(structgen.New(client, nil), Options{MaxPagesPerBatch: 2}, nil)
	got, err := f.Run(context.Background(), testDoc(4))
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if !reflect.DeepEqual(got, []int{0, 1, 3}) {
		t.Errorf("got %v, want [0 1 3]", got)
	}
	if client.RequestCount() != 2 {
		t.Errorf("got %d filter calls, want 2", client.RequestCount())
	}
}

func TestRun_DropsIndicesOutsideBatch(t *testing.T) {
	client := providers.NewMockClient()
	// Single batch over pages 0-1; 7 is outside the batch and must be dropped.
	client.EnqueueJSON(`{"page_indices": [0, 7], "reasoning": "x"}`)

	f := New(structgen.New(client, nil), Options{}, nil)
	got, err := f.Run(context.Background(), testDoc(2))
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if !reflect.DeepEqual(got, []int{0}) {
		t.Errorf("got %v, want [0]", got)
	}
}

func TestRun_EmptySelection(t *testing.T) {
	client := providers.NewMockClient()
	client.EnqueueJSON(`{"page_indices": [], "reasoning": "no eligibility content"}`)

	f := New(structgen.New(client, nil), Options{}, nil)
	got, err := f.Run(context.Background(), testDoc(2))
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if len(got) != 0 {
		t.Errorf("got %v, want empty", got)
	}
}

func TestRun_ModelFailureSurfaces(t *testing.T) {
	client := providers.NewMockClient()
	client.ShouldFail = true

	f := New(structgen.New(client, nil), Options{}, nil)
	if _, err := f.Run(context.Background(), testDoc(2)); err == nil {
		t.Fatal("expected error from failing client")
	}
}

func TestRun_ContextCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	f := New(structgen.New(providers.NewMockClient(), nil), Options{}, nil)
	if _, err := f.Run(ctx, testDoc(2)); err == nil {
		t.Fatal("expected error for cancelled context")
	}
}
