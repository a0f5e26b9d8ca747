package tools

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/clinsift/clinsift/internal/agents/grounder"
	"github.com/clinsift/clinsift/internal/criteria"
	"github.com/clinsift/clinsift/internal/medtext"
	"github.com/clinsift/clinsift/internal/providers"
	"github.com/clinsift/clinsift/internal/structgen"
	"github.com/clinsift/clinsift/internal/terminology"
)

// fakeSearcher serves canned candidates per term.
type fakeSearcher struct {
	results map[string][]terminology.Candidate
	types   map[string]string
	err     error
}

func (f *fakeSearcher) Search(_ context.Context, term string, limit int) ([]terminology.Candidate, error) {
	if f.err != nil {
		return nil, f.err
	}
	out := f.results[term]
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (f *fakeSearcher) SemanticType(_ context.Context, conceptID string) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	return f.types[conceptID], nil
}

func testCriterion() criteria.Criterion {
	return criteria.Criterion{
		ID:         "crit-1",
		Text:       "Type 2 diabetes mellitus",
		Type:       criteria.Inclusion,
		Confidence: 0.9,
	}
}

func newTestTools(searcher terminology.Searcher) *GrounderTools {
	svc := medtext.New(structgen.New(providers.NewMockClient(), nil), "")
	return New(svc, searcher, testCriterion())
}

func TestSearchConcepts_RecordsSeenCandidates(t *testing.T) {
	searcher := &fakeSearcher{results: map[string][]terminology.Candidate{
		"diabetes": {
			{Code: "73211009", DisplayName: "Diabetes mellitus", Ontology: "SNOMED", Confidence: 0.95},
			{Code: "E11", DisplayName: "Type 2 diabetes mellitus", Ontology: "ICD10", Confidence: 0.90},
		},
	}}
	tl := newTestTools(searcher)

	out, err := tl.Execute(context.Background(), "search_concepts", map[string]any{"term": "diabetes"})
	if err != nil {
		t.Fatalf("search_concepts failed: %v", err)
	}
	if !strings.Contains(out, `"count":2`) {
		t.Errorf("unexpected payload: %s", out)
	}

	// The partial result carries what search returned.
	res := tl.Result().(*grounder.Result)
	if len(res.Grounding.Candidates) != 2 {
		t.Fatalf("got %d seen candidates, want 2", len(res.Grounding.Candidates))
	}
	if res.Grounding.CriterionID != "crit-1" {
		t.Errorf("partial result has criterion ID %q", res.Grounding.CriterionID)
	}
}

func TestSearchConcepts_DeduplicatesAcrossCalls(t *testing.T) {
	searcher := &fakeSearcher{results: map[string][]terminology.Candidate{
		"diabetes":        {{Code: "73211009", DisplayName: "Diabetes mellitus", Ontology: "SNOMED", Confidence: 0.95}},
		"type 2 diabetes": {{Code: "73211009", DisplayName: "Diabetes mellitus", Ontology: "SNOMED", Confidence: 0.95}},
	}}
	tl := newTestTools(searcher)

	ctx := context.Background()
	for _, term := range []string{"diabetes", "type 2 diabetes"} {
		if _, err := tl.Execute(ctx, "search_concepts", map[string]any{"term": term}); err != nil {
			t.Fatalf("search_concepts(%q) failed: %v", term, err)
		}
	}

	res := tl.Result().(*grounder.Result)
	if len(res.Grounding.Candidates) != 1 {
		t.Errorf("duplicate candidate recorded twice: %+v", res.Grounding.Candidates)
	}
}

func TestSearchConcepts_EmptyResultIsValid(t *testing.T) {
	tl := newTestTools(&fakeSearcher{})

	out, err := tl.Execute(context.Background(), "search_concepts", map[string]any{"term": "florbomab"})
	if err != nil {
		t.Fatalf("empty search must not fail: %v", err)
	}
	if !strings.Contains(out, `"count":0`) {
		t.Errorf("unexpected payload: %s", out)
	}
}

func TestSearchConcepts_ErrorIsPayload(t *testing.T) {
	tl := newTestTools(&fakeSearcher{err: fmt.Errorf("service down")})

	// Tool failures are data for the model, not Go errors.
	out, err := tl.Execute(context.Background(), "search_concepts", map[string]any{"term": "x"})
	if err != nil {
		t.Fatalf("expected error payload, got error: %v", err)
	}
	if !strings.Contains(out, "service down") {
		t.Errorf("unexpected payload: %s", out)
	}
}

func TestGetSemanticType(t *testing.T) {
	tl := newTestTools(&fakeSearcher{types: map[string]string{"73211009": "Disease or Syndrome"}})

	out, err := tl.Execute(context.Background(), "get_semantic_type", map[string]any{"concept_id": "73211009"})
	if err != nil {
		t.Fatalf("get_semantic_type failed: %v", err)
	}
	if !strings.Contains(out, "Disease or Syndrome") {
		t.Errorf("unexpected payload: %s", out)
	}
}

func TestWriteGrounding_RanksByConfidenceStable(t *testing.T) {
	tl := newTestTools(&fakeSearcher{})

	_, err := tl.Execute(context.Background(), "write_grounding", map[string]any{
		"candidates": []any{
			map[string]any{"code": "A", "display_name": "a", "ontology": "SNOMED", "confidence": 0.8},
			map[string]any{"code": "B", "display_name": "b", "ontology": "SNOMED", "confidence": 0.95},
			map[string]any{"code": "C", "display_name": "c", "ontology": "ICD10", "confidence": 0.8},
		},
		"logical_operator": "",
	})
	if err != nil {
		t.Fatalf("write_grounding failed: %v", err)
	}

	if !tl.IsComplete() {
		t.Fatal("toolset not complete after write_grounding")
	}
	res := tl.Result().(*grounder.Result)
	got := res.Grounding.Candidates
	if len(got) != 3 {
		t.Fatalf("got %d candidates, want 3", len(got))
	}
	// B first, then the equal-confidence pair in submitted order.
	if got[0].Code != "B" || got[1].Code != "A" || got[2].Code != "C" {
		t.Errorf("unexpected ranking: %+v", got)
	}
	if res.Grounding.CriterionID != "crit-1" {
		t.Errorf("criterion ID %q", res.Grounding.CriterionID)
	}
}

func TestWriteGrounding_FieldMapping(t *testing.T) {
	tl := New(
		medtext.New(structgen.New(providers.NewMockClient(), nil), ""),
		&fakeSearcher{},
		criteria.Criterion{ID: "crit-2", Text: "Age > 75 years", Type: criteria.Exclusion, Confidence: 0.9},
	)

	_, err := tl.Execute(context.Background(), "write_grounding", map[string]any{
		"candidates":       []any{},
		"logical_operator": "",
		"field_mapping": map[string]any{
			"field":      "age",
			"relation":   ">",
			"value":      "75",
			"confidence": 0.95,
		},
	})
	if err != nil {
		t.Fatalf("write_grounding failed: %v", err)
	}

	res := tl.Result().(*grounder.Result)
	fm := res.Grounding.FieldMapping
	if fm == nil {
		t.Fatal("field mapping not captured")
	}
	if fm.Field != "age" || fm.Relation != ">" || fm.Value != "75" {
		t.Errorf("unexpected field mapping: %+v", fm)
	}
}

func TestWriteGrounding_RejectsBadSubmissions(t *testing.T) {
	tests := []struct {
		name string
		args map[string]any
	}{
		{
			name: "candidate missing code",
			args: map[string]any{
				"candidates": []any{
					map[string]any{"code": "", "display_name": "x", "ontology": "SNOMED", "confidence": 0.5},
				},
				"logical_operator": "",
			},
		},
		{
			name: "confidence out of range",
			args: map[string]any{
				"candidates": []any{
					map[string]any{"code": "A", "display_name": "x", "ontology": "SNOMED", "confidence": 1.5},
				},
				"logical_operator": "",
			},
		},
		{
			name: "field mapping without relation",
			args: map[string]any{
				"candidates":       []any{},
				"logical_operator": "",
				"field_mapping":    map[string]any{"field": "age", "relation": "", "value": "75", "confidence": 0.9},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tl := newTestTools(&fakeSearcher{})
			out, err := tl.Execute(context.Background(), "write_grounding", tt.args)
			if err != nil {
				t.Fatalf("expected error payload, got error: %v", err)
			}
			if !strings.Contains(out, "error") && !strings.Contains(out, "invalid") {
				t.Errorf("unexpected payload: %s", out)
			}
			if tl.IsComplete() {
				t.Error("rejected submission marked the run complete")
			}
		})
	}
}
