package store

import (
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/clinsift/clinsift/internal/criteria"
	"github.com/clinsift/clinsift/internal/pipeline"
)

func testReport() *pipeline.Report {
	return &pipeline.Report{
		RunID:       "run-1",
		DocumentID:  "doc-1",
		Title:       "Protocol",
		GeneratedAt: time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC),
		PageIndices: []int{0, 2},
		Criteria: []pipeline.GroundedCriterion{
			{
				Criterion: criteria.Criterion{
					ID:         "a",
					Text:       "Age >= 18 years",
					Type:       criteria.Inclusion,
					Confidence: 0.9,
				},
				Grounding: criteria.GroundingResult{
					CriterionID: "a",
					Candidates: []criteria.GroundingCandidate{
						{Code: "424144002", DisplayName: "Current chronological age", Ontology: "SNOMED", Confidence: 0.9},
					},
				},
				Completeness: criteria.Complete,
			},
		},
		Summary: pipeline.Summary{
			PagesSelected:      2,
			CriteriaExtracted:  1,
			CriteriaAfterDedup: 1,
		},
	}
}

func TestParseFormat(t *testing.T) {
	tests := []struct {
		in      string
		want    Format
		wantErr bool
	}{
		{"", FormatYAML, false},
		{"yaml", FormatYAML, false},
		{"yml", FormatYAML, false},
		{"json", FormatJSON, false},
		{"xml", "", true},
	}
	for _, tt := range tests {
		got, err := ParseFormat(tt.in)
		if tt.wantErr {
			if err == nil {
				t.Errorf("ParseFormat(%q): expected error", tt.in)
			}
			continue
		}
		if err != nil {
			t.Errorf("ParseFormat(%q): %v", tt.in, err)
			continue
		}
		if got != tt.want {
			t.Errorf("ParseFormat(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestFileStore_RoundTrip(t *testing.T) {
	for _, format := range []Format{FormatYAML, FormatJSON} {
		t.Run(string(format), func(t *testing.T) {
			s, err := NewFileStore(t.TempDir(), format)
			if err != nil {
				t.Fatalf("NewFileStore failed: %v", err)
			}

			rep := testReport()
			path, err := s.Save(rep)
			if err != nil {
				t.Fatalf("Save failed: %v", err)
			}
			if base := filepath.Base(path); !strings.HasPrefix(base, "doc-1-run-1.") {
				t.Errorf("unexpected report filename %q", base)
			}

			got, err := Load(path)
			if err != nil {
				t.Fatalf("Load failed: %v", err)
			}
			if got.RunID != rep.RunID || got.DocumentID != rep.DocumentID {
				t.Errorf("round trip lost identity: %+v", got)
			}
			if len(got.Criteria) != 1 {
				t.Fatalf("got %d criteria, want 1", len(got.Criteria))
			}
			c := got.Criteria[0]
			if c.Criterion.Text != "Age >= 18 years" || c.Completeness != criteria.Complete {
				t.Errorf("round trip lost criterion data: %+v", c)
			}
			if len(c.Grounding.Candidates) != 1 || c.Grounding.Candidates[0].Code != "424144002" {
				t.Errorf("round trip lost grounding: %+v", c.Grounding)
			}
			if got.Summary.CriteriaAfterDedup != 1 {
				t.Errorf("round trip lost summary: %+v", got.Summary)
			}
		})
	}
}

func TestFileStore_CreatesDirectory(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested", "out")
	if _, err := NewFileStore(dir, FormatYAML); err != nil {
		t.Fatalf("NewFileStore failed: %v", err)
	}
}

func TestLoad_MissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Fatal("expected error for missing file")
	}
}
