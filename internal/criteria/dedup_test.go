package criteria

import (
	"reflect"
	"testing"
)

func TestNormalize(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"Age >= 18 years.", "age >= 18 years"},
		{"  Multiple   spaces\tand tabs ", "multiple spaces and tabs"},
		{"Trailing punctuation!!!", "trailing punctuation"},
		{"already normal", "already normal"},
	}
	for _, tt := range tests {
		if got := Normalize(tt.in); got != tt.want {
			t.Errorf("Normalize(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestSimilarity(t *testing.T) {
	if got := Similarity("abc", "abc"); got != 1.0 {
		t.Errorf("identical strings: got %v", got)
	}
	if got := Similarity("", "abc"); got != 0.0 {
		t.Errorf("empty string: got %v", got)
	}
	// One edit over ten characters.
	if got := Similarity("abcdefghij", "abcdefghix"); got != 0.9 {
		t.Errorf("got %v, want 0.9", got)
	}
}

func TestDedup_ExactMatch(t *testing.T) {
	items := []Criterion{
		{ID: "1", Text: "Age >= 18 years", Type: Inclusion, Confidence: 0.8, SourcePageIndex: 0, SourceParagraphIndex: 0},
		{ID: "2", Text: "age >= 18 years.", Type: Inclusion, Confidence: 0.9, SourcePageIndex: 1, SourceParagraphIndex: 0},
		{ID: "3", Text: "ECOG 0-1", Type: Inclusion, Confidence: 0.7, SourcePageIndex: 1, SourceParagraphIndex: 1},
	}

	// Threshold 1.0 disables near-duplicate matching; exact normalized
	// matches still collapse.
	out := Dedup(items, 1.0)
	if len(out) != 2 {
		t.Fatalf("got %d survivors, want 2", len(out))
	}
	if out[0].ID != "2" {
		t.Errorf("survivor is %s, want 2 (highest confidence)", out[0].ID)
	}
	if out[1].ID != "3" {
		t.Errorf("second survivor is %s, want 3", out[1].ID)
	}
}

func TestDedup_SurvivorTieBreaksToEarliestPosition(t *testing.T) {
	items := []Criterion{
		{ID: "late", Text: "type 2 diabetes", Confidence: 0.9, SourcePageIndex: 3, SourceParagraphIndex: 0},
		{ID: "early", Text: "Type 2 diabetes.", Confidence: 0.9, SourcePageIndex: 1, SourceParagraphIndex: 2},
	}

	out := Dedup(items, 1.0)
	if len(out) != 1 {
		t.Fatalf("got %d survivors, want 1", len(out))
	}
	if out[0].ID != "early" {
		t.Errorf("survivor is %s, want early", out[0].ID)
	}
}

func TestDedup_NearDuplicates(t *testing.T) {
	items := []Criterion{
		{ID: "1", Text: "history of myocardial infarction", Confidence: 0.8, SourcePageIndex: 0},
		{ID: "2", Text: "history of myocardial infarctions", Confidence: 0.9, SourcePageIndex: 1},
	}

	out := Dedup(items, 0.92)
	if len(out) != 1 {
		t.Fatalf("near duplicates not collapsed: got %d survivors", len(out))
	}
	if out[0].ID != "2" {
		t.Errorf("survivor is %s, want 2", out[0].ID)
	}

	// Same input with near-dup matching disabled keeps both.
	out = Dedup(items, 1.0)
	if len(out) != 2 {
		t.Fatalf("got %d survivors with threshold 1.0, want 2", len(out))
	}
}

func TestDedup_OrderIndependent(t *testing.T) {
	a := Criterion{ID: "a", Text: "age >= 18", Confidence: 0.7, SourcePageIndex: 0, SourceParagraphIndex: 0}
	b := Criterion{ID: "b", Text: "Age >= 18", Confidence: 0.9, SourcePageIndex: 2, SourceParagraphIndex: 0}
	c := Criterion{ID: "c", Text: "no prior chemotherapy", Confidence: 0.8, SourcePageIndex: 1, SourceParagraphIndex: 0}

	out1 := Dedup([]Criterion{a, b, c}, 0.92)
	out2 := Dedup([]Criterion{c, b, a}, 0.92)

	if !reflect.DeepEqual(out1, out2) {
		t.Errorf("dedup depends on input order:\n%v\n%v", out1, out2)
	}
}

func TestDedup_Idempotent(t *testing.T) {
	items := []Criterion{
		{ID: "1", Text: "Age >= 18 years", Confidence: 0.8, SourcePageIndex: 0},
		{ID: "2", Text: "age >= 18 years", Confidence: 0.9, SourcePageIndex: 1},
		{ID: "3", Text: "ECOG 0-1", Confidence: 0.7, SourcePageIndex: 1, SourceParagraphIndex: 1},
	}

	once := Dedup(items, 0.92)
	twice := Dedup(once, 0.92)
	if !reflect.DeepEqual(once, twice) {
		t.Errorf("dedup not idempotent:\n%v\n%v", once, twice)
	}
}

func TestDedup_EmptyAndSingle(t *testing.T) {
	if out := Dedup(nil, 0.92); len(out) != 0 {
		t.Errorf("got %d survivors from nil input", len(out))
	}
	one := []Criterion{{ID: "1", Text: "x", Confidence: 0.5}}
	out := Dedup(one, 0.92)
	if len(out) != 1 || out[0].ID != "1" {
		t.Errorf("unexpected result for single input: %v", out)
	}
}

func TestCriterion_Validate(t *testing.T) {
	valid := Criterion{ID: "1", Text: "age >= 18", Type: Inclusion, Confidence: 0.9}
	if err := valid.Validate(); err != nil {
		t.Errorf("valid criterion rejected: %v", err)
	}

	empty := Criterion{ID: "1", Type: Inclusion, Confidence: 0.9}
	if err := empty.Validate(); err == nil {
		t.Error("expected error for empty text")
	}

	badType := Criterion{ID: "1", Text: "x", Type: "maybe", Confidence: 0.9}
	if err := badType.Validate(); err == nil {
		t.Error("expected error for invalid type")
	}

	badConf := Criterion{ID: "1", Text: "x", Type: Exclusion, Confidence: 1.5}
	if err := badConf.Validate(); err == nil {
		t.Error("expected error for out-of-range confidence")
	}
}
