package pipeline

import (
	"context"
	"errors"
	"testing"

	"github.com/clinsift/clinsift/internal/criteria"
	"github.com/clinsift/clinsift/internal/document"
)

func TestRunner_RunsStagesInDependencyOrder(t *testing.T) {
	r := NewRegistry()

	var order []string
	record := func(name string) func(ctx context.Context, st *State) error {
		return func(ctx context.Context, st *State) error {
			order = append(order, name)
			return nil
		}
	}

	// Registered out of order; dependencies fix the execution order.
	second := newMockStage("second", "first")
	second.run = record("second")
	first := newMockStage("first")
	first.run = record("first")
	r.Register(second)
	r.Register(first)

	runner, err := NewRunner(r, nil)
	if err != nil {
		t.Fatalf("NewRunner failed: %v", err)
	}

	rep, err := runner.Run(context.Background(), &document.Document{ID: "doc-1"})
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if len(order) != 2 || order[0] != "first" || order[1] != "second" {
		t.Errorf("stages ran in order %v", order)
	}
	if rep.RunID == "" {
		t.Error("report has no run ID")
	}
	if rep.DocumentID != "doc-1" {
		t.Errorf("got document ID %q", rep.DocumentID)
	}
}

func TestRunner_StageErrorAborts(t *testing.T) {
	r := NewRegistry()

	boom := errors.New("boom")
	failing := newMockStage("failing")
	failing.run = func(ctx context.Context, st *State) error { return boom }
	after := newMockStage("after", "failing")
	ran := false
	after.run = func(ctx context.Context, st *State) error { ran = true; return nil }
	r.Register(failing)
	r.Register(after)

	runner, err := NewRunner(r, nil)
	if err != nil {
		t.Fatalf("NewRunner failed: %v", err)
	}

	_, err = runner.Run(context.Background(), &document.Document{ID: "doc-1"})
	if !errors.Is(err, boom) {
		t.Fatalf("got %v, want the stage error", err)
	}
	if ran {
		t.Error("downstream stage ran after a failure")
	}
}

func TestRunner_StateFlowsBetweenStages(t *testing.T) {
	r := NewRegistry()

	producer := newMockStage("producer")
	producer.run = func(ctx context.Context, st *State) error {
		st.Criteria = []criteria.Criterion{
			{ID: "a", Text: "x", Type: criteria.Inclusion, Confidence: 0.9},
		}
		return nil
	}
	var sawCriteria int
	consumer := newMockStage("consumer", "producer")
	consumer.run = func(ctx context.Context, st *State) error {
		sawCriteria = len(st.Criteria)
		return nil
	}
	r.Register(producer)
	r.Register(consumer)

	runner, _ := NewRunner(r, nil)
	rep, err := runner.Run(context.Background(), &document.Document{ID: "doc-1"})
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if sawCriteria != 1 {
		t.Errorf("consumer saw %d criteria, want 1", sawCriteria)
	}
	// Criteria reach the report even without groundings (marked skipped).
	if len(rep.Criteria) != 1 || rep.Criteria[0].Completeness != criteria.Skipped {
		t.Errorf("unexpected report criteria: %+v", rep.Criteria)
	}
}

func TestRunner_CancelledContext(t *testing.T) {
	r := NewRegistry()
	r.Register(newMockStage("only"))

	runner, _ := NewRunner(r, nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := runner.Run(ctx, &document.Document{ID: "doc-1"}); err == nil {
		t.Fatal("expected error for cancelled context")
	}
}

func TestNewRunner_RejectsInvalidRegistry(t *testing.T) {
	r := NewRegistry()
	r.Register(newMockStage("a", "missing"))

	if _, err := NewRunner(r, nil); err == nil {
		t.Fatal("expected error for unknown dependency")
	}
}
