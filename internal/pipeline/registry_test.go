package pipeline

import (
	"context"
	"testing"
)

// mockStage implements Stage for testing.
type mockStage struct {
	name         string
	dependencies []string
	run          func(ctx context.Context, st *State) error
}

func newMockStage(name string, deps ...string) *mockStage {
	return &mockStage{
		name:         name,
		dependencies: deps,
	}
}

func (m *mockStage) Name() string           { return m.name }
func (m *mockStage) Dependencies() []string { return m.dependencies }
func (m *mockStage) Description() string    { return "test stage" }

func (m *mockStage) Run(ctx context.Context, st *State) error {
	if m.run != nil {
		return m.run(ctx, st)
	}
	return nil
}

func TestRegistry_Register(t *testing.T) {
	r := NewRegistry()

	stage := newMockStage("test-stage")
	if err := r.Register(stage); err != nil {
		t.Fatalf("Register failed: %v", err)
	}

	// Duplicate registration should fail
	if err := r.Register(stage); err == nil {
		t.Fatal("expected error for duplicate registration")
	}
}

func TestRegistry_Get(t *testing.T) {
	r := NewRegistry()

	stage := newMockStage("test-stage")
	r.Register(stage)

	got, ok := r.Get("test-stage")
	if !ok {
		t.Fatal("Get returned false for registered stage")
	}
	if got.Name() != "test-stage" {
		t.Errorf("got name %q, want %q", got.Name(), "test-stage")
	}

	_, ok = r.Get("nonexistent")
	if ok {
		t.Fatal("Get returned true for nonexistent stage")
	}
}

func TestRegistry_Names(t *testing.T) {
	r := NewRegistry()

	r.Register(newMockStage("filter-pages"))
	r.Register(newMockStage("extract"))

	names := r.Names()
	if len(names) != 2 {
		t.Fatalf("got %d names, want 2", len(names))
	}
	if names[0] != "filter-pages" || names[1] != "extract" {
		t.Errorf("unexpected names: %v", names)
	}
}

func TestRegistry_GetOrdered(t *testing.T) {
	tests := []struct {
		name   string
		stages []struct {
			name string
			deps []string
		}
		wantOrder []string
		wantErr   bool
	}{
		{
			name: "no dependencies",
			stages: []struct {
				name string
				deps []string
			}{
				{"a", nil},
				{"b", nil},
				{"c", nil},
			},
			wantOrder: []string{"a", "b", "c"}, // Original order preserved
			wantErr:   false,
		},
		{
			name: "linear dependencies",
			stages: []struct {
				name string
				deps []string
			}{
				{"c", []string{"b"}},
				{"b", []string{"a"}},
				{"a", nil},
			},
			wantOrder: []string{"a", "b", "c"},
			wantErr:   false,
		},
		{
			name: "diamond dependencies",
			stages: []struct {
				name string
				deps []string
			}{
				{"d", []string{"b", "c"}},
				{"b", []string{"a"}},
				{"c", []string{"a"}},
				{"a", nil},
			},
			// a must come first, then b and c (either order), then d
			wantOrder: nil, // Just check length since b/c order is undefined
			wantErr:   false,
		},
		{
			name: "cycle detection",
			stages: []struct {
				name string
				deps []string
			}{
				{"a", []string{"b"}},
				{"b", []string{"a"}},
			},
			wantErr: true,
		},
		{
			name: "unknown dependency",
			stages: []struct {
				name string
				deps []string
			}{
				{"a", []string{"nonexistent"}},
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := NewRegistry()
			for _, s := range tt.stages {
				r.Register(newMockStage(s.name, s.deps...))
			}

			ordered, err := r.GetOrdered()
			if tt.wantErr {
				if err == nil {
					t.Fatal("expected error, got nil")
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}

			if tt.wantOrder != nil {
				if len(ordered) != len(tt.wantOrder) {
					t.Fatalf("got %d stages, want %d", len(ordered), len(tt.wantOrder))
				}
				for i, want := range tt.wantOrder {
					if ordered[i].Name() != want {
						t.Errorf("position %d: got %q, want %q", i, ordered[i].Name(), want)
					}
				}
			} else {
				// Just verify count for non-deterministic cases
				if len(ordered) != len(tt.stages) {
					t.Fatalf("got %d stages, want %d", len(ordered), len(tt.stages))
				}
			}
		})
	}
}

func TestRegistry_Validate(t *testing.T) {
	t.Run("valid", func(t *testing.T) {
		r := NewRegistry()
		r.Register(newMockStage("a"))
		r.Register(newMockStage("b", "a"))

		if err := r.Validate(); err != nil {
			t.Fatalf("Validate failed: %v", err)
		}
	})

	t.Run("unknown dependency", func(t *testing.T) {
		r := NewRegistry()
		r.Register(newMockStage("a", "missing"))

		if err := r.Validate(); err == nil {
			t.Fatal("expected error for unknown dependency")
		}
	})
}

func TestDefaultStageGraph(t *testing.T) {
	// The production stage names must form a valid linear order.
	r := NewRegistry()
	r.Register(&FilterPagesStage{})
	r.Register(&FilterParagraphsStage{})
	r.Register(&ExtractStage{})
	r.Register(&DedupStage{})
	r.Register(&GroundStage{})

	ordered, err := r.GetOrdered()
	if err != nil {
		t.Fatalf("GetOrdered failed: %v", err)
	}

	want := []string{StageFilterPages, StageFilterParagraphs, StageExtract, StageDedup, StageGround}
	for i, name := range want {
		if ordered[i].Name() != name {
			t.Errorf("position %d: got %q, want %q", i, ordered[i].Name(), name)
		}
	}
}
