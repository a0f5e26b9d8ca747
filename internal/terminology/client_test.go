package terminology

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"
)

func newTestClient(baseURL string) *Client {
	return NewClient(Config{
		BaseURL:    baseURL,
		APIKey:     "test-key",
		Timeout:    5 * time.Second,
		RPS:        1000,
		MaxRetries: 3,
	})
}

func TestSearch_PreservesRankingOrder(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Authorization"); got != "Bearer test-key" {
			t.Errorf("got authorization %q", got)
		}
		if got := r.URL.Query().Get("term"); got != "diabetes" {
			t.Errorf("got term %q", got)
		}
		if got := r.URL.Query().Get("limit"); got != "5" {
			t.Errorf("got limit %q", got)
		}
		json.NewEncoder(w).Encode(searchResponse{Results: []Candidate{
			{Code: "73211009", DisplayName: "Diabetes mellitus", Ontology: "SNOMED", Confidence: 0.95},
			{Code: "44054006", DisplayName: "Type 2 diabetes mellitus", Ontology: "SNOMED", Confidence: 0.95},
			{Code: "E11", DisplayName: "Type 2 diabetes mellitus", Ontology: "ICD10", Confidence: 0.90},
		}})
	}))
	defer srv.Close()

	got, err := newTestClient(srv.URL).Search(context.Background(), "diabetes", 5)
	if err != nil {
		t.Fatalf("Search failed: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("got %d candidates, want 3", len(got))
	}
	// Equal-confidence candidates must stay in the service's order.
	if got[0].Code != "73211009" || got[1].Code != "44054006" || got[2].Code != "E11" {
		t.Errorf("ranking order not preserved: %+v", got)
	}
}

func TestSearch_EmptyResultIsValid(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(searchResponse{Results: []Candidate{}})
	}))
	defer srv.Close()

	got, err := newTestClient(srv.URL).Search(context.Background(), "florbomab", 10)
	if err != nil {
		t.Fatalf("empty result must not be an error: %v", err)
	}
	if len(got) != 0 {
		t.Errorf("got %d candidates, want 0", len(got))
	}
}

func TestSearch_RetriesRateLimit(t *testing.T) {
	var calls atomic.Int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) <= 2 {
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		json.NewEncoder(w).Encode(searchResponse{Results: []Candidate{
			{Code: "X", DisplayName: "x", Ontology: "SNOMED", Confidence: 0.5},
		}})
	}))
	defer srv.Close()

	got, err := newTestClient(srv.URL).Search(context.Background(), "x", 1)
	if err != nil {
		t.Fatalf("Search failed after retries: %v", err)
	}
	if len(got) != 1 {
		t.Errorf("got %d candidates, want 1", len(got))
	}
	if calls.Load() != 3 {
		t.Errorf("got %d upstream calls, want 3", calls.Load())
	}
}

func TestSearch_RateLimitExhaustsRetries(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	_, err := newTestClient(srv.URL).Search(context.Background(), "x", 1)
	if !errors.Is(err, ErrRateLimited) {
		t.Fatalf("got %v, want ErrRateLimited", err)
	}
}

func TestSearch_ClientErrorIsNotRetried(t *testing.T) {
	var calls atomic.Int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusBadRequest)
	}))
	defer srv.Close()

	if _, err := newTestClient(srv.URL).Search(context.Background(), "x", 1); err == nil {
		t.Fatal("expected error for 400 response")
	}
	if calls.Load() != 1 {
		t.Errorf("4xx was retried: %d upstream calls", calls.Load())
	}
}

func TestSemanticType(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/concepts/73211009/semantic-type" {
			t.Errorf("unexpected path %q", r.URL.Path)
		}
		json.NewEncoder(w).Encode(semanticTypeResponse{
			ConceptID:    "73211009",
			SemanticType: "Disease or Syndrome",
		})
	}))
	defer srv.Close()

	got, err := newTestClient(srv.URL).SemanticType(context.Background(), "73211009")
	if err != nil {
		t.Fatalf("SemanticType failed: %v", err)
	}
	if got != "Disease or Syndrome" {
		t.Errorf("got %q", got)
	}
}

func TestSearch_ContextCancellation(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := newTestClient(srv.URL).Search(ctx, "x", 1); err == nil {
		t.Fatal("expected error for cancelled context")
	}
}
