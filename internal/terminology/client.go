package terminology

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/avast/retry-go/v4"
	"golang.org/x/time/rate"
)

// Searcher is the terminology boundary consumed by the grounding agent.
type Searcher interface {
	Search(ctx context.Context, term string, limit int) ([]Candidate, error)
	SemanticType(ctx context.Context, conceptID string) (string, error)
}

// Config holds client configuration.
type Config struct {
	BaseURL string
	APIKey  string
	Timeout time.Duration

	// RPS limits client-side request rate (default: 10).
	RPS float64
	// MaxRetries bounds retries on 429/5xx (default: 3).
	MaxRetries int
}

// Client is an HTTP Searcher.
type Client struct {
	baseURL    string
	apiKey     string
	client     *http.Client
	limiter    *rate.Limiter
	maxRetries int
}

// NewClient creates a terminology client.
func NewClient(cfg Config) *Client {
	if cfg.Timeout == 0 {
		cfg.Timeout = 15 * time.Second
	}
	if cfg.RPS == 0 {
		cfg.RPS = 10.0
	}
	if cfg.MaxRetries == 0 {
		cfg.MaxRetries = 3
	}

	return &Client{
		baseURL:    cfg.BaseURL,
		apiKey:     cfg.APIKey,
		client:     &http.Client{Timeout: cfg.Timeout},
		limiter:    rate.NewLimiter(rate.Limit(cfg.RPS), 1),
		maxRetries: cfg.MaxRetries,
	}
}

// Search queries the terminology index. The returned candidate order is the
// service's ranking order and is preserved exactly; callers must not re-sort
// ties. An empty result is a valid answer, not an error.
func (c *Client) Search(ctx context.Context, term string, limit int) ([]Candidate, error) {
	if limit <= 0 {
		limit = 10
	}

	q := url.Values{}
	q.Set("term", term)
	q.Set("limit", strconv.Itoa(limit))

	var resp searchResponse
	if err := c.getJSON(ctx, "/search?"+q.Encode(), &resp); err != nil {
		return nil, fmt.Errorf("terminology search %q: %w", term, err)
	}
	return resp.Results, nil
}

// SemanticType looks up a concept's semantic type.
func (c *Client) SemanticType(ctx context.Context, conceptID string) (string, error) {
	var resp semanticTypeResponse
	path := "/concepts/" + url.PathEscape(conceptID) + "/semantic-type"
	if err := c.getJSON(ctx, path, &resp); err != nil {
		return "", fmt.Errorf("semantic type for %q: %w", conceptID, err)
	}
	return resp.SemanticType, nil
}

// getJSON performs a rate-limited GET with bounded retries on 429/5xx.
func (c *Client) getJSON(ctx context.Context, path string, out any) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return err
	}

	return retry.Do(
		func() error {
			req, err := http.NewRequestWithContext(ctx, "GET", c.baseURL+path, nil)
			if err != nil {
				return retry.Unrecoverable(err)
			}
			req.Header.Set("Accept", "application/json")
			if c.apiKey != "" {
				req.Header.Set("Authorization", "Bearer "+c.apiKey)
			}

			resp, err := c.client.Do(req)
			if err != nil {
				return err
			}
			defer resp.Body.Close()

			body, err := io.ReadAll(resp.Body)
			if err != nil {
				return err
			}

			switch {
			case resp.StatusCode == http.StatusOK:
				if err := json.Unmarshal(body, out); err != nil {
					return retry.Unrecoverable(fmt.Errorf("invalid response body: %w", err))
				}
				return nil
			case resp.StatusCode == http.StatusTooManyRequests:
				return fmt.Errorf("%w (status 429)", ErrRateLimited)
			case resp.StatusCode >= 500:
				return fmt.Errorf("server error (status %d): %s", resp.StatusCode, body)
			default:
				return retry.Unrecoverable(fmt.Errorf("request failed (status %d): %s", resp.StatusCode, body))
			}
		},
		retry.Context(ctx),
		retry.Attempts(uint(c.maxRetries)),
		retry.Delay(500*time.Millisecond),
		retry.DelayType(retry.BackOffDelay),
		retry.LastErrorOnly(true),
	)
}
