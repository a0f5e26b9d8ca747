package providers

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"sync/atomic"
	"time"
)

const MockClientName = "mock"

// MockClient is an LLMClient for testing. Responses can be scripted as a
// FIFO queue; when the queue is empty the configurable default response is
// returned.
type MockClient struct {
	// Configurable behavior
	Latency      time.Duration
	ShouldFail   bool
	FailAfter    int // Fail after N requests (0 = never)
	ResponseText string
	ResponseJSON json.RawMessage

	// State
	mu           sync.Mutex
	queue        []*ChatResult
	requests     []*ChatRequest
	requestCount atomic.Int64
}

// NewMockClient creates a new mock client with sensible defaults.
func NewMockClient() *MockClient {
	return &MockClient{
		Latency:      time.Millisecond,
		ResponseText: "mock response",
	}
}

// Name returns the client identifier.
func (c *MockClient) Name() string {
	return MockClientName
}

// Enqueue appends scripted results returned in order by subsequent calls.
func (c *MockClient) Enqueue(results ...*ChatResult) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.queue = append(c.queue, results...)
}

// EnqueueToolCall scripts an assistant turn requesting a single tool call.
func (c *MockClient) EnqueueToolCall(name, arguments string) {
	n := c.requestCount.Load() + int64(len(c.queue)) + 1
	c.Enqueue(&ChatResult{
		Success:   true,
		ToolCalls: []ToolCall{NewToolCall(fmt.Sprintf("mock-call-%d", n), name, arguments)},
	})
}

// EnqueueJSON scripts a structured-output turn.
func (c *MockClient) EnqueueJSON(raw string) {
	c.Enqueue(&ChatResult{
		Success:    true,
		Content:    raw,
		ParsedJSON: json.RawMessage(raw),
	})
}

// Requests returns a copy of every request seen, in order.
func (c *MockClient) Requests() []*ChatRequest {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]*ChatRequest, len(c.requests))
	copy(out, c.requests)
	return out
}

// RequestCount returns the number of requests handled.
func (c *MockClient) RequestCount() int {
	return int(c.requestCount.Load())
}

// Chat sends a mock chat request.
func (c *MockClient) Chat(ctx context.Context, req *ChatRequest) (*ChatResult, error) {
	return c.doRequest(ctx, req, nil)
}

// ChatWithTools sends a mock chat request with tools.
func (c *MockClient) ChatWithTools(ctx context.Context, req *ChatRequest, tools []Tool) (*ChatResult, error) {
	return c.doRequest(ctx, req, tools)
}

func (c *MockClient) doRequest(ctx context.Context, req *ChatRequest, tools []Tool) (*ChatResult, error) {
	start := time.Now()
	count := c.requestCount.Add(1)

	c.mu.Lock()
	c.requests = append(c.requests, req)
	var scripted *ChatResult
	if len(c.queue) > 0 {
		scripted = c.queue[0]
		c.queue = c.queue[1:]
	}
	c.mu.Unlock()

	fail := func(errType, msg string) (*ChatResult, error) {
		return &ChatResult{
			RequestID:     fmt.Sprintf("mock-%d", count),
			Provider:      MockClientName,
			ModelUsed:     req.Model,
			Attempts:      1,
			Success:       false,
			ErrorType:     errType,
			ErrorMessage:  msg,
			ExecutionTime: time.Since(start),
		}, fmt.Errorf("%s", msg)
	}

	if c.ShouldFail {
		return fail("mock_failure", "mock client configured to fail")
	}
	if c.FailAfter > 0 && int(count) > c.FailAfter {
		return fail("mock_failure", fmt.Sprintf("mock client failed after %d requests", c.FailAfter))
	}

	if c.Latency > 0 {
		select {
		case <-time.After(c.Latency):
		case <-ctx.Done():
			return fail("context_cancelled", ctx.Err().Error())
		}
	}

	if scripted != nil {
		out := *scripted
		if out.RequestID == "" {
			out.RequestID = fmt.Sprintf("mock-%d", count)
		}
		out.Provider = MockClientName
		out.ExecutionTime = time.Since(start)
		if !out.Success && out.ErrorMessage != "" {
			return &out, fmt.Errorf("%s", out.ErrorMessage)
		}
		return &out, nil
	}

	result := &ChatResult{
		RequestID:     fmt.Sprintf("mock-%d", count),
		Provider:      MockClientName,
		ModelUsed:     req.Model,
		Attempts:      1,
		Success:       true,
		Content:       c.ResponseText,
		ExecutionTime: time.Since(start),
	}

	if req.ResponseFormat != nil && len(c.ResponseJSON) > 0 {
		result.ParsedJSON = c.ResponseJSON
		result.Content = string(c.ResponseJSON)
	}

	return result, nil
}
