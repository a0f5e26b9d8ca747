// Package svcctx provides service context for dependency injection via
// context. Components extract what they need instead of threading every
// dependency through each call chain.
package svcctx

import (
	"context"
	"log/slog"

	"github.com/clinsift/clinsift/internal/agent/observability"
	"github.com/clinsift/clinsift/internal/config"
	"github.com/clinsift/clinsift/internal/llmcall"
	"github.com/clinsift/clinsift/internal/providers"
	"github.com/clinsift/clinsift/internal/terminology"
)

// Services holds the core services that flow through context.
type Services struct {
	Config      *config.Manager
	Logger      *slog.Logger
	LLM         providers.LLMClient
	Terminology terminology.Searcher
	Recorder    *llmcall.Recorder
	TraceStore  observability.TraceStore
}

type servicesKey struct{}

// WithServices returns a new context with services attached.
func WithServices(ctx context.Context, s *Services) context.Context {
	return context.WithValue(ctx, servicesKey{}, s)
}

// ServicesFrom extracts the full Services struct from context.
// Returns nil if not present.
func ServicesFrom(ctx context.Context) *Services {
	s, _ := ctx.Value(servicesKey{}).(*Services)
	return s
}

// ConfigFrom extracts the config manager from context.
func ConfigFrom(ctx context.Context) *config.Manager {
	if s := ServicesFrom(ctx); s != nil {
		return s.Config
	}
	return nil
}

// LoggerFrom extracts the logger from context. Never returns nil.
func LoggerFrom(ctx context.Context) *slog.Logger {
	if s := ServicesFrom(ctx); s != nil && s.Logger != nil {
		return s.Logger
	}
	return slog.Default()
}

// LLMFrom extracts the chat client from context.
func LLMFrom(ctx context.Context) providers.LLMClient {
	if s := ServicesFrom(ctx); s != nil {
		return s.LLM
	}
	return nil
}

// TerminologyFrom extracts the terminology searcher from context.
func TerminologyFrom(ctx context.Context) terminology.Searcher {
	if s := ServicesFrom(ctx); s != nil {
		return s.Terminology
	}
	return nil
}

// RecorderFrom extracts the LLM call recorder from context.
func RecorderFrom(ctx context.Context) *llmcall.Recorder {
	if s := ServicesFrom(ctx); s != nil {
		return s.Recorder
	}
	return nil
}

// TraceStoreFrom extracts the agent trace store from context.
func TraceStoreFrom(ctx context.Context) observability.TraceStore {
	if s := ServicesFrom(ctx); s != nil {
		return s.TraceStore
	}
	return nil
}
