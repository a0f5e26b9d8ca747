package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/clinsift/clinsift/internal/agent/observability"
	"github.com/clinsift/clinsift/internal/config"
	"github.com/clinsift/clinsift/internal/llmcall"
	"github.com/clinsift/clinsift/internal/medtext"
	"github.com/clinsift/clinsift/internal/providers"
	"github.com/clinsift/clinsift/internal/structgen"
	"github.com/clinsift/clinsift/internal/svcctx"
	"github.com/clinsift/clinsift/internal/terminology"
)

// runtime holds the long-lived services a command wires together: the LLM
// client, the structured-generation adapter, the terminology client, and the
// optional trace sinks. Close releases the sinks.
type runtime struct {
	mgr     *config.Manager
	cfg     *config.Config
	logger  *slog.Logger
	model   string
	client  *providers.OpenRouterClient
	gen     *structgen.Generator
	svc     *medtext.Service
	clarify *medtext.ClarifyCache
	term    *terminology.Client

	recorder   *llmcall.Recorder
	traceStore observability.TraceStore
	closers    []io.Closer
}

func newRuntime(cfgFile, modelOverride string) (*runtime, error) {
	mgr, err := config.NewManager(cfgFile)
	if err != nil {
		return nil, err
	}
	cfg := mgr.Get()
	mgr.WatchConfig()

	logger := newLogger(cfg.Logging)
	slog.SetDefault(logger)

	model := modelOverride
	if model == "" {
		model = cfg.LLM.Model
	}

	rt := &runtime{
		mgr:    mgr,
		cfg:    cfg,
		logger: logger,
		model:  model,
	}

	rt.client = providers.NewOpenRouterClient(providers.OpenRouterConfig{
		APIKey:       config.ResolveEnvVars(cfg.LLM.APIKey),
		BaseURL:      cfg.LLM.BaseURL,
		DefaultModel: model,
		Timeout:      cfg.LLM.Timeout,
		RPS:          cfg.LLM.RateLimit,
		MaxRetries:   cfg.LLM.MaxRetries,
	})

	if cfg.Traces.Enabled {
		if err := os.MkdirAll(cfg.Traces.Dir, 0o755); err != nil {
			return nil, fmt.Errorf("create traces dir: %w", err)
		}
		callStore, err := llmcall.NewFileStore(filepath.Join(cfg.Traces.Dir, "llm-calls.jsonl"), logger)
		if err != nil {
			return nil, fmt.Errorf("open llm call store: %w", err)
		}
		rt.closers = append(rt.closers, callStore)
		rt.recorder = llmcall.NewRecorder(callStore)

		fts, err := observability.NewFileTraceStore(filepath.Join(cfg.Traces.Dir, "agent-runs.jsonl"))
		if err != nil {
			rt.Close()
			return nil, fmt.Errorf("open trace store: %w", err)
		}
		rt.closers = append(rt.closers, fts)
		rt.traceStore = fts
	}

	rt.gen = structgen.New(rt.client, rt.recorder)
	rt.svc = medtext.New(rt.gen, model)
	rt.clarify = medtext.NewClarifyCache()

	rt.term = terminology.NewClient(terminology.Config{
		BaseURL:    cfg.Terminology.BaseURL,
		APIKey:     config.ResolveEnvVars(cfg.Terminology.APIKey),
		Timeout:    cfg.Terminology.Timeout,
		RPS:        cfg.Terminology.RateLimit,
		MaxRetries: cfg.Terminology.MaxRetries,
	})

	return rt, nil
}

// withServices attaches the runtime's services to the context for stages
// that resolve them lazily.
func (rt *runtime) withServices(ctx context.Context) context.Context {
	return svcctx.WithServices(ctx, &svcctx.Services{
		Config:      rt.mgr,
		Logger:      rt.logger,
		LLM:         rt.client,
		Terminology: rt.term,
		Recorder:    rt.recorder,
		TraceStore:  rt.traceStore,
	})
}

func (rt *runtime) Close() {
	for i := len(rt.closers) - 1; i >= 0; i-- {
		if err := rt.closers[i].Close(); err != nil {
			rt.logger.Warn("closing trace sink", "error", err)
		}
	}
}
