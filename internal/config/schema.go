package config

import "time"

// Config holds clinsift configuration.
// Loaded from config.yaml with CLINSIFT_* environment overrides.
type Config struct {
	LLM         LLMCfg         `mapstructure:"llm" yaml:"llm"`
	Terminology TerminologyCfg `mapstructure:"terminology" yaml:"terminology"`
	Agents      AgentsCfg      `mapstructure:"agents" yaml:"agents"`
	Pipeline    PipelineCfg    `mapstructure:"pipeline" yaml:"pipeline"`
	Output      OutputCfg      `mapstructure:"output" yaml:"output"`
	Traces      TracesCfg      `mapstructure:"traces" yaml:"traces"`
	Logging     LoggingCfg     `mapstructure:"logging" yaml:"logging"`
}

// LLMCfg configures the OpenRouter-compatible chat provider.
type LLMCfg struct {
	BaseURL    string  `mapstructure:"base_url" yaml:"base_url"`
	APIKey     string  `mapstructure:"api_key" yaml:"api_key"` // supports ${ENV_VAR} syntax
	Model      string  `mapstructure:"model" yaml:"model"`
	RateLimit  float64 `mapstructure:"rate_limit" yaml:"rate_limit"` // requests per second
	MaxRetries int     `mapstructure:"max_retries" yaml:"max_retries"`
	Timeout    time.Duration `mapstructure:"timeout" yaml:"timeout"`
}

// TerminologyCfg configures the medical terminology service client.
type TerminologyCfg struct {
	BaseURL    string        `mapstructure:"base_url" yaml:"base_url"`
	APIKey     string        `mapstructure:"api_key" yaml:"api_key"` // supports ${ENV_VAR} syntax
	RateLimit  float64       `mapstructure:"rate_limit" yaml:"rate_limit"`
	MaxRetries int           `mapstructure:"max_retries" yaml:"max_retries"`
	Timeout    time.Duration `mapstructure:"timeout" yaml:"timeout"`
}

// AgentCfg bounds one agent role.
type AgentCfg struct {
	MaxSteps          int           `mapstructure:"max_steps" yaml:"max_steps"`
	ToolTimeout       time.Duration `mapstructure:"tool_timeout" yaml:"tool_timeout"`
	InvocationTimeout time.Duration `mapstructure:"invocation_timeout" yaml:"invocation_timeout"`
}

// AgentsCfg bounds the agent roles.
type AgentsCfg struct {
	Extractor AgentCfg `mapstructure:"extractor" yaml:"extractor"`
	Grounder  AgentCfg `mapstructure:"grounder" yaml:"grounder"`
}

// PipelineCfg configures fan-out, retries, batching, and deduplication.
type PipelineCfg struct {
	Concurrency         int     `mapstructure:"concurrency" yaml:"concurrency"`
	UnitAttempts        int     `mapstructure:"unit_attempts" yaml:"unit_attempts"`
	SimilarityThreshold float64 `mapstructure:"similarity_threshold" yaml:"similarity_threshold"`
	MaxPagesPerBatch    int     `mapstructure:"max_pages_per_batch" yaml:"max_pages_per_batch"`
	MaxParasPerBatch    int     `mapstructure:"max_paras_per_batch" yaml:"max_paras_per_batch"`
}

// OutputCfg configures report writing.
type OutputCfg struct {
	Dir    string `mapstructure:"dir" yaml:"dir"`
	Format string `mapstructure:"format" yaml:"format"` // "yaml" or "json"
}

// TracesCfg configures agent trace and LLM call recording.
type TracesCfg struct {
	Dir     string `mapstructure:"dir" yaml:"dir"`
	Enabled bool   `mapstructure:"enabled" yaml:"enabled"`
}

// LoggingCfg configures the slog handler.
type LoggingCfg struct {
	Level  string `mapstructure:"level" yaml:"level"`   // debug, info, warn, error
	Format string `mapstructure:"format" yaml:"format"` // "text" or "json"
}

// DefaultConfig returns configuration with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		LLM: LLMCfg{
			BaseURL:    "https://openrouter.ai/api/v1",
			APIKey:     "${OPENROUTER_API_KEY}",
			Model:      "anthropic/claude-3.5-sonnet",
			RateLimit:  20.0,
			MaxRetries: 3,
			Timeout:    120 * time.Second,
		},
		Terminology: TerminologyCfg{
			BaseURL:    "http://localhost:8080",
			APIKey:     "${TERMINOLOGY_API_KEY}",
			RateLimit:  10.0,
			MaxRetries: 3,
			Timeout:    15 * time.Second,
		},
		Agents: AgentsCfg{
			Extractor: AgentCfg{
				MaxSteps:          8,
				ToolTimeout:       30 * time.Second,
				InvocationTimeout: 5 * time.Minute,
			},
			Grounder: AgentCfg{
				MaxSteps:          10,
				ToolTimeout:       30 * time.Second,
				InvocationTimeout: 5 * time.Minute,
			},
		},
		Pipeline: PipelineCfg{
			Concurrency:         4,
			UnitAttempts:        3,
			SimilarityThreshold: 0.92,
			MaxPagesPerBatch:    6,
			MaxParasPerBatch:    10,
		},
		Output: OutputCfg{
			Dir:    "out",
			Format: "yaml",
		},
		Traces: TracesCfg{
			Dir:     "traces",
			Enabled: true,
		},
		Logging: LoggingCfg{
			Level:  "info",
			Format: "text",
		},
	}
}
