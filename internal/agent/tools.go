package agent

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"

	"github.com/clinsift/clinsift/internal/providers"
)

// Tools defines the interface that agent tool implementations must satisfy.
// Each agent role creates its own Tools implementation with domain-specific
// tools, typically backed by a Registry.
//
// Tool failures are data, not control flow: Execute returns an error payload
// string for the model to reason about and only returns a Go error when the
// arguments could not be interpreted at all.
type Tools interface {
	// Specs returns OpenAI-format tool definitions for the LLM.
	Specs() []ToolSpec

	// Execute runs a tool and returns the result as a JSON string.
	Execute(ctx context.Context, name string, arguments map[string]any) (string, error)

	// IsComplete returns true when the agent has achieved its goal.
	// Typically set by a "write_result" style tool.
	IsComplete() bool

	// Result returns the final result after IsComplete() returns true.
	// Before completion it may return partial accumulated state, which the
	// runtime surfaces when a run is cut off by its step budget.
	Result() any
}

// ToolSpec aliases the wire-level tool definition so tools packages can
// declare specs without importing providers directly.
type ToolSpec = providers.Tool

// Def declares one callable tool: its wire spec, schemas, and handler.
type Def struct {
	Spec ToolSpec

	// OutputSchema optionally validates the handler's JSON output.
	OutputSchema json.RawMessage

	// Run executes the tool's side-effecting logic.
	Run func(ctx context.Context, args map[string]any) (string, error)
}

// Registry is a closed, name-keyed dispatch table for tools. The model picks
// tools by name at runtime; names outside the registry produce an error
// payload rather than a crash.
type Registry struct {
	defs map[string]Def
}

// NewRegistry builds a registry from tool definitions.
// Duplicate names panic: registries are assembled statically at startup.
func NewRegistry(defs ...Def) *Registry {
	r := &Registry{defs: make(map[string]Def, len(defs))}
	for _, d := range defs {
		name := d.Spec.Function.Name
		if name == "" {
			panic("agent: tool with empty name")
		}
		if _, dup := r.defs[name]; dup {
			panic(fmt.Sprintf("agent: duplicate tool %q", name))
		}
		r.defs[name] = d
	}
	return r
}

// Specs returns the registered tool definitions in name order.
func (r *Registry) Specs() []ToolSpec {
	names := make([]string, 0, len(r.defs))
	for name := range r.defs {
		names = append(names, name)
	}
	sort.Strings(names)

	specs := make([]ToolSpec, 0, len(names))
	for _, name := range names {
		specs = append(specs, r.defs[name].Spec)
	}
	return specs
}

// Execute validates the arguments against the tool's input schema, runs the
// handler, and validates the output when an output schema is declared.
// All failures are returned as error payloads for the model.
func (r *Registry) Execute(ctx context.Context, name string, args map[string]any) (string, error) {
	def, ok := r.defs[name]
	if !ok {
		return JSONError(fmt.Sprintf("Unknown tool: %s", name)), nil
	}

	if len(def.Spec.Function.Parameters) > 0 {
		argsRaw, err := json.Marshal(args)
		if err != nil {
			return JSONError(fmt.Sprintf("unencodable arguments: %v", err)), nil
		}
		if err := validateJSON(def.Spec.Function.Parameters, argsRaw); err != nil {
			return JSONError(fmt.Sprintf("invalid arguments for %s: %v", name, err)), nil
		}
	}

	out, err := def.Run(ctx, args)
	if err != nil {
		return JSONError(fmt.Sprintf("Tool execution failed: %v", err)), nil
	}

	if len(def.OutputSchema) > 0 {
		if err := validateJSON(def.OutputSchema, json.RawMessage(out)); err != nil {
			return JSONError(fmt.Sprintf("tool %s produced invalid output: %v", name, err)), nil
		}
	}

	return out, nil
}

// JSONSuccess wraps a payload map with success=true, indented for the model.
func JSONSuccess(data map[string]any) string {
	data["success"] = true
	b, _ := json.MarshalIndent(data, "", "  ")
	return string(b)
}

// JSONError encodes an error payload for the model to observe.
func JSONError(msg string) string {
	b, _ := json.Marshal(map[string]any{"error": msg})
	return string(b)
}

// MustMarshal marshals a value to JSON, panicking on error. Used for
// statically-declared tool parameter schemas.
func MustMarshal(v any) json.RawMessage {
	b, err := json.Marshal(v)
	if err != nil {
		panic(err)
	}
	return b
}

func validateJSON(schema, doc json.RawMessage) error {
	return providers.ValidateStructuredJSON(schema, doc)
}
