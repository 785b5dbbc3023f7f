// Package capability implements the local capability boundary: named,
// invocable units of behavior an agent can execute in-process or through an
// MCP server. The router addresses every implementation through the
// core.Invoker contract.
package capability

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/hupe1980/agentlink/core"
	"github.com/hupe1980/agentlink/logging"
)

// Tool is one named local capability.
//
// Implementations should provide clear names and descriptions, define a
// minimal JSON schema for their arguments, handle errors gracefully and be
// safe for concurrent use.
type Tool interface {
	// Name returns the unique capability identifier (snake_case recommended).
	Name() string

	// Description returns a human-readable description of what the tool does.
	Description() string

	// Parameters returns a JSON schema describing the expected arguments.
	Parameters() map[string]any

	// Call executes the tool with the already-validated argument map.
	Call(ctx context.Context, args map[string]any) (any, error)
}

// RegistryOptions configures a Registry.
type RegistryOptions struct {
	Logger logging.Logger
}

// Registry is an in-process core.Invoker over a set of registered tools.
// Unknown names yield a typed KindCapabilityNotFound error; tool results are
// normalized to text (non-string results are JSON-serialized).
type Registry struct {
	mu     sync.RWMutex
	tools  map[string]Tool
	logger logging.Logger
}

// NewRegistry constructs an empty Registry.
func NewRegistry(optFns ...func(o *RegistryOptions)) *Registry {
	opts := RegistryOptions{}

	for _, fn := range optFns {
		fn(&opts)
	}

	return &Registry{tools: make(map[string]Tool), logger: logging.Ensure(opts.Logger)}
}

// Register adds tools to the registry, replacing same-named entries.
func (r *Registry) Register(tools ...Tool) *Registry {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, t := range tools {
		r.tools[t.Name()] = t
	}
	return r
}

// Names returns the registered capability names.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.tools))
	for name := range r.tools {
		names = append(names, name)
	}
	return names
}

// Invoke implements core.Invoker.
func (r *Registry) Invoke(ctx context.Context, name string, args map[string]any) (string, error) {
	r.mu.RLock()
	t, ok := r.tools[name]
	r.mu.RUnlock()

	if !ok {
		return "", core.NewError(core.KindCapabilityNotFound, "no capability registered under %q", name)
	}

	start := time.Now()
	result, err := t.Call(ctx, args)
	if err != nil {
		r.logger.Error("capability.call.error", "capability", name, "error", err)
		return "", err
	}

	r.logger.Info("capability.call.success", "capability", name, "duration_ms", time.Since(start).Milliseconds())

	return renderResult(result)
}

// renderResult converts an arbitrary tool result into text.
func renderResult(result any) (string, error) {
	switch v := result.(type) {
	case nil:
		return "", nil
	case string:
		return v, nil
	default:
		raw, err := json.Marshal(v)
		if err != nil {
			return fmt.Sprintf("%v", v), nil
		}
		return string(raw), nil
	}
}

var _ core.Invoker = (*Registry)(nil)
