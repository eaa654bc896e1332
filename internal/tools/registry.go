package tools

import (
	"context"
	"fmt"
	"sync"

	"github.com/firebase/genkit/go/ai"
	"github.com/firebase/genkit/go/genkit"

	"github.com/lectern-ai/lectern/internal/log"
)

// Registry maps tool names to implementations. The orchestrator is
// agnostic to which concrete tools are registered.
//
// Thread Safety: safe for concurrent use. Registration normally
// happens once at startup; lookups and execution dominate afterwards.
type Registry struct {
	mu     sync.RWMutex
	names  []string // registration order, drives schema ordering
	tools  map[string]Tool
	logger log.Logger
}

// NewRegistry creates an empty registry.
func NewRegistry(logger log.Logger) *Registry {
	if logger == nil {
		logger = log.NewNop()
	}
	return &Registry{tools: make(map[string]Tool), logger: logger}
}

// Register adds a tool. Duplicate names are an error.
func (r *Registry) Register(t Tool) error {
	if t == nil {
		return fmt.Errorf("tool is required")
	}
	name := t.Name()
	if name == "" {
		return fmt.Errorf("tool has no name")
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.tools[name]; exists {
		return fmt.Errorf("tool %q already registered", name)
	}
	r.tools[name] = t
	r.names = append(r.names, name)
	return nil
}

// Get returns a tool by name.
func (r *Registry) Get(name string) (Tool, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	t, ok := r.tools[name]
	return t, ok
}

// Names returns tool names in registration order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	cp := make([]string, len(r.names))
	copy(cp, r.names)
	return cp
}

// Count returns the number of registered tools.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.tools)
}

// Refs ensures every registered tool has a Genkit definition and
// returns the references to pass into a generate call. Tools already
// defined on this Genkit instance are looked up rather than redefined.
func (r *Registry) Refs(g *genkit.Genkit) []ai.ToolRef {
	r.mu.RLock()
	defer r.mu.RUnlock()

	refs := make([]ai.ToolRef, 0, len(r.names))
	for _, name := range r.names {
		if existing := genkit.LookupTool(g, name); existing != nil {
			refs = append(refs, existing)
			continue
		}
		refs = append(refs, r.tools[name].Define(g))
	}
	return refs
}

// Execute runs one tool by name. Failures degrade to model-readable
// result text so a bad tool call never aborts the surrounding query:
// unknown names and schema violations come back as Outcome text the
// model can relay or recover from.
func (r *Registry) Execute(ctx context.Context, name string, input map[string]any) Outcome {
	tool, ok := r.Get(name)
	if !ok {
		r.logger.Warn("model requested unknown tool", "tool", name)
		return Outcome{Text: fmt.Sprintf("Tool '%s' not found", name)}
	}

	out, err := tool.Execute(ctx, input)
	if err != nil {
		r.logger.Warn("tool execution failed", "tool", name, "err", err)
		return Outcome{Text: fmt.Sprintf("Error executing %s: %v", name, err)}
	}
	return out
}
