// Package tools holds the static allow-list of client-executable function
// tools the orchestrator resolves when a run requires tool outputs. Tools
// implement the langchaingo tools.Tool interface so existing tool
// implementations drop in unchanged.
package tools

import (
	"context"
	"fmt"
	"sync"

	"github.com/tmc/langchaingo/tools"

	"github.com/scribelabs/scribe/pkg/logger"
)

// Registry maps function names to client-side tools.
type Registry struct {
	mu    sync.RWMutex
	tools map[string]tools.Tool
}

// NewRegistry creates an empty tool registry.
func NewRegistry() *Registry {
	return &Registry{tools: make(map[string]tools.Tool)}
}

// Register adds a tool under its name.
func (r *Registry) Register(t tools.Tool) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	name := t.Name()
	if name == "" {
		return fmt.Errorf("tool name cannot be empty")
	}
	if _, exists := r.tools[name]; exists {
		return fmt.Errorf("tool %s already registered", name)
	}
	r.tools[name] = t
	return nil
}

// Get retrieves a tool by name.
func (r *Registry) Get(name string) (tools.Tool, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	t, ok := r.tools[name]
	return t, ok
}

// Names lists the registered tool names.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.tools))
	for n := range r.tools {
		names = append(names, n)
	}
	return names
}

// Resolve executes the named tool and returns its output. Unknown names and
// tool failures resolve to an empty string: the run must continue, and the
// server treats an empty output as "no result".
func (r *Registry) Resolve(ctx context.Context, name, input string) string {
	t, ok := r.Get(name)
	if !ok {
		logger.Warn("tools: no client tool registered for %q", name)
		return ""
	}
	out, err := t.Call(ctx, input)
	if err != nil {
		logger.Error("tools: %s failed: %v", name, err)
		return ""
	}
	return out
}
