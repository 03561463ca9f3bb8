// Package tools defines the uniform tool contract and registry.
//
// Every tool, regardless of what it does, is presented to the engine as the
// same shape: a name, a description, a parameter schema, an approval flag,
// and an execute function. Execute may return an error; the executor always
// catches it and folds it into the conversation rather than aborting.
package tools

import (
	"context"
	"fmt"
	"sort"
	"sync"
)

// Tool is a single callable tool.
type Tool struct {
	Name             string
	Description      string
	Parameters       map[string]interface{} // JSON-schema-shaped, opaque to the engine
	RequiresApproval bool
	Execute          func(ctx context.Context, args map[string]interface{}) (interface{}, error)
}

// Definition is the catalog entry exposed to the model.
type Definition struct {
	Name        string
	Description string
	Parameters  map[string]interface{}
}

// Registry holds tools by name and preserves registration order, which is
// the tie-break order used by relevance selection.
type Registry struct {
	mu    sync.RWMutex
	tools map[string]Tool
	order []string
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{tools: make(map[string]Tool)}
}

// Register adds a tool. Registering an existing name replaces the tool but
// keeps its original catalog position.
func (r *Registry) Register(t Tool) error {
	if t.Name == "" {
		return fmt.Errorf("tool name is required")
	}
	if t.Execute == nil {
		return fmt.Errorf("tool %s has no execute function", t.Name)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.tools[t.Name]; !exists {
		r.order = append(r.order, t.Name)
	}
	r.tools[t.Name] = t
	return nil
}

// Get returns the tool with the given name, or false if absent.
func (r *Registry) Get(name string) (Tool, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	t, ok := r.tools[name]
	return t, ok
}

// Has reports whether a tool is registered.
func (r *Registry) Has(name string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.tools[name]
	return ok
}

// Names returns tool names in catalog order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, len(r.order))
	copy(out, r.order)
	return out
}

// Len returns the number of registered tools.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.tools)
}

// Definitions returns catalog entries in catalog order.
func (r *Registry) Definitions() []Definition {
	r.mu.RLock()
	defer r.mu.RUnlock()
	defs := make([]Definition, 0, len(r.order))
	for _, name := range r.order {
		t := r.tools[name]
		defs = append(defs, Definition{
			Name:        t.Name,
			Description: t.Description,
			Parameters:  t.Parameters,
		})
	}
	return defs
}

// Map returns a name-keyed copy of the registered tools.
func (r *Registry) Map() map[string]Tool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make(map[string]Tool, len(r.tools))
	for name, t := range r.tools {
		out[name] = t
	}
	return out
}

// Merge returns a new registry containing the receiver's tools overridden
// and extended by overrides. The receiver is not modified.
func (r *Registry) Merge(overrides map[string]Tool) *Registry {
	merged := NewRegistry()
	r.mu.RLock()
	for _, name := range r.order {
		merged.Register(r.tools[name])
	}
	r.mu.RUnlock()

	names := make([]string, 0, len(overrides))
	for name := range overrides {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		t := overrides[name]
		if t.Name == "" {
			t.Name = name
		}
		merged.Register(t)
	}
	return merged
}
