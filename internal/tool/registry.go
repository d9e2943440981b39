package tool

import (
	"context"
	"fmt"
	"log"
	"sort"
	"sync"
)

// Registry manages all registered tools with thread-safe access.
//
// A Registry can be either a "root" registry (parent == nil) that owns its
// tools map, or a "view" registry (parent != nil) created by WithExtra that
// overlays additional tools on top of a parent. Views delegate Get/List to
// the parent, so changes to the parent are immediately visible through the
// view. This lets a function call frame layer scratch or Vibe-defined tools
// on top of the program-wide registry without touching the root.
type Registry struct {
	mu     sync.RWMutex
	tools  map[string]Tool
	parent *Registry // non-nil → view mode; tools map holds extras only
}

// NewRegistry creates an empty root tool registry.
func NewRegistry() *Registry {
	return &Registry{tools: make(map[string]Tool)}
}

// Register adds a tool to the registry. If a tool with the same name
// already exists, it is overwritten and a warning is logged.
func (r *Registry) Register(t Tool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.tools[t.Name()]; exists {
		log.Printf("tool registry: overwriting existing tool %q", t.Name())
	}
	r.tools[t.Name()] = t
}

// Unregister removes a tool from the registry.
func (r *Registry) Unregister(name string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.tools, name)
}

// Get retrieves a tool by name. For view registries: checks extras first,
// then delegates to the parent.
func (r *Registry) Get(name string) (Tool, bool) {
	r.mu.RLock()
	t, ok := r.tools[name]
	r.mu.RUnlock()
	if ok {
		return t, true
	}
	if r.parent != nil {
		return r.parent.Get(name)
	}
	return nil, false
}

// List returns all registered tools sorted by name. For view registries:
// merges parent tools with extras (extras override parent on name clash).
func (r *Registry) List() []Tool {
	if r.parent != nil {
		return r.listView()
	}
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]Tool, 0, len(r.tools))
	for _, t := range r.tools {
		result = append(result, t)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Name() < result[j].Name() })
	return result
}

func (r *Registry) listView() []Tool {
	parentTools := r.parent.List()

	r.mu.RLock()
	extras := make(map[string]Tool, len(r.tools))
	for k, v := range r.tools {
		extras[k] = v
	}
	r.mu.RUnlock()

	result := make([]Tool, 0, len(parentTools)+len(extras))
	for _, t := range parentTools {
		if _, overridden := extras[t.Name()]; !overridden {
			result = append(result, t)
		}
	}
	for _, t := range extras {
		result = append(result, t)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Name() < result[j].Name() })
	return result
}

// Definition is the provider-facing tool description (name, description,
// JSON Schema parameters), handed to internal/provider when assembling an
// ai_call request.
type Definition struct {
	Name        string
	Description string
	Parameters  []byte
}

// Definitions builds the full provider-facing tool list for this view.
func (r *Registry) Definitions() []Definition {
	tools := r.List()
	defs := make([]Definition, len(tools))
	for i, t := range tools {
		defs[i] = Definition{
			Name:        t.Name(),
			Description: t.Description(),
			Parameters:  t.InputSchema(),
		}
	}
	return defs
}

// WithExtra returns a view of this Registry with additional tools overlaid.
// Used for per-call-frame tool injection (e.g. a function's locally
// declared `tool`s). The returned Registry delegates Get/List to the
// parent, so Register/Unregister on the parent stay visible through the
// view. Chainable: root.WithExtra(a).WithExtra(b) checks b's extras then
// a's extras then root's tools.
func (r *Registry) WithExtra(extras ...Tool) *Registry {
	extrasMap := make(map[string]Tool, len(extras))
	for _, t := range extras {
		extrasMap[t.Name()] = t
	}
	return &Registry{parent: r, tools: extrasMap}
}

// Dispatch looks up name and executes it, returning a ToolError-shaped
// Result (never a Go error) when the name is unknown, matching spec §7's
// policy that unresolved tool calls are a tool-scoped observation, not a
// fatal program error.
func (r *Registry) Dispatch(ctx context.Context, name string, args []byte) (Result, error) {
	t, ok := r.Get(name)
	if !ok {
		return Result{Err: fmt.Sprintf("unknown tool %q", name)}, nil
	}
	return t.Execute(ctx, args)
}
