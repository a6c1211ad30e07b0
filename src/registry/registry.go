// Package registry holds the tool and capability descriptions an agent
// publishes, and resolves tools by the role they play.
package registry

import (
	"fmt"
	"strings"
	"sync"
)

// Registry is an ordered, case-insensitive set of ToolSpecs.
type Registry struct {
	mu      sync.RWMutex
	specs   map[string]ToolSpec
	order   []string
	reduced bool
}

// New constructs a registry seeded with specs; invalid or duplicate entries are skipped.
func New(specs ...ToolSpec) *Registry {
	r := &Registry{specs: make(map[string]ToolSpec, len(specs))}
	for _, s := range specs {
		_ = r.Register(s)
	}
	return r
}

// Fallback is the registry assumed when discovery fails. It carries the
// conventional tool names without input schemas and reports Reduced.
func Fallback() *Registry {
	r := New(
		ToolSpec{
			Name:        Listing.DefaultTool,
			Description: "List all available products.",
			Output:      Schema{{Name: "products", Type: TypeArray}},
		},
		ToolSpec{
			Name:        Ordering.DefaultTool,
			Description: "Place an order for a product.",
			Output:      Schema{{Name: "order", Type: TypeObject}},
		},
	)
	r.reduced = true
	return r
}

// Register adds spec under its lower-cased name. Duplicate names return an error.
func (r *Registry) Register(spec ToolSpec) error {
	key := strings.ToLower(strings.TrimSpace(spec.Name))
	if key == "" {
		return fmt.Errorf("tool name is empty")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.specs[key]; exists {
		return fmt.Errorf("tool %s already registered", spec.Name)
	}
	r.specs[key] = spec
	r.order = append(r.order, key)
	return nil
}

// Lookup returns the spec registered under name, ignoring case.
func (r *Registry) Lookup(name string) (ToolSpec, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	spec, ok := r.specs[strings.ToLower(strings.TrimSpace(name))]
	return spec, ok
}

// Specs returns the registered specs in registration order.
func (r *Registry) Specs() []ToolSpec {
	r.mu.RLock()
	defer r.mu.RUnlock()

	specs := make([]ToolSpec, 0, len(r.order))
	for _, key := range r.order {
		specs = append(specs, r.specs[key])
	}
	return specs
}

// Find returns the first tool, in registration order, playing role.
// When nothing matches, the role's conventional default name is tried.
func (r *Registry) Find(role Role) (ToolSpec, bool) {
	for _, spec := range r.Specs() {
		if role.Match != nil && role.Match(spec) {
			return spec, true
		}
	}
	if role.DefaultTool != "" {
		return r.Lookup(role.DefaultTool)
	}
	return ToolSpec{}, false
}

// Is reports whether the named tool plays role in this registry.
func (r *Registry) Is(name string, role Role) bool {
	spec, ok := r.Find(role)
	return ok && strings.EqualFold(spec.Name, name)
}

// Reduced reports whether the registry is the discovery fallback, in which
// case argument completeness cannot be checked against input schemas.
func (r *Registry) Reduced() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.reduced
}

// Len returns the number of registered tools.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.order)
}
