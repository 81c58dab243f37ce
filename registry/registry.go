// Package registry provides a global operator registry for termgraph.
// It maps operator names to their implementation and metadata used by the
// CLI to build trees and list what is available.
package registry

import (
	"sync"

	"github.com/petal-labs/termgraph/core"
)

// Operator categories.
const (
	CategoryTerms      = "terms"      // combines flat term collections
	CategoryStructural = "structural" // always applied through Merge
	CategoryTuple      = "tuple"      // produces parallel collections
)

// OperatorDef describes a registered operator.
type OperatorDef struct {
	Name        string        `json:"name" yaml:"name"`
	Category    string        `json:"category" yaml:"category"`
	DisplayName string        `json:"display_name" yaml:"display_name"`
	Description string        `json:"description" yaml:"description"`
	Arity       int           `json:"arity" yaml:"arity"` // negative = variadic
	Structural  bool          `json:"structural" yaml:"structural"`
	Operator    core.Operator `json:"-" yaml:"-"`
}

var (
	global     *Registry
	globalOnce sync.Once
)

// Global returns the singleton registry instance. On first call it
// initializes the registry and registers the built-in term operators.
func Global() *Registry {
	globalOnce.Do(func() {
		global = New()
		registerBuiltins(global)
	})
	return global
}

// Registry holds named operators.
type Registry struct {
	mu    sync.RWMutex
	defs  map[string]OperatorDef
	order []string // preserves registration order
}

// New creates an empty registry.
func New() *Registry {
	return &Registry{
		defs: make(map[string]OperatorDef),
	}
}

// Register adds an operator definition. If an operator with the same name
// already exists it is overwritten. Arity and Structural are taken from the
// operator when it is set.
func (r *Registry) Register(def OperatorDef) {
	if def.Operator != nil {
		if def.Name == "" {
			def.Name = def.Operator.Name()
		}
		def.Arity = def.Operator.Arity()
		def.Structural = def.Operator.Structural()
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.defs[def.Name]; !exists {
		r.order = append(r.order, def.Name)
	}
	r.defs[def.Name] = def
}

// Get returns an operator definition by name.
func (r *Registry) Get(name string) (OperatorDef, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	def, ok := r.defs[name]
	return def, ok
}

// Has returns true if the name is registered.
func (r *Registry) Has(name string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.defs[name]
	return ok
}

// Operator returns the implementation registered under name, or false if the
// name is unknown or has no implementation.
func (r *Registry) Operator(name string) (core.Operator, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	def, ok := r.defs[name]
	if !ok || def.Operator == nil {
		return nil, false
	}
	return def.Operator, true
}

// All returns all registered operators in registration order.
func (r *Registry) All() []OperatorDef {
	r.mu.RLock()
	defer r.mu.RUnlock()
	result := make([]OperatorDef, 0, len(r.order))
	for _, name := range r.order {
		result = append(result, r.defs[name])
	}
	return result
}

// Len returns the number of registered operators.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.defs)
}
