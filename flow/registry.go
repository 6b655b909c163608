package flow

import (
	"fmt"
	"sort"
)

// Registry maps flow names to definitions. It is read-only after
// construction and safe for concurrent use.
type Registry struct {
	defs map[string]*Definition
}

// NewRegistry builds a registry from defs. Duplicate names are an error.
func NewRegistry(defs ...*Definition) (*Registry, error) {
	r := &Registry{defs: make(map[string]*Definition, len(defs))}
	for _, d := range defs {
		if d == nil {
			return nil, fmt.Errorf("nil flow definition")
		}
		if _, ok := r.defs[d.Name()]; ok {
			return nil, fmt.Errorf("duplicate flow %q", d.Name())
		}
		r.defs[d.Name()] = d
	}
	return r, nil
}

// Lookup returns the definition registered under name.
func (r *Registry) Lookup(name string) (*Definition, bool) {
	d, ok := r.defs[name]
	return d, ok
}

// Names returns the registered flow names in sorted order.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.defs))
	for name := range r.defs {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (r *Registry) Len() int { return len(r.defs) }
