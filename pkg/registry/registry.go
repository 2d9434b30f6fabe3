package registry

import (
	"sync"
)

// Registry holds the active Catalog and supports atomic replacement on
// manifest reload. All reads go through the registry so a reload is a
// single pointer swap, never a partially-visible catalog.
type Registry struct {
	mu      sync.RWMutex
	catalog *Catalog
}

// New creates a Registry serving the given catalog.
func New(catalog *Catalog) *Registry {
	return &Registry{catalog: catalog}
}

// Swap atomically replaces the active catalog.
func (r *Registry) Swap(catalog *Catalog) {
	r.mu.Lock()
	r.catalog = catalog
	r.mu.Unlock()
}

func (r *Registry) current() *Catalog {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.catalog
}

// Modules returns all non-disabled modules ordered by (category,
// display order, id).
func (r *Registry) Modules() []Module {
	c := r.current()
	out := make([]Module, 0, len(c.modules))
	for _, m := range c.modules {
		if m.Disabled {
			continue
		}
		out = append(out, m)
	}
	return out
}

// ModuleIDs returns the ids of all non-disabled modules as a set.
func (r *Registry) ModuleIDs() ModuleSet {
	c := r.current()
	s := make(ModuleSet, len(c.modules))
	for _, m := range c.modules {
		if m.Disabled {
			continue
		}
		s[m.ID] = struct{}{}
	}
	return s
}

// Module looks up a module by id. Disabled modules still resolve here so
// stale references can be reported precisely.
func (r *Registry) Module(id ModuleID) (Module, bool) {
	m, ok := r.current().modulesByID[id]
	return m, ok
}

// ModuleByFeatureKey resolves a legacy feature key to a module id.
func (r *Registry) ModuleByFeatureKey(key string) (Module, bool) {
	c := r.current()
	id, ok := c.modulesByKey[key]
	if !ok {
		return Module{}, false
	}
	return c.modulesByID[id], true
}

// Template looks up a curated template by id.
func (r *Registry) Template(id TemplateID) (Template, bool) {
	t, ok := r.current().templates[id]
	return t, ok
}
