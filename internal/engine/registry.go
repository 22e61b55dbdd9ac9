package engine

import (
	"errors"
	"fmt"
	"sort"
	"sync"
)

var (
	// ErrNilComponent is returned when registering a nil component.
	ErrNilComponent = errors.New("cannot register a nil component")
	// ErrEmptyID is returned when a component has no id.
	ErrEmptyID = errors.New("component id must not be empty")
)

// Registry holds the plugins and controllers known to one engine. Plugins keep
// their registration order; re-registering an id replaces it in place.
type Registry struct {
	mu          sync.RWMutex
	plugins     []Plugin
	controllers map[string]Controller
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{controllers: make(map[string]Controller)}
}

// Register adds components. Controllers are keyed by type; anything else is a
// plugin. Nothing is registered when any component is invalid.
func (r *Registry) Register(components ...Component) error {
	for _, c := range components {
		if c == nil {
			return ErrNilComponent
		}
		if c.ID() == "" {
			return fmt.Errorf("%w: %T", ErrEmptyID, c)
		}
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	for _, c := range components {
		if ctrl, ok := c.(Controller); ok {
			r.controllers[ctrl.ID()] = ctrl
			continue
		}
		r.addPlugin(c)
	}
	return nil
}

func (r *Registry) addPlugin(p Plugin) {
	for i, existing := range r.plugins {
		if existing.ID() == p.ID() {
			r.plugins[i] = p
			return
		}
	}
	r.plugins = append(r.plugins, p)
}

// Unregister removes the plugins and controllers with the given ids.
func (r *Registry) Unregister(ids ...string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, id := range ids {
		delete(r.controllers, id)
		for i, p := range r.plugins {
			if p.ID() == id {
				r.plugins = append(r.plugins[:i], r.plugins[i+1:]...)
				break
			}
		}
	}
}

// Plugins returns the registered plugins in registration order.
func (r *Registry) Plugins() []Plugin {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]Plugin(nil), r.plugins...)
}

// Plugin looks up a plugin by id.
func (r *Registry) Plugin(id string) (Plugin, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, p := range r.plugins {
		if p.ID() == id {
			return p, true
		}
	}
	return nil, false
}

// Controller looks up the controller for a chart type.
func (r *Registry) Controller(kind string) (Controller, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.controllers[kind]
	return c, ok
}

// Controllers returns the sorted registered chart types.
func (r *Registry) Controllers() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	kinds := make([]string, 0, len(r.controllers))
	for k := range r.controllers {
		kinds = append(kinds, k)
	}
	sort.Strings(kinds)
	return kinds
}
