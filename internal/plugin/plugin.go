// Package plugin loads chart plugin modules and reconciles the four ways a
// module can get itself registered with an engine.
package plugin

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/ankek/terraform-provider-chartrender/internal/engine"
)

var (
	// ErrNoExport is returned when a module that must return a plugin object
	// returned none.
	ErrNoExport = errors.New("module did not export a plugin")
	// ErrNoAmbientEngine is returned by Scope.Global outside the global
	// variable loading phase.
	ErrNoAmbientEngine = errors.New("no ambient engine is bound")
	// ErrUnknownModule is returned for names missing from the catalog.
	ErrUnknownModule = errors.New("unknown plugin module")
)

// ModuleLoadError reports a plugin reference that could not be resolved or
// whose module failed to load.
type ModuleLoadError struct {
	Ref string
	Err error
}

func (e *ModuleLoadError) Error() string {
	return fmt.Sprintf("failed to load plugin module %q: %v", e.Ref, e.Err)
}

func (e *ModuleLoadError) Unwrap() error {
	return e.Err
}

// Module is the result of loading a module. Plugin is nil for modules that
// registered themselves while loading.
type Module struct {
	Name   string
	Plugin engine.Plugin
}

// Factory instantiates a module. Every call must produce a new, independent
// instance.
type Factory func(ctx context.Context, s *Scope) (*Module, error)

// binding is the ambient engine slot shared by a scope and its children.
type binding struct {
	mu sync.Mutex
	e  *engine.Engine
}

func (b *binding) get() *engine.Engine {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.e
}

func (b *binding) set(e *engine.Engine) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.e = e
}

// Scope carries the capabilities a module may use while it loads.
type Scope struct {
	engine  *engine.Engine
	ambient *binding

	// ID overrides the module's default plugin id when set.
	ID string
	// Options are defaults supplied by a descriptor.
	Options map[string]any
}

// NewScope returns a scope bound to e.
func NewScope(e *engine.Engine) *Scope {
	return &Scope{engine: e, ambient: &binding{}}
}

// Engine returns the engine being initialised.
func (s *Scope) Engine() *engine.Engine { return s.engine }

// Global returns the ambient engine binding, which only exists while modules
// of the global variable convention load.
func (s *Scope) Global() (*engine.Engine, error) {
	e := s.ambient.get()
	if e == nil {
		return nil, ErrNoAmbientEngine
	}
	return e, nil
}

// PluginID returns the descriptor id override, or def.
func (s *Scope) PluginID(def string) string {
	if s.ID != "" {
		return s.ID
	}
	return def
}

// bindGlobal publishes the engine as the ambient binding and returns the
// function removing it.
func (s *Scope) bindGlobal() func() {
	s.ambient.set(s.engine)
	return func() { s.ambient.set(nil) }
}

func (s *Scope) with(id string, opts map[string]any) *Scope {
	child := *s
	child.ID, child.Options = id, opts
	return &child
}

// Ref is a modern plugin entry: either a loadable reference or a plugin
// object.
type Ref struct {
	Name   string
	Plugin engine.Plugin
}

// Named returns a reference entry.
func Named(name string) Ref { return Ref{Name: name} }

// Object returns a plugin object entry.
func Object(p engine.Plugin) Ref { return Ref{Plugin: p} }

func (r Ref) String() string {
	if r.Plugin != nil {
		return "object:" + r.Plugin.ID()
	}
	return r.Name
}

// Convention is the way a module gets registered with an engine.
type Convention int

const (
	// SelfRegisteringOnLoad modules register against the scope engine while
	// loading. Nothing else is done with them.
	SelfRegisteringOnLoad Convention = iota
	// GlobalVariableSelfRegistering modules register against the ambient
	// binding while loading.
	GlobalVariableSelfRegistering
	// DirectOrReferencedRegistration entries are plugin objects or references
	// whose loaded plugin is registered.
	DirectOrReferencedRegistration
	// ObjectReturningRequiringRegistration modules return a plugin object that
	// must be registered.
	ObjectReturningRequiringRegistration
)

var conventionNames = map[Convention]string{
	SelfRegisteringOnLoad:                "requireChartJSLegacy",
	GlobalVariableSelfRegistering:        "globalVariableLegacy",
	DirectOrReferencedRegistration:       "modern",
	ObjectReturningRequiringRegistration: "requireLegacy",
}

func (c Convention) String() string {
	if name, ok := conventionNames[c]; ok {
		return name
	}
	return fmt.Sprintf("Convention(%d)", int(c))
}

// ParseConvention accepts the list names used in plugin sets, case-insensitively.
func ParseConvention(name string) (Convention, error) {
	for c, n := range conventionNames {
		if strings.EqualFold(n, name) {
			return c, nil
		}
	}
	return 0, fmt.Errorf("unknown plugin convention %q: must be one of modern, requireLegacy, requireChartJSLegacy, globalVariableLegacy", name)
}

// Entry is one plugin to apply under a convention.
type Entry struct {
	Convention Convention
	Ref        Ref
}

func (e Entry) String() string {
	return e.Convention.String() + ":" + e.Ref.String()
}

// Set groups plugin entries by convention.
type Set struct {
	Modern               []Ref
	RequireChartJSLegacy []string
	GlobalVariableLegacy []string
	RequireLegacy        []string
}

// Entries flattens the set in application order: requireChartJSLegacy,
// globalVariableLegacy, modern, requireLegacy.
func (s *Set) Entries() []Entry {
	if s == nil {
		return nil
	}
	var out []Entry
	for _, name := range s.RequireChartJSLegacy {
		out = append(out, Entry{Convention: SelfRegisteringOnLoad, Ref: Named(name)})
	}
	for _, name := range s.GlobalVariableLegacy {
		out = append(out, Entry{Convention: GlobalVariableSelfRegistering, Ref: Named(name)})
	}
	for _, ref := range s.Modern {
		out = append(out, Entry{Convention: DirectOrReferencedRegistration, Ref: ref})
	}
	for _, name := range s.RequireLegacy {
		out = append(out, Entry{Convention: ObjectReturningRequiringRegistration, Ref: Named(name)})
	}
	return out
}

// Add appends a reference under the given convention.
func (s *Set) Add(c Convention, ref string) {
	switch c {
	case SelfRegisteringOnLoad:
		s.RequireChartJSLegacy = append(s.RequireChartJSLegacy, ref)
	case GlobalVariableSelfRegistering:
		s.GlobalVariableLegacy = append(s.GlobalVariableLegacy, ref)
	case DirectOrReferencedRegistration:
		s.Modern = append(s.Modern, Named(ref))
	case ObjectReturningRequiringRegistration:
		s.RequireLegacy = append(s.RequireLegacy, ref)
	}
}
