package plugin

import (
	"sort"
	"sync"
)

// Catalog maps module names to factories.
type Catalog struct {
	mu        sync.RWMutex
	factories map[string]Factory
}

// NewCatalog creates an empty catalog.
func NewCatalog() *Catalog {
	return &Catalog{factories: make(map[string]Factory)}
}

// Register makes a module factory available by name.
// If Register is called twice with the same name or if factory is nil,
// it panics.
func (c *Catalog) Register(name string, factory Factory) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if factory == nil {
		panic("plugin: Register factory is nil")
	}
	if _, dup := c.factories[name]; dup {
		panic("plugin: Register called twice for module " + name)
	}
	c.factories[name] = factory
}

// Unregister removes a module factory.
func (c *Catalog) Unregister(name string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.factories, name)
}

// Lookup returns the factory registered under name.
func (c *Catalog) Lookup(name string) (Factory, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	f, ok := c.factories[name]
	return f, ok
}

// Names returns a sorted list of the registered module names.
func (c *Catalog) Names() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	names := make([]string, 0, len(c.factories))
	for name := range c.factories {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

var defaultCatalog = NewCatalog()

// DefaultCatalog returns the process catalog populated by Register.
func DefaultCatalog() *Catalog { return defaultCatalog }

// Register adds a factory to the default catalog. It is meant to be called
// from init functions and panics on duplicates.
func Register(name string, factory Factory) {
	defaultCatalog.Register(name, factory)
}

// Modules returns the sorted names in the default catalog.
func Modules() []string {
	return defaultCatalog.Names()
}
