package plugin

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/ankek/terraform-provider-chartrender/internal/engine"
	"github.com/ankek/terraform-provider-chartrender/internal/parser"
	"github.com/ankek/terraform-provider-chartrender/internal/remote"
	"github.com/ankek/terraform-provider-chartrender/internal/validation"
)

// Loader resolves plugin references to freshly instantiated modules.
// There is no module cache: every load runs the module factory again.
type Loader struct {
	catalog *Catalog
	fetcher *remote.Fetcher
	baseDir string
}

// Option configures a Loader.
type Option func(*Loader)

// WithCatalog resolves names against c instead of the default catalog.
func WithCatalog(c *Catalog) Option {
	return func(l *Loader) {
		l.catalog = c
	}
}

// WithFetcher sets the fetcher used for descriptor URLs.
func WithFetcher(f *remote.Fetcher) Option {
	return func(l *Loader) {
		l.fetcher = f
	}
}

// WithBaseDir resolves relative descriptor paths against dir.
func WithBaseDir(dir string) Option {
	return func(l *Loader) {
		l.baseDir = dir
	}
}

// NewLoader creates a Loader. Without WithFetcher, descriptors are fetched
// with the credentials from remote.CredentialsFromEnv.
func NewLoader(opts ...Option) *Loader {
	l := &Loader{}
	for _, opt := range opts {
		opt(l)
	}
	if l.catalog == nil {
		l.catalog = defaultCatalog
	}
	if l.fetcher == nil {
		l.fetcher = remote.NewFetcher(remote.CredentialsFromEnv(remote.Config{}))
	}
	return l
}

// Catalog returns the catalog names are resolved against.
func (l *Loader) Catalog() *Catalog { return l.catalog }

// LoadFresh loads the module behind ref. A ref is resolved as a catalog
// name, then as an http(s) descriptor URL, then as a descriptor file.
// Failures are returned as *ModuleLoadError.
func (l *Loader) LoadFresh(ctx context.Context, ref string, scope *Scope) (*Module, error) {
	mod, err := l.load(ctx, ref, scope)
	if err != nil {
		return nil, &ModuleLoadError{Ref: ref, Err: err}
	}
	return mod, nil
}

func (l *Loader) load(ctx context.Context, ref string, scope *Scope) (*Module, error) {
	if ref == "" {
		return nil, errors.New("empty plugin reference")
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if factory, ok := l.catalog.Lookup(ref); ok {
		return instantiate(ctx, ref, factory, scope.with("", nil))
	}
	if !remote.IsURL(ref) && filepath.Ext(ref) == "" {
		return nil, fmt.Errorf("%w: %s", ErrUnknownModule, ref)
	}

	desc, err := l.descriptor(ctx, ref)
	if err != nil {
		return nil, err
	}
	factory, ok := l.catalog.Lookup(desc.Kind)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownModule, desc.Kind)
	}
	mod, err := instantiate(ctx, desc.Kind, factory, scope.with(desc.ID, desc.Options))
	if err != nil {
		return nil, err
	}
	if mod.Plugin == nil {
		return mod, nil
	}

	// Descriptors may turn an exporting module into a self-registering one.
	var target *engine.Engine
	switch desc.OnLoad {
	case parser.OnLoadEngine:
		target = scope.Engine()
	case parser.OnLoadGlobal:
		if target, err = scope.Global(); err != nil {
			return nil, err
		}
	default:
		return mod, nil
	}
	if err := target.Register(mod.Plugin); err != nil {
		return nil, fmt.Errorf("failed to register plugin %s: %w", mod.Plugin.ID(), err)
	}
	return &Module{Name: mod.Name}, nil
}

func (l *Loader) descriptor(ctx context.Context, ref string) (*parser.Descriptor, error) {
	if remote.IsURL(ref) {
		doc, err := l.fetcher.Fetch(ctx, ref)
		if err != nil {
			return nil, err
		}
		name := path.Base(ref)
		if strings.Contains(doc.ContentType, "json") && !strings.HasSuffix(name, ".json") {
			name += ".json"
		}
		return parser.ParseDescriptor(doc.Data, name)
	}

	resolved, err := validation.ResolveDescriptorPath(l.baseDir, ref)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(resolved)
	if err != nil {
		return nil, fmt.Errorf("failed to read descriptor: %w", err)
	}
	return parser.ParseDescriptor(data, resolved)
}

func instantiate(ctx context.Context, name string, factory Factory, scope *Scope) (*Module, error) {
	mod, err := factory(ctx, scope)
	if err != nil {
		return nil, err
	}
	if mod == nil {
		mod = &Module{}
	}
	mod.Name = name
	return mod, nil
}

// Apply performs one plugin entry against the scope's engine according to
// its convention.
func Apply(ctx context.Context, l *Loader, scope *Scope, entry Entry) error {
	switch entry.Convention {
	case SelfRegisteringOnLoad:
		_, err := l.LoadFresh(ctx, entry.Ref.Name, scope)
		return err

	case GlobalVariableSelfRegistering:
		unbind := scope.bindGlobal()
		defer unbind()
		_, err := l.LoadFresh(ctx, entry.Ref.Name, scope)
		return err

	case DirectOrReferencedRegistration, ObjectReturningRequiringRegistration:
		p := entry.Ref.Plugin
		if p == nil || entry.Convention == ObjectReturningRequiringRegistration {
			mod, err := l.LoadFresh(ctx, entry.Ref.Name, scope)
			if err != nil {
				return err
			}
			if mod.Plugin == nil {
				return &ModuleLoadError{Ref: entry.Ref.Name, Err: ErrNoExport}
			}
			p = mod.Plugin
		}
		if err := scope.Engine().Register(p); err != nil {
			return fmt.Errorf("failed to register plugin %s: %w", entry.Ref, err)
		}
		return nil
	}
	return fmt.Errorf("unknown plugin convention %v", entry.Convention)
}
