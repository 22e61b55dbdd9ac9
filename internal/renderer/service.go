// Package renderer renders chart configurations to raster images off-screen.
//
// A Service owns one isolated charting engine. The engine is built once by
// New, with plugins applied in a fixed order, and is shared read-only by
// every render. Each render allocates its own canvas and chart and releases
// both when encoding finishes.
package renderer

import (
	"context"

	"github.com/ankek/terraform-provider-chartrender/internal/canvas"
	"github.com/ankek/terraform-provider-chartrender/internal/engine"
	"github.com/ankek/terraform-provider-chartrender/internal/plugin"
)

// ChartCallback is run once against the freshly initialised engine, after
// plugins are applied. An error aborts initialisation.
type ChartCallback func(ctx context.Context, e *engine.Engine) error

// Config configures a Service. It is not retained by the service.
type Config struct {
	Width            int
	Height           int
	ChartCallback    ChartCallback
	Plugins          *plugin.Set
	BackgroundColour string
}

type options struct {
	loader *plugin.Loader
	images *canvas.ImageLoader
}

// Option customises how a Service loads plugins and images.
type Option func(*options)

// WithLoader sets the loader plugin references are resolved with.
func WithLoader(l *plugin.Loader) Option {
	return func(o *options) {
		o.loader = l
	}
}

// WithImageLoader sets the image loader charts hand to plugins while they
// are constructed.
func WithImageLoader(l *canvas.ImageLoader) Option {
	return func(o *options) {
		o.images = l
	}
}

// Service renders charts with one isolated engine.
type Service struct {
	width  int
	height int
	engine *engine.Engine
	images *canvas.ImageLoader

	newSurface func(width, height int) *canvas.Canvas
}

// New validates cfg and initialises the service engine. A failed
// initialisation returns no service.
func New(ctx context.Context, cfg *Config, opts ...Option) (*Service, error) {
	if err := validateConfig(cfg); err != nil {
		return nil, err
	}

	o := &options{}
	for _, opt := range opts {
		opt(o)
	}
	if o.loader == nil {
		o.loader = plugin.NewLoader()
	}
	if o.images == nil {
		o.images = canvas.NewImageLoader()
	}

	e, err := initialize(ctx, cfg, o.loader)
	if err != nil {
		return nil, err
	}

	return &Service{
		width:      cfg.Width,
		height:     cfg.Height,
		engine:     e,
		images:     o.images,
		newSurface: canvas.New,
	}, nil
}

func validateConfig(cfg *Config) error {
	if cfg == nil {
		return newConfigurationError("An options parameter object is required")
	}
	if cfg.Width <= 0 {
		return newConfigurationError("A width option is required")
	}
	if cfg.Height <= 0 {
		return newConfigurationError("A height option is required")
	}
	return nil
}

// Engine returns the service engine.
func (s *Service) Engine() *engine.Engine { return s.engine }

// Width returns the width of rendered images in pixels.
func (s *Service) Width() int { return s.width }

// Height returns the height of rendered images in pixels.
func (s *Service) Height() int { return s.height }
