// Package engine is a small declarative charting engine drawing onto a
// canvas.Context2D. Each Engine owns its registry, so components registered
// on one engine are never visible to another.
package engine

import (
	"image/color"
	"sync"

	"github.com/ankek/terraform-provider-chartrender/internal/canvas"
	"github.com/ankek/terraform-provider-chartrender/internal/colour"
)

// Defaults are the engine-wide drawing defaults.
type Defaults struct {
	FontSize  float64
	Color     color.NRGBA
	GridColor color.NRGBA
	Padding   float64
	Palette   []color.NRGBA
}

// DefaultPalette is the colour cycle used for datasets without colours.
var DefaultPalette = []color.NRGBA{
	colour.MustParse("#36a2eb"),
	colour.MustParse("#ff6384"),
	colour.MustParse("#4bc0c0"),
	colour.MustParse("#ff9f40"),
	colour.MustParse("#9966ff"),
	colour.MustParse("#ffcd56"),
	colour.MustParse("#c9cbcf"),
}

// Engine is an isolated charting engine instance.
type Engine struct {
	registry *Registry
	Defaults Defaults

	mu     sync.Mutex
	nextID int
	live   map[int]*Chart
}

// New creates an engine with the built-in controllers and plugins registered.
func New() *Engine {
	e := &Engine{
		registry: NewRegistry(),
		Defaults: Defaults{
			FontSize:  12,
			Color:     colour.MustParse("#666666"),
			GridColor: colour.MustParse("rgba(0, 0, 0, 0.1)"),
			Padding:   8,
			Palette:   DefaultPalette,
		},
		live: make(map[int]*Chart),
	}
	// Built-ins have fixed non-empty ids.
	_ = e.registry.Register(
		&barController{},
		&lineController{},
		&lineController{scatter: true},
		&arcController{},
		&arcController{doughnut: true},
		&titlePlugin{},
		&legendPlugin{},
	)
	return e
}

// Register adds plugins or controllers to this engine only.
func (e *Engine) Register(components ...Component) error {
	return e.registry.Register(components...)
}

// Unregister removes components by id.
func (e *Engine) Unregister(ids ...string) {
	e.registry.Unregister(ids...)
}

// Registry exposes the engine's component registry.
func (e *Engine) Registry() *Registry {
	return e.registry
}

// LiveCharts returns the number of charts constructed and not yet destroyed.
func (e *Engine) LiveCharts() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.live)
}

func (e *Engine) track(c *Chart) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.nextID++
	c.id = e.nextID
	e.live[c.id] = c
}

func (e *Engine) untrack(c *Chart) {
	e.mu.Lock()
	defer e.mu.Unlock()
	delete(e.live, c.id)
}

// ChartOption configures a single chart construction.
type ChartOption func(*Chart)

// WithImages makes loader available to plugins through Chart.Images while
// the chart is being constructed.
func WithImages(loader *canvas.ImageLoader) ChartOption {
	return func(c *Chart) {
		c.images = loader
	}
}

func (e *Engine) paletteColour(i int) color.NRGBA {
	p := e.Defaults.Palette
	if len(p) == 0 {
		p = DefaultPalette
	}
	return p[i%len(p)]
}
