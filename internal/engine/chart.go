package engine

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/ankek/terraform-provider-chartrender/internal/canvas"
)

var (
	// ErrChartDestroyed is returned by operations on a destroyed chart.
	ErrChartDestroyed = errors.New("chart has been destroyed")
	// ErrNoCanvas is returned when encoding a chart constructed without a context.
	ErrNoCanvas = errors.New("chart has no canvas")
)

// ChartState is the lifecycle position of a chart.
type ChartState int

const (
	Constructed ChartState = iota
	Encoded
	Destroyed
)

func (s ChartState) String() string {
	switch s {
	case Constructed:
		return "constructed"
	case Encoded:
		return "encoded"
	case Destroyed:
		return "destroyed"
	}
	return fmt.Sprintf("ChartState(%d)", int(s))
}

// Area is a rectangle in canvas pixels.
type Area struct {
	Left, Top, Right, Bottom float64
}

func (a Area) Width() float64  { return a.Right - a.Left }
func (a Area) Height() float64 { return a.Bottom - a.Top }

// Side is the edge of the chart a box is laid out against.
type Side int

const (
	Top Side = iota
	Bottom
)

type activePlugin struct {
	plugin Plugin
	opts   PluginOptions
}

// Chart is one constructed chart bound to a canvas.
type Chart struct {
	id     int
	engine *Engine
	config *Config

	mu     sync.Mutex
	state  ChartState
	canvas *canvas.Canvas
	ctx    *canvas.Context2D

	goctx  context.Context
	images *canvas.ImageLoader

	plugins     []activePlugin
	controllers []Controller
	cartesian   bool

	outer     Area
	ChartArea Area
	boxes     map[string]Area

	x      *CategoryScale
	xLin   *LinearScale
	y      *LinearScale
	xShown bool
	yShown bool
}

// NewChart constructs and draws a chart. A nil drawing context yields a chart
// with no canvas, mirroring a canvas whose context could not be acquired.
// The image loader supplied with WithImages is only reachable while NewChart
// runs.
func (e *Engine) NewChart(ctx context.Context, dc *canvas.Context2D, cfg *Config, opts ...ChartOption) (*Chart, error) {
	if cfg == nil {
		return nil, fmt.Errorf("chart configuration is required")
	}
	if ctx == nil {
		ctx = context.Background()
	}

	c := &Chart{
		engine: e,
		config: cfg,
		goctx:  ctx,
		boxes:  make(map[string]Area),
	}
	for _, opt := range opts {
		opt(c)
	}
	defer func() {
		c.images = nil
	}()

	if dc == nil {
		return c, nil
	}
	c.ctx = dc
	c.canvas = dc.Canvas()
	e.track(c)

	if err := c.build(); err != nil {
		c.Destroy()
		return nil, err
	}
	return c, nil
}

func (c *Chart) build() error {
	if err := c.resolve(); err != nil {
		return err
	}
	if err := c.notify(func(p activePlugin) error {
		if h, ok := p.plugin.(BeforeInitHook); ok {
			return h.BeforeInit(c, p.opts)
		}
		return nil
	}); err != nil {
		return err
	}
	if err := c.notify(func(p activePlugin) error {
		if h, ok := p.plugin.(AfterInitHook); ok {
			return h.AfterInit(c, p.opts)
		}
		return nil
	}); err != nil {
		return err
	}
	if err := c.layout(); err != nil {
		return err
	}
	return c.draw()
}

// resolve picks controllers for every dataset and the plugins active for this
// chart. options.plugins[id] == false disables a plugin.
func (c *Chart) resolve() error {
	reg := c.engine.registry
	c.controllers = make([]Controller, len(c.config.Data.Datasets))
	for i, ds := range c.config.Data.Datasets {
		kind := c.config.Type
		if ds != nil && ds.Type != "" {
			kind = ds.Type
		}
		ctrl, ok := reg.Controller(kind)
		if !ok {
			return fmt.Errorf("%q is not a registered controller", kind)
		}
		c.controllers[i] = ctrl
		if ctrl.Cartesian() {
			c.cartesian = true
		}
	}
	if len(c.config.Data.Datasets) == 0 {
		ctrl, ok := reg.Controller(c.config.Type)
		if !ok {
			return fmt.Errorf("%q is not a registered controller", c.config.Type)
		}
		c.cartesian = ctrl.Cartesian()
	}

	var pluginOpts map[string]any
	if c.config.Options != nil {
		pluginOpts = c.config.Options.Plugins
	}
	candidates := append(reg.Plugins(), c.config.Plugins...)
	for _, p := range candidates {
		if p == nil {
			continue
		}
		raw, ok := pluginOpts[p.ID()]
		if enabled, isBool := raw.(bool); ok && isBool {
			if !enabled {
				continue
			}
			raw = nil
		}
		c.plugins = append(c.plugins, activePlugin{plugin: p, opts: NewPluginOptions(raw)})
	}
	return nil
}

func (c *Chart) notify(fn func(activePlugin) error) error {
	for _, p := range c.plugins {
		if err := fn(p); err != nil {
			return fmt.Errorf("plugin %s: %w", p.plugin.ID(), err)
		}
	}
	return nil
}

func (c *Chart) draw() error {
	if err := c.notify(func(p activePlugin) error {
		if h, ok := p.plugin.(BeforeDrawHook); ok {
			return h.BeforeDraw(c, p.opts)
		}
		return nil
	}); err != nil {
		return err
	}

	if c.cartesian {
		c.drawAxes()
	}

	if err := c.notify(func(p activePlugin) error {
		if h, ok := p.plugin.(BeforeDatasetsDrawHook); ok {
			return h.BeforeDatasetsDraw(c, p.opts)
		}
		return nil
	}); err != nil {
		return err
	}

	for i, ds := range c.config.Data.Datasets {
		if ds == nil || ds.Hidden {
			continue
		}
		c.ctx.Save()
		err := c.controllers[i].DrawDataset(c, i)
		c.ctx.Restore()
		if err != nil {
			return fmt.Errorf("dataset %d: %w", i, err)
		}
	}

	if err := c.notify(func(p activePlugin) error {
		if h, ok := p.plugin.(AfterDatasetsDrawHook); ok {
			return h.AfterDatasetsDraw(c, p.opts)
		}
		return nil
	}); err != nil {
		return err
	}
	return c.notify(func(p activePlugin) error {
		if h, ok := p.plugin.(AfterDrawHook); ok {
			return h.AfterDraw(c, p.opts)
		}
		return nil
	})
}

// Engine returns the engine that constructed the chart.
func (c *Chart) Engine() *Engine { return c.engine }

// Config returns the chart configuration.
func (c *Chart) Config() *Config { return c.config }

// Context returns the context construction runs under.
func (c *Chart) Context() context.Context { return c.goctx }

// Ctx returns the drawing context, or nil when the chart has no canvas.
func (c *Chart) Ctx() *canvas.Context2D {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.ctx
}

// Canvas returns the chart canvas, or nil when there is none or the chart has
// been destroyed.
func (c *Chart) Canvas() *canvas.Canvas {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.canvas
}

// Images returns the image loader during construction and nil afterwards.
func (c *Chart) Images() *canvas.ImageLoader { return c.images }

// Width and Height return the canvas size in pixels.
func (c *Chart) Width() float64 {
	if c.canvas == nil {
		return 0
	}
	return float64(c.canvas.Width())
}

func (c *Chart) Height() float64 {
	if c.canvas == nil {
		return 0
	}
	return float64(c.canvas.Height())
}

// State returns the lifecycle state.
func (c *Chart) State() ChartState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Encode serialises the canvas in the named format.
func (c *Chart) Encode(format string) ([]byte, error) {
	cv, err := c.encodable()
	if err != nil {
		return nil, err
	}
	data, err := cv.Encode(format)
	if err != nil {
		return nil, err
	}
	c.markEncoded()
	return data, nil
}

// DataURL serialises the canvas as a base64 data URL.
func (c *Chart) DataURL(format string) (string, error) {
	cv, err := c.encodable()
	if err != nil {
		return "", err
	}
	url, err := cv.DataURL(format)
	if err != nil {
		return "", err
	}
	c.markEncoded()
	return url, nil
}

func (c *Chart) encodable() (*canvas.Canvas, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state == Destroyed {
		return nil, ErrChartDestroyed
	}
	if c.canvas == nil {
		return nil, ErrNoCanvas
	}
	return c.canvas, nil
}

func (c *Chart) markEncoded() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state == Constructed {
		c.state = Encoded
	}
}

// Destroy releases the canvas and runs afterDestroy hooks. It is idempotent.
func (c *Chart) Destroy() {
	c.mu.Lock()
	if c.state == Destroyed {
		c.mu.Unlock()
		return
	}
	c.state = Destroyed
	cv := c.canvas
	c.canvas, c.ctx = nil, nil
	c.mu.Unlock()

	for _, p := range c.plugins {
		if h, ok := p.plugin.(AfterDestroyHook); ok {
			h.AfterDestroy(c, p.opts)
		}
	}
	if cv != nil {
		cv.Release()
		c.engine.untrack(c)
	}
}

// Box returns the area reserved by a plugin during layout.
func (c *Chart) Box(id string) (Area, bool) {
	a, ok := c.boxes[id]
	return a, ok
}

// Reserve takes size pixels from the given side of the remaining layout
// area for the plugin id and returns the reserved box.
func (c *Chart) Reserve(id string, side Side, size float64) Area {
	var box Area
	switch side {
	case Bottom:
		box = Area{Left: c.outer.Left, Right: c.outer.Right, Top: c.outer.Bottom - size, Bottom: c.outer.Bottom}
		c.outer.Bottom -= size
	default:
		box = Area{Left: c.outer.Left, Right: c.outer.Right, Top: c.outer.Top, Bottom: c.outer.Top + size}
		c.outer.Top += size
	}
	c.boxes[id] = box
	return box
}

// Datasets returns the indexes of the visible datasets drawn by the
// controller for kind.
func (c *Chart) Datasets(kind string) []int {
	var out []int
	for i, ds := range c.config.Data.Datasets {
		if ds == nil || ds.Hidden {
			continue
		}
		if c.controllers[i].ID() == kind {
			out = append(out, i)
		}
	}
	return out
}
