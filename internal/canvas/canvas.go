// Package canvas provides the off-screen drawing surface charts are rendered
// onto: an RGBA raster with an HTML-canvas-like 2D context, path
// rasterisation via rasterx, text via x/image/font and encoders for the
// supported output formats.
package canvas

import (
	"image"
	"sync"
)

// Canvas is an off-screen raster drawing surface.
type Canvas struct {
	mu     sync.Mutex
	width  int
	height int
	img    *image.RGBA
	ctx    *Context2D
}

// New allocates a transparent canvas of the given size.
func New(width, height int) *Canvas {
	if width < 0 {
		width = 0
	}
	if height < 0 {
		height = 0
	}
	return &Canvas{
		width:  width,
		height: height,
		img:    image.NewRGBA(image.Rect(0, 0, width, height)),
	}
}

// Width returns the canvas width in pixels.
func (c *Canvas) Width() int { return c.width }

// Height returns the canvas height in pixels.
func (c *Canvas) Height() int { return c.height }

// GetContext returns the drawing context of the given kind. Only "2d" is
// supported; any other kind, or a released canvas, yields nil. Repeated calls
// return the same context.
func (c *Canvas) GetContext(kind string) *Context2D {
	if kind != "2d" {
		return nil
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.img == nil {
		return nil
	}
	if c.ctx == nil {
		c.ctx = newContext2D(c)
	}
	return c.ctx
}

// Image returns the backing raster, or nil once the canvas is released.
func (c *Canvas) Image() *image.RGBA {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.img
}

// Released reports whether Release has been called.
func (c *Canvas) Released() bool {
	return c.Image() == nil
}

// Release drops the pixel buffer and the drawing context.
func (c *Canvas) Release() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.img = nil
	if c.ctx != nil {
		c.ctx.faces = nil
		c.ctx = nil
	}
}
