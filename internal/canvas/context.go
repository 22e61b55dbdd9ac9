package canvas

import (
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"math"

	"github.com/ankek/terraform-provider-chartrender/internal/colour"
	"github.com/srwiley/rasterx"
	xdraw "golang.org/x/image/draw"
	"golang.org/x/image/font"
	"golang.org/x/image/math/fixed"
)

// CompositeOp selects how new drawing is combined with existing pixels.
type CompositeOp int

const (
	// SourceOver draws new content over existing content.
	SourceOver CompositeOp = iota
	// DestinationOver draws new content behind existing content.
	DestinationOver
)

// ParseCompositeOp maps the canvas globalCompositeOperation names.
func ParseCompositeOp(name string) (CompositeOp, error) {
	switch name {
	case "", "source-over":
		return SourceOver, nil
	case "destination-over":
		return DestinationOver, nil
	}
	return SourceOver, fmt.Errorf("unsupported composite operation: %s", name)
}

// TextAlign is the horizontal anchor of FillText.
type TextAlign int

const (
	AlignLeft TextAlign = iota
	AlignCenter
	AlignRight
)

// TextBaseline is the vertical anchor of FillText.
type TextBaseline int

const (
	BaselineAlphabetic TextBaseline = iota
	BaselineTop
	BaselineMiddle
	BaselineBottom
)

type point struct {
	x, y float64
}

type subpath struct {
	points []point
	closed bool
}

type drawState struct {
	fill      color.Color
	stroke    color.Color
	lineWidth float64
	lineDash  []float64
	alpha     float64
	composite CompositeOp
	fontSize  float64
	align     TextAlign
	baseline  TextBaseline
	tx, ty    float64
}

// Context2D is an immediate-mode 2D drawing context bound to a Canvas.
// It is not safe for concurrent use.
type Context2D struct {
	canvas *Canvas
	state  drawState
	stack  []drawState
	path   []subpath
	faces  map[float64]font.Face
}

func newContext2D(c *Canvas) *Context2D {
	return &Context2D{
		canvas: c,
		state: drawState{
			fill:      color.Black,
			stroke:    color.Black,
			lineWidth: 1,
			alpha:     1,
			fontSize:  12,
		},
		faces: make(map[float64]font.Face),
	}
}

// Canvas returns the canvas this context draws onto.
func (c *Context2D) Canvas() *Canvas { return c.canvas }

// Save pushes the current drawing state.
func (c *Context2D) Save() {
	saved := c.state
	saved.lineDash = append([]float64(nil), c.state.lineDash...)
	c.stack = append(c.stack, saved)
}

// Restore pops the most recently saved drawing state.
func (c *Context2D) Restore() {
	if len(c.stack) == 0 {
		return
	}
	c.state = c.stack[len(c.stack)-1]
	c.stack = c.stack[:len(c.stack)-1]
}

func (c *Context2D) SetFillStyle(col color.Color)   { c.state.fill = col }
func (c *Context2D) SetStrokeStyle(col color.Color) { c.state.stroke = col }
func (c *Context2D) FillStyle() color.Color         { return c.state.fill }
func (c *Context2D) StrokeStyle() color.Color       { return c.state.stroke }
func (c *Context2D) SetLineWidth(w float64)         { c.state.lineWidth = math.Max(w, 0) }
func (c *Context2D) LineWidth() float64             { return c.state.lineWidth }
func (c *Context2D) SetTextAlign(a TextAlign)       { c.state.align = a }
func (c *Context2D) SetTextBaseline(b TextBaseline) { c.state.baseline = b }

// SetLineDash sets the dash pattern used by Stroke; nil means solid.
func (c *Context2D) SetLineDash(dash []float64) {
	c.state.lineDash = append([]float64(nil), dash...)
}

// SetGlobalAlpha sets the opacity applied to all drawing (0..1).
func (c *Context2D) SetGlobalAlpha(alpha float64) {
	c.state.alpha = math.Min(math.Max(alpha, 0), 1)
}

// SetGlobalCompositeOperation sets how drawing combines with existing pixels.
func (c *Context2D) SetGlobalCompositeOperation(op CompositeOp) { c.state.composite = op }

// GlobalCompositeOperation returns the active composite operation.
func (c *Context2D) GlobalCompositeOperation() CompositeOp { return c.state.composite }

// SetFontSize sets the pixel size used by FillText and MeasureText.
func (c *Context2D) SetFontSize(px float64) {
	if px > 0 {
		c.state.fontSize = px
	}
}

// Translate moves the origin for subsequent path and text operations.
func (c *Context2D) Translate(x, y float64) {
	c.state.tx += x
	c.state.ty += y
}

// BeginPath discards the current path.
func (c *Context2D) BeginPath() {
	c.path = c.path[:0]
}

// MoveTo starts a new subpath.
func (c *Context2D) MoveTo(x, y float64) {
	c.path = append(c.path, subpath{points: []point{c.transform(x, y)}})
}

// LineTo adds a straight segment to the current subpath.
func (c *Context2D) LineTo(x, y float64) {
	sp := c.current()
	if sp == nil {
		c.MoveTo(x, y)
		return
	}
	sp.points = append(sp.points, c.transform(x, y))
}

// ClosePath closes the current subpath.
func (c *Context2D) ClosePath() {
	if len(c.path) == 0 {
		return
	}
	last := &c.path[len(c.path)-1]
	last.closed = true
}

// Rect adds a closed rectangle subpath.
func (c *Context2D) Rect(x, y, w, h float64) {
	c.MoveTo(x, y)
	c.LineTo(x+w, y)
	c.LineTo(x+w, y+h)
	c.LineTo(x, y+h)
	c.ClosePath()
}

// Arc adds a circular arc centred on (cx, cy). Angles are in radians,
// measured clockwise from the positive x axis as on an HTML canvas.
func (c *Context2D) Arc(cx, cy, r, start, end float64, counterClockwise bool) {
	sweep := end - start
	switch {
	case !counterClockwise && sweep >= 2*math.Pi, counterClockwise && -sweep >= 2*math.Pi:
		sweep = 2 * math.Pi
		if counterClockwise {
			sweep = -sweep
		}
	case !counterClockwise:
		sweep = math.Mod(sweep, 2*math.Pi)
		if sweep < 0 {
			sweep += 2 * math.Pi
		}
	default:
		sweep = math.Mod(sweep, 2*math.Pi)
		if sweep > 0 {
			sweep -= 2 * math.Pi
		}
	}

	segments := int(math.Ceil(math.Abs(sweep) / (math.Pi / 90)))
	if segments < 1 {
		segments = 1
	}

	sx, sy := cx+r*math.Cos(start), cy+r*math.Sin(start)
	if c.current() == nil {
		c.MoveTo(sx, sy)
	} else {
		c.LineTo(sx, sy)
	}
	for i := 1; i <= segments; i++ {
		a := start + sweep*float64(i)/float64(segments)
		c.LineTo(cx+r*math.Cos(a), cy+r*math.Sin(a))
	}
}

// Fill fills the current path with the fill style (non-zero winding).
func (c *Context2D) Fill() {
	c.fillPath(c.path)
}

// Stroke strokes the current path with the stroke style.
func (c *Context2D) Stroke() {
	c.strokePath(c.path)
}

// FillRect fills a rectangle without touching the current path.
func (c *Context2D) FillRect(x, y, w, h float64) {
	x, y = x+c.state.tx, y+c.state.ty
	if isIntegral(x, y, w, h) {
		col := c.paint(c.state.fill)
		rect := image.Rect(int(x), int(y), int(x+w), int(y+h)).Canon()
		c.render(func(dst *image.RGBA) {
			draw.Draw(dst, rect, image.NewUniform(col), image.Point{}, draw.Over)
		})
		return
	}
	c.fillPath([]subpath{rectPath(x, y, w, h)})
}

// StrokeRect strokes a rectangle without touching the current path.
func (c *Context2D) StrokeRect(x, y, w, h float64) {
	c.strokePath([]subpath{rectPath(x+c.state.tx, y+c.state.ty, w, h)})
}

// ClearRect makes the pixels of a rectangle fully transparent.
func (c *Context2D) ClearRect(x, y, w, h float64) {
	img := c.canvas.Image()
	if img == nil {
		return
	}
	x, y = x+c.state.tx, y+c.state.ty
	rect := image.Rect(int(math.Floor(x)), int(math.Floor(y)), int(math.Ceil(x+w)), int(math.Ceil(y+h))).Canon()
	draw.Draw(img, rect, image.Transparent, image.Point{}, draw.Src)
}

// DrawImage draws src scaled into the destination rectangle.
func (c *Context2D) DrawImage(src image.Image, dx, dy, dw, dh float64) {
	if src == nil {
		return
	}
	dx, dy = dx+c.state.tx, dy+c.state.ty
	rect := image.Rect(int(math.Round(dx)), int(math.Round(dy)), int(math.Round(dx+dw)), int(math.Round(dy+dh))).Canon()
	if rect.Empty() {
		return
	}

	var opts *xdraw.Options
	if c.state.alpha < 1 {
		opts = &xdraw.Options{SrcMask: image.NewUniform(color.Alpha{A: uint8(math.Round(c.state.alpha * 255))})}
	}
	c.render(func(dst *image.RGBA) {
		xdraw.BiLinear.Scale(dst, rect, src, src.Bounds(), xdraw.Over, opts)
	})
}

// FillText draws text anchored according to the text align and baseline.
func (c *Context2D) FillText(text string, x, y float64) {
	if text == "" {
		return
	}
	face := c.face()
	x, y = c.anchorText(face, text, x+c.state.tx, y+c.state.ty)
	col := c.paint(c.state.fill)

	c.render(func(dst *image.RGBA) {
		d := &font.Drawer{
			Dst:  dst,
			Src:  image.NewUniform(col),
			Face: face,
			Dot:  fixed.Point26_6{X: toFixed(x), Y: toFixed(y)},
		}
		d.DrawString(text)
	})
}

// MeasureText returns the advance width of text in pixels.
func (c *Context2D) MeasureText(text string) float64 {
	d := &font.Drawer{Face: c.face()}
	return fromFixed(d.MeasureString(text))
}

// LineHeight returns ascent plus descent of the current font.
func (c *Context2D) LineHeight() float64 {
	m := c.face().Metrics()
	return fromFixed(m.Ascent + m.Descent)
}

func (c *Context2D) anchorText(face font.Face, text string, x, y float64) (float64, float64) {
	switch c.state.align {
	case AlignCenter:
		x -= c.MeasureText(text) / 2
	case AlignRight:
		x -= c.MeasureText(text)
	}

	m := face.Metrics()
	ascent, descent := fromFixed(m.Ascent), fromFixed(m.Descent)
	switch c.state.baseline {
	case BaselineTop:
		y += ascent
	case BaselineMiddle:
		y += (ascent - descent) / 2
	case BaselineBottom:
		y -= descent
	}
	return x, y
}

func (c *Context2D) current() *subpath {
	if len(c.path) == 0 {
		return nil
	}
	last := &c.path[len(c.path)-1]
	if last.closed {
		// A segment after ClosePath starts a new subpath at the closed one's origin.
		c.path = append(c.path, subpath{points: []point{last.points[0]}})
		return &c.path[len(c.path)-1]
	}
	return last
}

func (c *Context2D) transform(x, y float64) point {
	return point{x: x + c.state.tx, y: y + c.state.ty}
}

// paint applies the global alpha to col.
func (c *Context2D) paint(col color.Color) color.NRGBA {
	if col == nil {
		return color.NRGBA{}
	}
	return colour.WithAlpha(col, c.state.alpha)
}

func (c *Context2D) fillPath(paths []subpath) {
	col := c.paint(c.state.fill)
	if col.A == 0 || len(paths) == 0 {
		return
	}
	c.render(func(dst *image.RGBA) {
		w, h := dst.Bounds().Dx(), dst.Bounds().Dy()
		scanner := rasterx.NewScannerGV(w, h, dst, dst.Bounds())
		filler := rasterx.NewFiller(w, h, scanner)
		filler.SetColor(col)
		addPaths(filler, paths, true)
		filler.Draw()
	})
}

func (c *Context2D) strokePath(paths []subpath) {
	col := c.paint(c.state.stroke)
	if col.A == 0 || c.state.lineWidth == 0 || len(paths) == 0 {
		return
	}
	dash := c.state.lineDash
	width := c.state.lineWidth
	c.render(func(dst *image.RGBA) {
		w, h := dst.Bounds().Dx(), dst.Bounds().Dy()
		scanner := rasterx.NewScannerGV(w, h, dst, dst.Bounds())
		dasher := rasterx.NewDasher(w, h, scanner)
		dasher.SetStroke(toFixed(width), toFixed(4), rasterx.ButtCap, rasterx.ButtCap,
			rasterx.FlatGap, rasterx.Miter, dash, 0)
		dasher.SetColor(col)
		addPaths(dasher, paths, false)
		dasher.Draw()
	})
}

// render runs fn against the canvas raster, or against a scratch layer that
// is then composited underneath when drawing destination-over.
func (c *Context2D) render(fn func(dst *image.RGBA)) {
	img := c.canvas.Image()
	if img == nil {
		return
	}
	if c.state.composite != DestinationOver {
		fn(img)
		return
	}
	layer := image.NewRGBA(img.Bounds())
	fn(layer)
	compositeUnder(img, layer)
}

// compositeUnder places src beneath dst. Both are premultiplied and share bounds.
func compositeUnder(dst, src *image.RGBA) {
	for i := 0; i+3 < len(dst.Pix) && i+3 < len(src.Pix); i += 4 {
		inv := 255 - uint32(dst.Pix[i+3])
		if inv == 0 {
			continue
		}
		for k := 0; k < 4; k++ {
			dst.Pix[i+k] += uint8((uint32(src.Pix[i+k])*inv + 127) / 255)
		}
	}
}

type pathAdder interface {
	Start(a fixed.Point26_6)
	Line(b fixed.Point26_6)
	Stop(closeLoop bool)
}

func addPaths(a pathAdder, paths []subpath, forceClose bool) {
	for _, sp := range paths {
		if len(sp.points) < 2 {
			continue
		}
		a.Start(toPoint(sp.points[0]))
		for _, p := range sp.points[1:] {
			a.Line(toPoint(p))
		}
		a.Stop(forceClose || sp.closed)
	}
}

func rectPath(x, y, w, h float64) subpath {
	return subpath{
		points: []point{{x, y}, {x + w, y}, {x + w, y + h}, {x, y + h}},
		closed: true,
	}
}

func isIntegral(values ...float64) bool {
	for _, v := range values {
		if v != math.Trunc(v) {
			return false
		}
	}
	return true
}

func toFixed(v float64) fixed.Int26_6 {
	return fixed.Int26_6(math.Round(v * 64))
}

func fromFixed(v fixed.Int26_6) float64 {
	return float64(v) / 64
}

func toPoint(p point) fixed.Point26_6 {
	return fixed.Point26_6{X: toFixed(p.x), Y: toFixed(p.y)}
}
