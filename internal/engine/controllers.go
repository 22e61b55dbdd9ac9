package engine

import (
	"errors"
	"image/color"
	"math"

	"github.com/ankek/terraform-provider-chartrender/internal/colour"
)

const (
	categoryPercentage = 0.8
	barPercentage      = 0.9
	defaultLineWidth   = 3
	defaultPointRadius = 3
	defaultArcBorder   = 2
)

func (c *Chart) datasetColours(index int, ds *Dataset, element int) (fill, border color.NRGBA) {
	base := c.engine.paletteColour(index)
	return ds.BackgroundColor.At(element, colour.WithAlpha(base, 0.5)), ds.BorderColor.At(element, base)
}

type barController struct{}

func (barController) ID() string      { return "bar" }
func (barController) Cartesian() bool { return true }

// barGeometry returns the category band width, the width of one bar and
// the offset of dataset index within its category.
func barGeometry(c *Chart, index int) (band, barWidth, offset float64) {
	group := c.Datasets("bar")
	slot := 0
	for i, idx := range group {
		if idx == index {
			slot = i
		}
	}
	band = c.x.Band() * categoryPercentage
	width := band / float64(max(len(group), 1))
	barWidth = width * barPercentage
	offset = -band/2 + width*float64(slot) + (width-barWidth)/2
	return band, barWidth, offset
}

func (barController) DrawDataset(c *Chart, index int) error {
	if c.x == nil {
		return errors.New("bar datasets need a category x axis")
	}
	ds := c.config.Data.Datasets[index]
	_, barWidth, offset := barGeometry(c, index)
	base := c.y.Pixel(math.Max(c.y.Min, math.Min(0, c.y.Max)))

	borderWidth := 0.0
	if ds.BorderWidth != nil {
		borderWidth = *ds.BorderWidth
	}

	ctx := c.ctx
	for j, p := range ds.Data {
		if p.Null {
			continue
		}
		left := c.x.Pixel(j) + offset
		top := c.y.Pixel(p.Y)
		y, h := math.Min(top, base), math.Abs(base-top)

		fill, border := c.datasetColours(index, ds, j)
		ctx.SetFillStyle(fill)
		ctx.BeginPath()
		ctx.Rect(left, y, barWidth, h)
		ctx.Fill()
		if borderWidth > 0 {
			ctx.SetStrokeStyle(border)
			ctx.SetLineWidth(borderWidth)
			ctx.Stroke()
		}
	}
	return nil
}

func (barController) position(c *Chart, index, j int) (float64, float64, bool) {
	if c.x == nil {
		return 0, 0, false
	}
	_, barWidth, offset := barGeometry(c, index)
	return c.x.Pixel(j) + offset + barWidth/2, c.y.Pixel(c.config.Data.Datasets[index].Data[j].Y), true
}

// lineController draws line charts, and scatter charts when scatter is set.
type lineController struct {
	scatter bool
}

func (l lineController) ID() string {
	if l.scatter {
		return "scatter"
	}
	return "line"
}

func (lineController) Cartesian() bool { return true }

func (l lineController) DrawDataset(c *Chart, index int) error {
	ds := c.config.Data.Datasets[index]
	ctx := c.ctx
	fill, border := c.datasetColours(index, ds, 0)

	if !l.scatter {
		width := float64(defaultLineWidth)
		if ds.BorderWidth != nil {
			width = *ds.BorderWidth
		}
		ctx.SetStrokeStyle(border)
		ctx.SetLineWidth(width)
		ctx.BeginPath()
		open := false
		for j, p := range ds.Data {
			if p.Null {
				open = false
				continue
			}
			x, y := c.XPixel(j, p), c.y.Pixel(p.Y)
			if open {
				ctx.LineTo(x, y)
			} else {
				ctx.MoveTo(x, y)
				open = true
			}
		}
		ctx.Stroke()
	}

	radius := float64(defaultPointRadius)
	if ds.PointRadius != nil {
		radius = *ds.PointRadius
	}
	if radius <= 0 {
		return nil
	}
	ctx.SetLineWidth(1)
	for j, p := range ds.Data {
		if p.Null {
			continue
		}
		x, y := c.XPixel(j, p), c.y.Pixel(p.Y)
		ctx.BeginPath()
		ctx.Arc(x, y, radius, 0, 2*math.Pi, false)
		ctx.ClosePath()
		ctx.SetFillStyle(fill)
		ctx.Fill()
		ctx.SetStrokeStyle(border)
		ctx.Stroke()
	}
	return nil
}

func (lineController) position(c *Chart, index, j int) (float64, float64, bool) {
	p := c.config.Data.Datasets[index].Data[j]
	return c.XPixel(j, p), c.y.Pixel(p.Y), true
}

// arcController draws pie charts, and doughnut charts when doughnut is set.
// Each visible dataset is one ring.
type arcController struct {
	doughnut bool
}

func (a arcController) ID() string {
	if a.doughnut {
		return "doughnut"
	}
	return "pie"
}

func (arcController) Cartesian() bool { return false }

// rings returns the centre and the inner and outer radius of dataset index.
func (a arcController) rings(c *Chart, index int) (cx, cy, r0, r1 float64) {
	rings := c.Datasets(a.ID())
	ring := 0
	for i, idx := range rings {
		if idx == index {
			ring = i
		}
	}

	area := c.ChartArea
	cx, cy = (area.Left+area.Right)/2, (area.Top+area.Bottom)/2
	outer := math.Max(math.Min(area.Width(), area.Height())/2, 0)
	cutout := 0.0
	if a.doughnut {
		cutout = 50
	}
	if o := c.config.Options; o != nil && o.Cutout != nil {
		cutout = math.Min(math.Max(*o.Cutout, 0), 95)
	}
	inner := outer * cutout / 100
	thickness := (outer - inner) / float64(max(len(rings), 1))
	r0 = inner + thickness*float64(ring)
	return cx, cy, r0, r0 + thickness
}

// sweeps returns the start angle and sweep of every element; null and zero
// values get a zero sweep.
func sweeps(ds *Dataset) (starts, spans []float64) {
	total := 0.0
	for _, p := range ds.Data {
		if !p.Null {
			total += math.Abs(p.Y)
		}
	}
	starts = make([]float64, len(ds.Data))
	spans = make([]float64, len(ds.Data))
	angle := -math.Pi / 2
	for j, p := range ds.Data {
		starts[j] = angle
		if p.Null || total == 0 {
			continue
		}
		spans[j] = math.Abs(p.Y) / total * 2 * math.Pi
		angle += spans[j]
	}
	return starts, spans
}

func (a arcController) DrawDataset(c *Chart, index int) error {
	ds := c.config.Data.Datasets[index]
	cx, cy, r0, r1 := a.rings(c, index)
	starts, spans := sweeps(ds)

	borderWidth := float64(defaultArcBorder)
	if ds.BorderWidth != nil {
		borderWidth = *ds.BorderWidth
	}
	ctx := c.ctx
	for j := range ds.Data {
		if spans[j] == 0 {
			continue
		}
		start, end := starts[j], starts[j]+spans[j]
		fill := ds.BackgroundColor.At(j, c.engine.paletteColour(j))
		border := ds.BorderColor.At(j, colour.MustParse("#ffffff"))

		ctx.BeginPath()
		if r0 <= 0 {
			ctx.MoveTo(cx, cy)
			ctx.Arc(cx, cy, r1, start, end, false)
		} else {
			ctx.Arc(cx, cy, r1, start, end, false)
			ctx.Arc(cx, cy, r0, end, start, true)
		}
		ctx.ClosePath()
		ctx.SetFillStyle(fill)
		ctx.Fill()
		if borderWidth > 0 {
			ctx.SetStrokeStyle(border)
			ctx.SetLineWidth(borderWidth)
			ctx.Stroke()
		}
	}
	return nil
}

func (a arcController) position(c *Chart, index, j int) (float64, float64, bool) {
	starts, spans := sweeps(c.config.Data.Datasets[index])
	if spans[j] == 0 {
		return 0, 0, false
	}
	cx, cy, r0, r1 := a.rings(c, index)
	mid, r := starts[j]+spans[j]/2, (r0+r1)/2
	if r0 <= 0 {
		r = r1 * 0.6
	}
	return cx + r*math.Cos(mid), cy + r*math.Sin(mid), true
}

// positioner is implemented by controllers that can locate their elements.
type positioner interface {
	position(c *Chart, index, j int) (x, y float64, ok bool)
}

// ElementPosition returns the anchor point of data element j of dataset
// index: the top centre of a bar, a line or scatter point, or the middle of
// an arc.
func (c *Chart) ElementPosition(index, j int) (x, y float64, ok bool) {
	if c.ctx == nil || index < 0 || index >= len(c.config.Data.Datasets) {
		return 0, 0, false
	}
	ds := c.config.Data.Datasets[index]
	if ds == nil || ds.Hidden || j < 0 || j >= len(ds.Data) || ds.Data[j].Null {
		return 0, 0, false
	}
	p, ok := c.controllers[index].(positioner)
	if !ok {
		return 0, 0, false
	}
	return p.position(c, index, j)
}
