package engine

import (
	"image/color"
	"math"

	"github.com/ankek/terraform-provider-chartrender/internal/canvas"
	"github.com/ankek/terraform-provider-chartrender/internal/colour"
)

const (
	tickGap      = 6
	minTickSpace = 40
)

func (c *Chart) layout() error {
	pad := c.engine.Defaults.Padding
	if o := c.config.Options; o != nil && o.Layout.Padding != nil {
		pad = *o.Layout.Padding
	}
	c.outer = Area{Left: pad, Top: pad, Right: c.Width() - pad, Bottom: c.Height() - pad}

	if err := c.notify(func(p activePlugin) error {
		if h, ok := p.plugin.(BeforeLayoutHook); ok {
			return h.BeforeLayout(c, p.opts)
		}
		return nil
	}); err != nil {
		return err
	}

	c.ChartArea = c.outer
	if c.cartesian {
		c.fitScales()
	}
	return nil
}

// ScaleOptions returns the options of axis "x" or "y", never nil.
func (c *Chart) ScaleOptions(axis string) *ScaleOptions {
	if o := c.config.Options; o != nil {
		if so := o.Scales[axis]; so != nil {
			return so
		}
	}
	return &ScaleOptions{}
}

func shown(flag *bool) bool {
	return flag == nil || *flag
}

func (c *Chart) fitScales() {
	xo, yo := c.ScaleOptions("x"), c.ScaleOptions("y")
	c.xShown, c.yShown = shown(xo.Display), shown(yo.Display)

	ymin, ymax := math.Inf(1), math.Inf(-1)
	xmin, xmax := math.Inf(1), math.Inf(-1)
	beginAtZero := yo.BeginAtZero
	linearX, offset := false, false
	count := len(c.config.Data.Labels)

	for i, ds := range c.config.Data.Datasets {
		ctrl := c.controllers[i]
		if ds == nil || ds.Hidden || !ctrl.Cartesian() {
			continue
		}
		switch ctrl.ID() {
		case "bar":
			beginAtZero, offset = true, true
		case "scatter":
			linearX = true
		}
		count = max(count, len(ds.Data))
		for j, p := range ds.Data {
			if p.Null {
				continue
			}
			ymin, ymax = math.Min(ymin, p.Y), math.Max(ymax, p.Y)
			x := float64(j)
			if p.HasX {
				x = p.X
			}
			xmin, xmax = math.Min(xmin, x), math.Max(xmax, x)
		}
	}
	if math.IsInf(ymin, 1) {
		ymin, ymax = 0, 1
	}
	if beginAtZero {
		ymin, ymax = math.Min(ymin, 0), math.Max(ymax, 0)
	}
	if yo.Min != nil {
		ymin = *yo.Min
	}
	if yo.Max != nil {
		ymax = *yo.Max
	}

	ctx := c.ctx
	ctx.Save()
	defer ctx.Restore()
	ctx.SetFontSize(c.engine.Defaults.FontSize)

	area := c.outer
	if c.xShown {
		area.Bottom -= ctx.LineHeight() + tickGap
	}

	c.y = NewLinearScale(ymin, ymax, int(math.Max(area.Height()/minTickSpace, 2)))
	if c.yShown {
		widest := 0.0
		for _, t := range c.y.Ticks {
			widest = math.Max(widest, ctx.MeasureText(c.y.Label(t)))
		}
		area.Left += widest + tickGap + 4
	}
	c.y.Start, c.y.End = area.Bottom, area.Top

	if linearX {
		if xo.Min != nil {
			xmin = *xo.Min
		}
		if xo.Max != nil {
			xmax = *xo.Max
		}
		c.xLin = NewLinearScale(xmin, xmax, int(math.Max(area.Width()/(minTickSpace*2), 2)))
		c.xLin.Start, c.xLin.End = area.Left, area.Right
	} else {
		c.x = &CategoryScale{
			Labels: c.config.Data.Labels,
			Count:  count,
			Offset: offset,
			Start:  area.Left,
			End:    area.Right,
		}
	}
	c.ChartArea = area
}

// XScale returns the category x scale, nil for linear x axes.
func (c *Chart) XScale() *CategoryScale { return c.x }

// XLinear returns the linear x scale of scatter charts.
func (c *Chart) XLinear() *LinearScale { return c.xLin }

// YScale returns the value scale of cartesian charts.
func (c *Chart) YScale() *LinearScale { return c.y }

// XPixel returns the x pixel position of data element j.
func (c *Chart) XPixel(j int, p Point) float64 {
	if c.xLin != nil {
		x := float64(j)
		if p.HasX {
			x = p.X
		}
		return c.xLin.Pixel(x)
	}
	return c.x.Pixel(j)
}

func (c *Chart) drawAxes() {
	ctx := c.ctx
	ctx.Save()
	defer ctx.Restore()

	d := c.engine.Defaults
	ctx.SetFontSize(d.FontSize)
	ctx.SetLineWidth(1)
	a := c.ChartArea
	xo, yo := c.ScaleOptions("x"), c.ScaleOptions("y")

	if c.yShown {
		grid, ticks := axisColours(yo, d)
		for _, t := range c.y.Ticks {
			py := crisp(c.y.Pixel(t))
			if shown(yo.Grid.Display) {
				ctx.SetStrokeStyle(grid)
				ctx.BeginPath()
				ctx.MoveTo(a.Left, py)
				ctx.LineTo(a.Right, py)
				ctx.Stroke()
			}
			ctx.SetFillStyle(ticks)
			ctx.SetTextAlign(canvas.AlignRight)
			ctx.SetTextBaseline(canvas.BaselineMiddle)
			ctx.FillText(c.y.Label(t), a.Left-tickGap, py)
		}
	}

	if !c.xShown {
		return
	}
	grid, ticks := axisColours(xo, d)
	ctx.SetTextAlign(canvas.AlignCenter)
	ctx.SetTextBaseline(canvas.BaselineTop)

	tick := func(px float64, label string) {
		if shown(xo.Grid.Display) {
			ctx.SetStrokeStyle(grid)
			ctx.BeginPath()
			ctx.MoveTo(crisp(px), a.Top)
			ctx.LineTo(crisp(px), a.Bottom)
			ctx.Stroke()
		}
		ctx.SetFillStyle(ticks)
		ctx.FillText(label, px, a.Bottom+tickGap/2)
	}
	if c.xLin != nil {
		for _, t := range c.xLin.Ticks {
			tick(c.xLin.Pixel(t), c.xLin.Label(t))
		}
		return
	}
	for i := 0; i < c.x.Count; i++ {
		tick(c.x.Pixel(i), c.x.Label(i))
	}
}

func axisColours(so *ScaleOptions, d Defaults) (grid, ticks color.NRGBA) {
	grid, ticks = d.GridColor, d.Color
	if parsed, err := colour.Parse(so.Grid.Color); so.Grid.Color != "" && err == nil {
		grid = parsed
	}
	if parsed, err := colour.Parse(so.Ticks.Color); so.Ticks.Color != "" && err == nil {
		ticks = parsed
	}
	return grid, ticks
}

// crisp centres a one pixel line on a pixel row or column.
func crisp(v float64) float64 {
	return math.Floor(v) + 0.5
}
