package extensions

import (
	"context"
	"fmt"
	"math"

	"github.com/ankek/terraform-provider-chartrender/internal/canvas"
	"github.com/ankek/terraform-provider-chartrender/internal/colour"
	"github.com/ankek/terraform-provider-chartrender/internal/engine"
	"github.com/ankek/terraform-provider-chartrender/internal/plugin"
)

type annotationLine struct {
	Axis   string    `json:"axis"` // "x" or "y"
	Value  float64   `json:"value"`
	Colour string    `json:"colour"`
	Width  float64   `json:"width"`
	Dash   []float64 `json:"dash"`
	Label  string    `json:"label"`
}

type annotationBox struct {
	XMin   *float64 `json:"xMin"`
	XMax   *float64 `json:"xMax"`
	YMin   *float64 `json:"yMin"`
	YMax   *float64 `json:"yMax"`
	Colour string   `json:"colour"`
}

type annotationOptions struct {
	Lines []annotationLine `json:"lines"`
	Boxes []annotationBox  `json:"boxes"`
}

// annotation draws lines and boxes positioned in data coordinates. Boxes go
// under the datasets, lines over them. Radial charts are ignored.
type annotation struct {
	base
}

func newAnnotation(_ context.Context, s *plugin.Scope) (*plugin.Module, error) {
	return &plugin.Module{Plugin: &annotation{newBase(s, "annotation")}}, nil
}

func (a *annotation) BeforeDatasetsDraw(c *engine.Chart, opts engine.PluginOptions) error {
	var o annotationOptions
	if err := a.decode(opts, &o); err != nil || c.YScale() == nil {
		return err
	}

	ctx := c.Ctx()
	ctx.Save()
	defer ctx.Restore()
	area := c.ChartArea

	for i, box := range o.Boxes {
		spec := box.Colour
		if spec == "" {
			spec = "rgba(255, 99, 132, 0.25)"
		}
		col, err := colour.Parse(spec)
		if err != nil {
			return fmt.Errorf("annotation box %d: %w", i, err)
		}

		left, right := area.Left, area.Right
		if box.XMin != nil {
			left = xPixel(c, *box.XMin)
		}
		if box.XMax != nil {
			right = xPixel(c, *box.XMax)
		}
		top, bottom := area.Top, area.Bottom
		if box.YMax != nil {
			top = c.YScale().Pixel(*box.YMax)
		}
		if box.YMin != nil {
			bottom = c.YScale().Pixel(*box.YMin)
		}

		left, right = clamp(math.Min(left, right), area.Left, area.Right), clamp(math.Max(left, right), area.Left, area.Right)
		top, bottom = clamp(math.Min(top, bottom), area.Top, area.Bottom), clamp(math.Max(top, bottom), area.Top, area.Bottom)
		ctx.SetFillStyle(col)
		ctx.BeginPath()
		ctx.Rect(left, top, right-left, bottom-top)
		ctx.Fill()
	}
	return nil
}

func (a *annotation) AfterDatasetsDraw(c *engine.Chart, opts engine.PluginOptions) error {
	var o annotationOptions
	if err := a.decode(opts, &o); err != nil || c.YScale() == nil {
		return err
	}

	ctx := c.Ctx()
	ctx.Save()
	defer ctx.Restore()
	area := c.ChartArea

	for i, line := range o.Lines {
		spec := line.Colour
		if spec == "" {
			spec = "#ff6384"
		}
		col, err := colour.Parse(spec)
		if err != nil {
			return fmt.Errorf("annotation line %d: %w", i, err)
		}
		width := line.Width
		if width <= 0 {
			width = 2
		}

		ctx.SetStrokeStyle(col)
		ctx.SetLineWidth(width)
		ctx.SetLineDash(line.Dash)
		ctx.BeginPath()

		var lx, ly float64
		switch line.Axis {
		case "x":
			x := xPixel(c, line.Value)
			ctx.MoveTo(x, area.Top)
			ctx.LineTo(x, area.Bottom)
			lx, ly = x+4, area.Top+2
			ctx.SetTextAlign(canvas.AlignLeft)
			ctx.SetTextBaseline(canvas.BaselineTop)
		case "y", "":
			y := c.YScale().Pixel(line.Value)
			ctx.MoveTo(area.Left, y)
			ctx.LineTo(area.Right, y)
			lx, ly = area.Right-4, y-3
			ctx.SetTextAlign(canvas.AlignRight)
			ctx.SetTextBaseline(canvas.BaselineBottom)
		default:
			return fmt.Errorf("annotation line %d: axis must be x or y, got %q", i, line.Axis)
		}
		ctx.Stroke()

		if line.Label != "" {
			ctx.SetFillStyle(col)
			ctx.FillText(line.Label, lx, ly)
		}
	}
	return nil
}

// xPixel maps an x value: data units on linear axes, a category index
// otherwise.
func xPixel(c *engine.Chart, v float64) float64 {
	if lin := c.XLinear(); lin != nil {
		return lin.Pixel(v)
	}
	cat := c.XScale()
	if cat == nil {
		return c.ChartArea.Left
	}
	i := int(math.Floor(v))
	frac := v - float64(i)
	x := cat.Pixel(i)
	if frac == 0 {
		return x
	}
	return x + (cat.Pixel(i+1)-x)*frac
}

func clamp(v, lo, hi float64) float64 {
	return math.Min(math.Max(v, lo), hi)
}
