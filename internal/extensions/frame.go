package extensions

import (
	"context"
	"fmt"

	"github.com/ankek/terraform-provider-chartrender/internal/colour"
	"github.com/ankek/terraform-provider-chartrender/internal/engine"
	"github.com/ankek/terraform-provider-chartrender/internal/plugin"
)

type frameOptions struct {
	Colour string    `json:"colour"`
	Width  float64   `json:"width"`
	Dash   []float64 `json:"dash"`
}

func (b base) frameStyle(opts engine.PluginOptions, defColour string) (frameOptions, error) {
	o := frameOptions{Colour: defColour, Width: 1}
	if err := b.decode(opts, &o); err != nil {
		return o, err
	}
	if o.Width <= 0 {
		o.Width = 1
	}
	return o, nil
}

func strokeFrame(c *engine.Chart, o frameOptions, a engine.Area) error {
	col, err := colour.Parse(o.Colour)
	if err != nil {
		return fmt.Errorf("frame colour: %w", err)
	}
	ctx := c.Ctx()
	ctx.Save()
	defer ctx.Restore()
	ctx.SetStrokeStyle(col)
	ctx.SetLineWidth(o.Width)
	ctx.SetLineDash(o.Dash)
	half := o.Width / 2
	ctx.StrokeRect(a.Left+half, a.Top+half, a.Width()-o.Width, a.Height()-o.Width)
	return nil
}

// border frames the whole canvas.
type border struct {
	base
}

// registerBorder registers the border with the engine being initialised and
// exports nothing.
func registerBorder(_ context.Context, s *plugin.Scope) (*plugin.Module, error) {
	if err := s.Engine().Register(&border{newBase(s, "border")}); err != nil {
		return nil, err
	}
	return &plugin.Module{}, nil
}

func (b *border) AfterDraw(c *engine.Chart, opts engine.PluginOptions) error {
	o, err := b.frameStyle(opts, "#999999")
	if err != nil {
		return err
	}
	return strokeFrame(c, o, engine.Area{Right: c.Width(), Bottom: c.Height()})
}

// outline frames the chart area.
type outline struct {
	base
}

// registerOutline registers the outline with the ambient engine, which is
// only bound while global variable modules load.
func registerOutline(_ context.Context, s *plugin.Scope) (*plugin.Module, error) {
	e, err := s.Global()
	if err != nil {
		return nil, err
	}
	if err := e.Register(&outline{newBase(s, "outline")}); err != nil {
		return nil, err
	}
	return &plugin.Module{}, nil
}

func (o *outline) AfterDatasetsDraw(c *engine.Chart, opts engine.PluginOptions) error {
	style, err := o.frameStyle(opts, "rgba(0, 0, 0, 0.25)")
	if err != nil {
		return err
	}
	return strokeFrame(c, style, c.ChartArea)
}
