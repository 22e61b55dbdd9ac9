package extensions

import (
	"context"
	"fmt"

	"github.com/ankek/terraform-provider-chartrender/internal/canvas"
	"github.com/ankek/terraform-provider-chartrender/internal/colour"
	"github.com/ankek/terraform-provider-chartrender/internal/engine"
	"github.com/ankek/terraform-provider-chartrender/internal/plugin"
)

type watermarkOptions struct {
	Text     string  `json:"text"`
	Colour   string  `json:"colour"`
	Size     float64 `json:"size"`
	Position string  `json:"position"` // center, bottom-right
}

type watermark struct {
	base
}

func newWatermark(_ context.Context, s *plugin.Scope) (*plugin.Module, error) {
	return &plugin.Module{Plugin: &watermark{newBase(s, "watermark")}}, nil
}

func (w *watermark) AfterDraw(c *engine.Chart, opts engine.PluginOptions) error {
	o := watermarkOptions{Text: "DRAFT", Colour: "rgba(0, 0, 0, 0.15)", Size: 32, Position: "center"}
	if err := w.decode(opts, &o); err != nil {
		return err
	}
	if o.Text == "" {
		return nil
	}
	col, err := colour.Parse(o.Colour)
	if err != nil {
		return fmt.Errorf("watermark colour: %w", err)
	}

	ctx := c.Ctx()
	ctx.Save()
	defer ctx.Restore()
	ctx.SetFontSize(o.Size)
	ctx.SetFillStyle(col)

	switch o.Position {
	case "bottom-right":
		ctx.SetTextAlign(canvas.AlignRight)
		ctx.SetTextBaseline(canvas.BaselineBottom)
		ctx.FillText(o.Text, c.Width()-8, c.Height()-8)
	case "center", "":
		ctx.SetTextAlign(canvas.AlignCenter)
		ctx.SetTextBaseline(canvas.BaselineMiddle)
		ctx.FillText(o.Text, c.Width()/2, c.Height()/2)
	default:
		return fmt.Errorf("unsupported watermark position %q", o.Position)
	}
	return nil
}
