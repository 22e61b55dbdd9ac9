package extensions

import (
	"context"
	"errors"
	"fmt"

	"github.com/ankek/terraform-provider-chartrender/internal/engine"
	"github.com/ankek/terraform-provider-chartrender/internal/plugin"
)

type logoOptions struct {
	Src      string   `json:"src"`
	Width    float64  `json:"width"`
	Height   float64  `json:"height"`
	Position string   `json:"position"` // top-left, top-right, bottom-left, bottom-right
	Margin   *float64 `json:"margin"`
	Opacity  *float64 `json:"opacity"`
}

// logo draws an image resolved through the chart's image loader, which is
// only available while the chart is being constructed.
type logo struct {
	base
}

func newLogo(_ context.Context, s *plugin.Scope) (*plugin.Module, error) {
	return &plugin.Module{Plugin: &logo{newBase(s, "logo")}}, nil
}

func (l *logo) AfterDraw(c *engine.Chart, opts engine.PluginOptions) error {
	o := logoOptions{Position: "top-right"}
	if err := l.decode(opts, &o); err != nil {
		return err
	}
	if o.Src == "" {
		return nil
	}

	loader := c.Images()
	if loader == nil {
		return errors.New("no image loader available")
	}
	img, err := loader.Load(c.Context(), o.Src)
	if err != nil {
		return fmt.Errorf("logo: %w", err)
	}

	bounds := img.Bounds()
	w, h := o.Width, o.Height
	switch {
	case w <= 0 && h <= 0:
		w, h = float64(bounds.Dx()), float64(bounds.Dy())
	case w <= 0:
		w = h * float64(bounds.Dx()) / float64(bounds.Dy())
	case h <= 0:
		h = w * float64(bounds.Dy()) / float64(bounds.Dx())
	}

	margin := 8.0
	if o.Margin != nil {
		margin = *o.Margin
	}
	var x, y float64
	switch o.Position {
	case "top-left":
		x, y = margin, margin
	case "top-right":
		x, y = c.Width()-w-margin, margin
	case "bottom-left":
		x, y = margin, c.Height()-h-margin
	case "bottom-right":
		x, y = c.Width()-w-margin, c.Height()-h-margin
	default:
		return fmt.Errorf("unsupported logo position %q", o.Position)
	}

	ctx := c.Ctx()
	ctx.Save()
	defer ctx.Restore()
	if o.Opacity != nil {
		ctx.SetGlobalAlpha(*o.Opacity)
	}
	ctx.DrawImage(img, x, y, w, h)
	return nil
}
