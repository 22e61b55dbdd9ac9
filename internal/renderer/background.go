package renderer

import (
	"fmt"
	"image/color"

	"github.com/ankek/terraform-provider-chartrender/internal/canvas"
	"github.com/ankek/terraform-provider-chartrender/internal/colour"
	"github.com/ankek/terraform-provider-chartrender/internal/engine"
)

// BackgroundPluginID is the id the background fill registers under.
const BackgroundPluginID = "backgroundColour"

// BackgroundFillPlugin fills the whole surface with one colour underneath
// whatever the chart draws.
type BackgroundFillPlugin struct {
	width, height int
	colour        color.NRGBA
}

// NewBackgroundFillPlugin parses colour and returns a plugin filling a
// width x height surface with it.
func NewBackgroundFillPlugin(width, height int, colourSpec string) (*BackgroundFillPlugin, error) {
	c, err := colour.Parse(colourSpec)
	if err != nil {
		return nil, fmt.Errorf("invalid background colour: %w", err)
	}
	return &BackgroundFillPlugin{width: width, height: height, colour: c}, nil
}

func (p *BackgroundFillPlugin) ID() string { return BackgroundPluginID }

// Colour returns the fill colour.
func (p *BackgroundFillPlugin) Colour() color.NRGBA { return p.colour }

// BeforeDraw paints with destination-over so content already on the surface
// stays on top.
func (p *BackgroundFillPlugin) BeforeDraw(c *engine.Chart, _ engine.PluginOptions) error {
	ctx := c.Ctx()
	if ctx == nil {
		return nil
	}
	ctx.Save()
	defer ctx.Restore()
	ctx.SetGlobalCompositeOperation(canvas.DestinationOver)
	ctx.SetFillStyle(p.colour)
	ctx.FillRect(0, 0, float64(p.width), float64(p.height))
	return nil
}
