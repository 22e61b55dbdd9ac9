package engine

import (
	"image/color"
	"math"

	"github.com/ankek/terraform-provider-chartrender/internal/canvas"
	"github.com/ankek/terraform-provider-chartrender/internal/colour"
)

type fontOptions struct {
	Size float64 `json:"size"`
}

type titleOptions struct {
	Display  bool        `json:"display"`
	Text     string      `json:"text"`
	Color    string      `json:"color"`
	Position string      `json:"position"`
	Padding  *float64    `json:"padding"`
	Font     fontOptions `json:"font"`
}

// titlePlugin draws options.plugins.title. It is off unless display is set.
type titlePlugin struct{}

func (titlePlugin) ID() string { return "title" }

func (titlePlugin) options(opts PluginOptions) (titleOptions, error) {
	o := titleOptions{Font: fontOptions{Size: 16}}
	err := opts.Decode(&o)
	return o, err
}

func (t titlePlugin) BeforeLayout(c *Chart, opts PluginOptions) error {
	o, err := t.options(opts)
	if err != nil || !o.Display || o.Text == "" {
		return err
	}
	pad := 10.0
	if o.Padding != nil {
		pad = *o.Padding
	}
	ctx := c.Ctx()
	ctx.Save()
	ctx.SetFontSize(o.Font.Size)
	h := ctx.LineHeight() + 2*pad
	ctx.Restore()

	side := Top
	if o.Position == "bottom" {
		side = Bottom
	}
	c.Reserve(t.ID(), side, h)
	return nil
}

func (t titlePlugin) BeforeDatasetsDraw(c *Chart, opts PluginOptions) error {
	box, ok := c.Box(t.ID())
	if !ok {
		return nil
	}
	o, err := t.options(opts)
	if err != nil {
		return err
	}
	ctx := c.Ctx()
	ctx.Save()
	defer ctx.Restore()
	ctx.SetFontSize(o.Font.Size)
	ctx.SetFillStyle(textColour(o.Color, c.engine.Defaults.Color))
	ctx.SetTextAlign(canvas.AlignCenter)
	ctx.SetTextBaseline(canvas.BaselineMiddle)
	ctx.FillText(o.Text, (box.Left+box.Right)/2, (box.Top+box.Bottom)/2)
	return nil
}

type legendOptions struct {
	Display  *bool  `json:"display"`
	Position string `json:"position"`
	Labels   struct {
		Color    string  `json:"color"`
		BoxWidth float64 `json:"boxWidth"`
	} `json:"labels"`
}

type legendItem struct {
	text         string
	fill, border color.NRGBA
}

const legendSpacing = 10

// legendPlugin lists datasets, or the data labels of radial charts.
type legendPlugin struct{}

func (legendPlugin) ID() string { return "legend" }

func (legendPlugin) options(opts PluginOptions) (legendOptions, error) {
	var o legendOptions
	o.Labels.BoxWidth = 12
	err := opts.Decode(&o)
	return o, err
}

func (l legendPlugin) BeforeLayout(c *Chart, opts PluginOptions) error {
	o, err := l.options(opts)
	if err != nil || !shown(o.Display) || len(legendItems(c)) == 0 {
		return err
	}
	ctx := c.Ctx()
	ctx.Save()
	ctx.SetFontSize(c.engine.Defaults.FontSize)
	h := math.Max(ctx.LineHeight(), o.Labels.BoxWidth) + legendSpacing
	ctx.Restore()

	side := Top
	if o.Position == "bottom" {
		side = Bottom
	}
	c.Reserve(l.ID(), side, h)
	return nil
}

func (l legendPlugin) BeforeDatasetsDraw(c *Chart, opts PluginOptions) error {
	box, ok := c.Box(l.ID())
	if !ok {
		return nil
	}
	o, err := l.options(opts)
	if err != nil {
		return err
	}
	items := legendItems(c)

	ctx := c.Ctx()
	ctx.Save()
	defer ctx.Restore()
	ctx.SetFontSize(c.engine.Defaults.FontSize)
	boxW := o.Labels.BoxWidth

	total := 0.0
	widths := make([]float64, len(items))
	for i, it := range items {
		widths[i] = boxW + 4 + ctx.MeasureText(it.text)
		total += widths[i]
	}
	total += legendSpacing * float64(len(items)-1)

	x := math.Max(box.Left, (box.Left+box.Right-total)/2)
	cy := (box.Top + box.Bottom) / 2
	ctx.SetTextBaseline(canvas.BaselineMiddle)
	ctx.SetTextAlign(canvas.AlignLeft)
	ctx.SetLineWidth(1)
	for i, it := range items {
		ctx.SetFillStyle(it.fill)
		ctx.FillRect(x, cy-boxW/2, boxW, boxW)
		ctx.SetStrokeStyle(it.border)
		ctx.StrokeRect(x, cy-boxW/2, boxW, boxW)
		ctx.SetFillStyle(textColour(o.Labels.Color, c.engine.Defaults.Color))
		ctx.FillText(it.text, x+boxW+4, cy)
		x += widths[i] + legendSpacing
	}
	return nil
}

func legendItems(c *Chart) []legendItem {
	var items []legendItem
	if !c.cartesian {
		var first *Dataset
		for _, ds := range c.config.Data.Datasets {
			if ds != nil && !ds.Hidden {
				first = ds
				break
			}
		}
		if first == nil {
			return nil
		}
		for j, label := range c.config.Data.Labels {
			items = append(items, legendItem{
				text:   label,
				fill:   first.BackgroundColor.At(j, c.engine.paletteColour(j)),
				border: first.BorderColor.At(j, colour.MustParse("#ffffff")),
			})
		}
		return items
	}
	for i, ds := range c.config.Data.Datasets {
		if ds == nil || ds.Label == "" {
			continue
		}
		fill, border := c.datasetColours(i, ds, 0)
		items = append(items, legendItem{text: ds.Label, fill: fill, border: border})
	}
	return items
}

func textColour(s string, fallback color.NRGBA) color.NRGBA {
	if s == "" {
		return fallback
	}
	c, err := colour.Parse(s)
	if err != nil {
		return fallback
	}
	return c
}
