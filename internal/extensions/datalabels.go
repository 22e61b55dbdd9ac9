package extensions

import (
	"context"
	"fmt"
	"strconv"

	"github.com/ankek/terraform-provider-chartrender/internal/canvas"
	"github.com/ankek/terraform-provider-chartrender/internal/colour"
	"github.com/ankek/terraform-provider-chartrender/internal/engine"
	"github.com/ankek/terraform-provider-chartrender/internal/plugin"
)

type dataLabelOptions struct {
	Colour    string  `json:"colour"`
	Size      float64 `json:"size"`
	Decimals  *int    `json:"decimals"`
	Prefix    string  `json:"prefix"`
	Suffix    string  `json:"suffix"`
	Offset    float64 `json:"offset"`
	Datasets  []int   `json:"datasets"` // restrict to these dataset indexes
	HideZeros bool    `json:"hideZeros"`
}

type dataLabels struct {
	base
}

func newDataLabels(_ context.Context, s *plugin.Scope) (*plugin.Module, error) {
	return &plugin.Module{Plugin: &dataLabels{newBase(s, "datalabels")}}, nil
}

func (d *dataLabels) AfterDatasetsDraw(c *engine.Chart, opts engine.PluginOptions) error {
	o := dataLabelOptions{Colour: "#444444", Size: 11, Offset: 4}
	if err := d.decode(opts, &o); err != nil {
		return err
	}
	col, err := colour.Parse(o.Colour)
	if err != nil {
		return fmt.Errorf("datalabels colour: %w", err)
	}

	ctx := c.Ctx()
	ctx.Save()
	defer ctx.Restore()
	ctx.SetFontSize(o.Size)
	ctx.SetFillStyle(col)
	ctx.SetTextAlign(canvas.AlignCenter)

	cartesian := c.YScale() != nil
	if cartesian {
		ctx.SetTextBaseline(canvas.BaselineBottom)
	} else {
		ctx.SetTextBaseline(canvas.BaselineMiddle)
	}

	for i, ds := range c.Config().Data.Datasets {
		if ds == nil || !selected(o.Datasets, i) {
			continue
		}
		for j, p := range ds.Data {
			if p.Null || (o.HideZeros && p.Y == 0) {
				continue
			}
			x, y, ok := c.ElementPosition(i, j)
			if !ok {
				continue
			}
			if cartesian {
				y -= o.Offset
			}
			ctx.FillText(o.Prefix+formatValue(p.Y, o.Decimals)+o.Suffix, x, y)
		}
	}
	return nil
}

func selected(indexes []int, i int) bool {
	if len(indexes) == 0 {
		return true
	}
	for _, idx := range indexes {
		if idx == i {
			return true
		}
	}
	return false
}

func formatValue(v float64, decimals *int) string {
	if decimals == nil {
		return strconv.FormatFloat(v, 'f', -1, 64)
	}
	return strconv.FormatFloat(v, 'f', *decimals, 64)
}
