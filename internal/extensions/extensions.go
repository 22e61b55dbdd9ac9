// Package extensions provides the built-in plugin modules. Importing it
// registers them in the default plugin catalog:
//
//	watermark   text stamped over the finished chart
//	datalabels  data values drawn next to their elements
//	annotation  reference lines and boxes in data coordinates
//	logo        an image drawn over the chart
//	border      frame around the canvas; registers itself with the engine on load
//	outline     frame around the chart area; registers itself through the ambient engine
package extensions

import (
	"github.com/ankek/terraform-provider-chartrender/internal/engine"
	"github.com/ankek/terraform-provider-chartrender/internal/plugin"
)

func init() {
	plugin.Register("watermark", newWatermark)
	plugin.Register("datalabels", newDataLabels)
	plugin.Register("annotation", newAnnotation)
	plugin.Register("logo", newLogo)
	plugin.Register("border", registerBorder)
	plugin.Register("outline", registerOutline)
}

// base holds what every extension keeps from its scope.
type base struct {
	id       string
	defaults map[string]any
}

func newBase(s *plugin.Scope, id string) base {
	return base{id: s.PluginID(id), defaults: s.Options}
}

func (b base) ID() string { return b.id }

// decode layers per-chart options over descriptor defaults.
func (b base) decode(opts engine.PluginOptions, out any) error {
	if len(b.defaults) > 0 {
		if err := engine.NewPluginOptions(b.defaults).Decode(out); err != nil {
			return err
		}
	}
	return opts.Decode(out)
}
