package renderer

import (
	"context"
	"errors"

	"github.com/ankek/terraform-provider-chartrender/internal/engine"
)

// RenderChart draws spec onto a new canvas and returns the chart, which owns
// the canvas until destroyed. Responsiveness and animation are switched off
// on spec itself.
func (s *Service) RenderChart(ctx context.Context, spec *engine.Config) (*engine.Chart, error) {
	if spec == nil {
		return nil, errors.New("chart configuration is required")
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	cv := s.newSurface(s.width, s.height)

	if spec.Options == nil {
		spec.Options = &engine.Options{}
	}
	spec.Options.Responsive = false
	spec.Options.Animation = false

	return s.engine.NewChart(ctx, cv.GetContext("2d"), spec, engine.WithImages(s.images))
}
