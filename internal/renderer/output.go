package renderer

import (
	"context"

	"github.com/ankek/terraform-provider-chartrender/internal/canvas"
	"github.com/ankek/terraform-provider-chartrender/internal/engine"
)

// RenderToBuffer renders spec and returns the encoded image. The format
// defaults to png.
func (s *Service) RenderToBuffer(ctx context.Context, spec *engine.Config, format ...string) ([]byte, error) {
	return render(ctx, s, spec, format, (*engine.Chart).Encode)
}

// RenderToDataURL renders spec and returns the image as a base64 data URL.
// The format defaults to png.
func (s *Service) RenderToDataURL(ctx context.Context, spec *engine.Config, format ...string) (string, error) {
	return render(ctx, s, spec, format, (*engine.Chart).DataURL)
}

// render encodes on its own goroutine which always destroys the chart when
// it finishes. A cancelled ctx returns early without waiting for it.
func render[T any](ctx context.Context, s *Service, spec *engine.Config, format []string, encode func(*engine.Chart, string) (T, error)) (T, error) {
	var zero T

	name := string(canvas.DefaultFormat)
	if len(format) > 0 && format[0] != "" {
		name = format[0]
	}
	f, err := canvas.ParseFormat(name)
	if err != nil {
		return zero, err
	}

	chart, err := s.RenderChart(ctx, spec)
	if err != nil {
		return zero, err
	}
	if chart.Canvas() == nil {
		chart.Destroy()
		return zero, &RenderSurfaceError{}
	}
	if err := ctx.Err(); err != nil {
		chart.Destroy()
		return zero, err
	}

	type result struct {
		value T
		err   error
	}
	done := make(chan result, 1)
	go func() {
		defer chart.Destroy()
		v, err := encode(chart, string(f))
		done <- result{v, err}
	}()

	select {
	case r := <-done:
		if r.err == nil {
			Logger().DebugContext(ctx, "chart rendered", "type", spec.Type, "format", string(f))
		}
		return r.value, r.err
	case <-ctx.Done():
		return zero, ctx.Err()
	}
}
