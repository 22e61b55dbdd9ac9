package renderer

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"image"
	"image/color"
	"image/draw"
	"image/png"
	"log/slog"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/ankek/terraform-provider-chartrender/internal/canvas"
	"github.com/ankek/terraform-provider-chartrender/internal/engine"
	"github.com/ankek/terraform-provider-chartrender/internal/plugin"
)

const barSpec = `{"type":"bar","data":{"labels":["a"],"datasets":[{"data":[1]}]}}`

func mustSpec(t *testing.T, src string) *engine.Config {
	t.Helper()
	cfg, err := engine.ParseConfig([]byte(src))
	if err != nil {
		t.Fatalf("ParseConfig() error = %v", err)
	}
	return cfg
}

func mustService(t *testing.T, cfg *Config, opts ...Option) *Service {
	t.Helper()
	s, err := New(context.Background(), cfg, opts...)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	return s
}

func decode(t *testing.T, data []byte) *image.NRGBA {
	t.Helper()
	img, err := png.Decode(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("png.Decode() error = %v", err)
	}
	out := image.NewNRGBA(img.Bounds())
	draw.Draw(out, out.Bounds(), img, img.Bounds().Min, draw.Src)
	return out
}

// stamp paints a 4x4 square in the top-left corner after the chart is drawn.
type stamp struct {
	id     string
	colour color.NRGBA
}

func (s stamp) ID() string { return s.id }

func (s stamp) AfterDraw(c *engine.Chart, _ engine.PluginOptions) error {
	c.Ctx().SetFillStyle(s.colour)
	c.Ctx().FillRect(0, 0, 4, 4)
	return nil
}

func TestNewValidatesConfig(t *testing.T) {
	tests := []struct {
		name    string
		cfg     *Config
		wantErr string
	}{
		{name: "missing options", cfg: nil, wantErr: "An options parameter object is required"},
		{name: "missing width", cfg: &Config{Height: 100}, wantErr: "A width option is required"},
		{name: "negative width", cfg: &Config{Width: -1, Height: 100}, wantErr: "A width option is required"},
		{name: "missing height", cfg: &Config{Width: 100}, wantErr: "A height option is required"},
		{name: "zero height", cfg: &Config{Width: 100, Height: 0}, wantErr: "A height option is required"},
		{name: "valid", cfg: &Config{Width: 1, Height: 1}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, err := New(context.Background(), tt.cfg)
			if tt.wantErr == "" {
				if err != nil || s == nil {
					t.Fatalf("New() = %v, %v", s, err)
				}
				return
			}
			var cfgErr *ConfigurationError
			if !errors.As(err, &cfgErr) {
				t.Fatalf("New() error = %v, want ConfigurationError", err)
			}
			if cfgErr.Error() != tt.wantErr {
				t.Errorf("New() error = %q, want %q", cfgErr.Error(), tt.wantErr)
			}
			if s != nil {
				t.Error("New() returned a service alongside an error")
			}
		})
	}
}

func TestRenderToBufferTransparentByDefault(t *testing.T) {
	s := mustService(t, &Config{Width: 400, Height: 300})

	data, err := s.RenderToBuffer(context.Background(), mustSpec(t, barSpec))
	if err != nil {
		t.Fatalf("RenderToBuffer() error = %v", err)
	}
	img := decode(t, data)
	if img.Bounds().Dx() != 400 || img.Bounds().Dy() != 300 {
		t.Errorf("image bounds = %v, want 400x300", img.Bounds())
	}
	if got := img.NRGBAAt(0, 0); got.A != 0 {
		t.Errorf("first pixel = %v, want fully transparent", got)
	}
}

func TestBackgroundColour(t *testing.T) {
	s := mustService(t, &Config{Width: 400, Height: 300, BackgroundColour: "#ffffff"})

	data, err := s.RenderToBuffer(context.Background(), mustSpec(t, barSpec))
	if err != nil {
		t.Fatalf("RenderToBuffer() error = %v", err)
	}
	img := decode(t, data)
	white := color.NRGBA{255, 255, 255, 255}
	for _, p := range []image.Point{{0, 0}, {399, 0}, {0, 299}, {399, 299}} {
		if got := img.NRGBAAt(p.X, p.Y); got != white {
			t.Errorf("pixel %v = %v, want opaque white", p, got)
		}
	}

	plugins := s.Engine().Registry().Plugins()
	if last := plugins[len(plugins)-1].ID(); last != BackgroundPluginID {
		t.Errorf("last registered plugin = %q, want %q", last, BackgroundPluginID)
	}

	_, err = New(context.Background(), &Config{Width: 10, Height: 10, BackgroundColour: "not-a-colour"})
	var cfgErr *ConfigurationError
	if !errors.As(err, &cfgErr) {
		t.Errorf("New() with invalid colour error = %v, want ConfigurationError", err)
	}
}

func TestRenderChartForcesStaticOptions(t *testing.T) {
	s := mustService(t, &Config{Width: 50, Height: 50})

	tests := []struct {
		name string
		spec string
	}{
		{"options set true", `{"type":"line","data":{"labels":["a"],"datasets":[{"data":[1]}]},"options":{"responsive":true,"animation":true}}`},
		{"animation object", `{"type":"line","data":{"labels":["a"],"datasets":[{"data":[1]}]},"options":{"animation":{"duration":500}}}`},
		{"no options", `{"type":"line","data":{"labels":["a"],"datasets":[{"data":[1]}]}}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			spec := mustSpec(t, tt.spec)
			chart, err := s.RenderChart(context.Background(), spec)
			if err != nil {
				t.Fatalf("RenderChart() error = %v", err)
			}
			defer chart.Destroy()

			if spec.Options == nil || spec.Options.Responsive || spec.Options.Animation != false {
				t.Errorf("options = %+v, want responsive and animation false", spec.Options)
			}
		})
	}
}

func TestServicesAreIsolated(t *testing.T) {
	blue := color.NRGBA{0, 0, 255, 255}
	a := mustService(t, &Config{Width: 60, Height: 60, Plugins: &plugin.Set{
		Modern: []plugin.Ref{plugin.Object(stamp{id: "watermark", colour: blue})},
	}})
	b := mustService(t, &Config{Width: 60, Height: 60})

	if _, ok := b.Engine().Registry().Plugin("watermark"); ok {
		t.Fatal("plugin registered on A is visible to B")
	}

	for name, tc := range map[string]struct {
		s    *Service
		want color.NRGBA
	}{
		"with plugin":    {a, blue},
		"without plugin": {b, color.NRGBA{}},
	} {
		t.Run(name, func(t *testing.T) {
			data, err := tc.s.RenderToBuffer(context.Background(), mustSpec(t, barSpec))
			if err != nil {
				t.Fatalf("RenderToBuffer() error = %v", err)
			}
			if got := decode(t, data).NRGBAAt(1, 1); got != tc.want {
				t.Errorf("pixel = %v, want %v", got, tc.want)
			}
		})
	}
}

func TestBufferAndDataURLMatch(t *testing.T) {
	s := mustService(t, &Config{Width: 120, Height: 80, BackgroundColour: "#fafafa"})
	ctx := context.Background()
	spec := `{"type":"line","data":{"labels":["a","b","c"],"datasets":[{"label":"x","data":[3,1,2]}]}}`

	buf, err := s.RenderToBuffer(ctx, mustSpec(t, spec), "png")
	if err != nil {
		t.Fatalf("RenderToBuffer() error = %v", err)
	}
	url, err := s.RenderToDataURL(ctx, mustSpec(t, spec), "png")
	if err != nil {
		t.Fatalf("RenderToDataURL() error = %v", err)
	}
	if !strings.HasPrefix(url, "data:image/png;base64,") {
		t.Fatalf("RenderToDataURL() prefix = %q", url[:22])
	}
	raw, err := base64.StdEncoding.DecodeString(strings.TrimPrefix(url, "data:image/png;base64,"))
	if err != nil {
		t.Fatalf("payload is not base64: %v", err)
	}

	if !bytes.Equal(decode(t, buf).Pix, decode(t, raw).Pix) {
		t.Error("buffer and data URL decode to different pixels")
	}
}

func TestRenderSurfaceError(t *testing.T) {
	s := mustService(t, &Config{Width: 20, Height: 20})
	s.newSurface = func(w, h int) *canvas.Canvas {
		cv := canvas.New(w, h)
		cv.Release()
		return cv
	}

	_, err := s.RenderToBuffer(context.Background(), mustSpec(t, barSpec))
	var surfaceErr *RenderSurfaceError
	if !errors.As(err, &surfaceErr) || err.Error() != "Canvas is null" {
		t.Fatalf("RenderToBuffer() error = %v, want RenderSurfaceError", err)
	}
	if _, err := s.RenderToDataURL(context.Background(), mustSpec(t, barSpec)); !errors.As(err, &surfaceErr) {
		t.Errorf("RenderToDataURL() error = %v, want RenderSurfaceError", err)
	}

	// the service stays usable
	s.newSurface = canvas.New
	if _, err := s.RenderToBuffer(context.Background(), mustSpec(t, barSpec)); err != nil {
		t.Errorf("RenderToBuffer() after surface error = %v", err)
	}
}

type imageProbe struct {
	mu   sync.Mutex
	seen []*canvas.ImageLoader
}

func (*imageProbe) ID() string { return "probe" }

func (p *imageProbe) AfterInit(c *engine.Chart, _ engine.PluginOptions) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.seen = append(p.seen, c.Images())
	return nil
}

func TestImageLoaderOnlyDuringConstruction(t *testing.T) {
	images := canvas.NewImageLoader()
	probe := &imageProbe{}
	s := mustService(t, &Config{Width: 30, Height: 30, Plugins: &plugin.Set{
		Modern: []plugin.Ref{plugin.Object(probe)},
	}}, WithImageLoader(images))

	chart, err := s.RenderChart(context.Background(), mustSpec(t, barSpec))
	if err != nil {
		t.Fatalf("RenderChart() error = %v", err)
	}
	defer chart.Destroy()

	if len(probe.seen) != 1 || probe.seen[0] != images {
		t.Errorf("plugin saw %v, want the service image loader", probe.seen)
	}
	if chart.Images() != nil {
		t.Error("image loader still attached after construction")
	}
}

func TestInitializationOrder(t *testing.T) {
	var order []string
	catalog := plugin.NewCatalog()
	record := func(name string, register func(*plugin.Scope) (*plugin.Module, error)) {
		catalog.Register(name, func(_ context.Context, s *plugin.Scope) (*plugin.Module, error) {
			order = append(order, name)
			return register(s)
		})
	}
	export := func(id string) func(*plugin.Scope) (*plugin.Module, error) {
		return func(*plugin.Scope) (*plugin.Module, error) {
			return &plugin.Module{Plugin: stamp{id: id}}, nil
		}
	}
	record("legacy", func(s *plugin.Scope) (*plugin.Module, error) {
		return nil, s.Engine().Register(stamp{id: "legacy"})
	})
	record("global", func(s *plugin.Scope) (*plugin.Module, error) {
		e, err := s.Global()
		if err != nil {
			return nil, err
		}
		return nil, e.Register(stamp{id: "global"})
	})
	record("modern", export("modern"))
	record("required", export("required"))

	cfg := &Config{
		Width:  10,
		Height: 10,
		Plugins: &plugin.Set{
			Modern:               []plugin.Ref{plugin.Named("modern"), plugin.Object(stamp{id: "object"})},
			RequireChartJSLegacy: []string{"legacy"},
			GlobalVariableLegacy: []string{"global"},
			RequireLegacy:        []string{"required"},
		},
		ChartCallback: func(_ context.Context, e *engine.Engine) error {
			order = append(order, "callback")
			if _, ok := e.Registry().Plugin("required"); !ok {
				t.Error("callback ran before requireLegacy plugins were registered")
			}
			return nil
		},
		BackgroundColour: "white",
	}
	s := mustService(t, cfg, WithLoader(plugin.NewLoader(plugin.WithCatalog(catalog))))

	if want := []string{"legacy", "global", "modern", "required", "callback"}; !reflect.DeepEqual(order, want) {
		t.Errorf("load order = %v, want %v", order, want)
	}

	var ids []string
	for _, p := range s.Engine().Registry().Plugins() {
		ids = append(ids, p.ID())
	}
	want := []string{"title", "legend", "legacy", "global", "modern", "object", "required", BackgroundPluginID}
	if !reflect.DeepEqual(ids, want) {
		t.Errorf("registered plugins = %v, want %v", ids, want)
	}
}

func TestInitializationFailures(t *testing.T) {
	var retained *plugin.Scope
	catalog := plugin.NewCatalog()
	catalog.Register("retainer", func(_ context.Context, s *plugin.Scope) (*plugin.Module, error) {
		retained = s
		return nil, nil
	})
	loader := plugin.NewLoader(plugin.WithCatalog(catalog))
	callbackErr := errors.New("callback failed")

	tests := []struct {
		name  string
		cfg   *Config
		check func(t *testing.T, err error)
	}{
		{
			name: "unknown module",
			cfg:  &Config{Width: 1, Height: 1, Plugins: &plugin.Set{Modern: []plugin.Ref{plugin.Named("missing")}}},
			check: func(t *testing.T, err error) {
				var loadErr *plugin.ModuleLoadError
				if !errors.As(err, &loadErr) || loadErr.Ref != "missing" {
					t.Errorf("error = %v, want ModuleLoadError for missing", err)
				}
			},
		},
		{
			name: "required module exports nothing",
			cfg:  &Config{Width: 1, Height: 1, Plugins: &plugin.Set{RequireLegacy: []string{"retainer"}}},
			check: func(t *testing.T, err error) {
				if !errors.Is(err, plugin.ErrNoExport) {
					t.Errorf("error = %v, want ErrNoExport", err)
				}
			},
		},
		{
			name: "callback error",
			cfg: &Config{Width: 1, Height: 1, ChartCallback: func(context.Context, *engine.Engine) error {
				return callbackErr
			}},
			check: func(t *testing.T, err error) {
				if !errors.Is(err, callbackErr) {
					t.Errorf("error = %v, want callback error", err)
				}
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, err := New(context.Background(), tt.cfg, WithLoader(loader))
			if s != nil {
				t.Error("New() returned a service alongside an error")
			}
			tt.check(t, err)
		})
	}

	t.Run("global binding cleared", func(t *testing.T) {
		mustService(t, &Config{Width: 1, Height: 1, Plugins: &plugin.Set{GlobalVariableLegacy: []string{"retainer"}}}, WithLoader(loader))
		if retained == nil {
			t.Fatal("module did not run")
		}
		if _, err := retained.Global(); !errors.Is(err, plugin.ErrNoAmbientEngine) {
			t.Errorf("Global() after initialisation error = %v, want ErrNoAmbientEngine", err)
		}
	})
}

func TestRenderReleasesCharts(t *testing.T) {
	s := mustService(t, &Config{Width: 40, Height: 40})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := s.RenderToBuffer(ctx, mustSpec(t, barSpec)); !errors.Is(err, context.Canceled) {
		t.Errorf("RenderToBuffer() with cancelled context error = %v", err)
	}

	var wg sync.WaitGroup
	errs := make(chan error, 8)
	for i := 0; i < 8; i++ {
		spec := mustSpec(t, barSpec)
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := s.RenderToDataURL(context.Background(), spec)
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		if err != nil {
			t.Errorf("concurrent render error = %v", err)
		}
	}

	if n := s.Engine().LiveCharts(); n != 0 {
		t.Errorf("LiveCharts() = %d after renders, want 0", n)
	}
}

// canceller cancels the render's context once the chart has been drawn.
type canceller struct {
	cancel context.CancelFunc
}

func (canceller) ID() string { return "canceller" }

func (c canceller) AfterDraw(*engine.Chart, engine.PluginOptions) error {
	c.cancel()
	return nil
}

func waitForNoLiveCharts(t *testing.T, s *Service) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for s.Engine().LiveCharts() != 0 {
		if time.Now().After(deadline) {
			t.Fatalf("LiveCharts() = %d, want 0", s.Engine().LiveCharts())
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestRenderCancelledWhileDrawing(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	s := mustService(t, &Config{
		Width:  40,
		Height: 40,
		ChartCallback: func(_ context.Context, e *engine.Engine) error {
			return e.Register(canceller{cancel: cancel})
		},
	})

	if _, err := s.RenderToBuffer(ctx, mustSpec(t, barSpec)); !errors.Is(err, context.Canceled) {
		t.Errorf("RenderToBuffer() error = %v, want context.Canceled", err)
	}
	if n := s.Engine().LiveCharts(); n != 0 {
		t.Errorf("LiveCharts() = %d, want 0", n)
	}
}

func TestRenderCancelledWhileEncoding(t *testing.T) {
	s := mustService(t, &Config{Width: 40, Height: 40})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	release := make(chan struct{})
	encoded := make(chan error, 1)

	_, err := render(ctx, s, mustSpec(t, barSpec), nil, func(c *engine.Chart, format string) ([]byte, error) {
		cancel()
		<-release
		data, err := c.Encode(format)
		encoded <- err
		return data, err
	})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("render() error = %v, want context.Canceled", err)
	}
	if n := s.Engine().LiveCharts(); n != 1 {
		t.Errorf("LiveCharts() while encoding = %d, want 1", n)
	}

	close(release)
	if err := <-encoded; err != nil {
		t.Errorf("Encode() error = %v", err)
	}
	waitForNoLiveCharts(t, s)
}

func TestWriteFile(t *testing.T) {
	dir := t.TempDir()

	tests := []struct {
		name    string
		path    string
		wantErr string
	}{
		{name: "writes data", path: filepath.Join(dir, "chart.png")},
		{name: "missing directory", path: filepath.Join(dir, "missing", "chart.png"), wantErr: "invalid output path"},
		{name: "traversal", path: "../chart.png", wantErr: "invalid output path"},
		{name: "empty", path: "", wantErr: "invalid output path"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := WriteFile(tt.path, []byte("image"))
			if tt.wantErr != "" {
				if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
					t.Errorf("WriteFile() error = %v, want %q", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("WriteFile() error = %v", err)
			}
			got, err := os.ReadFile(tt.path)
			if err != nil || string(got) != "image" {
				t.Errorf("file contents = %q, %v", got, err)
			}
		})
	}
}

func TestUnsupportedFormat(t *testing.T) {
	s := mustService(t, &Config{Width: 10, Height: 10})
	if _, err := s.RenderToBuffer(context.Background(), mustSpec(t, barSpec), "webp"); !errors.Is(err, canvas.ErrUnsupportedFormat) {
		t.Errorf("RenderToBuffer(webp) error = %v, want ErrUnsupportedFormat", err)
	}
	if n := s.Engine().LiveCharts(); n != 0 {
		t.Errorf("LiveCharts() = %d, want 0", n)
	}
}

func TestRenderToFile(t *testing.T) {
	s := mustService(t, &Config{Width: 32, Height: 24, BackgroundColour: "black"})
	dir := t.TempDir()

	tests := []struct {
		name   string
		file   string
		format string
		magic  []byte
	}{
		{"png from extension", "chart.png", "", []byte("\x89PNG")},
		{"jpeg from extension", "chart.jpg", "", []byte{0xff, 0xd8}},
		{"explicit format", "chart.out", "gif", []byte("GIF8")},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(dir, tt.file)
			if err := s.RenderToFile(context.Background(), mustSpec(t, barSpec), path, tt.format); err != nil {
				t.Fatalf("RenderToFile() error = %v", err)
			}
			data, err := os.ReadFile(path)
			if err != nil {
				t.Fatalf("ReadFile() error = %v", err)
			}
			if !bytes.HasPrefix(data, tt.magic) {
				t.Errorf("file starts with %x, want %x", data[:4], tt.magic)
			}
		})
	}

	if err := s.RenderToFile(context.Background(), mustSpec(t, barSpec), filepath.Join(dir, "missing", "chart.png"), ""); err == nil {
		t.Error("RenderToFile() into a missing directory should fail")
	}
}

func TestLoggerDefaultSilent(t *testing.T) {
	if Logger().Enabled(context.Background(), slog.LevelDebug) {
		t.Error("default logger should be disabled")
	}
	var buf bytes.Buffer
	SetLogger(slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug})))
	defer SetLogger(nil)

	mustService(t, &Config{Width: 1, Height: 1})
	if !strings.Contains(buf.String(), "engine ready") {
		t.Errorf("log output = %q, want engine ready event", buf.String())
	}
}
