package extensions

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"image"
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/ankek/terraform-provider-chartrender/internal/canvas"
	"github.com/ankek/terraform-provider-chartrender/internal/engine"
	"github.com/ankek/terraform-provider-chartrender/internal/plugin"
)

func mustConfig(t *testing.T, src string) *engine.Config {
	t.Helper()
	cfg, err := engine.ParseConfig([]byte(src))
	if err != nil {
		t.Fatalf("ParseConfig() error = %v", err)
	}
	return cfg
}

func apply(t *testing.T, e *engine.Engine, loader *plugin.Loader, c plugin.Convention, ref string) error {
	t.Helper()
	return plugin.Apply(context.Background(), loader, plugin.NewScope(e), plugin.Entry{Convention: c, Ref: plugin.Named(ref)})
}

func render(t *testing.T, e *engine.Engine, w, h int, spec string, opts ...engine.ChartOption) (*engine.Chart, *canvas.Canvas) {
	t.Helper()
	cv := canvas.New(w, h)
	chart, err := e.NewChart(context.Background(), cv.GetContext("2d"), mustConfig(t, spec), opts...)
	if err != nil {
		t.Fatalf("NewChart() error = %v", err)
	}
	t.Cleanup(chart.Destroy)
	return chart, cv
}

const barSpec = `{"type":"bar","data":{"labels":["a","b"],"datasets":[{"label":"s","data":[10,5],"backgroundColor":"#ff0000"}]}}`

func TestDefaultCatalog(t *testing.T) {
	names := strings.Join(plugin.Modules(), ",")
	for _, want := range []string{"annotation", "border", "datalabels", "logo", "outline", "watermark"} {
		if !strings.Contains(names, want) {
			t.Errorf("Modules() = %s, missing %s", names, want)
		}
	}
}

func TestExportingModulesAreFresh(t *testing.T) {
	loader := plugin.NewLoader()
	scope := plugin.NewScope(engine.New())

	for _, name := range []string{"watermark", "datalabels", "annotation", "logo"} {
		t.Run(name, func(t *testing.T) {
			a, err := loader.LoadFresh(context.Background(), name, scope)
			if err != nil {
				t.Fatalf("LoadFresh() error = %v", err)
			}
			b, err := loader.LoadFresh(context.Background(), name, scope)
			if err != nil {
				t.Fatalf("LoadFresh() error = %v", err)
			}
			if a.Plugin == nil || a.Plugin == b.Plugin {
				t.Errorf("LoadFresh() plugins = %p, %p, want two instances", a.Plugin, b.Plugin)
			}
			if a.Plugin.ID() != name {
				t.Errorf("ID() = %q, want %q", a.Plugin.ID(), name)
			}
		})
	}
}

func TestBorderRegistersOnLoad(t *testing.T) {
	e := engine.New()
	if err := apply(t, e, plugin.NewLoader(), plugin.SelfRegisteringOnLoad, "border"); err != nil {
		t.Fatalf("Apply() error = %v", err)
	}
	if _, ok := e.Registry().Plugin("border"); !ok {
		t.Fatal("border not registered with the engine")
	}

	_, cv := render(t, e, 60, 40, barSpec)
	if got := cv.Image().RGBAAt(30, 0); got.A < 0xf0 || !near(got.R, 0x99) || !near(got.B, 0x99) {
		t.Errorf("top edge pixel = %v, want #999999", got)
	}
	if other := engine.New(); func() bool { _, ok := other.Registry().Plugin("border"); return ok }() {
		t.Error("border leaked into another engine")
	}
}

func TestBorderExportsNothing(t *testing.T) {
	err := apply(t, engine.New(), plugin.NewLoader(), plugin.ObjectReturningRequiringRegistration, "border")
	if !errors.Is(err, plugin.ErrNoExport) {
		t.Errorf("Apply() error = %v, want ErrNoExport", err)
	}
}

func TestOutlineNeedsAmbientEngine(t *testing.T) {
	loader := plugin.NewLoader()

	e := engine.New()
	if err := apply(t, e, loader, plugin.SelfRegisteringOnLoad, "outline"); !errors.Is(err, plugin.ErrNoAmbientEngine) {
		t.Errorf("Apply() outside global binding error = %v, want ErrNoAmbientEngine", err)
	}

	if err := apply(t, e, loader, plugin.GlobalVariableSelfRegistering, "outline"); err != nil {
		t.Fatalf("Apply() error = %v", err)
	}
	if _, ok := e.Registry().Plugin("outline"); !ok {
		t.Fatal("outline not registered through the ambient engine")
	}

	chart, cv := render(t, e, 80, 60, barSpec)
	a := chart.ChartArea
	got := cv.Image().RGBAAt(int(a.Left)+2, int(a.Top))
	if got.A == 0 {
		t.Errorf("outline pixel at %v,%v is transparent", a.Left+2, a.Top)
	}
}

func near(got, want uint8) bool {
	d := int(got) - int(want)
	return d > -8 && d < 8
}

func bluePixels(img *image.RGBA) int {
	n := 0
	b := img.Bounds()
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			p := img.RGBAAt(x, y)
			if p.A > 0 && int(p.B) > int(p.R)+60 && int(p.B) > int(p.G)+60 {
				n++
			}
		}
	}
	return n
}

func TestWatermark(t *testing.T) {
	e := engine.New()
	if err := apply(t, e, plugin.NewLoader(), plugin.DirectOrReferencedRegistration, "watermark"); err != nil {
		t.Fatalf("Apply() error = %v", err)
	}

	_, cv := render(t, e, 200, 120, `{"type":"bar","data":{"labels":["a"],"datasets":[{"data":[1]}]},
		"options":{"plugins":{"watermark":{"text":"WIP","colour":"#0000ff","size":24}}}}`)
	if bluePixels(cv.Image()) == 0 {
		t.Error("no watermark pixels drawn")
	}

	_, err := e.NewChart(context.Background(), canvas.New(50, 50).GetContext("2d"), mustConfig(t,
		`{"type":"bar","data":{"labels":["a"],"datasets":[{"data":[1]}]},"options":{"plugins":{"watermark":{"position":"left"}}}}`))
	if err == nil || !strings.Contains(err.Error(), `unsupported watermark position "left"`) {
		t.Errorf("NewChart() error = %v", err)
	}
}

func TestDescriptorDefaults(t *testing.T) {
	dir := t.TempDir()
	desc := `plugin "watermark" {
  id      = "stamp"
  options = { text = "COPY", colour = "#0000ff" }
}`
	if err := os.WriteFile(filepath.Join(dir, "stamp.hcl"), []byte(desc), 0644); err != nil {
		t.Fatal(err)
	}

	e := engine.New()
	if err := apply(t, e, plugin.NewLoader(plugin.WithBaseDir(dir)), plugin.DirectOrReferencedRegistration, "stamp.hcl"); err != nil {
		t.Fatalf("Apply() error = %v", err)
	}
	if _, ok := e.Registry().Plugin("stamp"); !ok {
		t.Fatal("descriptor id not used")
	}

	_, cv := render(t, e, 200, 120, barSpec)
	if bluePixels(cv.Image()) == 0 {
		t.Error("descriptor options not applied")
	}
}

func TestAnnotationLine(t *testing.T) {
	e := engine.New()
	if err := apply(t, e, plugin.NewLoader(), plugin.DirectOrReferencedRegistration, "annotation"); err != nil {
		t.Fatalf("Apply() error = %v", err)
	}

	chart, cv := render(t, e, 200, 150, `{"type":"bar","data":{"labels":["a","b"],"datasets":[{"data":[10,5]}]},
		"options":{"plugins":{"annotation":{"lines":[{"axis":"y","value":8,"colour":"#00ff00"}]}}}}`)

	y := int(chart.YScale().Pixel(8))
	x := int(chart.ChartArea.Right) - 3
	if got := cv.Image().RGBAAt(x, y); got.G < 0xf0 || got.R > 0x10 || got.A < 0xf0 {
		t.Errorf("annotation pixel at %d,%d = %v, want green", x, y, got)
	}
}

func TestAnnotationIgnoresRadialCharts(t *testing.T) {
	e := engine.New()
	if err := apply(t, e, plugin.NewLoader(), plugin.DirectOrReferencedRegistration, "annotation"); err != nil {
		t.Fatalf("Apply() error = %v", err)
	}
	render(t, e, 80, 80, `{"type":"pie","data":{"labels":["a"],"datasets":[{"data":[1]}]},
		"options":{"plugins":{"annotation":{"lines":[{"axis":"diagonal","value":1}]}}}}`)
}

func TestLogo(t *testing.T) {
	src := image.NewRGBA(image.Rect(0, 0, 4, 4))
	for i := range src.Pix {
		if i%4 == 0 || i%4 == 3 {
			src.Pix[i] = 0xff
		}
	}
	buf := &bytes.Buffer{}
	if err := png.Encode(buf, src); err != nil {
		t.Fatal(err)
	}
	spec := `{"type":"bar","data":{"labels":["a"],"datasets":[{"data":[1]}]},
		"options":{"plugins":{"logo":{"src":"data:image/png;base64,` + base64.StdEncoding.EncodeToString(buf.Bytes()) + `",
		"width":10,"height":10,"position":"top-left","margin":0}}}}`

	e := engine.New()
	if err := apply(t, e, plugin.NewLoader(), plugin.ObjectReturningRequiringRegistration, "logo"); err != nil {
		t.Fatalf("Apply() error = %v", err)
	}

	_, cv := render(t, e, 60, 60, spec, engine.WithImages(canvas.NewImageLoader()))
	if got := cv.Image().RGBAAt(5, 5); got.R < 0xf0 || got.G > 0x10 || got.A < 0xf0 {
		t.Errorf("logo pixel = %v, want red", got)
	}

	_, err := e.NewChart(context.Background(), canvas.New(60, 60).GetContext("2d"), mustConfig(t, spec))
	if err == nil || !strings.Contains(err.Error(), "no image loader available") {
		t.Errorf("NewChart() without images error = %v", err)
	}
}

func TestFormatValue(t *testing.T) {
	two := 2
	tests := []struct {
		v        float64
		decimals *int
		want     string
	}{
		{12, nil, "12"},
		{0.25, nil, "0.25"},
		{3.14159, &two, "3.14"},
		{-1, &two, "-1.00"},
	}
	for _, tt := range tests {
		if got := formatValue(tt.v, tt.decimals); got != tt.want {
			t.Errorf("formatValue(%v) = %q, want %q", tt.v, got, tt.want)
		}
	}
	if !selected(nil, 3) || selected([]int{0, 2}, 1) || !selected([]int{0, 2}, 2) {
		t.Error("selected() mismatch")
	}
}

func TestDataLabelsDraw(t *testing.T) {
	e := engine.New()
	if err := apply(t, e, plugin.NewLoader(), plugin.DirectOrReferencedRegistration, "datalabels"); err != nil {
		t.Fatalf("Apply() error = %v", err)
	}
	_, cv := render(t, e, 200, 150, `{"type":"bar","data":{"labels":["a","b"],"datasets":[{"data":[10,5],"backgroundColor":"#ff0000"}]},
		"options":{"plugins":{"legend":false,"datalabels":{"colour":"#0000ff","size":14}}}}`)
	if bluePixels(cv.Image()) == 0 {
		t.Error("no data labels drawn")
	}
}
