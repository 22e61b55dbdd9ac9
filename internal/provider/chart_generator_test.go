package provider

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"github.com/ankek/terraform-provider-chartrender/internal/canvas"
	"github.com/ankek/terraform-provider-chartrender/internal/interfaces"
	"github.com/ankek/terraform-provider-chartrender/internal/plugin"
	"github.com/hashicorp/terraform-plugin-framework/attr"
	"github.com/hashicorp/terraform-plugin-framework/types"
)

const barChart = `{"type":"bar","data":{"labels":["a","b"],"datasets":[{"label":"sales","data":[3,5]}]}}`

func TestChartGenerator_Generate(t *testing.T) {
	tmpDir := t.TempDir()

	chartFile := filepath.Join(tmpDir, "chart.hcl")
	chartContent := `
type = "line"
data = {
  labels   = split(",", var.months)
  datasets = [{ label = "visits", data = [1, var.peak, 2] }]
}`
	if err := os.WriteFile(chartFile, []byte(chartContent), 0644); err != nil {
		t.Fatalf("Failed to create test chart file: %v", err)
	}

	generator := &ChartGenerator{}
	ctx := context.Background()
	watermark := plugin.Set{Modern: []plugin.Ref{plugin.Named("watermark")}}

	tests := []struct {
		name       string
		config     interfaces.ImageConfig
		wantErr    string
		wantFormat string
	}{
		{
			name:       "inline json",
			config:     interfaces.ImageConfig{ChartJSON: barChart, Width: 200, Height: 100},
			wantFormat: "png",
		},
		{
			name: "hcl chart file with vars",
			config: interfaces.ImageConfig{
				ChartFile: chartFile,
				Vars:      map[string]string{"months": "jan,feb,mar", "peak": "4"},
				Width:     200,
				Height:    100,
				Format:    "jpg",
			},
			wantFormat: "jpeg",
		},
		{
			name: "output file with plugin",
			config: interfaces.ImageConfig{
				ChartJSON:        barChart,
				Width:            200,
				Height:           100,
				BackgroundColour: "white",
				Plugins:          watermark,
				OutputPath:       filepath.Join(tmpDir, "chart.png"),
			},
			wantFormat: "png",
		},
		{
			name:    "missing input",
			config:  interfaces.ImageConfig{Width: 10, Height: 10},
			wantErr: "either chart_json or chart_file must be provided",
		},
		{
			name:    "both inputs",
			config:  interfaces.ImageConfig{ChartJSON: barChart, ChartFile: chartFile, Width: 10, Height: 10},
			wantErr: "only one of chart_json and chart_file",
		},
		{
			name:    "invalid output path",
			config:  interfaces.ImageConfig{ChartJSON: barChart, Width: 10, Height: 10, OutputPath: "/nonexistent/directory/chart.png"},
			wantErr: "invalid output path",
		},
		{
			name:    "non-existent chart file",
			config:  interfaces.ImageConfig{ChartFile: filepath.Join(tmpDir, "missing.json"), Width: 10, Height: 10},
			wantErr: "invalid chart file",
		},
		{
			name:    "unsupported format",
			config:  interfaces.ImageConfig{ChartJSON: barChart, Width: 10, Height: 10, Format: "webp"},
			wantErr: "unsupported export format",
		},
		{
			name:    "zero width",
			config:  interfaces.ImageConfig{ChartJSON: barChart, Height: 10},
			wantErr: "A width option is required",
		},
		{
			name: "unknown plugin",
			config: interfaces.ImageConfig{
				ChartJSON: barChart,
				Width:     10,
				Height:    10,
				Plugins:   plugin.Set{RequireLegacy: []string{"sparkles"}},
			},
			wantErr: `failed to load plugin module "sparkles"`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := generator.Generate(ctx, tt.config)

			if tt.wantErr != "" {
				if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
					t.Errorf("Generate() error = %v, want %q", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("Generate() error = %v", err)
			}

			if result.Format != tt.wantFormat {
				t.Errorf("Generate() Format = %q, want %q", result.Format, tt.wantFormat)
			}
			if len(result.SHA256) != 64 {
				t.Errorf("Generate() SHA256 = %q, want 64 hex digits", result.SHA256)
			}
			f, _ := canvas.ParseFormat(tt.wantFormat)
			if result.DataURL != canvas.DataURL(f, result.Data) {
				t.Error("Generate() DataURL does not encode Data")
			}

			if tt.config.OutputPath != "" {
				sum, err := fileSHA256(tt.config.OutputPath)
				if err != nil {
					t.Fatalf("Generate() did not create output file: %v", err)
				}
				if sum != result.SHA256 {
					t.Errorf("file hash = %s, want %s", sum, result.SHA256)
				}
			}
		})
	}
}

func TestChartGenerator_Generate_ContextCancellation(t *testing.T) {
	generator := &ChartGenerator{}
	ctx, cancel := context.WithCancel(context.Background())
	cancel() // Cancel immediately

	_, err := generator.Generate(ctx, interfaces.ImageConfig{ChartJSON: barChart, Width: 10, Height: 10})
	if !errors.Is(err, context.Canceled) {
		t.Errorf("Generate() error = %v, want context.Canceled", err)
	}
}

func TestChartInputs_ImageConfig(t *testing.T) {
	ctx := context.Background()
	list := func(values ...string) types.List {
		elems := make([]attr.Value, len(values))
		for i, v := range values {
			elems[i] = types.StringValue(v)
		}
		return types.ListValueMust(types.StringType, elems)
	}

	in := chartInputs{
		ChartJSON:             types.StringValue(barChart),
		ChartFile:             types.StringNull(),
		Vars:                  types.MapValueMust(types.StringType, map[string]attr.Value{"year": types.StringValue("2024")}),
		Width:                 types.Int64Value(320),
		Height:                types.Int64Null(),
		BackgroundColour:      types.StringNull(),
		Format:                types.StringNull(),
		ModernPlugins:         list("watermark", "stamp.hcl"),
		RequirePlugins:        list("logo"),
		RequireChartJSPlugins: list("border"),
		GlobalPlugins:         types.ListNull(types.StringType),
	}
	settings := &providerSettings{Width: 100, Height: 50, BackgroundColour: "#eeeeee", PluginBaseDir: "/plugins"}

	cfg, diags := in.imageConfig(ctx, settings)
	if diags.HasError() {
		t.Fatalf("imageConfig() diagnostics = %v", diags)
	}

	if cfg.Width != 320 || cfg.Height != 50 {
		t.Errorf("size = %dx%d, want 320x50", cfg.Width, cfg.Height)
	}
	if cfg.BackgroundColour != "#eeeeee" || cfg.PluginBaseDir != "/plugins" || cfg.Format != "png" {
		t.Errorf("defaults not applied: %+v", cfg)
	}
	if cfg.Vars["year"] != "2024" {
		t.Errorf("Vars = %v", cfg.Vars)
	}

	var got []string
	for _, e := range cfg.Plugins.Entries() {
		got = append(got, e.String())
	}
	want := []string{"requireChartJSLegacy:border", "modern:watermark", "modern:stamp.hcl", "requireLegacy:logo"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("plugin entries = %v, want %v", got, want)
	}

	cfg, _ = chartInputs{
		Width:            types.Int64Null(),
		Height:           types.Int64Null(),
		BackgroundColour: types.StringNull(),
		Format:           types.StringValue("gif"),
		Vars:             types.MapNull(types.StringType),
	}.imageConfig(ctx, nil)
	if cfg.Width != DefaultWidth || cfg.Height != DefaultHeight || cfg.Format != "gif" {
		t.Errorf("imageConfig(nil settings) = %+v", cfg)
	}
}

func TestFormatFromExtension(t *testing.T) {
	tests := map[string]string{
		"chart.png":      "png",
		"out/chart.JPG":  "jpg",
		"chart.tiff":     "tiff",
		"chart.webp":     "",
		"chart":          "",
		"/tmp/chart.gif": "gif",
	}
	for path, want := range tests {
		if got := formatFromExtension(path); got != want {
			t.Errorf("formatFromExtension(%q) = %q, want %q", path, got, want)
		}
	}
}
