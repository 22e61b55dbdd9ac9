// Package provider implements the Terraform provider for chart rendering.
// It provides a data source returning rendered images and a resource writing
// them to disk.
package provider

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"

	"github.com/ankek/terraform-provider-chartrender/internal/canvas"
	"github.com/ankek/terraform-provider-chartrender/internal/engine"
	_ "github.com/ankek/terraform-provider-chartrender/internal/extensions"
	"github.com/ankek/terraform-provider-chartrender/internal/interfaces"
	"github.com/ankek/terraform-provider-chartrender/internal/parser"
	"github.com/ankek/terraform-provider-chartrender/internal/plugin"
	"github.com/ankek/terraform-provider-chartrender/internal/renderer"
	"github.com/ankek/terraform-provider-chartrender/internal/validation"
)

var _ interfaces.ImageGenerator = &ChartGenerator{}

// ChartGenerator renders chart images. It is shared between the data source
// and the resource.
type ChartGenerator struct{}

// Generate renders the chart described by cfg.
//
// It performs the following steps:
//  1. Validates the input and output paths
//  2. Parses the chart from inline JSON or a chart file
//  3. Builds a renderer service with the configured plugins
//  4. Renders and encodes the image, writing it to OutputPath when set
func (g *ChartGenerator) Generate(ctx context.Context, cfg interfaces.ImageConfig) (*interfaces.ImageResult, error) {
	if cfg.OutputPath != "" {
		if err := validation.ValidateOutputPath(cfg.OutputPath); err != nil {
			return nil, fmt.Errorf("invalid output path: %w", err)
		}
	}

	spec, err := g.parseChart(ctx, cfg)
	if err != nil {
		return nil, err
	}

	format, err := canvas.ParseFormat(cfg.Format)
	if err != nil {
		return nil, err
	}

	svc, err := renderer.New(ctx, &renderer.Config{
		Width:            cfg.Width,
		Height:           cfg.Height,
		Plugins:          &cfg.Plugins,
		BackgroundColour: cfg.BackgroundColour,
	},
		renderer.WithLoader(plugin.NewLoader(plugin.WithBaseDir(cfg.PluginBaseDir))),
		renderer.WithImageLoader(canvas.NewImageLoader(canvas.WithBaseDir(cfg.PluginBaseDir))),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to initialise renderer: %w", err)
	}

	data, err := svc.RenderToBuffer(ctx, spec, string(format))
	if err != nil {
		return nil, fmt.Errorf("failed to render chart: %w", err)
	}

	if cfg.OutputPath != "" {
		if err := renderer.WriteFile(cfg.OutputPath, data); err != nil {
			return nil, err
		}
	}

	sum := sha256.Sum256(data)
	return &interfaces.ImageResult{
		Data:       data,
		DataURL:    canvas.DataURL(format, data),
		SHA256:     hex.EncodeToString(sum[:]),
		Format:     string(format),
		OutputPath: cfg.OutputPath,
	}, nil
}

// parseChart reads the chart from exactly one of ChartJSON and ChartFile.
func (g *ChartGenerator) parseChart(ctx context.Context, cfg interfaces.ImageConfig) (*engine.Config, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}

	switch {
	case cfg.ChartJSON != "" && cfg.ChartFile != "":
		return nil, fmt.Errorf("only one of chart_json and chart_file may be set")
	case cfg.ChartJSON != "":
		return parser.ParseChart([]byte(cfg.ChartJSON), "chart.json", cfg.Vars)
	case cfg.ChartFile != "":
		if err := validation.ValidateInputPath(cfg.ChartFile, false); err != nil {
			return nil, fmt.Errorf("invalid chart file: %w", err)
		}
		return parser.ParseChartFile(ctx, cfg.ChartFile, cfg.Vars)
	}
	return nil, fmt.Errorf("either chart_json or chart_file must be provided")
}

// fileSHA256 hashes the file at path.
func fileSHA256(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:]), nil
}
