// Package interfaces defines interfaces for dependency injection and testing
package interfaces

import (
	"context"

	"github.com/ankek/terraform-provider-chartrender/internal/engine"
	"github.com/ankek/terraform-provider-chartrender/internal/plugin"
)

// ChartParser defines the interface for reading chart specifications
type ChartParser interface {
	// ParseChartFile parses a .json or .hcl chart file, exposing vars to HCL expressions
	ParseChartFile(ctx context.Context, path string, vars map[string]string) (*engine.Config, error)

	// ParseChart parses an in-memory chart specification
	ParseChart(data []byte, filename string, vars map[string]string) (*engine.Config, error)
}

// ChartRenderer defines the interface for rendering charts to images
type ChartRenderer interface {
	// RenderToBuffer renders a chart and returns the encoded image
	RenderToBuffer(ctx context.Context, spec *engine.Config, format ...string) ([]byte, error)

	// RenderToDataURL renders a chart and returns it as a base64 data URL
	RenderToDataURL(ctx context.Context, spec *engine.Config, format ...string) (string, error)

	// RenderToFile renders a chart into a file
	RenderToFile(ctx context.Context, spec *engine.Config, path, format string) error
}

// PathValidator defines the interface for validating file paths
type PathValidator interface {
	// ValidateOutputPath validates an output path for security and accessibility
	ValidateOutputPath(path string) error

	// ValidateInputPath validates an input path (chart spec or descriptor)
	ValidateInputPath(path string, mustBeDir bool) error
}

// ImageGenerator defines the interface for generating chart images
type ImageGenerator interface {
	// Generate renders a chart according to cfg
	Generate(ctx context.Context, cfg ImageConfig) (*ImageResult, error)
}

// ImageConfig contains all configuration needed to render one chart image
type ImageConfig struct {
	ChartJSON        string
	ChartFile        string
	Vars             map[string]string
	Width            int
	Height           int
	BackgroundColour string
	Format           string
	Plugins          plugin.Set
	PluginBaseDir    string
	OutputPath       string // optional; the image is also written here
}

// ImageResult contains the results of image generation
type ImageResult struct {
	Data       []byte
	DataURL    string
	SHA256     string
	Format     string
	OutputPath string
}
