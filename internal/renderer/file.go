package renderer

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/ankek/terraform-provider-chartrender/internal/engine"
	"github.com/ankek/terraform-provider-chartrender/internal/validation"
)

// RenderToFile renders spec into path. An empty format is taken from the
// file extension, falling back to png.
func (s *Service) RenderToFile(ctx context.Context, spec *engine.Config, path, format string) error {
	if err := validation.ValidateOutputPath(path); err != nil {
		return fmt.Errorf("invalid output path: %w", err)
	}
	if format == "" {
		format = FormatFromPath(path)
	}

	data, err := s.RenderToBuffer(ctx, spec, format)
	if err != nil {
		return err
	}
	if err := writeFile(path, data); err != nil {
		return fmt.Errorf("failed to write image: %w", err)
	}
	return nil
}

// FormatFromPath returns the image format implied by the extension of path,
// or an empty string when there is none.
func FormatFromPath(path string) string {
	return strings.TrimPrefix(strings.ToLower(filepath.Ext(path)), ".")
}

// WriteFile writes encoded image data to path after validating it.
func WriteFile(path string, data []byte) error {
	if err := validation.ValidateOutputPath(path); err != nil {
		return fmt.Errorf("invalid output path: %w", err)
	}
	if err := writeFile(path, data); err != nil {
		return fmt.Errorf("failed to write image: %w", err)
	}
	return nil
}

func writeFile(path string, data []byte) error {
	return os.WriteFile(path, data, 0644)
}
