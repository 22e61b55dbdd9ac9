// Package main provides the chartrender CLI, which renders chart files to
// images using the same renderer as the Terraform provider.
package main

import (
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/ankek/terraform-provider-chartrender/internal/canvas"
	_ "github.com/ankek/terraform-provider-chartrender/internal/extensions"
	"github.com/ankek/terraform-provider-chartrender/internal/parser"
	"github.com/ankek/terraform-provider-chartrender/internal/plugin"
	"github.com/ankek/terraform-provider-chartrender/internal/renderer"
	"github.com/ankek/terraform-provider-chartrender/internal/validation"
	"github.com/spf13/cobra"
)

type renderFlags struct {
	output     string
	width      int
	height     int
	background string
	format     string
	plugins    []string
	vars       map[string]string
	pluginDir  string
	dataURL    bool
	verbose    bool
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "chartrender",
		Short: "Render chart specifications to images",
		Long: `chartrender renders declarative chart specifications (JSON or HCL)
to raster images off-screen.`,
		SilenceUsage: true,
	}
	rootCmd.AddCommand(newRenderCmd(), newPluginsCmd())
	return rootCmd
}

func newRenderCmd() *cobra.Command {
	f := &renderFlags{}
	cmd := &cobra.Command{
		Use:   "render [chart.json|chart.hcl]",
		Short: "Render a chart file to an image",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRender(cmd, args[0], f)
		},
	}

	cmd.Flags().StringVarP(&f.output, "output", "o", "", "Output image path")
	cmd.Flags().IntVar(&f.width, "width", 800, "Image width in pixels")
	cmd.Flags().IntVar(&f.height, "height", 600, "Image height in pixels")
	cmd.Flags().StringVar(&f.background, "background", "", "Background colour (default: transparent)")
	cmd.Flags().StringVar(&f.format, "format", "", "Output format: png, jpeg, gif, bmp, tiff (default: from output extension, else png)")
	cmd.Flags().StringArrayVar(&f.plugins, "plugin", nil, "Plugin as convention:ref, e.g. modern:watermark (repeatable)")
	cmd.Flags().StringToStringVar(&f.vars, "var", nil, "Variable for HCL charts as name=value (repeatable)")
	cmd.Flags().StringVar(&f.pluginDir, "plugin-dir", "", "Directory plugin descriptors and images are resolved against")
	cmd.Flags().BoolVar(&f.dataURL, "data-url", false, "Print the image as a data URL instead of writing a file")
	cmd.Flags().BoolVarP(&f.verbose, "verbose", "v", false, "Log renderer lifecycle events to stderr")
	return cmd
}

func runRender(cmd *cobra.Command, chartPath string, f *renderFlags) error {
	ctx := cmd.Context()

	if f.output == "" && !f.dataURL {
		return fmt.Errorf("either --output or --data-url is required")
	}
	if err := validation.ValidateInputPath(chartPath, false); err != nil {
		return fmt.Errorf("invalid chart path: %w", err)
	}

	if f.verbose {
		renderer.SetLogger(slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: slog.LevelDebug})))
		defer renderer.SetLogger(nil)
	}

	set, err := parsePlugins(f.plugins)
	if err != nil {
		return err
	}

	spec, err := parser.ParseChartFile(ctx, chartPath, f.vars)
	if err != nil {
		return err
	}

	svc, err := renderer.New(ctx, &renderer.Config{
		Width:            f.width,
		Height:           f.height,
		Plugins:          set,
		BackgroundColour: f.background,
	},
		renderer.WithLoader(plugin.NewLoader(plugin.WithBaseDir(f.pluginDir))),
		renderer.WithImageLoader(canvas.NewImageLoader(canvas.WithBaseDir(f.pluginDir))),
	)
	if err != nil {
		return err
	}

	if f.dataURL {
		url, err := svc.RenderToDataURL(ctx, spec, f.format)
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), url)
		return nil
	}

	if err := svc.RenderToFile(ctx, spec, f.output, f.format); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Chart written to %s\n", f.output)
	return nil
}

// parsePlugins turns convention:ref flags into a plugin set. A flag without a
// known convention prefix is a modern reference.
func parsePlugins(values []string) (*plugin.Set, error) {
	set := &plugin.Set{}
	for _, v := range values {
		ref := v
		convention := plugin.DirectOrReferencedRegistration
		if name, rest, ok := strings.Cut(v, ":"); ok && !strings.HasPrefix(rest, "//") {
			c, err := plugin.ParseConvention(name)
			if err != nil {
				return nil, err
			}
			convention, ref = c, rest
		}
		if ref == "" {
			return nil, fmt.Errorf("empty plugin reference in %q", v)
		}
		set.Add(convention, ref)
	}
	return set, nil
}

func newPluginsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "plugins",
		Short: "List the built-in plugin modules",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			for _, name := range plugin.Modules() {
				fmt.Fprintln(cmd.OutOrStdout(), name)
			}
		},
	}
}
