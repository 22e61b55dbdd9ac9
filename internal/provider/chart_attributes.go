package provider

import (
	"context"
	"slices"

	"github.com/ankek/terraform-provider-chartrender/internal/interfaces"
	"github.com/ankek/terraform-provider-chartrender/internal/plugin"
	"github.com/ankek/terraform-provider-chartrender/internal/renderer"
	"github.com/hashicorp/terraform-plugin-framework/diag"
	"github.com/hashicorp/terraform-plugin-framework/types"
)

// formats accepted by the format attribute.
var formats = []string{"png", "jpeg", "jpg", "gif", "bmp", "tiff", "tif"}

// chartInputs are the chart attributes shared by the data source and the
// resource.
type chartInputs struct {
	ChartJSON             types.String
	ChartFile             types.String
	Vars                  types.Map
	Width                 types.Int64
	Height                types.Int64
	BackgroundColour      types.String
	Format                types.String
	ModernPlugins         types.List
	RequirePlugins        types.List
	RequireChartJSPlugins types.List
	GlobalPlugins         types.List
}

// imageConfig resolves the inputs against the provider settings.
func (in chartInputs) imageConfig(ctx context.Context, settings *providerSettings) (interfaces.ImageConfig, diag.Diagnostics) {
	var diags diag.Diagnostics
	if settings == nil {
		settings = defaultSettings()
	}

	cfg := interfaces.ImageConfig{
		ChartJSON:        in.ChartJSON.ValueString(),
		ChartFile:        in.ChartFile.ValueString(),
		Width:            settings.Width,
		Height:           settings.Height,
		BackgroundColour: settings.BackgroundColour,
		Format:           "png",
		PluginBaseDir:    settings.PluginBaseDir,
	}
	if !in.Width.IsNull() {
		cfg.Width = int(in.Width.ValueInt64())
	}
	if !in.Height.IsNull() {
		cfg.Height = int(in.Height.ValueInt64())
	}
	if !in.BackgroundColour.IsNull() {
		cfg.BackgroundColour = in.BackgroundColour.ValueString()
	}
	if !in.Format.IsNull() && in.Format.ValueString() != "" {
		cfg.Format = in.Format.ValueString()
	}

	if !in.Vars.IsNull() {
		cfg.Vars = map[string]string{}
		diags.Append(in.Vars.ElementsAs(ctx, &cfg.Vars, false)...)
	}

	lists := []struct {
		list       types.List
		convention plugin.Convention
	}{
		{in.RequireChartJSPlugins, plugin.SelfRegisteringOnLoad},
		{in.GlobalPlugins, plugin.GlobalVariableSelfRegistering},
		{in.ModernPlugins, plugin.DirectOrReferencedRegistration},
		{in.RequirePlugins, plugin.ObjectReturningRequiringRegistration},
	}
	for _, l := range lists {
		if l.list.IsNull() || l.list.IsUnknown() {
			continue
		}
		var refs []string
		diags.Append(l.list.ElementsAs(ctx, &refs, false)...)
		for _, ref := range refs {
			cfg.Plugins.Add(l.convention, ref)
		}
	}

	return cfg, diags
}

// formatFromExtension returns the output format implied by the extension of
// path, or "" when it names none of the supported formats.
func formatFromExtension(path string) string {
	ext := renderer.FormatFromPath(path)
	if slices.Contains(formats, ext) {
		return ext
	}
	return ""
}
