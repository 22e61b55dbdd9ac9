package provider

import (
	"context"

	"github.com/hashicorp/terraform-plugin-framework-validators/int64validator"
	"github.com/hashicorp/terraform-plugin-framework/datasource"
	"github.com/hashicorp/terraform-plugin-framework/provider"
	"github.com/hashicorp/terraform-plugin-framework/provider/schema"
	"github.com/hashicorp/terraform-plugin-framework/resource"
	"github.com/hashicorp/terraform-plugin-framework/schema/validator"
	"github.com/hashicorp/terraform-plugin-framework/types"
	"github.com/hashicorp/terraform-plugin-log/tflog"
)

// Ensure ChartRenderProvider satisfies various provider interfaces.
var _ provider.Provider = &ChartRenderProvider{}

// Image dimensions used when neither the provider nor the chart sets them.
const (
	DefaultWidth  = 800
	DefaultHeight = 600
)

// ChartRenderProvider defines the provider implementation.
type ChartRenderProvider struct {
	// version is set to the provider version on release, "dev" when the
	// provider is built and ran locally, and "test" when running acceptance
	// testing.
	version string
}

// ChartRenderProviderModel describes the provider data model.
type ChartRenderProviderModel struct {
	DefaultWidth            types.Int64  `tfsdk:"default_width"`
	DefaultHeight           types.Int64  `tfsdk:"default_height"`
	DefaultBackgroundColour types.String `tfsdk:"default_background_colour"`
	PluginBaseDir           types.String `tfsdk:"plugin_base_dir"`
}

// providerSettings are the resolved provider defaults handed to data sources
// and resources.
type providerSettings struct {
	Width            int
	Height           int
	BackgroundColour string
	PluginBaseDir    string
}

func defaultSettings() *providerSettings {
	return &providerSettings{Width: DefaultWidth, Height: DefaultHeight}
}

func (p *ChartRenderProvider) Metadata(ctx context.Context, req provider.MetadataRequest, resp *provider.MetadataResponse) {
	resp.TypeName = "chartrender"
	resp.Version = p.version
}

func (p *ChartRenderProvider) Schema(ctx context.Context, req provider.SchemaRequest, resp *provider.SchemaResponse) {
	resp.Schema = schema.Schema{
		Description: "The ChartRender provider renders declarative chart specifications to raster images without a browser.",
		Attributes: map[string]schema.Attribute{
			"default_width": schema.Int64Attribute{
				Description: "Image width in pixels used when a chart does not set one. Defaults to 800.",
				Optional:    true,
				Validators: []validator.Int64{
					int64validator.AtLeast(1),
				},
			},
			"default_height": schema.Int64Attribute{
				Description: "Image height in pixels used when a chart does not set one. Defaults to 600.",
				Optional:    true,
				Validators: []validator.Int64{
					int64validator.AtLeast(1),
				},
			},
			"default_background_colour": schema.StringAttribute{
				Description: "Background colour used when a chart does not set one. Transparent when unset.",
				Optional:    true,
			},
			"plugin_base_dir": schema.StringAttribute{
				Description: "Directory relative plugin descriptor and image paths are resolved against.",
				Optional:    true,
			},
		},
	}
}

func (p *ChartRenderProvider) Configure(ctx context.Context, req provider.ConfigureRequest, resp *provider.ConfigureResponse) {
	var data ChartRenderProviderModel

	resp.Diagnostics.Append(req.Config.Get(ctx, &data)...)

	if resp.Diagnostics.HasError() {
		return
	}

	settings := defaultSettings()
	if !data.DefaultWidth.IsNull() {
		settings.Width = int(data.DefaultWidth.ValueInt64())
	}
	if !data.DefaultHeight.IsNull() {
		settings.Height = int(data.DefaultHeight.ValueInt64())
	}
	settings.BackgroundColour = data.DefaultBackgroundColour.ValueString()
	settings.PluginBaseDir = data.PluginBaseDir.ValueString()

	tflog.Debug(ctx, "configured chartrender provider", map[string]interface{}{
		"default_width":   settings.Width,
		"default_height":  settings.Height,
		"plugin_base_dir": settings.PluginBaseDir,
	})

	resp.DataSourceData = settings
	resp.ResourceData = settings
}

func (p *ChartRenderProvider) Resources(ctx context.Context) []func() resource.Resource {
	return []func() resource.Resource{
		NewFileResource,
	}
}

func (p *ChartRenderProvider) DataSources(ctx context.Context) []func() datasource.DataSource {
	return []func() datasource.DataSource{
		NewImageDataSource,
	}
}

func New(version string) func() provider.Provider {
	return func() provider.Provider {
		return &ChartRenderProvider{
			version: version,
		}
	}
}
