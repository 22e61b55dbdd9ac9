package provider

import (
	"context"
	"fmt"

	"github.com/ankek/terraform-provider-chartrender/internal/interfaces"
	"github.com/hashicorp/terraform-plugin-framework-validators/int64validator"
	"github.com/hashicorp/terraform-plugin-framework-validators/listvalidator"
	"github.com/hashicorp/terraform-plugin-framework-validators/stringvalidator"
	"github.com/hashicorp/terraform-plugin-framework/datasource"
	"github.com/hashicorp/terraform-plugin-framework/datasource/schema"
	"github.com/hashicorp/terraform-plugin-framework/path"
	"github.com/hashicorp/terraform-plugin-framework/schema/validator"
	"github.com/hashicorp/terraform-plugin-framework/types"
	"github.com/hashicorp/terraform-plugin-log/tflog"
)

// Ensure provider defined types fully satisfy framework interfaces.
var _ datasource.DataSource = &ImageDataSource{}
var _ datasource.DataSourceWithConfigure = &ImageDataSource{}

// ImageDataSource renders a chart and returns it as a data URL.
type ImageDataSource struct {
	generator interfaces.ImageGenerator
	settings  *providerSettings
}

func NewImageDataSource() datasource.DataSource {
	return &ImageDataSource{
		generator: &ChartGenerator{},
		settings:  defaultSettings(),
	}
}

// ImageDataSourceModel describes the data source data model.
type ImageDataSourceModel struct {
	ID                    types.String `tfsdk:"id"`
	ChartJSON             types.String `tfsdk:"chart_json"`
	ChartFile             types.String `tfsdk:"chart_file"`
	Vars                  types.Map    `tfsdk:"vars"`
	Width                 types.Int64  `tfsdk:"width"`
	Height                types.Int64  `tfsdk:"height"`
	BackgroundColour      types.String `tfsdk:"background_colour"`
	Format                types.String `tfsdk:"format"`
	ModernPlugins         types.List   `tfsdk:"modern_plugins"`
	RequirePlugins        types.List   `tfsdk:"require_legacy_plugins"`
	RequireChartJSPlugins types.List   `tfsdk:"require_chartjs_legacy_plugins"`
	GlobalPlugins         types.List   `tfsdk:"global_variable_legacy_plugins"`
	DataURL               types.String `tfsdk:"data_url"`
	SHA256                types.String `tfsdk:"sha256"`
}

func (m ImageDataSourceModel) inputs() chartInputs {
	return chartInputs{
		ChartJSON:             m.ChartJSON,
		ChartFile:             m.ChartFile,
		Vars:                  m.Vars,
		Width:                 m.Width,
		Height:                m.Height,
		BackgroundColour:      m.BackgroundColour,
		Format:                m.Format,
		ModernPlugins:         m.ModernPlugins,
		RequirePlugins:        m.RequirePlugins,
		RequireChartJSPlugins: m.RequireChartJSPlugins,
		GlobalPlugins:         m.GlobalPlugins,
	}
}

func (d *ImageDataSource) Metadata(ctx context.Context, req datasource.MetadataRequest, resp *datasource.MetadataResponse) {
	resp.TypeName = req.ProviderTypeName + "_image"
}

func (d *ImageDataSource) Schema(ctx context.Context, req datasource.SchemaRequest, resp *datasource.SchemaResponse) {
	pluginList := func(description string) schema.ListAttribute {
		return schema.ListAttribute{
			MarkdownDescription: description,
			ElementType:         types.StringType,
			Optional:            true,
			Validators: []validator.List{
				listvalidator.ValueStringsAre(stringvalidator.LengthAtLeast(1)),
			},
		}
	}

	resp.Schema = schema.Schema{
		MarkdownDescription: "Renders a chart specification to an image and returns it as a base64 data URL.",

		Attributes: map[string]schema.Attribute{
			"id": schema.StringAttribute{
				Computed:            true,
				MarkdownDescription: "Data source identifier",
			},
			"chart_json": schema.StringAttribute{
				MarkdownDescription: "Chart specification as JSON, for example the output of `jsonencode`.",
				Optional:            true,
				Validators: []validator.String{
					stringvalidator.LengthAtLeast(1),
					stringvalidator.ExactlyOneOf(path.MatchRoot("chart_json"), path.MatchRoot("chart_file")),
				},
			},
			"chart_file": schema.StringAttribute{
				MarkdownDescription: "Path to a `.json` or `.hcl` chart specification file.",
				Optional:            true,
				Validators: []validator.String{
					stringvalidator.LengthAtLeast(1),
				},
			},
			"vars": schema.MapAttribute{
				MarkdownDescription: "Variables available to HCL chart files as `var.<name>`.",
				ElementType:         types.StringType,
				Optional:            true,
			},
			"width": schema.Int64Attribute{
				MarkdownDescription: "Image width in pixels. Defaults to the provider `default_width`.",
				Optional:            true,
				Validators: []validator.Int64{
					int64validator.AtLeast(1),
				},
			},
			"height": schema.Int64Attribute{
				MarkdownDescription: "Image height in pixels. Defaults to the provider `default_height`.",
				Optional:            true,
				Validators: []validator.Int64{
					int64validator.AtLeast(1),
				},
			},
			"background_colour": schema.StringAttribute{
				MarkdownDescription: "CSS colour painted under the chart. Transparent when unset.",
				Optional:            true,
			},
			"format": schema.StringAttribute{
				MarkdownDescription: "Output format: 'png', 'jpeg', 'jpg', 'gif', 'bmp', 'tiff' or 'tif'. Default is 'png'.",
				Optional:            true,
				Validators: []validator.String{
					stringvalidator.OneOf(formats...),
				},
			},
			"modern_plugins":                 pluginList("Plugin modules or descriptors whose exported plugin is registered."),
			"require_legacy_plugins":         pluginList("Plugin modules that return a plugin which must be registered. Applied last."),
			"require_chartjs_legacy_plugins": pluginList("Plugin modules that register themselves when loaded. Applied first."),
			"global_variable_legacy_plugins": pluginList("Plugin modules that register themselves through the ambient engine while loading."),
			"data_url": schema.StringAttribute{
				MarkdownDescription: "The rendered image as a base64 data URL.",
				Computed:            true,
			},
			"sha256": schema.StringAttribute{
				MarkdownDescription: "Hex SHA-256 of the encoded image.",
				Computed:            true,
			},
		},
	}
}

func (d *ImageDataSource) Configure(ctx context.Context, req datasource.ConfigureRequest, resp *datasource.ConfigureResponse) {
	if req.ProviderData == nil {
		return
	}

	settings, ok := req.ProviderData.(*providerSettings)
	if !ok {
		resp.Diagnostics.AddError(
			"Unexpected Data Source Configure Type",
			fmt.Sprintf("Expected *providerSettings, got: %T. Please report this issue to the provider developers.", req.ProviderData),
		)
		return
	}
	d.settings = settings
}

func (d *ImageDataSource) Read(ctx context.Context, req datasource.ReadRequest, resp *datasource.ReadResponse) {
	var data ImageDataSourceModel

	resp.Diagnostics.Append(req.Config.Get(ctx, &data)...)
	if resp.Diagnostics.HasError() {
		return
	}

	cfg, diags := data.inputs().imageConfig(ctx, d.settings)
	resp.Diagnostics.Append(diags...)
	if resp.Diagnostics.HasError() {
		return
	}

	tflog.Debug(ctx, "rendering chart image", map[string]interface{}{
		"width":   cfg.Width,
		"height":  cfg.Height,
		"format":  cfg.Format,
		"plugins": len(cfg.Plugins.Entries()),
	})

	result, err := d.generator.Generate(ctx, cfg)
	if err != nil {
		resp.Diagnostics.AddError("Failed to render chart", err.Error())
		return
	}

	data.DataURL = types.StringValue(result.DataURL)
	data.SHA256 = types.StringValue(result.SHA256)
	data.ID = types.StringValue(result.SHA256[:16])

	resp.Diagnostics.Append(resp.State.Set(ctx, &data)...)
}
