package provider

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/ankek/terraform-provider-chartrender/internal/interfaces"
	"github.com/hashicorp/terraform-plugin-framework-validators/int64validator"
	"github.com/hashicorp/terraform-plugin-framework-validators/listvalidator"
	"github.com/hashicorp/terraform-plugin-framework-validators/stringvalidator"
	"github.com/hashicorp/terraform-plugin-framework/path"
	"github.com/hashicorp/terraform-plugin-framework/resource"
	"github.com/hashicorp/terraform-plugin-framework/resource/schema"
	"github.com/hashicorp/terraform-plugin-framework/resource/schema/planmodifier"
	"github.com/hashicorp/terraform-plugin-framework/resource/schema/stringplanmodifier"
	"github.com/hashicorp/terraform-plugin-framework/schema/validator"
	"github.com/hashicorp/terraform-plugin-framework/types"
	"github.com/hashicorp/terraform-plugin-log/tflog"
)

// Ensure provider defined types fully satisfy framework interfaces.
var _ resource.Resource = &FileResource{}
var _ resource.ResourceWithConfigure = &FileResource{}
var _ resource.ResourceWithImportState = &FileResource{}

func NewFileResource() resource.Resource {
	return &FileResource{
		generator: &ChartGenerator{},
		settings:  defaultSettings(),
	}
}

// FileResource renders a chart into a file on disk.
type FileResource struct {
	generator interfaces.ImageGenerator
	settings  *providerSettings
}

// FileResourceModel describes the resource data model.
type FileResourceModel struct {
	ID                    types.String `tfsdk:"id"`
	OutputPath            types.String `tfsdk:"output_path"`
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
	SHA256                types.String `tfsdk:"sha256"`
}

func (m FileResourceModel) inputs() chartInputs {
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

func (r *FileResource) Metadata(ctx context.Context, req resource.MetadataRequest, resp *resource.MetadataResponse) {
	resp.TypeName = req.ProviderTypeName + "_file"
}

func (r *FileResource) Schema(ctx context.Context, req resource.SchemaRequest, resp *resource.SchemaResponse) {
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
		MarkdownDescription: "Renders a chart specification into an image file.",

		Attributes: map[string]schema.Attribute{
			"id": schema.StringAttribute{
				Computed:            true,
				MarkdownDescription: "Resource identifier",
				PlanModifiers: []planmodifier.String{
					stringplanmodifier.UseStateForUnknown(),
				},
			},
			"output_path": schema.StringAttribute{
				MarkdownDescription: "Path where the image will be saved.",
				Required:            true,
				Validators: []validator.String{
					stringvalidator.LengthAtLeast(1),
				},
				PlanModifiers: []planmodifier.String{
					stringplanmodifier.RequiresReplace(),
				},
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
				MarkdownDescription: "Output format. Taken from the output_path extension when unset, falling back to 'png'.",
				Optional:            true,
				Validators: []validator.String{
					stringvalidator.OneOf(formats...),
				},
			},
			"modern_plugins":                 pluginList("Plugin modules or descriptors whose exported plugin is registered."),
			"require_legacy_plugins":         pluginList("Plugin modules that return a plugin which must be registered. Applied last."),
			"require_chartjs_legacy_plugins": pluginList("Plugin modules that register themselves when loaded. Applied first."),
			"global_variable_legacy_plugins": pluginList("Plugin modules that register themselves through the ambient engine while loading."),
			"sha256": schema.StringAttribute{
				MarkdownDescription: "Hex SHA-256 of the written file.",
				Computed:            true,
			},
		},
	}
}

func (r *FileResource) Configure(ctx context.Context, req resource.ConfigureRequest, resp *resource.ConfigureResponse) {
	if req.ProviderData == nil {
		return
	}

	settings, ok := req.ProviderData.(*providerSettings)
	if !ok {
		resp.Diagnostics.AddError(
			"Unexpected Resource Configure Type",
			fmt.Sprintf("Expected *providerSettings, got: %T. Please report this issue to the provider developers.", req.ProviderData),
		)
		return
	}
	r.settings = settings
}

// render writes the image described by data and fills its computed values.
func (r *FileResource) render(ctx context.Context, data *FileResourceModel) error {
	cfg, diags := data.inputs().imageConfig(ctx, r.settings)
	if diags.HasError() {
		return fmt.Errorf("invalid chart attributes: %v", diags)
	}
	cfg.OutputPath = data.OutputPath.ValueString()
	if data.Format.IsNull() {
		if ext := formatFromExtension(cfg.OutputPath); ext != "" {
			cfg.Format = ext
		}
	}

	tflog.Debug(ctx, "writing chart image", map[string]interface{}{
		"output_path": cfg.OutputPath,
		"format":      cfg.Format,
	})

	result, err := r.generator.Generate(ctx, cfg)
	if err != nil {
		return err
	}

	data.ID = types.StringValue(result.OutputPath)
	data.SHA256 = types.StringValue(result.SHA256)
	return nil
}

func (r *FileResource) Create(ctx context.Context, req resource.CreateRequest, resp *resource.CreateResponse) {
	var data FileResourceModel

	resp.Diagnostics.Append(req.Plan.Get(ctx, &data)...)
	if resp.Diagnostics.HasError() {
		return
	}

	if err := r.render(ctx, &data); err != nil {
		resp.Diagnostics.AddError("Failed to render chart", err.Error())
		return
	}

	resp.Diagnostics.Append(resp.State.Set(ctx, &data)...)
}

func (r *FileResource) Read(ctx context.Context, req resource.ReadRequest, resp *resource.ReadResponse) {
	var data FileResourceModel

	resp.Diagnostics.Append(req.State.Get(ctx, &data)...)
	if resp.Diagnostics.HasError() {
		return
	}

	// A missing or modified file is re-created on the next apply
	sum, err := fileSHA256(data.OutputPath.ValueString())
	if errors.Is(err, os.ErrNotExist) {
		resp.State.RemoveResource(ctx)
		return
	}
	if err != nil {
		resp.Diagnostics.AddError("Failed to read output file", err.Error())
		return
	}
	if !data.SHA256.IsNull() && data.SHA256.ValueString() != sum {
		tflog.Info(ctx, "output file changed outside of terraform", map[string]interface{}{
			"output_path": data.OutputPath.ValueString(),
		})
		resp.State.RemoveResource(ctx)
		return
	}

	resp.Diagnostics.Append(resp.State.Set(ctx, &data)...)
}

func (r *FileResource) Update(ctx context.Context, req resource.UpdateRequest, resp *resource.UpdateResponse) {
	var data FileResourceModel

	resp.Diagnostics.Append(req.Plan.Get(ctx, &data)...)
	if resp.Diagnostics.HasError() {
		return
	}

	if err := r.render(ctx, &data); err != nil {
		resp.Diagnostics.AddError("Failed to render chart", err.Error())
		return
	}

	resp.Diagnostics.Append(resp.State.Set(ctx, &data)...)
}

func (r *FileResource) Delete(ctx context.Context, req resource.DeleteRequest, resp *resource.DeleteResponse) {
	var data FileResourceModel

	resp.Diagnostics.Append(req.State.Get(ctx, &data)...)
	if resp.Diagnostics.HasError() {
		return
	}

	if err := os.Remove(data.OutputPath.ValueString()); err != nil && !errors.Is(err, os.ErrNotExist) {
		resp.Diagnostics.AddError("Failed to remove output file", err.Error())
	}
}

func (r *FileResource) ImportState(ctx context.Context, req resource.ImportStateRequest, resp *resource.ImportStateResponse) {
	resource.ImportStatePassthroughID(ctx, path.Root("id"), req, resp)
	resp.Diagnostics.Append(resp.State.SetAttribute(ctx, path.Root("output_path"), req.ID)...)
}
