package provider

import (
	"context"
	"testing"

	"github.com/hashicorp/terraform-plugin-framework/datasource"
	"github.com/hashicorp/terraform-plugin-framework/provider"
	"github.com/hashicorp/terraform-plugin-framework/resource"
)

func TestProviderMetadata(t *testing.T) {
	p := New("test")()
	resp := &provider.MetadataResponse{}
	p.Metadata(context.Background(), provider.MetadataRequest{}, resp)

	if resp.TypeName != "chartrender" {
		t.Errorf("TypeName = %q, want chartrender", resp.TypeName)
	}
	if resp.Version != "test" {
		t.Errorf("Version = %q, want test", resp.Version)
	}
}

func TestProviderSchema(t *testing.T) {
	resp := &provider.SchemaResponse{}
	New("test")().Schema(context.Background(), provider.SchemaRequest{}, resp)

	for _, name := range []string{"default_width", "default_height", "default_background_colour", "plugin_base_dir"} {
		if _, ok := resp.Schema.Attributes[name]; !ok {
			t.Errorf("provider schema is missing %s", name)
		}
	}
	if diags := resp.Schema.ValidateImplementation(context.Background()); diags.HasError() {
		t.Errorf("provider schema invalid: %v", diags)
	}
}

func TestProviderComponents(t *testing.T) {
	ctx := context.Background()
	p := New("test")()

	if n := len(p.DataSources(ctx)); n != 1 {
		t.Errorf("DataSources() = %d, want 1", n)
	}
	if n := len(p.Resources(ctx)); n != 1 {
		t.Errorf("Resources() = %d, want 1", n)
	}
}

func TestImageDataSourceSchema(t *testing.T) {
	ctx := context.Background()
	d := NewImageDataSource()

	meta := &datasource.MetadataResponse{}
	d.Metadata(ctx, datasource.MetadataRequest{ProviderTypeName: "chartrender"}, meta)
	if meta.TypeName != "chartrender_image" {
		t.Errorf("TypeName = %q, want chartrender_image", meta.TypeName)
	}

	resp := &datasource.SchemaResponse{}
	d.Schema(ctx, datasource.SchemaRequest{}, resp)
	for _, name := range []string{"chart_json", "chart_file", "modern_plugins", "global_variable_legacy_plugins", "data_url", "sha256"} {
		if _, ok := resp.Schema.Attributes[name]; !ok {
			t.Errorf("data source schema is missing %s", name)
		}
	}
	if diags := resp.Schema.ValidateImplementation(ctx); diags.HasError() {
		t.Errorf("data source schema invalid: %v", diags)
	}
}

func TestFileResourceSchema(t *testing.T) {
	ctx := context.Background()
	r := NewFileResource()

	meta := &resource.MetadataResponse{}
	r.Metadata(ctx, resource.MetadataRequest{ProviderTypeName: "chartrender"}, meta)
	if meta.TypeName != "chartrender_file" {
		t.Errorf("TypeName = %q, want chartrender_file", meta.TypeName)
	}

	resp := &resource.SchemaResponse{}
	r.Schema(ctx, resource.SchemaRequest{}, resp)
	if attr, ok := resp.Schema.Attributes["output_path"]; !ok || !attr.IsRequired() {
		t.Error("output_path should be a required attribute")
	}
	if diags := resp.Schema.ValidateImplementation(ctx); diags.HasError() {
		t.Errorf("resource schema invalid: %v", diags)
	}
}

func TestConfigureRejectsUnexpectedData(t *testing.T) {
	ctx := context.Background()

	dresp := &datasource.ConfigureResponse{}
	NewImageDataSource().(*ImageDataSource).Configure(ctx, datasource.ConfigureRequest{ProviderData: "nope"}, dresp)
	if !dresp.Diagnostics.HasError() {
		t.Error("data source Configure accepted unexpected provider data")
	}

	r := NewFileResource().(*FileResource)
	settings := &providerSettings{Width: 1, Height: 2}
	rresp := &resource.ConfigureResponse{}
	r.Configure(ctx, resource.ConfigureRequest{ProviderData: settings}, rresp)
	if rresp.Diagnostics.HasError() || r.settings != settings {
		t.Errorf("resource Configure did not keep provider settings: %v", rresp.Diagnostics)
	}
}
