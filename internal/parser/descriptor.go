package parser

import (
	"fmt"
	"strings"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"
	"github.com/zclconf/go-cty/cty"
)

// Load modes of a plugin descriptor.
const (
	OnLoadExport = "export"
	OnLoadEngine = "engine"
	OnLoadGlobal = "global"
)

// Descriptor describes one plugin module instance:
//
//	plugin "watermark" {
//	  id      = "draft-stamp"
//	  on_load = "export"
//	  options = { text = "DRAFT" }
//	}
type Descriptor struct {
	Kind    string
	ID      string
	OnLoad  string
	Options map[string]any
}

type descriptorFile struct {
	Plugins []descriptorBlock `hcl:"plugin,block"`
}

type descriptorBlock struct {
	Kind    string    `hcl:"kind,label"`
	ID      string    `hcl:"id,optional"`
	OnLoad  string    `hcl:"on_load,optional"`
	Options cty.Value `hcl:"options,optional"`
}

// ParseDescriptor parses a descriptor in HCL, or in HCL's JSON syntax when
// filename ends in .json. The file must hold exactly one plugin block.
func ParseDescriptor(data []byte, filename string) (*Descriptor, error) {
	parser := hclparse.NewParser()

	var file *hcl.File
	var diags hcl.Diagnostics
	if strings.HasSuffix(strings.ToLower(filename), ".json") {
		file, diags = parser.ParseJSON(data, filename)
	} else {
		file, diags = parser.ParseHCL(data, filename)
	}
	if diags.HasErrors() {
		return nil, fmt.Errorf("descriptor parse errors: %s", diags.Error())
	}

	var decoded descriptorFile
	if diags := gohcl.DecodeBody(file.Body, nil, &decoded); diags.HasErrors() {
		return nil, fmt.Errorf("invalid descriptor: %s", diags.Error())
	}
	if len(decoded.Plugins) != 1 {
		return nil, fmt.Errorf("descriptor must contain exactly one plugin block, found %d", len(decoded.Plugins))
	}

	block := decoded.Plugins[0]
	desc := &Descriptor{
		Kind:   block.Kind,
		ID:     block.ID,
		OnLoad: block.OnLoad,
	}
	if desc.OnLoad == "" {
		desc.OnLoad = OnLoadExport
	}
	switch desc.OnLoad {
	case OnLoadExport, OnLoadEngine, OnLoadGlobal:
	default:
		return nil, fmt.Errorf("invalid on_load %q: must be one of %s, %s, %s",
			desc.OnLoad, OnLoadExport, OnLoadEngine, OnLoadGlobal)
	}

	if !block.Options.IsNull() {
		opts, ok := toNative(block.Options).(map[string]any)
		if !ok {
			return nil, fmt.Errorf("descriptor options must be an object")
		}
		desc.Options = opts
	}
	return desc, nil
}

// toNative converts a cty.Value to plain Go values: string, float64, bool,
// []any and map[string]any.
func toNative(val cty.Value) any {
	if val.IsNull() || !val.IsKnown() {
		return nil
	}

	switch val.Type() {
	case cty.String:
		return val.AsString()
	case cty.Number:
		f, _ := val.AsBigFloat().Float64()
		return f
	case cty.Bool:
		return val.True()
	}

	ty := val.Type()
	if ty.IsListType() || ty.IsTupleType() || ty.IsSetType() {
		list := make([]any, 0, val.LengthInt())
		it := val.ElementIterator()
		for it.Next() {
			_, v := it.Element()
			list = append(list, toNative(v))
		}
		return list
	}

	if ty.IsMapType() || ty.IsObjectType() {
		m := make(map[string]any)
		it := val.ElementIterator()
		for it.Next() {
			k, v := it.Element()
			m[k.AsString()] = toNative(v)
		}
		return m
	}

	return nil
}
