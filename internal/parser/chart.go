package parser

import (
	"context"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/ankek/terraform-provider-chartrender/internal/engine"
	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/hclparse"
	"github.com/zclconf/go-cty/cty"
	"github.com/zclconf/go-cty/cty/function"
	"github.com/zclconf/go-cty/cty/function/stdlib"
	ctyjson "github.com/zclconf/go-cty/cty/json"
)

// ParseChartFile reads a chart specification from a .json or .hcl file.
// vars are exposed to HCL expressions as var.<name>.
func ParseChartFile(ctx context.Context, path string, vars map[string]string) (*engine.Config, error) {
	// Check if context is already cancelled
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read chart file: %w", err)
	}
	return ParseChart(data, path, vars)
}

// ParseChart parses a chart specification. Files ending in .hcl are HCL,
// everything else is JSON.
func ParseChart(data []byte, filename string, vars map[string]string) (*engine.Config, error) {
	if !isHCL(filename) {
		return engine.ParseConfig(data)
	}

	parser := hclparse.NewParser()
	file, diags := parser.ParseHCL(data, filename)
	if diags.HasErrors() {
		return nil, fmt.Errorf("HCL parse errors: %s", diags.Error())
	}

	attrs, diags := file.Body.JustAttributes()
	if diags.HasErrors() {
		return nil, fmt.Errorf("failed to parse attributes: %s", diags.Error())
	}

	evalCtx := newEvalContext(vars)
	values := make(map[string]cty.Value, len(attrs))
	for name, attr := range attrs {
		val, diags := attr.Expr.Value(evalCtx)
		if diags.HasErrors() {
			return nil, fmt.Errorf("failed to evaluate %s: %s", name, diags.Error())
		}
		values[name] = val
	}

	obj := cty.ObjectVal(values)
	encoded, err := ctyjson.Marshal(obj, obj.Type())
	if err != nil {
		return nil, fmt.Errorf("failed to convert chart to JSON: %w", err)
	}
	return engine.ParseConfig(encoded)
}

func isHCL(filename string) bool {
	return strings.EqualFold(filepath.Ext(filename), ".hcl")
}

// newEvalContext builds the evaluation context for chart expressions.
func newEvalContext(vars map[string]string) *hcl.EvalContext {
	// Sorted for deterministic error messages
	names := make([]string, 0, len(vars))
	for name := range vars {
		names = append(names, name)
	}
	sort.Strings(names)

	varValues := make(map[string]cty.Value, len(vars))
	for _, name := range names {
		varValues[name] = variableValue(vars[name])
	}

	return &hcl.EvalContext{
		Variables: map[string]cty.Value{
			"var": cty.ObjectVal(varValues),
		},
		Functions: map[string]function.Function{
			"abs":        stdlib.AbsoluteFunc,
			"ceil":       stdlib.CeilFunc,
			"concat":     stdlib.ConcatFunc,
			"floor":      stdlib.FloorFunc,
			"format":     stdlib.FormatFunc,
			"join":       stdlib.JoinFunc,
			"jsondecode": stdlib.JSONDecodeFunc,
			"jsonencode": stdlib.JSONEncodeFunc,
			"length":     stdlib.LengthFunc,
			"lower":      stdlib.LowerFunc,
			"max":        stdlib.MaxFunc,
			"min":        stdlib.MinFunc,
			"range":      stdlib.RangeFunc,
			"split":      stdlib.SplitFunc,
			"trimspace":  stdlib.TrimSpaceFunc,
			"upper":      stdlib.UpperFunc,
		},
	}
}

// variableValue types a command-line variable: finite numbers and booleans
// are converted, anything else (including NaN and Inf) stays a string.
func variableValue(raw string) cty.Value {
	if f, err := strconv.ParseFloat(raw, 64); err == nil && !math.IsNaN(f) && !math.IsInf(f, 0) {
		return cty.NumberFloatVal(f)
	}
	if b, err := strconv.ParseBool(raw); err == nil && (raw == "true" || raw == "false") {
		return cty.BoolVal(b)
	}
	return cty.StringVal(raw)
}
