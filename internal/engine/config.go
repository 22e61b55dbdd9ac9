package engine

import (
	"bytes"
	"encoding/json"
	"fmt"
	"image/color"
	"strconv"

	"github.com/ankek/terraform-provider-chartrender/internal/colour"
)

// Config is a declarative chart specification.
type Config struct {
	Type    string   `json:"type"`
	Data    Data     `json:"data"`
	Options *Options `json:"options,omitempty"`

	// Plugins are inline plugins local to this chart, run after the
	// registered ones.
	Plugins []Plugin `json:"-"`
}

// Data holds the labels and datasets of a chart.
type Data struct {
	Labels   Labels     `json:"labels,omitempty"`
	Datasets []*Dataset `json:"datasets"`
}

// Dataset is one data series.
type Dataset struct {
	Label           string   `json:"label,omitempty"`
	Type            string   `json:"type,omitempty"` // overrides Config.Type for mixed charts
	Data            []Point  `json:"data"`
	BackgroundColor Colours  `json:"backgroundColor,omitempty"`
	BorderColor     Colours  `json:"borderColor,omitempty"`
	BorderWidth     *float64 `json:"borderWidth,omitempty"`
	PointRadius     *float64 `json:"pointRadius,omitempty"`
	Hidden          bool     `json:"hidden,omitempty"`
}

// Options are the chart-wide options.
type Options struct {
	Responsive bool                     `json:"responsive"`
	Animation  any                      `json:"animation,omitempty"`
	Plugins    map[string]any           `json:"plugins,omitempty"`
	Scales     map[string]*ScaleOptions `json:"scales,omitempty"`
	Layout     LayoutOptions            `json:"layout,omitempty"`
	Cutout     *float64                 `json:"cutout,omitempty"` // doughnut hole, percent of the radius
}

// ScaleOptions configure the "x" or "y" axis.
type ScaleOptions struct {
	Display     *bool       `json:"display,omitempty"`
	Min         *float64    `json:"min,omitempty"`
	Max         *float64    `json:"max,omitempty"`
	BeginAtZero bool        `json:"beginAtZero,omitempty"`
	Grid        GridOptions `json:"grid,omitempty"`
	Ticks       TickOptions `json:"ticks,omitempty"`
}

// GridOptions configure grid lines.
type GridOptions struct {
	Display *bool  `json:"display,omitempty"`
	Color   string `json:"color,omitempty"`
}

// TickOptions configure tick labels.
type TickOptions struct {
	Color string `json:"color,omitempty"`
}

// LayoutOptions configure the space around the chart.
type LayoutOptions struct {
	Padding *float64 `json:"padding,omitempty"`
}

// ParseConfig decodes a JSON chart specification.
func ParseConfig(data []byte) (*Config, error) {
	var cfg Config
	dec := json.NewDecoder(bytes.NewReader(data))
	if err := dec.Decode(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse chart configuration: %w", err)
	}
	if cfg.Type == "" {
		return nil, fmt.Errorf("chart configuration has no type")
	}
	return &cfg, nil
}

// Labels are category labels; numeric labels are accepted and formatted.
type Labels []string

func (l *Labels) UnmarshalJSON(b []byte) error {
	var raw []any
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	out := make(Labels, len(raw))
	for i, v := range raw {
		switch x := v.(type) {
		case nil:
			out[i] = ""
		case string:
			out[i] = x
		case float64:
			out[i] = strconv.FormatFloat(x, 'f', -1, 64)
		default:
			out[i] = fmt.Sprint(x)
		}
	}
	*l = out
	return nil
}

// Point is a data value: a bare number, an {x, y} object, or null.
type Point struct {
	X    float64
	Y    float64
	HasX bool
	Null bool
}

// Value returns a point holding only a y value.
func Value(y float64) Point { return Point{Y: y} }

// XY returns a point with both coordinates.
func XY(x, y float64) Point { return Point{X: x, Y: y, HasX: true} }

func (p *Point) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if bytes.Equal(b, []byte("null")) {
		*p = Point{Null: true}
		return nil
	}
	if len(b) > 0 && b[0] == '{' {
		var obj struct {
			X *float64 `json:"x"`
			Y *float64 `json:"y"`
		}
		if err := json.Unmarshal(b, &obj); err != nil {
			return err
		}
		if obj.Y == nil {
			*p = Point{Null: true}
			return nil
		}
		*p = Point{Y: *obj.Y}
		if obj.X != nil {
			p.X, p.HasX = *obj.X, true
		}
		return nil
	}
	var y float64
	if err := json.Unmarshal(b, &y); err != nil {
		return fmt.Errorf("data point must be a number, an {x, y} object or null: %w", err)
	}
	*p = Point{Y: y}
	return nil
}

func (p Point) MarshalJSON() ([]byte, error) {
	switch {
	case p.Null:
		return []byte("null"), nil
	case p.HasX:
		return json.Marshal(map[string]float64{"x": p.X, "y": p.Y})
	}
	return json.Marshal(p.Y)
}

// Colours is a single colour or one colour per data element.
type Colours []string

func (c *Colours) UnmarshalJSON(b []byte) error {
	var single string
	if err := json.Unmarshal(b, &single); err == nil {
		*c = Colours{single}
		return nil
	}
	var many []string
	if err := json.Unmarshal(b, &many); err != nil {
		return fmt.Errorf("colour must be a string or a list of strings: %w", err)
	}
	*c = many
	return nil
}

// At returns the colour for element i, cycling through the list, or fallback
// when the list is empty or the entry does not parse.
func (c Colours) At(i int, fallback color.NRGBA) color.NRGBA {
	if len(c) == 0 {
		return fallback
	}
	parsed, err := colour.Parse(c[i%len(c)])
	if err != nil {
		return fallback
	}
	return parsed
}

// PluginOptions are the per-chart options of one plugin, taken from
// options.plugins[<plugin id>].
type PluginOptions struct {
	raw any
}

// NewPluginOptions wraps raw option values.
func NewPluginOptions(raw any) PluginOptions {
	return PluginOptions{raw: raw}
}

// Raw returns the undecoded option value.
func (o PluginOptions) Raw() any { return o.raw }

// Empty reports whether no options were supplied.
func (o PluginOptions) Empty() bool { return o.raw == nil }

// Decode decodes the options into out. Missing options leave out untouched.
func (o PluginOptions) Decode(out any) error {
	if o.raw == nil {
		return nil
	}
	data, err := json.Marshal(o.raw)
	if err != nil {
		return fmt.Errorf("failed to encode plugin options: %w", err)
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("failed to decode plugin options: %w", err)
	}
	return nil
}
