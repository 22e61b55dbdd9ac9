// Package colour parses the CSS colour strings accepted by chart specifications
// (hex, rgb()/rgba(), hsl()/hsla(), named colours and "transparent") into
// image/color values.
package colour

import (
	"fmt"
	"image/color"
	"math"
	"strconv"
	"strings"

	"golang.org/x/image/colornames"
)

// Transparent is fully transparent black, the value of the "transparent" keyword.
var Transparent = color.NRGBA{}

// Parse parses a CSS colour string.
func Parse(s string) (color.NRGBA, error) {
	value := strings.ToLower(strings.TrimSpace(s))
	if value == "" {
		return color.NRGBA{}, fmt.Errorf("empty colour")
	}

	switch {
	case value == "transparent":
		return Transparent, nil
	case strings.HasPrefix(value, "#"):
		return parseHex(value[1:])
	case strings.HasPrefix(value, "rgb"):
		return parseFunctional(value, "rgb")
	case strings.HasPrefix(value, "hsl"):
		return parseFunctional(value, "hsl")
	}

	if named, ok := colornames.Map[value]; ok {
		return color.NRGBA{R: named.R, G: named.G, B: named.B, A: named.A}, nil
	}
	return color.NRGBA{}, fmt.Errorf("unknown colour: %q", s)
}

// MustParse is like Parse but panics on malformed input. It is meant for
// package-level palettes.
func MustParse(s string) color.NRGBA {
	c, err := Parse(s)
	if err != nil {
		panic(err)
	}
	return c
}

// WithAlpha returns c with its alpha channel multiplied by alpha (0..1).
func WithAlpha(c color.Color, alpha float64) color.NRGBA {
	n := color.NRGBAModel.Convert(c).(color.NRGBA)
	n.A = uint8(math.Round(float64(n.A) * clamp01(alpha)))
	return n
}

// Lighten mixes c towards white by percent (0..100).
func Lighten(c color.NRGBA, percent int) color.NRGBA {
	factor := clamp01(float64(percent) / 100.0)
	return color.NRGBA{
		R: uint8(float64(c.R) + (255-float64(c.R))*factor),
		G: uint8(float64(c.G) + (255-float64(c.G))*factor),
		B: uint8(float64(c.B) + (255-float64(c.B))*factor),
		A: c.A,
	}
}

// Darken mixes c towards black by percent (0..100).
func Darken(c color.NRGBA, percent int) color.NRGBA {
	factor := 1.0 - clamp01(float64(percent)/100.0)
	return color.NRGBA{
		R: uint8(float64(c.R) * factor),
		G: uint8(float64(c.G) * factor),
		B: uint8(float64(c.B) * factor),
		A: c.A,
	}
}

// Hex formats c as #RRGGBB, or #RRGGBBAA when it is not opaque.
func Hex(c color.NRGBA) string {
	if c.A == 255 {
		return fmt.Sprintf("#%02X%02X%02X", c.R, c.G, c.B)
	}
	return fmt.Sprintf("#%02X%02X%02X%02X", c.R, c.G, c.B, c.A)
}

func parseHex(hex string) (color.NRGBA, error) {
	switch len(hex) {
	case 3, 4:
		// #rgb and #rgba expand every digit
		expanded := make([]byte, 0, len(hex)*2)
		for i := 0; i < len(hex); i++ {
			expanded = append(expanded, hex[i], hex[i])
		}
		hex = string(expanded)
	case 6, 8:
	default:
		return color.NRGBA{}, fmt.Errorf("invalid hex colour: #%s", hex)
	}

	v, err := strconv.ParseUint(hex, 16, 32)
	if err != nil {
		return color.NRGBA{}, fmt.Errorf("invalid hex colour: #%s", hex)
	}
	if len(hex) == 6 {
		return color.NRGBA{R: uint8(v >> 16), G: uint8(v >> 8), B: uint8(v), A: 255}, nil
	}
	return color.NRGBA{R: uint8(v >> 24), G: uint8(v >> 16), B: uint8(v >> 8), A: uint8(v)}, nil
}

// parseFunctional handles rgb(), rgba(), hsl() and hsla(), with either comma
// or whitespace separated arguments and an optional "/ alpha".
func parseFunctional(value, kind string) (color.NRGBA, error) {
	open := strings.IndexByte(value, '(')
	if open < 0 || !strings.HasSuffix(value, ")") {
		return color.NRGBA{}, fmt.Errorf("invalid colour function: %q", value)
	}
	name := value[:open]
	if name != kind && name != kind+"a" {
		return color.NRGBA{}, fmt.Errorf("invalid colour function: %q", value)
	}

	body := strings.NewReplacer(",", " ", "/", " ").Replace(value[open+1 : len(value)-1])
	args := strings.Fields(body)
	if len(args) != 3 && len(args) != 4 {
		return color.NRGBA{}, fmt.Errorf("invalid colour function arguments: %q", value)
	}

	alpha := 1.0
	if len(args) == 4 {
		a, err := parseComponent(args[3], 1)
		if err != nil {
			return color.NRGBA{}, err
		}
		alpha = a
	}

	if kind == "rgb" {
		var rgb [3]float64
		for i := 0; i < 3; i++ {
			v, err := parseComponent(args[i], 255)
			if err != nil {
				return color.NRGBA{}, err
			}
			rgb[i] = v
		}
		return color.NRGBA{
			R: toByte(rgb[0] / 255),
			G: toByte(rgb[1] / 255),
			B: toByte(rgb[2] / 255),
			A: toByte(alpha),
		}, nil
	}

	h, err := strconv.ParseFloat(strings.TrimSuffix(args[0], "deg"), 64)
	if err != nil {
		return color.NRGBA{}, fmt.Errorf("invalid hue %q: %w", args[0], err)
	}
	s, err := parseComponent(args[1], 1)
	if err != nil {
		return color.NRGBA{}, err
	}
	l, err := parseComponent(args[2], 1)
	if err != nil {
		return color.NRGBA{}, err
	}
	r, g, b := hslToRGB(h, s, l)
	return color.NRGBA{R: toByte(r), G: toByte(g), B: toByte(b), A: toByte(alpha)}, nil
}

// parseComponent parses a number or percentage; percentages are scaled to max.
func parseComponent(arg string, max float64) (float64, error) {
	if strings.HasSuffix(arg, "%") {
		v, err := strconv.ParseFloat(strings.TrimSuffix(arg, "%"), 64)
		if err != nil {
			return 0, fmt.Errorf("invalid colour component %q: %w", arg, err)
		}
		return clamp(v/100*max, 0, max), nil
	}
	v, err := strconv.ParseFloat(arg, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid colour component %q: %w", arg, err)
	}
	return clamp(v, 0, max), nil
}

func hslToRGB(h, s, l float64) (float64, float64, float64) {
	h = math.Mod(h, 360)
	if h < 0 {
		h += 360
	}
	c := (1 - math.Abs(2*l-1)) * s
	x := c * (1 - math.Abs(math.Mod(h/60, 2)-1))
	m := l - c/2

	var r, g, b float64
	switch {
	case h < 60:
		r, g, b = c, x, 0
	case h < 120:
		r, g, b = x, c, 0
	case h < 180:
		r, g, b = 0, c, x
	case h < 240:
		r, g, b = 0, x, c
	case h < 300:
		r, g, b = x, 0, c
	default:
		r, g, b = c, 0, x
	}
	return r + m, g + m, b + m
}

func toByte(v float64) uint8 {
	return uint8(math.Round(clamp01(v) * 255))
}

func clamp01(v float64) float64 {
	return clamp(v, 0, 1)
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
