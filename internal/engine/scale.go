package engine

import (
	"math"
	"strconv"
)

const epsilon = 1e-9

// LinearScale maps numeric values onto a pixel range.
type LinearScale struct {
	Min, Max   float64
	Step       float64
	Ticks      []float64
	Start, End float64
}

// NewLinearScale fits nicely spaced ticks around [min, max] using at most
// roughly maxTicks ticks.
func NewLinearScale(min, max float64, maxTicks int) *LinearScale {
	if math.IsInf(min, 0) || math.IsInf(max, 0) || math.IsNaN(min) || math.IsNaN(max) {
		min, max = 0, 1
	}
	if max < min {
		min, max = max, min
	}
	if max == min {
		min, max = min-1, max+1
	}

	step := niceStep(max-min, maxTicks)
	lo := math.Floor(min/step+epsilon) * step
	hi := math.Ceil(max/step-epsilon) * step

	s := &LinearScale{Min: lo, Max: hi, Step: step}
	n := int(math.Round((hi - lo) / step))
	for i := 0; i <= n; i++ {
		v := lo + float64(i)*step
		if math.Abs(v) < step*1e-9 {
			v = 0
		}
		s.Ticks = append(s.Ticks, v)
	}
	return s
}

// Pixel returns the pixel position of v.
func (s *LinearScale) Pixel(v float64) float64 {
	if s.Max == s.Min {
		return (s.Start + s.End) / 2
	}
	return s.Start + (v-s.Min)/(s.Max-s.Min)*(s.End-s.Start)
}

// Label formats a tick value with as many decimals as the step needs.
func (s *LinearScale) Label(v float64) string {
	decimals := 0
	if s.Step > 0 && s.Step < 1 {
		decimals = int(math.Ceil(-math.Log10(s.Step)))
	}
	return strconv.FormatFloat(v, 'f', decimals, 64)
}

func niceStep(span float64, maxTicks int) float64 {
	if maxTicks < 2 {
		maxTicks = 2
	}
	raw := span / float64(maxTicks-1)
	mag := math.Pow(10, math.Floor(math.Log10(raw)))
	switch norm := raw / mag; {
	case norm <= 1+epsilon:
		return mag
	case norm <= 2+epsilon:
		return 2 * mag
	case norm <= 5+epsilon:
		return 5 * mag
	}
	return 10 * mag
}

// CategoryScale places labelled categories evenly along a pixel range. With
// Offset each category gets a band and sits in its middle.
type CategoryScale struct {
	Labels     []string
	Count      int
	Offset     bool
	Start, End float64
}

// Pixel returns the pixel position of category i.
func (s *CategoryScale) Pixel(i int) float64 {
	switch {
	case s.Count == 0:
		return (s.Start + s.End) / 2
	case s.Offset:
		return s.Start + s.Band()*(float64(i)+0.5)
	case s.Count == 1:
		return (s.Start + s.End) / 2
	}
	return s.Start + (s.End-s.Start)*float64(i)/float64(s.Count-1)
}

// Band returns the width of one category.
func (s *CategoryScale) Band() float64 {
	if s.Count == 0 {
		return 0
	}
	return (s.End - s.Start) / float64(s.Count)
}

// Label returns the label of category i.
func (s *CategoryScale) Label(i int) string {
	if i < len(s.Labels) {
		return s.Labels[i]
	}
	return ""
}
