// Package forecast fits a straight line to an ordinal series of counts and
// projects it forward.
//
// The x axis is an ordinal index (0, 1, 2, ...) rather than a timestamp, so a
// slope reads as "change in count per observed step". Projections are whole,
// non-negative counts.
package forecast

import "math"

// Point is a single observation on the ordinal axis.
type Point struct {
	X float64
	Y float64
}

// Model is a fitted line: y = Slope*x + Intercept.
type Model struct {
	Slope     float64 `json:"slope"`
	Intercept float64 `json:"intercept"`
}

// At evaluates the line at x without rounding or clamping.
func (m Model) At(x float64) float64 {
	return m.Slope*x + m.Intercept
}

// Projection is a projected count at an index beyond the observed series.
type Projection struct {
	Index int `json:"index"`
	Count int `json:"count"`
}

// Fit computes the ordinary least-squares line through points.
//
// With fewer than two points the model is a flat line at the only observed
// value (or zero for no points). When every x is identical the slope is 0 and
// the intercept is the mean of y. Fit never fails.
func Fit(points []Point) Model {
	if len(points) < 2 {
		if len(points) == 1 {
			return Model{Intercept: points[0].Y}
		}

		return Model{}
	}

	n := float64(len(points))
	var sumX, sumY float64
	for _, p := range points {
		sumX += p.X
		sumY += p.Y
	}
	meanX := sumX / n
	meanY := sumY / n

	var ssXY, ssXX float64
	for _, p := range points {
		dx := p.X - meanX
		ssXY += dx * (p.Y - meanY)
		ssXX += dx * dx
	}

	var slope float64
	if ssXX != 0 {
		slope = ssXY / ssXX
	}

	return Model{
		Slope:     slope,
		Intercept: meanY - slope*meanX,
	}
}

// Extrapolate projects count steps of m starting at index start.
//
// Each value is rounded half up and clamped at zero, so the result is always a
// valid usage count. A non-positive count returns an empty slice.
func Extrapolate(m Model, start, count int) []Projection {
	if count <= 0 {
		return []Projection{}
	}

	out := make([]Projection, count)
	for i := range out {
		x := start + i
		out[i] = Projection{
			Index: x,
			Count: ClampCount(m.At(float64(x))),
		}
	}

	return out
}

// RoundHalfUp rounds v to the nearest integer, with .5 going toward +Inf.
func RoundHalfUp(v float64) int {
	return int(math.Floor(v + 0.5))
}

// ClampCount rounds v half up and floors the result at zero.
func ClampCount(v float64) int {
	return max(0, RoundHalfUp(v))
}
