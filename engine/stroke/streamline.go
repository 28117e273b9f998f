package stroke

import (
	"math"

	"github.com/inkforge/paintcore/engine/brush"
)

// Smooth applies the 4-step streamline-smoothing algorithm from §4.2 to a
// completed stroke's emitted points, producing a new point sequence blended
// toward a weighted Catmull-Rom resampling of the original path. Returns the
// original slice unchanged if strength is negligible or too few points were
// drawn.
func Smooth(points []brush.Point, strength float32) []brush.Point {
	if strength <= 1e-4 || len(points) < 3 {
		return points
	}

	smoothed := append([]brush.Point(nil), points...)
	passes := int(math.Ceil(float64(2 * strength)))
	if passes < 1 {
		passes = 1
	}
	if passes > 3 {
		passes = 3
	}
	for i := 0; i < passes; i++ {
		smoothed = weightedCatmullRom(smoothed)
	}

	posBlend := float32(math.Pow(float64(strength), 0.7))
	radiusBlend := posBlend / 2

	out := make([]brush.Point, len(points))
	for i := range points {
		sp := smoothed[i%len(smoothed)]
		out[i] = brush.Point{
			X:      points[i].X + (sp.X-points[i].X)*posBlend,
			Y:      points[i].Y + (sp.Y-points[i].Y)*posBlend,
			Radius: points[i].Radius + (sp.Radius-points[i].Radius)*radiusBlend,
		}
	}
	return out
}

// weightedCatmullRom resamples the polyline proportional to per-edge weights
// (length times a turning-angle factor), keeping endpoints fixed, and
// returning a sequence of the same length via Catmull-Rom interpolation.
func weightedCatmullRom(pts []brush.Point) []brush.Point {
	n := len(pts)
	if n < 3 {
		return pts
	}

	weights := make([]float32, n-1)
	var total float32
	for i := 0; i < n-1; i++ {
		length := dist(pts[i], pts[i+1])
		turn := float32(0)
		if i > 0 {
			turn = turningAngle(pts[i-1], pts[i], pts[i+1])
		}
		w := length * (1 + 0.75*turn)
		weights[i] = w
		total += w
	}
	if total <= 0 {
		return pts
	}

	out := make([]brush.Point, n)
	out[0] = pts[0]
	out[n-1] = pts[n-1]

	cum := make([]float32, n)
	for i := 1; i < n; i++ {
		cum[i] = cum[i-1] + weights[i-1]/total
	}

	for i := 1; i < n-1; i++ {
		target := float32(i) / float32(n-1)
		seg := 0
		for seg < n-2 && cum[seg+1] < target {
			seg++
		}
		span := cum[seg+1] - cum[seg]
		localT := float32(0)
		if span > 0 {
			localT = (target - cum[seg]) / span
		}
		out[i] = catmullRom(
			pts[clampIdx(seg-1, n)],
			pts[clampIdx(seg, n)],
			pts[clampIdx(seg+1, n)],
			pts[clampIdx(seg+2, n)],
			localT,
		)
	}
	return out
}

func clampIdx(i, n int) int {
	if i < 0 {
		return 0
	}
	if i >= n {
		return n - 1
	}
	return i
}

func dist(a, b brush.Point) float32 {
	dx, dy := b.X-a.X, b.Y-a.Y
	return float32(math.Hypot(float64(dx), float64(dy)))
}

func turningAngle(a, b, c brush.Point) float32 {
	v1x, v1y := b.X-a.X, b.Y-a.Y
	v2x, v2y := c.X-b.X, c.Y-b.Y
	l1 := float32(math.Hypot(float64(v1x), float64(v1y)))
	l2 := float32(math.Hypot(float64(v2x), float64(v2y)))
	if l1 <= 0 || l2 <= 0 {
		return 0
	}
	cos := (v1x*v2x + v1y*v2y) / (l1 * l2)
	if cos > 1 {
		cos = 1
	}
	if cos < -1 {
		cos = -1
	}
	return float32(math.Acos(float64(cos))) / float32(math.Pi)
}

func catmullRom(p0, p1, p2, p3 brush.Point, t float32) brush.Point {
	t2 := t * t
	t3 := t2 * t
	f := func(a, b, c, d float32) float32 {
		return 0.5 * ((2 * b) +
			(-a+c)*t +
			(2*a-5*b+4*c-d)*t2 +
			(-a+3*b-3*c+d)*t3)
	}
	return brush.Point{
		X:      f(p0.X, p1.X, p2.X, p3.X),
		Y:      f(p0.Y, p1.Y, p2.Y, p3.Y),
		Radius: f(p0.Radius, p1.Radius, p2.Radius, p3.Radius),
	}
}
