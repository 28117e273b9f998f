// Package stroke converts sparse pointer samples into spacing-normalized
// brush stamps and produces the post-stroke streamline-smoothing playback
// (§4.2).
package stroke

import (
	"math"

	"github.com/inkforge/paintcore/engine/brush"
	"github.com/inkforge/paintcore/engine/command"
)

// Resampler holds the in-progress state of one stroke between input batches.
type Resampler struct {
	baseRadius      float32
	pressureEnabled bool

	hasLast    bool
	lastX      float32
	lastY      float32
	lastRadius float32

	emitted []brush.Point
}

// NewResampler starts a fresh stroke for the given brush radius/pressure config.
func NewResampler(baseRadius float32, pressureEnabled bool) *Resampler {
	return &Resampler{baseRadius: baseRadius, pressureEnabled: pressureEnabled}
}

func (r *Resampler) radiusFor(pressure float32) float32 {
	if !r.pressureEnabled {
		return r.baseRadius
	}
	return r.baseRadius * (0.09 + 0.91*pressure)
}

// Feed processes one input sample, returning the newly emitted points (if
// any) to be rasterized immediately by the brush kernel.
func (r *Resampler) Feed(s command.Sample) []brush.Point {
	radius := r.radiusFor(s.Pressure)

	if s.Flags&command.FlagDown != 0 || !r.hasLast {
		pt := brush.Point{X: s.X, Y: s.Y, Radius: radius}
		r.emitted = append(r.emitted, pt)
		r.lastX, r.lastY, r.lastRadius = s.X, s.Y, radius
		r.hasLast = true
		return []brush.Point{pt}
	}

	dx, dy := s.X-r.lastX, s.Y-r.lastY
	dist := float32(math.Hypot(float64(dx), float64(dy)))

	if dist < 1e-4 {
		if s.Flags&command.FlagUp != 0 {
			pt := brush.Point{X: s.X, Y: s.Y, Radius: radius}
			r.emitted = append(r.emitted, pt)
			return []brush.Point{pt}
		}
		return nil
	}

	meanRadius := (radius + r.lastRadius) / 2
	step := meanRadius * 0.10
	if step < 0.25 {
		step = 0.25
	}
	if step > 0.5 {
		step = 0.5
	}

	var out []brush.Point
	ux, uy := dx/dist, dy/dist
	traveled := step
	for traveled < dist {
		t := traveled / dist
		px := r.lastX + ux*traveled
		py := r.lastY + uy*traveled
		pr := r.lastRadius + (radius-r.lastRadius)*t
		pt := brush.Point{X: px, Y: py, Radius: pr}
		out = append(out, pt)
		r.emitted = append(r.emitted, pt)
		traveled += step
	}

	if s.Flags&command.FlagUp != 0 {
		pt := brush.Point{X: s.X, Y: s.Y, Radius: radius}
		out = append(out, pt)
		r.emitted = append(r.emitted, pt)
	}

	r.lastX, r.lastY, r.lastRadius = s.X, s.Y, radius
	return out
}

// Finish returns the full emitted point sequence for the completed stroke.
// Call once after a sample carrying FlagUp has been fed.
func (r *Resampler) Finish() []brush.Point {
	return r.emitted
}
