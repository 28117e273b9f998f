package stroke

import (
	"math"
	"time"

	"github.com/inkforge/paintcore/engine/brush"
	"github.com/tanema/gween"
	"github.com/tanema/gween/ease"
)

// Animator plays back the transition from a stroke's raw points to its
// streamline-smoothed points over a short duration, one tween per axis (x, y,
// radius) per point, queried once per render-thread tick (§4.2, §9
// "streamline payload").
type Animator struct {
	layer int
	from  []brush.Point
	to    []brush.Point
	tweensX []*gween.Tween
	tweensY []*gween.Tween
	tweensR []*gween.Tween
	done    bool
}

// Duration returns the animation length for the given streamline strength,
// per the 150 + 150*strength^0.7 ms formula.
func Duration(strength float32) time.Duration {
	ms := 150 + 150*math.Pow(float64(strength), 0.7)
	return time.Duration(ms * float64(time.Millisecond))
}

// NewAnimator builds an animator that interpolates from -> to over duration.
// from and to must be the same length (Smooth preserves length).
func NewAnimator(layer int, from, to []brush.Point, duration time.Duration) *Animator {
	n := len(from)
	a := &Animator{
		layer:   layer,
		from:    from,
		to:      to,
		tweensX: make([]*gween.Tween, n),
		tweensY: make([]*gween.Tween, n),
		tweensR: make([]*gween.Tween, n),
	}
	secs := float32(duration.Seconds())
	for i := 0; i < n; i++ {
		a.tweensX[i] = gween.New(from[i].X, to[i].X, secs, ease.Linear)
		a.tweensY[i] = gween.New(from[i].Y, to[i].Y, secs, ease.Linear)
		a.tweensR[i] = gween.New(from[i].Radius, to[i].Radius, secs, ease.Linear)
	}
	return a
}

// Layer returns the layer index this animation is drawing onto.
func (a *Animator) Layer() int { return a.layer }

// Final returns the animation's target point sequence without advancing any
// tween, used to snap an animation straight to completion.
func (a *Animator) Final() []brush.Point { return a.to }

// Done reports whether every tween has reached its end value.
func (a *Animator) Done() bool { return a.done }

// Tick advances every per-point tween by dt and returns the interpolated
// point sequence for this frame.
func (a *Animator) Tick(dt time.Duration) []brush.Point {
	if a.done {
		return a.to
	}
	out := make([]brush.Point, len(a.from))
	allDone := true
	secs := float32(dt.Seconds())
	for i := range out {
		x, fin := a.tweensX[i].Update(secs)
		y, _ := a.tweensY[i].Update(secs)
		r, _ := a.tweensR[i].Update(secs)
		out[i] = brush.Point{X: x, Y: y, Radius: r}
		if !fin {
			allDone = false
		}
	}
	a.done = allDone
	return out
}
