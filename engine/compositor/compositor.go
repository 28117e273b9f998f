// Package compositor implements the multi-layer Compositor/Presenter (§4.6):
// per-layer blend modes, clipping-mask accumulation, view flags, and the
// frame_ready/frame_in_flight atomic handshake with a present consumer.
//
// Blend-mode formulas are grounded on gogpu-gg/internal/blend's advanced
// separable blend set (BlendMultiply..BlendExclusion): each mode there
// unpremultiplies, blends, and recomposites against destination alpha — the
// structure blend.go's separable helper follows; Normal (and any unknown
// mode) uses pixel.SourceOver directly.
package compositor

import (
	"sync/atomic"
	"time"

	"github.com/inkforge/paintcore/engine/canvas"
	"github.com/inkforge/paintcore/engine/pixel"
)

// PresentStallDeadline is the forced-submit timeout from §4.1 step 5 / §4.6.
const PresentStallDeadline = 100 * time.Millisecond

// Gate tracks the frame_ready / frame_in_flight atomics guarding present
// dispatch (§4.6, §5).
type Gate struct {
	ready    atomic.Bool
	inFlight atomic.Bool
	lastTry  time.Time
}

// ShouldPresent reports whether a new frame may be submitted: both flags
// must be clear, except after PresentStallDeadline has elapsed since the
// last attempt, which forces a submission to avoid livelock.
func (g *Gate) ShouldPresent(now time.Time) bool {
	if !g.ready.Load() && !g.inFlight.Load() {
		return true
	}
	if g.lastTry.IsZero() {
		g.lastTry = now
		return false
	}
	if now.Sub(g.lastTry) >= PresentStallDeadline {
		g.lastTry = now
		return true
	}
	return false
}

// BeginSubmit marks a frame as in flight.
func (g *Gate) BeginSubmit(now time.Time) {
	g.inFlight.Store(true)
	g.lastTry = now
}

// EndSubmit marks the frame as ready for the consumer and no longer in flight.
func (g *Gate) EndSubmit() {
	g.inFlight.Store(false)
	g.ready.Store(true)
}

// PollFrameReady swaps the ready flag to false and returns its prior value,
// matching the external poll_frame_ready semantics (§6).
func (g *Gate) PollFrameReady() bool {
	return g.ready.Swap(false)
}

// TransformPreview optionally installs a preview matrix for one layer,
// without mutating layer contents (§4.7).
type TransformPreview struct {
	Layer    int
	Enabled  bool
	Bilinear bool
	Matrix   [16]float32
}

// Composite combines every visible layer of c, bottom to top, into a
// canvas-sized output buffer using each layer's opacity, blend mode, and
// clipping-mask flag, then applies global view flags.
func Composite(c *canvas.Canvas, preview *TransformPreview, sample func(*pixel.Buffer) *pixel.Buffer) *pixel.Buffer {
	out := pixel.NewBuffer(int(c.Width), int(c.Height))
	var clipAccum []float32

	for i, meta := range c.Layers {
		if !meta.Visible || meta.Opacity <= 1e-4 || i >= len(c.Pixels) || c.Pixels[i] == nil {
			continue
		}
		src := c.Pixels[i]
		if preview != nil && preview.Enabled && preview.Layer == i && sample != nil {
			src = sample(src)
		}

		if meta.ClippingMask && clipAccum == nil {
			clipAccum = make([]float32, out.Width*out.Height)
		}

		for y := 0; y < out.Height; y++ {
			for x := 0; x < out.Width; x++ {
				sp := pixel.ToPremul(src.At(x, y))
				sp.R *= meta.Opacity
				sp.G *= meta.Opacity
				sp.B *= meta.Opacity
				sp.A *= meta.Opacity

				idx := y*out.Width + x
				if meta.ClippingMask {
					sp.R *= clipAccum[idx]
					sp.G *= clipAccum[idx]
					sp.B *= clipAccum[idx]
					sp.A *= clipAccum[idx]
				}

				dp := pixel.ToPremul(out.At(x, y))
				blended := blend(meta.BlendMode, sp, dp)
				out.Set(x, y, pixel.FromPremul(blended))

				if !meta.ClippingMask {
					if clipAccum == nil {
						clipAccum = make([]float32, out.Width*out.Height)
					}
					clipAccum[idx] = blended.A
				}
			}
		}
	}

	applyViewFlags(out, c.ViewFlags)
	return out
}

func applyViewFlags(buf *pixel.Buffer, flags uint32) {
	const (
		flagMirror    = 1
		flagGrayscale = 2
	)
	if flags&flagMirror != 0 {
		for y := 0; y < buf.Height; y++ {
			for x := 0; x < buf.Width/2; x++ {
				ox := buf.Width - 1 - x
				a := buf.At(x, y)
				b := buf.At(ox, y)
				buf.Set(x, y, b)
				buf.Set(ox, y, a)
			}
		}
	}
	if flags&flagGrayscale != 0 {
		for i, p := range buf.Pix {
			luma := clampByte(0.299*float32(p.R()) + 0.587*float32(p.G()) + 0.114*float32(p.B()))
			buf.Pix[i] = pixel.Pack(p.A(), luma, luma, luma)
		}
	}
}

func clampByte(v float32) uint8 {
	if v < 0 {
		return 0
	}
	if v > 255 {
		return 255
	}
	return uint8(v)
}
