package compositor

import (
	"github.com/inkforge/paintcore/engine/canvas"
	"github.com/inkforge/paintcore/engine/pixel"
)

// blend dispatches src-over-dst compositing for the given mode, both
// arguments in premultiplied space. Unknown modes coerce to Normal (§4.6).
func blend(mode canvas.BlendMode, src, dst pixel.Premul) pixel.Premul {
	switch mode {
	case canvas.BlendMultiply:
		return separable(src, dst, func(s, d float32) float32 { return s * d })
	case canvas.BlendScreen:
		return separable(src, dst, func(s, d float32) float32 { return s + d - s*d })
	case canvas.BlendOverlay:
		return separable(src, dst, func(s, d float32) float32 { return hardLight(d, s) })
	case canvas.BlendDarken:
		return separable(src, dst, func(s, d float32) float32 { return min32(s, d) })
	case canvas.BlendLighten:
		return separable(src, dst, func(s, d float32) float32 { return max32(s, d) })
	case canvas.BlendColorDodge:
		return separable(src, dst, colorDodge)
	case canvas.BlendColorBurn:
		return separable(src, dst, colorBurn)
	case canvas.BlendHardLight:
		return separable(src, dst, hardLight)
	case canvas.BlendSoftLight:
		return separable(src, dst, softLight)
	case canvas.BlendDifference:
		return separable(src, dst, func(s, d float32) float32 { return abs32(s - d) })
	case canvas.BlendExclusion:
		return separable(src, dst, func(s, d float32) float32 { return s + d - 2*s*d })
	default:
		return pixel.SourceOver(src, dst)
	}
}

// separable applies per-channel blend function f to unpremultiplied colors
// and recomposites with standard alpha compositing, the same structure
// gogpu-gg/internal/blend.separableBlend uses for its advanced blend modes.
func separable(src, dst pixel.Premul, f func(s, d float32) float32) pixel.Premul {
	sr, sg, sb := unpremul(src)
	dr, dg, db := unpremul(dst)

	br := f(sr, dr)
	bg := f(sg, dg)
	bb := f(sb, db)

	// Porter-Duff "source over" recombination of the blended color with the
	// straight compositing of src over dst, weighted by destination alpha,
	// matches how gogpu-gg blends a premultiplied pair through an
	// unpremultiplied blend function.
	outA := src.A + dst.A*(1-src.A)
	mix := func(srcC, dstC, blendedC float32) float32 {
		contrib := (1-dst.A)*srcC + dst.A*blendedC
		return contrib*src.A + dstC*dst.A*(1-src.A)
	}
	return pixel.Premul{
		R: mix(sr, dr, br),
		G: mix(sg, dg, bg),
		B: mix(sb, db, bb),
		A: outA,
	}
}

func unpremul(p pixel.Premul) (r, g, b float32) {
	if p.A <= 0 {
		return 0, 0, 0
	}
	return p.R / p.A, p.G / p.A, p.B / p.A
}

func hardLight(s, d float32) float32 {
	if s <= 0.5 {
		return 2 * s * d
	}
	return 1 - 2*(1-s)*(1-d)
}

func softLight(s, d float32) float32 {
	if s <= 0.5 {
		return d - (1-2*s)*d*(1-d)
	}
	var g float32
	if d <= 0.25 {
		g = ((16*d-12)*d + 4) * d
	} else {
		g = sqrt32(d)
	}
	return d + (2*s-1)*(g-d)
}

func colorDodge(s, d float32) float32 {
	if d <= 0 {
		return 0
	}
	if s >= 1 {
		return 1
	}
	return min32(1, d/(1-s))
}

func colorBurn(s, d float32) float32 {
	if d >= 1 {
		return 1
	}
	if s <= 0 {
		return 0
	}
	return 1 - min32(1, (1-d)/s)
}

func min32(a, b float32) float32 {
	if a < b {
		return a
	}
	return b
}
func max32(a, b float32) float32 {
	if a > b {
		return a
	}
	return b
}
func abs32(v float32) float32 {
	if v < 0 {
		return -v
	}
	return v
}
func sqrt32(v float32) float32 {
	if v <= 0 {
		return 0
	}
	// Newton's method, a handful of iterations is plenty for 8-bit output.
	x := v
	for i := 0; i < 6; i++ {
		x = 0.5 * (x + v/x)
	}
	return x
}
