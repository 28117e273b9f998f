// Package transform implements the Layer-Transform Renderer (§4.7): resamples
// a layer through a 4x4 affine matrix, with bilinear or nearest sampling.
package transform

import (
	"image"
	"image/draw"

	xdraw "golang.org/x/image/draw"

	"github.com/inkforge/paintcore/common"
	"github.com/inkforge/paintcore/engine/pixel"
)

// Apply produces a new buffer the same size as src by sampling
// inverse(matrix) * dst_pixel from src. Out-of-bounds samples are
// transparent. matrix is a 16-element column-major 4x4 matrix (common.Mul4
// / common.Invert4 convention).
func Apply(src *pixel.Buffer, matrix []float32, bilinear bool) *pixel.Buffer {
	var inv [16]float32
	if !common.Invert4(inv[:], matrix) {
		// singular matrix: produce an all-transparent result rather than
		// propagating garbage, matching the "out-of-source samples are
		// transparent" rule for every pixel.
		return pixel.NewBuffer(src.Width, src.Height)
	}

	dst := pixel.NewBuffer(src.Width, src.Height)
	for y := 0; y < dst.Height; y++ {
		for x := 0; x < dst.Width; x++ {
			sx, sy := common.TransformPoint(inv[:], float32(x)+0.5, float32(y)+0.5)
			if bilinear {
				dst.Set(x, y, sampleBilinear(src, sx-0.5, sy-0.5))
			} else {
				dst.Set(x, y, src.At(int(sx), int(sy)))
			}
		}
	}
	return dst
}

func sampleBilinear(src *pixel.Buffer, fx, fy float32) pixel.ARGB {
	x0 := int(floor(fx))
	y0 := int(floor(fy))
	tx, ty := fx-float32(x0), fy-float32(y0)

	p00 := pixel.ToPremul(src.At(x0, y0))
	p10 := pixel.ToPremul(src.At(x0+1, y0))
	p01 := pixel.ToPremul(src.At(x0, y0+1))
	p11 := pixel.ToPremul(src.At(x0+1, y0+1))

	lerp := func(a, b, t float32) float32 { return a + (b-a)*t }
	top := pixel.Premul{
		R: lerp(p00.R, p10.R, tx),
		G: lerp(p00.G, p10.G, tx),
		B: lerp(p00.B, p10.B, tx),
		A: lerp(p00.A, p10.A, tx),
	}
	bot := pixel.Premul{
		R: lerp(p01.R, p11.R, tx),
		G: lerp(p01.G, p11.G, tx),
		B: lerp(p01.B, p11.B, tx),
		A: lerp(p01.A, p11.A, tx),
	}
	out := pixel.Premul{
		R: lerp(top.R, bot.R, ty),
		G: lerp(top.G, bot.G, ty),
		B: lerp(top.B, bot.B, ty),
		A: lerp(top.A, bot.A, ty),
	}
	return pixel.FromPremul(out)
}

func floor(v float32) float32 {
	i := int(v)
	if v < 0 && float32(i) != v {
		i--
	}
	return float32(i)
}

// Bounds computes the axis-aligned pixel bounds of the non-transparent
// region of buf, used by get_layer_bounds (§6).
func Bounds(buf *pixel.Buffer) (left, top, right, bottom int, ok bool) {
	left, top, right, bottom = buf.Width, buf.Height, -1, -1
	for y := 0; y < buf.Height; y++ {
		for x := 0; x < buf.Width; x++ {
			if buf.At(x, y).A() == 0 {
				continue
			}
			if x < left {
				left = x
			}
			if y < top {
				top = y
			}
			if x > right {
				right = x
			}
			if y > bottom {
				bottom = y
			}
		}
	}
	if right < left {
		return 0, 0, 0, 0, false
	}
	return left, top, right + 1, bottom + 1, true
}

// Preview downsamples buf to outW x outH RGBA8 bytes for the
// read_layer_preview entry point (§6). Uses golang.org/x/image/draw's
// bilinear scaler rather than a hand-rolled box filter, since the preview
// is a best-effort thumbnail, not a color-critical path.
func Preview(buf *pixel.Buffer, outW, outH int) []byte {
	src := image.NewRGBA(image.Rect(0, 0, buf.Width, buf.Height))
	for i, p := range buf.Pix {
		off := i * 4
		src.Pix[off] = p.R()
		src.Pix[off+1] = p.G()
		src.Pix[off+2] = p.B()
		src.Pix[off+3] = p.A()
	}

	dst := image.NewRGBA(image.Rect(0, 0, outW, outH))
	xdraw.BiLinear.Scale(dst, dst.Bounds(), src, src.Bounds(), draw.Over, nil)
	return dst.Pix
}
