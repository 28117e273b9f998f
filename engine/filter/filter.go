// Package filter implements the image-wide Filter Pipeline (§4.8): color
// filters, Gaussian blur, morphology-based operations, and tone mapping.
//
// The separable two-pass structure of Apply's blur path is grounded on
// gogpu-gg's internal/filter.BlurFilter (temp-buffer pooling, horizontal
// pass then vertical pass); this implementation follows the engine spec's
// literal "3 iterations of separable box-blur" instead of a true Gaussian
// kernel, using gogpu-gg only for the two-pass structural pattern. Each
// pass's row/column batches fan out through errgroup, mirroring how
// gogpu-gg's own blur pass is written to be embarrassingly row-parallel.
package filter

import (
	"context"
	"math"

	"github.com/inkforge/paintcore/engine/command"
	"github.com/inkforge/paintcore/engine/pixel"
	"golang.org/x/sync/errgroup"
)

// Apply dispatches to the filter named by ftype, mutating buf in place and
// returning the dirty rect touched (always the full buffer per §4.8: "full
// canvas dirty rect").
func Apply(buf *pixel.Buffer, ftype command.FilterType, params [4]float32) pixel.Rect {
	switch ftype {
	case command.FilterHueSatLightness:
		hueSatLightness(buf, params[0], params[1], params[2])
	case command.FilterBrightnessContrast:
		brightnessContrast(buf, params[0], params[1])
	case command.FilterBlackWhite:
		blackWhite(buf, params[0], params[1], params[2])
	case command.FilterBinarize:
		binarize(buf, params[0])
	case command.FilterGaussianBlur:
		gaussianBlur(buf, params[0])
	case command.FilterMorphology:
		morphology(buf, int(params[0]), params[1] != 0)
	case command.FilterLeakRemoval:
		leakRemoval(buf, int(params[0]))
	case command.FilterLineNarrowFillExpand:
		morphology(buf, int(params[0]), params[1] != 0)
	case command.FilterScanPaper:
		scanPaper(buf, params[0])
	case command.FilterInvert:
		invert(buf)
	}
	return pixel.Rect{X: 0, Y: 0, W: buf.Width, H: buf.Height}
}

// Antialias softens stair-step edges left by an axis-unaligned transform or
// magic-wand mask boundary (apply_antialias, §6), reusing the same separable
// box-blur pass as Apply's gaussian_blur at a level-scaled radius.
func Antialias(buf *pixel.Buffer, level int) {
	if level <= 0 {
		return
	}
	gaussianBlur(buf, float32(level)*0.4)
}

func forEachRowBatch(h int, batch int, fn func(y0, y1 int)) {
	g, _ := errgroup.WithContext(context.Background())
	for y0 := 0; y0 < h; y0 += batch {
		y0 := y0
		y1 := y0 + batch
		if y1 > h {
			y1 = h
		}
		g.Go(func() error {
			fn(y0, y1)
			return nil
		})
	}
	_ = g.Wait()
}

func invert(buf *pixel.Buffer) {
	forEachRowBatch(buf.Height, 64, func(y0, y1 int) {
		for y := y0; y < y1; y++ {
			for x := 0; x < buf.Width; x++ {
				p := buf.At(x, y)
				if p.A() == 0 {
					continue
				}
				buf.Set(x, y, pixel.Pack(p.A(), 255-p.R(), 255-p.G(), 255-p.B()))
			}
		}
	})
}

func binarize(buf *pixel.Buffer, threshold float32) {
	forEachRowBatch(buf.Height, 64, func(y0, y1 int) {
		for y := y0; y < y1; y++ {
			for x := 0; x < buf.Width; x++ {
				p := buf.At(x, y)
				luma := 0.299*float32(p.R()) + 0.587*float32(p.G()) + 0.114*float32(p.B())
				if luma < threshold {
					buf.Set(x, y, 0)
				} else {
					buf.Set(x, y, pixel.Pack(255, p.R(), p.G(), p.B()))
				}
			}
		}
	})
}

func brightnessContrast(buf *pixel.Buffer, brightness, contrast float32) {
	c := 1 + contrast/100
	b := brightness / 100 * 255
	apply := func(v uint8) uint8 {
		f := (float32(v)-128)*c + 128 + b
		return clampByte(f)
	}
	forEachRowBatch(buf.Height, 64, func(y0, y1 int) {
		for y := y0; y < y1; y++ {
			for x := 0; x < buf.Width; x++ {
				p := buf.At(x, y)
				if p.A() == 0 {
					continue
				}
				buf.Set(x, y, pixel.Pack(p.A(), apply(p.R()), apply(p.G()), apply(p.B())))
			}
		}
	})
}

func blackWhite(buf *pixel.Buffer, blackPt, whitePt, midTone float32) {
	lo := blackPt / 100 * 255
	hi := whitePt / 100 * 255
	if hi <= lo {
		hi = lo + 1
	}
	gamma := float64(math.Pow(2, float64(midTone)/100))
	forEachRowBatch(buf.Height, 64, func(y0, y1 int) {
		for y := y0; y < y1; y++ {
			for x := 0; x < buf.Width; x++ {
				p := buf.At(x, y)
				if p.A() == 0 {
					continue
				}
				luma := 0.299*float32(p.R()) + 0.587*float32(p.G()) + 0.114*float32(p.B())
				v := (luma - lo) / (hi - lo)
				if v < 0 {
					v = 0
				}
				if v > 1 {
					v = 1
				}
				v = float32(math.Pow(float64(v), gamma))
				out := clampByte(v * 255)
				buf.Set(x, y, pixel.Pack(p.A(), out, out, out))
			}
		}
	})
}

func hueSatLightness(buf *pixel.Buffer, dHue, dSatPct, dValPct float32) {
	forEachRowBatch(buf.Height, 64, func(y0, y1 int) {
		for y := y0; y < y1; y++ {
			for x := 0; x < buf.Width; x++ {
				p := buf.At(x, y)
				if p.A() == 0 {
					continue
				}
				h, s, v := rgbToHSV(p.R(), p.G(), p.B())
				h = math.Mod(h+float64(dHue), 360)
				if h < 0 {
					h += 360
				}
				s *= 1 + float64(dSatPct)/100
				v *= 1 + float64(dValPct)/100
				s = clamp01f(s)
				v = clamp01f(v)
				r, g, b := hsvToRGB(h, s, v)
				buf.Set(x, y, pixel.Pack(p.A(), r, g, b))
			}
		}
	})
}

func clamp01f(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

func rgbToHSV(r, g, b uint8) (h, s, v float64) {
	rf, gf, bf := float64(r)/255, float64(g)/255, float64(b)/255
	max := math.Max(rf, math.Max(gf, bf))
	min := math.Min(rf, math.Min(gf, bf))
	v = max
	d := max - min
	if max == 0 {
		s = 0
	} else {
		s = d / max
	}
	if d == 0 {
		h = 0
		return
	}
	switch max {
	case rf:
		h = 60 * math.Mod((gf-bf)/d, 6)
	case gf:
		h = 60 * ((bf-rf)/d + 2)
	default:
		h = 60 * ((rf-gf)/d + 4)
	}
	if h < 0 {
		h += 360
	}
	return
}

func hsvToRGB(h, s, v float64) (uint8, uint8, uint8) {
	c := v * s
	x := c * (1 - math.Abs(math.Mod(h/60, 2)-1))
	m := v - c
	var rf, gf, bf float64
	switch {
	case h < 60:
		rf, gf, bf = c, x, 0
	case h < 120:
		rf, gf, bf = x, c, 0
	case h < 180:
		rf, gf, bf = 0, c, x
	case h < 240:
		rf, gf, bf = 0, x, c
	case h < 300:
		rf, gf, bf = x, 0, c
	default:
		rf, gf, bf = c, 0, x
	}
	return clampByte(float32((rf + m) * 255)), clampByte(float32((gf + m) * 255)), clampByte(float32((bf + m) * 255))
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

// gaussianBlur runs 3 iterations of a separable box blur approximating a
// Gaussian of the given radius (sigma = radius*0.5), working in premultiplied
// space so transparent neighbors don't bleed color into opaque pixels.
func gaussianBlur(buf *pixel.Buffer, radius float32) {
	if radius <= 0 {
		return
	}
	// Three box passes of radius r have variance r(r+1); solve for sigma.
	sigma := float64(radius) * 0.5
	boxRadius := int(math.Round((math.Sqrt(4*sigma*sigma+1) - 1) / 2))
	if boxRadius < 1 {
		boxRadius = 1
	}
	premul := make([]pixel.Premul, len(buf.Pix))
	for i, p := range buf.Pix {
		premul[i] = pixel.ToPremul(p)
	}
	for i := 0; i < 3; i++ {
		premul = boxBlurPass(premul, buf.Width, buf.Height, boxRadius, true)
		premul = boxBlurPass(premul, buf.Width, buf.Height, boxRadius, false)
	}
	for i, p := range premul {
		buf.Pix[i] = pixel.FromPremul(p)
	}
}

func boxBlurPass(src []pixel.Premul, w, h, radius int, horizontal bool) []pixel.Premul {
	dst := make([]pixel.Premul, len(src))
	window := float32(2*radius + 1)

	if horizontal {
		forEachRowBatch(h, 32, func(y0, y1 int) {
			for y := y0; y < y1; y++ {
				var sum pixel.Premul
				for dx := -radius; dx <= radius; dx++ {
					sum = add(sum, sampleClamped(src, w, h, dx, y))
				}
				for x := 0; x < w; x++ {
					dst[y*w+x] = scale(sum, 1/window)
					sum = add(sum, sampleClamped(src, w, h, x+radius+1, y))
					sum = sub(sum, sampleClamped(src, w, h, x-radius, y))
				}
			}
		})
		return dst
	}

	forEachRowBatch(w, 32, func(x0, x1 int) {
		for x := x0; x < x1; x++ {
			var sum pixel.Premul
			for dy := -radius; dy <= radius; dy++ {
				sum = add(sum, sampleClampedXY(src, w, h, x, dy))
			}
			for y := 0; y < h; y++ {
				dst[y*w+x] = scale(sum, 1/window)
				sum = add(sum, sampleClampedXY(src, w, h, x, y+radius+1))
				sum = sub(sum, sampleClampedXY(src, w, h, x, y-radius))
			}
		}
	})
	return dst
}

func sampleClamped(src []pixel.Premul, w, h, x, y int) pixel.Premul {
	if x < 0 {
		x = 0
	}
	if x >= w {
		x = w - 1
	}
	return src[y*w+x]
}

func sampleClampedXY(src []pixel.Premul, w, h, x, y int) pixel.Premul {
	if y < 0 {
		y = 0
	}
	if y >= h {
		y = h - 1
	}
	return src[y*w+x]
}

func add(a, b pixel.Premul) pixel.Premul {
	return pixel.Premul{R: a.R + b.R, G: a.G + b.G, B: a.B + b.B, A: a.A + b.A}
}
func sub(a, b pixel.Premul) pixel.Premul {
	return pixel.Premul{R: a.R - b.R, G: a.G - b.G, B: a.B - b.B, A: a.A - b.A}
}
func scale(a pixel.Premul, s float32) pixel.Premul {
	return pixel.Premul{R: a.R * s, G: a.G * s, B: a.B * s, A: a.A * s}
}

// morphology performs steps iterations of a 3x3 dilate (dilate=true) or
// erode (dilate=false) on the alpha channel, matching the brush kernel's
// "line narrow / fill expand" use of the same primitive (§4.8).
func morphology(buf *pixel.Buffer, steps int, dilate bool) {
	w, h := buf.Width, buf.Height
	for s := 0; s < steps; s++ {
		src := append([]pixel.ARGB(nil), buf.Pix...)
		for y := 0; y < h; y++ {
			for x := 0; x < w; x++ {
				cur := src[y*w+x]
				var best = cur
				for dy := -1; dy <= 1; dy++ {
					for dx := -1; dx <= 1; dx++ {
						nx, ny := x+dx, y+dy
						if nx < 0 || ny < 0 || nx >= w || ny >= h {
							continue
						}
						n := src[ny*w+nx]
						if dilate && n.A() > best.A() {
							best = n
						}
						if !dilate && n.A() < best.A() {
							best = n
						}
					}
				}
				buf.Pix[y*w+x] = best
			}
		}
	}
}

// leakRemoval finds transparent holes whose BFS depth from any opaque seed
// is within radius and fills them by nearest-opaque-neighbor flood (§4.8).
func leakRemoval(buf *pixel.Buffer, radius int) {
	w, h := buf.Width, buf.Height
	depth := make([]int, w*h)
	for i := range depth {
		depth[i] = -1
	}
	type cell struct{ x, y, d int }
	var queue []cell
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			if buf.At(x, y).A() != 0 {
				depth[y*w+x] = 0
				queue = append(queue, cell{x, y, 0})
			}
		}
	}
	for i := 0; i < len(queue); i++ {
		c := queue[i]
		if c.d >= radius {
			continue
		}
		for _, dd := range [4][2]int{{1, 0}, {-1, 0}, {0, 1}, {0, -1}} {
			nx, ny := c.x+dd[0], c.y+dd[1]
			if nx < 0 || ny < 0 || nx >= w || ny >= h {
				continue
			}
			idx := ny*w + nx
			if depth[idx] == -1 {
				depth[idx] = c.d + 1
				queue = append(queue, cell{nx, ny, c.d + 1})
				// nearest opaque neighbor's color fills this hole
				buf.Pix[idx] = pixel.Pack(buf.At(c.x, c.y).A(), buf.At(c.x, c.y).R(), buf.At(c.x, c.y).G(), buf.At(c.x, c.y).B())
			}
		}
	}
}

// scanPaper snaps near-white pixels to transparent and everything else to
// the nearest of a small set of tone-mapped primaries, approximating a
// scanned-paper line-art look (§4.8).
func scanPaper(buf *pixel.Buffer, whiteThreshold float32) {
	palette := []pixel.ARGB{
		pixel.Pack(255, 0, 0, 0),
		pixel.Pack(255, 255, 0, 0),
		pixel.Pack(255, 0, 255, 0),
		pixel.Pack(255, 0, 0, 255),
		pixel.Pack(255, 255, 255, 0),
		pixel.Pack(255, 0, 255, 255),
		pixel.Pack(255, 255, 0, 255),
	}
	forEachRowBatch(buf.Height, 64, func(y0, y1 int) {
		for y := y0; y < y1; y++ {
			for x := 0; x < buf.Width; x++ {
				p := buf.At(x, y)
				luma := 0.299*float32(p.R()) + 0.587*float32(p.G()) + 0.114*float32(p.B())
				if luma >= whiteThreshold {
					buf.Set(x, y, 0)
					continue
				}
				best := palette[0]
				bestDist := math.MaxFloat64
				for _, c := range palette {
					dist := colorDist(p, c)
					if dist < bestDist {
						bestDist = dist
						best = c
					}
				}
				buf.Set(x, y, best)
			}
		}
	})
}

func colorDist(a, b pixel.ARGB) float64 {
	dr := float64(a.R()) - float64(b.R())
	dg := float64(a.G()) - float64(b.G())
	db := float64(a.B()) - float64(b.B())
	return dr*dr + dg*dg + db*db
}
