// Package pixel holds the engine's canonical pixel representation and the
// premultiplied-space compositing math shared by the brush kernel, flood-fill
// engine, filter pipeline, and compositor. Storage is unpremultiplied ARGB32
// (§6); every blend computation promotes to premultiplied space first and
// demotes back on write, per the invariant in SPEC_FULL.md §9.
package pixel

// ARGB is one unpremultiplied 32-bit pixel, little-endian packed as
// A=31..24 R=23..16 G=15..8 B=7..0.
type ARGB uint32

func Pack(a, r, g, b uint8) ARGB {
	return ARGB(uint32(a)<<24 | uint32(r)<<16 | uint32(g)<<8 | uint32(b))
}

func (p ARGB) A() uint8 { return uint8(p >> 24) }
func (p ARGB) R() uint8 { return uint8(p >> 16) }
func (p ARGB) G() uint8 { return uint8(p >> 8) }
func (p ARGB) B() uint8 { return uint8(p) }

// Buffer is a row-major canvas-sized (or tile-sized) grid of ARGB pixels.
type Buffer struct {
	Width, Height int
	Pix           []ARGB
}

func NewBuffer(w, h int) *Buffer {
	return &Buffer{Width: w, Height: h, Pix: make([]ARGB, w*h)}
}

func (b *Buffer) At(x, y int) ARGB {
	if x < 0 || y < 0 || x >= b.Width || y >= b.Height {
		return 0
	}
	return b.Pix[y*b.Width+x]
}

func (b *Buffer) Set(x, y int, v ARGB) {
	if x < 0 || y < 0 || x >= b.Width || y >= b.Height {
		return
	}
	b.Pix[y*b.Width+x] = v
}

// Premul is a premultiplied float pixel in [0,1] per channel, used internally
// by every blend path so alpha compositing is mathematically correct
// regardless of the unpremultiplied storage format.
type Premul struct {
	R, G, B, A float32
}

func ToPremul(p ARGB) Premul {
	a := float32(p.A()) / 255
	return Premul{
		R: float32(p.R()) / 255 * a,
		G: float32(p.G()) / 255 * a,
		B: float32(p.B()) / 255 * a,
		A: a,
	}
}

func FromPremul(p Premul) ARGB {
	if p.A <= 0 {
		return 0
	}
	r := clampByte(p.R / p.A * 255)
	g := clampByte(p.G / p.A * 255)
	b := clampByte(p.B / p.A * 255)
	a := clampByte(p.A * 255)
	return Pack(a, r, g, b)
}

func clampByte(v float32) uint8 {
	// round half to even on the final conversion, per SPEC_FULL.md §9.
	v += 0.5
	i := int32(v)
	if float32(i) == v && i%2 != 0 {
		i--
	}
	if i < 0 {
		return 0
	}
	if i > 255 {
		return 255
	}
	return uint8(i)
}

// SourceOver composites src over dst in premultiplied space (Normal blend mode).
func SourceOver(src, dst Premul) Premul {
	inv := 1 - src.A
	return Premul{
		R: src.R + dst.R*inv,
		G: src.G + dst.G*inv,
		B: src.B + dst.B*inv,
		A: src.A + dst.A*inv,
	}
}

// Rect is an axis-aligned integer box, always kept non-negative width/height
// and clipped to a canvas via Clip.
type Rect struct {
	X, Y, W, H int
}

func (r Rect) Empty() bool { return r.W <= 0 || r.H <= 0 }

func (r Rect) Clip(width, height int) Rect {
	x0, y0 := r.X, r.Y
	x1, y1 := r.X+r.W, r.Y+r.H
	if x0 < 0 {
		x0 = 0
	}
	if y0 < 0 {
		y0 = 0
	}
	if x1 > width {
		x1 = width
	}
	if y1 > height {
		y1 = height
	}
	if x1 < x0 {
		x1 = x0
	}
	if y1 < y0 {
		y1 = y0
	}
	return Rect{X: x0, Y: y0, W: x1 - x0, H: y1 - y0}
}

// Union returns the smallest rect containing both r and o. An empty r acts as
// an identity so callers can fold rects starting from a zero value.
func (r Rect) Union(o Rect) Rect {
	if r.Empty() {
		return o
	}
	if o.Empty() {
		return r
	}
	x0 := min(r.X, o.X)
	y0 := min(r.Y, o.Y)
	x1 := max(r.X+r.W, o.X+o.W)
	y1 := max(r.Y+r.H, o.Y+o.H)
	return Rect{X: x0, Y: y0, W: x1 - x0, H: y1 - y0}
}

func (r Rect) Expand(n int) Rect {
	return Rect{X: r.X - n, Y: r.Y - n, W: r.W + 2*n, H: r.H + 2*n}
}

func min(a, b int) int {
	if a < b {
		return a
	}
	return b
}

func max(a, b int) int {
	if a > b {
		return a
	}
	return b
}
