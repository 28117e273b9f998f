package brush

import (
	"math"

	"github.com/inkforge/paintcore/engine/pixel"
)

// Point is one vertex of a resampled stroke: a position and a radius derived
// from pressure at that point (§4.2).
type Point struct {
	X, Y, Radius float32
}

// featherByLevel is the AA feather-width profile from SPEC_FULL.md §4.3.
var featherByLevel = [10]float32{0.0, 0.7, 1.1, 1.6, 1.9, 2.2, 2.5, 2.8, 3.1, 3.4}

// CustomMask is a user-supplied two-channel (firm, soft) coverage bitmap
// sampled bilinearly over [-radius, +radius]^2 in brush-local coordinates.
type CustomMask struct {
	Width, Height int
	Firm, Soft    []uint8
}

// Kernel rasterizes a resampled stroke into a layer buffer, bounded by the
// returned dirty rect. It is the single entry point a GPU dispatch would
// otherwise call with this same typed config.
type Kernel struct {
	Settings     Settings
	Selection    []uint8 // optional, canvas-sized, nil = unrestricted
	Custom       *CustomMask
	BaselineSnap *pixel.Buffer // pre-stroke snapshot, required when Hollow.EraseOccluded
}

// Rasterize draws every stamp along points into dst and returns the union
// dirty rect actually touched, clipped to dst bounds.
func (k *Kernel) Rasterize(dst *pixel.Buffer, points []Point) pixel.Rect {
	s := k.Settings
	var dirty pixel.Rect
	if len(points) == 0 {
		return dirty
	}

	feather := featherByLevel[s.AALevel]

	for i := 0; i < len(points); i++ {
		p := points[i]
		maxR := p.Radius
		if i > 0 && points[i-1].Radius > maxR {
			maxR = points[i-1].Radius
		}
		edge := maxR * (1 - s.Hardness)
		if feather > edge {
			edge = feather
		}
		pad := int(math.Ceil(float64(maxR + edge + 2)))
		segRect := pixel.Rect{
			X: int(math.Floor(float64(p.X))) - pad,
			Y: int(math.Floor(float64(p.Y))) - pad,
			W: 2 * pad,
			H: 2 * pad,
		}.Clip(dst.Width, dst.Height)
		if segRect.Empty() {
			continue
		}

		k.stampOne(dst, p, edge, segRect)
		dirty = dirty.Union(segRect)
	}

	return dirty.Clip(dst.Width, dst.Height)
}

// stampOne rasterizes a single capsule-free stamp (one vertex) into rect.
// Segment-to-segment capsule coverage is approximated by overlapping
// per-vertex stamps at the resampler's sub-radius spacing (§4.2), matching
// how the resampler already emits points close enough together that
// consecutive stamps overlap and produce a continuous stroke.
func (k *Kernel) stampOne(dst *pixel.Buffer, p Point, edge float32, rect pixel.Rect) {
	s := k.Settings
	src := pixel.ToPremul(pixel.ARGB(s.ColorARGB))
	src.R *= s.Flow
	src.G *= s.Flow
	src.B *= s.Flow
	src.A *= s.Flow

	innerR := p.Radius
	holeR := float32(-1)
	if s.Hollow.Enabled {
		holeR = innerR * (1 - s.Hollow.Ratio)
	}

	superSample := p.Radius*2 < 10
	grid := 1
	if superSample {
		grid = 3
	}

	for y := rect.Y; y < rect.Y+rect.H; y++ {
		for x := rect.X; x < rect.X+rect.W; x++ {
			var coverage float32
			for sy := 0; sy < grid; sy++ {
				for sx := 0; sx < grid; sx++ {
					fx := float32(x) + (float32(sx)+0.5)/float32(grid)
					fy := float32(y) + (float32(sy)+0.5)/float32(grid)
					d := shapeDistance(s.Shape, fx-p.X, fy-p.Y, innerR)
					cov := edgeCoverage(d, edge)
					if holeR >= 0 {
						di := shapeDistance(s.Shape, fx-p.X, fy-p.Y, holeR)
						inner := edgeCoverage(di, edge)
						if s.Hollow.EraseOccluded && k.BaselineSnap != nil {
							if k.BaselineSnap.At(x, y).A() != 0 {
								inner = 0
							}
						}
						cov -= inner
						if cov < 0 {
							cov = 0
						}
					}
					coverage += cov
				}
			}
			coverage /= float32(grid * grid)
			if coverage <= 0 {
				continue
			}

			if s.Screentone.Enabled {
				coverage *= screentoneMask(s.Screentone, x, y)
			}
			if k.Custom != nil {
				coverage *= k.Custom.sample(fxLocal(x, p, innerR), fyLocal(y, p, innerR))
			}
			if k.Selection != nil {
				idx := y*dst.Width + x
				if idx >= 0 && idx < len(k.Selection) {
					coverage *= float32(k.Selection[idx]) / 255
				}
			}
			if coverage <= 0 {
				continue
			}

			dstPx := pixel.ToPremul(dst.At(x, y))
			if s.Erase {
				dstPx.A *= 1 - coverage
				dstPx.R *= 1 - coverage
				dstPx.G *= 1 - coverage
				dstPx.B *= 1 - coverage
				dst.Set(x, y, pixel.FromPremul(dstPx))
				continue
			}

			stamp := pixel.Premul{R: src.R * coverage, G: src.G * coverage, B: src.B * coverage, A: src.A * coverage}
			out := pixel.SourceOver(stamp, dstPx)
			dst.Set(x, y, pixel.FromPremul(out))
		}
	}
}

// RasterizeAccumulate draws every point as in Rasterize, but clamps the
// summed coverage of overlapping stamps to at most opaque before compositing
// once per pixel, rather than compositing each stamp independently (§4.3
// "Accumulate mode (spray)"). alphas carries each point's own opacity
// multiplier (spray_draw's per-point alpha).
func (k *Kernel) RasterizeAccumulate(dst *pixel.Buffer, points []Point, alphas []float32) pixel.Rect {
	s := k.Settings
	var dirty pixel.Rect
	if len(points) == 0 {
		return dirty
	}
	feather := featherByLevel[s.AALevel]

	var union pixel.Rect
	for _, p := range points {
		edge := p.Radius*(1-s.Hardness) + 2
		if feather > edge {
			edge = feather
		}
		pad := int(math.Ceil(float64(p.Radius + edge + 2)))
		r := pixel.Rect{X: int(p.X) - pad, Y: int(p.Y) - pad, W: 2 * pad, H: 2 * pad}.Clip(dst.Width, dst.Height)
		union = union.Union(r)
	}
	if union.Empty() {
		return union
	}

	cov := make([]float32, union.W*union.H)
	for i, p := range points {
		alpha := float32(1)
		if i < len(alphas) {
			alpha = alphas[i]
		}
		edge := p.Radius*(1-s.Hardness) + 2
		if feather > edge {
			edge = feather
		}
		for y := union.Y; y < union.Y+union.H; y++ {
			for x := union.X; x < union.X+union.W; x++ {
				d := shapeDistance(s.Shape, float32(x)-p.X, float32(y)-p.Y, p.Radius)
				c := edgeCoverage(d, edge) * alpha
				if c <= 0 {
					continue
				}
				idx := (y-union.Y)*union.W + (x - union.X)
				cov[idx] += c
				if cov[idx] > 1 {
					cov[idx] = 1
				}
			}
		}
	}

	src := pixel.ToPremul(pixel.ARGB(s.ColorARGB))
	src.R *= s.Flow
	src.G *= s.Flow
	src.B *= s.Flow
	src.A *= s.Flow

	for y := union.Y; y < union.Y+union.H; y++ {
		for x := union.X; x < union.X+union.W; x++ {
			c := cov[(y-union.Y)*union.W+(x-union.X)]
			if c <= 0 {
				continue
			}
			if k.Selection != nil {
				idx := y*dst.Width + x
				if idx >= 0 && idx < len(k.Selection) {
					c *= float32(k.Selection[idx]) / 255
				}
			}
			if c <= 0 {
				continue
			}
			dstPx := pixel.ToPremul(dst.At(x, y))
			if s.Erase {
				dstPx.A *= 1 - c
				dstPx.R *= 1 - c
				dstPx.G *= 1 - c
				dstPx.B *= 1 - c
				dst.Set(x, y, pixel.FromPremul(dstPx))
				continue
			}
			stamp := pixel.Premul{R: src.R * c, G: src.G * c, B: src.B * c, A: src.A * c}
			dst.Set(x, y, pixel.FromPremul(pixel.SourceOver(stamp, dstPx)))
		}
	}

	dirty = union
	return dirty
}

func fxLocal(x int, p Point, r float32) float32 {
	if r <= 0 {
		return 0
	}
	return (float32(x) - p.X) / r
}

func fyLocal(y int, p Point, r float32) float32 {
	if r <= 0 {
		return 0
	}
	return (float32(y) - p.Y) / r
}

func (m *CustomMask) sample(u, v float32) float32 {
	// u, v in [-1, 1]; map to mask pixel space.
	fx := (u*0.5 + 0.5) * float32(m.Width-1)
	fy := (v*0.5 + 0.5) * float32(m.Height-1)
	if fx < 0 || fy < 0 || fx > float32(m.Width-1) || fy > float32(m.Height-1) {
		return 0
	}
	x0, y0 := int(fx), int(fy)
	x1, y1 := min(x0+1, m.Width-1), min(y0+1, m.Height-1)
	tx, ty := fx-float32(x0), fy-float32(y0)

	s := func(x, y int) float32 {
		idx := y*m.Width + x
		return float32(m.Firm[idx]) / 255
	}
	top := s(x0, y0)*(1-tx) + s(x1, y0)*tx
	bot := s(x0, y1)*(1-tx) + s(x1, y1)*tx
	return top*(1-ty) + bot*ty
}

func min(a, b int) int {
	if a < b {
		return a
	}
	return b
}

// screentoneMask computes a periodic dot-pattern multiplier at canvas pixel (x,y).
func screentoneMask(st Screentone, x, y int) float32 {
	rad := float64(st.Rotation) * math.Pi / 180
	cos, sin := math.Cos(rad), math.Sin(rad)
	fx, fy := float64(x), float64(y)
	rx := fx*cos + fy*sin
	ry := -fx*sin + fy*cos

	spacing := float64(st.Spacing)
	if spacing < 1 {
		spacing = 1
	}
	cx := math.Mod(rx, spacing) - spacing/2
	cy := math.Mod(ry, spacing) - spacing/2
	dist := math.Hypot(cx, cy)

	dotR := float64(st.DotSize) * spacing / 2
	soft := float64(st.Softness) * spacing / 2
	if soft < 1e-3 {
		soft = 1e-3
	}
	if dist <= dotR-soft {
		return 1
	}
	if dist >= dotR+soft {
		return 0
	}
	return float32((dotR + soft - dist) / (2 * soft))
}

// edgeCoverage maps a signed distance (negative = inside) to [0,1] coverage
// given an edge (feather/softness) half-width.
func edgeCoverage(signedDist, edge float32) float32 {
	if edge <= 0 {
		if signedDist <= 0 {
			return 1
		}
		return 0
	}
	v := 0.5 - signedDist/(2*edge)
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

// shapeDistance returns a signed distance (negative inside) from (dx,dy) to
// the boundary of the given shape scaled by radius, centered at the origin.
func shapeDistance(shape Shape, dx, dy, radius float32) float32 {
	if radius <= 0 {
		return 1e6
	}
	switch shape {
	case ShapeSquare:
		ax, ay := float32(math.Abs(float64(dx))), float32(math.Abs(float64(dy)))
		return max32(ax, ay) - radius
	case ShapeTriangle:
		return polygonDistance(dx, dy, radius, triangleVerts[:])
	case ShapeStar:
		return polygonDistance(dx, dy, radius, starVerts[:])
	default: // ShapeCircle
		return float32(math.Hypot(float64(dx), float64(dy))) - radius
	}
}

func max32(a, b float32) float32 {
	if a > b {
		return a
	}
	return b
}

// Unit-circle vertex tables for the polygon shapes (§9's documented CPU path).
var triangleVerts = [3][2]float32{
	{0, -1},
	{0.866, 0.5},
	{-0.866, 0.5},
}

var starVerts = func() [10][2]float32 {
	var v [10][2]float32
	for i := 0; i < 10; i++ {
		r := float32(1.0)
		if i%2 == 1 {
			r = 0.45
		}
		a := float64(i) * math.Pi / 5
		v[i] = [2]float32{r * float32(math.Sin(a)), -r * float32(math.Cos(a))}
	}
	return v
}()

// polygonDistance computes an approximate signed distance from (dx,dy) to a
// convex polygon whose vertices (unit-scale) are scaled by radius.
func polygonDistance(dx, dy, radius float32, verts [][2]float32) float32 {
	px, py := dx/radius, dy/radius
	n := len(verts)
	inside := true
	minDist := float32(math.MaxFloat32)
	for i := 0; i < n; i++ {
		a := verts[i]
		b := verts[(i+1)%n]
		ex, ey := b[0]-a[0], b[1]-a[1]
		wx, wy := px-a[0], py-a[1]
		cross := ex*wy - ey*wx
		if cross < 0 {
			inside = false
		}
		d := segmentDistance(px, py, a[0], a[1], b[0], b[1])
		if d < minDist {
			minDist = d
		}
	}
	if inside {
		return -minDist * radius
	}
	return minDist * radius
}

func segmentDistance(px, py, ax, ay, bx, by float32) float32 {
	ex, ey := bx-ax, by-ay
	wx, wy := px-ax, py-ay
	l2 := ex*ex + ey*ey
	t := float32(0)
	if l2 > 0 {
		t = (wx*ex + wy*ey) / l2
		if t < 0 {
			t = 0
		}
		if t > 1 {
			t = 1
		}
	}
	cx, cy := ax+t*ex, ay+t*ey
	return float32(math.Hypot(float64(px-cx), float64(py-cy)))
}
