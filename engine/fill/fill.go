// Package fill implements the flood-fill engine (§4.4): tolerance-based
// region detection, gap-closure morphology, BFS contiguous fill, and
// swallow-color absorption.
//
// There is a single algorithm here, run directly against the canvas's own
// authoritative CPU-resident layer buffer (engine/canvas); the render thread
// mirrors the result out to the GPU layer array afterward rather than
// reading it back from there. This is a deliberate simplification of the
// GPU-state-machine / CPU-fallback
// split described in SPEC_FULL.md §4.4: a GPU compute kernel is an opaque,
// out-of-scope collaborator per §1, so "the GPU path and the CPU path must
// agree pixel-for-pixel" is satisfied structurally by having exactly one
// implementation that both the compute dispatch and the fallback would call
// with the same typed parameters.
package fill

import (
	"context"

	"github.com/inkforge/paintcore/engine/pixel"
	"golang.org/x/sync/errgroup"
)

// Params configures one bucket-fill dispatch (§6).
type Params struct {
	Start      [2]int
	FillColor  pixel.ARGB
	Contiguous bool
	Tolerance  int // 0..255
	Gap        int // 0..64
	AALevel    int // 0..9
	Swallow    []pixel.ARGB
	Selection  []uint8 // canvas-sized, nil = unrestricted
}

// Patch is the set of changed pixels returned by Fill, expressed as a dirty
// rect plus row-major ARGB values for it: filled pixels hold the fill color,
// pixels inside the rect but outside the fill mask hold 0.
type Patch struct {
	Rect   pixel.Rect
	Pixels []pixel.ARGB
}

// Fill runs the full flood-fill algorithm against sample (the pixel data the
// fill should test against — either a single layer or an all-layers
// composite, per sample_all_layers) and returns the patch to apply to the
// target layer. Returns an empty patch (no-op) on every silent-fail
// condition from §4.4.
func Fill(sample *pixel.Buffer, p Params) Patch {
	w, h := sample.Width, sample.Height
	x0, y0 := p.Start[0], p.Start[1]
	if x0 < 0 || y0 < 0 || x0 >= w || y0 >= h {
		return Patch{}
	}
	base := sample.At(x0, y0)
	if base == p.FillColor {
		return Patch{}
	}

	target := toleranceMask(sample, base, p.Tolerance, p.Selection)

	var fillMask []bool
	if !p.Contiguous {
		fillMask = target
	} else {
		opened := target
		if p.Gap > 0 {
			opened = morphOpen(target, w, h, p.Gap)
		}

		sx, sy := x0, y0
		if !opened[y0*w+x0] {
			snapped, ok := snapToOpened(opened, sample, base, p.Selection, w, h, x0, y0, p.Gap+1)
			if !ok {
				return Patch{}
			}
			sx, sy = snapped[0], snapped[1]
		}

		outside := borderOutside(opened, w, h)
		reached, leaked := bfsFill(opened, outside, w, h, sx, sy)
		if leaked {
			fillMask = target
		} else {
			fillMask = reached
		}

		if p.AALevel > 0 {
			fillMask = dilate1(fillMask, w, h)
		}
	}

	if len(p.Swallow) > 0 {
		fillMask = absorbSwallowColors(fillMask, sample, p.Swallow, w, h)
	}

	return buildPatch(fillMask, w, h, p.FillColor)
}

func toleranceMask(sample *pixel.Buffer, base pixel.ARGB, tol int, selection []uint8) []bool {
	w, h := sample.Width, sample.Height
	mask := make([]bool, w*h)

	rowsPerGroup := 64
	g, _ := errgroup.WithContext(context.Background())
	for y0 := 0; y0 < h; y0 += rowsPerGroup {
		y0 := y0
		y1 := y0 + rowsPerGroup
		if y1 > h {
			y1 = h
		}
		g.Go(func() error {
			for y := y0; y < y1; y++ {
				for x := 0; x < w; x++ {
					idx := y*w + x
					if selection != nil && idx < len(selection) && selection[idx] == 0 {
						continue
					}
					if withinTolerance(sample.Pix[idx], base, tol) {
						mask[idx] = true
					}
				}
			}
			return nil
		})
	}
	_ = g.Wait()
	return mask
}

func withinTolerance(a, b pixel.ARGB, tol int) bool {
	d := func(x, y uint8) int {
		v := int(x) - int(y)
		if v < 0 {
			v = -v
		}
		return v
	}
	return d(a.A(), b.A()) <= tol && d(a.R(), b.R()) <= tol && d(a.G(), b.G()) <= tol && d(a.B(), b.B()) <= tol
}

// morphOpen performs erosion-then-dilation with an 8-connected structuring
// element of radius gap (§4.4 step 2): dilate the inverse `gap` times then
// invert (erosion), then dilate the result `gap` times.
func morphOpen(mask []bool, w, h, gap int) []bool {
	inv := make([]bool, len(mask))
	for i, v := range mask {
		inv[i] = !v
	}
	for i := 0; i < gap; i++ {
		inv = dilate1(inv, w, h)
	}
	eroded := make([]bool, len(inv))
	for i, v := range inv {
		eroded[i] = !v
	}
	out := eroded
	for i := 0; i < gap; i++ {
		out = dilate1(out, w, h)
	}
	return out
}

func dilate1(mask []bool, w, h int) []bool {
	out := make([]bool, len(mask))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			idx := y*w + x
			if mask[idx] {
				out[idx] = true
				continue
			}
			found := false
			for dy := -1; dy <= 1 && !found; dy++ {
				for dx := -1; dx <= 1 && !found; dx++ {
					nx, ny := x+dx, y+dy
					if nx < 0 || ny < 0 || nx >= w || ny >= h {
						continue
					}
					if mask[ny*w+nx] {
						found = true
					}
				}
			}
			out[idx] = found
		}
	}
	return out
}

func borderOutside(opened []bool, w, h int) []bool {
	outside := make([]bool, len(opened))
	queue := make([][2]int, 0, 2*(w+h))
	push := func(x, y int) {
		idx := y*w + x
		if opened[idx] && !outside[idx] {
			outside[idx] = true
			queue = append(queue, [2]int{x, y})
		}
	}
	for x := 0; x < w; x++ {
		push(x, 0)
		push(x, h-1)
	}
	for y := 0; y < h; y++ {
		push(0, y)
		push(w-1, y)
	}
	bfs(opened, outside, queue, w, h)
	return outside
}

func bfs(opened, visited []bool, queue [][2]int, w, h int) {
	for i := 0; i < len(queue); i++ {
		x, y := queue[i][0], queue[i][1]
		for _, d := range [4][2]int{{1, 0}, {-1, 0}, {0, 1}, {0, -1}} {
			nx, ny := x+d[0], y+d[1]
			if nx < 0 || ny < 0 || nx >= w || ny >= h {
				continue
			}
			idx := ny*w + nx
			if opened[idx] && !visited[idx] {
				visited[idx] = true
				queue = append(queue, [2]int{nx, ny})
			}
		}
	}
}

// bfsFill floods from (sx,sy) within opened and reports whether it ever
// touched the outside set (leaked through an unclosed gap).
func bfsFill(opened, outside []bool, w, h, sx, sy int) ([]bool, bool) {
	visited := make([]bool, len(opened))
	idx0 := sy*w + sx
	if !opened[idx0] {
		return visited, false
	}
	queue := [][2]int{{sx, sy}}
	visited[idx0] = true
	leaked := outside[idx0]

	for i := 0; i < len(queue); i++ {
		x, y := queue[i][0], queue[i][1]
		for _, d := range [4][2]int{{1, 0}, {-1, 0}, {0, 1}, {0, -1}} {
			nx, ny := x+d[0], y+d[1]
			if nx < 0 || ny < 0 || nx >= w || ny >= h {
				continue
			}
			idx := ny*w + nx
			if opened[idx] && !visited[idx] {
				visited[idx] = true
				if outside[idx] {
					leaked = true
				}
				queue = append(queue, [2]int{nx, ny})
			}
		}
	}
	return visited, leaked
}

func snapToOpened(opened []bool, sample *pixel.Buffer, base pixel.ARGB, selection []uint8, w, h, x0, y0, radius int) ([2]int, bool) {
	for r := 1; r <= radius; r++ {
		for dy := -r; dy <= r; dy++ {
			for dx := -r; dx <= r; dx++ {
				if dx*dx+dy*dy > r*r {
					continue
				}
				nx, ny := x0+dx, y0+dy
				if nx < 0 || ny < 0 || nx >= w || ny >= h {
					continue
				}
				idx := ny*w + nx
				if !opened[idx] {
					continue
				}
				if selection != nil && idx < len(selection) && selection[idx] == 0 {
					continue
				}
				if !withinTolerance(sample.Pix[idx], base, 0) {
					continue
				}
				return [2]int{nx, ny}, true
			}
		}
	}
	return [2]int{}, false
}

func absorbSwallowColors(mask []bool, sample *pixel.Buffer, swallow []pixel.ARGB, w, h int) []bool {
	isSwallow := func(c pixel.ARGB) bool {
		for _, s := range swallow {
			if s == c {
				return true
			}
		}
		return false
	}

	out := append([]bool(nil), mask...)
	queue := make([][2]int, 0, 64)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			if !mask[y*w+x] {
				continue
			}
			for _, d := range [4][2]int{{1, 0}, {-1, 0}, {0, 1}, {0, -1}} {
				nx, ny := x+d[0], y+d[1]
				if nx < 0 || ny < 0 || nx >= w || ny >= h {
					continue
				}
				idx := ny*w + nx
				if !out[idx] && isSwallow(sample.At(nx, ny)) {
					out[idx] = true
					queue = append(queue, [2]int{nx, ny})
				}
			}
		}
	}
	for i := 0; i < len(queue); i++ {
		x, y := queue[i][0], queue[i][1]
		col := sample.At(x, y)
		for _, d := range [4][2]int{{1, 0}, {-1, 0}, {0, 1}, {0, -1}} {
			nx, ny := x+d[0], y+d[1]
			if nx < 0 || ny < 0 || nx >= w || ny >= h {
				continue
			}
			idx := ny*w + nx
			if !out[idx] && sample.At(nx, ny) == col {
				out[idx] = true
				queue = append(queue, [2]int{nx, ny})
			}
		}
	}
	return out
}

func buildPatch(mask []bool, w, h int, fillColor pixel.ARGB) Patch {
	rect := pixel.Rect{}
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			if mask[y*w+x] {
				rect = rect.Union(pixel.Rect{X: x, Y: y, W: 1, H: 1})
			}
		}
	}
	if rect.Empty() {
		return Patch{}
	}

	pixels := make([]pixel.ARGB, rect.W*rect.H)
	for y := 0; y < rect.H; y++ {
		for x := 0; x < rect.W; x++ {
			gx, gy := rect.X+x, rect.Y+y
			if mask[gy*w+gx] {
				pixels[y*rect.W+x] = fillColor
			}
		}
	}
	return Patch{Rect: rect, Pixels: pixels}
}

// MagicWandMask returns a canvas-sized selection mask (1 byte per pixel, §8
// property 10) of every pixel within tolerance of the start pixel and
// reachable from it by 4-connected paths, filtered by an optional selection
// mask.
func MagicWandMask(sample *pixel.Buffer, x0, y0, tolerance int, selection []uint8) []uint8 {
	w, h := sample.Width, sample.Height
	out := make([]uint8, w*h)
	if x0 < 0 || y0 < 0 || x0 >= w || y0 >= h {
		return out
	}
	base := sample.At(x0, y0)
	target := toleranceMask(sample, base, tolerance, selection)

	visited := make([]bool, w*h)
	idx0 := y0*w + x0
	if !target[idx0] {
		return out
	}
	queue := [][2]int{{x0, y0}}
	visited[idx0] = true
	out[idx0] = 255
	for i := 0; i < len(queue); i++ {
		x, y := queue[i][0], queue[i][1]
		for _, d := range [4][2]int{{1, 0}, {-1, 0}, {0, 1}, {0, -1}} {
			nx, ny := x+d[0], y+d[1]
			if nx < 0 || ny < 0 || nx >= w || ny >= h {
				continue
			}
			idx := ny*w + nx
			if target[idx] && !visited[idx] {
				visited[idx] = true
				out[idx] = 255
				queue = append(queue, [2]int{nx, ny})
			}
		}
	}
	return out
}
