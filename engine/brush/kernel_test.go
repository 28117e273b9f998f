package brush

import (
	"testing"

	"github.com/inkforge/paintcore/engine/pixel"
)

func TestRasterizeEmptyPointsReturnsEmptyRect(t *testing.T) {
	k := &Kernel{Settings: Default()}
	dst := pixel.NewBuffer(32, 32)
	got := k.Rasterize(dst, nil)
	if !got.Empty() {
		t.Fatalf("empty points should produce an empty dirty rect, got %+v", got)
	}
}

func TestRasterizeOpaqueCircleCenterIsFullyCovered(t *testing.T) {
	s := Default()
	s.Hardness = 1
	s.AALevel = 0
	k := &Kernel{Settings: s}
	dst := pixel.NewBuffer(32, 32)
	dirty := k.Rasterize(dst, []Point{{X: 16, Y: 16, Radius: 8}})
	if dirty.Empty() {
		t.Fatal("stamp should produce a non-empty dirty rect")
	}
	center := dst.At(16, 16)
	if center.A() != 255 {
		t.Fatalf("center of an opaque hard-edged stamp should be fully opaque, got A=%d", center.A())
	}
	far := dst.At(1, 1)
	if far.A() != 0 {
		t.Fatalf("far corner should be untouched, got A=%d", far.A())
	}
}

func TestRasterizeEraseClearsExistingPixel(t *testing.T) {
	dst := pixel.NewBuffer(32, 32)
	for i := range dst.Pix {
		dst.Pix[i] = pixel.Pack(255, 200, 100, 50)
	}
	s := Default()
	s.Erase = true
	s.Hardness = 1
	s.AALevel = 0
	k := &Kernel{Settings: s}
	k.Rasterize(dst, []Point{{X: 16, Y: 16, Radius: 8}})
	if got := dst.At(16, 16).A(); got != 0 {
		t.Fatalf("erase stamp should zero out alpha at center, got A=%d", got)
	}
}

func TestRasterizeRespectsSelectionMask(t *testing.T) {
	dst := pixel.NewBuffer(8, 8)
	sel := make([]uint8, 64) // all zero: fully masked out
	s := Default()
	s.Hardness = 1
	s.AALevel = 0
	k := &Kernel{Settings: s, Selection: sel}
	k.Rasterize(dst, []Point{{X: 4, Y: 4, Radius: 3}})
	if got := dst.At(4, 4).A(); got != 0 {
		t.Fatalf("fully-zero selection mask should block all coverage, got A=%d", got)
	}
}

func TestRasterizeAccumulateClampsOverlap(t *testing.T) {
	s := Default()
	s.Hardness = 1
	s.AALevel = 0
	k := &Kernel{Settings: s}
	dst := pixel.NewBuffer(32, 32)
	points := []Point{
		{X: 16, Y: 16, Radius: 6},
		{X: 16, Y: 16, Radius: 6},
		{X: 16, Y: 16, Radius: 6},
	}
	alphas := []float32{0.9, 0.9, 0.9}
	dirty := k.RasterizeAccumulate(dst, points, alphas)
	if dirty.Empty() {
		t.Fatal("accumulate should produce a non-empty dirty rect")
	}
	center := dst.At(16, 16)
	if center.A() != 255 {
		t.Fatalf("overlapping high-alpha stamps should clamp to fully opaque, got A=%d", center.A())
	}
}

func TestRasterizeAccumulateEmptyPoints(t *testing.T) {
	k := &Kernel{Settings: Default()}
	dst := pixel.NewBuffer(16, 16)
	got := k.RasterizeAccumulate(dst, nil, nil)
	if !got.Empty() {
		t.Fatalf("empty points should produce an empty dirty rect, got %+v", got)
	}
}

func TestShapeDistanceCircleMatchesRadius(t *testing.T) {
	d := shapeDistance(ShapeCircle, 10, 0, 10)
	if d < -0.001 || d > 0.001 {
		t.Fatalf("point exactly on circle boundary should have ~0 signed distance, got %v", d)
	}
}

func TestShapeDistanceSquareInsideIsNegative(t *testing.T) {
	d := shapeDistance(ShapeSquare, 1, 1, 10)
	if d >= 0 {
		t.Fatalf("point well inside a square should have negative signed distance, got %v", d)
	}
}

func TestEdgeCoverageHardEdge(t *testing.T) {
	if got := edgeCoverage(-1, 0); got != 1 {
		t.Fatalf("inside a zero-edge stamp should be fully covered, got %v", got)
	}
	if got := edgeCoverage(1, 0); got != 0 {
		t.Fatalf("outside a zero-edge stamp should be uncovered, got %v", got)
	}
}

func TestEdgeCoverageSoftEdgeMidpoint(t *testing.T) {
	got := edgeCoverage(0, 4)
	if got < 0.49 || got > 0.51 {
		t.Fatalf("coverage exactly at the boundary with a soft edge should be ~0.5, got %v", got)
	}
}
