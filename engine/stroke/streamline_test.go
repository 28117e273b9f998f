package stroke

import (
	"testing"

	"github.com/inkforge/paintcore/engine/brush"
)

func TestSmoothNegligibleStrengthReturnsInput(t *testing.T) {
	pts := []brush.Point{{X: 0, Y: 0, Radius: 1}, {X: 1, Y: 1, Radius: 1}, {X: 2, Y: 0, Radius: 1}}
	got := Smooth(pts, 0)
	if len(got) != len(pts) {
		t.Fatalf("len mismatch: %d vs %d", len(got), len(pts))
	}
	for i := range pts {
		if got[i] != pts[i] {
			t.Fatalf("negligible strength should not alter points: %+v vs %+v", got[i], pts[i])
		}
	}
}

func TestSmoothTooFewPointsReturnsInput(t *testing.T) {
	pts := []brush.Point{{X: 0, Y: 0, Radius: 1}, {X: 1, Y: 1, Radius: 1}}
	got := Smooth(pts, 1)
	if len(got) != len(pts) {
		t.Fatalf("len mismatch: %d vs %d", len(got), len(pts))
	}
}

func TestSmoothPreservesEndpointsAndLength(t *testing.T) {
	pts := make([]brush.Point, 20)
	for i := range pts {
		pts[i] = brush.Point{X: float32(i), Y: float32(i % 3), Radius: 5}
	}
	got := Smooth(pts, 0.8)
	if len(got) != len(pts) {
		t.Fatalf("Smooth must preserve point count, got %d want %d", len(got), len(pts))
	}
	if got[0] != pts[0] {
		t.Fatalf("first point should remain fixed: %+v vs %+v", got[0], pts[0])
	}
	if got[len(got)-1] != pts[len(pts)-1] {
		t.Fatalf("last point should remain fixed: %+v vs %+v", got[len(got)-1], pts[len(pts)-1])
	}
}

func TestSmoothHigherStrengthSmoothsMoreThanLower(t *testing.T) {
	pts := make([]brush.Point, 12)
	for i := range pts {
		y := float32(0)
		if i%2 == 1 {
			y = 10
		}
		pts[i] = brush.Point{X: float32(i), Y: y, Radius: 5}
	}
	low := Smooth(pts, 0.1)
	high := Smooth(pts, 1.0)

	devLow := deviation(low, pts)
	devHigh := deviation(high, pts)
	if devHigh <= devLow {
		t.Fatalf("higher streamline strength should deviate further from the zig-zag input: low=%v high=%v", devLow, devHigh)
	}
}

func deviation(a, b []brush.Point) float32 {
	var total float32
	for i := range a {
		dx := a[i].X - b[i].X
		dy := a[i].Y - b[i].Y
		total += dx*dx + dy*dy
	}
	return total
}

func TestDurationIncreasesWithStrength(t *testing.T) {
	lo := Duration(0)
	hi := Duration(1)
	if hi <= lo {
		t.Fatalf("duration should increase with strength: lo=%v hi=%v", lo, hi)
	}
}
