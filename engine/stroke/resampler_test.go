package stroke

import (
	"testing"

	"github.com/inkforge/paintcore/engine/command"
)

func TestResamplerFirstSampleEmitsOnePoint(t *testing.T) {
	r := NewResampler(10, false)
	pts := r.Feed(command.Sample{X: 5, Y: 5, Flags: command.FlagDown})
	if len(pts) != 1 {
		t.Fatalf("first sample should emit exactly one point, got %d", len(pts))
	}
	if pts[0].Radius != 10 {
		t.Fatalf("radius should equal base radius when pressure is disabled, got %v", pts[0].Radius)
	}
}

func TestResamplerPressureScalesRadius(t *testing.T) {
	r := NewResampler(10, true)
	pts := r.Feed(command.Sample{X: 0, Y: 0, Pressure: 1, Flags: command.FlagDown})
	if pts[0].Radius <= 0 || pts[0].Radius > 10 {
		t.Fatalf("pressure-scaled radius out of expected range: %v", pts[0].Radius)
	}
	low := NewResampler(10, true)
	lowPts := low.Feed(command.Sample{X: 0, Y: 0, Pressure: 0, Flags: command.FlagDown})
	if lowPts[0].Radius >= pts[0].Radius {
		t.Fatalf("lower pressure should produce a smaller radius: low=%v high=%v", lowPts[0].Radius, pts[0].Radius)
	}
}

func TestResamplerEmitsIntermediatePointsOverLongMove(t *testing.T) {
	r := NewResampler(10, false)
	r.Feed(command.Sample{X: 0, Y: 0, Flags: command.FlagDown})
	pts := r.Feed(command.Sample{X: 100, Y: 0, Flags: command.FlagMove})
	if len(pts) < 2 {
		t.Fatalf("a long straight move should resample into multiple points, got %d", len(pts))
	}
	for i := 1; i < len(pts); i++ {
		if pts[i].X <= pts[i-1].X {
			t.Fatalf("resampled points should advance monotonically along the move, index %d: %v vs %v", i, pts[i].X, pts[i-1].X)
		}
	}
}

func TestResamplerIgnoresNegligibleMove(t *testing.T) {
	r := NewResampler(10, false)
	r.Feed(command.Sample{X: 0, Y: 0, Flags: command.FlagDown})
	pts := r.Feed(command.Sample{X: 0.00001, Y: 0, Flags: command.FlagMove})
	if pts != nil {
		t.Fatalf("a sub-threshold move with no FlagUp should emit nothing, got %v", pts)
	}
}

func TestResamplerFlagUpAlwaysEmitsFinalPoint(t *testing.T) {
	r := NewResampler(10, false)
	r.Feed(command.Sample{X: 0, Y: 0, Flags: command.FlagDown})
	pts := r.Feed(command.Sample{X: 0.00001, Y: 0, Flags: command.FlagUp})
	if len(pts) != 1 {
		t.Fatalf("FlagUp should always emit the final point even on a negligible move, got %d", len(pts))
	}
}

func TestResamplerFinishReturnsAllEmitted(t *testing.T) {
	r := NewResampler(10, false)
	r.Feed(command.Sample{X: 0, Y: 0, Flags: command.FlagDown})
	r.Feed(command.Sample{X: 20, Y: 0, Flags: command.FlagUp})
	all := r.Finish()
	if len(all) < 2 {
		t.Fatalf("Finish should return every emitted point across the stroke, got %d", len(all))
	}
}
