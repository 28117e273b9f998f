package compositor

import (
	"testing"

	"github.com/inkforge/paintcore/engine/canvas"
	"github.com/inkforge/paintcore/engine/pixel"
)

func approxEqual(a, b, eps float32) bool {
	d := a - b
	if d < 0 {
		d = -d
	}
	return d <= eps
}

func TestBlendUnknownModeFallsBackToNormal(t *testing.T) {
	src := pixel.Premul{R: 1, A: 1}
	dst := pixel.Premul{G: 1, A: 1}
	got := blend(canvas.BlendMode(999), src, dst)
	want := pixel.SourceOver(src, dst)
	if got != want {
		t.Fatalf("unknown blend mode should coerce to Normal: got %+v want %+v", got, want)
	}
}

func TestBlendMultiplyBlackYieldsBlack(t *testing.T) {
	black := pixel.Premul{R: 0, G: 0, B: 0, A: 1}
	white := pixel.Premul{R: 1, G: 1, B: 1, A: 1}
	got := blend(canvas.BlendMultiply, black, white)
	if !approxEqual(got.R, 0, 1e-3) {
		t.Fatalf("multiply of black over white should stay black, got %+v", got)
	}
}

func TestBlendScreenWhiteYieldsWhite(t *testing.T) {
	white := pixel.Premul{R: 1, G: 1, B: 1, A: 1}
	black := pixel.Premul{R: 0, G: 0, B: 0, A: 1}
	got := blend(canvas.BlendScreen, white, black)
	if !approxEqual(got.R, 1, 1e-3) {
		t.Fatalf("screen of white over black should stay white, got %+v", got)
	}
}

func TestBlendDarkenPicksMinimum(t *testing.T) {
	src := pixel.Premul{R: 0.2, A: 1}
	dst := pixel.Premul{R: 0.8, A: 1}
	got := blend(canvas.BlendDarken, src, dst)
	if !approxEqual(got.R, 0.2, 1e-3) {
		t.Fatalf("darken should pick the lower channel value, got %+v", got)
	}
}

func TestBlendLightenPicksMaximum(t *testing.T) {
	src := pixel.Premul{R: 0.2, A: 1}
	dst := pixel.Premul{R: 0.8, A: 1}
	got := blend(canvas.BlendLighten, src, dst)
	if !approxEqual(got.R, 0.8, 1e-3) {
		t.Fatalf("lighten should pick the higher channel value, got %+v", got)
	}
}

func TestBlendDifferenceSelfCancels(t *testing.T) {
	p := pixel.Premul{R: 0.6, G: 0.3, B: 0.1, A: 1}
	got := blend(canvas.BlendDifference, p, p)
	if !approxEqual(got.R, 0, 1e-3) || !approxEqual(got.G, 0, 1e-3) || !approxEqual(got.B, 0, 1e-3) {
		t.Fatalf("difference of identical colors should be zero, got %+v", got)
	}
}

func TestBlendTransparentSrcLeavesDestinationUnchanged(t *testing.T) {
	dst := pixel.Premul{R: 0.4, G: 0.5, B: 0.6, A: 0.8}
	src := pixel.Premul{A: 0}
	for _, mode := range []canvas.BlendMode{
		canvas.BlendMultiply, canvas.BlendScreen, canvas.BlendOverlay, canvas.BlendHardLight,
		canvas.BlendSoftLight, canvas.BlendColorDodge, canvas.BlendColorBurn,
	} {
		got := blend(mode, src, dst)
		if !approxEqual(got.A, dst.A, 1e-3) {
			t.Fatalf("mode %v: fully transparent src should leave destination alpha unchanged, got %+v", mode, got)
		}
	}
}

func TestColorDodgeEdgeCases(t *testing.T) {
	if got := colorDodge(0.5, 0); got != 0 {
		t.Fatalf("colorDodge with d=0 should be 0, got %v", got)
	}
	if got := colorDodge(1, 0.5); got != 1 {
		t.Fatalf("colorDodge with s=1 should saturate to 1, got %v", got)
	}
}

func TestColorBurnEdgeCases(t *testing.T) {
	if got := colorBurn(0.5, 1); got != 1 {
		t.Fatalf("colorBurn with d=1 should be 1, got %v", got)
	}
	if got := colorBurn(0, 0.5); got != 0 {
		t.Fatalf("colorBurn with s=0 should be 0, got %v", got)
	}
}

func TestSqrt32Approximation(t *testing.T) {
	got := sqrt32(4)
	if !approxEqual(got, 2, 1e-3) {
		t.Fatalf("sqrt32(4) = %v, want ~2", got)
	}
	if sqrt32(0) != 0 {
		t.Fatalf("sqrt32(0) should be 0, got %v", sqrt32(0))
	}
}
