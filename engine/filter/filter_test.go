package filter

import (
	"testing"

	"github.com/inkforge/paintcore/engine/command"
	"github.com/inkforge/paintcore/engine/pixel"
)

func TestApplyInvert(t *testing.T) {
	buf := pixel.NewBuffer(2, 2)
	buf.Set(0, 0, pixel.Pack(255, 10, 20, 30))
	rect := Apply(buf, command.FilterInvert, [4]float32{})
	if rect.W != 2 || rect.H != 2 {
		t.Fatalf("Apply should always return the full-buffer dirty rect, got %+v", rect)
	}
	got := buf.At(0, 0)
	if got.R() != 245 || got.G() != 235 || got.B() != 225 {
		t.Fatalf("invert mismatch: %v", got)
	}
	if got.A() != 255 {
		t.Fatalf("invert must preserve alpha, got %d", got.A())
	}
}

func TestApplyInvertSkipsTransparentPixels(t *testing.T) {
	buf := pixel.NewBuffer(1, 1)
	Apply(buf, command.FilterInvert, [4]float32{})
	if buf.At(0, 0) != 0 {
		t.Fatalf("fully transparent pixel should be left untouched, got %v", buf.At(0, 0))
	}
}

func TestBinarizeThreshold(t *testing.T) {
	buf := pixel.NewBuffer(2, 1)
	buf.Set(0, 0, pixel.Pack(255, 10, 10, 10))  // dark
	buf.Set(1, 0, pixel.Pack(255, 240, 240, 240)) // light
	Apply(buf, command.FilterBinarize, [4]float32{128})
	if buf.At(0, 0) != 0 {
		t.Fatalf("dark pixel below threshold should become transparent, got %v", buf.At(0, 0))
	}
	white := buf.At(1, 0)
	if white.A() != 255 || white.R() != 240 {
		t.Fatalf("light pixel above threshold should stay opaque with original color, got %v", white)
	}
}

func TestBrightnessContrastIdentityAtZero(t *testing.T) {
	buf := pixel.NewBuffer(1, 1)
	orig := pixel.Pack(255, 100, 150, 200)
	buf.Set(0, 0, orig)
	Apply(buf, command.FilterBrightnessContrast, [4]float32{0, 0})
	if buf.At(0, 0) != orig {
		t.Fatalf("zero brightness/contrast should be identity, got %v want %v", buf.At(0, 0), orig)
	}
}

func TestHueSatLightnessIdentityAtZero(t *testing.T) {
	buf := pixel.NewBuffer(1, 1)
	orig := pixel.Pack(255, 100, 150, 200)
	buf.Set(0, 0, orig)
	Apply(buf, command.FilterHueSatLightness, [4]float32{0, 0, 0})
	got := buf.At(0, 0)
	diff := func(a, b uint8) int {
		if a > b {
			return int(a - b)
		}
		return int(b - a)
	}
	if diff(got.R(), orig.R()) > 2 || diff(got.G(), orig.G()) > 2 || diff(got.B(), orig.B()) > 2 {
		t.Fatalf("zero hue/sat/lightness deltas should roughly preserve color: got %v want %v", got, orig)
	}
}

func TestGaussianBlurSpreadsOpaqueEdge(t *testing.T) {
	buf := pixel.NewBuffer(16, 16)
	for y := 0; y < 16; y++ {
		for x := 0; x < 8; x++ {
			buf.Set(x, y, pixel.Pack(255, 255, 255, 255))
		}
	}
	Apply(buf, command.FilterGaussianBlur, [4]float32{3})
	mid := buf.At(8, 8)
	if mid.A() == 0 || mid.A() == 255 {
		t.Fatalf("blur should soften the hard edge into a partial alpha, got A=%d", mid.A())
	}
}

func TestAntialiasNoopAtZeroLevel(t *testing.T) {
	buf := pixel.NewBuffer(4, 4)
	orig := append([]pixel.ARGB(nil), buf.Pix...)
	Antialias(buf, 0)
	for i, p := range buf.Pix {
		if p != orig[i] {
			t.Fatal("level<=0 antialias should be a no-op")
		}
	}
}

func TestAntialiasSoftensEdge(t *testing.T) {
	buf := pixel.NewBuffer(16, 16)
	for y := 0; y < 16; y++ {
		for x := 0; x < 8; x++ {
			buf.Set(x, y, pixel.Pack(255, 0, 0, 0))
		}
	}
	Antialias(buf, 3)
	edge := buf.At(8, 8)
	if edge.A() == 0 || edge.A() == 255 {
		t.Fatalf("antialias should leave a partial-alpha pixel at the boundary, got A=%d", edge.A())
	}
}

func TestMorphologyDilateGrowsOpaqueRegion(t *testing.T) {
	buf := pixel.NewBuffer(5, 5)
	buf.Set(2, 2, pixel.Pack(255, 0, 0, 0))
	Apply(buf, command.FilterMorphology, [4]float32{1, 1})
	if buf.At(1, 2).A() == 0 {
		t.Fatal("dilation should grow the single opaque pixel into its neighbors")
	}
}

func TestMorphologyErodeShrinksOpaqueRegion(t *testing.T) {
	buf := pixel.NewBuffer(5, 5)
	for y := 1; y < 4; y++ {
		for x := 1; x < 4; x++ {
			buf.Set(x, y, pixel.Pack(255, 0, 0, 0))
		}
	}
	Apply(buf, command.FilterMorphology, [4]float32{1, 0})
	if buf.At(2, 2).A() == 0 {
		t.Fatal("erosion should keep the innermost pixel opaque")
	}
	if buf.At(1, 1).A() != 0 {
		t.Fatal("erosion should clear edge-adjacent pixels of a small opaque block")
	}
}

func TestScanPaperWhitensNearWhitePixels(t *testing.T) {
	buf := pixel.NewBuffer(1, 1)
	buf.Set(0, 0, pixel.Pack(255, 250, 250, 250))
	Apply(buf, command.FilterScanPaper, [4]float32{200})
	if buf.At(0, 0) != 0 {
		t.Fatal("near-white pixel above threshold should become transparent")
	}
}
