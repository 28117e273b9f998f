package transform

import (
	"testing"

	"github.com/inkforge/paintcore/engine/pixel"
)

func identity() []float32 {
	return []float32{
		1, 0, 0, 0,
		0, 1, 0, 0,
		0, 0, 1, 0,
		0, 0, 0, 1,
	}
}

func TestApplyIdentityPreservesBuffer(t *testing.T) {
	src := pixel.NewBuffer(4, 4)
	for y := 0; y < 4; y++ {
		for x := 0; x < 4; x++ {
			src.Set(x, y, pixel.Pack(255, uint8(x*50), uint8(y*50), 0))
		}
	}
	got := Apply(src, identity(), false)
	for i := range got.Pix {
		if got.Pix[i] != src.Pix[i] {
			t.Fatalf("identity transform should preserve pixels exactly, index %d: %v vs %v", i, got.Pix[i], src.Pix[i])
		}
	}
}

func TestApplySingularMatrixIsFullyTransparent(t *testing.T) {
	src := pixel.NewBuffer(4, 4)
	for i := range src.Pix {
		src.Pix[i] = pixel.Pack(255, 255, 255, 255)
	}
	singular := make([]float32, 16) // all-zero matrix is non-invertible
	got := Apply(src, singular, false)
	for _, p := range got.Pix {
		if p != 0 {
			t.Fatal("singular matrix should produce an all-transparent buffer")
		}
	}
}

func TestBoundsEmptyBuffer(t *testing.T) {
	buf := pixel.NewBuffer(4, 4)
	_, _, _, _, ok := Bounds(buf)
	if ok {
		t.Fatal("fully transparent buffer should report ok=false")
	}
}

func TestBoundsSinglePixel(t *testing.T) {
	buf := pixel.NewBuffer(10, 10)
	buf.Set(3, 4, pixel.Pack(255, 1, 1, 1))
	left, top, right, bottom, ok := Bounds(buf)
	if !ok {
		t.Fatal("expected ok=true")
	}
	if left != 3 || top != 4 || right != 4 || bottom != 5 {
		t.Fatalf("got (%d,%d,%d,%d), want (3,4,4,5)", left, top, right, bottom)
	}
}

func TestBoundsMultiplePixels(t *testing.T) {
	buf := pixel.NewBuffer(10, 10)
	buf.Set(1, 1, pixel.Pack(255, 1, 1, 1))
	buf.Set(8, 6, pixel.Pack(255, 1, 1, 1))
	left, top, right, bottom, ok := Bounds(buf)
	if !ok {
		t.Fatal("expected ok=true")
	}
	if left != 1 || top != 1 || right != 9 || bottom != 7 {
		t.Fatalf("got (%d,%d,%d,%d), want (1,1,9,7)", left, top, right, bottom)
	}
}

func TestPreviewProducesExpectedSize(t *testing.T) {
	buf := pixel.NewBuffer(8, 8)
	for i := range buf.Pix {
		buf.Pix[i] = pixel.Pack(255, 128, 128, 128)
	}
	out := Preview(buf, 4, 4)
	if len(out) != 4*4*4 {
		t.Fatalf("expected %d bytes, got %d", 4*4*4, len(out))
	}
}
