package fill

import (
	"testing"

	"github.com/inkforge/paintcore/engine/pixel"
)

func solidBuffer(w, h int, c pixel.ARGB) *pixel.Buffer {
	b := pixel.NewBuffer(w, h)
	for i := range b.Pix {
		b.Pix[i] = c
	}
	return b
}

func TestFillOutOfBoundsStartIsNoop(t *testing.T) {
	buf := solidBuffer(8, 8, pixel.Pack(255, 0, 0, 0))
	patch := Fill(buf, Params{Start: [2]int{100, 100}, FillColor: pixel.Pack(255, 255, 255, 255)})
	if !patch.Rect.Empty() {
		t.Fatalf("out-of-bounds start should produce an empty patch, got %+v", patch)
	}
}

func TestFillSameColorIsNoop(t *testing.T) {
	c := pixel.Pack(255, 10, 20, 30)
	buf := solidBuffer(8, 8, c)
	patch := Fill(buf, Params{Start: [2]int{3, 3}, FillColor: c})
	if !patch.Rect.Empty() {
		t.Fatalf("filling with the same color should be a no-op, got %+v", patch)
	}
}

func TestFillNonContiguousFillsEveryMatchingPixel(t *testing.T) {
	buf := pixel.NewBuffer(4, 4)
	red := pixel.Pack(255, 255, 0, 0)
	blue := pixel.Pack(255, 0, 0, 255)
	for y := 0; y < 4; y++ {
		for x := 0; x < 4; x++ {
			if (x+y)%2 == 0 {
				buf.Set(x, y, red)
			} else {
				buf.Set(x, y, blue)
			}
		}
	}
	green := pixel.Pack(255, 0, 255, 0)
	patch := Fill(buf, Params{Start: [2]int{0, 0}, FillColor: green, Contiguous: false})
	if patch.Rect.Empty() {
		t.Fatal("expected a non-empty patch")
	}
	// Every red pixel across the whole (disconnected) checkerboard should be
	// covered by the patch rect since non-contiguous fill ignores adjacency.
	if patch.Rect.W != 4 || patch.Rect.H != 4 {
		t.Fatalf("non-contiguous fill should span the full extent of matching pixels, got %+v", patch.Rect)
	}
}

func TestFillContiguousStaysWithinConnectedRegion(t *testing.T) {
	// Two separate 2x2 red blocks on a blue background, neither touching the
	// canvas border (a region that reaches the border falls back to the whole
	// tolerance mask); contiguous fill from one block must not touch the other.
	buf := solidBuffer(10, 10, pixel.Pack(255, 0, 0, 255))
	red := pixel.Pack(255, 255, 0, 0)
	for y := 0; y < 2; y++ {
		for x := 0; x < 2; x++ {
			buf.Set(x+1, y+1, red)
			buf.Set(x+6, y+6, red)
		}
	}
	green := pixel.Pack(255, 0, 255, 0)
	patch := Fill(buf, Params{Start: [2]int{1, 1}, FillColor: green, Contiguous: true})
	if patch.Rect.X+patch.Rect.W > 3 || patch.Rect.Y+patch.Rect.H > 3 {
		t.Fatalf("contiguous fill should not reach the disconnected block, got rect %+v", patch.Rect)
	}
	for _, p := range patch.Pixels {
		if p != 0 && p != green {
			t.Fatalf("patch should only contain fill color or empty holes, got %v", p)
		}
	}
}

func TestFillToleranceIncludesNearbyColors(t *testing.T) {
	buf := pixel.NewBuffer(4, 4)
	for y := 0; y < 4; y++ {
		for x := 0; x < 4; x++ {
			buf.Set(x, y, pixel.Pack(255, uint8(x*10), 0, 0))
		}
	}
	green := pixel.Pack(255, 0, 255, 0)
	patch := Fill(buf, Params{Start: [2]int{0, 0}, FillColor: green, Contiguous: true, Tolerance: 50})
	if patch.Rect.Empty() {
		t.Fatal("tolerant fill should match nearby shades")
	}
	if patch.Rect.W < 4 {
		t.Fatalf("tolerance 50 should bridge shade differences of 10 across the whole row, got rect %+v", patch.Rect)
	}
}

func TestFillRespectsSelectionMask(t *testing.T) {
	buf := solidBuffer(4, 4, pixel.Pack(255, 0, 0, 0))
	selection := make([]uint8, 16)
	// Only allow the top-left pixel.
	selection[0] = 255
	green := pixel.Pack(255, 0, 255, 0)
	patch := Fill(buf, Params{Start: [2]int{0, 0}, FillColor: green, Contiguous: true, Selection: selection})
	if patch.Rect.W != 1 || patch.Rect.H != 1 {
		t.Fatalf("selection mask should restrict fill to one pixel, got rect %+v", patch.Rect)
	}
}

func TestMagicWandMaskOutOfBounds(t *testing.T) {
	buf := solidBuffer(4, 4, pixel.Pack(255, 0, 0, 0))
	mask := MagicWandMask(buf, -1, -1, 10, nil)
	for _, v := range mask {
		if v != 0 {
			t.Fatal("out-of-bounds start should yield an all-zero mask")
		}
	}
}

func TestMagicWandMaskMatchesContiguousRegion(t *testing.T) {
	buf := solidBuffer(5, 5, pixel.Pack(255, 0, 0, 0))
	buf.Set(4, 4, pixel.Pack(255, 255, 255, 255))
	mask := MagicWandMask(buf, 0, 0, 10, nil)
	if mask[4*5+4] != 0 {
		t.Fatal("disconnected differently-colored pixel should not be selected")
	}
	if mask[0] != 255 {
		t.Fatal("start pixel should always be selected")
	}
	count := 0
	for _, v := range mask {
		if v != 0 {
			count++
		}
	}
	if count != 24 {
		t.Fatalf("expected all 24 matching pixels selected, got %d", count)
	}
}
