package canvas

import (
	"testing"

	"github.com/inkforge/paintcore/engine/pixel"
)

func TestNewCanvasHasOneDefaultLayer(t *testing.T) {
	c := New(nil, 4, 4)
	if len(c.Layers) != 1 || len(c.Pixels) != 1 {
		t.Fatalf("expected a single default layer, got %d layers", len(c.Layers))
	}
	if c.Layers[0].Opacity != 1 || !c.Layers[0].Visible {
		t.Fatalf("default layer should be fully opaque and visible, got %+v", c.Layers[0])
	}
}

func TestEnsureLayerGrowsAndAutoCreates(t *testing.T) {
	c := New(nil, 4, 4)
	if err := c.EnsureLayer(3); err != nil {
		t.Fatalf("EnsureLayer failed: %v", err)
	}
	if len(c.Layers) != 4 {
		t.Fatalf("expected 4 layers after EnsureLayer(3), got %d", len(c.Layers))
	}
	if !c.Valid(3) {
		t.Fatal("layer 3 should be valid after EnsureLayer(3)")
	}
}

func TestEnsureLayerNoopWhenAlreadyPresent(t *testing.T) {
	c := New(nil, 4, 4)
	if err := c.EnsureLayer(0); err != nil {
		t.Fatalf("EnsureLayer(0) failed: %v", err)
	}
	if len(c.Layers) != 1 {
		t.Fatalf("EnsureLayer on an existing index should not grow Layers, got %d", len(c.Layers))
	}
}

func TestReadWriteRegionRoundTrip(t *testing.T) {
	c := New(nil, 8, 8)
	buf := pixel.NewBuffer(2, 2)
	buf.Set(0, 0, pixel.Pack(255, 1, 2, 3))
	buf.Set(1, 1, pixel.Pack(255, 4, 5, 6))
	c.WriteRegion(0, pixel.Rect{X: 3, Y: 3, W: 2, H: 2}, buf)

	got := c.ReadRegion(0, pixel.Rect{X: 3, Y: 3, W: 2, H: 2})
	if got.At(0, 0) != buf.At(0, 0) || got.At(1, 1) != buf.At(1, 1) {
		t.Fatalf("round trip mismatch: got %v/%v want %v/%v", got.At(0, 0), got.At(1, 1), buf.At(0, 0), buf.At(1, 1))
	}
}

func TestWriteRegionInvalidatesUniform(t *testing.T) {
	c := New(nil, 4, 4)
	white := pixel.Pack(255, 255, 255, 255)
	c.Layers[0].UniformColor = &white
	c.WriteRegion(0, pixel.Rect{X: 0, Y: 0, W: 1, H: 1}, pixel.NewBuffer(1, 1))
	if c.Layers[0].UniformColor != nil {
		t.Fatal("WriteRegion must invalidate the uniform-color cache")
	}
}

func TestReorderPermutation(t *testing.T) {
	c := New(nil, 4, 4)
	c.EnsureLayer(2)
	c.Layers[0].Opacity = 0.1
	c.Layers[1].Opacity = 0.2
	c.Layers[2].Opacity = 0.3

	perm := c.Reorder(0, 2)
	if c.Layers[2].Opacity != 0.1 {
		t.Fatalf("layer originally at 0 should now be at 2, got opacity %v", c.Layers[2].Opacity)
	}
	if perm[0] != 2 {
		t.Fatalf("permutation should map old index 0 to new index 2, got %v", perm)
	}
}

func TestValidRejectsOutOfRangeIndex(t *testing.T) {
	c := New(nil, 4, 4)
	if c.Valid(-1) || c.Valid(1) {
		t.Fatal("Valid should reject out-of-range indices")
	}
	if !c.Valid(0) {
		t.Fatal("Valid should accept the default layer")
	}
}

func TestResizeResetsLayers(t *testing.T) {
	c := New(nil, 4, 4)
	c.EnsureLayer(2)
	c.Resize(nil, 10, 10, 2)
	if c.Width != 10 || c.Height != 10 {
		t.Fatalf("Resize should update dimensions, got %dx%d", c.Width, c.Height)
	}
	if len(c.Layers) != 2 || len(c.Pixels) != 2 {
		t.Fatalf("Resize should reset layer count to 2, got %d", len(c.Layers))
	}
	if c.Pixels[0].Width != 10 || c.Pixels[0].Height != 10 {
		t.Fatalf("Resize should reallocate pixel buffers at the new size")
	}
	if c.ActiveLayer != 0 {
		t.Fatalf("Resize should reset ActiveLayer to 0, got %d", c.ActiveLayer)
	}
}
