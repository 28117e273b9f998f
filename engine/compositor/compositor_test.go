package compositor

import (
	"testing"
	"time"

	"github.com/inkforge/paintcore/engine/canvas"
	"github.com/inkforge/paintcore/engine/pixel"
)

func TestGateAllowsFirstSubmit(t *testing.T) {
	var g Gate
	if !g.ShouldPresent(time.Now()) {
		t.Fatal("a fresh gate should allow the first present")
	}
}

func TestGateBlocksWhileInFlight(t *testing.T) {
	var g Gate
	now := time.Now()
	g.BeginSubmit(now)
	if g.ShouldPresent(now) {
		t.Fatal("gate should block a second submit while the first is in flight")
	}
}

func TestGateForcesAfterStallDeadline(t *testing.T) {
	var g Gate
	now := time.Now()
	g.BeginSubmit(now)
	later := now.Add(PresentStallDeadline + time.Millisecond)
	if !g.ShouldPresent(later) {
		t.Fatal("gate should force a submit once the stall deadline has elapsed")
	}
}

func TestGatePollFrameReadyConsumesFlag(t *testing.T) {
	var g Gate
	g.EndSubmit()
	if !g.PollFrameReady() {
		t.Fatal("expected frame-ready after EndSubmit")
	}
	if g.PollFrameReady() {
		t.Fatal("PollFrameReady should clear the flag after consuming it")
	}
}

func TestCompositeSkipsInvisibleLayers(t *testing.T) {
	c := canvas.New(nil, 2, 2)
	c.EnsureLayer(1)
	red := pixel.Pack(255, 255, 0, 0)
	for i := range c.Pixels[0].Pix {
		c.Pixels[0].Pix[i] = red
	}
	c.Layers[0].Visible = false
	for i := range c.Pixels[1].Pix {
		c.Pixels[1].Pix[i] = pixel.Pack(255, 0, 255, 0)
	}

	out := Composite(c, nil, nil)
	if out.At(0, 0).R() != 0 || out.At(0, 0).G() != 255 {
		t.Fatalf("invisible layer should not contribute to the composite, got %v", out.At(0, 0))
	}
}

func TestCompositeOpacityScalesContribution(t *testing.T) {
	c := canvas.New(nil, 1, 1)
	c.Pixels[0].Pix[0] = pixel.Pack(255, 255, 255, 255)
	c.Layers[0].Opacity = 0.5

	out := Composite(c, nil, nil)
	got := out.At(0, 0)
	if got.A() < 120 || got.A() > 135 {
		t.Fatalf("half-opacity white over transparent should land near A=127, got %d", got.A())
	}
}

func TestCompositeNormalBlendOverOpaqueBackground(t *testing.T) {
	c := canvas.New(nil, 1, 1)
	c.EnsureLayer(1)
	c.Pixels[0].Pix[0] = pixel.Pack(255, 0, 0, 255) // blue background
	c.Pixels[1].Pix[0] = pixel.Pack(255, 255, 0, 0) // opaque red on top

	out := Composite(c, nil, nil)
	got := out.At(0, 0)
	if got.R() != 255 || got.G() != 0 || got.B() != 0 {
		t.Fatalf("opaque top layer should fully occlude the background, got %v", got)
	}
}

func TestApplyViewFlagsMirror(t *testing.T) {
	buf := pixel.NewBuffer(2, 1)
	buf.Set(0, 0, pixel.Pack(255, 1, 0, 0))
	buf.Set(1, 0, pixel.Pack(255, 2, 0, 0))
	applyViewFlags(buf, 1)
	if buf.At(0, 0).R() != 2 || buf.At(1, 0).R() != 1 {
		t.Fatalf("mirror flag should swap pixels horizontally, got %v / %v", buf.At(0, 0), buf.At(1, 0))
	}
}

func TestApplyViewFlagsGrayscale(t *testing.T) {
	buf := pixel.NewBuffer(1, 1)
	buf.Set(0, 0, pixel.Pack(255, 255, 0, 0))
	applyViewFlags(buf, 2)
	got := buf.At(0, 0)
	if got.R() != got.G() || got.G() != got.B() {
		t.Fatalf("grayscale flag should equalize channels, got %v", got)
	}
}
