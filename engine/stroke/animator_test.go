package stroke

import (
	"testing"
	"time"

	"github.com/inkforge/paintcore/engine/brush"
)

func TestAnimatorTicksTowardTarget(t *testing.T) {
	from := []brush.Point{{X: 0, Y: 0, Radius: 1}}
	to := []brush.Point{{X: 10, Y: 0, Radius: 1}}
	dur := 100 * time.Millisecond
	a := NewAnimator(0, from, to, dur)

	out := a.Tick(50 * time.Millisecond)
	if out[0].X <= 0 || out[0].X >= 10 {
		t.Fatalf("halfway through the animation X should be strictly between endpoints, got %v", out[0].X)
	}
	if a.Done() {
		t.Fatal("animator should not be done halfway through")
	}

	out = a.Tick(60 * time.Millisecond)
	if !a.Done() {
		t.Fatal("animator should report done once total elapsed exceeds duration")
	}
	if out[0].X != 10 {
		t.Fatalf("final tick should land exactly on the target, got %v", out[0].X)
	}
}

func TestAnimatorLayer(t *testing.T) {
	a := NewAnimator(3, []brush.Point{{}}, []brush.Point{{}}, time.Second)
	if a.Layer() != 3 {
		t.Fatalf("Layer() = %d, want 3", a.Layer())
	}
}

func TestAnimatorFinalReturnsTargetWithoutAdvancing(t *testing.T) {
	from := []brush.Point{{X: 0, Y: 0, Radius: 1}}
	to := []brush.Point{{X: 10, Y: 4, Radius: 2}}
	a := NewAnimator(0, from, to, time.Second)

	final := a.Final()
	if final[0] != to[0] {
		t.Fatalf("Final() = %v, want %v", final[0], to[0])
	}
	if a.Done() {
		t.Fatal("Final() should not itself advance or complete the animation")
	}
}

func TestAnimatorDoneReturnsTargetForever(t *testing.T) {
	from := []brush.Point{{X: 0}}
	to := []brush.Point{{X: 5}}
	a := NewAnimator(0, from, to, 10*time.Millisecond)
	a.Tick(20 * time.Millisecond)
	if !a.Done() {
		t.Fatal("expected animation to be done")
	}
	out := a.Tick(time.Second)
	if out[0].X != 5 {
		t.Fatalf("ticking a done animator should keep returning the target, got %v", out[0].X)
	}
}
