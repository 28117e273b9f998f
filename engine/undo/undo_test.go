package undo

import (
	"sync"
	"testing"

	"github.com/inkforge/paintcore/engine/pixel"
)

// fakeSource is an in-memory LayerSource backed by one pixel.Buffer per layer.
type fakeSource struct {
	mu     sync.Mutex
	layers []*pixel.Buffer
}

func newFakeSource(n, w, h int) *fakeSource {
	fs := &fakeSource{layers: make([]*pixel.Buffer, n)}
	for i := range fs.layers {
		fs.layers[i] = pixel.NewBuffer(w, h)
	}
	return fs
}

func (f *fakeSource) ReadRegion(layer int, rect pixel.Rect) *pixel.Buffer {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := pixel.NewBuffer(rect.W, rect.H)
	if layer < 0 || layer >= len(f.layers) {
		return out
	}
	src := f.layers[layer]
	for y := 0; y < rect.H; y++ {
		for x := 0; x < rect.W; x++ {
			out.Set(x, y, src.At(rect.X+x, rect.Y+y))
		}
	}
	return out
}

func (f *fakeSource) WriteRegion(layer int, rect pixel.Rect, buf *pixel.Buffer) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if layer < 0 || layer >= len(f.layers) {
		return
	}
	dst := f.layers[layer]
	for y := 0; y < buf.Height; y++ {
		for x := 0; x < buf.Width; x++ {
			dst.Set(rect.X+x, rect.Y+y, buf.At(x, y))
		}
	}
}

func TestUndoRedoRoundTrip(t *testing.T) {
	src := newFakeSource(1, 512, 512)
	m := NewManager(src)

	m.BeginStroke(0)
	m.NotifyDirty(512, 512, pixel.Rect{X: 10, Y: 10, W: 4, H: 4})
	src.layers[0].Set(10, 10, pixel.Pack(255, 200, 0, 0))
	m.EndStroke()

	if got := src.layers[0].At(10, 10); got.R() != 200 {
		t.Fatalf("setup: expected stroke pixel to be set, got %v", got)
	}

	rec, ok := m.Undo()
	if !ok || len(rec.Tiles) == 0 {
		t.Fatal("expected a non-empty record from Undo")
	}
	if got := src.layers[0].At(10, 10); got.R() != 0 {
		t.Fatalf("undo should restore the pre-stroke pixel, got %v", got)
	}

	_, ok = m.Redo()
	if !ok {
		t.Fatal("expected Redo to succeed after an Undo")
	}
	if got := src.layers[0].At(10, 10); got.R() != 200 {
		t.Fatalf("redo should restore the post-stroke pixel, got %v", got)
	}
}

func TestUndoOnEmptyHistoryFails(t *testing.T) {
	m := NewManager(newFakeSource(1, 64, 64))
	_, ok := m.Undo()
	if ok {
		t.Fatal("Undo on empty history should report false")
	}
}

func TestRedoOnEmptyStackFails(t *testing.T) {
	m := NewManager(newFakeSource(1, 64, 64))
	_, ok := m.Redo()
	if ok {
		t.Fatal("Redo on empty redo stack should report false")
	}
}

func TestBeginStrokeClearsRedoStack(t *testing.T) {
	src := newFakeSource(1, 64, 64)
	m := NewManager(src)

	m.BeginStroke(0)
	m.NotifyDirty(64, 64, pixel.Rect{X: 0, Y: 0, W: 4, H: 4})
	m.EndStroke()
	m.Undo()

	m.BeginStroke(0)
	m.NotifyDirty(64, 64, pixel.Rect{X: 0, Y: 0, W: 4, H: 4})
	m.EndStroke()

	_, ok := m.Redo()
	if ok {
		t.Fatal("starting a new stroke should clear the redo stack")
	}
}

func TestCancelStrokeDiscardsCapture(t *testing.T) {
	src := newFakeSource(1, 64, 64)
	m := NewManager(src)
	m.BeginStroke(0)
	m.NotifyDirty(64, 64, pixel.Rect{X: 0, Y: 0, W: 4, H: 4})
	m.CancelStroke()
	m.EndStroke()
	if _, ok := m.Undo(); ok {
		t.Fatal("a cancelled stroke should not produce a history record")
	}
}

func TestClearWipesHistoryAndRedo(t *testing.T) {
	src := newFakeSource(1, 64, 64)
	m := NewManager(src)
	m.BeginStroke(0)
	m.NotifyDirty(64, 64, pixel.Rect{X: 0, Y: 0, W: 4, H: 4})
	m.EndStroke()
	m.Clear()
	if _, ok := m.Undo(); ok {
		t.Fatal("Clear should wipe undo history")
	}
}

func TestRestoreBeforeWritesBackWithoutPoppingHistory(t *testing.T) {
	src := newFakeSource(1, 64, 64)
	m := NewManager(src)

	m.BeginStroke(0)
	m.NotifyDirty(64, 64, pixel.Rect{X: 0, Y: 0, W: 4, H: 4})
	src.layers[0].Set(1, 1, pixel.Pack(255, 77, 0, 0))

	m.RestoreBefore(0)
	if got := src.layers[0].At(1, 1); got.R() != 0 {
		t.Fatalf("RestoreBefore should write the captured before state back, got %v", got)
	}

	// The capture is still open (EndStroke was never called): a second paint
	// followed by another RestoreBefore must still recover the same
	// original before state, the way each animator tick repaints from a
	// clean base.
	src.layers[0].Set(1, 1, pixel.Pack(255, 99, 0, 0))
	m.RestoreBefore(0)
	if got := src.layers[0].At(1, 1); got.R() != 0 {
		t.Fatalf("RestoreBefore should be idempotent across repeated ticks, got %v", got)
	}

	m.EndStroke()
	if _, ok := m.Undo(); !ok {
		t.Fatal("EndStroke after RestoreBefore should still commit a history record")
	}
}

func TestRestoreBeforeOnOtherLayerIsNoop(t *testing.T) {
	src := newFakeSource(2, 64, 64)
	m := NewManager(src)

	m.BeginStroke(0)
	m.NotifyDirty(64, 64, pixel.Rect{X: 0, Y: 0, W: 4, H: 4})
	src.layers[1].Set(1, 1, pixel.Pack(255, 55, 0, 0))

	m.RestoreBefore(1)
	if got := src.layers[1].At(1, 1); got.R() != 55 {
		t.Fatalf("RestoreBefore for an uncaptured layer should not touch it, got %v", got)
	}
}

func TestRetargetRewritesLayerIndices(t *testing.T) {
	src := newFakeSource(2, 64, 64)
	m := NewManager(src)
	m.BeginStroke(0)
	m.NotifyDirty(64, 64, pixel.Rect{X: 0, Y: 0, W: 4, H: 4})
	m.EndStroke()

	m.Retarget([]int{1, 0})

	m.mu.Lock()
	layer := m.history[0].Tiles[0].Layer
	m.mu.Unlock()
	if layer != 1 {
		t.Fatalf("Retarget should remap layer 0 -> 1, got %d", layer)
	}
}
