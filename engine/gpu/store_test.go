package gpu

import (
	"testing"

	"github.com/cogentcore/webgpu/wgpu"
	"github.com/inkforge/paintcore/engine/pixel"
)

// fakeRender is an in-memory stand-in for the render interface, keyed by a
// fake *wgpu.Texture pointer standing in for a real GPU allocation.
type fakeRender struct {
	layers map[*wgpu.Texture]map[uint32][]byte // texture -> layer -> RGBA8 bytes
	w, h   uint32
}

func newFakeRender() *fakeRender {
	return &fakeRender{layers: make(map[*wgpu.Texture]map[uint32][]byte)}
}

func (f *fakeRender) CreateTexture2DArray(width, height, layers uint32, usage wgpu.TextureUsage) (*wgpu.Texture, error) {
	tex := new(wgpu.Texture)
	f.w, f.h = width, height
	m := make(map[uint32][]byte, layers)
	for i := uint32(0); i < layers; i++ {
		m[i] = make([]byte, width*height*4)
	}
	f.layers[tex] = m
	return tex, nil
}

func (f *fakeRender) CopyTextureRegion(src, dst *wgpu.Texture, srcLayer, dstLayer, srcX, srcY, dstX, dstY, width, height uint32) error {
	copy(f.layers[dst][dstLayer], f.layers[src][srcLayer])
	return nil
}

func (f *fakeRender) WriteTextureRegion(tex *wgpu.Texture, layer, x, y, width, height uint32, data []byte) {
	copy(f.layers[tex][layer], data)
}

func (f *fakeRender) ReadTextureRegion(tex *wgpu.Texture, layer, x, y, width, height uint32) ([]byte, error) {
	return f.layers[tex][layer], nil
}

func TestNewStoreMinimumCapacityOne(t *testing.T) {
	r := newFakeRender()
	s, err := NewStore(r, 4, 4, 0)
	if err != nil {
		t.Fatalf("NewStore failed: %v", err)
	}
	if s.Capacity() != 1 {
		t.Fatalf("initialCapacity<1 should clamp to 1, got %d", s.Capacity())
	}
}

func TestWriteReadRegionRoundTrip(t *testing.T) {
	r := newFakeRender()
	s, err := NewStore(r, 4, 4, 1)
	if err != nil {
		t.Fatalf("NewStore failed: %v", err)
	}
	buf := pixel.NewBuffer(4, 4)
	buf.Set(1, 1, pixel.Pack(255, 10, 20, 30))
	s.WriteLayer(0, buf)

	got, err := s.ReadLayer(0)
	if err != nil {
		t.Fatalf("ReadLayer failed: %v", err)
	}
	if got.At(1, 1) != buf.At(1, 1) {
		t.Fatalf("round trip mismatch: got %v want %v", got.At(1, 1), buf.At(1, 1))
	}
}

func TestEnsureCapacityDoublesAndPreservesData(t *testing.T) {
	r := newFakeRender()
	s, err := NewStore(r, 2, 2, 1)
	if err != nil {
		t.Fatalf("NewStore failed: %v", err)
	}
	buf := pixel.NewBuffer(2, 2)
	buf.Set(0, 0, pixel.Pack(255, 99, 0, 0))
	s.WriteLayer(0, buf)

	if err := s.EnsureCapacity(3); err != nil {
		t.Fatalf("EnsureCapacity failed: %v", err)
	}
	if s.Capacity() != 4 {
		t.Fatalf("capacity should double from 1 to 4 to cover a request of 3, got %d", s.Capacity())
	}

	got, err := s.ReadLayer(0)
	if err != nil {
		t.Fatalf("ReadLayer failed: %v", err)
	}
	if got.At(0, 0).R() != 99 {
		t.Fatalf("growing the array should preserve existing layer data, got %v", got.At(0, 0))
	}
}

func TestEnsureCapacityNoopWhenAlreadySufficient(t *testing.T) {
	r := newFakeRender()
	s, err := NewStore(r, 2, 2, 4)
	if err != nil {
		t.Fatalf("NewStore failed: %v", err)
	}
	if err := s.EnsureCapacity(2); err != nil {
		t.Fatalf("EnsureCapacity failed: %v", err)
	}
	if s.Capacity() != 4 {
		t.Fatalf("capacity should stay unchanged when already sufficient, got %d", s.Capacity())
	}
}
