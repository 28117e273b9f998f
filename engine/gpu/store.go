// Package gpu owns the layer texture array and the conversions between its
// GPU-resident RGBA8 storage and the engine's canonical unpremultiplied ARGB
// pixel.Buffer representation (§3 "Layer array", §6 pixel formats).
package gpu

import (
	"fmt"

	"github.com/cogentcore/webgpu/wgpu"
	"github.com/inkforge/paintcore/engine/pixel"
	"github.com/inkforge/paintcore/engine/renderer"
)

// Store manages one canvas-sized 2D texture array backing every layer.
type Store struct {
	r render

	width, height uint32
	capacity      uint32
	texture       *wgpu.Texture
}

// render is the subset of renderer.Renderer the store depends on, narrowed
// for testability.
type render interface {
	CreateTexture2DArray(width, height, layers uint32, usage wgpu.TextureUsage) (*wgpu.Texture, error)
	CopyTextureRegion(src, dst *wgpu.Texture, srcLayer, dstLayer uint32, srcX, srcY, dstX, dstY, width, height uint32) error
	WriteTextureRegion(tex *wgpu.Texture, layer, x, y, width, height uint32, data []byte)
	ReadTextureRegion(tex *wgpu.Texture, layer, x, y, width, height uint32) ([]byte, error)
}

var _ render = renderer.Renderer(nil)

const textureUsage = wgpu.TextureUsageTextureBinding | wgpu.TextureUsageCopySrc | wgpu.TextureUsageCopyDst | wgpu.TextureUsageStorageBinding

// NewStore allocates a texture array sized for width x height x capacity. r
// only needs to satisfy the narrow render interface above, not the full
// renderer.Renderer surface — any concrete renderer.Renderer naturally does.
func NewStore(r render, width, height, initialCapacity uint32) (*Store, error) {
	if initialCapacity < 1 {
		initialCapacity = 1
	}
	tex, err := r.CreateTexture2DArray(width, height, initialCapacity, textureUsage)
	if err != nil {
		return nil, fmt.Errorf("gpu: allocate layer array: %w", err)
	}
	return &Store{r: r, width: width, height: height, capacity: initialCapacity, texture: tex}, nil
}

// Capacity returns the current number of layer slices the array can hold.
func (s *Store) Capacity() uint32 { return s.capacity }

// EnsureCapacity grows the texture array to at least n layers, preserving
// existing slices, doubling capacity each time it falls short (§3 invariant:
// "Layer array capacity >= active layer count at all times").
func (s *Store) EnsureCapacity(n uint32) error {
	if n <= s.capacity {
		return nil
	}
	newCap := s.capacity
	for newCap < n {
		newCap *= 2
	}

	newTex, err := s.r.CreateTexture2DArray(s.width, s.height, newCap, textureUsage)
	if err != nil {
		return fmt.Errorf("gpu: grow layer array to %d: %w", newCap, err)
	}
	for layer := uint32(0); layer < s.capacity; layer++ {
		if err := s.r.CopyTextureRegion(s.texture, newTex, layer, layer, 0, 0, 0, 0, s.width, s.height); err != nil {
			return fmt.Errorf("gpu: copy layer %d during grow: %w", layer, err)
		}
	}
	s.texture = newTex
	s.capacity = newCap
	return nil
}

// Texture returns the backing texture for use by the compositor's bind groups.
func (s *Store) Texture() *wgpu.Texture { return s.texture }

// Width and Height report the canvas dimensions shared by every layer.
func (s *Store) Width() uint32  { return s.width }
func (s *Store) Height() uint32 { return s.height }

// ReadLayer reads the full contents of one layer slice into an ARGB buffer.
func (s *Store) ReadLayer(layer uint32) (*pixel.Buffer, error) {
	return s.ReadRegion(layer, 0, 0, s.width, s.height)
}

// ReadRegion reads a rectangular sub-region of one layer slice.
func (s *Store) ReadRegion(layer uint32, x, y, w, h uint32) (*pixel.Buffer, error) {
	raw, err := s.r.ReadTextureRegion(s.texture, layer, x, y, w, h)
	if err != nil {
		return nil, fmt.Errorf("gpu: read layer %d region: %w", layer, err)
	}
	buf := pixel.NewBuffer(int(w), int(h))
	for i := 0; i < int(w*h); i++ {
		off := i * 4
		r, g, b, a := raw[off], raw[off+1], raw[off+2], raw[off+3]
		buf.Pix[i] = pixel.Pack(a, r, g, b)
	}
	return buf, nil
}

// WriteLayer uploads a full canvas-sized ARGB buffer into one layer slice.
func (s *Store) WriteLayer(layer uint32, buf *pixel.Buffer) {
	s.WriteRegion(layer, 0, 0, buf)
}

// WriteRegion uploads buf into layer at (x,y), sized by buf's own dimensions.
func (s *Store) WriteRegion(layer uint32, x, y uint32, buf *pixel.Buffer) {
	raw := make([]byte, len(buf.Pix)*4)
	for i, px := range buf.Pix {
		off := i * 4
		raw[off] = px.R()
		raw[off+1] = px.G()
		raw[off+2] = px.B()
		raw[off+3] = px.A()
	}
	s.r.WriteTextureRegion(s.texture, layer, x, y, uint32(buf.Width), uint32(buf.Height), raw)
}
