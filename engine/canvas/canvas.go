// Package canvas tracks per-layer metadata and the layer array backing a
// single engine instance (§3 "Layer array", "Layer metadata").
package canvas

import (
	"github.com/inkforge/paintcore/engine/gpu"
	"github.com/inkforge/paintcore/engine/pixel"
)

// BlendMode is the compositor blend-mode index (§4.6, §6).
type BlendMode int

const (
	BlendNormal BlendMode = iota
	BlendMultiply
	BlendScreen
	BlendOverlay
	BlendDarken
	BlendLighten
	BlendColorDodge
	BlendColorBurn
	BlendHardLight
	BlendSoftLight
	BlendDifference
	BlendExclusion
)

// Layer holds one slice's compositing metadata. UniformColor caches the
// entire slice's color when it provably holds one value; any partial write
// must call InvalidateUniform.
type Layer struct {
	Opacity      float32
	Visible      bool
	ClippingMask bool
	BlendMode    BlendMode
	UniformColor *pixel.ARGB
}

func defaultLayer() Layer {
	return Layer{Opacity: 1, Visible: true, BlendMode: BlendNormal}
}

func (l *Layer) InvalidateUniform() { l.UniformColor = nil }

// Canvas owns the working CPU-resident layer pixels plus per-layer metadata,
// active layer index, and view flags. Layer content is authored here in
// pixel.Buffer form, since the brush/fill/filter "kernels" are plain Go
// functions over that representation (see engine/brush, engine/fill,
// engine/filter package docs); the render thread mirrors each layer's
// dirty regions out to Store's GPU-resident texture-array slice afterward
// (one slice per layer index, growing with EnsureLayer), so Store always
// holds a GPU-visible copy of this package's CPU buffers rather than the
// other way around.
type Canvas struct {
	Store  *gpu.Store
	Layers []Layer
	Pixels []*pixel.Buffer

	Width, Height uint32
	ActiveLayer   int
	ViewFlags     uint32
}

// New creates a canvas with a single transparent layer.
func New(store *gpu.Store, width, height uint32) *Canvas {
	return &Canvas{
		Store:  store,
		Layers: []Layer{defaultLayer()},
		Pixels: []*pixel.Buffer{pixel.NewBuffer(int(width), int(height))},
		Width:  width,
		Height: height,
	}
}

// EnsureLayer grows Layers (and the backing texture array) so index is
// valid, auto-creating missing layers with default metadata, matching the
// render thread's auto-create-missing-layers policy (§4.1).
func (c *Canvas) EnsureLayer(index int) error {
	if index < 0 {
		return nil
	}
	if index < len(c.Layers) {
		return nil
	}
	if c.Store != nil {
		if err := c.Store.EnsureCapacity(uint32(index + 1)); err != nil {
			return err
		}
	}
	for len(c.Layers) <= index {
		c.Layers = append(c.Layers, defaultLayer())
		c.Pixels = append(c.Pixels, pixel.NewBuffer(int(c.Width), int(c.Height)))
	}
	return nil
}

// ReadRegion returns a copy of rect from layer's pixel buffer, implementing
// undo.LayerSource.
func (c *Canvas) ReadRegion(layer int, rect pixel.Rect) *pixel.Buffer {
	rect = rect.Clip(int(c.Width), int(c.Height))
	out := pixel.NewBuffer(rect.W, rect.H)
	if layer < 0 || layer >= len(c.Pixels) {
		return out
	}
	src := c.Pixels[layer]
	for y := 0; y < rect.H; y++ {
		for x := 0; x < rect.W; x++ {
			out.Set(x, y, src.At(rect.X+x, rect.Y+y))
		}
	}
	return out
}

// WriteRegion writes buf back into layer's pixel buffer at rect's origin,
// implementing undo.LayerSource.
func (c *Canvas) WriteRegion(layer int, rect pixel.Rect, buf *pixel.Buffer) {
	if layer < 0 || layer >= len(c.Pixels) {
		return
	}
	dst := c.Pixels[layer]
	for y := 0; y < buf.Height; y++ {
		for x := 0; x < buf.Width; x++ {
			dst.Set(rect.X+x, rect.Y+y, buf.At(x, y))
		}
	}
	c.Layers[layer].InvalidateUniform()
}

// Valid reports whether index addresses an existing layer, for query-shaped
// commands that must fail rather than auto-create (§4.1).
func (c *Canvas) Valid(index int) bool {
	return index >= 0 && index < len(c.Layers)
}

// Reorder moves the layer at from to position to, shifting the others, and
// returns the permutation applied (old index -> new index) so callers such
// as the Undo Manager can retarget stored layer references (§8 SC-5).
func (c *Canvas) Reorder(from, to int) []int {
	n := len(c.Layers)
	perm := make([]int, n)
	for i := range perm {
		perm[i] = i
	}
	if from < 0 || from >= n || to < 0 || to >= n || from == to {
		return perm
	}

	moved := c.Layers[from]
	movedPix := c.Pixels[from]
	if from < to {
		copy(c.Layers[from:to], c.Layers[from+1:to+1])
		copy(c.Pixels[from:to], c.Pixels[from+1:to+1])
	} else {
		copy(c.Layers[to+1:from+1], c.Layers[to:from])
		copy(c.Pixels[to+1:from+1], c.Pixels[to:from])
	}
	c.Layers[to] = moved
	c.Pixels[to] = movedPix

	perm[from] = to
	if from < to {
		for i := from + 1; i <= to; i++ {
			perm[i] = i - 1
		}
	} else {
		for i := to; i < from; i++ {
			perm[i] = i + 1
		}
	}

	if c.ActiveLayer < len(perm) {
		c.ActiveLayer = perm[c.ActiveLayer]
	}
	return perm
}

// Resize reallocates the store for new dimensions and resets every layer to
// default metadata; layer 0 is filled with bg by the caller (render thread),
// layers 1..n-1 start transparent (§8 property 3).
func (c *Canvas) Resize(store *gpu.Store, width, height uint32, layerCount int) {
	c.Store = store
	c.Width, c.Height = width, height
	c.Layers = make([]Layer, layerCount)
	c.Pixels = make([]*pixel.Buffer, layerCount)
	for i := range c.Layers {
		c.Layers[i] = defaultLayer()
		c.Pixels[i] = pixel.NewBuffer(int(width), int(height))
	}
	c.ActiveLayer = 0
}
