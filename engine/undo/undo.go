// Package undo implements the tile-granular undo/redo manager (§4.5).
//
// Tiles are captured as CPU-resident pixel snapshots read directly from the
// canvas's working layer buffers (see engine/canvas) rather than round
// tripping through the GPU on every stroke: the brush/fill/filter kernels
// already operate on those buffers directly, so the canvas is the
// authoritative copy. The render thread mirrors whatever a committed or
// undone/redone record touches out to the GPU layer array afterward (see
// engine/core's syncDirtyToStore/syncRecordToStore), rather than this
// package depending on the GPU at all.
package undo

import (
	"sync"
	"time"

	"github.com/Carmen-Shannon/automation/tools/worker"
	"github.com/inkforge/paintcore/engine/pixel"
)

const (
	TileSize     = 256
	HistoryDepth = 50
)

// LayerSource is the narrow canvas dependency the manager needs: region
// read/write against one layer's working pixel buffer.
type LayerSource interface {
	ReadRegion(layer int, rect pixel.Rect) *pixel.Buffer
	WriteRegion(layer int, rect pixel.Rect, buf *pixel.Buffer)
}

// tileKey identifies one (layer, tile-x, tile-y) tuple.
type tileKey struct {
	Layer, TX, TY int
}

// Tile is one captured before/after snapshot for a single tile.
type Tile struct {
	Layer  int
	Rect   pixel.Rect
	Before *pixel.Buffer
	After  *pixel.Buffer
}

// Record groups every tile touched by one committed stroke.
type Record struct {
	Tiles []Tile
}

// Manager owns the undo/redo stacks and in-progress stroke capture state.
type Manager struct {
	src  LayerSource
	pool worker.DynamicWorkerPool

	mu          sync.Mutex
	history     []Record
	redo        []Record
	capturing   map[tileKey]*Tile
	strokeLayer int
}

// NewManager builds an undo manager backed by src, using a small worker pool
// (mirroring the teacher's per-frame CPU-prep pool in engine/scene) to
// parallelize per-tile capture.
func NewManager(src LayerSource) *Manager {
	return &Manager{
		src:  src,
		pool: worker.NewDynamicWorkerPool(4, 256, time.Second),
	}
}

func tileRect(tx, ty, canvasW, canvasH int) pixel.Rect {
	return pixel.Rect{X: tx * TileSize, Y: ty * TileSize, W: TileSize, H: TileSize}.Clip(canvasW, canvasH)
}

// BeginStroke starts capture for a new stroke on layer.
func (m *Manager) BeginStroke(layer int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.strokeLayer = layer
	m.capturing = make(map[tileKey]*Tile)
	m.redo = nil
}

// NotifyDirty captures the "before" snapshot for every tile intersecting
// dirty that hasn't already been captured this stroke.
func (m *Manager) NotifyDirty(canvasW, canvasH int, dirty pixel.Rect) {
	m.mu.Lock()
	if m.capturing == nil {
		m.mu.Unlock()
		return
	}
	layer := m.strokeLayer
	tx0, ty0 := dirty.X/TileSize, dirty.Y/TileSize
	tx1, ty1 := (dirty.X+dirty.W-1)/TileSize, (dirty.Y+dirty.H-1)/TileSize

	var toCapture []tileKey
	for ty := ty0; ty <= ty1; ty++ {
		for tx := tx0; tx <= tx1; tx++ {
			k := tileKey{layer, tx, ty}
			if _, ok := m.capturing[k]; ok {
				continue
			}
			m.capturing[k] = &Tile{Layer: layer, Rect: tileRect(tx, ty, canvasW, canvasH)}
			toCapture = append(toCapture, k)
		}
	}
	m.mu.Unlock()

	if len(toCapture) == 0 {
		return
	}

	var wg sync.WaitGroup
	for i, k := range toCapture {
		wg.Add(1)
		kk := k
		idx := i
		m.pool.SubmitTask(worker.Task{
			ID: idx,
			Do: func() (any, error) {
				defer wg.Done()
				m.mu.Lock()
				t := m.capturing[kk]
				m.mu.Unlock()
				if t.Rect.Empty() {
					return nil, nil
				}
				buf := m.src.ReadRegion(kk.Layer, t.Rect)
				m.mu.Lock()
				t.Before = buf
				m.mu.Unlock()
				return nil, nil
			},
		})
	}
	wg.Wait()
}

// RestoreBefore writes every in-progress tile's "before" snapshot back onto
// layer. The post-stroke animator calls this at the start of each tick so it
// repaints interpolated positions from a clean base instead of compositing
// on top of whatever the previous tick (or the raw, pre-smoothing stroke)
// already left on the canvas (§4.2).
func (m *Manager) RestoreBefore(layer int) {
	m.mu.Lock()
	tiles := make([]*Tile, 0, len(m.capturing))
	for k, t := range m.capturing {
		if k.Layer == layer && t.Before != nil {
			tiles = append(tiles, t)
		}
	}
	m.mu.Unlock()

	for _, t := range tiles {
		m.src.WriteRegion(t.Layer, t.Rect, t.Before)
	}
}

// EndStroke captures "after" snapshots for every touched tile and appends a
// new history record, evicting the oldest when HistoryDepth is exceeded.
func (m *Manager) EndStroke() {
	m.mu.Lock()
	capturing := m.capturing
	m.capturing = nil
	m.mu.Unlock()

	if len(capturing) == 0 {
		return
	}

	keys := make([]tileKey, 0, len(capturing))
	for k := range capturing {
		keys = append(keys, k)
	}

	var wg sync.WaitGroup
	for i, k := range keys {
		wg.Add(1)
		kk := k
		t := capturing[kk]
		idx := i
		m.pool.SubmitTask(worker.Task{
			ID: idx,
			Do: func() (any, error) {
				defer wg.Done()
				if t.Rect.Empty() {
					return nil, nil
				}
				t.After = m.src.ReadRegion(kk.Layer, t.Rect)
				return nil, nil
			},
		})
	}
	wg.Wait()

	rec := Record{}
	for _, k := range keys {
		rec.Tiles = append(rec.Tiles, *capturing[k])
	}

	m.mu.Lock()
	m.history = append(m.history, rec)
	if len(m.history) > HistoryDepth {
		m.history = m.history[len(m.history)-HistoryDepth:]
	}
	m.mu.Unlock()
}

// CancelStroke discards the in-progress capture without recording it.
func (m *Manager) CancelStroke() {
	m.mu.Lock()
	m.capturing = nil
	m.mu.Unlock()
}

// Undo pops the top history record and writes each tile's "before" snapshot
// back to its layer, pushing the record onto the redo stack.
func (m *Manager) Undo() (Record, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.history) == 0 {
		return Record{}, false
	}
	rec := m.history[len(m.history)-1]
	m.history = m.history[:len(m.history)-1]
	m.redo = append(m.redo, rec)

	for _, t := range rec.Tiles {
		if t.Before != nil {
			m.src.WriteRegion(t.Layer, t.Rect, t.Before)
		}
	}
	return rec, true
}

// Redo pops the top redo record and writes each tile's "after" snapshot.
func (m *Manager) Redo() (Record, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.redo) == 0 {
		return Record{}, false
	}
	rec := m.redo[len(m.redo)-1]
	m.redo = m.redo[:len(m.redo)-1]
	m.history = append(m.history, rec)

	for _, t := range rec.Tiles {
		if t.After != nil {
			m.src.WriteRegion(t.Layer, t.Rect, t.After)
		}
	}
	return rec, true
}

// Retarget rewrites every stored tile's layer index through perm (old index
// -> new index), used when layers are reordered (§4.5 invariant, §8 SC-5).
func (m *Manager) Retarget(perm []int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	apply := func(recs []Record) {
		for i := range recs {
			for j := range recs[i].Tiles {
				old := recs[i].Tiles[j].Layer
				if old >= 0 && old < len(perm) {
					recs[i].Tiles[j].Layer = perm[old]
				}
			}
		}
	}
	apply(m.history)
	apply(m.redo)
}

// Clear wipes all history, for canvas reset/resize (§4.5 invariant).
func (m *Manager) Clear() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.history = nil
	m.redo = nil
	m.capturing = nil
}
