// Package api is the engine's external operation surface (§6). Handles are
// opaque uint64s resolved through engine/registry; every operation below is a
// plain Go function rather than a cgo //export entry point, since the FFI
// bridge to a native UI host is an out-of-scope external collaborator (§1).
package api

import (
	"github.com/inkforge/paintcore/engine/brush"
	"github.com/inkforge/paintcore/engine/command"
	"github.com/inkforge/paintcore/engine/core"
	"github.com/inkforge/paintcore/engine/logging"
	"github.com/inkforge/paintcore/engine/registry"
)

// Create allocates a new engine instance for a width x height canvas and
// returns its handle, or 0 if width/height are not both positive.
func Create(width, height uint32) uint64 {
	if width == 0 || height == 0 {
		return 0
	}
	eng, err := core.New(width, height)
	if err != nil {
		return 0
	}
	return registry.Register(eng)
}

// Dispose stops and unregisters handle. No-op if already invalid.
func Dispose(handle uint64) {
	registry.Remove(handle)
}

// IsValid reports whether handle currently resolves to a live engine.
func IsValid(handle uint64) bool {
	return registry.IsValid(handle)
}

func resolve(handle uint64) (*core.Engine, bool) {
	e, ok := registry.Get(handle)
	if !ok {
		return nil, false
	}
	eng, ok := e.(*core.Engine)
	return eng, ok
}

// sendSync pushes cmd with a fresh one-shot reply channel and blocks for the
// render thread's response.
func sendSync(eng *core.Engine, cmd command.Command) any {
	reply := make(chan any, 1)
	cmd.Reply = reply
	eng.PushCommand(cmd)
	return <-reply
}

// AttachPresentTexture attaches an OS-native render target the engine will
// present composited frames into. texPtr/bytesPerRow are carried through for
// a native host's own texture-import step; this Go-native engine tracks only
// width/height since the opaque native import itself is out of scope (§1).
func AttachPresentTexture(handle uint64, texPtr uintptr, width, height, bytesPerRow uint32) {
	eng, ok := resolve(handle)
	if !ok {
		return
	}
	eng.PushCommand(command.Command{
		Kind: command.KindAttachPresentTarget, Width: width, Height: height,
		TexturePtr: texPtr, BytesPerRow: bytesPerRow,
	})
}

// CreatePresentDXGISurface allocates the engine's own present target sized
// width x height and returns a handle standing in for the shared OS texture
// handle a native Windows host would import. On this headless backend the
// "shared handle" is simply the engine handle itself, since no DXGI surface
// is ever actually allocated outside of WGPU's own headless texture.
func CreatePresentDXGISurface(handle uint64, width, height uint32) uint64 {
	eng, ok := resolve(handle)
	if !ok {
		return 0
	}
	eng.PushCommand(command.Command{Kind: command.KindAttachPresentTarget, Width: width, Height: height})
	return handle
}

// PollFrameReady swaps the ready atomic to false and returns its prior value.
func PollFrameReady(handle uint64) bool {
	eng, ok := resolve(handle)
	if !ok {
		return false
	}
	return eng.PollFrameReady()
}

// PushPoints appends input samples to the engine's input queue.
func PushPoints(handle uint64, points []command.Sample) {
	eng, ok := resolve(handle)
	if !ok {
		return
	}
	eng.PushSamples(points)
}

// GetInputQueueLen reports how many pushed samples have not yet been drained.
func GetInputQueueLen(handle uint64) uint64 {
	eng, ok := resolve(handle)
	if !ok {
		return 0
	}
	return eng.InputQueueLen()
}

func SetActiveLayer(handle uint64, layer int) {
	push(handle, command.Command{Kind: command.KindSetActiveLayer, Layer: layer})
}

func SetLayerOpacity(handle uint64, layer int, opacity float32) {
	push(handle, command.Command{Kind: command.KindSetLayerOpacity, Layer: layer, F32: opacity})
}

func SetLayerVisible(handle uint64, layer int, visible bool) {
	push(handle, command.Command{Kind: command.KindSetLayerVisible, Layer: layer, Bool: visible})
}

func SetLayerClippingMask(handle uint64, layer int, enabled bool) {
	push(handle, command.Command{Kind: command.KindSetLayerClippingMask, Layer: layer, Bool: enabled})
}

func SetLayerBlendMode(handle uint64, layer, mode int) {
	push(handle, command.Command{Kind: command.KindSetLayerBlendMode, Layer: layer, Blend: mode})
}

func ReorderLayer(handle uint64, from, to int) {
	push(handle, command.Command{Kind: command.KindReorderLayer, FromLayer: from, ToLayer: to})
}

func SetViewFlags(handle uint64, flags uint32) {
	push(handle, command.Command{Kind: command.KindSetViewFlags, Flags: command.ViewFlag(flags)})
}

// SetBrush installs settings as the active brush configuration, clamping AA
// to 0..9 and every normalized field via Settings.Sanitize.
func SetBrush(handle uint64, settings brush.Settings) {
	s := settings
	push(handle, command.Command{Kind: command.KindSetBrush, Brush: &s})
}

func SetBrushMask(handle uint64, mask []byte) {
	push(handle, command.Command{Kind: command.KindSetBrushMask, Mask: mask})
}

func ClearBrushMask(handle uint64) {
	push(handle, command.Command{Kind: command.KindClearBrushMask})
}

func SprayBegin(handle uint64, layer int) {
	push(handle, command.Command{Kind: command.KindSprayBegin, Layer: layer})
}

// SprayDraw stamps points (each carrying its own x, y, radius, alpha) with
// color/shape/erase/aa/softness overrides for this dispatch, optionally
// clamping overlapping coverage to at most opaque when accumulate is true.
func SprayDraw(handle uint64, points []command.SprayPoint, color uint32, shape brush.Shape, erase bool, aa int, softness float32, accumulate bool) {
	push(handle, command.Command{
		Kind: command.KindSprayDraw, SprayPoints: points, Color: color, SprayShape: shape,
		Bool: erase, AA: aa, Softness: softness, Accumulate: accumulate,
	})
}

func SprayEnd(handle uint64) {
	push(handle, command.Command{Kind: command.KindSprayEnd})
}

func ApplyFilter(handle uint64, layer int, ftype command.FilterType, p0, p1, p2, p3 float32) bool {
	return callBool(handle, command.Command{
		Kind: command.KindApplyFilter, Layer: layer, FilterType: ftype,
		Params: [4]float32{p0, p1, p2, p3},
	})
}

func ApplyAntialias(handle uint64, layer int, level int) bool {
	return callBool(handle, command.Command{
		Kind: command.KindApplyAntialias, Layer: layer, Params: [4]float32{float32(level)},
	})
}

func BucketFill(handle uint64, layer, x, y int, color uint32, contiguous, sampleAll bool, tol, gap, aa int, swallow []uint32, selection []byte) bool {
	return callBool(handle, command.Command{
		Kind: command.KindBucketFill, Layer: layer, X: x, Y: y, Color: color,
		Contiguous: contiguous, SampleAll: sampleAll, Tolerance: tol, Gap: gap, AA: aa,
		Swallow: swallow, Mask: selection,
	})
}

// MagicWandMask returns a canvas-sized selection mask (one byte per pixel) or
// nil if the layer handle is invalid.
func MagicWandMask(handle uint64, layer, x, y int, sampleAll bool, tol int, selection []byte) []byte {
	eng, ok := resolve(handle)
	if !ok {
		return nil
	}
	out := sendSync(eng, command.Command{
		Kind: command.KindMagicWandMask, Layer: layer, X: x, Y: y,
		SampleAll: sampleAll, Tolerance: tol, Mask: selection,
	})
	mask, _ := out.([]byte)
	return mask
}

// ReadLayer returns layer's full pixel buffer as packed ARGB32, or nil.
func ReadLayer(handle uint64, layer int) []uint32 {
	eng, ok := resolve(handle)
	if !ok {
		return nil
	}
	out := sendSync(eng, command.Command{Kind: command.KindReadLayer, Layer: layer})
	px, _ := out.([]uint32)
	return px
}

// ReadLayerPreview returns a w x h RGBA8 downsampled thumbnail of layer.
func ReadLayerPreview(handle uint64, layer int, w, h uint32) []byte {
	eng, ok := resolve(handle)
	if !ok {
		return nil
	}
	out := sendSync(eng, command.Command{Kind: command.KindReadLayerPreview, Layer: layer, Width: w, Height: h})
	px, _ := out.([]byte)
	return px
}

// ReadPresent returns the composited canvas as BGRA8.
func ReadPresent(handle uint64) []byte {
	eng, ok := resolve(handle)
	if !ok {
		return nil
	}
	out := sendSync(eng, command.Command{Kind: command.KindReadPresent})
	px, _ := out.([]byte)
	return px
}

func WriteLayer(handle uint64, layer int, pixels []uint32, recordUndo bool) bool {
	return callBool(handle, command.Command{Kind: command.KindWriteLayer, Layer: layer, Pixels: pixels, Bool: recordUndo})
}

func TranslateLayer(handle uint64, layer int, dx, dy float32) bool {
	return callBool(handle, command.Command{Kind: command.KindTranslateLayer, Layer: layer, Params: [4]float32{dx, dy}})
}

func ApplyLayerTransform(handle uint64, layer int, matrix [16]float32, bilinear bool) bool {
	return callBool(handle, command.Command{Kind: command.KindApplyLayerTransform, Layer: layer, Matrix: matrix, Bilinear: bilinear})
}

func SetLayerTransformPreview(handle uint64, layer int, matrix [16]float32, enabled, bilinear bool) {
	push(handle, command.Command{
		Kind: command.KindSetLayerTransformPreview, Layer: layer, Matrix: matrix, Bool: enabled, Bilinear: bilinear,
	})
}

// GetLayerBounds returns the opaque-pixel bounding box (left, top, right,
// bottom) and whether the layer has any opaque pixels at all.
func GetLayerBounds(handle uint64, layer int) (left, top, right, bottom int, ok bool) {
	eng, resolved := resolve(handle)
	if !resolved {
		return 0, 0, 0, 0, false
	}
	out := sendSync(eng, command.Command{Kind: command.KindGetLayerBounds, Layer: layer})
	bounds, _ := out.([5]int)
	return bounds[0], bounds[1], bounds[2], bounds[3], bounds[4] != 0
}

func SetSelectionMask(handle uint64, mask []byte) {
	push(handle, command.Command{Kind: command.KindSetSelectionMask, Mask: mask})
}

func Undo(handle uint64) bool {
	return callBool(handle, command.Command{Kind: command.KindUndo})
}

func Redo(handle uint64) bool {
	return callBool(handle, command.Command{Kind: command.KindRedo})
}

func ResetCanvas(handle uint64, bgARGB uint32) {
	push(handle, command.Command{Kind: command.KindResetCanvas, Background: bgARGB})
}

// ResetCanvasWithLayers resets the canvas to n transparent layers (layer 0
// filled with bg) without changing its dimensions.
func ResetCanvasWithLayers(handle uint64, n int, bgARGB uint32) {
	push(handle, command.Command{Kind: command.KindResetCanvas, LayerCount: n, Background: bgARGB})
}

func ResizeCanvas(handle uint64, width, height uint32, layerCount int, bgARGB uint32) bool {
	return callBool(handle, command.Command{
		Kind: command.KindResizeCanvas, Width: width, Height: height, LayerCount: layerCount, Background: bgARGB,
	})
}

// SetLogLevel adjusts the minimum severity written to the engine's log ring.
func SetLogLevel(level uint32) {
	logging.SetLevel(logging.Level(level))
}

// LogPop removes and returns the oldest buffered log line, if any.
func LogPop() (string, bool) {
	return logging.Pop()
}

// LogFree is a no-op: Go strings are garbage collected, so there is nothing
// for a caller to explicitly free. Kept for symmetry with §6's log_free.
func LogFree(string) {}

func push(handle uint64, cmd command.Command) {
	eng, ok := resolve(handle)
	if !ok {
		return
	}
	eng.PushCommand(cmd)
}

func callBool(handle uint64, cmd command.Command) bool {
	eng, ok := resolve(handle)
	if !ok {
		return false
	}
	out := sendSync(eng, cmd)
	b, _ := out.(bool)
	return b
}
