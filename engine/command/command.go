// Package command defines the message types exchanged between an external
// caller and the render thread. Every mutation and query into a running
// engine is expressed as one of these values and sent over the engine's
// command channel; anything that needs a result carries its own one-shot
// reply channel, mirroring how the render thread stays the sole owner of
// engine state (see engine/core).
package command

import (
	"github.com/inkforge/paintcore/engine/brush"
)

// Flags bitmask carried on each pointer Sample.
type Flags uint8

const (
	FlagDown Flags = 1 << iota
	FlagMove
	FlagUp
)

// Sample is one pointer-input observation pushed into the engine's input queue.
type Sample struct {
	X, Y     float32
	Pressure float32
	Flags    Flags
}

// SprayPoint is one explicit stamp position carried by a spray_draw command,
// matching §6's spray_draw(points[x,y,r,a], ...) signature.
type SprayPoint struct {
	X, Y, Radius, Alpha float32
}

// ViewFlag bits accepted by SetViewFlags.
type ViewFlag uint32

const (
	ViewFlagMirror    ViewFlag = 1
	ViewFlagGrayscale ViewFlag = 2
)

// Kind identifies the variant carried by a Command.
type Kind int

const (
	KindAttachPresentTarget Kind = iota
	KindDetachPresentTarget
	KindResetCanvas
	KindResizeCanvas
	KindSetActiveLayer
	KindSetLayerOpacity
	KindSetLayerVisible
	KindSetLayerClippingMask
	KindSetLayerBlendMode
	KindReorderLayer
	KindSetViewFlags
	KindSetBrush
	KindSetBrushMask
	KindClearBrushMask
	KindSprayBegin
	KindSprayDraw
	KindSprayEnd
	KindApplyFilter
	KindApplyAntialias
	KindBucketFill
	KindMagicWandMask
	KindReadLayer
	KindReadLayerPreview
	KindReadPresent
	KindWriteLayer
	KindTranslateLayer
	KindApplyLayerTransform
	KindSetLayerTransformPreview
	KindGetLayerBounds
	KindSetSelectionMask
	KindUndo
	KindRedo
	KindStop
)

// Reply is the one-shot channel a query-shaped Command uses to return a
// result. Commands that don't need one leave it nil; the render thread must
// guard every send with a non-nil check since a caller may drop the receiver.
type Reply[T any] chan T

// BoolResult is the common shape for commands that only report success.
type BoolResult struct {
	OK  bool
	Err error
}

// Command is the envelope sent over the engine's command channel. Only the
// typed fields that Kind's operation reads are meaningful; this keeps a
// single channel type while avoiding an interface-per-command allocation on
// the hot path.
type Command struct {
	Kind Kind

	// Canvas / resize
	Width, Height uint32
	LayerCount    int
	Background    uint32

	// Layer addressing
	Layer     int
	FromLayer int
	ToLayer   int

	// Scalars
	F32   float32
	Bool  bool
	Blend int
	Flags ViewFlag

	// Brush
	Brush *brush.Settings
	Mask  []byte // custom brush mask bytes, or selection mask bytes

	// Spray session (spray_draw carries its own explicit point list rather
	// than going through the stroke resampler)
	SprayPoints []SprayPoint
	SprayShape  brush.Shape
	Accumulate  bool
	Softness    float32

	// Filter / fill
	FilterType FilterType
	Params     [4]float32
	X, Y       int
	Color      uint32
	Contiguous bool
	SampleAll  bool
	Tolerance  int
	Gap        int
	AA         int
	Swallow    []uint32

	// Pixel payloads
	Pixels []uint32

	// Transform
	Matrix    [16]float32
	Bilinear  bool
	PreviewOn bool

	// Present target attach
	TexturePtr   uintptr
	BytesPerRow  uint32
	DXGIRequest  bool

	Reply chan any
}

// FilterType enumerates the Filter Pipeline's entry points (§4.8).
type FilterType int

const (
	FilterHueSatLightness FilterType = iota
	FilterBrightnessContrast
	FilterBlackWhite
	FilterBinarize
	FilterGaussianBlur
	FilterMorphology
	FilterLeakRemoval
	FilterLineNarrowFillExpand
	FilterScanPaper
	FilterInvert
)

// SendReply writes v to cmd.Reply if a receiver is still listening. Safe to
// call even when Reply is nil (dropped query).
func SendReply(cmd Command, v any) {
	if cmd.Reply == nil {
		return
	}
	select {
	case cmd.Reply <- v:
	default:
	}
}
