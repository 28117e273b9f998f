// Package core implements the render thread: the single-owner command and
// input-sample dispatcher described in §4.1, wiring together every other
// engine/* package into one running instance.
package core

import (
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/cogentcore/webgpu/wgpu"
	"github.com/inkforge/paintcore/engine/brush"
	"github.com/inkforge/paintcore/engine/canvas"
	"github.com/inkforge/paintcore/engine/command"
	"github.com/inkforge/paintcore/engine/compositor"
	"github.com/inkforge/paintcore/engine/filter"
	"github.com/inkforge/paintcore/engine/fill"
	"github.com/inkforge/paintcore/engine/gpu"
	"github.com/inkforge/paintcore/engine/logging"
	"github.com/inkforge/paintcore/engine/pixel"
	"github.com/inkforge/paintcore/engine/profiler"
	"github.com/inkforge/paintcore/engine/renderer"
	"github.com/inkforge/paintcore/engine/stroke"
	"github.com/inkforge/paintcore/engine/transform"
	"github.com/inkforge/paintcore/engine/undo"
)

const inputBatchWindow = 4 * time.Millisecond

// Option configures an Engine at construction time (§2A "Configuration").
type Option func(*config)

type config struct {
	forceSoftwareRenderer bool
	initialLayerCount     int
}

// WithForceSoftwareRenderer forces the headless WGPU adapter to the CPU
// fallback path, for CI workers with no GPU.
func WithForceSoftwareRenderer(force bool) Option {
	return func(c *config) { c.forceSoftwareRenderer = force }
}

// WithInitialLayerCount sets the layer count a freshly created engine starts with.
func WithInitialLayerCount(n int) Option {
	return func(c *config) {
		if n > 0 {
			c.initialLayerCount = n
		}
	}
}

// Engine is the render thread's state plus the channels a caller pushes
// commands and input samples through.
type Engine struct {
	r      renderer.Renderer
	canvas *canvas.Canvas
	undo   *undo.Manager

	brushSettings brush.Settings
	customMask    *brush.CustomMask
	selection     []uint8

	resampler  *stroke.Resampler
	animator   *stroke.Animator
	sprayLayer int

	presentTexture   *wgpu.Texture
	hasPresent       bool
	gate             compositor.Gate
	transformPreview *compositor.TransformPreview
	prof             *profiler.Profiler

	cmds  chan command.Command
	input chan command.Sample

	inputLen atomic.Int64
	stopCh   chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
}

// New constructs an engine for a width x height canvas and starts its render
// thread goroutine.
func New(width, height uint32, opts ...Option) (*Engine, error) {
	cfg := config{initialLayerCount: 1}
	for _, o := range opts {
		o(&cfg)
	}

	r := renderer.NewRenderer(renderer.BackendTypeWGPU, renderer.WithForceSoftwareRenderer(cfg.forceSoftwareRenderer))

	store, err := gpu.NewStore(r, width, height, uint32(cfg.initialLayerCount))
	if err != nil {
		return nil, fmt.Errorf("core: new engine: %w", err)
	}

	c := canvas.New(store, width, height)
	for i := 1; i < cfg.initialLayerCount; i++ {
		if err := c.EnsureLayer(i); err != nil {
			return nil, fmt.Errorf("core: new engine: %w", err)
		}
	}

	e := &Engine{
		r:             r,
		canvas:        c,
		undo:          undo.NewManager(c),
		brushSettings: brush.Default(),
		cmds:          make(chan command.Command, 256),
		input:         make(chan command.Sample, 4096),
		stopCh:        make(chan struct{}),
		prof:          profiler.NewProfiler(),
	}

	e.wg.Add(1)
	go e.loop()
	return e, nil
}

// PushCommand enqueues cmd for the render thread.
func (e *Engine) PushCommand(cmd command.Command) {
	select {
	case e.cmds <- cmd:
	case <-e.stopCh:
	}
}

// PushSamples enqueues input samples, incrementing the queue-length counter.
func (e *Engine) PushSamples(samples []command.Sample) {
	for _, s := range samples {
		select {
		case e.input <- s:
			e.inputLen.Add(1)
		case <-e.stopCh:
			return
		}
	}
}

// InputQueueLen reports how many pushed samples have not yet been drained.
func (e *Engine) InputQueueLen() uint64 {
	v := e.inputLen.Load()
	if v < 0 {
		return 0
	}
	return uint64(v)
}

// PollFrameReady swaps and returns the frame-ready flag.
func (e *Engine) PollFrameReady() bool { return e.gate.PollFrameReady() }

// Stop halts the render thread and releases its goroutine. Idempotent.
func (e *Engine) Stop() {
	e.stopOnce.Do(func() { close(e.stopCh) })
	e.wg.Wait()
}

func (e *Engine) loop() {
	defer e.wg.Done()

	for {
		select {
		case <-e.stopCh:
			return
		default:
		}

		if !e.hasPresent {
			select {
			case cmd := <-e.cmds:
				e.handle(cmd)
			case <-e.stopCh:
				return
			}
			continue
		}

		drained := e.drainCommands()

		mutated := false
		select {
		case s := <-e.input:
			e.inputLen.Add(-1)
			mutated = e.feedSample(s) || mutated
			mutated = e.drainInputBurst(inputBatchWindow) || mutated
		case <-time.After(inputBatchWindow):
		case <-e.stopCh:
			return
		}

		if e.animator != nil {
			mutated = e.tickAnimator() || mutated
		}

		if mutated || drained {
			now := time.Now()
			if e.gate.ShouldPresent(now) {
				e.present(now)
			}
		}

		e.r.Poll(false)
		e.prof.Tick()
	}
}

func (e *Engine) drainCommands() bool {
	any := false
	for {
		select {
		case cmd := <-e.cmds:
			e.handle(cmd)
			any = true
		default:
			return any
		}
	}
}

func (e *Engine) drainInputBurst(window time.Duration) bool {
	deadline := time.After(window)
	mutated := false
	for {
		select {
		case s := <-e.input:
			e.inputLen.Add(-1)
			mutated = e.feedSample(s) || mutated
		case <-deadline:
			return mutated
		default:
			return mutated
		}
	}
}

func (e *Engine) feedSample(s command.Sample) bool {
	if e.resampler == nil {
		e.settleAnimator()
		e.resampler = stroke.NewResampler(e.brushSettings.BaseRadius, e.brushSettings.PressureEnabled)
		e.undo.BeginStroke(e.canvas.ActiveLayer)
	}
	pts := e.resampler.Feed(s)
	if len(pts) > 0 {
		e.drawPoints(pts)
	}
	if s.Flags&command.FlagUp != 0 {
		e.finishStroke()
	}
	return len(pts) > 0
}

func (e *Engine) drawPoints(pts []brush.Point) {
	layer := e.canvas.ActiveLayer
	if err := e.canvas.EnsureLayer(layer); err != nil {
		logging.Logger().Warn().Err(err).Msg("ensure layer failed")
		return
	}
	dst := e.canvas.Pixels[layer]

	k := &brush.Kernel{Settings: e.brushSettings, Selection: e.selection, Custom: e.customMask}
	if e.brushSettings.Hollow.EraseOccluded {
		snap := pixel.NewBuffer(dst.Width, dst.Height)
		copy(snap.Pix, dst.Pix)
		k.BaselineSnap = snap
	}
	dirty := k.Rasterize(dst, pts)
	if dirty.Empty() {
		return
	}
	e.canvas.Layers[layer].InvalidateUniform()
	e.undo.NotifyDirty(int(e.canvas.Width), int(e.canvas.Height), dirty)
	e.syncDirtyToStore(layer, dirty)
}

// syncDirtyToStore mirrors a layer's just-painted region from the canvas's
// authoritative CPU buffer into the GPU layer array (engine/gpu.Store) that
// backs it, so Store always holds a GPU-visible copy of what engine/canvas
// holds on the CPU rather than sitting allocated and unwritten.
func (e *Engine) syncDirtyToStore(layer int, rect pixel.Rect) {
	if e.canvas.Store == nil || rect.Empty() {
		return
	}
	if layer < 0 || layer >= len(e.canvas.Pixels) {
		return
	}
	sub := e.canvas.ReadRegion(layer, rect)
	e.canvas.Store.WriteRegion(uint32(layer), uint32(rect.X), uint32(rect.Y), sub)
}

// syncRecordToStore mirrors every tile an undo/redo just wrote back to the
// canvas out to the GPU layer array, the same way a live stroke's dirty
// region is mirrored in syncDirtyToStore.
func (e *Engine) syncRecordToStore(rec undo.Record) {
	if e.canvas.Store == nil {
		return
	}
	for _, t := range rec.Tiles {
		e.syncDirtyToStore(t.Layer, t.Rect)
	}
}

func (e *Engine) finishStroke() {
	if e.resampler == nil {
		return
	}
	points := e.resampler.Finish()
	strength := e.brushSettings.StreamlineStrength
	e.resampler = nil

	if strength > 1e-4 && len(points) >= 3 {
		smoothed := stroke.Smooth(points, strength)
		dur := stroke.Duration(strength)
		e.animator = stroke.NewAnimator(e.canvas.ActiveLayer, points, smoothed, dur)
		// The undo capture for this stroke stays open: each animation tick
		// restores the pre-stroke tiles and repaints, so the committed
		// "after" snapshot must wait for the final frame (see tickAnimator).
		return
	}
	e.undo.EndStroke()
}

// tickAnimator advances the post-stroke animation by one render-thread tick.
// Every tick restores the stroke's captured "before" tiles and redraws the
// interpolated stamps from that clean base, so exactly one frame of ink is
// ever visible — the raw stroke while drawing, then each smoothed animation
// frame in turn — rather than accumulating on top of the prior frame (§4.2,
// §8 SC invariant). The stroke's undo record is only committed once the
// animation reaches its final frame.
func (e *Engine) tickAnimator() bool {
	if e.animator == nil {
		return false
	}
	layer := e.animator.Layer()
	pts := e.animator.Tick(inputBatchWindow)
	e.paintAnimatorFrame(layer, pts)
	if e.animator.Done() {
		e.animator = nil
		e.undo.EndStroke()
	}
	return true
}

func (e *Engine) paintAnimatorFrame(layer int, pts []brush.Point) {
	if layer >= len(e.canvas.Pixels) {
		return
	}
	e.undo.RestoreBefore(layer)
	k := &brush.Kernel{Settings: e.brushSettings, Selection: e.selection, Custom: e.customMask}
	dirty := k.Rasterize(e.canvas.Pixels[layer], pts)
	e.canvas.Layers[layer].InvalidateUniform()
	if !dirty.Empty() {
		e.undo.NotifyDirty(int(e.canvas.Width), int(e.canvas.Height), dirty)
		e.syncDirtyToStore(layer, dirty)
	}
}

// settleAnimator snaps any still-running post-stroke animation straight to
// its final frame and commits its undo record immediately. Called before a
// new stroke opens a fresh capture, so one stroke's in-progress capture is
// never clobbered by the next stroke's BeginStroke.
func (e *Engine) settleAnimator() {
	if e.animator == nil {
		return
	}
	e.paintAnimatorFrame(e.animator.Layer(), e.animator.Final())
	e.animator = nil
	e.undo.EndStroke()
}

func (e *Engine) previewSample(src *pixel.Buffer) *pixel.Buffer {
	if e.transformPreview == nil {
		return src
	}
	return transform.Apply(src, e.transformPreview.Matrix[:], e.transformPreview.Bilinear)
}

func (e *Engine) present(now time.Time) {
	composite := compositor.Composite(e.canvas, e.transformPreview, e.previewSample)
	e.gate.BeginSubmit(now)

	if e.presentTexture != nil {
		raw := make([]byte, len(composite.Pix)*4)
		for i, p := range composite.Pix {
			off := i * 4
			// Present readback is BGRA8 (§6); storage is internally ARGB.
			raw[off] = p.B()
			raw[off+1] = p.G()
			raw[off+2] = p.R()
			raw[off+3] = p.A()
		}
		e.r.WriteTextureRegion(e.presentTexture, 0, 0, 0, uint32(composite.Width), uint32(composite.Height), raw)
	}

	e.gate.EndSubmit()
}

func (e *Engine) handle(cmd command.Command) {
	switch cmd.Kind {
	case command.KindAttachPresentTarget:
		e.attachPresentTarget(cmd.Width, cmd.Height)
	case command.KindDetachPresentTarget:
		e.hasPresent = false
		e.presentTexture = nil
	case command.KindResetCanvas:
		lc := cmd.LayerCount
		if lc <= 0 {
			lc = len(e.canvas.Layers)
		}
		e.resetCanvas(lc, cmd.Background)
	case command.KindResizeCanvas:
		e.resizeCanvas(cmd.Width, cmd.Height, cmd.LayerCount, cmd.Background, cmd.Reply)
	case command.KindSetActiveLayer:
		if e.canvas.EnsureLayer(cmd.Layer) == nil {
			e.canvas.ActiveLayer = cmd.Layer
		}
	case command.KindSetLayerOpacity:
		e.withLayer(cmd.Layer, false, func(i int) { e.canvas.Layers[i].Opacity = clamp01(cmd.F32) })
	case command.KindSetLayerVisible:
		e.withLayer(cmd.Layer, false, func(i int) { e.canvas.Layers[i].Visible = cmd.Bool })
	case command.KindSetLayerClippingMask:
		e.withLayer(cmd.Layer, false, func(i int) { e.canvas.Layers[i].ClippingMask = cmd.Bool })
	case command.KindSetLayerBlendMode:
		e.withLayer(cmd.Layer, false, func(i int) { e.canvas.Layers[i].BlendMode = canvas.BlendMode(cmd.Blend) })
	case command.KindReorderLayer:
		perm := e.canvas.Reorder(cmd.FromLayer, cmd.ToLayer)
		e.undo.Retarget(perm)
		full := pixel.Rect{X: 0, Y: 0, W: int(e.canvas.Width), H: int(e.canvas.Height)}
		for old, moved := range perm {
			if old != moved {
				e.syncDirtyToStore(moved, full)
			}
		}
	case command.KindSetViewFlags:
		e.canvas.ViewFlags = uint32(cmd.Flags)
	case command.KindSetBrush:
		if cmd.Brush != nil {
			s := *cmd.Brush
			s.Sanitize()
			e.brushSettings = s
		}
	case command.KindSetBrushMask:
		e.customMask = parseCustomMask(cmd.Mask)
	case command.KindClearBrushMask:
		e.customMask = nil
	case command.KindSprayBegin:
		e.sprayLayer = cmd.Layer
		e.undo.BeginStroke(cmd.Layer)
	case command.KindSprayDraw:
		e.sprayDraw(cmd)
	case command.KindSprayEnd:
		e.undo.EndStroke()
	case command.KindApplyFilter:
		e.applyFilter(cmd)
	case command.KindApplyAntialias:
		e.applyAntialias(cmd)
	case command.KindBucketFill:
		e.bucketFill(cmd)
	case command.KindMagicWandMask:
		e.magicWandMask(cmd)
	case command.KindReadLayer:
		e.readLayer(cmd)
	case command.KindReadLayerPreview:
		e.readLayerPreview(cmd)
	case command.KindReadPresent:
		e.readPresent(cmd)
	case command.KindWriteLayer:
		e.writeLayer(cmd)
	case command.KindTranslateLayer:
		e.translateLayer(cmd)
	case command.KindApplyLayerTransform:
		e.applyLayerTransform(cmd)
	case command.KindSetLayerTransformPreview:
		if cmd.Bool {
			e.transformPreview = &compositor.TransformPreview{
				Layer: cmd.Layer, Enabled: true, Bilinear: cmd.Bilinear, Matrix: cmd.Matrix,
			}
		} else {
			e.transformPreview = nil
		}
	case command.KindGetLayerBounds:
		e.getLayerBounds(cmd)
	case command.KindSetSelectionMask:
		e.selection = cmd.Mask
	case command.KindUndo:
		rec, ok := e.undo.Undo()
		if ok {
			e.syncRecordToStore(rec)
		}
		command.SendReply(cmd, ok)
	case command.KindRedo:
		rec, ok := e.undo.Redo()
		if ok {
			e.syncRecordToStore(rec)
		}
		command.SendReply(cmd, ok)
	case command.KindStop:
		// handled by Stop(); nothing to do here.
	}
}

func (e *Engine) withLayer(layer int, mustExist bool, fn func(int)) {
	if mustExist {
		if !e.canvas.Valid(layer) {
			return
		}
		fn(layer)
		return
	}
	if e.canvas.EnsureLayer(layer) != nil {
		return
	}
	fn(layer)
}

func clamp01(v float32) float32 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

func (e *Engine) attachPresentTarget(width, height uint32) {
	tex, err := e.r.CreateTexture2DArray(width, height, 1, wgpu.TextureUsageTextureBinding|wgpu.TextureUsageCopyDst|wgpu.TextureUsageCopySrc)
	if err != nil {
		logging.Logger().Warn().Err(err).Msg("attach present target failed")
		return
	}
	e.presentTexture = tex
	e.hasPresent = true
}

func (e *Engine) resetCanvas(layerCount int, bg uint32) {
	e.animator = nil
	e.resampler = nil
	if layerCount < len(e.canvas.Layers) {
		e.canvas.Layers = e.canvas.Layers[:layerCount]
		e.canvas.Pixels = e.canvas.Pixels[:layerCount]
	} else {
		_ = e.canvas.EnsureLayer(layerCount - 1)
	}
	if e.canvas.ActiveLayer >= layerCount {
		e.canvas.ActiveLayer = 0
	}
	for i := range e.canvas.Pixels {
		if i == 0 {
			fillUniform(e.canvas.Pixels[0], pixel.ARGB(bg))
		} else {
			clearBuffer(e.canvas.Pixels[i])
		}
		e.canvas.Layers[i].InvalidateUniform()
		full := pixel.Rect{X: 0, Y: 0, W: int(e.canvas.Width), H: int(e.canvas.Height)}
		e.syncDirtyToStore(i, full)
	}
	e.undo.Clear()
}

func (e *Engine) resizeCanvas(width, height uint32, layerCount int, bg uint32, reply chan any) {
	if width == 0 || height == 0 || layerCount <= 0 {
		sendReply(reply, false)
		return
	}
	store, err := gpu.NewStore(e.r, width, height, uint32(layerCount))
	if err != nil {
		logging.Logger().Warn().Err(err).Msg("resize canvas failed")
		sendReply(reply, false)
		return
	}
	e.animator = nil
	e.resampler = nil
	e.canvas.Resize(store, width, height, layerCount)
	fillUniform(e.canvas.Pixels[0], pixel.ARGB(bg))
	full := pixel.Rect{X: 0, Y: 0, W: int(width), H: int(height)}
	for i := range e.canvas.Pixels {
		e.syncDirtyToStore(i, full)
	}
	e.undo.Clear()
	sendReply(reply, true)
}

func sendReply(reply chan any, v any) {
	if reply == nil {
		return
	}
	select {
	case reply <- v:
	default:
	}
}

func fillUniform(buf *pixel.Buffer, v pixel.ARGB) {
	for i := range buf.Pix {
		buf.Pix[i] = v
	}
}

func clearBuffer(buf *pixel.Buffer) {
	for i := range buf.Pix {
		buf.Pix[i] = 0
	}
}

func (e *Engine) sprayDraw(cmd command.Command) {
	layer := e.sprayLayer
	if e.canvas.EnsureLayer(layer) != nil {
		return
	}
	dst := e.canvas.Pixels[layer]

	s := e.brushSettings
	s.Shape = cmd.SprayShape
	s.Erase = cmd.Bool
	s.AALevel = cmd.AA
	if cmd.Softness > 0 {
		s.Hardness = 1 - clamp01(cmd.Softness)
	}
	if cmd.Color != 0 {
		s.ColorARGB = cmd.Color
	}
	s.Sanitize()

	points := make([]brush.Point, len(cmd.SprayPoints))
	alphas := make([]float32, len(cmd.SprayPoints))
	for i, sp := range cmd.SprayPoints {
		points[i] = brush.Point{X: sp.X, Y: sp.Y, Radius: sp.Radius}
		alphas[i] = sp.Alpha
	}
	if len(points) == 0 {
		return
	}

	k := &brush.Kernel{Settings: s, Selection: e.selection, Custom: e.customMask}
	var dirty pixel.Rect
	if cmd.Accumulate {
		dirty = k.RasterizeAccumulate(dst, points, alphas)
	} else {
		for i, p := range points {
			flow := s.Flow * alphas[i]
			if flow <= 0 {
				flow = s.Flow
			}
			single := s
			single.Flow = flow
			kk := &brush.Kernel{Settings: single, Selection: e.selection, Custom: e.customMask}
			dirty = dirty.Union(kk.Rasterize(dst, []brush.Point{p}))
		}
	}
	if dirty.Empty() {
		return
	}
	e.canvas.Layers[layer].InvalidateUniform()
	e.undo.NotifyDirty(int(e.canvas.Width), int(e.canvas.Height), dirty)
	e.syncDirtyToStore(layer, dirty)
}

func (e *Engine) applyAntialias(cmd command.Command) {
	if !e.canvas.Valid(cmd.Layer) {
		command.SendReply(cmd, false)
		return
	}
	buf := e.canvas.Pixels[cmd.Layer]
	full := pixel.Rect{X: 0, Y: 0, W: buf.Width, H: buf.Height}
	e.undo.BeginStroke(cmd.Layer)
	e.undo.NotifyDirty(buf.Width, buf.Height, full)
	filter.Antialias(buf, int(cmd.Params[0]))
	e.canvas.Layers[cmd.Layer].InvalidateUniform()
	e.undo.EndStroke()
	e.syncDirtyToStore(cmd.Layer, full)
	command.SendReply(cmd, true)
}

func (e *Engine) applyFilter(cmd command.Command) {
	if !e.canvas.Valid(cmd.Layer) {
		command.SendReply(cmd, false)
		return
	}
	e.undo.BeginStroke(cmd.Layer)
	buf := e.canvas.Pixels[cmd.Layer]
	full := pixel.Rect{X: 0, Y: 0, W: buf.Width, H: buf.Height}
	e.undo.NotifyDirty(buf.Width, buf.Height, full)
	filter.Apply(buf, cmd.FilterType, cmd.Params)
	e.canvas.Layers[cmd.Layer].InvalidateUniform()
	e.undo.EndStroke()
	e.syncDirtyToStore(cmd.Layer, full)
	command.SendReply(cmd, true)
}

func (e *Engine) bucketFill(cmd command.Command) {
	if !e.canvas.Valid(cmd.Layer) {
		command.SendReply(cmd, false)
		return
	}
	target := e.canvas.Pixels[cmd.Layer]
	sample := target
	if cmd.SampleAll {
		sample = compositor.Composite(e.canvas, nil, nil)
	}

	swallow := make([]pixel.ARGB, len(cmd.Swallow))
	for i, c := range cmd.Swallow {
		swallow[i] = pixel.ARGB(c)
	}

	patch := fill.Fill(sample, fill.Params{
		Start:      [2]int{cmd.X, cmd.Y},
		FillColor:  pixel.ARGB(cmd.Color),
		Contiguous: cmd.Contiguous,
		Tolerance:  cmd.Tolerance,
		Gap:        cmd.Gap,
		AALevel:    cmd.AA,
		Swallow:    swallow,
		Selection:  e.selectionFor(cmd),
	})
	if patch.Rect.Empty() {
		command.SendReply(cmd, false)
		return
	}

	e.undo.BeginStroke(cmd.Layer)
	e.undo.NotifyDirty(target.Width, target.Height, patch.Rect)
	for y := 0; y < patch.Rect.H; y++ {
		for x := 0; x < patch.Rect.W; x++ {
			v := patch.Pixels[y*patch.Rect.W+x]
			if v != 0 {
				target.Set(patch.Rect.X+x, patch.Rect.Y+y, v)
			}
		}
	}
	e.canvas.Layers[cmd.Layer].InvalidateUniform()
	e.undo.EndStroke()
	e.syncDirtyToStore(cmd.Layer, patch.Rect)
	command.SendReply(cmd, true)
}

func (e *Engine) magicWandMask(cmd command.Command) {
	if !e.canvas.Valid(cmd.Layer) {
		command.SendReply(cmd, []byte(nil))
		return
	}
	sample := e.canvas.Pixels[cmd.Layer]
	if cmd.SampleAll {
		sample = compositor.Composite(e.canvas, nil, nil)
	}
	mask := fill.MagicWandMask(sample, cmd.X, cmd.Y, cmd.Tolerance, e.selectionFor(cmd))
	command.SendReply(cmd, mask)
}

// selectionFor returns the selection mask carried by cmd, falling back to
// the engine's current selection mask when the command carries none.
func (e *Engine) selectionFor(cmd command.Command) []uint8 {
	if cmd.Mask != nil {
		return cmd.Mask
	}
	return e.selection
}

// readLayer serves read_layer (§6) from the GPU layer array mirror when one
// is attached, falling back to the canvas's own CPU buffer otherwise — the
// two always agree since every mutation site mirrors its dirty region out to
// Store immediately (see syncDirtyToStore).
func (e *Engine) readLayer(cmd command.Command) {
	if !e.canvas.Valid(cmd.Layer) {
		command.SendReply(cmd, []uint32(nil))
		return
	}
	buf := e.canvas.Pixels[cmd.Layer]
	if e.canvas.Store != nil {
		if mirrored, err := e.canvas.Store.ReadLayer(uint32(cmd.Layer)); err != nil {
			logging.Logger().Warn().Err(err).Msg("read layer from GPU mirror failed, serving CPU buffer")
		} else {
			buf = mirrored
		}
	}
	out := make([]uint32, len(buf.Pix))
	for i, p := range buf.Pix {
		out[i] = uint32(p)
	}
	command.SendReply(cmd, out)
}

func (e *Engine) readLayerPreview(cmd command.Command) {
	if !e.canvas.Valid(cmd.Layer) {
		command.SendReply(cmd, []byte(nil))
		return
	}
	rgba := transform.Preview(e.canvas.Pixels[cmd.Layer], int(cmd.Width), int(cmd.Height))
	command.SendReply(cmd, rgba)
}

func (e *Engine) readPresent(cmd command.Command) {
	composite := compositor.Composite(e.canvas, e.transformPreview, e.previewSample)
	out := make([]byte, len(composite.Pix)*4)
	for i, p := range composite.Pix {
		off := i * 4
		out[off] = p.B()
		out[off+1] = p.G()
		out[off+2] = p.R()
		out[off+3] = p.A()
	}
	command.SendReply(cmd, out)
}

func (e *Engine) writeLayer(cmd command.Command) {
	if !e.canvas.Valid(cmd.Layer) || len(cmd.Pixels) != int(e.canvas.Width)*int(e.canvas.Height) {
		command.SendReply(cmd, false)
		return
	}
	buf := e.canvas.Pixels[cmd.Layer]
	if cmd.Bool {
		e.undo.BeginStroke(cmd.Layer)
		e.undo.NotifyDirty(buf.Width, buf.Height, pixel.Rect{X: 0, Y: 0, W: buf.Width, H: buf.Height})
	}
	for i, v := range cmd.Pixels {
		buf.Pix[i] = pixel.ARGB(v)
	}
	e.canvas.Layers[cmd.Layer].InvalidateUniform()
	if cmd.Bool {
		e.undo.EndStroke()
	}
	e.syncDirtyToStore(cmd.Layer, pixel.Rect{X: 0, Y: 0, W: buf.Width, H: buf.Height})
	command.SendReply(cmd, true)
}

func (e *Engine) translateLayer(cmd command.Command) {
	if !e.canvas.Valid(cmd.Layer) {
		command.SendReply(cmd, false)
		return
	}
	buf := e.canvas.Pixels[cmd.Layer]
	dx, dy := int(cmd.Params[0]), int(cmd.Params[1])
	out := pixel.NewBuffer(buf.Width, buf.Height)
	for y := 0; y < buf.Height; y++ {
		for x := 0; x < buf.Width; x++ {
			out.Set(x, y, buf.At(x-dx, y-dy))
		}
	}
	full := pixel.Rect{X: 0, Y: 0, W: buf.Width, H: buf.Height}
	e.undo.BeginStroke(cmd.Layer)
	e.undo.NotifyDirty(buf.Width, buf.Height, full)
	copy(buf.Pix, out.Pix)
	e.canvas.Layers[cmd.Layer].InvalidateUniform()
	e.undo.EndStroke()
	e.syncDirtyToStore(cmd.Layer, full)
	command.SendReply(cmd, true)
}

func (e *Engine) applyLayerTransform(cmd command.Command) {
	if !e.canvas.Valid(cmd.Layer) {
		command.SendReply(cmd, false)
		return
	}
	buf := e.canvas.Pixels[cmd.Layer]
	out := transform.Apply(buf, cmd.Matrix[:], cmd.Bilinear)
	full := pixel.Rect{X: 0, Y: 0, W: buf.Width, H: buf.Height}
	e.undo.BeginStroke(cmd.Layer)
	e.undo.NotifyDirty(buf.Width, buf.Height, full)
	copy(buf.Pix, out.Pix)
	e.canvas.Layers[cmd.Layer].InvalidateUniform()
	e.undo.EndStroke()
	e.syncDirtyToStore(cmd.Layer, full)
	command.SendReply(cmd, true)
}

func (e *Engine) getLayerBounds(cmd command.Command) {
	if !e.canvas.Valid(cmd.Layer) {
		command.SendReply(cmd, [5]int{})
		return
	}
	l, t, r, b, ok := transform.Bounds(e.canvas.Pixels[cmd.Layer])
	status := 0
	if ok {
		status = 1
	}
	command.SendReply(cmd, [5]int{l, t, r, b, status})
}

func parseCustomMask(data []byte) *brush.CustomMask {
	if len(data) < 8 {
		return nil
	}
	w := int(uint32(data[0]) | uint32(data[1])<<8 | uint32(data[2])<<16 | uint32(data[3])<<24)
	h := int(uint32(data[4]) | uint32(data[5])<<8 | uint32(data[6])<<16 | uint32(data[7])<<24)
	body := data[8:]
	if w <= 0 || h <= 0 || len(body) < w*h*2 {
		return nil
	}
	firm := make([]byte, w*h)
	soft := make([]byte, w*h)
	for i := 0; i < w*h; i++ {
		firm[i] = body[i*2]
		soft[i] = body[i*2+1]
	}
	return &brush.CustomMask{Width: w, Height: h, Firm: firm, Soft: soft}
}
