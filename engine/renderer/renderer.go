package renderer

import (
	"fmt"
	"sync"

	"github.com/inkforge/paintcore/common"
	"github.com/inkforge/paintcore/engine/renderer/bind_group_provider"
	"github.com/inkforge/paintcore/engine/renderer/pipeline"
	"github.com/cogentcore/webgpu/wgpu"
)

// renderer is the implementation of the Renderer interface.
type renderer struct {
	mu *sync.Mutex

	pipelineCache map[string]pipeline.Pipeline

	backendType RendererBackendType
	backend     RendererBackend

	// Pre-creation config collected from builder options
	forceFallbackAdapter bool
}

// Renderer defines the interface for the rendering system.
//
// This is a high-level API designed to simplify rendering tasks into a streamlined and idiomatic flow.
// The Renderer manages a cache of shaders and pipelines, allowing for easy retrieval and management of these resources.
// The Renderer is headless: it owns no window surface or swapchain. Every texture it draws into or reads from —
// layer texture array slices, compositor scratch targets, the present target — is created and addressed explicitly
// by the caller.
type Renderer interface {
	// Device returns the underlying GPU device, for packages that need to create resources
	// the Renderer has no opinion about (e.g. the engine's device-context singleton).
	Device() *wgpu.Device

	// Queue returns the underlying GPU queue.
	Queue() *wgpu.Queue

	// Pipeline retrieves the cached Pipeline associated with the given key.
	// If the Pipeline does not exist, this will return nil.
	//
	// Parameters:
	//   - key: the unique identifier for the Pipeline to retrieve
	//
	// Returns:
	//   - pipeline.Pipeline: the Pipeline associated with the key, or nil if not found
	Pipeline(key string) pipeline.Pipeline

	// Pipelines retrieves the entire cache of Pipelines.
	//
	// Returns:
	//   - map[string]pipeline.Pipeline: a map of pipeline keys to their corresponding Pipeline objects
	Pipelines() map[string]pipeline.Pipeline

	// RegisterPipelines registers one or more pipelines by creating the corresponding GPU
	// pipeline objects (render or compute) via the backend, then caching them by PipelineKey.
	// Pipelines whose keys are already registered are skipped to avoid duplicate GPU resource creation.
	//
	// Parameters:
	//   - pipelines: the Pipelines to register
	//
	// Returns:
	//   - error: an error if pipeline creation fails
	RegisterPipelines(pipelines ...pipeline.Pipeline) error

	// SetPipeline adds or updates a Pipeline in the cache with the given key.
	//
	// Parameters:
	//   - key: the unique identifier for the Pipeline to add or update in the cache
	//   - p: the Pipeline to add or update in the cache
	SetPipeline(key string, p pipeline.Pipeline)

	// SetPipelines replaces the entire pipeline cache with the provided map of Pipelines.
	//
	// Parameters:
	//   - pipelines: a map of pipeline keys to their corresponding Pipeline objects to set as the new cache
	SetPipelines(pipelines map[string]pipeline.Pipeline)

	// InitMeshBuffers creates GPU vertex and index buffers from raw byte data and stores them
	// on the given BindGroupProvider for later use in draw calls.
	//
	// Parameters:
	//   - provider: the BindGroupProvider to store the created buffers on
	//   - vertexData: the raw vertex data bytes to upload to the GPU
	//   - indexData: the raw index data bytes to upload to the GPU
	//   - indexCount: the number of indices, used for draw calls
	//
	// Returns:
	//   - error: an error if buffer creation fails
	InitMeshBuffers(provider bind_group_provider.BindGroupProvider, vertexData, indexData []byte, indexCount int) error

	// InitBindGroup creates GPU buffers and a bind group from a layout descriptor and stores them
	// on the given BindGroupProvider. Textures and samplers must be initialized via InitTextureView
	// and InitSampler before calling this method. Buffer usage and size can be overridden per binding.
	//
	// Parameters:
	//   - provider: the BindGroupProvider to store the created bind group on
	//   - descriptor: the layout descriptor defining the bind group entries
	//   - bufferUsageOverrides: additional buffer usage flags to OR into the derived usage, keyed by binding index (nil safe)
	//   - bufferSizeOverrides: custom buffer sizes to use instead of MinBindingSize, keyed by binding index (nil safe)
	//
	// Returns:
	//   - error: an error if bind group creation fails
	InitBindGroup(provider bind_group_provider.BindGroupProvider, descriptor wgpu.BindGroupLayoutDescriptor, bufferUsageOverrides map[int]wgpu.BufferUsage, bufferSizeOverrides map[int]uint64) error

	// InitTextureView creates a GPU texture from staging data and stores the resulting texture view
	// on the given BindGroupProvider at the specified binding index. Must be called before InitBindGroup
	// for any texture bindings.
	//
	// Parameters:
	//   - provider: the BindGroupProvider to store the created texture view on
	//   - bindingKey: the binding index for this texture
	//   - stagingData: the pixel data and dimensions for the texture
	//
	// Returns:
	//   - error: an error if texture creation fails
	InitTextureView(provider bind_group_provider.BindGroupProvider, bindingKey int, stagingData common.TextureStagingData) error

	// InitSampler creates a GPU sampler from staging data and stores it on the given BindGroupProvider
	// at the specified binding index. Must be called before InitBindGroup for any sampler bindings.
	//
	// Parameters:
	//   - provider: the BindGroupProvider to store the created sampler on
	//   - bindingKey: the binding index for this sampler
	//   - samplerStagingData: the sampler configuration
	//
	// Returns:
	//   - error: an error if sampler creation fails
	InitSampler(provider bind_group_provider.BindGroupProvider, bindingKey int, samplerStagingData common.SamplerStagingData) error

	// WriteBuffers writes all staged buffer writes to the GPU queue.
	// Each BufferWrite targets a specific buffer on a BindGroupProvider at a given binding and offset.
	//
	// Parameters:
	//   - writes: a slice of BufferWrite structs describing the data to write
	WriteBuffers(writes []bind_group_provider.BufferWrite)

	// BeginComputeFrame creates a single command encoder for batching all compute dispatches
	// within a frame into one GPU submission. Must be paired with EndComputeFrame after all
	// DispatchCompute calls for the frame.
	//
	// Returns:
	//   - error: an error if the command encoder could not be created
	BeginComputeFrame() error

	// EndComputeFrame finishes the batched compute command encoder and submits the resulting
	// command buffer to the GPU queue. Must be called after BeginComputeFrame and all
	// DispatchCompute calls for the frame.
	EndComputeFrame()

	// DispatchCompute looks up the cached compute Pipeline by key, then encodes a compute pass
	// within the current batched compute frame started by BeginComputeFrame.
	//
	// Parameters:
	//   - pipelineKey: the unique identifier for the cached compute Pipeline to use
	//   - computeProvider: the BindGroupProvider whose BindGroup will be set on the compute pass
	//   - workGroupCount: the number of workgroups to dispatch in the x, y, and z dimensions
	DispatchCompute(pipelineKey string, computeProvider bind_group_provider.BindGroupProvider, workGroupCount [3]uint32)

	// BeginFrame creates a command encoder and begins a render pass targeting the given texture view.
	// Unlike a swapchain-backed renderer there is no implicit frame target — callers supply the exact
	// view to draw into (a layer texture array slice, a compositor scratch target, the present target).
	// Must be paired with EndFrame after all DrawCall invocations within a single frame.
	//
	// Parameters:
	//   - target: the texture view to draw into
	//   - clear: when non-nil, the color to clear the target to before drawing; when nil the existing
	//     contents of target are loaded and drawn over
	//
	// Returns:
	//   - error: an error if the command encoder could not be created
	BeginFrame(target *wgpu.TextureView, clear *wgpu.Color) error

	// DrawCall encodes a single instanced draw command within the current render pass.
	// Multiple DrawCall invocations can be made between BeginFrame and EndFrame.
	//
	// Parameters:
	//   - pipelineKey: the unique identifier for the cached render Pipeline to use
	//   - meshProvider: the BindGroupProvider holding vertex and index buffers
	//   - instanceCount: the number of instances to draw
	//   - bindGroups: a slice of BindGroupProviders whose BindGroups will be set on the render pass
	//
	// Returns:
	//   - error: an error if the pipeline is not found
	DrawCall(pipelineKey string, meshProvider bind_group_provider.BindGroupProvider, instanceCount uint32, bindGroups []bind_group_provider.BindGroupProvider) error

	// DrawCallIndirect encodes a single indirect instanced draw command within the current render pass.
	// The instance count is read from the indirectBuffer on the GPU, allowing the compute shader to
	// control how many instances are drawn without CPU readback.
	//
	// Parameters:
	//   - pipelineKey: the unique identifier for the cached render Pipeline to use
	//   - meshProvider: the BindGroupProvider holding vertex and index buffers
	//   - indirectBuffer: the GPU buffer containing DrawIndexedIndirect arguments (20 bytes)
	//   - bindGroups: a slice of BindGroupProviders whose BindGroups will be set on the render pass
	//
	// Returns:
	//   - error: an error if the pipeline is not found
	DrawCallIndirect(pipelineKey string, meshProvider bind_group_provider.BindGroupProvider, indirectBuffer *wgpu.Buffer, bindGroups []bind_group_provider.BindGroupProvider) error

	// EndFrame ends the current render pass and submits the command buffer to the GPU.
	// Must be called after BeginFrame and all DrawCall invocations within a single frame.
	EndFrame()

	// CreateTexture2DArray creates a 2D texture array with the given layer count, suitable for
	// backing a canvas's layer stack. Every layer shares CanvasTextureFormat.
	//
	// Parameters:
	//   - width, height: dimensions of each layer in texels
	//   - layers: the number of array layers to allocate
	//   - usage: the usage flags required by the callers of this texture (e.g. texture binding,
	//     storage binding, copy src/dst, render attachment)
	//
	// Returns:
	//   - *wgpu.Texture: the created texture array
	//   - error: an error if texture creation fails
	CreateTexture2DArray(width, height, layers uint32, usage wgpu.TextureUsage) (*wgpu.Texture, error)

	// CopyTextureRegion copies a rectangular region from one texture array layer to another
	// (or the same layer on a different texture) entirely on the GPU, used by gpu.Store to carry
	// existing layer slices into a newly grown texture array.
	//
	// Parameters:
	//   - src, dst: the source and destination textures
	//   - srcLayer, dstLayer: the array layer index within src and dst
	//   - srcX, srcY, dstX, dstY: the top-left origin of the region within src and dst
	//   - width, height: the size of the region to copy
	//
	// Returns:
	//   - error: an error if the copy could not be encoded
	CopyTextureRegion(src, dst *wgpu.Texture, srcLayer, dstLayer uint32, srcX, srcY, dstX, dstY, width, height uint32) error

	// WriteTextureRegion uploads CPU-side pixel data into a rectangular region of a single
	// texture array layer. Used for bucket-fill commits, filter patch application, and any
	// other CPU-computed pixels that must land on the GPU canvas.
	//
	// Parameters:
	//   - tex: the destination texture
	//   - layer: the array layer index to write into
	//   - x, y, width, height: the destination region within the layer
	//   - data: tightly-packed RGBA8 pixel data, width*height*4 bytes
	WriteTextureRegion(tex *wgpu.Texture, layer, x, y, width, height uint32, data []byte)

	// ReadTextureRegion reads a rectangular region of a single texture array layer back to the
	// CPU. This is a synchronous, blocking operation: it copies the region into a staging buffer,
	// submits the copy, and polls the device until the mapping callback fires.
	//
	// Parameters:
	//   - tex: the source texture
	//   - layer: the array layer index to read from
	//   - x, y, width, height: the source region within the layer
	//
	// Returns:
	//   - []byte: tightly-packed RGBA8 pixel data, width*height*4 bytes
	//   - error: an error if the readback fails
	ReadTextureRegion(tex *wgpu.Texture, layer, x, y, width, height uint32) ([]byte, error)

	// Poll drives the device's event loop, required after submitting work whose completion is
	// observed via a mapped-buffer callback (see ReadTextureRegion). wait blocks until at least
	// one queue submission completes; false just pumps pending callbacks without blocking.
	//
	// Parameters:
	//   - wait: whether to block until a submission completes
	Poll(wait bool)
}

var _ Renderer = &renderer{}

// NewRenderer creates a new headless Renderer instance with the specified backend type.
// There is no window or surface: the GPU device is requested with no compatible surface,
// matching an offscreen compositing engine that presents by copying into an externally
// attached texture rather than acquiring a swapchain image.
//
// Parameters:
//   - backendType: the type of rendering backend to use (e.g., WGPU)
//   - options: variadic list of RendererBuilderOption functions to configure the Renderer
//
// Returns:
//   - Renderer: a new instance of Renderer configured with the specified backend and options
func NewRenderer(backendType RendererBackendType, options ...RendererBuilderOption) Renderer {
	r := &renderer{
		mu:            &sync.Mutex{},
		pipelineCache: make(map[string]pipeline.Pipeline),
		backendType:   backendType,
	}

	for _, opt := range options {
		opt(r)
	}

	switch backendType {
	case BackendTypeWGPU:
		fallthrough
	default:
		r.backend = newWGPURendererBackend(r.forceFallbackAdapter)
	}

	return r
}

func (r *renderer) Device() *wgpu.Device {
	return r.backend.Device()
}

func (r *renderer) Queue() *wgpu.Queue {
	return r.backend.Queue()
}

func (r *renderer) Pipeline(key string) pipeline.Pipeline {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.pipelineCache[key]
}

func (r *renderer) Pipelines() map[string]pipeline.Pipeline {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.pipelineCache
}

func (r *renderer) RegisterPipelines(pipelines ...pipeline.Pipeline) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, p := range pipelines {
		key := p.PipelineKey()
		if _, exists := r.pipelineCache[key]; exists {
			continue
		}
		switch p.Type() {
		case pipeline.PipelineTypeCompute:
			if err := r.backend.RegisterComputePipeline(p); err != nil {
				return err
			}
		case pipeline.PipelineTypeRender:
			if err := r.backend.RegisterRenderPipeline(p); err != nil {
				return err
			}
		}
		r.pipelineCache[key] = p
	}
	return nil
}

func (r *renderer) SetPipeline(key string, p pipeline.Pipeline) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.pipelineCache[key] = p
}

func (r *renderer) SetPipelines(pipelines map[string]pipeline.Pipeline) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.pipelineCache = pipelines
}

func (r *renderer) InitMeshBuffers(provider bind_group_provider.BindGroupProvider, vertexData, indexData []byte, indexCount int) error {
	return r.backend.InitMeshBuffers(provider, vertexData, indexData, indexCount)
}

func (r *renderer) InitBindGroup(provider bind_group_provider.BindGroupProvider, descriptor wgpu.BindGroupLayoutDescriptor, bufferUsageOverrides map[int]wgpu.BufferUsage, bufferSizeOverrides map[int]uint64) error {
	return r.backend.InitBindGroup(provider, descriptor, bufferUsageOverrides, bufferSizeOverrides)
}

func (r *renderer) InitTextureView(provider bind_group_provider.BindGroupProvider, bindingKey int, stagingData common.TextureStagingData) error {
	return r.backend.InitTextureView(provider, bindingKey, stagingData)
}

func (r *renderer) InitSampler(provider bind_group_provider.BindGroupProvider, bindingKey int, samplerStagingData common.SamplerStagingData) error {
	return r.backend.InitSampler(provider, bindingKey, samplerStagingData)
}

func (r *renderer) WriteBuffers(writes []bind_group_provider.BufferWrite) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.backend.WriteBuffers(writes)
}

func (r *renderer) BeginComputeFrame() error {
	return r.backend.BeginComputeFrame()
}

func (r *renderer) EndComputeFrame() {
	r.backend.EndComputeFrame()
}

func (r *renderer) DispatchCompute(pipelineKey string, computeProvider bind_group_provider.BindGroupProvider, workGroupCount [3]uint32) {
	r.mu.Lock()
	defer r.mu.Unlock()

	p, exists := r.pipelineCache[pipelineKey]
	if !exists {
		return
	}

	r.backend.DispatchCompute(p, computeProvider, workGroupCount)
}

func (r *renderer) BeginFrame(target *wgpu.TextureView, clear *wgpu.Color) error {
	return r.backend.BeginFrame(target, clear)
}

func (r *renderer) DrawCall(pipelineKey string, meshProvider bind_group_provider.BindGroupProvider, instanceCount uint32, bindGroups []bind_group_provider.BindGroupProvider) error {
	r.mu.Lock()
	p, exists := r.pipelineCache[pipelineKey]
	r.mu.Unlock()

	if !exists {
		return fmt.Errorf("render pipeline %q not found in cache", pipelineKey)
	}

	r.backend.DrawCall(p, meshProvider, instanceCount, bindGroups)
	return nil
}

func (r *renderer) DrawCallIndirect(pipelineKey string, meshProvider bind_group_provider.BindGroupProvider, indirectBuffer *wgpu.Buffer, bindGroups []bind_group_provider.BindGroupProvider) error {
	r.mu.Lock()
	p, exists := r.pipelineCache[pipelineKey]
	r.mu.Unlock()

	if !exists {
		return fmt.Errorf("render pipeline %q not found in cache", pipelineKey)
	}

	r.backend.DrawCallIndirect(p, meshProvider, indirectBuffer, bindGroups)
	return nil
}

func (r *renderer) EndFrame() {
	r.backend.EndFrame()
}

func (r *renderer) CreateTexture2DArray(width, height, layers uint32, usage wgpu.TextureUsage) (*wgpu.Texture, error) {
	return r.backend.CreateTexture2DArray(width, height, layers, usage)
}

func (r *renderer) CopyTextureRegion(src, dst *wgpu.Texture, srcLayer, dstLayer uint32, srcX, srcY, dstX, dstY, width, height uint32) error {
	return r.backend.CopyTextureRegion(src, dst, srcLayer, dstLayer, srcX, srcY, dstX, dstY, width, height)
}

func (r *renderer) WriteTextureRegion(tex *wgpu.Texture, layer, x, y, width, height uint32, data []byte) {
	r.backend.WriteTextureRegion(tex, layer, x, y, width, height, data)
}

func (r *renderer) ReadTextureRegion(tex *wgpu.Texture, layer, x, y, width, height uint32) ([]byte, error) {
	return r.backend.ReadTextureRegion(tex, layer, x, y, width, height)
}

func (r *renderer) Poll(wait bool) {
	r.backend.Poll(wait)
}
