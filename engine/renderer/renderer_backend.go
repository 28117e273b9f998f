package renderer

import "github.com/cogentcore/webgpu/wgpu"

// RendererBackendType identifies the GPU backend implementation used by the Renderer.
type RendererBackendType int

const (
	// BackendTypeWGPU selects the WebGPU-based rendering backend.
	BackendTypeWGPU RendererBackendType = iota
)

// CanvasTextureFormat is the fixed pixel format used for every layer texture, the
// compositor's scratch targets, and the present target. The engine is headless and
// owns no swapchain, so there is no adapter-negotiated surface format to defer to —
// every GPU resource in the painting pipeline agrees on this format up front.
const CanvasTextureFormat = wgpu.TextureFormatRGBA8Unorm

// RendererBackend is the top-level backend interface for the Renderer.
// It embeds the concrete backend interface for the selected GPU API.
type RendererBackend interface {
	wgpuRendererBackend
}
