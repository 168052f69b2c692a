package renderer

import (
	"fmt"
	"image"
	"runtime"
	"sync"

	"github.com/Carmen-Shannon/vfx-go/engine/renderer/shader"
	"github.com/cogentcore/webgpu/wgpu"
)

// effectPipeline is the opaque compiled-program handle returned by
// CompileEffect and accepted by SetActiveEffect.
type effectPipeline struct {
	name     string
	pipeline *wgpu.RenderPipeline
}

type wgpuRendererBackendImpl struct {
	mu     *sync.Mutex
	device *wgpu.Device
	queue  *wgpu.Queue

	instance *wgpu.Instance
	adapter  *wgpu.Adapter
	surface  *wgpu.Surface

	surfaceFormat        *wgpu.TextureFormat
	renderPassDescriptor *wgpu.RenderPassDescriptor

	presentMode wgpu.PresentMode // defaults to PresentModeFifo (VSync)

	// Fixed resources shared by the passthrough and every effect pipeline.
	// One bind group layout (video texture, sampler, effect constants) keeps
	// compiled effect programs interchangeable at frame begin.
	vertexModule    *wgpu.ShaderModule
	bindGroupLayout *wgpu.BindGroupLayout
	pipelineLayout  *wgpu.PipelineLayout
	sampler         *wgpu.Sampler
	uniformBuffer   *wgpu.Buffer
	bindGroup       *wgpu.BindGroup

	passthroughPipeline *wgpu.RenderPipeline

	// activePipeline is the effect selected for the next frame begin;
	// nil selects the passthrough pipeline.
	activePipeline *effectPipeline

	// constants mirrors the GPU uniform buffer contents.
	constants GPUEffectConstants

	// Video frame texture, recreated when the source size changes.
	videoTexture *wgpu.Texture
	videoView    *wgpu.TextureView
	videoWidth   uint32
	videoHeight  uint32

	// Frame state between BeginFrame and Present.
	frameEncoder *wgpu.CommandEncoder
	framePass    *wgpu.RenderPassEncoder
	frameSurface *wgpu.Texture
	frameView    *wgpu.TextureView
}

type wgpuRendererBackend interface {
	Device() *wgpu.Device
	Queue() *wgpu.Queue
	Instance() *wgpu.Instance
	Adapter() *wgpu.Adapter
	Surface() *wgpu.Surface

	// ConfigureSurface is a wrapper for boilerplate logic required when calling ConfigureSurface on a surface.
	// This is required when the surface size changes, such as when the window is resized.
	//
	// Parameters:
	//   - width: the new width of the surface in pixels
	//   - height: the new height of the surface in pixels
	ConfigureSurface(width, height int)

	// SetPresentMode sets the surface present mode which controls how frames are delivered to the display.
	//
	// Parameters:
	//   - mode: the PresentMode to use (VSync or Uncapped)
	SetPresentMode(mode PresentMode)

	// CompileEffect compiles a WGSL fragment source into a render pipeline
	// using the shared fullscreen vertex stage and fixed bind group layout.
	// The returned handle is opaque; hand it back via SetActiveEffect.
	//
	// Parameters:
	//   - name: a label used for the GPU objects and diagnostics
	//   - source: the complete WGSL fragment source
	//
	// Returns:
	//   - any: the compiled program handle
	//   - error: the compile diagnostic if compilation fails
	CompileEffect(name, source string) (any, error)

	// SetActiveEffect selects the program bound at the next frame begin.
	// Passing nil selects the fixed passthrough program.
	//
	// Parameters:
	//   - program: a handle from CompileEffect, or nil for passthrough
	SetActiveEffect(program any)

	// SetCustomUniforms replaces the custom parameter region of the effect
	// constants and pushes the whole constant buffer immediately, so live
	// parameter edits land without waiting for the next frame.
	//
	// Parameters:
	//   - region: the packed parameter values
	SetCustomUniforms(region [shader.RegionSlots]float32)

	// SetTime sets the playback time delivered to effects this frame.
	//
	// Parameters:
	//   - t: playback time in seconds
	SetTime(t float32)

	// UploadVideoFrame uploads a decoded RGBA frame to the video texture,
	// recreating the texture and bind group when the source size changes.
	//
	// Parameters:
	//   - frame: the decoded frame
	//
	// Returns:
	//   - error: an error if texture creation fails
	UploadVideoFrame(frame *image.RGBA) error

	// BeginFrame acquires the swapchain texture, writes the full effect
	// constant buffer, and begins the render pass with the active program
	// and bind group set. Program bind and uniform upload happen in this one
	// step so a frame can never mix a new program with stale uniforms.
	//
	// Returns:
	//   - error: an error if the swapchain texture could not be acquired
	BeginFrame() error

	// Draw encodes the fullscreen triangle draw within the current pass.
	Draw()

	// EndFrame ends the render pass and submits the command buffer to the GPU.
	// Does not present the surface — call Present() after EndFrame.
	EndFrame()

	// Present presents the surface to the display and releases the swapchain texture.
	// Must be called once per frame after EndFrame.
	Present()
}

var _ RendererBackend = &wgpuRendererBackendImpl{}

func newWGPURendererBackend(surfaceDescriptor *wgpu.SurfaceDescriptor, forceFallbackAdapter bool) wgpuRendererBackend {
	runtime.LockOSThread()
	b := &wgpuRendererBackendImpl{
		mu:          &sync.Mutex{},
		instance:    wgpu.CreateInstance(nil),
		presentMode: wgpu.PresentModeFifo,
	}
	b.surface = b.instance.CreateSurface(surfaceDescriptor)

	a, err := b.instance.RequestAdapter(&wgpu.RequestAdapterOptions{
		ForceFallbackAdapter: forceFallbackAdapter,
		CompatibleSurface:    b.surface,
	})
	if err != nil {
		panic(err)
	}
	b.adapter = a

	d, err := a.RequestDevice(&wgpu.DeviceDescriptor{
		Label: "Main Device",
	})
	if err != nil {
		panic(err)
	}
	b.device = d
	b.queue = d.GetQueue()

	b.initFixedResources()

	return b
}

// initFixedResources creates the device-lifetime objects every pipeline
// shares: the fullscreen vertex module, the single bind group layout and
// pipeline layout, the video sampler, and the effect constant buffer.
func (b *wgpuRendererBackendImpl) initFixedResources() {
	var err error

	b.vertexModule, err = b.device.CreateShaderModule(&wgpu.ShaderModuleDescriptor{
		Label: "Fullscreen Vertex",
		WGSLDescriptor: &wgpu.ShaderModuleWGSLDescriptor{
			Code: FullscreenVertexSource,
		},
	})
	if err != nil {
		panic(err)
	}

	b.bindGroupLayout, err = b.device.CreateBindGroupLayout(&wgpu.BindGroupLayoutDescriptor{
		Label: "Effect Bind Group Layout",
		Entries: []wgpu.BindGroupLayoutEntry{
			{
				Binding:    0,
				Visibility: wgpu.ShaderStageFragment,
				Texture: wgpu.TextureBindingLayout{
					SampleType:    wgpu.TextureSampleTypeFloat,
					ViewDimension: wgpu.TextureViewDimension2D,
				},
			},
			{
				Binding:    1,
				Visibility: wgpu.ShaderStageFragment,
				Sampler: wgpu.SamplerBindingLayout{
					Type: wgpu.SamplerBindingTypeFiltering,
				},
			},
			{
				Binding:    2,
				Visibility: wgpu.ShaderStageFragment,
				Buffer: wgpu.BufferBindingLayout{
					Type:           wgpu.BufferBindingTypeUniform,
					MinBindingSize: uint64(b.constants.Size()),
				},
			},
		},
	})
	if err != nil {
		panic(err)
	}

	b.pipelineLayout, err = b.device.CreatePipelineLayout(&wgpu.PipelineLayoutDescriptor{
		Label:            "Effect Pipeline Layout",
		BindGroupLayouts: []*wgpu.BindGroupLayout{b.bindGroupLayout},
	})
	if err != nil {
		panic(err)
	}

	b.sampler, err = b.device.CreateSampler(&wgpu.SamplerDescriptor{
		Label:         "Video Sampler",
		AddressModeU:  wgpu.AddressModeClampToEdge,
		AddressModeV:  wgpu.AddressModeClampToEdge,
		AddressModeW:  wgpu.AddressModeClampToEdge,
		MagFilter:     wgpu.FilterModeLinear,
		MinFilter:     wgpu.FilterModeLinear,
		MipmapFilter:  wgpu.MipmapFilterModeNearest,
		LodMaxClamp:   32.0,
		MaxAnisotropy: 1,
	})
	if err != nil {
		panic(err)
	}

	b.uniformBuffer, err = b.device.CreateBuffer(&wgpu.BufferDescriptor{
		Label: "Effect Constants Buffer",
		Size:  uint64(b.constants.Size()),
		Usage: wgpu.BufferUsageUniform | wgpu.BufferUsageCopyDst,
	})
	if err != nil {
		panic(err)
	}
}

func (b *wgpuRendererBackendImpl) ConfigureSurface(width, height int) {
	b.mu.Lock()
	defer b.mu.Unlock()

	capabilities := b.surface.GetCapabilities(b.adapter)
	b.surfaceFormat = &capabilities.Formats[0]

	b.surface.Configure(b.adapter, b.device, &wgpu.SurfaceConfiguration{
		Usage:       wgpu.TextureUsageRenderAttachment,
		Format:      *b.surfaceFormat,
		Width:       uint32(width),
		Height:      uint32(height),
		PresentMode: b.presentMode,
		AlphaMode:   capabilities.AlphaModes[0],
	})

	b.constants.Resolution = [2]float32{float32(width), float32(height)}

	b.renderPassDescriptor = &wgpu.RenderPassDescriptor{
		ColorAttachments: []wgpu.RenderPassColorAttachment{
			{
				View:    nil, // set per-frame to the swapchain view
				LoadOp:  wgpu.LoadOpClear,
				StoreOp: wgpu.StoreOpStore,
				ClearValue: wgpu.Color{
					R: 0.0, G: 0.0, B: 0.0, A: 1.0,
				},
			},
		},
	}

	// The passthrough pipeline needs the surface format, so it is created on
	// the first configure rather than at device init.
	if b.passthroughPipeline == nil {
		module, err := b.device.CreateShaderModule(&wgpu.ShaderModuleDescriptor{
			Label: "Passthrough Fragment",
			WGSLDescriptor: &wgpu.ShaderModuleWGSLDescriptor{
				Code: PassthroughFragmentSource,
			},
		})
		if err != nil {
			panic(err)
		}
		b.passthroughPipeline, err = b.createPipelineLocked("Passthrough", module)
		module.Release()
		if err != nil {
			panic(err)
		}
	}

	// A 1x1 placeholder texture keeps the bind group valid before the first
	// video frame arrives.
	if b.videoTexture == nil {
		if err := b.ensureVideoTextureLocked(1, 1); err != nil {
			panic(err)
		}
	}
}

func (b *wgpuRendererBackendImpl) SetPresentMode(mode PresentMode) {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch mode {
	case PresentModeUncapped:
		b.presentMode = wgpu.PresentModeImmediate
	case PresentModeVSync:
		fallthrough
	default:
		b.presentMode = wgpu.PresentModeFifo
	}
}

func (b *wgpuRendererBackendImpl) CompileEffect(name, source string) (any, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.surfaceFormat == nil {
		return nil, fmt.Errorf("surface not configured")
	}

	module, err := b.device.CreateShaderModule(&wgpu.ShaderModuleDescriptor{
		Label: name,
		WGSLDescriptor: &wgpu.ShaderModuleWGSLDescriptor{
			Code: source,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to compile effect %s: %w", name, err)
	}
	defer module.Release()

	created, err := b.createPipelineLocked(name, module)
	if err != nil {
		return nil, fmt.Errorf("failed to create pipeline for effect %s: %w", name, err)
	}

	return &effectPipeline{name: name, pipeline: created}, nil
}

// createPipelineLocked builds a render pipeline around the shared fullscreen
// vertex stage, pipeline layout and surface format. Caller holds b.mu.
func (b *wgpuRendererBackendImpl) createPipelineLocked(label string, fragment *wgpu.ShaderModule) (*wgpu.RenderPipeline, error) {
	return b.device.CreateRenderPipeline(&wgpu.RenderPipelineDescriptor{
		Label:  label + " Render Pipeline",
		Layout: b.pipelineLayout,
		Vertex: wgpu.VertexState{
			Module:     b.vertexModule,
			EntryPoint: "vs_main",
		},
		Fragment: &wgpu.FragmentState{
			Module:     fragment,
			EntryPoint: "main",
			Targets: []wgpu.ColorTargetState{
				{
					Format:    *b.surfaceFormat,
					WriteMask: wgpu.ColorWriteMaskAll,
				},
			},
		},
		Primitive: wgpu.PrimitiveState{
			Topology:  wgpu.PrimitiveTopologyTriangleList,
			FrontFace: wgpu.FrontFaceCCW,
			CullMode:  wgpu.CullModeNone,
		},
		Multisample: wgpu.MultisampleState{
			Count: 1,
			Mask:  0xFFFFFFFF,
		},
	})
}

func (b *wgpuRendererBackendImpl) SetActiveEffect(program any) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if program == nil {
		b.activePipeline = nil
		return
	}
	if p, ok := program.(*effectPipeline); ok {
		b.activePipeline = p
	}
}

func (b *wgpuRendererBackendImpl) SetCustomUniforms(region [shader.RegionSlots]float32) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.constants.Custom = region
	b.queue.WriteBuffer(b.uniformBuffer, 0, b.constants.Marshal())
}

func (b *wgpuRendererBackendImpl) SetTime(t float32) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.constants.Time = t
}

func (b *wgpuRendererBackendImpl) UploadVideoFrame(frame *image.RGBA) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	width := uint32(frame.Rect.Dx())
	height := uint32(frame.Rect.Dy())
	if width == 0 || height == 0 {
		return fmt.Errorf("empty video frame")
	}

	if err := b.ensureVideoTextureLocked(width, height); err != nil {
		return err
	}

	b.queue.WriteTexture(
		&wgpu.ImageCopyTexture{
			Texture:  b.videoTexture,
			MipLevel: 0,
			Origin:   wgpu.Origin3D{},
			Aspect:   wgpu.TextureAspectAll,
		},
		frame.Pix,
		&wgpu.TextureDataLayout{
			Offset:       0,
			BytesPerRow:  uint32(frame.Stride),
			RowsPerImage: height,
		},
		&wgpu.Extent3D{
			Width:              width,
			Height:             height,
			DepthOrArrayLayers: 1,
		},
	)

	b.constants.VideoResolution = [2]float32{float32(width), float32(height)}
	return nil
}

// ensureVideoTextureLocked (re)creates the video texture, its view, and the
// bind group whenever the frame size changes. Caller holds b.mu.
func (b *wgpuRendererBackendImpl) ensureVideoTextureLocked(width, height uint32) error {
	if b.videoTexture != nil && b.videoWidth == width && b.videoHeight == height {
		return nil
	}

	if b.bindGroup != nil {
		b.bindGroup.Release()
		b.bindGroup = nil
	}
	if b.videoView != nil {
		b.videoView.Release()
		b.videoView = nil
	}
	if b.videoTexture != nil {
		b.videoTexture.Release()
		b.videoTexture = nil
	}

	tex, err := b.device.CreateTexture(&wgpu.TextureDescriptor{
		Label:     "Video Texture",
		Usage:     wgpu.TextureUsageTextureBinding | wgpu.TextureUsageCopyDst,
		Dimension: wgpu.TextureDimension2D,
		Size: wgpu.Extent3D{
			Width:              width,
			Height:             height,
			DepthOrArrayLayers: 1,
		},
		Format:        wgpu.TextureFormatRGBA8Unorm,
		MipLevelCount: 1,
		SampleCount:   1,
	})
	if err != nil {
		return err
	}

	view, err := tex.CreateView(nil)
	if err != nil {
		tex.Release()
		return err
	}

	bindGroup, err := b.device.CreateBindGroup(&wgpu.BindGroupDescriptor{
		Label:  "Effect Bind Group",
		Layout: b.bindGroupLayout,
		Entries: []wgpu.BindGroupEntry{
			{
				Binding:     0,
				TextureView: view,
			},
			{
				Binding: 1,
				Sampler: b.sampler,
			},
			{
				Binding: 2,
				Buffer:  b.uniformBuffer,
				Offset:  0,
				Size:    wgpu.WholeSize,
			},
		},
	})
	if err != nil {
		view.Release()
		tex.Release()
		return err
	}

	b.videoTexture = tex
	b.videoView = view
	b.bindGroup = bindGroup
	b.videoWidth = width
	b.videoHeight = height
	return nil
}

func (b *wgpuRendererBackendImpl) BeginFrame() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	// If a previous frame's surface texture is still held, avoid acquiring
	// another one. This prevents wgpu-native validation errors like
	// "Surface image is already acquired" when frames overlap.
	if b.frameSurface != nil {
		return fmt.Errorf("previous frame surface not yet presented")
	}

	// Uniforms for the frame are written before the pass begins, in the same
	// step that binds the pipeline below. A frame can therefore never mix a
	// newly-bound program with the previous program's parameter values.
	b.queue.WriteBuffer(b.uniformBuffer, 0, b.constants.Marshal())

	surfaceTexture, err := b.surface.GetCurrentTexture()
	if err != nil {
		return err
	}

	view, err := surfaceTexture.CreateView(nil)
	if err != nil {
		surfaceTexture.Release()
		return err
	}

	encoder, err := b.device.CreateCommandEncoder(nil)
	if err != nil {
		view.Release()
		surfaceTexture.Release()
		return err
	}

	b.renderPassDescriptor.ColorAttachments[0].View = view
	pass := encoder.BeginRenderPass(b.renderPassDescriptor)

	pipeline := b.passthroughPipeline
	if b.activePipeline != nil {
		pipeline = b.activePipeline.pipeline
	}
	pass.SetPipeline(pipeline)
	pass.SetBindGroup(0, b.bindGroup, nil)

	b.frameEncoder = encoder
	b.framePass = pass
	b.frameSurface = surfaceTexture
	b.frameView = view

	return nil
}

func (b *wgpuRendererBackendImpl) Draw() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.framePass == nil {
		return
	}
	b.framePass.Draw(3, 1, 0, 0)
}

func (b *wgpuRendererBackendImpl) EndFrame() {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.framePass.End()

	commandBuffer, err := b.frameEncoder.Finish(nil)
	if err != nil {
		b.frameEncoder.Release()
		b.frameView.Release()
		b.frameSurface.Release()
		b.frameEncoder = nil
		b.framePass = nil
		b.frameSurface = nil
		b.frameView = nil
		return
	}

	b.queue.Submit(commandBuffer)

	commandBuffer.Release()
	b.frameEncoder.Release()
	b.frameEncoder = nil
	b.framePass = nil
}

func (b *wgpuRendererBackendImpl) Present() {
	b.mu.Lock()
	defer b.mu.Unlock()

	// If no frame surface is held, nothing to present.
	if b.frameSurface == nil {
		return
	}

	// Present the acquired surface image and release local references.
	b.surface.Present()

	if b.frameView != nil {
		b.frameView.Release()
		b.frameView = nil
	}
	if b.frameSurface != nil {
		b.frameSurface.Release()
		b.frameSurface = nil
	}
}

func (b *wgpuRendererBackendImpl) Device() *wgpu.Device {
	return b.device
}

func (b *wgpuRendererBackendImpl) Queue() *wgpu.Queue {
	return b.queue
}

func (b *wgpuRendererBackendImpl) Instance() *wgpu.Instance {
	return b.instance
}

func (b *wgpuRendererBackendImpl) Adapter() *wgpu.Adapter {
	return b.adapter
}

func (b *wgpuRendererBackendImpl) Surface() *wgpu.Surface {
	return b.surface
}
