package g3d

import (
	_ "embed"
	"fmt"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"

	"github.com/gogpu/g3d/internal/shader"
)

//go:embed shaders/mesh.wgsl
var meshShaderSource string

// objectUniformSize is the size of ObjectUniforms in mesh.wgsl:
// mvp, model (2 x 64) + ambient, light_dir, light_color, camera_pos (4 x 16).
const objectUniformSize = 192

// pipelineKey identifies a render pipeline variant.
type pipelineKey struct {
	format     gputypes.TextureFormat
	samples    uint32
	side       Side
	blend      bool
	depthWrite bool
}

// meshPipeline owns the forward mesh shader, its layouts and the render
// pipeline variants created for it.
type meshPipeline struct {
	device hal.Device

	shader         hal.ShaderModule
	objectLayout   hal.BindGroupLayout
	materialLayout hal.BindGroupLayout
	pipeLayout     hal.PipelineLayout
	sampler        hal.Sampler

	pipelines map[pipelineKey]hal.RenderPipeline
}

func newMeshPipeline(device hal.Device, variant gputypes.Backend, label string) (*meshPipeline, error) {
	p := &meshPipeline{device: device, pipelines: make(map[pipelineKey]hal.RenderPipeline)}
	if err := p.create(variant, label); err != nil {
		p.destroy()
		return nil, err
	}
	return p, nil
}

// create compiles the mesh shader and creates the layouts and sampler.
func (p *meshPipeline) create(variant gputypes.Backend, label string) error {
	module, err := shader.CreateModule(p.device, variant, label+"_mesh_shader", meshShaderSource)
	if err != nil {
		return err
	}
	p.shader = module

	objectLayout, err := p.device.CreateBindGroupLayout(&hal.BindGroupLayoutDescriptor{
		Label: label + "_object_layout",
		Entries: []gputypes.BindGroupLayoutEntry{
			{
				Binding:    0,
				Visibility: gputypes.ShaderStageVertex | gputypes.ShaderStageFragment,
				Buffer:     &gputypes.BufferBindingLayout{Type: gputypes.BufferBindingTypeUniform},
			},
		},
	})
	if err != nil {
		return fmt.Errorf("create object bind group layout: %w", err)
	}
	p.objectLayout = objectLayout

	// Binding 0: MaterialUniforms, 1: base color map, 2: sampler.
	materialLayout, err := p.device.CreateBindGroupLayout(&hal.BindGroupLayoutDescriptor{
		Label: label + "_material_layout",
		Entries: []gputypes.BindGroupLayoutEntry{
			{
				Binding:    0,
				Visibility: gputypes.ShaderStageFragment,
				Buffer:     &gputypes.BufferBindingLayout{Type: gputypes.BufferBindingTypeUniform},
			},
			{
				Binding:    1,
				Visibility: gputypes.ShaderStageFragment,
				Texture: &gputypes.TextureBindingLayout{
					SampleType:    gputypes.TextureSampleTypeFloat,
					ViewDimension: gputypes.TextureViewDimension2D,
				},
			},
			{
				Binding:    2,
				Visibility: gputypes.ShaderStageFragment,
				Sampler:    &gputypes.SamplerBindingLayout{Type: gputypes.SamplerBindingTypeFiltering},
			},
		},
	})
	if err != nil {
		return fmt.Errorf("create material bind group layout: %w", err)
	}
	p.materialLayout = materialLayout

	pipeLayout, err := p.device.CreatePipelineLayout(&hal.PipelineLayoutDescriptor{
		Label:            label + "_mesh_pipe_layout",
		BindGroupLayouts: []hal.BindGroupLayout{p.objectLayout, p.materialLayout},
	})
	if err != nil {
		return fmt.Errorf("create mesh pipeline layout: %w", err)
	}
	p.pipeLayout = pipeLayout

	sampler, err := p.device.CreateSampler(&hal.SamplerDescriptor{
		Label:        label + "_linear_sampler",
		AddressModeU: gputypes.AddressModeRepeat,
		AddressModeV: gputypes.AddressModeRepeat,
		AddressModeW: gputypes.AddressModeClampToEdge,
		MagFilter:    gputypes.FilterModeLinear,
		MinFilter:    gputypes.FilterModeLinear,
		MipmapFilter: gputypes.FilterModeLinear,
	})
	if err != nil {
		return fmt.Errorf("create sampler: %w", err)
	}
	p.sampler = sampler
	return nil
}

// pipeline returns the variant for key, creating it on first use.
func (p *meshPipeline) pipeline(key pipelineKey) (hal.RenderPipeline, error) {
	if rp, ok := p.pipelines[key]; ok {
		return rp, nil
	}

	cull := gputypes.CullModeBack
	switch key.side {
	case BackSide:
		cull = gputypes.CullModeFront
	case DoubleSide:
		cull = gputypes.CullModeNone
	}

	var blend *gputypes.BlendState
	if key.blend {
		premul := gputypes.BlendStatePremultiplied()
		blend = &premul
	}

	rp, err := p.device.CreateRenderPipeline(&hal.RenderPipelineDescriptor{
		Label:  "mesh_pipeline",
		Layout: p.pipeLayout,
		Vertex: hal.VertexState{
			Module:     p.shader,
			EntryPoint: "vs_main",
			Buffers:    meshVertexLayout(),
		},
		Fragment: &hal.FragmentState{
			Module:     p.shader,
			EntryPoint: "fs_main",
			Targets: []gputypes.ColorTargetState{
				{
					Format:    key.format,
					Blend:     blend,
					WriteMask: gputypes.ColorWriteMaskAll,
				},
			},
		},
		DepthStencil: &hal.DepthStencilState{
			Format:            gputypes.TextureFormatDepth24PlusStencil8,
			DepthWriteEnabled: key.depthWrite,
			DepthCompare:      gputypes.CompareFunctionLess,
			StencilFront: hal.StencilFaceState{
				Compare:     gputypes.CompareFunctionAlways,
				FailOp:      hal.StencilOperationKeep,
				DepthFailOp: hal.StencilOperationKeep,
				PassOp:      hal.StencilOperationKeep,
			},
			StencilBack: hal.StencilFaceState{
				Compare:     gputypes.CompareFunctionAlways,
				FailOp:      hal.StencilOperationKeep,
				DepthFailOp: hal.StencilOperationKeep,
				PassOp:      hal.StencilOperationKeep,
			},
			StencilReadMask:  0x00,
			StencilWriteMask: 0x00,
		},
		Primitive: gputypes.PrimitiveState{
			Topology: gputypes.PrimitiveTopologyTriangleList,
			CullMode: cull,
		},
		Multisample: gputypes.MultisampleState{
			Count: key.samples,
			Mask:  0xFFFFFFFF,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("create mesh pipeline: %w", err)
	}
	p.pipelines[key] = rp
	return rp, nil
}

// destroy releases all pipeline resources in reverse creation order.
func (p *meshPipeline) destroy() {
	if p.device == nil {
		return
	}
	for key, rp := range p.pipelines {
		p.device.DestroyRenderPipeline(rp)
		delete(p.pipelines, key)
	}
	if p.sampler != nil {
		p.device.DestroySampler(p.sampler)
		p.sampler = nil
	}
	if p.pipeLayout != nil {
		p.device.DestroyPipelineLayout(p.pipeLayout)
		p.pipeLayout = nil
	}
	if p.materialLayout != nil {
		p.device.DestroyBindGroupLayout(p.materialLayout)
		p.materialLayout = nil
	}
	if p.objectLayout != nil {
		p.device.DestroyBindGroupLayout(p.objectLayout)
		p.objectLayout = nil
	}
	if p.shader != nil {
		p.device.DestroyShaderModule(p.shader)
		p.shader = nil
	}
}

// meshVertexLayout returns the vertex buffer layout of the mesh pipeline.
func meshVertexLayout() []gputypes.VertexBufferLayout {
	return []gputypes.VertexBufferLayout{
		{
			ArrayStride: vertexStride,
			StepMode:    gputypes.VertexStepModeVertex,
			Attributes: []gputypes.VertexAttribute{
				{Format: gputypes.VertexFormatFloat32x3, Offset: 0, ShaderLocation: 0},  // position
				{Format: gputypes.VertexFormatFloat32x3, Offset: 12, ShaderLocation: 1}, // normal
				{Format: gputypes.VertexFormatFloat32x2, Offset: 24, ShaderLocation: 2}, // uv
			},
		},
	}
}
