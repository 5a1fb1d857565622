package postfx

import (
	_ "embed"
	"fmt"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"

	"github.com/gogpu/g3d"
	"github.com/gogpu/g3d/internal/shader"
)

//go:embed shaders/fullscreen.wgsl
var fullscreenShaderSource string

// paramsSize is the size of Params in fullscreen.wgsl.
const paramsSize = 64

// Fragment entry points of fullscreen.wgsl.
const (
	entryEdge      = "fs_edge"
	entryComposite = "fs_composite"
	entryCopy      = "fs_copy"
)

type quadKey struct {
	entry  string
	format gputypes.TextureFormat
}

// quadPipeline draws fullscreen triangles sampling up to two textures.
// Pipelines are created per fragment entry point and target format.
type quadPipeline struct {
	device hal.Device

	shader     hal.ShaderModule
	layout     hal.BindGroupLayout
	pipeLayout hal.PipelineLayout
	sampler    hal.Sampler

	pipelines map[quadKey]hal.RenderPipeline
}

func newQuadPipeline(r *g3d.Renderer, label string) (*quadPipeline, error) {
	q := &quadPipeline{device: r.Device(), pipelines: make(map[quadKey]hal.RenderPipeline)}
	if err := q.create(r.Backend(), label); err != nil {
		q.destroy()
		return nil, err
	}
	return q, nil
}

func (q *quadPipeline) create(variant gputypes.Backend, label string) error {
	module, err := shader.CreateModule(q.device, variant, label+"_shader", fullscreenShaderSource)
	if err != nil {
		return err
	}
	q.shader = module

	texture := func(binding uint32) gputypes.BindGroupLayoutEntry {
		return gputypes.BindGroupLayoutEntry{
			Binding:    binding,
			Visibility: gputypes.ShaderStageFragment,
			Texture: &gputypes.TextureBindingLayout{
				SampleType:    gputypes.TextureSampleTypeFloat,
				ViewDimension: gputypes.TextureViewDimension2D,
			},
		}
	}
	layout, err := q.device.CreateBindGroupLayout(&hal.BindGroupLayoutDescriptor{
		Label: label + "_layout",
		Entries: []gputypes.BindGroupLayoutEntry{
			{
				Binding:    0,
				Visibility: gputypes.ShaderStageFragment,
				Buffer:     &gputypes.BufferBindingLayout{Type: gputypes.BufferBindingTypeUniform},
			},
			texture(1),
			texture(2),
			{
				Binding:    3,
				Visibility: gputypes.ShaderStageFragment,
				Sampler:    &gputypes.SamplerBindingLayout{Type: gputypes.SamplerBindingTypeFiltering},
			},
		},
	})
	if err != nil {
		return fmt.Errorf("create %s bind group layout: %w", label, err)
	}
	q.layout = layout

	pipeLayout, err := q.device.CreatePipelineLayout(&hal.PipelineLayoutDescriptor{
		Label:            label + "_pipe_layout",
		BindGroupLayouts: []hal.BindGroupLayout{q.layout},
	})
	if err != nil {
		return fmt.Errorf("create %s pipeline layout: %w", label, err)
	}
	q.pipeLayout = pipeLayout

	sampler, err := q.device.CreateSampler(&hal.SamplerDescriptor{
		Label:        label + "_sampler",
		AddressModeU: gputypes.AddressModeClampToEdge,
		AddressModeV: gputypes.AddressModeClampToEdge,
		AddressModeW: gputypes.AddressModeClampToEdge,
		MagFilter:    gputypes.FilterModeLinear,
		MinFilter:    gputypes.FilterModeLinear,
		MipmapFilter: gputypes.FilterModeLinear,
	})
	if err != nil {
		return fmt.Errorf("create %s sampler: %w", label, err)
	}
	q.sampler = sampler
	return nil
}

func (q *quadPipeline) pipeline(entry string, format gputypes.TextureFormat) (hal.RenderPipeline, error) {
	key := quadKey{entry: entry, format: format}
	if rp, ok := q.pipelines[key]; ok {
		return rp, nil
	}
	rp, err := q.device.CreateRenderPipeline(&hal.RenderPipelineDescriptor{
		Label:  "postfx_" + entry,
		Layout: q.pipeLayout,
		Vertex: hal.VertexState{
			Module:     q.shader,
			EntryPoint: "vs_main",
		},
		Fragment: &hal.FragmentState{
			Module:     q.shader,
			EntryPoint: entry,
			Targets: []gputypes.ColorTargetState{
				{Format: format, WriteMask: gputypes.ColorWriteMaskAll},
			},
		},
		Primitive: gputypes.PrimitiveState{
			Topology: gputypes.PrimitiveTopologyTriangleList,
			CullMode: gputypes.CullModeNone,
		},
		Multisample: gputypes.MultisampleState{
			Count: 1,
			Mask:  0xFFFFFFFF,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("create %s pipeline: %w", entry, err)
	}
	q.pipelines[key] = rp
	return rp, nil
}

// draw records a fullscreen pass writing the resolved color texture of dst.
// aux may be nil, in which case src is bound twice. The returned bind group
// must be destroyed once the encoder has been submitted.
func (q *quadPipeline) draw(encoder hal.CommandEncoder, entry string, dst *g3d.RenderTarget, src, aux hal.TextureView, params hal.Buffer) (hal.BindGroup, error) {
	rp, err := q.pipeline(entry, dst.Format())
	if err != nil {
		return nil, err
	}
	if aux == nil {
		aux = src
	}
	bg, err := q.device.CreateBindGroup(&hal.BindGroupDescriptor{
		Label:  "postfx_" + entry + "_bind",
		Layout: q.layout,
		Entries: []gputypes.BindGroupEntry{
			{Binding: 0, Resource: gputypes.BufferBinding{
				Buffer: params.NativeHandle(), Offset: 0, Size: paramsSize,
			}},
			{Binding: 1, Resource: gputypes.TextureViewBinding{TextureView: src.NativeHandle()}},
			{Binding: 2, Resource: gputypes.TextureViewBinding{TextureView: aux.NativeHandle()}},
			{Binding: 3, Resource: gputypes.SamplerBinding{Sampler: q.sampler.NativeHandle()}},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("create %s bind group: %w", entry, err)
	}

	pass := encoder.BeginRenderPass(&hal.RenderPassDescriptor{
		Label: "postfx_" + entry,
		ColorAttachments: []hal.RenderPassColorAttachment{{
			View:    dst.ColorView(),
			LoadOp:  gputypes.LoadOpClear,
			StoreOp: gputypes.StoreOpStore,
		}},
	})
	pass.SetPipeline(rp)
	pass.SetBindGroup(0, bg, nil)
	pass.Draw(3, 1, 0, 0)
	pass.End()
	return bg, nil
}

func (q *quadPipeline) destroy() {
	if q.device == nil {
		return
	}
	for key, rp := range q.pipelines {
		q.device.DestroyRenderPipeline(rp)
		delete(q.pipelines, key)
	}
	if q.sampler != nil {
		q.device.DestroySampler(q.sampler)
		q.sampler = nil
	}
	if q.pipeLayout != nil {
		q.device.DestroyPipelineLayout(q.pipeLayout)
		q.pipeLayout = nil
	}
	if q.layout != nil {
		q.device.DestroyBindGroupLayout(q.layout)
		q.layout = nil
	}
	if q.shader != nil {
		q.device.DestroyShaderModule(q.shader)
		q.shader = nil
	}
	q.device = nil
}

// encode runs record on a fresh encoder, submits it through r and
// destroys the bind groups record produced.
func encode(r *g3d.Renderer, label string, record func(hal.CommandEncoder) ([]hal.BindGroup, error)) error {
	device := r.Device()
	encoder, err := device.CreateCommandEncoder(&hal.CommandEncoderDescriptor{Label: label + "_encoder"})
	if err != nil {
		return fmt.Errorf("create command encoder: %w", err)
	}
	if err := encoder.BeginEncoding(label); err != nil {
		return fmt.Errorf("begin encoding: %w", err)
	}
	groups, err := record(encoder)
	defer func() {
		for _, bg := range groups {
			device.DestroyBindGroup(bg)
		}
	}()
	if err != nil {
		encoder.DiscardEncoding()
		return err
	}
	return r.Submit(encoder)
}
