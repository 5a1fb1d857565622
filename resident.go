package g3d

import (
	"fmt"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"
)

// uploadGeometry makes g resident on r, moving it from another renderer if
// needed.
func (r *Renderer) uploadGeometry(g *Geometry) error {
	if g.gpu != nil && g.gpu.owner == r && !g.NeedsUpdate {
		return nil
	}
	if g.gpu != nil {
		g.gpu.owner.releaseGeometry(g)
	}
	data := g.buildVertices()
	if len(data) == 0 {
		g.NeedsUpdate = false
		return nil
	}
	buf, err := r.createAndUploadBuffer(r.opts.label+"_vertices", data,
		gputypes.BufferUsageVertex|gputypes.BufferUsageCopyDst)
	if err != nil {
		return fmt.Errorf("upload geometry %q: %w", g.Name, err)
	}
	g.gpu = &geometryGPU{owner: r, vertBuf: buf, vertCount: uint32(len(data) / vertexStride)}
	g.NeedsUpdate = false
	r.geometries[g] = struct{}{}
	Logger().Debug("g3d: geometry uploaded", "name", g.Name, "vertices", g.gpu.vertCount)
	return nil
}

func (r *Renderer) releaseGeometry(g *Geometry) {
	if g.gpu == nil || g.gpu.owner != r {
		return
	}
	r.gpu.device.DestroyBuffer(g.gpu.vertBuf)
	g.gpu = nil
	delete(r.geometries, g)
	Logger().Debug("g3d: geometry released", "name", g.Name)
}

// uploadTexture makes t resident on r and uploads its image when new or
// flagged with NeedsUpdate.
func (r *Renderer) uploadTexture(t *Texture) error {
	if t.gpu != nil && t.gpu.owner == r && !t.NeedsUpdate {
		return nil
	}
	img, ok := t.rgba()
	if !ok {
		return fmt.Errorf("upload texture %q: no image", t.Name)
	}
	w, h := uint32(img.Bounds().Dx()), uint32(img.Bounds().Dy())

	if t.gpu != nil && (t.gpu.owner != r || t.gpu.width != w || t.gpu.height != h) {
		t.gpu.owner.releaseTexture(t)
	}
	if t.gpu == nil {
		tex, err := r.gpu.device.CreateTexture(&hal.TextureDescriptor{
			Label:         r.opts.label + "_map",
			Size:          hal.Extent3D{Width: w, Height: h, DepthOrArrayLayers: 1},
			MipLevelCount: 1,
			SampleCount:   1,
			Dimension:     gputypes.TextureDimension2D,
			Format:        gputypes.TextureFormatRGBA8Unorm,
			Usage:         gputypes.TextureUsageTextureBinding | gputypes.TextureUsageCopyDst,
		})
		if err != nil {
			return fmt.Errorf("upload texture %q: create texture: %w", t.Name, err)
		}
		view, err := r.gpu.device.CreateTextureView(tex, &hal.TextureViewDescriptor{
			Label: r.opts.label + "_map_view",
		})
		if err != nil {
			r.gpu.device.DestroyTexture(tex)
			return fmt.Errorf("upload texture %q: create view: %w", t.Name, err)
		}
		r.textureGen++
		t.gpu = &textureGPU{owner: r, tex: tex, view: view, width: w, height: h, gen: r.textureGen}
		r.textures[t] = struct{}{}
	}

	r.gpu.queue.WriteTexture(
		&hal.ImageCopyTexture{
			Texture:  t.gpu.tex,
			MipLevel: 0,
		},
		img.Pix,
		&hal.ImageDataLayout{
			Offset:       0,
			BytesPerRow:  w * 4,
			RowsPerImage: h,
		},
		&hal.Extent3D{Width: w, Height: h, DepthOrArrayLayers: 1},
	)
	t.NeedsUpdate = false
	Logger().Debug("g3d: texture uploaded", "name", t.Name, "width", w, "height", h)
	return nil
}

func (r *Renderer) releaseTexture(t *Texture) {
	if t.gpu == nil || t.gpu.owner != r {
		return
	}
	r.gpu.device.DestroyTextureView(t.gpu.view)
	r.gpu.device.DestroyTexture(t.gpu.tex)
	t.gpu = nil
	delete(r.textures, t)
	Logger().Debug("g3d: texture released", "name", t.Name)
}

// uploadMaterial makes m resident on r. The bind group is rebuilt when the
// base color map changes; the parameters are rewritten on NeedsUpdate.
func (r *Renderer) uploadMaterial(m *Material) error {
	mapTex := r.whiteMap
	if m.Map != nil && m.Map.Image != nil {
		mapTex = m.Map
	}
	if err := r.uploadTexture(mapTex); err != nil {
		return err
	}

	if m.gpu != nil && m.gpu.owner != r {
		m.gpu.owner.releaseMaterial(m)
	}
	if m.gpu == nil {
		buf, err := r.gpu.device.CreateBuffer(&hal.BufferDescriptor{
			Label: r.opts.label + "_material_uniform",
			Size:  materialUniformSize,
			Usage: gputypes.BufferUsageUniform | gputypes.BufferUsageCopyDst,
		})
		if err != nil {
			return fmt.Errorf("upload material %q: %w", m.Name, err)
		}
		m.gpu = &materialGPU{owner: r, uniformBuf: buf}
		m.NeedsUpdate = true
		r.materials[m] = struct{}{}
		Logger().Debug("g3d: material uploaded", "name", m.Name)
	}

	if m.gpu.bindGroup == nil || m.gpu.boundMap != mapTex || m.gpu.boundGen != mapTex.gpu.gen {
		if m.gpu.bindGroup != nil {
			r.gpu.device.DestroyBindGroup(m.gpu.bindGroup)
			m.gpu.bindGroup = nil
		}
		bg, err := r.gpu.device.CreateBindGroup(&hal.BindGroupDescriptor{
			Label:  r.opts.label + "_material_bind",
			Layout: r.pipeline.materialLayout,
			Entries: []gputypes.BindGroupEntry{
				{Binding: 0, Resource: gputypes.BufferBinding{
					Buffer: m.gpu.uniformBuf.NativeHandle(), Offset: 0, Size: materialUniformSize,
				}},
				{Binding: 1, Resource: gputypes.TextureViewBinding{
					TextureView: mapTex.gpu.view.NativeHandle(),
				}},
				{Binding: 2, Resource: gputypes.SamplerBinding{
					Sampler: r.pipeline.sampler.NativeHandle(),
				}},
			},
		})
		if err != nil {
			return fmt.Errorf("upload material %q: create bind group: %w", m.Name, err)
		}
		m.gpu.bindGroup = bg
		m.gpu.boundMap = mapTex
		m.gpu.boundGen = mapTex.gpu.gen
	}

	if m.NeedsUpdate {
		r.gpu.queue.WriteBuffer(m.gpu.uniformBuf, 0, m.uniformData())
		m.NeedsUpdate = false
	}
	return nil
}

func (r *Renderer) releaseMaterial(m *Material) {
	if m.gpu == nil || m.gpu.owner != r {
		return
	}
	if m.gpu.bindGroup != nil {
		r.gpu.device.DestroyBindGroup(m.gpu.bindGroup)
	}
	r.gpu.device.DestroyBuffer(m.gpu.uniformBuf)
	m.gpu = nil
	delete(r.materials, m)
	Logger().Debug("g3d: material released", "name", m.Name)
}
