package g3d

import (
	"fmt"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"
)

// RenderTarget is an offscreen color + depth/stencil attachment set.
//
// With multisampling the frame is drawn into a 4x MSAA color texture and
// resolved into the single-sampled color texture; without it the color
// texture is drawn directly:
//   - MSAA color: samples x N, output format, RenderAttachment
//   - Depth/stencil: samples x N, Depth24PlusStencil8, RenderAttachment
//   - Color: 1 sample, output format, RenderAttachment | CopySrc | TextureBinding
type RenderTarget struct {
	device  hal.Device
	label   string
	format  gputypes.TextureFormat
	samples uint32

	msaaTex   hal.Texture
	msaaView  hal.TextureView
	depthTex  hal.Texture
	depthView hal.TextureView
	colorTex  hal.Texture
	colorView hal.TextureView

	width  uint32
	height uint32

	untrack func()
}

func newRenderTarget(device hal.Device, label string, format gputypes.TextureFormat, samples uint32, w, h int) (*RenderTarget, error) {
	t := &RenderTarget{device: device, label: label, format: format, samples: samples}
	if err := t.SetSize(w, h); err != nil {
		return nil, err
	}
	return t, nil
}

// Size returns the target size in pixels.
func (t *RenderTarget) Size() (width, height int) {
	return int(t.width), int(t.height)
}

// Format returns the color format.
func (t *RenderTarget) Format() gputypes.TextureFormat { return t.format }

// SampleCount returns the number of samples per pixel of the draw
// attachments.
func (t *RenderTarget) SampleCount() uint32 { return t.samples }

// ColorTexture returns the single-sampled color texture holding the last
// rendered frame.
func (t *RenderTarget) ColorTexture() hal.Texture { return t.colorTex }

// ColorView returns a view of ColorTexture.
func (t *RenderTarget) ColorView() hal.TextureView { return t.colorView }

// SetSize recreates the textures if the size changed. A no-op when the
// size matches and the textures exist.
func (t *RenderTarget) SetSize(width, height int) error {
	if width <= 0 || height <= 0 {
		return fmt.Errorf("%w: %dx%d", ErrInvalidSize, width, height)
	}
	w, h := uint32(width), uint32(height)
	if t.width == w && t.height == h && t.colorTex != nil {
		return nil
	}
	if t.device == nil {
		return ErrRendererDisposed
	}
	t.destroyTextures()

	size := hal.Extent3D{Width: w, Height: h, DepthOrArrayLayers: 1}

	if t.samples > 1 {
		msaaTex, err := t.device.CreateTexture(&hal.TextureDescriptor{
			Label:         t.label + "_msaa_color",
			Size:          size,
			MipLevelCount: 1,
			SampleCount:   t.samples,
			Dimension:     gputypes.TextureDimension2D,
			Format:        t.format,
			Usage:         gputypes.TextureUsageRenderAttachment,
		})
		if err != nil {
			return fmt.Errorf("create MSAA color texture: %w", err)
		}
		t.msaaTex = msaaTex

		msaaView, err := t.device.CreateTextureView(msaaTex, &hal.TextureViewDescriptor{
			Label: t.label + "_msaa_color_view",
		})
		if err != nil {
			t.destroyTextures()
			return fmt.Errorf("create MSAA color view: %w", err)
		}
		t.msaaView = msaaView
	}

	depthTex, err := t.device.CreateTexture(&hal.TextureDescriptor{
		Label:         t.label + "_depth_stencil",
		Size:          size,
		MipLevelCount: 1,
		SampleCount:   t.samples,
		Dimension:     gputypes.TextureDimension2D,
		Format:        gputypes.TextureFormatDepth24PlusStencil8,
		Usage:         gputypes.TextureUsageRenderAttachment,
	})
	if err != nil {
		t.destroyTextures()
		return fmt.Errorf("create depth/stencil texture: %w", err)
	}
	t.depthTex = depthTex

	depthView, err := t.device.CreateTextureView(depthTex, &hal.TextureViewDescriptor{
		Label: t.label + "_depth_stencil_view",
	})
	if err != nil {
		t.destroyTextures()
		return fmt.Errorf("create depth/stencil view: %w", err)
	}
	t.depthView = depthView

	colorTex, err := t.device.CreateTexture(&hal.TextureDescriptor{
		Label:         t.label + "_color",
		Size:          size,
		MipLevelCount: 1,
		SampleCount:   1,
		Dimension:     gputypes.TextureDimension2D,
		Format:        t.format,
		Usage: gputypes.TextureUsageRenderAttachment | gputypes.TextureUsageCopySrc |
			gputypes.TextureUsageTextureBinding,
	})
	if err != nil {
		t.destroyTextures()
		return fmt.Errorf("create color texture: %w", err)
	}
	t.colorTex = colorTex

	colorView, err := t.device.CreateTextureView(colorTex, &hal.TextureViewDescriptor{
		Label: t.label + "_color_view",
	})
	if err != nil {
		t.destroyTextures()
		return fmt.Errorf("create color view: %w", err)
	}
	t.colorView = colorView

	t.width = w
	t.height = h
	return nil
}

// colorAttachment returns the attachment that draws into the target,
// clearing it when clear is set.
func (t *RenderTarget) colorAttachment(clear bool, value gputypes.Color) hal.RenderPassColorAttachment {
	load := gputypes.LoadOpLoad
	if clear {
		load = gputypes.LoadOpClear
	}
	if t.msaaView != nil {
		return hal.RenderPassColorAttachment{
			View:          t.msaaView,
			ResolveTarget: t.colorView,
			LoadOp:        load,
			StoreOp:       gputypes.StoreOpStore,
			ClearValue:    value,
		}
	}
	return hal.RenderPassColorAttachment{
		View:       t.colorView,
		LoadOp:     load,
		StoreOp:    gputypes.StoreOpStore,
		ClearValue: value,
	}
}

func (t *RenderTarget) depthAttachment() *hal.RenderPassDepthStencilAttachment {
	return &hal.RenderPassDepthStencilAttachment{
		View:              t.depthView,
		DepthLoadOp:       gputypes.LoadOpClear,
		DepthStoreOp:      gputypes.StoreOpDiscard,
		DepthClearValue:   1.0,
		StencilLoadOp:     gputypes.LoadOpClear,
		StencilStoreOp:    gputypes.StoreOpDiscard,
		StencilClearValue: 0,
	}
}

// Dispose releases the target's textures. Safe to call more than once.
func (t *RenderTarget) Dispose() {
	if t == nil || t.device == nil {
		return
	}
	if t.untrack != nil {
		t.untrack()
		t.untrack = nil
	}
	t.destroyTextures()
	t.device = nil
}

// destroyTextures releases all texture resources and resets dimensions.
func (t *RenderTarget) destroyTextures() {
	if t.colorView != nil {
		t.device.DestroyTextureView(t.colorView)
		t.colorView = nil
	}
	if t.colorTex != nil {
		t.device.DestroyTexture(t.colorTex)
		t.colorTex = nil
	}
	if t.depthView != nil {
		t.device.DestroyTextureView(t.depthView)
		t.depthView = nil
	}
	if t.depthTex != nil {
		t.device.DestroyTexture(t.depthTex)
		t.depthTex = nil
	}
	if t.msaaView != nil {
		t.device.DestroyTextureView(t.msaaView)
		t.msaaView = nil
	}
	if t.msaaTex != nil {
		t.device.DestroyTexture(t.msaaTex)
		t.msaaTex = nil
	}
	t.width = 0
	t.height = 0
}
