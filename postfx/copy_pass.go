package postfx

import (
	"fmt"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"

	"github.com/gogpu/g3d"
)

// CopyPass copies the previous result unchanged. It is useful as a last
// pass when the passes before it should keep writing offscreen.
type CopyPass struct {
	Toggle

	owner   *g3d.Renderer
	quad    *quadPipeline
	params  hal.Buffer
	untrack func()
}

// NewCopyPass creates a copy pass.
func NewCopyPass() *CopyPass {
	return &CopyPass{}
}

func (p *CopyPass) init(r *g3d.Renderer) error {
	if p.owner == r && p.quad != nil {
		return nil
	}
	p.Dispose()
	if r.Disposed() {
		return g3d.ErrRendererDisposed
	}

	quad, err := newQuadPipeline(r, "copy")
	if err != nil {
		return err
	}
	p.quad, p.owner = quad, r
	p.untrack = r.OnDispose(p.Dispose)
	p.params, err = r.Device().CreateBuffer(&hal.BufferDescriptor{
		Label: "copy_params",
		Size:  paramsSize,
		Usage: gputypes.BufferUsageUniform | gputypes.BufferUsageCopyDst,
	})
	if err != nil {
		p.Dispose()
		return fmt.Errorf("create copy params: %w", err)
	}
	return nil
}

// Render implements Pass.
func (p *CopyPass) Render(r *g3d.Renderer, dst, src *g3d.RenderTarget) error {
	if err := p.init(r); err != nil {
		return err
	}
	return encode(r, "copy", func(encoder hal.CommandEncoder) ([]hal.BindGroup, error) {
		bg, err := p.quad.draw(encoder, entryCopy, dst, src.ColorView(), nil, p.params)
		if err != nil {
			return nil, err
		}
		return []hal.BindGroup{bg}, nil
	})
}

// SetSize implements Pass.
func (p *CopyPass) SetSize(width, height int) error { return nil }

// Dispose implements Pass.
func (p *CopyPass) Dispose() {
	if p.untrack != nil {
		p.untrack()
		p.untrack = nil
	}
	if p.params != nil {
		p.owner.Device().DestroyBuffer(p.params)
		p.params = nil
	}
	if p.quad != nil {
		p.quad.destroy()
		p.quad = nil
	}
	p.owner = nil
}
