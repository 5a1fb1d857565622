package postfx

import (
	"github.com/gogpu/g3d"
)

// RenderPass draws a scene. It ignores the previous result and is normally
// the first pass of a chain.
type RenderPass struct {
	Toggle

	Scene  *g3d.Scene
	Camera *g3d.Camera

	// OverrideMaterial, when set, replaces the material of every mesh.
	OverrideMaterial *g3d.Material
}

// NewRenderPass creates a pass drawing scene from camera.
func NewRenderPass(scene *g3d.Scene, camera *g3d.Camera) *RenderPass {
	return &RenderPass{Scene: scene, Camera: camera}
}

// Render implements Pass.
func (p *RenderPass) Render(r *g3d.Renderer, dst, _ *g3d.RenderTarget) error {
	prev := r.RenderTarget()
	r.SetRenderTarget(dst)
	defer r.SetRenderTarget(prev)

	if p.OverrideMaterial != nil {
		return r.RenderOverride(p.Scene, p.Camera, nil, p.OverrideMaterial)
	}
	return r.Render(p.Scene, p.Camera)
}

// SetSize implements Pass. The scene is drawn at the target size.
func (p *RenderPass) SetSize(width, height int) error { return nil }

// Dispose implements Pass. A render pass holds no GPU resources.
func (p *RenderPass) Dispose() {}
