package postfx

import (
	"encoding/binary"
	"fmt"
	"math"
	"time"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"

	"github.com/gogpu/g3d"
)

// OutlinePass draws an outline around the selected objects.
//
// The selected meshes are rendered into a half resolution mask with a flat
// override material. Edges of the mask are detected into a second half
// resolution target and added over the previous result. Edges outside the
// selection silhouette use VisibleEdgeColor, edges inside it
// HiddenEdgeColor.
//
// GPU resources are created on the first Render and held until Dispose.
type OutlinePass struct {
	Toggle

	Scene  *g3d.Scene
	Camera *g3d.Camera

	// SelectedObjects are outlined together with their descendants.
	SelectedObjects []*g3d.Node

	EdgeStrength     float32
	EdgeGlow         float32
	EdgeThickness    float32
	VisibleEdgeColor g3d.Color
	HiddenEdgeColor  g3d.Color
	// PulsePeriod makes the edge strength oscillate with this period.
	// Zero disables pulsing.
	PulsePeriod time.Duration

	width, height int
	start         time.Time

	owner        *g3d.Renderer
	quad         *quadPipeline
	params       hal.Buffer
	mask         *g3d.RenderTarget
	edges        *g3d.RenderTarget
	maskMaterial *g3d.Material
	untrack      func()
}

// NewOutlinePass creates an outline pass for a viewport of the given size.
func NewOutlinePass(width, height int, scene *g3d.Scene, camera *g3d.Camera) *OutlinePass {
	return &OutlinePass{
		Scene:            scene,
		Camera:           camera,
		EdgeStrength:     3,
		EdgeGlow:         0,
		EdgeThickness:    1,
		VisibleEdgeColor: g3d.White,
		HiddenEdgeColor:  g3d.RGB(0.1, 0.04, 0.02),
		width:            max(width, 1),
		height:           max(height, 1),
		start:            time.Now(),
	}
}

// maskSize returns the half resolution size of the mask targets.
func (p *OutlinePass) maskSize() (int, int) {
	return max(p.width/2, 1), max(p.height/2, 1)
}

// SetSize implements Pass.
func (p *OutlinePass) SetSize(width, height int) error {
	if width <= 0 || height <= 0 {
		return fmt.Errorf("%w: %dx%d", g3d.ErrInvalidSize, width, height)
	}
	p.width, p.height = width, height
	if p.mask == nil {
		return nil
	}
	mw, mh := p.maskSize()
	if err := p.mask.SetSize(mw, mh); err != nil {
		return err
	}
	return p.edges.SetSize(mw, mh)
}

// selected reports whether n or one of its ancestors is selected.
func (p *OutlinePass) selected(set map[*g3d.Node]struct{}) func(*g3d.Node) bool {
	return func(n *g3d.Node) bool {
		for ; n != nil; n = n.Parent() {
			if _, ok := set[n]; ok {
				return true
			}
		}
		return false
	}
}

func (p *OutlinePass) init(r *g3d.Renderer) error {
	if p.owner == r && p.quad != nil {
		return nil
	}
	p.release()
	if r.Disposed() {
		return g3d.ErrRendererDisposed
	}

	quad, err := newQuadPipeline(r, "outline")
	if err != nil {
		return err
	}
	p.quad = quad
	p.owner = r
	p.untrack = r.OnDispose(p.release)

	p.params, err = r.Device().CreateBuffer(&hal.BufferDescriptor{
		Label: "outline_params",
		Size:  paramsSize,
		Usage: gputypes.BufferUsageUniform | gputypes.BufferUsageCopyDst,
	})
	if err != nil {
		p.release()
		return fmt.Errorf("create outline params: %w", err)
	}

	mw, mh := p.maskSize()
	if p.mask, err = r.NewRenderTarget(mw, mh); err != nil {
		p.release()
		return err
	}
	if p.edges, err = r.NewRenderTarget(mw, mh); err != nil {
		p.release()
		return err
	}

	// Unlit white: the emissive term is the whole output.
	p.maskMaterial = g3d.NewStandardMaterial()
	p.maskMaterial.Name = "outline_mask"
	p.maskMaterial.Color = g3d.Black
	p.maskMaterial.Emissive = g3d.White
	p.maskMaterial.Side = g3d.DoubleSide
	return nil
}

// Render implements Pass.
func (p *OutlinePass) Render(r *g3d.Renderer, dst, src *g3d.RenderTarget) error {
	if err := p.init(r); err != nil {
		return err
	}

	set := make(map[*g3d.Node]struct{}, len(p.SelectedObjects))
	for _, n := range p.SelectedObjects {
		if n != nil {
			set[n] = struct{}{}
		}
	}
	prev := r.RenderTarget()
	r.SetRenderTarget(p.mask)
	err := r.RenderOverride(p.Scene, p.Camera, p.selected(set), p.maskMaterial)
	r.SetRenderTarget(prev)
	if err != nil {
		return fmt.Errorf("outline mask: %w", err)
	}

	r.Queue().WriteBuffer(p.params, 0, p.paramsData(time.Since(p.start)))

	return encode(r, "outline", func(encoder hal.CommandEncoder) ([]hal.BindGroup, error) {
		var groups []hal.BindGroup
		bg, err := p.quad.draw(encoder, entryEdge, p.edges, p.mask.ColorView(), nil, p.params)
		if err != nil {
			return groups, err
		}
		groups = append(groups, bg)
		bg, err = p.quad.draw(encoder, entryComposite, dst, src.ColorView(), p.edges.ColorView(), p.params)
		if err != nil {
			return groups, err
		}
		return append(groups, bg), nil
	})
}

// pulse returns the strength multiplier at elapsed.
func (p *OutlinePass) pulse(elapsed time.Duration) float32 {
	if p.PulsePeriod <= 0 {
		return 1
	}
	phase := 2 * math.Pi * elapsed.Seconds() / p.PulsePeriod.Seconds()
	return float32(0.5 + 0.5*math.Cos(phase))
}

// paramsData packs Params of fullscreen.wgsl.
func (p *OutlinePass) paramsData(elapsed time.Duration) []byte {
	mw, mh := p.maskSize()
	values := [16]float32{
		p.VisibleEdgeColor.R, p.VisibleEdgeColor.G, p.VisibleEdgeColor.B, p.EdgeStrength,
		p.HiddenEdgeColor.R, p.HiddenEdgeColor.G, p.HiddenEdgeColor.B, p.EdgeThickness,
		1 / float32(mw), 1 / float32(mh), p.EdgeGlow, p.pulse(elapsed),
	}
	buf := make([]byte, paramsSize)
	for i, v := range values {
		binary.LittleEndian.PutUint32(buf[4*i:], math.Float32bits(v))
	}
	return buf
}

func (p *OutlinePass) release() {
	if p.untrack != nil {
		p.untrack()
		p.untrack = nil
	}
	if p.maskMaterial != nil {
		p.maskMaterial.Dispose()
		p.maskMaterial = nil
	}
	p.mask.Dispose()
	p.edges.Dispose()
	p.mask, p.edges = nil, nil
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

// Dispose implements Pass. The pass can render again afterwards.
func (p *OutlinePass) Dispose() {
	p.release()
}
