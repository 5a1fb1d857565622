package g3d

import (
	"github.com/gogpu/wgpu/hal"
)

// Side selects which faces of a material are drawn.
type Side uint8

const (
	// FrontSide draws counter-clockwise faces.
	FrontSide Side = iota
	// BackSide draws clockwise faces.
	BackSide
	// DoubleSide draws both.
	DoubleSide
)

// materialUniformSize is the size of MaterialUniforms in mesh.wgsl.
const materialUniformSize = 48

// Material is a metallic-roughness surface description.
//
// A material may be shared by several meshes. It becomes resident on a
// renderer the first time it is drawn; set NeedsUpdate after changing its
// fields so the next render rewrites its GPU parameters.
type Material struct {
	disposeEvents

	Name      string
	Color     Color
	Emissive  Color
	Metalness float32
	Roughness float32
	Opacity   float32

	// Transparent enables alpha blending. Transparent meshes are drawn
	// after opaque ones.
	Transparent bool
	Side        Side
	DepthWrite  bool
	Visible     bool

	// Map is the base color texture. Disposing the material does not
	// dispose the texture.
	Map *Texture

	NeedsUpdate bool

	gpu *materialGPU
}

// materialGPU is the renderer-side state of a resident material.
type materialGPU struct {
	owner      *Renderer
	uniformBuf hal.Buffer
	bindGroup  hal.BindGroup
	boundMap   *Texture
	boundGen   uint64
}

// NewStandardMaterial creates an opaque white, fully rough material.
func NewStandardMaterial() *Material {
	return &Material{
		Color:      White,
		Emissive:   Black,
		Metalness:  0,
		Roughness:  1,
		Opacity:    1,
		DepthWrite: true,
		Visible:    true,
	}
}

// Resident reports whether the material currently holds GPU resources.
func (m *Material) Resident() bool {
	return m.gpu != nil
}

// Dispose releases the material's GPU resources. The material stays
// usable. Listeners registered with OnDispose run on every call.
func (m *Material) Dispose() {
	if m.gpu != nil {
		m.gpu.owner.releaseMaterial(m)
	}
	m.dispatchDispose()
}

// uniformData packs MaterialUniforms.
func (m *Material) uniformData() []byte {
	alpha := float32(1)
	if m.Transparent {
		alpha = clampUnit(m.Opacity)
	}
	buf := make([]byte, materialUniformSize)
	putFloats(buf[0:], m.Color.R, m.Color.G, m.Color.B, alpha)
	putFloats(buf[16:], m.Emissive.R, m.Emissive.G, m.Emissive.B, 0)
	putFloats(buf[32:], clampUnit(m.Metalness), clampUnit(m.Roughness), 0, 0)
	return buf
}
