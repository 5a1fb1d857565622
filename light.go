package g3d

import "golang.org/x/image/math/f32"

// LightKind selects how a light contributes to shading.
type LightKind uint8

const (
	// AmbientLight lights every surface uniformly.
	AmbientLight LightKind = iota

	// DirectionalLight shines parallel rays from its position toward Target.
	DirectionalLight
)

// String returns the kind name.
func (k LightKind) String() string {
	switch k {
	case AmbientLight:
		return "ambient"
	case DirectionalLight:
		return "directional"
	default:
		return "unknown"
	}
}

// Light is a light node.
type Light struct {
	*Node

	Kind      LightKind
	Color     Color
	Intensity float32

	// Target is the world-space point a directional light shines at.
	Target f32.Vec3

	CastShadow bool
	Shadow     ShadowConfig
}

// ShadowConfig describes the shadow map of a light that casts shadows.
// The forward pipeline records it but does not render shadow maps.
type ShadowConfig struct {
	MapWidth  int
	MapHeight int
	Bias      float32
}

// NewAmbientLight creates an ambient light node.
func NewAmbientLight(color Color, intensity float32) *Light {
	return newLight("ambient_light", AmbientLight, color, intensity)
}

// NewDirectionalLight creates a directional light node shining at the origin.
func NewDirectionalLight(color Color, intensity float32) *Light {
	l := newLight("directional_light", DirectionalLight, color, intensity)
	l.Position = f32.Vec3{0, 1, 0}
	l.Shadow = ShadowConfig{MapWidth: 512, MapHeight: 512}
	return l
}

func newLight(name string, kind LightKind, color Color, intensity float32) *Light {
	l := &Light{
		Node:      NewNode(name),
		Kind:      kind,
		Color:     color,
		Intensity: intensity,
	}
	l.Node.Light = l
	return l
}

// Direction returns the unit vector from the target toward the light.
func (l *Light) Direction() f32.Vec3 {
	d := sub3(l.WorldPosition(), l.Target)
	if length3(d) == 0 {
		return f32.Vec3{0, 1, 0}
	}
	return normalize3(d)
}

// CreateBasicLights adds a soft ambient light and a shadow-casting
// directional key light to scene and returns them. A nil scene is a no-op.
func CreateBasicLights(scene *Scene) (ambient, directional *Light) {
	if scene == nil {
		return nil, nil
	}
	ambient = NewAmbientLight(Hex(0x404040), 0.6)

	directional = NewDirectionalLight(Hex(0xffffff), 1)
	directional.Position = f32.Vec3{5, 10, 7.5}
	directional.CastShadow = true
	directional.Shadow.MapWidth = 2048
	directional.Shadow.MapHeight = 2048

	// Neither light can be an ancestor of the scene, so Add cannot fail.
	_ = scene.Add(ambient.Node, directional.Node)
	return ambient, directional
}
