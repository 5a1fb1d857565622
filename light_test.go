package g3d

import (
	"testing"

	"golang.org/x/image/math/f32"
)

func TestCreateBasicLights(t *testing.T) {
	reg := NewRegistry()
	scene := reg.NewScene()
	ambient, directional := CreateBasicLights(scene)

	if ambient == nil || directional == nil {
		t.Fatal("CreateBasicLights returned nil lights")
	}
	if ambient.Parent() != &scene.Node || directional.Parent() != &scene.Node {
		t.Error("lights were not added to the scene")
	}
	if ambient.Kind != AmbientLight || ambient.Color.Hex() != 0x404040 || ambient.Intensity != 0.6 {
		t.Errorf("ambient = %v %06x %v", ambient.Kind, ambient.Color.Hex(), ambient.Intensity)
	}
	if directional.Kind != DirectionalLight || directional.Color.Hex() != 0xffffff || directional.Intensity != 1 {
		t.Errorf("directional = %v %06x %v", directional.Kind, directional.Color.Hex(), directional.Intensity)
	}
	if directional.Position != (f32.Vec3{5, 10, 7.5}) {
		t.Errorf("directional position = %v, want (5, 10, 7.5)", directional.Position)
	}
	if !directional.CastShadow || directional.Shadow.MapWidth != 2048 || directional.Shadow.MapHeight != 2048 {
		t.Errorf("shadow = %v %+v, want 2048x2048 shadow map", directional.CastShadow, directional.Shadow)
	}
	if reg.SceneCount() != 1 || reg.RendererCount() != 0 {
		t.Error("CreateBasicLights changed the registry")
	}
}

func TestCreateBasicLightsNilScene(t *testing.T) {
	if a, d := CreateBasicLights(nil); a != nil || d != nil {
		t.Error("CreateBasicLights(nil) returned lights")
	}
}

func TestLightDirection(t *testing.T) {
	l := NewDirectionalLight(White, 1)
	l.Position = f32.Vec3{0, 0, 4}
	l.Target = f32.Vec3{0, 0, 2}
	if got := l.Direction(); !nearVec3(got, f32.Vec3{0, 0, 1}) {
		t.Errorf("Direction() = %v, want (0, 0, 1)", got)
	}

	l.Target = l.Position
	if got := l.Direction(); got != (f32.Vec3{0, 1, 0}) {
		t.Errorf("degenerate Direction() = %v, want (0, 1, 0)", got)
	}
}

func TestCollectLights(t *testing.T) {
	root := NewNode("root")
	a1 := NewAmbientLight(RGB(0.2, 0, 0), 1)
	a2 := NewAmbientLight(RGB(0, 0.5, 0), 0.5)
	d1 := NewDirectionalLight(White, 2)
	d2 := NewDirectionalLight(RGB(1, 0, 0), 1)
	hidden := NewAmbientLight(White, 1)
	hidden.Visible = false
	_ = root.Add(a1.Node, a2.Node, d1.Node, d2.Node, hidden.Node)

	fl := collectLights(root)
	if !near(fl.ambient.R, 0.2) || !near(fl.ambient.G, 0.25) || fl.ambient.B != 0 {
		t.Errorf("ambient = %+v, want (0.2, 0.25, 0)", fl.ambient)
	}
	if fl.lightColor != (Color{R: 2, G: 2, B: 2}) {
		t.Errorf("light color = %+v, want the first directional light", fl.lightColor)
	}
}

func TestLightKindString(t *testing.T) {
	if AmbientLight.String() != "ambient" || DirectionalLight.String() != "directional" || LightKind(9).String() != "unknown" {
		t.Error("unexpected LightKind names")
	}
}
