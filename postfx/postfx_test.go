package postfx

import (
	"encoding/binary"
	"errors"
	"math"
	"testing"
	"time"

	"golang.org/x/image/math/f32"

	"github.com/gogpu/wgpu/hal/noop"

	"github.com/gogpu/g3d"
	"github.com/gogpu/g3d/internal/testgpu"
)

func newRenderer(t *testing.T) (*g3d.Renderer, *testgpu.CountingDevice) {
	t.Helper()
	device, queue := testgpu.NewCountingDevice(t)
	r, err := g3d.NewRegistry().NewRenderer(g3d.WithHalDevice(device, queue), g3d.WithSize(64, 48))
	if err != nil {
		t.Fatalf("NewRenderer failed: %v", err)
	}
	t.Cleanup(r.Dispose)
	return r, device
}

func boxScene() (*g3d.Scene, *g3d.Camera, *g3d.Mesh) {
	scene := g3d.NewScene()
	g3d.CreateBasicLights(scene)
	mesh := g3d.NewMesh(g3d.NewBoxGeometry(1, 1, 1), g3d.NewStandardMaterial())
	_ = scene.Add(mesh.Node)
	cam := g3d.NewPerspectiveCamera(45, 4.0/3.0, 0.1, 100)
	cam.Position = f32.Vec3{0, 0, 5}
	return scene, cam, mesh
}

func newComposer(t *testing.T, r *g3d.Renderer, scene *g3d.Scene, cam *g3d.Camera) *EffectComposer {
	t.Helper()
	c, err := NewEffectComposer(r, scene, cam)
	if err != nil {
		t.Fatalf("NewEffectComposer failed: %v", err)
	}
	t.Cleanup(c.Dispose)
	return c
}

func TestNewEffectComposer(t *testing.T) {
	r, _ := newRenderer(t)
	scene, cam, _ := boxScene()
	c := newComposer(t, r, scene, cam)

	passes := c.Passes()
	if len(passes) != 1 {
		t.Fatalf("len(Passes()) = %d, want 1", len(passes))
	}
	rp, ok := passes[0].(*RenderPass)
	if !ok || rp.Scene != scene || rp.Camera != cam {
		t.Errorf("first pass = %#v, want a RenderPass of the scene", passes[0])
	}
	if w, h := c.Size(); w != 64 || h != 48 {
		t.Errorf("Size() = %dx%d, want 64x48", w, h)
	}

	// Passes returns a copy.
	passes[0] = nil
	if c.Passes()[0] == nil {
		t.Error("Passes() exposes the internal slice")
	}

	r.Dispose()
	if _, err := NewEffectComposer(r, scene, cam); !errors.Is(err, g3d.ErrRendererDisposed) {
		t.Errorf("NewEffectComposer on disposed renderer = %v, want ErrRendererDisposed", err)
	}
}

func TestComposerInsertRemove(t *testing.T) {
	r, _ := newRenderer(t)
	scene, cam, _ := boxScene()
	c := newComposer(t, r, scene, cam)
	base := c.Passes()[0]

	first, middle, last := NewCopyPass(), NewCopyPass(), NewCopyPass()
	c.InsertPass(first, -5)
	c.AddPass(last)
	c.InsertPass(middle, 2)
	c.InsertPass(nil, 0)

	want := []Pass{first, base, middle, last}
	got := c.Passes()
	if len(got) != len(want) {
		t.Fatalf("len(Passes()) = %d, want %d", len(got), len(want))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("pass %d = %T %p, want %p", i, got[i], got[i], want[i])
		}
	}

	if !c.RemovePass(middle) {
		t.Error("RemovePass(middle) = false")
	}
	if c.RemovePass(middle) {
		t.Error("second RemovePass(middle) = true")
	}
	if got := len(c.Passes()); got != 3 {
		t.Errorf("len(Passes()) = %d after remove, want 3", got)
	}
}

func TestComposerRender(t *testing.T) {
	r, _ := newRenderer(t)
	scene, cam, mesh := boxScene()
	c := newComposer(t, r, scene, cam)

	outline := NewOutlinePass(64, 48, scene, cam)
	outline.SelectedObjects = []*g3d.Node{mesh.Node}
	c.AddPass(outline)

	for range 2 {
		if err := c.Render(); err != nil {
			t.Fatalf("Render failed: %v", err)
		}
	}
	// Scene and selection mask per frame.
	if got := r.Info().Frame; got != 4 {
		t.Errorf("Frame = %d, want 4", got)
	}
	if r.RenderTarget() != r.Output() {
		t.Error("composer did not restore the render target")
	}
	if w, h := outline.mask.Size(); w != 32 || h != 24 {
		t.Errorf("mask size = %dx%d, want 32x24", w, h)
	}
	if _, err := r.ReadPixels(); err != nil {
		t.Errorf("ReadPixels after composed frame: %v", err)
	}
}

func TestComposerRenderEnabled(t *testing.T) {
	r, _ := newRenderer(t)
	scene, cam, _ := boxScene()
	c := newComposer(t, r, scene, cam)
	outline := NewOutlinePass(64, 48, scene, cam)
	c.AddPass(outline)

	outline.SetEnabled(false)
	if err := c.Render(); err != nil {
		t.Fatalf("Render failed: %v", err)
	}
	if got := r.Info().Frame; got != 1 {
		t.Errorf("Frame = %d with outline disabled, want 1", got)
	}
	if outline.quad != nil {
		t.Error("disabled pass created GPU resources")
	}

	for _, p := range c.Passes() {
		p.(interface{ SetEnabled(bool) }).SetEnabled(false)
	}
	if err := c.Render(); err != nil {
		t.Fatalf("Render with no enabled pass failed: %v", err)
	}
	if got := r.Info().Frame; got != 1 {
		t.Errorf("Frame = %d with every pass disabled, want 1", got)
	}
}

func TestComposerDispose(t *testing.T) {
	r, device := newRenderer(t)
	scene, cam, mesh := boxScene()
	if err := r.Render(scene, cam); err != nil {
		t.Fatalf("Render failed: %v", err)
	}
	textures, buffers, groups := device.LiveTextures(), device.LiveBuffers(), device.LiveBindGroups()

	c, err := NewEffectComposer(r, scene, cam)
	if err != nil {
		t.Fatalf("NewEffectComposer failed: %v", err)
	}
	outline := NewOutlinePass(64, 48, scene, cam)
	outline.SelectedObjects = []*g3d.Node{mesh.Node}
	c.AddPass(outline)
	c.AddPass(NewCopyPass())
	if err := c.Render(); err != nil {
		t.Fatalf("Render failed: %v", err)
	}
	if device.LiveTextures() <= textures {
		t.Fatal("composer created no textures")
	}

	c.Dispose()
	c.Dispose()

	if got := device.LiveTextures(); got != textures {
		t.Errorf("live textures = %d after dispose, want %d", got, textures)
	}
	if got := device.LiveBuffers(); got != buffers {
		t.Errorf("live buffers = %d after dispose, want %d", got, buffers)
	}
	if got := device.LiveBindGroups(); got != groups {
		t.Errorf("live bind groups = %d after dispose, want %d", got, groups)
	}
	if err := c.Render(); !errors.Is(err, ErrComposerDisposed) {
		t.Errorf("Render after Dispose = %v, want ErrComposerDisposed", err)
	}
	if err := c.SetSize(10, 10); !errors.Is(err, ErrComposerDisposed) {
		t.Errorf("SetSize after Dispose = %v, want ErrComposerDisposed", err)
	}
}

func TestComposerDisposeAfterRenderer(t *testing.T) {
	// The renderer owns its device here, so disposing it destroys the device.
	r, err := g3d.NewRegistry().NewRenderer(g3d.WithBackend(&noop.API{}), g3d.WithSize(64, 48))
	if err != nil {
		t.Fatalf("NewRenderer failed: %v", err)
	}
	scene, cam, mesh := boxScene()
	c, err := NewEffectComposer(r, scene, cam)
	if err != nil {
		t.Fatalf("NewEffectComposer failed: %v", err)
	}
	outline := NewOutlinePass(64, 48, scene, cam)
	outline.SelectedObjects = []*g3d.Node{mesh.Node}
	c.AddPass(outline)
	c.AddPass(NewCopyPass())
	if err := c.Render(); err != nil {
		t.Fatalf("Render failed: %v", err)
	}

	g3d.DisposeRenderer(r)
	c.Dispose()
	outline.Dispose()

	if err := outline.Render(r, nil, nil); !errors.Is(err, g3d.ErrRendererDisposed) {
		t.Errorf("outline Render on disposed renderer = %v, want ErrRendererDisposed", err)
	}
	if err := NewCopyPass().Render(r, nil, nil); !errors.Is(err, g3d.ErrRendererDisposed) {
		t.Errorf("copy Render on disposed renderer = %v, want ErrRendererDisposed", err)
	}
}

func TestRendererDisposeReleasesComposer(t *testing.T) {
	r, device := newRenderer(t)
	scene, cam, mesh := boxScene()
	c := newComposer(t, r, scene, cam)
	outline := NewOutlinePass(64, 48, scene, cam)
	outline.SelectedObjects = []*g3d.Node{mesh.Node}
	c.AddPass(outline)
	c.AddPass(NewCopyPass())
	if err := c.Render(); err != nil {
		t.Fatalf("Render failed: %v", err)
	}

	r.Dispose()

	if got := device.LiveTextures(); got != 0 {
		t.Errorf("live textures after renderer dispose = %d, want 0", got)
	}
	if got := device.LiveBuffers(); got != 0 {
		t.Errorf("live buffers after renderer dispose = %d, want 0", got)
	}
	if got := device.LiveBindGroups(); got != 0 {
		t.Errorf("live bind groups after renderer dispose = %d, want 0", got)
	}
	if err := c.SetSize(32, 32); !errors.Is(err, g3d.ErrRendererDisposed) {
		t.Errorf("SetSize after renderer dispose = %v, want ErrRendererDisposed", err)
	}
}

func TestComposerSetSize(t *testing.T) {
	r, _ := newRenderer(t)
	scene, cam, _ := boxScene()
	c := newComposer(t, r, scene, cam)
	outline := NewOutlinePass(64, 48, scene, cam)
	c.AddPass(outline)
	if err := c.Render(); err != nil {
		t.Fatalf("Render failed: %v", err)
	}

	if err := c.SetSize(100, 60); err != nil {
		t.Fatalf("SetSize failed: %v", err)
	}
	if w, h := c.read.Size(); w != 100 || h != 60 {
		t.Errorf("target size = %dx%d, want 100x60", w, h)
	}
	if w, h := outline.mask.Size(); w != 50 || h != 30 {
		t.Errorf("mask size = %dx%d, want 50x30", w, h)
	}
	if err := c.SetSize(0, 60); err == nil {
		t.Error("SetSize(0, 60) succeeded")
	}
}

func TestRenderPassOverride(t *testing.T) {
	r, _ := newRenderer(t)
	scene, cam, _ := boxScene()
	target, err := r.NewRenderTarget(16, 16)
	if err != nil {
		t.Fatalf("NewRenderTarget failed: %v", err)
	}
	t.Cleanup(target.Dispose)

	p := NewRenderPass(scene, cam)
	p.OverrideMaterial = g3d.NewStandardMaterial()
	if err := p.Render(r, target, nil); err != nil {
		t.Fatalf("Render failed: %v", err)
	}
	if r.RenderTarget() != r.Output() {
		t.Error("render pass did not restore the render target")
	}
	if !p.OverrideMaterial.Resident() {
		t.Error("override material was not drawn")
	}
}

func TestOutlineDefaults(t *testing.T) {
	p := NewOutlinePass(0, 0, nil, nil)
	if p.EdgeStrength != 3 || p.EdgeGlow != 0 || p.EdgeThickness != 1 {
		t.Errorf("edge parameters = %v/%v/%v, want 3/0/1", p.EdgeStrength, p.EdgeGlow, p.EdgeThickness)
	}
	if p.VisibleEdgeColor != g3d.White {
		t.Errorf("VisibleEdgeColor = %v, want white", p.VisibleEdgeColor)
	}
	if p.HiddenEdgeColor != g3d.RGB(0.1, 0.04, 0.02) {
		t.Errorf("HiddenEdgeColor = %v", p.HiddenEdgeColor)
	}
	if p.PulsePeriod != 0 || !p.Enabled() || len(p.SelectedObjects) != 0 {
		t.Error("unexpected pulse, enabled or selection default")
	}
	if w, h := p.maskSize(); w != 1 || h != 1 {
		t.Errorf("mask size of an empty viewport = %dx%d, want 1x1", w, h)
	}
	if err := p.SetSize(-1, 4); !errors.Is(err, g3d.ErrInvalidSize) {
		t.Errorf("SetSize(-1, 4) = %v, want ErrInvalidSize", err)
	}
}

func TestOutlineParams(t *testing.T) {
	p := NewOutlinePass(200, 100, nil, nil)
	p.EdgeGlow = 0.5
	data := p.paramsData(0)
	if len(data) != paramsSize {
		t.Fatalf("len = %d, want %d", len(data), paramsSize)
	}
	at := func(i int) float32 { return math.Float32frombits(binary.LittleEndian.Uint32(data[4*i:])) }

	tests := []struct {
		index int
		want  float32
	}{
		{3, 3},         // strength
		{7, 1},         // thickness
		{8, 1.0 / 100}, // texel x
		{9, 1.0 / 50},  // texel y
		{10, 0.5},      // glow
		{11, 1},        // pulse off
	}
	for _, tt := range tests {
		if got := at(tt.index); got != tt.want {
			t.Errorf("value %d = %v, want %v", tt.index, got, tt.want)
		}
	}

	p.PulsePeriod = 2 * time.Second
	if got := p.pulse(0); got != 1 {
		t.Errorf("pulse(0) = %v, want 1", got)
	}
	if got := p.pulse(time.Second); got > 1e-6 {
		t.Errorf("pulse(half period) = %v, want 0", got)
	}
}

func TestOutlineSelection(t *testing.T) {
	p := NewOutlinePass(10, 10, nil, nil)
	root := g3d.NewNode("root")
	picked := g3d.NewNode("picked")
	child := g3d.NewNode("child")
	other := g3d.NewNode("other")
	_ = root.Add(picked, other)
	_ = picked.Add(child)

	include := p.selected(map[*g3d.Node]struct{}{picked: {}})
	tests := []struct {
		node *g3d.Node
		want bool
	}{
		{picked, true},
		{child, true},
		{other, false},
		{root, false},
	}
	for _, tt := range tests {
		if got := include(tt.node); got != tt.want {
			t.Errorf("include(%s) = %v, want %v", tt.node.Name, got, tt.want)
		}
	}
}
