package g3d

import (
	"fmt"
	"image"
	"image/color"
	"slices"
	"time"

	"golang.org/x/image/math/f32"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"
)

// fenceTimeout bounds how long a frame waits for the GPU.
const fenceTimeout = 5 * time.Second

// Container hosts a renderer's output, such as a window or a compositor
// layer. Disposing the renderer detaches it from its container.
type Container interface {
	Detach(r *Renderer)
}

// Info reports renderer statistics. Draw counts describe the last frame,
// resource counts what is currently resident on the device.
type Info struct {
	Frame      uint64
	DrawCalls  int
	Triangles  int
	Geometries int
	Materials  int
	Textures   int
}

// Renderer draws scenes with a forward mesh pipeline into an offscreen
// output target.
//
// A renderer owns its device unless it was created with WithDeviceProvider
// or WithHalDevice. Geometries, materials and textures become resident on
// the renderer when first drawn and are released by their Dispose methods
// or when the renderer is disposed.
//
// Renderer is not safe for concurrent use.
type Renderer struct {
	id       HandleID
	registry *Registry
	opts     rendererOptions

	gpu      *gpuDevice
	pipeline *meshPipeline
	output   *RenderTarget
	target   *RenderTarget

	container Container
	releasers []func()

	geometries map[*Geometry]struct{}
	materials  map[*Material]struct{}
	textures   map[*Texture]struct{}
	whiteMap   *Texture
	textureGen uint64

	info     Info
	disposed bool
}

// NewRenderer creates a renderer and registers it with r.
//
// Errors from the backend (instance creation, device open) are returned
// unmodified. ErrNoAdapter is returned when the backend has no adapter.
func (r *Registry) NewRenderer(opts ...RendererOption) (*Renderer, error) {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	if o.width <= 0 || o.height <= 0 {
		return nil, fmt.Errorf("%w: %dx%d", ErrInvalidSize, o.width, o.height)
	}

	dev, err := openDevice(&o)
	if err != nil {
		return nil, err
	}

	rn := &Renderer{
		id:         newHandleID(),
		registry:   r,
		opts:       o,
		gpu:        dev,
		geometries: make(map[*Geometry]struct{}),
		materials:  make(map[*Material]struct{}),
		textures:   make(map[*Texture]struct{}),
		whiteMap:   newWhiteTexture(),
	}

	pipeline, err := newMeshPipeline(dev.device, dev.variant, o.label)
	if err != nil {
		dev.release()
		return nil, err
	}
	rn.pipeline = pipeline

	output, err := newRenderTarget(dev.device, o.label+"_output", o.format, rn.sampleCount(), o.width, o.height)
	if err != nil {
		pipeline.destroy()
		dev.release()
		return nil, err
	}
	rn.output = output

	r.Register(KindRenderer, rn)
	Logger().Info("g3d: renderer created",
		"id", rn.id,
		"adapter", dev.adapter,
		"width", o.width,
		"height", o.height,
		"antialias", o.antialias,
		"owned_device", dev.owned,
	)
	return rn, nil
}

func newWhiteTexture() *Texture {
	img := image.NewRGBA(image.Rect(0, 0, 1, 1))
	img.Set(0, 0, color.White)
	t := NewTexture(img)
	t.Name = "white"
	return t
}

// HandleID returns the renderer's registry identifier.
func (r *Renderer) HandleID() HandleID { return r.id }

func (r *Renderer) sampleCount() uint32 {
	if r.opts.antialias {
		return 4
	}
	return 1
}

// Device returns the HAL device the renderer draws with.
func (r *Renderer) Device() hal.Device {
	if r.gpu == nil {
		return nil
	}
	return r.gpu.device
}

// Queue returns the HAL queue the renderer submits to.
func (r *Renderer) Queue() hal.Queue {
	if r.gpu == nil {
		return nil
	}
	return r.gpu.queue
}

// Backend returns the shader variant of the renderer's device. Shaders
// created on Device must be compiled for it.
func (r *Renderer) Backend() gputypes.Backend {
	if r.gpu == nil {
		return 0
	}
	return r.gpu.variant
}

// HalDevice returns the device as any, so the renderer can act as the
// device provider of another consumer.
func (r *Renderer) HalDevice() any { return r.Device() }

// HalQueue returns the queue as any.
func (r *Renderer) HalQueue() any { return r.Queue() }

// Format returns the output color format.
func (r *Renderer) Format() gputypes.TextureFormat { return r.opts.format }

// Size returns the output size in pixels.
func (r *Renderer) Size() (width, height int) {
	if r == nil {
		return 0, 0
	}
	return r.opts.width, r.opts.height
}

// SetSize resizes the output target.
func (r *Renderer) SetSize(width, height int) error {
	if r.disposed {
		return ErrRendererDisposed
	}
	if err := r.output.SetSize(width, height); err != nil {
		return err
	}
	r.opts.width, r.opts.height = width, height
	return nil
}

// Output returns the renderer's own output target.
func (r *Renderer) Output() *RenderTarget { return r.output }

// RenderTarget returns the target the next frame is drawn into.
func (r *Renderer) RenderTarget() *RenderTarget {
	if r.target != nil {
		return r.target
	}
	return r.output
}

// SetRenderTarget redirects rendering into t. Passing nil restores the
// output target. The renderer does not take ownership of t.
func (r *Renderer) SetRenderTarget(t *RenderTarget) {
	r.target = t
}

// NewRenderTarget creates a target on the renderer's device with the
// output format and sample count. The caller disposes it.
func (r *Renderer) NewRenderTarget(width, height int) (*RenderTarget, error) {
	if r.disposed {
		return nil, ErrRendererDisposed
	}
	t, err := newRenderTarget(r.gpu.device, r.opts.label+"_target", r.opts.format, r.sampleCount(), width, height)
	if err != nil {
		return nil, err
	}
	t.untrack = r.OnDispose(t.Dispose)
	return t, nil
}

// OnDispose registers release to run when the renderer is disposed, before
// its device is destroyed. Objects holding GPU resources of the renderer
// use it so they can be disposed in any order relative to the renderer.
// The returned cancel function unregisters release.
func (r *Renderer) OnDispose(release func()) (cancel func()) {
	if r.disposed || release == nil {
		return func() {}
	}
	i := len(r.releasers)
	r.releasers = append(r.releasers, release)
	return func() {
		if i < len(r.releasers) {
			r.releasers[i] = nil
		}
	}
}

// AttachTo records the container displaying the renderer's output.
func (r *Renderer) AttachTo(c Container) {
	r.container = c
}

// Info returns the renderer statistics.
func (r *Renderer) Info() Info {
	info := r.info
	info.Geometries = len(r.geometries)
	info.Materials = len(r.materials)
	info.Textures = len(r.textures)
	if _, ok := r.textures[r.whiteMap]; ok {
		info.Textures--
	}
	return info
}

// Dispose unregisters the renderer and releases everything it holds:
// resident geometries, materials and textures, the pipeline and the output
// target. An owned device is destroyed last; a borrowed one is left open.
// If the renderer is attached to a container it is detached. Calling
// Dispose on a nil or already disposed renderer does nothing.
func (r *Renderer) Dispose() {
	if r == nil || r.disposed {
		return
	}
	r.disposed = true
	if r.registry != nil {
		r.registry.Unregister(KindRenderer, r)
	}

	// Dependents first: they destroy objects on the device.
	releasers := r.releasers
	r.releasers = nil
	for _, release := range releasers {
		if release != nil {
			release()
		}
	}

	// Bind groups reference texture views, so materials go first.
	for m := range r.materials {
		r.releaseMaterial(m)
	}
	for g := range r.geometries {
		r.releaseGeometry(g)
	}
	for t := range r.textures {
		r.releaseTexture(t)
	}
	r.output.Dispose()
	r.target = nil
	r.pipeline.destroy()

	if r.container != nil {
		r.container.Detach(r)
		r.container = nil
	}
	r.gpu.release()
	Logger().Info("g3d: renderer disposed", "id", r.id)
}

// Disposed reports whether Dispose has been called.
func (r *Renderer) Disposed() bool { return r.disposed }

// Render draws scene as seen from camera into the current render target.
func (r *Renderer) Render(scene *Scene, camera *Camera) error {
	background := r.opts.clearColor.clearValue(r.opts.clearAlpha)
	if scene != nil && scene.Background != nil {
		background = scene.Background.clearValue(1)
	}
	return r.render(scene, camera, nil, nil, background)
}

// RenderOverride draws the meshes of scene accepted by include (all meshes
// when include is nil) with material replacing their own materials (their
// own when material is nil). The target is cleared to transparent black.
func (r *Renderer) RenderOverride(scene *Scene, camera *Camera, include func(*Node) bool, material *Material) error {
	return r.render(scene, camera, include, material, gputypes.Color{})
}

// drawItem is one mesh of a frame with its world transform.
type drawItem struct {
	mesh   *Mesh
	world  f32.Mat4
	ranges []drawRange
	depth  float32
	blend  bool

	uniformBuf hal.Buffer
	bindGroup  hal.BindGroup
}

// frameLights is the lighting of a frame: summed ambient light and the
// first directional light.
type frameLights struct {
	ambient    Color
	direction  f32.Vec3
	lightColor Color
}

func (r *Renderer) render(scene *Scene, camera *Camera, include func(*Node) bool, override *Material, background gputypes.Color) error {
	if r.disposed {
		return ErrRendererDisposed
	}
	if scene == nil {
		return ErrNilScene
	}
	if camera == nil {
		return ErrNilCamera
	}
	target := r.RenderTarget()

	scene.UpdateWorldMatrix()
	lights := collectLights(&scene.Node)
	viewProj := camera.ViewProjection()
	view := camera.ViewMatrix()
	cameraPos := camera.WorldPosition()

	items := r.collectDraws(scene, include, override, view)
	if err := r.uploadDraws(items); err != nil {
		return err
	}
	defer r.destroyFrameResources(items)
	if err := r.buildFrameResources(items, viewProj, cameraPos, lights); err != nil {
		return err
	}

	drawCalls, triangles, err := r.encodeFrame(target, items, background)
	if err != nil {
		return err
	}
	r.info.Frame++
	r.info.DrawCalls = drawCalls
	r.info.Triangles = triangles
	return nil
}

func collectLights(root *Node) frameLights {
	fl := frameLights{direction: f32.Vec3{0, 1, 0}}
	found := false
	root.TraverseVisible(func(n *Node) {
		l := n.Light
		if l == nil {
			return
		}
		switch l.Kind {
		case AmbientLight:
			c := l.Color.Scale(l.Intensity)
			fl.ambient = Color{R: fl.ambient.R + c.R, G: fl.ambient.G + c.G, B: fl.ambient.B + c.B}
		case DirectionalLight:
			if !found {
				found = true
				fl.direction = l.Direction()
				fl.lightColor = l.Color.Scale(l.Intensity)
			}
		}
	})
	return fl
}

// collectDraws gathers the visible meshes to draw, opaque ones first in
// tree order, then blended ones back to front.
func (r *Renderer) collectDraws(scene *Scene, include func(*Node) bool, override *Material, view f32.Mat4) []*drawItem {
	var opaque, blended []*drawItem
	scene.TraverseVisible(func(n *Node) {
		m := n.Mesh
		if m == nil || m.Geometry == nil {
			return
		}
		if include != nil && !include(n) {
			return
		}
		var ranges []drawRange
		if override != nil {
			ranges = []drawRange{{start: 0, count: uint32(m.Geometry.VertexCount()), material: override}}
		} else {
			ranges = m.drawRanges()
		}
		if len(ranges) == 0 {
			return
		}
		item := &drawItem{mesh: m, world: n.world, ranges: ranges}
		for _, rg := range ranges {
			if rg.material.Transparent {
				item.blend = true
			}
		}
		if item.blend {
			pos := TransformPoint(view, f32.Vec3{n.world[3], n.world[7], n.world[11]})
			item.depth = pos[2]
			blended = append(blended, item)
		} else {
			opaque = append(opaque, item)
		}
	})
	// View space looks down -Z: the farthest item has the smallest z.
	slices.SortStableFunc(blended, func(a, b *drawItem) int {
		switch {
		case a.depth < b.depth:
			return -1
		case a.depth > b.depth:
			return 1
		}
		return 0
	})
	return append(opaque, blended...)
}

func (r *Renderer) uploadDraws(items []*drawItem) error {
	for _, it := range items {
		if err := r.uploadGeometry(it.mesh.Geometry); err != nil {
			return err
		}
		for _, rg := range it.ranges {
			if err := r.uploadMaterial(rg.material); err != nil {
				return err
			}
		}
	}
	return nil
}

// buildFrameResources creates the per-frame object uniform buffer and bind
// group of each draw.
func (r *Renderer) buildFrameResources(items []*drawItem, viewProj f32.Mat4, cameraPos f32.Vec3, lights frameLights) error {
	for _, it := range items {
		data := objectUniformData(MulMat4(viewProj, it.world), it.world, cameraPos, lights)
		buf, err := r.createAndUploadBuffer(r.opts.label+"_object_uniform", data,
			gputypes.BufferUsageUniform|gputypes.BufferUsageCopyDst)
		if err != nil {
			return fmt.Errorf("create object uniform buffer: %w", err)
		}
		it.uniformBuf = buf

		bg, err := r.gpu.device.CreateBindGroup(&hal.BindGroupDescriptor{
			Label:  r.opts.label + "_object_bind",
			Layout: r.pipeline.objectLayout,
			Entries: []gputypes.BindGroupEntry{
				{Binding: 0, Resource: gputypes.BufferBinding{
					Buffer: buf.NativeHandle(), Offset: 0, Size: objectUniformSize,
				}},
			},
		})
		if err != nil {
			return fmt.Errorf("create object bind group: %w", err)
		}
		it.bindGroup = bg
	}
	return nil
}

func (r *Renderer) destroyFrameResources(items []*drawItem) {
	for _, it := range items {
		if it.bindGroup != nil {
			r.gpu.device.DestroyBindGroup(it.bindGroup)
			it.bindGroup = nil
		}
		if it.uniformBuf != nil {
			r.gpu.device.DestroyBuffer(it.uniformBuf)
			it.uniformBuf = nil
		}
	}
}

// encodeFrame records one render pass drawing items into target, submits
// it and waits for the GPU.
func (r *Renderer) encodeFrame(target *RenderTarget, items []*drawItem, background gputypes.Color) (drawCalls, triangles int, err error) {
	encoder, err := r.gpu.device.CreateCommandEncoder(&hal.CommandEncoderDescriptor{
		Label: r.opts.label + "_encoder",
	})
	if err != nil {
		return 0, 0, fmt.Errorf("create command encoder: %w", err)
	}
	if err := encoder.BeginEncoding(r.opts.label + "_frame"); err != nil {
		return 0, 0, fmt.Errorf("begin encoding: %w", err)
	}

	rp := encoder.BeginRenderPass(&hal.RenderPassDescriptor{
		Label:                  r.opts.label + "_pass",
		ColorAttachments:       []hal.RenderPassColorAttachment{target.colorAttachment(true, background)},
		DepthStencilAttachment: target.depthAttachment(),
	})

	for _, it := range items {
		geo := it.mesh.Geometry.gpu
		if geo == nil {
			continue
		}
		rp.SetBindGroup(0, it.bindGroup, nil)
		rp.SetVertexBuffer(0, geo.vertBuf, 0)
		for _, rg := range it.ranges {
			mat := rg.material
			pipeline, err := r.pipeline.pipeline(pipelineKey{
				format:     target.format,
				samples:    target.samples,
				side:       mat.Side,
				blend:      mat.Transparent,
				depthWrite: mat.DepthWrite,
			})
			if err != nil {
				rp.End()
				encoder.DiscardEncoding()
				return 0, 0, err
			}
			rp.SetPipeline(pipeline)
			rp.SetBindGroup(1, mat.gpu.bindGroup, nil)
			rp.Draw(rg.count, 1, rg.start, 0)
			drawCalls++
			triangles += int(rg.count / 3)
		}
	}
	rp.End()

	if err := r.submit(encoder); err != nil {
		return 0, 0, err
	}
	return drawCalls, triangles, nil
}

// Submit ends encoding of an encoder created on Device, submits it and
// waits for the GPU to finish it.
func (r *Renderer) Submit(encoder hal.CommandEncoder) error {
	if r.disposed {
		encoder.DiscardEncoding()
		return ErrRendererDisposed
	}
	return r.submit(encoder)
}

// submit ends encoding, submits the command buffer and waits on a fence.
func (r *Renderer) submit(encoder hal.CommandEncoder) error {
	cmdBuf, err := encoder.EndEncoding()
	if err != nil {
		return fmt.Errorf("end encoding: %w", err)
	}
	defer r.gpu.device.FreeCommandBuffer(cmdBuf)

	fence, err := r.gpu.device.CreateFence()
	if err != nil {
		return fmt.Errorf("create fence: %w", err)
	}
	defer r.gpu.device.DestroyFence(fence)

	if err := r.gpu.queue.Submit([]hal.CommandBuffer{cmdBuf}, fence, 1); err != nil {
		return fmt.Errorf("submit: %w", err)
	}
	fenceOK, err := r.gpu.device.Wait(fence, 1, fenceTimeout)
	if err != nil || !fenceOK {
		return fmt.Errorf("wait for GPU: ok=%v err=%w", fenceOK, err)
	}
	return nil
}

func (r *Renderer) createAndUploadBuffer(label string, data []byte, usage gputypes.BufferUsage) (hal.Buffer, error) {
	buf, err := r.gpu.device.CreateBuffer(&hal.BufferDescriptor{
		Label: label,
		Size:  uint64(len(data)),
		Usage: usage,
	})
	if err != nil {
		return nil, fmt.Errorf("create %s: %w", label, err)
	}
	r.gpu.queue.WriteBuffer(buf, 0, data)
	return buf, nil
}

// objectUniformData packs ObjectUniforms. WGSL matrices are column-major.
func objectUniformData(mvp, model f32.Mat4, cameraPos f32.Vec3, lights frameLights) []byte {
	buf := make([]byte, objectUniformSize)
	putMat4(buf[0:], mvp)
	putMat4(buf[64:], model)
	putFloats(buf[128:], lights.ambient.R, lights.ambient.G, lights.ambient.B, 0)
	putFloats(buf[144:], lights.direction[0], lights.direction[1], lights.direction[2], 0)
	putFloats(buf[160:], lights.lightColor.R, lights.lightColor.G, lights.lightColor.B, 0)
	putFloats(buf[176:], cameraPos[0], cameraPos[1], cameraPos[2], 1)
	return buf
}

func putMat4(buf []byte, m f32.Mat4) {
	for c := 0; c < 4; c++ {
		putFloats(buf[c*16:], m[c], m[4+c], m[8+c], m[12+c])
	}
}
