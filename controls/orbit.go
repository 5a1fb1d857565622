// Package controls moves cameras from pointer input.
//
// Input handling stays with the caller: translate window events into
// Rotate, Dolly and Pan calls, then call Update once per frame.
package controls

import (
	"math"

	"golang.org/x/image/math/f32"

	"github.com/gogpu/g3d"
)

const epsilon = 1e-6

// Viewport reports the size of the drawing surface in pixels.
// *g3d.Renderer implements it.
type Viewport interface {
	Size() (width, height int)
}

// spherical is a position around a target: Theta is the azimuth around +Y
// from +Z, Phi the polar angle from +Y.
type spherical struct {
	radius, theta, phi float64
}

func sphericalFrom(v f32.Vec3) spherical {
	x, y, z := float64(v[0]), float64(v[1]), float64(v[2])
	s := spherical{radius: math.Sqrt(x*x + y*y + z*z)}
	if s.radius == 0 {
		return s
	}
	s.theta = math.Atan2(x, z)
	s.phi = math.Acos(max(-1, min(1, y/s.radius)))
	return s
}

func (s spherical) vec3() f32.Vec3 {
	sinPhi := s.radius * math.Sin(s.phi)
	return f32.Vec3{
		float32(sinPhi * math.Sin(s.theta)),
		float32(s.radius * math.Cos(s.phi)),
		float32(sinPhi * math.Cos(s.theta)),
	}
}

// OrbitControls orbits a camera around a target point, keeping +Y up.
type OrbitControls struct {
	Camera *g3d.Camera
	Target f32.Vec3

	// EnableDamping spreads every input over the following updates.
	EnableDamping bool
	DampingFactor float32

	RotateSpeed float32
	ZoomSpeed   float32
	PanSpeed    float32

	MinDistance float32
	MaxDistance float32
	// Polar angles are measured from +Y, in radians.
	MinPolarAngle float32
	MaxPolarAngle float32
	// Azimuth limits apply when both are finite.
	MinAzimuthAngle float64
	MaxAzimuthAngle float64

	viewport Viewport

	delta     spherical
	scale     float64
	panOffset f32.Vec3

	lastPosition f32.Vec3
	lastRotation f32.Vec4

	saved struct {
		target   f32.Vec3
		position f32.Vec3
		zoom     float32
	}
}

// NewOrbitControls creates controls for camera. viewport scales pointer
// deltas; when it is nil, deltas are fractions of the viewport height.
func NewOrbitControls(camera *g3d.Camera, viewport Viewport) *OrbitControls {
	c := &OrbitControls{
		Camera:          camera,
		EnableDamping:   true,
		DampingFactor:   0.05,
		RotateSpeed:     1,
		ZoomSpeed:       1,
		PanSpeed:        1,
		MinDistance:     0,
		MaxDistance:     float32(math.Inf(1)),
		MinPolarAngle:   0,
		MaxPolarAngle:   math.Pi,
		MinAzimuthAngle: math.Inf(-1),
		MaxAzimuthAngle: math.Inf(1),
		viewport:        viewport,
		scale:           1,
	}
	c.SaveState()
	return c
}

func (c *OrbitControls) height() float64 {
	if c.viewport == nil {
		return 1
	}
	_, h := c.viewport.Size()
	return float64(max(h, 1))
}

// Rotate orbits by a pointer movement in pixels. Moving the full viewport
// height turns one full circle.
func (c *OrbitControls) Rotate(dx, dy float32) {
	h := c.height()
	speed := float64(c.RotateSpeed)
	c.delta.theta -= 2 * math.Pi * float64(dx) / h * speed
	c.delta.phi -= 2 * math.Pi * float64(dy) / h * speed
}

// Dolly moves the camera away from the target for positive steps and
// towards it for negative ones. One step is one mouse wheel notch.
func (c *OrbitControls) Dolly(steps float32) {
	c.scale *= math.Pow(0.95, -float64(steps)*float64(c.ZoomSpeed))
}

// Pan moves the camera and target in the view plane by a pointer movement
// in pixels. The point under the pointer at the target distance follows
// the pointer.
func (c *OrbitControls) Pan(dx, dy float32) {
	if c.Camera == nil {
		return
	}
	offset := sub(c.Camera.Position, c.Target)
	fov := float64(c.Camera.FOV)
	if c.Camera.Zoom > 0 {
		fov /= float64(c.Camera.Zoom)
	}
	distance := length(offset) * math.Tan(fov/2*math.Pi/180)
	h := c.height()
	speed := float64(c.PanSpeed)

	m := c.Camera.LocalMatrix()
	right := normalize(f32.Vec3{m[0], m[4], m[8]})
	up := normalize(f32.Vec3{m[1], m[5], m[9]})
	left := float32(-2 * float64(dx) * distance / h * speed)
	upward := float32(2 * float64(dy) * distance / h * speed)
	for i := range 3 {
		c.panOffset[i] += right[i]*left + up[i]*upward
	}
}

// Update applies pending input to the camera and reports whether the
// camera moved. Call it every frame when damping is enabled.
func (c *OrbitControls) Update() bool {
	if c.Camera == nil {
		return false
	}
	cam := c.Camera
	s := sphericalFrom(sub(cam.Position, c.Target))

	damping := 1.0
	if c.EnableDamping {
		damping = float64(c.DampingFactor)
	}
	s.theta += c.delta.theta * damping
	s.phi += c.delta.phi * damping

	if !math.IsInf(c.MinAzimuthAngle, 0) && !math.IsInf(c.MaxAzimuthAngle, 0) {
		s.theta = max(c.MinAzimuthAngle, min(c.MaxAzimuthAngle, s.theta))
	}
	s.phi = max(float64(c.MinPolarAngle), min(float64(c.MaxPolarAngle), s.phi))
	s.phi = max(epsilon, min(math.Pi-epsilon, s.phi))

	s.radius *= c.scale
	s.radius = max(float64(c.MinDistance), min(float64(c.MaxDistance), s.radius))

	for i := range 3 {
		c.Target[i] += c.panOffset[i] * float32(damping)
	}

	offset := s.vec3()
	cam.Position = f32.Vec3{c.Target[0] + offset[0], c.Target[1] + offset[1], c.Target[2] + offset[2]}
	cam.LookAt(c.Target)

	if c.EnableDamping {
		keep := 1 - damping
		c.delta.theta *= keep
		c.delta.phi *= keep
		for i := range 3 {
			c.panOffset[i] *= float32(keep)
		}
	} else {
		c.delta = spherical{}
		c.panOffset = f32.Vec3{}
	}
	c.scale = 1

	moved := distanceSquared(c.lastPosition, cam.Position) > epsilon ||
		8*(1-abs32(dot4(c.lastRotation, cam.Rotation))) > epsilon
	c.lastPosition = cam.Position
	c.lastRotation = cam.Rotation
	return moved
}

// Distance returns the distance from the camera to the target.
func (c *OrbitControls) Distance() float32 {
	return float32(length(sub(c.Camera.Position, c.Target)))
}

// PolarAngle returns the current polar angle in radians.
func (c *OrbitControls) PolarAngle() float64 {
	return sphericalFrom(sub(c.Camera.Position, c.Target)).phi
}

// AzimuthalAngle returns the current azimuth in radians.
func (c *OrbitControls) AzimuthalAngle() float64 {
	return sphericalFrom(sub(c.Camera.Position, c.Target)).theta
}

// SaveState records the target, camera position and zoom for Reset.
func (c *OrbitControls) SaveState() {
	c.saved.target = c.Target
	if c.Camera != nil {
		c.saved.position = c.Camera.Position
		c.saved.zoom = c.Camera.Zoom
	}
}

// Reset restores the last saved state and drops pending input.
func (c *OrbitControls) Reset() {
	c.Target = c.saved.target
	if c.Camera != nil {
		c.Camera.Position = c.saved.position
		c.Camera.Zoom = c.saved.zoom
	}
	c.delta = spherical{}
	c.panOffset = f32.Vec3{}
	c.scale = 1
	c.Update()
}

func sub(a, b f32.Vec3) f32.Vec3 {
	return f32.Vec3{a[0] - b[0], a[1] - b[1], a[2] - b[2]}
}

func length(v f32.Vec3) float64 {
	return math.Sqrt(float64(v[0]*v[0] + v[1]*v[1] + v[2]*v[2]))
}

func normalize(v f32.Vec3) f32.Vec3 {
	l := float32(length(v))
	if l == 0 {
		return v
	}
	return f32.Vec3{v[0] / l, v[1] / l, v[2] / l}
}

func distanceSquared(a, b f32.Vec3) float32 {
	d := sub(a, b)
	return d[0]*d[0] + d[1]*d[1] + d[2]*d[2]
}

func abs32(x float32) float32 {
	return float32(math.Abs(float64(x)))
}

func dot4(a, b f32.Vec4) float32 {
	return a[0]*b[0] + a[1]*b[1] + a[2]*b[2] + a[3]*b[3]
}
