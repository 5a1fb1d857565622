package g3d

import "golang.org/x/image/math/f32"

// Camera is a perspective camera node. It looks down its local -Z axis.
type Camera struct {
	*Node

	// FOV is the vertical field of view in degrees.
	FOV    float32
	Aspect float32
	Near   float32
	Far    float32
	// Zoom narrows the field of view when greater than 1.
	Zoom float32
}

// NewPerspectiveCamera creates a camera node.
func NewPerspectiveCamera(fov, aspect, near, far float32) *Camera {
	c := &Camera{
		Node:   NewNode("camera"),
		FOV:    fov,
		Aspect: aspect,
		Near:   near,
		Far:    far,
		Zoom:   1,
	}
	c.Node.Camera = c
	return c
}

// ProjectionMatrix returns the clip-space projection.
func (c *Camera) ProjectionMatrix() f32.Mat4 {
	fov := c.FOV
	if c.Zoom > 0 {
		fov /= c.Zoom
	}
	return Perspective(fov, c.Aspect, c.Near, c.Far)
}

// ViewMatrix returns the inverse of the camera's world transform.
func (c *Camera) ViewMatrix() f32.Mat4 {
	view, _ := Invert(c.WorldMatrix())
	return view
}

// ViewProjection returns ProjectionMatrix * ViewMatrix.
func (c *Camera) ViewProjection() f32.Mat4 {
	return MulMat4(c.ProjectionMatrix(), c.ViewMatrix())
}

// SetAspect updates the aspect ratio from a viewport size.
func (c *Camera) SetAspect(width, height int) {
	if height > 0 {
		c.Aspect = float32(width) / float32(height)
	}
}
