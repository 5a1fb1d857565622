package g3d

import (
	"image"

	"golang.org/x/image/draw"

	"github.com/gogpu/wgpu/hal"
)

// Texture is an image sampled by a material.
type Texture struct {
	disposeEvents

	Name  string
	Image image.Image

	// NeedsUpdate makes the next render upload Image again.
	NeedsUpdate bool

	gpu *textureGPU
}

// textureGPU is the renderer-side state of a resident texture.
type textureGPU struct {
	owner  *Renderer
	tex    hal.Texture
	view   hal.TextureView
	width  uint32
	height uint32
	// gen changes every time a new texture is created, so bind groups
	// referencing an older view can be detected.
	gen uint64
}

// NewTexture creates a texture from img.
func NewTexture(img image.Image) *Texture {
	return &Texture{Image: img}
}

// Resident reports whether the texture currently holds GPU resources.
func (t *Texture) Resident() bool {
	return t.gpu != nil
}

// Dispose releases the texture's GPU resources. Listeners registered with
// OnDispose run on every call.
func (t *Texture) Dispose() {
	if t.gpu != nil {
		t.gpu.owner.releaseTexture(t)
	}
	t.dispatchDispose()
}

// rgba returns the image as tightly packed RGBA8 pixels.
func (t *Texture) rgba() (*image.RGBA, bool) {
	if t.Image == nil {
		return nil, false
	}
	b := t.Image.Bounds()
	if b.Empty() {
		return nil, false
	}
	if img, ok := t.Image.(*image.RGBA); ok && img.Stride == 4*b.Dx() && b.Min == (image.Point{}) {
		return img, true
	}
	dst := image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(dst, dst.Bounds(), t.Image, b.Min, draw.Src)
	return dst, true
}
