package g3d

import (
	"fmt"
	"image"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"
)

// copyPitchAlignment is the row alignment required for texture to buffer
// copies.
const copyPitchAlignment = 256

// ReadPixels copies the current render target to an RGBA image.
func (r *Renderer) ReadPixels() (*image.RGBA, error) {
	if r.disposed {
		return nil, ErrRendererDisposed
	}
	return r.readTarget(r.RenderTarget())
}

func (r *Renderer) readTarget(t *RenderTarget) (*image.RGBA, error) {
	w, h := uint32(t.width), uint32(t.height)
	bytesPerRow := w * 4
	alignedBytesPerRow := (bytesPerRow + copyPitchAlignment - 1) &^ (copyPitchAlignment - 1)
	stagingSize := uint64(alignedBytesPerRow) * uint64(h)

	stagingBuf, err := r.gpu.device.CreateBuffer(&hal.BufferDescriptor{
		Label: r.opts.label + "_staging",
		Size:  stagingSize,
		Usage: gputypes.BufferUsageMapRead | gputypes.BufferUsageCopyDst,
	})
	if err != nil {
		return nil, fmt.Errorf("create staging buffer: %w", err)
	}
	defer r.gpu.device.DestroyBuffer(stagingBuf)

	encoder, err := r.gpu.device.CreateCommandEncoder(&hal.CommandEncoderDescriptor{
		Label: r.opts.label + "_readback_encoder",
	})
	if err != nil {
		return nil, fmt.Errorf("create command encoder: %w", err)
	}
	if err := encoder.BeginEncoding(r.opts.label + "_readback"); err != nil {
		return nil, fmt.Errorf("begin encoding: %w", err)
	}

	encoder.TransitionTextures([]hal.TextureBarrier{{
		Texture: t.colorTex,
		Usage: hal.TextureUsageTransition{
			OldUsage: gputypes.TextureUsageRenderAttachment,
			NewUsage: gputypes.TextureUsageCopySrc,
		},
	}})
	encoder.CopyTextureToBuffer(t.colorTex, stagingBuf, []hal.BufferTextureCopy{{
		BufferLayout: hal.ImageDataLayout{Offset: 0, BytesPerRow: alignedBytesPerRow, RowsPerImage: h},
		TextureBase:  hal.ImageCopyTexture{Texture: t.colorTex, MipLevel: 0},
		Size:         hal.Extent3D{Width: w, Height: h, DepthOrArrayLayers: 1},
	}})
	// The next pass expects the texture as a render attachment again.
	encoder.TransitionTextures([]hal.TextureBarrier{{
		Texture: t.colorTex,
		Usage: hal.TextureUsageTransition{
			OldUsage: gputypes.TextureUsageCopySrc,
			NewUsage: gputypes.TextureUsageRenderAttachment,
		},
	}})

	if err := r.submit(encoder); err != nil {
		return nil, err
	}

	readback := make([]byte, stagingSize)
	if err := r.gpu.queue.ReadBuffer(stagingBuf, 0, readback); err != nil {
		return nil, fmt.Errorf("readback: %w", err)
	}

	img := image.NewRGBA(image.Rect(0, 0, int(w), int(h)))
	for row := range int(h) {
		src := readback[row*int(alignedBytesPerRow):][:bytesPerRow]
		copy(img.Pix[row*img.Stride:], src)
	}
	if isBGRA(t.format) {
		swapRedBlue(img.Pix)
	}
	return img, nil
}

func isBGRA(f gputypes.TextureFormat) bool {
	return f == gputypes.TextureFormatBGRA8Unorm || f == gputypes.TextureFormatBGRA8UnormSrgb
}

// swapRedBlue converts between BGRA and RGBA in place.
func swapRedBlue(pix []byte) {
	for i := 0; i+3 < len(pix); i += 4 {
		pix[i], pix[i+2] = pix[i+2], pix[i]
	}
}
