package g3d

import (
	"github.com/gogpu/gpucontext"
	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"
)

// RendererOption configures a Renderer during creation.
// Options are applied in order over the defaults: antialiasing on,
// high-performance adapter, 800x600 BGRA8 output.
//
// Example:
//
//	// Default Vulkan device
//	r, err := g3d.NewRenderer()
//
//	// Share the host application's device
//	r, err := g3d.NewRenderer(g3d.WithDeviceProvider(app), g3d.WithSize(1280, 720))
type RendererOption func(*rendererOptions)

// rendererOptions holds optional configuration for Renderer creation.
type rendererOptions struct {
	antialias       bool
	powerPreference gputypes.PowerPreference
	width, height   int
	format          gputypes.TextureFormat
	formatSet       bool
	clearColor      Color
	clearAlpha      float32
	label           string

	backend  InstanceFactory
	provider gpucontext.DeviceProvider
	device   hal.Device
	queue    hal.Queue
}

// defaultOptions returns the default renderer options.
func defaultOptions() rendererOptions {
	return rendererOptions{
		antialias:       true,
		powerPreference: gputypes.PowerPreferenceHighPerformance,
		width:           800,
		height:          600,
		format:          gputypes.TextureFormatBGRA8Unorm,
		clearColor:      Black,
		clearAlpha:      1,
		label:           "g3d",
	}
}

// WithAntialias enables or disables 4x MSAA on the output target.
func WithAntialias(enabled bool) RendererOption {
	return func(o *rendererOptions) {
		o.antialias = enabled
	}
}

// WithPowerPreference selects which adapter kind the renderer prefers.
// High performance prefers discrete GPUs, low power prefers integrated
// GPUs. Any other value takes the first adapter.
func WithPowerPreference(p gputypes.PowerPreference) RendererOption {
	return func(o *rendererOptions) {
		o.powerPreference = p
	}
}

// WithSize sets the initial output size in pixels.
func WithSize(width, height int) RendererOption {
	return func(o *rendererOptions) {
		o.width = width
		o.height = height
	}
}

// WithFormat sets the output color format. It overrides the format
// reported by a device provider.
func WithFormat(format gputypes.TextureFormat) RendererOption {
	return func(o *rendererOptions) {
		o.format = format
		o.formatSet = true
	}
}

// WithClearColor sets the color the output is cleared to at the start of
// each frame when the scene has no background.
func WithClearColor(c Color, alpha float32) RendererOption {
	return func(o *rendererOptions) {
		o.clearColor = c
		o.clearAlpha = alpha
	}
}

// WithLabel sets the prefix of GPU debug labels.
func WithLabel(label string) RendererOption {
	return func(o *rendererOptions) {
		o.label = label
	}
}

// WithBackend creates the renderer's device from the given backend instead
// of the registered Vulkan backend.
//
// Example:
//
//	r, err := g3d.NewRenderer(g3d.WithBackend(&noop.API{}))
func WithBackend(b InstanceFactory) RendererOption {
	return func(o *rendererOptions) {
		o.backend = b
	}
}

// WithDeviceProvider makes the renderer borrow the device of a host
// application (for example a gogpu window). The provider must expose
// HalDevice() and HalQueue(). A borrowed device is never destroyed by
// the renderer.
func WithDeviceProvider(p gpucontext.DeviceProvider) RendererOption {
	return func(o *rendererOptions) {
		o.provider = p
	}
}

// WithHalDevice makes the renderer borrow an already opened device and
// queue. The renderer never destroys them.
func WithHalDevice(device hal.Device, queue hal.Queue) RendererOption {
	return func(o *rendererOptions) {
		o.device = device
		o.queue = queue
	}
}
