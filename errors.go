package g3d

import "errors"

// Common renderer errors.
var (
	// ErrNoBackend is returned when no backend is given and Vulkan is not
	// registered.
	ErrNoBackend = errors.New("g3d: no graphics backend registered")

	// ErrNoAdapter is returned when the backend exposes no GPU adapter.
	ErrNoAdapter = errors.New("g3d: no GPU adapter available")

	// ErrRendererDisposed is returned when a disposed renderer is used.
	ErrRendererDisposed = errors.New("g3d: renderer disposed")

	// ErrNilScene is returned by Render when no scene is given.
	ErrNilScene = errors.New("g3d: no scene defined")

	// ErrNilCamera is returned by Render when no camera is given.
	ErrNilCamera = errors.New("g3d: no camera defined")

	// ErrInvalidSize is returned when a render target is sized to zero.
	ErrInvalidSize = errors.New("g3d: invalid render target size")

	// ErrInvalidChild is returned when adding a node would break the tree:
	// the node itself, one of its ancestors, or nil.
	ErrInvalidChild = errors.New("g3d: invalid child node")
)
