package g3d

// NewRenderer creates a renderer and registers it with the default registry.
//
// Errors from the backend (instance creation, device open) are returned
// unmodified. ErrNoAdapter is returned when the backend has no adapter.
func NewRenderer(opts ...RendererOption) (*Renderer, error) {
	return Default().NewRenderer(opts...)
}

// NewScene creates an empty scene registered with the default registry.
func NewScene() *Scene {
	return Default().NewScene()
}

// DisposeRenderer unregisters r and releases its GPU resources.
// A nil or already disposed renderer is ignored.
func DisposeRenderer(r *Renderer) {
	r.Dispose()
}

// DisposeScene unregisters s and releases the GPU resources of its meshes.
// A nil or already disposed scene is ignored.
func DisposeScene(s *Scene) {
	s.Dispose()
}
