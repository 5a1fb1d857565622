package g3d

// disposeEvents lets callers observe Dispose on geometries, materials and
// textures, for example to evict them from their own caches.
type disposeEvents struct {
	listeners []func()
}

// OnDispose registers fn to run every time the resource is disposed.
func (d *disposeEvents) OnDispose(fn func()) {
	if fn != nil {
		d.listeners = append(d.listeners, fn)
	}
}

func (d *disposeEvents) dispatchDispose() {
	for _, fn := range d.listeners {
		fn()
	}
}
