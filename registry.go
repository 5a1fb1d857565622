package g3d

import (
	"fmt"
	"sync"
	"sync/atomic"
)

// Kind identifies which set of the registry a handle belongs to.
type Kind uint8

const (
	// KindRenderer tracks live renderers.
	KindRenderer Kind = iota

	// KindScene tracks live scenes.
	KindScene

	kindCount
)

// String returns the kind name.
func (k Kind) String() string {
	switch k {
	case KindRenderer:
		return "renderer"
	case KindScene:
		return "scene"
	default:
		return fmt.Sprintf("Kind(%d)", k)
	}
}

// HandleID is an opaque process-unique identifier of a renderer or scene.
// The registry stores only identifiers so it never keeps a renderer or a
// scene reachable.
type HandleID uint64

// Handle is implemented by objects tracked in a Registry.
type Handle interface {
	HandleID() HandleID
}

var lastHandleID atomic.Uint64

func newHandleID() HandleID {
	return HandleID(lastHandleID.Add(1))
}

// Registry tracks the renderers and scenes currently alive.
//
// Most applications expect exactly one renderer and one scene; the
// registry exists to catch accidental duplicate instantiation across an
// application. Use Default for the process-wide registry, or NewRegistry
// for an isolated one (tests, embedded viewers).
type Registry struct {
	mu   sync.RWMutex
	sets [kindCount]map[HandleID]struct{}
}

// NewRegistry creates a new empty registry.
func NewRegistry() *Registry {
	r := &Registry{}
	for i := range r.sets {
		r.sets[i] = make(map[HandleID]struct{})
	}
	return r
}

var defaultRegistry = sync.OnceValue(NewRegistry)

// Default returns the process-wide registry, creating it on first use.
// It is never torn down.
func Default() *Registry {
	return defaultRegistry()
}

// Register adds h to the set identified by kind.
// Registering a handle that is already present leaves the set unchanged.
// A nil handle or an unknown kind is ignored.
func (r *Registry) Register(kind Kind, h Handle) {
	if h == nil || kind >= kindCount {
		return
	}
	id := h.HandleID()

	r.mu.Lock()
	defer r.mu.Unlock()

	r.sets[kind][id] = struct{}{}
}

// Unregister removes h from the set identified by kind and reports whether
// it was present. Removing an absent handle is a no-op.
func (r *Registry) Unregister(kind Kind, h Handle) bool {
	if h == nil || kind >= kindCount {
		return false
	}
	id := h.HandleID()

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.sets[kind][id]; !ok {
		return false
	}
	delete(r.sets[kind], id)
	return true
}

// Contains reports whether h is registered under kind.
func (r *Registry) Contains(kind Kind, h Handle) bool {
	if h == nil || kind >= kindCount {
		return false
	}
	id := h.HandleID()

	r.mu.RLock()
	defer r.mu.RUnlock()

	_, ok := r.sets[kind][id]
	return ok
}

// Count returns the number of live handles of the given kind.
func (r *Registry) Count(kind Kind) int {
	if kind >= kindCount {
		return 0
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	return len(r.sets[kind])
}

// RendererCount returns the number of live renderers.
func (r *Registry) RendererCount() int { return r.Count(KindRenderer) }

// SceneCount returns the number of live scenes.
func (r *Registry) SceneCount() int { return r.Count(KindScene) }

// CheckMultipleInstances logs a warning when more than one renderer or
// more than one scene is alive, and reports whether it warned.
// It never mutates the registry.
func (r *Registry) CheckMultipleInstances() bool {
	r.mu.RLock()
	renderers := len(r.sets[KindRenderer])
	scenes := len(r.sets[KindScene])
	r.mu.RUnlock()

	if renderers <= 1 && scenes <= 1 {
		return false
	}
	Logger().Warn(
		fmt.Sprintf("g3d: multiple instances detected: %d renderers, %d scenes", renderers, scenes),
		"renderers", renderers,
		"scenes", scenes,
	)
	return true
}

// CheckMultipleInstances runs CheckMultipleInstances on the default registry.
func CheckMultipleInstances() bool {
	return Default().CheckMultipleInstances()
}
