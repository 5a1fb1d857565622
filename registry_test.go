package g3d

import (
	"math/rand/v2"
	"strings"
	"sync"
	"testing"
)

type testHandle HandleID

func (h testHandle) HandleID() HandleID { return HandleID(h) }

func TestKindString(t *testing.T) {
	tests := []struct {
		kind Kind
		want string
	}{
		{KindRenderer, "renderer"},
		{KindScene, "scene"},
		{Kind(9), "Kind(9)"},
	}
	for _, tt := range tests {
		if got := tt.kind.String(); got != tt.want {
			t.Errorf("Kind(%d).String() = %q, want %q", tt.kind, got, tt.want)
		}
	}
}

func TestRegistryRegisterIdempotent(t *testing.T) {
	r := NewRegistry()
	h := testHandle(1)

	r.Register(KindRenderer, h)
	r.Register(KindRenderer, h)

	if got := r.Count(KindRenderer); got != 1 {
		t.Errorf("Count(renderer) = %d, want 1", got)
	}
	if got := r.Count(KindScene); got != 0 {
		t.Errorf("Count(scene) = %d, want 0", got)
	}
	if !r.Contains(KindRenderer, h) {
		t.Error("Contains(renderer, h) = false, want true")
	}
	if r.Contains(KindScene, h) {
		t.Error("Contains(scene, h) = true, want false")
	}
}

func TestRegistryUnregisterAbsent(t *testing.T) {
	r := NewRegistry()
	r.Register(KindScene, testHandle(1))

	if r.Unregister(KindScene, testHandle(2)) {
		t.Error("Unregister of absent handle reported true")
	}
	if r.Unregister(KindRenderer, testHandle(1)) {
		t.Error("Unregister from the wrong kind reported true")
	}
	if got := r.SceneCount(); got != 1 {
		t.Errorf("SceneCount() = %d, want 1", got)
	}

	if !r.Unregister(KindScene, testHandle(1)) {
		t.Error("Unregister of present handle reported false")
	}
	if r.Unregister(KindScene, testHandle(1)) {
		t.Error("second Unregister reported true")
	}
	if got := r.SceneCount(); got != 0 {
		t.Errorf("SceneCount() = %d, want 0", got)
	}
}

func TestRegistryIgnoresNilAndUnknownKind(t *testing.T) {
	r := NewRegistry()
	r.Register(KindRenderer, nil)
	r.Register(Kind(7), testHandle(1))
	r.Unregister(Kind(7), testHandle(1))

	if got := r.Count(KindRenderer); got != 0 {
		t.Errorf("Count(renderer) = %d, want 0", got)
	}
	if got := r.Count(Kind(7)); got != 0 {
		t.Errorf("Count(Kind(7)) = %d, want 0", got)
	}
}

// TestRegistryMatchesModel checks random register/unregister sequences
// against a plain set model.
func TestRegistryMatchesModel(t *testing.T) {
	rng := rand.New(rand.NewPCG(1, 2))
	r := NewRegistry()
	model := [kindCount]map[HandleID]bool{{}, {}}

	for i := 0; i < 2000; i++ {
		kind := Kind(rng.IntN(int(kindCount)))
		h := testHandle(rng.IntN(16) + 1)
		if rng.IntN(2) == 0 {
			r.Register(kind, h)
			model[kind][HandleID(h)] = true
		} else {
			removed := r.Unregister(kind, h)
			if removed != model[kind][HandleID(h)] {
				t.Fatalf("step %d: Unregister(%v, %d) = %v, model says %v", i, kind, h, removed, !removed)
			}
			delete(model[kind], HandleID(h))
		}
		for k := Kind(0); k < kindCount; k++ {
			if got, want := r.Count(k), len(model[k]); got != want {
				t.Fatalf("step %d: Count(%v) = %d, want %d", i, k, got, want)
			}
		}
	}
}

func TestCheckMultipleInstances(t *testing.T) {
	tests := []struct {
		name      string
		renderers int
		scenes    int
		warn      bool
	}{
		{"empty", 0, 0, false},
		{"single pair", 1, 1, false},
		{"two renderers", 2, 1, true},
		{"two scenes", 0, 2, true},
		{"many", 3, 4, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			logs := captureLogs(t)
			r := NewRegistry()
			for i := 0; i < tt.renderers; i++ {
				r.Register(KindRenderer, testHandle(i+1))
			}
			for i := 0; i < tt.scenes; i++ {
				r.Register(KindScene, testHandle(i+100))
			}

			if got := r.CheckMultipleInstances(); got != tt.warn {
				t.Errorf("CheckMultipleInstances() = %v, want %v", got, tt.warn)
			}
			warned := strings.Contains(logs.String(), "level=WARN")
			if warned != tt.warn {
				t.Errorf("warning logged = %v, want %v (logs: %s)", warned, tt.warn, logs.String())
			}
			if r.RendererCount() != tt.renderers || r.SceneCount() != tt.scenes {
				t.Errorf("counts changed to %d/%d", r.RendererCount(), r.SceneCount())
			}
		})
	}
}

func TestDefaultRegistrySingleton(t *testing.T) {
	if Default() != Default() {
		t.Fatal("Default() returned different registries")
	}
}

func TestRegistryConcurrentAccess(t *testing.T) {
	r := NewRegistry()
	var wg sync.WaitGroup
	for i := range 64 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			h := testHandle(i + 1)
			r.Register(KindScene, h)
			_ = r.Count(KindScene)
			r.CheckMultipleInstances()
			r.Unregister(KindScene, h)
		}()
	}
	wg.Wait()
	if got := r.SceneCount(); got != 0 {
		t.Errorf("SceneCount() = %d, want 0", got)
	}
}
