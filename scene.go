package g3d

// Scene is the root of a node tree. Scenes are created through a Registry
// (or NewScene for the default one) so live scenes can be counted.
type Scene struct {
	Node

	// Background, when set, is the color the frame is cleared to.
	Background *Color

	id       HandleID
	registry *Registry
	disposed bool
}

// NewScene creates an empty scene and registers it. It never fails.
func (r *Registry) NewScene() *Scene {
	s := &Scene{id: newHandleID(), registry: r}
	s.Node.init("scene")
	r.Register(KindScene, s)
	Logger().Debug("g3d: scene created", "id", s.id)
	return s
}

// HandleID returns the scene's registry identifier.
func (s *Scene) HandleID() HandleID { return s.id }

// Dispose unregisters the scene and releases the GPU resources of every
// mesh in its tree: each geometry and each material once, however many
// meshes share them. Textures are left alone. Calling Dispose on a nil or
// already disposed scene does nothing.
func (s *Scene) Dispose() {
	if s == nil || s.disposed {
		return
	}
	s.disposed = true
	if s.registry != nil {
		s.registry.Unregister(KindScene, s)
	}
	geometries, materials := DisposeTree(&s.Node)
	Logger().Debug("g3d: scene disposed", "id", s.id, "geometries", geometries, "materials", materials)
}

// DisposeTree disposes the geometry and materials of every mesh reachable
// from root. Shared geometries and materials are disposed once. It returns
// how many of each were disposed.
func DisposeTree(root *Node) (geometries, materials int) {
	if root == nil {
		return 0, 0
	}
	seenGeometry := make(map[*Geometry]struct{})
	seenMaterial := make(map[*Material]struct{})

	root.Traverse(func(n *Node) {
		if n.Mesh == nil {
			return
		}
		if g := n.Mesh.Geometry; g != nil {
			if _, ok := seenGeometry[g]; !ok {
				seenGeometry[g] = struct{}{}
				g.Dispose()
				geometries++
			}
		}
		for _, m := range n.Mesh.Materials {
			if m == nil {
				continue
			}
			if _, ok := seenMaterial[m]; ok {
				continue
			}
			seenMaterial[m] = struct{}{}
			m.Dispose()
			materials++
		}
	})
	return geometries, materials
}
