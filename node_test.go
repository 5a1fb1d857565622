package g3d

import (
	"errors"
	"math"
	"testing"

	"golang.org/x/image/math/f32"
)

func TestNodeAdd(t *testing.T) {
	root := NewNode("root")
	a := NewNode("a")
	b := NewNode("b")

	if err := root.Add(a, b); err != nil {
		t.Fatalf("Add failed: %v", err)
	}
	if a.Parent() != root || b.Parent() != root {
		t.Error("children do not point at their parent")
	}
	if got := len(root.Children()); got != 2 {
		t.Errorf("len(Children()) = %d, want 2", got)
	}

	// Moving b under a detaches it from root.
	if err := a.Add(b); err != nil {
		t.Fatalf("Add failed: %v", err)
	}
	if b.Parent() != a {
		t.Error("b was not moved under a")
	}
	if got := len(root.Children()); got != 1 {
		t.Errorf("root keeps %d children after move, want 1", got)
	}
}

func TestNodeAddInvalid(t *testing.T) {
	root := NewNode("root")
	child := NewNode("child")
	grandchild := NewNode("grandchild")
	_ = root.Add(child)
	_ = child.Add(grandchild)

	tests := []struct {
		name   string
		parent *Node
		child  *Node
	}{
		{"nil", root, nil},
		{"self", child, child},
		{"parent", child, root},
		{"ancestor", grandchild, root},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := tt.parent.Add(tt.child); !errors.Is(err, ErrInvalidChild) {
				t.Errorf("Add = %v, want ErrInvalidChild", err)
			}
		})
	}
	if root.Parent() != nil || child.Parent() != root || grandchild.Parent() != child {
		t.Error("failed Add changed the tree")
	}
}

func TestNodeRemove(t *testing.T) {
	root := NewNode("root")
	a, b, c := NewNode("a"), NewNode("b"), NewNode("c")
	_ = root.Add(a, b, c)

	root.Remove(b, NewNode("stranger"), nil)
	if b.Parent() != nil {
		t.Error("removed node keeps its parent")
	}
	kids := root.Children()
	if len(kids) != 2 || kids[0] != a || kids[1] != c {
		t.Errorf("children after Remove = %v", kids)
	}

	c.RemoveFromParent()
	c.RemoveFromParent()
	if got := len(root.Children()); got != 1 {
		t.Errorf("len(Children()) = %d, want 1", got)
	}
}

func TestTraverseVisitsOnce(t *testing.T) {
	root := NewNode("root")
	var all []*Node
	parent := root
	for i := range 5 {
		n := NewNode("n")
		for range i {
			_ = n.Add(NewNode("leaf"))
		}
		_ = parent.Add(n)
		parent = n
	}
	root.Traverse(func(n *Node) { all = append(all, n) })

	seen := make(map[*Node]int)
	for _, n := range all {
		seen[n]++
	}
	// root + 5 chain nodes + 0+1+2+3+4 leaves.
	if want := 1 + 5 + 10; len(all) != want {
		t.Errorf("visited %d nodes, want %d", len(all), want)
	}
	for n, count := range seen {
		if count != 1 {
			t.Errorf("node %q visited %d times", n.Name, count)
		}
	}
	if all[0] != root {
		t.Error("traversal does not start at the root")
	}
}

func TestTraverseVisible(t *testing.T) {
	root := NewNode("root")
	hidden := NewNode("hidden")
	hidden.Visible = false
	_ = hidden.Add(NewNode("under_hidden"))
	_ = root.Add(hidden, NewNode("shown"))

	var names []string
	root.TraverseVisible(func(n *Node) { names = append(names, n.Name) })
	if len(names) != 2 || names[0] != "root" || names[1] != "shown" {
		t.Errorf("TraverseVisible visited %v, want [root shown]", names)
	}
}

func TestTraverseAllowsDetach(t *testing.T) {
	root := NewNode("root")
	for range 4 {
		_ = root.Add(NewNode("child"))
	}
	count := 0
	root.Traverse(func(n *Node) {
		count++
		if n != root {
			n.RemoveFromParent()
		}
	})
	if count != 5 {
		t.Errorf("visited %d nodes, want 5", count)
	}
	if len(root.Children()) != 0 {
		t.Error("children were not detached")
	}
}

func TestFind(t *testing.T) {
	root := NewNode("root")
	a := NewNode("a")
	target := NewNode("target")
	_ = root.Add(a)
	_ = a.Add(target)

	if got := root.Find("target"); got != target {
		t.Errorf("Find(target) = %v, want the target node", got)
	}
	if got := root.Find("missing"); got != nil {
		t.Errorf("Find(missing) = %v, want nil", got)
	}
}

func TestWorldMatrix(t *testing.T) {
	root := NewNode("root")
	root.Position = f32.Vec3{10, 0, 0}
	root.Rotation = QuatFromAxisAngle(f32.Vec3{0, 1, 0}, math.Pi/2)
	child := NewNode("child")
	child.Position = f32.Vec3{0, 0, 1}
	_ = root.Add(child)

	// Rotating +Z by 90 deg around Y gives +X.
	want := f32.Vec3{11, 0, 0}
	if got := child.WorldPosition(); !nearVec3(got, want) {
		t.Errorf("WorldPosition() = %v, want %v", got, want)
	}

	root.UpdateWorldMatrix()
	if got := child.world; !nearMat4(got, child.WorldMatrix()) {
		t.Errorf("cached world = %v, want %v", got, child.WorldMatrix())
	}
}

func TestSetMatrix(t *testing.T) {
	n := NewNode("n")
	m := Compose(f32.Vec3{1, 2, 3}, QuatFromAxisAngle(f32.Vec3{1, 0, 0}, 0.5), f32.Vec3{2, 2, 2})
	n.SetMatrix(m)
	if got := n.LocalMatrix(); !nearMat4(got, m) {
		t.Errorf("LocalMatrix() = %v, want %v", got, m)
	}
}

func TestLookAt(t *testing.T) {
	t.Run("camera", func(t *testing.T) {
		cam := NewPerspectiveCamera(50, 1, 0.1, 100)
		cam.Position = f32.Vec3{0, 0, 10}
		cam.LookAt(f32.Vec3{5, 0, 10})

		// A camera looks down its -Z axis.
		forward := RotateVec3(cam.Rotation, f32.Vec3{0, 0, -1})
		if !nearVec3(forward, f32.Vec3{1, 0, 0}) {
			t.Errorf("camera forward = %v, want (1, 0, 0)", forward)
		}
	})
	t.Run("object", func(t *testing.T) {
		n := NewNode("n")
		n.LookAt(f32.Vec3{0, 0, -3})
		forward := RotateVec3(n.Rotation, f32.Vec3{0, 0, 1})
		if !nearVec3(forward, f32.Vec3{0, 0, -1}) {
			t.Errorf("object forward = %v, want (0, 0, -1)", forward)
		}
	})
	t.Run("straight down", func(t *testing.T) {
		cam := NewPerspectiveCamera(50, 1, 0.1, 100)
		cam.Position = f32.Vec3{0, 10, 0}
		cam.LookAt(f32.Vec3{})
		forward := RotateVec3(cam.Rotation, f32.Vec3{0, 0, -1})
		if forward[1] > -0.99 {
			t.Errorf("camera forward = %v, want close to (0, -1, 0)", forward)
		}
	})
	t.Run("rotated parent", func(t *testing.T) {
		parent := NewNode("parent")
		parent.Rotation = QuatFromAxisAngle(f32.Vec3{0, 1, 0}, math.Pi/2)
		n := NewNode("n")
		_ = parent.Add(n)
		n.LookAt(f32.Vec3{0, 0, 5})

		_, worldRot, _ := Decompose(n.WorldMatrix())
		forward := RotateVec3(worldRot, f32.Vec3{0, 0, 1})
		if !nearVec3(forward, f32.Vec3{0, 0, 1}) {
			t.Errorf("world forward = %v, want (0, 0, 1)", forward)
		}
	})
}

func TestCameraMatrices(t *testing.T) {
	cam := NewPerspectiveCamera(60, 2, 0.5, 50)
	cam.Position = f32.Vec3{0, 0, 5}

	view := cam.ViewMatrix()
	if got := TransformPoint(view, f32.Vec3{0, 0, 0}); !nearVec3(got, f32.Vec3{0, 0, -5}) {
		t.Errorf("origin in view space = %v, want (0, 0, -5)", got)
	}

	cam.SetAspect(300, 100)
	if cam.Aspect != 3 {
		t.Errorf("Aspect = %v, want 3", cam.Aspect)
	}
	cam.SetAspect(300, 0)
	if cam.Aspect != 3 {
		t.Error("SetAspect with zero height changed the aspect")
	}

	p1 := cam.ProjectionMatrix()
	cam.Zoom = 2
	p2 := cam.ProjectionMatrix()
	if p2[5] <= p1[5] {
		t.Errorf("zooming in should increase the focal scale: %v <= %v", p2[5], p1[5])
	}
}
