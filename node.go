package g3d

import (
	"golang.org/x/image/math/f32"
)

// Node is an element of the scene tree: a local transform plus an optional
// payload. Meshes, lights and cameras are nodes carrying that payload.
//
// The tree is kept acyclic: a node has at most one parent, and Add detaches
// a child from its previous parent.
type Node struct {
	Name string

	Position f32.Vec3
	// Rotation is a unit quaternion (x, y, z, w).
	Rotation f32.Vec4
	Scale    f32.Vec3
	Visible  bool

	// At most one payload is set.
	Mesh   *Mesh
	Light  *Light
	Camera *Camera

	parent   *Node
	children []*Node
	world    f32.Mat4
}

// NewNode creates an empty, visible node with an identity transform.
func NewNode(name string) *Node {
	n := &Node{}
	n.init(name)
	return n
}

func (n *Node) init(name string) {
	n.Name = name
	n.Rotation = IdentityQuat
	n.Scale = f32.Vec3{1, 1, 1}
	n.Visible = true
	n.world = Identity()
}

// Parent returns the parent node, or nil for a root.
func (n *Node) Parent() *Node { return n.parent }

// Children returns a copy of the child list.
func (n *Node) Children() []*Node {
	out := make([]*Node, len(n.children))
	copy(out, n.children)
	return out
}

// Add appends children to n. A child that already has a parent is moved.
// Adding nil, n itself or an ancestor of n returns ErrInvalidChild and
// leaves the tree unchanged for that child.
func (n *Node) Add(children ...*Node) error {
	for _, c := range children {
		if c == nil || c == n || c.isAncestorOf(n) {
			return ErrInvalidChild
		}
		c.RemoveFromParent()
		c.parent = n
		n.children = append(n.children, c)
	}
	return nil
}

// Remove detaches the given direct children of n. Nodes that are not
// children of n are ignored.
func (n *Node) Remove(children ...*Node) {
	for _, c := range children {
		if c == nil || c.parent != n {
			continue
		}
		for i, cur := range n.children {
			if cur == c {
				n.children = append(n.children[:i], n.children[i+1:]...)
				break
			}
		}
		c.parent = nil
	}
}

// RemoveFromParent detaches n from its parent, if any.
func (n *Node) RemoveFromParent() {
	if n.parent != nil {
		n.parent.Remove(n)
	}
}

func (n *Node) isAncestorOf(other *Node) bool {
	for p := other.parent; p != nil; p = p.parent {
		if p == n {
			return true
		}
	}
	return false
}

// Traverse calls fn for n and every descendant in depth-first pre-order.
// Each node is visited once. The child lists are snapshotted as the walk
// descends, so fn may detach nodes.
func (n *Node) Traverse(fn func(*Node)) {
	n.walk(fn, false)
}

// TraverseVisible is like Traverse but skips invisible nodes and their
// subtrees.
func (n *Node) TraverseVisible(fn func(*Node)) {
	n.walk(fn, true)
}

func (n *Node) walk(fn func(*Node), visibleOnly bool) {
	stack := []*Node{n}
	for len(stack) > 0 {
		cur := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if visibleOnly && !cur.Visible {
			continue
		}
		fn(cur)
		for i := len(cur.children) - 1; i >= 0; i-- {
			stack = append(stack, cur.children[i])
		}
	}
}

// Find returns the first node named name in n's subtree, or nil.
func (n *Node) Find(name string) *Node {
	var found *Node
	n.Traverse(func(c *Node) {
		if found == nil && c.Name == name {
			found = c
		}
	})
	return found
}

// LocalMatrix returns the transform composed from Position, Rotation and
// Scale.
func (n *Node) LocalMatrix() f32.Mat4 {
	return Compose(n.Position, n.Rotation, n.Scale)
}

// SetMatrix replaces the local transform with m.
func (n *Node) SetMatrix(m f32.Mat4) {
	n.Position, n.Rotation, n.Scale = Decompose(m)
}

// WorldMatrix computes the node's transform relative to the root of its
// tree.
func (n *Node) WorldMatrix() f32.Mat4 {
	m := n.LocalMatrix()
	for p := n.parent; p != nil; p = p.parent {
		m = MulMat4(p.LocalMatrix(), m)
	}
	return m
}

// WorldPosition returns the node origin in world space.
func (n *Node) WorldPosition() f32.Vec3 {
	m := n.WorldMatrix()
	return f32.Vec3{m[3], m[7], m[11]}
}

// UpdateWorldMatrix recomputes the cached world matrices of n's subtree.
// The renderer calls it once per frame on the scene.
func (n *Node) UpdateWorldMatrix() {
	parent := Identity()
	if n.parent != nil {
		parent = n.parent.WorldMatrix()
	}
	n.updateWorld(parent)
}

func (n *Node) updateWorld(parent f32.Mat4) {
	type item struct {
		node   *Node
		parent f32.Mat4
	}
	stack := []item{{n, parent}}
	for len(stack) > 0 {
		it := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		it.node.world = MulMat4(it.parent, it.node.LocalMatrix())
		for _, c := range it.node.children {
			stack = append(stack, item{c, it.node.world})
		}
	}
}

// LookAt rotates n so that it faces target, given in world space. Cameras
// and lights look down their -Z axis, other nodes along +Z.
func (n *Node) LookAt(target f32.Vec3) {
	eye := n.WorldPosition()

	var z f32.Vec3
	if n.Camera != nil || n.Light != nil {
		z = sub3(eye, target)
	} else {
		z = sub3(target, eye)
	}
	if length3(z) == 0 {
		z[2] = 1
	}
	z = normalize3(z)

	up := f32.Vec3{0, 1, 0}
	x := cross3(up, z)
	if length3(x) == 0 {
		// up and z are parallel.
		if z[2] != 0 {
			z[0] += 0.0001
		} else {
			z[2] += 0.0001
		}
		z = normalize3(z)
		x = cross3(up, z)
	}
	x = normalize3(x)
	y := cross3(z, x)

	q := quatFromMat3([9]float32{
		x[0], y[0], z[0],
		x[1], y[1], z[1],
		x[2], y[2], z[2],
	})
	if n.parent != nil {
		_, parentRot, _ := Decompose(n.parent.WorldMatrix())
		q = MulQuat(conjugate(parentRot), q)
	}
	n.Rotation = normalizeQuat(q)
}
