package g3d

import (
	"encoding/binary"
	"math"

	"golang.org/x/image/math/f32"

	"github.com/gogpu/wgpu/hal"
)

// vertexStride is the size of an interleaved vertex:
// position (3 x f32), normal (3 x f32), uv (2 x f32).
const vertexStride = 32

// Group is a range of drawn vertices rendered with one material of a
// multi-material mesh. Start and Count index the index list when the
// geometry is indexed, the vertex list otherwise.
type Group struct {
	Start         int
	Count         int
	MaterialIndex int
}

// Geometry holds triangle list vertex data. Normals and UVs are optional;
// missing normals are computed on upload.
//
// A geometry may be shared by several meshes. It becomes resident on a
// renderer the first time it is drawn and stays there until Dispose.
type Geometry struct {
	disposeEvents

	Name      string
	Positions []f32.Vec3
	Normals   []f32.Vec3
	UVs       []f32.Vec2
	Indices   []uint32
	Groups    []Group

	// NeedsUpdate makes the next render upload the vertex data again.
	NeedsUpdate bool

	gpu *geometryGPU
}

// geometryGPU is the renderer-side state of a resident geometry.
type geometryGPU struct {
	owner     *Renderer
	vertBuf   hal.Buffer
	vertCount uint32
}

// NewGeometry creates a geometry from positions and an optional index list.
func NewGeometry(positions []f32.Vec3, indices []uint32) *Geometry {
	return &Geometry{Positions: positions, Indices: indices}
}

// AddGroup appends a draw group.
func (g *Geometry) AddGroup(start, count, materialIndex int) {
	g.Groups = append(g.Groups, Group{Start: start, Count: count, MaterialIndex: materialIndex})
}

// VertexCount returns the number of vertices drawn: the index count for
// indexed geometry, the position count otherwise.
func (g *Geometry) VertexCount() int {
	if len(g.Indices) > 0 {
		return len(g.Indices)
	}
	return len(g.Positions)
}

// TriangleCount returns the number of triangles drawn.
func (g *Geometry) TriangleCount() int {
	return g.VertexCount() / 3
}

// Resident reports whether the geometry currently holds GPU buffers.
func (g *Geometry) Resident() bool {
	return g.gpu != nil
}

// ComputeVertexNormals replaces Normals with area-weighted vertex normals.
func (g *Geometry) ComputeVertexNormals() {
	normals := make([]f32.Vec3, len(g.Positions))
	tri := func(a, b, c uint32) {
		if int(a) >= len(g.Positions) || int(b) >= len(g.Positions) || int(c) >= len(g.Positions) {
			return
		}
		pa, pb, pc := g.Positions[a], g.Positions[b], g.Positions[c]
		n := cross3(sub3(pc, pb), sub3(pa, pb))
		normals[a] = add3(normals[a], n)
		normals[b] = add3(normals[b], n)
		normals[c] = add3(normals[c], n)
	}
	if len(g.Indices) > 0 {
		for i := 0; i+2 < len(g.Indices); i += 3 {
			tri(g.Indices[i], g.Indices[i+1], g.Indices[i+2])
		}
	} else {
		for i := 0; i+2 < len(g.Positions); i += 3 {
			tri(uint32(i), uint32(i+1), uint32(i+2))
		}
	}
	for i := range normals {
		normals[i] = normalize3(normals[i])
	}
	g.Normals = normals
}

// Dispose releases the geometry's GPU buffers. The geometry stays usable
// and is uploaded again if drawn later. Listeners registered with
// OnDispose run on every call.
func (g *Geometry) Dispose() {
	if g.gpu != nil {
		g.gpu.owner.releaseGeometry(g)
	}
	g.dispatchDispose()
}

// buildVertices interleaves the geometry into a triangle list, expanding
// indices. Out-of-range indices produce a degenerate vertex at the origin.
func (g *Geometry) buildVertices() []byte {
	if len(g.Normals) != len(g.Positions) {
		g.ComputeVertexNormals()
	}
	count := g.VertexCount()
	if count == 0 {
		return nil
	}
	buf := make([]byte, count*vertexStride)
	for i := 0; i < count; i++ {
		idx := i
		if len(g.Indices) > 0 {
			idx = int(g.Indices[i])
		}
		var pos, nrm f32.Vec3
		var uv f32.Vec2
		if idx < len(g.Positions) {
			pos = g.Positions[idx]
			nrm = g.Normals[idx]
		}
		if idx < len(g.UVs) {
			uv = g.UVs[idx]
		}
		writeVertex(buf[i*vertexStride:], pos, nrm, uv)
	}
	return buf
}

func writeVertex(buf []byte, pos, nrm f32.Vec3, uv f32.Vec2) {
	putFloats(buf[0:], pos[0], pos[1], pos[2], nrm[0], nrm[1], nrm[2], uv[0], uv[1])
}

func putFloats(buf []byte, values ...float32) {
	for i, v := range values {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(v))
	}
}

// NewBoxGeometry creates an axis-aligned box centered at the origin with
// one group per face (+X, -X, +Y, -Y, +Z, -Z).
func NewBoxGeometry(width, height, depth float32) *Geometry {
	hx, hy, hz := width/2, height/2, depth/2
	type face struct {
		normal  f32.Vec3
		corners [4]f32.Vec3
	}
	faces := []face{
		{f32.Vec3{1, 0, 0}, [4]f32.Vec3{{hx, -hy, hz}, {hx, -hy, -hz}, {hx, hy, -hz}, {hx, hy, hz}}},
		{f32.Vec3{-1, 0, 0}, [4]f32.Vec3{{-hx, -hy, -hz}, {-hx, -hy, hz}, {-hx, hy, hz}, {-hx, hy, -hz}}},
		{f32.Vec3{0, 1, 0}, [4]f32.Vec3{{-hx, hy, hz}, {hx, hy, hz}, {hx, hy, -hz}, {-hx, hy, -hz}}},
		{f32.Vec3{0, -1, 0}, [4]f32.Vec3{{-hx, -hy, -hz}, {hx, -hy, -hz}, {hx, -hy, hz}, {-hx, -hy, hz}}},
		{f32.Vec3{0, 0, 1}, [4]f32.Vec3{{-hx, -hy, hz}, {hx, -hy, hz}, {hx, hy, hz}, {-hx, hy, hz}}},
		{f32.Vec3{0, 0, -1}, [4]f32.Vec3{{hx, -hy, -hz}, {-hx, -hy, -hz}, {-hx, hy, -hz}, {hx, hy, -hz}}},
	}
	uvs := [4]f32.Vec2{{0, 1}, {1, 1}, {1, 0}, {0, 0}}

	g := &Geometry{Name: "box"}
	for i, f := range faces {
		base := uint32(len(g.Positions))
		for j, c := range f.corners {
			g.Positions = append(g.Positions, c)
			g.Normals = append(g.Normals, f.normal)
			g.UVs = append(g.UVs, uvs[j])
		}
		g.Indices = append(g.Indices, base, base+1, base+2, base, base+2, base+3)
		g.AddGroup(i*6, 6, i)
	}
	return g
}
