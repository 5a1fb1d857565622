package g3d

// Mesh is a node drawing a geometry with one or more materials.
//
// With a single material the whole geometry is drawn with it. With several
// materials, each geometry group selects its material by index.
type Mesh struct {
	*Node

	Geometry  *Geometry
	Materials []*Material

	CastShadow    bool
	ReceiveShadow bool
}

// NewMesh creates a mesh node.
func NewMesh(geometry *Geometry, materials ...*Material) *Mesh {
	m := &Mesh{
		Node:      NewNode("mesh"),
		Geometry:  geometry,
		Materials: materials,
	}
	m.Node.Mesh = m
	return m
}

// Material returns the first material, or nil.
func (m *Mesh) Material() *Material {
	if len(m.Materials) == 0 {
		return nil
	}
	return m.Materials[0]
}

// drawRange is one draw call of a mesh: a vertex range and its material.
type drawRange struct {
	start, count uint32
	material     *Material
}

// drawRanges splits the mesh into draw calls. Ranges whose material is
// missing or hidden are skipped.
func (m *Mesh) drawRanges() []drawRange {
	g := m.Geometry
	if g == nil || len(m.Materials) == 0 {
		return nil
	}
	total := uint32(g.VertexCount())

	if len(g.Groups) == 0 || len(m.Materials) == 1 {
		mat := m.Materials[0]
		if mat == nil || !mat.Visible {
			return nil
		}
		return []drawRange{{start: 0, count: total, material: mat}}
	}

	ranges := make([]drawRange, 0, len(g.Groups))
	for _, grp := range g.Groups {
		if grp.MaterialIndex < 0 || grp.MaterialIndex >= len(m.Materials) {
			continue
		}
		mat := m.Materials[grp.MaterialIndex]
		if mat == nil || !mat.Visible {
			continue
		}
		start := uint32(max(grp.Start, 0))
		if start >= total {
			continue
		}
		count := min(uint32(max(grp.Count, 0)), total-start)
		if count == 0 {
			continue
		}
		ranges = append(ranges, drawRange{start: start, count: count, material: mat})
	}
	return ranges
}
