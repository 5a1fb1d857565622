package loader

import (
	"bytes"
	"encoding/base64"
	"errors"
	"fmt"
	"image"
	"io"
	"io/fs"
	"net/url"
	"strings"

	// Image formats glTF files embed or reference.
	_ "image/jpeg"
	_ "image/png"

	_ "golang.org/x/image/webp"

	"github.com/qmuntal/gltf"
	"github.com/qmuntal/gltf/modeler"
	"golang.org/x/image/math/f32"

	"github.com/gogpu/g3d"
)

// ErrNoScene is returned for documents without nodes.
var ErrNoScene = errors.New("loader: document has no scene")

// Decode parses a glTF or GLB document from r and builds its default scene.
// fsys resolves external buffers and images; it may be nil for
// self-contained documents.
func Decode(r io.Reader, fsys fs.FS) (*g3d.Node, error) {
	if fsys == nil {
		fsys = emptyFS{}
	}
	doc := new(gltf.Document)
	if err := gltf.NewDecoderFS(r, fsys).Decode(doc); err != nil {
		return nil, err
	}
	c := newConverter(doc, fsys)
	return c.scene()
}

type emptyFS struct{}

func (emptyFS) Open(name string) (fs.File, error) {
	return nil, &fs.PathError{Op: "open", Path: name, Err: fs.ErrNotExist}
}

type primitiveKey struct{ mesh, primitive int }

// converter turns a decoded document into a node tree. Geometries,
// materials and textures are built once per glTF index and shared.
type converter struct {
	doc  *gltf.Document
	fsys fs.FS

	geometries map[primitiveKey]*g3d.Geometry
	materials  map[int]*g3d.Material
	textures   map[int]*g3d.Texture
	fallback   *g3d.Material
	visiting   map[int]bool
}

func newConverter(doc *gltf.Document, fsys fs.FS) *converter {
	return &converter{
		doc:        doc,
		fsys:       fsys,
		geometries: make(map[primitiveKey]*g3d.Geometry),
		materials:  make(map[int]*g3d.Material),
		textures:   make(map[int]*g3d.Texture),
		visiting:   make(map[int]bool),
	}
}

// scene builds the default scene, or a scene of every root node when the
// document declares none.
func (c *converter) scene() (*g3d.Node, error) {
	root := g3d.NewNode("gltf_scene")

	var roots []int
	switch {
	case len(c.doc.Scenes) > 0:
		idx := 0
		if c.doc.Scene != nil && int(*c.doc.Scene) < len(c.doc.Scenes) {
			idx = int(*c.doc.Scene)
		}
		sc := c.doc.Scenes[idx]
		if sc.Name != "" {
			root.Name = sc.Name
		}
		for _, n := range sc.Nodes {
			roots = append(roots, int(n))
		}
	case len(c.doc.Nodes) > 0:
		roots = c.rootNodes()
	default:
		return nil, ErrNoScene
	}

	for _, idx := range roots {
		child, err := c.node(idx)
		if err != nil {
			return nil, err
		}
		if err := root.Add(child); err != nil {
			return nil, fmt.Errorf("loader: node %d: %w", idx, err)
		}
	}
	return root, nil
}

// rootNodes returns the nodes no other node lists as a child.
func (c *converter) rootNodes() []int {
	isChild := make(map[int]bool)
	for _, n := range c.doc.Nodes {
		for _, ch := range n.Children {
			isChild[int(ch)] = true
		}
	}
	var roots []int
	for i := range c.doc.Nodes {
		if !isChild[i] {
			roots = append(roots, i)
		}
	}
	return roots
}

func (c *converter) node(idx int) (*g3d.Node, error) {
	if idx < 0 || idx >= len(c.doc.Nodes) {
		return nil, fmt.Errorf("loader: node index %d out of range", idx)
	}
	if c.visiting[idx] {
		return nil, fmt.Errorf("loader: node %d is its own ancestor", idx)
	}
	c.visiting[idx] = true
	defer delete(c.visiting, idx)

	src := c.doc.Nodes[idx]
	var n *g3d.Node
	if src.Mesh != nil {
		built, err := c.mesh(int(*src.Mesh))
		if err != nil {
			return nil, err
		}
		n = built
	} else {
		n = g3d.NewNode("")
	}
	if src.Name != "" {
		n.Name = src.Name
	} else if n.Name == "" {
		n.Name = fmt.Sprintf("node_%d", idx)
	}
	setTransform(n, src)

	for _, ch := range src.Children {
		child, err := c.node(int(ch))
		if err != nil {
			return nil, err
		}
		if err := n.Add(child); err != nil {
			return nil, fmt.Errorf("loader: node %d: %w", ch, err)
		}
	}
	return n, nil
}

// setTransform copies a glTF node transform. A matrix other than the
// identity wins over TRS.
func setTransform(n *g3d.Node, src *gltf.Node) {
	if mat := src.MatrixOrDefault(); mat != gltf.DefaultMatrix {
		var m f32.Mat4
		for r := range 4 {
			for col := range 4 {
				// glTF matrices are column-major.
				m[4*r+col] = mat[4*col+r]
			}
		}
		n.SetMatrix(m)
		return
	}
	n.Position = f32.Vec3(src.TranslationOrDefault())
	n.Rotation = f32.Vec4(src.RotationOrDefault())
	n.Scale = f32.Vec3(src.ScaleOrDefault())
}

// mesh builds the node of a glTF mesh: a mesh node for a single primitive,
// a group of mesh nodes otherwise.
func (c *converter) mesh(idx int) (*g3d.Node, error) {
	if idx < 0 || idx >= len(c.doc.Meshes) {
		return nil, fmt.Errorf("loader: mesh index %d out of range", idx)
	}
	src := c.doc.Meshes[idx]

	var meshes []*g3d.Mesh
	for p, prim := range src.Primitives {
		if prim.Mode != gltf.PrimitiveTriangles {
			g3d.Logger().Debug("loader: skipping non-triangle primitive", "mesh", idx, "primitive", p)
			continue
		}
		geometry, err := c.geometry(idx, p, prim)
		if err != nil {
			return nil, err
		}
		material, err := c.material(prim.Material)
		if err != nil {
			return nil, err
		}
		m := g3d.NewMesh(geometry, material)
		m.Name = fmt.Sprintf("%s_%d", src.Name, p)
		meshes = append(meshes, m)
	}

	if len(meshes) == 1 {
		meshes[0].Name = src.Name
		return meshes[0].Node, nil
	}
	group := g3d.NewNode(src.Name)
	for _, m := range meshes {
		_ = group.Add(m.Node)
	}
	return group, nil
}

func (c *converter) accessor(idx int) (*gltf.Accessor, error) {
	if idx < 0 || idx >= len(c.doc.Accessors) {
		return nil, fmt.Errorf("loader: accessor index %d out of range", idx)
	}
	return c.doc.Accessors[idx], nil
}

func (c *converter) geometry(meshIdx, primIdx int, prim *gltf.Primitive) (*g3d.Geometry, error) {
	key := primitiveKey{meshIdx, primIdx}
	if g, ok := c.geometries[key]; ok {
		return g, nil
	}

	posIdx, ok := prim.Attributes["POSITION"]
	if !ok {
		return nil, fmt.Errorf("loader: mesh %d primitive %d has no POSITION", meshIdx, primIdx)
	}
	acr, err := c.accessor(int(posIdx))
	if err != nil {
		return nil, err
	}
	positions, err := modeler.ReadPosition(c.doc, acr, nil)
	if err != nil {
		return nil, fmt.Errorf("loader: read positions: %w", err)
	}

	g := g3d.NewGeometry(make([]f32.Vec3, len(positions)), nil)
	g.Name = c.doc.Meshes[meshIdx].Name
	for i, p := range positions {
		g.Positions[i] = f32.Vec3(p)
	}

	if nIdx, ok := prim.Attributes["NORMAL"]; ok {
		acr, err := c.accessor(int(nIdx))
		if err != nil {
			return nil, err
		}
		normals, err := modeler.ReadNormal(c.doc, acr, nil)
		if err != nil {
			return nil, fmt.Errorf("loader: read normals: %w", err)
		}
		g.Normals = make([]f32.Vec3, len(normals))
		for i, n := range normals {
			g.Normals[i] = f32.Vec3(n)
		}
	}
	if uvIdx, ok := prim.Attributes["TEXCOORD_0"]; ok {
		acr, err := c.accessor(int(uvIdx))
		if err != nil {
			return nil, err
		}
		uvs, err := modeler.ReadTextureCoord(c.doc, acr, nil)
		if err != nil {
			return nil, fmt.Errorf("loader: read texture coordinates: %w", err)
		}
		g.UVs = make([]f32.Vec2, len(uvs))
		for i, uv := range uvs {
			g.UVs[i] = f32.Vec2(uv)
		}
	}
	if prim.Indices != nil {
		acr, err := c.accessor(int(*prim.Indices))
		if err != nil {
			return nil, err
		}
		indices, err := modeler.ReadIndices(c.doc, acr, nil)
		if err != nil {
			return nil, fmt.Errorf("loader: read indices: %w", err)
		}
		g.Indices = indices
	}

	c.geometries[key] = g
	return g, nil
}

func (c *converter) material(idx *uint32) (*g3d.Material, error) {
	if idx == nil {
		if c.fallback == nil {
			c.fallback = g3d.NewStandardMaterial()
			c.fallback.Name = "default"
		}
		return c.fallback, nil
	}
	i := int(*idx)
	if m, ok := c.materials[i]; ok {
		return m, nil
	}
	if i >= len(c.doc.Materials) {
		return nil, fmt.Errorf("loader: material index %d out of range", i)
	}
	src := c.doc.Materials[i]

	m := g3d.NewStandardMaterial()
	m.Name = src.Name
	m.Emissive = g3d.RGB(src.EmissiveFactor[0], src.EmissiveFactor[1], src.EmissiveFactor[2])
	if src.DoubleSided {
		m.Side = g3d.DoubleSide
	}
	if pbr := src.PBRMetallicRoughness; pbr != nil {
		f := pbr.BaseColorFactorOrDefault()
		m.Color = g3d.RGB(f[0], f[1], f[2])
		m.Opacity = f[3]
		m.Metalness = pbr.MetallicFactorOrDefault()
		m.Roughness = pbr.RoughnessFactorOrDefault()
		if info := pbr.BaseColorTexture; info != nil {
			m.Map = c.texture(int(info.Index))
		}
	}
	if src.AlphaMode == gltf.AlphaBlend {
		m.Transparent = true
		m.DepthWrite = false
	}

	c.materials[i] = m
	return m, nil
}

// texture returns the texture at idx, or nil when its image cannot be
// read. Broken images are logged and do not fail the load.
func (c *converter) texture(idx int) *g3d.Texture {
	if t, ok := c.textures[idx]; ok {
		return t
	}
	var t *g3d.Texture
	img, name, err := c.image(idx)
	if err != nil {
		g3d.Logger().Warn("loader: texture skipped", "texture", idx, "err", err)
	} else {
		t = g3d.NewTexture(img)
		t.Name = name
	}
	c.textures[idx] = t
	return t
}

func (c *converter) image(texIdx int) (image.Image, string, error) {
	if texIdx < 0 || texIdx >= len(c.doc.Textures) {
		return nil, "", fmt.Errorf("texture index %d out of range", texIdx)
	}
	tex := c.doc.Textures[texIdx]
	if tex.Source == nil || int(*tex.Source) >= len(c.doc.Images) {
		return nil, "", fmt.Errorf("texture %d has no image", texIdx)
	}
	src := c.doc.Images[*tex.Source]

	data, err := c.imageData(src)
	if err != nil {
		return nil, "", err
	}
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, "", fmt.Errorf("decode image %q: %w", src.Name, err)
	}
	return img, src.Name, nil
}

func (c *converter) imageData(src *gltf.Image) ([]byte, error) {
	switch {
	case src.BufferView != nil:
		bvIdx := int(*src.BufferView)
		if bvIdx >= len(c.doc.BufferViews) {
			return nil, fmt.Errorf("buffer view %d out of range", bvIdx)
		}
		bv := c.doc.BufferViews[bvIdx]
		if int(bv.Buffer) >= len(c.doc.Buffers) {
			return nil, fmt.Errorf("buffer %d out of range", bv.Buffer)
		}
		buf := c.doc.Buffers[bv.Buffer].Data
		start, end := int(bv.ByteOffset), int(bv.ByteOffset)+int(bv.ByteLength)
		if end > len(buf) {
			return nil, fmt.Errorf("buffer view %d exceeds its buffer", bvIdx)
		}
		return buf[start:end], nil
	case strings.HasPrefix(src.URI, "data:"):
		return decodeDataURI(src.URI)
	case src.URI != "":
		name, err := url.PathUnescape(src.URI)
		if err != nil {
			name = src.URI
		}
		return fs.ReadFile(c.fsys, name)
	default:
		return nil, errors.New("image has no data")
	}
}

// decodeDataURI returns the payload of a base64 data URI.
func decodeDataURI(uri string) ([]byte, error) {
	header, payload, ok := strings.Cut(strings.TrimPrefix(uri, "data:"), ",")
	if !ok {
		return nil, errors.New("malformed data URI")
	}
	if !strings.HasSuffix(header, ";base64") {
		return []byte(payload), nil
	}
	return base64.StdEncoding.DecodeString(payload)
}
