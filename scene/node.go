package scene

import (
	"fmt"
	"image"

	"github.com/chewxy/math32"
	"github.com/xlab/linmath"
)

// Node is one element of the scene graph. A node with a nil Mesh is a plain
// group. Nodes are only ever added to a graph, never removed.
type Node struct {
	Name string

	// Local is the transform of the node relative to its parent.
	Local linmath.Mat4x4

	// Mesh is the geometry drawn at this node, if any.
	Mesh *Mesh

	children []*Node
}

// NewNode returns a group node with an identity transform.
func NewNode(name string) *Node {
	return &Node{
		Name:  name,
		Local: Identity(),
	}
}

// NewMeshNode returns a node drawing the given mesh.
func NewMeshNode(name string, mesh *Mesh) *Node {
	n := NewNode(name)
	n.Mesh = mesh
	return n
}

// Add appends child to the children of n.
func (n *Node) Add(child *Node) {
	n.children = append(n.children, child)
}

// Children returns the direct children of n. The slice must not be modified.
func (n *Node) Children() []*Node {
	return n.children
}

// Walk calls fn for n and all its descendants, depth first, passing the
// world transform of each node.
func (n *Node) Walk(fn func(node *Node, world *linmath.Mat4x4)) {
	parent := Identity()
	n.walk(&parent, fn)
}

func (n *Node) walk(parent *linmath.Mat4x4, fn func(*Node, *linmath.Mat4x4)) {
	world := Mul(parent, &n.Local)
	fn(n, &world)
	for _, child := range n.children {
		child.walk(&world, fn)
	}
}

// Mesh is indexed triangle geometry.
type Mesh struct {
	Positions []linmath.Vec3
	Normals   []linmath.Vec3
	UVs       []linmath.Vec2

	// Indices holds three entries per triangle.
	Indices []uint32

	Material *Material
}

// TriangleCount returns the number of triangles of m.
func (m *Mesh) TriangleCount() int {
	return len(m.Indices) / 3
}

// CheckFinite returns an error naming the first vertex attribute that is
// NaN or infinite.
func (m *Mesh) CheckFinite() error {
	for i, p := range m.Positions {
		if !finite(p[:]...) {
			return fmt.Errorf("position %d is not finite: %v", i, p)
		}
	}
	for i, n := range m.Normals {
		if !finite(n[:]...) {
			return fmt.Errorf("normal %d is not finite: %v", i, n)
		}
	}
	for i, uv := range m.UVs {
		if !finite(uv[:]...) {
			return fmt.Errorf("texture coordinate %d is not finite: %v", i, uv)
		}
	}
	return nil
}

func finite(vs ...float32) bool {
	for _, v := range vs {
		if math32.IsNaN(v) || math32.IsInf(v, 0) {
			return false
		}
	}
	return true
}

// ComputeFlatNormals fills Normals with one face normal per vertex when
// the mesh has none. Vertices shared between faces get the normal of the
// last face using them.
func (m *Mesh) ComputeFlatNormals() {
	if len(m.Normals) == len(m.Positions) {
		return
	}
	m.Normals = make([]linmath.Vec3, len(m.Positions))
	for i := 0; i+2 < len(m.Indices); i += 3 {
		a, b, c := m.Indices[i], m.Indices[i+1], m.Indices[i+2]
		n := Normalize(Cross(
			Sub(m.Positions[b], m.Positions[a]),
			Sub(m.Positions[c], m.Positions[a]),
		))
		m.Normals[a], m.Normals[b], m.Normals[c] = n, n, n
	}
}

// Material describes the surface response of a mesh. Colours are linear
// RGB in the 0-1 range.
type Material struct {
	Name      string
	Ambient   linmath.Vec3
	Diffuse   linmath.Vec3
	Specular  linmath.Vec3
	Shininess float32
	Opacity   float32

	// DiffuseMapPath is where the diffuse texture was found, if any.
	DiffuseMapPath string

	// DiffuseMap is the resolved diffuse texture; nil until pre-warmed.
	DiffuseMap image.Image

	// DoubleSided disables backface culling for the material.
	DoubleSided bool
}

// Transparent reports whether the material has to be blended over what is
// behind it.
func (m *Material) Transparent() bool {
	return m.Opacity > 0 && m.Opacity < 1
}

// DefaultMaterial returns the light gray material used when a model does
// not name a material or names one that cannot be found.
func DefaultMaterial() *Material {
	return &Material{
		Name:      "default",
		Ambient:   linmath.Vec3{0.63, 0.63, 0.63},
		Diffuse:   linmath.Vec3{0.63, 0.63, 0.63},
		Specular:  linmath.Vec3{0.5, 0.5, 0.5},
		Shininess: 30,
		Opacity:   1,
	}
}
