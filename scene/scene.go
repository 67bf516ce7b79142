// Package scene holds the data rendered by the viewer: an append-only
// graph of nodes, a perspective camera and a fixed light rig.
package scene

import "github.com/xlab/linmath"

// Scene is the root container of everything drawn in a frame.
type Scene struct {
	Root       *Node
	Lights     LightSet
	Background linmath.Vec3
}

// New returns an empty scene with a black background.
func New() *Scene {
	return &Scene{Root: NewNode("scene")}
}

// Add attaches node as a direct child of the scene root.
func (s *Scene) Add(node *Node) {
	s.Root.Add(node)
}

// ChildCount returns the number of direct children of the root.
func (s *Scene) ChildCount() int {
	return len(s.Root.Children())
}

// Bounds returns the world-space axis aligned box enclosing all meshes.
// ok is false when the scene has no geometry.
func (s *Scene) Bounds() (min, max linmath.Vec3, ok bool) {
	s.Root.Walk(func(n *Node, world *linmath.Mat4x4) {
		if n.Mesh == nil {
			return
		}
		for _, p := range n.Mesh.Positions {
			w := TransformPoint(world, p)
			v := linmath.Vec3{w[0], w[1], w[2]}
			if !ok {
				min, max, ok = v, v, true
				continue
			}
			for i := 0; i < 3; i++ {
				if v[i] < min[i] {
					min[i] = v[i]
				}
				if v[i] > max[i] {
					max[i] = v[i]
				}
			}
		}
	})
	return min, max, ok
}
