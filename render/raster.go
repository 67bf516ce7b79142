package render

import (
	"github.com/chewxy/math32"
	"github.com/xlab/linmath"
)

// vertex is a triangle corner after the world and view-projection
// transforms.
type vertex struct {
	clip   linmath.Vec4
	world  linmath.Vec3
	normal linmath.Vec3
	uv     linmath.Vec2
}

func lerpVertex(a, b *vertex, t float32) vertex {
	var v vertex
	for i := 0; i < 4; i++ {
		v.clip[i] = a.clip[i] + (b.clip[i]-a.clip[i])*t
	}
	for i := 0; i < 3; i++ {
		v.world[i] = a.world[i] + (b.world[i]-a.world[i])*t
		v.normal[i] = a.normal[i] + (b.normal[i]-a.normal[i])*t
	}
	for i := 0; i < 2; i++ {
		v.uv[i] = a.uv[i] + (b.uv[i]-a.uv[i])*t
	}
	return v
}

// clipNear clips the polygon in against the near plane z >= -w. It returns
// in itself when no vertex is outside, otherwise the clipped polygon
// appended to out.
func clipNear(in, out []vertex) []vertex {
	inside := true
	for i := range in {
		if in[i].clip[2]+in[i].clip[3] < 0 {
			inside = false
			break
		}
	}
	if inside {
		return in
	}

	for i := range in {
		a := &in[i]
		b := &in[(i+1)%len(in)]
		da := a.clip[2] + a.clip[3]
		db := b.clip[2] + b.clip[3]
		if da >= 0 {
			out = append(out, *a)
		}
		if (da >= 0) != (db >= 0) {
			out = append(out, lerpVertex(a, b, da/(da-db)))
		}
	}
	return out
}

// fragmentFunc shades pixel i. b holds perspective-correct barycentric
// weights of the three vertices; back is set for back-facing triangles.
type fragmentFunc func(i int, b [3]float32, v *[3]vertex, back bool)

// target is a depth buffer with its dimensions. Depth runs from 0 at the
// near plane to 1 at the far plane.
type target struct {
	width, height int
	depth         []float32
}

func (t *target) clearDepth() {
	n := len(t.depth)
	if n == 0 {
		return
	}
	t.depth[0] = 1
	for i := 1; i < n; i *= 2 {
		copy(t.depth[i:], t.depth[:i])
	}
}

// rasterize depth-tests and fills one clipped triangle. Triangles wound
// clockwise on screen are front facing; with cull set, the others are
// skipped and rasterize returns false. Passing fragments update the depth
// buffer only when writeDepth is set. frag may be nil for depth-only
// passes.
func (t *target) rasterize(v [3]vertex, cull, writeDepth bool, frag fragmentFunc) bool {
	var sx, sy, sz, invW [3]float32
	for i := 0; i < 3; i++ {
		w := v[i].clip[3]
		if w <= 0 {
			w = 1e-6
		}
		invW[i] = 1 / w
		sx[i] = (v[i].clip[0]*invW[i] + 1) * 0.5 * float32(t.width)
		sy[i] = (1 - v[i].clip[1]*invW[i]) * 0.5 * float32(t.height)
		sz[i] = v[i].clip[2]*invW[i]*0.5 + 0.5
	}

	area := edge(sx[0], sy[0], sx[1], sy[1], sx[2], sy[2])
	if area == 0 || math32.IsNaN(area) {
		return false
	}
	// Y points down on screen, so counter-clockwise in clip space turns
	// into a negative area here.
	back := area > 0
	if back && cull {
		return false
	}

	minX := max(0, int(math32.Floor(min(sx[0], sx[1], sx[2]))))
	maxX := min(t.width-1, int(math32.Ceil(max(sx[0], sx[1], sx[2]))))
	minY := max(0, int(math32.Floor(min(sy[0], sy[1], sy[2]))))
	maxY := min(t.height-1, int(math32.Ceil(max(sy[0], sy[1], sy[2]))))

	inv := 1 / area
	for y := minY; y <= maxY; y++ {
		py := float32(y) + 0.5
		for x := minX; x <= maxX; x++ {
			px := float32(x) + 0.5
			b0 := edge(sx[1], sy[1], sx[2], sy[2], px, py) * inv
			b1 := edge(sx[2], sy[2], sx[0], sy[0], px, py) * inv
			b2 := 1 - b0 - b1
			if b0 < 0 || b1 < 0 || b2 < 0 {
				continue
			}

			z := b0*sz[0] + b1*sz[1] + b2*sz[2]
			if z < 0 || z > 1 {
				continue
			}
			i := y*t.width + x
			if z >= t.depth[i] {
				continue
			}
			if writeDepth {
				t.depth[i] = z
			}

			if frag == nil {
				continue
			}
			p0, p1, p2 := b0*invW[0], b1*invW[1], b2*invW[2]
			s := p0 + p1 + p2
			if s == 0 {
				continue
			}
			frag(i, [3]float32{p0 / s, p1 / s, p2 / s}, &v, back)
		}
	}
	return true
}

// edge is twice the signed area of the triangle (a, b, p).
func edge(ax, ay, bx, by, px, py float32) float32 {
	return (bx-ax)*(py-ay) - (by-ay)*(px-ax)
}
