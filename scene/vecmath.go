package scene

import (
	"github.com/chewxy/math32"
	"github.com/xlab/linmath"
)

// Small vector helpers shared by the scene, the rasterizer and the
// viewport controller. Matrices are linmath column-major: m[column][row].

// Sub returns a - b.
func Sub(a, b linmath.Vec3) linmath.Vec3 {
	return linmath.Vec3{a[0] - b[0], a[1] - b[1], a[2] - b[2]}
}

// Add returns a + b.
func Add(a, b linmath.Vec3) linmath.Vec3 {
	return linmath.Vec3{a[0] + b[0], a[1] + b[1], a[2] + b[2]}
}

// Scale returns v * s.
func Scale(v linmath.Vec3, s float32) linmath.Vec3 {
	return linmath.Vec3{v[0] * s, v[1] * s, v[2] * s}
}

// Dot returns the inner product of a and b.
func Dot(a, b linmath.Vec3) float32 {
	return a[0]*b[0] + a[1]*b[1] + a[2]*b[2]
}

// Cross returns a x b.
func Cross(a, b linmath.Vec3) linmath.Vec3 {
	return linmath.Vec3{
		a[1]*b[2] - a[2]*b[1],
		a[2]*b[0] - a[0]*b[2],
		a[0]*b[1] - a[1]*b[0],
	}
}

// Length returns the euclidean length of v.
func Length(v linmath.Vec3) float32 {
	return math32.Sqrt(Dot(v, v))
}

// Normalize returns v scaled to unit length, or v itself when it is zero.
func Normalize(v linmath.Vec3) linmath.Vec3 {
	l := Length(v)
	if l == 0 {
		return v
	}
	return Scale(v, 1/l)
}

// Identity returns the identity matrix.
func Identity() linmath.Mat4x4 {
	var m linmath.Mat4x4
	m.Identity()
	return m
}

// Mul returns a * b.
func Mul(a, b *linmath.Mat4x4) linmath.Mat4x4 {
	var m linmath.Mat4x4
	m.Mult(a, b)
	return m
}

// TransformPoint returns m * (p, 1) as a homogeneous vector.
func TransformPoint(m *linmath.Mat4x4, p linmath.Vec3) linmath.Vec4 {
	var r linmath.Vec4
	r.Mat4x4MultVec4(m, linmath.Vec4{p[0], p[1], p[2], 1})
	return r
}

// TransformDir returns the upper 3x3 of m applied to d.
func TransformDir(m *linmath.Mat4x4, d linmath.Vec3) linmath.Vec3 {
	var r linmath.Vec4
	r.Mat4x4MultVec4(m, linmath.Vec4{d[0], d[1], d[2], 0})
	return linmath.Vec3{r[0], r[1], r[2]}
}

// NormalMatrix returns the inverse transpose of m, which keeps normals
// perpendicular to surfaces under non-uniform scale. A singular m is
// returned unchanged.
func NormalMatrix(m *linmath.Mat4x4) linmath.Mat4x4 {
	var inv, n linmath.Mat4x4
	inv.Invert(m)
	n.Transpose(&inv)
	for _, col := range n {
		for _, v := range col {
			if math32.IsNaN(v) || math32.IsInf(v, 0) {
				return *m
			}
		}
	}
	return n
}

// Compose builds a transform from a translation, a unit quaternion
// (x, y, z, w) and a scale, applied as T * R * S.
func Compose(t linmath.Vec3, q linmath.Quat, s linmath.Vec3) linmath.Mat4x4 {
	var m linmath.Mat4x4
	m.FromQuat(&q)
	m.ScaleAniso(&m, s[0], s[1], s[2])
	m[3] = linmath.Vec4{t[0], t[1], t[2], 1}
	return m
}
