package render

import (
	"github.com/chewxy/math32"
	"github.com/xlab/linmath"

	"model-viewer/scene"
)

type lighting struct {
	lights *scene.LightSet
	eye    linmath.Vec3
	shadow *shadowMap
	soft   bool
}

// shade evaluates Blinn-Phong lighting at world point p with unit normal n.
func (l *lighting) shade(mat *scene.Material, base, p, n linmath.Vec3) linmath.Vec3 {
	var c linmath.Vec3
	ls := l.lights
	view := scene.Normalize(scene.Sub(l.eye, p))

	if a := ls.Ambient; a != nil {
		c = scene.Add(c, mul(base, scene.Scale(a.Color, a.Intensity)))
	}
	if d := ls.Directional; d != nil {
		vis := float32(1)
		if l.shadow != nil {
			vis = l.shadow.visibility(p, n, l.soft)
		}
		if vis > 0 {
			toLight := scene.Scale(d.Direction(), -1)
			c = scene.Add(c, scene.Scale(l.phong(mat, base, n, view, toLight, d.Color), d.Intensity*vis))
		}
	}
	if s := ls.Spot; s != nil {
		toLight := scene.Normalize(scene.Sub(s.Position, p))
		axis := scene.Normalize(scene.Sub(s.Target, s.Position))
		if f := spotFactor(s, -scene.Dot(toLight, axis)); f > 0 {
			c = scene.Add(c, scene.Scale(l.phong(mat, base, n, view, toLight, s.Color), s.Intensity*f))
		}
	}
	if pt := ls.Point; pt != nil {
		d := scene.Sub(pt.Position, p)
		if f := attenuation(scene.Length(d), pt.Distance, pt.Decay); f > 0 {
			c = scene.Add(c, scene.Scale(l.phong(mat, base, n, view, scene.Normalize(d), pt.Color), pt.Intensity*f))
		}
	}
	return c
}

// phong returns the diffuse and specular response to a unit-intensity light
// arriving from direction toLight.
func (l *lighting) phong(mat *scene.Material, base, n, view, toLight, color linmath.Vec3) linmath.Vec3 {
	ndl := scene.Dot(n, toLight)
	if ndl <= 0 {
		return linmath.Vec3{}
	}
	c := scene.Scale(base, ndl)
	if mat.Shininess > 0 {
		h := scene.Normalize(scene.Add(toLight, view))
		if ndh := scene.Dot(n, h); ndh > 0 {
			c = scene.Add(c, scene.Scale(mat.Specular, math32.Pow(ndh, mat.Shininess)))
		}
	}
	return mul(c, color)
}

// spotFactor fades the cone from full intensity inside the penumbra to
// zero at its edge. cosAngle is the cosine between the spot axis and the
// direction to the shaded point.
func spotFactor(s *scene.SpotLight, cosAngle float32) float32 {
	outer := math32.Cos(s.Angle)
	inner := math32.Cos(s.Angle * (1 - s.Penumbra))
	return smoothstep(outer, inner, cosAngle)
}

// attenuation is the distance falloff of a point light. A zero range means
// the light reaches everywhere at full strength.
func attenuation(dist, rng, decay float32) float32 {
	if rng <= 0 {
		return 1
	}
	f := 1 - dist/rng
	if f <= 0 {
		return 0
	}
	if decay <= 0 {
		return 1
	}
	return math32.Pow(f, decay)
}

func smoothstep(lo, hi, x float32) float32 {
	if hi <= lo {
		if x >= lo {
			return 1
		}
		return 0
	}
	t := (x - lo) / (hi - lo)
	if t <= 0 {
		return 0
	}
	if t >= 1 {
		return 1
	}
	return t * t * (3 - 2*t)
}

func mul(a, b linmath.Vec3) linmath.Vec3 {
	return linmath.Vec3{a[0] * b[0], a[1] * b[1], a[2] * b[2]}
}
