package render

import (
	"github.com/chewxy/math32"
	"github.com/xlab/linmath"

	"model-viewer/scene"
)

const shadowMapSize = 1024

// shadowMap is the depth of the scene as seen from the directional light
// through an orthographic projection fitted around the scene bounds.
type shadowMap struct {
	target
	vp   linmath.Mat4x4
	bias float32

	// normalOffset is the world distance sample points are pushed along
	// their normal before the lookup, one texel's worth.
	normalOffset float32
}

func (r *Renderer) renderShadowMap(sc *scene.Scene, items []drawItem, dl *scene.DirectionalLight) *shadowMap {
	lo, hi, ok := sc.Bounds()
	if !ok {
		return nil
	}
	if r.shadow == nil {
		r.shadow = &shadowMap{target: target{
			width:  shadowMapSize,
			height: shadowMapSize,
			depth:  make([]float32, shadowMapSize*shadowMapSize),
		}}
	}
	sm := r.shadow
	sm.clearDepth()
	sm.bias = dl.ShadowBias

	center := scene.Scale(scene.Add(lo, hi), 0.5)
	radius := scene.Length(scene.Sub(hi, lo))*0.5*1.01 + 1e-3
	dir := dl.Direction()
	up := linmath.Vec3{0, 1, 0}
	if math32.Abs(scene.Dot(dir, up)) > 0.99 {
		up = linmath.Vec3{0, 0, 1}
	}
	eye := scene.Sub(center, scene.Scale(dir, 2*radius))

	var view linmath.Mat4x4
	view.LookAt(&eye, &center, &up)
	var proj linmath.Mat4x4
	proj.Ortho(-radius, radius, -radius, radius, radius, 3*radius)
	sm.vp = scene.Mul(&proj, &view)
	sm.normalOffset = 2 * radius / shadowMapSize

	var tri [3]vertex
	for _, it := range items {
		m := it.mesh
		for t := 0; t+2 < len(m.Indices); t += 3 {
			for k := 0; k < 3; k++ {
				w := scene.TransformPoint(&it.world, m.Positions[m.Indices[t+k]])
				tri[k].clip = scene.TransformPoint(&sm.vp, linmath.Vec3{w[0], w[1], w[2]})
			}
			sm.rasterize(tri, false, true, nil)
		}
	}
	return sm
}

// visibility returns the lit fraction (0-1) of world point p with normal n.
func (sm *shadowMap) visibility(p, n linmath.Vec3, soft bool) float32 {
	c := scene.TransformPoint(&sm.vp, scene.Add(p, scene.Scale(n, sm.normalOffset)))
	z := c[2]*0.5 + 0.5 + sm.bias
	if z > 1 || z < 0 {
		return 1
	}
	x := int((c[0] + 1) * 0.5 * shadowMapSize)
	y := int((1 - c[1]) * 0.5 * shadowMapSize)
	if !soft {
		return sm.tap(x, y, z)
	}

	var sum float32
	for dy := -1; dy <= 1; dy++ {
		for dx := -1; dx <= 1; dx++ {
			sum += sm.tap(x+dx, y+dy, z)
		}
	}
	return sum / 9
}

func (sm *shadowMap) tap(x, y int, z float32) float32 {
	if x < 0 || y < 0 || x >= sm.width || y >= sm.height {
		return 1
	}
	if z <= sm.depth[y*sm.width+x] {
		return 1
	}
	return 0
}
