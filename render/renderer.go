// Package render rasterizes a scene into a BGRA frame on the CPU.
//
// The frame is handed to a presenter that only has to copy it into a
// swapchain image, so no shader pipeline is involved.
package render

import (
	"cmp"
	"errors"
	"image"
	"slices"

	"github.com/chewxy/math32"
	"github.com/xlab/linmath"

	"model-viewer/scene"
)

// ErrInvalidCamera is returned when asked to render through a camera whose
// aspect ratio or clip planes cannot form a projection.
var ErrInvalidCamera = errors.New("render: invalid camera")

// ShadowMode selects how directional light shadows are computed.
type ShadowMode int

const (
	ShadowOff ShadowMode = iota
	// ShadowBasic takes a single shadow map sample per pixel.
	ShadowBasic
	// ShadowPCFSoft averages a 3x3 block of shadow map samples.
	ShadowPCFSoft
)

func (m ShadowMode) String() string {
	switch m {
	case ShadowBasic:
		return "basic"
	case ShadowPCFSoft:
		return "pcf-soft"
	default:
		return "off"
	}
}

// Stats counts the work done by the last Render call.
type Stats struct {
	Meshes    int
	Triangles int
	Culled    int
}

// Renderer owns the colour and depth buffers of one surface.
type Renderer struct {
	target

	color      []uint32
	shadowMode ShadowMode
	shadow     *shadowMap
	textures   map[*scene.Material]*texture

	Stats Stats
}

// New returns a renderer with no pixels. Call SetSize before rendering.
func New() *Renderer {
	return &Renderer{
		textures: make(map[*scene.Material]*texture),
	}
}

// SetSize reallocates the buffers for a width x height frame. Negative
// sizes are treated as zero.
func (r *Renderer) SetSize(width, height int) {
	width, height = max(width, 0), max(height, 0)
	if width == r.width && height == r.height {
		return
	}
	r.width, r.height = width, height
	r.color = make([]uint32, width*height)
	r.depth = make([]float32, width*height)
}

// Size returns the frame size in pixels.
func (r *Renderer) Size() (int, int) {
	return r.width, r.height
}

// SetShadowMode changes the shadow technique used by later frames.
func (r *Renderer) SetShadowMode(mode ShadowMode) {
	r.shadowMode = mode
}

// ShadowMode returns the current shadow technique.
func (r *Renderer) ShadowMode() ShadowMode {
	return r.shadowMode
}

// Pixels returns the last rendered frame as packed 0xAARRGGBB values, which
// is B, G, R, A in memory order. The slice is reused by the next frame.
func (r *Renderer) Pixels() []uint32 {
	return r.color
}

// Image returns a copy of the last frame.
func (r *Renderer) Image() *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, r.width, r.height))
	for i, c := range r.color {
		img.Pix[i*4+0] = uint8(c >> 16)
		img.Pix[i*4+1] = uint8(c >> 8)
		img.Pix[i*4+2] = uint8(c)
		img.Pix[i*4+3] = uint8(c >> 24)
	}
	return img
}

type drawItem struct {
	mesh   *scene.Mesh
	mat    *scene.Material
	world  linmath.Mat4x4
	normal linmath.Mat4x4

	// depth is the view distance of the mesh centre, used to order
	// transparent items.
	depth float32
}

func newDrawItem(m *scene.Mesh, world *linmath.Mat4x4) drawItem {
	mat := m.Material
	if mat == nil {
		mat = defaultMaterial
	}
	return drawItem{
		mesh:   m,
		mat:    mat,
		world:  *world,
		normal: scene.NormalMatrix(world),
	}
}

// center returns the world position of the middle of the mesh bounds.
func (it *drawItem) center() linmath.Vec3 {
	lo, hi := it.mesh.Positions[0], it.mesh.Positions[0]
	for _, p := range it.mesh.Positions[1:] {
		for k := 0; k < 3; k++ {
			lo[k] = min(lo[k], p[k])
			hi[k] = max(hi[k], p[k])
		}
	}
	c := scene.TransformPoint(&it.world, scene.Scale(scene.Add(lo, hi), 0.5))
	return linmath.Vec3{c[0], c[1], c[2]}
}

// Render draws sc as seen from cam into the colour buffer.
func (r *Renderer) Render(sc *scene.Scene, cam *scene.Camera) error {
	if !cam.Valid() {
		return ErrInvalidCamera
	}
	r.Stats = Stats{}
	if r.width == 0 || r.height == 0 {
		return nil
	}

	r.clear(sc.Background)

	var items, transparent []drawItem
	sc.Root.Walk(func(n *scene.Node, world *linmath.Mat4x4) {
		if n.Mesh == nil || n.Mesh.TriangleCount() == 0 {
			return
		}
		it := newDrawItem(n.Mesh, world)
		if it.mat.Transparent() {
			it.depth = scene.Length(scene.Sub(it.center(), cam.Position))
			transparent = append(transparent, it)
			return
		}
		items = append(items, it)
	})
	opaque := len(items)
	slices.SortStableFunc(transparent, func(a, b drawItem) int {
		return cmp.Compare(b.depth, a.depth)
	})
	items = append(items, transparent...)
	r.Stats.Meshes = len(items)

	var shadow *shadowMap
	if dl := sc.Lights.Directional; r.shadowMode != ShadowOff && dl != nil && dl.CastShadow {
		shadow = r.renderShadowMap(sc, items, dl)
	}

	lit := &lighting{
		lights: &sc.Lights,
		eye:    cam.Position,
		shadow: shadow,
		soft:   r.shadowMode == ShadowPCFSoft,
	}
	vp := cam.ViewProjection()
	for i := range items {
		r.drawMesh(&items[i], &vp, lit, i < opaque)
	}
	return nil
}

func (r *Renderer) clear(bg linmath.Vec3) {
	c := pack(bg, 1)
	for i := range r.color {
		r.color[i] = c
	}
	r.clearDepth()
}

var defaultMaterial = scene.DefaultMaterial()

// drawMesh rasterizes one item. Transparent items pass writeDepth false so
// they never hide what is drawn after them.
func (r *Renderer) drawMesh(it *drawItem, vp *linmath.Mat4x4, lit *lighting, writeDepth bool) {
	m := it.mesh
	mat := it.mat
	tex := r.texture(mat)
	hasNormals := len(m.Normals) == len(m.Positions)
	hasUVs := len(m.UVs) == len(m.Positions)

	frag := func(i int, b [3]float32, v *[3]vertex, back bool) {
		r.shadeFragment(i, b, v, back, mat, tex, lit)
	}

	var tri [3]vertex
	var buf [4]vertex
	for t := 0; t+2 < len(m.Indices); t += 3 {
		r.Stats.Triangles++
		for k := 0; k < 3; k++ {
			idx := m.Indices[t+k]
			w := scene.TransformPoint(&it.world, m.Positions[idx])
			v := vertex{world: linmath.Vec3{w[0], w[1], w[2]}}
			if hasNormals {
				v.normal = scene.Normalize(scene.TransformDir(&it.normal, m.Normals[idx]))
			}
			if hasUVs {
				v.uv = m.UVs[idx]
			}
			v.clip = scene.TransformPoint(vp, v.world)
			tri[k] = v
		}
		if !hasNormals {
			n := scene.Normalize(scene.Cross(
				scene.Sub(tri[1].world, tri[0].world),
				scene.Sub(tri[2].world, tri[0].world),
			))
			tri[0].normal, tri[1].normal, tri[2].normal = n, n, n
		}

		poly := clipNear(tri[:], buf[:0])
		for k := 1; k+1 < len(poly); k++ {
			if !r.rasterize([3]vertex{poly[0], poly[k], poly[k+1]}, !mat.DoubleSided, writeDepth, frag) {
				r.Stats.Culled++
			}
		}
	}
}

func (r *Renderer) shadeFragment(i int, b [3]float32, v *[3]vertex, back bool, mat *scene.Material, tex *texture, lit *lighting) {
	p := interp3(b, v[0].world, v[1].world, v[2].world)
	n := scene.Normalize(interp3(b, v[0].normal, v[1].normal, v[2].normal))
	if back {
		n = scene.Scale(n, -1)
	}

	base := mat.Diffuse
	alpha := mat.Opacity
	if alpha <= 0 {
		alpha = 1
	}
	if tex != nil {
		uv := linmath.Vec2{
			b[0]*v[0].uv[0] + b[1]*v[1].uv[0] + b[2]*v[2].uv[0],
			b[0]*v[0].uv[1] + b[1]*v[1].uv[1] + b[2]*v[2].uv[1],
		}
		s := tex.sample(uv)
		base = linmath.Vec3{base[0] * s[0], base[1] * s[1], base[2] * s[2]}
		alpha *= s[3]
	}

	c := lit.shade(mat, base, p, n)
	if alpha < 1 {
		dst := unpack(r.color[i])
		c = scene.Add(scene.Scale(c, alpha), scene.Scale(dst, 1-alpha))
	}
	r.color[i] = pack(c, 1)
}

func (r *Renderer) texture(mat *scene.Material) *texture {
	if mat.DiffuseMap == nil {
		return nil
	}
	tex, ok := r.textures[mat]
	if !ok {
		tex = newTexture(mat.DiffuseMap)
		r.textures[mat] = tex
	}
	return tex
}

func interp3(b [3]float32, a0, a1, a2 linmath.Vec3) linmath.Vec3 {
	return linmath.Vec3{
		b[0]*a0[0] + b[1]*a1[0] + b[2]*a2[0],
		b[0]*a0[1] + b[1]*a1[1] + b[2]*a2[1],
		b[0]*a0[2] + b[1]*a1[2] + b[2]*a2[2],
	}
}

func to8(v float32) uint32 {
	if v <= 0 || math32.IsNaN(v) {
		return 0
	}
	if v >= 1 {
		return 255
	}
	return uint32(v*255 + 0.5)
}

func pack(c linmath.Vec3, a float32) uint32 {
	return to8(a)<<24 | to8(c[0])<<16 | to8(c[1])<<8 | to8(c[2])
}

func unpack(p uint32) linmath.Vec3 {
	return linmath.Vec3{
		float32(p>>16&0xff) / 255,
		float32(p>>8&0xff) / 255,
		float32(p&0xff) / 255,
	}
}
