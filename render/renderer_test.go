package render

import (
	"image"
	"image/color"
	"testing"

	"github.com/chewxy/math32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xlab/linmath"

	"model-viewer/scene"
)

const frameSize = 64

func newTestScene() (*scene.Scene, *scene.Camera) {
	sc := scene.New()
	sc.Lights.Ambient = &scene.AmbientLight{Color: linmath.Vec3{1, 1, 1}, Intensity: 1}
	cam := scene.NewPerspectiveCamera(75, 1, 0.1, 1000)
	cam.Position = linmath.Vec3{0, 0, 5}
	cam.LookAt(linmath.Vec3{})
	return sc, cam
}

func whiteMaterial() *scene.Material {
	m := scene.DefaultMaterial()
	m.Diffuse = linmath.Vec3{1, 1, 1}
	m.Shininess = 0
	return m
}

func triangleMesh(a, b, c linmath.Vec3, mat *scene.Material) *scene.Mesh {
	return &scene.Mesh{
		Positions: []linmath.Vec3{a, b, c},
		Indices:   []uint32{0, 1, 2},
		Material:  mat,
	}
}

// pixelAt projects world point p like the rasterizer does and returns the
// frame pixel covering it.
func pixelAt(t *testing.T, r *Renderer, cam *scene.Camera, p linmath.Vec3) uint32 {
	t.Helper()
	vp := cam.ViewProjection()
	c := scene.TransformPoint(&vp, p)
	require.Greater(t, c[3], float32(0))
	w, h := r.Size()
	x := int((c[0]/c[3] + 1) * 0.5 * float32(w))
	y := int((1 - c[1]/c[3]) * 0.5 * float32(h))
	require.True(t, x >= 0 && y >= 0 && x < w && y < h, "point off screen")
	return r.Pixels()[y*w+x]
}

func TestRenderClearsToBackground(t *testing.T) {
	sc, cam := newTestScene()
	sc.Background = linmath.Vec3{0, 0, 1}

	r := New()
	r.SetSize(frameSize, frameSize)
	require.NoError(t, r.Render(sc, cam))

	for _, p := range r.Pixels() {
		require.Equal(t, uint32(0xff0000ff), p)
	}
	assert.Equal(t, 0, r.Stats.Meshes)
}

func TestRenderFrontFace(t *testing.T) {
	sc, cam := newTestScene()
	sc.Add(scene.NewMeshNode("tri", triangleMesh(
		linmath.Vec3{-1, -1, 0}, linmath.Vec3{1, -1, 0}, linmath.Vec3{0, 1, 0}, whiteMaterial())))

	r := New()
	r.SetSize(frameSize, frameSize)
	require.NoError(t, r.Render(sc, cam))

	assert.Equal(t, uint32(0xffffffff), pixelAt(t, r, cam, linmath.Vec3{0, 0, 0}))
	assert.Equal(t, uint32(0xff000000), r.Pixels()[0])
	assert.Equal(t, 1, r.Stats.Triangles)
	assert.Equal(t, 0, r.Stats.Culled)
}

func TestRenderBackfaceCulling(t *testing.T) {
	sc, cam := newTestScene()
	mat := whiteMaterial()
	sc.Add(scene.NewMeshNode("tri", triangleMesh(
		linmath.Vec3{0, 1, 0}, linmath.Vec3{1, -1, 0}, linmath.Vec3{-1, -1, 0}, mat)))

	r := New()
	r.SetSize(frameSize, frameSize)
	require.NoError(t, r.Render(sc, cam))
	assert.Equal(t, uint32(0xff000000), pixelAt(t, r, cam, linmath.Vec3{0, 0, 0}))
	assert.Equal(t, 1, r.Stats.Culled)

	mat.DoubleSided = true
	require.NoError(t, r.Render(sc, cam))
	assert.Equal(t, uint32(0xffffffff), pixelAt(t, r, cam, linmath.Vec3{0, 0, 0}))
}

func TestRenderDepthTest(t *testing.T) {
	sc, cam := newTestScene()
	red := whiteMaterial()
	red.Diffuse = linmath.Vec3{1, 0, 0}
	green := whiteMaterial()
	green.Diffuse = linmath.Vec3{0, 1, 0}

	// The nearer green triangle is added first, so the red one must lose
	// the depth test rather than simply be overdrawn.
	sc.Add(scene.NewMeshNode("near", triangleMesh(
		linmath.Vec3{-1, -1, 1}, linmath.Vec3{1, -1, 1}, linmath.Vec3{0, 1, 1}, green)))
	sc.Add(scene.NewMeshNode("far", triangleMesh(
		linmath.Vec3{-2, -2, -1}, linmath.Vec3{2, -2, -1}, linmath.Vec3{0, 2, -1}, red)))

	r := New()
	r.SetSize(frameSize, frameSize)
	require.NoError(t, r.Render(sc, cam))
	assert.Equal(t, uint32(0xff00ff00), pixelAt(t, r, cam, linmath.Vec3{0, 0, 1}))
}

func TestRenderNearPlaneClipping(t *testing.T) {
	sc, cam := newTestScene()
	// A floor running from in front of the camera to behind it.
	mat := whiteMaterial()
	mat.DoubleSided = true
	sc.Add(scene.NewMeshNode("floor", &scene.Mesh{
		Positions: []linmath.Vec3{{-5, -1, 10}, {5, -1, 10}, {5, -1, -10}, {-5, -1, -10}},
		Indices:   []uint32{0, 1, 2, 0, 2, 3},
		Material:  mat,
	}))

	r := New()
	r.SetSize(frameSize, frameSize)
	require.NoError(t, r.Render(sc, cam))
	assert.Equal(t, uint32(0xffffffff), pixelAt(t, r, cam, linmath.Vec3{0, -1, 0}))
}

func TestRenderTexture(t *testing.T) {
	sc, cam := newTestScene()
	img := image.NewRGBA(image.Rect(0, 0, 2, 2))
	for y := 0; y < 2; y++ {
		for x := 0; x < 2; x++ {
			img.Set(x, y, color.RGBA{R: 255, A: 255})
		}
	}
	mat := whiteMaterial()
	mat.DiffuseMap = img
	mesh := triangleMesh(linmath.Vec3{-1, -1, 0}, linmath.Vec3{1, -1, 0}, linmath.Vec3{0, 1, 0}, mat)
	mesh.UVs = []linmath.Vec2{{0, 0}, {1, 0}, {0.5, 1}}
	sc.Add(scene.NewMeshNode("tri", mesh))

	r := New()
	r.SetSize(frameSize, frameSize)
	require.NoError(t, r.Render(sc, cam))
	assert.Equal(t, uint32(0xffff0000), pixelAt(t, r, cam, linmath.Vec3{0, 0, 0}))
}

func TestRenderTransparentOverOpaque(t *testing.T) {
	sc, cam := newTestScene()
	red := whiteMaterial()
	red.Diffuse = linmath.Vec3{1, 0, 0}
	red.Opacity = 0.5
	green := whiteMaterial()
	green.Diffuse = linmath.Vec3{0, 1, 0}

	// The glass is added first and sits in front of the wall.
	sc.Add(scene.NewMeshNode("glass", triangleMesh(
		linmath.Vec3{-1, -1, 1}, linmath.Vec3{1, -1, 1}, linmath.Vec3{0, 1, 1}, red)))
	sc.Add(scene.NewMeshNode("wall", triangleMesh(
		linmath.Vec3{-2, -2, 0}, linmath.Vec3{2, -2, 0}, linmath.Vec3{0, 2, 0}, green)))

	r := New()
	r.SetSize(frameSize, frameSize)
	require.NoError(t, r.Render(sc, cam))
	assert.Equal(t, uint32(0xff808000), pixelAt(t, r, cam, linmath.Vec3{0, 0, 1}))
}

func TestRenderTransparentBackToFront(t *testing.T) {
	sc, cam := newTestScene()
	red := whiteMaterial()
	red.Diffuse = linmath.Vec3{1, 0, 0}
	red.Opacity = 0.5
	blue := whiteMaterial()
	blue.Diffuse = linmath.Vec3{0, 0, 1}
	blue.Opacity = 0.5

	sc.Add(scene.NewMeshNode("near", triangleMesh(
		linmath.Vec3{-1, -1, 1}, linmath.Vec3{1, -1, 1}, linmath.Vec3{0, 1, 1}, red)))
	sc.Add(scene.NewMeshNode("far", triangleMesh(
		linmath.Vec3{-2, -2, 0}, linmath.Vec3{2, -2, 0}, linmath.Vec3{0, 2, 0}, blue)))

	r := New()
	r.SetSize(frameSize, frameSize)
	require.NoError(t, r.Render(sc, cam))
	// Blue is blended over black first, then red over the result.
	assert.Equal(t, uint32(0xff800040), pixelAt(t, r, cam, linmath.Vec3{0, 0, 1}))
	assert.Equal(t, 2, r.Stats.Meshes)
}

func TestRenderNonFiniteUVs(t *testing.T) {
	sc, cam := newTestScene()
	mat := whiteMaterial()
	mat.DiffuseMap = image.NewRGBA(image.Rect(0, 0, 4, 4))
	mesh := triangleMesh(linmath.Vec3{-1, -1, 0}, linmath.Vec3{1, -1, 0}, linmath.Vec3{0, 1, 0}, mat)
	nan := math32.NaN()
	mesh.UVs = []linmath.Vec2{{nan, nan}, {math32.Inf(1), 0}, {0, math32.Inf(-1)}}
	sc.Add(scene.NewMeshNode("tri", mesh))

	r := New()
	r.SetSize(frameSize, frameSize)
	assert.NotPanics(t, func() {
		require.NoError(t, r.Render(sc, cam))
	})
}

func TestTextureSampleWraps(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 2, 1))
	img.Set(0, 0, color.RGBA{R: 255, A: 255})
	img.Set(1, 0, color.RGBA{G: 255, A: 255})
	tex := newTexture(img)

	red := linmath.Vec4{1, 0, 0, 1}
	green := linmath.Vec4{0, 1, 0, 1}
	assert.Equal(t, red, tex.sample(linmath.Vec2{0.25, 0.5}))
	assert.Equal(t, green, tex.sample(linmath.Vec2{0.75, 0.5}))
	assert.Equal(t, green, tex.sample(linmath.Vec2{-0.25, 0.5}))
	assert.Equal(t, red, tex.sample(linmath.Vec2{1.25, 3.5}))
	assert.Equal(t, red, tex.sample(linmath.Vec2{math32.NaN(), math32.Inf(1)}))
	assert.Equal(t, red, tex.sample(linmath.Vec2{-1e-9, 0}))
}

func TestRenderShadows(t *testing.T) {
	sc := scene.New()
	sc.Lights.Ambient = &scene.AmbientLight{Color: linmath.Vec3{1, 1, 1}, Intensity: 0.2}
	sc.Lights.Directional = &scene.DirectionalLight{
		Color:      linmath.Vec3{1, 1, 1},
		Intensity:  1,
		Position:   linmath.Vec3{0, 10, 0},
		CastShadow: true,
		ShadowBias: -0.0005,
	}
	mat := scene.DefaultMaterial()
	mat.Shininess = 0
	mat.DoubleSided = true
	sc.Add(scene.NewMeshNode("ground", &scene.Mesh{
		Positions: []linmath.Vec3{{-5, -1, 5}, {5, -1, 5}, {5, -1, -5}, {-5, -1, -5}},
		Indices:   []uint32{0, 1, 2, 0, 2, 3},
		Material:  mat,
	}))
	sc.Add(scene.NewMeshNode("occluder", &scene.Mesh{
		Positions: []linmath.Vec3{{-0.5, 0, 0.5}, {0.5, 0, 0.5}, {0.5, 0, -0.5}, {-0.5, 0, -0.5}},
		Indices:   []uint32{0, 1, 2, 0, 2, 3},
		Material:  mat,
	}))

	cam := scene.NewPerspectiveCamera(75, 1, 0.1, 1000)
	cam.Position = linmath.Vec3{0, 6, 6}
	cam.LookAt(linmath.Vec3{})

	shadowed := linmath.Vec3{0, -1, 0.3}
	lit := linmath.Vec3{3, -1, -3}

	r := New()
	r.SetSize(128, 128)
	require.NoError(t, r.Render(sc, cam))
	offShadowed := pixelAt(t, r, cam, shadowed)
	offLit := pixelAt(t, r, cam, lit)
	assert.Equal(t, offLit, offShadowed)

	for _, mode := range []ShadowMode{ShadowBasic, ShadowPCFSoft} {
		r.SetShadowMode(mode)
		require.NoError(t, r.Render(sc, cam))
		on := pixelAt(t, r, cam, shadowed)
		assert.Less(t, on&0xff, offShadowed&0xff, mode.String())
		assert.Equal(t, offLit, pixelAt(t, r, cam, lit), mode.String())
	}
}

func TestRenderInvalidCamera(t *testing.T) {
	sc, cam := newTestScene()
	cam.SetAspect(0)
	r := New()
	r.SetSize(frameSize, frameSize)
	assert.ErrorIs(t, r.Render(sc, cam), ErrInvalidCamera)
}

func TestRenderZeroSize(t *testing.T) {
	sc, cam := newTestScene()
	r := New()
	assert.NoError(t, r.Render(sc, cam))
	assert.Empty(t, r.Pixels())
}

func TestImage(t *testing.T) {
	r := New()
	r.SetSize(2, 1)
	r.Pixels()[0] = 0xff102030
	r.Pixels()[1] = 0x80ffffff

	img := r.Image()
	assert.Equal(t, image.Rect(0, 0, 2, 1), img.Bounds())
	assert.Equal(t, []uint8{0x10, 0x20, 0x30, 0xff, 0xff, 0xff, 0xff, 0x80}, img.Pix)
}

func TestShadowModeString(t *testing.T) {
	assert.Equal(t, "off", ShadowOff.String())
	assert.Equal(t, "basic", ShadowBasic.String())
	assert.Equal(t, "pcf-soft", ShadowPCFSoft.String())
}

func TestSpotFactor(t *testing.T) {
	s := &scene.SpotLight{Angle: 0.5, Penumbra: 0.5}
	assert.Equal(t, float32(1), spotFactor(s, 1))
	assert.Equal(t, float32(0), spotFactor(s, 0))
}

func TestAttenuation(t *testing.T) {
	assert.Equal(t, float32(1), attenuation(100, 0, 2))
	assert.Equal(t, float32(0), attenuation(10, 5, 2))
	assert.InDelta(t, 0.25, attenuation(5, 10, 2), 1e-6)
}
