package viewer

import (
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xlab/linmath"

	"model-viewer/eventloop"
	"model-viewer/render"
	"model-viewer/scene"
	"model-viewer/viewport"
)

type fakeSurface struct {
	width, height int
	mode          render.ShadowMode
	renders       int
	err           error

	// aspect and projection are what the last Render saw on the camera.
	aspect     float32
	projection linmath.Mat4x4

	// onRender runs inside Render, before err is returned.
	onRender func()
}

func (s *fakeSurface) SetSize(w, h int)                     { s.width, s.height = w, h }
func (s *fakeSurface) Size() (int, int)                     { return s.width, s.height }
func (s *fakeSurface) SetShadowMode(mode render.ShadowMode) { s.mode = mode }

func (s *fakeSurface) Render(_ *scene.Scene, cam *scene.Camera) error {
	s.renders++
	s.aspect = cam.Aspect
	s.projection = cam.ProjectionMatrix()
	if s.onRender != nil {
		s.onRender()
	}
	return s.err
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func bootstrap(t *testing.T, opts Options) (*Context, *fakeSurface) {
	t.Helper()
	surface := &fakeSurface{}
	ctx := Bootstrap(opts, surface, eventloop.New(nil), quietLogger())
	require.NotNil(t, ctx)
	return ctx, surface
}

func TestBootstrapCamera(t *testing.T) {
	ctx, surface := bootstrap(t, Options{Width: 800, Height: 600})

	cam := ctx.Camera
	assert.Equal(t, float32(75), cam.FOV)
	assert.InDelta(t, 800.0/600.0, cam.Aspect, 1e-6)
	assert.Equal(t, float32(0.1), cam.Near)
	assert.Equal(t, float32(1000), cam.Far)
	assert.Equal(t, linmath.Vec3{0, 0, 5}, cam.Position)
	assert.Equal(t, linmath.Vec3{}, cam.Target)
	assert.True(t, cam.Valid())
	assert.False(t, cam.Dirty())

	assert.Equal(t, 800, surface.width)
	assert.Equal(t, 600, surface.height)
	assert.Equal(t, 0, ctx.Scene.ChildCount())
}

func TestBootstrapBasicRig(t *testing.T) {
	ctx, surface := bootstrap(t, Options{Width: 800, Height: 600, Rig: RigBasic})

	lights := ctx.Scene.Lights
	assert.Equal(t, 2, lights.Count())
	require.NotNil(t, lights.Ambient)
	assert.Equal(t, scene.HexColor(0x404040), lights.Ambient.Color)
	assert.Equal(t, float32(2), lights.Ambient.Intensity)

	require.NotNil(t, lights.Directional)
	assert.Equal(t, scene.HexColor(0xffffff), lights.Directional.Color)
	assert.Equal(t, float32(1), lights.Directional.Intensity)
	assert.Equal(t, linmath.Vec3{5, 5, 5}, lights.Directional.Position)
	assert.False(t, lights.Directional.CastShadow)
	assert.Equal(t, render.ShadowOff, surface.mode)
}

func TestBootstrapEnhancedRigWithShadows(t *testing.T) {
	ctx, surface := bootstrap(t, Options{Width: 800, Height: 600, Rig: RigEnhanced, Shadows: true})

	lights := ctx.Scene.Lights
	assert.Equal(t, 4, lights.Count())
	require.NotNil(t, lights.Spot)
	assert.Equal(t, linmath.Vec3{}, lights.Spot.Target)
	assert.Less(t, lights.Spot.Angle, float32(0.5))
	require.NotNil(t, lights.Point)
	// The fill light sits on the opposite side of the origin.
	assert.Less(t, scene.Dot(lights.Point.Position, lights.Directional.Position), float32(0))

	assert.True(t, lights.Directional.CastShadow)
	assert.Equal(t, float32(-0.0005), lights.Directional.ShadowBias)
	assert.Equal(t, render.ShadowPCFSoft, surface.mode)
}

func TestRenderLoopSchedulesBeforeDrawing(t *testing.T) {
	ctx, surface := bootstrap(t, Options{Width: 800, Height: 600})
	rl := NewRenderLoop(ctx, false)
	assert.Equal(t, Idle, rl.State())

	rl.Start()
	rl.Start()
	assert.Equal(t, Scheduled, rl.State())
	assert.Equal(t, 1, ctx.Loop.FramesRequested())

	surface.onRender = func() {
		assert.Equal(t, Rendering, rl.State())
		assert.Equal(t, 1, ctx.Loop.FramesRequested(), "next frame must be scheduled first")
	}

	now := time.Now()
	for i := 0; i < 3; i++ {
		assert.Equal(t, 1, ctx.Loop.Tick(now))
	}
	assert.Equal(t, 3, surface.renders)
	assert.Equal(t, 3, rl.Frames())
	assert.Equal(t, Scheduled, rl.State())
	assert.NoError(t, rl.Err())
}

func TestResizeThenFrameUsesNewAspect(t *testing.T) {
	ctx, surface := bootstrap(t, Options{Width: 800, Height: 600})
	controller := viewport.NewController(surface, ctx.Camera, 800, 600)
	rl := NewRenderLoop(ctx, true)
	rl.OnFrame = func(time.Time) { controller.Update() }
	rl.Start()

	ctx.Loop.Tick(time.Now())
	assert.InDelta(t, 800.0/600.0, surface.aspect, 1e-6)

	require.True(t, controller.Resize(1600, 900))
	ctx.Loop.Tick(time.Now())

	assert.Equal(t, 2, surface.renders)
	assert.Equal(t, 1600, surface.width)
	assert.Equal(t, 900, surface.height)
	assert.InDelta(t, 1600.0/900.0, surface.aspect, 1e-6)
	assert.InDelta(t, surface.projection[1][1]/(1600.0/900.0), surface.projection[0][0], 1e-5)
}

func TestRenderLoopHeadlight(t *testing.T) {
	ctx, _ := bootstrap(t, Options{Width: 800, Height: 600})
	rl := NewRenderLoop(ctx, true)
	rl.Start()

	ctx.Camera.Position = linmath.Vec3{1, 2, 3}
	ctx.Loop.Tick(time.Now())
	assert.Equal(t, linmath.Vec3{1, 2, 3}, ctx.Scene.Lights.Directional.Position)
}

func TestRenderLoopWithoutHeadlightKeepsLight(t *testing.T) {
	ctx, _ := bootstrap(t, Options{Width: 800, Height: 600})
	rl := NewRenderLoop(ctx, false)
	rl.Start()

	ctx.Camera.Position = linmath.Vec3{1, 2, 3}
	ctx.Loop.Tick(time.Now())
	assert.Equal(t, linmath.Vec3{5, 5, 5}, ctx.Scene.Lights.Directional.Position)
}

func TestRenderLoopSkipsInvalidCamera(t *testing.T) {
	ctx, surface := bootstrap(t, Options{Width: 800, Height: 0})
	assert.False(t, ctx.Camera.Valid())

	var hooked int
	rl := NewRenderLoop(ctx, false)
	rl.OnFrame = func(time.Time) { hooked++ }
	rl.Start()
	ctx.Loop.Tick(time.Now())

	assert.Equal(t, 0, surface.renders)
	assert.Equal(t, 1, rl.Skipped())
	assert.Equal(t, 1, hooked)
	assert.Equal(t, Scheduled, rl.State())
}

func TestRenderLoopStopsOnError(t *testing.T) {
	ctx, surface := bootstrap(t, Options{Width: 800, Height: 600})
	surface.err = errors.New("device lost")

	rl := NewRenderLoop(ctx, false)
	rl.Start()
	ctx.Loop.Tick(time.Now())

	assert.Equal(t, Stopped, rl.State())
	assert.EqualError(t, rl.Err(), "device lost")

	// The frame requested before the failure runs but draws nothing and
	// does not schedule another.
	assert.Equal(t, 1, ctx.Loop.Tick(time.Now()))
	assert.Equal(t, 0, ctx.Loop.FramesRequested())
	assert.Equal(t, 1, surface.renders)
}

type fakePresenter struct {
	frames        int
	width, height int
	err           error
}

func (p *fakePresenter) Present(pixels []uint32, w, h int) error {
	p.frames++
	p.width, p.height = w, h
	if len(pixels) != w*h {
		return errors.New("short frame")
	}
	return p.err
}

func TestRasterSurface(t *testing.T) {
	p := &fakePresenter{}
	s := NewRasterSurface(p)
	ctx := Bootstrap(Options{Width: 32, Height: 24, Shadows: true}, s, eventloop.New(nil), quietLogger())

	require.NoError(t, s.Render(ctx.Scene, ctx.Camera))
	assert.Equal(t, 1, p.frames)
	assert.Equal(t, 32, p.width)
	assert.Equal(t, 24, p.height)
	assert.Equal(t, render.ShadowPCFSoft, s.ShadowMode())

	p.err = errors.New("swapchain gone")
	err := s.Render(ctx.Scene, ctx.Camera)
	assert.ErrorIs(t, err, p.err)
}

func TestRasterSurfaceZeroSizeSkipsPresent(t *testing.T) {
	p := &fakePresenter{}
	s := NewRasterSurface(p)
	cam := scene.NewPerspectiveCamera(75, 1, 0.1, 1000)

	require.NoError(t, s.Render(scene.New(), cam))
	assert.Equal(t, 0, p.frames)
}

func TestStrings(t *testing.T) {
	assert.Equal(t, "basic", RigBasic.String())
	assert.Equal(t, "enhanced", RigEnhanced.String())
	assert.Equal(t, "idle", Idle.String())
	assert.Equal(t, "stopped", Stopped.String())
}
