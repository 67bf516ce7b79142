package viewer

import (
	"time"
)

// LoopState is the state of a RenderLoop.
type LoopState int

const (
	Idle LoopState = iota
	Scheduled
	Rendering
	Stopped
)

func (s LoopState) String() string {
	switch s {
	case Scheduled:
		return "scheduled"
	case Rendering:
		return "rendering"
	case Stopped:
		return "stopped"
	default:
		return "idle"
	}
}

// RenderLoop redraws the scene once per frame tick of the event loop.
// Each frame schedules its successor before drawing, so the sequence
// only ends when a render fails.
type RenderLoop struct {
	ctx       *Context
	headlight bool

	// OnFrame, when set, runs at the start of every frame before the
	// camera is read. The viewport controller hooks its damping here.
	OnFrame func(now time.Time)

	state   LoopState
	err     error
	frames  int
	skipped int
}

// NewRenderLoop returns an idle loop for ctx. With headlight set the
// directional light follows the camera position every frame.
func NewRenderLoop(ctx *Context, headlight bool) *RenderLoop {
	return &RenderLoop{ctx: ctx, headlight: headlight}
}

// Start schedules the first frame. Calls after the first are ignored.
func (rl *RenderLoop) Start() {
	if rl.state != Idle {
		return
	}
	rl.state = Scheduled
	rl.ctx.Loop.RequestFrame(rl.frame)
}

func (rl *RenderLoop) frame(now time.Time) {
	if rl.state == Stopped {
		return
	}
	rl.ctx.Loop.RequestFrame(rl.frame)
	rl.state = Rendering

	if rl.OnFrame != nil {
		rl.OnFrame(now)
	}

	cam := rl.ctx.Camera
	if dl := rl.ctx.Scene.Lights.Directional; rl.headlight && dl != nil {
		dl.Position = cam.Position
	}

	if !cam.Valid() {
		rl.skipped++
		rl.state = Scheduled
		return
	}

	if err := rl.ctx.Surface.Render(rl.ctx.Scene, cam); err != nil {
		rl.ctx.Log.Error("render failed", "frame", rl.frames, "err", err)
		rl.err = err
		rl.state = Stopped
		return
	}
	rl.frames++
	rl.state = Scheduled
}

// State returns the current state.
func (rl *RenderLoop) State() LoopState {
	return rl.state
}

// Err returns the render error that stopped the loop, if any.
func (rl *RenderLoop) Err() error {
	return rl.err
}

// Frames returns how many frames were rendered.
func (rl *RenderLoop) Frames() int {
	return rl.frames
}

// Skipped returns how many frames were dropped because the camera could
// not be used.
func (rl *RenderLoop) Skipped() int {
	return rl.skipped
}
