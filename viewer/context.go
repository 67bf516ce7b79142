// Package viewer assembles the viewer: it builds the scene, camera and
// light rig, and drives one redraw per display refresh.
package viewer

import (
	"fmt"
	"log/slog"

	"model-viewer/eventloop"
	"model-viewer/render"
	"model-viewer/scene"
)

// Surface is where frames are drawn.
type Surface interface {
	SetSize(width, height int)
	Size() (width, height int)
	SetShadowMode(mode render.ShadowMode)
	Render(sc *scene.Scene, cam *scene.Camera) error
}

// Context is the application state shared by the loader, the render loop
// and the viewport controller. Everything in it is touched only from
// callbacks run by Loop.
type Context struct {
	Scene   *scene.Scene
	Camera  *scene.Camera
	Surface Surface
	Loop    *eventloop.Loop
	Log     *slog.Logger
}

// Presenter displays a finished frame of packed BGRA pixels.
type Presenter interface {
	Present(pixels []uint32, width, height int) error
}

// RasterSurface renders with the software rasterizer and forwards every
// frame to a presenter.
type RasterSurface struct {
	*render.Renderer
	presenter Presenter
}

// NewRasterSurface returns a zero-sized surface presenting through p.
func NewRasterSurface(p Presenter) *RasterSurface {
	return &RasterSurface{
		Renderer:  render.New(),
		presenter: p,
	}
}

// Render rasterizes the frame and presents it.
func (s *RasterSurface) Render(sc *scene.Scene, cam *scene.Camera) error {
	if err := s.Renderer.Render(sc, cam); err != nil {
		return fmt.Errorf("rasterizing frame: %w", err)
	}

	w, h := s.Size()
	if w == 0 || h == 0 {
		return nil
	}
	if err := s.presenter.Present(s.Pixels(), w, h); err != nil {
		return fmt.Errorf("presenting frame: %w", err)
	}
	return nil
}
