// Package viewport keeps the camera and render surface in step with the
// window and turns pointer input into camera motion.
package viewport

import (
	"github.com/chewxy/math32"

	"model-viewer/scene"
)

// Resizer is the part of the render surface the controller resizes.
type Resizer interface {
	SetSize(width, height int)
}

// Button is a pointer button.
type Button int

const (
	ButtonLeft Button = iota
	ButtonRight
	ButtonMiddle
)

// Controller reacts to window resizes and pointer input. Left drag
// orbits, right or middle drag pans and the wheel dollies.
type Controller struct {
	surface Resizer
	camera  *scene.Camera

	Orbit *OrbitControls

	// OnResize, when set, is called after every accepted resize.
	OnResize func(width, height int)

	width, height int

	dragging     bool
	button       Button
	lastX, lastY float64
}

// NewController returns a controller for a viewport of width x height.
func NewController(surface Resizer, cam *scene.Camera, width, height int) *Controller {
	o := NewOrbitControls(cam)
	o.EnableDamping = true
	return &Controller{
		surface: surface,
		camera:  cam,
		Orbit:   o,
		width:   width,
		height:  height,
	}
}

// Resize updates the surface size, the camera aspect ratio and the
// projection matrix before returning. Sizes with no area, as reported for
// minimised windows, are ignored and Resize returns false.
func (c *Controller) Resize(width, height int) bool {
	if width <= 0 || height <= 0 {
		return false
	}
	c.width, c.height = width, height
	c.surface.SetSize(width, height)
	c.camera.SetAspect(float32(width) / float32(height))
	c.camera.UpdateProjectionMatrix()
	if c.OnResize != nil {
		c.OnResize(width, height)
	}
	return true
}

// Size returns the last accepted viewport size.
func (c *Controller) Size() (int, int) {
	return c.width, c.height
}

// PointerDown starts a drag with button b at window position x, y.
func (c *Controller) PointerDown(b Button, x, y float64) {
	c.dragging = true
	c.button = b
	c.lastX, c.lastY = x, y
}

// PointerUp ends the drag started with button b.
func (c *Controller) PointerUp(b Button) {
	if c.dragging && c.button == b {
		c.dragging = false
	}
}

// PointerMove continues the current drag, if any.
func (c *Controller) PointerMove(x, y float64) {
	if !c.dragging {
		return
	}
	dx, dy := float32(x-c.lastX), float32(y-c.lastY)
	c.lastX, c.lastY = x, y
	if c.height <= 0 {
		return
	}

	switch c.button {
	case ButtonLeft:
		k := 2 * math32.Pi / float32(c.height) * c.Orbit.RotateSpeed
		c.Orbit.Rotate(-dx*k, -dy*k)
	default:
		c.Orbit.Pan(dx, dy, c.height)
	}
}

// Wheel dollies by a scroll offset. Positive offsets, scrolling away from
// the user, move the camera closer.
func (c *Controller) Wheel(dy float64) {
	c.Orbit.Dolly(math32.Pow(0.95, c.Orbit.ZoomSpeed*float32(dy)))
}

// Update applies pending camera motion. It is called once per frame.
func (c *Controller) Update() bool {
	return c.Orbit.Update()
}
