package scene

import (
	"github.com/chewxy/math32"
	"github.com/xlab/linmath"
)

// Camera is a perspective camera looking from Position at Target.
//
// The projection matrix is cached; after changing FOV, Aspect, Near or Far
// call UpdateProjectionMatrix before the next render.
type Camera struct {
	Position linmath.Vec3
	Target   linmath.Vec3
	Up       linmath.Vec3

	// FOV is the vertical field of view in degrees.
	FOV    float32
	Aspect float32
	Near   float32
	Far    float32

	projection linmath.Mat4x4
	dirty      bool
}

// NewPerspectiveCamera returns a camera at the origin looking down the
// negative Z axis with Y up.
func NewPerspectiveCamera(fov, aspect, near, far float32) *Camera {
	c := &Camera{
		Target: linmath.Vec3{0, 0, -1},
		Up:     linmath.Vec3{0, 1, 0},
		FOV:    fov,
		Aspect: aspect,
		Near:   near,
		Far:    far,
	}
	c.UpdateProjectionMatrix()
	return c
}

// SetAspect changes the aspect ratio and marks the projection stale.
func (c *Camera) SetAspect(aspect float32) {
	c.Aspect = aspect
	c.dirty = true
}

// Dirty reports whether projection parameters changed since the last
// UpdateProjectionMatrix.
func (c *Camera) Dirty() bool {
	return c.dirty
}

// Valid reports whether the camera can be used for rendering.
func (c *Camera) Valid() bool {
	return c.Aspect > 0 && !math32.IsInf(c.Aspect, 0) && !math32.IsNaN(c.Aspect) &&
		c.Near > 0 && c.Near < c.Far
}

// UpdateProjectionMatrix recomputes the cached projection matrix.
func (c *Camera) UpdateProjectionMatrix() {
	c.projection.Perspective(c.FOV*math32.Pi/180, c.Aspect, c.Near, c.Far)
	c.dirty = false
}

// ProjectionMatrix returns the cached projection matrix.
func (c *Camera) ProjectionMatrix() linmath.Mat4x4 {
	return c.projection
}

// ViewMatrix returns the world to camera transform.
func (c *Camera) ViewMatrix() linmath.Mat4x4 {
	var view linmath.Mat4x4
	eye, center, up := c.Position, c.Target, c.Up
	view.LookAt(&eye, &center, &up)
	return view
}

// ViewProjection returns projection * view.
func (c *Camera) ViewProjection() linmath.Mat4x4 {
	view := c.ViewMatrix()
	return Mul(&c.projection, &view)
}

// LookAt points the camera at target.
func (c *Camera) LookAt(target linmath.Vec3) {
	c.Target = target
}
