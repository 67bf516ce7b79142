package viewport

import (
	"github.com/chewxy/math32"
	"github.com/xlab/linmath"

	"model-viewer/scene"
)

const epsilon = 1e-6

// OrbitControls moves a camera on a sphere around a target point.
//
// Rotate, Pan and Dolly only accumulate motion; Update applies it. With
// damping enabled the accumulated motion decays over several updates
// instead of being applied at once.
type OrbitControls struct {
	Camera *scene.Camera
	Target linmath.Vec3

	RotateSpeed float32
	PanSpeed    float32
	ZoomSpeed   float32

	MinDistance, MaxDistance float32

	// MinPolar and MaxPolar bound the angle from the up axis, in radians.
	MinPolar, MaxPolar float32

	EnableDamping bool
	DampingFactor float32

	theta, phi float32
	scale      float32
	pan        linmath.Vec3
}

// NewOrbitControls returns controls orbiting cam around its current target.
func NewOrbitControls(cam *scene.Camera) *OrbitControls {
	return &OrbitControls{
		Camera:        cam,
		Target:        cam.Target,
		RotateSpeed:   1,
		PanSpeed:      1,
		ZoomSpeed:     1,
		MinDistance:   0,
		MaxDistance:   math32.Inf(1),
		MinPolar:      0,
		MaxPolar:      math32.Pi,
		DampingFactor: 0.05,
		scale:         1,
	}
}

// Rotate adds an azimuth and polar rotation, in radians.
func (o *OrbitControls) Rotate(azimuth, polar float32) {
	o.theta += azimuth
	o.phi += polar
}

// Pan moves the target by a pointer delta of dx, dy pixels on a viewport
// of the given height, so that the point under the pointer follows it.
func (o *OrbitControls) Pan(dx, dy float32, height int) {
	if height <= 0 {
		return
	}
	cam := o.Camera
	offset := scene.Sub(cam.Position, o.Target)
	dist := scene.Length(offset) * math32.Tan(cam.FOV*math32.Pi/360)

	forward := scene.Normalize(scene.Scale(offset, -1))
	right := scene.Normalize(scene.Cross(forward, cam.Up))
	up := scene.Cross(right, forward)

	left := -2 * dx * dist / float32(height) * o.PanSpeed
	upward := 2 * dy * dist / float32(height) * o.PanSpeed
	o.pan = scene.Add(o.pan, scene.Add(scene.Scale(right, left), scene.Scale(up, upward)))
}

// Dolly multiplies the camera distance by factor. Values below one move
// the camera closer.
func (o *OrbitControls) Dolly(factor float32) {
	if factor > 0 {
		o.scale *= factor
	}
}

// Update moves the camera by the accumulated motion and reports whether it
// moved.
func (o *OrbitControls) Update() bool {
	if !o.pending() {
		return false
	}
	cam := o.Camera
	offset := scene.Sub(cam.Position, o.Target)

	radius := scene.Length(offset)
	var theta, phi float32
	if radius > 0 {
		theta = math32.Atan2(offset[0], offset[2])
		phi = math32.Acos(clamp(offset[1]/radius, -1, 1))
	}

	f := float32(1)
	if o.EnableDamping {
		f = o.DampingFactor
	}
	theta += o.theta * f
	phi += o.phi * f
	phi = clamp(phi, max(o.MinPolar, epsilon), min(o.MaxPolar, math32.Pi-epsilon))

	radius = clamp(radius*o.scale, o.MinDistance, o.MaxDistance)
	target := scene.Add(o.Target, scene.Scale(o.pan, f))

	sinPhi := math32.Sin(phi)
	pos := scene.Add(target, linmath.Vec3{
		radius * sinPhi * math32.Sin(theta),
		radius * math32.Cos(phi),
		radius * sinPhi * math32.Cos(theta),
	})

	if o.EnableDamping {
		o.theta *= 1 - f
		o.phi *= 1 - f
		o.pan = scene.Scale(o.pan, 1-f)
		if math32.Abs(o.theta) < epsilon && math32.Abs(o.phi) < epsilon && scene.Length(o.pan) < epsilon {
			o.theta, o.phi = 0, 0
			o.pan = linmath.Vec3{}
		}
	} else {
		o.theta, o.phi = 0, 0
		o.pan = linmath.Vec3{}
	}
	o.scale = 1

	moved := scene.Length(scene.Sub(pos, cam.Position)) > epsilon ||
		scene.Length(scene.Sub(target, o.Target)) > epsilon
	o.Target = target
	cam.Position = pos
	cam.LookAt(target)
	return moved
}

func (o *OrbitControls) pending() bool {
	return o.theta != 0 || o.phi != 0 || o.scale != 1 || o.pan != linmath.Vec3{}
}

func clamp(v, lo, hi float32) float32 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
