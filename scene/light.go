package scene

import "github.com/xlab/linmath"

// AmbientLight lights every surface uniformly.
type AmbientLight struct {
	Color     linmath.Vec3
	Intensity float32
}

// DirectionalLight shines from Position toward the origin with no
// attenuation, like the sun. Only the direction of Position matters.
type DirectionalLight struct {
	Color     linmath.Vec3
	Intensity float32
	Position  linmath.Vec3

	CastShadow bool

	// ShadowBias is added to the depth compared against the shadow map,
	// in light clip units. Small negative values remove acne.
	ShadowBias float32
}

// Direction returns the unit vector the light travels along.
func (l *DirectionalLight) Direction() linmath.Vec3 {
	return Normalize(Scale(l.Position, -1))
}

// SpotLight is a cone of light from Position toward Target.
type SpotLight struct {
	Color     linmath.Vec3
	Intensity float32
	Position  linmath.Vec3
	Target    linmath.Vec3

	// Angle is the half-angle of the cone, in radians.
	Angle float32

	// Penumbra is the fraction (0-1) of the cone that fades out at its edge.
	Penumbra float32
}

// PointLight shines in every direction from Position.
type PointLight struct {
	Color     linmath.Vec3
	Intensity float32
	Position  linmath.Vec3

	// Distance is the range of the light; zero means unlimited.
	Distance float32

	// Decay is the exponent of the distance falloff.
	Decay float32
}

// LightSet is the fixed light rig of a scene. Spot and Point are optional.
type LightSet struct {
	Ambient     *AmbientLight
	Directional *DirectionalLight
	Spot        *SpotLight
	Point       *PointLight
}

// Count returns how many lights are present.
func (ls *LightSet) Count() int {
	n := 0
	if ls.Ambient != nil {
		n++
	}
	if ls.Directional != nil {
		n++
	}
	if ls.Spot != nil {
		n++
	}
	if ls.Point != nil {
		n++
	}
	return n
}

// HexColor converts 0xRRGGBB into a 0-1 RGB vector.
func HexColor(hex uint32) linmath.Vec3 {
	return linmath.Vec3{
		float32(hex>>16&0xff) / 255,
		float32(hex>>8&0xff) / 255,
		float32(hex&0xff) / 255,
	}
}
