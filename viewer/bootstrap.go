package viewer

import (
	"log/slog"

	"github.com/chewxy/math32"
	"github.com/xlab/linmath"

	"model-viewer/eventloop"
	"model-viewer/render"
	"model-viewer/scene"
)

// Camera and light rig constants.
const (
	CameraFOV  = 75
	CameraNear = 0.1
	CameraFar  = 1000

	AmbientColor     = 0x404040
	AmbientIntensity = 2

	DirectionalColor     = 0xffffff
	DirectionalIntensity = 1
	ShadowBias           = -0.0005
)

var (
	// CameraStart is where the camera is placed, looking at the origin.
	CameraStart = linmath.Vec3{0, 0, 5}

	DirectionalPosition = linmath.Vec3{5, 5, 5}
	SpotPosition        = linmath.Vec3{0, 10, 10}
	PointPosition       = linmath.Vec3{-5, -5, -5}
)

// Rig selects the set of lights added to the scene.
type Rig int

const (
	// RigBasic is an ambient and a directional light.
	RigBasic Rig = iota
	// RigEnhanced adds a spotlight aimed at the origin and a fill point
	// light on the opposite side.
	RigEnhanced
)

func (r Rig) String() string {
	if r == RigEnhanced {
		return "enhanced"
	}
	return "basic"
}

// Options configures Bootstrap.
type Options struct {
	// Width and Height are the viewport size in pixels.
	Width, Height int

	Rig        Rig
	Shadows    bool
	Background linmath.Vec3
}

// Bootstrap creates the scene, the camera and the light rig, and sizes the
// surface to the whole viewport.
func Bootstrap(opts Options, surface Surface, loop *eventloop.Loop, log *slog.Logger) *Context {
	if log == nil {
		log = slog.Default()
	}

	sc := scene.New()
	sc.Background = opts.Background

	cam := scene.NewPerspectiveCamera(CameraFOV, float32(opts.Width)/float32(opts.Height), CameraNear, CameraFar)
	cam.Position = CameraStart
	cam.LookAt(linmath.Vec3{})

	surface.SetSize(opts.Width, opts.Height)

	sc.Lights.Ambient = &scene.AmbientLight{
		Color:     scene.HexColor(AmbientColor),
		Intensity: AmbientIntensity,
	}
	sc.Lights.Directional = &scene.DirectionalLight{
		Color:      scene.HexColor(DirectionalColor),
		Intensity:  DirectionalIntensity,
		Position:   DirectionalPosition,
		CastShadow: opts.Shadows,
		ShadowBias: ShadowBias,
	}
	if opts.Rig == RigEnhanced {
		sc.Lights.Spot = &scene.SpotLight{
			Color:     scene.HexColor(0xffffff),
			Intensity: 1,
			Position:  SpotPosition,
			Angle:     math32.Pi / 8,
			Penumbra:  0.3,
		}
		sc.Lights.Point = &scene.PointLight{
			Color:     scene.HexColor(0xffffff),
			Intensity: 0.5,
			Position:  PointPosition,
			Distance:  50,
			Decay:     2,
		}
	}

	if opts.Shadows {
		surface.SetShadowMode(render.ShadowPCFSoft)
	}

	log.Debug("scene ready",
		"width", opts.Width,
		"height", opts.Height,
		"rig", opts.Rig,
		"lights", sc.Lights.Count(),
		"shadows", opts.Shadows,
	)

	return &Context{
		Scene:   sc,
		Camera:  cam,
		Surface: surface,
		Loop:    loop,
		Log:     log,
	}
}
