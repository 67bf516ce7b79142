package render

import (
	"image"

	"github.com/chewxy/math32"
	"github.com/xlab/linmath"
)

// texture is a decoded image as non-premultiplied 0-1 RGBA.
type texture struct {
	width, height int
	pix           []linmath.Vec4
}

func newTexture(img image.Image) *texture {
	b := img.Bounds()
	t := &texture{
		width:  b.Dx(),
		height: b.Dy(),
		pix:    make([]linmath.Vec4, b.Dx()*b.Dy()),
	}
	for y := 0; y < t.height; y++ {
		for x := 0; x < t.width; x++ {
			r, g, bl, a := img.At(b.Min.X+x, b.Min.Y+y).RGBA()
			px := linmath.Vec4{}
			if a > 0 {
				fa := float32(a)
				px = linmath.Vec4{float32(r) / fa, float32(g) / fa, float32(bl) / fa, fa / 0xffff}
			}
			t.pix[y*t.width+x] = px
		}
	}
	return t
}

// sample returns the nearest texel with repeat wrapping. The UV origin is
// the bottom-left corner of the image. Non-finite coordinates read as 0.
func (t *texture) sample(uv linmath.Vec2) linmath.Vec4 {
	if t.width == 0 || t.height == 0 {
		return linmath.Vec4{1, 1, 1, 1}
	}
	u := wrap(uv[0])
	v := wrap(uv[1])
	x := min(int(u*float32(t.width)), t.width-1)
	y := min(int((1-v)*float32(t.height)), t.height-1)
	return t.pix[y*t.width+x]
}

// wrap returns the fractional part of f in [0, 1).
func wrap(f float32) float32 {
	if math32.IsNaN(f) || math32.IsInf(f, 0) {
		return 0
	}
	f -= math32.Floor(f)
	if f >= 1 {
		return 0
	}
	return f
}
