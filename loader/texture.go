package loader

import (
	"bytes"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	"github.com/h2non/filetype"
	_ "golang.org/x/image/bmp"
	"golang.org/x/image/draw"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

// MaxTextureSize is the largest texture side kept after decoding. Bigger
// images are scaled down preserving their aspect ratio.
const MaxTextureSize = 1024

// DecodeTexture sniffs and decodes an image file.
func DecodeTexture(data []byte) (image.Image, error) {
	if !filetype.IsImage(data) {
		kind, _ := filetype.Match(data)
		return nil, fmt.Errorf("not an image (detected %q)", kind.Extension)
	}

	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("decode image: %w", err)
	}

	b := img.Bounds()
	if b.Dx() <= MaxTextureSize && b.Dy() <= MaxTextureSize {
		return img, nil
	}

	w, h := b.Dx(), b.Dy()
	if w >= h {
		h = max(1, h*MaxTextureSize/w)
		w = MaxTextureSize
	} else {
		w = max(1, w*MaxTextureSize/h)
		h = MaxTextureSize
	}
	dst := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.ApproxBiLinear.Scale(dst, dst.Bounds(), img, b, draw.Src, nil)
	return dst, nil
}
