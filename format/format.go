// Package format decides how a model file has to be loaded, based only on
// the suffix of its path.
package format

import (
	"errors"
	"fmt"
	"strings"
)

// Decision is the loading strategy chosen for a model reference.
type Decision int

const (
	// Unsupported means the suffix is not one the viewer knows how to load.
	Unsupported Decision = iota

	// UsesSeparateMaterials is a geometry file (.obj) paired with a
	// companion material description (.mtl).
	UsesSeparateMaterials

	// UsesPackagedScene is a self-contained scene file (.gltf, .glb).
	UsesPackagedScene
)

func (d Decision) String() string {
	switch d {
	case UsesSeparateMaterials:
		return "separate-materials"
	case UsesPackagedScene:
		return "packaged-scene"
	default:
		return "unsupported"
	}
}

// MaterialExt is the extension of the companion material file of
// separate-materials models.
const MaterialExt = ".mtl"

// ErrUnsupportedFormat is matched by every *UnsupportedError.
var ErrUnsupportedFormat = errors.New("unsupported model format")

// UnsupportedError is returned by Classify for unknown suffixes.
type UnsupportedError struct {
	Path      string
	Extension string
}

func (e *UnsupportedError) Error() string {
	if e.Extension == "" {
		return fmt.Sprintf("%s: file %q has no extension", ErrUnsupportedFormat, e.Path)
	}
	return fmt.Sprintf("%s: extension %q of file %q", ErrUnsupportedFormat, e.Extension, e.Path)
}

func (e *UnsupportedError) Unwrap() error {
	return ErrUnsupportedFormat
}

// Hint is the suggestion shown to the user next to the error.
func (e *UnsupportedError) Hint() string {
	return "please use a .obj or a .glb/.gltf file"
}

// Extension returns the lower-cased suffix after the last dot of the base
// name of path. It is empty when the base name has no dot.
func Extension(path string) string {
	base := path[strings.LastIndexAny(path, `/\`)+1:]
	dot := strings.LastIndexByte(base, '.')
	if dot < 0 {
		return ""
	}
	return strings.ToLower(base[dot+1:])
}

// Classify maps the suffix of path to a Decision. Unsupported suffixes also
// return an *UnsupportedError.
func Classify(path string) (Decision, error) {
	ext := Extension(path)
	switch ext {
	case "obj":
		return UsesSeparateMaterials, nil
	case "glb", "gltf":
		return UsesPackagedScene, nil
	default:
		return Unsupported, &UnsupportedError{Path: path, Extension: ext}
	}
}

// MaterialPathFor returns the material file expected next to a
// separate-materials model: path truncated at its last dot with MaterialExt
// appended. The result is not checked for existence.
func MaterialPathFor(path string) string {
	dot := strings.LastIndexByte(path, '.')
	if dot < 0 || strings.ContainsAny(path[dot:], `/\`) {
		return path + MaterialExt
	}
	return path[:dot] + MaterialExt
}
