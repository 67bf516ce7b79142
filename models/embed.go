package models

import "embed"

// FS contains the models shipped with the viewer. It is consulted when a
// model is not found in the working directory, so the binary can be run
// from anywhere.
//
//go:embed cube.obj cube.mtl checker.png triangle.gltf
var FS embed.FS
