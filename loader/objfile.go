package loader

import (
	"bytes"
	"fmt"
	"path"

	"github.com/mokiat/go-data-front/decoder/mtl"
	"github.com/mokiat/go-data-front/decoder/obj"
	"github.com/xlab/linmath"

	"model-viewer/scene"
)

// MaterialSet is a parsed material library keyed by material name.
type MaterialSet map[string]*scene.Material

// ParseMaterials decodes an MTL library. Texture paths are resolved
// relative to the directory of libPath.
func ParseMaterials(data []byte, libPath string) (MaterialSet, error) {
	lib, err := mtl.NewDecoder(mtl.DefaultLimits()).Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("decode mtl: %w", err)
	}

	dir := path.Dir(CleanPath(libPath))
	set := make(MaterialSet, len(lib.Materials))
	for _, m := range lib.Materials {
		mat := &scene.Material{
			Name:      m.Name,
			Ambient:   linmath.Vec3{float32(m.AmbientColor.R), float32(m.AmbientColor.G), float32(m.AmbientColor.B)},
			Diffuse:   linmath.Vec3{float32(m.DiffuseColor.R), float32(m.DiffuseColor.G), float32(m.DiffuseColor.B)},
			Specular:  linmath.Vec3{float32(m.SpecularColor.R), float32(m.SpecularColor.G), float32(m.SpecularColor.B)},
			Shininess: float32(m.SpecularExponent),
			Opacity:   float32(m.Dissolve),
		}
		if mat.Opacity <= 0 {
			mat.Opacity = 1
		}
		if m.DiffuseTexture != "" {
			mat.DiffuseMapPath = path.Join(dir, CleanPath(m.DiffuseTexture))
		}
		set[m.Name] = mat
	}
	return set, nil
}

// objKey identifies a unique corner. face is -1 unless the corner has no
// normal, in which case corners are never shared between faces so each
// face can carry its own flat normal.
type objKey struct {
	v, t, n int64
	face    int
}

// BuildOBJ decodes OBJ geometry into a group node named name, with one
// child per object and one mesh node per material group. Polygons are
// fan triangulated. Meshes naming a material missing from mats get the
// default material; their names are returned.
func BuildOBJ(data []byte, name string, mats MaterialSet) (*scene.Node, []string, error) {
	model, err := obj.NewDecoder(obj.DefaultLimits()).Decode(bytes.NewReader(data))
	if err != nil {
		return nil, nil, fmt.Errorf("decode obj: %w", err)
	}

	var missing []string
	seenMissing := make(map[string]bool)
	root := scene.NewNode(name)
	for _, o := range model.Objects {
		group := scene.NewNode(o.Name)
		for _, m := range o.Meshes {
			mesh, err := buildOBJMesh(model, m)
			if err != nil {
				return nil, nil, fmt.Errorf("object %q: %w", o.Name, err)
			}
			if mesh.TriangleCount() == 0 {
				continue
			}

			mat, ok := mats[m.MaterialName]
			if !ok {
				mat = scene.DefaultMaterial()
				if m.MaterialName != "" && !seenMissing[m.MaterialName] {
					seenMissing[m.MaterialName] = true
					missing = append(missing, m.MaterialName)
				}
			}
			mesh.Material = mat
			group.Add(scene.NewMeshNode(m.MaterialName, mesh))
		}
		root.Add(group)
	}
	return root, missing, nil
}

func buildOBJMesh(model *obj.Model, m *obj.Mesh) (*scene.Mesh, error) {
	mesh := &scene.Mesh{}
	index := make(map[objKey]uint32)
	hasUV, hasNormal := true, true

	corner := func(ref obj.Reference, face int) (uint32, error) {
		key := objKey{v: ref.VertexIndex, t: -1, n: -1, face: -1}
		if ref.HasTexCoord() {
			key.t = ref.TexCoordIndex
		}
		if ref.HasNormal() {
			key.n = ref.NormalIndex
		} else {
			key.face = face
		}
		if i, ok := index[key]; ok {
			return i, nil
		}

		if key.v < 0 || key.v >= int64(len(model.Vertices)) {
			return 0, fmt.Errorf("vertex index %d out of range", key.v)
		}
		v := model.Vertices[key.v]
		mesh.Positions = append(mesh.Positions, linmath.Vec3{float32(v.X), float32(v.Y), float32(v.Z)})

		var uv linmath.Vec2
		if key.t >= 0 && key.t < int64(len(model.TexCoords)) {
			tc := model.TexCoords[key.t]
			uv = linmath.Vec2{float32(tc.U), float32(tc.V)}
		} else {
			hasUV = false
		}
		mesh.UVs = append(mesh.UVs, uv)

		var n linmath.Vec3
		if key.n >= 0 && key.n < int64(len(model.Normals)) {
			nn := model.Normals[key.n]
			n = scene.Normalize(linmath.Vec3{float32(nn.X), float32(nn.Y), float32(nn.Z)})
		} else {
			hasNormal = false
		}
		mesh.Normals = append(mesh.Normals, n)

		i := uint32(len(mesh.Positions) - 1)
		index[key] = i
		return i, nil
	}

	for fi, f := range m.Faces {
		if len(f.References) < 3 {
			continue
		}
		first, err := corner(f.References[0], fi)
		if err != nil {
			return nil, err
		}
		prev, err := corner(f.References[1], fi)
		if err != nil {
			return nil, err
		}
		for _, ref := range f.References[2:] {
			cur, err := corner(ref, fi)
			if err != nil {
				return nil, err
			}
			mesh.Indices = append(mesh.Indices, first, prev, cur)
			prev = cur
		}
	}

	if !hasUV {
		mesh.UVs = nil
	}
	if !hasNormal {
		mesh.Normals = nil
		mesh.ComputeFlatNormals()
	}
	if err := mesh.CheckFinite(); err != nil {
		return nil, err
	}
	return mesh, nil
}
