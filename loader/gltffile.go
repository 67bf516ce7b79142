package loader

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"image"
	"io/fs"
	"net/url"
	"path"
	"strings"

	"github.com/qmuntal/gltf"
	"github.com/qmuntal/gltf/modeler"
	"github.com/xlab/linmath"

	"model-viewer/scene"
)

var identity16 = [16]float64{1, 0, 0, 0, 0, 1, 0, 0, 0, 0, 1, 0, 0, 0, 0, 1}

// gltfBuilder converts a decoded document into scene nodes.
type gltfBuilder struct {
	ctx   context.Context
	doc   *gltf.Document
	fetch Fetcher
	dir   string

	materials map[int]*scene.Material
	images    map[int]image.Image
	visiting  map[int]bool

	// warnings collects non-fatal problems such as unreadable textures.
	warnings []error
}

// DecodeGLTF parses a .gltf or .glb file. External buffers are fetched
// relative to the directory of ref.
func DecodeGLTF(ctx context.Context, data []byte, ref string, fetch Fetcher) (*gltf.Document, error) {
	fsys := &fetchFS{ctx: ctx, fetch: fetch, dir: path.Dir(CleanPath(ref))}
	data = aliasOuterBuffers(data, fsys)
	doc := new(gltf.Document)
	if err := gltf.NewDecoderFS(bytes.NewReader(data), fsys).Decode(doc); err != nil {
		return nil, fmt.Errorf("decode gltf: %w", err)
	}
	return doc, nil
}

// aliasOuterBuffers rewrites the buffer URIs of a .gltf that point outside
// the directory of the file, like "../shared/mesh.bin", which the decoder
// refuses to open. They are replaced by aliases resolved through fsys.
// Binary .glb data and documents that need no change are returned as is.
func aliasOuterBuffers(data []byte, fsys *fetchFS) []byte {
	if bytes.HasPrefix(data, []byte("glTF")) {
		return data
	}
	var doc gltf.Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return data
	}

	changed := false
	for i, b := range doc.Buffers {
		if b.URI == "" || b.IsEmbeddedResource() {
			continue
		}
		if u, err := url.Parse(b.URI); err != nil || u.Scheme != "" {
			continue
		}
		uri, err := url.PathUnescape(strings.ReplaceAll(b.URI, "\\", "/"))
		if err != nil || strings.HasPrefix(uri, "/") || fs.ValidPath(path.Clean(uri)) {
			continue
		}
		if name, ok := fsys.addAlias(i, uri); ok {
			b.URI = name
			changed = true
		}
	}
	if !changed {
		return data
	}
	out, err := json.Marshal(&doc)
	if err != nil {
		return data
	}
	return out
}

// BuildGLTF converts the default scene of doc, or its first scene, into a
// node named name. A document without scenes yields an empty node.
func BuildGLTF(ctx context.Context, doc *gltf.Document, name, ref string, fetch Fetcher) (*scene.Node, []error, error) {
	b := &gltfBuilder{
		ctx:       ctx,
		doc:       doc,
		fetch:     fetch,
		dir:       path.Dir(CleanPath(ref)),
		materials: make(map[int]*scene.Material),
		images:    make(map[int]image.Image),
		visiting:  make(map[int]bool),
	}

	root := scene.NewNode(name)
	if len(doc.Scenes) == 0 {
		return root, nil, nil
	}
	si := 0
	if doc.Scene != nil {
		si = *doc.Scene
	}
	if si < 0 || si >= len(doc.Scenes) {
		return nil, nil, fmt.Errorf("scene index %d out of range", si)
	}

	for _, ni := range doc.Scenes[si].Nodes {
		n, err := b.node(ni)
		if err != nil {
			return nil, nil, err
		}
		root.Add(n)
	}
	return root, b.warnings, nil
}

func (b *gltfBuilder) node(i int) (*scene.Node, error) {
	if i < 0 || i >= len(b.doc.Nodes) {
		return nil, fmt.Errorf("node index %d out of range", i)
	}
	if b.visiting[i] {
		return nil, fmt.Errorf("node %d is its own ancestor", i)
	}
	b.visiting[i] = true
	defer delete(b.visiting, i)

	src := b.doc.Nodes[i]
	n := scene.NewNode(src.Name)
	n.Local = nodeTransform(src)

	if src.Mesh != nil {
		if err := b.mesh(n, *src.Mesh); err != nil {
			return nil, fmt.Errorf("node %q: %w", src.Name, err)
		}
	}
	for _, ci := range src.Children {
		child, err := b.node(ci)
		if err != nil {
			return nil, err
		}
		n.Add(child)
	}
	return n, nil
}

func nodeTransform(n *gltf.Node) linmath.Mat4x4 {
	if m := n.MatrixOrDefault(); m != identity16 {
		var out linmath.Mat4x4
		for col := 0; col < 4; col++ {
			for row := 0; row < 4; row++ {
				out[col][row] = float32(m[col*4+row])
			}
		}
		return out
	}
	t := n.TranslationOrDefault()
	r := n.RotationOrDefault()
	s := n.ScaleOrDefault()
	return scene.Compose(
		linmath.Vec3{float32(t[0]), float32(t[1]), float32(t[2])},
		linmath.Quat{float32(r[0]), float32(r[1]), float32(r[2]), float32(r[3])},
		linmath.Vec3{float32(s[0]), float32(s[1]), float32(s[2])},
	)
}

// mesh adds one child to n per triangle primitive of mesh mi.
func (b *gltfBuilder) mesh(n *scene.Node, mi int) error {
	if mi < 0 || mi >= len(b.doc.Meshes) {
		return fmt.Errorf("mesh index %d out of range", mi)
	}
	src := b.doc.Meshes[mi]
	for pi, p := range src.Primitives {
		if p.Mode != gltf.PrimitiveTriangles {
			continue
		}
		mesh, err := b.primitive(p)
		if err != nil {
			return fmt.Errorf("mesh %q primitive %d: %w", src.Name, pi, err)
		}
		n.Add(scene.NewMeshNode(src.Name, mesh))
	}
	return nil
}

func (b *gltfBuilder) accessor(i int) (*gltf.Accessor, error) {
	if i < 0 || i >= len(b.doc.Accessors) {
		return nil, fmt.Errorf("accessor index %d out of range", i)
	}
	return b.doc.Accessors[i], nil
}

func (b *gltfBuilder) primitive(p *gltf.Primitive) (*scene.Mesh, error) {
	pi, ok := p.Attributes[gltf.POSITION]
	if !ok {
		return nil, errors.New("primitive has no POSITION attribute")
	}
	acr, err := b.accessor(pi)
	if err != nil {
		return nil, err
	}
	pos, err := modeler.ReadPosition(b.doc, acr, nil)
	if err != nil {
		return nil, fmt.Errorf("read positions: %w", err)
	}

	mesh := &scene.Mesh{Positions: make([]linmath.Vec3, len(pos))}
	for i, v := range pos {
		mesh.Positions[i] = v
	}

	if ni, ok := p.Attributes[gltf.NORMAL]; ok {
		acr, err := b.accessor(ni)
		if err != nil {
			return nil, err
		}
		normals, err := modeler.ReadNormal(b.doc, acr, nil)
		if err != nil {
			return nil, fmt.Errorf("read normals: %w", err)
		}
		if len(normals) == len(pos) {
			mesh.Normals = make([]linmath.Vec3, len(normals))
			for i, v := range normals {
				mesh.Normals[i] = v
			}
		}
	}

	if ti, ok := p.Attributes[gltf.TEXCOORD_0]; ok {
		acr, err := b.accessor(ti)
		if err != nil {
			return nil, err
		}
		uvs, err := modeler.ReadTextureCoord(b.doc, acr, nil)
		if err != nil {
			return nil, fmt.Errorf("read texture coordinates: %w", err)
		}
		if len(uvs) == len(pos) {
			// glTF puts the UV origin at the top-left of the image.
			mesh.UVs = make([]linmath.Vec2, len(uvs))
			for i, v := range uvs {
				mesh.UVs[i] = linmath.Vec2{v[0], 1 - v[1]}
			}
		}
	}

	if p.Indices != nil {
		acr, err := b.accessor(*p.Indices)
		if err != nil {
			return nil, err
		}
		mesh.Indices, err = modeler.ReadIndices(b.doc, acr, nil)
		if err != nil {
			return nil, fmt.Errorf("read indices: %w", err)
		}
		for _, idx := range mesh.Indices {
			if int(idx) >= len(pos) {
				return nil, fmt.Errorf("index %d out of range", idx)
			}
		}
	} else {
		mesh.Indices = make([]uint32, len(pos))
		for i := range mesh.Indices {
			mesh.Indices[i] = uint32(i)
		}
	}
	mesh.Indices = mesh.Indices[:len(mesh.Indices)/3*3]

	if len(mesh.Normals) == 0 {
		mesh.ComputeFlatNormals()
	}
	if err := mesh.CheckFinite(); err != nil {
		return nil, err
	}

	mesh.Material = scene.DefaultMaterial()
	if p.Material != nil {
		mesh.Material = b.material(*p.Material)
	}
	return mesh, nil
}

func (b *gltfBuilder) material(i int) *scene.Material {
	if m, ok := b.materials[i]; ok {
		return m
	}
	mat := scene.DefaultMaterial()
	b.materials[i] = mat
	if i < 0 || i >= len(b.doc.Materials) {
		b.warnings = append(b.warnings, fmt.Errorf("material index %d out of range", i))
		return mat
	}

	src := b.doc.Materials[i]
	mat.Name = src.Name
	mat.DoubleSided = src.DoubleSided
	mat.Diffuse = linmath.Vec3{1, 1, 1}
	mat.Specular = linmath.Vec3{0.1, 0.1, 0.1}

	pbr := src.PBRMetallicRoughness
	if pbr == nil {
		return mat
	}
	if c := pbr.BaseColorFactor; c != nil {
		mat.Diffuse = linmath.Vec3{float32(c[0]), float32(c[1]), float32(c[2])}
		if src.AlphaMode == gltf.AlphaBlend {
			mat.Opacity = float32(c[3])
		}
	}
	mat.Ambient = mat.Diffuse

	if ti := pbr.BaseColorTexture; ti != nil {
		img, err := b.texture(ti.Index)
		if err != nil {
			b.warnings = append(b.warnings, fmt.Errorf("material %q: %w", src.Name, err))
		} else {
			mat.DiffuseMap = img
		}
	}
	return mat
}

func (b *gltfBuilder) texture(i int) (image.Image, error) {
	if i < 0 || i >= len(b.doc.Textures) || b.doc.Textures[i].Source == nil {
		return nil, fmt.Errorf("texture %d has no image", i)
	}
	si := *b.doc.Textures[i].Source
	if img, ok := b.images[si]; ok {
		return img, nil
	}
	if si < 0 || si >= len(b.doc.Images) {
		return nil, fmt.Errorf("image index %d out of range", si)
	}

	data, err := b.imageData(b.doc.Images[si])
	if err != nil {
		return nil, fmt.Errorf("image %d: %w", si, err)
	}
	img, err := DecodeTexture(data)
	if err != nil {
		return nil, fmt.Errorf("image %d: %w", si, err)
	}
	b.images[si] = img
	return img, nil
}

func (b *gltfBuilder) imageData(img *gltf.Image) ([]byte, error) {
	switch {
	case img.BufferView != nil:
		bi := *img.BufferView
		if bi < 0 || bi >= len(b.doc.BufferViews) {
			return nil, fmt.Errorf("buffer view %d out of range", bi)
		}
		view := b.doc.BufferViews[bi]
		if view.Buffer < 0 || view.Buffer >= len(b.doc.Buffers) {
			return nil, fmt.Errorf("buffer %d out of range", view.Buffer)
		}
		buf := b.doc.Buffers[view.Buffer].Data
		end := view.ByteOffset + view.ByteLength
		if view.ByteOffset < 0 || end > len(buf) {
			return nil, fmt.Errorf("buffer view %d exceeds its buffer", bi)
		}
		return buf[view.ByteOffset:end], nil
	case img.IsEmbeddedResource():
		return img.MarshalData()
	case img.URI != "":
		uri, err := url.PathUnescape(img.URI)
		if err != nil {
			return nil, fmt.Errorf("bad uri %q: %w", img.URI, err)
		}
		return b.fetch.Fetch(b.ctx, path.Join(b.dir, uri))
	default:
		return nil, errors.New("image has no data")
	}
}
