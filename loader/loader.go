// Package loader fetches and parses the model and attaches it to the
// scene.
//
// Fetching and parsing run on background goroutines. Their results are
// handed back through the event loop, so the scene is only ever mutated
// between frames on the loop goroutine.
package loader

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path"
	"strings"

	"model-viewer/eventloop"
	"model-viewer/format"
	"model-viewer/scene"
)

var (
	// ErrMaterialLoad wraps failures fetching or parsing a material library.
	ErrMaterialLoad = errors.New("loading materials")
	// ErrGeometryLoad wraps failures fetching or parsing model geometry.
	ErrGeometryLoad = errors.New("loading geometry")
)

// Stage marks a step of a model load reported through Loader.Trace.
type Stage int

const (
	StageSkipped Stage = iota
	StageMaterialsLoaded
	StageMaterialsPrewarmed
	StageGeometryRequested
	StageAttached
	StageFailed
)

func (s Stage) String() string {
	switch s {
	case StageMaterialsLoaded:
		return "materials-loaded"
	case StageMaterialsPrewarmed:
		return "materials-prewarmed"
	case StageGeometryRequested:
		return "geometry-requested"
	case StageAttached:
		return "attached"
	case StageFailed:
		return "failed"
	default:
		return "skipped"
	}
}

// Event describes one load step. Err is set for StageFailed.
type Event struct {
	Stage Stage
	Path  string
	Err   error
}

// Loader loads a single model into a scene.
type Loader struct {
	fetch Fetcher
	loop  *eventloop.Loop
	scene *scene.Scene
	log   *slog.Logger

	// Trace, when set, is called on the loop goroutine for every step.
	Trace func(Event)
}

// New returns a loader that attaches to sc from callbacks run by loop.
func New(fetch Fetcher, loop *eventloop.Loop, sc *scene.Scene, log *slog.Logger) *Loader {
	if log == nil {
		log = slog.Default()
	}
	return &Loader{
		fetch: fetch,
		loop:  loop,
		scene: sc,
		log:   log,
	}
}

// Load starts loading ref according to decision and returns immediately.
// Failures are logged and traced, never returned; the scene is left
// without the model. Cancelling ctx abandons the load silently.
func (l *Loader) Load(ctx context.Context, ref string, decision format.Decision) {
	switch decision {
	case format.UsesSeparateMaterials:
		l.loadMaterials(ctx, ref)
	case format.UsesPackagedScene:
		l.loadPackaged(ctx, ref)
	default:
		l.log.Error("invalid or unsupported file", "path", ref)
		l.trace(Event{Stage: StageSkipped, Path: ref})
	}
}

func (l *Loader) trace(ev Event) {
	if l.Trace != nil {
		l.Trace(ev)
	}
}

func (l *Loader) fail(msg, p string, err error) {
	l.log.Error(msg, "path", p, "err", err)
	l.trace(Event{Stage: StageFailed, Path: p, Err: err})
}

func (l *Loader) attach(ref string, node *scene.Node) {
	l.scene.Add(node)
	l.log.Info("model attached", "path", ref, "children", len(node.Children()))
	l.trace(Event{Stage: StageAttached, Path: ref})
}

func (l *Loader) loadMaterials(ctx context.Context, ref string) {
	mtlPath := format.MaterialPathFor(ref)
	l.loop.Go(func() func() {
		data, err := l.fetch.Fetch(ctx, mtlPath)
		if ctx.Err() != nil {
			return nil
		}
		var mats MaterialSet
		if err == nil {
			mats, err = ParseMaterials(data, mtlPath)
		}
		if err != nil {
			err = fmt.Errorf("%w %s: %w", ErrMaterialLoad, mtlPath, err)
			return func() { l.fail("error loading MTL file", mtlPath, err) }
		}
		return func() {
			l.log.Debug("materials loaded", "path", mtlPath, "count", len(mats))
			l.trace(Event{Stage: StageMaterialsLoaded, Path: mtlPath})
			l.prewarm(ctx, ref, mtlPath, mats)
		}
	})
}

// prewarm resolves the textures of every material before the geometry is
// requested. A texture that cannot be loaded only costs its material the
// texture.
func (l *Loader) prewarm(ctx context.Context, ref, mtlPath string, mats MaterialSet) {
	l.loop.Go(func() func() {
		var warnings []error
		for _, mat := range mats {
			if mat.DiffuseMapPath == "" {
				continue
			}
			data, err := l.fetch.Fetch(ctx, mat.DiffuseMapPath)
			if ctx.Err() != nil {
				return nil
			}
			if err == nil {
				mat.DiffuseMap, err = DecodeTexture(data)
			}
			if err != nil {
				warnings = append(warnings, fmt.Errorf("material %q texture %s: %w", mat.Name, mat.DiffuseMapPath, err))
			}
		}
		return func() {
			for _, w := range warnings {
				l.log.Warn("texture not loaded", "path", mtlPath, "err", w)
			}
			l.trace(Event{Stage: StageMaterialsPrewarmed, Path: mtlPath})
			l.loadGeometry(ctx, ref, mats)
		}
	})
}

func (l *Loader) loadGeometry(ctx context.Context, ref string, mats MaterialSet) {
	l.trace(Event{Stage: StageGeometryRequested, Path: ref})
	l.loop.Go(func() func() {
		data, err := l.fetch.Fetch(ctx, ref)
		if ctx.Err() != nil {
			return nil
		}
		var node *scene.Node
		var missing []string
		if err == nil {
			node, missing, err = BuildOBJ(data, modelName(ref), mats)
		}
		if err != nil {
			err = fmt.Errorf("%w %s: %w", ErrGeometryLoad, ref, err)
			return func() { l.fail("error loading OBJ file", ref, err) }
		}
		return func() {
			for _, name := range missing {
				l.log.Warn("material not found, using default", "path", ref, "material", name)
			}
			l.attach(ref, node)
		}
	})
}

func (l *Loader) loadPackaged(ctx context.Context, ref string) {
	l.loop.Go(func() func() {
		data, err := l.fetch.Fetch(ctx, ref)
		if ctx.Err() != nil {
			return nil
		}
		var node *scene.Node
		var warnings []error
		if err == nil {
			doc, derr := DecodeGLTF(ctx, data, ref, l.fetch)
			if derr == nil {
				node, warnings, err = BuildGLTF(ctx, doc, modelName(ref), ref, l.fetch)
			} else {
				err = derr
			}
		}
		if ctx.Err() != nil {
			return nil
		}
		if err != nil {
			err = fmt.Errorf("%w %s: %w", ErrGeometryLoad, ref, err)
			return func() { l.fail("error loading GLB/GLTF file", ref, err) }
		}
		return func() {
			for _, w := range warnings {
				l.log.Warn("texture not loaded", "path", ref, "err", w)
			}
			l.attach(ref, node)
		}
	})
}

func modelName(ref string) string {
	base := path.Base(CleanPath(ref))
	if i := strings.LastIndex(base, "."); i > 0 {
		return base[:i]
	}
	return base
}
