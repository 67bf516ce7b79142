package loader

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"path"
	"strings"
	"time"

	"github.com/schollz/progressbar/v3"
)

// Fetcher retrieves the raw bytes of an asset by slash-separated path.
type Fetcher interface {
	Fetch(ctx context.Context, name string) ([]byte, error)
}

// FSFetcher reads assets from a file system.
type FSFetcher struct {
	FS fs.FS

	// Progress, when set, receives a byte progress bar for every fetch.
	Progress io.Writer
}

// Fetch reads name from the file system. Reading stops early when ctx is
// cancelled.
func (f *FSFetcher) Fetch(ctx context.Context, name string) ([]byte, error) {
	name = CleanPath(name)
	file, err := f.FS.Open(name)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", name, err)
	}
	defer file.Close()

	size := int64(-1)
	if st, err := file.Stat(); err == nil && st.Size() >= 0 {
		size = st.Size()
	}

	var buf bytes.Buffer
	var writer io.Writer = &buf
	if f.Progress != nil {
		bar := progressbar.NewOptions64(size,
			progressbar.OptionSetWriter(f.Progress),
			progressbar.OptionSetDescription(fmt.Sprintf("load %s", name)),
			progressbar.OptionShowBytes(true),
			progressbar.OptionThrottle(65*time.Millisecond),
			progressbar.OptionClearOnFinish(),
		)
		defer bar.Close()
		writer = io.MultiWriter(&buf, bar)
	}

	if _, err := io.Copy(writer, &ctxReader{ctx: ctx, r: file}); err != nil {
		return nil, fmt.Errorf("read %s: %w", name, err)
	}
	return buf.Bytes(), nil
}

type ctxReader struct {
	ctx context.Context
	r   io.Reader
}

func (c *ctxReader) Read(p []byte) (int, error) {
	if err := c.ctx.Err(); err != nil {
		return 0, err
	}
	return c.r.Read(p)
}

// CleanPath turns a model reference into an fs.FS path: forward slashes,
// no leading "./" or "/".
func CleanPath(name string) string {
	name = strings.ReplaceAll(name, "\\", "/")
	name = path.Clean("/" + name)
	return strings.TrimPrefix(name, "/")
}

// Layered returns a file system that opens each name from the first layer
// containing it.
func Layered(layers ...fs.FS) fs.FS {
	return layeredFS(layers)
}

type layeredFS []fs.FS

func (l layeredFS) Open(name string) (fs.File, error) {
	for _, layer := range l {
		f, err := layer.Open(name)
		if err == nil {
			return f, nil
		}
		if !errors.Is(err, fs.ErrNotExist) {
			return nil, err
		}
	}
	return nil, &fs.PathError{Op: "open", Path: name, Err: fs.ErrNotExist}
}

// fetchFS exposes a Fetcher rooted at dir as an fs.FS so decoders can
// resolve relative resources through it. Names are joined to dir before
// they are validated, so siblings of dir can be reached with "../".
type fetchFS struct {
	ctx   context.Context
	fetch Fetcher
	dir   string

	// alias maps names handed to the decoder to paths of the Fetcher.
	alias map[string]string
}

func (f *fetchFS) ReadFile(name string) ([]byte, error) {
	if target, ok := f.alias[name]; ok {
		return f.fetch.Fetch(f.ctx, target)
	}
	joined := path.Join(f.dir, name)
	if !fs.ValidPath(joined) {
		return nil, &fs.PathError{Op: "read", Path: name, Err: fs.ErrInvalid}
	}
	return f.fetch.Fetch(f.ctx, joined)
}

// addAlias registers a decoder-safe name for the i-th resource at uri,
// relative to dir. It fails when uri leaves the file system root.
func (f *fetchFS) addAlias(i int, uri string) (string, bool) {
	target := path.Join(f.dir, uri)
	if !fs.ValidPath(target) {
		return "", false
	}
	if f.alias == nil {
		f.alias = make(map[string]string)
	}
	name := fmt.Sprintf("%s%d", aliasPrefix, i)
	f.alias[name] = target
	return name, true
}

const aliasPrefix = ".external/buffer"

func (f *fetchFS) Open(name string) (fs.File, error) {
	data, err := f.ReadFile(name)
	if err != nil {
		return nil, err
	}
	return &memFile{Reader: bytes.NewReader(data), info: memInfo{name: path.Base(name), size: int64(len(data))}}, nil
}

type memFile struct {
	*bytes.Reader
	info memInfo
}

func (m *memFile) Stat() (fs.FileInfo, error) { return m.info, nil }
func (m *memFile) Close() error               { return nil }

type memInfo struct {
	name string
	size int64
}

func (i memInfo) Name() string       { return i.name }
func (i memInfo) Size() int64        { return i.size }
func (i memInfo) Mode() fs.FileMode  { return 0o444 }
func (i memInfo) ModTime() time.Time { return time.Time{} }
func (i memInfo) IsDir() bool        { return false }
func (i memInfo) Sys() any           { return nil }
