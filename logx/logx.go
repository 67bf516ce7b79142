// Package logx sets up the slog logger used by the viewer.
//
// Records are written as single lines:
//
//	WARN texture not loaded path=cube.mtl err="..."
//
// with the level coloured when the output is a terminal.
package logx

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"sync"

	"github.com/muesli/termenv"
)

// UserLevel is the lowest level shown by the default logger.
var UserLevel = slog.LevelWarn

// Handler is a slog.Handler writing one text line per record.
type Handler struct {
	mu    *sync.Mutex
	w     io.Writer
	out   *termenv.Output
	level slog.Leveler

	attrs  []slog.Attr
	groups []string
}

// NewHandler returns a handler writing to w. When colour is false, or w is
// not a terminal, no escape codes are written.
func NewHandler(w io.Writer, level slog.Leveler, colour bool) *Handler {
	opts := []termenv.OutputOption{}
	if !colour {
		opts = append(opts, termenv.WithProfile(termenv.Ascii))
	}
	return &Handler{
		mu:    &sync.Mutex{},
		w:     w,
		out:   termenv.NewOutput(w, opts...),
		level: level,
	}
}

// SetDefaultLogger installs a handler on stderr at UserLevel as the slog
// default.
func SetDefaultLogger(colour bool) *slog.Logger {
	l := slog.New(NewHandler(os.Stderr, UserLevel, colour))
	slog.SetDefault(l)
	return l
}

// Enabled reports whether records at l are written.
func (h *Handler) Enabled(_ context.Context, l slog.Level) bool {
	return l >= h.level.Level()
}

// Handle writes r.
func (h *Handler) Handle(_ context.Context, r slog.Record) error {
	var b strings.Builder
	b.WriteString(h.levelString(r.Level))
	b.WriteByte(' ')
	b.WriteString(r.Message)

	prefix := strings.Join(h.groups, ".")
	for _, a := range h.attrs {
		writeAttr(&b, "", a)
	}
	r.Attrs(func(a slog.Attr) bool {
		writeAttr(&b, prefix, a)
		return true
	})
	b.WriteByte('\n')

	h.mu.Lock()
	defer h.mu.Unlock()
	_, err := io.WriteString(h.w, b.String())
	return err
}

// WithAttrs returns a handler adding attrs to every record.
func (h *Handler) WithAttrs(attrs []slog.Attr) slog.Handler {
	c := *h
	prefix := strings.Join(h.groups, ".")
	c.attrs = append(append([]slog.Attr{}, h.attrs...), qualify(prefix, attrs)...)
	return &c
}

// WithGroup returns a handler qualifying later keys with name.
func (h *Handler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	c := *h
	c.groups = append(append([]string{}, h.groups...), name)
	return &c
}

func (h *Handler) levelString(l slog.Level) string {
	s := h.out.String(l.String())
	switch {
	case l >= slog.LevelError:
		s = s.Foreground(h.out.Color("1"))
	case l >= slog.LevelWarn:
		s = s.Foreground(h.out.Color("3"))
	case l >= slog.LevelInfo:
		s = s.Foreground(h.out.Color("2"))
	default:
		s = s.Foreground(h.out.Color("8"))
	}
	return s.String()
}

func qualify(prefix string, attrs []slog.Attr) []slog.Attr {
	if prefix == "" {
		return attrs
	}
	out := make([]slog.Attr, len(attrs))
	for i, a := range attrs {
		out[i] = slog.Attr{Key: prefix + "." + a.Key, Value: a.Value}
	}
	return out
}

func writeAttr(b *strings.Builder, prefix string, a slog.Attr) {
	a.Value = a.Value.Resolve()
	if a.Equal(slog.Attr{}) {
		return
	}
	key := a.Key
	if prefix != "" {
		key = prefix + "." + key
	}
	if a.Value.Kind() == slog.KindGroup {
		for _, g := range a.Value.Group() {
			writeAttr(b, key, g)
		}
		return
	}
	b.WriteByte(' ')
	b.WriteString(key)
	b.WriteByte('=')
	b.WriteString(quote(a.Value.String()))
}

func quote(s string) string {
	if s == "" || strings.ContainsAny(s, " \t\n\"=") {
		return fmt.Sprintf("%q", s)
	}
	return s
}
