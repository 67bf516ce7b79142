// Package eventloop implements the single-threaded cooperative queue the
// viewer runs on.
//
// Background work may run on any goroutine, but everything that touches the
// scene, the camera or the render surface is a callback executed by the one
// goroutine that calls RunPending and Tick. Only one callback runs at a time.
package eventloop

import (
	"sync"
	"time"
)

// FrameFunc is a callback run on the next frame tick.
type FrameFunc func(now time.Time)

// Loop is a cooperative task queue with a per-frame callback list.
type Loop struct {
	mu      sync.Mutex
	pending []func()
	frames  []FrameFunc

	// wake is called after Post so a host blocked waiting for events
	// notices the new work. It may be nil.
	wake func()
}

// New returns an empty loop. wake is invoked, possibly from other
// goroutines, whenever a callback is posted.
func New(wake func()) *Loop {
	return &Loop{wake: wake}
}

// Post queues fn to run on the loop goroutine. Safe for concurrent use.
func (l *Loop) Post(fn func()) {
	l.mu.Lock()
	l.pending = append(l.pending, fn)
	l.mu.Unlock()

	if l.wake != nil {
		l.wake()
	}
}

// Go runs task on a new goroutine and posts the completion callback it
// returns. A nil callback is not posted.
func (l *Loop) Go(task func() func()) {
	go func() {
		if done := task(); done != nil {
			l.Post(done)
		}
	}()
}

// RequestFrame registers fn to run once on the next Tick.
func (l *Loop) RequestFrame(fn FrameFunc) {
	l.mu.Lock()
	l.frames = append(l.frames, fn)
	l.mu.Unlock()
}

// RunPending runs every posted callback in FIFO order, including ones
// posted by the callbacks themselves, and returns how many ran.
func (l *Loop) RunPending() int {
	n := 0
	for {
		l.mu.Lock()
		if len(l.pending) == 0 {
			l.mu.Unlock()
			return n
		}
		fn := l.pending[0]
		l.pending[0] = nil
		l.pending = l.pending[1:]
		l.mu.Unlock()

		fn()
		n++
	}
}

// Tick runs the frame callbacks registered before the call. Callbacks
// requested while ticking run on the following Tick.
func (l *Loop) Tick(now time.Time) int {
	l.mu.Lock()
	frames := l.frames
	l.frames = nil
	l.mu.Unlock()

	for _, fn := range frames {
		fn(now)
	}
	return len(frames)
}

// Pending returns the number of queued callbacks.
func (l *Loop) Pending() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.pending)
}

// FramesRequested returns the number of callbacks waiting for the next Tick.
func (l *Loop) FramesRequested() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.frames)
}

// Drain runs pending callbacks until done returns true or the timeout
// elapses, polling every millisecond. It reports whether done became true.
// It is meant for hosts without their own event pump, such as tests.
func (l *Loop) Drain(timeout time.Duration, done func() bool) bool {
	deadline := time.Now().Add(timeout)
	for {
		l.RunPending()
		if done() {
			return true
		}
		if time.Now().After(deadline) {
			return false
		}
		time.Sleep(time.Millisecond)
	}
}
