package reader

import (
	"sync"
	"time"
)

// EventKind is a page event that can change chapter geometry
type EventKind int

const (
	EventScroll EventKind = iota
	EventResize
)

func (k EventKind) String() string {
	switch k {
	case EventScroll:
		return "scroll"
	case EventResize:
		return "resize"
	default:
		return "unknown"
	}
}

// Listener receives page events. Sources identify listeners by pointer, so
// the same *Listener must be passed to AddListener and RemoveListener.
type Listener struct {
	handle func(EventKind)
}

// NewListener wraps fn in a listener
func NewListener(fn func(EventKind)) *Listener {
	return &Listener{handle: fn}
}

// Handle delivers an event to the listener
func (l *Listener) Handle(kind EventKind) {
	if l != nil && l.handle != nil {
		l.handle(kind)
	}
}

// EventSource delivers scroll and resize events.
type EventSource interface {
	AddListener(kind EventKind, l *Listener)
	RemoveListener(kind EventKind, l *Listener)
}

// debouncer runs fn once events stop arriving for the configured window.
type debouncer struct {
	mu      sync.Mutex
	window  time.Duration
	fn      func()
	timer   *time.Timer
	stopped bool
}

func newDebouncer(window time.Duration, fn func()) *debouncer {
	return &debouncer{window: window, fn: fn}
}

func (d *debouncer) trigger() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.stopped {
		return
	}
	if d.timer != nil {
		d.timer.Stop()
	}
	d.timer = time.AfterFunc(d.window, d.fire)
}

func (d *debouncer) fire() {
	d.mu.Lock()
	if d.stopped {
		d.mu.Unlock()
		return
	}
	d.timer = nil
	d.mu.Unlock()
	d.fn()
}

func (d *debouncer) stop() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.stopped = true
	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
}
