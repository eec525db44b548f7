// Package notify collects reader notifications as short lived toasts.
package notify

import (
	"io"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"
	"github.com/justyntemme/kolnovel-t/internal/reader"
)

// DefaultTTL is how long a toast stays visible
const DefaultTTL = 4 * time.Second

// Toast is one notification
type Toast struct {
	ID       string
	Message  string
	Severity reader.Severity
	Created  time.Time
	Expires  time.Time
}

// Expired reports whether the toast should be hidden at t
func (t Toast) Expired(at time.Time) bool {
	return !at.Before(t.Expires)
}

// Center implements reader.Notifier. Toasts are kept until they expire.
type Center struct {
	mu       sync.Mutex
	toasts   []Toast
	ttl      time.Duration
	now      func() time.Time
	onNotify func(Toast)
	log      *log.Logger
}

// NewCenter creates a notification center. A ttl of zero uses DefaultTTL.
func NewCenter(ttl time.Duration, logger *log.Logger) *Center {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	if logger == nil {
		logger = log.New(io.Discard)
	}
	return &Center{
		ttl: ttl,
		now: time.Now,
		log: logger.With("comp", "notify"),
	}
}

// OnNotify registers fn to be called with every new toast, outside the
// center's lock
func (c *Center) OnNotify(fn func(Toast)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.onNotify = fn
}

// Notify implements reader.Notifier
func (c *Center) Notify(message string, severity reader.Severity) {
	now := c.now()
	toast := Toast{
		ID:       uuid.NewString(),
		Message:  message,
		Severity: severity,
		Created:  now,
		Expires:  now.Add(c.ttl),
	}

	c.mu.Lock()
	c.toasts = append(c.toasts, toast)
	fn := c.onNotify
	c.mu.Unlock()

	switch severity {
	case reader.SeverityError:
		c.log.Error(message)
	case reader.SeverityWarning:
		c.log.Warn(message)
	default:
		c.log.Info(message, "severity", severity)
	}

	if fn != nil {
		fn(toast)
	}
}

// Active returns the toasts that have not expired, oldest first
func (c *Center) Active() []Toast {
	now := c.now()
	c.mu.Lock()
	defer c.mu.Unlock()

	var active []Toast
	for _, t := range c.toasts {
		if !t.Expired(now) {
			active = append(active, t)
		}
	}
	return active
}

// Latest returns the newest unexpired toast
func (c *Center) Latest() (Toast, bool) {
	active := c.Active()
	if len(active) == 0 {
		return Toast{}, false
	}
	return active[len(active)-1], true
}

// Prune drops expired toasts and returns how many were removed
func (c *Center) Prune() int {
	now := c.now()
	c.mu.Lock()
	defer c.mu.Unlock()

	kept := c.toasts[:0]
	for _, t := range c.toasts {
		if !t.Expired(now) {
			kept = append(kept, t)
		}
	}
	removed := len(c.toasts) - len(kept)
	c.toasts = kept
	return removed
}

// Dismiss removes the toast with the given id
func (c *Center) Dismiss(id string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	for i, t := range c.toasts {
		if t.ID == id {
			c.toasts = append(c.toasts[:i], c.toasts[i+1:]...)
			return true
		}
	}
	return false
}
