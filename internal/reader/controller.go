package reader

import (
	"context"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/justyntemme/kolnovel-t/pkg/models"
)

// Defaults for Settings implementations
const (
	DefaultAdvanceThreshold = 60.0
	DefaultMaxDisplayed     = 3
	DefaultDebounceWindow   = 300 * time.Millisecond
)

// State is the loading state of a Controller
type State int

const (
	StateIdle State = iota
	StateFetching
	StateExhausted
	StateErrored
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateFetching:
		return "fetching"
	case StateExhausted:
		return "exhausted"
	case StateErrored:
		return "errored"
	default:
		return "unknown"
	}
}

// Severity of a notification
type Severity int

const (
	SeverityInfo Severity = iota
	SeveritySuccess
	SeverityWarning
	SeverityError
)

func (s Severity) String() string {
	switch s {
	case SeverityInfo:
		return "info"
	case SeveritySuccess:
		return "success"
	case SeverityWarning:
		return "warning"
	case SeverityError:
		return "error"
	default:
		return "unknown"
	}
}

// Notifier displays messages to the reader
type Notifier interface {
	Notify(message string, severity Severity)
}

// ChapterSource fetches chapter bodies by id
type ChapterSource interface {
	FetchChapterBody(ctx context.Context, id int) (models.ChapterBody, error)
}

// Viewport reports page geometry. Rect is false for nodes that are not
// attached.
type Viewport interface {
	Rect(n Node) (Rect, bool)
	Height() float64
}

// Settings are the user tunables read by the controller
type Settings interface {
	AutoLoader() bool
	AdvanceThreshold() float64
	MaxDisplayed() int
	DebounceWindow() time.Duration
}

// Observer is an attachment released when the controller is torn down
type Observer interface {
	Disconnect()
}

// Options wires a Controller to its page and collaborators.
type Options struct {
	Mount    Mount
	Viewport Viewport
	Events   EventSource
	Source   ChapterSource
	Notifier Notifier
	Recorder *Recorder
	Settings Settings
	Observer Observer
	Logger   *log.Logger

	NovelID int
	// Current is the chapter the page was opened with, already attached.
	Current DisplayedChapterBlock
	// Index is nil when the chapter list could not be loaded; IndexErr
	// holds the reason.
	Index    *ChapterIndex
	IndexErr error
}

// Controller loads the next chapter whenever the reader scrolls far enough
// through the last displayed one.
type Controller struct {
	mount    Mount
	viewport Viewport
	events   EventSource
	source   ChapterSource
	notifier Notifier
	recorder *Recorder
	settings Settings
	observer Observer
	log      *log.Logger

	novelID  int
	index    *ChapterIndex
	indexErr error
	window   *ChapterWindow

	mu        sync.Mutex
	ctx       context.Context
	state     State
	destroyed bool
	listener  *Listener
	debounce  *debouncer
	inflight  sync.WaitGroup
}

// NewController creates a controller in the idle state. Call Start to begin
// listening for page events.
func NewController(opts Options) *Controller {
	logger := opts.Logger
	if logger == nil {
		logger = log.New(io.Discard)
	}

	c := &Controller{
		mount:    opts.Mount,
		viewport: opts.Viewport,
		events:   opts.Events,
		source:   opts.Source,
		notifier: opts.Notifier,
		recorder: opts.Recorder,
		settings: opts.Settings,
		observer: opts.Observer,
		log:      logger.With("comp", "loader"),
		novelID:  opts.NovelID,
		index:    opts.Index,
		indexErr: opts.IndexErr,
		window:   NewChapterWindow(opts.Mount, opts.Settings.MaxDisplayed()),
		ctx:      context.Background(),
	}
	if opts.Current.Node != nil {
		c.window.Adopt(opts.Current)
	}
	return c
}

// Start attaches the debounced page listener. Without a chapter index the
// controller moves to StateErrored and reports it once.
func (c *Controller) Start(ctx context.Context) {
	c.mu.Lock()
	if c.destroyed || c.listener != nil || c.state == StateErrored {
		c.mu.Unlock()
		return
	}
	c.ctx = ctx
	tail, hasTail := c.window.Tail()

	if c.index == nil {
		c.state = StateErrored
		c.mu.Unlock()
		c.log.Warn("next chapters disabled", "err", c.indexErr)
		c.notifier.Notify("Chapter list unavailable, next chapters will not load", SeverityWarning)
		return
	}

	if !c.settings.AutoLoader() {
		c.mu.Unlock()
		c.log.Debug("auto loader off")
		return
	}

	d := newDebouncer(c.settings.DebounceWindow(), c.Check)
	c.debounce = d
	c.listener = NewListener(func(EventKind) { d.trigger() })
	listener := c.listener
	c.mu.Unlock()

	c.events.AddListener(EventScroll, listener)
	c.events.AddListener(EventResize, listener)

	if hasTail {
		if err := c.recorder.Ensure(tail.ChapterID, c.novelID, tail.Link, tail.Title); err != nil {
			c.log.Error("record chapter", "chapter", tail.ChapterID, "err", err)
		}
	}
	c.log.Debug("listening", "cursor", c.Cursor(), "chapters", c.index.Len())
}

// Pause detaches the page listener without discarding loaded chapters.
// Start resumes.
func (c *Controller) Pause() {
	c.mu.Lock()
	listener, d := c.listener, c.debounce
	c.listener, c.debounce = nil, nil
	c.mu.Unlock()

	c.detach(listener, d)
}

// Check samples the last displayed chapter and starts loading the next one
// once the advance threshold is passed.
func (c *Controller) Check() {
	c.mu.Lock()
	if c.destroyed || c.state != StateIdle || c.index == nil {
		c.mu.Unlock()
		return
	}
	tail, ok := c.window.Tail()
	if !ok {
		c.mu.Unlock()
		return
	}
	rect, ok := c.viewport.Rect(tail.Node)
	if !ok {
		c.mu.Unlock()
		return
	}
	progress := ScrollProgress(rect, c.viewport.Height())
	if progress <= c.settings.AdvanceThreshold() {
		c.mu.Unlock()
		return
	}

	c.state = StateFetching
	next, ok := c.index.Next()
	ctx := c.ctx
	if ok {
		c.inflight.Add(1)
	}
	c.mu.Unlock()

	c.record(tail.ChapterID, CompletionRead, tail.Link, tail.Title)

	if !ok {
		c.log.Info("end of chapter list", "chapters", c.index.Len())
		c.notifier.Notify("No more chapters to read", SeverityInfo)
		c.Destroy()
		return
	}
	go c.fetch(ctx, next)
}

func (c *Controller) fetch(ctx context.Context, desc models.ChapterDescriptor) {
	defer c.inflight.Done()

	c.log.Debug("fetching chapter", "chapter", desc.ID)
	body, err := c.source.FetchChapterBody(ctx, desc.ID)

	c.mu.Lock()
	if c.destroyed {
		c.mu.Unlock()
		c.log.Debug("dropping chapter after teardown", "chapter", desc.ID)
		return
	}
	if err != nil {
		c.state = StateIdle
		c.mu.Unlock()
		ferr := &ChapterFetchFailedError{ID: desc.ID, Err: err}
		c.log.Error("chapter fetch failed", "err", ferr)
		c.notifier.Notify(fmt.Sprintf("Error loading chapter %d", desc.ID), SeverityError)
		return
	}

	body.ID = desc.ID
	if body.Title == "" {
		body.Title = desc.Title
	}
	if body.Link == "" {
		body.Link = desc.Link
	}
	appended := false
	if !c.window.Contains(desc.ID) {
		appended = c.window.Append(DisplayedChapterBlock{
			ChapterID: desc.ID,
			Title:     body.Title,
			Link:      body.Link,
			Node:      c.mount.Render(body),
		})
	}
	c.mu.Unlock()

	if appended {
		// Recorded before going idle so a later mark as read cannot be
		// overwritten.
		c.record(desc.ID, CompletionUnread, body.Link, body.Title)
		c.notifier.Notify(body.Title, SeveritySuccess)
	}

	c.mu.Lock()
	if !c.destroyed {
		c.state = StateIdle
	}
	c.mu.Unlock()
}

func (c *Controller) record(chapterID, completion int, link, title string) {
	if err := c.recorder.Record(chapterID, c.novelID, completion, link, title); err != nil {
		c.log.Error("record progress", "chapter", chapterID, "completion", completion, "err", err)
	}
}

// Destroy detaches the listener, releases the observer and forgets the
// displayed chapters. Later fetch results are dropped. Safe to call more
// than once.
func (c *Controller) Destroy() {
	c.mu.Lock()
	if c.destroyed {
		c.mu.Unlock()
		return
	}
	c.destroyed = true
	c.state = StateExhausted
	listener, d := c.listener, c.debounce
	c.listener, c.debounce = nil, nil
	c.window.Reset()
	c.mu.Unlock()

	if c.observer != nil {
		c.observer.Disconnect()
	}
	c.detach(listener, d)
}

func (c *Controller) detach(listener *Listener, d *debouncer) {
	if d != nil {
		d.stop()
	}
	if listener != nil {
		c.events.RemoveListener(EventScroll, listener)
		c.events.RemoveListener(EventResize, listener)
	}
}

// Wait blocks until no chapter fetch is in flight
func (c *Controller) Wait() {
	c.inflight.Wait()
}

// State returns the current state
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Cursor returns the index position of the chapter last triggered for
// loading, or -1 without an index.
func (c *Controller) Cursor() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.index == nil {
		return -1
	}
	return c.index.Cursor()
}

// Listening reports whether the page listener is attached
func (c *Controller) Listening() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.listener != nil
}

// Displayed returns the ids of the chapters in the window, oldest first
func (c *Controller) Displayed() []int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.window.IDs()
}
