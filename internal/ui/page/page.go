// Package page is the terminal stand-in for a web page: chapters are blocks
// of wrapped lines stacked top to bottom under a scrollable viewport.
package page

import (
	"io"
	"strings"
	"sync"

	"github.com/charmbracelet/log"
	"github.com/justyntemme/kolnovel-t/internal/reader"
	"github.com/justyntemme/kolnovel-t/internal/render"
	"github.com/justyntemme/kolnovel-t/internal/ui/styles"
	"github.com/justyntemme/kolnovel-t/pkg/models"
)

const sideMargin = 4

// Style is the emphasis shown for chapter text
type Style struct {
	HideBold   bool
	HideItalic bool
}

// Block is one rendered chapter
type Block struct {
	body   models.ChapterBody
	lines  []render.Line
	source bool
	frozen *Style
}

// ChapterID implements reader.Node
func (b *Block) ChapterID() int {
	return b.body.ID
}

// Title returns the chapter title
func (b *Block) Title() string {
	return b.body.Title
}

// Link returns the chapter URL
func (b *Block) Link() string {
	return b.body.Link
}

// Page holds the chapter blocks and the viewport over them. It is safe for
// concurrent use; listeners are called without the page lock held.
type Page struct {
	mu        sync.Mutex
	blocks    []*Block
	offset    int
	width     int
	height    int
	opts      render.Options
	style     Style
	mirroring bool
	listeners map[reader.EventKind][]*reader.Listener
	changes   chan struct{}
	log       *log.Logger
}

// New creates an empty page with a viewport of width by height cells
func New(width, height int, opts render.Options, style Style, logger *log.Logger) *Page {
	if logger == nil {
		logger = log.New(io.Discard)
	}
	return &Page{
		width:     width,
		height:    max(1, height),
		opts:      opts,
		style:     style,
		listeners: make(map[reader.EventKind][]*reader.Listener),
		changes:   make(chan struct{}, 1),
		log:       logger.With("comp", "page"),
	}
}

// Changes delivers a value whenever the page content or viewport changes.
// Bursts are coalesced.
func (p *Page) Changes() <-chan struct{} {
	return p.changes
}

func (p *Page) changed() {
	select {
	case p.changes <- struct{}{}:
	default:
	}
}

func (p *Page) renderBlock(body models.ChapterBody, width int) []render.Line {
	lines, err := render.Chapter(body.Title, body.Content, width-sideMargin, p.opts)
	if err != nil {
		p.log.Warn("render chapter", "id", body.ID, "err", err)
		return []render.Line{{Text: body.Title, Heading: true}}
	}
	return lines
}

// Load replaces the page content with the chapter it was opened on
func (p *Page) Load(body models.ChapterBody) *Block {
	p.mu.Lock()
	b := &Block{body: body, source: true}
	b.lines = p.renderBlock(body, p.width)
	p.blocks = []*Block{b}
	p.offset = 0
	p.mu.Unlock()

	p.changed()
	return b
}

// Render implements reader.Mount. The block is not attached.
func (p *Page) Render(body models.ChapterBody) reader.Node {
	p.mu.Lock()
	width := p.width
	p.mu.Unlock()

	return &Block{body: body, lines: p.renderBlock(body, width)}
}

// Append implements reader.Mount
func (p *Page) Append(n reader.Node) {
	b, ok := n.(*Block)
	if !ok {
		return
	}

	p.mu.Lock()
	if p.indexOf(b) >= 0 {
		p.mu.Unlock()
		return
	}
	if !p.mirroring && !b.source {
		style := p.style
		b.frozen = &style
	}
	p.blocks = append(p.blocks, b)
	p.mu.Unlock()

	p.changed()
}

// Remove implements reader.Mount. Removing a block above the viewport shifts
// the offset so the visible text does not move.
func (p *Page) Remove(n reader.Node) {
	b, ok := n.(*Block)
	if !ok {
		return
	}

	p.mu.Lock()
	i := p.indexOf(b)
	if i < 0 {
		p.mu.Unlock()
		return
	}
	start := p.startOf(i)
	size := len(b.lines)
	switch {
	case start+size <= p.offset:
		p.offset -= size
	case start < p.offset:
		p.offset = start
	}
	p.blocks = append(p.blocks[:i], p.blocks[i+1:]...)
	p.clamp()
	p.mu.Unlock()

	p.changed()
}

// Rect implements reader.Viewport
func (p *Page) Rect(n reader.Node) (reader.Rect, bool) {
	b, ok := n.(*Block)
	if !ok {
		return reader.Rect{}, false
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	i := p.indexOf(b)
	if i < 0 {
		return reader.Rect{}, false
	}
	return reader.Rect{
		Top:    float64(p.startOf(i) - p.offset),
		Height: float64(len(b.lines)),
	}, true
}

// Height implements reader.Viewport
func (p *Page) Height() float64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return float64(p.height)
}

// AddListener implements reader.EventSource
func (p *Page) AddListener(kind reader.EventKind, l *reader.Listener) {
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, existing := range p.listeners[kind] {
		if existing == l {
			return
		}
	}
	p.listeners[kind] = append(p.listeners[kind], l)
}

// RemoveListener implements reader.EventSource
func (p *Page) RemoveListener(kind reader.EventKind, l *reader.Listener) {
	p.mu.Lock()
	defer p.mu.Unlock()
	list := p.listeners[kind]
	for i, existing := range list {
		if existing == l {
			p.listeners[kind] = append(list[:i], list[i+1:]...)
			return
		}
	}
}

// Listeners returns the number of listeners registered for kind
func (p *Page) Listeners(kind reader.EventKind) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.listeners[kind])
}

func (p *Page) dispatch(kind reader.EventKind) {
	p.mu.Lock()
	list := append([]*reader.Listener(nil), p.listeners[kind]...)
	p.mu.Unlock()

	for _, l := range list {
		l.Handle(kind)
	}
}

// Scroll moves the viewport by delta lines and reports whether it moved
func (p *Page) Scroll(delta int) bool {
	p.mu.Lock()
	return p.moveLocked(p.offset + delta)
}

// ScrollTo moves the viewport top to line
func (p *Page) ScrollTo(line int) bool {
	p.mu.Lock()
	return p.moveLocked(line)
}

// ScrollToEnd moves the viewport to the last line
func (p *Page) ScrollToEnd() bool {
	p.mu.Lock()
	return p.moveLocked(p.maxOffset())
}

// moveLocked is called with the lock held and releases it
func (p *Page) moveLocked(offset int) bool {
	before := p.offset
	p.offset = offset
	p.clamp()
	moved := p.offset != before
	p.mu.Unlock()

	if moved {
		p.changed()
		p.dispatch(reader.EventScroll)
	}
	return moved
}

// Resize changes the viewport and rewraps every block, keeping the line at
// the top of the viewport in view
func (p *Page) Resize(width, height int) {
	p.mu.Lock()
	if width == p.width && height == p.height {
		p.mu.Unlock()
		return
	}

	anchor, within := p.locate(p.offset)
	var fraction float64
	if anchor >= 0 && len(p.blocks[anchor].lines) > 0 {
		fraction = float64(within) / float64(len(p.blocks[anchor].lines))
	}

	rewrap := width != p.width
	p.width = width
	p.height = max(1, height)
	if rewrap {
		for _, b := range p.blocks {
			b.lines = p.renderBlock(b.body, width)
		}
		if anchor >= 0 {
			p.offset = p.startOf(anchor) + int(fraction*float64(len(p.blocks[anchor].lines)))
		}
	}
	p.clamp()
	p.mu.Unlock()

	p.changed()
	p.dispatch(reader.EventResize)
}

// SetStyle changes the emphasis shown for chapter text. Appended chapters
// follow it only while a StyleMirror is connected.
func (p *Page) SetStyle(s Style) {
	p.mu.Lock()
	p.style = s
	p.mu.Unlock()
	p.changed()
}

// Style returns the emphasis of the opening chapter
func (p *Page) Style() Style {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.style
}

// StyleMirror copies the opening chapter's text style onto appended chapters
// until it is disconnected.
type StyleMirror struct {
	page *Page
	once sync.Once
}

// MirrorStyle starts mirroring the text style onto appended chapters
func (p *Page) MirrorStyle() *StyleMirror {
	p.mu.Lock()
	p.mirroring = true
	for _, b := range p.blocks {
		b.frozen = nil
	}
	p.mu.Unlock()
	return &StyleMirror{page: p}
}

// Disconnect stops mirroring. Appended chapters keep the style they had.
func (m *StyleMirror) Disconnect() {
	m.once.Do(func() {
		p := m.page
		p.mu.Lock()
		p.mirroring = false
		for _, b := range p.blocks {
			if !b.source {
				style := p.style
				b.frozen = &style
			}
		}
		p.mu.Unlock()
	})
}

// Mirroring reports whether a StyleMirror is connected
func (p *Page) Mirroring() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.mirroring
}

// Position describes the chapter at the top of the viewport
type Position struct {
	ChapterID int
	Title     string
	Link      string
	Progress  float64
}

// Current returns the chapter under the top of the viewport
func (p *Page) Current() (Position, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()

	i, _ := p.locate(p.offset)
	if i < 0 {
		return Position{}, false
	}
	b := p.blocks[i]
	rect := reader.Rect{
		Top:    float64(p.startOf(i) - p.offset),
		Height: float64(len(b.lines)),
	}
	return Position{
		ChapterID: b.body.ID,
		Title:     b.body.Title,
		Link:      b.body.Link,
		Progress:  reader.ScrollProgress(rect, float64(p.height)),
	}, true
}

// IDs returns the attached chapter ids, top to bottom
func (p *Page) IDs() []int {
	p.mu.Lock()
	defer p.mu.Unlock()
	ids := make([]int, len(p.blocks))
	for i, b := range p.blocks {
		ids[i] = b.body.ID
	}
	return ids
}

// Offset returns the first visible line
func (p *Page) Offset() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.offset
}

// Lines returns the total number of lines on the page
func (p *Page) Lines() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.total()
}

// View renders the visible lines, padded to the viewport height
func (p *Page) View() string {
	p.mu.Lock()
	defer p.mu.Unlock()

	var b strings.Builder
	written := 0
	line := 0
	for _, blk := range p.blocks {
		style := p.style
		if blk.frozen != nil {
			style = *blk.frozen
		}
		for _, l := range blk.lines {
			if line >= p.offset && written < p.height {
				b.WriteString(styles.ReaderContent.Render(styleLine(l, style)))
				b.WriteString("\n")
				written++
			}
			line++
		}
	}
	for ; written < p.height; written++ {
		b.WriteString("\n")
	}
	return strings.TrimSuffix(b.String(), "\n")
}

func styleLine(l render.Line, s Style) string {
	if l.Text == "" {
		return ""
	}
	bold := l.Bold && !s.HideBold
	italic := l.Italic && !s.HideItalic
	switch {
	case l.Heading:
		return styles.ChapterHeading.Render(l.Text)
	case bold && italic:
		return styles.TextBoldItalic.Render(l.Text)
	case bold:
		return styles.TextBold.Render(l.Text)
	case italic:
		return styles.TextItalic.Render(l.Text)
	}
	return l.Text
}

func (p *Page) indexOf(b *Block) int {
	for i, existing := range p.blocks {
		if existing == b {
			return i
		}
	}
	return -1
}

func (p *Page) startOf(i int) int {
	start := 0
	for _, b := range p.blocks[:i] {
		start += len(b.lines)
	}
	return start
}

// locate returns the block holding line and the line's position inside it
func (p *Page) locate(line int) (int, int) {
	start := 0
	for i, b := range p.blocks {
		if line < start+len(b.lines) {
			return i, line - start
		}
		start += len(b.lines)
	}
	return -1, 0
}

func (p *Page) total() int {
	return p.startOf(len(p.blocks))
}

// maxOffset lets the last line reach the top of the viewport so short
// chapters can be scrolled through completely
func (p *Page) maxOffset() int {
	return max(0, p.total()-1)
}

func (p *Page) clamp() {
	p.offset = min(max(0, p.offset), p.maxOffset())
}
