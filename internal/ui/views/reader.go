package views

import (
	"context"
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/log"
	"github.com/justyntemme/kolnovel-t/internal/config"
	"github.com/justyntemme/kolnovel-t/internal/library"
	"github.com/justyntemme/kolnovel-t/internal/logging"
	"github.com/justyntemme/kolnovel-t/internal/reader"
	"github.com/justyntemme/kolnovel-t/internal/render"
	"github.com/justyntemme/kolnovel-t/internal/ui/notify"
	"github.com/justyntemme/kolnovel-t/internal/ui/page"
	"github.com/justyntemme/kolnovel-t/internal/ui/styles"
	"github.com/justyntemme/kolnovel-t/pkg/models"
)

const sessionTimeout = 45 * time.Second

// ReaderView displays a chapter and keeps appending the following chapters
// as the reader scrolls
type ReaderView struct {
	lib    *library.Service
	source reader.ChapterSource
	config *config.Config
	notes  *notify.Center
	log    *log.Logger

	// Current session
	url     string
	session library.Session
	page    *page.Page
	loader  *reader.Controller
	ctx     context.Context
	cancel  context.CancelFunc
	done    chan struct{}

	// State
	loading bool
	err     error
	status  string // Transient message for local actions

	// Dimensions
	width  int
	height int
}

// sessionLoadedMsg is sent when the opening chapter and its novel are loaded
type sessionLoadedMsg struct {
	url     string
	session library.Session
	err     error
}

// pageChangedMsg is sent whenever the page scrolled or a chapter was added
type pageChangedMsg struct {
	page *page.Page
}

// NewReaderView creates a new reader view
func NewReaderView(lib *library.Service, source reader.ChapterSource, cfg *config.Config, notes *notify.Center, logger *log.Logger) *ReaderView {
	if logger == nil {
		logger = logging.Discard()
	}
	return &ReaderView{
		lib:    lib,
		source: source,
		config: cfg,
		notes:  notes,
		log:    logger,
		width:  80,
		height: 24,
	}
}

// SetURL closes the current session and prepares url to be opened by Init
func (v *ReaderView) SetURL(url string) {
	v.Close()
	v.url = url
	v.session = library.Session{}
	v.err = nil
	v.status = ""
}

// Close tears down the loader and releases the page. Chapters still being
// fetched are dropped.
func (v *ReaderView) Close() {
	if v.loader != nil {
		v.cancel()
		v.loader.Destroy()
	}
	if v.done != nil {
		close(v.done)
	}
	v.page, v.loader, v.ctx, v.cancel, v.done = nil, nil, nil, nil, nil
}

// Init implements View
func (v *ReaderView) Init() tea.Cmd {
	if v.url == "" || v.page != nil {
		return nil
	}
	v.loading = true
	return v.loadSession(v.url)
}

// Update implements View
func (v *ReaderView) Update(msg tea.Msg) (View, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		v.status = ""
		return v.handleKeyMsg(msg)
	case sessionLoadedMsg:
		return v.handleSessionLoaded(msg)
	case pageChangedMsg:
		if msg.page != v.page || v.page == nil {
			return v, nil
		}
		return v, v.waitForChange()
	}
	return v, nil
}

func (v *ReaderView) handleSessionLoaded(msg sessionLoadedMsg) (View, tea.Cmd) {
	if msg.url != v.url {
		return v, nil
	}
	v.loading = false
	if msg.err != nil {
		v.err = msg.err
		v.log.Error("open chapter", "url", msg.url, "err", msg.err)
		return v, nil
	}
	v.start(msg.session)
	return v, v.waitForChange()
}

// start mounts the opening chapter and attaches the chapter loader to it
func (v *ReaderView) start(sess library.Session) {
	style := page.Style{HideBold: v.config.HideBold, HideItalic: v.config.HideItalic}
	p := page.New(v.width, v.pageHeight(), render.Options{DisableComments: v.config.DisableComments}, style, v.log)

	body := sess.Body()
	first := p.Load(body)
	loader := reader.NewController(reader.Options{
		Mount:    p,
		Viewport: p,
		Events:   p,
		Source:   v.source,
		Notifier: v.notes,
		Recorder: v.lib.Recorder(),
		Settings: v.config,
		Observer: p.MirrorStyle(),
		Logger:   v.log,
		NovelID:  sess.Novel.ID,
		Current: reader.DisplayedChapterBlock{
			ChapterID: body.ID,
			Title:     body.Title,
			Link:      body.Link,
			Node:      first,
		},
		Index:    sess.Index,
		IndexErr: sess.IndexErr,
	})

	ctx, cancel := context.WithCancel(context.Background())
	v.session = sess
	v.page, v.loader, v.ctx, v.cancel, v.done = p, loader, ctx, cancel, make(chan struct{})
	loader.Start(ctx)
}

// handleKeyMsg handles key presses in the reader
func (v *ReaderView) handleKeyMsg(msg tea.KeyMsg) (View, tea.Cmd) {
	if v.page == nil {
		if msg.String() == "r" && v.err != nil {
			v.err = nil
			v.loading = true
			return v, v.loadSession(v.url)
		}
		return v, nil
	}

	switch msg.String() {
	case "j", "down":
		v.page.Scroll(1)
	case "k", "up":
		v.page.Scroll(-1)
	case "ctrl+d", "pgdown":
		v.page.Scroll(v.pageHeight() / 2)
	case "ctrl+u", "pgup":
		v.page.Scroll(-v.pageHeight() / 2)
	case " ":
		v.page.Scroll(v.pageHeight() - 2)
	case "g", "home":
		v.page.ScrollTo(0)
	case "G", "end":
		v.page.ScrollToEnd()
	case "a":
		v.toggleAutoLoader()
	case "b":
		v.toggleStyle(true, false)
	case "i":
		v.toggleStyle(false, true)
	case "m":
		v.markCurrent(true)
	case "u":
		v.markCurrent(false)
	case "o":
		if v.session.Novel.Slug != "" {
			return v, OpenNovel(v.session.Novel.Slug)
		}
	}
	return v, nil
}

func (v *ReaderView) toggleAutoLoader() {
	enabled := !v.config.AutoLoader()
	if err := v.config.SetAutoLoader(enabled); err != nil {
		v.log.Warn("save auto loader", "err", err)
	}
	if enabled {
		v.loader.Start(v.ctx)
		v.status = "Auto loader on"
	} else {
		v.loader.Pause()
		v.status = "Auto loader off"
	}
}

func (v *ReaderView) toggleStyle(bold, italic bool) {
	s := v.page.Style()
	if bold {
		s.HideBold = !s.HideBold
	}
	if italic {
		s.HideItalic = !s.HideItalic
	}
	v.page.SetStyle(s)
	if err := v.config.SetTextStyle(s.HideBold, s.HideItalic); err != nil {
		v.log.Warn("save text style", "err", err)
	}
}

// markCurrent marks the chapter under the top of the viewport
func (v *ReaderView) markCurrent(read bool) {
	pos, ok := v.page.Current()
	if !ok {
		return
	}
	desc := models.ChapterDescriptor{ID: pos.ChapterID, Title: pos.Title, Link: pos.Link}
	var err error
	if read {
		err = v.lib.MarkRead(v.session.Novel.ID, desc)
		v.status = "Marked as read: " + pos.Title
	} else {
		err = v.lib.MarkUnread(v.session.Novel.ID, desc)
		v.status = "Marked as unread: " + pos.Title
	}
	if err != nil {
		v.status = ""
		v.notes.Notify(err.Error(), reader.SeverityError)
	}
}

// View implements View
func (v *ReaderView) View() string {
	var b strings.Builder

	// Header
	b.WriteString(v.renderHeader() + "\n")

	// Loading state
	if v.loading {
		content := lipgloss.Place(
			v.width,
			v.pageHeight(),
			lipgloss.Center,
			lipgloss.Center,
			styles.MutedText.Render("Loading..."),
		)
		b.WriteString(content + "\n")
		b.WriteString(v.renderFooter())
		return b.String()
	}

	// Error state
	if v.err != nil || v.page == nil {
		msg := "No chapter opened"
		if v.err != nil {
			msg = "Error: " + v.err.Error()
		}
		content := lipgloss.Place(
			v.width,
			v.pageHeight(),
			lipgloss.Center,
			lipgloss.Center,
			styles.ErrorStyle.Render(msg)+"\n\n"+styles.Help.Render("r retry • q back"),
		)
		b.WriteString(content + "\n")
		b.WriteString(v.renderFooter())
		return b.String()
	}

	b.WriteString(v.page.View() + "\n")
	b.WriteString(v.renderFooter())
	return b.String()
}

// SetSize implements View
func (v *ReaderView) SetSize(width, height int) {
	v.width = width
	v.height = height
	if v.page != nil {
		v.page.Resize(width, v.pageHeight())
	}
}

// pageHeight is the height left for chapters between header and footer
func (v *ReaderView) pageHeight() int {
	return max(1, v.height-3)
}

// renderHeader renders the novel name, the chapter on screen and its progress
func (v *ReaderView) renderHeader() string {
	name := v.session.Novel.Name
	if name == "" {
		name = v.session.Page.NovelName
	}
	if name == "" {
		name = "kolnovel-t"
	}
	maxTitleWidth := max(10, v.width/3)
	titlePart := styles.ReaderHeader.Render(" " + styles.TruncateText(name, maxTitleWidth) + " ")

	var chapterPart, progressPart string
	if v.page != nil {
		if pos, ok := v.page.Current(); ok {
			label := styles.TruncateText(pos.Title, 24)
			if idx := v.session.Index; idx != nil {
				if n := idx.Position(pos.ChapterID); n >= 0 {
					label = fmt.Sprintf("%d/%d: %s", n+1, idx.Len(), label)
				}
			}
			chapterPart = styles.Help.Render(" " + label + " ")
			progressPart = renderProgressBar(10, pos.Progress/100) +
				styles.ReaderProgress.Render(fmt.Sprintf(" %3.0f%%", pos.Progress))
		}
		progressPart += " " + styles.MutedText.Render(v.loaderLabel())
	}

	left := titlePart + chapterPart
	gap := max(0, v.width-lipgloss.Width(left)-lipgloss.Width(progressPart))
	return left + strings.Repeat(" ", gap) + progressPart
}

// loaderLabel describes what the chapter loader is doing
func (v *ReaderView) loaderLabel() string {
	switch v.loader.State() {
	case reader.StateFetching:
		return "loading next…"
	case reader.StateExhausted:
		return "end"
	case reader.StateErrored:
		return "no chapter list"
	}
	if !v.config.AutoLoader() {
		return "auto off"
	}
	return "auto"
}

// renderProgressBar renders a visual progress bar using Unicode block characters
// width is the total character width, progress is 0.0-1.0
func renderProgressBar(width int, progress float64) string {
	if width < 3 {
		width = 3
	}
	progress = min(1, max(0, progress))

	const (
		empty    = "░"
		filled   = "█"
		partials = "▏▎▍▌▋▊▉" // 1/8 to 7/8 filled
	)

	filledWidth := progress * float64(width)
	fullBlocks := int(filledWidth)
	remainder := filledWidth - float64(fullBlocks)

	var bar strings.Builder
	bar.WriteString(strings.Repeat(filled, min(fullBlocks, width)))

	if fullBlocks < width && remainder > 0 {
		if partialIndex := min(7, int(remainder*8)); partialIndex > 0 {
			bar.WriteRune([]rune(partials)[partialIndex-1])
			fullBlocks++
		}
	}

	if fullBlocks < width {
		bar.WriteString(strings.Repeat(empty, width-fullBlocks))
	}
	return bar.String()
}

// renderFooter shows the latest notification, or the key help
func (v *ReaderView) renderFooter() string {
	if toast, ok := v.notes.Latest(); ok {
		return styles.FooterBar.Width(v.width).Render(styles.Toast(toast.Severity.String()).Render(toast.Message))
	}
	if v.status != "" {
		return styles.FooterBar.Width(v.width).Render(styles.SecondaryText.Render(v.status))
	}

	help := []string{
		styles.HelpKey.Render("j/k") + styles.Help.Render(" scroll"),
		styles.HelpKey.Render("g/G") + styles.Help.Render(" top/end"),
		styles.HelpKey.Render("a") + styles.Help.Render(" auto"),
		styles.HelpKey.Render("b/i") + styles.Help.Render(" bold/italic"),
		styles.HelpKey.Render("m/u") + styles.Help.Render(" read/unread"),
		styles.HelpKey.Render("o") + styles.Help.Render(" novel"),
		styles.HelpKey.Render("q") + styles.Help.Render(" back"),
	}
	return styles.FooterBar.Width(v.width).Render(strings.Join(help, "  "))
}

// loadSession opens url
func (v *ReaderView) loadSession(url string) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), sessionTimeout)
		defer cancel()
		sess, err := v.lib.OpenChapter(ctx, url)
		return sessionLoadedMsg{url: url, session: sess, err: err}
	}
}

// waitForChange blocks until the page changes or the session is closed
func (v *ReaderView) waitForChange() tea.Cmd {
	p, done := v.page, v.done
	return func() tea.Msg {
		select {
		case <-p.Changes():
			return pageChangedMsg{page: p}
		case <-done:
			return nil
		}
	}
}
