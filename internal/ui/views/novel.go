package views

import (
	"context"
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/log"
	"github.com/justyntemme/kolnovel-t/internal/library"
	"github.com/justyntemme/kolnovel-t/internal/logging"
	"github.com/justyntemme/kolnovel-t/internal/reader"
	"github.com/justyntemme/kolnovel-t/internal/ui/notify"
	"github.com/justyntemme/kolnovel-t/internal/ui/styles"
	"github.com/justyntemme/kolnovel-t/internal/ui/terminal"
	"github.com/justyntemme/kolnovel-t/pkg/models"
)

// ImageSource downloads images
type ImageSource interface {
	FetchImage(ctx context.Context, url string) ([]byte, error)
}

// NovelView displays a novel page with the reading state of its chapters
type NovelView struct {
	lib    *library.Service
	images ImageSource
	notes  *notify.Center
	log    *log.Logger

	// Cover, drawn with the terminal's image protocol
	termMode  terminal.TermImageMode
	showCover bool
	cover     string
	coverErr  error

	// Novel being displayed
	slug   string
	opened *library.Opened

	cursor int
	offset int

	loading bool
	err     error

	// Dimensions
	width  int
	height int
}

// novelOpenedMsg is sent when the novel page was loaded and synced
type novelOpenedMsg struct {
	slug   string
	opened library.Opened
	err    error
}

// chapterStatesMsg carries refreshed chapter states after a mark
type chapterStatesMsg struct {
	states []library.ChapterState
	entry  *models.LibraryNovel
	err    error
}

// coverLoadedMsg carries the rendered cover of a novel
type coverLoadedMsg struct {
	slug  string
	cover string
	err   error
}

// NewNovelView creates a new novel view. termMode is the image protocol
// detected before the UI started.
func NewNovelView(lib *library.Service, images ImageSource, termMode terminal.TermImageMode, notes *notify.Center, logger *log.Logger) *NovelView {
	if logger == nil {
		logger = logging.Discard()
	}
	return &NovelView{
		lib:      lib,
		images:   images,
		termMode: termMode,
		notes:    notes,
		log:      logger,
		width:    80,
		height:   24,
	}
}

// SetSlug sets the novel to display
func (v *NovelView) SetSlug(slug string) {
	if slug != v.slug {
		v.opened = nil
		v.cursor, v.offset = 0, 0
		v.cover, v.coverErr = "", nil
	}
	v.showCover = false
	v.slug = slug
	v.err = nil
}

// Init implements View
func (v *NovelView) Init() tea.Cmd {
	if v.slug == "" {
		return nil
	}
	v.loading = true
	return v.openNovel(v.slug)
}

// Update implements View
func (v *NovelView) Update(msg tea.Msg) (View, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return v.handleKeyMsg(msg)

	case novelOpenedMsg:
		if msg.slug != v.slug {
			return v, nil
		}
		v.loading = false
		v.err = msg.err
		if msg.err != nil {
			return v, nil
		}
		v.opened = &msg.opened
		v.cursor = min(v.cursor, max(0, len(msg.opened.Chapters)-1))
		v.announce()

	case chapterStatesMsg:
		if msg.err != nil {
			v.notes.Notify(msg.err.Error(), reader.SeverityError)
			return v, nil
		}
		if v.opened != nil {
			v.opened.Chapters = msg.states
			v.opened.Unread = countUnread(msg.states)
			if msg.entry != nil {
				v.opened.Entry, v.opened.InLibrary = *msg.entry, true
			}
		}

	case coverLoadedMsg:
		if msg.slug == v.slug {
			v.cover, v.coverErr = msg.cover, msg.err
		}

	case novelChangedMsg:
		if msg.err != nil {
			v.notes.Notify(msg.err.Error(), reader.SeverityError)
			return v, nil
		}
		v.notes.Notify(msg.message, reader.SeveritySuccess)
		v.slug, v.opened = "", nil
		return v, SwitchTo(ViewLibrary)
	}
	return v, nil
}

// announce reports new and unread chapters of the opened novel
func (v *NovelView) announce() {
	o := v.opened
	if o.HasNew && o.InLibrary {
		v.notes.Notify(fmt.Sprintf("%s: new chapters available", o.Page.Name), reader.SeverityInfo)
	}
	if o.Unread > 0 {
		v.notes.Notify(fmt.Sprintf("%d unread chapters", o.Unread), reader.SeverityInfo)
	}
}

func (v *NovelView) handleKeyMsg(msg tea.KeyMsg) (View, tea.Cmd) {
	if v.opened == nil {
		if msg.String() == "r" {
			return v, v.Init()
		}
		return v, nil
	}
	chapters := v.opened.Chapters

	if v.showCover {
		if msg.String() == "v" {
			return v, v.hideCover()
		}
		return v, nil
	}

	switch msg.String() {
	case "j", "down":
		v.moveCursor(1)
	case "k", "up":
		v.moveCursor(-1)
	case "ctrl+d", "pgdown":
		v.moveCursor(v.visibleLines() / 2)
	case "ctrl+u", "pgup":
		v.moveCursor(-v.visibleLines() / 2)
	case "g", "home":
		v.cursor = 0
		v.moveCursor(0)
	case "G", "end":
		v.cursor = len(chapters) - 1
		v.moveCursor(0)
	case "enter":
		if v.cursor < len(chapters) {
			return v, OpenChapter(chapters[v.cursor].Link)
		}
	case "c":
		for _, c := range chapters {
			if !c.Read() {
				return v, OpenChapter(c.Link)
			}
		}
		v.notes.Notify("All chapters read", reader.SeverityInfo)
	case " ", "m":
		if v.cursor < len(chapters) {
			c := chapters[v.cursor]
			return v, v.markCmd(func(id int) error {
				if c.Read() {
					return v.lib.MarkUnread(id, c.ChapterDescriptor)
				}
				return v.lib.MarkRead(id, c.ChapterDescriptor)
			})
		}
	case "M":
		return v, v.markCmd(func(id int) error {
			return v.lib.MarkPreviousRead(id, descriptors(chapters), v.cursor)
		})
	case "U":
		return v, v.markCmd(func(id int) error {
			return v.lib.MarkPreviousUnread(id, descriptors(chapters), v.cursor)
		})
	case "a":
		return v, v.addCmd(models.StatusReading)
	case "p":
		return v, v.addCmd(models.StatusPlanToRead)
	case "s":
		if v.opened.InLibrary {
			return v, v.addCmd(nextStatus(v.opened.Entry.Status))
		}
	case "d":
		if v.opened.InLibrary {
			return v, v.removeCmd()
		}
	case "v":
		return v, v.toggleCover()
	case "r":
		return v, v.Init()
	}
	return v, nil
}

// toggleCover shows the cover, loading it the first time
func (v *NovelView) toggleCover() tea.Cmd {
	if v.termMode == terminal.TermModeNone {
		v.notes.Notify("Terminal does not support images", reader.SeverityWarning)
		return nil
	}
	if v.opened.Page.Cover == "" {
		v.notes.Notify("This novel has no cover", reader.SeverityInfo)
		return nil
	}
	v.showCover = true
	if v.cover != "" || v.coverErr != nil {
		return nil
	}
	return v.loadCover(v.slug, v.opened.Page.Cover)
}

// hideCover leaves cover mode and wipes the image from the screen
func (v *NovelView) hideCover() tea.Cmd {
	v.showCover = false
	terminal.ClearImagesCmd(v.termMode)()
	return nil
}

// Close clears a cover still on screen
func (v *NovelView) Close() {
	if v.showCover {
		v.hideCover()
	}
}

// View implements View
func (v *NovelView) View() string {
	var b strings.Builder

	if v.loading || v.err != nil || v.opened == nil {
		body := styles.MutedText.Render("Loading novel...")
		if v.err != nil {
			body = styles.ErrorStyle.Render("Error: "+v.err.Error()) + "\n\n" + styles.Help.Render("r retry • esc back")
		}
		b.WriteString(lipgloss.Place(v.width, v.height-2, lipgloss.Center, lipgloss.Center, body) + "\n")
		b.WriteString(v.renderFooter())
		return b.String()
	}

	b.WriteString(v.renderHeader())

	if v.showCover {
		body := v.cover
		switch {
		case v.coverErr != nil:
			body = styles.ErrorStyle.Render("Cover: " + v.coverErr.Error())
		case v.cover == "":
			body = styles.MutedText.Render("Loading cover...")
		}
		b.WriteString(body + "\n")
		b.WriteString(styles.FooterBar.Width(v.width).Render(styles.HelpKey.Render("v") + styles.Help.Render(" chapters")))
		return b.String()
	}

	visible := v.visibleLines()
	chapters := v.opened.Chapters
	end := min(v.offset+visible, len(chapters))
	for i := v.offset; i < end; i++ {
		b.WriteString(v.renderChapterLine(chapters[i], i == v.cursor) + "\n")
	}
	for i := end - v.offset; i < visible; i++ {
		b.WriteString("\n")
	}

	b.WriteString(v.renderFooter())
	return b.String()
}

// renderHeader renders the novel title, library state and chapter counts
func (v *NovelView) renderHeader() string {
	o := v.opened
	title := styles.NovelTitle.Render(styles.TruncateText(o.Page.Name, v.width-4))

	state := styles.MutedText.Render("Not in library")
	if o.InLibrary {
		state = styles.StatusBadge(string(o.Entry.Status)).Render(" " + o.Entry.Status.Label() + " ")
	}
	meta := styles.NovelMeta.Render(fmt.Sprintf("  %d chapters · %d unread", len(o.Chapters), o.Unread))
	if o.Added > 0 {
		meta += styles.SecondaryText.Render(fmt.Sprintf(" · %d new", o.Added))
	}

	return title + "\n" + state + meta + "\n\n"
}

// renderChapterLine renders a chapter with its read mark
func (v *NovelView) renderChapterLine(c library.ChapterState, selected bool) string {
	mark := styles.UnreadMark.Render("○")
	if c.Read() {
		mark = styles.ReadMark.Render("●")
	} else if c.Completion > 0 {
		mark = styles.UnreadMark.Render("◐")
	}
	title := styles.TruncateText(c.Title, max(10, v.width-8))

	if selected {
		return styles.ListItemSelected.Width(v.width).Render("▸ " + mark + " " + title)
	}
	if c.Read() {
		return "  " + mark + " " + styles.ListItemDimmed.Render(title)
	}
	return "  " + mark + " " + styles.ListItem.Render(title)
}

// renderFooter renders the latest notification or the key help
func (v *NovelView) renderFooter() string {
	if toast, ok := v.notes.Latest(); ok {
		return styles.FooterBar.Width(v.width).Render(styles.Toast(toast.Severity.String()).Render(toast.Message))
	}

	help := []string{
		styles.HelpKey.Render("enter") + styles.Help.Render(" read"),
		styles.HelpKey.Render("c") + styles.Help.Render(" continue"),
		styles.HelpKey.Render("m") + styles.Help.Render(" toggle read"),
		styles.HelpKey.Render("M/U") + styles.Help.Render(" read/unread up to here"),
	}
	if v.opened != nil && v.opened.InLibrary {
		help = append(help,
			styles.HelpKey.Render("s")+styles.Help.Render(" status"),
			styles.HelpKey.Render("d")+styles.Help.Render(" remove"),
		)
	} else {
		help = append(help,
			styles.HelpKey.Render("a/p")+styles.Help.Render(" add/plan"),
		)
	}
	if v.termMode != terminal.TermModeNone {
		help = append(help, styles.HelpKey.Render("v")+styles.Help.Render(" cover"))
	}
	help = append(help, styles.HelpKey.Render("esc")+styles.Help.Render(" back"))
	return styles.FooterBar.Width(v.width).Render(strings.Join(help, "  "))
}

// SetSize implements View
func (v *NovelView) SetSize(width, height int) {
	v.width = width
	v.height = height
}

func (v *NovelView) visibleLines() int {
	// title, state line, blank line and a two line footer
	return max(1, v.height-5)
}

func (v *NovelView) moveCursor(delta int) {
	if v.opened == nil || len(v.opened.Chapters) == 0 {
		v.cursor, v.offset = 0, 0
		return
	}
	v.cursor = min(max(v.cursor+delta, 0), len(v.opened.Chapters)-1)
	visible := v.visibleLines()
	if v.cursor < v.offset {
		v.offset = v.cursor
	}
	if v.cursor >= v.offset+visible {
		v.offset = v.cursor - visible + 1
	}
}

func descriptors(states []library.ChapterState) []models.ChapterDescriptor {
	out := make([]models.ChapterDescriptor, len(states))
	for i, s := range states {
		out[i] = s.ChapterDescriptor
	}
	return out
}

func countUnread(states []library.ChapterState) int {
	n := 0
	for _, s := range states {
		if !s.Read() {
			n++
		}
	}
	return n
}

// openNovel loads the novel page and syncs its chapters
func (v *NovelView) openNovel(slug string) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), sessionTimeout)
		defer cancel()
		opened, err := v.lib.OpenNovel(ctx, slug)
		return novelOpenedMsg{slug: slug, opened: opened, err: err}
	}
}

// loadCover downloads and renders the cover at url
func (v *NovelView) loadCover(slug, url string) tea.Cmd {
	mode := v.termMode
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), sessionTimeout)
		defer cancel()
		data, err := v.images.FetchImage(ctx, url)
		if err != nil {
			return coverLoadedMsg{slug: slug, err: err}
		}
		cover, err := terminal.RenderCover(data, mode)
		return coverLoadedMsg{slug: slug, cover: cover, err: err}
	}
}

// markCmd applies fn to the novel and reloads the chapter states
func (v *NovelView) markCmd(fn func(novelID int) error) tea.Cmd {
	o := v.opened
	novelID, chapters := o.Novel.ID, descriptors(o.Chapters)
	return func() tea.Msg {
		if err := fn(novelID); err != nil {
			return chapterStatesMsg{err: err}
		}
		states, err := v.lib.States(novelID, chapters)
		return chapterStatesMsg{states: states, err: err}
	}
}

// addCmd stores the novel with status, keeping the date it was first added
func (v *NovelView) addCmd(status models.NovelStatus) tea.Cmd {
	o := v.opened
	novelID, chapters := o.Novel.ID, descriptors(o.Chapters)
	entry := library.Entry(o.Novel, o.Page, status)
	return func() tea.Msg {
		if err := v.lib.Add(entry); err != nil {
			return chapterStatesMsg{err: err}
		}
		stored, _, err := v.lib.Novel(novelID)
		if err != nil {
			return chapterStatesMsg{err: err}
		}
		states, err := v.lib.States(novelID, chapters)
		return chapterStatesMsg{states: states, entry: &stored, err: err}
	}
}

func (v *NovelView) removeCmd() tea.Cmd {
	o := v.opened
	id, name := o.Novel.ID, o.Page.Name
	return func() tea.Msg {
		if err := v.lib.Remove(id); err != nil {
			return chapterStatesMsg{err: err}
		}
		return novelChangedMsg{message: "Removed " + name}
	}
}
