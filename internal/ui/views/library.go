package views

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/log"
	"github.com/justyntemme/kolnovel-t/internal/api"
	"github.com/justyntemme/kolnovel-t/internal/config"
	"github.com/justyntemme/kolnovel-t/internal/library"
	"github.com/justyntemme/kolnovel-t/internal/logging"
	"github.com/justyntemme/kolnovel-t/internal/reader"
	"github.com/justyntemme/kolnovel-t/internal/ui/notify"
	"github.com/justyntemme/kolnovel-t/internal/ui/styles"
	"github.com/justyntemme/kolnovel-t/pkg/models"
)

const updateTimeout = 2 * time.Minute

// inputMode is what the text input is currently used for
type inputMode int

const (
	inputNone inputMode = iota
	inputSearch
	inputAdd
	inputOpen
)

func (m inputMode) placeholder() string {
	switch m {
	case inputSearch:
		return "Search novels..."
	case inputAdd:
		return "Novel slug or series URL"
	case inputOpen:
		return "Chapter URL"
	default:
		return ""
	}
}

// libraryRow is either a status header or a novel
type libraryRow struct {
	status models.NovelStatus
	novel  *models.LibraryNovel
}

// LibraryView lists the saved novels grouped by reading status
type LibraryView struct {
	lib    *library.Service
	config *config.Config
	notes  *notify.Center
	log    *log.Logger

	// Novels
	groups []library.Group
	unread map[int]int
	rows   []libraryRow
	cursor int
	offset int // For scrolling

	// State
	loading       bool
	checking      bool
	err           error
	input         textinput.Model
	mode          inputMode
	filter        string
	confirmDelete bool
	deleteNovel   *models.LibraryNovel

	// Dimensions
	width  int
	height int
}

// novelsLoadedMsg is sent when the library was read from the store
type novelsLoadedMsg struct {
	groups []library.Group
	unread map[int]int
	err    error
}

// updatesCheckedMsg is sent when the remote chapter counts were compared
type updatesCheckedMsg struct {
	updates []library.Update
	failed  []library.Update
	err     error
}

// novelChangedMsg is sent after a novel was added, removed or moved
type novelChangedMsg struct {
	message string
	err     error
}

// NewLibraryView creates a new library view
func NewLibraryView(lib *library.Service, cfg *config.Config, notes *notify.Center, logger *log.Logger) *LibraryView {
	if logger == nil {
		logger = logging.Discard()
	}
	input := textinput.New()
	input.CharLimit = 200
	input.Width = 40

	return &LibraryView{
		lib:    lib,
		config: cfg,
		notes:  notes,
		log:    logger,
		input:  input,
		width:  80,
		height: 24,
	}
}

// Init implements View
func (v *LibraryView) Init() tea.Cmd {
	v.loading = true
	return v.loadNovels()
}

// Capturing reports whether keys go to the text input or a dialog
func (v *LibraryView) Capturing() bool {
	return v.mode != inputNone || v.confirmDelete
}

// Update implements View
func (v *LibraryView) Update(msg tea.Msg) (View, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		if v.confirmDelete {
			return v.updateDeleteConfirmation(msg)
		}
		if v.mode != inputNone {
			return v.updateInput(msg)
		}
		return v.handleKeyMsg(msg)

	case novelsLoadedMsg:
		v.loading = false
		v.err = msg.err
		if msg.err == nil {
			v.groups = msg.groups
			v.unread = msg.unread
			v.buildRows()
		}

	case updatesCheckedMsg:
		v.checking = false
		return v, v.handleUpdates(msg)

	case novelChangedMsg:
		if msg.err != nil {
			v.notes.Notify(msg.err.Error(), reader.SeverityError)
		} else if msg.message != "" {
			v.notes.Notify(msg.message, reader.SeveritySuccess)
		}
		return v, v.loadNovels()

	case LibraryChangedMsg:
		return v, v.loadNovels()
	}

	return v, nil
}

func (v *LibraryView) handleKeyMsg(msg tea.KeyMsg) (View, tea.Cmd) {
	switch msg.String() {
	case "j", "down":
		v.moveCursor(1)
	case "k", "up":
		v.moveCursor(-1)
	case "g", "home":
		v.cursor = 0
		v.moveCursor(0)
	case "G", "end":
		v.cursor = len(v.rows) - 1
		v.moveCursor(0)
	case "ctrl+d", "pgdown":
		v.moveCursor(v.visibleLines() / 2)
	case "ctrl+u", "pgup":
		v.moveCursor(-v.visibleLines() / 2)
	case "/":
		return v, v.startInput(inputSearch, v.filter)
	case "a":
		return v, v.startInput(inputAdd, "")
	case "o":
		return v, v.startInput(inputOpen, "")
	case "x":
		v.filter = ""
		v.buildRows()
	case "enter":
		if n := v.selected(); n != nil {
			return v, OpenNovel(n.Slug)
		}
	case "s":
		if n := v.selected(); n != nil {
			return v, v.setStatusCmd(*n, nextStatus(n.Status))
		}
	case "d":
		if n := v.selected(); n != nil {
			v.confirmDelete = true
			v.deleteNovel = n
		}
	case "u":
		if !v.checking {
			v.checking = true
			return v, v.checkUpdates()
		}
	case "r":
		return v, v.loadNovels()
	case "T":
		name := styles.NextTheme()
		if err := v.config.SetTheme(name); err != nil {
			v.log.Warn("save theme", "err", err)
		}
	}
	return v, nil
}

func (v *LibraryView) updateDeleteConfirmation(msg tea.KeyMsg) (View, tea.Cmd) {
	switch msg.String() {
	case "y", "Y":
		v.confirmDelete = false
		if v.deleteNovel != nil {
			n := *v.deleteNovel
			v.deleteNovel = nil
			return v, v.removeCmd(n)
		}
	case "n", "N", "esc":
		v.confirmDelete = false
		v.deleteNovel = nil
	}
	return v, nil
}

func (v *LibraryView) startInput(mode inputMode, value string) tea.Cmd {
	v.mode = mode
	v.input.Placeholder = mode.placeholder()
	v.input.SetValue(value)
	v.input.Focus()
	return textinput.Blink
}

func (v *LibraryView) updateInput(msg tea.KeyMsg) (View, tea.Cmd) {
	switch msg.String() {
	case "esc":
		v.mode = inputNone
		v.input.Blur()
		return v, nil
	case "enter":
		mode, value := v.mode, strings.TrimSpace(v.input.Value())
		v.mode = inputNone
		v.input.Blur()
		switch mode {
		case inputSearch:
			v.filter = value
			v.buildRows()
		case inputAdd:
			if slug := api.SlugFromLink(value); slug != "" {
				return v, v.addCmd(slug)
			}
		case inputOpen:
			if value != "" {
				return v, OpenChapter(value)
			}
		}
		return v, nil
	}
	var cmd tea.Cmd
	v.input, cmd = v.input.Update(msg)
	return v, cmd
}

// handleUpdates turns the result of an update check into notifications
func (v *LibraryView) handleUpdates(msg updatesCheckedMsg) tea.Cmd {
	if msg.err != nil {
		v.notes.Notify("Update check failed: "+msg.err.Error(), reader.SeverityError)
		return nil
	}
	for _, u := range msg.failed {
		v.notes.Notify(fmt.Sprintf("%s: %v", u.Novel.Name, u.Err), reader.SeverityWarning)
	}
	for _, u := range msg.updates {
		v.notes.Notify(fmt.Sprintf("%s has %d chapters (was %d)", u.Novel.Name, u.Current, u.Previous), reader.SeverityInfo)
	}
	if len(msg.updates) == 0 {
		v.notes.Notify("No updates", reader.SeverityInfo)
	}
	return v.loadNovels()
}

// View implements View
func (v *LibraryView) View() string {
	if v.confirmDelete && v.deleteNovel != nil {
		return v.renderDeleteConfirmation()
	}

	var b strings.Builder
	b.WriteString(v.renderHeader() + "\n")

	if v.mode != inputNone {
		b.WriteString(styles.InputField.Render(v.input.View()) + "\n")
	}

	body := ""
	switch {
	case v.loading:
		body = styles.MutedText.Render("Loading library...")
	case v.err != nil:
		body = styles.ErrorStyle.Render("Error: " + v.err.Error())
	case len(v.rows) == 0 && v.filter != "":
		body = styles.MutedText.Render("No novels match " + v.filter)
	case len(v.rows) == 0:
		body = styles.MutedText.Render("Your library is empty") + "\n\n" +
			styles.Help.Render("press ") + styles.HelpKey.Render("a") + styles.Help.Render(" to add a novel or ") +
			styles.HelpKey.Render("o") + styles.Help.Render(" to open a chapter")
	}
	if body != "" {
		b.WriteString(lipgloss.Place(v.width, v.visibleLines(), lipgloss.Center, lipgloss.Center, body) + "\n")
		b.WriteString(v.renderFooter())
		return b.String()
	}

	visible := v.visibleLines()
	end := min(v.offset+visible, len(v.rows))
	for i := v.offset; i < end; i++ {
		b.WriteString(v.renderRow(v.rows[i], i == v.cursor) + "\n")
	}
	for i := end - v.offset; i < visible; i++ {
		b.WriteString("\n")
	}

	b.WriteString(v.renderFooter())
	return b.String()
}

// SetSize implements View
func (v *LibraryView) SetSize(width, height int) {
	v.width = width
	v.height = height
	v.input.Width = min(60, width-10)
}

// renderHeader renders the header bar
func (v *LibraryView) renderHeader() string {
	title := styles.TitleBar.Render(" Library ")

	info := ""
	if v.filter != "" {
		info = styles.SecondaryText.Render(fmt.Sprintf(" [Search: %s]", v.filter))
	}
	if v.checking {
		info += styles.MutedText.Render(" checking updates…")
	}

	total := 0
	for _, g := range v.groups {
		total += len(g.Novels)
	}
	right := styles.Help.Render(fmt.Sprintf(" %d novels ", total))

	left := title + info
	gap := max(0, v.width-lipgloss.Width(left)-lipgloss.Width(right))
	return left + strings.Repeat(" ", gap) + right
}

// renderRow renders a status header or a novel line
func (v *LibraryView) renderRow(row libraryRow, selected bool) string {
	if row.novel == nil {
		count := 0
		for _, g := range v.groups {
			if g.Status == row.status {
				count = len(g.Novels)
			}
		}
		return styles.StatusBadge(string(row.status)).Render(" "+row.status.Label()+" ") +
			styles.MutedText.Render(fmt.Sprintf(" %d", count))
	}

	n := row.novel
	meta := fmt.Sprintf("%d chapters", n.ChaptersCount)
	if unread := v.unread[n.ID]; unread > 0 {
		meta += fmt.Sprintf(" · %d unread", unread)
	}
	metaWidth := lipgloss.Width(meta) + 3
	name := styles.TruncateText(n.Name, max(10, v.width-6-metaWidth))

	if selected {
		return styles.ListItemSelected.Width(v.width).Render("▸ " + name + "  " + meta)
	}
	return styles.ListItem.Render("  "+name) + "  " + styles.NovelMeta.Render(meta)
}

// renderFooter renders the latest notification or the key help
func (v *LibraryView) renderFooter() string {
	if toast, ok := v.notes.Latest(); ok {
		return styles.FooterBar.Width(v.width).Render(styles.Toast(toast.Severity.String()).Render(toast.Message))
	}

	help := []string{
		styles.HelpKey.Render("j/k") + styles.Help.Render(" nav"),
		styles.HelpKey.Render("enter") + styles.Help.Render(" open"),
		styles.HelpKey.Render("o") + styles.Help.Render(" url"),
		styles.HelpKey.Render("a") + styles.Help.Render(" add"),
		styles.HelpKey.Render("s") + styles.Help.Render(" status"),
		styles.HelpKey.Render("u") + styles.Help.Render(" updates"),
		styles.HelpKey.Render("/") + styles.Help.Render(" search"),
		styles.HelpKey.Render("d") + styles.Help.Render(" del"),
		styles.HelpKey.Render("q") + styles.Help.Render(" quit"),
	}

	themeIndicator := styles.MutedText.Render(" [Theme: "+styles.CurrentTheme().Name+"] ") + styles.HelpKey.Render("T")
	helpText := strings.Join(help, "  ")
	gap := max(0, v.width-lipgloss.Width(helpText)-lipgloss.Width(themeIndicator)-2)
	return styles.FooterBar.Width(v.width).Render(helpText + strings.Repeat(" ", gap) + themeIndicator)
}

// renderDeleteConfirmation renders the delete confirmation dialog
func (v *LibraryView) renderDeleteConfirmation() string {
	dialog := styles.Dialog.Width(50).Render(
		styles.DialogTitle.Render("Remove Novel?") + "\n\n" +
			styles.NovelTitle.Render(styles.TruncateText(v.deleteNovel.Name, 40)) + "\n\n" +
			styles.ErrorStyle.Render("Reading progress for its chapters is deleted too.") + "\n\n" +
			styles.Help.Render("Press ") +
			styles.HelpKey.Render("y") +
			styles.Help.Render(" to confirm, ") +
			styles.HelpKey.Render("n") +
			styles.Help.Render(" to cancel"),
	)
	return lipgloss.Place(v.width, v.height, lipgloss.Center, lipgloss.Center, dialog)
}

// buildRows flattens the groups into rows, applying the search filter.
// Empty groups are skipped.
func (v *LibraryView) buildRows() {
	filter := strings.ToLower(v.filter)
	v.rows = v.rows[:0]
	for _, g := range v.groups {
		var matched []libraryRow
		for i := range g.Novels {
			n := &g.Novels[i]
			if filter != "" && !strings.Contains(strings.ToLower(n.Name), filter) {
				continue
			}
			matched = append(matched, libraryRow{status: g.Status, novel: n})
		}
		if len(matched) == 0 {
			continue
		}
		v.rows = append(v.rows, libraryRow{status: g.Status})
		v.rows = append(v.rows, matched...)
	}
	v.moveCursor(0)
}

// selected returns the novel under the cursor
func (v *LibraryView) selected() *models.LibraryNovel {
	if v.cursor < 0 || v.cursor >= len(v.rows) {
		return nil
	}
	return v.rows[v.cursor].novel
}

// moveCursor moves the cursor by delta, skipping status headers
func (v *LibraryView) moveCursor(delta int) {
	if len(v.rows) == 0 {
		v.cursor, v.offset = 0, 0
		return
	}
	step := 1
	if delta < 0 {
		step = -1
	}
	v.cursor = min(max(v.cursor+delta, 0), len(v.rows)-1)
	for v.rows[v.cursor].novel == nil {
		next := v.cursor + step
		if next < 0 || next >= len(v.rows) {
			step = -step
			next = v.cursor + step
		}
		v.cursor = next
	}
	v.updateOffset()
}

// updateOffset ensures the cursor and its status header are visible
func (v *LibraryView) updateOffset() {
	visible := v.visibleLines()
	if v.cursor-1 < v.offset {
		v.offset = max(0, v.cursor-1)
	}
	if v.cursor >= v.offset+visible {
		v.offset = v.cursor - visible + 1
	}
}

// visibleLines returns the number of visible rows
func (v *LibraryView) visibleLines() int {
	lines := v.height - 3
	if v.mode != inputNone {
		lines -= 3
	}
	return max(1, lines)
}

func nextStatus(s models.NovelStatus) models.NovelStatus {
	for i, st := range models.Statuses {
		if st == s {
			return models.Statuses[(i+1)%len(models.Statuses)]
		}
	}
	return models.StatusReading
}

// loadNovels reads the library grouped by status
func (v *LibraryView) loadNovels() tea.Cmd {
	return func() tea.Msg {
		groups, err := v.lib.Groups()
		if err != nil {
			return novelsLoadedMsg{err: err}
		}
		unread := make(map[int]int)
		for _, g := range groups {
			for _, n := range g.Novels {
				count, err := v.lib.UnreadCount(n.ID)
				if err != nil {
					return novelsLoadedMsg{err: err}
				}
				unread[n.ID] = count
			}
		}
		return novelsLoadedMsg{groups: groups, unread: unread}
	}
}

func (v *LibraryView) checkUpdates() tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), updateTimeout)
		defer cancel()
		var failed []library.Update
		updates, err := v.lib.CheckUpdates(ctx, func(u library.Update) {
			if u.Err != nil {
				failed = append(failed, u)
			}
		})
		return updatesCheckedMsg{updates: updates, failed: failed, err: err}
	}
}

func (v *LibraryView) addCmd(slug string) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), sessionTimeout)
		defer cancel()
		n, err := v.lib.AddBySlug(ctx, slug, models.StatusReading)
		if err != nil {
			return novelChangedMsg{err: fmt.Errorf("add %s: %w", slug, err)}
		}
		return novelChangedMsg{message: "Added " + n.Name}
	}
}

func (v *LibraryView) removeCmd(n models.LibraryNovel) tea.Cmd {
	return func() tea.Msg {
		if err := v.lib.Remove(n.ID); err != nil {
			return novelChangedMsg{err: err}
		}
		return novelChangedMsg{message: "Removed " + n.Name}
	}
}

func (v *LibraryView) setStatusCmd(n models.LibraryNovel, status models.NovelStatus) tea.Cmd {
	return func() tea.Msg {
		if err := v.lib.SetStatus(n.ID, status); err != nil {
			return novelChangedMsg{err: err}
		}
		return novelChangedMsg{message: n.Name + " → " + status.Label()}
	}
}
