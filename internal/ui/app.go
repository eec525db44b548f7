package ui

import (
	"time"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/log"
	"github.com/justyntemme/kolnovel-t/internal/config"
	"github.com/justyntemme/kolnovel-t/internal/library"
	"github.com/justyntemme/kolnovel-t/internal/logging"
	"github.com/justyntemme/kolnovel-t/internal/reader"
	"github.com/justyntemme/kolnovel-t/internal/ui/notify"
	"github.com/justyntemme/kolnovel-t/internal/ui/styles"
	"github.com/justyntemme/kolnovel-t/internal/ui/terminal"
	"github.com/justyntemme/kolnovel-t/internal/ui/views"
)

// Options configures the application
type Options struct {
	Config  *config.Config
	Library *library.Service
	Source  reader.ChapterSource
	Images  views.ImageSource
	Logger  *log.Logger

	// Optional start screen. ChapterURL wins over NovelSlug; both empty
	// opens the library.
	ChapterURL string
	NovelSlug  string
}

// App is the main application model
type App struct {
	config *config.Config
	keys   KeyMap
	notes  *notify.Center
	toasts chan notify.Toast
	log    *log.Logger

	// Current view state
	currentView views.ViewType
	prevView    views.ViewType

	// Window dimensions
	width  int
	height int

	// View models
	libraryView *views.LibraryView
	novelView   *views.NovelView
	readerView  *views.ReaderView

	// Error/status message
	err      error
	showHelp bool
}

// toastMsg is sent for every new notification
type toastMsg struct {
	toast notify.Toast
}

// pruneToastsMsg is sent when a notification may have expired
type pruneToastsMsg struct{}

// capturer is implemented by views that take raw key input, like a text field
type capturer interface {
	Capturing() bool
}

// NewApp creates a new application instance
func NewApp(opts Options) *App {
	logger := opts.Logger
	if logger == nil {
		logger = logging.Discard()
	}
	styles.SetCurrentTheme(opts.Config.Theme)

	app := &App{
		config:      opts.Config,
		keys:        DefaultKeyMap(),
		notes:       notify.NewCenter(notify.DefaultTTL, logger),
		toasts:      make(chan notify.Toast, 16),
		log:         logger,
		currentView: views.ViewLibrary,
		width:       80,
		height:      24,
	}
	app.notes.OnNotify(func(t notify.Toast) {
		select {
		case app.toasts <- t:
		default:
		}
	})

	// Initialize views
	app.libraryView = views.NewLibraryView(opts.Library, opts.Config, app.notes, logger)
	app.novelView = views.NewNovelView(opts.Library, opts.Images, terminal.DetectTerminalMode(), app.notes, logger)
	app.readerView = views.NewReaderView(opts.Library, opts.Source, opts.Config, app.notes, logger)

	switch {
	case opts.ChapterURL != "":
		app.readerView.SetURL(opts.ChapterURL)
		app.currentView = views.ViewReader
	case opts.NovelSlug != "":
		app.novelView.SetSlug(opts.NovelSlug)
		app.currentView = views.ViewNovel
	}
	return app
}

// Init implements tea.Model
func (a *App) Init() tea.Cmd {
	return tea.Batch(
		a.getCurrentView().Init(),
		a.waitForToast(),
		tea.SetWindowTitle("kolnovel-t"),
	)
}

// Close releases the reader session and clears images
func (a *App) Close() {
	a.readerView.Close()
	a.novelView.Close()
}

// Update implements tea.Model
func (a *App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		a.width = msg.Width
		a.height = msg.Height
		// Propagate to all views
		a.libraryView.SetSize(msg.Width, msg.Height)
		a.novelView.SetSize(msg.Width, msg.Height)
		a.readerView.SetSize(msg.Width, msg.Height)
		return a, nil

	case tea.KeyMsg:
		if c, ok := a.getCurrentView().(capturer); ok && c.Capturing() {
			break
		}
		switch {
		case key.Matches(msg, a.keys.Quit):
			if a.currentView != views.ViewLibrary {
				return a.back()
			}
			return a, tea.Quit

		case key.Matches(msg, a.keys.Help):
			a.showHelp = !a.showHelp
			return a, nil

		case key.Matches(msg, a.keys.Dismiss):
			if t, ok := a.notes.Latest(); ok {
				a.notes.Dismiss(t.ID)
			}
			return a, nil

		case key.Matches(msg, a.keys.Escape):
			if a.showHelp {
				a.showHelp = false
				return a, nil
			}
			if a.currentView != views.ViewLibrary {
				return a.back()
			}
		}

	case toastMsg:
		return a, tea.Batch(
			a.waitForToast(),
			tea.Tick(msg.toast.Expires.Sub(msg.toast.Created), func(_ time.Time) tea.Msg {
				return pruneToastsMsg{}
			}),
		)

	case pruneToastsMsg:
		a.notes.Prune()
		return a, nil

	case views.OpenChapterMsg:
		a.readerView.SetURL(msg.URL)
		return a.switchView(views.ViewReader)

	case views.OpenNovelMsg:
		a.novelView.SetSlug(msg.Slug)
		return a.switchView(views.ViewNovel)

	case views.ErrorMsg:
		a.err = msg.Err
		return a, nil

	case views.ClearErrorMsg:
		a.err = nil
		return a, nil

	case views.SwitchViewMsg:
		return a.switchView(msg.View)
	}

	// Delegate to current view
	var cmd tea.Cmd
	switch a.currentView {
	case views.ViewLibrary:
		_, cmd = a.libraryView.Update(msg)
	case views.ViewNovel:
		_, cmd = a.novelView.Update(msg)
	case views.ViewReader:
		_, cmd = a.readerView.Update(msg)
	}
	return a, cmd
}

// View implements tea.Model
func (a *App) View() string {
	content := a.getCurrentView().View()

	// Add error bar if there's an error
	if a.err != nil {
		errorBar := styles.ErrorStyle.Render("Error: " + a.err.Error())
		content = lipgloss.JoinVertical(lipgloss.Left, content, errorBar)
	}

	if a.showHelp {
		content = a.renderHelp()
	}
	return content
}

// back leaves the current view for the one it was opened from
func (a *App) back() (*App, tea.Cmd) {
	target := views.ViewLibrary
	if a.currentView == views.ViewReader && a.prevView == views.ViewNovel {
		target = views.ViewNovel
	}
	return a.switchView(target)
}

// switchView changes the current view and initializes it
func (a *App) switchView(view views.ViewType) (*App, tea.Cmd) {
	// Stop loading chapters when leaving the reader
	if a.currentView == views.ViewReader && view != views.ViewReader {
		a.readerView.Close()
	}
	if a.currentView == views.ViewNovel && view != views.ViewNovel {
		a.novelView.Close()
	}

	if a.currentView != view {
		a.prevView = a.currentView
	}
	a.currentView = view
	a.err = nil

	return a, a.getCurrentView().Init()
}

// getCurrentView returns the current view model
func (a *App) getCurrentView() views.View {
	switch a.currentView {
	case views.ViewNovel:
		return a.novelView
	case views.ViewReader:
		return a.readerView
	default:
		return a.libraryView
	}
}

// waitForToast delivers notifications raised outside the update loop
func (a *App) waitForToast() tea.Cmd {
	return func() tea.Msg {
		return toastMsg{toast: <-a.toasts}
	}
}

// renderHelp renders the help overlay
func (a *App) renderHelp() string {
	help := styles.Dialog.Width(60).Render(
		styles.DialogTitle.Render("Keyboard Shortcuts") + "\n\n" +
			styles.HelpKey.Render("Navigation") + "\n" +
			"  j/↓     Move down\n" +
			"  k/↑     Move up\n" +
			"  g       Go to top\n" +
			"  G       Go to bottom\n" +
			"  Ctrl+d  Page down\n" +
			"  Ctrl+u  Page up\n\n" +
			styles.HelpKey.Render("Reader") + "\n" +
			"  a       Toggle auto loading of next chapters\n" +
			"  b/i     Hide bold / italic text\n" +
			"  m/u     Mark chapter read / unread\n" +
			"  o       Novel page\n\n" +
			styles.HelpKey.Render("Novel") + "\n" +
			"  Enter   Read chapter\n" +
			"  c       Continue with first unread\n" +
			"  m       Toggle read\n" +
			"  M/U     Mark read / unread up to cursor\n" +
			"  a/p     Add as reading / plan to read\n" +
			"  v       Show cover\n\n" +
			styles.HelpKey.Render("Library") + "\n" +
			"  o       Open chapter URL\n" +
			"  a       Add novel\n" +
			"  s       Cycle status\n" +
			"  u       Check for new chapters\n" +
			"  /       Search\n\n" +
			styles.HelpKey.Render("General") + "\n" +
			"  q       Quit/Back\n" +
			"  Esc     Back\n" +
			"  Ctrl+x  Dismiss notification\n" +
			"  ?       Toggle help\n",
	)

	return lipgloss.Place(
		a.width,
		a.height,
		lipgloss.Center,
		lipgloss.Center,
		help,
	)
}
