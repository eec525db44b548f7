package styles

import (
	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-runewidth"
)

var (
	// Colors
	Primary    = lipgloss.Color("#7C3AED") // Purple
	Secondary  = lipgloss.Color("#06B6D4") // Cyan
	Success    = lipgloss.Color("#10B981") // Green
	Warning    = lipgloss.Color("#F59E0B") // Amber
	Error      = lipgloss.Color("#EF4444") // Red
	Muted      = lipgloss.Color("#6B7280") // Gray
	Background = lipgloss.Color("#1F2937") // Dark gray
	Foreground = lipgloss.Color("#F9FAFB") // Light gray
	Border     = lipgloss.Color("#374151") // Gray border

	// Title bar
	TitleBar lipgloss.Style

	// Status bar at bottom
	StatusBar lipgloss.Style
	FooterBar lipgloss.Style

	// Help text
	Help    lipgloss.Style
	HelpKey lipgloss.Style

	MutedText     lipgloss.Style
	SecondaryText lipgloss.Style
	ErrorStyle    lipgloss.Style
	SuccessStyle  lipgloss.Style

	// List styles
	ListItem         lipgloss.Style
	ListItemSelected lipgloss.Style
	ListItemDimmed   lipgloss.Style
	SectionHeader    lipgloss.Style

	// Reader styles
	ReaderContent  lipgloss.Style
	ReaderHeader   lipgloss.Style
	ReaderProgress lipgloss.Style
	ChapterHeading lipgloss.Style
	TextBold       lipgloss.Style
	TextItalic     lipgloss.Style
	TextBoldItalic lipgloss.Style

	// Dialog/Modal styles
	Dialog      lipgloss.Style
	DialogTitle lipgloss.Style
	InputField  lipgloss.Style

	// Novel info styles
	NovelTitle lipgloss.Style
	NovelMeta  lipgloss.Style
	ReadMark   lipgloss.Style
	UnreadMark lipgloss.Style

	// Status badges
	BadgeReading   lipgloss.Style
	BadgeCompleted lipgloss.Style
	BadgeDropped   lipgloss.Style
	BadgePlanning  lipgloss.Style

	// Toasts
	ToastInfo    lipgloss.Style
	ToastSuccess lipgloss.Style
	ToastWarning lipgloss.Style
	ToastError   lipgloss.Style
)

// TruncateText shortens s to width cells, unicode safe
func TruncateText(s string, width int) string {
	if width <= 0 {
		return ""
	}
	return runewidth.Truncate(s, width, "…")
}

// StatusBadge returns the badge style for a library status
func StatusBadge(status string) lipgloss.Style {
	switch status {
	case "completed":
		return BadgeCompleted
	case "dropped":
		return BadgeDropped
	case "planToRead":
		return BadgePlanning
	default:
		return BadgeReading
	}
}

// Toast returns the style for a notification severity
func Toast(severity string) lipgloss.Style {
	switch severity {
	case "success":
		return ToastSuccess
	case "warning":
		return ToastWarning
	case "error":
		return ToastError
	default:
		return ToastInfo
	}
}
