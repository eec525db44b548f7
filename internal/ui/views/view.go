package views

import (
	tea "github.com/charmbracelet/bubbletea"
)

// ViewType represents different screens in the application
type ViewType int

const (
	ViewLibrary ViewType = iota
	ViewNovel
	ViewReader
)

// String returns the name of the view
func (v ViewType) String() string {
	switch v {
	case ViewLibrary:
		return "Library"
	case ViewNovel:
		return "Novel"
	case ViewReader:
		return "Reader"
	default:
		return "Unknown"
	}
}

// View is the interface that all views must implement
type View interface {
	Init() tea.Cmd
	Update(msg tea.Msg) (View, tea.Cmd)
	View() string
	SetSize(width, height int)
}

// Message types for inter-view communication

// OpenChapterMsg is sent when a chapter page should be opened in the reader
type OpenChapterMsg struct {
	URL string
}

// OpenNovelMsg is sent when a novel page should be shown
type OpenNovelMsg struct {
	Slug string
}

// LibraryChangedMsg is sent after the library was modified outside the
// library view
type LibraryChangedMsg struct{}

// ErrorMsg is sent when an error occurs
type ErrorMsg struct {
	Err error
}

// ClearErrorMsg clears the current error
type ClearErrorMsg struct{}

// SwitchViewMsg requests a view switch
type SwitchViewMsg struct {
	View ViewType
}

// Helper functions to create messages

// SendError creates an error message command
func SendError(err error) tea.Cmd {
	return func() tea.Msg {
		return ErrorMsg{Err: err}
	}
}

// ClearError creates a command to clear errors
func ClearError() tea.Cmd {
	return func() tea.Msg {
		return ClearErrorMsg{}
	}
}

// SwitchTo creates a command to switch views
func SwitchTo(view ViewType) tea.Cmd {
	return func() tea.Msg {
		return SwitchViewMsg{View: view}
	}
}

// OpenChapter creates a command that opens url in the reader
func OpenChapter(url string) tea.Cmd {
	return func() tea.Msg {
		return OpenChapterMsg{URL: url}
	}
}

// OpenNovel creates a command that shows the novel with the given slug
func OpenNovel(slug string) tea.Cmd {
	return func() tea.Msg {
		return OpenNovelMsg{Slug: slug}
	}
}
