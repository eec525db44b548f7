package models

import (
	"math"
	"time"
)

// NovelStatus is the reading status of a novel in the library
type NovelStatus string

// Library statuses
const (
	StatusReading    NovelStatus = "reading"
	StatusCompleted  NovelStatus = "completed"
	StatusDropped    NovelStatus = "dropped"
	StatusPlanToRead NovelStatus = "planToRead"
)

// Statuses lists every library status in display order
var Statuses = []NovelStatus{
	StatusReading,
	StatusCompleted,
	StatusDropped,
	StatusPlanToRead,
}

// Label returns the human readable name of the status
func (s NovelStatus) Label() string {
	switch s {
	case StatusReading:
		return "Reading"
	case StatusCompleted:
		return "Completed"
	case StatusDropped:
		return "Dropped"
	case StatusPlanToRead:
		return "Plan to read"
	default:
		return string(s)
	}
}

// Valid reports whether s is one of the known statuses
func (s NovelStatus) Valid() bool {
	for _, st := range Statuses {
		if st == s {
			return true
		}
	}
	return false
}

// ParseStatus converts a status name or label to a NovelStatus
func ParseStatus(s string) (NovelStatus, bool) {
	for _, st := range Statuses {
		if string(st) == s || st.Label() == s {
			return st, true
		}
	}
	switch s {
	case "planning", "plan", "plan-to-read":
		return StatusPlanToRead, true
	}
	return "", false
}

// Novel is a series as returned by the remote API (a WordPress category)
type Novel struct {
	ID    int    `json:"id"`
	Count int    `json:"count"`
	Link  string `json:"link"`
	Name  string `json:"name"`
	Slug  string `json:"slug"`
}

// LibraryNovel is a novel saved in the local library
type LibraryNovel struct {
	ID            int         `json:"id"`
	Status        NovelStatus `json:"status"`
	ChaptersCount int         `json:"chaptersCount"`
	URI           string      `json:"uri"`
	Name          string      `json:"name"`
	Cover         string      `json:"cover,omitempty"`
	Slug          string      `json:"slug,omitempty"`
	AddedAt       time.Time   `json:"addedAt"`
}

// ChapterDescriptor identifies a chapter without its body
type ChapterDescriptor struct {
	ID    int    `json:"id"`
	Title string `json:"title"`
	Link  string `json:"link"`
	// ChapterIndex is the number parsed from the listing label, NaN when the
	// label has no number. Informational only; list order is authoritative.
	ChapterIndex float64 `json:"-"`
}

// HasIndex reports whether a chapter number could be parsed for d
func (d ChapterDescriptor) HasIndex() bool {
	return !math.IsNaN(d.ChapterIndex)
}

// ChapterBody is the full content of a chapter fetched by id
type ChapterBody struct {
	ID         int    `json:"id"`
	Title      string `json:"title"`
	Content    string `json:"content"`
	Link       string `json:"link"`
	Categories []int  `json:"categories"`
}

// PersistedChapter is the local reading state of a chapter
type PersistedChapter struct {
	ID                int       `json:"id"`
	NovelID           int       `json:"novelId"`
	Title             string    `json:"title"`
	Link              string    `json:"link"`
	ReadingCompletion int       `json:"readingCompletion"`
	LastRead          time.Time `json:"lastRead"`
}

// Read reports whether the chapter has been fully read
func (c PersistedChapter) Read() bool {
	return c.ReadingCompletion >= 100
}

// ChapterPage is a chapter page as served by the site
type ChapterPage struct {
	ID            int
	Title         string
	Content       string
	Link          string
	NovelName     string
	NovelLink     string
	ChapterLabel  string
	ChapterNumber float64
}

// NovelPage is a series page as served by the site
type NovelPage struct {
	Slug     string
	Name     string
	Cover    string
	Link     string
	Chapters []ChapterDescriptor
}
