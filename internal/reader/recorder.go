package reader

import (
	"fmt"
	"time"

	"github.com/justyntemme/kolnovel-t/pkg/models"
)

// Completion values written by the recorder
const (
	CompletionUnread = 0
	CompletionRead   = 100
)

// ChapterStore persists chapter reading state. UpsertChapter inserts rec when
// no record with its id exists, otherwise applies update to the stored record.
// A nil update leaves an existing record untouched.
type ChapterStore interface {
	UpsertChapter(rec models.PersistedChapter, update func(existing *models.PersistedChapter)) error
}

// Recorder writes reading completion for chapters.
type Recorder struct {
	store ChapterStore
	now   func() time.Time
}

// NewRecorder creates a recorder backed by store
func NewRecorder(store ChapterStore) *Recorder {
	return &Recorder{store: store, now: time.Now}
}

// Record sets the completion and last read time of a chapter, creating its
// record when missing.
func (r *Recorder) Record(chapterID, novelID, completion int, link, title string) error {
	at := r.now()
	rec := models.PersistedChapter{
		ID:                chapterID,
		NovelID:           novelID,
		Title:             title,
		Link:              link,
		ReadingCompletion: completion,
		LastRead:          at,
	}
	err := r.store.UpsertChapter(rec, func(existing *models.PersistedChapter) {
		existing.ReadingCompletion = completion
		existing.LastRead = at
	})
	if err != nil {
		return fmt.Errorf("%w: chapter %d: %v", ErrRecordingFailed, chapterID, err)
	}
	return nil
}

// Ensure creates an unread record for a chapter seen for the first time and
// leaves existing records as they are.
func (r *Recorder) Ensure(chapterID, novelID int, link, title string) error {
	rec := models.PersistedChapter{
		ID:                chapterID,
		NovelID:           novelID,
		Title:             title,
		Link:              link,
		ReadingCompletion: CompletionUnread,
		LastRead:          r.now(),
	}
	if err := r.store.UpsertChapter(rec, nil); err != nil {
		return fmt.Errorf("%w: chapter %d: %v", ErrRecordingFailed, chapterID, err)
	}
	return nil
}
