package reader

import "github.com/justyntemme/kolnovel-t/pkg/models"

// ChapterIndex is the ordered chapter list of a novel with a cursor on the
// chapter last triggered for loading.
type ChapterIndex struct {
	chapters []models.ChapterDescriptor
	cursor   int
}

// NewChapterIndex builds an index positioned on currentID. When currentID is
// not in the list the cursor starts before the first chapter.
func NewChapterIndex(chapters []models.ChapterDescriptor, currentID int) *ChapterIndex {
	idx := &ChapterIndex{
		chapters: chapters,
		cursor:   -1,
	}
	idx.cursor = idx.Position(currentID)
	return idx
}

// Position returns the list position of the chapter with the given id, or -1
func (i *ChapterIndex) Position(id int) int {
	for pos, ch := range i.chapters {
		if ch.ID == id {
			return pos
		}
	}
	return -1
}

// Next advances the cursor and returns the chapter under it. ok is false once
// the cursor has moved past the last chapter.
func (i *ChapterIndex) Next() (models.ChapterDescriptor, bool) {
	if i.cursor < len(i.chapters) {
		i.cursor++
	}
	return i.At(i.cursor)
}

// At returns the chapter at position pos
func (i *ChapterIndex) At(pos int) (models.ChapterDescriptor, bool) {
	if pos < 0 || pos >= len(i.chapters) {
		return models.ChapterDescriptor{}, false
	}
	return i.chapters[pos], true
}

// Cursor returns the current cursor position
func (i *ChapterIndex) Cursor() int {
	return i.cursor
}

// Len returns the number of chapters
func (i *ChapterIndex) Len() int {
	return len(i.chapters)
}

