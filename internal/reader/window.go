package reader

import "github.com/justyntemme/kolnovel-t/pkg/models"

// Node is a rendered chapter that can be attached to a Mount.
type Node interface {
	ChapterID() int
}

// Mount is the container chapter blocks are appended to, in reading order.
type Mount interface {
	Render(body models.ChapterBody) Node
	Append(n Node)
	Remove(n Node)
}

// DisplayedChapterBlock is a chapter currently attached to the page.
type DisplayedChapterBlock struct {
	ChapterID int
	Title     string
	Link      string
	Node      Node
	Sequence  int
}

// ChapterWindow keeps at most maxDisplayed chapter blocks attached, evicting
// the oldest first.
type ChapterWindow struct {
	mount        Mount
	maxDisplayed int
	blocks       []DisplayedChapterBlock
	created      map[int]struct{}
	sequence     int
}

// NewChapterWindow creates a window over mount. maxDisplayed below one is
// treated as one.
func NewChapterWindow(mount Mount, maxDisplayed int) *ChapterWindow {
	if maxDisplayed < 1 {
		maxDisplayed = 1
	}
	return &ChapterWindow{
		mount:        mount,
		maxDisplayed: maxDisplayed,
		created:      make(map[int]struct{}),
	}
}

// Adopt tracks a block that is already attached to the mount, such as the
// chapter the page was opened with.
func (w *ChapterWindow) Adopt(block DisplayedChapterBlock) bool {
	if w.Contains(block.ChapterID) {
		return false
	}
	w.track(block)
	w.evict()
	return true
}

// Append attaches block after the current tail. Blocks for chapters already
// in the window are ignored.
func (w *ChapterWindow) Append(block DisplayedChapterBlock) bool {
	if w.Contains(block.ChapterID) {
		return false
	}
	w.mount.Append(block.Node)
	w.track(block)
	w.evict()
	return true
}

func (w *ChapterWindow) track(block DisplayedChapterBlock) {
	w.sequence++
	block.Sequence = w.sequence
	w.created[block.ChapterID] = struct{}{}
	w.blocks = append(w.blocks, block)
}

func (w *ChapterWindow) evict() {
	for len(w.blocks) > w.maxDisplayed {
		oldest := w.blocks[0]
		w.blocks = w.blocks[1:]
		w.mount.Remove(oldest.Node)
		delete(w.created, oldest.ChapterID)
	}
}

// Reset forgets every block. Nodes stay attached to the mount.
func (w *ChapterWindow) Reset() {
	w.blocks = nil
	w.created = make(map[int]struct{})
}

// Contains reports whether a block for the chapter is attached
func (w *ChapterWindow) Contains(chapterID int) bool {
	_, ok := w.created[chapterID]
	return ok
}

// Tail returns the most recently appended block
func (w *ChapterWindow) Tail() (DisplayedChapterBlock, bool) {
	if len(w.blocks) == 0 {
		return DisplayedChapterBlock{}, false
	}
	return w.blocks[len(w.blocks)-1], true
}

// IDs returns the attached chapter ids, oldest first
func (w *ChapterWindow) IDs() []int {
	ids := make([]int, len(w.blocks))
	for i, b := range w.blocks {
		ids[i] = b.ChapterID
	}
	return ids
}

// Len returns the number of attached blocks
func (w *ChapterWindow) Len() int {
	return len(w.blocks)
}

