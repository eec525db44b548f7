package page

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/justyntemme/kolnovel-t/internal/reader"
	"github.com/justyntemme/kolnovel-t/internal/render"
	"github.com/justyntemme/kolnovel-t/pkg/models"
)

func chapter(id int) models.ChapterBody {
	return models.ChapterBody{
		ID:      id,
		Title:   fmt.Sprintf("Chapter %d", id),
		Content: strings.Repeat("<p>line</p>", 30),
		Link:    fmt.Sprintf("https://kolbook.xyz/c-%d/", id),
	}
}

// 30 paragraphs plus their separators, a header and a blank line
const chapterLines = 61

func newPage(height int) *Page {
	return New(84, height, render.Options{}, Style{}, nil)
}

func TestRectTracksOffset(t *testing.T) {
	p := newPage(10)
	first := p.Load(chapter(1))
	second := p.Render(chapter(2))
	p.Append(second)

	r, ok := p.Rect(second)
	if !ok || r.Top != chapterLines || r.Height != chapterLines {
		t.Fatalf("rect = %+v, %v", r, ok)
	}

	p.Scroll(20)
	r, _ = p.Rect(first)
	if r.Top != -20 {
		t.Fatalf("first top = %v, want -20", r.Top)
	}

	if _, ok := p.Rect(p.Render(chapter(3))); ok {
		t.Fatal("detached block should have no rect")
	}
}

func TestRemoveAboveViewportKeepsPosition(t *testing.T) {
	p := newPage(10)
	first := p.Load(chapter(1))
	p.Append(p.Render(chapter(2)))

	p.ScrollTo(chapterLines + 5)
	p.Remove(first)

	if got := p.Offset(); got != 5 {
		t.Fatalf("offset = %d, want 5", got)
	}
	pos, ok := p.Current()
	if !ok || pos.ChapterID != 2 {
		t.Fatalf("current = %+v", pos)
	}
}

func TestRemoveUnderViewportTop(t *testing.T) {
	p := newPage(10)
	first := p.Load(chapter(1))
	p.Append(p.Render(chapter(2)))

	p.ScrollTo(30)
	p.Remove(first)

	if got := p.Offset(); got != 0 {
		t.Fatalf("offset = %d, want 0", got)
	}
}

func TestScrollClampsToLastLine(t *testing.T) {
	p := newPage(10)
	p.Load(chapter(1))

	if p.Scroll(-5) {
		t.Fatal("scrolling above the top should not move")
	}
	p.ScrollToEnd()
	if got := p.Offset(); got != chapterLines-1 {
		t.Fatalf("offset = %d, want %d", got, chapterLines-1)
	}
	if p.Scroll(1) {
		t.Fatal("scrolling past the last line should not move")
	}
}

func TestListenersReceiveEvents(t *testing.T) {
	p := newPage(10)
	p.Load(chapter(1))

	var mu sync.Mutex
	got := map[reader.EventKind]int{}
	l := reader.NewListener(func(k reader.EventKind) {
		mu.Lock()
		got[k]++
		mu.Unlock()
	})
	p.AddListener(reader.EventScroll, l)
	p.AddListener(reader.EventScroll, l)
	p.AddListener(reader.EventResize, l)

	p.Scroll(3)
	p.Scroll(-10)
	p.Scroll(-10)
	p.Resize(60, 20)

	mu.Lock()
	if got[reader.EventScroll] != 2 || got[reader.EventResize] != 1 {
		t.Fatalf("events = %v", got)
	}
	mu.Unlock()

	p.RemoveListener(reader.EventScroll, l)
	p.RemoveListener(reader.EventResize, l)
	if p.Listeners(reader.EventScroll) != 0 || p.Listeners(reader.EventResize) != 0 {
		t.Fatal("listeners not removed")
	}
}

func TestChangesCoalesce(t *testing.T) {
	p := newPage(10)
	p.Load(chapter(1))
	p.Scroll(1)
	p.Scroll(1)

	select {
	case <-p.Changes():
	default:
		t.Fatal("expected a change")
	}
	select {
	case <-p.Changes():
		t.Fatal("changes should coalesce")
	default:
	}
}

func TestResizeKeepsChapterInView(t *testing.T) {
	p := newPage(10)
	p.Load(chapter(1))
	p.Append(p.Render(chapter(2)))
	p.ScrollTo(chapterLines + 10)

	p.Resize(40, 10)

	pos, ok := p.Current()
	if !ok || pos.ChapterID != 2 {
		t.Fatalf("current after resize = %+v", pos)
	}
}

func TestStyleMirror(t *testing.T) {
	p := newPage(10)
	source := p.Load(chapter(1))
	mirror := p.MirrorStyle()
	appended := p.Render(chapter(2)).(*Block)
	p.Append(appended)

	p.SetStyle(Style{HideBold: true})
	if appended.frozen != nil {
		t.Fatal("appended chapter should follow the style while mirrored")
	}

	mirror.Disconnect()
	mirror.Disconnect()
	p.SetStyle(Style{HideItalic: true})

	if appended.frozen == nil || !appended.frozen.HideBold || appended.frozen.HideItalic {
		t.Fatalf("appended chapter should keep the mirrored style, got %+v", appended.frozen)
	}
	if source.frozen != nil || p.Mirroring() {
		t.Fatal("opening chapter should keep following the style")
	}
}

func TestViewPadsToHeight(t *testing.T) {
	p := newPage(5)
	p.Load(chapter(1))
	p.ScrollToEnd()

	view := p.View()
	if n := strings.Count(view, "\n") + 1; n != 5 {
		t.Fatalf("view has %d lines, want 5", n)
	}
}

type source struct{}

func (source) FetchChapterBody(_ context.Context, id int) (models.ChapterBody, error) {
	return chapter(id), nil
}

type notes struct {
	mu   sync.Mutex
	msgs []string
}

func (n *notes) Notify(msg string, _ reader.Severity) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.msgs = append(n.msgs, msg)
}

type settings struct{}

func (settings) AutoLoader() bool               { return true }
func (settings) AdvanceThreshold() float64      { return reader.DefaultAdvanceThreshold }
func (settings) MaxDisplayed() int              { return 3 }
func (settings) DebounceWindow() time.Duration { return 5 * time.Millisecond }

type store struct {
	mu   sync.Mutex
	recs map[int]models.PersistedChapter
}

func (s *store) UpsertChapter(rec models.PersistedChapter, update func(*models.PersistedChapter)) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if existing, ok := s.recs[rec.ID]; ok {
		if update != nil {
			update(&existing)
			s.recs[rec.ID] = existing
		}
		return nil
	}
	s.recs[rec.ID] = rec
	return nil
}

func waitUntil(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatalf("timed out waiting for %s", what)
		}
		time.Sleep(2 * time.Millisecond)
	}
}

func TestControllerOnPage(t *testing.T) {
	p := newPage(10)
	body := chapter(1)
	first := p.Load(body)
	mirror := p.MirrorStyle()

	var descs []models.ChapterDescriptor
	for id := 1; id <= 5; id++ {
		descs = append(descs, models.ChapterDescriptor{ID: id, Title: fmt.Sprintf("Chapter %d", id)})
	}
	db := &store{recs: map[int]models.PersistedChapter{}}
	n := &notes{}
	c := reader.NewController(reader.Options{
		Mount:    p,
		Viewport: p,
		Events:   p,
		Source:   source{},
		Notifier: n,
		Recorder: reader.NewRecorder(db),
		Settings: settings{},
		Observer: mirror,
		NovelID:  9,
		Current: reader.DisplayedChapterBlock{
			ChapterID: body.ID,
			Title:     body.Title,
			Link:      body.Link,
			Node:      first,
		},
		Index: reader.NewChapterIndex(descs, 1),
	})
	c.Start(context.Background())

	for next := 2; next <= 5; next++ {
		p.ScrollToEnd()
		waitUntil(t, fmt.Sprintf("chapter %d", next), func() bool {
			ids := c.Displayed()
			return len(ids) > 0 && ids[len(ids)-1] == next && c.State() == reader.StateIdle
		})
	}

	if got := fmt.Sprint(p.IDs()); got != "[3 4 5]" {
		t.Fatalf("page ids = %s, want [3 4 5]", got)
	}

	p.ScrollToEnd()
	waitUntil(t, "exhaustion", func() bool { return c.State() == reader.StateExhausted })
	c.Wait()

	if p.Listeners(reader.EventScroll) != 0 || p.Listeners(reader.EventResize) != 0 {
		t.Fatal("listeners still attached after exhaustion")
	}
	if p.Mirroring() {
		t.Fatal("style mirror still connected after exhaustion")
	}
	if got := fmt.Sprint(p.IDs()); got != "[3 4 5]" {
		t.Fatalf("chapters should stay readable, got %s", got)
	}

	db.mu.Lock()
	defer db.mu.Unlock()
	for id := 1; id <= 5; id++ {
		if db.recs[id].ReadingCompletion != reader.CompletionRead {
			t.Errorf("chapter %d completion = %d", id, db.recs[id].ReadingCompletion)
		}
	}
}
