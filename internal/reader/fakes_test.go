package reader

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/justyntemme/kolnovel-t/pkg/models"
)

type fakeNode int

func (n fakeNode) ChapterID() int { return int(n) }

type fakeMount struct {
	mu    sync.Mutex
	nodes []Node
}

func (m *fakeMount) Render(body models.ChapterBody) Node {
	return fakeNode(body.ID)
}

func (m *fakeMount) Append(n Node) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nodes = append(m.nodes, n)
}

func (m *fakeMount) Remove(n Node) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i, node := range m.nodes {
		if node == n {
			m.nodes = append(m.nodes[:i], m.nodes[i+1:]...)
			return
		}
	}
}

func (m *fakeMount) ids() []int {
	m.mu.Lock()
	defer m.mu.Unlock()
	ids := make([]int, len(m.nodes))
	for i, n := range m.nodes {
		ids[i] = n.ChapterID()
	}
	return ids
}

// fakeViewport reports the same rect for every node
type fakeViewport struct {
	mu   sync.Mutex
	rect Rect
}

func (v *fakeViewport) Rect(Node) (Rect, bool) {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.rect, true
}

func (v *fakeViewport) Height() float64 { return 40 }

func (v *fakeViewport) set(r Rect) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.rect = r
}

type fakeEvents struct {
	mu        sync.Mutex
	listeners map[EventKind][]*Listener
}

func newFakeEvents() *fakeEvents {
	return &fakeEvents{listeners: make(map[EventKind][]*Listener)}
}

func (e *fakeEvents) AddListener(kind EventKind, l *Listener) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.listeners[kind] = append(e.listeners[kind], l)
}

func (e *fakeEvents) RemoveListener(kind EventKind, l *Listener) {
	e.mu.Lock()
	defer e.mu.Unlock()
	list := e.listeners[kind]
	for i, existing := range list {
		if existing == l {
			e.listeners[kind] = append(list[:i], list[i+1:]...)
			return
		}
	}
}

func (e *fakeEvents) fire(kind EventKind) {
	e.mu.Lock()
	list := append([]*Listener(nil), e.listeners[kind]...)
	e.mu.Unlock()
	for _, l := range list {
		l.Handle(kind)
	}
}

func (e *fakeEvents) count() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.listeners[EventScroll]) + len(e.listeners[EventResize])
}

type fakeSource struct {
	mu      sync.Mutex
	calls   []int
	failing map[int]bool
	gate    chan struct{}
}

func (s *fakeSource) FetchChapterBody(ctx context.Context, id int) (models.ChapterBody, error) {
	s.mu.Lock()
	s.calls = append(s.calls, id)
	gate := s.gate
	fail := s.failing[id]
	s.mu.Unlock()

	if gate != nil {
		<-gate
	}
	if fail {
		return models.ChapterBody{}, errors.New("HTTP 500")
	}
	return models.ChapterBody{ID: id, Title: "Chapter body", Content: "<p>text</p>"}, nil
}

func (s *fakeSource) fetched() []int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]int(nil), s.calls...)
}

type note struct {
	message  string
	severity Severity
}

type fakeNotifier struct {
	mu    sync.Mutex
	notes []note
}

func (n *fakeNotifier) Notify(message string, severity Severity) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.notes = append(n.notes, note{message, severity})
}

func (n *fakeNotifier) count(severity Severity) int {
	n.mu.Lock()
	defer n.mu.Unlock()
	total := 0
	for _, nt := range n.notes {
		if nt.severity == severity {
			total++
		}
	}
	return total
}

type memStore struct {
	mu      sync.Mutex
	records map[int]models.PersistedChapter
	err     error
}

func newMemStore() *memStore {
	return &memStore{records: make(map[int]models.PersistedChapter)}
}

func (s *memStore) UpsertChapter(rec models.PersistedChapter, update func(*models.PersistedChapter)) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	existing, ok := s.records[rec.ID]
	if !ok {
		s.records[rec.ID] = rec
		return nil
	}
	if update != nil {
		update(&existing)
		s.records[rec.ID] = existing
	}
	return nil
}

func (s *memStore) completion(id int) (int, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.records[id]
	return rec.ReadingCompletion, ok
}

type fakeSettings struct {
	autoLoader bool
	debounce   time.Duration
}

func (s fakeSettings) AutoLoader() bool { return s.autoLoader }
func (s fakeSettings) AdvanceThreshold() float64 { return DefaultAdvanceThreshold }
func (s fakeSettings) MaxDisplayed() int { return DefaultMaxDisplayed }
func (s fakeSettings) DebounceWindow() time.Duration { return s.debounce }

type fakeObserver struct {
	mu    sync.Mutex
	calls int
}

func (o *fakeObserver) Disconnect() {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.calls++
}
