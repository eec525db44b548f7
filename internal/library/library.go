// Package library manages the local novel library and per-chapter reading
// state on top of the store.
package library

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/charmbracelet/log"
	"github.com/justyntemme/kolnovel-t/internal/reader"
	"github.com/justyntemme/kolnovel-t/internal/store"
	"github.com/justyntemme/kolnovel-t/pkg/models"
)

// ErrOutOfRange is returned for a chapter position outside the list
var ErrOutOfRange = errors.New("chapter position out of range")

// Remote is the part of the site client the library needs
type Remote interface {
	GetNovel(ctx context.Context, id int) (models.Novel, error)
	GetNovelBySlug(ctx context.Context, slug string) (models.Novel, error)
	GetNovelByChapterID(ctx context.Context, chapterID int) (models.Novel, error)
	NovelPage(ctx context.Context, slug string) (models.NovelPage, error)
	ChapterPage(ctx context.Context, url string) (models.ChapterPage, error)
	ChapterList(ctx context.Context, slug string) ([]models.ChapterDescriptor, error)
}

// Service is shared by the CLI and the UI
type Service struct {
	store    *store.Store
	remote   Remote
	recorder *reader.Recorder
	log      *log.Logger
	now      func() time.Time
}

// New creates a library service
func New(st *store.Store, remote Remote, logger *log.Logger) *Service {
	if logger == nil {
		logger = log.New(io.Discard)
	}
	return &Service{
		store:    st,
		remote:   remote,
		recorder: reader.NewRecorder(st),
		log:      logger.With("comp", "library"),
		now:      time.Now,
	}
}

// Recorder returns the progress recorder backed by the library store
func (s *Service) Recorder() *reader.Recorder {
	return s.recorder
}

// Library entries

// Add saves a novel with the given status. An existing entry keeps the date
// it was added.
func (s *Service) Add(n models.LibraryNovel) error {
	if !n.Status.Valid() {
		return fmt.Errorf("invalid status %q", n.Status)
	}
	existing, ok, err := s.store.Novel(n.ID)
	if err != nil {
		return err
	}
	switch {
	case ok && !existing.AddedAt.IsZero():
		n.AddedAt = existing.AddedAt
	case n.AddedAt.IsZero():
		n.AddedAt = s.now()
	}
	s.log.Info("library add", "novel", n.ID, "name", n.Name, "status", n.Status)
	return s.store.PutNovel(n)
}

// AddBySlug looks a novel up on the site and saves it with status
func (s *Service) AddBySlug(ctx context.Context, slug string, status models.NovelStatus) (models.LibraryNovel, error) {
	novel, err := s.remote.GetNovelBySlug(ctx, slug)
	if err != nil {
		return models.LibraryNovel{}, fmt.Errorf("look up %q: %w", slug, err)
	}
	page, err := s.remote.NovelPage(ctx, slug)
	if err != nil {
		return models.LibraryNovel{}, fmt.Errorf("novel page %q: %w", slug, err)
	}

	entry := Entry(novel, page, status)
	if err := s.Add(entry); err != nil {
		return entry, err
	}
	if _, err := s.SyncChapters(novel.ID, page.Chapters); err != nil {
		return entry, err
	}
	return entry, nil
}

// Entry builds a library entry from the API novel and its page
func Entry(novel models.Novel, page models.NovelPage, status models.NovelStatus) models.LibraryNovel {
	name := page.Name
	if name == "" {
		name = novel.Name
	}
	count := len(page.Chapters)
	if count == 0 {
		count = novel.Count
	}
	return models.LibraryNovel{
		ID:            novel.ID,
		Status:        status,
		ChaptersCount: count,
		URI:           novel.Link,
		Name:          name,
		Cover:         page.Cover,
		Slug:          novel.Slug,
	}
}

// Remove deletes a novel and its chapters from the library
func (s *Service) Remove(id int) error {
	s.log.Info("library remove", "novel", id)
	return s.store.DeleteNovel(id)
}

// SetStatus moves a novel to another status
func (s *Service) SetStatus(id int, status models.NovelStatus) error {
	if !status.Valid() {
		return fmt.Errorf("invalid status %q", status)
	}
	return s.store.UpdateNovel(id, func(n *models.LibraryNovel) {
		n.Status = status
	})
}

// Novel returns a library entry
func (s *Service) Novel(id int) (models.LibraryNovel, bool, error) {
	return s.store.Novel(id)
}

// Novels returns every library entry
func (s *Service) Novels() ([]models.LibraryNovel, error) {
	return s.store.Novels()
}

// Group is the library entries sharing a status
type Group struct {
	Status models.NovelStatus
	Novels []models.LibraryNovel
}

// Groups returns the library grouped by status, in status display order.
// Every status is present even when empty.
func (s *Service) Groups() ([]Group, error) {
	novels, err := s.store.Novels()
	if err != nil {
		return nil, err
	}
	groups := make([]Group, len(models.Statuses))
	for i, st := range models.Statuses {
		groups[i].Status = st
	}
	for _, n := range novels {
		for i := range groups {
			if groups[i].Status == n.Status {
				groups[i].Novels = append(groups[i].Novels, n)
				break
			}
		}
	}
	return groups, nil
}

// Update is the result of checking one novel for new chapters
type Update struct {
	Novel    models.LibraryNovel
	Previous int
	Current  int
	Err      error
}

// Changed reports whether the chapter count moved
func (u Update) Changed() bool {
	return u.Err == nil && u.Previous != u.Current
}

// CheckUpdates checks every library novel for new chapters
func (s *Service) CheckUpdates(ctx context.Context, progress func(Update)) ([]Update, error) {
	novels, err := s.store.Novels()
	if err != nil {
		return nil, err
	}
	return s.CheckNovels(ctx, novels, progress)
}

// CheckNovels compares the remote chapter count of each novel with the
// stored one and saves the new count. progress is called after every novel.
// The returned list holds the novels whose count changed.
func (s *Service) CheckNovels(ctx context.Context, novels []models.LibraryNovel, progress func(Update)) ([]Update, error) {
	var changed []Update
	for _, n := range novels {
		if err := ctx.Err(); err != nil {
			return changed, err
		}

		u := Update{Novel: n, Previous: n.ChaptersCount, Current: n.ChaptersCount}
		remote, err := s.remote.GetNovel(ctx, n.ID)
		if err != nil {
			u.Err = err
			s.log.Warn("check novel", "novel", n.ID, "err", err)
		} else {
			u.Current = remote.Count
		}

		if u.Changed() {
			if err := s.store.SetChaptersCount(n.ID, u.Current); err != nil {
				return changed, err
			}
			u.Novel.ChaptersCount = u.Current
			s.log.Info("novel updated", "novel", n.ID, "name", n.Name, "chapters", u.Current)
			changed = append(changed, u)
		}
		if progress != nil {
			progress(u)
		}
	}
	return changed, nil
}

// Chapters

// SyncChapters stores the chapters that are not known yet as unread and
// returns how many were added
func (s *Service) SyncChapters(novelID int, chapters []models.ChapterDescriptor) (int, error) {
	now := s.now()
	recs := make([]models.PersistedChapter, len(chapters))
	for i, c := range chapters {
		recs[i] = models.PersistedChapter{
			ID:                c.ID,
			NovelID:           novelID,
			Title:             c.Title,
			Link:              c.Link,
			ReadingCompletion: reader.CompletionUnread,
			LastRead:          now,
		}
	}
	return s.store.AddMissingChapters(recs)
}

// MarkRead marks one chapter as read
func (s *Service) MarkRead(novelID int, c models.ChapterDescriptor) error {
	return s.recorder.Record(c.ID, novelID, reader.CompletionRead, c.Link, c.Title)
}

// MarkUnread marks one chapter as unread
func (s *Service) MarkUnread(novelID int, c models.ChapterDescriptor) error {
	return s.recorder.Record(c.ID, novelID, reader.CompletionUnread, c.Link, c.Title)
}

// MarkPreviousRead marks the chapter at pos and every older one as read.
// chapters are in reading order.
func (s *Service) MarkPreviousRead(novelID int, chapters []models.ChapterDescriptor, pos int) error {
	return s.markPrevious(novelID, chapters, pos, reader.CompletionRead)
}

// MarkPreviousUnread marks the chapter at pos and every older one as unread
func (s *Service) MarkPreviousUnread(novelID int, chapters []models.ChapterDescriptor, pos int) error {
	return s.markPrevious(novelID, chapters, pos, reader.CompletionUnread)
}

func (s *Service) markPrevious(novelID int, chapters []models.ChapterDescriptor, pos, completion int) error {
	if pos < 0 || pos >= len(chapters) {
		return fmt.Errorf("%w: %d of %d", ErrOutOfRange, pos, len(chapters))
	}
	older := chapters[:pos+1]
	if _, err := s.SyncChapters(novelID, older); err != nil {
		return err
	}
	ids := make([]int, len(older))
	for i, c := range older {
		ids[i] = c.ID
	}
	return s.store.SetCompletion(ids, completion, s.now())
}

// UnreadCount returns how many stored chapters of a novel are not read
func (s *Service) UnreadCount(novelID int) (int, error) {
	recs, err := s.store.ChaptersByNovel(novelID)
	if err != nil {
		return 0, err
	}
	unread := 0
	for _, c := range recs {
		if !c.Read() {
			unread++
		}
	}
	return unread, nil
}

// ChapterState is a listed chapter with its stored completion
type ChapterState struct {
	models.ChapterDescriptor
	Completion int
}

// Read reports whether the chapter is fully read
func (c ChapterState) Read() bool {
	return c.Completion >= reader.CompletionRead
}

// States joins chapters with their stored completion
func (s *Service) States(novelID int, chapters []models.ChapterDescriptor) ([]ChapterState, error) {
	recs, err := s.store.ChaptersByNovel(novelID)
	if err != nil {
		return nil, err
	}
	completion := make(map[int]int, len(recs))
	for _, r := range recs {
		completion[r.ID] = r.ReadingCompletion
	}
	states := make([]ChapterState, len(chapters))
	for i, c := range chapters {
		states[i] = ChapterState{ChapterDescriptor: c, Completion: completion[c.ID]}
	}
	return states, nil
}

// Opened is a novel page joined with the library
type Opened struct {
	Novel     models.Novel
	Page      models.NovelPage
	Entry     models.LibraryNovel
	InLibrary bool
	// HasNew is set when the page lists more chapters than were stored
	HasNew   bool
	Added    int
	Unread   int
	Chapters []ChapterState
}

// OpenNovel loads a novel page, stores its unseen chapters as unread and
// reports new and unread chapters
func (s *Service) OpenNovel(ctx context.Context, slug string) (Opened, error) {
	var o Opened

	novel, err := s.remote.GetNovelBySlug(ctx, slug)
	if err != nil {
		return o, fmt.Errorf("look up %q: %w", slug, err)
	}
	page, err := s.remote.NovelPage(ctx, slug)
	if err != nil {
		return o, fmt.Errorf("novel page %q: %w", slug, err)
	}
	o.Novel, o.Page = novel, page

	known, err := s.store.ChaptersByNovel(novel.ID)
	if err != nil {
		return o, err
	}
	o.HasNew = len(page.Chapters) > len(known)
	if o.Added, err = s.SyncChapters(novel.ID, page.Chapters); err != nil {
		return o, err
	}

	if o.Chapters, err = s.States(novel.ID, page.Chapters); err != nil {
		return o, err
	}
	for _, c := range o.Chapters {
		if !c.Read() {
			o.Unread++
		}
	}

	if o.Entry, o.InLibrary, err = s.store.Novel(novel.ID); err != nil {
		return o, err
	}
	s.log.Debug("opened novel", "novel", novel.ID, "chapters", len(page.Chapters), "new", o.HasNew, "unread", o.Unread)
	return o, nil
}

// Session is everything the reader needs to open a chapter page
type Session struct {
	Page     models.ChapterPage
	Novel    models.Novel
	Index    *reader.ChapterIndex
	IndexErr error
}

// Body returns the opening chapter as a chapter body
func (s Session) Body() models.ChapterBody {
	return models.ChapterBody{
		ID:      s.Page.ID,
		Title:   s.Page.Title,
		Content: s.Page.Content,
		Link:    s.Page.Link,
	}
}

// OpenChapter loads a chapter page, resolves its novel and the novel's
// chapter list. A missing list is reported in IndexErr, not as an error.
func (s *Service) OpenChapter(ctx context.Context, url string) (Session, error) {
	var sess Session

	page, err := s.remote.ChapterPage(ctx, url)
	if err != nil {
		return sess, fmt.Errorf("chapter page: %w", err)
	}
	sess.Page = page

	novel, err := s.remote.GetNovelByChapterID(ctx, page.ID)
	if err != nil {
		return sess, fmt.Errorf("novel of chapter %d: %w", page.ID, err)
	}
	sess.Novel = novel

	chapters, err := s.remote.ChapterList(ctx, novel.Slug)
	if err != nil {
		s.log.Warn("chapter list", "novel", novel.ID, "slug", novel.Slug, "err", err)
		sess.IndexErr = err
		return sess, nil
	}
	sess.Index = reader.NewChapterIndex(chapters, page.ID)
	if _, err := s.SyncChapters(novel.ID, chapters); err != nil {
		s.log.Warn("sync chapters", "novel", novel.ID, "err", err)
	}
	return sess, nil
}
