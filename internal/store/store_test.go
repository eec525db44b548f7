package store

import (
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/justyntemme/kolnovel-t/pkg/models"
)

func openTemp(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "library.db"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestUpsertChapterKeepsOneRecord(t *testing.T) {
	s := openTemp(t)
	rec := models.PersistedChapter{ID: 7, NovelID: 1, Title: "t", ReadingCompletion: 0}
	setRead := func(c *models.PersistedChapter) { c.ReadingCompletion = 100 }

	for i := 0; i < 2; i++ {
		if err := s.UpsertChapter(rec, setRead); err != nil {
			t.Fatalf("UpsertChapter: %v", err)
		}
	}

	chapters, err := s.ChaptersByNovel(1)
	if err != nil {
		t.Fatalf("ChaptersByNovel: %v", err)
	}
	if len(chapters) != 1 {
		t.Fatalf("got %d records, want 1", len(chapters))
	}
	if chapters[0].ReadingCompletion != 100 {
		t.Fatalf("completion = %d, want 100", chapters[0].ReadingCompletion)
	}
}

func TestUpsertChapterNilUpdate(t *testing.T) {
	s := openTemp(t)
	if err := s.PutChapter(models.PersistedChapter{ID: 3, NovelID: 1, ReadingCompletion: 100}); err != nil {
		t.Fatalf("PutChapter: %v", err)
	}
	if err := s.UpsertChapter(models.PersistedChapter{ID: 3, NovelID: 1}, nil); err != nil {
		t.Fatalf("UpsertChapter: %v", err)
	}
	c, ok, err := s.Chapter(3)
	if err != nil || !ok {
		t.Fatalf("Chapter(3) = %v, %v", ok, err)
	}
	if c.ReadingCompletion != 100 {
		t.Fatalf("completion = %d, want 100", c.ReadingCompletion)
	}
}

func TestAddMissingChapters(t *testing.T) {
	s := openTemp(t)
	if err := s.PutChapter(models.PersistedChapter{ID: 1, NovelID: 9, ReadingCompletion: 100}); err != nil {
		t.Fatalf("PutChapter: %v", err)
	}

	added, err := s.AddMissingChapters([]models.PersistedChapter{
		{ID: 1, NovelID: 9},
		{ID: 2, NovelID: 9},
		{ID: 3, NovelID: 9},
	})
	if err != nil {
		t.Fatalf("AddMissingChapters: %v", err)
	}
	if added != 2 {
		t.Fatalf("added = %d, want 2", added)
	}
	c, _, _ := s.Chapter(1)
	if c.ReadingCompletion != 100 {
		t.Fatal("existing record was overwritten")
	}
}

func TestSetCompletion(t *testing.T) {
	s := openTemp(t)
	for id := 1; id <= 3; id++ {
		if err := s.PutChapter(models.PersistedChapter{ID: id, NovelID: 2}); err != nil {
			t.Fatalf("PutChapter: %v", err)
		}
	}

	at := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)
	if err := s.SetCompletion([]int{1, 2, 42}, 100, at); err != nil {
		t.Fatalf("SetCompletion: %v", err)
	}

	for id, want := range map[int]int{1: 100, 2: 100, 3: 0} {
		c, _, _ := s.Chapter(id)
		if c.ReadingCompletion != want {
			t.Errorf("chapter %d completion = %d, want %d", id, c.ReadingCompletion, want)
		}
	}
	if _, ok, _ := s.Chapter(42); ok {
		t.Fatal("SetCompletion created an unknown chapter")
	}
}

func TestNovelLifecycle(t *testing.T) {
	s := openTemp(t)
	novels := []models.LibraryNovel{
		{ID: 1, Name: "B", Status: models.StatusReading},
		{ID: 2, Name: "A", Status: models.StatusCompleted},
		{ID: 3, Name: "C", Status: models.StatusReading},
	}
	for _, n := range novels {
		if err := s.PutNovel(n); err != nil {
			t.Fatalf("PutNovel: %v", err)
		}
	}

	all, err := s.Novels()
	if err != nil {
		t.Fatalf("Novels: %v", err)
	}
	if len(all) != 3 || all[0].Name != "A" {
		t.Fatalf("Novels() = %+v", all)
	}

	reading, err := s.NovelsByStatus(models.StatusReading)
	if err != nil || len(reading) != 2 {
		t.Fatalf("NovelsByStatus = %d, %v", len(reading), err)
	}

	if err := s.SetChaptersCount(1, 12); err != nil {
		t.Fatalf("SetChaptersCount: %v", err)
	}
	n, _, _ := s.Novel(1)
	if n.ChaptersCount != 12 {
		t.Fatalf("ChaptersCount = %d, want 12", n.ChaptersCount)
	}

	if err := s.SetChaptersCount(99, 1); !errors.Is(err, ErrNotFound) {
		t.Fatalf("SetChaptersCount(99) err = %v, want ErrNotFound", err)
	}
}

func TestDeleteNovelRemovesChapters(t *testing.T) {
	s := openTemp(t)
	s.PutNovel(models.LibraryNovel{ID: 1, Name: "A"})
	s.PutChapter(models.PersistedChapter{ID: 10, NovelID: 1})
	s.PutChapter(models.PersistedChapter{ID: 20, NovelID: 2})

	if err := s.DeleteNovel(1); err != nil {
		t.Fatalf("DeleteNovel: %v", err)
	}
	if _, ok, _ := s.Novel(1); ok {
		t.Fatal("novel still stored")
	}
	if _, ok, _ := s.Chapter(10); ok {
		t.Fatal("chapter of deleted novel still stored")
	}
	if _, ok, _ := s.Chapter(20); !ok {
		t.Fatal("chapter of another novel was deleted")
	}
}
