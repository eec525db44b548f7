// Package store keeps the local library in a bbolt database: one bucket of
// novels and one of chapter reading state, both keyed by remote id.
package store

import (
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/justyntemme/kolnovel-t/pkg/models"
	bolt "go.etcd.io/bbolt"
)

var (
	bucketNovels   = []byte("novels")
	bucketChapters = []byte("chapters")
)

// ErrNotFound is returned for ids with no record
var ErrNotFound = errors.New("record not found")

// Store is the bbolt backed library database
type Store struct {
	db *bolt.DB
}

// Open opens or creates the database at path
func Open(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return nil, fmt.Errorf("create store directory: %w", err)
	}

	db, err := bolt.Open(path, 0600, &bolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("open store %s: %w", path, err)
	}

	err = db.Update(func(tx *bolt.Tx) error {
		for _, name := range [][]byte{bucketNovels, bucketChapters} {
			if _, err := tx.CreateBucketIfNotExists(name); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("init buckets: %w", err)
	}

	return &Store{db: db}, nil
}

// Close releases the database file
func (s *Store) Close() error {
	return s.db.Close()
}

func key(id int) []byte {
	b := make([]byte, 8)
	binary.BigEndian.PutUint64(b, uint64(id))
	return b
}

func get[T any](b *bolt.Bucket, id int) (T, bool, error) {
	var v T
	data := b.Get(key(id))
	if data == nil {
		return v, false, nil
	}
	if err := json.Unmarshal(data, &v); err != nil {
		return v, false, fmt.Errorf("decode record %d: %w", id, err)
	}
	return v, true, nil
}

func put(b *bolt.Bucket, id int, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode record %d: %w", id, err)
	}
	return b.Put(key(id), data)
}

func scan[T any](b *bolt.Bucket, keep func(T) bool) ([]T, error) {
	var out []T
	err := b.ForEach(func(k, data []byte) error {
		var v T
		if err := json.Unmarshal(data, &v); err != nil {
			return fmt.Errorf("decode record %d: %w", binary.BigEndian.Uint64(k), err)
		}
		if keep == nil || keep(v) {
			out = append(out, v)
		}
		return nil
	})
	return out, err
}

// Novel methods

// Novel returns the library entry with the given id
func (s *Store) Novel(id int) (models.LibraryNovel, bool, error) {
	var (
		n  models.LibraryNovel
		ok bool
	)
	err := s.db.View(func(tx *bolt.Tx) error {
		var err error
		n, ok, err = get[models.LibraryNovel](tx.Bucket(bucketNovels), id)
		return err
	})
	return n, ok, err
}

// PutNovel inserts or replaces a library entry
func (s *Store) PutNovel(n models.LibraryNovel) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		return put(tx.Bucket(bucketNovels), n.ID, n)
	})
}

// UpdateNovel applies fn to a stored library entry
func (s *Store) UpdateNovel(id int, fn func(n *models.LibraryNovel)) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketNovels)
		n, ok, err := get[models.LibraryNovel](b, id)
		if err != nil {
			return err
		}
		if !ok {
			return fmt.Errorf("novel %d: %w", id, ErrNotFound)
		}
		fn(&n)
		return put(b, id, n)
	})
}

// SetChaptersCount stores the known chapter count of a novel
func (s *Store) SetChaptersCount(id, count int) error {
	return s.UpdateNovel(id, func(n *models.LibraryNovel) {
		n.ChaptersCount = count
	})
}

// DeleteNovel removes a novel and the reading state of its chapters
func (s *Store) DeleteNovel(id int) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		if err := tx.Bucket(bucketNovels).Delete(key(id)); err != nil {
			return err
		}
		chapters := tx.Bucket(bucketChapters)
		recs, err := scan(chapters, func(c models.PersistedChapter) bool {
			return c.NovelID == id
		})
		if err != nil {
			return err
		}
		for _, c := range recs {
			if err := chapters.Delete(key(c.ID)); err != nil {
				return err
			}
		}
		return nil
	})
}

// Novels returns every library entry ordered by name
func (s *Store) Novels() ([]models.LibraryNovel, error) {
	return s.novels(nil)
}

// NovelsByStatus returns the library entries with the given status
func (s *Store) NovelsByStatus(status models.NovelStatus) ([]models.LibraryNovel, error) {
	return s.novels(func(n models.LibraryNovel) bool {
		return n.Status == status
	})
}

func (s *Store) novels(keep func(models.LibraryNovel) bool) ([]models.LibraryNovel, error) {
	var out []models.LibraryNovel
	err := s.db.View(func(tx *bolt.Tx) error {
		var err error
		out, err = scan(tx.Bucket(bucketNovels), keep)
		return err
	})
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Name < out[j].Name
	})
	return out, err
}

// Chapter methods

// Chapter returns the reading state of a chapter
func (s *Store) Chapter(id int) (models.PersistedChapter, bool, error) {
	var (
		c  models.PersistedChapter
		ok bool
	)
	err := s.db.View(func(tx *bolt.Tx) error {
		var err error
		c, ok, err = get[models.PersistedChapter](tx.Bucket(bucketChapters), id)
		return err
	})
	return c, ok, err
}

// PutChapter inserts or replaces a chapter record
func (s *Store) PutChapter(c models.PersistedChapter) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		return put(tx.Bucket(bucketChapters), c.ID, c)
	})
}

// UpsertChapter inserts rec when its id is unknown, otherwise applies update
// to the stored record in the same transaction. A nil update keeps the
// stored record.
func (s *Store) UpsertChapter(rec models.PersistedChapter, update func(existing *models.PersistedChapter)) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketChapters)
		existing, ok, err := get[models.PersistedChapter](b, rec.ID)
		if err != nil {
			return err
		}
		if !ok {
			return put(b, rec.ID, rec)
		}
		if update == nil {
			return nil
		}
		update(&existing)
		return put(b, rec.ID, existing)
	})
}

// ChaptersByNovel returns the chapter records of a novel ordered by id
func (s *Store) ChaptersByNovel(novelID int) ([]models.PersistedChapter, error) {
	var out []models.PersistedChapter
	err := s.db.View(func(tx *bolt.Tx) error {
		var err error
		out, err = scan(tx.Bucket(bucketChapters), func(c models.PersistedChapter) bool {
			return c.NovelID == novelID
		})
		return err
	})
	return out, err
}

// AddMissingChapters stores the records whose ids are not yet known and
// returns how many were added.
func (s *Store) AddMissingChapters(recs []models.PersistedChapter) (int, error) {
	added := 0
	err := s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketChapters)
		for _, c := range recs {
			if b.Get(key(c.ID)) != nil {
				continue
			}
			if err := put(b, c.ID, c); err != nil {
				return err
			}
			added++
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return added, nil
}

// SetCompletion updates the completion of the given chapters. Unknown ids
// are skipped.
func (s *Store) SetCompletion(ids []int, completion int, at time.Time) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketChapters)
		for _, id := range ids {
			c, ok, err := get[models.PersistedChapter](b, id)
			if err != nil {
				return err
			}
			if !ok {
				continue
			}
			c.ReadingCompletion = completion
			c.LastRead = at
			if err := put(b, id, c); err != nil {
				return err
			}
		}
		return nil
	})
}
