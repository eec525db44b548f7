package reader

import (
	"errors"
	"fmt"
)

var (
	// ErrListUnavailable means the chapter list of the novel could not be built
	ErrListUnavailable = errors.New("chapter list unavailable")

	// ErrRecordingFailed means reading progress could not be stored
	ErrRecordingFailed = errors.New("recording reading progress failed")

	// ErrAnchorMissing means the page lacks an element the reader depends on
	ErrAnchorMissing = errors.New("page anchor missing")
)

// ChapterFetchFailedError reports a chapter body that could not be retrieved
type ChapterFetchFailedError struct {
	ID  int
	Err error
}

func (e *ChapterFetchFailedError) Error() string {
	return fmt.Sprintf("error loading chapter %d: %v", e.ID, e.Err)
}

func (e *ChapterFetchFailedError) Unwrap() error {
	return e.Err
}
