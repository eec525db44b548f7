package api

import (
	"errors"

	"github.com/justyntemme/kolnovel-t/internal/reader"
)

var (
	// ErrNotFound is returned when the site has no such novel or chapter
	ErrNotFound = errors.New("not found")

	// ErrListUnavailable is returned when a chapter listing cannot be read
	ErrListUnavailable = reader.ErrListUnavailable

	// ErrAnchorMissing is returned when a page lacks the expected markup
	ErrAnchorMissing = reader.ErrAnchorMissing
)
