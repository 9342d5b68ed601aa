package ingest

import "errors"

var (
	ErrMissingColumn = errors.New("missing column")
	ErrMissingBib    = errors.New("row without bib")
	ErrBadNumber     = errors.New("malformed number")
)
