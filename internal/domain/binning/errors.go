package binning

import "errors"

var (
	ErrInvalidEdges    = errors.New("invalid bin edges")
	ErrInvalidBinCount = errors.New("invalid bin count")
)
