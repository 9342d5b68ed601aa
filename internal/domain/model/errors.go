package model

import "errors"

var (
	// ErrOutOfOrder is a data-quality error: elapsed time went backwards.
	ErrOutOfOrder = errors.New("elapsed time out of course order")
	// ErrUnknownCheckpoint marks a split at a checkpoint the course lacks.
	ErrUnknownCheckpoint = errors.New("unknown checkpoint")
)
