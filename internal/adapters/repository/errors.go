package repository

import "errors"

var (
	ErrNotFound      = errors.New("not found")
	ErrEmptySearch   = errors.New("empty search term")
	ErrUnknownDriver = errors.New("unknown store driver")
	ErrClosed        = errors.New("store closed")
)
