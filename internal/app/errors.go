package service

import "errors"

var (
	// ErrEmptyResult means a filter or search matched no runner. A runner
	// that exists but has no splits is not an empty result.
	ErrEmptyResult = errors.New("no runner matched")
	ErrNotStarted  = errors.New("service not started")
	ErrInvalidArgs = errors.New("invalid arguments")
)
