package api

import "errors"

// ErrBadRequest marks malformed or out-of-range query parameters.
var ErrBadRequest = errors.New("bad request")
