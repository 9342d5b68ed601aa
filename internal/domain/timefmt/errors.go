package timefmt

import "errors"

// ErrFormat marks a time string that is neither hh:mm:ss nor a known marker.
var ErrFormat = errors.New("malformed time")
