package pace

import "errors"

var (
	// ErrZeroDistance is returned for a pace over no distance. Course
	// validation keeps the profile builder from ever producing one.
	ErrZeroDistance = errors.New("pace at zero distance")
	// ErrMisaligned means the elapsed values do not match the course length.
	ErrMisaligned = errors.New("elapsed values not aligned to course")
)
