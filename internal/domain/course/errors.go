package course

import "errors"

// ErrInvalidCourse reports a checkpoint list that cannot describe a course.
var ErrInvalidCourse = errors.New("invalid course")
