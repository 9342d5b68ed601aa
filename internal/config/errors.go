package config

import "errors"

var (
	// ErrInvalidConfig marks a value that loads but fails validation.
	ErrInvalidConfig = errors.New("invalid config")
	// ErrLoadConfig marks an unreadable file or an undecodable value.
	ErrLoadConfig = errors.New("load config failed")
)
