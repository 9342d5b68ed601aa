package repository

import "time"

type settings struct {
	finish                string
	metricsUpdateInterval time.Duration
	maxOpenConns          int
}

func defaultSettings() settings {
	return settings{
		finish:                "Finish",
		metricsUpdateInterval: 5 * time.Second,
	}
}

// Option configures a store.
type Option func(*settings)

// WithFinishCheckpoint names the checkpoint whose split is the finish time.
func WithFinishCheckpoint(name string) Option {
	return func(s *settings) {
		if name != "" {
			s.finish = name
		}
	}
}

// WithMetricsUpdateInterval sets the interval for background metrics updates.
func WithMetricsUpdateInterval(interval time.Duration) Option {
	return func(s *settings) {
		if interval > 0 {
			s.metricsUpdateInterval = interval
		}
	}
}

// WithMaxOpenConns caps the SQL connection pool.
func WithMaxOpenConns(n int) Option {
	return func(s *settings) {
		if n > 0 {
			s.maxOpenConns = n
		}
	}
}
