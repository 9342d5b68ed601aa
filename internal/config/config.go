// Package config defines service configuration and its layered loading.
//
// Conventions:
// - New(ctx) builds a Config with defaults; Load layers file and env on top.
// - External errors are wrapped with this package's sentinels.
package config

import (
	"context"
	"fmt"
	"runtime"

	"github.com/okian/wser/internal/domain/course"
	"github.com/okian/wser/internal/domain/timefmt"
)

// Checkpoint is one course entry as written in the config file.
type Checkpoint struct {
	Name     string  `koanf:"name" validate:"required"`
	Distance float64 `koanf:"distance" validate:"gt=0"`
}

// Config contains process configuration.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level" validate:"omitempty,oneof=debug info warn warning error"`

	// LogFormat selects the slog handler: text or json.
	LogFormat string `koanf:"log_format" validate:"oneof=text json"`

	// Addr configures the HTTP listen address, e.g. ":8080".
	Addr string `koanf:"addr" validate:"required"`

	// EventName labels reports and the server banner.
	EventName string `koanf:"event_name"`

	// StoreDriver picks the backing store: memory, sqlite or postgres.
	StoreDriver string `koanf:"store_driver" validate:"oneof=memory sqlite postgres"`

	// StoreDSN is passed to the SQL driver. Empty means in-memory SQLite.
	StoreDSN string `koanf:"store_dsn" validate:"required_if=StoreDriver postgres"`

	// ResultsCSV is ingested on startup when set.
	ResultsCSV string `koanf:"results_csv"`

	// IngestStrict aborts ingestion on the first malformed split.
	IngestStrict bool `koanf:"ingest_strict"`

	// FetchWorkers bounds concurrent per-runner store reads.
	FetchWorkers int `koanf:"fetch_workers" validate:"min=1,max=1024"`

	// AggregateParallelism sets the number of aggregation shards.
	AggregateParallelism int `koanf:"aggregate_parallelism" validate:"min=1,max=256"`

	// ProfileCacheSize caps cached pace profiles. Zero disables the cache.
	ProfileCacheSize int `koanf:"profile_cache_size" validate:"min=0"`

	// DNFPolicy is "absent" or "impute" for non-finishers in field summaries.
	DNFPolicy string `koanf:"dnf_policy" validate:"oneof=absent impute"`

	// DNFDefaultHours is the finish time imputed under the impute policy.
	DNFDefaultHours float64 `koanf:"dnf_default_hours" validate:"gt=0"`

	// Course overrides the Western States checkpoints when non-empty.
	Course []Checkpoint `koanf:"course" validate:"omitempty,dive"`
}

// New creates a Config with defaults.
func New(_ context.Context) *Config {
	return &Config{
		LogLevel:             "info",
		LogFormat:            "text",
		Addr:                 ":9080",
		EventName:            "Western States 100",
		StoreDriver:          "memory",
		FetchWorkers:         runtime.NumCPU() * 4,
		AggregateParallelism: runtime.NumCPU(),
		ProfileCacheSize:     2_000,
		DNFPolicy:            timefmt.PolicyAbsent.String(),
		DNFDefaultHours:      timefmt.DefaultImputeHours,
	}
}

// BuildCourse returns the configured course, or the Western States default.
func (c *Config) BuildCourse() (*course.Course, error) {
	if len(c.Course) == 0 {
		return course.Default(), nil
	}
	cps := make([]course.Checkpoint, len(c.Course))
	for i, cp := range c.Course {
		cps[i] = course.Checkpoint{Name: cp.Name, Distance: cp.Distance}
	}
	cs, err := course.New(cps)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	return cs, nil
}

// Policy returns the parsed DNF policy.
func (c *Config) Policy() timefmt.Policy {
	p, err := timefmt.ParsePolicy(c.DNFPolicy)
	if err != nil {
		return timefmt.PolicyAbsent
	}
	return p
}
