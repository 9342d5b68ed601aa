// Package repository stores runners and their split times.
package repository

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/okian/wser/internal/domain/model"
	"github.com/okian/wser/internal/domain/types"
)

// Reader is the read side consumed by the analysis service.
type Reader interface {
	// Split returns the elapsed clock time of runner at checkpoint.
	// Returns ErrNotFound when the runner has no split there.
	Split(ctx context.Context, checkpoint string, id types.RunnerID) (model.ClockTime, error)

	// RunnerIDs returns the runners selected by filter, by overall place.
	RunnerIDs(ctx context.Context, filter model.RunnerFilter) ([]types.RunnerID, error)

	// RunnerInfo returns ErrNotFound for unknown runners.
	RunnerInfo(ctx context.Context, id types.RunnerID) (model.RunnerInfo, error)

	// AgeRange returns the youngest and oldest age on record.
	// Returns ErrNotFound when the store is empty.
	AgeRange(ctx context.Context) (minAge, maxAge int, err error)

	// CountInRange counts finishers of gender g with lower <= finish < upper hours.
	CountInRange(ctx context.Context, g types.Gender, lower, upper float64) (int, error)

	// Finishers returns every runner of gender g with a finish split.
	Finishers(ctx context.Context, g types.Gender) ([]model.Finisher, error)

	// Search matches a bib, "first last", or a single first or last name.
	Search(ctx context.Context, term string) ([]model.RunnerInfo, error)

	// Count returns the number of runners.
	Count(ctx context.Context) (int, error)
}

// Writer is the side used by ingestion.
type Writer interface {
	// Reset removes every runner and split.
	Reset(ctx context.Context) error
	// SaveRunner inserts or replaces a runner together with its splits.
	SaveRunner(ctx context.Context, info model.RunnerInfo, splits []model.SplitRecord) error
}

// Store is a full read/write store.
type Store interface {
	Reader
	Writer
	Close() error
}

// Driver names accepted by Open.
const (
	DriverMemory   = "memory"
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// Open builds the store for driver. dsn is ignored by the memory store.
func Open(ctx context.Context, driver, dsn string, opts ...Option) (Store, error) {
	switch strings.ToLower(driver) {
	case DriverMemory, "":
		return NewMemStore(ctx, opts...), nil
	case DriverSQLite, DriverPostgres:
		return NewSQLStore(ctx, driver, dsn, opts...)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownDriver, driver)
	}
}

// searchQuery is a parsed Search term.
type searchQuery struct {
	bib   types.RunnerID
	first string
	last  string
	name  string // single word, matches first or last
}

func parseSearch(term string) (searchQuery, error) {
	fields := strings.Fields(term)
	if len(fields) == 0 {
		return searchQuery{}, ErrEmptySearch
	}
	if len(fields) == 1 && isDigits(fields[0]) {
		return searchQuery{bib: types.RunnerID(fields[0])}, nil
	}
	if len(fields) == 1 {
		return searchQuery{name: strings.ToLower(fields[0])}, nil
	}
	return searchQuery{
		first: strings.ToLower(fields[0]),
		last:  strings.ToLower(strings.Join(fields[1:], " ")),
	}, nil
}

func (q searchQuery) match(r model.RunnerInfo) bool {
	switch {
	case q.bib != "":
		return r.ID == q.bib
	case q.name != "":
		return strings.EqualFold(r.FirstName, q.name) || strings.EqualFold(r.LastName, q.name)
	default:
		return strings.EqualFold(r.FirstName, q.first) && strings.EqualFold(r.LastName, q.last)
	}
}

func isDigits(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return s != ""
}

// runPeriodically calls fn every interval until ctx is done or stop is closed.
func runPeriodically(ctx context.Context, wg *sync.WaitGroup, stop <-chan struct{}, interval time.Duration, fn func()) {
	wg.Add(1)
	go func() {
		defer wg.Done()
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-stop:
				return
			case <-ticker.C:
				fn()
			}
		}
	}()
}
