// Package cache keeps recently built pace profiles in memory.
package cache

import (
	"context"
	"fmt"

	"github.com/dgraph-io/ristretto/v2"

	"github.com/okian/wser/internal/domain/model"
	"github.com/okian/wser/internal/domain/types"
	"github.com/okian/wser/pkg/metrics"
)

// ProfileCache maps runner ids to built pace series.
type ProfileCache interface {
	Get(ctx context.Context, id types.RunnerID) (model.PaceSeries, bool)
	Set(ctx context.Context, id types.RunnerID, s model.PaceSeries)
	// Clear drops every entry. Called after the store is rebuilt.
	Clear()
	Close()
}

type ristrettoCache struct {
	c *ristretto.Cache[string, model.PaceSeries]
	// wait makes Set visible to the next Get. Only tests turn it on.
	wait bool
}

// New returns a cache bounded to roughly maxEntries profiles. A size of zero
// or less disables caching.
func New(maxEntries int, opts ...Option) (ProfileCache, error) {
	o := options{}
	for _, opt := range opts {
		opt(&o)
	}
	if maxEntries <= 0 {
		return nop{}, nil
	}
	c, err := ristretto.NewCache(&ristretto.Config[string, model.PaceSeries]{
		NumCounters:        int64(maxEntries) * 10,
		MaxCost:            int64(maxEntries),
		BufferItems:        64,
		// cost is one per entry, not bytes
		IgnoreInternalCost: true,
	})
	if err != nil {
		return nil, fmt.Errorf("profile cache: %w", err)
	}
	return &ristrettoCache{c: c, wait: o.synchronous}, nil
}

func (r *ristrettoCache) Get(_ context.Context, id types.RunnerID) (model.PaceSeries, bool) {
	s, ok := r.c.Get(string(id))
	if ok {
		metrics.RecordCacheHit()
	} else {
		metrics.RecordCacheMiss()
	}
	return s, ok
}

// Set stores a copy so callers may keep mutating their slice.
func (r *ristrettoCache) Set(_ context.Context, id types.RunnerID, s model.PaceSeries) {
	cp := make(model.PaceSeries, len(s))
	copy(cp, s)
	r.c.Set(string(id), cp, 1)
	if r.wait {
		r.c.Wait()
	}
}

func (r *ristrettoCache) Clear() { r.c.Clear() }

func (r *ristrettoCache) Close() { r.c.Close() }

type nop struct{}

func (nop) Get(context.Context, types.RunnerID) (model.PaceSeries, bool) {
	metrics.RecordCacheMiss()
	return nil, false
}
func (nop) Set(context.Context, types.RunnerID, model.PaceSeries) {}
func (nop) Clear()                                                  {}
func (nop) Close()                                                  {}
