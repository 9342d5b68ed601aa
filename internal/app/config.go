package service

import (
	"github.com/okian/wser/internal/config"
	"github.com/okian/wser/pkg/logger"
)

// ConfigOptions translates a loaded Config into service options.
func ConfigOptions(cfg *config.Config, l logger.Logger) ([]Option, error) {
	c, err := cfg.BuildCourse()
	if err != nil {
		return nil, err
	}
	return []Option{
		WithLogger(l),
		WithCourse(c),
		WithStoreDriver(cfg.StoreDriver, cfg.StoreDSN),
		WithFetchWorkers(cfg.FetchWorkers),
		WithAggregateParallelism(cfg.AggregateParallelism),
		WithProfileCacheSize(cfg.ProfileCacheSize),
		WithDNFPolicy(cfg.Policy(), cfg.DNFDefaultHours),
		WithIngestStrict(cfg.IngestStrict),
	}, nil
}
