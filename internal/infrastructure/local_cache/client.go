package local_cache

import (
	"sync"

	"github.com/dgraph-io/ristretto"
)

type Options struct {
	NumCounters            int64 // 10x the expected number of items
	MaxCost                int64
	BufferItems            int64
	TtlTickerDurationInSec int64
	Metrics                bool
	OnEvict                func(item *ristretto.Item)
}

type Option func(*Options)

func WithNumCounters(n int64) Option {
	return func(o *Options) { o.NumCounters = n }
}

func WithMaxCost(c int64) Option {
	return func(o *Options) { o.MaxCost = c }
}

func WithMetrics() Option {
	return func(o *Options) { o.Metrics = true }
}

func WithOnEvict(f func(item *ristretto.Item)) Option {
	return func(o *Options) { o.OnEvict = f }
}

func WithTtlTickerDurationInSec(d int64) Option {
	return func(o *Options) { o.TtlTickerDurationInSec = d }
}

// The cache only holds provisioning material, a handful of entries.
func defaultOptions() Options {
	return Options{
		NumCounters: 1_000,
		MaxCost:     100,
		BufferItems: 64,
	}
}

var (
	once    sync.Once
	cache   *ristretto.Cache
	initErr error
)

// NewLocalCache builds the process-wide cache. The first call fixes config.
func NewLocalCache(opts ...Option) error {
	once.Do(func() {
		conf := defaultOptions()
		for _, fn := range opts {
			fn(&conf)
		}

		cache, initErr = ristretto.NewCache(&ristretto.Config{
			NumCounters:            conf.NumCounters,
			MaxCost:                conf.MaxCost,
			BufferItems:            conf.BufferItems,
			Metrics:                conf.Metrics,
			OnEvict:                conf.OnEvict,
			TtlTickerDurationInSec: conf.TtlTickerDurationInSec,
		})
	})
	return initErr
}

func Cache() *ristretto.Cache {
	if cache == nil {
		panic("local cache not initialized; call NewLocalCache first")
	}
	return cache
}
