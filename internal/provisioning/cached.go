package provisioning

import (
	"context"
	"time"

	"github.com/dgraph-io/ristretto"
)

const cacheKeyPrefix = "provisioning:"

// CachedSource keeps the material of the wrapped source for ttl so repeated
// loads do not hit the remote store.
type CachedSource struct {
	source Source
	cache  *ristretto.Cache
	ttl    time.Duration
}

func NewCachedSource(source Source, cache *ristretto.Cache, ttl time.Duration) *CachedSource {
	return &CachedSource{source: source, cache: cache, ttl: ttl}
}

func (s *CachedSource) Name() string { return s.source.Name() }

func (s *CachedSource) Fetch(ctx context.Context) (*Material, error) {
	key := cacheKeyPrefix + s.source.Name()
	if v, ok := s.cache.Get(key); ok {
		if m, ok := v.(Material); ok {
			return &m, nil
		}
	}

	m, err := s.source.Fetch(ctx)
	if err != nil {
		return nil, err
	}
	// Stored by value so callers cannot mutate the cached copy.
	s.cache.SetWithTTL(key, *m, 1, s.ttl)
	s.cache.Wait()
	return m, nil
}

// Invalidate drops the cached material, e.g. after a certificate rotation.
func (s *CachedSource) Invalidate() {
	s.cache.Del(cacheKeyPrefix + s.source.Name())
}
