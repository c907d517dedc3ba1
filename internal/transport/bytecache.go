package transport

import (
	"context"
	"log/slog"

	"github.com/Borislavv/go-ash-feed/config"
	"github.com/Borislavv/go-ash-feed/internal/images"
	"github.com/allegro/bigcache/v3"
	"github.com/pkg/errors"
)

// CachingFetcher keeps raw response bytes in a bigcache in front of another fetcher,
// so an image evicted from the decoded cache can be rebuilt without a network round trip.
// Failures are never cached.
type CachingFetcher struct {
	next   images.Fetcher
	cache  *bigcache.BigCache
	logger *slog.Logger
}

func NewCachingFetcher(ctx context.Context, cfg *config.ByteCacheCfg, next images.Fetcher, logger *slog.Logger) (*CachingFetcher, error) {
	bc := bigcache.DefaultConfig(cfg.LifeWindow)
	bc.HardMaxCacheSize = cfg.SizeMB
	bc.Verbose = false
	if cfg.MaxEntrySize > 0 {
		bc.MaxEntrySize = cfg.MaxEntrySize
	}

	cache, err := bigcache.New(ctx, bc)
	if err != nil {
		return nil, errors.Wrap(err, "init byte cache")
	}
	return &CachingFetcher{next: next, cache: cache, logger: logger}, nil
}

func (f *CachingFetcher) Fetch(ctx context.Context, url string) ([]byte, error) {
	if data, err := f.cache.Get(url); err == nil {
		return data, nil
	}

	data, err := f.next.Fetch(ctx, url)
	if err != nil {
		return nil, err
	}
	if err = f.cache.Set(url, data); err != nil {
		f.logger.Warn("byte cache: failed to store response", "url", url, "size", len(data), "err", err)
	}
	return data, nil
}

// Stats returns the cumulative hit and miss counters of the byte cache.
func (f *CachingFetcher) Stats() (hits, misses int64) {
	s := f.cache.Stats()
	return s.Hits, s.Misses
}

func (f *CachingFetcher) Len() int { return f.cache.Len() }

func (f *CachingFetcher) Capacity() int { return f.cache.Capacity() }

func (f *CachingFetcher) Close() error {
	return f.cache.Close()
}
