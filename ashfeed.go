// Package ashfeed wires the reviews core together: an expiring image cache, the image
// fetch pipeline on top of it, and the paginated review feed. Every component is created
// by New and owned by the returned Core; nothing is process-global.
package ashfeed

import (
	"context"
	"log/slog"
	"sync"

	"github.com/Borislavv/go-ash-feed/config"
	"github.com/Borislavv/go-ash-feed/internal/cache"
	"github.com/Borislavv/go-ash-feed/internal/dispatch"
	"github.com/Borislavv/go-ash-feed/internal/evictor"
	"github.com/Borislavv/go-ash-feed/internal/feed"
	"github.com/Borislavv/go-ash-feed/internal/images"
	"github.com/Borislavv/go-ash-feed/internal/metrics"
	"github.com/Borislavv/go-ash-feed/internal/shared/cachedtime"
	"github.com/Borislavv/go-ash-feed/internal/shared/hash"
	"github.com/Borislavv/go-ash-feed/internal/telemetry"
	"github.com/Borislavv/go-ash-feed/internal/transport"
	"github.com/Borislavv/go-ash-feed/model"
	"github.com/benbjohnson/clock"
	"github.com/prometheus/client_golang/prometheus"
)

const imagesCacheName = "images"

type (
	Fetcher    = images.Fetcher
	PageSource = feed.PageSource
	Image      = images.Image
	FeedState  = model.FeedState
	Executor   = dispatch.Executor
)

type Option func(*options)

type options struct {
	fetcher    Fetcher
	source     PageSource
	delivery   Executor
	clock      clock.Clock
	registerer prometheus.Registerer
}

// WithFetcher replaces the HTTP byte fetcher built from the transport config.
func WithFetcher(f Fetcher) Option { return func(o *options) { o.fetcher = f } }

// WithPageSource replaces the HTTP page source built from the transport config.
func WithPageSource(s PageSource) Option { return func(o *options) { o.source = s } }

// WithDelivery makes completions run on the given executor instead of an internal serial queue.
func WithDelivery(e Executor) Option { return func(o *options) { o.delivery = e } }

// WithClock replaces the time source of the cache and of the background workers.
func WithClock(c clock.Clock) Option { return func(o *options) { o.clock = c } }

// WithRegisterer registers the Prometheus collectors on r.
func WithRegisterer(r prometheus.Registerer) Option { return func(o *options) { o.registerer = r } }

// Core is the composition root. Close releases everything it started.
type Core struct {
	Cache   *cache.Cache[string, *Image]
	Images  *images.Provider
	Feed    *feed.Feed
	Metrics *metrics.Metrics

	cancel    context.CancelFunc
	queue     *dispatch.Queue
	evictor   evictor.Evictor
	telemetry *telemetry.Logs
	byteCache *transport.CachingFetcher
	closeOnce sync.Once
}

func New(ctx context.Context, cfg *config.Config, logger *slog.Logger, opts ...Option) (*Core, error) {
	cfg.AdjustConfig()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	o := &options{}
	for _, opt := range opts {
		opt(o)
	}

	ctx, cancel := context.WithCancel(ctx)
	c := &Core{cancel: cancel, Metrics: metrics.New(o.registerer)}

	if o.source == nil {
		src, err := transport.NewHTTPPageSource(&cfg.Transport, transport.NewClient(&cfg.Transport))
		if err != nil {
			cancel()
			return nil, err
		}
		o.source = src
	}
	if o.fetcher == nil {
		var err error
		if o.fetcher, c.byteCache, err = newHTTPFetcher(ctx, &cfg.Transport, logger); err != nil {
			cancel()
			return nil, err
		}
	}

	delivery := o.delivery
	if delivery == nil {
		c.queue = dispatch.NewQueue(ctx, logger)
		delivery = c.queue
	}

	tick := o.clock
	if tick == nil {
		tick = clock.New()
	}
	var now cache.Clock = tick
	if o.clock == nil && cfg.Cache.DB.CacheTimeEnabled {
		now = cachedtime.New(ctx, cachedtime.DefaultResolution)
	}

	c.Cache = cache.New[string, *Image](&cfg.Cache, now, hash.String, (*Image).Weight)
	c.evictor = evictor.New(ctx, cfg.Cache.Eviction, logger, tick, c.Cache)
	c.telemetry = telemetry.New(ctx, imagesCacheName, &cfg.Cache, logger, tick, c.Cache, c.evictor, c.Metrics)
	c.Images = images.NewProvider(ctx, &cfg.Images, c.Cache, o.fetcher, delivery, logger, c.Metrics)
	c.Feed = feed.New(ctx, &cfg.Feed, o.source, delivery, logger, c.Metrics)

	return c, nil
}

// Close stops the feed, the image provider and the background workers, then drains the
// delivery queue. It is safe to call more than once.
func (c *Core) Close() error {
	c.closeOnce.Do(func() {
		_ = c.Feed.Close()
		_ = c.Images.Close()
		_ = c.telemetry.Close()
		_ = c.evictor.Close()
		if c.byteCache != nil {
			_ = c.byteCache.Close()
		}
		if c.queue != nil {
			_ = c.queue.Close()
		}
		c.cancel()
	})
	return nil
}

func newHTTPFetcher(ctx context.Context, cfg *config.Transport, logger *slog.Logger) (Fetcher, *transport.CachingFetcher, error) {
	var f Fetcher = transport.NewHTTPFetcher(cfg, transport.NewClient(cfg), logger)
	if !cfg.ByteCache.Enabled() {
		return f, nil, nil
	}
	cf, err := transport.NewCachingFetcher(ctx, cfg.ByteCache, f, logger)
	if err != nil {
		return nil, nil, err
	}
	return cf, cf, nil
}
