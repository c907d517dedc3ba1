// Package images resolves image locators to decoded, cacheable artifacts.
//
// A Provider consults its cache first and only goes to the network on a miss.
// Concurrent misses for the same identity share one remote fetch, the number of
// fetch+decode jobs is bounded, and every result is delivered through the
// configured executor.
package images

import (
	"context"
	"log/slog"
	"net/url"
	"sync"

	"github.com/Borislavv/go-ash-feed/config"
	"github.com/Borislavv/go-ash-feed/internal/cache"
	"github.com/Borislavv/go-ash-feed/internal/dispatch"
	"github.com/Borislavv/go-ash-feed/internal/metrics"
	"github.com/Borislavv/go-ash-feed/internal/shared/rate"
	"github.com/Borislavv/go-ash-feed/model"
	"golang.org/x/sync/semaphore"
	"golang.org/x/sync/singleflight"
)

type Provider struct {
	ctx    context.Context
	cancel context.CancelFunc

	cfg       *config.Images
	cache     cache.Cacher[string, *Image]
	fetcher   Fetcher
	delivery  dispatch.Executor
	logger    *slog.Logger
	metrics   *metrics.Metrics
	transform transformer

	limiter *rate.Limiter
	workers *semaphore.Weighted
	flights singleflight.Group

	mu     sync.Mutex
	closed bool
	wg     sync.WaitGroup
}

// NewProvider builds a provider whose shared fetches live until ctx is done or Close is called.
func NewProvider(
	ctx context.Context,
	cfg *config.Images,
	cache cache.Cacher[string, *Image],
	fetcher Fetcher,
	delivery dispatch.Executor,
	logger *slog.Logger,
	m *metrics.Metrics,
) *Provider {
	ctx, cancel := context.WithCancel(ctx)
	p := &Provider{
		ctx:       ctx,
		cancel:    cancel,
		cfg:       cfg,
		cache:     cache,
		fetcher:   fetcher,
		delivery:  delivery,
		logger:    logger,
		metrics:   m,
		transform: newTransformer(cfg),
		limiter:   rate.NewLimiter(ctx, cfg.Rate),
		workers:   semaphore.NewWeighted(int64(cfg.Workers)),
	}
	logger.Info("image provider is running",
		"workers", cfg.Workers, "rate", cfg.Rate, "transform", cfg.Transform.Mode, "key_includes_size", cfg.KeyIncludesSize)
	return p
}

// Load resolves key to an image, blocking until it is available, it failed, or ctx is done.
// A cancelled ctx abandons the wait only: a shared fetch keeps running for the other waiters
// and still populates the cache.
func (p *Provider) Load(ctx context.Context, key string, targetSize *model.Size) (*Image, error) {
	if p.ctx.Err() != nil {
		return nil, ErrClosed
	}
	id, err := p.check(key, targetSize)
	if err != nil {
		return nil, err
	}
	if img, ok := p.lookup(id); ok {
		return img, nil
	}
	return p.await(ctx, id, key, targetSize)
}

// Fetch is the callback form of Load. onComplete always runs on the delivery executor,
// cache hits included, and receives nil on any failure. If ctx is done before delivery,
// the result is dropped and onComplete is not called.
func (p *Provider) Fetch(ctx context.Context, key string, targetSize *model.Size, onComplete func(*Image)) {
	id, err := p.check(key, targetSize)
	if err != nil {
		p.deliver(ctx, nil, onComplete)
		return
	}
	if img, ok := p.lookup(id); ok {
		p.deliver(ctx, img, onComplete)
		return
	}

	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		p.deliver(ctx, nil, onComplete)
		return
	}
	p.wg.Go(func() {
		img, err := p.await(ctx, id, key, targetSize)
		if err != nil {
			img = nil
		}
		p.deliver(ctx, img, onComplete)
	})
	p.mu.Unlock()
}

// check validates key and returns the identity of the request.
func (p *Provider) check(key string, targetSize *model.Size) (string, error) {
	if err := validateKey(key); err != nil {
		p.metrics.RecordImageFailure(KindInvalidKey.String())
		return "", newError(KindInvalidKey, key, err)
	}
	return p.identity(key, targetSize), nil
}

func (p *Provider) lookup(id string) (*Image, bool) {
	img, ok := p.cache.Lookup(id)
	if ok {
		p.metrics.RecordImageHit()
	} else {
		p.metrics.RecordImageMiss()
	}
	return img, ok
}

// await joins or starts the shared flight for id and waits for it or for ctx.
func (p *Provider) await(ctx context.Context, id, key string, targetSize *model.Size) (*Image, error) {
	var leader bool
	ch := p.flights.DoChan(id, func() (any, error) {
		leader = true
		return p.fetch(id, key, targetSize)
	})

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if !leader {
			p.metrics.RecordImageJoined()
		}
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.(*Image), nil
	}
}

// Close cancels in-flight fetches and waits for pending callback deliveries to be submitted.
func (p *Provider) Close() error {
	p.mu.Lock()
	p.closed = true
	p.mu.Unlock()

	p.cancel()
	p.wg.Wait()
	p.logger.Info("image provider is stopped")
	return nil
}

func (p *Provider) deliver(ctx context.Context, img *Image, onComplete func(*Image)) {
	p.delivery.Submit(func() {
		if ctx.Err() != nil {
			return
		}
		onComplete(img)
	})
}

// fetch is the body of a shared flight. It runs under the provider lifetime,
// not under the context of whichever caller happened to start it.
func (p *Provider) fetch(id, key string, targetSize *model.Size) (*Image, error) {
	// a flight which finished between the caller's lookup and this one already filled the slot
	if img, ok := p.cache.Peek(id); ok {
		return img, nil
	}

	ctx := p.ctx
	if p.cfg.FetchTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.cfg.FetchTimeout)
		defer cancel()
	}

	if err := p.workers.Acquire(ctx, 1); err != nil {
		return nil, p.fail(KindTransport, key, err)
	}
	defer p.workers.Release(1)

	if err := p.limiter.Wait(ctx); err != nil {
		return nil, p.fail(KindTransport, key, err)
	}

	stop := p.metrics.TimeImageFetch()
	data, err := p.fetcher.Fetch(ctx, key)
	if err != nil {
		stop()
		return nil, p.fail(KindTransport, key, err)
	}

	img, err := p.transform.apply(key, data, targetSize)
	stop()
	if err != nil {
		return nil, p.fail(KindDecode, key, err)
	}

	p.cache.Insert(id, img)
	return img, nil
}

func (p *Provider) fail(kind Kind, key string, err error) error {
	p.metrics.RecordImageFailure(kind.String())
	p.logger.Debug("image fetch failed", "kind", kind.String(), "key", key, "err", err)
	return newError(kind, key, err)
}

// identity is the cache and in-flight key of a request.
func (p *Provider) identity(key string, targetSize *model.Size) string {
	if !p.cfg.KeyIncludesSize || targetSize == nil || targetSize.IsZero() {
		return key
	}
	return key + "#" + targetSize.String()
}

// validateKey accepts absolute locators: a scheme plus a host or a path.
func validateKey(key string) error {
	u, err := url.Parse(key)
	if err != nil {
		return err
	}
	if u.Scheme == "" {
		return errMissingScheme
	}
	if u.Host == "" && u.Path == "" && u.Opaque == "" {
		return errMissingLocation
	}
	return nil
}
