// Package evictor runs the background soft-limit eviction of a cache.
package evictor

import (
	"context"
	"errors"
	"log/slog"
	"runtime"
	"sync"
	"time"

	"github.com/Borislavv/go-ash-feed/config"
	"github.com/benbjohnson/clock"
)

const defaultEvictionSpinsBackoff = 2048

var ErrEvictorNotResponded = errors.New("evictor not responded")

// Target is the storage the evictor keeps under its soft limit.
type Target interface {
	Len() int64
	SoftMemoryLimitOvercome() bool
	SoftEvictUntilWithinLimit(backoff int64) (freedBytes, evictedItems int64)
}

type Evictor interface {
	ForceCall(timeout time.Duration) error
	Metrics() (scans, hits, evictedItems, evictedBytes int64)
	Close() error
}

type EvictionWorker struct {
	ctx      context.Context
	cancel   context.CancelFunc
	cfg      *config.EvictionCfg
	logger   *slog.Logger
	clock    clock.Clock
	target   Target
	counters *evictorCounters
	invokeCh chan struct{}
	wg       sync.WaitGroup
}

// New starts an eviction worker over target, or returns a no-op when eviction is not configured.
func New(
	ctx context.Context,
	cfg *config.EvictionCfg,
	logger *slog.Logger,
	clk clock.Clock,
	target Target,
) Evictor {
	if !cfg.Enabled() {
		return NoOpEvictor{}
	}
	if clk == nil {
		clk = clock.New()
	}

	ctx, cancel := context.WithCancel(ctx)
	return (&EvictionWorker{
		ctx:      ctx,
		cancel:   cancel,
		cfg:      cfg,
		logger:   logger,
		clock:    clk,
		target:   target,
		counters: newEvictorCounters(),
		invokeCh: make(chan struct{}),
	}).run()
}

// ForceCall hands one eviction pass to a consumer.
func (w *EvictionWorker) ForceCall(timeout time.Duration) error {
	after := w.clock.Timer(timeout)
	defer after.Stop()

	select {
	case <-w.ctx.Done():
	case w.invokeCh <- struct{}{}:
	case <-after.C:
		return ErrEvictorNotResponded
	}
	return nil
}

func (w *EvictionWorker) Metrics() (scans, hits, evictedItems, evictedBytes int64) {
	return w.counters.snapshot()
}

// Close stops the workers and waits for them to return.
func (w *EvictionWorker) Close() error {
	w.cancel()
	w.wg.Wait()
	return nil
}

func (w *EvictionWorker) run() *EvictionWorker {
	w.logger.Info("evictor is running", "calls_per_sec", w.cfg.CallsPerSec, "backoff_spins", w.cfg.BackoffSpinsPerCall)

	for i := 0; i < runtime.GOMAXPROCS(0); i++ {
		w.wg.Go(w.consumer)
	}
	w.wg.Go(w.provider)
	go func() {
		w.wg.Wait()
		w.logger.Info("evictor is stopped")
	}()

	return w
}

// provider - calls one of evictor workers when the soft limit is overcome.
func (w *EvictionWorker) provider() {
	var evictionCallsPerSec = w.cfg.CallsPerSec
	if w.cfg.CallsPerSec <= 0 {
		evictionCallsPerSec = 1
	}

	tick := w.clock.Ticker(time.Second / time.Duration(evictionCallsPerSec))
	defer tick.Stop()

	for {
		select {
		case <-w.ctx.Done():
			return
		case <-tick.C:
			if w.target.Len() == 0 {
				continue
			}
			w.counters.scans.Add(1)
			if w.target.SoftMemoryLimitOvercome() {
				select {
				case <-w.ctx.Done():
					return
				case w.invokeCh <- struct{}{}:
					w.counters.scanHits.Add(1)
				}
			}
		}
	}
}

// consumer - evicts entries until within the soft limit or backoff by spins.
func (w *EvictionWorker) consumer() {
	var evictionSpinsBackoff = w.cfg.BackoffSpinsPerCall
	if w.cfg.BackoffSpinsPerCall <= 0 {
		evictionSpinsBackoff = defaultEvictionSpinsBackoff
	}

	for {
		select {
		case <-w.ctx.Done():
			return
		case <-w.invokeCh:
			if w.target.Len() > 0 {
				freedBytes, items := w.target.SoftEvictUntilWithinLimit(evictionSpinsBackoff)
				if items > 0 || freedBytes > 0 {
					w.counters.evictedItems.Add(items)
					w.counters.evictedBytes.Add(freedBytes)
				}
			}
		}
	}
}
