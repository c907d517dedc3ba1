// Package telemetry periodically reports cache activity as structured log lines
// and publishes the same numbers to Prometheus.
package telemetry

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/Borislavv/go-ash-feed/config"
	"github.com/Borislavv/go-ash-feed/internal/evictor"
	"github.com/Borislavv/go-ash-feed/internal/metrics"
	"github.com/Borislavv/go-ash-feed/internal/shared/bytes"
	"github.com/benbjohnson/clock"
)

type Logger interface {
	Interval() time.Duration
	Close() error
}

type Logs struct {
	ctx      context.Context
	cancel   context.CancelFunc
	name     string
	cfg      *config.Cache
	logger   *slog.Logger
	clock    clock.Clock
	cache    Source
	evictor  evictor.Evictor
	metrics  *metrics.Metrics
	interval time.Duration
	wg       sync.WaitGroup
}

// New starts the reporting loop for the cache called name. The loop runs when stat logs are
// enabled or a metrics sink is given; otherwise New returns an idle Logs.
func New(
	ctx context.Context,
	name string,
	cfg *config.Cache,
	logger *slog.Logger,
	clk clock.Clock,
	cache Source,
	evictor evictor.Evictor,
	m *metrics.Metrics,
) *Logs {
	if clk == nil {
		clk = clock.New()
	}
	ctx, cancel := context.WithCancel(ctx)
	return (&Logs{
		ctx:      ctx,
		cancel:   cancel,
		name:     name,
		cfg:      cfg,
		logger:   logger,
		clock:    clk,
		cache:    cache,
		evictor:  evictor,
		metrics:  m,
		interval: cfg.DB.TelemetryLogsInterval,
	}).run()
}

func (l *Logs) Interval() time.Duration {
	return l.interval
}

func (l *Logs) Close() error {
	l.cancel()
	l.wg.Wait()
	return nil
}

func (l *Logs) run() *Logs {
	if l.interval > 0 && (l.cfg.DB.IsTelemetryLogsEnabled || l.metrics != nil) {
		l.wg.Go(l.loop)
	}
	return l
}

func (l *Logs) loop() {
	ticker := l.clock.Ticker(l.interval)
	defer ticker.Stop()

	var softLimit, hardLimit = "INF", "INF"
	if l.cfg.Eviction.Enabled() && l.cfg.DB.SizeBytes > 0 {
		softLimit = bytes.FmtMem(uint64(l.cfg.Eviction.SoftMemoryLimitBytes))
	}
	if l.cfg.DB.SizeBytes > 0 {
		hardLimit = bytes.FmtMem(uint64(l.cfg.DB.SizeBytes))
	}

	s := newSampler(l.cache, l.evictor)
	prev := s.snapshot()

	for {
		select {
		case <-l.ctx.Done():
			return

		case <-ticker.C:
			cur := s.snapshot()
			d := deltaSnapshot(prev, cur)
			prev = cur

			memBytes := l.cache.Mem()
			items := l.cache.Len()

			l.metrics.UpdateCacheUsage(l.name, items, memBytes)
			l.metrics.AddCacheEvicted(l.name, "expired", int64(d.expired))
			l.metrics.AddCacheEvicted(l.name, "hard", int64(d.hardEvictedItems))
			l.metrics.AddCacheEvicted(l.name, "soft", int64(d.softEvictedItems))

			if !l.cfg.DB.IsTelemetryLogsEnabled {
				continue
			}
			common := []any{"cache", l.name, "interval", l.interval.String()}

			if l.cfg.Eviction.Enabled() {
				l.logger.Info("soft_evictor",
					append(common,
						"scans", int64(d.softScans),
						"hits", int64(d.softHits),
						"freed_items", int64(d.softEvictedItems),
						"freed_bytes", bytes.FmtMem(d.softEvictedBytes),
					)...,
				)
			}

			if d.hardEvictedItems > 0 || d.hardEvictedBytes > 0 {
				l.logger.Info("hard_evictor",
					append(common,
						"freed_items", int64(d.hardEvictedItems),
						"freed_bytes", bytes.FmtMem(d.hardEvictedBytes),
					)...,
				)
			}

			l.logger.Info("storage",
				append(common,
					"size", bytes.FmtMem(uint64(max(memBytes, 0))),
					"entries", items,
					"hits", int64(d.hits),
					"misses", int64(d.misses),
					"expired", int64(d.expired),
					"soft_limit", softLimit,
					"hard_limit", hardLimit,
				)...,
			)
		}
	}
}
