// Package metrics exposes Prometheus collectors for the cache, the image pipeline and the feed.
// Collectors are registered on an injected registerer so several instances can coexist.
// A nil *Metrics is valid and records nothing.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "ashfeed"

type Metrics struct {
	ImageRequests      *prometheus.CounterVec
	ImageJoined        prometheus.Counter
	ImageFetches       prometheus.Counter
	ImageFailures      *prometheus.CounterVec
	ImageFetchDuration prometheus.Histogram

	FeedPageLoads *prometheus.CounterVec
	FeedItems     prometheus.Gauge

	CacheEntries *prometheus.GaugeVec
	CacheBytes   *prometheus.GaugeVec
	CacheEvicted *prometheus.CounterVec
}

// New registers all collectors on reg. A nil reg gets a private registry.
func New(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.NewRegistry()
	}
	f := promauto.With(reg)

	return &Metrics{
		ImageRequests: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "image_requests_total",
			Help:      "Image requests by cache outcome",
		}, []string{"result"}),
		ImageJoined: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "image_joined_total",
			Help:      "Image requests which joined an in-flight fetch instead of starting one",
		}),
		ImageFetches: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "image_remote_fetches_total",
			Help:      "Remote byte fetches performed by the image pipeline",
		}),
		ImageFailures: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "image_failures_total",
			Help:      "Image pipeline failures by kind",
		}, []string{"kind"}),
		ImageFetchDuration: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "image_fetch_duration_seconds",
			Help:      "Duration of remote fetch plus transform",
			Buckets:   prometheus.DefBuckets,
		}),
		FeedPageLoads: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "feed_page_loads_total",
			Help:      "Feed page load completions by result",
		}, []string{"result"}),
		FeedItems: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "feed_items",
			Help:      "Items currently held by the feed",
		}),
		CacheEntries: f.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "cache_entries",
			Help:      "Entries held by a cache",
		}, []string{"cache"}),
		CacheBytes: f.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "cache_used_bytes",
			Help:      "Approximate bytes held by a cache",
		}, []string{"cache"}),
		CacheEvicted: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cache_evicted_total",
			Help:      "Entries evicted from a cache by reason",
		}, []string{"cache", "reason"}),
	}
}

func (m *Metrics) RecordImageHit() {
	if m != nil {
		m.ImageRequests.WithLabelValues("hit").Inc()
	}
}

func (m *Metrics) RecordImageMiss() {
	if m != nil {
		m.ImageRequests.WithLabelValues("miss").Inc()
	}
}

func (m *Metrics) RecordImageJoined() {
	if m != nil {
		m.ImageJoined.Inc()
	}
}

// TimeImageFetch counts a remote fetch and returns the function stopping its timer.
func (m *Metrics) TimeImageFetch() func() {
	if m == nil {
		return func() {}
	}
	m.ImageFetches.Inc()
	timer := prometheus.NewTimer(m.ImageFetchDuration)
	return func() {
		timer.ObserveDuration()
	}
}

func (m *Metrics) RecordImageFailure(kind string) {
	if m != nil {
		m.ImageFailures.WithLabelValues(kind).Inc()
	}
}

func (m *Metrics) RecordPageLoad(result string, items int) {
	if m != nil {
		m.FeedPageLoads.WithLabelValues(result).Inc()
		m.FeedItems.Set(float64(items))
	}
}

// UpdateCacheUsage publishes the current size of the named cache.
func (m *Metrics) UpdateCacheUsage(cache string, entries, bytes int64) {
	if m != nil {
		m.CacheEntries.WithLabelValues(cache).Set(float64(entries))
		m.CacheBytes.WithLabelValues(cache).Set(float64(bytes))
	}
}

func (m *Metrics) AddCacheEvicted(cache, reason string, items int64) {
	if m != nil && items > 0 {
		m.CacheEvicted.WithLabelValues(cache, reason).Add(float64(items))
	}
}
