// Package metrics exposes the Prometheus counters/histograms ancillary
// to the recommendation core (spec §1 calls /api/metrics a "thin
// report... not specified in detail"). Grounded on the teacher's
// internal/services/metrics_collector.go promauto usage, trimmed to the
// handful of signals this spec's components actually produce: recommend
// and feedback latency, cache hit ratio, and guard/rate-limit
// rejections.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Collector wraps the Prometheus collectors this service registers.
type Collector struct {
	RecommendRequests   prometheus.Counter
	RecommendLatency    prometheus.Histogram
	FeedbackRequests    prometheus.Counter
	FeedbackLatency     prometheus.Histogram
	CacheHitRatio       prometheus.Gauge
	GuardRejections     *prometheus.CounterVec
	RateLimitRejections *prometheus.CounterVec
}

// New registers and returns a Collector against the default Prometheus
// registry, the same registry promhttp.Handler serves.
func New() *Collector {
	return &Collector{
		RecommendRequests: promauto.NewCounter(prometheus.CounterOpts{
			Name: "fashion_recommend_requests_total",
			Help: "Total recommend requests processed by the orchestrator.",
		}),
		RecommendLatency: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "fashion_recommend_latency_seconds",
			Help:    "Recommend request latency in seconds.",
			Buckets: prometheus.DefBuckets,
		}),
		FeedbackRequests: promauto.NewCounter(prometheus.CounterOpts{
			Name: "fashion_feedback_requests_total",
			Help: "Total feedback requests processed.",
		}),
		FeedbackLatency: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "fashion_feedback_latency_seconds",
			Help:    "Feedback request latency in seconds.",
			Buckets: prometheus.DefBuckets,
		}),
		CacheHitRatio: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "fashion_recommend_cache_hit_ratio",
			Help: "Recommendation cache hit ratio (hits / (hits+misses)).",
		}),
		GuardRejections: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "fashion_guard_rejections_total",
			Help: "Requests rejected by the idempotency/conflict guard, by kind.",
		}, []string{"kind"}),
		RateLimitRejections: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "fashion_rate_limit_rejections_total",
			Help: "Requests rejected by the rate limiter, by class.",
		}, []string{"class"}),
	}
}

// ObserveRecommend records one recommend request's latency.
func (c *Collector) ObserveRecommend(d time.Duration) {
	c.RecommendRequests.Inc()
	c.RecommendLatency.Observe(d.Seconds())
}

// ObserveFeedback records one feedback request's latency.
func (c *Collector) ObserveFeedback(d time.Duration) {
	c.FeedbackRequests.Inc()
	c.FeedbackLatency.Observe(d.Seconds())
}

// SetCacheHitRatio updates the cache-hit gauge from a hit/miss pair.
func (c *Collector) SetCacheHitRatio(hits, misses int64) {
	total := hits + misses
	if total == 0 {
		c.CacheHitRatio.Set(0)
		return
	}
	c.CacheHitRatio.Set(float64(hits) / float64(total))
}

// IncGuardRejection records one guard rejection of the given kind.
func (c *Collector) IncGuardRejection(kind string) {
	c.GuardRejections.WithLabelValues(kind).Inc()
}

// IncRateLimitRejection records one rate-limit rejection of the given class.
func (c *Collector) IncRateLimitRejection(class string) {
	c.RateLimitRejections.WithLabelValues(class).Inc()
}
