package observability

import (
	"fmt"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

type moduleMetrics struct {
	requests  *prometheus.CounterVec
	errors    *prometheus.CounterVec
	latency   *prometheus.HistogramVec
	throttles *prometheus.CounterVec
}

var (
	moduleMetricsOnce sync.Once
	moduleRegistry    *moduleMetrics
)

// ModuleMetrics returns the lazily-initialised registry used to record
// JSON-RPC activity.
func ModuleMetrics() *moduleMetrics {
	moduleMetricsOnce.Do(func() {
		moduleRegistry = &moduleMetrics{
			requests: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: "market",
				Subsystem: "rpc",
				Name:      "requests_total",
				Help:      "Total JSON-RPC requests segmented by method and outcome.",
			}, []string{"method", "outcome"}),
			errors: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: "market",
				Subsystem: "rpc",
				Name:      "errors_total",
				Help:      "Total JSON-RPC errors segmented by method and error code.",
			}, []string{"method", "code"}),
			latency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
				Namespace: "market",
				Subsystem: "rpc",
				Name:      "request_duration_seconds",
				Help:      "Latency distribution for JSON-RPC handlers.",
				Buckets:   prometheus.DefBuckets,
			}, []string{"method"}),
			throttles: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: "market",
				Subsystem: "rpc",
				Name:      "throttles_total",
				Help:      "Count of requests rejected by throttling policies.",
			}, []string{"reason"}),
		}
		prometheus.MustRegister(
			moduleRegistry.requests,
			moduleRegistry.errors,
			moduleRegistry.latency,
			moduleRegistry.throttles,
		)
	})
	return moduleRegistry
}

// Observe records the outcome of a request. code is the JSON-RPC error code,
// or zero on success.
func (m *moduleMetrics) Observe(method string, code int, duration time.Duration) {
	if m == nil {
		return
	}
	if method == "" {
		method = "unknown"
	}
	outcome := "success"
	if code != 0 {
		outcome = "error"
		m.errors.WithLabelValues(method, fmt.Sprintf("%d", code)).Inc()
	}
	m.requests.WithLabelValues(method, outcome).Inc()
	m.latency.WithLabelValues(method).Observe(duration.Seconds())
}

// RecordThrottle increments the throttle counter. Reasons should be stable
// strings such as "rate_limit" so dashboards and alerts remain consistent.
func (m *moduleMetrics) RecordThrottle(reason string) {
	if m == nil {
		return
	}
	if reason == "" {
		reason = "unspecified"
	}
	m.throttles.WithLabelValues(reason).Inc()
}

// MarketMetrics tracks marketplace activity.
type MarketMetrics struct {
	transitions *prometheus.CounterVec
	rejections  *prometheus.CounterVec
	volume      prometheus.Counter
	fees        *prometheus.CounterVec
	active      prometheus.Gauge
}

var (
	marketMetricsOnce sync.Once
	marketRegistry    *MarketMetrics
)

// Market returns the marketplace metrics registry.
func Market() *MarketMetrics {
	marketMetricsOnce.Do(func() {
		marketRegistry = &MarketMetrics{
			transitions: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: "market",
				Subsystem: "engine",
				Name:      "transitions_total",
				Help:      "Committed marketplace transitions segmented by kind.",
			}, []string{"kind"}),
			rejections: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: "market",
				Subsystem: "engine",
				Name:      "rejections_total",
				Help:      "Rejected transaction groups segmented by reason.",
			}, []string{"reason"}),
			volume: prometheus.NewCounter(prometheus.CounterOpts{
				Namespace: "market",
				Subsystem: "engine",
				Name:      "sale_volume_total",
				Help:      "Sum of settled sale prices in base units.",
			}),
			fees: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: "market",
				Subsystem: "engine",
				Name:      "payouts_total",
				Help:      "Settlement payouts in base units segmented by recipient role.",
			}, []string{"role"}),
			active: prometheus.NewGauge(prometheus.GaugeOpts{
				Namespace: "market",
				Subsystem: "engine",
				Name:      "active_listings",
				Help:      "Number of listings currently in custody.",
			}),
		}
		prometheus.MustRegister(
			marketRegistry.transitions,
			marketRegistry.rejections,
			marketRegistry.volume,
			marketRegistry.fees,
			marketRegistry.active,
		)
	})
	return marketRegistry
}

// RecordTransition counts a committed transition of the given kind.
func (m *MarketMetrics) RecordTransition(kind string) {
	if m == nil {
		return
	}
	m.transitions.WithLabelValues(kind).Inc()
}

// RecordRejection counts a rejected group. reason should be the stable error
// name, or "other".
func (m *MarketMetrics) RecordRejection(reason string) {
	if m == nil {
		return
	}
	if reason == "" {
		reason = "other"
	}
	m.rejections.WithLabelValues(reason).Inc()
}

// RecordSale adds a settled sale to the volume and payout counters.
func (m *MarketMetrics) RecordSale(price, platform, royalty, seller uint64) {
	if m == nil {
		return
	}
	m.volume.Add(float64(price))
	m.fees.WithLabelValues("platform").Add(float64(platform))
	m.fees.WithLabelValues("royalty").Add(float64(royalty))
	m.fees.WithLabelValues("seller").Add(float64(seller))
}

// SetActiveListings reports the current number of listings.
func (m *MarketMetrics) SetActiveListings(n int) {
	if m == nil {
		return
	}
	m.active.Set(float64(n))
}
