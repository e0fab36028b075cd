// Package metrics exposes Prometheus instrumentation for the engine.
//
// A nil *Metrics is valid and records nothing, so components can hold one
// unconditionally.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "docsift"

// Metrics holds the engine's collectors.
type Metrics struct {
	CacheRequests      *prometheus.CounterVec
	CacheEvictions     *prometheus.CounterVec
	Extractions        *prometheus.CounterVec
	ExtractionDuration *prometheus.HistogramVec
	OCRInvocations     prometheus.Counter
	IndexBuilds        *prometheus.CounterVec
	IndexedDocuments   prometheus.Gauge
}

// New creates the collectors and registers them with reg.
// A nil registerer creates unregistered collectors.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		CacheRequests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "cache_requests_total",
				Help:      "Cache lookups by cache and result",
			},
			[]string{"cache", "result"}, // "hit" / "miss"
		),
		CacheEvictions: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "cache_evictions_total",
				Help:      "Cache entries removed by capacity or expiry",
			},
			[]string{"cache", "cause"}, // "capacity" / "expired"
		),
		Extractions: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "extractions_total",
				Help:      "Document extractions by method and reason",
			},
			[]string{"method", "reason"},
		),
		ExtractionDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "extraction_duration_seconds",
				Help:      "Document extraction duration in seconds",
				Buckets:   []float64{0.01, 0.05, 0.25, 1, 5, 15, 30, 60},
			},
			[]string{"method"},
		),
		OCRInvocations: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "ocr_invocations_total",
				Help:      "Documents handed to the OCR engine",
			},
		),
		IndexBuilds: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "index_builds_total",
				Help:      "Index builds by source",
			},
			[]string{"source"}, // "snapshot" / "rebuild"
		),
		IndexedDocuments: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "index_documents",
				Help:      "Documents in the live index",
			},
		),
	}

	if reg != nil {
		reg.MustRegister(
			m.CacheRequests,
			m.CacheEvictions,
			m.Extractions,
			m.ExtractionDuration,
			m.OCRInvocations,
			m.IndexBuilds,
			m.IndexedDocuments,
		)
	}
	return m
}

// CacheHit records a cache hit.
func (m *Metrics) CacheHit(cache string) {
	if m == nil {
		return
	}
	m.CacheRequests.WithLabelValues(cache, "hit").Inc()
}

// CacheMiss records a cache miss.
func (m *Metrics) CacheMiss(cache string) {
	if m == nil {
		return
	}
	m.CacheRequests.WithLabelValues(cache, "miss").Inc()
}

// CacheEvicted records an entry removed for cause.
func (m *Metrics) CacheEvicted(cache, cause string) {
	if m == nil {
		return
	}
	m.CacheEvictions.WithLabelValues(cache, cause).Inc()
}

// Extraction records one finished extraction.
func (m *Metrics) Extraction(method, reason string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.Extractions.WithLabelValues(method, reason).Inc()
	m.ExtractionDuration.WithLabelValues(method).Observe(elapsed.Seconds())
}

// OCRInvoked records a document handed to OCR.
func (m *Metrics) OCRInvoked() {
	if m == nil {
		return
	}
	m.OCRInvocations.Inc()
}

// IndexBuilt records a completed build and the resulting document count.
func (m *Metrics) IndexBuilt(source string, documents int) {
	if m == nil {
		return
	}
	m.IndexBuilds.WithLabelValues(source).Inc()
	m.IndexedDocuments.Set(float64(documents))
}
