package providers

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"certgen/internal/structures"
)

type MetricsProviderInterface interface {
	IncCertificatesIssued()
	IncVerifications(verdict, reason string)
	IncRemoteFallbacks(operation string)
	IncCacheHits()
	IncCacheMisses()
	ObserveStoreDuration(operation string, duration time.Duration)
	IncBatchItems(kind, status string)
	RegisterCollector(c prometheus.Collector)
	Flush() error
}

// MetricsProvider collects counters for a single CLI invocation and writes them
// to a node_exporter textfile on Flush.
type MetricsProvider struct {
	registry           *prometheus.Registry
	textfile           string
	certificatesIssued prometheus.Counter
	verifications      *prometheus.CounterVec
	remoteFallbacks    *prometheus.CounterVec
	cacheHits          prometheus.Counter
	cacheMisses        prometheus.Counter
	storeDuration      *prometheus.HistogramVec
	batchItems         *prometheus.CounterVec
}

func (m *MetricsProvider) IncCertificatesIssued() {
	m.certificatesIssued.Inc()
}

func (m *MetricsProvider) IncVerifications(verdict, reason string) {
	m.verifications.WithLabelValues(verdict, reason).Inc()
}

func (m *MetricsProvider) IncRemoteFallbacks(operation string) {
	m.remoteFallbacks.WithLabelValues(operation).Inc()
}

func (m *MetricsProvider) IncCacheHits() {
	m.cacheHits.Inc()
}

func (m *MetricsProvider) IncCacheMisses() {
	m.cacheMisses.Inc()
}

func (m *MetricsProvider) ObserveStoreDuration(operation string, duration time.Duration) {
	m.storeDuration.WithLabelValues(operation).Observe(duration.Seconds())
}

func (m *MetricsProvider) IncBatchItems(kind, status string) {
	m.batchItems.WithLabelValues(kind, status).Inc()
}

// RegisterCollector adds an external collector, such as a client pool, to the
// textfile output. Duplicate registrations are ignored.
func (m *MetricsProvider) RegisterCollector(c prometheus.Collector) {
	_ = m.registry.Register(c)
}

func (m *MetricsProvider) Flush() error {
	if err := prometheus.WriteToTextfile(m.textfile, m.registry); err != nil {
		return fmt.Errorf("write metrics textfile: %w", err)
	}
	return nil
}

func NewMetricsProvider(conf *structures.Config) MetricsProviderInterface {
	if !conf.Metrics.Enabled {
		return &noopMetrics{}
	}

	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &MetricsProvider{
		registry: reg,
		textfile: conf.Metrics.Textfile,

		certificatesIssued: factory.NewCounter(prometheus.CounterOpts{
			Name: "certgen_certificates_issued_total",
			Help: "Total number of certificates issued",
		}),

		verifications: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "certgen_verifications_total",
			Help: "Total number of verifications by verdict and reason",
		}, []string{"verdict", "reason"}),

		remoteFallbacks: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "certgen_remote_fallbacks_total",
			Help: "Total number of operations served by the local store because the remote store failed",
		}, []string{"operation"}),

		cacheHits: factory.NewCounter(prometheus.CounterOpts{
			Name: "certgen_cache_hits_total",
			Help: "Total number of record cache hits",
		}),

		cacheMisses: factory.NewCounter(prometheus.CounterOpts{
			Name: "certgen_cache_misses_total",
			Help: "Total number of record cache misses",
		}),

		storeDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "certgen_store_operation_duration_seconds",
			Help:    "Duration of record store operations in seconds",
			Buckets: prometheus.DefBuckets,
		}, []string{"operation"}),

		batchItems: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "certgen_batch_items_total",
			Help: "Total number of processed batch items by kind and status",
		}, []string{"kind", "status"}),
	}
}

// noopMetrics is a no-op implementation for when metrics are disabled.
type noopMetrics struct{}

func (n *noopMetrics) IncCertificatesIssued()                          {}
func (n *noopMetrics) IncVerifications(_, _ string)                    {}
func (n *noopMetrics) IncRemoteFallbacks(_ string)                     {}
func (n *noopMetrics) IncCacheHits()                                   {}
func (n *noopMetrics) IncCacheMisses()                                 {}
func (n *noopMetrics) ObserveStoreDuration(_ string, _ time.Duration) {}
func (n *noopMetrics) IncBatchItems(_, _ string)                       {}
func (n *noopMetrics) RegisterCollector(_ prometheus.Collector)        {}
func (n *noopMetrics) Flush() error                                    { return nil }
