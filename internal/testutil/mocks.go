package testutil

import (
	"context"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"certgen/internal/models"
	"certgen/internal/providers"
)

// MockLogger implements providers.Logger and records calls.
type MockLogger struct {
	mu   sync.Mutex
	Logs []LogEntry
}

type LogEntry struct {
	Level  string
	Type   providers.TypeEnum
	Format string
	Args   []interface{}
}

func (m *MockLogger) record(level string, t providers.TypeEnum, format string, args ...interface{}) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Logs = append(m.Logs, LogEntry{Level: level, Type: t, Format: format, Args: args})
}

func (m *MockLogger) Errorf(t providers.TypeEnum, format string, args ...interface{}) {
	m.record("error", t, format, args...)
}
func (m *MockLogger) Warnf(t providers.TypeEnum, format string, args ...interface{}) {
	m.record("warn", t, format, args...)
}
func (m *MockLogger) Debugf(t providers.TypeEnum, format string, args ...interface{}) {
	m.record("debug", t, format, args...)
}
func (m *MockLogger) Infof(t providers.TypeEnum, format string, args ...interface{}) {
	m.record("info", t, format, args...)
}
func (m *MockLogger) Fatalf(t providers.TypeEnum, format string, args ...interface{}) {
	m.record("fatal", t, format, args...)
}
func (m *MockLogger) Close() {}

// HasLevel reports whether at least one entry was logged at level.
func (m *MockLogger) HasLevel(level string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, l := range m.Logs {
		if l.Level == level {
			return true
		}
	}
	return false
}

// MockCache implements providers.CacheProviderInterface.
type MockCache struct {
	mu     sync.Mutex
	Data   map[string][]byte
	Purged int
}

func NewMockCache() *MockCache {
	return &MockCache{Data: make(map[string][]byte)}
}

func (m *MockCache) Get(key string) ([]byte, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	val, ok := m.Data[key]
	return val, ok
}

func (m *MockCache) Set(key string, value []byte) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Data[key] = value
}

func (m *MockCache) Purge() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Purged++
	m.Data = make(map[string][]byte)
}

// MockCompressor implements store.CompressorInterface with injectable behavior.
type MockCompressor struct {
	CompressFn   func([]byte) ([]byte, error)
	DecompressFn func([]byte) ([]byte, error)
	Closed       bool
}

func (m *MockCompressor) Compress(val []byte) ([]byte, error) {
	if m.CompressFn != nil {
		return m.CompressFn(val)
	}
	// Default: return as-is (identity)
	out := make([]byte, len(val))
	copy(out, val)
	return out, nil
}

func (m *MockCompressor) Decompress(val []byte) ([]byte, error) {
	if m.DecompressFn != nil {
		return m.DecompressFn(val)
	}
	out := make([]byte, len(val))
	copy(out, val)
	return out, nil
}

func (m *MockCompressor) Close() { m.Closed = true }

// MockMetrics implements providers.MetricsProviderInterface with plain counters.
type MockMetrics struct {
	mu              sync.Mutex
	Issued          int
	Verifications   map[string]int // key: "verdict/reason"
	RemoteFallbacks map[string]int
	CacheHits       int
	CacheMisses     int
	StoreOps        map[string]int
	BatchItems      map[string]int // key: "kind/status"
	Collectors      []prometheus.Collector
	Flushed         int
	FlushErr        error
}

func NewMockMetrics() *MockMetrics {
	return &MockMetrics{
		Verifications:   make(map[string]int),
		RemoteFallbacks: make(map[string]int),
		StoreOps:        make(map[string]int),
		BatchItems:      make(map[string]int),
	}
}

func (m *MockMetrics) IncCertificatesIssued() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Issued++
}

func (m *MockMetrics) IncVerifications(verdict, reason string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Verifications[verdict+"/"+reason]++
}

func (m *MockMetrics) IncRemoteFallbacks(operation string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.RemoteFallbacks[operation]++
}

func (m *MockMetrics) IncCacheHits() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.CacheHits++
}

func (m *MockMetrics) IncCacheMisses() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.CacheMisses++
}

func (m *MockMetrics) ObserveStoreDuration(operation string, _ time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.StoreOps[operation]++
}

func (m *MockMetrics) IncBatchItems(kind, status string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.BatchItems[kind+"/"+status]++
}

func (m *MockMetrics) RegisterCollector(c prometheus.Collector) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Collectors = append(m.Collectors, c)
}

func (m *MockMetrics) Flush() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Flushed++
	return m.FlushErr
}

// MockRenderer implements render.RendererInterface without touching the filesystem.
type MockRenderer struct {
	mu       sync.Mutex
	Rendered []*models.CertificateRecord
	Err      error
}

func (m *MockRenderer) Render(_ context.Context, rec *models.CertificateRecord) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return "", m.Err
	}
	m.Rendered = append(m.Rendered, rec)
	return rec.FilePath, nil
}
