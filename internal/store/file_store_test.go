package store

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/gofrs/flock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"certgen/internal/models"
	"certgen/internal/providers"
	"certgen/internal/structures"
	"certgen/internal/testutil"
)

type noCache struct{}

func (noCache) Get(string) ([]byte, bool) { return nil, false }
func (noCache) Set(string, []byte)        {}
func (noCache) Purge()                    {}

func storeConfig(path string) *structures.Config {
	return &structures.Config{
		Store: structures.StoreConfig{FilePath: path, LockTimeout: time.Second},
	}
}

func newTestFileStore(path string, compressor CompressorInterface) (*FileStore, *testutil.MockLogger) {
	logger := &testutil.MockLogger{}
	return NewFileStore(storeConfig(path), compressor, noCache{}, testutil.NewMockMetrics(), logger), logger
}

func certificateEntry(id, name string) *models.Record {
	return models.NewCertificateEntry(&models.CertificateRecord{
		CertificateID: id,
		RecipientName: name,
		CourseName:    "Python Programming",
		IssueDate:     "December 02, 2025",
		Issuer:        "CertGen",
		Credentials:   models.Credentials{TokenHash: "hash-" + id, Checksum: "0123456789abcdef"},
		CreatedAt:     time.Date(2025, 12, 2, 10, 0, 0, 0, time.UTC),
	})
}

func deviceEntry(deviceID string) *models.Record {
	return models.NewDeviceCleanupEntry(&models.DeviceCleanupRecord{
		DeviceID:          deviceID,
		ActionType:        models.ActionPurge,
		SizeRemoved:       "2 GB",
		Timestamp:         "2025-01-01T00:00:00Z",
		FilesDeleted:      []string{"/tmp/a"},
		FilesDeletedCount: 1,
	})
}

func TestFileStore_AppendAndFind(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "credentials.json")
	s, _ := newTestFileStore(path, PlainCompression{})
	ctx := context.Background()

	require.NoError(t, s.Append(ctx, certificateEntry("CERT-1", "John Doe")))
	require.NoError(t, s.Append(ctx, deviceEntry("dev-1")))
	require.NoError(t, s.Append(ctx, certificateEntry("CERT-2", "Jane Doe")))

	rec, err := s.FindByID(ctx, "CERT-2")
	require.NoError(t, err)
	assert.Equal(t, "Jane Doe", rec.RecipientName)
	assert.Equal(t, "hash-CERT-2", rec.Credentials.TokenHash)

	all, err := s.ListAll(ctx)
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.True(t, all[0].IsCertificate())
	assert.True(t, all[1].IsDeviceCleanup())
	assert.Equal(t, "CERT-2", all[2].Certificate.CertificateID)

	_, err = os.Stat(path + ".tmp")
	assert.True(t, os.IsNotExist(err))
}

func TestFileStore_MissingFileIsEmpty(t *testing.T) {
	s, _ := newTestFileStore(filepath.Join(t.TempDir(), "none.json"), PlainCompression{})

	all, err := s.ListAll(context.Background())
	require.NoError(t, err)
	assert.Empty(t, all)

	_, err = s.FindByID(context.Background(), "CERT-1")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestFileStore_ZeroLengthFileIsEmpty(t *testing.T) {
	path := filepath.Join(t.TempDir(), "credentials.json")
	require.NoError(t, os.WriteFile(path, nil, 0o644))
	s, _ := newTestFileStore(path, PlainCompression{})

	all, err := s.ListAll(context.Background())
	require.NoError(t, err)
	assert.Empty(t, all)

	require.NoError(t, s.Append(context.Background(), certificateEntry("CERT-1", "John Doe")))
	all, err = s.ListAll(context.Background())
	require.NoError(t, err)
	assert.Len(t, all, 1)
}

func TestFileStore_CorruptFileIsAnError(t *testing.T) {
	path := filepath.Join(t.TempDir(), "credentials.json")
	corrupt := []byte(`[{"record_type":"certificate",`)
	require.NoError(t, os.WriteFile(path, corrupt, 0o644))
	s, _ := newTestFileStore(path, PlainCompression{})
	ctx := context.Background()

	_, err := s.ListAll(ctx)
	assert.Error(t, err)

	_, err = s.FindByID(ctx, "CERT-1")
	assert.Error(t, err)
	assert.False(t, errors.Is(err, ErrNotFound))

	err = s.Append(ctx, certificateEntry("CERT-1", "John Doe"))
	assert.Error(t, err)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, corrupt, data, "a failed append must leave the previous file intact")
}

func TestFileStore_CompressFailureKeepsPreviousFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "credentials.json")
	compressor := &testutil.MockCompressor{}
	s, _ := newTestFileStore(path, compressor)
	ctx := context.Background()

	require.NoError(t, s.Append(ctx, certificateEntry("CERT-1", "John Doe")))
	before, err := os.ReadFile(path)
	require.NoError(t, err)

	compressor.CompressFn = func([]byte) ([]byte, error) { return nil, errors.New("disk quota") }
	err = s.Append(ctx, certificateEntry("CERT-2", "Jane Doe"))
	assert.ErrorContains(t, err, "disk quota")

	after, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, before, after)
	assert.NoFileExists(t, path+".tmp")

	s.Close()
	assert.True(t, compressor.Closed)
}

func TestFileStore_DuplicateID(t *testing.T) {
	s, _ := newTestFileStore(filepath.Join(t.TempDir(), "credentials.json"), PlainCompression{})
	ctx := context.Background()

	require.NoError(t, s.Append(ctx, certificateEntry("CERT-1", "John Doe")))
	err := s.Append(ctx, certificateEntry("CERT-1", "Someone Else"))
	assert.ErrorIs(t, err, ErrDuplicateID)

	rec, err := s.FindByID(ctx, "CERT-1")
	require.NoError(t, err)
	assert.Equal(t, "John Doe", rec.RecipientName)
}

func TestFileStore_RejectsEmptyEntry(t *testing.T) {
	s, _ := newTestFileStore(filepath.Join(t.TempDir(), "credentials.json"), PlainCompression{})

	assert.Error(t, s.Append(context.Background(), &models.Record{}))
	assert.Error(t, s.Append(context.Background(), certificateEntry("", "John Doe")))
}

func TestFileStore_PreservesUnknownAndLegacyEntries(t *testing.T) {
	path := filepath.Join(t.TempDir(), "credentials.json")
	existing := `[
  {"record_type":"audit_note","note":"keep me","nested":{"a":1}},
  {"certificate_id":"CERT-LEGACY","recipient_name":"Old Timer","course_name":"Go","issue_date":"May 01, 2020","issuer":"X","credentials":{"token_hash":"h","checksum":"c"},"extra_field":true}
]`
	require.NoError(t, os.WriteFile(path, []byte(existing), 0o644))
	s, _ := newTestFileStore(path, PlainCompression{})
	ctx := context.Background()

	legacy, err := s.FindByID(ctx, "CERT-LEGACY")
	require.NoError(t, err)
	assert.Equal(t, "Old Timer", legacy.RecipientName)

	require.NoError(t, s.Append(ctx, certificateEntry("CERT-NEW", "New Comer")))

	all, err := s.ListAll(ctx)
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.False(t, all[0].Known())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "keep me")
	assert.Contains(t, string(data), "extra_field")
}

func TestFileStore_CompressedWithPlainMigration(t *testing.T) {
	path := filepath.Join(t.TempDir(), "credentials.json")
	plain, _ := newTestFileStore(path, PlainCompression{})
	ctx := context.Background()
	require.NoError(t, plain.Append(ctx, certificateEntry("CERT-1", "John Doe")))

	zstdCompressor, err := NewZstdCompressor("fastest")
	require.NoError(t, err)
	compressed, logger := newTestFileStore(path, zstdCompressor)
	defer compressed.Close()

	all, err := compressed.ListAll(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 1)
	assert.True(t, logger.HasLevel("warn"))

	require.NoError(t, compressed.Append(ctx, certificateEntry("CERT-2", "Jane Doe")))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.NotEqual(t, byte('['), data[0], "store should be rewritten compressed")

	rec, err := compressed.FindByID(ctx, "CERT-1")
	require.NoError(t, err)
	assert.Equal(t, "John Doe", rec.RecipientName)
}

func TestFileStore_CompressedStoreReadInPlainMode(t *testing.T) {
	path := filepath.Join(t.TempDir(), "credentials.json")
	zstdCompressor, err := NewZstdCompressor("fastest")
	require.NoError(t, err)
	compressed, _ := newTestFileStore(path, zstdCompressor)
	ctx := context.Background()
	require.NoError(t, compressed.Append(ctx, certificateEntry("CERT-1", "John Doe")))
	compressed.Close()

	plain, logger := newTestFileStore(path, PlainCompression{})
	all, err := plain.ListAll(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 1)
	assert.True(t, logger.HasLevel("warn"))

	require.NoError(t, plain.Append(ctx, certificateEntry("CERT-2", "Jane Doe")))
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, byte('['), data[0], "store should be rewritten as plain JSON")

	rec, err := plain.FindByID(ctx, "CERT-1")
	require.NoError(t, err)
	assert.Equal(t, "John Doe", rec.RecipientName)
}

func TestFileStore_CacheServesRepeatedLookups(t *testing.T) {
	path := filepath.Join(t.TempDir(), "credentials.json")
	cache := testutil.NewMockCache()
	s := NewFileStore(storeConfig(path), PlainCompression{}, cache, testutil.NewMockMetrics(), &testutil.MockLogger{})
	ctx := context.Background()

	require.NoError(t, s.Append(ctx, certificateEntry("CERT-1", "John Doe")))
	assert.Len(t, cache.Data, 1, "the written collection is cached")

	_, err := s.FindByID(ctx, "CERT-1")
	require.NoError(t, err)
	assert.Len(t, cache.Data, 2)

	rec, err := s.FindByID(ctx, "CERT-1")
	require.NoError(t, err)
	assert.Equal(t, "John Doe", rec.RecipientName)
	assert.Len(t, cache.Data, 2)

	require.NoError(t, s.Append(ctx, certificateEntry("CERT-2", "Jane Doe")))
	assert.Len(t, cache.Data, 1, "append must purge entries of the previous file version")
	assert.Equal(t, 2, cache.Purged)

	_, err = s.FindByID(ctx, "CERT-1")
	require.NoError(t, err)
	assert.Len(t, cache.Data, 2)
}

func newCachedFileStore(t *testing.T, path string, metrics *testutil.MockMetrics) *FileStore {
	t.Helper()
	conf := storeConfig(path)
	conf.Cache = structures.CacheConfig{Enabled: true, Size: 1, TTL: time.Minute}
	logger := &testutil.MockLogger{}
	cache := providers.NewInstrumentedCacheProvider(conf, logger, metrics)
	return NewFileStore(conf, PlainCompression{}, cache, metrics, logger)
}

func TestFileStore_AppendsReuseCachedCollection(t *testing.T) {
	path := filepath.Join(t.TempDir(), "credentials.json")
	metrics := testutil.NewMockMetrics()
	s := newCachedFileStore(t, path, metrics)
	ctx := context.Background()

	for i := 0; i < 20; i++ {
		require.NoError(t, s.Append(ctx, certificateEntry(fmt.Sprintf("CERT-%d", i), "John Doe")))
	}

	// the first append finds no file; every later one reads the collection
	// the previous append cached, including once it outgrows one cache entry
	assert.Equal(t, 19, metrics.CacheHits)
	assert.Zero(t, metrics.CacheMisses)

	all, err := s.ListAll(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 20)
	assert.Equal(t, 20, metrics.CacheHits)
}

func TestFileStore_CacheSeesExternalRewrite(t *testing.T) {
	path := filepath.Join(t.TempDir(), "credentials.json")
	s := newCachedFileStore(t, path, testutil.NewMockMetrics())
	ctx := context.Background()

	require.NoError(t, s.Append(ctx, certificateEntry("CERT-1", "John Doe")))

	other, _ := newTestFileStore(path, PlainCompression{})
	require.NoError(t, other.Append(ctx, certificateEntry("CERT-2", "Jane Doe")))

	all, err := s.ListAll(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 2)

	rec, err := s.FindByID(ctx, "CERT-2")
	require.NoError(t, err)
	assert.Equal(t, "Jane Doe", rec.RecipientName)
}

func TestFileStore_ConcurrentAppendsAreSerialized(t *testing.T) {
	path := filepath.Join(t.TempDir(), "credentials.json")
	ctx := context.Background()
	const writers = 8

	var wg sync.WaitGroup
	errs := make(chan error, writers)
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			s, _ := newTestFileStore(path, PlainCompression{})
			errs <- s.Append(ctx, certificateEntry(fmt.Sprintf("CERT-%d", i), "Writer"))
		}(i)
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		require.NoError(t, err)
	}

	s, _ := newTestFileStore(path, PlainCompression{})
	all, err := s.ListAll(ctx)
	require.NoError(t, err)
	assert.Len(t, all, writers)
}

func TestFileStore_LockTimeout(t *testing.T) {
	path := filepath.Join(t.TempDir(), "credentials.json")
	held := flock.New(path + ".lock")
	locked, err := held.TryLock()
	require.NoError(t, err)
	require.True(t, locked)
	defer held.Unlock()

	conf := storeConfig(path)
	conf.Store.LockTimeout = 100 * time.Millisecond
	s := NewFileStore(conf, PlainCompression{}, noCache{}, testutil.NewMockMetrics(), &testutil.MockLogger{})

	err = s.Append(context.Background(), certificateEntry("CERT-1", "John Doe"))
	assert.Error(t, err)

	_, statErr := os.Stat(path)
	assert.True(t, os.IsNotExist(statErr))
}

func TestFileStore_RecordsDurations(t *testing.T) {
	path := filepath.Join(t.TempDir(), "credentials.json")
	metrics := testutil.NewMockMetrics()
	s := NewFileStore(storeConfig(path), PlainCompression{}, noCache{}, metrics, &testutil.MockLogger{})
	ctx := context.Background()

	require.NoError(t, s.Append(ctx, certificateEntry("CERT-1", "John Doe")))
	_, _ = s.FindByID(ctx, "CERT-1")
	_, _ = s.ListAll(ctx)

	assert.Equal(t, 1, metrics.StoreOps["append"])
	assert.Equal(t, 1, metrics.StoreOps["find"])
	assert.Equal(t, 1, metrics.StoreOps["list"])
}
