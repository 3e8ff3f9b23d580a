package store

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/gofrs/flock"
	json "github.com/goccy/go-json"

	"certgen/internal/models"
	"certgen/internal/providers"
	"certgen/internal/structures"
)

const (
	lockRetryDelay     = 25 * time.Millisecond
	collectionCacheKey = "collection"
)

// FileStore keeps every entry in one JSON array, rewritten atomically on append.
type FileStore struct {
	path        string
	lockTimeout time.Duration
	compressor  CompressorInterface
	cache       providers.CacheProviderInterface
	metrics     providers.MetricsProviderInterface
	logger      providers.Logger
}

func NewFileStore(conf *structures.Config, compressor CompressorInterface, cache providers.CacheProviderInterface, metrics providers.MetricsProviderInterface, logger providers.Logger) *FileStore {
	timeout := conf.Store.LockTimeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &FileStore{
		path:        conf.Store.FilePath,
		lockTimeout: timeout,
		compressor:  compressor,
		cache:       cache,
		metrics:     metrics,
		logger:      logger,
	}
}

func (f *FileStore) Path() string {
	return f.path
}

func (f *FileStore) Append(ctx context.Context, rec *models.Record) error {
	start := time.Now()
	defer func() { f.metrics.ObserveStoreDuration("append", time.Since(start)) }()

	if err := validateEntry(rec); err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(f.path), 0o755); err != nil {
		return fmt.Errorf("create store directory: %w", err)
	}

	unlock, err := f.lock(ctx)
	if err != nil {
		return err
	}
	defer unlock()

	records, err := f.load()
	if err != nil {
		return err
	}

	if rec.IsCertificate() {
		for _, r := range records {
			if r.IsCertificate() && r.Certificate.CertificateID == rec.Certificate.CertificateID {
				return fmt.Errorf("%w: %s", ErrDuplicateID, rec.Certificate.CertificateID)
			}
		}
	}

	records = append(records, rec)
	if err := f.save(records); err != nil {
		return err
	}

	f.logger.Debugf(providers.TypeStore, "Appended %s entry, store now holds %d entries", rec.Type, len(records))
	return nil
}

func (f *FileStore) FindByID(_ context.Context, certificateID string) (*models.CertificateRecord, error) {
	start := time.Now()
	defer func() { f.metrics.ObserveStoreDuration("find", time.Since(start)) }()

	info, err := os.Stat(f.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("stat store: %w", err)
	}

	key := providers.RecordCacheKey(certificateID, info)
	if data, ok := f.cache.Get(key); ok {
		var cached models.CertificateRecord
		if err := json.Unmarshal(data, &cached); err == nil {
			return &cached, nil
		}
	}

	records, err := f.load()
	if err != nil {
		return nil, err
	}

	for _, r := range records {
		if r.IsCertificate() && r.Certificate.CertificateID == certificateID {
			if data, err := json.Marshal(r.Certificate); err == nil {
				f.cache.Set(key, data)
			}
			return r.Certificate, nil
		}
	}
	return nil, ErrNotFound
}

func (f *FileStore) ListAll(_ context.Context) ([]*models.Record, error) {
	start := time.Now()
	defer func() { f.metrics.ObserveStoreDuration("list", time.Since(start)) }()

	return f.load()
}

func (f *FileStore) Close() {
	f.compressor.Close()
}

func (f *FileStore) lock(ctx context.Context) (func(), error) {
	lockCtx, cancel := context.WithTimeout(ctx, f.lockTimeout)
	defer cancel()

	fl := flock.New(f.path + ".lock")
	locked, err := fl.TryLockContext(lockCtx, lockRetryDelay)
	if err != nil {
		return nil, fmt.Errorf("acquire store lock: %w", err)
	}
	if !locked {
		return nil, fmt.Errorf("acquire store lock: timed out after %s", f.lockTimeout)
	}
	return func() {
		if err := fl.Unlock(); err != nil {
			f.logger.Warnf(providers.TypeStore, "Failed to release store lock: %v", err)
		}
	}, nil
}

// load reads the whole collection. A missing or empty file is a store that was
// never written; anything unreadable is an error. The decoded JSON of the
// current file version is served from the cache, so the appends of one batch
// do not re-read and decompress the file they just wrote.
func (f *FileStore) load() ([]*models.Record, error) {
	info, err := os.Stat(f.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("stat store %s: %w", f.path, err)
	}
	if info.Size() == 0 {
		return nil, nil
	}

	key := providers.RecordCacheKey(collectionCacheKey, info)
	if cached, ok := f.cache.Get(key); ok {
		var records []*models.Record
		if err := json.Unmarshal(cached, &records); err == nil {
			return records, nil
		}
	}

	data, err := os.ReadFile(f.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("read store %s: %w", f.path, err)
	}
	if len(data) == 0 {
		return nil, nil
	}

	_, plain := f.compressor.(PlainCompression)
	decompressed, err := f.compressor.Decompress(data)
	switch {
	case errors.Is(err, ErrUncompressed):
		// written before compression was enabled
		f.logger.Warnf(providers.TypeStore, "Store %s is uncompressed, it will be migrated on the next append", f.path)
		decompressed = data
	case err != nil:
		return nil, fmt.Errorf("decode store %s: %w", f.path, err)
	case plain && IsZstd(data):
		f.logger.Warnf(providers.TypeStore, "Store %s is compressed, it will be rewritten as plain JSON on the next append", f.path)
	}

	var records []*models.Record
	if err := json.Unmarshal(decompressed, &records); err != nil {
		return nil, fmt.Errorf("store %s is corrupt: %w", f.path, err)
	}
	f.cache.Set(key, decompressed)
	return records, nil
}

func (f *FileStore) save(records []*models.Record) error {
	if records == nil {
		records = []*models.Record{}
	}
	jsonData, err := json.MarshalIndent(records, "", "  ")
	if err != nil {
		return fmt.Errorf("encode store: %w", err)
	}
	data, err := f.compressor.Compress(jsonData)
	if err != nil {
		return fmt.Errorf("compress store: %w", err)
	}

	tmpFile := f.path + ".tmp"
	file, err := os.Create(tmpFile)
	if err != nil {
		return err
	}

	_, err = file.Write(data)
	if err != nil {
		file.Close()
		os.Remove(tmpFile)
		return err
	}

	if err = file.Sync(); err != nil {
		file.Close()
		os.Remove(tmpFile)
		return err
	}

	if err = file.Close(); err != nil {
		os.Remove(tmpFile)
		return err
	}

	if err = os.Rename(tmpFile, f.path); err != nil {
		os.Remove(tmpFile)
		return err
	}

	syncDir(filepath.Dir(f.path))

	f.cache.Purge()
	if info, err := os.Stat(f.path); err == nil {
		f.cache.Set(providers.RecordCacheKey(collectionCacheKey, info), jsonData)
	}
	return nil
}

// syncDir makes the rename itself durable. Not every platform supports it.
func syncDir(dir string) {
	d, err := os.Open(dir)
	if err != nil {
		return
	}
	defer d.Close()
	_ = d.Sync()
}
