package store

import (
	"context"
	"errors"

	"golang.org/x/sync/errgroup"

	"certgen/internal/models"
	"certgen/internal/providers"
	"certgen/internal/structures"
)

// FailoverStore prefers the remote store and serves from the local file
// whenever the remote cannot be reached. Callers never see remote outages.
type FailoverStore struct {
	remote  RecordStore
	local   RecordStore
	metrics providers.MetricsProviderInterface
	logger  providers.Logger
}

func NewFailoverStore(remote, local RecordStore, metrics providers.MetricsProviderInterface, logger providers.Logger) *FailoverStore {
	return &FailoverStore{
		remote:  remote,
		local:   local,
		metrics: metrics,
		logger:  logger,
	}
}

func (s *FailoverStore) fallback(op string, err error) {
	s.metrics.IncRemoteFallbacks(op)
	s.logger.Warnf(providers.TypeRemote, "Remote store failed during %s, using local file: %v", op, err)
}

func (s *FailoverStore) Append(ctx context.Context, rec *models.Record) error {
	err := s.remote.Append(ctx, rec)
	if err == nil || errors.Is(err, ErrDuplicateID) {
		return err
	}
	s.fallback("append", err)
	return s.local.Append(ctx, rec)
}

// FindByID consults the local file after a remote miss, which finds records
// written while the remote was down.
func (s *FailoverStore) FindByID(ctx context.Context, certificateID string) (*models.CertificateRecord, error) {
	rec, err := s.remote.FindByID(ctx, certificateID)
	if err == nil {
		return rec, nil
	}
	if !errors.Is(err, ErrNotFound) {
		s.fallback("find", err)
	}
	return s.local.FindByID(ctx, certificateID)
}

// ListAll reads both stores concurrently. A failing remote degrades to the
// local listing; certificates present in both are reported once.
func (s *FailoverStore) ListAll(ctx context.Context) ([]*models.Record, error) {
	var (
		g         errgroup.Group
		remote    []*models.Record
		local     []*models.Record
		remoteErr error
	)
	g.Go(func() error {
		remote, remoteErr = s.remote.ListAll(ctx)
		return nil
	})
	g.Go(func() error {
		var err error
		local, err = s.local.ListAll(ctx)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	if remoteErr != nil {
		s.fallback("list", remoteErr)
		return local, nil
	}

	seen := make(map[string]struct{}, len(remote))
	for _, r := range remote {
		if r.IsCertificate() {
			seen[r.Certificate.CertificateID] = struct{}{}
		}
	}
	merged := remote
	for _, r := range local {
		if r.IsCertificate() {
			if _, dup := seen[r.Certificate.CertificateID]; dup {
				continue
			}
		}
		merged = append(merged, r)
	}
	return merged, nil
}

func (s *FailoverStore) Close() {
	s.remote.Close()
	s.local.Close()
}

// NewRecordStoreProvider returns the local file store, wrapped with the remote
// store when one is configured.
func NewRecordStoreProvider(conf *structures.Config, compressor CompressorInterface, cache providers.CacheProviderInterface, metrics providers.MetricsProviderInterface, logger providers.Logger) RecordStore {
	local := NewFileStore(conf, compressor, cache, metrics, logger)
	if !conf.Remote.Enabled {
		return local
	}
	return NewFailoverStore(NewRedisStore(conf, metrics, logger), local, metrics, logger)
}
