package services

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"

	"certgen/internal/integrity"
	"certgen/internal/models"
	"certgen/internal/providers"
	"certgen/internal/render"
	"certgen/internal/store"
)

type VerificationServiceInterface interface {
	Verify(ctx context.Context, certificateID, claimedName, claimedCourse, claimedToken string) (*models.VerificationResult, error)
	VerifyArtifact(ctx context.Context, path, claimedToken string) (*models.VerificationResult, error)
}

// VerificationService is read-only. Outcomes are results, errors are reserved
// for store failures.
type VerificationService struct {
	store   store.RecordStore
	engine  *integrity.Engine
	metrics providers.MetricsProviderInterface
	logger  providers.Logger
}

func NewVerificationService(recordStore store.RecordStore, engine *integrity.Engine, metrics providers.MetricsProviderInterface, logger providers.Logger) *VerificationService {
	return &VerificationService{
		store:   recordStore,
		engine:  engine,
		metrics: metrics,
		logger:  logger,
	}
}

func (s *VerificationService) lookup(ctx context.Context, certificateID string) (*models.CertificateRecord, error) {
	rec, err := s.store.FindByID(ctx, certificateID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("look up %s: %w", certificateID, err)
	}
	return rec, nil
}

// Verify checks claimed attributes against the stored record. An empty
// claimedToken skips the token check.
func (s *VerificationService) Verify(ctx context.Context, certificateID, claimedName, claimedCourse, claimedToken string) (*models.VerificationResult, error) {
	rec, err := s.lookup(ctx, certificateID)
	if err != nil {
		return nil, err
	}
	if rec == nil {
		return s.finish(models.Invalid(certificateID, models.ReasonNotFound)), nil
	}

	if claimedName != rec.RecipientName || claimedCourse != rec.CourseName {
		return s.finish(models.Invalid(certificateID, models.ReasonAttributeMismatch)), nil
	}

	return s.finish(s.checkCredentials(rec, claimedToken)), nil
}

// VerifyArtifact verifies a rendered certificate by the metadata embedded in
// it. The embedded credentials must match the stored ones exactly.
func (s *VerificationService) VerifyArtifact(ctx context.Context, path, claimedToken string) (*models.VerificationResult, error) {
	meta, err := render.ExtractMetadata(path)
	if err != nil {
		if errors.Is(err, render.ErrNoMetadata) {
			s.logger.Warnf(providers.TypeVerify, "%s carries no certificate metadata", path)
			return s.finish(models.Invalid("", models.ReasonMetadataMismatch)), nil
		}
		return nil, err
	}

	rec, err := s.lookup(ctx, meta.CertificateID)
	if err != nil {
		return nil, err
	}
	if rec == nil {
		return s.finish(models.Invalid(meta.CertificateID, models.ReasonNotFound)), nil
	}

	if !equal(meta.TokenHash, rec.Credentials.TokenHash) || !equal(meta.Checksum, rec.Credentials.Checksum) {
		return s.finish(models.Invalid(meta.CertificateID, models.ReasonMetadataMismatch)), nil
	}

	return s.finish(s.checkCredentials(rec, claimedToken)), nil
}

func (s *VerificationService) checkCredentials(rec *models.CertificateRecord, claimedToken string) *models.VerificationResult {
	if claimedToken != "" && !integrity.VerifyToken(claimedToken, rec.Credentials.TokenHash) {
		return models.Invalid(rec.CertificateID, models.ReasonTokenMismatch)
	}
	if !s.engine.VerifyChecksum(rec) {
		s.logger.Warnf(providers.TypeIntegrity, "Checksum mismatch for %s, the stored record was altered", rec.CertificateID)
		return models.Invalid(rec.CertificateID, models.ReasonChecksumMismatch)
	}
	return models.ValidResult(rec)
}

func (s *VerificationService) finish(res *models.VerificationResult) *models.VerificationResult {
	s.metrics.IncVerifications(string(res.Verdict), string(res.Reason))
	s.logger.Debugf(providers.TypeVerify, "Verification of %q: %s %s", res.CertificateID, res.Verdict, res.Reason)
	return res
}

func equal(a, b string) bool {
	return subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}
