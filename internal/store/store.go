package store

import (
	"context"
	"errors"

	"certgen/internal/models"
)

var (
	ErrNotFound          = errors.New("record not found")
	ErrDuplicateID       = errors.New("duplicate certificate id")
	ErrRemoteUnavailable = errors.New("remote store unavailable")
)

// RecordStore persists store entries. Appends are durable once they return.
type RecordStore interface {
	Append(ctx context.Context, rec *models.Record) error
	FindByID(ctx context.Context, certificateID string) (*models.CertificateRecord, error)
	ListAll(ctx context.Context) ([]*models.Record, error)
	Close()
}

func validateEntry(rec *models.Record) error {
	if rec == nil || !rec.Known() {
		return errors.New("cannot append an entry without a known payload")
	}
	if rec.IsCertificate() && rec.Certificate.CertificateID == "" {
		return errors.New("certificate entry without certificate_id")
	}
	return nil
}
