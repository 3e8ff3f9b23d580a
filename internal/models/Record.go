package models

import (
	"errors"
	"fmt"

	json "github.com/goccy/go-json"
)

type RecordType string

const (
	RecordTypeCertificate   RecordType = "certificate"
	RecordTypeDeviceCleanup RecordType = "device_cleanup"
)

// Record is a single entry of the record store, discriminated by record_type.
// Exactly one payload is set for known types. Entries read from disk keep their
// original bytes and are written back unchanged, so unknown types and unknown
// fields survive a rewrite.
type Record struct {
	Type          RecordType
	Certificate   *CertificateRecord
	DeviceCleanup *DeviceCleanupRecord

	raw []byte
}

func NewCertificateEntry(c *CertificateRecord) *Record {
	c.RecordType = RecordTypeCertificate
	return &Record{Type: RecordTypeCertificate, Certificate: c}
}

func NewDeviceCleanupEntry(d *DeviceCleanupRecord) *Record {
	d.RecordType = RecordTypeDeviceCleanup
	return &Record{Type: RecordTypeDeviceCleanup, DeviceCleanup: d}
}

func (r *Record) IsCertificate() bool {
	return r.Type == RecordTypeCertificate && r.Certificate != nil
}

func (r *Record) IsDeviceCleanup() bool {
	return r.Type == RecordTypeDeviceCleanup && r.DeviceCleanup != nil
}

// Known reports whether the entry was recognized as one of the supported types.
func (r *Record) Known() bool {
	return r.IsCertificate() || r.IsDeviceCleanup()
}

func (r Record) MarshalJSON() ([]byte, error) {
	if r.raw != nil {
		return r.raw, nil
	}
	switch {
	case r.Type == RecordTypeCertificate && r.Certificate != nil:
		return json.Marshal(r.Certificate)
	case r.Type == RecordTypeDeviceCleanup && r.DeviceCleanup != nil:
		return json.Marshal(r.DeviceCleanup)
	}
	return nil, fmt.Errorf("record of type %q has no payload", r.Type)
}

func (r *Record) UnmarshalJSON(data []byte) error {
	if len(data) == 0 {
		return errors.New("empty record")
	}
	r.raw = append([]byte(nil), data...)
	r.Certificate = nil
	r.DeviceCleanup = nil

	var head struct {
		RecordType    RecordType `json:"record_type"`
		CertificateID string     `json:"certificate_id"`
	}
	if err := json.Unmarshal(data, &head); err != nil {
		// not an object: keep it verbatim as an unknown entry
		r.Type = ""
		return nil
	}

	r.Type = head.RecordType
	if r.Type == "" && head.CertificateID != "" {
		r.Type = RecordTypeCertificate
	}

	switch r.Type {
	case RecordTypeCertificate:
		var c CertificateRecord
		if err := json.Unmarshal(data, &c); err != nil {
			return fmt.Errorf("decode certificate record: %w", err)
		}
		c.RecordType = RecordTypeCertificate
		r.Certificate = &c
	case RecordTypeDeviceCleanup:
		var d DeviceCleanupRecord
		if err := json.Unmarshal(data, &d); err != nil {
			return fmt.Errorf("decode device cleanup record: %w", err)
		}
		r.DeviceCleanup = &d
	}
	return nil
}
