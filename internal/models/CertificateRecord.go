package models

import "time"

type Credentials struct {
	TokenHash string `json:"token_hash"`
	Checksum  string `json:"checksum"`
}

// CertificateRecord is created once at issuance and never mutated afterwards.
type CertificateRecord struct {
	RecordType    RecordType  `json:"record_type"`
	CertificateID string      `json:"certificate_id"`
	RecipientName string      `json:"recipient_name"`
	CourseName    string      `json:"course_name"`
	IssueDate     string      `json:"issue_date"`
	Issuer        string      `json:"issuer"`
	Title         string      `json:"title,omitempty"`
	Credentials   Credentials `json:"credentials"`
	CreatedAt     time.Time   `json:"created_at"`
	FilePath      string      `json:"file_path,omitempty"`
	DeviceInfo    *DeviceInfo `json:"device_info,omitempty"`
}

// CanonicalFields is the ordered subset of a certificate covered by its checksum.
type CanonicalFields struct {
	CertificateID string
	RecipientName string
	CourseName    string
	IssueDate     string
}

func (c *CertificateRecord) Canonical() CanonicalFields {
	return CanonicalFields{
		CertificateID: c.CertificateID,
		RecipientName: c.RecipientName,
		CourseName:    c.CourseName,
		IssueDate:     c.IssueDate,
	}
}

// EmbeddedMetadata is what a rendered certificate carries for later verification.
type EmbeddedMetadata struct {
	CertificateID string `json:"id"`
	TokenHash     string `json:"token_hash"`
	Checksum      string `json:"checksum"`
}

func (c *CertificateRecord) Metadata() EmbeddedMetadata {
	return EmbeddedMetadata{
		CertificateID: c.CertificateID,
		TokenHash:     c.Credentials.TokenHash,
		Checksum:      c.Credentials.Checksum,
	}
}

// IssuedCertificate is returned once by issuance. Token is the only copy of the
// raw verification token.
type IssuedCertificate struct {
	Record   *CertificateRecord
	Token    string
	FilePath string
}
