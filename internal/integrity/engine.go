package integrity

import (
	"crypto/hmac"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"strconv"
	"strings"

	"certgen/internal/models"
	"certgen/internal/providers"
	"certgen/internal/structures"
)

const (
	MinChecksumLength  = 16
	FullChecksumLength = sha256.Size * 2
)

// Engine computes and checks keyed checksums. The secret is fixed at
// construction.
type Engine struct {
	secret         []byte
	checksumLength int
	defaultSecret  bool
}

// NewEngine builds an engine. A checksumLength of 0 means MinChecksumLength;
// values are clamped to the full digest length.
func NewEngine(secret string, checksumLength int) *Engine {
	if checksumLength <= 0 {
		checksumLength = MinChecksumLength
	}
	if checksumLength > FullChecksumLength {
		checksumLength = FullChecksumLength
	}
	return &Engine{
		secret:         []byte(secret),
		checksumLength: checksumLength,
		defaultSecret:  secret == providers.DefaultSecret,
	}
}

func NewEngineProvider(conf *structures.Config, logger providers.Logger) *Engine {
	e := NewEngine(conf.Integrity.Secret, conf.Integrity.ChecksumLength)
	if e.UsesDefaultSecret() {
		logger.Warnf(providers.TypeIntegrity, "Using the built-in default secret; set CERT_SECRET, checksums signed with it can be forged")
	}
	return e
}

func (e *Engine) UsesDefaultSecret() bool {
	return e.defaultSecret || len(e.secret) == 0
}

// canonicalMessage concatenates certificate_id, recipient_name, course_name and
// issue_date in that order, each written as "<byte length>:<value>" so that no
// two distinct field tuples share an encoding.
func canonicalMessage(f models.CanonicalFields) []byte {
	var b strings.Builder
	for _, v := range []string{f.CertificateID, f.RecipientName, f.CourseName, f.IssueDate} {
		b.WriteString(strconv.Itoa(len(v)))
		b.WriteByte(':')
		b.WriteString(v)
	}
	return []byte(b.String())
}

func (e *Engine) fullChecksum(f models.CanonicalFields) string {
	mac := hmac.New(sha256.New, e.secret)
	mac.Write(canonicalMessage(f))
	return hex.EncodeToString(mac.Sum(nil))
}

// ComputeChecksum returns the HMAC-SHA256 hex digest truncated to the configured length.
func (e *Engine) ComputeChecksum(f models.CanonicalFields) string {
	return e.fullChecksum(f)[:e.checksumLength]
}

// VerifyChecksum recomputes the checksum over the record's canonical fields. The
// stored value decides the truncation, so records written with a different
// configured length still verify; anything shorter than MinChecksumLength fails.
func (e *Engine) VerifyChecksum(rec *models.CertificateRecord) bool {
	stored := rec.Credentials.Checksum
	if len(stored) < MinChecksumLength || len(stored) > FullChecksumLength {
		return false
	}
	expected := e.fullChecksum(rec.Canonical())[:len(stored)]
	return hmac.Equal([]byte(expected), []byte(stored))
}

// HashToken is a deterministic SHA-256 hex digest of the raw token.
func HashToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}

// VerifyToken compares a raw token against a stored hash in constant time.
func VerifyToken(token, storedHash string) bool {
	return subtle.ConstantTimeCompare([]byte(HashToken(token)), []byte(storedHash)) == 1
}
