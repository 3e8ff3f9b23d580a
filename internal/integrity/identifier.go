package integrity

import (
	"crypto/rand"
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"io"
	"regexp"
	"strings"
	"time"
)

const (
	idRandomBytes    = 12 // 192 bits, 24 hex characters
	tokenRandomBytes = 16 // 128 bits
	idDateLayout     = "20060102"
	idPrefix         = "CERT-"
)

var certificateIDPattern = regexp.MustCompile(`^CERT-\d{8}-[0-9A-Fa-f]{24}$`)

// IdentifierGenerator produces certificate IDs and verification tokens from a
// cryptographically secure source.
type IdentifierGenerator struct {
	random io.Reader
}

func NewIdentifierGenerator() *IdentifierGenerator {
	return &IdentifierGenerator{random: rand.Reader}
}

// NewIdentifierGeneratorFromReader draws from r instead of crypto/rand.
// Only tests should need it.
func NewIdentifierGeneratorFromReader(r io.Reader) *IdentifierGenerator {
	return &IdentifierGenerator{random: r}
}

func (g *IdentifierGenerator) read(n int) ([]byte, error) {
	buf := make([]byte, n)
	if _, err := io.ReadFull(g.random, buf); err != nil {
		return nil, fmt.Errorf("read random bytes: %w", err)
	}
	return buf, nil
}

// NewCertificateID returns CERT-YYYYMMDD-{24 uppercase hex}.
func (g *IdentifierGenerator) NewCertificateID(now time.Time) (string, error) {
	buf, err := g.read(idRandomBytes)
	if err != nil {
		return "", err
	}
	return idPrefix + now.Format(idDateLayout) + "-" + strings.ToUpper(hex.EncodeToString(buf)), nil
}

// NewVerificationToken returns a URL-safe token. It is never persisted.
func (g *IdentifierGenerator) NewVerificationToken() (string, error) {
	buf, err := g.read(tokenRandomBytes)
	if err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}

func ValidCertificateID(id string) bool {
	return certificateIDPattern.MatchString(id)
}
