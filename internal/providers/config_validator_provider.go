package providers

import (
	"errors"
	"fmt"

	"github.com/gookit/validate"

	"certgen/internal/structures"
)

type CnfValidator struct {
	conf *structures.Config
}

func NewCnfValidator(conf *structures.Config) *CnfValidator {
	return &CnfValidator{conf: conf}
}

func (c *CnfValidator) Validate() error {
	v := validate.Struct(c.conf)
	if !v.Validate() {
		return fmt.Errorf("invalid config: %s", v.Errors.One())
	}

	if c.conf.Remote.Enabled && c.conf.Remote.Address == "" {
		return errors.New("invalid config: remote.address is required when remote store is enabled")
	}

	if n := c.conf.Integrity.ChecksumLength; n != 0 && (n < DefaultChecksumLength || n > 64 || n%2 != 0) {
		return fmt.Errorf("invalid config: integrity.checksumLength must be an even number between %d and 64, got %d", DefaultChecksumLength, n)
	}

	if c.conf.Metrics.Enabled && c.conf.Metrics.Textfile == "" {
		return errors.New("invalid config: metrics.textfile is required when metrics are enabled")
	}

	return nil
}
