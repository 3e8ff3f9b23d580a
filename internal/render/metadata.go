package render

import (
	"errors"
	"fmt"
	"os"
	"strings"

	json "github.com/goccy/go-json"
	"rsc.io/pdf"

	"certgen/internal/models"
)

const creatorPrefix = "CertGen|"

var ErrNoMetadata = errors.New("no certificate metadata embedded")

// EncodeCreator packs the verification metadata into the PDF Creator entry.
func EncodeCreator(meta models.EmbeddedMetadata) (string, error) {
	data, err := json.Marshal(meta)
	if err != nil {
		return "", err
	}
	return creatorPrefix + string(data), nil
}

func DecodeCreator(creator string) (*models.EmbeddedMetadata, error) {
	payload, ok := strings.CutPrefix(creator, creatorPrefix)
	if !ok {
		return nil, ErrNoMetadata
	}
	var meta models.EmbeddedMetadata
	if err := json.Unmarshal([]byte(payload), &meta); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNoMetadata, err)
	}
	if meta.CertificateID == "" {
		return nil, ErrNoMetadata
	}
	return &meta, nil
}

// ExtractMetadata reads the embedded metadata back from a rendered certificate.
func ExtractMetadata(path string) (meta *models.EmbeddedMetadata, err error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return nil, fmt.Errorf("stat %s: %w", path, err)
	}

	// the parser panics on some malformed documents
	defer func() {
		if r := recover(); r != nil {
			meta, err = nil, fmt.Errorf("parse %s: %v", path, r)
		}
	}()

	reader, err := pdf.NewReader(f, info.Size())
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}

	creator := reader.Trailer().Key("Info").Key("Creator").Text()
	return DecodeCreator(creator)
}
