package store

import (
	"bytes"
	"errors"
	"fmt"

	"github.com/klauspost/compress/zstd"

	"certgen/internal/structures"
)

// ErrUncompressed is returned by Decompress for data that is not a zstd frame.
var ErrUncompressed = errors.New("data is not zstd compressed")

var zstdMagic = []byte{0x28, 0xb5, 0x2f, 0xfd}

// CompressorInterface is the on-disk encoding of the store file.
type CompressorInterface interface {
	Compress(val []byte) ([]byte, error)
	Decompress(val []byte) ([]byte, error)
	Close()
}

type ZstdCompression struct {
	encoder *zstd.Encoder
	decoder *zstd.Decoder
}

func (z *ZstdCompression) Compress(val []byte) ([]byte, error) {
	return z.encoder.EncodeAll(val, nil), nil
}

func (z *ZstdCompression) Decompress(val []byte) ([]byte, error) {
	if !IsZstd(val) {
		return nil, ErrUncompressed
	}
	out, err := z.decoder.DecodeAll(val, nil)
	if err != nil {
		return nil, fmt.Errorf("zstd decode: %w", err)
	}
	return out, nil
}

func (z *ZstdCompression) Close() {
	_ = z.encoder.Close()
	z.decoder.Close()
}

// NewZstdCompressor accepts the level names of zstd.EncoderLevelFromString;
// an empty level means the library default.
func NewZstdCompressor(level string) (CompressorInterface, error) {
	encLevel := zstd.SpeedDefault
	if level != "" {
		var ok bool
		if ok, encLevel = zstd.EncoderLevelFromString(level); !ok {
			return nil, fmt.Errorf("unknown zstd level %q", level)
		}
	}
	encoder, err := zstd.NewWriter(nil, zstd.WithEncoderLevel(encLevel), zstd.WithEncoderConcurrency(1))
	if err != nil {
		return nil, fmt.Errorf("create zstd encoder: %w", err)
	}
	decoder, err := zstd.NewReader(nil, zstd.WithDecoderConcurrency(1))
	if err != nil {
		_ = encoder.Close()
		return nil, fmt.Errorf("create zstd decoder: %w", err)
	}
	return &ZstdCompression{encoder: encoder, decoder: decoder}, nil
}

// IsZstd reports whether data starts with a zstd frame.
func IsZstd(data []byte) bool {
	return bytes.HasPrefix(data, zstdMagic)
}

// PlainCompression stores the collection as readable JSON. A store written
// while compression was enabled is still decoded.
type PlainCompression struct{}

func (PlainCompression) Compress(val []byte) ([]byte, error) { return val, nil }

func (PlainCompression) Decompress(val []byte) ([]byte, error) {
	if !IsZstd(val) {
		return val, nil
	}
	decoder, err := zstd.NewReader(nil, zstd.WithDecoderConcurrency(1))
	if err != nil {
		return nil, fmt.Errorf("create zstd decoder: %w", err)
	}
	defer decoder.Close()
	out, err := decoder.DecodeAll(val, nil)
	if err != nil {
		return nil, fmt.Errorf("zstd decode: %w", err)
	}
	return out, nil
}

func (PlainCompression) Close() {}

// NewCompressor picks the on-disk encoding from store.compress.
func NewCompressor(conf *structures.Config) (CompressorInterface, error) {
	if conf.Store.Compress {
		return NewZstdCompressor(conf.Store.CompressionLevel)
	}
	return PlainCompression{}, nil
}
