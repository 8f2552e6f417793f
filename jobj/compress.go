package jobj

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"sync"

	"github.com/klauspost/compress/lz4"
	"github.com/klauspost/compress/zstd"
)

// ErrUnknownCompressionMethod is returned for a DATA object whose flags
// claim a compression codec this build doesn't implement (XZ).
var ErrUnknownCompressionMethod = errors.New("jobj: unknown compression method")

var (
	zstdDecoderOnce sync.Once
	zstdDecoder     *zstd.Decoder
	zstdDecoderErr  error
)

func sharedZstdDecoder() (*zstd.Decoder, error) {
	zstdDecoderOnce.Do(func() {
		zstdDecoder, zstdDecoderErr = zstd.NewReader(nil)
	})
	return zstdDecoder, zstdDecoderErr
}

// Decompress returns the plaintext payload of a DATA object given its
// flags. An uncompressed payload is returned as-is without copying.
func Decompress(flags ObjectFlag, payload []byte) ([]byte, error) {
	switch flags.Compression() {
	case 0:
		return payload, nil
	case FlagCompressedZSTD:
		dec, err := sharedZstdDecoder()
		if err != nil {
			return nil, fmt.Errorf("jobj: init zstd decoder: %w", err)
		}
		out, err := dec.DecodeAll(payload, nil)
		if err != nil {
			return nil, fmt.Errorf("jobj: zstd decompress: %w", err)
		}
		return out, nil
	case FlagCompressedLZ4:
		r := lz4.NewReader(bytes.NewReader(payload))
		out, err := io.ReadAll(r)
		if err != nil {
			return nil, fmt.Errorf("jobj: lz4 decompress: %w", err)
		}
		return out, nil
	case FlagCompressedXZ:
		return nil, ErrUnknownCompressionMethod
	default:
		return nil, ErrUnknownCompressionMethod
	}
}

// Compress encodes payload using the given codec. Used by the writer when
// a DATA payload exceeds the configured compression threshold.
func Compress(method ObjectFlag, payload []byte) ([]byte, error) {
	switch method {
	case 0:
		return payload, nil
	case FlagCompressedZSTD:
		enc, err := zstd.NewWriter(nil)
		if err != nil {
			return nil, fmt.Errorf("jobj: init zstd encoder: %w", err)
		}
		defer enc.Close()
		return enc.EncodeAll(payload, nil), nil
	case FlagCompressedLZ4:
		var buf bytes.Buffer
		w := lz4.NewWriter(&buf)
		if _, err := w.Write(payload); err != nil {
			return nil, fmt.Errorf("jobj: lz4 compress: %w", err)
		}
		if err := w.Close(); err != nil {
			return nil, fmt.Errorf("jobj: lz4 compress: %w", err)
		}
		return buf.Bytes(), nil
	default:
		return nil, ErrUnknownCompressionMethod
	}
}
