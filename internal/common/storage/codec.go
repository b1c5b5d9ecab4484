package storage

import (
	"fmt"
	"sync"

	"github.com/klauspost/compress/zstd"
)

const (
	contentTypeText = "text/plain; charset=utf-8"
	contentTypeZstd = "application/zstd"
)

var (
	zstdOnce    sync.Once
	zstdEncoder *zstd.Encoder
	zstdDecoder *zstd.Decoder
	zstdErr     error
)

func zstdCodec() (*zstd.Encoder, *zstd.Decoder, error) {
	zstdOnce.Do(func() {
		zstdEncoder, zstdErr = zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
		if zstdErr != nil {
			return
		}
		zstdDecoder, zstdErr = zstd.NewReader(nil)
	})
	return zstdEncoder, zstdDecoder, zstdErr
}

// encodeValue returns the stored bytes and content type for value.
func encodeValue(value string, compress bool) ([]byte, string, error) {
	if !compress {
		return []byte(value), contentTypeText, nil
	}
	enc, _, err := zstdCodec()
	if err != nil {
		return nil, "", fmt.Errorf("init zstd failed: %w", err)
	}
	return enc.EncodeAll([]byte(value), nil), contentTypeZstd, nil
}

// decodeValue reverses encodeValue. Objects written without compression
// stay readable after Compress is switched on, and the other way around.
func decodeValue(data []byte, contentType string) (string, error) {
	if contentType != contentTypeZstd {
		return string(data), nil
	}
	_, dec, err := zstdCodec()
	if err != nil {
		return "", fmt.Errorf("init zstd failed: %w", err)
	}
	out, err := dec.DecodeAll(data, nil)
	if err != nil {
		return "", fmt.Errorf("decode zstd value failed: %w", err)
	}
	return string(out), nil
}
