package fieldcrypt

import (
	"fmt"
	"sync"

	"github.com/klauspost/compress/zstd"
)

const (
	// compressionThreshold is the minimum plaintext size before compression
	// is attempted. Scalar identifiers never reach it; large clinical JSON
	// payloads do.
	compressionThreshold = 1024

	// maxDecompressedSize caps expansion of a compressed envelope so a
	// corrupted or hostile row cannot exhaust memory on read.
	maxDecompressedSize = 64 * 1024 * 1024
)

var (
	zstdEncoder *zstd.Encoder
	zstdDecoder *zstd.Decoder
	zstdOnce    sync.Once
	zstdErr     error
)

func initZstd() (*zstd.Encoder, *zstd.Decoder, error) {
	zstdOnce.Do(func() {
		zstdEncoder, zstdErr = zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
		if zstdErr != nil {
			return
		}
		zstdDecoder, zstdErr = zstd.NewReader(nil)
		if zstdErr != nil {
			zstdEncoder.Close()
			zstdEncoder = nil
		}
	})
	return zstdEncoder, zstdDecoder, zstdErr
}

// maybeCompress compresses plaintext above the threshold and returns the
// bytes to encrypt together with the envelope flag. Compression that does
// not actually shrink the payload is discarded.
func maybeCompress(plaintext []byte) ([]byte, byte) {
	if len(plaintext) < compressionThreshold {
		return plaintext, flagNoCompression
	}
	encoder, _, err := initZstd()
	if err != nil {
		return plaintext, flagNoCompression
	}
	compressed := encoder.EncodeAll(plaintext, nil)
	if len(compressed) >= len(plaintext) {
		return plaintext, flagNoCompression
	}
	return compressed, flagZstd
}

// decompress reverses maybeCompress according to the envelope flag.
func decompress(data []byte, flag byte) ([]byte, error) {
	if flag != flagZstd {
		return data, nil
	}
	_, decoder, err := initZstd()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDecryptionFailed, err)
	}
	result, err := decoder.DecodeAll(data, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: decompression: %v", ErrDecryptionFailed, err)
	}
	if len(result) > maxDecompressedSize {
		return nil, fmt.Errorf("%w: decompressed payload too large", ErrDecryptionFailed)
	}
	return result, nil
}
