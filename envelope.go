package fieldcrypt

import (
	"encoding/base64"
	"fmt"
	"strings"
)

// Envelope format, as stored in a text column:
//
//	fc1$<base64(flag ‖ nonce ‖ ciphertext‖tag)>
//
// Flag byte values:
//
//	0x00 = plaintext was encrypted as-is
//	0x01 = plaintext was zstd-compressed before encryption
//
// The fc1 version tag is fixed for the lifetime of the stored data; a future
// format change gets a new tag so both can be told apart during a migration.
const (
	envelopePrefix = "fc1$"

	flagNoCompression byte = 0x00
	flagZstd          byte = 0x01

	nonceSize  = 12 // AES-GCM standard nonce
	gcmTagSize = 16

	// flag + nonce + tag; an envelope carrying even an empty plaintext
	// can never decode to fewer bytes than this.
	minEnvelopeSize = 1 + nonceSize + gcmTagSize
)

// encodeEnvelope assembles the stored representation from the flag byte,
// the nonce and the GCM output (ciphertext with appended tag).
func encodeEnvelope(flag byte, nonce, sealed []byte) string {
	raw := make([]byte, 0, 1+len(nonce)+len(sealed))
	raw = append(raw, flag)
	raw = append(raw, nonce...)
	raw = append(raw, sealed...)
	return envelopePrefix + base64.StdEncoding.EncodeToString(raw)
}

// parseEnvelope splits a stored envelope back into flag, nonce and sealed
// bytes. Any structural defect is ErrInvalidEnvelope; the caller never sees
// partial contents.
func parseEnvelope(envelope string) (flag byte, nonce, sealed []byte, err error) {
	body, ok := strings.CutPrefix(envelope, envelopePrefix)
	if !ok {
		return 0, nil, nil, fmt.Errorf("%w: missing version tag", ErrInvalidEnvelope)
	}
	raw, decodeErr := base64.StdEncoding.DecodeString(body)
	if decodeErr != nil {
		return 0, nil, nil, fmt.Errorf("%w: %v", ErrInvalidEnvelope, decodeErr)
	}
	if len(raw) < minEnvelopeSize {
		return 0, nil, nil, fmt.Errorf("%w: truncated", ErrInvalidEnvelope)
	}
	flag = raw[0]
	if flag != flagNoCompression && flag != flagZstd {
		return 0, nil, nil, fmt.Errorf("%w: unknown flag 0x%02x", ErrInvalidEnvelope, flag)
	}
	nonce = raw[1 : 1+nonceSize]
	sealed = raw[1+nonceSize:]
	return flag, nonce, sealed, nil
}

// isEnvelope is the structural classifier behind Engine.IsEncrypted. It
// checks the version tag, the base64 alphabet and the minimum length without
// decoding or attempting decryption, so it is cheap and can never fail.
func isEnvelope(value string) bool {
	body, ok := strings.CutPrefix(value, envelopePrefix)
	if !ok {
		return false
	}
	if base64.StdEncoding.DecodedLen(len(body)) < minEnvelopeSize {
		return false
	}
	return isBase64(body)
}

func isBase64(s string) bool {
	if len(s)%4 != 0 {
		return false
	}
	padding := 0
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case c == '=':
			padding++
			if padding > 2 || i < len(s)-2 {
				return false
			}
		case padding > 0:
			return false
		case c >= 'A' && c <= 'Z', c >= 'a' && c <= 'z', c >= '0' && c <= '9', c == '+', c == '/':
		default:
			return false
		}
	}
	return true
}
