package fieldcrypt

import (
	"encoding/base64"
	"encoding/hex"
	"fmt"
)

// minSecretLength is the minimum decoded length of each opaque secret.
// Anything shorter cannot carry 256 bits of entropy into HKDF.
const minSecretLength = 32

// Config holds what the process supplies at startup: whether field
// encryption is requested and the two opaque secrets the engine derives its
// keys from. How the secrets reach the process (environment, AWS Secrets
// Manager, Vault) is the key-source providers' concern; this struct only
// carries the final values.
//
// This struct contains only data, no behavior beyond validation, so it can
// be populated from any source and passed explicitly to NewPolicy.
type Config struct {
	// Enabled requests field encryption. When false the policy is a loud,
	// logged pass-through; when true, missing or malformed secrets abort
	// startup.
	Enabled bool

	// EncryptionKey is the opaque secret the AES-256-GCM key is derived
	// from. Hex or standard base64, at least 32 bytes once decoded.
	EncryptionKey string

	// HMACKey is the opaque secret the blind-index HMAC key is derived
	// from. Must be distinct secret material from EncryptionKey; the two
	// are additionally separated by HKDF info strings.
	HMACKey string
}

// Validate checks the configuration without decoding the secrets; decoding
// happens once inside NewPolicy so the raw bytes can be wiped immediately
// after key derivation.
func (c Config) Validate() error {
	if !c.Enabled {
		return nil
	}
	if c.EncryptionKey == "" {
		return fmt.Errorf("%w: encryption key is required when encryption is enabled", ErrMissingKeyMaterial)
	}
	if c.HMACKey == "" {
		return fmt.Errorf("%w: hmac key is required when encryption is enabled", ErrMissingKeyMaterial)
	}
	if c.EncryptionKey == c.HMACKey {
		return fmt.Errorf("%w: encryption key and hmac key must be distinct secrets", ErrInvalidKeyMaterial)
	}
	return nil
}

// decodeSecret turns an opaque configuration string into raw bytes. Hex is
// tried first, then standard base64; a string that is neither is malformed
// key material.
func decodeSecret(s string) ([]byte, error) {
	if raw, err := hex.DecodeString(s); err == nil {
		return raw, nil
	}
	if raw, err := base64.StdEncoding.DecodeString(s); err == nil {
		return raw, nil
	}
	return nil, fmt.Errorf("%w: secret is neither hex nor base64", ErrInvalidKeyMaterial)
}
