package fieldcrypt

import (
	"crypto/sha256"
	"fmt"
	"io"

	"golang.org/x/crypto/hkdf"
)

// Info strings for HKDF derivation. Distinct strings guarantee the derived
// keys are cryptographically independent even if the same secret is supplied
// for both purposes by mistake.
const (
	infoEncryption = "fieldcrypt-encryption-v1"
	infoBlindIndex = "fieldcrypt-blind-index-v1"

	derivedKeySize = 32
)

// keyMaterial holds the derived encryption and HMAC keys. It is owned
// exclusively by the Policy; no other component keeps a copy.
type keyMaterial struct {
	encryption [derivedKeySize]byte // AES-256-GCM key
	blindIndex [derivedKeySize]byte // HMAC-SHA256 key
}

// deriveKeyMaterial expands the two opaque configuration secrets into
// fixed-size keys using HKDF-SHA256. The secrets may be any length >= 32
// bytes; expansion normalizes them and enforces key separation between
// confidentiality and indexing.
func deriveKeyMaterial(encryptionSecret, hmacSecret []byte) (*keyMaterial, error) {
	if len(encryptionSecret) < minSecretLength {
		return nil, fmt.Errorf("%w: encryption secret must be at least %d bytes, got %d",
			ErrInvalidKeyMaterial, minSecretLength, len(encryptionSecret))
	}
	if len(hmacSecret) < minSecretLength {
		return nil, fmt.Errorf("%w: hmac secret must be at least %d bytes, got %d",
			ErrInvalidKeyMaterial, minSecretLength, len(hmacSecret))
	}

	km := &keyMaterial{}
	if err := hkdfDerive(encryptionSecret, infoEncryption, km.encryption[:]); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidKeyMaterial, err)
	}
	if err := hkdfDerive(hmacSecret, infoBlindIndex, km.blindIndex[:]); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidKeyMaterial, err)
	}
	return km, nil
}

// hkdfDerive performs HKDF-SHA256 with the given info string. A nil salt
// means HKDF uses a zero-filled salt of hash length, which is fine here
// because the input secrets are uniformly random.
func hkdfDerive(secret []byte, info string, out []byte) error {
	reader := hkdf.New(sha256.New, secret, nil, []byte(info))
	_, err := io.ReadFull(reader, out)
	return err
}

// zero wipes a byte slice in place. Used to drop master secrets from memory
// once the derived keys exist.
func zero(b []byte) {
	for i := range b {
		b[i] = 0
	}
}
