package fieldcrypt

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
)

// Engine performs the cryptographic primitives: randomized authenticated
// encryption of scalar strings and JSON values, deterministic blind-index
// digests, and the structural ciphertext classifier.
//
// An Engine is stateless beyond its immutable key material and is safe for
// concurrent use from any number of in-flight requests. All operations are
// synchronous and CPU-bound; none perform I/O.
type Engine struct {
	aead       cipher.AEAD
	encKey     [derivedKeySize]byte // retained for the CTR streaming path
	hmacKey    [derivedKeySize]byte
	serializer Serializer
}

func newEngine(km *keyMaterial, serializer Serializer) (*Engine, error) {
	block, err := aes.NewCipher(km.encryption[:])
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidKeyMaterial, err)
	}
	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidKeyMaterial, err)
	}
	if serializer == nil {
		serializer = JSONSerializer{}
	}
	e := &Engine{aead: aead, serializer: serializer}
	e.encKey = km.encryption
	e.hmacKey = km.blindIndex
	return e, nil
}

// Encrypt seals a scalar string into a fresh envelope. Encrypting the same
// plaintext twice yields two different envelopes because the nonce is drawn
// from crypto/rand on every call.
func (e *Engine) Encrypt(plaintext string) (string, error) {
	return e.seal([]byte(plaintext))
}

// Decrypt opens an envelope produced by Encrypt. A malformed envelope, a
// wrong key or a failed authentication tag all return ErrDecryptionFailed;
// no partial or unauthenticated plaintext is ever returned.
func (e *Engine) Decrypt(envelope string) (string, error) {
	plaintext, err := e.open(envelope)
	if err != nil {
		return "", err
	}
	return string(plaintext), nil
}

// EncryptJSON serializes any JSON-representable value and seals the result.
// Lists of strings and arbitrary structured clinical data both go through
// this path.
func (e *Engine) EncryptJSON(value any) (string, error) {
	data, err := e.serializer.Serialize(value)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrEncodingFailed, err)
	}
	return e.seal(data)
}

// DecryptJSON opens an envelope produced by EncryptJSON and deserializes the
// plaintext into target, which must be a pointer.
func (e *Engine) DecryptJSON(envelope string, target any) error {
	plaintext, err := e.open(envelope)
	if err != nil {
		return err
	}
	if err := e.serializer.Deserialize(plaintext, target); err != nil {
		return fmt.Errorf("%w: %v", ErrDecryptionFailed, err)
	}
	return nil
}

// IsEncrypted reports whether value is structurally an envelope. It never
// attempts decryption and never fails. It is used to keep the write path
// idempotent and to pass legacy plaintext rows through the read path
// untouched.
func (e *Engine) IsEncrypted(value string) bool {
	return isEnvelope(value)
}

// BlindIndex computes the deterministic HMAC-SHA256 digest of an
// already-normalized input, hex encoded. The HMAC key is derived separately
// from the encryption key, so compromise of one does not expose the other.
func (e *Engine) BlindIndex(normalized string) string {
	mac := hmac.New(sha256.New, e.hmacKey[:])
	mac.Write([]byte(normalized))
	return hex.EncodeToString(mac.Sum(nil))
}

func (e *Engine) seal(plaintext []byte) (string, error) {
	toEncrypt, flag := maybeCompress(plaintext)

	nonce := make([]byte, nonceSize)
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return "", fmt.Errorf("%w: nonce generation: %v", ErrEncryptionFailed, err)
	}

	sealed := e.aead.Seal(nil, nonce, toEncrypt, nil)
	return encodeEnvelope(flag, nonce, sealed), nil
}

func (e *Engine) open(envelope string) ([]byte, error) {
	flag, nonce, sealed, err := parseEnvelope(envelope)
	if err != nil {
		return nil, err
	}
	plaintext, err := e.aead.Open(nil, nonce, sealed, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: authentication failed", ErrDecryptionFailed)
	}
	return decompress(plaintext, flag)
}
