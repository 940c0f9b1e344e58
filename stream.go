package fieldcrypt

import (
	"bytes"
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"fmt"
	"io"
)

// Streaming encryption for clinic attachments (exam images, PDF exports).
// Attachments are too large for the envelope path, so they use AES-CTR with
// a per-object random IV written ahead of the ciphertext. Streams carry no
// blind index and are not searchable.

// EncryptStream wraps reader so that everything read from the returned
// reader is ciphertext. The random IV is returned separately; store or
// prepend it, it is required for decryption and is not secret.
func (e *Engine) EncryptStream(reader io.Reader) (io.Reader, []byte, error) {
	block, err := aes.NewCipher(e.encKey[:])
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %v", ErrEncryptionFailed, err)
	}

	iv := make([]byte, aes.BlockSize)
	if _, err := io.ReadFull(rand.Reader, iv); err != nil {
		return nil, nil, fmt.Errorf("%w: iv generation: %v", ErrEncryptionFailed, err)
	}

	stream := cipher.NewCTR(block, iv)
	return &cipher.StreamReader{S: stream, R: reader}, iv, nil
}

// DecryptStream reverses EncryptStream given the IV that accompanied the
// object. CTR mode provides no authentication; attachment integrity is the
// blob store's concern (checksums on upload).
func (e *Engine) DecryptStream(reader io.Reader, iv []byte) (io.Reader, error) {
	if len(iv) != aes.BlockSize {
		return nil, fmt.Errorf("%w: iv must be %d bytes, got %d", ErrDecryptionFailed, aes.BlockSize, len(iv))
	}
	block, err := aes.NewCipher(e.encKey[:])
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDecryptionFailed, err)
	}
	stream := cipher.NewCTR(block, iv)
	return &cipher.StreamReader{S: stream, R: reader}, nil
}

// SealedReader prepends the IV to the encrypted stream so the whole object
// is self-describing: [iv:16][ctr ciphertext]. OpenSealedReader reverses it.
func (e *Engine) SealedReader(reader io.Reader) (io.Reader, error) {
	encrypted, iv, err := e.EncryptStream(reader)
	if err != nil {
		return nil, err
	}
	return io.MultiReader(bytes.NewReader(iv), encrypted), nil
}

// OpenSealedReader reads the leading IV and returns the plaintext stream.
func (e *Engine) OpenSealedReader(reader io.Reader) (io.Reader, error) {
	iv := make([]byte, aes.BlockSize)
	if _, err := io.ReadFull(reader, iv); err != nil {
		return nil, fmt.Errorf("%w: reading iv: %v", ErrDecryptionFailed, err)
	}
	return e.DecryptStream(reader, iv)
}
