package fieldcrypt

import (
	"errors"
	"fmt"
)

var (
	// Configuration errors
	ErrInvalidConfiguration = errors.New("invalid configuration")
	ErrMissingKeyMaterial   = errors.New("key material is missing")
	ErrInvalidKeyMaterial   = errors.New("key material is malformed")

	// Operation errors
	ErrEncryptionFailed = errors.New("encryption failed")
	ErrDecryptionFailed = errors.New("decryption failed")
	ErrEncodingFailed   = errors.New("value encoding failed")

	// Envelope errors
	ErrInvalidEnvelope = errors.New("invalid ciphertext envelope")

	// Provider errors
	ErrSecretSourceUnavailable = errors.New("secret source unavailable")

	// Registry errors
	ErrUnknownKind    = errors.New("unknown entity kind")
	ErrInvalidField   = errors.New("invalid field configuration")
	ErrDisabledPolicy = errors.New("crypto policy is disabled")
)

func NewConfigurationError(detail string) error {
	return fmt.Errorf("%w: %s", ErrInvalidConfiguration, detail)
}

func NewEncodingError(kind Kind, field string, cause error) error {
	return fmt.Errorf("%w: field '%s' of %s cannot be serialized: %v",
		ErrEncodingFailed, field, kind, cause)
}

func NewDecryptionError(kind Kind, field string, cause error) error {
	return fmt.Errorf("%w: field '%s' of %s: %v",
		ErrDecryptionFailed, field, kind, cause)
}

func NewFieldConfigError(kind Kind, field string, detail string) error {
	return fmt.Errorf("%w: field '%s' of %s: %s", ErrInvalidField, field, kind, detail)
}

// IsConfigurationError returns true if the error represents a configuration
// problem that should abort process boot.
func IsConfigurationError(err error) bool {
	return errors.Is(err, ErrInvalidConfiguration) ||
		errors.Is(err, ErrMissingKeyMaterial) ||
		errors.Is(err, ErrInvalidKeyMaterial) ||
		errors.Is(err, ErrInvalidField)
}

// IsOperationError returns true if the error represents a failure during an
// encrypt/decrypt operation. These are data or programming errors, never
// transient faults, so retrying them is pointless.
func IsOperationError(err error) bool {
	return errors.Is(err, ErrEncryptionFailed) ||
		errors.Is(err, ErrDecryptionFailed) ||
		errors.Is(err, ErrInvalidEnvelope)
}

// IsEncodingError returns true if the error represents a value that could not
// be serialized before encryption. The surrounding write must be aborted
// before any storage I/O.
func IsEncodingError(err error) bool {
	return errors.Is(err, ErrEncodingFailed)
}
