package fieldcrypt

import (
	"context"
	"fmt"
)

// KeySource retrieves opaque secret strings by name from wherever the
// deployment keeps them (environment, AWS Secrets Manager, Vault KV).
// Implementations live under providers/secretsource.
type KeySource interface {
	// GetSecret returns the secret value for name. A missing secret is an
	// error wrapping ErrSecretSourceUnavailable.
	GetSecret(ctx context.Context, name string) (string, error)
}

// LoadConfigFromSource fetches both secrets from a KeySource and returns an
// enabled, validated Config. Pulling keys from a source is an explicit
// request for encryption, so any retrieval failure is fatal to startup.
func LoadConfigFromSource(ctx context.Context, source KeySource, encryptionKeyName, hmacKeyName string) (Config, error) {
	encryptionKey, err := source.GetSecret(ctx, encryptionKeyName)
	if err != nil {
		return Config{}, fmt.Errorf("fetching encryption key %q: %w", encryptionKeyName, err)
	}
	hmacKey, err := source.GetSecret(ctx, hmacKeyName)
	if err != nil {
		return Config{}, fmt.Errorf("fetching hmac key %q: %w", hmacKeyName, err)
	}

	cfg := Config{
		Enabled:       true,
		EncryptionKey: encryptionKey,
		HMACKey:       hmacKey,
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}
