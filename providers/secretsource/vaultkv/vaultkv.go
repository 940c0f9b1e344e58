// Package vaultkv provides a fieldcrypt.KeySource backed by HashiCorp
// Vault's KV v2 secrets engine.
package vaultkv

import (
	"context"
	"fmt"
	"net/http"
	"os"

	"github.com/hashicorp/vault/api"

	"github.com/helioscare/fieldcrypt"
)

// Source implements fieldcrypt.KeySource over Vault KV v2. Secret names are
// KV v2 data paths (e.g. "secret/data/clinic/fieldcrypt/encryption-key");
// the secret's value is expected under the "value" key.
type Source struct {
	client *api.Client
}

// New creates a Vault-backed source using environment configuration.
//
// Environment variables:
//   - VAULT_ADDR: Vault server address (required)
//   - VAULT_NAMESPACE: namespace for HCP Vault (optional)
//   - VAULT_TOKEN: direct token auth (optional)
//   - VAULT_ROLE_ID / VAULT_SECRET_ID: AppRole auth (optional pair)
func New() (*Source, error) {
	config := api.DefaultConfig()

	if addr := os.Getenv("VAULT_ADDR"); addr != "" {
		config.Address = addr
	}
	if config.Address == "" {
		return nil, fieldcrypt.NewConfigurationError("VAULT_ADDR environment variable is required")
	}

	config.HttpClient.Transport = &http.Transport{
		Proxy: http.ProxyFromEnvironment,
	}

	client, err := api.NewClient(config)
	if err != nil {
		return nil, fmt.Errorf("%w: creating Vault client: %w",
			fieldcrypt.ErrSecretSourceUnavailable, err)
	}

	if namespace := os.Getenv("VAULT_NAMESPACE"); namespace != "" {
		client.SetNamespace(namespace)
	}

	roleID := os.Getenv("VAULT_ROLE_ID")
	secretID := os.Getenv("VAULT_SECRET_ID")
	if roleID != "" && secretID != "" {
		resp, err := client.Logical().Write("auth/approle/login", map[string]interface{}{
			"role_id":   roleID,
			"secret_id": secretID,
		})
		if err != nil {
			return nil, fmt.Errorf("%w: AppRole login: %w",
				fieldcrypt.ErrSecretSourceUnavailable, err)
		}
		if resp.Auth == nil {
			return nil, fmt.Errorf("%w: no auth info returned from AppRole login",
				fieldcrypt.ErrSecretSourceUnavailable)
		}
		client.SetToken(resp.Auth.ClientToken)
	}

	return &Source{client: client}, nil
}

// GetSecret reads a KV v2 path and returns the "value" field.
func (s *Source) GetSecret(ctx context.Context, name string) (string, error) {
	secret, err := s.client.Logical().ReadWithContext(ctx, name)
	if err != nil {
		return "", fmt.Errorf("%w: reading %q: %w",
			fieldcrypt.ErrSecretSourceUnavailable, name, err)
	}
	if secret == nil || secret.Data == nil {
		return "", fmt.Errorf("%w: secret not found at %q",
			fieldcrypt.ErrSecretSourceUnavailable, name)
	}

	// KV v2 wraps the payload in a "data" key.
	data, ok := secret.Data["data"].(map[string]interface{})
	if !ok {
		return "", fmt.Errorf("%w: %q is not a KV v2 secret",
			fieldcrypt.ErrSecretSourceUnavailable, name)
	}
	value, ok := data["value"].(string)
	if !ok || value == "" {
		return "", fmt.Errorf("%w: secret at %q has no \"value\" field",
			fieldcrypt.ErrSecretSourceUnavailable, name)
	}
	return value, nil
}
