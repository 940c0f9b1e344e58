package env_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/helioscare/fieldcrypt"
	"github.com/helioscare/fieldcrypt/providers/secretsource/env"
)

func TestGetSecret(t *testing.T) {
	t.Setenv("CLINIC_TEST_SECRET", "super-secret-value")

	source := env.New()
	value, err := source.GetSecret(context.Background(), "CLINIC_TEST_SECRET")
	require.NoError(t, err)
	assert.Equal(t, "super-secret-value", value)
}

func TestGetSecretMissing(t *testing.T) {
	source := env.New()
	_, err := source.GetSecret(context.Background(), "CLINIC_TEST_SECRET_UNSET")
	require.Error(t, err)
	assert.ErrorIs(t, err, fieldcrypt.ErrSecretSourceUnavailable)
	assert.Contains(t, err.Error(), "CLINIC_TEST_SECRET_UNSET")
}

func TestLoadConfigFromSource(t *testing.T) {
	encKey := "0000000000000000000000000000000000000000000000000000000000000001"
	hmacKey := "0000000000000000000000000000000000000000000000000000000000000002"
	t.Setenv("FC_ENC", encKey)
	t.Setenv("FC_HMAC", hmacKey)

	cfg, err := fieldcrypt.LoadConfigFromSource(context.Background(), env.New(), "FC_ENC", "FC_HMAC")
	require.NoError(t, err)
	assert.True(t, cfg.Enabled)
	assert.Equal(t, encKey, cfg.EncryptionKey)
	assert.Equal(t, hmacKey, cfg.HMACKey)

	_, err = fieldcrypt.NewPolicy(cfg)
	require.NoError(t, err)
}
