package fieldcrypt

import (
	"crypto/rand"
	"encoding/hex"
	"io"
	"log/slog"
	"testing"
)

// Test utilities for this package's own tests and for consumers (the clinic
// repositories, the providers) that need a working policy without real key
// provisioning.

// NewTestConfig returns an enabled Config with fresh random secrets.
func NewTestConfig(t testing.TB) Config {
	t.Helper()
	return Config{
		Enabled:       true,
		EncryptionKey: randomHexSecret(t),
		HMACKey:       randomHexSecret(t),
	}
}

// NewTestPolicy returns an enabled policy backed by fresh random keys and a
// logger that writes through t.
func NewTestPolicy(t testing.TB) *CryptoPolicy {
	t.Helper()
	policy, err := NewPolicy(NewTestConfig(t), WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))))
	if err != nil {
		t.Fatalf("building test policy: %v", err)
	}
	return policy
}

// NewTestEngine returns the engine of a fresh test policy.
func NewTestEngine(t testing.TB) *Engine {
	t.Helper()
	return NewTestPolicy(t).Engine()
}

func randomHexSecret(t testing.TB) string {
	t.Helper()
	raw := make([]byte, minSecretLength)
	if _, err := io.ReadFull(rand.Reader, raw); err != nil {
		t.Fatalf("generating test secret: %v", err)
	}
	return hex.EncodeToString(raw)
}
