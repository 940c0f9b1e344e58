package fieldcrypt_test

import (
	"encoding/base64"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/helioscare/fieldcrypt"
)

func TestEncryptDecryptRoundTrip(t *testing.T) {
	engine := fieldcrypt.NewTestEngine(t)

	tests := []struct {
		name      string
		plaintext string
	}{
		{"simple", "hello world"},
		{"empty string", ""},
		{"non-ascii", "José Álvares, 北京, façade, émoji 🩺"},
		{"phone number", "(11) 98888-7777"},
		{"long clinical note", strings.Repeat("patient presents with recurring migraine. ", 100)},
		{"binary-looking", "\x00\x01\x02\xff"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			envelope, err := engine.Encrypt(tt.plaintext)
			require.NoError(t, err)
			assert.True(t, engine.IsEncrypted(envelope))

			decrypted, err := engine.Decrypt(envelope)
			require.NoError(t, err)
			assert.Equal(t, tt.plaintext, decrypted)
		})
	}
}

func TestEncryptIsNonDeterministic(t *testing.T) {
	engine := fieldcrypt.NewTestEngine(t)

	first, err := engine.Encrypt("same plaintext")
	require.NoError(t, err)
	second, err := engine.Encrypt("same plaintext")
	require.NoError(t, err)

	assert.NotEqual(t, first, second, "two encryptions of the same plaintext must differ")
}

func TestEncryptJSONRoundTrip(t *testing.T) {
	engine := fieldcrypt.NewTestEngine(t)

	tests := []struct {
		name  string
		value any
	}{
		{"string list", []string{"dipyrone", "penicillin"}},
		{"nested object", map[string]any{
			"blood_type": "O-",
			"vitals": map[string]any{
				"heart_rate": float64(72),
				"bp":         "120/80",
			},
			"flags": []any{"diabetic", float64(2)},
		}},
		{"primitive", float64(42)},
		{"null", nil},
		{"array of mixed", []any{"a", float64(1), true, nil}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			envelope, err := engine.EncryptJSON(tt.value)
			require.NoError(t, err)
			assert.True(t, engine.IsEncrypted(envelope))

			var decoded any
			require.NoError(t, engine.DecryptJSON(envelope, &decoded))
			assert.Equal(t, tt.value, decoded)
		})
	}
}

func TestEncryptJSONStringListTarget(t *testing.T) {
	engine := fieldcrypt.NewTestEngine(t)

	envelope, err := engine.EncryptJSON([]string{"latex", "iodine"})
	require.NoError(t, err)

	var list []string
	require.NoError(t, engine.DecryptJSON(envelope, &list))
	assert.Equal(t, []string{"latex", "iodine"}, list)
}

func TestEncryptJSONUnserializableValue(t *testing.T) {
	engine := fieldcrypt.NewTestEngine(t)

	_, err := engine.EncryptJSON(map[string]any{"ch": make(chan int)})
	require.Error(t, err)
	assert.True(t, fieldcrypt.IsEncodingError(err))
}

func TestDecryptTamperDetection(t *testing.T) {
	engine := fieldcrypt.NewTestEngine(t)

	envelope, err := engine.Encrypt("sensitive value")
	require.NoError(t, err)

	t.Run("bit flip", func(t *testing.T) {
		body := envelope[len("fc1$"):]
		raw, err := base64.StdEncoding.DecodeString(body)
		require.NoError(t, err)
		raw[len(raw)-1] ^= 0x01
		tampered := "fc1$" + base64.StdEncoding.EncodeToString(raw)

		_, err = engine.Decrypt(tampered)
		require.Error(t, err)
		assert.ErrorIs(t, err, fieldcrypt.ErrDecryptionFailed)
	})

	t.Run("truncated", func(t *testing.T) {
		body := envelope[len("fc1$"):]
		raw, err := base64.StdEncoding.DecodeString(body)
		require.NoError(t, err)
		truncated := "fc1$" + base64.StdEncoding.EncodeToString(raw[:10])

		_, err = engine.Decrypt(truncated)
		require.Error(t, err)
		assert.ErrorIs(t, err, fieldcrypt.ErrInvalidEnvelope)
	})

	t.Run("garbage", func(t *testing.T) {
		_, err := engine.Decrypt("not an envelope at all")
		require.Error(t, err)
		assert.ErrorIs(t, err, fieldcrypt.ErrInvalidEnvelope)
	})

	t.Run("wrong key", func(t *testing.T) {
		other := fieldcrypt.NewTestEngine(t)
		_, err := other.Decrypt(envelope)
		require.Error(t, err)
		assert.ErrorIs(t, err, fieldcrypt.ErrDecryptionFailed)
	})
}

func TestIsEncryptedClassifier(t *testing.T) {
	engine := fieldcrypt.NewTestEngine(t)

	envelope, err := engine.Encrypt("value")
	require.NoError(t, err)

	tests := []struct {
		name  string
		value string
		want  bool
	}{
		{"real envelope", envelope, true},
		{"plain string", "11988887777", false},
		{"empty string", "", false},
		{"prefix only", "fc1$", false},
		{"prefix with invalid base64", "fc1$not base64!!!", false},
		{"prefix with short body", "fc1$QUJD", false},
		{"email", "maria@example.com", false},
		{"plaintext json", `{"blood_type":"O-"}`, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, engine.IsEncrypted(tt.value))
		})
	}
}

func TestBlindIndexDeterminism(t *testing.T) {
	engine := fieldcrypt.NewTestEngine(t)

	first := engine.BlindIndex("11988887777")
	second := engine.BlindIndex("11988887777")
	assert.Equal(t, first, second)
	assert.Len(t, first, 64, "hex-encoded HMAC-SHA256")

	different := engine.BlindIndex("11988887778")
	assert.NotEqual(t, first, different)
}

func TestBlindIndexKeySeparation(t *testing.T) {
	cfg := fieldcrypt.NewTestConfig(t)
	policy, err := fieldcrypt.NewPolicy(cfg)
	require.NoError(t, err)

	// Same encryption secret, different HMAC secret: digests must differ.
	other := cfg
	other.HMACKey = fieldcrypt.NewTestConfig(t).HMACKey
	otherPolicy, err := fieldcrypt.NewPolicy(other)
	require.NoError(t, err)

	assert.NotEqual(t,
		policy.Engine().BlindIndex("11988887777"),
		otherPolicy.Engine().BlindIndex("11988887777"))
}

func TestLargePayloadCompressionRoundTrip(t *testing.T) {
	engine := fieldcrypt.NewTestEngine(t)

	// Highly compressible payload well above the 1KiB threshold.
	history := make([]any, 200)
	for i := range history {
		history[i] = map[string]any{"event": "consultation", "outcome": "stable"}
	}
	value := map[string]any{"history": history}

	envelope, err := engine.EncryptJSON(value)
	require.NoError(t, err)

	var decoded any
	require.NoError(t, engine.DecryptJSON(envelope, &decoded))
	assert.Equal(t, value, decoded)
}

func TestEngineConcurrentUse(t *testing.T) {
	engine := fieldcrypt.NewTestEngine(t)

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				envelope, err := engine.Encrypt("concurrent plaintext")
				assert.NoError(t, err)
				plaintext, err := engine.Decrypt(envelope)
				assert.NoError(t, err)
				assert.Equal(t, "concurrent plaintext", plaintext)
				_ = engine.BlindIndex("11988887777")
			}
		}()
	}
	wg.Wait()
}
