package fieldcrypt

import (
	"fmt"
	"os"
	"strconv"
)

// Environment variable names for configuration.
const (
	EnvEnabled       = "FIELDCRYPT_ENABLED"
	EnvEncryptionKey = "FIELDCRYPT_ENCRYPTION_KEY"
	EnvHMACKey       = "FIELDCRYPT_HMAC_KEY"
)

// LoadConfigFromEnvironment reads configuration from environment variables,
// following the 12-factor convention. It returns a validated Config.
//
// Variables:
//   - FIELDCRYPT_ENABLED: "true" to request field encryption (default false)
//   - FIELDCRYPT_ENCRYPTION_KEY: opaque secret, hex or base64 (required when enabled)
//   - FIELDCRYPT_HMAC_KEY: opaque secret, hex or base64 (required when enabled)
func LoadConfigFromEnvironment() (Config, error) {
	cfg := Config{
		EncryptionKey: os.Getenv(EnvEncryptionKey),
		HMACKey:       os.Getenv(EnvHMACKey),
	}

	if raw := os.Getenv(EnvEnabled); raw != "" {
		enabled, err := strconv.ParseBool(raw)
		if err != nil {
			return Config{}, fmt.Errorf("%w: %s must be a boolean, got %q",
				ErrInvalidConfiguration, EnvEnabled, raw)
		}
		cfg.Enabled = enabled
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}
