package fieldcrypt

import (
	"log/slog"
)

// CryptoPolicy is the process-wide decision of whether field encryption is
// active, plus exclusive ownership of the derived key material when it is.
// It is constructed exactly once at startup and injected into every
// component that needs it; nothing reads ambient global state.
type CryptoPolicy struct {
	enabled bool
	engine  *Engine
	logger  *slog.Logger
}

// PolicyOption customizes policy construction.
type PolicyOption func(*policyOptions)

type policyOptions struct {
	serializer Serializer
	logger     *slog.Logger
}

// WithSerializer replaces the default JSONSerializer used for JSON-shaped
// fields.
func WithSerializer(s Serializer) PolicyOption {
	return func(o *policyOptions) { o.serializer = s }
}

// WithLogger replaces the default slog logger.
func WithLogger(l *slog.Logger) PolicyOption {
	return func(o *policyOptions) { o.logger = l }
}

// NewPolicy builds the policy from configuration.
//
// Encryption requested with missing or malformed secrets is fatal: the
// process must not boot half-configured and quietly persist plaintext.
// Encryption not requested produces a disabled policy, announced at WARN
// level because it means sensitive fields will be stored in the clear.
//
// The raw secrets are wiped from memory as soon as the derived keys exist;
// the policy is the only holder of the key material afterwards.
func NewPolicy(cfg Config, opts ...PolicyOption) (*CryptoPolicy, error) {
	options := &policyOptions{logger: slog.Default()}
	for _, opt := range opts {
		opt(options)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	if !cfg.Enabled {
		options.logger.Warn("field encryption DISABLED: sensitive fields will be stored in plaintext",
			"component", "fieldcrypt")
		return &CryptoPolicy{enabled: false, logger: options.logger}, nil
	}

	encryptionSecret, err := decodeSecret(cfg.EncryptionKey)
	if err != nil {
		return nil, err
	}
	hmacSecret, err := decodeSecret(cfg.HMACKey)
	if err != nil {
		zero(encryptionSecret)
		return nil, err
	}

	km, err := deriveKeyMaterial(encryptionSecret, hmacSecret)
	zero(encryptionSecret)
	zero(hmacSecret)
	if err != nil {
		return nil, err
	}

	engine, err := newEngine(km, options.serializer)
	if err != nil {
		return nil, err
	}

	options.logger.Info("field encryption enabled",
		"component", "fieldcrypt",
		"envelope_version", envelopePrefix[:len(envelopePrefix)-1])

	return &CryptoPolicy{enabled: true, engine: engine, logger: options.logger}, nil
}

// Enabled reports whether field encryption is active.
func (p *CryptoPolicy) Enabled() bool {
	return p.enabled
}

// Engine returns the crypto engine, or nil when the policy is disabled.
// Callers that need crypto unconditionally should check Enabled first and
// refuse to install themselves otherwise.
func (p *CryptoPolicy) Engine() *Engine {
	return p.engine
}
