package fieldcrypt

import (
	"fmt"
	"log/slog"

	"github.com/hengadev/errsx"
)

// Payload is the mutable field map a repository is about to persist or has
// just materialized. Each payload is exclusively owned by its request: the
// write path mutates it in place, so sharing one across concurrent writes is
// a caller bug.
type Payload = map[string]any

// Codec applies the write/read transform at a repository's storage boundary.
// Outgoing payloads get their sensitive fields encrypted and their blind
// indexes computed; incoming records get envelopes decrypted back to
// plaintext. Entities the registry does not mention pass through untouched
// at zero crypto cost.
//
// When the policy is disabled the codec is a pass-through; construction logs
// that state so plaintext persistence is an explicit operational fact, never
// a silent fallback.
type Codec struct {
	engine   *Engine // nil when the policy is disabled
	registry *Registry
	logger   *slog.Logger
}

// NewCodec binds a policy and a registry into a codec.
func NewCodec(policy *CryptoPolicy, registry *Registry) *Codec {
	logger := policy.logger
	if logger == nil {
		logger = slog.Default()
	}
	if !policy.Enabled() {
		logger.Warn("codec constructed against a disabled policy: payloads pass through untransformed",
			"component", "fieldcrypt")
		return &Codec{registry: registry, logger: logger}
	}
	return &Codec{engine: policy.Engine(), registry: registry, logger: logger}
}

// Enabled reports whether the codec transforms payloads at all.
func (c *Codec) Enabled() bool {
	return c.engine != nil
}

// EncodePayload runs the write-path transform on a single outgoing payload
// (insert or update). For every registered field present with a non-nil
// value it encrypts according to shape and fills the companion blind-index
// field from the normalized original plaintext. Already-encrypted values are
// left alone, so applying the transform twice is harmless.
//
// The transform is all-or-nothing: on any error the payload is untouched and
// the caller must abort the write before any storage I/O.
func (c *Codec) EncodePayload(kind Kind, payload Payload) error {
	if c.engine == nil || payload == nil {
		return nil
	}
	fields := c.registry.FieldsFor(kind)
	if fields == nil {
		return nil
	}

	// Stage every transformed value first so a failure on the third field
	// cannot leave the first two half-rewritten in the payload.
	staged := make(Payload, len(fields)*2)
	errs := make(errsx.Map)

	for _, fc := range fields {
		value, present := payload[fc.Name]
		if !present || value == nil {
			continue
		}

		if str, ok := value.(string); ok && c.engine.IsEncrypted(str) {
			continue // idempotence: never encrypt ciphertext again
		}

		switch fc.Shape {
		case ShapeScalar:
			plaintext, ok := value.(string)
			if !ok {
				errs.Set(fc.Name, fmt.Errorf("%w: scalar field must be a string, got %T", ErrEncodingFailed, value))
				continue
			}
			envelope, err := c.engine.Encrypt(plaintext)
			if err != nil {
				errs.Set(fc.Name, err)
				continue
			}
			staged[fc.Name] = envelope
			if fc.BlindIndex != "" {
				staged[fc.BlindIndex] = c.engine.BlindIndex(fc.Normalize.Apply(plaintext))
			}
		case ShapeStringList, ShapeJSON:
			envelope, err := c.engine.EncryptJSON(value)
			if err != nil {
				errs.Set(fc.Name, NewEncodingError(kind, fc.Name, err))
				continue
			}
			staged[fc.Name] = envelope
		}
	}

	if !errs.IsEmpty() {
		return fmt.Errorf("encode %s payload: %w", kind, errs.AsError())
	}
	for name, value := range staged {
		payload[name] = value
	}
	return nil
}

// EncodePayloads runs the write-path transform over a batch (batch-create or
// batch-update). The first failing payload aborts the whole batch before any
// of it reaches storage.
func (c *Codec) EncodePayloads(kind Kind, payloads ...Payload) error {
	for i, payload := range payloads {
		if err := c.EncodePayload(kind, payload); err != nil {
			return fmt.Errorf("payload %d: %w", i, err)
		}
	}
	return nil
}

// EncodeUpsert runs the write-path transform independently against the
// create branch and the update branch of an upsert, which may carry
// different field sets.
func (c *Codec) EncodeUpsert(kind Kind, create, update Payload) error {
	if err := c.EncodePayload(kind, create); err != nil {
		return fmt.Errorf("upsert create branch: %w", err)
	}
	if err := c.EncodePayload(kind, update); err != nil {
		return fmt.Errorf("upsert update branch: %w", err)
	}
	return nil
}

// DecodeRecord runs the read-path transform on one materialized record,
// replacing envelopes with plaintext in place. Values that are not
// structurally envelopes pass through unchanged, which is how rows persisted
// before encryption was enabled keep reading correctly.
func (c *Codec) DecodeRecord(kind Kind, record Payload) error {
	if c.engine == nil || record == nil {
		return nil
	}
	fields := c.registry.FieldsFor(kind)
	if fields == nil {
		return nil
	}

	for _, fc := range fields {
		value, present := record[fc.Name]
		if !present || value == nil {
			continue
		}
		envelope, ok := value.(string)
		if !ok || !c.engine.IsEncrypted(envelope) {
			continue // legacy plaintext row or non-string column
		}

		switch fc.Shape {
		case ShapeScalar:
			plaintext, err := c.engine.Decrypt(envelope)
			if err != nil {
				return c.decodeFailure(kind, fc.Name, err)
			}
			record[fc.Name] = plaintext
		case ShapeStringList:
			var list []string
			if err := c.engine.DecryptJSON(envelope, &list); err != nil {
				return c.decodeFailure(kind, fc.Name, err)
			}
			record[fc.Name] = list
		case ShapeJSON:
			var decoded any
			if err := c.engine.DecryptJSON(envelope, &decoded); err != nil {
				return c.decodeFailure(kind, fc.Name, err)
			}
			record[fc.Name] = decoded
		}
	}
	return nil
}

// DecodeRecords runs the read-path transform over a homogeneous result list.
//
// A decrypt failure on any record aborts the whole read. Partial results
// from a corrupted batch could mislead clinical decisions, so the failure is
// surfaced as a data-integrity incident instead of being dropped or
// redacted per row.
func (c *Codec) DecodeRecords(kind Kind, records []Payload) error {
	for i, record := range records {
		if err := c.DecodeRecord(kind, record); err != nil {
			return fmt.Errorf("record %d: %w", i, err)
		}
	}
	return nil
}

// BlindIndexFor computes the query-time digest for an equality search on a
// protected field, applying the same normalization rule declared for the
// write path. This is the only supported search modality for protected
// fields; the encrypted column itself never matches anything.
func (c *Codec) BlindIndexFor(kind Kind, field string, candidate string) (string, error) {
	if c.engine == nil {
		return "", ErrDisabledPolicy
	}
	for _, fc := range c.registry.FieldsFor(kind) {
		if fc.Name != field {
			continue
		}
		if fc.BlindIndex == "" {
			return "", NewFieldConfigError(kind, field, "field has no blind index")
		}
		return c.engine.BlindIndex(fc.Normalize.Apply(candidate)), nil
	}
	return "", NewFieldConfigError(kind, field, "field is not registered")
}

// decodeFailure logs enough context to find the offending record without
// leaking plaintext or key material, then returns the wrapped error.
func (c *Codec) decodeFailure(kind Kind, field string, err error) error {
	c.logger.Error("field decryption failed",
		"component", "fieldcrypt",
		"kind", kind.String(),
		"field", field)
	return NewDecryptionError(kind, field, err)
}
