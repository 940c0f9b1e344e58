// Package fieldcrypt provides transparent field-level encryption with
// deterministic blind-index lookups for the clinic backend.
//
// Sensitive columns (national IDs, phone numbers, emails, clinical notes,
// free-form clinical JSON) are encrypted at rest with AES-256-GCM using a
// fresh random nonce per write, so ciphertext is never deterministic. Exact
// match lookup is preserved by storing a companion blind index: an
// HMAC-SHA256 digest of the normalized plaintext, keyed separately from the
// encryption key.
//
// # Components
//
//   - Engine: authenticated encryption of scalar strings and JSON values,
//     blind-index digests, and a cheap structural ciphertext classifier.
//   - Registry: the static table declaring, per entity kind, which fields
//     are sensitive, their value shape, and their blind-index companion.
//   - Codec: the write/read transform applied by repositories at their
//     storage boundary.
//   - Policy: process-wide key material and the enabled/disabled state,
//     built once at startup.
//
// # Usage
//
//	cfg, err := fieldcrypt.LoadConfigFromEnvironment()
//	if err != nil {
//	    log.Fatal(err)
//	}
//	policy, err := fieldcrypt.NewPolicy(cfg)
//	if err != nil {
//	    log.Fatal(err) // encryption requested but keys unusable
//	}
//	codec := fieldcrypt.NewCodec(policy, fieldcrypt.DefaultRegistry())
//
//	payload := fieldcrypt.Payload{"phone": "(11) 99999-0000"}
//	if err := codec.EncodePayload(fieldcrypt.KindPatient, payload); err != nil {
//	    return err
//	}
//	// payload["phone"] is now an envelope, payload["phone_idx"] a digest.
//
// Repositories that need "find patient by phone" compute the digest with
// Codec.BlindIndexFor and query the companion column for equality; the
// encrypted column itself is never usable in a WHERE clause.
//
// Range, prefix and contains queries over protected fields are not
// supported. Low-entropy inputs (a ten-digit phone number) remain
// brute-forceable against a known blind index; this package does not claim
// otherwise.
package fieldcrypt
