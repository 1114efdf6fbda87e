package domain

import (
	"github.com/credfolio/fieldvault/internal/errors"
)

// Cryptographic operation error definitions.
//
// These domain-specific errors wrap standard errors from internal/errors
// to provide context for cryptographic failures. All errors are mapped to
// appropriate HTTP status codes by the error handling layer.
var (
	// ErrMalformedEnvelope indicates a stored value carries the envelope prefix
	// but cannot be parsed. This points at data corruption or an envelope
	// written by a newer version of the codec, so it is always propagated and
	// never silently swallowed.
	//
	// HTTP Status: 422 Unprocessable Entity
	ErrMalformedEnvelope = errors.Wrap(errors.ErrInvalidInput, "malformed envelope")

	// ErrKeyNotFound indicates the key referenced by an envelope's key id is
	// absent from the cache and the store. Retrying won't materialize a missing
	// key, so callers must treat this as a data-access failure.
	//
	// HTTP Status: 404 Not Found
	ErrKeyNotFound = errors.Wrap(errors.ErrNotFound, "encryption key not found")

	// ErrDecryptionFailed indicates a decryption operation failed.
	//
	// This error can occur due to:
	//   - Wrong decryption key used
	//   - Ciphertext has been tampered with (authentication failure)
	//   - Unrecognized envelope version
	//
	// For security reasons, the specific cause is not disclosed to prevent
	// information leakage that could aid attackers. Callers must never
	// catch-and-ignore this error: it can indicate tampering.
	//
	// HTTP Status: 422 Unprocessable Entity
	ErrDecryptionFailed = errors.Wrap(errors.ErrInvalidInput, "decryption failed")

	// ErrInvalidCredentials indicates a key backup could not be opened with the
	// supplied password. Import fails closed: no key is inserted.
	//
	// HTTP Status: 401 Unauthorized
	ErrInvalidCredentials = errors.Wrap(errors.ErrUnauthorized, "invalid backup credentials")

	// ErrUnsupportedAlgorithm indicates the requested encryption algorithm is not
	// supported. Supported algorithms: AESGCM, ChaCha20.
	//
	// HTTP Status: 422 Unprocessable Entity
	ErrUnsupportedAlgorithm = errors.Wrap(errors.ErrInvalidInput, "unsupported algorithm")

	// ErrUnsupportedKeyType indicates an unknown key type was requested.
	// Supported types: DATA, TRANSPORT, SIGNING.
	//
	// HTTP Status: 422 Unprocessable Entity
	ErrUnsupportedKeyType = errors.Wrap(errors.ErrInvalidInput, "unsupported key type")

	// ErrInvalidKeySize indicates the cryptographic key size is invalid.
	// All working keys must be exactly 32 bytes (256 bits).
	//
	// HTTP Status: 422 Unprocessable Entity
	ErrInvalidKeySize = errors.Wrap(errors.ErrInvalidInput, "invalid key size")

	// ErrKeyRevoked indicates an attempt to encrypt with a revoked key.
	// Revoked key material is retained for decrypt-only use and is never
	// accepted for new encryption.
	//
	// HTTP Status: 403 Forbidden
	ErrKeyRevoked = errors.Wrap(errors.ErrForbidden, "key is revoked")

	// ErrRotationInProgress indicates a rotation was requested for a scope that
	// already has an in-flight re-encryption pass. Concurrent rotations for the
	// same scope are rejected rather than queued.
	//
	// HTTP Status: 409 Conflict
	ErrRotationInProgress = errors.Wrap(errors.ErrConflict, "rotation already in progress for scope")
)
