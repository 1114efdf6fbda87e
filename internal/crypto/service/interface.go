// Package service provides the cryptographic engine for field-level encryption:
// AEAD ciphers (AES-256-GCM, ChaCha20-Poly1305), slow key derivation from the
// master secret, a deterministic equality-searchable mode, display masking, and
// the Encryptor that composes them against the in-memory key chain.
package service

import (
	cryptoDomain "github.com/credfolio/fieldvault/internal/crypto/domain"
)

// AEAD defines the interface for Authenticated Encryption with Associated Data.
type AEAD interface {
	// Encrypt encrypts plaintext with optional AAD and returns ciphertext and nonce.
	Encrypt(plaintext, aad []byte) (ciphertext, nonce []byte, err error)

	// Decrypt decrypts ciphertext using the provided nonce and AAD.
	Decrypt(ciphertext, nonce, aad []byte) ([]byte, error)

	// Overhead returns the size in bytes of the authentication tag appended to
	// the ciphertext.
	Overhead() int
}

// AEADManager defines the interface for creating AEAD cipher instances.
type AEADManager interface {
	// CreateCipher creates an AEAD cipher instance for the specified algorithm.
	CreateCipher(key []byte, alg cryptoDomain.Algorithm) (AEAD, error)
}

// EncryptOptions controls a single field encryption operation.
//
// Deterministic selects the equality-searchable mode; it is per-field policy
// from the registry, never a per-call caller choice. Scope is the tenant
// boundary the key is selected (or sub-key derived) for. KeyID forces a
// specific key and is used only by re-encryption tooling.
type EncryptOptions struct {
	Deterministic bool
	Scope         string
	KeyID         string
}

// Encryptor is the encryption core consumed by the field encryptor, the key
// manager, and the persistence interceptor.
type Encryptor interface {
	// Encrypt encrypts a plaintext field value into an envelope string.
	// Empty values and values already carrying the envelope prefix pass
	// through unchanged. In degraded mode (no master secret) the input is
	// returned unchanged with a warning-level log.
	Encrypt(plaintext string, opts EncryptOptions) (string, error)

	// Decrypt reverses Encrypt. Values without the envelope prefix (legacy
	// plaintext) pass through unchanged.
	Decrypt(value string) (string, error)

	// IsEncrypted reports whether the value carries the envelope prefix.
	// It never fails.
	IsEncrypted(value string) bool

	// Enabled reports whether a master secret was configured. False means the
	// service is running in degraded pass-through mode.
	Enabled() bool

	// WrapKey encrypts raw working-key material under the master key for
	// storage at rest.
	WrapKey(material []byte) (encrypted, nonce []byte, err error)

	// UnwrapKey recovers the plaintext material of a stored key.
	UnwrapKey(key *cryptoDomain.EncryptionKey) ([]byte, error)

	// KeyChain exposes the in-memory key cache so the key manager can refresh
	// it after generation and rotation.
	KeyChain() *cryptoDomain.KeyChain
}
