package domain

// Algorithm represents the cryptographic algorithm used for encryption.
//
// All supported algorithms provide Authenticated Encryption with Associated Data (AEAD),
// ensuring both confidentiality and authenticity of encrypted data.
//
// Algorithm selection guidelines:
//   - Use AESGCM on modern CPUs with AES-NI hardware acceleration
//   - Use ChaCha20 on systems without AES-NI
//   - Both provide equivalent 256-bit security when used correctly
type Algorithm string

const (
	// AESGCM represents the AES-256-GCM authenticated encryption algorithm.
	//
	// Uses a 256-bit key, a 12-byte nonce generated per encryption, and a
	// 16-byte authentication tag. Hardware-accelerated on most modern CPUs.
	AESGCM Algorithm = "aes-gcm"

	// ChaCha20 represents the ChaCha20-Poly1305 authenticated encryption algorithm.
	//
	// Uses a 256-bit key, a 12-byte nonce, and a 16-byte Poly1305 tag.
	// Constant-time in software; preferred on platforms without AES-NI.
	ChaCha20 Algorithm = "chacha20-poly1305"
)

// KeyType classifies what an encryption key protects.
type KeyType string

const (
	// KeyTypeData keys encrypt field values at rest. This is the type used by
	// the field encryptor and the only type eligible for background re-encryption.
	KeyTypeData KeyType = "DATA"

	// KeyTypeTransport keys protect data exchanged with external systems.
	KeyTypeTransport KeyType = "TRANSPORT"

	// KeyTypeSigning keys back HMAC signatures (e.g., webhook payloads).
	KeyTypeSigning KeyType = "SIGNING"
)

// ParseKeyType converts a string into a KeyType.
func ParseKeyType(s string) (KeyType, error) {
	switch KeyType(s) {
	case KeyTypeData, KeyTypeTransport, KeyTypeSigning:
		return KeyType(s), nil
	default:
		return "", ErrUnsupportedKeyType
	}
}

// ParseAlgorithm converts a string into an Algorithm.
func ParseAlgorithm(s string) (Algorithm, error) {
	switch Algorithm(s) {
	case AESGCM, ChaCha20:
		return Algorithm(s), nil
	default:
		return "", ErrUnsupportedAlgorithm
	}
}

// ScopeGlobal is the scope used for keys that are not bound to a tenant.
// Tenant-scoped keys use the organization identifier as the scope.
const ScopeGlobal = "global"

// NormalizeScope maps an empty scope to ScopeGlobal.
func NormalizeScope(scope string) string {
	if scope == "" {
		return ScopeGlobal
	}
	return scope
}
