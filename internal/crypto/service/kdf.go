package service

import (
	"crypto/hmac"
	"crypto/pbkdf2"
	"crypto/sha256"
	"crypto/sha512"
	"fmt"
	"io"

	"golang.org/x/crypto/hkdf"

	cryptoDomain "github.com/credfolio/fieldvault/internal/crypto/domain"
)

const (
	// kdfIterations is the PBKDF2 iteration count for deriving root keys from
	// the master secret. Deliberately slow; derivation happens once at startup.
	kdfIterations = 210_000

	// kdfOutputLen is the width of the derived output: 32 bytes for the master
	// key plus 32 bytes for the deterministic-mode root key.
	kdfOutputLen = 64

	// backupKeyLen is the size of the key wrapping exported key backups.
	backupKeyLen = 32
)

// RootKeys holds the two keys derived from the master secret at startup.
//
// Master wraps working-key material at rest and decrypts legacy envelopes that
// carry no key id. DeterministicRoot is never used to encrypt directly; it
// seeds per-scope sub-keys so identical plaintext in different tenants yields
// unlinkable ciphertext.
type RootKeys struct {
	Master            []byte
	DeterministicRoot []byte
}

// DeriveRootKeys stretches the master secret and salt through PBKDF2-SHA512
// into the master key and the deterministic root key.
func DeriveRootKeys(secret, salt string) (*RootKeys, error) {
	if secret == "" {
		return nil, fmt.Errorf("master secret must not be empty")
	}

	out, err := pbkdf2.Key(sha512.New, secret, []byte(salt), kdfIterations, kdfOutputLen)
	if err != nil {
		return nil, fmt.Errorf("failed to derive root keys: %w", err)
	}

	return &RootKeys{
		Master:            out[:32],
		DeterministicRoot: out[32:],
	}, nil
}

// Close zeroes the derived key material.
func (r *RootKeys) Close() {
	cryptoDomain.Zero(r.Master)
	cryptoDomain.Zero(r.DeterministicRoot)
}

// ScopeSubKey derives the deterministic sub-key for a scope via HKDF over the
// deterministic root. Different scopes yield independent sub-keys, so equal
// plaintext across tenants cannot be linked from ciphertext alone.
func (r *RootKeys) ScopeSubKey(scope string) ([]byte, error) {
	scope = cryptoDomain.NormalizeScope(scope)
	reader := hkdf.New(sha256.New, r.DeterministicRoot, nil, []byte("fieldvault-deterministic:"+scope))
	key := make([]byte, 32)
	if _, err := io.ReadFull(reader, key); err != nil {
		return nil, fmt.Errorf("failed to derive scope sub-key: %w", err)
	}
	return key, nil
}

// DeriveBackupKey stretches a backup password with an independent random salt.
// Used to wrap key exports; intentionally as slow as the root derivation so a
// stolen backup blob resists offline guessing.
func DeriveBackupKey(password string, salt []byte) ([]byte, error) {
	if password == "" {
		return nil, fmt.Errorf("backup password must not be empty")
	}
	key, err := pbkdf2.Key(sha512.New, password, salt, kdfIterations, backupKeyLen)
	if err != nil {
		return nil, fmt.Errorf("failed to derive backup key: %w", err)
	}
	return key, nil
}

// deterministicIV computes the synthetic IV for deterministic mode: the first
// 16 bytes of HMAC-SHA256(sub-key, plaintext). Identical plaintext under the
// same sub-key always maps to the same IV, which is what makes equality
// lookups possible.
func deterministicIV(subKey, plaintext []byte) []byte {
	mac := hmac.New(sha256.New, subKey)
	mac.Write(plaintext)
	return mac.Sum(nil)[:16]
}
