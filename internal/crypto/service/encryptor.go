package service

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"

	cryptoDomain "github.com/credfolio/fieldvault/internal/crypto/domain"
)

// detKeyIDPrefix marks an envelope key id as deterministic. The remainder of
// the id is the scope, which lets Decrypt re-derive the sub-key without the
// caller having to supply the scope separately.
const detKeyIDPrefix = "det:"

// EncryptionService is the encryption core.
//
// It owns the derived root keys and the in-memory key chain, and performs all
// field-level encrypt/decrypt operations. Standard mode selects the active
// data key for the scope and produces a fresh random nonce per call;
// deterministic mode derives a per-scope sub-key and a synthetic IV so equal
// plaintext maps to equal ciphertext within a scope.
//
// When constructed without a master secret the service runs in a degraded
// pass-through mode: Encrypt and Decrypt return their input unchanged and log
// a warning. Callers must tolerate this rather than crash. Operators can
// observe the state through Enabled and the status endpoint; silently storing
// plaintext is the most dangerous failure mode this system can have.
//
// Safe for concurrent use: the key chain is read-mostly and refreshed only by
// the key-generation path.
type EncryptionService struct {
	roots       *RootKeys // nil in degraded mode
	chain       *cryptoDomain.KeyChain
	aeadManager AEADManager
	logger      *slog.Logger
}

// NewEncryptionService derives root keys from the master secret and salt and
// returns a ready encryption core. An empty secret yields a degraded
// pass-through service; this is logged loudly but is not an error.
func NewEncryptionService(
	masterSecret, kdfSalt string,
	aeadManager AEADManager,
	logger *slog.Logger,
) (*EncryptionService, error) {
	svc := &EncryptionService{
		chain:       cryptoDomain.NewKeyChain(nil),
		aeadManager: aeadManager,
		logger:      logger,
	}

	if masterSecret == "" {
		logger.Warn("encryption master secret not configured, running in degraded pass-through mode; " +
			"sensitive fields will be stored as plaintext")
		return svc, nil
	}

	roots, err := DeriveRootKeys(masterSecret, kdfSalt)
	if err != nil {
		return nil, err
	}
	svc.roots = roots

	return svc, nil
}

// Enabled reports whether a master secret was configured.
func (s *EncryptionService) Enabled() bool {
	return s.roots != nil
}

// KeyChain exposes the in-memory key cache.
func (s *EncryptionService) KeyChain() *cryptoDomain.KeyChain {
	return s.chain
}

// Close zeroes root key material and clears the key chain.
func (s *EncryptionService) Close() {
	if s.roots != nil {
		s.roots.Close()
	}
	s.chain.Close()
}

// Encrypt encrypts a plaintext field value into an envelope string.
//
// Empty input passes through unchanged, as does input that already carries
// the envelope prefix (idempotent guard: re-encrypting ciphertext is a no-op).
func (s *EncryptionService) Encrypt(plaintext string, opts EncryptOptions) (string, error) {
	if plaintext == "" {
		return plaintext, nil
	}
	if cryptoDomain.IsEncoded(plaintext) {
		return plaintext, nil
	}
	if !s.Enabled() {
		s.logger.Warn("encryption disabled, storing value as plaintext",
			slog.String("scope", cryptoDomain.NormalizeScope(opts.Scope)))
		return plaintext, nil
	}

	if opts.Deterministic {
		return s.encryptDeterministic(plaintext, opts.Scope)
	}
	return s.encryptStandard(plaintext, opts)
}

// encryptStandard encrypts under the active data key for the scope, falling
// back to the master key (legacy envelope with no key id) when no working key
// has been generated yet.
func (s *EncryptionService) encryptStandard(plaintext string, opts EncryptOptions) (string, error) {
	key, keyID, err := s.selectKey(opts)
	if err != nil {
		return "", err
	}

	var aead AEAD
	if key != nil {
		aead, err = s.aeadManager.CreateCipher(key.Key, key.Algorithm)
	} else {
		aead, err = s.aeadManager.CreateCipher(s.roots.Master, cryptoDomain.AESGCM)
	}
	if err != nil {
		return "", err
	}

	sealed, nonce, err := aead.Encrypt([]byte(plaintext), nil)
	if err != nil {
		return "", fmt.Errorf("failed to encrypt field: %w", err)
	}

	// AEAD output carries the tag appended to the ciphertext; the envelope
	// stores them as separate segments.
	tagLen := aead.Overhead()
	envelope := cryptoDomain.Envelope{
		Version:    cryptoDomain.EnvelopeVersion,
		IV:         nonce,
		AuthTag:    sealed[len(sealed)-tagLen:],
		Ciphertext: sealed[:len(sealed)-tagLen],
		KeyID:      keyID,
	}
	return envelope.Encode(), nil
}

// selectKey resolves the working key for an encryption operation: an explicit
// KeyID when forced by re-encryption tooling, otherwise the active data key
// for the scope. A nil key with no error means "fall back to the master key".
func (s *EncryptionService) selectKey(opts EncryptOptions) (*cryptoDomain.EncryptionKey, string, error) {
	if opts.KeyID != "" {
		id, err := uuid.Parse(opts.KeyID)
		if err != nil {
			return nil, "", fmt.Errorf("%w: invalid key id %q", cryptoDomain.ErrKeyNotFound, opts.KeyID)
		}
		key, ok := s.chain.Get(id)
		if !ok {
			return nil, "", cryptoDomain.ErrKeyNotFound
		}
		if key.Revoked() {
			return nil, "", cryptoDomain.ErrKeyRevoked
		}
		return key, key.ID.String(), nil
	}

	key, ok := s.chain.Active(opts.Scope, cryptoDomain.KeyTypeData)
	if !ok {
		return nil, "", nil
	}
	if key.Revoked() {
		return nil, "", cryptoDomain.ErrKeyRevoked
	}
	return key, key.ID.String(), nil
}

// encryptDeterministic produces scope-stable ciphertext for equality search.
func (s *EncryptionService) encryptDeterministic(plaintext, scope string) (string, error) {
	scope = cryptoDomain.NormalizeScope(scope)

	subKey, err := s.roots.ScopeSubKey(scope)
	if err != nil {
		return "", err
	}
	defer cryptoDomain.Zero(subKey)

	iv, ciphertext, err := deterministicEncrypt(subKey, []byte(plaintext))
	if err != nil {
		return "", err
	}

	envelope := cryptoDomain.Envelope{
		Version:    cryptoDomain.EnvelopeVersion,
		IV:         iv,
		Ciphertext: ciphertext,
		KeyID:      detKeyIDPrefix + scope,
	}
	return envelope.Encode(), nil
}

// Decrypt reverses Encrypt.
//
// Values without the envelope prefix are legacy plaintext predating the
// feature and pass through unchanged; the system tolerates mixed data
// indefinitely. The key is resolved by the embedded key id, falling back to
// the master key only for legacy envelopes with no key id.
func (s *EncryptionService) Decrypt(value string) (string, error) {
	if value == "" || !cryptoDomain.IsEncoded(value) {
		return value, nil
	}
	if !s.Enabled() {
		s.logger.Warn("encryption disabled, returning stored envelope unchanged")
		return value, nil
	}

	envelope, err := cryptoDomain.DecodeEnvelope(value)
	if err != nil {
		return "", err
	}
	if envelope.Version != cryptoDomain.EnvelopeVersion {
		return "", fmt.Errorf("%w: unrecognized envelope version %d",
			cryptoDomain.ErrDecryptionFailed, envelope.Version)
	}

	if scope, ok := strings.CutPrefix(envelope.KeyID, detKeyIDPrefix); ok {
		return s.decryptDeterministic(envelope, scope)
	}
	return s.decryptStandard(envelope)
}

func (s *EncryptionService) decryptStandard(envelope cryptoDomain.Envelope) (string, error) {
	var aead AEAD
	var err error

	if envelope.KeyID == "" {
		// Legacy envelope written before working keys existed.
		aead, err = s.aeadManager.CreateCipher(s.roots.Master, cryptoDomain.AESGCM)
	} else {
		id, parseErr := uuid.Parse(envelope.KeyID)
		if parseErr != nil {
			return "", fmt.Errorf("%w: unparseable key id %q", cryptoDomain.ErrKeyNotFound, envelope.KeyID)
		}
		key, ok := s.chain.Get(id)
		if !ok {
			return "", cryptoDomain.ErrKeyNotFound
		}
		aead, err = s.aeadManager.CreateCipher(key.Key, key.Algorithm)
	}
	if err != nil {
		return "", err
	}

	sealed := append(append([]byte{}, envelope.Ciphertext...), envelope.AuthTag...)
	plaintext, err := aead.Decrypt(sealed, envelope.IV, nil)
	if err != nil {
		return "", cryptoDomain.ErrDecryptionFailed
	}
	return string(plaintext), nil
}

func (s *EncryptionService) decryptDeterministic(envelope cryptoDomain.Envelope, scope string) (string, error) {
	subKey, err := s.roots.ScopeSubKey(scope)
	if err != nil {
		return "", err
	}
	defer cryptoDomain.Zero(subKey)

	plaintext, err := deterministicDecrypt(subKey, envelope.IV, envelope.Ciphertext)
	if err != nil {
		return "", cryptoDomain.ErrDecryptionFailed
	}

	// Deterministic envelopes carry no tag; recomputing the synthetic IV from
	// the recovered plaintext is the integrity check.
	if !envelopeIVMatches(subKey, plaintext, envelope.IV) {
		return "", cryptoDomain.ErrDecryptionFailed
	}
	return string(plaintext), nil
}

// envelopeIVMatches verifies the stored IV against one recomputed from the
// decrypted plaintext.
func envelopeIVMatches(subKey, plaintext, iv []byte) bool {
	expected := deterministicIV(subKey, plaintext)
	if len(expected) != len(iv) {
		return false
	}
	var diff byte
	for i := range expected {
		diff |= expected[i] ^ iv[i]
	}
	return diff == 0
}

// IsEncrypted reports whether the value carries the envelope prefix.
func (s *EncryptionService) IsEncrypted(value string) bool {
	return cryptoDomain.IsEncoded(value)
}

// WrapKey encrypts raw working-key material under the master key for storage.
func (s *EncryptionService) WrapKey(material []byte) ([]byte, []byte, error) {
	if !s.Enabled() {
		return nil, nil, fmt.Errorf("cannot wrap key material: encryption disabled")
	}
	aead, err := s.aeadManager.CreateCipher(s.roots.Master, cryptoDomain.AESGCM)
	if err != nil {
		return nil, nil, err
	}
	encrypted, nonce, err := aead.Encrypt(material, nil)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to wrap key material: %w", err)
	}
	return encrypted, nonce, nil
}

// UnwrapKey recovers the plaintext material of a stored key.
func (s *EncryptionService) UnwrapKey(key *cryptoDomain.EncryptionKey) ([]byte, error) {
	if !s.Enabled() {
		return nil, fmt.Errorf("cannot unwrap key material: encryption disabled")
	}
	aead, err := s.aeadManager.CreateCipher(s.roots.Master, cryptoDomain.AESGCM)
	if err != nil {
		return nil, err
	}
	material, err := aead.Decrypt(key.EncryptedMaterial, key.Nonce, nil)
	if err != nil {
		return nil, cryptoDomain.ErrDecryptionFailed
	}
	return material, nil
}
