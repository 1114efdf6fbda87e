package domain

import (
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// KeyStatus is the lifecycle state of an encryption key, derived from its
// fields rather than stored. A key moves GENERATED(active) → ROTATED(inactive)
// → optionally REVOKED; EXPIRED is an orthogonal, time-derived condition.
type KeyStatus string

const (
	KeyStatusActive  KeyStatus = "active"
	KeyStatusRotated KeyStatus = "rotated"
	KeyStatusRevoked KeyStatus = "revoked"
	KeyStatusExpired KeyStatus = "expired"
)

// EncryptionKey is a versioned symmetric working key.
//
// The raw key material is itself encrypted under the master key for storage
// (EncryptedMaterial + Nonce); the plaintext Key field is populated only after
// unwrapping and is never persisted. Key material is immutable once created:
// rows are mutated only to flip IsActive, stamp RotatedAt/RotatedBy, or append
// revocation metadata. Keys are never physically deleted short of an explicit
// out-of-band retention process: historical material is retained so old
// envelopes stay decryptable.
//
// Invariants:
//   - at most one active key per (scope, key type)
//   - versions within a (scope, key type) are strictly increasing, never reused
//   - a revoked key is never reactivated
//   - ExpiresAt is always set (the default horizon applies if unspecified)
type EncryptionKey struct {
	ID                uuid.UUID // Unique identifier (UUIDv7)
	Scope             string    // "global" or a tenant identifier
	KeyType           KeyType   // DATA, TRANSPORT or SIGNING
	Algorithm         Algorithm // AEAD algorithm for this key
	Version           uint      // Monotonically increasing per (scope, key type)
	EncryptedMaterial []byte    // Key material encrypted under the master key
	Nonce             []byte    // Nonce used to wrap the material
	Key               []byte    // Plaintext material (populated after unwrap, never persisted)
	IsActive          bool
	CreatedAt         time.Time
	ExpiresAt         time.Time
	RotatedAt         *time.Time
	RotatedBy         string
	RevokedAt         *time.Time
	RevokedBy         string
	Metadata          map[string]string // Free-form annotations (rotation reason, revocation reason)
}

// Revoked reports whether the key has been revoked. Revoked material is
// retained for decrypt-only use but refused for new encryption.
func (k *EncryptionKey) Revoked() bool {
	return k.RevokedAt != nil
}

// Expired reports whether the key is past its expiry horizon at the given time.
func (k *EncryptionKey) Expired(now time.Time) bool {
	return !k.ExpiresAt.IsZero() && k.ExpiresAt.Before(now)
}

// Clone returns a shallow copy with its own Metadata map. Material slices are
// shared between the copy and the original; they are immutable once created.
func (k *EncryptionKey) Clone() *EncryptionKey {
	clone := *k
	if k.Metadata != nil {
		clone.Metadata = make(map[string]string, len(k.Metadata))
		for key, value := range k.Metadata {
			clone.Metadata[key] = value
		}
	}
	return &clone
}

// Status derives the lifecycle state. Revocation dominates, then expiry.
func (k *EncryptionKey) Status(now time.Time) KeyStatus {
	switch {
	case k.Revoked():
		return KeyStatusRevoked
	case k.Expired(now):
		return KeyStatusExpired
	case k.IsActive:
		return KeyStatusActive
	default:
		return KeyStatusRotated
	}
}

// chainSlot identifies the active-key slot for a (scope, key type) pair.
func chainSlot(scope string, keyType KeyType) string {
	return strings.ToLower(NormalizeScope(scope)) + "/" + string(keyType)
}

// KeyChain is the in-memory cache of working keys, keyed by id, with the
// active key tracked per (scope, key type).
//
// It is read-mostly and safe for concurrent readers. Lifecycle mutations
// (rotation, revocation) never touch a stored key in place: they replace the
// entry with an updated copy, so readers holding a pointer observe either the
// old state or the new one, never a partial stamp. The chain is an explicit
// object owned by the encryption service, not ambient global state.
type KeyChain struct {
	keys   sync.Map // uuid.UUID -> *EncryptionKey
	active sync.Map // chainSlot -> uuid.UUID
}

// NewKeyChain builds a chain from unwrapped keys. Active keys claim their
// (scope, key type) slot; the repository guarantees at most one per slot.
func NewKeyChain(keys []*EncryptionKey) *KeyChain {
	kc := &KeyChain{}
	for _, key := range keys {
		kc.Store(key)
	}
	return kc
}

// Get retrieves a key by its id.
func (c *KeyChain) Get(id uuid.UUID) (*EncryptionKey, bool) {
	if key, ok := c.keys.Load(id); ok {
		return key.(*EncryptionKey), true
	}
	return nil, false
}

// Active returns the active key for a (scope, key type), if any.
func (c *KeyChain) Active(scope string, keyType KeyType) (*EncryptionKey, bool) {
	id, ok := c.active.Load(chainSlot(scope, keyType))
	if !ok {
		return nil, false
	}
	return c.Get(id.(uuid.UUID))
}

// Store adds or replaces a key in the chain. An active key takes over its
// slot; the previously active key stays in the chain for decryption.
func (c *KeyChain) Store(key *EncryptionKey) {
	c.keys.Store(key.ID, key)
	if key.IsActive {
		c.active.Store(chainSlot(key.Scope, key.KeyType), key.ID)
	}
}

// Deactivate marks the chain entry for id as inactive without removing it.
// Used when a key is rotated so readers stop selecting it. The entry is
// replaced with an inactive copy rather than flipped in place.
func (c *KeyChain) Deactivate(id uuid.UUID) {
	key, ok := c.Get(id)
	if !ok {
		return
	}
	if key.IsActive {
		inactive := key.Clone()
		inactive.IsActive = false
		c.keys.Store(inactive.ID, inactive)
	}
	c.releaseSlot(key, id)
}

// Revoke replaces the chain entry for id with a revoked copy and releases its
// active slot. The material stays in the chain for decrypt-only use.
func (c *KeyChain) Revoke(id uuid.UUID, at time.Time, by string) {
	key, ok := c.Get(id)
	if !ok {
		return
	}
	revoked := key.Clone()
	revoked.IsActive = false
	revoked.RevokedAt = &at
	revoked.RevokedBy = by
	c.keys.Store(revoked.ID, revoked)
	c.releaseSlot(key, id)
}

func (c *KeyChain) releaseSlot(key *EncryptionKey, id uuid.UUID) {
	slot := chainSlot(key.Scope, key.KeyType)
	if current, ok := c.active.Load(slot); ok && current.(uuid.UUID) == id {
		c.active.Delete(slot)
	}
}

// Len returns the number of keys held by the chain.
func (c *KeyChain) Len() int {
	n := 0
	c.keys.Range(func(_, _ any) bool {
		n++
		return true
	})
	return n
}

// Close zeroes all plaintext key material and resets the chain. Call on
// shutdown or before reloading keys.
func (c *KeyChain) Close() {
	c.keys.Range(func(id, value any) bool {
		if key, ok := value.(*EncryptionKey); ok {
			Zero(key.Key)
		}
		c.keys.Delete(id)
		return true
	})
	c.active.Range(func(slot, _ any) bool {
		c.active.Delete(slot)
		return true
	})
}
