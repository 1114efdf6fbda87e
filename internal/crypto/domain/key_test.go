package domain

import (
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestKey(scope string, keyType KeyType, active bool) *EncryptionKey {
	now := time.Now().UTC()
	return &EncryptionKey{
		ID:        uuid.Must(uuid.NewV7()),
		Scope:     NormalizeScope(scope),
		KeyType:   keyType,
		Algorithm: AESGCM,
		Version:   1,
		Key:       []byte("0123456789abcdef0123456789abcdef"),
		IsActive:  active,
		CreatedAt: now,
		ExpiresAt: now.Add(90 * 24 * time.Hour),
	}
}

func TestEncryptionKey_Status(t *testing.T) {
	now := time.Now().UTC()

	t.Run("active key", func(t *testing.T) {
		key := newTestKey("", KeyTypeData, true)
		assert.Equal(t, KeyStatusActive, key.Status(now))
	})

	t.Run("inactive key is rotated", func(t *testing.T) {
		key := newTestKey("", KeyTypeData, false)
		assert.Equal(t, KeyStatusRotated, key.Status(now))
	})

	t.Run("expired key", func(t *testing.T) {
		key := newTestKey("", KeyTypeData, true)
		key.ExpiresAt = now.Add(-time.Hour)
		assert.Equal(t, KeyStatusExpired, key.Status(now))
	})

	t.Run("revocation dominates expiry and active", func(t *testing.T) {
		key := newTestKey("", KeyTypeData, true)
		key.ExpiresAt = now.Add(-time.Hour)
		revokedAt := now.Add(-time.Minute)
		key.RevokedAt = &revokedAt
		assert.Equal(t, KeyStatusRevoked, key.Status(now))
		assert.True(t, key.Revoked())
	})

	t.Run("zero expiry never expires", func(t *testing.T) {
		key := newTestKey("", KeyTypeData, true)
		key.ExpiresAt = time.Time{}
		assert.False(t, key.Expired(now))
	})
}

func TestKeyChain(t *testing.T) {
	t.Run("store and get", func(t *testing.T) {
		chain := NewKeyChain(nil)
		key := newTestKey("org-1", KeyTypeData, true)
		chain.Store(key)

		got, ok := chain.Get(key.ID)
		require.True(t, ok)
		assert.Equal(t, key.ID, got.ID)
		assert.Equal(t, 1, chain.Len())
	})

	t.Run("active tracks one key per slot", func(t *testing.T) {
		old := newTestKey("org-1", KeyTypeData, true)
		chain := NewKeyChain([]*EncryptionKey{old})

		active, ok := chain.Active("org-1", KeyTypeData)
		require.True(t, ok)
		assert.Equal(t, old.ID, active.ID)

		// A new active key takes over the slot; the old key stays readable.
		successor := newTestKey("org-1", KeyTypeData, true)
		successor.Version = 2
		chain.Deactivate(old.ID)
		chain.Store(successor)

		active, ok = chain.Active("org-1", KeyTypeData)
		require.True(t, ok)
		assert.Equal(t, successor.ID, active.ID)

		_, ok = chain.Get(old.ID)
		assert.True(t, ok)
	})

	t.Run("slots are per scope and key type", func(t *testing.T) {
		dataKey := newTestKey("org-1", KeyTypeData, true)
		transportKey := newTestKey("org-1", KeyTypeTransport, true)
		globalKey := newTestKey("", KeyTypeData, true)
		chain := NewKeyChain([]*EncryptionKey{dataKey, transportKey, globalKey})

		active, ok := chain.Active("org-1", KeyTypeData)
		require.True(t, ok)
		assert.Equal(t, dataKey.ID, active.ID)

		active, ok = chain.Active("org-1", KeyTypeTransport)
		require.True(t, ok)
		assert.Equal(t, transportKey.ID, active.ID)

		active, ok = chain.Active(ScopeGlobal, KeyTypeData)
		require.True(t, ok)
		assert.Equal(t, globalKey.ID, active.ID)
	})

	t.Run("deactivate clears the slot only for the current holder", func(t *testing.T) {
		old := newTestKey("org-1", KeyTypeData, false)
		current := newTestKey("org-1", KeyTypeData, true)
		chain := NewKeyChain([]*EncryptionKey{old, current})

		chain.Deactivate(old.ID)

		active, ok := chain.Active("org-1", KeyTypeData)
		require.True(t, ok)
		assert.Equal(t, current.ID, active.ID)
	})

	t.Run("close zeroes material and empties the chain", func(t *testing.T) {
		key := newTestKey("org-1", KeyTypeData, true)
		material := key.Key
		chain := NewKeyChain([]*EncryptionKey{key})

		chain.Close()

		assert.Equal(t, 0, chain.Len())
		for _, b := range material {
			assert.Zero(t, b)
		}
		_, ok := chain.Active("org-1", KeyTypeData)
		assert.False(t, ok)
	})

	t.Run("unknown id", func(t *testing.T) {
		chain := NewKeyChain(nil)
		_, ok := chain.Get(uuid.Must(uuid.NewV7()))
		assert.False(t, ok)
		chain.Deactivate(uuid.Must(uuid.NewV7()))
		chain.Revoke(uuid.Must(uuid.NewV7()), time.Now().UTC(), "ops")
	})
}

func TestKeyChain_Revoke(t *testing.T) {
	t.Run("replaces the entry and releases the slot", func(t *testing.T) {
		key := newTestKey("org-1", KeyTypeData, true)
		chain := NewKeyChain([]*EncryptionKey{key})

		snapshot, ok := chain.Get(key.ID)
		require.True(t, ok)

		revokedAt := time.Now().UTC()
		chain.Revoke(key.ID, revokedAt, "security-team")

		// The pointer handed out before the revocation is untouched.
		assert.False(t, snapshot.Revoked())
		assert.True(t, snapshot.IsActive)

		got, ok := chain.Get(key.ID)
		require.True(t, ok)
		assert.True(t, got.Revoked())
		assert.False(t, got.IsActive)
		require.NotNil(t, got.RevokedAt)
		assert.Equal(t, revokedAt, *got.RevokedAt)
		assert.Equal(t, "security-team", got.RevokedBy)

		_, ok = chain.Active("org-1", KeyTypeData)
		assert.False(t, ok)
	})

	t.Run("safe under concurrent readers", func(t *testing.T) {
		key := newTestKey("org-1", KeyTypeData, true)
		chain := NewKeyChain([]*EncryptionKey{key})

		done := make(chan struct{})
		var wg sync.WaitGroup
		for i := 0; i < 4; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				now := time.Now().UTC()
				for {
					select {
					case <-done:
						return
					default:
					}
					if got, ok := chain.Get(key.ID); ok {
						_ = got.Revoked()
						_ = got.Status(now)
					}
					chain.Active("org-1", KeyTypeData)
				}
			}()
		}

		chain.Revoke(key.ID, time.Now().UTC(), "ops")
		close(done)
		wg.Wait()

		got, ok := chain.Get(key.ID)
		require.True(t, ok)
		assert.True(t, got.Revoked())
	})
}

func TestEncryptionKey_Clone(t *testing.T) {
	key := newTestKey("org-1", KeyTypeData, true)
	key.Metadata = map[string]string{"reason": "initial"}

	clone := key.Clone()
	clone.IsActive = false
	clone.Metadata["reason"] = "rotated"

	assert.True(t, key.IsActive)
	assert.Equal(t, "initial", key.Metadata["reason"])
}
