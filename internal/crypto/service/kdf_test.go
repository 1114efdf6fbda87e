package service

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDeriveRootKeys(t *testing.T) {
	t.Run("derivation is deterministic", func(t *testing.T) {
		first, err := DeriveRootKeys("test-secret", "test-salt")
		require.NoError(t, err)
		second, err := DeriveRootKeys("test-secret", "test-salt")
		require.NoError(t, err)

		assert.Equal(t, first.Master, second.Master)
		assert.Equal(t, first.DeterministicRoot, second.DeterministicRoot)
	})

	t.Run("master and deterministic root are independent", func(t *testing.T) {
		roots, err := DeriveRootKeys("test-secret", "test-salt")
		require.NoError(t, err)

		assert.Len(t, roots.Master, 32)
		assert.Len(t, roots.DeterministicRoot, 32)
		assert.NotEqual(t, roots.Master, roots.DeterministicRoot)
	})

	t.Run("different secrets yield different keys", func(t *testing.T) {
		first, err := DeriveRootKeys("secret-a", "test-salt")
		require.NoError(t, err)
		second, err := DeriveRootKeys("secret-b", "test-salt")
		require.NoError(t, err)

		assert.NotEqual(t, first.Master, second.Master)
	})

	t.Run("different salts yield different keys", func(t *testing.T) {
		first, err := DeriveRootKeys("test-secret", "salt-a")
		require.NoError(t, err)
		second, err := DeriveRootKeys("test-secret", "salt-b")
		require.NoError(t, err)

		assert.NotEqual(t, first.Master, second.Master)
	})

	t.Run("empty secret is rejected", func(t *testing.T) {
		_, err := DeriveRootKeys("", "test-salt")
		assert.Error(t, err)
	})

	t.Run("close zeroes material", func(t *testing.T) {
		roots, err := DeriveRootKeys("test-secret", "test-salt")
		require.NoError(t, err)

		roots.Close()
		for _, b := range roots.Master {
			assert.Zero(t, b)
		}
		for _, b := range roots.DeterministicRoot {
			assert.Zero(t, b)
		}
	})
}

func TestRootKeys_ScopeSubKey(t *testing.T) {
	roots, err := DeriveRootKeys("test-secret", "test-salt")
	require.NoError(t, err)

	t.Run("same scope yields the same sub-key", func(t *testing.T) {
		first, err := roots.ScopeSubKey("org-1")
		require.NoError(t, err)
		second, err := roots.ScopeSubKey("org-1")
		require.NoError(t, err)
		assert.Equal(t, first, second)
	})

	t.Run("different scopes yield independent sub-keys", func(t *testing.T) {
		a, err := roots.ScopeSubKey("org-1")
		require.NoError(t, err)
		b, err := roots.ScopeSubKey("org-2")
		require.NoError(t, err)
		assert.NotEqual(t, a, b)
	})

	t.Run("empty scope normalizes to global", func(t *testing.T) {
		empty, err := roots.ScopeSubKey("")
		require.NoError(t, err)
		global, err := roots.ScopeSubKey("global")
		require.NoError(t, err)
		assert.Equal(t, global, empty)
	})

	t.Run("sub-key differs from both roots", func(t *testing.T) {
		key, err := roots.ScopeSubKey("org-1")
		require.NoError(t, err)
		assert.Len(t, key, 32)
		assert.NotEqual(t, roots.Master, key)
		assert.NotEqual(t, roots.DeterministicRoot, key)
	})
}

func TestDeriveBackupKey(t *testing.T) {
	salt := []byte("0123456789abcdef")

	t.Run("deterministic for same password and salt", func(t *testing.T) {
		first, err := DeriveBackupKey("backup-password", salt)
		require.NoError(t, err)
		second, err := DeriveBackupKey("backup-password", salt)
		require.NoError(t, err)
		assert.Equal(t, first, second)
		assert.Len(t, first, 32)
	})

	t.Run("different salt yields a different key", func(t *testing.T) {
		first, err := DeriveBackupKey("backup-password", salt)
		require.NoError(t, err)
		second, err := DeriveBackupKey("backup-password", []byte("fedcba9876543210"))
		require.NoError(t, err)
		assert.NotEqual(t, first, second)
	})

	t.Run("empty password is rejected", func(t *testing.T) {
		_, err := DeriveBackupKey("", salt)
		assert.Error(t, err)
	})
}

func TestDeterministicEncryptDecrypt(t *testing.T) {
	roots, err := DeriveRootKeys("test-secret", "test-salt")
	require.NoError(t, err)
	subKey, err := roots.ScopeSubKey("org-1")
	require.NoError(t, err)

	t.Run("round trip", func(t *testing.T) {
		iv, ciphertext, err := deterministicEncrypt(subKey, []byte("123-45-6789"))
		require.NoError(t, err)

		plaintext, err := deterministicDecrypt(subKey, iv, ciphertext)
		require.NoError(t, err)
		assert.Equal(t, []byte("123-45-6789"), plaintext)
	})

	t.Run("identical plaintext produces identical output", func(t *testing.T) {
		iv1, ct1, err := deterministicEncrypt(subKey, []byte("stable"))
		require.NoError(t, err)
		iv2, ct2, err := deterministicEncrypt(subKey, []byte("stable"))
		require.NoError(t, err)

		assert.Equal(t, iv1, iv2)
		assert.Equal(t, ct1, ct2)
	})

	t.Run("invalid iv length is rejected", func(t *testing.T) {
		_, err := deterministicDecrypt(subKey, []byte("short"), []byte("ciphertext"))
		assert.Error(t, err)
	})
}
