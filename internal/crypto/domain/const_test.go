package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseKeyType(t *testing.T) {
	for _, valid := range []string{"DATA", "TRANSPORT", "SIGNING"} {
		keyType, err := ParseKeyType(valid)
		assert.NoError(t, err)
		assert.Equal(t, KeyType(valid), keyType)
	}

	for _, invalid := range []string{"", "data", "unknown"} {
		_, err := ParseKeyType(invalid)
		assert.ErrorIs(t, err, ErrUnsupportedKeyType)
	}
}

func TestParseAlgorithm(t *testing.T) {
	for _, valid := range []string{"aes-gcm", "chacha20-poly1305"} {
		alg, err := ParseAlgorithm(valid)
		assert.NoError(t, err)
		assert.Equal(t, Algorithm(valid), alg)
	}

	for _, invalid := range []string{"", "AES-GCM", "des"} {
		_, err := ParseAlgorithm(invalid)
		assert.ErrorIs(t, err, ErrUnsupportedAlgorithm)
	}
}

func TestNormalizeScope(t *testing.T) {
	assert.Equal(t, ScopeGlobal, NormalizeScope(""))
	assert.Equal(t, "org-1", NormalizeScope("org-1"))
	assert.Equal(t, ScopeGlobal, NormalizeScope(ScopeGlobal))
}
