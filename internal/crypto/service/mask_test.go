package service

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMask(t *testing.T) {
	assert.Equal(t, "*****6789", Mask("123456789", 4))
	assert.Equal(t, "****", Mask("1234", 4))
	assert.Equal(t, "***", Mask("123", 4))
	assert.Equal(t, "", Mask("", 4))
	assert.Equal(t, "*********", Mask("123456789", 0))
}

func TestMaskMiddle(t *testing.T) {
	assert.Equal(t, "12*****89", MaskMiddle("123456789", 2, 2))
	assert.Equal(t, "****", MaskMiddle("1234", 2, 2))
	assert.Equal(t, "*********", MaskMiddle("123456789", -1, 0))
	assert.Equal(t, "", MaskMiddle("", 2, 2))
}

func TestApplyMaskPattern(t *testing.T) {
	t.Run("first and last placeholders", func(t *testing.T) {
		assert.Equal(t, "12****6789", ApplyMaskPattern("123456789", "{first2}****{last4}"))
	})

	t.Run("last only", func(t *testing.T) {
		assert.Equal(t, "****6789", ApplyMaskPattern("123456789", "****{last4}"))
	})

	t.Run("placeholder longer than value clamps", func(t *testing.T) {
		assert.Equal(t, "123", ApplyMaskPattern("123", "{last9}"))
	})

	t.Run("empty pattern falls back to last four", func(t *testing.T) {
		assert.Equal(t, "*****6789", ApplyMaskPattern("123456789", ""))
	})

	t.Run("empty value", func(t *testing.T) {
		assert.Equal(t, "", ApplyMaskPattern("", "{first2}****"))
	})

	t.Run("literal pattern without placeholders", func(t *testing.T) {
		assert.Equal(t, "REDACTED", ApplyMaskPattern("123456789", "REDACTED"))
	})

	t.Run("multibyte values mask by rune", func(t *testing.T) {
		assert.Equal(t, "Jo****", ApplyMaskPattern("João!?", "{first2}****"))
	})
}
