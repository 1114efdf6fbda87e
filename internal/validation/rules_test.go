package validation

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"

	apperrors "github.com/credfolio/fieldvault/internal/errors"
)

func TestNotBlank(t *testing.T) {
	assert.NoError(t, NotBlank.Validate("value"))
	assert.NoError(t, NotBlank.Validate(" padded "))
	// Empty values are skipped; Required owns presence checks.
	assert.NoError(t, NotBlank.Validate(""))
	assert.Error(t, NotBlank.Validate("   "))
	assert.Error(t, NotBlank.Validate("\t\n"))
}

func TestNoWhitespace(t *testing.T) {
	assert.NoError(t, NoWhitespace.Validate("org-1"))
	assert.NoError(t, NoWhitespace.Validate(""))
	assert.Error(t, NoWhitespace.Validate(" org-1"))
	assert.Error(t, NoWhitespace.Validate("org-1 "))
	assert.Error(t, NoWhitespace.Validate("org-1\n"))
}

func TestUUID(t *testing.T) {
	assert.NoError(t, UUID.Validate("0190b5a4-0000-7000-8000-000000000000"))
	assert.Error(t, UUID.Validate("not-a-uuid"))
}

func TestBase64(t *testing.T) {
	assert.NoError(t, Base64.Validate("aGVsbG8="))
	assert.NoError(t, Base64.Validate(""))
	assert.Error(t, Base64.Validate("!!not base64!!"))
	assert.Error(t, Base64.Validate(42))
}

func TestWrapValidationError(t *testing.T) {
	t.Run("nil passes through", func(t *testing.T) {
		assert.NoError(t, WrapValidationError(nil))
	})

	t.Run("wraps as invalid input", func(t *testing.T) {
		err := WrapValidationError(fmt.Errorf("key_type: cannot be blank"))
		assert.ErrorIs(t, err, apperrors.ErrInvalidInput)
		assert.Contains(t, err.Error(), "key_type")
	})
}
