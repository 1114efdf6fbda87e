package validation

import (
	"encoding/base64"

	validation "github.com/jellydator/validation"
)

// Base64 checks that a string decodes as standard base64, as used for key
// material in import requests. Empty values pass; Required owns presence.
var Base64 = validation.By(func(value interface{}) error {
	s, ok := value.(string)
	if !ok {
		return validation.NewError("validation_base64_type", "must be a string")
	}
	if s == "" {
		return nil
	}
	if _, err := base64.StdEncoding.DecodeString(s); err != nil {
		return validation.NewError("validation_base64", "must be valid base64-encoded data")
	}
	return nil
})
