// Package dto provides data transfer objects for key management HTTP
// request and response handling.
package dto

import (
	validation "github.com/jellydator/validation"

	customValidation "github.com/credfolio/fieldvault/internal/validation"
)

// GenerateKeyRequest contains the parameters for creating a new working key.
// Scope defaults to global when omitted.
type GenerateKeyRequest struct {
	Scope     string `json:"scope"`
	KeyType   string `json:"key_type"`
	Algorithm string `json:"algorithm"`
}

// Validate checks if the generate key request is valid.
func (r *GenerateKeyRequest) Validate() error {
	return validation.ValidateStruct(r,
		validation.Field(&r.Scope, customValidation.NoWhitespace),
		validation.Field(&r.KeyType, validation.Required, customValidation.NotBlank),
		validation.Field(&r.Algorithm, validation.Required, customValidation.NotBlank),
	)
}

// RotateKeyRequest contains the parameters for rotating a key. With Reencrypt
// set, a background job rewrites existing data onto the new key.
type RotateKeyRequest struct {
	Scope     string `json:"scope"`
	KeyType   string `json:"key_type"`
	Algorithm string `json:"algorithm"`
	Reencrypt bool   `json:"reencrypt"`
}

// Validate checks if the rotate key request is valid.
func (r *RotateKeyRequest) Validate() error {
	return validation.ValidateStruct(r,
		validation.Field(&r.Scope, customValidation.NoWhitespace),
		validation.Field(&r.KeyType, validation.Required, customValidation.NotBlank),
		validation.Field(&r.Algorithm, validation.Required, customValidation.NotBlank),
	)
}

// RevokeKeyRequest carries the mandatory reason for a revocation.
type RevokeKeyRequest struct {
	Reason string `json:"reason"`
}

// Validate checks if the revoke key request is valid.
func (r *RevokeKeyRequest) Validate() error {
	return validation.ValidateStruct(r,
		validation.Field(&r.Reason, validation.Required, customValidation.NotBlank),
	)
}

// ExportKeysRequest carries the password protecting the backup blob.
type ExportKeysRequest struct {
	Password string `json:"password"`
}

// Validate checks if the export keys request is valid.
func (r *ExportKeysRequest) Validate() error {
	return validation.ValidateStruct(r,
		validation.Field(&r.Password, validation.Required, validation.Length(12, 0)),
	)
}

// ImportKeysRequest carries a backup blob and the password that sealed it.
type ImportKeysRequest struct {
	Backup   string `json:"backup"`
	Password string `json:"password"`
}

// Validate checks if the import keys request is valid.
func (r *ImportKeysRequest) Validate() error {
	return validation.ValidateStruct(r,
		validation.Field(&r.Backup, validation.Required, customValidation.NotBlank),
		validation.Field(&r.Password, validation.Required, customValidation.NotBlank),
	)
}

// EncryptTableRequest controls a bulk encryption sweep over one table.
type EncryptTableRequest struct {
	Scope  string `json:"scope"`
	DryRun bool   `json:"dry_run"`
}

// Validate checks if the encrypt table request is valid.
func (r *EncryptTableRequest) Validate() error {
	return validation.ValidateStruct(r,
		validation.Field(&r.Scope, customValidation.NoWhitespace),
	)
}
