package fieldenc

import (
	cryptoService "github.com/credfolio/fieldvault/internal/crypto/service"
	"github.com/credfolio/fieldvault/internal/registry"
)

// FieldEncryptor rewrites records according to the field registry.
//
// Only string-valued fields with a registry entry are touched; everything else
// passes through untouched. Nested records and lists recurse when the registry
// declares a relation for their key, so relational graphs returned by the
// persistence layer are protected end to end.
type FieldEncryptor struct {
	registry  *registry.Registry
	encryptor cryptoService.Encryptor
}

// NewFieldEncryptor creates a field encryptor over the given registry and
// encryption core.
func NewFieldEncryptor(reg *registry.Registry, enc cryptoService.Encryptor) *FieldEncryptor {
	return &FieldEncryptor{registry: reg, encryptor: enc}
}

// EncryptRecord encrypts every registered string field of a record, recursing
// into declared relations. The input record is not mutated.
func (f *FieldEncryptor) EncryptRecord(table string, record Record, scope string) (Record, error) {
	out := record.Clone()
	if err := f.walk(table, out, func(cfg registry.FieldConfig, value string) (string, error) {
		return f.encryptor.Encrypt(value, cryptoService.EncryptOptions{
			Deterministic: cfg.Deterministic,
			Scope:         scope,
		})
	}); err != nil {
		return nil, err
	}
	return out, nil
}

// DecryptRecord decrypts every field whose current value carries the envelope
// prefix, recursing into declared relations. Legacy plaintext rows predating
// the feature pass through unchanged; mixed encrypted/plaintext data is
// tolerated indefinitely. The input record is not mutated.
func (f *FieldEncryptor) DecryptRecord(table string, record Record) (Record, error) {
	out := record.Clone()
	if err := f.walk(table, out, func(_ registry.FieldConfig, value string) (string, error) {
		if !f.encryptor.IsEncrypted(value) {
			return value, nil
		}
		return f.encryptor.Decrypt(value)
	}); err != nil {
		return nil, err
	}
	return out, nil
}

// MaskRecord decrypts then masks registered fields for display. When fields is
// non-empty only those columns are masked; otherwise every registered column
// is. Masked output is for display paths only, never for persistence.
func (f *FieldEncryptor) MaskRecord(table string, record Record, fields ...string) (Record, error) {
	only := make(map[string]bool, len(fields))
	for _, name := range fields {
		only[name] = true
	}

	out := record.Clone()
	if err := f.walk(table, out, func(cfg registry.FieldConfig, value string) (string, error) {
		if len(only) > 0 && !only[cfg.Column] {
			return value, nil
		}
		plaintext := value
		if f.encryptor.IsEncrypted(value) {
			decrypted, err := f.encryptor.Decrypt(value)
			if err != nil {
				return "", err
			}
			plaintext = decrypted
		}
		return cryptoService.ApplyMaskPattern(plaintext, cfg.MaskPattern), nil
	}); err != nil {
		return nil, err
	}
	return out, nil
}

// walk applies fn to every registered string field of the record, recursing
// into nested values whose key maps to a related table. Traversal depth is
// bounded by the nesting actually present in the record; the relation graph
// itself carries no cycles through result sets.
func (f *FieldEncryptor) walk(
	table string,
	record Record,
	fn func(cfg registry.FieldConfig, value string) (string, error),
) error {
	for name, value := range record {
		switch value.Kind() {
		case KindString:
			cfg, ok := f.registry.ConfigFor(table, name)
			if !ok {
				continue
			}
			rewritten, err := fn(cfg, value.Str())
			if err != nil {
				return err
			}
			record[name] = String(rewritten)

		case KindRecord:
			related, ok := f.registry.RelatedTable(table, name)
			if !ok {
				continue
			}
			if err := f.walk(related, value.Record(), fn); err != nil {
				return err
			}

		case KindList:
			related, ok := f.registry.RelatedTable(table, name)
			if !ok {
				continue
			}
			for _, item := range value.List() {
				if err := f.walk(related, item, fn); err != nil {
					return err
				}
			}
		}
	}
	return nil
}
