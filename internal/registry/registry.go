// Package registry holds the static declarative metadata describing which
// (table, column) pairs are encrypted, how they may be searched, and how they
// are masked for display. It is the single source of truth consulted by the
// field encryptor and the persistence interceptor.
//
// The registry is compiled at startup and never mutated at runtime: adding or
// removing entries is a deployment-time change, not a data-plane operation.
package registry

import (
	"fmt"
	"sort"
)

// SensitivityLevel classifies how sensitive a field is, guiding which fields
// are encrypted and how aggressively they are masked for display.
type SensitivityLevel string

const (
	SensitivityLow      SensitivityLevel = "LOW"
	SensitivityMedium   SensitivityLevel = "MEDIUM"
	SensitivityHigh     SensitivityLevel = "HIGH"
	SensitivityCritical SensitivityLevel = "CRITICAL"
)

// FieldConfig is a registry entry for one encrypted column.
//
// Deterministic and MaskPattern are per-field policy: callers apply them as
// declared and must not override them per call. Deterministic fields use the
// stable per-scope sub-key path so repeated encryption of identical plaintext
// within a scope yields identical ciphertext, enabling equality search.
type FieldConfig struct {
	Table         string
	Column        string
	Sensitivity   SensitivityLevel
	Deterministic bool
	// MaskPattern is a template with {firstN}/{lastN} placeholders,
	// e.g. "****{last4}". Empty means the default suffix mask.
	MaskPattern string
	Description string
}

// Relation declares that a nested key inside a table's records holds rows of
// another registered table. The field encryptor uses these to recurse into
// relational object graphs without name-guessing; graphs are acyclic by
// construction in the data model.
type Relation struct {
	Table        string // owning table
	Key          string // field name holding the nested object or array
	RelatedTable string // registry table the nested rows belong to
}

// Registry is the immutable compiled lookup.
type Registry struct {
	fields    map[string]map[string]FieldConfig // table -> column -> config
	relations map[string]map[string]string      // table -> key -> related table
}

// New compiles field configs and relations into a Registry. Duplicate
// (table, column) pairs and relations pointing at unregistered tables are
// configuration bugs and fail compilation.
func New(configs []FieldConfig, relations []Relation) (*Registry, error) {
	r := &Registry{
		fields:    make(map[string]map[string]FieldConfig),
		relations: make(map[string]map[string]string),
	}

	for _, cfg := range configs {
		if cfg.Table == "" || cfg.Column == "" {
			return nil, fmt.Errorf("field config requires table and column, got %+v", cfg)
		}
		cols, ok := r.fields[cfg.Table]
		if !ok {
			cols = make(map[string]FieldConfig)
			r.fields[cfg.Table] = cols
		}
		if _, exists := cols[cfg.Column]; exists {
			return nil, fmt.Errorf("duplicate field config for %s.%s", cfg.Table, cfg.Column)
		}
		cols[cfg.Column] = cfg
	}

	for _, rel := range relations {
		if _, ok := r.fields[rel.RelatedTable]; !ok {
			return nil, fmt.Errorf(
				"relation %s.%s points at table %q with no registered fields",
				rel.Table, rel.Key, rel.RelatedTable,
			)
		}
		keys, ok := r.relations[rel.Table]
		if !ok {
			keys = make(map[string]string)
			r.relations[rel.Table] = keys
		}
		keys[rel.Key] = rel.RelatedTable
	}

	return r, nil
}

// ConfigFor returns the config for a (table, column) pair, if registered.
func (r *Registry) ConfigFor(table, column string) (FieldConfig, bool) {
	cfg, ok := r.fields[table][column]
	return cfg, ok
}

// FieldsFor returns the configs for all registered columns of a table,
// sorted by column name for stable iteration.
func (r *Registry) FieldsFor(table string) []FieldConfig {
	cols := r.fields[table]
	if len(cols) == 0 {
		return nil
	}
	configs := make([]FieldConfig, 0, len(cols))
	for _, cfg := range cols {
		configs = append(configs, cfg)
	}
	sort.Slice(configs, func(i, j int) bool { return configs[i].Column < configs[j].Column })
	return configs
}

// HasFields reports whether a table has any registered encrypted columns.
func (r *Registry) HasFields(table string) bool {
	return len(r.fields[table]) > 0
}

// RelatedTable resolves a nested key inside a table's records to the
// registered table its rows belong to.
func (r *Registry) RelatedTable(table, key string) (string, bool) {
	related, ok := r.relations[table][key]
	return related, ok
}

// Tables lists all tables with registered encrypted columns, sorted.
func (r *Registry) Tables() []string {
	tables := make([]string, 0, len(r.fields))
	for table := range r.fields {
		tables = append(tables, table)
	}
	sort.Strings(tables)
	return tables
}
