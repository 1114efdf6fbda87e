// Package fieldenc applies the field registry to whole records: encrypt on
// write, decrypt on read, mask for display, over flat and nested relational
// object graphs.
package fieldenc

// Kind tags what a record field holds. The field bag replaces loose
// map[string]any payloads so registry rules can be applied without runtime
// type probing scattered through the code.
type Kind int

const (
	// KindString is a string field, the only kind eligible for encryption.
	KindString Kind = iota
	// KindRaw is any non-string scalar (numbers, bools, nulls); passes through.
	KindRaw
	// KindRecord is a nested object, possibly belonging to a related table.
	KindRecord
	// KindList is a nested array of objects.
	KindList
)

// Value is a tagged field value.
type Value struct {
	kind Kind
	str  string
	raw  any
	rec  Record
	list []Record
}

// Record is a field bag: an ordered-irrelevant mapping from field name to value.
type Record map[string]Value

// String creates a string value.
func String(s string) Value { return Value{kind: KindString, str: s} }

// Raw creates a pass-through value for non-string data.
func Raw(v any) Value { return Value{kind: KindRaw, raw: v} }

// Nested creates a nested record value.
func Nested(r Record) Value { return Value{kind: KindRecord, rec: r} }

// NestedList creates a nested list-of-records value.
func NestedList(rs []Record) Value { return Value{kind: KindList, list: rs} }

// Kind returns the value's tag.
func (v Value) Kind() Kind { return v.kind }

// Str returns the string payload; only meaningful for KindString.
func (v Value) Str() string { return v.str }

// Record returns the nested record; only meaningful for KindRecord.
func (v Value) Record() Record { return v.rec }

// List returns the nested records; only meaningful for KindList.
func (v Value) List() []Record { return v.list }

// Interface unpacks the value back into plain Go data.
func (v Value) Interface() any {
	switch v.kind {
	case KindString:
		return v.str
	case KindRecord:
		return v.rec.ToMap()
	case KindList:
		out := make([]any, len(v.list))
		for i, r := range v.list {
			out[i] = r.ToMap()
		}
		return out
	default:
		return v.raw
	}
}

// FromMap converts a loose payload (e.g. a decoded JSON object from the
// persistence layer) into a Record. This is the only place the system does
// dynamic type inspection; everything downstream works on tagged values.
func FromMap(m map[string]any) Record {
	rec := make(Record, len(m))
	for name, raw := range m {
		rec[name] = fromAny(raw)
	}
	return rec
}

func fromAny(raw any) Value {
	switch v := raw.(type) {
	case string:
		return String(v)
	case map[string]any:
		return Nested(FromMap(v))
	case []map[string]any:
		records := make([]Record, len(v))
		for i, item := range v {
			records[i] = FromMap(item)
		}
		return NestedList(records)
	case []any:
		records := make([]Record, 0, len(v))
		for _, item := range v {
			obj, ok := item.(map[string]any)
			if !ok {
				// Mixed or scalar arrays are not relation rows; pass through.
				return Raw(raw)
			}
			records = append(records, FromMap(obj))
		}
		return NestedList(records)
	default:
		return Raw(raw)
	}
}

// ToMap converts a Record back into a loose payload for the persistence layer.
func (r Record) ToMap() map[string]any {
	m := make(map[string]any, len(r))
	for name, value := range r {
		m[name] = value.Interface()
	}
	return m
}

// Clone returns a deep copy of the record so callers can rewrite values
// without mutating the input payload.
func (r Record) Clone() Record {
	out := make(Record, len(r))
	for name, value := range r {
		switch value.kind {
		case KindRecord:
			out[name] = Nested(value.rec.Clone())
		case KindList:
			list := make([]Record, len(value.list))
			for i, item := range value.list {
				list[i] = item.Clone()
			}
			out[name] = NestedList(list)
		default:
			out[name] = value
		}
	}
	return out
}
