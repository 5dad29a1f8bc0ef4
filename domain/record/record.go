// Package record provides the decoded record value type and its wire envelope.
package record

import (
	"encoding/json"
	"sort"

	"github.com/artpar/hsdsgate/core/schema"
)

// Record is one decoded HSDS record.
//
// Values are string, int64 or float64. A field that was present in the
// request but could not be read as its declared kind is marked malformed
// instead of failing the decode; validation reports it.
type Record struct {
	typ       string
	values    map[string]any
	malformed map[string]bool
}

// New creates an empty record of the given type.
func New(typeName string) *Record {
	return &Record{
		typ:    typeName,
		values: make(map[string]any),
	}
}

// Type returns the record type name.
func (r *Record) Type() string {
	return r.typ
}

// Set stores a field value. Only string, int64 and float64 are kept;
// ints are widened to int64. Anything else marks the field malformed.
func (r *Record) Set(field string, v any) {
	switch x := v.(type) {
	case string:
		r.values[field] = x
	case int64:
		r.values[field] = x
	case int:
		r.values[field] = int64(x)
	case float64:
		r.values[field] = x
	default:
		r.MarkMalformed(field)
		return
	}
	delete(r.malformed, field)
}

// MarkMalformed records that field was supplied with the wrong kind.
func (r *Record) MarkMalformed(field string) {
	if r.malformed == nil {
		r.malformed = make(map[string]bool)
	}
	r.malformed[field] = true
	delete(r.values, field)
}

// Malformed reports whether field was supplied with the wrong kind.
func (r *Record) Malformed(field string) bool {
	return r.malformed[field]
}

// Has reports whether field holds a value.
func (r *Record) Has(field string) bool {
	_, ok := r.values[field]
	return ok
}

// Get returns the raw field value.
func (r *Record) Get(field string) (any, bool) {
	v, ok := r.values[field]
	return v, ok
}

// Str returns a string field, or "" when absent or not a string.
func (r *Record) Str(field string) string {
	s, _ := r.values[field].(string)
	return s
}

// Int returns an integer field.
func (r *Record) Int(field string) (int64, bool) {
	switch v := r.values[field].(type) {
	case int64:
		return v, true
	case float64:
		if v == float64(int64(v)) {
			return int64(v), true
		}
	}
	return 0, false
}

// Float returns a numeric field as float64.
func (r *Record) Float(field string) (float64, bool) {
	switch v := r.values[field].(type) {
	case float64:
		return v, true
	case int64:
		return float64(v), true
	}
	return 0, false
}

// ID returns the record identifier.
func (r *Record) ID() string {
	return r.Str(schema.IDField)
}

// SetID sets the record identifier.
func (r *Record) SetID(id string) {
	r.values[schema.IDField] = id
}

// SetProvenance stamps the record with the publishing gateway identity,
// replacing any value already present.
func (r *Record) SetProvenance(identity string) {
	r.values[schema.ProvenanceField] = identity
}

// Provenance returns the identity the record was stamped with.
func (r *Record) Provenance() string {
	return r.Str(schema.ProvenanceField)
}

// Fields returns a copy of all field values, provenance included.
func (r *Record) Fields() map[string]any {
	out := make(map[string]any, len(r.values))
	for k, v := range r.values {
		out[k] = v
	}
	return out
}

// Names returns the names of the fields holding values, sorted.
func (r *Record) Names() []string {
	names := make([]string, 0, len(r.values))
	for k := range r.values {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}

// Clone returns a deep copy of the record.
func (r *Record) Clone() *Record {
	c := &Record{typ: r.typ, values: r.Fields()}
	if len(r.malformed) > 0 {
		c.malformed = make(map[string]bool, len(r.malformed))
		for k, v := range r.malformed {
			c.malformed[k] = v
		}
	}
	return c
}

// MarshalJSON encodes the field values as a flat object.
func (r *Record) MarshalJSON() ([]byte, error) {
	return json.Marshal(r.values)
}
