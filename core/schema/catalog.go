package schema

import (
	"fmt"
	"sync"
)

// RecordType is one entry of the catalog: a record type name, the topic its
// records are published on, and its declared fields.
type RecordType struct {
	Name   string
	Topic  string
	Fields []FieldSpec
}

// Field returns the named field spec.
func (t RecordType) Field(name string) (FieldSpec, bool) {
	for _, f := range t.Fields {
		if f.Name == name {
			return f, true
		}
	}
	return FieldSpec{}, false
}

// Catalog is a fixed table of record types. It is read-only once built.
type Catalog struct {
	types map[string]RecordType
	order []string
}

// NewCatalog builds a catalog. Type names and topics must be unique.
func NewCatalog(types ...RecordType) (*Catalog, error) {
	c := &Catalog{types: make(map[string]RecordType, len(types))}
	topics := make(map[string]string, len(types))

	for _, t := range types {
		if t.Name == "" || t.Topic == "" {
			return nil, fmt.Errorf("record type %q: name and topic are required", t.Name)
		}
		if _, exists := c.types[t.Name]; exists {
			return nil, fmt.Errorf("record type %q declared twice", t.Name)
		}
		if owner, exists := topics[t.Topic]; exists {
			return nil, fmt.Errorf("topic %q used by both %q and %q", t.Topic, owner, t.Name)
		}
		if _, ok := t.Field(IDField); !ok {
			return nil, fmt.Errorf("record type %q has no %s field", t.Name, IDField)
		}
		if _, ok := t.Field(ProvenanceField); ok {
			return nil, fmt.Errorf("record type %q must not declare %s", t.Name, ProvenanceField)
		}
		topics[t.Topic] = t.Name
		c.types[t.Name] = t
		c.order = append(c.order, t.Name)
	}

	return c, nil
}

// Lookup returns the field specs of a record type.
// The returned slice is a copy.
func (c *Catalog) Lookup(typeName string) ([]FieldSpec, bool) {
	t, ok := c.types[typeName]
	if !ok {
		return nil, false
	}
	fields := make([]FieldSpec, len(t.Fields))
	copy(fields, t.Fields)
	return fields, true
}

// Get returns the full record type entry.
func (c *Catalog) Get(typeName string) (RecordType, bool) {
	t, ok := c.types[typeName]
	if !ok {
		return RecordType{}, false
	}
	t.Fields, _ = c.Lookup(typeName)
	return t, true
}

// Has reports whether the catalog declares typeName.
func (c *Catalog) Has(typeName string) bool {
	_, ok := c.types[typeName]
	return ok
}

// Topic returns the topic records of typeName are published on.
func (c *Catalog) Topic(typeName string) (string, bool) {
	t, ok := c.types[typeName]
	return t.Topic, ok
}

// Types returns the type names in declaration order.
func (c *Catalog) Types() []string {
	out := make([]string, len(c.order))
	copy(out, c.order)
	return out
}

// Len returns the number of record types.
func (c *Catalog) Len() int {
	return len(c.order)
}

var (
	hsdsOnce    sync.Once
	hsdsCatalog *Catalog
)

// HSDS returns the catalog of the 24 HSDS record types.
func HSDS() *Catalog {
	hsdsOnce.Do(func() {
		c, err := NewCatalog(hsdsTypes()...)
		if err != nil {
			panic(fmt.Sprintf("schema: invalid HSDS catalog: %v", err))
		}
		hsdsCatalog = c
	})
	return hsdsCatalog
}

// Lookup returns the field specs of an HSDS record type.
func Lookup(typeName string) ([]FieldSpec, bool) {
	return HSDS().Lookup(typeName)
}
