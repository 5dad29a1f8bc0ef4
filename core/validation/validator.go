// Package validation checks decoded records against the schema catalog.
// Every rule runs; all violations are collected before returning.
package validation

import (
	"fmt"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/artpar/hsdsgate/core/schema"
	"github.com/artpar/hsdsgate/domain/record"
)

// Validator validates records against a catalog. It holds no mutable state
// and is safe for concurrent use.
type Validator struct {
	catalog *schema.Catalog
	strict  bool
}

// Option configures a Validator.
type Option func(*Validator)

// WithStrict enables the "at least one reference" class of rules.
func WithStrict(strict bool) Option {
	return func(v *Validator) {
		v.strict = strict
	}
}

// New creates a validator over catalog. Lenient by default.
func New(catalog *schema.Catalog, opts ...Option) *Validator {
	v := &Validator{catalog: catalog}
	for _, opt := range opts {
		opt(v)
	}
	return v
}

// Validate checks rec as a record of typeName.
func (v *Validator) Validate(typeName string, rec *record.Record) Outcome {
	var out Outcome

	fields, ok := v.catalog.Lookup(typeName)
	if !ok {
		out.add("", RuleUnknown, fmt.Sprintf("unknown record type: %s", typeName))
		return out
	}

	for _, f := range fields {
		if f.Name == schema.IDField {
			validateID(rec, f, &out)
			continue
		}
		validateField(rec, f, &out)
	}

	for _, rule := range crossRules[typeName] {
		rule(rec, v.strict, &out)
	}

	return out
}

func validateID(rec *record.Record, f schema.FieldSpec, out *Outcome) {
	if rec.Malformed(f.Name) {
		out.add(f.Name, RuleKind, "must be a string")
		return
	}
	id := rec.Str(f.Name)
	if strings.TrimSpace(id) == "" {
		out.add(f.Name, RuleRequired, "is required and cannot be empty")
		return
	}
	if utf8.RuneCountInString(id) > f.MaxLength {
		out.add(f.Name, RuleMaxLength, fmt.Sprintf("exceeds maximum length of %d", f.MaxLength))
	}
	if !IsIdentifier(id) {
		out.add(f.Name, RuleCharacters, invalidCharsMessage)
	}
}

func validateField(rec *record.Record, f schema.FieldSpec, out *Outcome) {
	if rec.Malformed(f.Name) {
		out.add(f.Name, RuleKind, kindMessage(f.Kind))
		return
	}

	if f.IsNumeric() {
		validateNumber(rec, f, out)
		return
	}

	s := rec.Str(f.Name)
	if strings.TrimSpace(s) == "" {
		if f.Required {
			out.add(f.Name, RuleRequired, "is required and cannot be empty")
		}
		return
	}

	switch f.Kind {
	case schema.KindEnum:
		if !contains(f.Values, s) {
			out.add(f.Name, RuleEnum, fmt.Sprintf("must be one of: %s", strings.Join(f.Values, ", ")))
		}

	case schema.KindRef:
		if f.MaxLength > 0 && utf8.RuneCountInString(s) > f.MaxLength {
			out.add(f.Name, RuleMaxLength, fmt.Sprintf("exceeds maximum length of %d", f.MaxLength))
		}
		if !IsIdentifier(s) {
			out.add(f.Name, RuleCharacters, invalidCharsMessage)
		}

	default:
		if f.MaxLength > 0 && utf8.RuneCountInString(s) > f.MaxLength {
			out.add(f.Name, RuleMaxLength, fmt.Sprintf("exceeds maximum length of %d", f.MaxLength))
		}
		if msg := checkFormat(f.Format, s); msg != "" {
			out.add(f.Name, RuleFormat, msg)
		}
	}
}

func validateNumber(rec *record.Record, f schema.FieldSpec, out *Outcome) {
	if !rec.Has(f.Name) {
		if f.Required {
			out.add(f.Name, RuleRequired, "is required and cannot be empty")
		}
		return
	}

	n, ok := rec.Float(f.Name)
	if !ok {
		out.add(f.Name, RuleKind, kindMessage(f.Kind))
		return
	}
	if f.Kind == schema.KindInt {
		if _, isInt := rec.Int(f.Name); !isInt {
			out.add(f.Name, RuleKind, kindMessage(f.Kind))
			return
		}
	}

	below := f.Min != nil && n < *f.Min
	above := f.Max != nil && n > *f.Max
	if !below && !above {
		return
	}

	switch {
	case f.Min != nil && f.Max != nil:
		out.add(f.Name, RuleRange, fmt.Sprintf("must be between %s and %s", formatNumber(*f.Min), formatNumber(*f.Max)))
	case f.Min != nil:
		out.add(f.Name, RuleRange, fmt.Sprintf("must be at least %s", formatNumber(*f.Min)))
	default:
		out.add(f.Name, RuleRange, fmt.Sprintf("must be at most %s", formatNumber(*f.Max)))
	}
}

func kindMessage(k schema.Kind) string {
	switch k {
	case schema.KindInt:
		return "must be an integer"
	case schema.KindFloat:
		return "must be a number"
	default:
		return "must be a string"
	}
}

func formatNumber(f float64) string {
	return strconv.FormatFloat(f, 'g', -1, 64)
}

func contains(values []string, s string) bool {
	for _, v := range values {
		if v == s {
			return true
		}
	}
	return false
}
