package schema

import "strconv"

// Length and range limits shared by the HSDS record types.
const (
	MaxIDLength          = 100
	MaxNameLength        = 255
	MaxDescriptionLength = 2000
	MaxEmailLength       = 320
	MaxURLLength         = 2000
	MaxPhoneLength       = 50
	MinYear              = 1800
	MaxYear              = 2100
)

// IDField is the name of the identifier field every record type carries.
const IDField = "id"

// ProvenanceField is the field stamped with the publishing gateway's identity.
// It is never declared in a record type and never read from callers.
const ProvenanceField = "source_id"

// Kind is the value kind of a field.
type Kind string

const (
	KindString Kind = "string"
	KindInt    Kind = "int"
	KindFloat  Kind = "float"
	KindEnum   Kind = "enum" // Requires Values
	KindRef    Kind = "ref"  // Identifier of another record; shape only
)

// Format is an additional shape check applied to string fields.
type Format string

const (
	FormatNone     Format = ""
	FormatEmail    Format = "email"
	FormatURL      Format = "url"
	FormatPhone    Format = "phone"
	FormatDate     Format = "date"     // YYYY-MM-DD
	FormatTime     Format = "time"     // HH:MM[:SS]
	FormatLanguage Format = "language" // BCP 47 tag
	FormatCurrency Format = "currency" // ISO 4217 code
)

// FieldSpec describes one field of a record type.
type FieldSpec struct {
	Name     string
	Kind     Kind
	Required bool

	// MaxLength bounds string, enum and ref values. Zero means unbounded.
	MaxLength int

	// Min and Max bound int and float values when set.
	Min *float64
	Max *float64

	// Values lists the accepted values of an enum field.
	Values []string

	Format Format

	// To names the record type a ref field points at.
	To string
}

// IsNumeric reports whether the field holds a number.
func (f FieldSpec) IsNumeric() bool {
	return f.Kind == KindInt || f.Kind == KindFloat
}

// String returns a compact description used by the CLI catalog listing.
func (f FieldSpec) String() string {
	s := f.Name + " " + string(f.Kind)
	if f.Required {
		s += " required"
	}
	if f.MaxLength > 0 {
		s += " max=" + strconv.Itoa(f.MaxLength)
	}
	if f.Min != nil {
		s += " min=" + strconv.FormatFloat(*f.Min, 'g', -1, 64)
	}
	if f.Max != nil {
		s += " max=" + strconv.FormatFloat(*f.Max, 'g', -1, 64)
	}
	if f.Format != FormatNone {
		s += " format=" + string(f.Format)
	}
	if f.To != "" {
		s += " to=" + f.To
	}
	return s
}

// Field constructors used to declare the catalog.

func str(name string, maxLen int) FieldSpec {
	return FieldSpec{Name: name, Kind: KindString, MaxLength: maxLen}
}

func formatted(name string, maxLen int, format Format) FieldSpec {
	return FieldSpec{Name: name, Kind: KindString, MaxLength: maxLen, Format: format}
}

func ref(name, to string) FieldSpec {
	return FieldSpec{Name: name, Kind: KindRef, MaxLength: MaxIDLength, To: to}
}

func enum(name string, values ...string) FieldSpec {
	return FieldSpec{Name: name, Kind: KindEnum, Values: values}
}

func integer(name string, lo, hi float64) FieldSpec {
	return FieldSpec{Name: name, Kind: KindInt, Min: &lo, Max: &hi}
}

func atLeast(name string, kind Kind, lo float64) FieldSpec {
	return FieldSpec{Name: name, Kind: kind, Min: &lo}
}

func float(name string, lo, hi float64) FieldSpec {
	return FieldSpec{Name: name, Kind: KindFloat, Min: &lo, Max: &hi}
}

func (f FieldSpec) required() FieldSpec {
	f.Required = true
	return f
}
