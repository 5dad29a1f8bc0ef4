package validation

import "strings"

// Violation is one failed rule.
// Field is empty for record-level violations.
type Violation struct {
	Field   string `json:"field,omitempty"`
	Rule    string `json:"rule"`
	Message string `json:"message"`
}

// String renders the violation as "field: message", or the bare message for
// record-level violations.
func (v Violation) String() string {
	if v.Field == "" {
		return v.Message
	}
	return v.Field + ": " + v.Message
}

// Outcome is the ordered list of violations found in one record.
// An empty outcome means the record is valid.
type Outcome []Violation

// Valid reports whether no rule failed.
func (o Outcome) Valid() bool {
	return len(o) == 0
}

// Strings renders every violation.
func (o Outcome) Strings() []string {
	out := make([]string, len(o))
	for i, v := range o {
		out[i] = v.String()
	}
	return out
}

// HasField reports whether any violation is tagged with field.
func (o Outcome) HasField(field string) bool {
	for _, v := range o {
		if v.Field == field {
			return true
		}
	}
	return false
}

// Join renders every violation on one line.
func (o Outcome) Join() string {
	return strings.Join(o.Strings(), "; ")
}

func (o *Outcome) add(field, rule, message string) {
	*o = append(*o, Violation{Field: field, Rule: rule, Message: message})
}
