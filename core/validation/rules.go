package validation

import (
	"strings"

	"github.com/artpar/hsdsgate/domain/record"
)

// crossRule checks a relation between fields of one record.
// It runs after every field rule and only sees fields of the right kind.
type crossRule func(rec *record.Record, strict bool, out *Outcome)

// crossRules lists the record-level rules per type.
var crossRules = map[string][]crossRule{
	"service": {
		orderedInts("age_range", "minimum_age", "maximum_age", "minimum_age cannot be greater than maximum_age"),
	},
	"phone": {
		anyReference("location_id", "service_id", "organization_id", "contact_id", "service_at_location_id"),
	},
	"schedule": {
		orderedDates("valid_range", "valid_from", "valid_to"),
	},
	"cost_option": {
		orderedDates("valid_range", "valid_from", "valid_to"),
	},
	"service_capacity": {
		orderedFloats("capacity", "available", "maximum", "available cannot be greater than maximum"),
	},
	"language": {
		anyReference("service_id", "location_id", "phone_id"),
	},
	"url": {
		anyReference("organization_id", "service_id"),
	},
	"funding": {
		anyReference("organization_id", "service_id"),
	},
}

// orderedInts fails when both fields are set and lo > hi.
func orderedInts(tag, lo, hi, message string) crossRule {
	return func(rec *record.Record, _ bool, out *Outcome) {
		a, okA := rec.Int(lo)
		b, okB := rec.Int(hi)
		if okA && okB && a > b {
			out.add(tag, RuleCrossField, message)
		}
	}
}

func orderedFloats(tag, lo, hi, message string) crossRule {
	return func(rec *record.Record, _ bool, out *Outcome) {
		a, okA := rec.Float(lo)
		b, okB := rec.Float(hi)
		if okA && okB && a > b {
			out.add(tag, RuleCrossField, message)
		}
	}
}

func orderedDates(tag, from, to string) crossRule {
	message := from + " cannot be after " + to
	return func(rec *record.Record, _ bool, out *Outcome) {
		a, okA := parseDate(rec.Str(from))
		b, okB := parseDate(rec.Str(to))
		if okA && okB && a.After(b) {
			out.add(tag, RuleCrossField, message)
		}
	}
}

// anyReference requires at least one of fields in strict mode.
func anyReference(fields ...string) crossRule {
	message := "At least one reference (" + joinOr(fields) + ") must be provided"
	return func(rec *record.Record, strict bool, out *Outcome) {
		if !strict {
			return
		}
		for _, f := range fields {
			if strings.TrimSpace(rec.Str(f)) != "" {
				return
			}
		}
		out.add("", RuleReference, message)
	}
}

// joinOr renders [a b c] as "a, b, or c" and [a b] as "a or b".
func joinOr(items []string) string {
	switch len(items) {
	case 0:
		return ""
	case 1:
		return items[0]
	case 2:
		return items[0] + " or " + items[1]
	}
	return strings.Join(items[:len(items)-1], ", ") + ", or " + items[len(items)-1]
}
