package validation

import (
	"regexp"
	"strings"
	"time"

	"github.com/artpar/hsdsgate/core/schema"
)

var (
	identifierPattern = regexp.MustCompile(`^[A-Za-z0-9_.-]+$`)
	emailPattern      = regexp.MustCompile(`^[\w.%+-]+@[\w.-]+\.[A-Za-z]{2,}$`)
	phonePattern      = regexp.MustCompile(`^[\+]?[1-9]?[\d\s\-\(\)\.]{7,15}$`)
	timePattern       = regexp.MustCompile(`^([01]\d|2[0-3]):[0-5]\d(:[0-5]\d)?(Z|[+-]([01]\d|2[0-3]):?[0-5]\d)?$`)
	languagePattern   = regexp.MustCompile(`^[A-Za-z]{2,3}(-[A-Za-z0-9]{2,8})*$`)
	currencyPattern   = regexp.MustCompile(`^[A-Z]{3}$`)
)

const dateLayout = "2006-01-02"

// Rule names carried by violations.
const (
	RuleRequired   = "required"
	RuleMaxLength  = "max_length"
	RuleCharacters = "characters"
	RuleFormat     = "format"
	RuleEnum       = "enum"
	RuleRange      = "range"
	RuleKind       = "kind"
	RuleCrossField = "cross_field"
	RuleReference  = "reference"
	RuleUnknown    = "unknown_type"
	RuleMismatch   = "mismatch"
)

const invalidCharsMessage = "contains invalid characters (only alphanumeric, underscore, period, and hyphen allowed)"

// IsIdentifier reports whether s has the shape of a record identifier.
func IsIdentifier(s string) bool {
	return identifierPattern.MatchString(s)
}

// IsEmail reports whether s looks like an email address.
func IsEmail(s string) bool {
	return emailPattern.MatchString(s)
}

// IsURL reports whether s starts with an http or https scheme.
func IsURL(s string) bool {
	return strings.HasPrefix(s, "http://") || strings.HasPrefix(s, "https://")
}

// IsPhone reports whether s is an acceptable phone number.
func IsPhone(s string) bool {
	return phonePattern.MatchString(s)
}

// checkFormat returns the violation message for a bad value, or "".
func checkFormat(format schema.Format, s string) string {
	switch format {
	case schema.FormatEmail:
		if !IsEmail(s) {
			return "has invalid format"
		}
	case schema.FormatURL:
		if !IsURL(s) {
			return "must start with http:// or https://"
		}
	case schema.FormatPhone:
		if !IsPhone(s) {
			return "has invalid phone number format"
		}
	case schema.FormatDate:
		if _, err := time.Parse(dateLayout, s); err != nil {
			return "must be a valid date (YYYY-MM-DD)"
		}
	case schema.FormatTime:
		if !timePattern.MatchString(s) {
			return "must be a valid time (HH:MM[:SS])"
		}
	case schema.FormatLanguage:
		if !languagePattern.MatchString(s) {
			return "must be a valid language tag"
		}
	case schema.FormatCurrency:
		if !currencyPattern.MatchString(s) {
			return "must be a 3-letter ISO 4217 currency code"
		}
	}
	return ""
}

func parseDate(s string) (time.Time, bool) {
	t, err := time.Parse(dateLayout, s)
	return t, err == nil
}
