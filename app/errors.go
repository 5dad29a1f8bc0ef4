package app

import (
	"fmt"

	"github.com/artpar/hsdsgate/core/validation"
)

// SchemaError is returned for a record type the catalog does not know.
type SchemaError struct {
	Type string
}

func (e *SchemaError) Error() string {
	return fmt.Sprintf("Unknown table: %s", e.Type)
}

// DecodeError is returned when the body cannot be read as a record.
type DecodeError struct {
	Type string
	Err  error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("decode %s: %v", e.Type, e.Err)
}

func (e *DecodeError) Unwrap() error { return e.Err }

// ValidationError carries every violation found in a submission.
type ValidationError struct {
	Type    string
	Outcome validation.Outcome
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Type, e.Outcome.Join())
}

// PublishError wraps a distribution failure. Its message is not meant for
// clients.
type PublishError struct {
	Type  string
	Topic string
	Err   error
}

func (e *PublishError) Error() string {
	return fmt.Sprintf("publish %s to %s: %v", e.Type, e.Topic, e.Err)
}

func (e *PublishError) Unwrap() error { return e.Err }
