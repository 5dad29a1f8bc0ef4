package jsonapi

import (
	"fmt"
	"strconv"
)

// ErrorBuilder provides a fluent API for building Error objects.
type ErrorBuilder struct {
	err Error
}

// NewError creates a new ErrorBuilder with the given status, code, and title.
func NewError(status int, code, title string) *ErrorBuilder {
	return &ErrorBuilder{
		err: Error{
			Status: strconv.Itoa(status),
			Code:   code,
			Title:  title,
		},
	}
}

// Detail sets the error detail message.
func (b *ErrorBuilder) Detail(detail string) *ErrorBuilder {
	b.err.Detail = detail
	return b
}

// Detailf sets the error detail message with formatting.
func (b *ErrorBuilder) Detailf(format string, args ...any) *ErrorBuilder {
	b.err.Detail = fmt.Sprintf(format, args...)
	return b
}

// Pointer sets the JSON pointer to the source of the error.
// Example: "/data/attributes/email"
func (b *ErrorBuilder) Pointer(pointer string) *ErrorBuilder {
	if b.err.Source == nil {
		b.err.Source = &ErrorSource{}
	}
	b.err.Source.Pointer = pointer
	return b
}

// Parameter sets the path parameter that caused the error.
func (b *ErrorBuilder) Parameter(param string) *ErrorBuilder {
	if b.err.Source == nil {
		b.err.Source = &ErrorSource{}
	}
	b.err.Source.Parameter = param
	return b
}

// Header sets the header that caused the error.
func (b *ErrorBuilder) Header(header string) *ErrorBuilder {
	if b.err.Source == nil {
		b.err.Source = &ErrorSource{}
	}
	b.err.Source.Header = header
	return b
}

// Meta adds metadata to the error.
func (b *ErrorBuilder) Meta(key string, value any) *ErrorBuilder {
	if b.err.Meta == nil {
		b.err.Meta = make(Meta)
	}
	b.err.Meta[key] = value
	return b
}

// Build returns the constructed Error.
func (b *ErrorBuilder) Build() Error {
	return b.err
}

// StatusCode returns the HTTP status code as an int.
func (e Error) StatusCode() int {
	code, _ := strconv.Atoi(e.Status)
	return code
}

// Common error constructors

// ErrBadRequest creates a 400 Bad Request error.
func ErrBadRequest(detail string) Error {
	return NewError(400, "bad_request", "Bad Request").Detail(detail).Build()
}

// ErrUnknownType creates a 400 error for a record type outside the catalog.
func ErrUnknownType(typeName string) Error {
	return NewError(400, "unknown_type", "Unknown Record Type").
		Detailf("Unknown table: %s", typeName).
		Parameter("type").
		Build()
}

// ErrValidation creates a 400 error for one failed rule. An empty field
// marks a record-level rule.
func ErrValidation(field, detail string) Error {
	b := NewError(400, "validation_error", "Validation Failed").Detail(detail)
	if field != "" {
		b.Pointer("/data/attributes/" + field)
	}
	return b.Build()
}

// ErrPayloadTooLarge creates a 413 error for a body over limit bytes.
func ErrPayloadTooLarge(limit int64) Error {
	return NewError(413, "payload_too_large", "Payload Too Large").
		Detailf("Request body exceeds %d bytes", limit).
		Build()
}

// ErrUnauthorized creates a 401 Unauthorized error.
func ErrUnauthorized(detail string) Error {
	if detail == "" {
		detail = "Authentication required"
	}
	return NewError(401, "unauthorized", "Unauthorized").Detail(detail).Header("Authorization").Build()
}

// ErrNotFound creates a 404 Not Found error.
func ErrNotFound(detail string) Error {
	if detail == "" {
		detail = "Not Found"
	}
	return NewError(404, "not_found", "Not Found").Detail(detail).Build()
}

// ErrInternal creates a 500 Internal Server Error.
func ErrInternal(detail string) Error {
	if detail == "" {
		detail = "An internal error occurred"
	}
	return NewError(500, "internal_error", "Internal server error").Detail(detail).Build()
}

// ErrNotImplemented creates a 501 Not Implemented error.
func ErrNotImplemented(detail string) Error {
	return NewError(501, "not_implemented", "Not Implemented").Detail(detail).Build()
}
