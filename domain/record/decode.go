package record

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/artpar/hsdsgate/core/schema"
)

// ErrNotObject is returned when a body is not a single JSON object.
var ErrNotObject = errors.New("request body must be a JSON object")

// Decode reads a flat JSON object into a record of typeName.
//
// Each declared field is extracted on its own. Absent and null fields are
// left unset; fields of the wrong kind are marked malformed. Undeclared keys
// are ignored, and so is any caller-supplied source_id.
func Decode(typeName string, fields []schema.FieldSpec, body []byte) (*Record, error) {
	body = bytes.TrimSpace(body)
	if len(body) == 0 || body[0] != '{' {
		return nil, ErrNotObject
	}

	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()

	var raw map[string]any
	if err := dec.Decode(&raw); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNotObject, err)
	}
	if dec.More() {
		return nil, fmt.Errorf("%w: trailing data after object", ErrNotObject)
	}

	rec := New(typeName)
	for _, f := range fields {
		v, ok := raw[f.Name]
		if !ok || v == nil || f.Name == schema.ProvenanceField {
			continue
		}
		decodeField(rec, f, v)
	}

	return rec, nil
}

func decodeField(rec *Record, f schema.FieldSpec, v any) {
	switch f.Kind {
	case schema.KindInt:
		switch x := v.(type) {
		case json.Number:
			if n, err := x.Int64(); err == nil {
				rec.Set(f.Name, n)
				return
			}
		case string:
			if n, err := strconv.ParseInt(strings.TrimSpace(x), 10, 64); err == nil {
				rec.Set(f.Name, n)
				return
			}
		}
		rec.MarkMalformed(f.Name)

	case schema.KindFloat:
		switch x := v.(type) {
		case json.Number:
			if n, err := x.Float64(); err == nil {
				rec.Set(f.Name, n)
				return
			}
		case string:
			if n, err := strconv.ParseFloat(strings.TrimSpace(x), 64); err == nil {
				rec.Set(f.Name, n)
				return
			}
		}
		rec.MarkMalformed(f.Name)

	default:
		switch x := v.(type) {
		case string:
			rec.Set(f.Name, x)
		case json.Number:
			// Unquoted numbers are kept as their literal text.
			rec.Set(f.Name, x.String())
		default:
			rec.MarkMalformed(f.Name)
		}
	}
}
