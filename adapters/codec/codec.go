// Package codec encodes envelopes for the distribution layer.
package codec

import (
	"encoding/json"
	"fmt"
	"reflect"

	"github.com/fxamacker/cbor/v2"
)

// Codec turns values into wire bytes and back.
type Codec interface {
	Name() string
	ContentType() string
	Marshal(v any) ([]byte, error)
	Unmarshal(data []byte, v any) error
}

// JSON is the default codec.
type JSON struct{}

func (JSON) Name() string                       { return "json" }
func (JSON) ContentType() string                { return "application/json" }
func (JSON) Marshal(v any) ([]byte, error)      { return json.Marshal(v) }
func (JSON) Unmarshal(data []byte, v any) error { return json.Unmarshal(data, v) }

// CBOR encodes with RFC 8949 core deterministic encoding and RFC 3339 times,
// so equal envelopes always produce equal bytes.
type CBOR struct {
	enc cbor.EncMode
	dec cbor.DecMode
}

// NewCBOR builds the CBOR codec.
func NewCBOR() (*CBOR, error) {
	opts := cbor.CoreDetEncOptions()
	opts.Time = cbor.TimeRFC3339Nano
	enc, err := opts.EncMode()
	if err != nil {
		return nil, fmt.Errorf("cbor encode mode: %w", err)
	}
	dec, err := cbor.DecOptions{
		DefaultMapType: reflect.TypeOf(map[string]any(nil)),
		IntDec:         cbor.IntDecConvertSigned,
	}.DecMode()
	if err != nil {
		return nil, fmt.Errorf("cbor decode mode: %w", err)
	}
	return &CBOR{enc: enc, dec: dec}, nil
}

func (c *CBOR) Name() string                       { return "cbor" }
func (c *CBOR) ContentType() string                { return "application/cbor" }
func (c *CBOR) Marshal(v any) ([]byte, error)      { return c.enc.Marshal(v) }
func (c *CBOR) Unmarshal(data []byte, v any) error { return c.dec.Unmarshal(data, v) }

// ByName returns the codec configured by name.
func ByName(name string) (Codec, error) {
	switch name {
	case "", "json":
		return JSON{}, nil
	case "cbor":
		return NewCBOR()
	default:
		return nil, fmt.Errorf("unknown codec %q", name)
	}
}
