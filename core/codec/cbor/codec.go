// Package cbor is the binary payload codec. Values are copied against the
// schema before encoding and re-typed against it after decoding; aggregates
// not marked sparse drop null entries in both directions.
package cbor

import (
	"fmt"
	"reflect"

	fxcbor "github.com/fxamacker/cbor/v2"

	"github.com/artpar/shapewire/core/schema"
	"github.com/artpar/shapewire/core/serde"
)

// MediaType is the content type of CBOR payloads.
const MediaType = "application/cbor"

// ErrMalformed wraps every decoding failure.
var ErrMalformed = fmt.Errorf("cbor: %w", serde.ErrMalformed)

// tagDecimalFraction is the CBOR tag for [exponent, mantissa] decimals.
const tagDecimalFraction = 4

// Codec creates CBOR serializers and deserializers. It is safe for
// concurrent use; the serializers it returns are not.
type Codec struct {
	enc fxcbor.EncMode
	dec fxcbor.DecMode
}

// New returns a Codec with timestamps encoded as tag 1 epoch seconds.
func New() *Codec {
	enc, err := fxcbor.EncOptions{
		Time:          fxcbor.TimeUnixDynamic,
		TimeTag:       fxcbor.EncTagRequired,
		BigIntConvert: fxcbor.BigIntConvertShortest,
	}.EncMode()
	if err != nil {
		panic(fmt.Sprintf("cbor: encoder options: %v", err))
	}
	dec, err := fxcbor.DecOptions{
		DefaultMapType: reflect.TypeOf(map[string]any(nil)),
		BigIntDec:      fxcbor.BigIntDecodePointer,
	}.DecMode()
	if err != nil {
		panic(fmt.Sprintf("cbor: decoder options: %v", err))
	}
	return &Codec{enc: enc, dec: dec}
}

// MediaType returns application/cbor.
func (c *Codec) MediaType() string { return MediaType }

// NewSerializer returns a request-scoped serializer.
func (c *Codec) NewSerializer() serde.ShapeSerializer {
	return &Serializer{codec: c}
}

// NewDeserializer returns a deserializer.
func (c *Codec) NewDeserializer() serde.ShapeDeserializer {
	return &Deserializer{codec: c}
}

// Serializer holds one pending value between Write and Flush.
type Serializer struct {
	codec   *Codec
	pending any
	has     bool
}

// Write copies v against ref and holds it until Flush. A second Write
// replaces the pending value.
func (s *Serializer) Write(ref schema.Ref, v any) error {
	out, err := copyValue(schema.Of(ref), v)
	if err != nil {
		return err
	}
	s.pending = out
	s.has = true
	return nil
}

// Flush encodes and clears the pending value. Flushing with nothing
// pending yields no bytes.
func (s *Serializer) Flush() ([]byte, error) {
	if !s.has {
		return nil, nil
	}
	v := s.pending
	s.pending, s.has = nil, false

	data, err := s.codec.enc.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("encode cbor: %w", err)
	}
	return data, nil
}

// Deserializer decodes CBOR and re-types the result against a schema.
type Deserializer struct {
	codec *Codec
}

// Read decodes data against ref. Empty data decodes to nil.
func (d *Deserializer) Read(ref schema.Ref, data []byte) (any, error) {
	if len(data) == 0 {
		return nil, nil
	}
	var raw any
	if err := d.codec.dec.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	return retype(schema.Of(ref), raw)
}
