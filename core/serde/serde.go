// Package serde defines the codec contracts used by protocols and the
// string (de)serialization shared by every HTTP binding.
//
// Values flowing through a codec use a generic model: structures and maps
// are map[string]any, lists are []any, blobs are []byte, streams are
// io.Reader, timestamps are time.Time, big integers are *big.Int and big
// decimals are *big.Float.
package serde

import (
	"errors"

	"github.com/artpar/shapewire/core/schema"
)

var (
	// ErrUnsupportedValue is returned when a value cannot be rendered for
	// its schema.
	ErrUnsupportedValue = errors.New("serde: unsupported value")

	// ErrMalformed is returned when wire data cannot be decoded.
	ErrMalformed = errors.New("serde: malformed input")
)

// ShapeSerializer holds one pending value between Write and Flush. A second
// Write before Flush replaces the pending value.
type ShapeSerializer interface {
	Write(ref schema.Ref, v any) error
	Flush() ([]byte, error)
}

// ShapeDeserializer decodes data against a schema.
type ShapeDeserializer interface {
	Read(ref schema.Ref, data []byte) (any, error)
}

// Codec produces request-scoped serializers and deserializers for one wire
// encoding.
type Codec interface {
	NewSerializer() ShapeSerializer
	NewDeserializer() ShapeDeserializer
	MediaType() string
}
