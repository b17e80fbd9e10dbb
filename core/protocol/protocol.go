// Package protocol implements the HTTP binding protocol: it maps the
// members of an operation's input onto a transport request and maps a
// transport response back onto the operation's output, using the member
// binding traits to choose each location and a payload codec for bodies.
package protocol

import (
	"context"
	"errors"
	"io"
	"iter"

	"github.com/rs/zerolog"

	"github.com/artpar/shapewire/adapters/idgen"
	"github.com/artpar/shapewire/core/codec/cbor"
	"github.com/artpar/shapewire/core/serde"
	"github.com/artpar/shapewire/domain/streaming"
	"github.com/artpar/shapewire/domain/transport"
	"github.com/artpar/shapewire/ports"
)

var (
	// ErrMissingCollaborator is returned when a required collaborator, such
	// as the event-stream marshaller, was not supplied.
	ErrMissingCollaborator = errors.New("protocol: missing collaborator")

	// ErrNotImplemented is returned for bindings this protocol cannot
	// produce.
	ErrNotImplemented = errors.New("protocol: not implemented")

	// ErrDispatcherContract is returned when the error dispatcher returns
	// nil for an error response.
	ErrDispatcherContract = errors.New("protocol: error dispatcher returned no error")

	// ErrInvalidInput is returned when input values cannot be bound.
	ErrInvalidInput = errors.New("protocol: invalid input")
)

// EventStreamMarshaller frames event-stream messages over a body stream.
// Per-event encoding is done by the callbacks.
type EventStreamMarshaller interface {
	Serialize(ctx context.Context, events iter.Seq[map[string]any], encode func(map[string]any) (streaming.Message, error)) io.Reader
	Deserialize(ctx context.Context, body io.Reader, decode func(streaming.Message) (map[string]any, error)) iter.Seq2[map[string]any, error]
	ContentType() string
}

// HandlerContext carries per-call collaborators.
type HandlerContext struct {
	// Endpoint is the resolved service endpoint; nil leaves the request's
	// location unset.
	Endpoint *transport.Endpoint

	// EventStreamMarshaller is required by operations with event streams.
	EventStreamMarshaller EventStreamMarshaller
}

// Output is a deserialized operation output.
type Output struct {
	Data     map[string]any
	Metadata ResponseMetadata
}

// HTTPBinding serializes requests and deserializes responses for operations
// that carry the http trait. It holds no per-call state and is safe for
// concurrent use.
type HTTPBinding struct {
	codec             serde.Codec
	dispatcher        ErrorDispatcher
	ids               ports.IDGenerator
	logger            zerolog.Logger
	keepHeaderCase    bool
}

// Option configures an HTTPBinding.
type Option func(*HTTPBinding)

// WithPayloadCodec sets the codec for payloads and residual bodies.
func WithPayloadCodec(c serde.Codec) Option {
	return func(p *HTTPBinding) { p.codec = c }
}

// WithErrorDispatcher sets the dispatcher for error responses.
func WithErrorDispatcher(d ErrorDispatcher) Option {
	return func(p *HTTPBinding) { p.dispatcher = d }
}

// WithIDGenerator sets the generator for idempotency tokens.
func WithIDGenerator(g ports.IDGenerator) Option {
	return func(p *HTTPBinding) { p.ids = g }
}

// WithLogger sets the logger. Only debug level events are emitted.
func WithLogger(l zerolog.Logger) Option {
	return func(p *HTTPBinding) { p.logger = l }
}

// WithPreservedHeaderValues sends header values as serialized. By default
// header and prefix-header values are lower-cased along with their names.
func WithPreservedHeaderValues() Option {
	return func(p *HTTPBinding) { p.keepHeaderCase = true }
}

// New returns an HTTPBinding using CBOR payloads, the registry error
// dispatcher and UUID idempotency tokens unless overridden.
func New(opts ...Option) *HTTPBinding {
	p := &HTTPBinding{
		codec:      cbor.New(),
		dispatcher: &RegistryErrorDispatcher{},
		ids:        idgen.UUID{},
		logger:     zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Codec returns the payload codec.
func (p *HTTPBinding) Codec() serde.Codec {
	return p.codec
}
