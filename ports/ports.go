// Package ports defines interfaces (contracts) between layers.
// These interfaces enable dependency injection and testability.
// Implementations live in adapters/.
package ports

import (
	"context"
	"time"

	"github.com/artpar/shapewire/domain/transport"
)

// -----------------------------------------------------------------------------
// Infrastructure Ports
// -----------------------------------------------------------------------------

// Clock abstracts time for testability.
type Clock interface {
	Now() time.Time
}

// IDGenerator generates unique identifiers, e.g. idempotency tokens.
type IDGenerator interface {
	New() string
}

// -----------------------------------------------------------------------------
// Transport Ports
// -----------------------------------------------------------------------------

// Transport sends a serialized request and returns the raw response.
// The caller owns the response body and must close it if it is an
// io.Closer.
type Transport interface {
	Send(ctx context.Context, req *transport.Request) (*transport.Response, error)
}

// TransportFunc adapts a function to Transport.
type TransportFunc func(ctx context.Context, req *transport.Request) (*transport.Response, error)

// Send calls f.
func (f TransportFunc) Send(ctx context.Context, req *transport.Request) (*transport.Response, error) {
	return f(ctx, req)
}

// -----------------------------------------------------------------------------
// Observability Ports
// -----------------------------------------------------------------------------

// Payload directions.
const (
	DirectionRequest  = "request"
	DirectionResponse = "response"
)

// InvocationRecorder records per-invocation measurements.
type InvocationRecorder interface {
	// RecordInvocation records one completed call. status is the HTTP status,
	// or 0 when no response was received.
	RecordInvocation(operation string, status int, duration time.Duration)

	// RecordPayload records body bytes by direction.
	RecordPayload(operation, direction string, bytes int)

	// RecordServiceError records a modeled or unmodeled service error.
	RecordServiceError(operation, code string)
}

// NopRecorder discards all measurements.
type NopRecorder struct{}

func (NopRecorder) RecordInvocation(string, int, time.Duration) {}
func (NopRecorder) RecordPayload(string, string, int)           {}
func (NopRecorder) RecordServiceError(string, string)           {}
