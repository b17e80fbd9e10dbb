package http

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/rs/zerolog"

	"github.com/artpar/shapewire/adapters/clock"
	"github.com/artpar/shapewire/core/protocol"
	"github.com/artpar/shapewire/core/schema"
	"github.com/artpar/shapewire/domain/transport"
	"github.com/artpar/shapewire/ports"
)

// ErrNoTransport is returned when an Invoker has no transport.
var ErrNoTransport = errors.New("http: no transport configured")

// Invoker runs one operation call: serialize, compress, send, deserialize.
type Invoker struct {
	binding     *protocol.HTTPBinding
	transport   ports.Transport
	endpoint    *transport.Endpoint
	marshaller  protocol.EventStreamMarshaller
	compression Compression
	recorder    ports.InvocationRecorder
	clock       ports.Clock
	logger      zerolog.Logger
}

// InvokerOption configures an Invoker.
type InvokerOption func(*Invoker)

// WithEndpoint sets the resolved service endpoint.
func WithEndpoint(e transport.Endpoint) InvokerOption {
	return func(i *Invoker) { i.endpoint = &e }
}

// WithEventStreamMarshaller sets the marshaller for event-stream members.
func WithEventStreamMarshaller(m protocol.EventStreamMarshaller) InvokerOption {
	return func(i *Invoker) { i.marshaller = m }
}

// WithCompression sets the request compression policy.
func WithCompression(c Compression) InvokerOption {
	return func(i *Invoker) { i.compression = c }
}

// WithRecorder sets the metrics recorder.
func WithRecorder(r ports.InvocationRecorder) InvokerOption {
	return func(i *Invoker) { i.recorder = r }
}

// WithClock sets the clock used to time invocations.
func WithClock(c ports.Clock) InvokerOption {
	return func(i *Invoker) { i.clock = c }
}

// WithLogger sets the logger.
func WithLogger(l zerolog.Logger) InvokerOption {
	return func(i *Invoker) { i.logger = l }
}

// NewInvoker creates an Invoker sending through t.
func NewInvoker(binding *protocol.HTTPBinding, t ports.Transport, opts ...InvokerOption) *Invoker {
	if binding == nil {
		binding = protocol.New()
	}
	i := &Invoker{
		binding:   binding,
		transport: t,
		recorder:  ports.NopRecorder{},
		clock:     clock.Real{},
		logger:    zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(i)
	}
	return i
}

// Invoke calls op with input. Service error responses are returned as the
// error built by the binding's error dispatcher.
func (i *Invoker) Invoke(ctx context.Context, op *schema.Operation, input map[string]any) (*protocol.Output, error) {
	if i.transport == nil {
		return nil, ErrNoTransport
	}
	name := op.QualifiedName()
	start := i.clock.Now()

	hc := &protocol.HandlerContext{
		Endpoint:              i.endpoint,
		EventStreamMarshaller: i.marshaller,
	}
	req, err := i.binding.SerializeRequest(ctx, hc, op, input)
	if err != nil {
		return nil, fmt.Errorf("serialize %s: %w", name, err)
	}
	compressed, err := i.compression.compress(op, req)
	if err != nil {
		return nil, err
	}
	i.recorder.RecordPayload(name, ports.DirectionRequest, len(req.Body))

	resp, err := i.transport.Send(ctx, req)
	if err != nil {
		i.recorder.RecordInvocation(name, 0, clock.Since(i.clock, start))
		i.logger.Error().Err(err).Str("operation", name).Msg("transport failed")
		return nil, fmt.Errorf("send %s: %w", name, err)
	}
	if n, err := strconv.Atoi(resp.Headers["content-length"]); err == nil {
		i.recorder.RecordPayload(name, ports.DirectionResponse, n)
	}

	out, err := i.binding.DeserializeResponse(ctx, hc, op, resp)
	elapsed := clock.Since(i.clock, start)
	i.recorder.RecordInvocation(name, resp.StatusCode, elapsed)

	var se *protocol.ServiceError
	if errors.As(err, &se) {
		i.recorder.RecordServiceError(name, se.Code)
	}

	event := i.logger.Info()
	if err != nil {
		event = i.logger.Warn().Err(err)
	}
	event.
		Str("operation", name).
		Str("method", req.Method).
		Int("status", resp.StatusCode).
		Bool("compressed", compressed).
		Dur("duration", elapsed).
		Msg("invocation")

	if err != nil {
		return nil, err
	}
	return out, nil
}
