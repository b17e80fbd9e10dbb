package protocol

import (
	"context"
	"fmt"
	"io"
	"maps"
	"strings"

	"github.com/artpar/shapewire/core/schema"
	"github.com/artpar/shapewire/core/serde"
	"github.com/artpar/shapewire/domain/streaming"
	"github.com/artpar/shapewire/domain/transport"
)

// DeserializeResponse maps resp onto the output of op. A status of 300 or
// more is handed to the error dispatcher and always yields an error.
func (p *HTTPBinding) DeserializeResponse(ctx context.Context, hc *HandlerContext, op *schema.Operation, resp *transport.Response) (*Output, error) {
	if hc == nil {
		hc = &HandlerContext{}
	}
	meta := Metadata(resp)
	if resp.StatusCode >= 300 {
		return nil, p.handleError(ctx, op, resp, meta)
	}

	headers := make(map[string]string, len(resp.Headers))
	for k, v := range resp.Headers {
		headers[strings.ToLower(k)] = v
	}
	resp.Headers = headers

	ns := schema.Of(op.Output)
	members, err := ns.StructIterator()
	if err != nil {
		return nil, fmt.Errorf("output of %s: %w", op.QualifiedName(), err)
	}

	var (
		out        = make(map[string]any)
		consumed   bool
		hasUnbound bool
		hdr        = serde.NewHeaderDeserializer()
	)

	for name, member := range members {
		kind := Classify(member)
		t := member.MergedTraits()

		switch kind {
		case BindingEventStream:
			if hc.EventStreamMarshaller == nil {
				return nil, fmt.Errorf("%w: event stream %q needs an event-stream marshaller", ErrMissingCollaborator, name)
			}
			out[name] = p.deserializeEventStream(ctx, hc.EventStreamMarshaller, member, resp.Body)
			consumed = true

		case BindingStreamingBlob:
			out[name] = streaming.NewBody(resp.Body)
			consumed = true

		case BindingPayload:
			if consumed {
				continue
			}
			consumed = true
			body, err := serde.CollectBody(ctx, resp.Body)
			if err != nil {
				return nil, fmt.Errorf("read payload %q: %w", name, err)
			}
			if len(body) == 0 {
				continue
			}
			v, err := p.codec.NewDeserializer().Read(member, body)
			if err != nil {
				return nil, fmt.Errorf("decode payload %q: %w", name, err)
			}
			// the decoded payload replaces everything bound so far; values
			// that are not maps stay addressable under the member name
			if m, ok := v.(map[string]any); ok {
				out = maps.Clone(m)
			} else {
				out = map[string]any{name: v}
			}

		case BindingHeader:
			raw, ok := headers[strings.ToLower(t.HTTPHeader)]
			if !ok {
				continue
			}
			v, err := hdr.Parse(member, raw)
			if err != nil {
				return nil, fmt.Errorf("decode header %q: %w", t.HTTPHeader, err)
			}
			out[name] = v

		case BindingPrefixHeaders:
			prefix := strings.ToLower(t.HTTPPrefixHeaders)
			elem, err := member.ValueSchema()
			if err != nil {
				return nil, err
			}
			collected := make(map[string]any)
			for k, raw := range headers {
				if !strings.HasPrefix(k, prefix) {
					continue
				}
				v, err := hdr.Parse(elem, raw)
				if err != nil {
					return nil, fmt.Errorf("decode header %q: %w", k, err)
				}
				collected[k[len(prefix):]] = v
			}
			out[name] = collected

		case BindingResponseCode:
			out[name] = int64(resp.StatusCode)

		default:
			hasUnbound = true
			continue
		}

		p.logger.Debug().
			Str("operation", op.QualifiedName()).
			Str("member", name).
			Stringer("binding", kind).
			Msg("bound output member")
	}

	if hasUnbound && !consumed {
		consumed = true
		body, err := serde.CollectBody(ctx, resp.Body)
		if err != nil {
			return nil, fmt.Errorf("read body: %w", err)
		}
		if len(body) > 0 {
			v, err := p.codec.NewDeserializer().Read(ns, body)
			if err != nil {
				return nil, fmt.Errorf("decode body: %w", err)
			}
			if m, ok := v.(map[string]any); ok {
				maps.Copy(out, m)
			}
		}
		p.logger.Debug().
			Str("operation", op.QualifiedName()).
			Int("body_bytes", len(body)).
			Msg("decoded response body")
	}
	if !consumed {
		closeBody(resp.Body)
	}

	return &Output{Data: out, Metadata: meta}, nil
}

func (p *HTTPBinding) handleError(ctx context.Context, op *schema.Operation, resp *transport.Response, meta ResponseMetadata) error {
	body, err := serde.CollectBody(ctx, resp.Body)
	if err != nil {
		return fmt.Errorf("read error body: %w", err)
	}
	data := make(map[string]any)
	if len(body) > 0 {
		v, err := p.codec.NewDeserializer().Read(schema.Document, body)
		if err != nil {
			return fmt.Errorf("decode error body: %w", err)
		}
		if m, ok := v.(map[string]any); ok {
			maps.Copy(data, m)
		}
	}

	p.logger.Debug().
		Str("operation", op.QualifiedName()).
		Int("status", resp.StatusCode).
		Str("request_id", meta.RequestID).
		Msg("dispatching error response")

	if p.dispatcher == nil {
		return fmt.Errorf("%w: error dispatcher", ErrMissingCollaborator)
	}
	if err := p.dispatcher.HandleError(ctx, op, resp, data, meta); err != nil {
		return err
	}
	return fmt.Errorf("%w: %s status %d", ErrDispatcherContract, op.QualifiedName(), resp.StatusCode)
}

func closeBody(body io.Reader) {
	if c, ok := body.(io.Closer); ok {
		_ = c.Close()
	}
}
