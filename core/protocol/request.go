package protocol

import (
	"context"
	"fmt"
	"io"
	"maps"
	"net/url"
	"strings"

	"github.com/artpar/shapewire/core/schema"
	"github.com/artpar/shapewire/core/serde"
	"github.com/artpar/shapewire/domain/transport"
)

// contentTypeOctetStream is set on streaming blob bodies.
const contentTypeOctetStream = "application/octet-stream"

// SerializeRequest binds input onto a new request for op. Members are
// walked in declaration order; each present member is placed by its
// binding. Members with no binding are sent together as the body.
func (p *HTTPBinding) SerializeRequest(ctx context.Context, hc *HandlerContext, op *schema.Operation, input map[string]any) (*transport.Request, error) {
	if hc == nil {
		hc = &HandlerContext{}
	}
	req := transport.NewRequest()
	req.Method = "POST"
	req.Path = ""
	if hc.Endpoint != nil {
		applyEndpoint(req, *hc.Endpoint)
	}

	if h := op.Traits().HTTP; h != nil {
		if h.Method != "" {
			req.Method = h.Method
		}
		path, search, _ := strings.Cut(h.URI, "?")
		req.Path = joinPath(req.Path, path)
		if search != "" {
			literal, err := url.ParseQuery(search)
			if err != nil {
				return nil, fmt.Errorf("parse uri query of %s: %w", op.QualifiedName(), err)
			}
			for k, v := range literal {
				req.SetQuery(k, v...)
			}
		}
	} else if req.Path == "" {
		req.Path = "/"
	}

	ns := schema.Of(op.Input)
	members, err := ns.StructIterator()
	if err != nil {
		return nil, fmt.Errorf("input of %s: %w", op.QualifiedName(), err)
	}

	values := maps.Clone(input)
	if values == nil {
		values = make(map[string]any)
	}
	p.fillIdempotencyTokens(ns, values)
	residual := maps.Clone(values)

	var (
		payload     []byte
		hasPayload  bool
		contentType string
		hasUnbound  bool
		params      = make(map[string][]string)
		headers     = serde.NewHeaderSerializer()
		strs        = serde.NewStringSerializer()
	)

	for name, member := range members {
		value, present := values[name]
		if !present || serde.IsNull(value) {
			continue
		}
		kind := Classify(member)
		t := member.MergedTraits()

		switch kind {
		case BindingEventStream:
			if hc.EventStreamMarshaller == nil {
				return nil, fmt.Errorf("%w: outbound event stream %q needs an event-stream marshaller", ErrNotImplemented, name)
			}
			events, err := eventSeq(value)
			if err != nil {
				return nil, fmt.Errorf("%w: member %q: %v", ErrInvalidInput, name, err)
			}
			req.Stream = p.serializeEventStream(ctx, hc.EventStreamMarshaller, member, events)
			contentType = hc.EventStreamMarshaller.ContentType()

		case BindingStreamingBlob:
			switch v := value.(type) {
			case io.Reader:
				req.Stream = v
			case []byte:
				payload, hasPayload = v, true
			case string:
				payload, hasPayload = []byte(v), true
			default:
				return nil, fmt.Errorf("%w: streaming member %q is %T", ErrInvalidInput, name, value)
			}
			contentType = mediaTypeOr(t, contentTypeOctetStream)

		case BindingPayload:
			// the member alone is the body, whatever its shape
			ser := p.codec.NewSerializer()
			if err := ser.Write(member, value); err != nil {
				return nil, fmt.Errorf("serialize payload %q: %w", name, err)
			}
			if payload, err = ser.Flush(); err != nil {
				return nil, fmt.Errorf("serialize payload %q: %w", name, err)
			}
			contentType = mediaTypeOr(t, p.codec.MediaType())
			hasPayload = true

		case BindingLabel:
			s, err := strs.Format(member, value)
			if err != nil {
				return nil, fmt.Errorf("serialize label %q: %w", name, err)
			}
			if s == "" {
				return nil, fmt.Errorf("%w: empty value for label %q", ErrInvalidInput, name)
			}
			req.Path, _ = substituteLabel(req.Path, name, s)

		case BindingHeader:
			s, err := headers.Format(member, value)
			if err != nil {
				return nil, fmt.Errorf("serialize header %q: %w", name, err)
			}
			p.setHeader(req, t.HTTPHeader, s)

		case BindingQuery:
			if err := p.bindQuery(req, strs, member, t.HTTPQuery, value); err != nil {
				return nil, fmt.Errorf("serialize query %q: %w", name, err)
			}

		case BindingPrefixHeaders:
			entries, ok := serde.AsMap(value)
			if !ok {
				return nil, fmt.Errorf("%w: prefix headers %q is %T", ErrInvalidInput, name, value)
			}
			elem, err := member.ValueSchema()
			if err != nil {
				return nil, err
			}
			for key, v := range entries {
				if serde.IsNull(v) {
					continue
				}
				s, err := headers.Format(elem, v)
				if err != nil {
					return nil, fmt.Errorf("serialize header %q: %w", t.HTTPPrefixHeaders+key, err)
				}
				p.setHeader(req, t.HTTPPrefixHeaders+key, s)
			}

		case BindingQueryParams:
			entries, ok := serde.AsMap(value)
			if !ok {
				return nil, fmt.Errorf("%w: query params %q is %T", ErrInvalidInput, name, value)
			}
			elem, err := member.ValueSchema()
			if err != nil {
				return nil, err
			}
			for key, v := range entries {
				vals, err := queryValues(strs, elem, v)
				if err != nil {
					return nil, fmt.Errorf("serialize query %q: %w", key, err)
				}
				params[key] = append(params[key], vals...)
			}

		default:
			hasUnbound = true
			continue
		}

		delete(residual, name)
		p.logger.Debug().
			Str("operation", op.QualifiedName()).
			Str("member", name).
			Stringer("binding", kind).
			Msg("bound input member")
	}

	// httpQuery members take precedence over httpQueryParams entries
	for k, v := range params {
		if _, set := req.Query[k]; !set {
			req.SetQuery(k, v...)
		}
	}

	if hasUnbound {
		ser := p.codec.NewSerializer()
		if err := ser.Write(ns, residual); err != nil {
			return nil, fmt.Errorf("serialize body: %w", err)
		}
		body, err := ser.Flush()
		if err != nil {
			return nil, fmt.Errorf("serialize body: %w", err)
		}
		payload, hasPayload = body, true
		contentType = p.codec.MediaType()
	}

	if hasPayload {
		req.Body = payload
	}
	if contentType != "" && (hasPayload || req.Stream != nil) {
		if _, set := req.Headers["content-type"]; !set {
			req.Headers["content-type"] = contentType
		}
	}

	p.logger.Debug().
		Str("operation", op.QualifiedName()).
		Str("method", req.Method).
		Str("path", req.Path).
		Int("body_bytes", len(req.Body)).
		Bool("streaming", req.Stream != nil).
		Msg("serialized request")
	return req, nil
}

// fillIdempotencyTokens sets absent idempotency token members of values
// from the ID generator.
func (p *HTTPBinding) fillIdempotencyTokens(ns *schema.Normalized, values map[string]any) {
	if p.ids == nil {
		return
	}
	for _, member := range ns.MemberSchemas() {
		if !member.MergedTraits().IdempotencyToken {
			continue
		}
		name, _ := member.MemberName()
		if v, ok := values[name]; ok && !serde.IsNull(v) {
			continue
		}
		values[name] = p.ids.New()
	}
}

func (p *HTTPBinding) setHeader(req *transport.Request, name, value string) {
	if !p.keepHeaderCase {
		value = strings.ToLower(value)
	}
	req.Headers[strings.ToLower(name)] = value
}

func (p *HTTPBinding) bindQuery(req *transport.Request, strs *serde.StringSerializer, member *schema.Normalized, key string, value any) error {
	vals, err := queryValues(strs, member, value)
	if err != nil {
		return err
	}
	req.SetQuery(key, vals...)
	return nil
}

// queryValues renders a query value; lists become repeated parameters.
func queryValues(strs *serde.StringSerializer, n *schema.Normalized, value any) ([]string, error) {
	if n.IsListSchema() {
		items, ok := serde.AsList(value)
		if !ok {
			return nil, fmt.Errorf("%w: list is %T", ErrInvalidInput, value)
		}
		elem, err := n.ValueSchema()
		if err != nil {
			return nil, err
		}
		out := make([]string, 0, len(items))
		for _, item := range items {
			if serde.IsNull(item) {
				continue
			}
			s, err := strs.Format(elem, item)
			if err != nil {
				return nil, err
			}
			out = append(out, s)
		}
		return out, nil
	}
	s, err := strs.Format(n, value)
	if err != nil {
		return nil, err
	}
	return []string{s}, nil
}

func mediaTypeOr(t schema.Traits, def string) string {
	if t.MediaType != "" {
		return t.MediaType
	}
	return def
}
