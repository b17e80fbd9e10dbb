package protocol

import (
	"context"
	"fmt"
	"io"
	"iter"
	"slices"

	"github.com/artpar/shapewire/core/schema"
	"github.com/artpar/shapewire/domain/streaming"
)

// UnknownEvent is the key under which events of unmodeled types are
// returned.
const UnknownEvent = "$unknown"

// unionDiscriminator is ignored when looking for an event's variant.
const unionDiscriminator = "__type"

// eventSeq accepts the supported event-stream input forms.
func eventSeq(v any) (iter.Seq[map[string]any], error) {
	switch x := v.(type) {
	case iter.Seq[map[string]any]:
		return x, nil
	case func(func(map[string]any) bool):
		return x, nil
	case []map[string]any:
		return slices.Values(x), nil
	case []any:
		return func(yield func(map[string]any) bool) {
			for _, item := range x {
				m, ok := item.(map[string]any)
				if !ok {
					continue
				}
				if !yield(m) {
					return
				}
			}
		}, nil
	}
	return nil, fmt.Errorf("event stream is %T", v)
}

// eventVariant returns the union variant of an event.
func eventVariant(event map[string]any) (string, bool) {
	for k := range event {
		if k != unionDiscriminator {
			return k, true
		}
	}
	return "", false
}

func (p *HTTPBinding) serializeEventStream(ctx context.Context, m EventStreamMarshaller, union *schema.Normalized, events iter.Seq[map[string]any]) io.Reader {
	return m.Serialize(ctx, events, func(event map[string]any) (streaming.Message, error) {
		variant, ok := eventVariant(event)
		if !ok {
			return streaming.Message{}, fmt.Errorf("%w: event has no variant", ErrInvalidInput)
		}
		member, ok := union.MemberSchema(variant)
		if !ok {
			return streaming.Message{}, fmt.Errorf("%w: unknown event type %q", ErrInvalidInput, variant)
		}
		ser := p.codec.NewSerializer()
		if err := ser.Write(member, event[variant]); err != nil {
			return streaming.Message{}, err
		}
		body, err := ser.Flush()
		if err != nil {
			return streaming.Message{}, err
		}
		return streaming.Message{
			Headers: map[string]string{
				streaming.HeaderEventType:   variant,
				streaming.HeaderMessageType: "event",
				streaming.HeaderContentType: p.codec.MediaType(),
			},
			Body: body,
		}, nil
	})
}

// rawEvent keys an undecoded frame by its event type.
func rawEvent(msg streaming.Message) map[string]any {
	return map[string]any{
		msg.EventType(): map[string]any{"headers": msg.Headers, "body": msg.Body},
	}
}

func (p *HTTPBinding) deserializeEventStream(ctx context.Context, m EventStreamMarshaller, union *schema.Normalized, body io.Reader) iter.Seq2[map[string]any, error] {
	return m.Deserialize(ctx, body, func(msg streaming.Message) (map[string]any, error) {
		event := rawEvent(msg)
		variant, ok := eventVariant(event)
		if !ok {
			return map[string]any{UnknownEvent: event}, nil
		}
		member, ok := union.MemberSchema(variant)
		if !ok || !member.IsStructSchema() {
			return map[string]any{UnknownEvent: event}, nil
		}
		v, err := p.codec.NewDeserializer().Read(member, msg.Body)
		if err != nil {
			return nil, err
		}
		return map[string]any{variant: v}, nil
	})
}
