package streaming

import (
	"bufio"
	"context"
	"encoding/base64"
	"fmt"
	"io"
	"iter"
	"sort"
	"strings"
)

// Message is one event-stream frame: headers such as :event-type plus an
// encoded body.
type Message struct {
	Headers map[string]string
	Body    []byte
}

// Well-known message headers.
const (
	HeaderEventType   = ":event-type"
	HeaderMessageType = ":message-type"
	HeaderContentType = ":content-type"
)

// EventType returns the :event-type header.
func (m Message) EventType() string {
	return m.Headers[HeaderEventType]
}

// maxLine bounds one SSE line; bodies are base64 on a single data line.
const maxLine = 16 << 20

// SSE frames messages as Server-Sent Events. The :event-type header is the
// event name, other headers are "header: name=value" fields and the body
// is one base64 data field.
type SSE struct{}

// Serialize encodes events and frames them into a stream. Encoding runs as
// the stream is read; the first error ends the stream with that error.
// Cancelling ctx closes the stream even if nobody is reading it.
func (SSE) Serialize(ctx context.Context, events iter.Seq[map[string]any], encode func(map[string]any) (Message, error)) io.Reader {
	pr, pw := io.Pipe()
	stop := context.AfterFunc(ctx, func() { pw.CloseWithError(ctx.Err()) })
	go func() {
		defer stop()
		for event := range events {
			if err := ctx.Err(); err != nil {
				pw.CloseWithError(err)
				return
			}
			msg, err := encode(event)
			if err != nil {
				pw.CloseWithError(fmt.Errorf("encode event: %w", err))
				return
			}
			if _, err := io.WriteString(pw, formatEvent(msg)); err != nil {
				return
			}
		}
		pw.Close()
	}()
	return pr
}

func formatEvent(msg Message) string {
	var b strings.Builder
	if name := msg.EventType(); name != "" {
		fmt.Fprintf(&b, "event: %s\n", name)
	}
	keys := make([]string, 0, len(msg.Headers))
	for k := range msg.Headers {
		if k != HeaderEventType {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	for _, k := range keys {
		fmt.Fprintf(&b, "header: %s=%s\n", k, msg.Headers[k])
	}
	fmt.Fprintf(&b, "data: %s\n\n", base64.StdEncoding.EncodeToString(msg.Body))
	return b.String()
}

// Deserialize parses framed messages from body and decodes each one. The
// sequence stops at the first error, which is yielded. Body is closed when
// the sequence ends.
func (SSE) Deserialize(ctx context.Context, body io.Reader, decode func(Message) (map[string]any, error)) iter.Seq2[map[string]any, error] {
	return func(yield func(map[string]any, error) bool) {
		defer func() {
			if c, ok := body.(io.Closer); ok {
				_ = c.Close()
			}
		}()

		for msg, err := range ParseMessages(body) {
			if err == nil {
				err = ctx.Err()
			}
			if err != nil {
				yield(nil, err)
				return
			}
			event, err := decode(msg)
			if err != nil {
				yield(nil, fmt.Errorf("decode event %q: %w", msg.EventType(), err))
				return
			}
			if !yield(event, nil) {
				return
			}
		}
	}
}

// ParseMessages reads SSE frames from r.
func ParseMessages(r io.Reader) iter.Seq2[Message, error] {
	return func(yield func(Message, error) bool) {
		scanner := bufio.NewScanner(r)
		scanner.Buffer(make([]byte, 0, 64*1024), maxLine)

		var (
			current Message
			data    []string
			pending bool
		)
		emit := func() bool {
			if !pending {
				return true
			}
			body, err := base64.StdEncoding.DecodeString(strings.Join(data, ""))
			if err != nil {
				yield(Message{}, fmt.Errorf("event data: %w", err))
				return false
			}
			current.Body = body
			ok := yield(current, nil)
			current, data, pending = Message{}, nil, false
			return ok
		}

		for scanner.Scan() {
			line := strings.TrimSuffix(scanner.Text(), "\r")

			if line == "" {
				if !emit() {
					return
				}
				continue
			}
			if strings.HasPrefix(line, ":") {
				continue
			}
			field, value, found := strings.Cut(line, ":")
			if !found {
				continue
			}
			value = strings.TrimPrefix(value, " ")

			if current.Headers == nil {
				current.Headers = make(map[string]string)
			}
			switch field {
			case "event":
				current.Headers[HeaderEventType] = value
				pending = true
			case "header":
				k, v, _ := strings.Cut(value, "=")
				current.Headers[k] = v
				pending = true
			case "data":
				data = append(data, value)
				pending = true
			}
		}
		if err := scanner.Err(); err != nil {
			yield(Message{}, fmt.Errorf("read event stream: %w", err))
			return
		}
		emit()
	}
}

// ContentType returns text/event-stream.
func (SSE) ContentType() string { return "text/event-stream" }
