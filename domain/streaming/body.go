// Package streaming provides streaming payload bodies and an event-stream
// marshaller framed as Server-Sent Events.
package streaming

import (
	"context"
	"io"
	"sync/atomic"

	"github.com/artpar/shapewire/core/serde"
)

// Body wraps a streaming blob for incremental consumption and counts the
// bytes that pass through it.
type Body struct {
	reader io.Reader
	count  atomic.Int64
	closed atomic.Bool
}

// NewBody wraps r. A nil reader behaves as an empty stream.
func NewBody(r io.Reader) *Body {
	if r == nil {
		r = eofReader{}
	}
	return &Body{reader: r}
}

// Read implements io.Reader.
func (b *Body) Read(p []byte) (int, error) {
	n, err := b.reader.Read(p)
	if n > 0 {
		b.count.Add(int64(n))
	}
	return n, err
}

// Close closes the underlying reader if it is an io.Closer.
func (b *Body) Close() error {
	if !b.closed.CompareAndSwap(false, true) {
		return nil
	}
	if c, ok := b.reader.(io.Closer); ok {
		return c.Close()
	}
	return nil
}

// Count returns the bytes read so far.
func (b *Body) Count() int64 {
	return b.count.Load()
}

// Bytes collects the rest of the stream and closes it.
func (b *Body) Bytes(ctx context.Context) ([]byte, error) {
	return serde.CollectBody(ctx, b)
}

// String collects the rest of the stream as a string.
func (b *Body) String(ctx context.Context) (string, error) {
	data, err := b.Bytes(ctx)
	return string(data), err
}

type eofReader struct{}

func (eofReader) Read([]byte) (int, error) { return 0, io.EOF }
