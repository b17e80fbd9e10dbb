package serde

import (
	"context"
	"io"
)

// CollectBody reads body to the end and closes it when it is an
// io.Closer. If ctx ends first the body is closed and the partial output
// discarded. A nil body yields nil.
func CollectBody(ctx context.Context, body io.Reader) ([]byte, error) {
	if body == nil {
		return nil, nil
	}
	if err := ctx.Err(); err != nil {
		closeBody(body)
		return nil, err
	}

	type result struct {
		data []byte
		err  error
	}
	done := make(chan result, 1)
	go func() {
		data, err := io.ReadAll(body)
		done <- result{data, err}
	}()

	select {
	case res := <-done:
		closeBody(body)
		if res.err != nil {
			return nil, res.err
		}
		return res.data, nil
	case <-ctx.Done():
		closeBody(body)
		return nil, ctx.Err()
	}
}

func closeBody(body io.Reader) {
	if c, ok := body.(io.Closer); ok {
		_ = c.Close()
	}
}
