package serde

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"
	"time"
)

type trackingReader struct {
	io.Reader
	closed bool
}

func (r *trackingReader) Close() error {
	r.closed = true
	return nil
}

func TestCollectBody(t *testing.T) {
	body := &trackingReader{Reader: strings.NewReader("payload")}
	got, err := CollectBody(context.Background(), body)
	if err != nil {
		t.Fatalf("CollectBody() error = %v", err)
	}
	if string(got) != "payload" {
		t.Errorf("CollectBody() = %q, want payload", got)
	}
	if !body.closed {
		t.Error("body not closed")
	}
}

func TestCollectBody_Nil(t *testing.T) {
	got, err := CollectBody(context.Background(), nil)
	if err != nil || got != nil {
		t.Errorf("CollectBody(nil) = %q, %v", got, err)
	}
}

func TestCollectBody_Cancelled(t *testing.T) {
	pr, pw := io.Pipe()
	defer pw.Close()

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		_, _ = pw.Write([]byte("partial"))
		time.Sleep(10 * time.Millisecond)
		cancel()
	}()

	got, err := CollectBody(ctx, pr)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("CollectBody() error = %v, want context.Canceled", err)
	}
	if got != nil {
		t.Errorf("CollectBody() returned partial output %q", got)
	}
}

func TestCollectBody_AlreadyCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	body := &trackingReader{Reader: strings.NewReader("x")}
	if _, err := CollectBody(ctx, body); !errors.Is(err, context.Canceled) {
		t.Errorf("CollectBody() error = %v, want context.Canceled", err)
	}
	if !body.closed {
		t.Error("body not closed on cancellation")
	}
}
