package http

import (
	"bytes"
	"fmt"
	"slices"
	"strings"

	"github.com/klauspost/compress/gzip"

	"github.com/artpar/shapewire/core/schema"
	"github.com/artpar/shapewire/domain/transport"
)

// DefaultMinCompressionBytes is the smallest body that is compressed.
const DefaultMinCompressionBytes = 10240

const encodingGzip = "gzip"

// Compression controls request body compression for operations that carry
// the requestCompression trait.
type Compression struct {
	Disabled     bool
	MinSizeBytes int
}

func (c Compression) minSize() int {
	if c.MinSizeBytes <= 0 {
		return DefaultMinCompressionBytes
	}
	return c.MinSizeBytes
}

// compress gzips req.Body in place when op allows it. Streaming bodies are
// sent as is. It reports whether the body was compressed.
func (c Compression) compress(op *schema.Operation, req *transport.Request) (bool, error) {
	if c.Disabled || req.Stream != nil || len(req.Body) < c.minSize() {
		return false, nil
	}
	if !slices.Contains(op.Traits().RequestCompression, encodingGzip) {
		return false, nil
	}

	var buf bytes.Buffer
	zw := gzip.NewWriter(&buf)
	if _, err := zw.Write(req.Body); err != nil {
		return false, fmt.Errorf("gzip body: %w", err)
	}
	if err := zw.Close(); err != nil {
		return false, fmt.Errorf("gzip body: %w", err)
	}
	req.Body = buf.Bytes()

	if cur := strings.TrimSpace(req.Headers["content-encoding"]); cur != "" {
		req.Headers["content-encoding"] = cur + ", " + encodingGzip
	} else {
		req.Headers["content-encoding"] = encodingGzip
	}
	return true, nil
}
