// Package http provides the net/http transport and the invoker that runs
// an operation end to end over it.
package http

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/artpar/shapewire/domain/transport"
	"github.com/artpar/shapewire/ports"
)

// Client sends transport requests with net/http.
type Client struct {
	client          *http.Client // For in-memory bodies
	streamingClient *http.Client // For streaming bodies (no timeout)
	logger          zerolog.Logger
}

// ClientConfig contains configuration for the client.
type ClientConfig struct {
	Timeout         time.Duration
	MaxIdleConns    int
	IdleConnTimeout time.Duration
	Logger          zerolog.Logger
}

// NewClient creates a new HTTP client.
func NewClient(cfg ClientConfig) *Client {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 30 * time.Second
	}

	maxIdleConns := cfg.MaxIdleConns
	if maxIdleConns == 0 {
		maxIdleConns = 100
	}

	idleConnTimeout := cfg.IdleConnTimeout
	if idleConnTimeout == 0 {
		idleConnTimeout = 90 * time.Second
	}

	rt := &http.Transport{
		Proxy:               http.ProxyFromEnvironment,
		MaxIdleConns:        maxIdleConns,
		MaxIdleConnsPerHost: maxIdleConns,
		IdleConnTimeout:     idleConnTimeout,
		// bodies are decoded by the protocol as received
		DisableCompression: true,
	}

	return &Client{
		client:          &http.Client{Transport: rt, Timeout: timeout},
		streamingClient: &http.Client{Transport: rt},
		logger:          cfg.Logger,
	}
}

// Send executes req. The response body is returned unread; the caller must
// close it.
func (c *Client) Send(ctx context.Context, req *transport.Request) (*transport.Response, error) {
	var body io.Reader
	client := c.client
	switch {
	case req.Stream != nil:
		body = req.Stream
		client = c.streamingClient
	case len(req.Body) > 0:
		body = bytes.NewReader(req.Body)
	}

	target := req.URL()
	httpReq, err := http.NewRequestWithContext(ctx, req.Method, target.String(), body)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	if req.Stream != nil {
		httpReq.ContentLength = -1
	}
	for k, v := range req.Headers {
		httpReq.Header.Set(k, v)
	}
	if host, ok := req.Headers["host"]; ok && host != "" {
		httpReq.Host = host
	}

	resp, err := client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("execute request: %w", err)
	}

	headers := make(map[string]string, len(resp.Header))
	for k, v := range resp.Header {
		if hopByHop(k) || len(v) == 0 {
			continue
		}
		headers[strings.ToLower(k)] = strings.Join(v, ", ")
	}

	c.logger.Debug().
		Str("method", req.Method).
		Str("host", target.Host).
		Str("path", target.EscapedPath()).
		Int("status", resp.StatusCode).
		Msg("transport round trip")

	return &transport.Response{
		StatusCode: resp.StatusCode,
		Headers:    headers,
		Body:       resp.Body,
	}, nil
}

// Close releases idle connections.
func (c *Client) Close() error {
	c.client.CloseIdleConnections()
	return nil
}

func hopByHop(name string) bool {
	switch strings.ToLower(name) {
	case "connection", "keep-alive", "proxy-authenticate", "proxy-authorization",
		"te", "trailers", "transfer-encoding", "upgrade":
		return true
	}
	return false
}

var _ ports.Transport = (*Client)(nil)
