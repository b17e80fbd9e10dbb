package main

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/mattn/go-isatty"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"

	"github.com/artpar/shapewire/adapters/clock"
	apihttp "github.com/artpar/shapewire/adapters/http"
	"github.com/artpar/shapewire/adapters/idgen"
	"github.com/artpar/shapewire/adapters/metrics"
	"github.com/artpar/shapewire/config"
	"github.com/artpar/shapewire/core/protocol"
	"github.com/artpar/shapewire/core/registry"
	"github.com/artpar/shapewire/core/schema"
	"github.com/artpar/shapewire/domain/streaming"
	"github.com/artpar/shapewire/domain/transport"
)

// newLogger builds the CLI logger. Logs go to w so stdout carries only
// command output.
func newLogger(cfg config.LoggingConfig, w io.Writer) zerolog.Logger {
	level, err := zerolog.ParseLevel(cfg.Level)
	if err != nil || cfg.Level == "" {
		level = zerolog.InfoLevel
	}

	if cfg.Format == "json" {
		return zerolog.New(w).Level(level).With().Timestamp().Logger()
	}
	output := zerolog.ConsoleWriter{Out: w, TimeFormat: time.RFC3339, NoColor: !isTerminal(w)}
	return zerolog.New(output).Level(level).With().Timestamp().Logger()
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && isatty.IsTerminal(f.Fd())
}

// lookupShape resolves a qualified name anywhere, or a local name in
// namespace.
func lookupShape(namespace, name string) (schema.Shape, error) {
	if ns, _ := schema.SplitName(name); ns != "" {
		s, ok := registry.Resolve(name)
		if !ok {
			return nil, fmt.Errorf("shape %s not found", name)
		}
		return s, nil
	}
	s, ok := registry.For(namespace).Lookup(name)
	if !ok {
		return nil, fmt.Errorf("shape %s not found in namespace %s", name, namespace)
	}
	return s, nil
}

// lookupOperation resolves name to an operation shape.
func lookupOperation(namespace, name string) (*schema.Operation, error) {
	s, err := lookupShape(namespace, name)
	if err != nil {
		return nil, err
	}
	op, ok := s.(*schema.Operation)
	if !ok {
		return nil, fmt.Errorf("shape %s is not an operation", s.QualifiedName())
	}
	return op, nil
}

// valueShape returns the shape that values are read and written against:
// an operation's input or output, or the shape itself.
func valueShape(s schema.Shape, output bool) schema.Ref {
	op, ok := s.(*schema.Operation)
	if !ok {
		return s
	}
	if output {
		return op.Output
	}
	return op.Input
}

// newBinding configures the HTTP binding protocol from cfg.
func newBinding(cfg *config.Config, logger zerolog.Logger) *protocol.HTTPBinding {
	opts := []protocol.Option{protocol.WithLogger(logger)}
	if cfg.Protocol.PreserveHeaderValues {
		opts = append(opts, protocol.WithPreservedHeaderValues())
	}
	if cfg.Protocol.IdempotencySeed != "" {
		opts = append(opts, protocol.WithIDGenerator(idgen.NewSeeded(cfg.Protocol.IdempotencySeed)))
	}
	return protocol.New(opts...)
}

// metricsSink is the collector and the registry it writes into.
type metricsSink struct {
	collector *metrics.Collector
	registry  *prometheus.Registry
	textfile  string
}

func newMetricsSink(cfg config.MetricsConfig) *metricsSink {
	if !cfg.Enabled {
		return nil
	}
	reg := prometheus.NewRegistry()
	return &metricsSink{
		collector: metrics.NewWithRegistry(reg, cfg.Namespace),
		registry:  reg,
		textfile:  cfg.Textfile,
	}
}

// flush writes the gathered metrics to the configured textfile.
func (m *metricsSink) flush() error {
	if m == nil || m.textfile == "" {
		return nil
	}
	if err := prometheus.WriteToTextfile(m.textfile, m.registry); err != nil {
		return fmt.Errorf("write metrics textfile: %w", err)
	}
	return nil
}

// client bundles an Invoker with the transport it owns.
type client struct {
	invoker   *apihttp.Invoker
	transport *apihttp.Client
}

func (c *client) Close() error {
	return c.transport.Close()
}

// newClient builds an Invoker for cfg. endpoint overrides cfg.Endpoint.URL
// when set.
func newClient(cfg *config.Config, endpoint string, logger zerolog.Logger, sink *metricsSink) (*client, error) {
	if endpoint == "" {
		endpoint = cfg.Endpoint.URL
	}
	if endpoint == "" {
		return nil, fmt.Errorf("no endpoint: set endpoint.url, %sENDPOINT_URL or --endpoint", config.EnvPrefix)
	}
	ep, err := transport.ParseEndpoint(endpoint)
	if err != nil {
		return nil, fmt.Errorf("endpoint: %w", err)
	}

	t := apihttp.NewClient(apihttp.ClientConfig{
		Timeout:         cfg.Client.Timeout,
		MaxIdleConns:    cfg.Client.MaxIdleConns,
		IdleConnTimeout: cfg.Client.IdleConnTimeout,
		Logger:          logger,
	})

	opts := []apihttp.InvokerOption{
		apihttp.WithEndpoint(ep),
		apihttp.WithEventStreamMarshaller(streaming.SSE{}),
		apihttp.WithCompression(apihttp.Compression{
			Disabled:     cfg.Compression.Disabled,
			MinSizeBytes: cfg.Compression.MinSizeBytes,
		}),
		apihttp.WithClock(clock.Real{}),
		apihttp.WithLogger(logger),
	}
	if sink != nil {
		opts = append(opts, apihttp.WithRecorder(sink.collector))
	}

	return &client{
		invoker:   apihttp.NewInvoker(newBinding(cfg, logger), t, opts...),
		transport: t,
	}, nil
}
