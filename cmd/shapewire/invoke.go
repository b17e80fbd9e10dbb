package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/artpar/shapewire/config"
	"github.com/artpar/shapewire/core/formatter"
	"github.com/artpar/shapewire/core/protocol"
	"github.com/artpar/shapewire/core/schema"
)

type invokeOptions struct {
	endpoint string
	file     string
	bodyOut  string
	repeat   int
	interval time.Duration
}

func newInvokeCmd(opts *rootOptions) *cobra.Command {
	inv := &invokeOptions{}

	cmd := &cobra.Command{
		Use:   "invoke <operation> [json]",
		Short: "Call an operation and print its output",
		Long: `Serialize the JSON input onto an HTTP request, send it to the configured
endpoint and print the deserialized output.

Without an inline value or --file the input is empty. Blob and stream
payloads are printed as base64 unless --body-out names a file.

With --repeat the call is made several times and the config file is
watched; endpoint and compression changes apply to the next call.

Examples:
  shapewire invoke ListObjects '{"bucket":"photos","maxKeys":10}'
  shapewire invoke GetObject '{"bucket":"photos","key":"a/b.jpg"}' --body-out b.jpg
  shapewire invoke PutObject --file put.json --endpoint http://localhost:9000`,
		Args: cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runInvoke(cmd, opts, inv, args)
		},
	}

	cmd.Flags().StringVar(&inv.endpoint, "endpoint", "", "service endpoint, overrides endpoint.url")
	cmd.Flags().StringVar(&inv.file, "file", "", "read input JSON from file, - for stdin")
	cmd.Flags().StringVar(&inv.bodyOut, "body-out", "", "write the blob or stream payload to this file")
	cmd.Flags().IntVar(&inv.repeat, "repeat", 1, "number of calls")
	cmd.Flags().DurationVar(&inv.interval, "interval", time.Second, "pause between repeated calls")
	return cmd
}

func runInvoke(cmd *cobra.Command, opts *rootOptions, inv *invokeOptions, args []string) error {
	cfg, err := config.LoadWithFallback(opts.cfgFile)
	if err != nil {
		return err
	}
	logger := newLogger(cfg.Logging, cmd.ErrOrStderr())

	op, err := lookupOperation(opts.namespace, args[0])
	if err != nil {
		return err
	}

	data := []byte("{}")
	if len(args) > 1 || inv.file != "" {
		if data, err = readInput(cmd, inv.file, args[1:]); err != nil {
			return err
		}
	}
	raw, err := decodeJSON(data)
	if err != nil {
		return err
	}
	typed, err := fromJSON(schema.Of(op.Input), raw)
	if err != nil {
		return fmt.Errorf("input: %w", err)
	}
	input, _ := typed.(map[string]any)

	sink := newMetricsSink(cfg.Metrics)
	defer func() {
		if err := sink.flush(); err != nil {
			logger.Warn().Err(err).Msg("metrics textfile not written")
		}
	}()

	current := func() *config.Config { return cfg }
	if inv.repeat > 1 {
		if holder := watchConfig(opts.cfgFile, logger, sink); holder != nil {
			defer holder.Stop()
			current = holder.Get
		}
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	var lastErr error
	for i := 0; i < max(inv.repeat, 1); i++ {
		if i > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(inv.interval):
			}
		}
		lastErr = invokeOnce(ctx, cmd.OutOrStdout(), opts, current(), inv, op, input, logger, sink)
		if lastErr != nil && inv.repeat > 1 {
			logger.Warn().Err(lastErr).Int("call", i+1).Msg("invocation failed")
		}
	}
	return lastErr
}

// watchConfig returns a hot-reloading holder when the config file exists.
func watchConfig(path string, logger zerolog.Logger, sink *metricsSink) *config.Holder {
	if _, err := os.Stat(path); err != nil {
		return nil
	}
	holder, err := config.NewHolder(path, logger)
	if err != nil {
		logger.Warn().Err(err).Msg("config hot reload disabled")
		return nil
	}
	if sink != nil {
		holder.SetRecorder(sink.collector)
	}
	if err := holder.WatchFile(); err != nil {
		logger.Warn().Err(err).Msg("config hot reload disabled")
		return nil
	}
	holder.ReloadOn(syscall.SIGHUP)
	return holder
}

func invokeOnce(ctx context.Context, w io.Writer, ro *rootOptions, cfg *config.Config, opts *invokeOptions, op *schema.Operation, input map[string]any, logger zerolog.Logger, sink *metricsSink) error {
	c, err := newClient(cfg, opts.endpoint, logger, sink)
	if err != nil {
		return err
	}
	defer c.Close()

	out, err := c.invoker.Invoke(ctx, op, input)
	if err != nil {
		var se *protocol.ServiceError
		if errors.As(err, &se) {
			if werr := ro.print(w, nil, serviceErrorView(se)); werr != nil {
				return werr
			}
		}
		return err
	}

	output := out.Data
	if opts.bodyOut != "" {
		if output, err = writePayload(ctx, op, output, opts.bodyOut); err != nil {
			return err
		}
	}
	rendered, err := renderable(ctx, output)
	if err != nil {
		return fmt.Errorf("read output: %w", err)
	}
	if ro.outputFormat == "table" {
		return ro.print(w, schema.Of(op.Output), rendered)
	}
	return ro.print(w, nil, map[string]any{
		"output": formatter.Prepare(schema.Of(op.Output), rendered, formatter.FormatOptions{ShowSensitive: ro.showSensitive}),
		"metadata": map[string]any{
			"httpStatusCode":    out.Metadata.HTTPStatusCode,
			"requestId":         out.Metadata.RequestID,
			"extendedRequestId": out.Metadata.ExtendedRequestID,
			"cfId":              out.Metadata.CfID,
		},
	})
}

// writePayload moves the blob or stream payload member of output into
// path and returns the output without it.
func writePayload(ctx context.Context, op *schema.Operation, output map[string]any, path string) (map[string]any, error) {
	seq, err := schema.Of(op.Output).StructIterator()
	if err != nil {
		return output, nil
	}
	for name, member := range seq {
		kind := protocol.Classify(member)
		if kind != protocol.BindingStreamingBlob && !(kind == protocol.BindingPayload && member.IsBlobSchema()) {
			continue
		}
		value, ok := output[name]
		if !ok {
			return output, nil
		}
		body, err := renderable(ctx, value)
		if err != nil {
			return nil, fmt.Errorf("read payload: %w", err)
		}
		b, ok := body.([]byte)
		if !ok {
			return nil, fmt.Errorf("payload %q is %T, not bytes", name, body)
		}
		if err := os.WriteFile(path, b, 0o644); err != nil {
			return nil, fmt.Errorf("write payload: %w", err)
		}
		rest := make(map[string]any, len(output))
		for k, v := range output {
			if k != name {
				rest[k] = v
			}
		}
		return rest, nil
	}
	return output, nil
}

func serviceErrorView(se *protocol.ServiceError) map[string]any {
	view := map[string]any{
		"code":       se.Code,
		"message":    se.Message,
		"fault":      se.Fault,
		"retryable":  se.Retryable,
		"throttling": se.Throttling,
		"statusCode": se.StatusCode,
		"requestId":  se.Metadata.RequestID,
	}
	if len(se.Fields) > 0 {
		view["fields"] = se.Fields
	}
	return map[string]any{"error": view}
}
