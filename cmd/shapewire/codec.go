package main

import (
	"bytes"
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/artpar/shapewire/core/codec/cbor"
	"github.com/artpar/shapewire/core/schema"
)

// Binary text forms accepted by encode and decode.
const (
	formatHex    = "hex"
	formatBase64 = "base64"
	formatRaw    = "raw"
)

type codecOptions struct {
	format string
	file   string
	output bool
}

func (o *codecOptions) bind(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&o.format, "format", "f", formatHex, "binary form: hex, base64 or raw")
	cmd.Flags().StringVar(&o.file, "file", "", "read input from file instead of the argument or stdin")
	cmd.Flags().BoolVar(&o.output, "output", false, "use the operation's output shape instead of its input")
}

func newEncodeCmd(opts *rootOptions) *cobra.Command {
	co := &codecOptions{}

	cmd := &cobra.Command{
		Use:   "encode <shape> [json]",
		Short: "Encode a JSON value as CBOR against a shape",
		Long: `Encode a JSON value as CBOR against a shape.

Blobs are given as base64 strings and timestamps as date-time strings,
http-date strings or epoch seconds. An operation name encodes its input
shape, or its output shape with --output.

Examples:
  shapewire encode ObjectSummary '{"key":"a.txt","size":3}'
  shapewire encode CreateBucket --file bucket.json --format base64`,
		Args: cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := lookupShape(opts.namespace, args[0])
			if err != nil {
				return err
			}
			data, err := readInput(cmd, co.file, args[1:])
			if err != nil {
				return err
			}
			encoded, err := encodeJSON(valueShape(s, co.output), data)
			if err != nil {
				return err
			}
			return writeBinary(cmd.OutOrStdout(), co.format, encoded)
		},
	}

	co.bind(cmd)
	return cmd
}

func newDecodeCmd(opts *rootOptions) *cobra.Command {
	co := &codecOptions{}

	cmd := &cobra.Command{
		Use:   "decode <shape> [data]",
		Short: "Decode CBOR against a shape and print it",
		Long: `Decode CBOR against a shape and print it. Sensitive members are
redacted unless --show-sensitive is set.

Examples:
  shapewire decode ObjectSummary a26b6b6579...
  shapewire decode ListObjects --output --format raw --file body.cbor -o yaml`,
		Args: cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := lookupShape(opts.namespace, args[0])
			if err != nil {
				return err
			}
			data, err := readInput(cmd, co.file, args[1:])
			if err != nil {
				return err
			}
			raw, err := readBinary(co.format, data)
			if err != nil {
				return err
			}
			ref := valueShape(s, co.output)
			v, err := cbor.New().NewDeserializer().Read(ref, raw)
			if err != nil {
				return fmt.Errorf("decode: %w", err)
			}
			return opts.print(cmd.OutOrStdout(), schema.Of(ref), v)
		},
	}

	co.bind(cmd)
	return cmd
}

// encodeJSON parses data and encodes it as CBOR against ref.
func encodeJSON(ref schema.Ref, data []byte) ([]byte, error) {
	raw, err := decodeJSON(data)
	if err != nil {
		return nil, err
	}
	v, err := fromJSON(schema.Of(ref), raw)
	if err != nil {
		return nil, fmt.Errorf("input: %w", err)
	}
	ser := cbor.New().NewSerializer()
	if err := ser.Write(ref, v); err != nil {
		return nil, fmt.Errorf("encode: %w", err)
	}
	return ser.Flush()
}

// readInput returns the inline argument, the named file, or stdin.
func readInput(cmd *cobra.Command, file string, inline []string) ([]byte, error) {
	switch {
	case len(inline) > 0 && file != "":
		return nil, fmt.Errorf("give either an inline value or --file, not both")
	case len(inline) > 0:
		return []byte(inline[0]), nil
	case file != "" && file != "-":
		data, err := os.ReadFile(file)
		if err != nil {
			return nil, fmt.Errorf("read input: %w", err)
		}
		return data, nil
	}
	data, err := io.ReadAll(cmd.InOrStdin())
	if err != nil {
		return nil, fmt.Errorf("read stdin: %w", err)
	}
	return data, nil
}

func writeBinary(w io.Writer, format string, data []byte) error {
	var err error
	switch format {
	case formatHex:
		_, err = fmt.Fprintln(w, hex.EncodeToString(data))
	case formatBase64:
		_, err = fmt.Fprintln(w, base64.StdEncoding.EncodeToString(data))
	case formatRaw:
		_, err = w.Write(data)
	default:
		return fmt.Errorf("unknown format %q", format)
	}
	return err
}

func readBinary(format string, data []byte) ([]byte, error) {
	switch format {
	case formatHex:
		out, err := hex.DecodeString(strings.TrimSpace(string(data)))
		if err != nil {
			return nil, fmt.Errorf("hex input: %w", err)
		}
		return out, nil
	case formatBase64:
		out, err := base64.StdEncoding.DecodeString(strings.TrimSpace(string(data)))
		if err != nil {
			return nil, fmt.Errorf("base64 input: %w", err)
		}
		return out, nil
	case formatRaw:
		return bytes.Clone(data), nil
	}
	return nil, fmt.Errorf("unknown format %q", format)
}
