package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/artpar/shapewire/core/example"
	"github.com/artpar/shapewire/core/formatter"
	"github.com/artpar/shapewire/core/framework"
	"github.com/artpar/shapewire/core/schema"
)

const defaultNamespace = example.Namespace

// rootOptions holds the global flags.
type rootOptions struct {
	cfgFile       string
	namespace     string
	outputFormat  string
	showSensitive bool
}

// print writes v, shaped by n, in the selected output format.
func (o *rootOptions) print(w io.Writer, n *schema.Normalized, v any) error {
	f, ok := formatter.Get(o.outputFormat)
	if !ok {
		return fmt.Errorf("unknown output format %q, want one of %s", o.outputFormat, strings.Join(formatter.List(), ", "))
	}
	return f.Format(w, n, v, formatter.FormatOptions{ShowSensitive: o.showSensitive})
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}

	cmd := &cobra.Command{
		Use:   "shapewire",
		Short: "Schema-driven HTTP binding client",
		Long: `shapewire serializes operation inputs onto HTTP requests and
responses back onto outputs, driven by registered shape schemas.

Quick start:
  shapewire shapes                         # List registered shapes
  shapewire encode ObjectSummary '{...}'   # JSON to CBOR against a shape
  shapewire decode ObjectSummary < in.hex  # CBOR to JSON
  shapewire invoke GetObject '{...}'       # Call an operation
  shapewire validate                       # Check config and operations`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if err := framework.Register(); err != nil {
				return fmt.Errorf("register framework shapes: %w", err)
			}
			if err := example.Register(); err != nil {
				return fmt.Errorf("register example shapes: %w", err)
			}
			return nil
		},
	}

	cmd.PersistentFlags().StringVarP(&opts.cfgFile, "config", "c", "shapewire.yaml", "config file path")
	cmd.PersistentFlags().StringVarP(&opts.namespace, "namespace", "n", defaultNamespace, "namespace for unqualified shape names")
	cmd.PersistentFlags().StringVarP(&opts.outputFormat, "output-format", "o", "json", "output format: "+strings.Join(formatter.List(), ", "))
	cmd.PersistentFlags().BoolVar(&opts.showSensitive, "show-sensitive", false, "print sensitive members instead of redacting them")

	cmd.AddCommand(
		newShapesCmd(opts),
		newEncodeCmd(opts),
		newDecodeCmd(opts),
		newInvokeCmd(opts),
		newValidateCmd(opts),
		newVersionCmd(),
	)
	return cmd
}

// Execute runs the root command and exits non-zero on failure.
func Execute() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
