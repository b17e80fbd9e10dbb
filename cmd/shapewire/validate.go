package main

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/artpar/shapewire/config"
	"github.com/artpar/shapewire/core/protocol"
	"github.com/artpar/shapewire/core/registry"
	"github.com/artpar/shapewire/core/schema"
)

func newValidateCmd(opts *rootOptions) *cobra.Command {
	var skipConfig bool

	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Validate configuration and operation bindings",
		Long: `Validate the configuration file and the HTTP bindings of every
registered operation.

Checks:
  - Config syntax is valid (YAML or TOML)
  - Config values are in range
  - Each operation has an http trait, one binding per member, at most one
    payload, and a label member for every URI placeholder

Examples:
  shapewire validate
  shapewire validate --config /etc/shapewire/config.toml
  shapewire validate --skip-config`,
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			marks := newMarks(out)
			var failed bool

			if !skipConfig {
				if err := validateConfig(out, marks, opts.cfgFile); err != nil {
					return err
				}
			}

			for _, ns := range registry.Namespaces() {
				r := registry.For(ns)
				for _, name := range r.Names() {
					s, _ := r.Lookup(name)
					op, ok := s.(*schema.Operation)
					if !ok {
						continue
					}
					if err := protocol.ValidateOperation(op); err != nil {
						failed = true
						fmt.Fprintf(out, "  %s %s\n", marks.cross, name)
						for _, e := range unwrapJoined(err) {
							fmt.Fprintf(out, "      %v\n", e)
						}
						continue
					}
					fmt.Fprintf(out, "  %s %s\n", marks.check, name)
				}
			}

			fmt.Fprintln(out)
			if failed {
				return fmt.Errorf("operation bindings are invalid")
			}
			fmt.Fprintln(out, "Configuration and operations are valid.")
			return nil
		},
	}

	cmd.Flags().BoolVar(&skipConfig, "skip-config", false, "only validate operation bindings")
	return cmd
}

func validateConfig(out io.Writer, marks marks, path string) error {
	fmt.Fprintf(out, "Validating %s...\n\n", path)

	if _, err := os.Stat(path); os.IsNotExist(err) {
		fmt.Fprintf(out, "  %s Config file exists (using environment)\n", marks.cross)
	} else {
		fmt.Fprintf(out, "  %s Config file exists\n", marks.check)
	}

	cfg, err := config.LoadWithFallback(path)
	if err != nil {
		fmt.Fprintf(out, "  %s Config valid\n", marks.cross)
		return fmt.Errorf("config error: %w", err)
	}
	fmt.Fprintf(out, "  %s Config valid\n", marks.check)

	endpoint := cfg.Endpoint.URL
	if endpoint == "" {
		endpoint = "(not set)"
	}
	fmt.Fprintf(out, "  %s Endpoint: %s\n", marks.check, endpoint)
	if cfg.Compression.Disabled {
		fmt.Fprintf(out, "  %s Compression: disabled\n", marks.check)
	} else {
		fmt.Fprintf(out, "  %s Compression: gzip from %d bytes\n", marks.check, cfg.Compression.MinSizeBytes)
	}
	fmt.Fprintf(out, "  %s Metrics: %v\n\n", marks.check, cfg.Metrics.Enabled)
	return nil
}

func unwrapJoined(err error) []error {
	if j, ok := err.(interface{ Unwrap() []error }); ok {
		return j.Unwrap()
	}
	return []error{err}
}

type marks struct {
	check, cross string
}

// newMarks colours the marks only on a terminal.
func newMarks(w io.Writer) marks {
	if isTerminal(w) {
		return marks{check: "\033[32m✓\033[0m", cross: "\033[31m✗\033[0m"}
	}
	return marks{check: "ok", cross: "FAIL"}
}
