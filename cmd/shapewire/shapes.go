package main

import (
	"fmt"
	"io"
	"sort"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/artpar/shapewire/core/protocol"
	"github.com/artpar/shapewire/core/registry"
	"github.com/artpar/shapewire/core/schema"
)

func newShapesCmd(opts *rootOptions) *cobra.Command {
	var all bool

	cmd := &cobra.Command{
		Use:   "shapes [shape]",
		Short: "List registered shapes or describe one",
		Long: `List the shapes of a namespace, or describe the members of one shape.

Examples:
  shapewire shapes
  shapewire shapes --all
  shapewire shapes PutObject
  shapewire shapes smithy.framework#ValidationException`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 1 {
				s, err := lookupShape(opts.namespace, args[0])
				if err != nil {
					return err
				}
				return describeShape(cmd.OutOrStdout(), s)
			}
			namespaces := []string{opts.namespace}
			if all {
				namespaces = registry.Namespaces()
			}
			return listShapes(cmd.OutOrStdout(), namespaces)
		},
	}

	cmd.Flags().BoolVarP(&all, "all", "a", false, "list every namespace")
	return cmd
}

func listShapes(out io.Writer, namespaces []string) error {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "NAME\tKIND\tDETAIL")
	fmt.Fprintln(w, "----\t----\t------")

	for _, ns := range namespaces {
		r := registry.For(ns)
		for _, name := range r.Names() {
			s, ok := r.Lookup(name)
			if !ok {
				continue
			}
			kind, detail := shapeKind(s)
			fmt.Fprintf(w, "%s\t%s\t%s\n", name, kind, detail)
		}
	}
	return w.Flush()
}

func shapeKind(s schema.Shape) (kind, detail string) {
	switch x := s.(type) {
	case *schema.Operation:
		if h := x.Traits().HTTP; h != nil {
			return "operation", fmt.Sprintf("%s %s", h.Method, h.URI)
		}
		return "operation", ""
	case *schema.Error:
		return "error", x.Fault()
	case *schema.Structure:
		if x.Traits().Streaming {
			return "structure", fmt.Sprintf("%d members, event stream", len(x.Members()))
		}
		return "structure", fmt.Sprintf("%d members", len(x.Members()))
	case *schema.List:
		return "list", targetName(schema.Of(x).ValueSchema())
	case *schema.Map:
		return "map", targetName(schema.Of(x).ValueSchema())
	case *schema.Simple:
		sentinel, _ := schema.Of(x).Sentinel()
		return "simple", sentinel.String()
	}
	return fmt.Sprintf("%T", s), ""
}

func targetName(n *schema.Normalized, err error) string {
	if err != nil {
		return ""
	}
	if s := n.Shape(); s != nil {
		return s.QualifiedName()
	}
	sentinel, _ := n.Sentinel()
	return sentinel.String()
}

func describeShape(out io.Writer, s schema.Shape) error {
	kind, detail := shapeKind(s)
	fmt.Fprintf(out, "%s (%s) %s\n", s.QualifiedName(), kind, detail)

	if op, ok := s.(*schema.Operation); ok {
		for _, side := range []struct {
			label string
			ref   schema.Ref
			input bool
		}{{"input", op.Input, true}, {"output", op.Output, false}} {
			fmt.Fprintf(out, "\n%s: %s\n", side.label, schema.Of(side.ref).QualifiedName())
			if err := describeMembers(out, schema.Of(side.ref), true); err != nil {
				return err
			}
		}
		return nil
	}

	n := schema.Of(s)
	if !n.IsStructSchema() {
		return nil
	}
	fmt.Fprintln(out)
	return describeMembers(out, n, false)
}

func describeMembers(out io.Writer, n *schema.Normalized, bindings bool) error {
	seq, err := n.StructIterator()
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	if bindings {
		fmt.Fprintln(w, "MEMBER\tTARGET\tBINDING\tTRAITS")
	} else {
		fmt.Fprintln(w, "MEMBER\tTARGET\tTRAITS")
	}
	for name, member := range seq {
		traits, _ := member.MemberTraits()
		t := formatTraits(traits.Map())
		target := targetName(member, nil)
		if bindings {
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", name, target, protocol.Classify(member), t)
		} else {
			fmt.Fprintf(w, "%s\t%s\t%s\n", name, target, t)
		}
	}
	return w.Flush()
}

func formatTraits(traits map[string]any) string {
	keys := make([]string, 0, len(traits))
	for k := range traits {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		if b, ok := traits[k].(bool); ok && b {
			parts = append(parts, k)
			continue
		}
		parts = append(parts, fmt.Sprintf("%s=%v", k, traits[k]))
	}
	return strings.Join(parts, " ")
}
