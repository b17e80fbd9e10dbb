package protocol

import (
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/artpar/shapewire/core/schema"
)

// Binding is the HTTP message location of a structure member.
type Binding int

const (
	BindingUnbound Binding = iota
	BindingEventStream
	BindingStreamingBlob
	BindingPayload
	BindingLabel
	BindingHeader
	BindingQuery
	BindingPrefixHeaders
	BindingQueryParams
	BindingResponseCode
)

var bindingNames = [...]string{
	BindingUnbound:       "unbound",
	BindingEventStream:   "eventStream",
	BindingStreamingBlob: "streamingBlob",
	BindingPayload:       "payload",
	BindingLabel:         "label",
	BindingHeader:        "header",
	BindingQuery:         "query",
	BindingPrefixHeaders: "prefixHeaders",
	BindingQueryParams:   "queryParams",
	BindingResponseCode:  "responseCode",
}

func (b Binding) String() string {
	if b >= 0 && int(b) < len(bindingNames) {
		return bindingNames[b]
	}
	return fmt.Sprintf("Binding(%d)", int(b))
}

// bindingTable is evaluated top to bottom; the first match wins.
var bindingTable = []struct {
	kind  Binding
	match func(n *schema.Normalized, t schema.Traits) bool
}{
	{BindingEventStream, func(n *schema.Normalized, t schema.Traits) bool {
		return t.HTTPPayload && n.IsStreaming() && n.IsStructSchema()
	}},
	{BindingStreamingBlob, func(n *schema.Normalized, t schema.Traits) bool {
		return t.HTTPPayload && n.IsStreaming()
	}},
	{BindingPayload, func(_ *schema.Normalized, t schema.Traits) bool { return t.HTTPPayload }},
	{BindingLabel, func(_ *schema.Normalized, t schema.Traits) bool { return t.HTTPLabel }},
	{BindingHeader, func(_ *schema.Normalized, t schema.Traits) bool { return t.HTTPHeader != "" }},
	{BindingQuery, func(_ *schema.Normalized, t schema.Traits) bool { return t.HTTPQuery != "" }},
	{BindingPrefixHeaders, func(_ *schema.Normalized, t schema.Traits) bool { return t.HTTPPrefixHeaders != "" }},
	{BindingQueryParams, func(_ *schema.Normalized, t schema.Traits) bool { return t.HTTPQueryParams }},
	{BindingResponseCode, func(_ *schema.Normalized, t schema.Traits) bool { return t.HTTPResponseCode }},
}

// Classify returns the binding of a member view from its merged traits.
func Classify(member *schema.Normalized) Binding {
	t := member.MergedTraits()
	for _, row := range bindingTable {
		if row.match(member, t) {
			return row.kind
		}
	}
	return BindingUnbound
}

// bindingTraits lists the binding traits set on t, by trait name.
func bindingTraits(t schema.Traits) []string {
	var out []string
	if t.HTTPPayload {
		out = append(out, "httpPayload")
	}
	if t.HTTPLabel {
		out = append(out, "httpLabel")
	}
	if t.HTTPHeader != "" {
		out = append(out, "httpHeader")
	}
	if t.HTTPQuery != "" {
		out = append(out, "httpQuery")
	}
	if t.HTTPPrefixHeaders != "" {
		out = append(out, "httpPrefixHeaders")
	}
	if t.HTTPQueryParams {
		out = append(out, "httpQueryParams")
	}
	if t.HTTPResponseCode {
		out = append(out, "httpResponseCode")
	}
	return out
}

// ErrInvalidOperation wraps every definition problem reported by
// ValidateOperation.
var ErrInvalidOperation = errors.New("protocol: invalid operation")

var placeholderRE = regexp.MustCompile(`\{([^{}+]+)(\+?)\}`)

// ValidateOperation reports binding problems in an operation definition:
// members with more than one binding trait, more than one payload member,
// a payload member next to unbound members, labels with no placeholder
// (and placeholders with no label), and map bindings on non-map members.
func ValidateOperation(op *schema.Operation) error {
	var errs []error
	add := func(format string, args ...any) {
		errs = append(errs, fmt.Errorf("%w: %s: %s", ErrInvalidOperation, op.QualifiedName(), fmt.Sprintf(format, args...)))
	}

	var uri string
	if h := op.Traits().HTTP; h != nil {
		uri, _, _ = strings.Cut(h.URI, "?")
	} else {
		add("missing http trait")
	}

	labels := make(map[string]bool)
	for _, side := range []struct {
		name  string
		ref   schema.Ref
		input bool
	}{{"input", op.Input, true}, {"output", op.Output, false}} {
		ns := schema.Of(side.ref)
		seq, err := ns.StructIterator()
		if err != nil {
			add("%s is not a structure", side.name)
			continue
		}

		var payloads, unbound []string
		for name, member := range seq {
			t := member.MergedTraits()
			if bt := bindingTraits(t); len(bt) > 1 {
				add("%s member %q has more than one binding: %s", side.name, name, strings.Join(bt, ", "))
			}
			kind := Classify(member)
			if !appliesTo(kind, side.input) {
				kind = BindingUnbound
			}
			switch kind {
			case BindingPayload, BindingStreamingBlob, BindingEventStream:
				payloads = append(payloads, name)
			case BindingUnbound:
				unbound = append(unbound, name)
			case BindingLabel:
				labels[name] = true
			case BindingPrefixHeaders, BindingQueryParams:
				if !member.IsMapSchema() {
					add("%s member %q is bound to %s but is not a map", side.name, name, kind)
				}
			}
		}
		if len(payloads) > 1 {
			add("%s has more than one payload member: %s", side.name, strings.Join(payloads, ", "))
		}
		if len(payloads) == 1 && len(unbound) > 0 {
			add("%s payload member %q coexists with unbound members: %s", side.name, payloads[0], strings.Join(unbound, ", "))
		}
	}

	placeholders := make(map[string]bool)
	for _, m := range placeholderRE.FindAllStringSubmatch(uri, -1) {
		placeholders[m[1]] = true
	}
	for name := range labels {
		if !placeholders[name] {
			add("label %q has no {%s} placeholder in %q", name, name, uri)
		}
	}
	for name := range placeholders {
		if !labels[name] {
			add("placeholder {%s} has no label member", name)
		}
	}
	return errors.Join(errs...)
}

// appliesTo reports whether a binding is honoured on the given side. Labels
// and query bindings only exist on requests; the status code only on
// responses.
func appliesTo(b Binding, input bool) bool {
	switch b {
	case BindingLabel, BindingQuery, BindingQueryParams:
		return input
	case BindingResponseCode:
		return !input
	}
	return true
}
