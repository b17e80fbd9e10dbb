package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"iter"
	"strconv"

	"github.com/artpar/shapewire/core/schema"
	"github.com/artpar/shapewire/core/serde"
)

// scalars types JSON leaves; every timestamp format is accepted.
var scalars = &serde.StringDeserializer{}

// decodeJSON parses data with numbers preserved for re-typing.
func decodeJSON(data []byte) (any, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return nil, fmt.Errorf("parse json: %w", err)
	}
	return v, nil
}

// fromJSON re-types a decoded JSON tree against n. Blobs are base64
// strings, timestamps strings or epoch seconds, big numbers JSON numbers.
func fromJSON(n *schema.Normalized, v any) (any, error) {
	if v == nil {
		return nil, nil
	}

	switch {
	case n.IsStructSchema():
		m, ok := v.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("%s: expected object, got %s", n.Name(), jsonKind(v))
		}
		out := make(map[string]any, len(m))
		for k, item := range m {
			member, known := n.MemberSchema(k)
			if !known {
				member = schema.Of(schema.Document)
			}
			c, err := fromJSON(member, item)
			if err != nil {
				return nil, fmt.Errorf("%s: %w", k, err)
			}
			out[k] = c
		}
		return out, nil

	case n.IsMapSchema():
		m, ok := v.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("%s: expected object, got %s", n.Name(), jsonKind(v))
		}
		value, err := n.ValueSchema()
		if err != nil {
			return nil, err
		}
		out := make(map[string]any, len(m))
		for k, item := range m {
			c, err := fromJSON(value, item)
			if err != nil {
				return nil, fmt.Errorf("%s: %w", k, err)
			}
			out[k] = c
		}
		return out, nil

	case n.IsListSchema():
		items, ok := v.([]any)
		if !ok {
			return nil, fmt.Errorf("%s: expected array, got %s", n.Name(), jsonKind(v))
		}
		elem, err := n.ValueSchema()
		if err != nil {
			return nil, err
		}
		out := make([]any, 0, len(items))
		for i, item := range items {
			c, err := fromJSON(elem, item)
			if err != nil {
				return nil, fmt.Errorf("[%d]: %w", i, err)
			}
			out = append(out, c)
		}
		return out, nil

	case n.IsDocumentSchema():
		return plainJSON(v), nil
	}

	switch x := v.(type) {
	case json.Number:
		return scalars.Parse(n, x.String())
	case string:
		return scalars.Parse(n, x)
	case bool:
		if n.IsBooleanSchema() || n.IsStringSchema() {
			return scalars.Parse(n, strconv.FormatBool(x))
		}
	}
	return nil, fmt.Errorf("%s: unexpected %s", n.Name(), jsonKind(v))
}

// plainJSON replaces json.Number with int64 or float64.
func plainJSON(v any) any {
	switch x := v.(type) {
	case json.Number:
		if i, err := x.Int64(); err == nil {
			return i
		}
		f, _ := x.Float64()
		return f
	case map[string]any:
		for k, item := range x {
			x[k] = plainJSON(item)
		}
	case []any:
		for i, item := range x {
			x[i] = plainJSON(item)
		}
	}
	return v
}

func jsonKind(v any) string {
	switch v.(type) {
	case map[string]any:
		return "object"
	case []any:
		return "array"
	case json.Number:
		return "number"
	case string:
		return "string"
	case bool:
		return "boolean"
	}
	return fmt.Sprintf("%T", v)
}

// renderable makes a value tree JSON encodable: streams are collected
// into bytes and event streams into arrays.
func renderable(ctx context.Context, v any) (any, error) {
	switch x := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(x))
		for k, item := range x {
			r, err := renderable(ctx, item)
			if err != nil {
				return nil, fmt.Errorf("%s: %w", k, err)
			}
			out[k] = r
		}
		return out, nil
	case []any:
		out := make([]any, len(x))
		for i, item := range x {
			r, err := renderable(ctx, item)
			if err != nil {
				return nil, err
			}
			out[i] = r
		}
		return out, nil
	case iter.Seq2[map[string]any, error]:
		var events []any
		for event, err := range x {
			if err != nil {
				return nil, err
			}
			r, err := renderable(ctx, event)
			if err != nil {
				return nil, err
			}
			events = append(events, r)
		}
		return events, nil
	case io.Reader:
		return serde.CollectBody(ctx, x)
	}
	return v, nil
}
