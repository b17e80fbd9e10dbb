package serde

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"math"
	"math/big"
	"strconv"
	"strings"

	"github.com/artpar/shapewire/core/registry"
	"github.com/artpar/shapewire/core/schema"
)

// StringDeserializer types string wire values (headers, labels, query
// values) by their schema. It implements ShapeDeserializer.
type StringDeserializer struct {
	// DefaultTimestampFormat applies when neither trait nor sentinel names
	// a format. An empty value accepts any known format.
	DefaultTimestampFormat string
}

// NewHeaderDeserializer returns a StringDeserializer for header values.
func NewHeaderDeserializer() *StringDeserializer {
	return &StringDeserializer{DefaultTimestampFormat: schema.FormatHTTPDate}
}

// Read parses data against ref.
func (d *StringDeserializer) Read(ref schema.Ref, data []byte) (any, error) {
	return d.Parse(ref, string(data))
}

// Parse types s against ref.
func (d *StringDeserializer) Parse(ref schema.Ref, s string) (any, error) {
	n := schema.Of(ref)
	switch {
	case n.IsListSchema():
		return d.parseList(n, s)
	case n.IsTimestampSchema():
		return ParseTimestamp(s, TimestampFormat(n, d.DefaultTimestampFormat))
	case n.IsBooleanSchema():
		return parseBool(s)
	case n.IsNumericSchema():
		return ParseNumber(s)
	case n.IsBigIntegerSchema():
		return parseBigInt(s)
	case n.IsBigDecimalSchema():
		return parseBigFloat(s)
	case n.IsBlobSchema():
		b, err := base64.StdEncoding.DecodeString(s)
		if err != nil {
			return nil, fmt.Errorf("%w: base64: %v", ErrMalformed, err)
		}
		return b, nil
	case n.IsDocumentSchema():
		var v any
		if err := json.Unmarshal([]byte(s), &v); err != nil {
			return s, nil
		}
		return v, nil
	case n.IsStringSchema():
		return parseHinted(n, s)
	}
	return s, nil
}

func (d *StringDeserializer) parseList(n *schema.Normalized, s string) (any, error) {
	elem, err := n.ValueSchema()
	if err != nil {
		return nil, err
	}
	var parts []string
	if elem.IsTimestampSchema() && TimestampFormat(elem, d.DefaultTimestampFormat) == schema.FormatHTTPDate {
		parts = splitEvery(s, 2)
	} else {
		parts = SplitHeader(s)
	}
	out := make([]any, 0, len(parts))
	for _, p := range parts {
		v, err := d.Parse(elem, p)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, nil
}

// splitEvery splits on every nth comma. http-date values contain one
// comma each, so a list of them is split on every second comma.
func splitEvery(s string, n int) []string {
	segments := strings.Split(s, ",")
	var out []string
	for i := 0; i < len(segments); i += n {
		end := min(i+n, len(segments))
		out = append(out, strings.TrimSpace(strings.Join(segments[i:end], ",")))
	}
	return out
}

// parseHinted applies a registry simple type hint to a string-shaped value.
func parseHinted(n *schema.Normalized, s string) (any, error) {
	shape := n.Shape()
	if shape == nil {
		return s, nil
	}
	r, ok := registry.Of(shape)
	if !ok {
		return s, nil
	}
	switch r.SimpleType(shape.QualifiedName()) {
	case registry.SimpleBoolean:
		return parseBool(s)
	case registry.SimpleNumber:
		return ParseNumber(s)
	case registry.SimpleBigInt:
		return parseBigInt(s)
	case registry.SimpleBigDecimal:
		return parseBigFloat(s)
	}
	return s, nil
}

func parseBool(s string) (bool, error) {
	switch strings.TrimSpace(s) {
	case "true":
		return true, nil
	case "false":
		return false, nil
	}
	return false, fmt.Errorf("%w: boolean %q", ErrMalformed, s)
}

// ParseNumber returns an int64 when s is an integer and a float64
// otherwise. NaN and the infinities are accepted by name.
func ParseNumber(s string) (any, error) {
	s = strings.TrimSpace(s)
	switch s {
	case "NaN":
		return math.NaN(), nil
	case "Infinity":
		return math.Inf(1), nil
	case "-Infinity":
		return math.Inf(-1), nil
	}
	if i, err := strconv.ParseInt(s, 10, 64); err == nil {
		return i, nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return nil, fmt.Errorf("%w: number %q", ErrMalformed, s)
	}
	return f, nil
}

func parseBigInt(s string) (*big.Int, error) {
	i, ok := new(big.Int).SetString(strings.TrimSpace(s), 10)
	if !ok {
		return nil, fmt.Errorf("%w: big integer %q", ErrMalformed, s)
	}
	return i, nil
}

func parseBigFloat(s string) (*big.Float, error) {
	f, ok := new(big.Float).SetString(strings.TrimSpace(s))
	if !ok {
		return nil, fmt.Errorf("%w: big decimal %q", ErrMalformed, s)
	}
	return f, nil
}
