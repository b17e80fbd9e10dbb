package cbor

import (
	"fmt"
	"io"
	"math"
	"math/big"
	"strconv"
	"strings"
	"time"

	fxcbor "github.com/fxamacker/cbor/v2"

	"github.com/artpar/shapewire/core/schema"
	"github.com/artpar/shapewire/core/serde"
)

// copyValue prepares v for encoding against n.
func copyValue(n *schema.Normalized, v any) (any, error) {
	if serde.IsNull(v) {
		return nil, nil
	}
	switch x := v.(type) {
	case time.Time:
		return x.UTC(), nil
	case []byte:
		return x, nil
	case *big.Float:
		return decimalFraction(x), nil
	case *big.Int, big.Int:
		return x, nil
	case io.Reader:
		return nil, fmt.Errorf("%w: streams cannot be encoded as cbor", serde.ErrUnsupportedValue)
	}

	sparse := n.MergedTraits().Sparse
	switch {
	case n.IsStructSchema():
		m, ok := serde.AsMap(v)
		if !ok {
			return v, nil
		}
		out := make(map[string]any, len(m))
		for k, item := range m {
			member, known := n.MemberSchema(k)
			if !known {
				member = schema.Of(schema.Document)
			}
			if err := put(out, k, member, item, sparse); err != nil {
				return nil, err
			}
		}
		return out, nil

	case n.IsMapSchema():
		m, ok := serde.AsMap(v)
		if !ok {
			return v, nil
		}
		value, err := n.ValueSchema()
		if err != nil {
			return nil, err
		}
		out := make(map[string]any, len(m))
		for k, item := range m {
			if err := put(out, k, value, item, sparse); err != nil {
				return nil, err
			}
		}
		return out, nil

	case n.IsListSchema():
		items, ok := serde.AsList(v)
		if !ok {
			return v, nil
		}
		elem, err := n.ValueSchema()
		if err != nil {
			return nil, err
		}
		out := make([]any, 0, len(items))
		for _, item := range items {
			c, err := copyValue(elem, item)
			if err != nil {
				return nil, err
			}
			if c == nil && !sparse {
				continue
			}
			out = append(out, c)
		}
		return out, nil

	case n.IsDocumentSchema():
		return copyDocument(v), nil
	}
	return v, nil
}

func put(out map[string]any, key string, n *schema.Normalized, v any, sparse bool) error {
	c, err := copyValue(n, v)
	if err != nil {
		return err
	}
	if c == nil && !sparse {
		return nil
	}
	out[key] = c
	return nil
}

// copyDocument walks an untyped tree so that nested timestamps and
// decimals get their native form. Documents keep their nulls.
func copyDocument(v any) any {
	switch x := v.(type) {
	case time.Time:
		return x.UTC()
	case *big.Float:
		return decimalFraction(x)
	case []byte:
		return x
	}
	if m, ok := serde.AsMap(v); ok {
		out := make(map[string]any, len(m))
		for k, item := range m {
			out[k] = copyDocument(item)
		}
		return out
	}
	if items, ok := serde.AsList(v); ok {
		out := make([]any, len(items))
		for i, item := range items {
			out[i] = copyDocument(item)
		}
		return out
	}
	return v
}

// decimalFraction renders f as tag 4 [exponent, mantissa].
func decimalFraction(f *big.Float) fxcbor.Tag {
	text := f.Text('e', -1) // d.ddddde±x
	mantissa, expPart, _ := strings.Cut(text, "e")
	exp, _ := strconv.Atoi(expPart)

	intPart, fracPart, _ := strings.Cut(mantissa, ".")
	digits := intPart + fracPart
	exp -= len(fracPart)

	m, _ := new(big.Int).SetString(digits, 10)
	return fxcbor.Tag{Number: tagDecimalFraction, Content: []any{int64(exp), m}}
}

// retype shapes a decoded tree against n.
func retype(n *schema.Normalized, v any) (any, error) {
	if v == nil {
		return nil, nil
	}

	switch {
	case n.IsTimestampSchema():
		switch x := v.(type) {
		case time.Time:
			return x.UTC(), nil
		case string:
			return serde.ParseTimestamp(x, serde.TimestampFormat(n, schema.FormatDateTime))
		}
		if t, err := serde.ParseTimestamp(v, ""); err == nil {
			return t, nil
		}
		return v, nil

	case n.IsBlobSchema():
		return v, nil

	case n.IsBigIntegerSchema():
		return toBigInt(v), nil

	case n.IsBigDecimalSchema():
		return toBigFloat(v), nil

	case n.IsListSchema():
		items, ok := v.([]any)
		if !ok {
			return generic(v), nil
		}
		elem, err := n.ValueSchema()
		if err != nil {
			return nil, err
		}
		sparse := n.MergedTraits().Sparse
		out := make([]any, 0, len(items))
		for _, item := range items {
			r, err := retype(elem, item)
			if err != nil {
				return nil, err
			}
			if r == nil && !sparse {
				continue
			}
			out = append(out, r)
		}
		return out, nil

	case n.IsMapSchema():
		m, ok := v.(map[string]any)
		if !ok {
			return generic(v), nil
		}
		value, err := n.ValueSchema()
		if err != nil {
			return nil, err
		}
		return retypeEntries(m, func(string) *schema.Normalized { return value }, n.MergedTraits().Sparse)

	case n.IsStructSchema():
		m, ok := v.(map[string]any)
		if !ok {
			return generic(v), nil
		}
		return retypeEntries(m, func(k string) *schema.Normalized {
			if member, ok := n.MemberSchema(k); ok {
				return member
			}
			return nil
		}, n.MergedTraits().Sparse)
	}
	return generic(v), nil
}

func retypeEntries(m map[string]any, schemaFor func(string) *schema.Normalized, sparse bool) (map[string]any, error) {
	out := make(map[string]any, len(m))
	for k, item := range m {
		var (
			r   any
			err error
		)
		if s := schemaFor(k); s != nil {
			r, err = retype(s, item)
		} else {
			r = generic(item)
		}
		if err != nil {
			return nil, err
		}
		if r == nil && !sparse {
			continue
		}
		out[k] = r
	}
	return out, nil
}

// generic normalizes values decoded without a governing schema.
func generic(v any) any {
	switch x := v.(type) {
	case uint64:
		if x <= math.MaxInt64 {
			return int64(x)
		}
		return x
	case big.Int:
		return &x
	case fxcbor.Tag:
		if x.Number == tagDecimalFraction {
			if f, ok := fromDecimalFraction(x); ok {
				return f
			}
		}
		return x
	case []any:
		out := make([]any, len(x))
		for i, item := range x {
			out[i] = generic(item)
		}
		return out
	case map[string]any:
		out := make(map[string]any, len(x))
		for k, item := range x {
			out[k] = generic(item)
		}
		return out
	}
	return v
}

func toBigInt(v any) any {
	switch x := v.(type) {
	case *big.Int:
		return x
	case big.Int:
		return &x
	case int64:
		return big.NewInt(x)
	case uint64:
		return new(big.Int).SetUint64(x)
	case float64:
		i, _ := big.NewFloat(x).Int(nil)
		return i
	case string:
		if i, ok := new(big.Int).SetString(x, 10); ok {
			return i
		}
	}
	return generic(v)
}

func toBigFloat(v any) any {
	switch x := v.(type) {
	case fxcbor.Tag:
		if f, ok := fromDecimalFraction(x); ok {
			return f
		}
	case float64:
		return big.NewFloat(x)
	case int64:
		return new(big.Float).SetInt64(x)
	case uint64:
		return new(big.Float).SetUint64(x)
	case *big.Int:
		return new(big.Float).SetInt(x)
	case string:
		if f, ok := new(big.Float).SetString(x); ok {
			return f
		}
	}
	return generic(v)
}

func fromDecimalFraction(tag fxcbor.Tag) (*big.Float, bool) {
	if tag.Number != tagDecimalFraction {
		return nil, false
	}
	parts, ok := tag.Content.([]any)
	if !ok || len(parts) != 2 {
		return nil, false
	}
	exp, ok := toInt64(parts[0])
	if !ok {
		return nil, false
	}
	var mantissa string
	switch m := parts[1].(type) {
	case *big.Int:
		mantissa = m.String()
	case big.Int:
		mantissa = m.String()
	default:
		i, ok := toInt64(m)
		if !ok {
			return nil, false
		}
		mantissa = strconv.FormatInt(i, 10)
	}
	f, ok := new(big.Float).SetString(mantissa + "e" + strconv.FormatInt(exp, 10))
	return f, ok
}

func toInt64(v any) (int64, bool) {
	switch x := v.(type) {
	case int64:
		return x, true
	case uint64:
		if x <= math.MaxInt64 {
			return int64(x), true
		}
	}
	return 0, false
}
