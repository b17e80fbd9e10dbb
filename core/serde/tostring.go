package serde

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"math/big"
	"strconv"
	"strings"
	"time"

	"github.com/artpar/shapewire/core/schema"
)

// StringSerializer renders values bound to labels, headers and query
// strings. It implements ShapeSerializer.
type StringSerializer struct {
	// DefaultTimestampFormat applies when neither trait nor sentinel names
	// a format. Headers use http-date; everything else date-time.
	DefaultTimestampFormat string

	pending string
}

// NewHeaderSerializer returns a StringSerializer for header values.
func NewHeaderSerializer() *StringSerializer {
	return &StringSerializer{DefaultTimestampFormat: schema.FormatHTTPDate}
}

// NewStringSerializer returns a StringSerializer for labels and queries.
func NewStringSerializer() *StringSerializer {
	return &StringSerializer{DefaultTimestampFormat: schema.FormatDateTime}
}

// Write renders v and holds the result until Flush.
func (s *StringSerializer) Write(ref schema.Ref, v any) error {
	out, err := s.Format(ref, v)
	if err != nil {
		return err
	}
	s.pending = out
	return nil
}

// Flush returns the pending string and clears it.
func (s *StringSerializer) Flush() ([]byte, error) {
	out := s.pending
	s.pending = ""
	return []byte(out), nil
}

// Format renders v against ref without touching the pending value.
func (s *StringSerializer) Format(ref schema.Ref, v any) (string, error) {
	n := schema.Of(ref)
	if n.IsTimestampSchema() {
		t, err := ParseTimestamp(v, "")
		if err != nil {
			return "", err
		}
		return FormatTimestamp(t, TimestampFormat(n, s.defaultFormat())), nil
	}
	if n.IsListSchema() {
		items, ok := AsList(v)
		if !ok {
			return "", fmt.Errorf("%w: %T for list %s", ErrUnsupportedValue, v, n.QualifiedName())
		}
		elem, err := n.ValueSchema()
		if err != nil {
			return "", err
		}
		parts := make([]string, 0, len(items))
		for _, item := range items {
			if IsNull(item) {
				continue
			}
			p, err := s.Format(elem, item)
			if err != nil {
				return "", err
			}
			if elem.IsStringSchema() {
				p = QuoteHeader(p)
			}
			parts = append(parts, p)
		}
		return strings.Join(parts, ", "), nil
	}
	if n.IsDocumentSchema() || n.IsStructSchema() || n.IsMapSchema() {
		if str, ok := v.(string); ok {
			return str, nil
		}
		b, err := json.Marshal(v)
		if err != nil {
			return "", fmt.Errorf("%w: %v", ErrUnsupportedValue, err)
		}
		return string(b), nil
	}
	return formatScalar(v)
}

func (s *StringSerializer) defaultFormat() string {
	if s.DefaultTimestampFormat == "" {
		return schema.FormatDateTime
	}
	return s.DefaultTimestampFormat
}

func formatScalar(v any) (string, error) {
	switch x := v.(type) {
	case nil:
		return "", nil
	case string:
		return x, nil
	case []byte:
		return base64.StdEncoding.EncodeToString(x), nil
	case bool:
		return strconv.FormatBool(x), nil
	case int:
		return strconv.Itoa(x), nil
	case int8:
		return strconv.FormatInt(int64(x), 10), nil
	case int16:
		return strconv.FormatInt(int64(x), 10), nil
	case int32:
		return strconv.FormatInt(int64(x), 10), nil
	case int64:
		return strconv.FormatInt(x, 10), nil
	case uint:
		return strconv.FormatUint(uint64(x), 10), nil
	case uint8:
		return strconv.FormatUint(uint64(x), 10), nil
	case uint16:
		return strconv.FormatUint(uint64(x), 10), nil
	case uint32:
		return strconv.FormatUint(uint64(x), 10), nil
	case uint64:
		return strconv.FormatUint(x, 10), nil
	case float32:
		return formatFloat(float64(x), 32), nil
	case float64:
		return formatFloat(x, 64), nil
	case *big.Int:
		return x.String(), nil
	case *big.Float:
		return x.Text('g', -1), nil
	case time.Time:
		return FormatTimestamp(x, schema.FormatDateTime), nil
	case fmt.Stringer:
		return x.String(), nil
	case io.Reader:
		return "", fmt.Errorf("%w: stream in a string binding", ErrUnsupportedValue)
	}
	return "", fmt.Errorf("%w: %T", ErrUnsupportedValue, v)
}

func formatFloat(f float64, bits int) string {
	switch {
	case math.IsNaN(f):
		return "NaN"
	case math.IsInf(f, 1):
		return "Infinity"
	case math.IsInf(f, -1):
		return "-Infinity"
	}
	return strconv.FormatFloat(f, 'g', -1, bits)
}
