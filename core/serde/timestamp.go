package serde

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/artpar/shapewire/core/schema"
)

// HTTPDate is the IMF-fixdate layout used by http-date timestamps.
const HTTPDate = "Mon, 02 Jan 2006 15:04:05 GMT"

// TimestampFormat returns the wire format for a timestamp view: the
// timestampFormat trait, then the sentinel's own format, then def.
func TimestampFormat(n *schema.Normalized, def string) string {
	if f := n.MergedTraits().TimestampFormat; f != "" {
		return f
	}
	if s, ok := n.Sentinel(); ok {
		switch s {
		case schema.TimestampDateTime:
			return schema.FormatDateTime
		case schema.TimestampHTTPDate:
			return schema.FormatHTTPDate
		case schema.TimestampEpochSeconds:
			return schema.FormatEpochSeconds
		}
	}
	return def
}

// FormatTimestamp renders t in the given format. Unknown formats render as
// date-time.
func FormatTimestamp(t time.Time, format string) string {
	t = t.UTC()
	switch format {
	case schema.FormatHTTPDate:
		return t.Format(HTTPDate)
	case schema.FormatEpochSeconds:
		sec := t.Unix()
		ms := t.Nanosecond() / int(time.Millisecond)
		if ms == 0 {
			return strconv.FormatInt(sec, 10)
		}
		return strings.TrimRight(fmt.Sprintf("%d.%03d", sec, ms), "0")
	default:
		return t.Format(time.RFC3339Nano)
	}
}

// EpochTime converts fractional epoch seconds to a UTC time.
func EpochTime(seconds float64) time.Time {
	whole, frac := math.Modf(seconds)
	return time.Unix(int64(whole), int64(math.Round(frac*1e3))*int64(time.Millisecond)).UTC()
}

var httpDateLayouts = []string{HTTPDate, time.RFC1123, time.RFC1123Z, time.RFC850, time.ANSIC}

// ParseTimestamp coerces a wire value into a time. Numbers are epoch
// seconds; strings are parsed by format, or by every known format when
// format is empty.
func ParseTimestamp(v any, format string) (time.Time, error) {
	switch x := v.(type) {
	case time.Time:
		return x, nil
	case string:
		return parseTimestampString(strings.TrimSpace(x), format)
	}
	if f, ok := toFloat(v); ok {
		return EpochTime(f), nil
	}
	return time.Time{}, fmt.Errorf("%w: %T is not a timestamp", ErrUnsupportedValue, v)
}

func parseTimestampString(s, format string) (time.Time, error) {
	switch format {
	case schema.FormatEpochSeconds:
		f, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return time.Time{}, fmt.Errorf("%w: epoch seconds %q", ErrMalformed, s)
		}
		return EpochTime(f), nil
	case schema.FormatHTTPDate:
		for _, layout := range httpDateLayouts {
			if t, err := time.Parse(layout, s); err == nil {
				return t.UTC(), nil
			}
		}
		return time.Time{}, fmt.Errorf("%w: http-date %q", ErrMalformed, s)
	case schema.FormatDateTime:
		t, err := time.Parse(time.RFC3339Nano, s)
		if err != nil {
			return time.Time{}, fmt.Errorf("%w: date-time %q", ErrMalformed, s)
		}
		return t.UTC(), nil
	}
	for _, f := range []string{schema.FormatDateTime, schema.FormatHTTPDate, schema.FormatEpochSeconds} {
		if t, err := parseTimestampString(s, f); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("%w: timestamp %q", ErrMalformed, s)
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case int:
		return float64(n), true
	case int8:
		return float64(n), true
	case int16:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint:
		return float64(n), true
	case uint8:
		return float64(n), true
	case uint16:
		return float64(n), true
	case uint32:
		return float64(n), true
	case uint64:
		return float64(n), true
	case float32:
		return float64(n), true
	case float64:
		return n, true
	}
	return 0, false
}
