package formatter

import (
	"encoding/json"
	"fmt"
	"io"
	"math/big"
	"sort"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/artpar/shapewire/core/schema"
)

// TableFormatter formats output as aligned text. A structure renders as
// member/value pairs, a list of structures as rows.
type TableFormatter struct{}

// NewTableFormatter creates a new table formatter.
func NewTableFormatter() *TableFormatter {
	return &TableFormatter{}
}

func (f *TableFormatter) Name() string        { return "table" }
func (f *TableFormatter) Description() string { return "Aligned text table output" }

// Format writes v as a table.
func (f *TableFormatter) Format(w io.Writer, n *schema.Normalized, v any, opts FormatOptions) error {
	switch x := Prepare(n, v, opts).(type) {
	case map[string]any:
		return f.formatRecord(w, x, opts)
	case []any:
		return f.formatList(w, x, opts)
	case nil:
		fmt.Fprintln(w, "No value.")
		return nil
	default:
		fmt.Fprintln(w, f.formatValue(x, opts.MaxWidth))
		return nil
	}
}

// FormatError formats an error message.
func (f *TableFormatter) FormatError(w io.Writer, err error) error {
	fmt.Fprintf(w, "Error: %s\n", err.Error())
	return nil
}

func (f *TableFormatter) formatRecord(w io.Writer, record map[string]any, opts FormatOptions) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	for _, key := range sortedKeys(record) {
		fmt.Fprintf(tw, "%s:\t%s\n", key, f.formatValue(record[key], opts.MaxWidth))
	}
	return tw.Flush()
}

func (f *TableFormatter) formatList(w io.Writer, items []any, opts FormatOptions) error {
	if len(items) == 0 {
		fmt.Fprintln(w, "No items.")
		return nil
	}

	columns := f.resolveColumns(items)
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)

	if len(columns) == 0 {
		for _, item := range items {
			fmt.Fprintln(tw, f.formatValue(item, opts.MaxWidth))
		}
		return tw.Flush()
	}

	if !opts.NoHeader {
		headers := make([]string, len(columns))
		for i, col := range columns {
			headers[i] = strings.ToUpper(col)
		}
		fmt.Fprintln(tw, strings.Join(headers, "\t"))
	}
	for _, item := range items {
		record, _ := item.(map[string]any)
		values := make([]string, len(columns))
		for i, col := range columns {
			values[i] = f.formatValue(record[col], opts.MaxWidth)
		}
		fmt.Fprintln(tw, strings.Join(values, "\t"))
	}
	return tw.Flush()
}

// resolveColumns is the sorted union of keys when every item is a record.
func (f *TableFormatter) resolveColumns(items []any) []string {
	seen := make(map[string]any)
	for _, item := range items {
		record, ok := item.(map[string]any)
		if !ok {
			return nil
		}
		for k := range record {
			seen[k] = nil
		}
	}
	return sortedKeys(seen)
}

// formatValue formats a value for display.
func (f *TableFormatter) formatValue(val any, maxWidth int) string {
	if val == nil {
		return "-"
	}

	var str string
	switch v := val.(type) {
	case string:
		str = v
	case bool:
		if v {
			str = "yes"
		} else {
			str = "no"
		}
	case int64:
		str = fmt.Sprintf("%d", v)
	case float64:
		// Check if it's a whole number
		if v == float64(int64(v)) {
			str = fmt.Sprintf("%d", int64(v))
		} else {
			str = fmt.Sprintf("%.2f", v)
		}
	case time.Time:
		str = v.Format(time.RFC3339)
	case *big.Int:
		str = v.String()
	case *big.Float:
		str = v.Text('g', -1)
	default:
		b, _ := json.Marshal(v)
		str = string(b)
	}

	// Truncate if needed
	if maxWidth > 3 && len(str) > maxWidth {
		str = str[:maxWidth-3] + "..."
	}

	return str
}

func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func init() {
	Register(NewTableFormatter())
}
