package serde

import (
	"reflect"
	"testing"
)

func TestSplitHeader(t *testing.T) {
	tests := []struct {
		name  string
		value string
		want  []string
	}{
		{"empty", "", nil},
		{"single", "a", []string{"a"}},
		{"spaces trimmed", "a, b ,c", []string{"a", "b", "c"}},
		{"quoted comma", `"a,b", c`, []string{"a,b", "c"}},
		{"escaped quote", `"say \"hi\"", x`, []string{`say "hi"`, "x"}},
		{"escaped backslash", `"a\\b"`, []string{`a\b`}},
		{"empty entries kept", "a,,b", []string{"a", "", "b"}},
		{"quoted whitespace kept", `" a "`, []string{" a "}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := SplitHeader(tt.value)
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("SplitHeader(%q) = %q, want %q", tt.value, got, tt.want)
			}
		})
	}
}

func TestQuoteHeader(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"plain", "plain"},
		{"a,b", `"a,b"`},
		{`say "hi"`, `"say \"hi\""`},
		{" padded", `" padded"`},
	}

	for _, tt := range tests {
		if got := QuoteHeader(tt.in); got != tt.want {
			t.Errorf("QuoteHeader(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestQuoteSplitRoundTrip(t *testing.T) {
	parts := []string{"a,b", `q"uote`, "plain", `back\slash`}
	joined := ""
	for i, p := range parts {
		if i > 0 {
			joined += ", "
		}
		joined += QuoteHeader(p)
	}
	if got := SplitHeader(joined); !reflect.DeepEqual(got, parts) {
		t.Errorf("SplitHeader(%q) = %q, want %q", joined, got, parts)
	}
}
