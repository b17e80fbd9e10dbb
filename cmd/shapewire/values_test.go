package main

import (
	"bytes"
	"context"
	"io"
	"iter"
	"math/big"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/artpar/shapewire/core/schema"
)

func TestFromJSON(t *testing.T) {
	blob := []byte("hi")
	when := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)

	tests := []struct {
		name string
		ref  schema.Ref
		in   string
		want any
	}{
		{"integer", schema.Numeric, `7`, int64(7)},
		{"float", schema.Numeric, `1.5`, 1.5},
		{"numeric string", schema.Numeric, `"8"`, int64(8)},
		{"boolean", schema.Boolean, `true`, true},
		{"string", schema.String, `"x"`, "x"},
		{"blob", schema.Blob, `"aGk="`, blob},
		{"date-time", schema.Timestamp, `"2024-01-02T03:04:05Z"`, when},
		{"epoch", schema.Timestamp, `1704164645`, when},
		{"big integer", schema.BigInteger, `123456789012345678901234567890`, mustBigInt("123456789012345678901234567890")},
		{"list", schema.ListModifier | schema.Numeric, `[1, 2]`, []any{int64(1), int64(2)}},
		{"map", schema.MapModifier | schema.Boolean, `{"a": false}`, map[string]any{"a": false}},
		{"document", schema.Document, `{"n": 1, "f": 0.5, "l": [2]}`, map[string]any{"n": int64(1), "f": 0.5, "l": []any{int64(2)}}},
		{"null", schema.String, `null`, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			raw, err := decodeJSON([]byte(tt.in))
			require.NoError(t, err)
			got, err := fromJSON(schema.Of(tt.ref), raw)
			require.NoError(t, err)
			if b, ok := tt.want.(*big.Int); ok {
				gotInt, ok := got.(*big.Int)
				require.True(t, ok, "got %T", got)
				assert.Zero(t, b.Cmp(gotInt))
				return
			}
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestFromJSONStructure(t *testing.T) {
	s := schema.NewStructure("test.cli", "Item", schema.Traits{},
		schema.M("id", schema.String),
		schema.M("count", schema.Numeric),
	)
	raw, err := decodeJSON([]byte(`{"id":"a","count":2,"extra":{"k":3}}`))
	require.NoError(t, err)

	got, err := fromJSON(schema.Of(s), raw)
	require.NoError(t, err)
	assert.Equal(t, map[string]any{
		"id":    "a",
		"count": int64(2),
		"extra": map[string]any{"k": int64(3)},
	}, got)

	raw, _ = decodeJSON([]byte(`{"count":[1]}`))
	_, err = fromJSON(schema.Of(s), raw)
	assert.ErrorContains(t, err, "count")
}

func TestRenderable(t *testing.T) {
	var events iter.Seq2[map[string]any, error] = func(yield func(map[string]any, error) bool) {
		if !yield(map[string]any{"created": map[string]any{"key": "a"}}, nil) {
			return
		}
		yield(map[string]any{"deleted": map[string]any{"key": "a"}}, nil)
	}

	v := map[string]any{
		"body":   io.NopCloser(bytes.NewReader([]byte("data"))),
		"events": events,
		"list":   []any{"x"},
	}
	got, err := renderable(context.Background(), v)
	require.NoError(t, err)
	assert.Equal(t, map[string]any{
		"body": []byte("data"),
		"events": []any{
			map[string]any{"created": map[string]any{"key": "a"}},
			map[string]any{"deleted": map[string]any{"key": "a"}},
		},
		"list": []any{"x"},
	}, got)
}

func TestBinaryForms(t *testing.T) {
	data := []byte{0xa1, 0x61, 0x61, 0x01}
	for _, format := range []string{formatHex, formatBase64, formatRaw} {
		var buf bytes.Buffer
		require.NoError(t, writeBinary(&buf, format, data))
		got, err := readBinary(format, buf.Bytes())
		require.NoError(t, err)
		assert.Equal(t, data, got, format)
	}
}

func mustBigInt(s string) *big.Int {
	b, _ := new(big.Int).SetString(s, 10)
	return b
}
