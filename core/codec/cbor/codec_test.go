package cbor

import (
	"errors"
	"math/big"
	"testing"
	"time"

	fxcbor "github.com/fxamacker/cbor/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/artpar/shapewire/core/schema"
	"github.com/artpar/shapewire/core/serde"
)

func newShapes() *schema.Structure {
	tags := schema.NewList("test.cbor", "Tags", schema.Traits{}, schema.String)
	sparseTags := schema.NewList("test.cbor", "SparseTags", schema.Traits{Sparse: true}, schema.String)
	counts := schema.NewMap("test.cbor", "Counts", schema.Traits{}, schema.Numeric)
	inner := schema.NewStructure("test.cbor", "Inner", schema.Traits{},
		schema.M("label", schema.String),
		schema.M("when", schema.Timestamp),
	)
	return schema.NewStructure("test.cbor", "Outer", schema.Traits{},
		schema.M("name", schema.String),
		schema.M("size", schema.Numeric),
		schema.M("data", schema.Blob),
		schema.M("tags", tags),
		schema.M("sparseTags", sparseTags),
		schema.M("counts", counts),
		schema.M("inner", inner),
		schema.M("big", schema.BigInteger),
		schema.M("price", schema.BigDecimal),
	)
}

func roundTrip(t *testing.T, ref schema.Ref, v any) any {
	t.Helper()
	c := New()
	ser := c.NewSerializer()
	require.NoError(t, ser.Write(ref, v))
	data, err := ser.Flush()
	require.NoError(t, err)
	out, err := c.NewDeserializer().Read(ref, data)
	require.NoError(t, err)
	return out
}

func TestRoundTripDropsNulls(t *testing.T) {
	when := time.Date(2024, 6, 15, 12, 30, 45, 0, time.UTC)
	input := map[string]any{
		"name":       "widget",
		"size":       3,
		"data":       []byte{0x01, 0x02},
		"tags":       []any{"a", nil, "b"},
		"sparseTags": []any{"a", nil, "b"},
		"counts":     map[string]any{"x": 1, "y": nil},
		"inner":      map[string]any{"label": nil, "when": when},
		"missing":    nil,
	}

	got := roundTrip(t, newShapes(), input)

	want := map[string]any{
		"name":       "widget",
		"size":       int64(3),
		"data":       []byte{0x01, 0x02},
		"tags":       []any{"a", "b"},
		"sparseTags": []any{"a", nil, "b"},
		"counts":     map[string]any{"x": int64(1)},
		"inner":      map[string]any{"when": when},
	}
	assert.Equal(t, want, got)
}

func TestDenseListOnWire(t *testing.T) {
	ref := schema.ListModifier | schema.Numeric
	data, err := fxcbor.Marshal([]any{1, nil, 2})
	require.NoError(t, err)

	got, err := New().NewDeserializer().Read(ref, data)
	require.NoError(t, err)
	assert.Equal(t, []any{int64(1), int64(2)}, got)
}

func TestTypedSlicesAndMaps(t *testing.T) {
	got := roundTrip(t, newShapes(), map[string]any{
		"tags":   []string{"x", "y"},
		"counts": map[string]int{"a": 5},
	})
	assert.Equal(t, map[string]any{
		"tags":   []any{"x", "y"},
		"counts": map[string]any{"a": int64(5)},
	}, got)
}

func TestBigNumbers(t *testing.T) {
	huge, _ := new(big.Int).SetString("123456789012345678901234567890", 10)
	price, _ := new(big.Float).SetString("12.345")

	got := roundTrip(t, newShapes(), map[string]any{"big": huge, "price": price})
	m := got.(map[string]any)

	gotBig, ok := m["big"].(*big.Int)
	require.True(t, ok, "big = %T", m["big"])
	assert.Equal(t, 0, gotBig.Cmp(huge))

	gotPrice, ok := m["price"].(*big.Float)
	require.True(t, ok, "price = %T", m["price"])
	assert.Equal(t, "12.345", gotPrice.Text('f', 3))
}

func TestDecimalFractionTag(t *testing.T) {
	f, _ := new(big.Float).SetString("-1.5")
	tag := decimalFraction(f)
	assert.Equal(t, uint64(tagDecimalFraction), tag.Number)
	parts := tag.Content.([]any)
	assert.Equal(t, int64(-1), parts[0])
	assert.Equal(t, 0, parts[1].(*big.Int).Cmp(big.NewInt(-15)))
}

func TestTimestampEncodedAsTag1(t *testing.T) {
	ser := New().NewSerializer()
	when := time.Unix(1718454645, 0)
	require.NoError(t, ser.Write(schema.Timestamp, when))
	data, err := ser.Flush()
	require.NoError(t, err)

	var raw fxcbor.RawTag
	require.NoError(t, fxcbor.Unmarshal(data, &raw))
	assert.Equal(t, uint64(1), raw.Number)
}

func TestTimestampFromNumberAndString(t *testing.T) {
	want := time.Date(2024, 6, 15, 12, 30, 45, 0, time.UTC)
	d := New().NewDeserializer()

	data, _ := fxcbor.Marshal(1718454645)
	got, err := d.Read(schema.Timestamp, data)
	require.NoError(t, err)
	assert.Equal(t, want, got)

	data, _ = fxcbor.Marshal("2024-06-15T12:30:45Z")
	got, err = d.Read(schema.Timestamp, data)
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestFlushDiscipline(t *testing.T) {
	c := New()
	ser := c.NewSerializer()

	require.NoError(t, ser.Write(schema.String, "first"))
	require.NoError(t, ser.Write(schema.String, "second"))
	data, err := ser.Flush()
	require.NoError(t, err)

	got, err := c.NewDeserializer().Read(schema.String, data)
	require.NoError(t, err)
	assert.Equal(t, "second", got)

	data, err = ser.Flush()
	require.NoError(t, err)
	assert.Empty(t, data)
}

func TestMalformedInput(t *testing.T) {
	_, err := New().NewDeserializer().Read(schema.Document, []byte{0xbf, 0x61})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrMalformed))
	assert.True(t, errors.Is(err, serde.ErrMalformed))
}

func TestEmptyInput(t *testing.T) {
	got, err := New().NewDeserializer().Read(schema.Document, nil)
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestUnknownMembersPassThrough(t *testing.T) {
	got := roundTrip(t, newShapes(), map[string]any{
		"extra": map[string]any{"n": 1, "keep": nil},
	})
	assert.Equal(t, map[string]any{"extra": map[string]any{"n": int64(1), "keep": nil}}, got)
}

func TestStreamRejected(t *testing.T) {
	err := New().NewSerializer().Write(schema.StreamingBlob, struct{ readerOnly }{})
	assert.True(t, errors.Is(err, serde.ErrUnsupportedValue))
}

type readerOnly struct{}

func (readerOnly) Read([]byte) (int, error) { return 0, nil }
