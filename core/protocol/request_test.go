package protocol

import (
	"context"
	"io"
	"iter"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/artpar/shapewire/adapters/idgen"
	"github.com/artpar/shapewire/core/schema"
	"github.com/artpar/shapewire/domain/streaming"
	"github.com/artpar/shapewire/domain/transport"
)

func TestSerializeRequest_LabelHeaderPayload(t *testing.T) {
	s := newService(t)
	p := New()

	req, err := p.SerializeRequest(context.Background(), nil, s.putItem, map[string]any{
		"label":  "x",
		"header": "y",
		"body":   map[string]any{"a": 1},
	})
	require.NoError(t, err)

	assert.Equal(t, "PUT", req.Method)
	assert.Equal(t, "/items/x", req.Path)
	assert.Equal(t, "y", req.Headers["x-header"])
	assert.Equal(t, encode(t, s.body, map[string]any{"a": 1}), req.Body)
	assert.Equal(t, "application/cbor", req.Headers["content-type"])
	assert.Empty(t, req.Query)
}

func TestSerializeRequest_Endpoint(t *testing.T) {
	s := newService(t)
	p := New()

	ep, err := transport.ParseEndpoint("http://user:pw@api.example.com:8443/v1/?sig=abc")
	require.NoError(t, err)

	req, err := p.SerializeRequest(context.Background(), &HandlerContext{Endpoint: &ep}, s.putItem, map[string]any{
		"label": "x",
		"body":  map[string]any{"a": 1},
	})
	require.NoError(t, err)

	assert.Equal(t, "http", req.Protocol)
	assert.Equal(t, "api.example.com", req.Hostname)
	assert.Equal(t, 8443, req.Port)
	assert.Equal(t, "/v1/items/x", req.Path)
	assert.Equal(t, []string{"abc"}, req.Query["sig"])
	assert.Equal(t, "user", req.Username)
}

func TestSerializeRequest_GreedyLabelAndToken(t *testing.T) {
	s := newService(t)
	p := New(WithIDGenerator(idgen.NewSequential("tok-")))

	req, err := p.SerializeRequest(context.Background(), nil, s.getFile, map[string]any{
		"key": "docs/a b.txt",
	})
	require.NoError(t, err)

	assert.Equal(t, "GET", req.Method)
	assert.Equal(t, "/files/docs/a%20b.txt", req.Path)
	assert.Equal(t, []string{"tok-1"}, req.Query["token"])
	assert.Equal(t, []string{""}, req.Query["download"])
	assert.Nil(t, req.Body)
	assert.NotContains(t, req.Headers, "content-type")
}

func TestSerializeRequest_TokenNotOverwritten(t *testing.T) {
	s := newService(t)
	p := New(WithIDGenerator(idgen.NewSequential("tok-")))
	input := map[string]any{"key": "k", "token": "mine"}

	req, err := p.SerializeRequest(context.Background(), nil, s.getFile, input)
	require.NoError(t, err)

	assert.Equal(t, []string{"mine"}, req.Query["token"])

	other := map[string]any{"key": "k"}
	_, err = p.SerializeRequest(context.Background(), nil, s.getFile, other)
	require.NoError(t, err)
	assert.NotContains(t, other, "token", "generated tokens must not leak into the caller's input")
}

func TestSerializeRequest_EmptyLabel(t *testing.T) {
	s := newService(t)
	_, err := New().SerializeRequest(context.Background(), nil, s.putItem, map[string]any{"label": ""})
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestSerializeRequest_QueryPrefixHeadersAndResidual(t *testing.T) {
	s := newService(t)
	p := New()

	req, err := p.SerializeRequest(context.Background(), nil, s.list, map[string]any{
		"limit":   10,
		"filters": []any{"red", "blue"},
		"extra":   map[string]any{"limit": "99", "page": "2"},
		"meta":    map[string]any{"Owner": "Ann"},
		"name":    "widgets",
		"count":   3,
	})
	require.NoError(t, err)

	assert.Equal(t, []string{"10"}, req.Query["limit"], "httpQuery wins over httpQueryParams")
	assert.Equal(t, []string{"red", "blue"}, req.Query["filter"])
	assert.Equal(t, []string{"2"}, req.Query["page"])
	assert.Equal(t, "ann", req.Headers["x-meta-owner"])

	body, err := p.Codec().NewDeserializer().Read(s.list.Input, req.Body)
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"name": "widgets", "count": int64(3)}, body)
	assert.Equal(t, "application/cbor", req.Headers["content-type"])
}

func TestSerializeRequest_HeaderValuesLowercased(t *testing.T) {
	s := newService(t)

	tests := []struct {
		name   string
		opts   []Option
		header string
		meta   string
	}{
		{"default", nil, "mixed", "ann"},
		{"preserved", []Option{WithPreservedHeaderValues()}, "MiXeD", "Ann"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := New(tt.opts...)
			put, err := p.SerializeRequest(context.Background(), nil, s.putItem, map[string]any{"label": "x", "header": "MiXeD"})
			require.NoError(t, err)
			assert.Equal(t, tt.header, put.Headers["x-header"])

			list, err := p.SerializeRequest(context.Background(), nil, s.list, map[string]any{"meta": map[string]any{"Owner": "Ann"}})
			require.NoError(t, err)
			assert.Equal(t, tt.meta, list.Headers["x-meta-owner"])
		})
	}
}

func TestSerializeRequest_BlobPayloadUsesCodec(t *testing.T) {
	s := newService(t)
	p := New()

	req, err := p.SerializeRequest(context.Background(), nil, s.upload, map[string]any{"key": "k", "data": []byte("hi")})
	require.NoError(t, err)

	assert.Equal(t, encode(t, schema.Blob, []byte("hi")), req.Body)
	assert.Equal(t, []byte{0x42, 'h', 'i'}, req.Body)
	assert.Equal(t, "application/cbor", req.Headers["content-type"])
	assert.Equal(t, "/uploads/k", req.Path)
}

func TestSerializeRequest_EventStream(t *testing.T) {
	s := newService(t)
	p := New()
	input := map[string]any{"events": []any{
		map[string]any{"message": map[string]any{"text": "hi"}},
		map[string]any{"message": map[string]any{"text": "there"}},
	}}

	_, err := p.SerializeRequest(context.Background(), nil, s.chat, input)
	assert.ErrorIs(t, err, ErrNotImplemented)

	hc := &HandlerContext{EventStreamMarshaller: streaming.SSE{}}
	req, err := p.SerializeRequest(context.Background(), hc, s.chat, input)
	require.NoError(t, err)
	require.NotNil(t, req.Stream)
	assert.Equal(t, "text/event-stream", req.Headers["content-type"])

	framed, err := io.ReadAll(req.Stream)
	require.NoError(t, err)

	out, err := p.DeserializeResponse(context.Background(), hc, s.chat, response(200, nil, framed))
	require.NoError(t, err)
	events, ok := out.Data["events"].(iter.Seq2[map[string]any, error])
	require.True(t, ok, "events is %T", out.Data["events"])

	var got []map[string]any
	for event, err := range events {
		require.NoError(t, err)
		got = append(got, event)
	}
	assert.Equal(t, []map[string]any{
		{"message": map[string]any{"text": "hi"}},
		{"message": map[string]any{"text": "there"}},
	}, got)
}

func TestLabelEscaping(t *testing.T) {
	tests := []struct {
		path, name, value string
		want              string
		found             bool
	}{
		{"/a/{id}", "id", "x y", "/a/x%20y", true},
		{"/a/{id}", "id", "a/b", "/a/a%2Fb", true},
		{"/a/{id+}", "id", "a/b c", "/a/a/b%20c", true},
		{"/a/{other}", "id", "x", "/a/{other}", false},
	}
	for _, tt := range tests {
		got, found := substituteLabel(tt.path, tt.name, tt.value)
		if got != tt.want || found != tt.found {
			t.Errorf("substituteLabel(%q, %q, %q) = %q, %v; want %q, %v", tt.path, tt.name, tt.value, got, found, tt.want, tt.found)
		}
	}
}

func TestJoinPath(t *testing.T) {
	tests := []struct{ base, path, want string }{
		{"", "/items", "/items"},
		{"/v1/", "/items", "/v1/items"},
		{"/v1", "items", "/v1/items"},
		{"", "", "/"},
		{"/v1", "", "/v1"},
	}
	for _, tt := range tests {
		if got := joinPath(tt.base, tt.path); got != tt.want {
			t.Errorf("joinPath(%q, %q) = %q, want %q", tt.base, tt.path, got, tt.want)
		}
	}
}

func TestEventSeqForms(t *testing.T) {
	_, err := eventSeq("nope")
	assert.Error(t, err)

	seq, err := eventSeq([]map[string]any{{"a": 1}, {"b": 2}})
	require.NoError(t, err)
	n := 0
	for range seq {
		n++
	}
	assert.Equal(t, 2, n)

	seq, err = eventSeq([]any{map[string]any{"a": 1}, "skip"})
	require.NoError(t, err)
	n = 0
	for range seq {
		n++
	}
	assert.Equal(t, 1, n, "non-map items are skipped")
}
