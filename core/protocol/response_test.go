package protocol

import (
	"context"
	"errors"
	"iter"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/artpar/shapewire/core/framework"
	"github.com/artpar/shapewire/core/schema"
	"github.com/artpar/shapewire/domain/streaming"
	"github.com/artpar/shapewire/domain/transport"
)

func TestDeserializeResponse_Bindings(t *testing.T) {
	s := newService(t)
	p := New()

	body := encode(t, schema.Document, map[string]any{"name": "w", "count": 2})
	resp := response(201, map[string]string{
		"ETag":             "abc",
		"X-Tags":           `a, "b,c"`,
		"X-Meta-Owner":     "me",
		"x-amzn-requestid": "rid",
		"X-Amz-Cf-Id":      "cf",
	}, body)

	out, err := p.DeserializeResponse(context.Background(), nil, s.list, resp)
	require.NoError(t, err)

	assert.Equal(t, map[string]any{
		"etag":   "abc",
		"tags":   []any{"a", "b,c"},
		"meta":   map[string]any{"owner": "me"},
		"status": int64(201),
		"name":   "w",
		"count":  int64(2),
	}, out.Data)
	assert.Equal(t, ResponseMetadata{HTTPStatusCode: 201, RequestID: "rid", CfID: "cf"}, out.Metadata)
}

func TestDeserializeResponse_AbsentHeadersSkipped(t *testing.T) {
	s := newService(t)
	out, err := New().DeserializeResponse(context.Background(), nil, s.list, response(200, nil, nil))
	require.NoError(t, err)

	assert.NotContains(t, out.Data, "etag")
	assert.NotContains(t, out.Data, "tags")
	assert.Equal(t, map[string]any{}, out.Data["meta"])
	assert.Equal(t, int64(200), out.Data["status"])
}

func TestDeserializeResponse_PayloadReplacesOutput(t *testing.T) {
	s := newService(t)
	p := New()

	tests := []struct {
		name string
		op   *schema.Operation
		body []byte
		want map[string]any
	}{
		{
			name: "map payload",
			op:   s.labels,
			body: encode(t, schema.Document, map[string]any{"a": "b"}),
			want: map[string]any{"a": "b"},
		},
		{
			name: "blob payload",
			op:   s.upload,
			body: encode(t, schema.Blob, []byte("hi")),
			want: map[string]any{"data": []byte("hi"), "etag": "e1"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := p.DeserializeResponse(context.Background(), nil, tt.op, response(200, map[string]string{"ETag": "e1"}, tt.body))
			require.NoError(t, err)
			assert.Equal(t, tt.want, out.Data)
		})
	}
}

func TestDeserializeResponse_MalformedPayload(t *testing.T) {
	s := newService(t)
	_, err := New().DeserializeResponse(context.Background(), nil, s.upload, response(200, nil, []byte{0xff, 0xff}))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "decode payload")
}

func TestDeserializeResponse_NotFoundDispatched(t *testing.T) {
	s := newService(t)

	var (
		called bool
		seen   map[string]any
	)
	sentinel := errors.New("not found error")
	p := New(WithErrorDispatcher(ErrorDispatcherFunc(
		func(_ context.Context, op *schema.Operation, resp *transport.Response, data map[string]any, meta ResponseMetadata) error {
			called = true
			seen = data
			assert.Equal(t, s.putItem, op)
			assert.Equal(t, 404, meta.HTTPStatusCode)
			return sentinel
		})))

	body := encode(t, schema.Document, map[string]any{"message": "not found"})
	out, err := p.DeserializeResponse(context.Background(), nil, s.putItem, response(404, nil, body))

	assert.Nil(t, out)
	assert.ErrorIs(t, err, sentinel)
	assert.True(t, called)
	assert.Equal(t, "not found", seen["message"])
}

func TestDeserializeResponse_DispatcherContract(t *testing.T) {
	s := newService(t)
	p := New(WithErrorDispatcher(ErrorDispatcherFunc(
		func(context.Context, *schema.Operation, *transport.Response, map[string]any, ResponseMetadata) error {
			return nil
		})))

	out, err := p.DeserializeResponse(context.Background(), nil, s.putItem, response(500, nil, nil))
	assert.Nil(t, out)
	assert.ErrorIs(t, err, ErrDispatcherContract)
}

func TestDeserializeResponse_MalformedErrorBody(t *testing.T) {
	s := newService(t)
	_, err := New().DeserializeResponse(context.Background(), nil, s.putItem, response(400, nil, []byte{0xff, 0xff}))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "decode error body")
}

func TestRegistryErrorDispatcher_ModeledError(t *testing.T) {
	s := newService(t)
	p := New()

	body := encode(t, schema.Document, map[string]any{"message": "gone"})
	resp := response(404, map[string]string{"X-Amzn-ErrorType": "ItemMissing:http://internal.example/"}, body)
	_, err := p.DeserializeResponse(context.Background(), nil, s.putItem, resp)

	var se *ServiceError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, "ItemMissing", se.Code)
	assert.Equal(t, "gone", se.Message)
	assert.Equal(t, "client", se.Fault)
	assert.Equal(t, 404, se.StatusCode)
	assert.Same(t, s.missing, se.Shape)

	var typed *itemMissing
	require.ErrorAs(t, err, &typed)
	assert.Equal(t, "gone", typed.msg)
}

func TestRegistryErrorDispatcher_QualifiedBodyCode(t *testing.T) {
	s := newService(t)
	body := encode(t, schema.Document, map[string]any{"__type": "test.protocol#ItemMissing", "Message": "qualified"})

	_, err := New().DeserializeResponse(context.Background(), nil, s.putItem, response(404, nil, body))

	var se *ServiceError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, "ItemMissing", se.Code)
	assert.Equal(t, "qualified", se.Message)
	assert.NotNil(t, se.Shape)
}

func TestRegistryErrorDispatcher_FrameworkValidation(t *testing.T) {
	s := newService(t)
	body := encode(t, schema.Document, map[string]any{
		"__type":  "ValidationException",
		"message": "bad input",
		"fieldList": []any{
			map[string]any{"path": "/label", "message": "too short"},
		},
	})

	_, err := New().DeserializeResponse(context.Background(), nil, s.putItem, response(400, nil, body))

	var ve *framework.ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Equal(t, "bad input", ve.Message)
	assert.Equal(t, []framework.ValidationField{{Path: "/label", Message: "too short"}}, ve.FieldList)
}

func TestRegistryErrorDispatcher_Unmodeled(t *testing.T) {
	s := newService(t)
	tests := []struct {
		name   string
		status int
		body   map[string]any
		code   string
		fault  string
	}{
		{"server fault from status", 503, map[string]any{"code": "Overloaded"}, "Overloaded", "server"},
		{"client fault from status", 409, map[string]any{"message": "conflict"}, UnknownErrorCode, "client"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			body := encode(t, schema.Document, tt.body)
			_, err := New().DeserializeResponse(context.Background(), nil, s.putItem, response(tt.status, nil, body))

			var se *ServiceError
			require.ErrorAs(t, err, &se)
			assert.Equal(t, tt.code, se.Code)
			assert.Equal(t, tt.fault, se.Fault)
			assert.Nil(t, se.Shape)
			assert.True(t, strings.HasPrefix(se.Error(), tt.code))
		})
	}
}

func TestDeserializeResponse_EventStreamNeedsMarshaller(t *testing.T) {
	s := newService(t)
	_, err := New().DeserializeResponse(context.Background(), nil, s.chat, response(200, nil, nil))
	assert.ErrorIs(t, err, ErrMissingCollaborator)
}

func TestDeserializeResponse_UnknownEvent(t *testing.T) {
	s := newService(t)
	hc := &HandlerContext{EventStreamMarshaller: streaming.SSE{}}
	framed := "event: ping\nheader: :message-type=event\ndata: AQI=\n\n"

	out, err := New().DeserializeResponse(context.Background(), hc, s.chat, response(200, nil, []byte(framed)))
	require.NoError(t, err)

	events := out.Data["events"].(iter.Seq2[map[string]any, error])
	var got []map[string]any
	for event, err := range events {
		require.NoError(t, err)
		got = append(got, event)
	}
	require.Len(t, got, 1)
	unknown, ok := got[0][UnknownEvent].(map[string]any)
	require.True(t, ok, "event = %v", got[0])
	ping, ok := unknown["ping"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, []byte{0x01, 0x02}, ping["body"])
}

func TestDeserializeResponse_DiscriminatorIsNotAVariant(t *testing.T) {
	s := newService(t)
	hc := &HandlerContext{EventStreamMarshaller: streaming.SSE{}}
	framed := "event: __type\ndata: AQI=\n\n"

	out, err := New().DeserializeResponse(context.Background(), hc, s.chat, response(200, nil, []byte(framed)))
	require.NoError(t, err)

	var got []map[string]any
	for event, err := range out.Data["events"].(iter.Seq2[map[string]any, error]) {
		require.NoError(t, err)
		got = append(got, event)
	}
	require.Len(t, got, 1)
	unknown, ok := got[0][UnknownEvent].(map[string]any)
	require.True(t, ok, "event = %v", got[0])
	assert.Contains(t, unknown, "__type")
}

func TestMetadataFallbacks(t *testing.T) {
	tests := []struct {
		name    string
		headers map[string]string
		want    ResponseMetadata
	}{
		{"first wins", map[string]string{"x-amzn-requestid": "a", "x-amz-request-id": "c"}, ResponseMetadata{HTTPStatusCode: 200, RequestID: "a"}},
		{"second", map[string]string{"X-Amzn-Request-Id": "b"}, ResponseMetadata{HTTPStatusCode: 200, RequestID: "b"}},
		{"third and extended", map[string]string{"x-amz-request-id": "c", "x-amz-id-2": "ext"}, ResponseMetadata{HTTPStatusCode: 200, RequestID: "c", ExtendedRequestID: "ext"}},
		{"none", nil, ResponseMetadata{HTTPStatusCode: 200}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Metadata(response(200, tt.headers, nil))
			if got != tt.want {
				t.Errorf("Metadata() = %+v, want %+v", got, tt.want)
			}
		})
	}
}
