package protocol

import (
	"bytes"
	"io"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/artpar/shapewire/core/codec/cbor"
	"github.com/artpar/shapewire/core/registry"
	"github.com/artpar/shapewire/core/schema"
	"github.com/artpar/shapewire/domain/transport"
)

// service is a small model exercising every binding.
type service struct {
	reg *registry.Registry

	body    *schema.Structure
	putItem *schema.Operation
	getFile *schema.Operation
	list    *schema.Operation
	chat    *schema.Operation
	upload  *schema.Operation
	labels  *schema.Operation
	missing *schema.Error
}

func newService(t *testing.T) *service {
	t.Helper()
	s := &service{reg: registry.For("test.protocol")}
	t.Cleanup(s.reg.Destroy)

	require.NoError(t, s.reg.Capture(func() {
		s.body = registry.Struct("Body", schema.Traits{}, schema.M("a", schema.Numeric))

		putInput := registry.Struct("PutItemInput", schema.Traits{},
			schema.M("label", schema.String, schema.Traits{HTTPLabel: true}),
			schema.M("header", schema.String, schema.Traits{HTTPHeader: "X-Header"}),
			schema.M("body", s.body, schema.Traits{HTTPPayload: true}),
		)
		s.putItem = registry.Op("PutItem", schema.Traits{
			HTTP: &schema.HTTPTrait{Method: "PUT", URI: "/items/{label}", Code: 200},
		}, putInput, nil)

		fileInput := registry.Struct("GetFileInput", schema.Traits{},
			schema.M("key", schema.String, schema.Traits{HTTPLabel: true}),
			schema.M("token", schema.String, schema.Traits{HTTPQuery: "token", IdempotencyToken: true}),
		)
		s.getFile = registry.Op("GetFile", schema.Traits{
			HTTP: &schema.HTTPTrait{Method: "GET", URI: "/files/{key+}?download", Code: 200},
		}, fileInput, nil)

		tags := registry.List("Tags", schema.Traits{}, schema.String)
		meta := registry.Map("Meta", schema.Traits{}, schema.String)
		listInput := registry.Struct("ListInput", schema.Traits{},
			schema.M("limit", schema.Numeric, schema.Traits{HTTPQuery: "limit"}),
			schema.M("filters", tags, schema.Traits{HTTPQuery: "filter"}),
			schema.M("extra", meta, schema.Traits{HTTPQueryParams: true}),
			schema.M("meta", meta, schema.Traits{HTTPPrefixHeaders: "X-Meta-"}),
			schema.M("name", schema.String),
			schema.M("count", schema.Numeric),
		)
		listOutput := registry.Struct("ListOutput", schema.Traits{},
			schema.M("etag", schema.String, schema.Traits{HTTPHeader: "ETag"}),
			schema.M("tags", tags, schema.Traits{HTTPHeader: "X-Tags"}),
			schema.M("meta", meta, schema.Traits{HTTPPrefixHeaders: "X-Meta-"}),
			schema.M("status", schema.Numeric, schema.Traits{HTTPResponseCode: true}),
			schema.M("name", schema.String),
			schema.M("count", schema.Numeric),
		)
		s.list = registry.Op("List", schema.Traits{
			HTTP: &schema.HTTPTrait{Method: "POST", URI: "/list", Code: 200},
		}, listInput, listOutput)

		text := registry.Struct("Text", schema.Traits{}, schema.M("text", schema.String))
		events := registry.Struct("Events", schema.Traits{Streaming: true}, schema.M("message", text))
		chatInput := registry.Struct("ChatInput", schema.Traits{},
			schema.M("events", events, schema.Traits{HTTPPayload: true}),
		)
		chatOutput := registry.Struct("ChatOutput", schema.Traits{},
			schema.M("events", events, schema.Traits{HTTPPayload: true}),
		)
		s.chat = registry.Op("Chat", schema.Traits{
			HTTP: &schema.HTTPTrait{Method: "POST", URI: "/chat", Code: 200},
		}, chatInput, chatOutput)

		uploadInput := registry.Struct("UploadInput", schema.Traits{},
			schema.M("key", schema.String, schema.Traits{HTTPLabel: true}),
			schema.M("data", schema.Blob, schema.Traits{HTTPPayload: true}),
		)
		uploadOutput := registry.Struct("UploadOutput", schema.Traits{},
			schema.M("data", schema.Blob, schema.Traits{HTTPPayload: true}),
			schema.M("etag", schema.String, schema.Traits{HTTPHeader: "ETag"}),
		)
		s.upload = registry.Op("Upload", schema.Traits{
			HTTP: &schema.HTTPTrait{Method: "PUT", URI: "/uploads/{key}", Code: 200},
		}, uploadInput, uploadOutput)

		labelsOutput := registry.Struct("GetLabelsOutput", schema.Traits{},
			schema.M("etag", schema.String, schema.Traits{HTTPHeader: "ETag"}),
			schema.M("labels", meta, schema.Traits{HTTPPayload: true}),
		)
		s.labels = registry.Op("GetLabels", schema.Traits{
			HTTP: &schema.HTTPTrait{Method: "GET", URI: "/labels", Code: 200},
		}, nil, labelsOutput)

		s.missing = registry.Err("ItemMissing", schema.Traits{Error: "client"},
			func(fields map[string]any) error {
				msg, _ := fields["message"].(string)
				return &itemMissing{msg: msg}
			},
			schema.M("message", schema.String),
		)
	}))
	return s
}

type itemMissing struct{ msg string }

func (e *itemMissing) Error() string { return "item missing: " + e.msg }

// encode encodes v against ref with the CBOR codec.
func encode(t *testing.T, ref schema.Ref, v any) []byte {
	t.Helper()
	ser := cbor.New().NewSerializer()
	require.NoError(t, ser.Write(ref, v))
	data, err := ser.Flush()
	require.NoError(t, err)
	return data
}

func response(status int, headers map[string]string, body []byte) *transport.Response {
	if headers == nil {
		headers = map[string]string{}
	}
	return &transport.Response{StatusCode: status, Headers: headers, Body: io.NopCloser(bytes.NewReader(body))}
}
