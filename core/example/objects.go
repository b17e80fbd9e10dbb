// Package example defines a small object storage service model. It is
// registered by the CLI and used as a fixture across the adapters; it
// touches every HTTP binding the protocol supports.
package example

import (
	"fmt"
	"sync"

	"github.com/artpar/shapewire/core/registry"
	"github.com/artpar/shapewire/core/schema"
)

// Namespace is the example service namespace.
const Namespace = "example.objects"

// Operations and errors of the example service.
var (
	CreateBucket *schema.Operation
	PutObject    *schema.Operation
	GetObject    *schema.Operation
	ListObjects  *schema.Operation
	DeleteObject *schema.Operation
	WatchBucket  *schema.Operation

	NoSuchBucket *schema.Error
	NoSuchKey    *schema.Error
	SlowDown     *schema.Error
)

// NotFoundError is the typed error for NoSuchBucket and NoSuchKey.
type NotFoundError struct {
	Kind     string
	Resource string
	Message  string
}

func (e *NotFoundError) Error() string {
	if e.Resource == "" {
		return fmt.Sprintf("%s: %s", e.Kind, e.Message)
	}
	return fmt.Sprintf("%s: %s: %s", e.Kind, e.Resource, e.Message)
}

// SlowDownError asks the caller to back off.
type SlowDownError struct {
	Message string
}

func (e *SlowDownError) Error() string {
	return "SlowDown: " + e.Message
}

var once sync.Once

// Register defines the example shapes. It is safe to call more than once.
func Register() error {
	var err error
	once.Do(func() {
		err = registry.For(Namespace).Capture(define)
	})
	return err
}

// Operations returns the example operations in declaration order.
func Operations() []*schema.Operation {
	return []*schema.Operation{CreateBucket, PutObject, GetObject, ListObjects, DeleteObject, WatchBucket}
}

func define() {
	bucketName := registry.Sim("BucketName", schema.String, schema.Traits{})
	objectKey := registry.Sim("ObjectKey", schema.String, schema.Traits{})
	ownerID := registry.Sim("OwnerId", schema.String, schema.Traits{Sensitive: true})
	tags := registry.List("TagList", schema.Traits{}, schema.String)
	metadata := registry.Map("Metadata", schema.Traits{}, schema.String)
	lastModified := schema.Member{Target: schema.Timestamp, Traits: schema.Traits{TimestampFormat: schema.FormatHTTPDate}}

	CreateBucket = registry.Op("CreateBucket", schema.Traits{
		HTTP: &schema.HTTPTrait{Method: "POST", URI: "/buckets", Code: 201},
	},
		registry.Struct("CreateBucketInput", schema.Traits{},
			schema.M("name", bucketName),
			schema.M("region", schema.String),
			schema.M("clientToken", schema.String, schema.Traits{IdempotencyToken: true}),
		),
		registry.Struct("CreateBucketOutput", schema.Traits{},
			schema.M("location", schema.String, schema.Traits{HTTPHeader: "Location"}),
			schema.M("status", schema.Numeric, schema.Traits{HTTPResponseCode: true}),
			schema.M("createdAt", schema.Timestamp),
		),
	)

	PutObject = registry.Op("PutObject", schema.Traits{
		HTTP:               &schema.HTTPTrait{Method: "PUT", URI: "/buckets/{bucket}/objects/{key+}", Code: 200},
		Idempotent:         true,
		RequestCompression: []string{"gzip"},
	},
		registry.Struct("PutObjectInput", schema.Traits{},
			schema.M("bucket", bucketName, schema.Traits{HTTPLabel: true}),
			schema.M("key", objectKey, schema.Traits{HTTPLabel: true}),
			schema.M("tags", tags, schema.Traits{HTTPHeader: "X-Object-Tags"}),
			schema.M("metadata", metadata, schema.Traits{HTTPPrefixHeaders: "X-Meta-"}),
			schema.M("body", schema.Blob, schema.Traits{HTTPPayload: true}),
		),
		registry.Struct("PutObjectOutput", schema.Traits{},
			schema.M("etag", schema.String, schema.Traits{HTTPHeader: "ETag"}),
			schema.M("versionId", schema.String, schema.Traits{HTTPHeader: "X-Version-Id"}),
		),
	)

	GetObject = registry.Op("GetObject", schema.Traits{
		HTTP: &schema.HTTPTrait{Method: "GET", URI: "/buckets/{bucket}/objects/{key+}", Code: 200},
	},
		registry.Struct("GetObjectInput", schema.Traits{},
			schema.M("bucket", bucketName, schema.Traits{HTTPLabel: true}),
			schema.M("key", objectKey, schema.Traits{HTTPLabel: true}),
			schema.M("versionId", schema.String, schema.Traits{HTTPQuery: "versionId"}),
		),
		registry.Struct("GetObjectOutput", schema.Traits{},
			schema.M("etag", schema.String, schema.Traits{HTTPHeader: "ETag"}),
			schema.M("lastModified", lastModified, schema.Traits{HTTPHeader: "Last-Modified"}),
			schema.M("contentLength", schema.Numeric, schema.Traits{HTTPHeader: "Content-Length"}),
			schema.M("tags", tags, schema.Traits{HTTPHeader: "X-Object-Tags"}),
			schema.M("metadata", metadata, schema.Traits{HTTPPrefixHeaders: "X-Meta-"}),
			schema.M("body", schema.StreamingBlob, schema.Traits{HTTPPayload: true}),
		),
	)

	summary := registry.Struct("ObjectSummary", schema.Traits{},
		schema.M("key", objectKey),
		schema.M("size", schema.Numeric),
		schema.M("lastModified", schema.Timestamp),
		schema.M("etag", schema.String),
		schema.M("owner", ownerID),
	)
	ListObjects = registry.Op("ListObjects", schema.Traits{
		HTTP: &schema.HTTPTrait{Method: "GET", URI: "/buckets/{bucket}?list", Code: 200},
	},
		registry.Struct("ListObjectsInput", schema.Traits{},
			schema.M("bucket", bucketName, schema.Traits{HTTPLabel: true}),
			schema.M("prefix", schema.String, schema.Traits{HTTPQuery: "prefix"}),
			schema.M("maxKeys", schema.Numeric, schema.Traits{HTTPQuery: "max-keys"}),
			schema.M("nextToken", schema.String, schema.Traits{HTTPQuery: "token"}),
		),
		registry.Struct("ListObjectsOutput", schema.Traits{},
			schema.M("objects", registry.List("ObjectSummaryList", schema.Traits{}, summary)),
			schema.M("nextToken", schema.String),
		),
	)

	DeleteObject = registry.Op("DeleteObject", schema.Traits{
		HTTP:       &schema.HTTPTrait{Method: "DELETE", URI: "/buckets/{bucket}/objects/{key+}", Code: 204},
		Idempotent: true,
	},
		registry.Struct("DeleteObjectInput", schema.Traits{},
			schema.M("bucket", bucketName, schema.Traits{HTTPLabel: true}),
			schema.M("key", objectKey, schema.Traits{HTTPLabel: true}),
		),
		nil,
	)

	created := registry.Struct("ObjectCreated", schema.Traits{},
		schema.M("key", objectKey),
		schema.M("size", schema.Numeric),
	)
	deleted := registry.Struct("ObjectDeleted", schema.Traits{},
		schema.M("key", objectKey),
	)
	events := registry.Struct("BucketEvents", schema.Traits{Streaming: true},
		schema.M("created", created),
		schema.M("deleted", deleted),
	)
	WatchBucket = registry.Op("WatchBucket", schema.Traits{
		HTTP: &schema.HTTPTrait{Method: "GET", URI: "/buckets/{bucket}/events", Code: 200},
	},
		registry.Struct("WatchBucketInput", schema.Traits{},
			schema.M("bucket", bucketName, schema.Traits{HTTPLabel: true}),
		),
		registry.Struct("WatchBucketOutput", schema.Traits{},
			schema.M("events", events, schema.Traits{HTTPPayload: true}),
		),
	)

	NoSuchBucket = registry.Err("NoSuchBucket", schema.Traits{Error: "client"},
		notFound("NoSuchBucket", "bucket"),
		schema.M("message", schema.String),
		schema.M("bucket", bucketName),
	)
	NoSuchKey = registry.Err("NoSuchKey", schema.Traits{Error: "client"},
		notFound("NoSuchKey", "key"),
		schema.M("message", schema.String),
		schema.M("key", objectKey),
	)
	SlowDown = registry.Err("SlowDown", schema.Traits{Error: "server", Retryable: true, Throttling: true},
		func(fields map[string]any) error {
			msg, _ := fields["message"].(string)
			return &SlowDownError{Message: msg}
		},
		schema.M("message", schema.String),
	)
}

func notFound(kind, field string) schema.ErrorFactory {
	return func(fields map[string]any) error {
		e := &NotFoundError{Kind: kind}
		e.Message, _ = fields["message"].(string)
		e.Resource, _ = fields[field].(string)
		return e
	}
}
