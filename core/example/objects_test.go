package example

import (
	"errors"
	"testing"

	"github.com/artpar/shapewire/core/protocol"
	"github.com/artpar/shapewire/core/registry"
	"github.com/artpar/shapewire/core/schema"
)

func TestRegister(t *testing.T) {
	if err := Register(); err != nil {
		t.Fatalf("Register() error = %v", err)
	}
	if err := Register(); err != nil {
		t.Fatalf("second Register() error = %v", err)
	}

	r := registry.For(Namespace)
	for _, name := range []string{"PutObject", "GetObject", "NoSuchKey", "ObjectSummaryList", "BucketEvents"} {
		if _, ok := r.Lookup(name); !ok {
			t.Errorf("Lookup(%q) not found", name)
		}
	}
	if owner, ok := registry.Of(PutObject); !ok || owner != r {
		t.Error("PutObject is not owned by the example registry")
	}
}

func TestOperationsAreValid(t *testing.T) {
	if err := Register(); err != nil {
		t.Fatal(err)
	}
	ops := Operations()
	if len(ops) != 6 {
		t.Fatalf("Operations() returned %d operations, want 6", len(ops))
	}
	for _, op := range ops {
		if err := protocol.ValidateOperation(op); err != nil {
			t.Errorf("ValidateOperation(%s) error = %v", op.Name(), err)
		}
	}
}

func TestBindings(t *testing.T) {
	if err := Register(); err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		op     *schema.Operation
		input  bool
		member string
		want   protocol.Binding
	}{
		{PutObject, true, "key", protocol.BindingLabel},
		{PutObject, true, "tags", protocol.BindingHeader},
		{PutObject, true, "metadata", protocol.BindingPrefixHeaders},
		{PutObject, true, "body", protocol.BindingPayload},
		{GetObject, false, "body", protocol.BindingStreamingBlob},
		{ListObjects, true, "maxKeys", protocol.BindingQuery},
		{CreateBucket, false, "status", protocol.BindingResponseCode},
		{CreateBucket, true, "clientToken", protocol.BindingUnbound},
		{WatchBucket, false, "events", protocol.BindingEventStream},
	}

	for _, tt := range tests {
		ref := tt.op.Output
		if tt.input {
			ref = tt.op.Input
		}
		member, ok := schema.Of(ref).MemberSchema(tt.member)
		if !ok {
			t.Errorf("%s member %q missing", tt.op.Name(), tt.member)
			continue
		}
		if got := protocol.Classify(member); got != tt.want {
			t.Errorf("Classify(%s.%s) = %v, want %v", tt.op.Name(), tt.member, got, tt.want)
		}
	}
}

func TestErrorFactories(t *testing.T) {
	if err := Register(); err != nil {
		t.Fatal(err)
	}

	err := NoSuchKey.New(map[string]any{"message": "gone", "key": "a/b"})
	var nf *NotFoundError
	if !errors.As(err, &nf) {
		t.Fatalf("NoSuchKey.New() = %T, want *NotFoundError", err)
	}
	if nf.Kind != "NoSuchKey" || nf.Resource != "a/b" || nf.Message != "gone" {
		t.Errorf("NotFoundError = %+v", nf)
	}
	if got := nf.Error(); got != "NoSuchKey: a/b: gone" {
		t.Errorf("Error() = %q", got)
	}

	if got := NoSuchBucket.New(map[string]any{"message": "none"}).Error(); got != "NoSuchBucket: none" {
		t.Errorf("NoSuchBucket Error() = %q", got)
	}

	if SlowDown.Fault() != "server" || !SlowDown.Traits().Throttling {
		t.Error("SlowDown should be a throttling server fault")
	}
	var sd *SlowDownError
	if !errors.As(SlowDown.New(map[string]any{"message": "easy"}), &sd) || sd.Message != "easy" {
		t.Errorf("SlowDown.New() = %v", sd)
	}
}
