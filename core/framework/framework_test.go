package framework

import (
	"errors"
	"testing"

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
	for _, name := range []string{"ValidationException", "ValidationExceptionField", "ValidationExceptionFieldList"} {
		if _, ok := r.Lookup(name); !ok {
			t.Errorf("Lookup(%s) not found", name)
		}
	}
	if ValidationException.QualifiedName() != "smithy.framework#ValidationException" {
		t.Errorf("QualifiedName() = %q", ValidationException.QualifiedName())
	}
	if ValidationException.Fault() != "client" {
		t.Errorf("Fault() = %q, want client", ValidationException.Fault())
	}
}

func TestValidationExceptionSchema(t *testing.T) {
	if err := Register(); err != nil {
		t.Fatal(err)
	}
	ns := schema.Of(ValidationException)
	fieldList, ok := ns.MemberSchema("fieldList")
	if !ok || !fieldList.IsListSchema() {
		t.Fatal("fieldList is not a list member")
	}
	elem, err := fieldList.ValueSchema()
	if err != nil {
		t.Fatal(err)
	}
	if elem.QualifiedName() != "smithy.framework#ValidationExceptionField" {
		t.Errorf("element = %q", elem.QualifiedName())
	}
}

func TestNewValidationError(t *testing.T) {
	if err := Register(); err != nil {
		t.Fatal(err)
	}
	err := ValidationException.New(map[string]any{
		"message": "bad input",
		"fieldList": []any{
			map[string]any{"path": "/name", "message": "too long"},
			"ignored",
		},
	})

	var verr *ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("New() = %T, want *ValidationError", err)
	}
	if verr.Message != "bad input" || len(verr.FieldList) != 1 {
		t.Errorf("ValidationError = %+v", verr)
	}
	want := "ValidationException: bad input (/name: too long)"
	if err.Error() != want {
		t.Errorf("Error() = %q, want %q", err.Error(), want)
	}
}
