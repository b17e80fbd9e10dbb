// Package framework defines the shapes of the smithy.framework namespace
// that every HTTP binding client understands regardless of service.
package framework

import (
	"fmt"
	"strings"
	"sync"

	"github.com/artpar/shapewire/core/registry"
	"github.com/artpar/shapewire/core/schema"
)

// Namespace is the framework namespace.
const Namespace = "smithy.framework"

// ValidationField is one entry of a validation failure.
type ValidationField struct {
	Path    string
	Message string
}

// ValidationError is the typed error built from a ValidationException.
type ValidationError struct {
	Message   string
	FieldList []ValidationField
}

func (e *ValidationError) Error() string {
	if len(e.FieldList) == 0 {
		return "ValidationException: " + e.Message
	}
	parts := make([]string, 0, len(e.FieldList))
	for _, f := range e.FieldList {
		parts = append(parts, fmt.Sprintf("%s: %s", f.Path, f.Message))
	}
	return fmt.Sprintf("ValidationException: %s (%s)", e.Message, strings.Join(parts, "; "))
}

// Shapes of the framework namespace.
var (
	ValidationExceptionField     *schema.Structure
	ValidationExceptionFieldList *schema.List
	ValidationException          *schema.Error
)

var once sync.Once

// Register defines the framework shapes. It is safe to call more than once.
func Register() error {
	var err error
	once.Do(func() {
		err = registry.For(Namespace).Capture(define)
	})
	return err
}

func define() {
	ValidationExceptionField = registry.Struct("ValidationExceptionField", schema.Traits{},
		schema.M("path", schema.String),
		schema.M("message", schema.String),
	)
	ValidationExceptionFieldList = registry.List("ValidationExceptionFieldList", schema.Traits{},
		ValidationExceptionField)
	ValidationException = registry.Err("ValidationException", schema.Traits{Error: "client"},
		newValidationError,
		schema.M("message", schema.String),
		schema.M("fieldList", ValidationExceptionFieldList),
	)
}

func newValidationError(fields map[string]any) error {
	e := &ValidationError{}
	e.Message, _ = fields["message"].(string)
	list, _ := fields["fieldList"].([]any)
	for _, item := range list {
		m, ok := item.(map[string]any)
		if !ok {
			continue
		}
		var f ValidationField
		f.Path, _ = m["path"].(string)
		f.Message, _ = m["message"].(string)
		e.FieldList = append(e.FieldList, f)
	}
	return e
}
