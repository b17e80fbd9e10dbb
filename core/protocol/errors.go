package protocol

import (
	"context"
	"fmt"
	"strings"

	"github.com/artpar/shapewire/core/framework"
	"github.com/artpar/shapewire/core/registry"
	"github.com/artpar/shapewire/core/schema"
	"github.com/artpar/shapewire/domain/transport"
)

// ErrorDispatcher turns an error response into a typed error. It must
// return a non-nil error; a nil return is a contract violation.
type ErrorDispatcher interface {
	HandleError(ctx context.Context, op *schema.Operation, resp *transport.Response, data map[string]any, meta ResponseMetadata) error
}

// ErrorDispatcherFunc adapts a function to ErrorDispatcher.
type ErrorDispatcherFunc func(ctx context.Context, op *schema.Operation, resp *transport.Response, data map[string]any, meta ResponseMetadata) error

// HandleError calls f.
func (f ErrorDispatcherFunc) HandleError(ctx context.Context, op *schema.Operation, resp *transport.Response, data map[string]any, meta ResponseMetadata) error {
	return f(ctx, op, resp, data, meta)
}

// ServiceError is a service error response. Err holds the typed error
// built by the matching error shape, when one was found.
type ServiceError struct {
	Code       string
	Message    string
	Fault      string
	Retryable  bool
	Throttling bool
	StatusCode int
	Metadata   ResponseMetadata
	Fields     map[string]any
	Shape      *schema.Error
	Err        error
}

func (e *ServiceError) Error() string {
	msg := e.Message
	if msg == "" && e.Err != nil {
		msg = e.Err.Error()
	}
	if msg == "" {
		return fmt.Sprintf("%s (status %d)", e.Code, e.StatusCode)
	}
	return fmt.Sprintf("%s (status %d): %s", e.Code, e.StatusCode, msg)
}

func (e *ServiceError) Unwrap() error {
	return e.Err
}

// errorTypeHeader carries the error code on some services.
const errorTypeHeader = "x-amzn-errortype"

// UnknownErrorCode is used when a response identifies no error code.
const UnknownErrorCode = "UnknownError"

// RegistryErrorDispatcher resolves the error code of a response against
// the registry of the operation, then the fallback namespaces.
type RegistryErrorDispatcher struct {
	// Fallbacks are searched in order for unqualified codes. Empty means
	// the framework namespace only.
	Fallbacks []string
}

// HandleError always returns a *ServiceError.
func (d *RegistryErrorDispatcher) HandleError(_ context.Context, op *schema.Operation, resp *transport.Response, data map[string]any, meta ResponseMetadata) error {
	code := errorCode(resp, data)
	se := &ServiceError{
		Code:       code,
		Message:    errorMessage(data),
		StatusCode: resp.StatusCode,
		Metadata:   meta,
		Fields:     data,
	}

	if shape, ok := d.lookup(op, code); ok {
		_, se.Code = schema.SplitName(code)
		se.Shape = shape
		se.Fault = shape.Fault()
		t := shape.Traits()
		se.Retryable = t.Retryable
		se.Throttling = t.Throttling
		if shape.New != nil {
			se.Err = shape.New(data)
		}
		return se
	}

	se.Fault = "client"
	if resp.StatusCode >= 500 {
		se.Fault = "server"
	}
	return se
}

func (d *RegistryErrorDispatcher) lookup(op *schema.Operation, code string) (*schema.Error, bool) {
	if strings.Contains(code, "#") {
		s, ok := registry.Resolve(code)
		return asError(s, ok)
	}
	if r, ok := registry.Of(op); ok {
		if e, ok := asError(r.Lookup(code)); ok {
			return e, true
		}
	}
	fallbacks := d.Fallbacks
	if len(fallbacks) == 0 {
		if err := framework.Register(); err == nil {
			fallbacks = []string{framework.Namespace}
		}
	}
	for _, ns := range fallbacks {
		if e, ok := asError(registry.Resolve(ns + "#" + code)); ok {
			return e, true
		}
	}
	return nil, false
}

func asError(s schema.Shape, ok bool) (*schema.Error, bool) {
	if !ok {
		return nil, false
	}
	e, ok := s.(*schema.Error)
	return e, ok
}

// errorCode reads the header first, then the body. Header values may carry
// a ":"-separated suffix.
func errorCode(resp *transport.Response, data map[string]any) string {
	if v, ok := resp.Header(errorTypeHeader); ok && v != "" {
		code, _, _ := strings.Cut(v, ":")
		return strings.TrimSpace(code)
	}
	for _, key := range []string{"__type", "code"} {
		if v, ok := data[key].(string); ok && v != "" {
			return v
		}
	}
	return UnknownErrorCode
}

func errorMessage(data map[string]any) string {
	for _, key := range []string{"message", "Message", "errorMessage"} {
		if v, ok := data[key].(string); ok {
			return v
		}
	}
	return ""
}
