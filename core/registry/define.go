package registry

import "github.com/artpar/shapewire/core/schema"

// Simple creates and registers a Simple shape.
func (r *Registry) Simple(name string, typ schema.Sentinel, traits schema.Traits) *schema.Simple {
	s := schema.NewSimple(r.namespace, name, typ, traits)
	r.Register(name, s)
	return s
}

// List creates and registers a List shape.
func (r *Registry) List(name string, traits schema.Traits, value schema.Ref) *schema.List {
	s := schema.NewList(r.namespace, name, traits, value)
	r.Register(name, s)
	return s
}

// Map creates and registers a Map shape.
func (r *Registry) Map(name string, traits schema.Traits, value schema.Ref) *schema.Map {
	s := schema.NewMap(r.namespace, name, traits, value)
	r.Register(name, s)
	return s
}

// Struct creates and registers a Structure shape.
func (r *Registry) Struct(name string, traits schema.Traits, members ...schema.MemberDef) *schema.Structure {
	s := schema.NewStructure(r.namespace, name, traits, members...)
	r.Register(name, s)
	return s
}

// Operation creates and registers an Operation shape.
func (r *Registry) Operation(name string, traits schema.Traits, input, output schema.Ref) *schema.Operation {
	s := schema.NewOperation(r.namespace, name, traits, input, output)
	r.Register(name, s)
	return s
}

// Error creates and registers an Error shape.
func (r *Registry) Error(name string, traits schema.Traits, factory schema.ErrorFactory, members ...schema.MemberDef) *schema.Error {
	s := schema.NewError(r.namespace, name, traits, factory, members...)
	r.Register(name, s)
	return s
}

// The package-level constructors register into the active registry when a
// capture window is open; otherwise the shape has no namespace and is not
// registered anywhere.

func activeNamespace() string {
	if r, ok := Active(); ok {
		return r.namespace
	}
	return ""
}

func registerActive(name string, s schema.Shape) {
	if r, ok := Active(); ok {
		r.Register(name, s)
	}
}

// Sim creates a Simple shape in the active registry.
func Sim(name string, typ schema.Sentinel, traits schema.Traits) *schema.Simple {
	s := schema.NewSimple(activeNamespace(), name, typ, traits)
	registerActive(name, s)
	return s
}

// List creates a List shape in the active registry.
func List(name string, traits schema.Traits, value schema.Ref) *schema.List {
	s := schema.NewList(activeNamespace(), name, traits, value)
	registerActive(name, s)
	return s
}

// Map creates a Map shape in the active registry.
func Map(name string, traits schema.Traits, value schema.Ref) *schema.Map {
	s := schema.NewMap(activeNamespace(), name, traits, value)
	registerActive(name, s)
	return s
}

// Struct creates a Structure shape in the active registry.
func Struct(name string, traits schema.Traits, members ...schema.MemberDef) *schema.Structure {
	s := schema.NewStructure(activeNamespace(), name, traits, members...)
	registerActive(name, s)
	return s
}

// Op creates an Operation shape in the active registry.
func Op(name string, traits schema.Traits, input, output schema.Ref) *schema.Operation {
	s := schema.NewOperation(activeNamespace(), name, traits, input, output)
	registerActive(name, s)
	return s
}

// Err creates an Error shape in the active registry.
func Err(name string, traits schema.Traits, factory schema.ErrorFactory, members ...schema.MemberDef) *schema.Error {
	s := schema.NewError(activeNamespace(), name, traits, factory, members...)
	registerActive(name, s)
	return s
}
