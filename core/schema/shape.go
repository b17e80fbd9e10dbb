package schema

import "strings"

// Ref is anything accepted where a shape is expected: a Shape, a Sentinel,
// a Member occurrence, a Lazy resolver or an already Normalized view.
type Ref interface {
	isRef()
}

// Shape is a named, traited type description.
type Shape interface {
	Ref
	Namespace() string
	Name() string
	QualifiedName() string
	Traits() Traits
}

// Member is an occurrence of Target with per-occurrence trait overrides.
type Member struct {
	Target Ref
	Traits Traits
}

func (Member) isRef() {}

// MemberBits is a Member whose overrides are given as a bit-vector.
func MemberBits(target Ref, bits TraitBits) Member {
	return Member{Target: target, Traits: bits.Traits()}
}

// Lazy defers resolution of a reference. It is used to break cycles between
// mutually recursive shapes and is invoked on every normalization.
type Lazy func() Ref

func (Lazy) isRef() {}

// MemberDef declares one structure member.
type MemberDef struct {
	Name   string
	Target Ref
	Traits Traits
}

// M builds a MemberDef.
func M(name string, target Ref, traits ...Traits) MemberDef {
	def := MemberDef{Name: name, Target: target}
	for _, t := range traits {
		def.Traits = def.Traits.Merge(t)
	}
	return def
}

type base struct {
	namespace string
	name      string
	traits    Traits
}

func (*base) isRef() {}

func (b *base) Namespace() string { return b.namespace }
func (b *base) Name() string      { return b.name }
func (b *base) Traits() Traits    { return b.traits }

func (b *base) QualifiedName() string {
	if b.namespace == "" {
		return b.name
	}
	return b.namespace + "#" + b.name
}

// Simple wraps a primitive sentinel with a name and traits.
type Simple struct {
	base
	Type Sentinel
}

// NewSimple creates a Simple shape.
func NewSimple(namespace, name string, typ Sentinel, traits Traits) *Simple {
	return &Simple{base: base{namespace, name, traits}, Type: typ}
}

// List is a homogeneous sequence.
type List struct {
	base
	ValueSchema Ref
}

// NewList creates a List shape.
func NewList(namespace, name string, traits Traits, value Ref) *List {
	if value == nil {
		value = Document
	}
	return &List{base: base{namespace, name, traits}, ValueSchema: value}
}

// Map has string keys and a single value schema.
type Map struct {
	base
	ValueSchema Ref
}

// NewMap creates a Map shape.
func NewMap(namespace, name string, traits Traits, value Ref) *Map {
	if value == nil {
		value = Document
	}
	return &Map{base: base{namespace, name, traits}, ValueSchema: value}
}

// Structure is an ordered set of named members.
type Structure struct {
	base
	members []MemberDef
	index   map[string]int
}

// NewStructure creates a Structure shape. Member order is kept.
func NewStructure(namespace, name string, traits Traits, members ...MemberDef) *Structure {
	s := &Structure{base: base{namespace, name, traits}}
	s.setMembers(members)
	return s
}

func (s *Structure) setMembers(members []MemberDef) {
	s.members = make([]MemberDef, 0, len(members))
	s.index = make(map[string]int, len(members))
	for _, m := range members {
		if i, ok := s.index[m.Name]; ok {
			s.members[i] = m
			continue
		}
		s.index[m.Name] = len(s.members)
		s.members = append(s.members, m)
	}
}

// Members returns the declared members in order.
func (s *Structure) Members() []MemberDef {
	out := make([]MemberDef, len(s.members))
	copy(out, s.members)
	return out
}

// Member returns the member declaration named name.
func (s *Structure) Member(name string) (MemberDef, bool) {
	i, ok := s.index[name]
	if !ok {
		return MemberDef{}, false
	}
	return s.members[i], true
}

// Operation pairs an input and an output shape.
type Operation struct {
	base
	Input  Ref
	Output Ref
}

// NewOperation creates an Operation shape.
func NewOperation(namespace, name string, traits Traits, input, output Ref) *Operation {
	if input == nil {
		input = Unit
	}
	if output == nil {
		output = Unit
	}
	return &Operation{base: base{namespace, name, traits}, Input: input, Output: output}
}

// ErrorFactory builds the typed Go error for a modeled error from its
// decoded fields.
type ErrorFactory func(fields map[string]any) error

// Error is a Structure that describes a modeled service error.
type Error struct {
	Structure
	New ErrorFactory
}

// NewError creates an Error shape.
func NewError(namespace, name string, traits Traits, factory ErrorFactory, members ...MemberDef) *Error {
	e := &Error{Structure: Structure{base: base{namespace, name, traits}}, New: factory}
	e.setMembers(members)
	return e
}

// Fault returns "client" or "server"; unset errors are client faults.
func (e *Error) Fault() string {
	if e.traits.Error == "server" {
		return "server"
	}
	return "client"
}

// SplitName splits "ns#Name" into its parts. An unqualified name has an
// empty namespace.
func SplitName(qualified string) (namespace, name string) {
	if i := strings.LastIndexByte(qualified, '#'); i >= 0 {
		return qualified[:i], qualified[i+1:]
	}
	return "", qualified
}
