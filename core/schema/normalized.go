package schema

import (
	"errors"
	"fmt"
	"iter"
)

// ErrInvalidState is returned when a Normalized view is queried for
// something it cannot represent, e.g. member traits of a non-member.
var ErrInvalidState = errors.New("schema: invalid state")

// Normalized is a read-only view over any Ref. It borrows the underlying
// shape and is cheap to create; build one per serialization call.
type Normalized struct {
	shape       Shape
	sentinel    Sentinel
	hasSentinel bool

	own        Traits
	member     Traits
	isMember   bool
	memberName string
}

func (*Normalized) isRef() {}

// Of normalizes ref without a member name.
func Of(ref Ref) *Normalized {
	return Normalize(ref, "")
}

// Normalize builds the view for ref. memberName names the occurrence when
// ref is a Member; it cannot be inferred from the Member itself.
func Normalize(ref Ref, memberName string) *Normalized {
	for {
		lazy, ok := ref.(Lazy)
		if !ok {
			break
		}
		ref = lazy()
	}

	switch r := ref.(type) {
	case *Normalized:
		return r
	case Member:
		inner := Normalize(r.Target, "")
		n := *inner
		if inner.isMember {
			n.member = inner.member.Merge(r.Traits)
		} else {
			n.member = r.Traits
		}
		n.isMember = true
		n.memberName = memberName
		return &n
	case Sentinel:
		return &Normalized{sentinel: r, hasSentinel: true}
	case *Simple:
		return &Normalized{shape: r, own: r.Traits(), sentinel: r.Type, hasSentinel: true}
	case Shape:
		return &Normalized{shape: r, own: r.Traits()}
	case nil:
		return &Normalized{sentinel: Unit, hasSentinel: true}
	default:
		panic(fmt.Sprintf("schema: unsupported reference type %T", ref))
	}
}

// Schema returns the resolved shape or sentinel.
func (n *Normalized) Schema() Ref {
	if n.shape != nil {
		return n.shape
	}
	return n.sentinel
}

// Shape returns the resolved shape, or nil for sentinels.
func (n *Normalized) Shape() Shape {
	return n.shape
}

// Sentinel returns the primitive sentinel, if the view resolves to one
// directly or through a Simple shape.
func (n *Normalized) Sentinel() (Sentinel, bool) {
	return n.sentinel, n.hasSentinel
}

// Name returns the local shape name; sentinels have no name.
func (n *Normalized) Name() string {
	if n.shape == nil {
		return ""
	}
	return n.shape.Name()
}

// QualifiedName returns "namespace#Name".
func (n *Normalized) QualifiedName() string {
	if n.shape == nil {
		return ""
	}
	return n.shape.QualifiedName()
}

// IsMemberSchema reports whether this view is a member occurrence.
func (n *Normalized) IsMemberSchema() bool {
	return n.isMember
}

// MemberName returns the occurrence name of a member view.
func (n *Normalized) MemberName() (string, error) {
	if !n.isMember {
		return "", fmt.Errorf("%w: %s is not a member schema", ErrInvalidState, n.describe())
	}
	return n.memberName, nil
}

func (n *Normalized) sentinelIs(s Sentinel) bool {
	return n.hasSentinel && n.sentinel == s
}

func (n *Normalized) IsUnitSchema() bool {
	return n.shape == nil && n.sentinel == Unit
}

func (n *Normalized) IsListSchema() bool {
	if _, ok := n.shape.(*List); ok {
		return true
	}
	return n.hasSentinel && n.sentinel.IsList()
}

func (n *Normalized) IsMapSchema() bool {
	if _, ok := n.shape.(*Map); ok {
		return true
	}
	return n.hasSentinel && n.sentinel.IsMap()
}

func (n *Normalized) IsStructSchema() bool {
	return n.structure() != nil
}

func (n *Normalized) IsOperationSchema() bool {
	_, ok := n.shape.(*Operation)
	return ok
}

func (n *Normalized) IsStringSchema() bool     { return n.sentinelIs(String) }
func (n *Normalized) IsBooleanSchema() bool    { return n.sentinelIs(Boolean) }
func (n *Normalized) IsNumericSchema() bool    { return n.sentinelIs(Numeric) }
func (n *Normalized) IsBigIntegerSchema() bool { return n.sentinelIs(BigInteger) }
func (n *Normalized) IsBigDecimalSchema() bool { return n.sentinelIs(BigDecimal) }
func (n *Normalized) IsDocumentSchema() bool   { return n.sentinelIs(Document) }

func (n *Normalized) IsBlobSchema() bool {
	return n.sentinelIs(Blob) || n.sentinelIs(StreamingBlob)
}

func (n *Normalized) IsTimestampSchema() bool {
	return n.hasSentinel && n.sentinel.IsTimestamp()
}

// IsStreaming reports a streaming trait or the streaming blob sentinel.
func (n *Normalized) IsStreaming() bool {
	return n.MergedTraits().Streaming || n.sentinelIs(StreamingBlob)
}

// ErrorShape returns the modeled error shape, if this view resolves to one.
func (n *Normalized) ErrorShape() (*Error, bool) {
	e, ok := n.shape.(*Error)
	return e, ok
}

// OwnTraits returns the resolved shape's traits only.
func (n *Normalized) OwnTraits() Traits {
	return n.own
}

// MemberTraits returns the overrides attached to this member occurrence.
func (n *Normalized) MemberTraits() (Traits, error) {
	if !n.isMember {
		return Traits{}, fmt.Errorf("%w: %s is not a member schema", ErrInvalidState, n.describe())
	}
	return n.member, nil
}

// MergedTraits returns own traits overlaid by member traits.
func (n *Normalized) MergedTraits() Traits {
	if !n.isMember {
		return n.own
	}
	return n.own.Merge(n.member)
}

func (n *Normalized) structure() *Structure {
	switch s := n.shape.(type) {
	case *Structure:
		return s
	case *Error:
		return &s.Structure
	}
	return nil
}

// MemberSchema returns the view for a structure member. The boolean is
// false for unknown names and for non-structure views.
func (n *Normalized) MemberSchema(name string) (*Normalized, bool) {
	s := n.structure()
	if s == nil {
		return nil, false
	}
	def, ok := s.Member(name)
	if !ok {
		return nil, false
	}
	return Normalize(Member{Target: def.Target, Traits: def.Traits}, def.Name), true
}

// MemberSchemas returns the member views in declaration order.
func (n *Normalized) MemberSchemas() []*Normalized {
	s := n.structure()
	if s == nil {
		return nil
	}
	out := make([]*Normalized, 0, len(s.members))
	for _, def := range s.members {
		out = append(out, Normalize(Member{Target: def.Target, Traits: def.Traits}, def.Name))
	}
	return out
}

// StructIterator yields (name, member view) pairs in declaration order.
// The unit schema yields nothing; other non-structures are an error.
func (n *Normalized) StructIterator() (iter.Seq2[string, *Normalized], error) {
	if n.IsUnitSchema() {
		return func(func(string, *Normalized) bool) {}, nil
	}
	s := n.structure()
	if s == nil {
		return nil, fmt.Errorf("%w: %s is not a structure", ErrInvalidState, n.describe())
	}
	return func(yield func(string, *Normalized) bool) {
		for _, def := range s.members {
			if !yield(def.Name, Normalize(Member{Target: def.Target, Traits: def.Traits}, def.Name)) {
				return
			}
		}
	}, nil
}

// KeySchema returns the key view of a map. Keys are always strings.
func (n *Normalized) KeySchema() (*Normalized, error) {
	if !n.IsMapSchema() {
		return nil, fmt.Errorf("%w: %s is not a map", ErrInvalidState, n.describe())
	}
	return Normalize(Member{Target: String}, "key"), nil
}

// ValueSchema returns the element view of a list ("member") or the value
// view of a map ("value").
func (n *Normalized) ValueSchema() (*Normalized, error) {
	switch s := n.shape.(type) {
	case *List:
		return Normalize(Member{Target: s.ValueSchema}, "member"), nil
	case *Map:
		return Normalize(Member{Target: s.ValueSchema}, "value"), nil
	}
	if n.hasSentinel {
		switch {
		case n.sentinel.IsList():
			return Normalize(Member{Target: n.sentinel.Elem()}, "member"), nil
		case n.sentinel.IsMap():
			return Normalize(Member{Target: n.sentinel.Elem()}, "value"), nil
		}
	}
	return nil, fmt.Errorf("%w: %s is neither a list nor a map", ErrInvalidState, n.describe())
}

func (n *Normalized) describe() string {
	if n.shape != nil {
		return n.shape.QualifiedName()
	}
	return n.sentinel.String()
}
