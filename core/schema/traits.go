package schema

import "maps"

// HTTPTrait is the operation-level http binding: method, URI pattern and
// the default success code.
type HTTPTrait struct {
	Method string
	URI    string
	Code   int
}

// Traits holds the well-known traits of a shape or member occurrence.
// Protocol specific traits that have no field go in Extensions.
type Traits struct {
	HTTPLabel        bool
	Idempotent       bool
	IdempotencyToken bool
	Sensitive        bool
	HTTPPayload      bool
	HTTPResponseCode bool
	HTTPQueryParams  bool

	HTTPHeader        string
	HTTPQuery         string
	HTTPPrefixHeaders string
	HTTP              *HTTPTrait

	Streaming    bool
	Sparse       bool
	EventHeader  bool
	EventPayload bool

	// Error is "client" or "server" on error shapes.
	Error      string
	Retryable  bool
	Throttling bool

	TimestampFormat    string
	MediaType          string
	RequestCompression []string

	Extensions map[string]any

	// Clear lists packed flags this occurrence turns off when merged over
	// traits that set them.
	Clear TraitBits
}

// Timestamp formats accepted by the timestampFormat trait.
const (
	FormatDateTime     = "date-time"
	FormatHTTPDate     = "http-date"
	FormatEpochSeconds = "epoch-seconds"
)

// TraitBits is the packed form of the boolean traits used by generated
// schemas for members that only carry flags.
type TraitBits uint8

const (
	BitHTTPLabel TraitBits = 1 << iota
	BitIdempotent
	BitIdempotencyToken
	BitSensitive
	BitHTTPPayload
	BitHTTPResponseCode
	BitHTTPQueryParams
)

// bitTable maps bit positions, low to high, to trait fields.
var bitTable = [...]struct {
	name string
	flag func(*Traits) *bool
}{
	{"httpLabel", func(t *Traits) *bool { return &t.HTTPLabel }},
	{"idempotent", func(t *Traits) *bool { return &t.Idempotent }},
	{"idempotencyToken", func(t *Traits) *bool { return &t.IdempotencyToken }},
	{"sensitive", func(t *Traits) *bool { return &t.Sensitive }},
	{"httpPayload", func(t *Traits) *bool { return &t.HTTPPayload }},
	{"httpResponseCode", func(t *Traits) *bool { return &t.HTTPResponseCode }},
	{"httpQueryParams", func(t *Traits) *bool { return &t.HTTPQueryParams }},
}

// Traits decodes the bit-vector. Bits beyond the table are ignored.
func (b TraitBits) Traits() Traits {
	var t Traits
	t.setBits(b)
	return t
}

// Bits packs the flags that have a bit position.
func (t Traits) Bits() TraitBits {
	var b TraitBits
	for i, entry := range bitTable {
		if *entry.flag(&t) {
			b |= 1 << i
		}
	}
	return b
}

func (t *Traits) setBits(b TraitBits) {
	for i, entry := range bitTable {
		*entry.flag(t) = b&(1<<i) != 0
	}
}

// Merge returns t overlaid by every non-zero field of over. Boolean traits
// are unioned: over can add a flag but not drop one, except the packed
// flags named in over.Clear, which are turned off.
func (t Traits) Merge(over Traits) Traits {
	out := t
	out.setBits((t.Bits() | over.Bits()) &^ over.Clear)
	out.Clear = (t.Clear &^ over.Bits()) | over.Clear
	out.Streaming = t.Streaming || over.Streaming
	out.Sparse = t.Sparse || over.Sparse
	out.EventHeader = t.EventHeader || over.EventHeader
	out.EventPayload = t.EventPayload || over.EventPayload
	out.Retryable = t.Retryable || over.Retryable
	out.Throttling = t.Throttling || over.Throttling

	if over.HTTPHeader != "" {
		out.HTTPHeader = over.HTTPHeader
	}
	if over.HTTPQuery != "" {
		out.HTTPQuery = over.HTTPQuery
	}
	if over.HTTPPrefixHeaders != "" {
		out.HTTPPrefixHeaders = over.HTTPPrefixHeaders
	}
	if over.HTTP != nil {
		out.HTTP = over.HTTP
	}
	if over.Error != "" {
		out.Error = over.Error
	}
	if over.TimestampFormat != "" {
		out.TimestampFormat = over.TimestampFormat
	}
	if over.MediaType != "" {
		out.MediaType = over.MediaType
	}
	if over.RequestCompression != nil {
		out.RequestCompression = over.RequestCompression
	}
	if len(over.Extensions) > 0 {
		ext := make(map[string]any, len(t.Extensions)+len(over.Extensions))
		maps.Copy(ext, t.Extensions)
		maps.Copy(ext, over.Extensions)
		out.Extensions = ext
	}
	return out
}

// IsZero reports whether no trait is set.
func (t Traits) IsZero() bool {
	return t.Clear == 0 && len(t.Map()) == 0
}

// Map renders the set traits keyed by trait name.
func (t Traits) Map() map[string]any {
	m := make(map[string]any)
	flags := []struct {
		name string
		on   bool
	}{
		{"httpLabel", t.HTTPLabel},
		{"idempotent", t.Idempotent},
		{"idempotencyToken", t.IdempotencyToken},
		{"sensitive", t.Sensitive},
		{"httpPayload", t.HTTPPayload},
		{"httpResponseCode", t.HTTPResponseCode},
		{"httpQueryParams", t.HTTPQueryParams},
		{"streaming", t.Streaming},
		{"sparse", t.Sparse},
		{"eventHeader", t.EventHeader},
		{"eventPayload", t.EventPayload},
		{"retryable", t.Retryable},
		{"throttling", t.Throttling},
	}
	for _, f := range flags {
		if f.on {
			m[f.name] = true
		}
	}
	strs := []struct {
		name, v string
	}{
		{"httpHeader", t.HTTPHeader},
		{"httpQuery", t.HTTPQuery},
		{"httpPrefixHeaders", t.HTTPPrefixHeaders},
		{"error", t.Error},
		{"timestampFormat", t.TimestampFormat},
		{"mediaType", t.MediaType},
	}
	for _, s := range strs {
		if s.v != "" {
			m[s.name] = s.v
		}
	}
	if t.HTTP != nil {
		m["http"] = *t.HTTP
	}
	if t.RequestCompression != nil {
		m["requestCompression"] = t.RequestCompression
	}
	for k, v := range t.Extensions {
		m[k] = v
	}
	return m
}

// Ext returns the extension trait named key.
func (t Traits) Ext(key string) (any, bool) {
	v, ok := t.Extensions[key]
	return v, ok
}
