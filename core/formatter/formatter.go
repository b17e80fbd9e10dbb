// Package formatter provides a pluggable output formatting system.
// Formatters render value trees shaped by a schema as json, yaml or an
// aligned table, redacting members marked sensitive.
package formatter

import (
	"encoding/base64"
	"fmt"
	"io"
	"maps"
	"slices"
	"sync"

	"github.com/artpar/shapewire/core/schema"
	"github.com/artpar/shapewire/core/serde"
)

// Redacted replaces the value of a sensitive member.
const Redacted = "*** Sensitive Data Redacted ***"

// Formatter converts a value tree to a specific output format.
type Formatter interface {
	// Name is the value accepted by --output-format.
	Name() string

	// Description is shown in help output.
	Description() string

	// Format writes v. n describes v and may be nil for untyped values.
	Format(w io.Writer, n *schema.Normalized, v any, opts FormatOptions) error

	// FormatError writes err in the same format.
	FormatError(w io.Writer, err error) error
}

// FormatOptions configures formatting behavior.
type FormatOptions struct {
	// ShowSensitive disables redaction of sensitive members.
	ShowSensitive bool

	// NoHeader omits the table header row.
	NoHeader bool

	// Compact writes json on a single line.
	Compact bool

	// MaxWidth truncates table cells longer than this. Zero means no limit.
	MaxWidth int
}

// Prepare returns a copy of v ready for encoding: sensitive members are
// redacted and blobs become base64 strings.
func Prepare(n *schema.Normalized, v any, opts FormatOptions) any {
	if n != nil && !opts.ShowSensitive && n.MergedTraits().Sensitive && !serde.IsNull(v) {
		return Redacted
	}

	switch x := v.(type) {
	case []byte:
		return base64.StdEncoding.EncodeToString(x)
	case map[string]any:
		out := make(map[string]any, len(x))
		for k, item := range x {
			out[k] = Prepare(childSchema(n, k), item, opts)
		}
		return out
	case []any:
		var elem *schema.Normalized
		if n != nil && n.IsListSchema() {
			elem, _ = n.ValueSchema()
		}
		out := make([]any, len(x))
		for i, item := range x {
			out[i] = Prepare(elem, item, opts)
		}
		return out
	}
	return v
}

// childSchema returns the schema of entry k of a struct or map view.
func childSchema(n *schema.Normalized, k string) *schema.Normalized {
	switch {
	case n == nil:
		return nil
	case n.IsStructSchema():
		if member, ok := n.MemberSchema(k); ok {
			return member
		}
	case n.IsMapSchema():
		if value, err := n.ValueSchema(); err == nil {
			return value
		}
	}
	return nil
}

// Registry holds formatters by name. The zero value is not usable; call
// NewRegistry.
type Registry struct {
	mu          sync.RWMutex
	byName      map[string]Formatter
	defaultName string
}

// NewRegistry returns an empty registry defaulting to json.
func NewRegistry() *Registry {
	return &Registry{byName: map[string]Formatter{}, defaultName: "json"}
}

// Register adds f. Names are unique.
func (r *Registry) Register(f Formatter) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, dup := r.byName[f.Name()]; dup {
		return fmt.Errorf("formatter %q already registered", f.Name())
	}
	r.byName[f.Name()] = f
	return nil
}

// Get looks a formatter up by name.
func (r *Registry) Get(name string) (Formatter, bool) {
	r.mu.RLock()
	f, ok := r.byName[name]
	r.mu.RUnlock()
	return f, ok
}

// Default returns the default formatter, or the alphabetically first one
// when the default is not registered. Nil for an empty registry.
func (r *Registry) Default() Formatter {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if f, ok := r.byName[r.defaultName]; ok {
		return f
	}
	names := slices.Sorted(maps.Keys(r.byName))
	if len(names) == 0 {
		return nil
	}
	return r.byName[names[0]]
}

// SetDefault changes the default. name must already be registered.
func (r *Registry) SetDefault(name string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.byName[name]; !ok {
		return fmt.Errorf("formatter %q not registered", name)
	}
	r.defaultName = name
	return nil
}

// List returns the registered names in order.
func (r *Registry) List() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return slices.Sorted(maps.Keys(r.byName))
}

// DefaultRegistry holds the built-in formatters.
var DefaultRegistry = NewRegistry()

// Register adds f to DefaultRegistry.
func Register(f Formatter) error { return DefaultRegistry.Register(f) }

// Get looks name up in DefaultRegistry.
func Get(name string) (Formatter, bool) { return DefaultRegistry.Get(name) }

// Default returns DefaultRegistry's default formatter.
func Default() Formatter { return DefaultRegistry.Default() }

// List returns the names in DefaultRegistry.
func List() []string { return DefaultRegistry.List() }
