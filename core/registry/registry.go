// Package registry manages namespaced shape registration.
// Each namespace has one process-wide Registry. Registries are populated at
// start-up, usually inside a capture window, and read-only afterwards.
package registry

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/artpar/shapewire/core/schema"
)

// ErrCaptureActive is returned when a capture window is opened while
// another registry is already capturing.
var ErrCaptureActive = errors.New("registry: another registry is already capturing")

// SimpleType disambiguates string-only wire values.
type SimpleType string

const (
	SimpleBoolean    SimpleType = "boolean"
	SimpleNumber     SimpleType = "number"
	SimpleBigInt     SimpleType = "bigint"
	SimpleBigDecimal SimpleType = "bigdecimal"
	SimpleUnknown    SimpleType = "unknown"
)

// Registry stores the shapes of one namespace.
type Registry struct {
	mu sync.RWMutex

	namespace string

	// shapes by qualified name
	shapes map[string]schema.Shape

	// simple type hints by qualified name
	simpleTypes map[string]SimpleType
}

var (
	registriesMu sync.Mutex
	registries   = make(map[string]*Registry)

	// reverse mapping, shape -> owning registry
	owners sync.Map

	active atomic.Pointer[Registry]
)

// For returns the registry for namespace, creating it if necessary.
func For(namespace string) *Registry {
	registriesMu.Lock()
	defer registriesMu.Unlock()

	if r, ok := registries[namespace]; ok {
		return r
	}
	r := &Registry{
		namespace:   namespace,
		shapes:      make(map[string]schema.Shape),
		simpleTypes: make(map[string]SimpleType),
	}
	registries[namespace] = r
	return r
}

// Namespaces returns all live namespaces, sorted.
func Namespaces() []string {
	registriesMu.Lock()
	defer registriesMu.Unlock()

	out := make([]string, 0, len(registries))
	for ns := range registries {
		out = append(out, ns)
	}
	sort.Strings(out)
	return out
}

// Of returns the registry a shape was registered in.
func Of(shape schema.Shape) (*Registry, bool) {
	v, ok := owners.Load(shape)
	if !ok {
		return nil, false
	}
	return v.(*Registry), true
}

// Namespace returns the registry's namespace.
func (r *Registry) Namespace() string {
	return r.namespace
}

func (r *Registry) qualify(name string) string {
	if strings.Contains(name, "#") {
		return name
	}
	return r.namespace + "#" + name
}

// Register stores shape under "namespace#name". Re-registering a name
// replaces the previous shape.
func (r *Registry) Register(name string, shape schema.Shape) {
	r.mu.Lock()
	r.shapes[r.qualify(name)] = shape
	r.mu.Unlock()

	if shape != nil {
		owners.Store(shape, r)
	}
}

// Lookup resolves a local or qualified name.
func (r *Registry) Lookup(name string) (schema.Shape, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	s, ok := r.shapes[r.qualify(name)]
	return s, ok
}

// Names returns the qualified names of all shapes, sorted.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.shapes))
	for name := range r.shapes {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// RegisterSimpleTypes records simple type hints keyed by shape name.
func (r *Registry) RegisterSimpleTypes(hints map[string]SimpleType) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for name, typ := range hints {
		r.simpleTypes[r.qualify(name)] = typ
	}
}

// SimpleType returns the hint for a shape name. Unqualified names with no
// hint report SimpleUnknown; qualified names with no hint report "".
func (r *Registry) SimpleType(name string) SimpleType {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if strings.Contains(name, "#") {
		return r.simpleTypes[name]
	}
	if t, ok := r.simpleTypes[r.qualify(name)]; ok {
		return t
	}
	return SimpleUnknown
}

// Ref returns a forward declaration for name. It is resolved each time it
// is normalized, so it may be created before the shape is registered.
func (r *Registry) Ref(name string) schema.Lazy {
	qualified := r.qualify(name)
	return func() schema.Ref {
		s, ok := r.Lookup(qualified)
		if !ok {
			panic(fmt.Sprintf("registry: unresolved forward reference %s", qualified))
		}
		return s
	}
}

// BeginCapture makes r the active registry for the package-level shape
// constructors. Only one registry may capture at a time.
func (r *Registry) BeginCapture() error {
	if !active.CompareAndSwap(nil, r) {
		if active.Load() == r {
			return nil
		}
		return fmt.Errorf("%w: %s", ErrCaptureActive, active.Load().namespace)
	}
	return nil
}

// EndCapture clears the active registry if r is the one capturing.
func (r *Registry) EndCapture() {
	active.CompareAndSwap(r, nil)
}

// Capture runs fn with r active and ends the window on return.
func (r *Registry) Capture(fn func()) error {
	if err := r.BeginCapture(); err != nil {
		return err
	}
	defer r.EndCapture()
	fn()
	return nil
}

// Active returns the capturing registry, if any.
func Active() (*Registry, bool) {
	r := active.Load()
	return r, r != nil
}

// Destroy removes the namespace and clears its shapes. Test teardown only.
func (r *Registry) Destroy() {
	registriesMu.Lock()
	if registries[r.namespace] == r {
		delete(registries, r.namespace)
	}
	registriesMu.Unlock()

	r.mu.Lock()
	defer r.mu.Unlock()
	for _, s := range r.shapes {
		owners.Delete(s)
	}
	r.shapes = make(map[string]schema.Shape)
	r.simpleTypes = make(map[string]SimpleType)
	active.CompareAndSwap(r, nil)
}

// Resolve looks up a qualified name in whichever registry owns its
// namespace.
func Resolve(qualified string) (schema.Shape, bool) {
	ns, _ := schema.SplitName(qualified)
	registriesMu.Lock()
	r, ok := registries[ns]
	registriesMu.Unlock()
	if !ok {
		return nil, false
	}
	return r.Lookup(qualified)
}
