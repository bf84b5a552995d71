package meta

import (
	"fmt"
	"reflect"
	"sync"
)

// Registry caches class introspection results and resolves dynamic subtype
// hints by class name. All methods are safe for concurrent use.
type Registry struct {
	mu      sync.RWMutex
	classes map[string]*Class
	byType  map[reflect.Type]*Class
}

// NewRegistry creates an empty class registry.
func NewRegistry() *Registry {
	return &Registry{
		classes: make(map[string]*Class),
		byType:  make(map[reflect.Type]*Class),
	}
}

// Register introspects T and makes it resolvable by its simple class name.
// Registering the same type twice is idempotent.
func Register[T any](r *Registry) (*Class, error) {
	return r.RegisterType(reflect.TypeOf((*T)(nil)).Elem())
}

// RegisterType is the non-generic form of Register for callers that hold a
// reflect.Type (e.g. the dynamic subtype hint path).
func (r *Registry) RegisterType(t reflect.Type) (*Class, error) {
	if t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	r.mu.RLock()
	cls, ok := r.byType[t]
	r.mu.RUnlock()
	if ok {
		return cls, nil
	}

	cls, err := describe(t)
	if err != nil {
		return nil, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if existing, ok := r.byType[t]; ok {
		return existing, nil
	}
	if other, ok := r.classes[cls.Name]; ok && other.Type != t {
		return nil, fmt.Errorf("meta: class name %q already registered for %s", cls.Name, other.Type)
	}
	r.classes[cls.Name] = cls
	r.byType[t] = cls
	return cls, nil
}

// Describe returns the cached Class for a type, introspecting and
// registering it on first use.
func (r *Registry) Describe(t reflect.Type) (*Class, error) {
	return r.RegisterType(t)
}

// LookupClass resolves a registered class by simple name. Used to honor the
// dynamic subtype hint inside config nodes.
func (r *Registry) LookupClass(name string) (*Class, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	cls, ok := r.classes[name]
	return cls, ok
}

// ClassNames returns the names of all registered classes, for CLI listings.
func (r *Registry) ClassNames() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.classes))
	for name := range r.classes {
		names = append(names, name)
	}
	return names
}
