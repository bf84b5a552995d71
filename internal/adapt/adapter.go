// Package adapt converts between generic config node trees and typed Go
// objects. Each value kind is handled by an Adapter; the composite adapter
// walks a class's declared properties and delegates every child slot to the
// adapter responsible for its type, recursing until the tree is exhausted.
//
// A top-level load owns a fresh identity registry, so composite nodes that
// carry an identity key are materialized at most once per load no matter
// how many goroutines ask for them concurrently.
package adapt

import (
	"context"
	"fmt"
	"reflect"
	"sync"

	"github.com/vk/conftree/internal/identity"
	"github.com/vk/conftree/internal/meta"
)

// Adapter is the unit of conversion for one value kind. Implementations
// must be safe for concurrent use: one adapter instance serves every slot
// of its type within a runtime.
type Adapter interface {
	// Decode converts a config node into a value for the property's slot.
	// A nil node yields the kind's absent result.
	Decode(ctx context.Context, n any, prop *meta.Property, lc *Loading) (any, error)

	// Encode converts a value back into a config node.
	Encode(ctx context.Context, v any, prop *meta.Property, sc *Saving) (any, error)

	// Schema returns descriptive metadata for the property's type. The
	// result is shallow-merged into the per-property metadata built by the
	// enclosing composite adapter.
	Schema(ctx context.Context, prop *meta.Property, pc *Processing) (map[string]any, error)

	// Normalize converts a literal (typically a declared default) into its
	// canonical node-shaped form. A literal whose shape cannot match the
	// target type fails with a TypeMismatchError.
	Normalize(ctx context.Context, raw any, prop *meta.Property, pc *Processing) (any, error)
}

// Runtime bundles the collaborators every conversion needs: the class
// registry (introspection + subtype hints), enum declarations, and adapter
// lookup with per-type overrides. A Runtime is assembled once and shared.
type Runtime struct {
	classes *meta.Registry

	mu        sync.RWMutex
	overrides map[reflect.Type]Adapter
	enums     map[reflect.Type][]string

	primitive Adapter
	slice     Adapter
	strMap    Adapter
	composite Adapter
}

// NewRuntime creates a Runtime over a class registry.
func NewRuntime(classes *meta.Registry) *Runtime {
	rt := &Runtime{
		classes:   classes,
		overrides: make(map[reflect.Type]Adapter),
		enums:     make(map[reflect.Type][]string),
	}
	rt.primitive = &primitiveAdapter{}
	rt.slice = &sliceAdapter{}
	rt.strMap = &stringMapAdapter{}
	rt.composite = &compositeAdapter{}
	return rt
}

// Classes exposes the class registry backing this runtime.
func (rt *Runtime) Classes() *meta.Registry { return rt.classes }

// RegisterAdapter overrides adapter lookup for one exact type.
func (rt *Runtime) RegisterAdapter(t reflect.Type, a Adapter) {
	rt.mu.Lock()
	defer rt.mu.Unlock()
	rt.overrides[t] = a
}

// RegisterEnum declares a string-kinded named type as an enum with the
// given allowed values. Decoding a value outside the set fails.
func (rt *Runtime) RegisterEnum(t reflect.Type, values ...string) error {
	if t.Kind() != reflect.String {
		return fmt.Errorf("adapt: enum type %s must have string kind", t)
	}
	rt.mu.Lock()
	defer rt.mu.Unlock()
	rt.enums[t] = values
	return nil
}

// AdapterFor resolves the adapter responsible for a declared type. The
// lookup honors explicit overrides first, then registered enums, then
// dispatches on the type's kind.
func (rt *Runtime) AdapterFor(t reflect.Type) (Adapter, error) {
	rt.mu.RLock()
	if a, ok := rt.overrides[t]; ok {
		rt.mu.RUnlock()
		return a, nil
	}
	if values, ok := rt.enums[t]; ok {
		rt.mu.RUnlock()
		return &enumAdapter{typ: t, values: values}, nil
	}
	rt.mu.RUnlock()

	switch t.Kind() {
	case reflect.Pointer:
		if t.Elem().Kind() == reflect.Struct {
			return rt.composite, nil
		}
		return nil, fmt.Errorf("adapt: no adapter for pointer type %s", t)
	case reflect.Struct, reflect.Interface:
		// Interface-typed slots resolve their concrete class from the
		// dynamic subtype hint at decode time.
		return rt.composite, nil
	case reflect.Slice:
		return rt.slice, nil
	case reflect.Map:
		if t.Key().Kind() != reflect.String {
			return nil, fmt.Errorf("adapt: map type %s must have string keys", t)
		}
		return rt.strMap, nil
	case reflect.String, reflect.Bool,
		reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
		reflect.Float32, reflect.Float64:
		return rt.primitive, nil
	}
	return nil, fmt.Errorf("adapt: no adapter for type %s", t)
}

// Processing is the context shared by schema generation and literal
// normalization: adapter lookup and class metadata, nothing per-operation.
type Processing struct {
	rt *Runtime
}

// Runtime returns the owning runtime.
func (pc *Processing) Runtime() *Runtime { return pc.rt }

// Saving is the per-save context. Save walks carry no identity
// coordination: shared references are encoded independently per path.
type Saving struct {
	Processing
}

// Loading is the per-load context. It owns exactly one identity registry;
// the registry and any unresolved promises become unreachable when the
// top-level load returns.
type Loading struct {
	Processing
	registry *identity.Registry
}

// NewProcessing creates a context for schema generation.
func (rt *Runtime) NewProcessing() *Processing { return &Processing{rt: rt} }

// NewSaving creates a context for one save operation.
func (rt *Runtime) NewSaving() *Saving { return &Saving{Processing{rt: rt}} }

// NewLoading creates a context for one top-level load operation, with a
// fresh identity registry. Concurrent goroutines may share one Loading to
// deduplicate identity-keyed objects across their requests.
func (rt *Runtime) NewLoading() *Loading {
	return &Loading{Processing: Processing{rt: rt}, registry: identity.NewRegistry()}
}

// Identities returns the load's identity registry.
func (lc *Loading) Identities() *identity.Registry { return lc.registry }

// NewInstance allocates a bare instance of a class via the object factory.
func (lc *Loading) NewInstance(cls *meta.Class) any { return meta.NewInstance(cls) }

// ResolveOrFail blocks until the promise registered under key settles, then
// returns its value or re-raises its recorded failure verbatim. There is no
// timeout and no cancellation: two objects whose populates wait on each
// other's promises deadlock. Tight identity cycles are outside the
// contract; only diamond-shaped sharing is supported.
func (lc *Loading) ResolveOrFail(key string, p *identity.Promise) (any, error) {
	val, err := p.Wait()
	if err != nil {
		return nil, err
	}
	return val, nil
}
