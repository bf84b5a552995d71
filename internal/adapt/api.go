package adapt

import (
	"context"
	"fmt"
	"reflect"

	"github.com/vk/conftree/internal/meta"
)

// rootProp builds the synthetic descriptor for a top-level slot.
func rootProp(t reflect.Type) *meta.Property {
	return &meta.Property{Name: "<root>", FieldName: "<root>", Type: t, Group: meta.DefaultGroup}
}

// Materialize converts a node tree into an instance of t within this load
// operation, sharing the context's identity registry with every other
// Materialize call on the same Loading. Returns nil for a nil node.
func (lc *Loading) Materialize(ctx context.Context, n any, t reflect.Type) (any, error) {
	adapter, err := lc.Runtime().AdapterFor(t)
	if err != nil {
		return nil, err
	}
	return adapter.Decode(ctx, n, rootProp(t), lc)
}

// Load materializes a node tree into a fresh *T under a fresh load
// operation. Two Load calls never share identity state, so equal nodes
// yield distinct instances across calls.
func Load[T any](ctx context.Context, rt *Runtime, n any) (*T, error) {
	ptrT := reflect.TypeOf((*T)(nil))
	if _, err := rt.Classes().Describe(ptrT); err != nil {
		return nil, err
	}
	v, err := rt.NewLoading().Materialize(ctx, n, ptrT)
	if err != nil {
		return nil, err
	}
	if v == nil {
		return nil, nil
	}
	obj, ok := v.(*T)
	if !ok {
		return nil, fmt.Errorf("adapt: materialized %T, want %T", v, (*T)(nil))
	}
	return obj, nil
}

// LoadInto populates a caller-supplied instance (a struct pointer) from a
// node tree through a bound composite adapter. The identity registry is
// never consulted, regardless of identity keys in the node.
func LoadInto(ctx context.Context, rt *Runtime, n any, instance any) error {
	rv := reflect.ValueOf(instance)
	if rv.Kind() != reflect.Pointer || rv.IsNil() || rv.Elem().Kind() != reflect.Struct {
		return fmt.Errorf("adapt: LoadInto needs a non-nil struct pointer, got %T", instance)
	}
	bound := NewBoundComposite(instance)
	_, err := bound.Decode(ctx, n, rootProp(rv.Type()), rt.NewLoading())
	return err
}

// Save serializes an object back into a map node keyed by its runtime
// class's declared properties. The result's canonical rendering orders
// keys lexicographically; see node.CanonicalJSON.
func Save(ctx context.Context, rt *Runtime, obj any) (map[string]any, error) {
	if obj == nil {
		return nil, nil
	}
	n, err := rt.composite.Encode(ctx, obj, rootProp(reflect.TypeOf(obj)), rt.NewSaving())
	if err != nil {
		return nil, err
	}
	if n == nil {
		return nil, nil
	}
	m, ok := n.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("adapt: composite encode produced %T, want map", n)
	}
	return m, nil
}

// Schema returns the descriptive metadata tree for a class.
func Schema(ctx context.Context, rt *Runtime, t reflect.Type) (map[string]any, error) {
	adapter, err := rt.AdapterFor(t)
	if err != nil {
		return nil, err
	}
	return adapter.Schema(ctx, rootProp(t), rt.NewProcessing())
}

// SchemaOf is the generic convenience form of Schema.
func SchemaOf[T any](ctx context.Context, rt *Runtime) (map[string]any, error) {
	return Schema(ctx, rt, reflect.TypeOf((*T)(nil)))
}
