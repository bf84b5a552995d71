package adapt

import (
	"context"
	"fmt"
	"reflect"

	"github.com/vk/conftree/internal/meta"
	"github.com/vk/conftree/internal/node"
)

// sliceAdapter converts list nodes to and from slice-typed slots,
// delegating every element to the element type's adapter.
type sliceAdapter struct{}

// elemProp builds the synthetic descriptor used when delegating a
// collection element to its adapter.
func elemProp(prop *meta.Property, t reflect.Type) *meta.Property {
	name := "element"
	if prop != nil {
		name = prop.Name + " element"
	}
	return &meta.Property{Name: name, FieldName: name, Type: t, Group: meta.DefaultGroup}
}

func (a *sliceAdapter) Decode(ctx context.Context, n any, prop *meta.Property, lc *Loading) (any, error) {
	if n == nil {
		return nil, nil
	}
	list, ok := node.AsList(n)
	if !ok {
		return nil, &TypeMismatchError{Target: prop.Type.String(), Want: node.List, Got: node.KindOf(n)}
	}

	elemT := prop.Type.Elem()
	child, err := lc.Runtime().AdapterFor(elemT)
	if err != nil {
		return nil, err
	}
	ep := elemProp(prop, elemT)

	out := reflect.MakeSlice(prop.Type, len(list), len(list))
	for i, elem := range list {
		val, err := child.Decode(ctx, elem, ep, lc)
		if err != nil {
			return nil, fmt.Errorf("adapt: list element %d: %w", i, err)
		}
		if err := assignElem(out.Index(i), val); err != nil {
			return nil, fmt.Errorf("adapt: list element %d: %w", i, err)
		}
	}
	return out.Interface(), nil
}

func (a *sliceAdapter) Encode(ctx context.Context, v any, prop *meta.Property, sc *Saving) (any, error) {
	if v == nil {
		return nil, nil
	}
	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array {
		return nil, fmt.Errorf("adapt: %T is not a slice value", v)
	}
	if rv.Kind() == reflect.Slice && rv.IsNil() {
		return nil, nil
	}

	elemT := rv.Type().Elem()
	child, err := sc.Runtime().AdapterFor(elemT)
	if err != nil {
		return nil, err
	}
	ep := elemProp(prop, elemT)

	out := make([]any, rv.Len())
	for i := 0; i < rv.Len(); i++ {
		enc, err := child.Encode(ctx, rv.Index(i).Interface(), ep, sc)
		if err != nil {
			return nil, fmt.Errorf("adapt: list element %d: %w", i, err)
		}
		out[i] = enc
	}
	return out, nil
}

func (a *sliceAdapter) Schema(ctx context.Context, prop *meta.Property, pc *Processing) (map[string]any, error) {
	elemT := prop.Type.Elem()
	child, err := pc.Runtime().AdapterFor(elemT)
	if err != nil {
		return nil, err
	}
	items, err := child.Schema(ctx, elemProp(prop, elemT), pc)
	if err != nil {
		return nil, err
	}
	return map[string]any{"type": "array", "items": items}, nil
}

func (a *sliceAdapter) Normalize(ctx context.Context, raw any, prop *meta.Property, pc *Processing) (any, error) {
	if raw == nil {
		return nil, nil
	}
	list, ok := node.AsList(raw)
	if !ok {
		return nil, &TypeMismatchError{Target: prop.Type.String(), Want: node.List, Got: node.KindOf(raw)}
	}
	elemT := prop.Type.Elem()
	child, err := pc.Runtime().AdapterFor(elemT)
	if err != nil {
		return nil, err
	}
	ep := elemProp(prop, elemT)
	out := make([]any, len(list))
	for i, elem := range list {
		norm, err := child.Normalize(ctx, elem, ep, pc)
		if err != nil {
			return nil, err
		}
		out[i] = norm
	}
	return out, nil
}

// stringMapAdapter converts map nodes to and from map[string]V slots.
type stringMapAdapter struct{}

func (a *stringMapAdapter) Decode(ctx context.Context, n any, prop *meta.Property, lc *Loading) (any, error) {
	if n == nil {
		return nil, nil
	}
	m, ok := node.AsMap(n)
	if !ok {
		return nil, &TypeMismatchError{Target: prop.Type.String(), Want: node.Map, Got: node.KindOf(n)}
	}

	elemT := prop.Type.Elem()
	child, err := lc.Runtime().AdapterFor(elemT)
	if err != nil {
		return nil, err
	}
	ep := elemProp(prop, elemT)

	out := reflect.MakeMapWithSize(prop.Type, len(m))
	for _, key := range node.SortedKeys(m) {
		val, err := child.Decode(ctx, m[key], ep, lc)
		if err != nil {
			return nil, fmt.Errorf("adapt: map entry %q: %w", key, err)
		}
		ev := reflect.New(elemT).Elem()
		if err := assignElem(ev, val); err != nil {
			return nil, fmt.Errorf("adapt: map entry %q: %w", key, err)
		}
		out.SetMapIndex(reflect.ValueOf(key).Convert(prop.Type.Key()), ev)
	}
	return out.Interface(), nil
}

func (a *stringMapAdapter) Encode(ctx context.Context, v any, prop *meta.Property, sc *Saving) (any, error) {
	if v == nil {
		return nil, nil
	}
	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Map {
		return nil, fmt.Errorf("adapt: %T is not a map value", v)
	}
	if rv.IsNil() {
		return nil, nil
	}

	elemT := rv.Type().Elem()
	child, err := sc.Runtime().AdapterFor(elemT)
	if err != nil {
		return nil, err
	}
	ep := elemProp(prop, elemT)

	out := make(map[string]any, rv.Len())
	iter := rv.MapRange()
	for iter.Next() {
		key := iter.Key().String()
		enc, err := child.Encode(ctx, iter.Value().Interface(), ep, sc)
		if err != nil {
			return nil, fmt.Errorf("adapt: map entry %q: %w", key, err)
		}
		out[key] = enc
	}
	return out, nil
}

func (a *stringMapAdapter) Schema(ctx context.Context, prop *meta.Property, pc *Processing) (map[string]any, error) {
	return map[string]any{"type": "object"}, nil
}

func (a *stringMapAdapter) Normalize(ctx context.Context, raw any, prop *meta.Property, pc *Processing) (any, error) {
	if raw == nil {
		return nil, nil
	}
	if _, ok := node.AsMap(raw); !ok {
		return nil, &TypeMismatchError{Target: prop.Type.String(), Want: node.Map, Got: node.KindOf(raw)}
	}
	return raw, nil
}

// assignElem writes a decoded element into an addressable slot, accepting
// the pointer form a composite adapter produces for value-typed elements.
func assignElem(slot reflect.Value, val any) error {
	if val == nil {
		slot.SetZero()
		return nil
	}
	rv := reflect.ValueOf(val)
	switch {
	case rv.Type().AssignableTo(slot.Type()):
		slot.Set(rv)
	case rv.Kind() == reflect.Pointer && rv.Type().Elem().AssignableTo(slot.Type()):
		slot.Set(rv.Elem())
	default:
		return fmt.Errorf("adapt: cannot assign %T to element of type %s", val, slot.Type())
	}
	return nil
}
