package adapt

import (
	"context"
	"fmt"
	"reflect"

	"github.com/spf13/cast"
	"github.com/vk/conftree/internal/meta"
	"github.com/vk/conftree/internal/node"
)

// primitiveAdapter converts scalar slots: strings, booleans and the
// numeric kinds. One instance serves all primitive properties.
type primitiveAdapter struct{}

func (a *primitiveAdapter) Decode(ctx context.Context, n any, prop *meta.Property, lc *Loading) (any, error) {
	if n == nil {
		if prop != nil && prop.HasDefault {
			return a.Normalize(ctx, prop.Default, prop, &lc.Processing)
		}
		// Mirrors null-assignment semantics: a string can be absent, a
		// number or bool cannot.
		if prop != nil && prop.Type.Kind() == reflect.String {
			return nil, nil
		}
		return nil, fmt.Errorf("adapt: missing value and no declared default")
	}
	return coerceScalar(n, prop.Type)
}

func (a *primitiveAdapter) Encode(ctx context.Context, v any, prop *meta.Property, sc *Saving) (any, error) {
	if v == nil {
		return nil, nil
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.String:
		return rv.String(), nil
	case reflect.Bool:
		return rv.Bool(), nil
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return rv.Int(), nil
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return int64(rv.Uint()), nil
	case reflect.Float32, reflect.Float64:
		return rv.Float(), nil
	}
	return nil, fmt.Errorf("adapt: %T is not a primitive value", v)
}

func (a *primitiveAdapter) Schema(ctx context.Context, prop *meta.Property, pc *Processing) (map[string]any, error) {
	return map[string]any{"type": schemaTypeName(prop.Type.Kind())}, nil
}

func (a *primitiveAdapter) Normalize(ctx context.Context, raw any, prop *meta.Property, pc *Processing) (any, error) {
	return coerceScalar(raw, prop.Type)
}

// coerceScalar converts a node scalar (or literal) into the declared
// primitive type, returning a value of exactly that type.
func coerceScalar(v any, t reflect.Type) (any, error) {
	switch t.Kind() {
	case reflect.String:
		s, ok := v.(string)
		if !ok {
			return nil, &TypeMismatchError{Target: t.String(), Want: node.Scalar, Got: node.KindOf(v)}
		}
		return convertTo(s, t)
	case reflect.Bool:
		b, err := cast.ToBoolE(v)
		if err != nil {
			return nil, &TypeMismatchError{Target: t.String(), Want: node.Scalar, Got: node.KindOf(v)}
		}
		return convertTo(b, t)
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		i, err := cast.ToInt64E(v)
		if err != nil {
			return nil, &TypeMismatchError{Target: t.String(), Want: node.Scalar, Got: node.KindOf(v)}
		}
		return convertTo(i, t)
	case reflect.Float32, reflect.Float64:
		f, err := cast.ToFloat64E(v)
		if err != nil {
			return nil, &TypeMismatchError{Target: t.String(), Want: node.Scalar, Got: node.KindOf(v)}
		}
		return convertTo(f, t)
	}
	return nil, fmt.Errorf("adapt: %s is not a primitive type", t)
}

// convertTo narrows a canonical scalar onto the declared (possibly named)
// type so the property accessor can assign it directly.
func convertTo(v any, t reflect.Type) (any, error) {
	rv := reflect.ValueOf(v)
	if !rv.Type().ConvertibleTo(t) {
		return nil, fmt.Errorf("adapt: cannot convert %T to %s", v, t)
	}
	return rv.Convert(t).Interface(), nil
}

func schemaTypeName(k reflect.Kind) string {
	switch k {
	case reflect.String:
		return "string"
	case reflect.Bool:
		return "boolean"
	case reflect.Float32, reflect.Float64:
		return "number"
	default:
		return "integer"
	}
}
