package adapt

import (
	"context"
	"fmt"
	"reflect"

	"github.com/vk/conftree/internal/meta"
	"github.com/vk/conftree/internal/node"
)

// enumAdapter converts string-kinded named types with a declared allowed
// value set. Instances are created per lookup from the runtime's enum
// table; they are cheap and carry no state beyond the declaration.
type enumAdapter struct {
	typ    reflect.Type
	values []string
}

func (a *enumAdapter) member(s string) bool {
	for _, v := range a.values {
		if v == s {
			return true
		}
	}
	return false
}

func (a *enumAdapter) Decode(ctx context.Context, n any, prop *meta.Property, lc *Loading) (any, error) {
	if n == nil {
		if prop != nil && prop.HasDefault {
			return a.Normalize(ctx, prop.Default, prop, &lc.Processing)
		}
		return nil, nil
	}
	return a.Normalize(ctx, n, prop, &lc.Processing)
}

func (a *enumAdapter) Encode(ctx context.Context, v any, prop *meta.Property, sc *Saving) (any, error) {
	if v == nil {
		return nil, nil
	}
	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.String {
		return nil, fmt.Errorf("adapt: %T is not an enum value", v)
	}
	return rv.String(), nil
}

func (a *enumAdapter) Schema(ctx context.Context, prop *meta.Property, pc *Processing) (map[string]any, error) {
	options := make([]any, len(a.values))
	for i, v := range a.values {
		options[i] = v
	}
	return map[string]any{"type": "string", "enum": options}, nil
}

func (a *enumAdapter) Normalize(ctx context.Context, raw any, prop *meta.Property, pc *Processing) (any, error) {
	s, ok := raw.(string)
	if !ok {
		return nil, &TypeMismatchError{Target: a.typ.String(), Want: node.Scalar, Got: node.KindOf(raw)}
	}
	if !a.member(s) {
		return nil, fmt.Errorf("adapt: %q is not a valid %s (allowed: %v)", s, a.typ, a.values)
	}
	return reflect.ValueOf(s).Convert(a.typ).Interface(), nil
}
