package adapt

import (
	"context"
	"errors"
	"fmt"
	"reflect"

	"github.com/google/uuid"
	"github.com/vk/conftree/internal/ctxlog"
	"github.com/vk/conftree/internal/identity"
	"github.com/vk/conftree/internal/meta"
	"github.com/vk/conftree/internal/node"
)

// compositeAdapter converts classes with declared properties, recursively
// delegating each property slot to its own adapter.
//
// A stateless instance (the runtime's shared one) creates objects through
// the factory and coordinates identity-keyed nodes through the load's
// identity registry. A bound instance populates one caller-supplied object
// and never touches the registry; the two lifecycles are fixed at
// construction and mutually exclusive.
type compositeAdapter struct {
	bound any
}

// NewBoundComposite returns a composite adapter in stateful mode: Decode
// populates instance (a struct pointer) in place instead of creating new
// objects. Used for singleton root configuration with no sharing concerns.
func NewBoundComposite(instance any) Adapter {
	return &compositeAdapter{bound: instance}
}

func (a *compositeAdapter) Decode(ctx context.Context, n any, prop *meta.Property, lc *Loading) (any, error) {
	if n == nil {
		return nil, nil
	}
	m, ok := node.AsMap(n)
	if !ok {
		return nil, &TypeMismatchError{Target: a.targetName(prop), Want: node.Map, Got: node.KindOf(n)}
	}
	logger := ctxlog.FromContext(ctx)

	if a.bound != nil {
		cls, err := lc.Runtime().Classes().Describe(reflect.TypeOf(a.bound))
		if err != nil {
			return nil, err
		}
		logger.Debug("populating bound instance", "class", cls.Name)
		if err := populate(ctx, m, lc, cls, a.bound); err != nil {
			return nil, err
		}
		return a.bound, nil
	}

	cls, err := resolveClass(lc.Runtime(), m, prop)
	if err != nil {
		return nil, err
	}

	raw, present := m[node.UUIDKey]
	if !present {
		obj := lc.NewInstance(cls)
		if err := populate(ctx, m, lc, cls, obj); err != nil {
			return nil, err
		}
		return obj, nil
	}

	key, ok := raw.(string)
	if !ok {
		return nil, &MalformedIdentityError{Value: raw}
	}

	promise := identity.NewPromise()
	if existing := lc.Identities().RegisterIfAbsent(key, promise); existing != nil {
		logger.Debug("joining in-flight materialization", "uuid", key, "class", cls.Name)
		return lc.ResolveOrFail(key, existing)
	}

	// This caller won the registration and owns materialization for the
	// key. Whatever happens to the populate is recorded on the promise so
	// every waiter observes the identical outcome.
	logger.Debug("materializing identity-keyed object", "uuid", key, "class", cls.Name)
	obj := lc.NewInstance(cls)
	if cls.Identity != nil {
		if err := meta.Set(obj, cls.Identity, key); err != nil {
			err = &PropertyError{Class: cls.Name, Property: cls.Identity.FieldName, Err: err}
			promise.Fail(err)
			return nil, err
		}
	}
	if err := populate(ctx, m, lc, cls, obj); err != nil {
		promise.Fail(err)
		return nil, err
	}
	promise.Fulfill(obj)
	return obj, nil
}

// populate fills every declared property of obj from the map node, in
// descriptor order. The first failing property aborts the whole populate.
func populate(ctx context.Context, m map[string]any, lc *Loading, cls *meta.Class, obj any) error {
	for _, prop := range cls.Properties {
		child := m[prop.Name]

		target := prop.Type
		if hinted, ok := hintedClass(lc.Runtime(), child); ok {
			target = reflect.PointerTo(hinted.Type)
		}
		adapter, err := lc.Runtime().AdapterFor(target)
		if err != nil {
			return &PropertyError{Class: cls.Name, Property: prop.Name, Err: err}
		}

		val, err := adapter.Decode(ctx, child, prop, lc)
		if err != nil {
			return &PropertyError{Class: cls.Name, Property: prop.Name, Err: err}
		}
		if err := meta.Set(obj, prop, val); err != nil {
			return &PropertyError{Class: cls.Name, Property: prop.Name, Err: err}
		}
	}
	return nil
}

// hintedClass inspects a child node for the dynamic subtype hint and
// resolves it against the class registry.
func hintedClass(rt *Runtime, n any) (*meta.Class, bool) {
	m, ok := node.AsMap(n)
	if !ok {
		return nil, false
	}
	name, ok := m[node.ClassKey].(string)
	if !ok {
		return nil, false
	}
	return rt.Classes().LookupClass(name)
}

// resolveClass determines the class a map node materializes into: the
// dynamic subtype hint wins over the statically declared property type.
func resolveClass(rt *Runtime, m map[string]any, prop *meta.Property) (*meta.Class, error) {
	if raw, ok := m[node.ClassKey]; ok {
		name, ok := raw.(string)
		if !ok {
			return nil, fmt.Errorf("adapt: subtype hint %q is not a string: %v", node.ClassKey, raw)
		}
		cls, ok := rt.Classes().LookupClass(name)
		if !ok {
			return nil, fmt.Errorf("adapt: subtype hint names unregistered class %q", name)
		}
		return cls, nil
	}
	if prop == nil || prop.Type == nil {
		return nil, fmt.Errorf("adapt: composite node without a declared type or subtype hint")
	}
	if prop.Type.Kind() == reflect.Interface {
		return nil, fmt.Errorf("adapt: node for interface-typed property %q must carry a %q hint", prop.Name, node.ClassKey)
	}
	return rt.Classes().Describe(prop.Type)
}

func (a *compositeAdapter) targetName(prop *meta.Property) string {
	if a.bound != nil {
		return fmt.Sprintf("%T", a.bound)
	}
	if prop != nil && prop.Type != nil {
		return prop.Type.String()
	}
	return "composite"
}

func (a *compositeAdapter) Encode(ctx context.Context, v any, prop *meta.Property, sc *Saving) (any, error) {
	if v == nil {
		return nil, nil
	}
	rv := reflect.ValueOf(v)
	if rv.Kind() == reflect.Pointer && rv.IsNil() {
		return nil, nil
	}

	// The runtime class drives the property walk, never the declared slot
	// type: polymorphic values save their own fields.
	cls, err := sc.Runtime().Classes().Describe(rv.Type())
	if err != nil {
		return nil, err
	}

	out := make(map[string]any, len(cls.Properties)+2)
	if prop != nil && prop.Type != nil && prop.Type.Kind() == reflect.Interface {
		out[node.ClassKey] = cls.Name
	}
	if cls.Identity != nil {
		cur, err := meta.Get(v, cls.Identity)
		if err != nil {
			return nil, &PropertyError{Class: cls.Name, Property: cls.Identity.FieldName, Err: err}
		}
		key := reflect.ValueOf(cur).String()
		if key == "" {
			// Shared references are not deduplicated on save: each path
			// through the same instance allocates independently.
			key = uuid.NewString()
		}
		out[node.UUIDKey] = key
	}

	for _, p := range cls.Properties {
		val, err := meta.Get(v, p)
		if err != nil {
			return nil, &PropertyError{Class: cls.Name, Property: p.Name, Err: err}
		}
		target := p.Type
		if target.Kind() == reflect.Interface {
			if val == nil {
				continue
			}
			target = reflect.TypeOf(val)
		}
		child, err := sc.Runtime().AdapterFor(target)
		if err != nil {
			return nil, &PropertyError{Class: cls.Name, Property: p.Name, Err: err}
		}
		enc, err := child.Encode(ctx, val, p, sc)
		if err != nil {
			return nil, &PropertyError{Class: cls.Name, Property: p.Name, Err: err}
		}
		if enc != nil {
			out[p.Name] = enc
		}
	}
	return out, nil
}

// Schema builds the descriptive metadata for a composite property:
//
//	{type: "object", class: <name>, properties: {<name>: {...}, ...}}
//
// The uiOrder key is all-or-nothing per class: one pass over the
// descriptors decides whether any declares a nonzero order, a second pass
// emits the metadata. Child schema fragments are shallow-merged last, so a
// nested key silently overwrites a same-named common key; precedence is
// deliberate and relied upon by consumers.
func (a *compositeAdapter) Schema(ctx context.Context, prop *meta.Property, pc *Processing) (map[string]any, error) {
	cls, err := a.schemaClass(pc, prop)
	if err != nil {
		return nil, err
	}
	if cls == nil {
		// Interface-typed slot: the concrete class is only known at load
		// time, so only the shape is describable.
		return map[string]any{"type": "object"}, nil
	}

	properties := make(map[string]any, len(cls.Properties))
	wrapper := map[string]any{
		"type":       "object",
		"class":      cls.Name,
		"properties": properties,
	}

	includeOrder := false
	for _, p := range cls.Properties {
		if p.Order != 0 {
			includeOrder = true
		}
	}

	for _, p := range cls.Properties {
		pm := make(map[string]any)
		properties[p.Name] = pm

		if p.Label != "" {
			pm["title"] = p.Label
		}
		if p.Description != "" {
			pm["description"] = p.Description
		}

		child, err := pc.Runtime().AdapterFor(p.Type)
		if err != nil {
			return nil, &SchemaError{Class: cls.Name, Property: p.Name, Err: err}
		}

		if p.HasDefault {
			norm, err := child.Normalize(ctx, p.Default, p, pc)
			var mismatch *TypeMismatchError
			switch {
			case errors.As(err, &mismatch):
				// A literal that cannot fit the target type degrades to a
				// neutral zero rather than failing the whole schema call.
				pm["default"] = 0
			case err != nil:
				return nil, &SchemaError{Class: cls.Name, Property: p.Name, Err: err}
			default:
				pm["default"] = norm
			}
		}
		if len(p.Tags) > 0 {
			pm["tags"] = p.Tags
		}
		if includeOrder {
			pm["uiOrder"] = p.Order
		}
		pm["uiGroup"] = p.Group

		childMeta, err := child.Schema(ctx, p, pc)
		if err != nil {
			return nil, &SchemaError{Class: cls.Name, Property: p.Name, Err: err}
		}
		for k, v := range childMeta {
			pm[k] = v
		}
	}
	return wrapper, nil
}

func (a *compositeAdapter) schemaClass(pc *Processing, prop *meta.Property) (*meta.Class, error) {
	if a.bound != nil {
		return pc.Runtime().Classes().Describe(reflect.TypeOf(a.bound))
	}
	if prop == nil || prop.Type == nil {
		return nil, fmt.Errorf("adapt: schema requested without a declared type")
	}
	if prop.Type.Kind() == reflect.Interface {
		return nil, nil
	}
	return pc.Runtime().Classes().Describe(prop.Type)
}

func (a *compositeAdapter) Normalize(ctx context.Context, raw any, prop *meta.Property, pc *Processing) (any, error) {
	if raw == nil {
		return nil, nil
	}
	if m, ok := node.AsMap(raw); ok {
		return m, nil
	}
	return nil, &TypeMismatchError{Target: a.targetName(prop), Want: node.Map, Got: node.KindOf(raw)}
}
