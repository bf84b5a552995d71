// Package meta discovers the configurable properties a class declares and
// provides the generic capabilities the conversion layer is built on: class
// lookup by name, bare-instance construction, and property get/set by
// descriptor.
//
// Properties are declared through struct tags on exported fields:
//
//	type Device struct {
//		UUID string `conf:",identity"`
//		Name string `conf:"name" label:"Device name" default:"unnamed"`
//		Port int    `conf:"port" order:"1" group:"Network" tags:"net,basic"`
//	}
//
// The `conf` tag names the node key for the field; the remaining tags carry
// presentation metadata used only for schema generation.
package meta

import (
	"fmt"
	"reflect"
	"strconv"
	"strings"
)

// DefaultGroup is the uiGroup reported for properties that declare none.
const DefaultGroup = "Other"

// Property describes one declared configurable field of a class. Instances
// are discovered once per class and shared read-only afterwards.
type Property struct {
	// Name is the annotated name: the key under which the property appears
	// in a config node. Defaults to the lower-cased Go field name.
	Name string
	// FieldName is the Go field name, used in diagnostics.
	FieldName string
	// Type is the declared field type.
	Type reflect.Type
	// Label is a human-readable title, empty if undeclared.
	Label string
	// Description is free-form help text, empty if undeclared.
	Description string
	// Default is the literal default value. Valid only if HasDefault.
	Default string
	// HasDefault distinguishes an empty default from no default at all.
	HasDefault bool
	// Tags is the property's tag set, nil if undeclared.
	Tags []string
	// Order is the numeric UI ordering hint; 0 means unset.
	Order int
	// Group is the UI group, DefaultGroup if undeclared.
	Group string

	index []int
}

// Class is the introspection result for one struct type: its identity
// carrier (if any) and its ordered property descriptors.
type Class struct {
	// Type is the underlying struct type (never a pointer).
	Type reflect.Type
	// Name is the simple class name used in schemas and diagnostics.
	Name string
	// Properties lists the declared properties in field-declaration order.
	Properties []*Property
	// Identity is the field tagged with the identity trait, or nil. It
	// holds the object's identity key and is excluded from Properties.
	Identity *Property
}

// describe builds the Class for a struct type by walking its tagged fields.
func describe(t reflect.Type) (*Class, error) {
	if t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	if t.Kind() != reflect.Struct {
		return nil, fmt.Errorf("meta: %s is not a struct type", t)
	}

	cls := &Class{Type: t, Name: t.Name()}
	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)
		if !field.IsExported() {
			continue
		}
		tag, ok := field.Tag.Lookup("conf")
		if !ok {
			continue
		}
		name, opts, err := splitTag(tag)
		if err != nil {
			return nil, fmt.Errorf("meta: field %s.%s: %w", t.Name(), field.Name, err)
		}
		if name == "-" {
			continue
		}
		if name == "" {
			name = strings.ToLower(field.Name[:1]) + field.Name[1:]
		}

		prop := &Property{
			Name:      name,
			FieldName: field.Name,
			Type:      field.Type,
			Group:     DefaultGroup,
			index:     field.Index,
		}
		prop.Label = field.Tag.Get("label")
		prop.Description = field.Tag.Get("desc")
		if def, ok := field.Tag.Lookup("default"); ok {
			prop.Default = def
			prop.HasDefault = true
		}
		if tags, ok := field.Tag.Lookup("tags"); ok && tags != "" {
			prop.Tags = strings.Split(tags, ",")
		}
		if group := field.Tag.Get("group"); group != "" {
			prop.Group = group
		}
		if order, ok := field.Tag.Lookup("order"); ok {
			n, err := strconv.Atoi(order)
			if err != nil {
				return nil, fmt.Errorf("meta: field %s.%s: bad order %q: %w", t.Name(), field.Name, order, err)
			}
			prop.Order = n
		}

		if opts["identity"] {
			if field.Type.Kind() != reflect.String {
				return nil, fmt.Errorf("meta: identity field %s.%s must be a string", t.Name(), field.Name)
			}
			if cls.Identity != nil {
				return nil, fmt.Errorf("meta: class %s declares two identity fields", t.Name())
			}
			cls.Identity = prop
			continue
		}
		cls.Properties = append(cls.Properties, prop)
	}
	return cls, nil
}

// splitTag separates the annotated name from trait options in a conf tag.
func splitTag(tag string) (name string, opts map[string]bool, err error) {
	parts := strings.Split(tag, ",")
	opts = make(map[string]bool)
	for _, opt := range parts[1:] {
		switch opt {
		case "identity":
			opts[opt] = true
		case "":
		default:
			return "", nil, fmt.Errorf("unknown tag option %q", opt)
		}
	}
	return parts[0], opts, nil
}
