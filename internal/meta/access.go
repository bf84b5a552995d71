package meta

import (
	"fmt"
	"reflect"
)

// NewInstance allocates a bare, field-default instance of a class and
// returns a pointer to it.
func NewInstance(cls *Class) any {
	return reflect.New(cls.Type).Interface()
}

// Get reads the named property from an instance. The instance must be a
// pointer to (or value of) the property's declaring struct.
func Get(obj any, prop *Property) (any, error) {
	v, err := structValue(obj)
	if err != nil {
		return nil, err
	}
	return v.FieldByIndex(prop.index).Interface(), nil
}

// Set assigns a converted value into the named property of an instance,
// which must be addressable (a struct pointer). A nil value leaves the
// field at its zero value.
func Set(obj any, prop *Property, value any) error {
	if reflect.ValueOf(obj).Kind() != reflect.Pointer {
		return fmt.Errorf("meta: cannot set %s on non-pointer %T", prop.FieldName, obj)
	}
	v, err := structValue(obj)
	if err != nil {
		return err
	}
	field := v.FieldByIndex(prop.index)
	if value == nil {
		field.Set(reflect.Zero(field.Type()))
		return nil
	}

	val := reflect.ValueOf(value)
	switch {
	case val.Type().AssignableTo(field.Type()):
		field.Set(val)
	case val.Kind() == reflect.Pointer && val.Type().Elem().AssignableTo(field.Type()):
		// Composite conversion yields *T; accept it for a T-typed field.
		field.Set(val.Elem())
	case val.Type().ConvertibleTo(field.Type()) && safeConvert(val.Kind(), field.Kind()):
		field.Set(val.Convert(field.Type()))
	default:
		return fmt.Errorf("meta: value of type %T is not assignable to field %s (%s)", value, prop.FieldName, field.Type())
	}
	return nil
}

// safeConvert restricts reflect conversions to ones that cannot change the
// meaning of the value (no int-to-string rune conversions and the like).
func safeConvert(from, to reflect.Kind) bool {
	if from == to {
		return true
	}
	return isNumeric(from) && isNumeric(to)
}

func isNumeric(k reflect.Kind) bool {
	switch k {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
		reflect.Float32, reflect.Float64:
		return true
	}
	return false
}

func structValue(obj any) (reflect.Value, error) {
	v := reflect.ValueOf(obj)
	if v.Kind() == reflect.Pointer {
		if v.IsNil() {
			return reflect.Value{}, fmt.Errorf("meta: nil instance")
		}
		v = v.Elem()
	}
	if v.Kind() != reflect.Struct {
		return reflect.Value{}, fmt.Errorf("meta: %T is not a struct instance", obj)
	}
	return v, nil
}
