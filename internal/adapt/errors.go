package adapt

import (
	"fmt"

	"github.com/vk/conftree/internal/node"
)

// TypeMismatchError reports a config node whose shape does not match the
// kind an adapter expected for the target type.
type TypeMismatchError struct {
	// Target names the type or class the node was being converted to.
	Target string
	// Want and Got describe the expected and actual node kinds.
	Want node.Kind
	Got  node.Kind
}

// Error implements the error interface.
func (e *TypeMismatchError) Error() string {
	return fmt.Sprintf("adapt: configuration node is not a %s (got %s, target %s)", e.Want, e.Got, e.Target)
}

// MalformedIdentityError reports an identity key that is present on a
// composite node but is not a string.
type MalformedIdentityError struct {
	Value any
}

// Error implements the error interface.
func (e *MalformedIdentityError) Error() string {
	return fmt.Sprintf("adapt: identity key is malformed: %v (%T)", e.Value, e.Value)
}

// PropertyError reports a failure converting, assigning or reading a single
// property. It names the property and its declaring class and wraps the
// underlying cause, forming a diagnostic chain back to the deepest failure.
type PropertyError struct {
	Class    string
	Property string
	Err      error
}

// Error implements the error interface.
func (e *PropertyError) Error() string {
	return fmt.Sprintf("adapt: property %q in class %s: %v", e.Property, e.Class, e.Err)
}

// Unwrap exposes the underlying cause.
func (e *PropertyError) Unwrap() error { return e.Err }

// SchemaError reports a failure while deriving descriptive metadata for a
// class, other than the documented default-normalization fallback.
type SchemaError struct {
	Class    string
	Property string
	Err      error
}

// Error implements the error interface.
func (e *SchemaError) Error() string {
	return fmt.Sprintf("adapt: schema for property %q in class %s: %v", e.Property, e.Class, e.Err)
}

// Unwrap exposes the underlying cause.
func (e *SchemaError) Unwrap() error { return e.Err }
