// Package node defines the generic configuration tree exchanged at every
// boundary of the system: maps of string to node, lists of nodes, and
// scalars (string, int64, float64, bool, or nil for absent).
package node

import (
	"encoding/json"
	"sort"
)

const (
	// UUIDKey is the reserved map key whose string value marks a composite
	// node as representing a potentially shared, deduplicated object.
	UUIDKey = "_.uuid"

	// ClassKey is the reserved map key naming a concrete registered class to
	// instantiate instead of the statically declared property type.
	ClassKey = "#class"
)

// Kind classifies a node value.
type Kind int

const (
	// Absent is a nil node: no value at all.
	Absent Kind = iota
	// Scalar is a string, int64, float64 or bool leaf.
	Scalar
	// Map is a map[string]any with node values.
	Map
	// List is a []any with node values.
	List
)

// String returns a human-readable kind name for diagnostics.
func (k Kind) String() string {
	switch k {
	case Absent:
		return "absent"
	case Scalar:
		return "scalar"
	case Map:
		return "map"
	case List:
		return "list"
	}
	return "unknown"
}

// KindOf reports the kind of an arbitrary node value. Values outside the
// node vocabulary (structs, channels, ...) classify as Scalar; adapters
// reject them during conversion.
func KindOf(n any) Kind {
	switch n.(type) {
	case nil:
		return Absent
	case map[string]any:
		return Map
	case []any:
		return List
	default:
		return Scalar
	}
}

// AsMap returns the node as a map, or false if it is not one.
func AsMap(n any) (map[string]any, bool) {
	m, ok := n.(map[string]any)
	return m, ok
}

// AsList returns the node as a list, or false if it is not one.
func AsList(n any) ([]any, bool) {
	l, ok := n.([]any)
	return l, ok
}

// NormalizeScalar collapses the integer and float widths produced by the
// various loaders (yaml yields int, cty yields int64 or float64, json
// yields float64) into the node vocabulary: int64, float64, string, bool.
func NormalizeScalar(v any) any {
	switch s := v.(type) {
	case int:
		return int64(s)
	case int8:
		return int64(s)
	case int16:
		return int64(s)
	case int32:
		return int64(s)
	case uint:
		return int64(s)
	case uint8:
		return int64(s)
	case uint16:
		return int64(s)
	case uint32:
		return int64(s)
	case uint64:
		return int64(s)
	case float32:
		return float64(s)
	default:
		return v
	}
}

// Normalize applies NormalizeScalar recursively to a whole tree, returning
// a tree that uses only the node vocabulary. Maps and lists are rebuilt.
func Normalize(n any) any {
	switch v := n.(type) {
	case map[string]any:
		out := make(map[string]any, len(v))
		for k, child := range v {
			out[k] = Normalize(child)
		}
		return out
	case []any:
		out := make([]any, len(v))
		for i, child := range v {
			out[i] = Normalize(child)
		}
		return out
	default:
		return NormalizeScalar(v)
	}
}

// Clone deep-copies a node tree. Scalars are immutable and shared.
func Clone(n any) any {
	switch v := n.(type) {
	case map[string]any:
		out := make(map[string]any, len(v))
		for k, child := range v {
			out[k] = Clone(child)
		}
		return out
	case []any:
		out := make([]any, len(v))
		for i, child := range v {
			out[i] = Clone(child)
		}
		return out
	default:
		return v
	}
}

// Equal compares two node trees structurally after normalization, so an
// int-valued scalar from one loader equals the same value from another.
func Equal(a, b any) bool {
	return deepEqual(Normalize(a), Normalize(b))
}

func deepEqual(a, b any) bool {
	switch av := a.(type) {
	case map[string]any:
		bv, ok := b.(map[string]any)
		if !ok || len(av) != len(bv) {
			return false
		}
		for k, ac := range av {
			bc, ok := bv[k]
			if !ok || !deepEqual(ac, bc) {
				return false
			}
		}
		return true
	case []any:
		bv, ok := b.([]any)
		if !ok || len(av) != len(bv) {
			return false
		}
		for i := range av {
			if !deepEqual(av[i], bv[i]) {
				return false
			}
		}
		return true
	default:
		// Numeric scalars compare across int64/float64 when exact.
		if af, aok := toFloat(a); aok {
			bf, bok := toFloat(b)
			return bok && af == bf
		}
		return a == b
	}
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case int64:
		return float64(n), true
	case float64:
		return n, true
	}
	return 0, false
}

// SortedKeys returns a map node's keys in lexicographic order.
func SortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// CanonicalJSON renders a node tree as indented JSON with lexicographically
// ordered map keys, the diffable output format for saved configuration.
func CanonicalJSON(n any) ([]byte, error) {
	return json.MarshalIndent(Normalize(n), "", "  ")
}
