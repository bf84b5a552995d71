package loader

import (
	"fmt"

	ctyjson "github.com/zclconf/go-cty/cty/json"
)

// ParseJSON decodes a JSON document into a node tree. Typing goes through
// cty so numbers keep their integer-ness where possible instead of the
// blanket float64 a plain decode would produce.
func ParseJSON(src []byte) (any, error) {
	ty, err := ctyjson.ImpliedType(src)
	if err != nil {
		return nil, fmt.Errorf("loader: implying JSON type: %w", err)
	}
	val, err := ctyjson.Unmarshal(src, ty)
	if err != nil {
		return nil, fmt.Errorf("loader: decoding JSON: %w", err)
	}
	native, err := ctyToNative(val)
	if err != nil {
		return nil, fmt.Errorf("loader: lowering JSON value: %w", err)
	}
	return native, nil
}
