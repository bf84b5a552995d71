package loader

import (
	"fmt"

	"github.com/vk/conftree/internal/node"
	"gopkg.in/yaml.v3"
)

// ParseYAML decodes a YAML document into a node tree. yaml.v3 produces
// map[string]any for string-keyed mappings and int for whole numbers; the
// result is normalized onto the node vocabulary afterwards.
func ParseYAML(src []byte) (any, error) {
	var raw any
	if err := yaml.Unmarshal(src, &raw); err != nil {
		return nil, fmt.Errorf("loader: decoding YAML: %w", err)
	}
	return node.Normalize(raw), nil
}
