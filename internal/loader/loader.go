// Package loader reads configuration sources into generic node trees. HCL,
// JSON and YAML inputs all normalize to the same node vocabulary, so the
// conversion layer never knows which syntax a tree came from.
package loader

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/vk/conftree/internal/ctxlog"
)

// Load reads one configuration file and returns its node tree. The syntax
// is chosen by file extension: .hcl, .json, .yaml or .yml.
func Load(ctx context.Context, path string) (any, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("loader: reading %s: %w", path, err)
	}
	ext := strings.ToLower(filepath.Ext(path))
	ctxlog.FromContext(ctx).Debug("loading configuration source", "path", path, "format", ext)

	switch ext {
	case ".hcl":
		return ParseHCL(data, path)
	case ".json":
		return ParseJSON(data)
	case ".yaml", ".yml":
		return ParseYAML(data)
	}
	return nil, fmt.Errorf("loader: unsupported config extension %q (want .hcl, .json, .yaml)", ext)
}
