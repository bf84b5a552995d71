package app

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vk/conftree/internal/adapt"
)

const deviceYAML = `
deviceName: pacs1
installed: true
issuer: "Example Org"
services:
  - title: store
    enabled: true
    connection:
      _.uuid: conn-1
      name: main
      hostname: pacs1.example.org
      port: 11112
      protocol: dicom
      tls: true
properties:
  vendor: acme
`

func writeTemp(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestCheckDeviceYAML(t *testing.T) {
	out := &bytes.Buffer{}
	a, err := New(out)
	require.NoError(t, err)

	path := writeTemp(t, "device.yaml", deviceYAML)
	err = a.Run(context.Background(), &Config{Mode: "check", Path: path})
	require.NoError(t, err)

	var saved map[string]any
	require.NoError(t, json.Unmarshal(out.Bytes(), &saved))
	assert.Equal(t, "pacs1", saved["deviceName"])

	services := saved["services"].([]any)
	require.Len(t, services, 1)
	conn := services[0].(map[string]any)["connection"].(map[string]any)
	assert.Equal(t, "conn-1", conn["_.uuid"])
	assert.Equal(t, float64(11112), conn["port"])
}

func TestCheckRejectsBadProtocol(t *testing.T) {
	a, err := New(&bytes.Buffer{})
	require.NoError(t, err)

	path := writeTemp(t, "device.yaml", `
deviceName: pacs1
services:
  - title: store
    connection:
      name: main
      protocol: carrier-pigeon
`)
	err = a.Run(context.Background(), &Config{Mode: "check", Path: path})
	require.Error(t, err)
	var propErr *adapt.PropertyError
	require.ErrorAs(t, err, &propErr)
	assert.Contains(t, err.Error(), "carrier-pigeon")
}

func TestFmtEmitsSortedKeys(t *testing.T) {
	out := &bytes.Buffer{}
	a, err := New(out)
	require.NoError(t, err)

	path := writeTemp(t, "c.hcl", "zeta = 1\nalpha = \"x\"\n")
	require.NoError(t, a.Run(context.Background(), &Config{Mode: "fmt", Path: path}))

	s := out.String()
	assert.Less(t, bytes.IndexByte(out.Bytes(), 'a'), bytes.IndexByte(out.Bytes(), 'z'), s)
}

func TestSchemaMode(t *testing.T) {
	out := &bytes.Buffer{}
	a, err := New(out)
	require.NoError(t, err)

	require.NoError(t, a.Run(context.Background(), &Config{Mode: "schema", Class: "Connection"}))

	var schema map[string]any
	require.NoError(t, json.Unmarshal(out.Bytes(), &schema))
	assert.Equal(t, "object", schema["type"])
	assert.Equal(t, "Connection", schema["class"])

	props := schema["properties"].(map[string]any)
	port := props["port"].(map[string]any)
	// hostname declares order=1, so every property carries uiOrder.
	assert.Equal(t, float64(2), port["uiOrder"])
	name := props["name"].(map[string]any)
	assert.Equal(t, float64(0), name["uiOrder"])

	protocol := props["protocol"].(map[string]any)
	assert.ElementsMatch(t, []any{"dicom", "hl7", "web"}, protocol["enum"].([]any))
}

func TestUnknownClass(t *testing.T) {
	a, err := New(&bytes.Buffer{})
	require.NoError(t, err)
	err = a.Run(context.Background(), &Config{Mode: "schema", Class: "Nope"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown class")
}

func TestUnknownMode(t *testing.T) {
	a, err := New(&bytes.Buffer{})
	require.NoError(t, err)
	err = a.Run(context.Background(), &Config{Mode: "explode"})
	require.Error(t, err)
}
