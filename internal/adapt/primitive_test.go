package adapt

import (
	"context"
	"reflect"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vk/conftree/internal/meta"
)

type protocol string

type scalarClass struct {
	Host    string   `conf:"host"`
	Port    int      `conf:"port"`
	Ratio   float64  `conf:"ratio"`
	Active  bool     `conf:"active"`
	Proto   protocol `conf:"proto" default:"dicom"`
	Aliases []string `conf:"aliases"`
}

func scalarRuntime(t *testing.T) *Runtime {
	t.Helper()
	classes := meta.NewRegistry()
	_, err := meta.Register[scalarClass](classes)
	require.NoError(t, err)
	rt := NewRuntime(classes)
	require.NoError(t, rt.RegisterEnum(reflect.TypeOf(protocol("")), "dicom", "hl7", "web"))
	return rt
}

func TestPrimitiveDecodeKinds(t *testing.T) {
	rt := scalarRuntime(t)
	n := map[string]any{
		"host":    "pacs1",
		"port":    int64(104),
		"ratio":   0.75,
		"active":  true,
		"proto":   "hl7",
		"aliases": []any{"a", "b"},
	}

	sc, err := Load[scalarClass](context.Background(), rt, n)
	require.NoError(t, err)
	assert.Equal(t, "pacs1", sc.Host)
	assert.Equal(t, 104, sc.Port)
	assert.Equal(t, 0.75, sc.Ratio)
	assert.True(t, sc.Active)
	assert.Equal(t, protocol("hl7"), sc.Proto)
	assert.Equal(t, []string{"a", "b"}, sc.Aliases)
}

func TestPrimitiveDecodeNumericString(t *testing.T) {
	rt := scalarRuntime(t)
	n := map[string]any{"host": "h", "port": "104", "ratio": int64(1), "active": "true", "proto": "web"}

	sc, err := Load[scalarClass](context.Background(), rt, n)
	require.NoError(t, err)
	assert.Equal(t, 104, sc.Port)
	assert.Equal(t, 1.0, sc.Ratio)
	assert.True(t, sc.Active)
}

func TestPrimitiveDecodeMismatch(t *testing.T) {
	rt := scalarRuntime(t)

	t.Run("map into string", func(t *testing.T) {
		_, err := Load[scalarClass](context.Background(), rt, map[string]any{
			"host": map[string]any{}, "port": int64(1), "ratio": 1.0, "active": true,
		})
		var propErr *PropertyError
		require.ErrorAs(t, err, &propErr)
		assert.Equal(t, "host", propErr.Property)
		var mismatch *TypeMismatchError
		assert.ErrorAs(t, err, &mismatch)
	})

	t.Run("garbage into int", func(t *testing.T) {
		_, err := Load[scalarClass](context.Background(), rt, map[string]any{
			"host": "h", "port": "not a number", "ratio": 1.0, "active": true,
		})
		var propErr *PropertyError
		require.ErrorAs(t, err, &propErr)
		assert.Equal(t, "port", propErr.Property)
	})
}

func TestEnumDecodeRejectsNonMember(t *testing.T) {
	rt := scalarRuntime(t)
	_, err := Load[scalarClass](context.Background(), rt, map[string]any{
		"host": "h", "port": int64(1), "ratio": 1.0, "active": true, "proto": "ftp",
	})
	var propErr *PropertyError
	require.ErrorAs(t, err, &propErr)
	assert.Equal(t, "proto", propErr.Property)
	assert.Contains(t, err.Error(), "ftp")
}

func TestEnumDefaultApplied(t *testing.T) {
	rt := scalarRuntime(t)
	sc, err := Load[scalarClass](context.Background(), rt, map[string]any{
		"host": "h", "port": int64(1), "ratio": 1.0, "active": true,
	})
	require.NoError(t, err)
	assert.Equal(t, protocol("dicom"), sc.Proto)
}

func TestEnumSchemaListsValues(t *testing.T) {
	rt := scalarRuntime(t)
	s, err := SchemaOf[scalarClass](context.Background(), rt)
	require.NoError(t, err)
	proto := s["properties"].(map[string]any)["proto"].(map[string]any)
	assert.Equal(t, "string", proto["type"])
	assert.Equal(t, []any{"dicom", "hl7", "web"}, proto["enum"])
	assert.Equal(t, protocol("dicom"), proto["default"])
}

func TestSliceDecodeMismatch(t *testing.T) {
	rt := scalarRuntime(t)
	_, err := Load[scalarClass](context.Background(), rt, map[string]any{
		"host": "h", "port": int64(1), "ratio": 1.0, "active": true, "aliases": "not a list",
	})
	var propErr *PropertyError
	require.ErrorAs(t, err, &propErr)
	assert.Equal(t, "aliases", propErr.Property)
	var mismatch *TypeMismatchError
	assert.ErrorAs(t, err, &mismatch)
}

func TestAbsentNilableLeavesZero(t *testing.T) {
	rt := scalarRuntime(t)
	sc, err := Load[scalarClass](context.Background(), rt, map[string]any{
		"port": int64(1), "ratio": 1.0, "active": true,
	})
	require.NoError(t, err)
	assert.Empty(t, sc.Host)
	assert.Nil(t, sc.Aliases)
}
