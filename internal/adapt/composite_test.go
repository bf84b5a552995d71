package adapt

import (
	"context"
	"errors"
	"reflect"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vk/conftree/internal/meta"
	"github.com/vk/conftree/internal/node"
)

type endpoint struct {
	UUID string `conf:",identity"`
	Name string `conf:"name"`
	Port int    `conf:"port"`
}

type archive struct {
	Label   string    `conf:"label" label:"Label" order:"1"`
	Primary *endpoint `conf:"primary"`
	Backup  *endpoint `conf:"backup"`
}

func newTestRuntime(t *testing.T) *Runtime {
	t.Helper()
	classes := meta.NewRegistry()
	for _, register := range []func() error{
		func() error { _, err := meta.Register[endpoint](classes); return err },
		func() error { _, err := meta.Register[archive](classes); return err },
	} {
		require.NoError(t, register())
	}
	return NewRuntime(classes)
}

func TestLoadSimpleComposite(t *testing.T) {
	rt := newTestRuntime(t)
	n := map[string]any{"name": "printer1", "port": int64(104)}

	ep, err := Load[endpoint](context.Background(), rt, n)
	require.NoError(t, err)
	assert.Equal(t, "printer1", ep.Name)
	assert.Equal(t, 104, ep.Port)
	assert.Empty(t, ep.UUID)
	// No identity key in the node means no dedup bookkeeping either.
}

func TestLoadNilNode(t *testing.T) {
	rt := newTestRuntime(t)
	ep, err := Load[endpoint](context.Background(), rt, nil)
	require.NoError(t, err)
	assert.Nil(t, ep)
}

func TestLoadTypeMismatch(t *testing.T) {
	rt := newTestRuntime(t)
	_, err := Load[endpoint](context.Background(), rt, []any{"not", "a", "map"})
	var mismatch *TypeMismatchError
	require.ErrorAs(t, err, &mismatch)
	assert.Equal(t, node.Map, mismatch.Want)
	assert.Equal(t, node.List, mismatch.Got)
	assert.Contains(t, mismatch.Target, "endpoint")
}

func TestLoadMalformedIdentity(t *testing.T) {
	rt := newTestRuntime(t)

	for name, bad := range map[string]any{
		"number": int64(5),
		"list":   []any{"x"},
	} {
		t.Run(name, func(t *testing.T) {
			lc := rt.NewLoading()
			_, err := lc.Materialize(context.Background(), map[string]any{node.UUIDKey: bad}, reflect.TypeOf((*endpoint)(nil)))
			var malformed *MalformedIdentityError
			require.ErrorAs(t, err, &malformed)
			assert.Equal(t, bad, malformed.Value)
			// No registration happened for the bad key.
			assert.Zero(t, lc.Identities().Len())
		})
	}
}

func TestLoadMissingRequiredProperty(t *testing.T) {
	rt := newTestRuntime(t)
	// port is numeric with no default, so its absence fails the populate.
	_, err := Load[endpoint](context.Background(), rt, map[string]any{"name": "x"})

	var propErr *PropertyError
	require.ErrorAs(t, err, &propErr)
	assert.Equal(t, "port", propErr.Property)
	assert.Equal(t, "endpoint", propErr.Class)
}

func TestLoadNestedComposite(t *testing.T) {
	rt := newTestRuntime(t)
	n := map[string]any{
		"label": "main",
		"primary": map[string]any{
			"name": "p1",
			"port": int64(104),
		},
	}

	a, err := Load[archive](context.Background(), rt, n)
	require.NoError(t, err)
	assert.Equal(t, "main", a.Label)
	require.NotNil(t, a.Primary)
	assert.Equal(t, "p1", a.Primary.Name)
	assert.Equal(t, 104, a.Primary.Port)
	assert.Nil(t, a.Backup)
}

func TestIdentityKeyPopulatesIdentityField(t *testing.T) {
	rt := newTestRuntime(t)
	n := map[string]any{node.UUIDKey: "X", "name": "printer1", "port": int64(104)}

	ep, err := Load[endpoint](context.Background(), rt, n)
	require.NoError(t, err)
	assert.Equal(t, "X", ep.UUID)
}

func TestDiamondSharingYieldsOneInstance(t *testing.T) {
	rt := newTestRuntime(t)
	shared := map[string]any{node.UUIDKey: "EP", "name": "p1", "port": int64(104)}
	n := map[string]any{
		"label":   "diamond",
		"primary": shared,
		"backup":  shared,
	}

	a, err := Load[archive](context.Background(), rt, n)
	require.NoError(t, err)
	require.NotNil(t, a.Primary)
	assert.Same(t, a.Primary, a.Backup)
}

func TestConcurrentMaterializeSharesOneOutcome(t *testing.T) {
	rt := newTestRuntime(t)
	lc := rt.NewLoading()
	n := map[string]any{node.UUIDKey: "X", "name": "printer1", "port": int64(104)}

	const callers = 32
	results := make([]any, callers)
	errs := make([]error, callers)
	var wg sync.WaitGroup
	start := make(chan struct{})

	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			<-start
			results[i], errs[i] = lc.Materialize(context.Background(), n, reflect.TypeOf((*endpoint)(nil)))
		}(i)
	}
	close(start)
	wg.Wait()

	first, ok := results[0].(*endpoint)
	require.True(t, ok)
	assert.Equal(t, "printer1", first.Name)
	assert.Equal(t, 104, first.Port)
	for i := 0; i < callers; i++ {
		require.NoError(t, errs[i])
		assert.Same(t, first, results[i])
	}

	// A fresh top-level load of the same literal node yields a different
	// instance with equal field values.
	again, err := Load[endpoint](context.Background(), rt, n)
	require.NoError(t, err)
	assert.NotSame(t, first, again)
	assert.Equal(t, first.Name, again.Name)
	assert.Equal(t, first.Port, again.Port)
}

// countingAdapter counts Decode invocations, standing in for a property
// whose conversion must run at most once per identity key.
type countingAdapter struct {
	decodes *atomic.Int32
	fail    error
}

func (c *countingAdapter) Decode(ctx context.Context, n any, prop *meta.Property, lc *Loading) (any, error) {
	c.decodes.Add(1)
	if c.fail != nil {
		return nil, c.fail
	}
	return "counted", nil
}

func (c *countingAdapter) Encode(ctx context.Context, v any, prop *meta.Property, sc *Saving) (any, error) {
	return v, nil
}

func (c *countingAdapter) Schema(ctx context.Context, prop *meta.Property, pc *Processing) (map[string]any, error) {
	return map[string]any{"type": "string"}, nil
}

func (c *countingAdapter) Normalize(ctx context.Context, raw any, prop *meta.Property, pc *Processing) (any, error) {
	return raw, nil
}

type countedClass struct {
	Payload string `conf:"payload"`
}

func TestAtMostOncePopulatePerIdentityKey(t *testing.T) {
	classes := meta.NewRegistry()
	_, err := meta.Register[countedClass](classes)
	require.NoError(t, err)
	rt := NewRuntime(classes)

	counting := &countingAdapter{decodes: &atomic.Int32{}}
	rt.RegisterAdapter(reflect.TypeOf(""), counting)

	lc := rt.NewLoading()
	n := map[string]any{node.UUIDKey: "ONCE", "payload": "x"}

	const callers = 24
	var wg sync.WaitGroup
	start := make(chan struct{})
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			_, err := lc.Materialize(context.Background(), n, reflect.TypeOf((*countedClass)(nil)))
			assert.NoError(t, err)
		}()
	}
	close(start)
	wg.Wait()

	assert.Equal(t, int32(1), counting.decodes.Load())
}

func TestFailureSharedVerbatimAcrossWaiters(t *testing.T) {
	classes := meta.NewRegistry()
	_, err := meta.Register[countedClass](classes)
	require.NoError(t, err)
	rt := NewRuntime(classes)

	cause := errors.New("backing store unreachable")
	counting := &countingAdapter{decodes: &atomic.Int32{}, fail: cause}
	rt.RegisterAdapter(reflect.TypeOf(""), counting)

	lc := rt.NewLoading()
	n := map[string]any{node.UUIDKey: "DOOMED", "payload": "x"}

	const callers = 16
	errs := make([]error, callers)
	var wg sync.WaitGroup
	start := make(chan struct{})
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			<-start
			_, errs[i] = lc.Materialize(context.Background(), n, reflect.TypeOf((*countedClass)(nil)))
		}(i)
	}
	close(start)
	wg.Wait()

	// One populate ran; every caller observes the identical recorded
	// failure, not a copy or a generic marker.
	assert.Equal(t, int32(1), counting.decodes.Load())
	for i := 0; i < callers; i++ {
		require.Error(t, errs[i])
		assert.Same(t, errs[0], errs[i])
		assert.ErrorIs(t, errs[i], cause)
		var propErr *PropertyError
		require.ErrorAs(t, errs[i], &propErr)
		assert.Equal(t, "payload", propErr.Property)
	}
}

func TestStatefulModeNeverRegisters(t *testing.T) {
	rt := newTestRuntime(t)
	lc := rt.NewLoading()

	target := &endpoint{}
	bound := NewBoundComposite(target)
	n := map[string]any{node.UUIDKey: "X", "name": "printer1", "port": int64(104)}

	got, err := bound.Decode(context.Background(), n, nil, lc)
	require.NoError(t, err)
	assert.Same(t, target, got)
	assert.Equal(t, "printer1", target.Name)
	assert.Equal(t, 104, target.Port)
	// Identity coordination is skipped entirely in stateful mode.
	assert.Zero(t, lc.Identities().Len())
}

func TestLoadInto(t *testing.T) {
	rt := newTestRuntime(t)
	target := &endpoint{}
	err := LoadInto(context.Background(), rt, map[string]any{"name": "a", "port": int64(1)}, target)
	require.NoError(t, err)
	assert.Equal(t, "a", target.Name)

	err = LoadInto(context.Background(), rt, map[string]any{}, endpoint{})
	require.Error(t, err)
}
