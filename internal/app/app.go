// Package app wires the loader, the class registry and the conversion
// runtime into the operations the CLI exposes.
package app

import (
	"context"
	"fmt"
	"io"
	"reflect"

	"github.com/vk/conftree/internal/adapt"
	"github.com/vk/conftree/internal/ctxlog"
	"github.com/vk/conftree/internal/loader"
	"github.com/vk/conftree/internal/node"
)

// Config carries the options one invocation runs with.
type Config struct {
	// Mode selects the operation: "fmt", "check" or "schema".
	Mode string
	// Path is the configuration file for fmt and check.
	Path string
	// Class names the target class for check and schema. Empty means
	// Device, the root class.
	Class string
}

// App executes one CLI invocation against the built-in runtime.
type App struct {
	out io.Writer
	rt  *adapt.Runtime
}

// New assembles an App writing its results to out.
func New(out io.Writer) (*App, error) {
	rt, err := NewRuntime()
	if err != nil {
		return nil, err
	}
	return &App{out: out, rt: rt}, nil
}

// Runtime exposes the assembled conversion runtime.
func (a *App) Runtime() *adapt.Runtime { return a.rt }

// Run dispatches on the configured mode.
func (a *App) Run(ctx context.Context, cfg *Config) error {
	logger := ctxlog.FromContext(ctx).With("mode", cfg.Mode)
	ctx = ctxlog.WithLogger(ctx, logger)

	switch cfg.Mode {
	case "fmt":
		return a.formatFile(ctx, cfg.Path)
	case "check":
		return a.checkFile(ctx, cfg.Path, cfg.Class)
	case "schema":
		return a.printSchema(ctx, cfg.Class)
	}
	return fmt.Errorf("app: unknown mode %q (want fmt, check or schema)", cfg.Mode)
}

// formatFile re-emits any supported config file as canonical sorted JSON.
func (a *App) formatFile(ctx context.Context, path string) error {
	tree, err := loader.Load(ctx, path)
	if err != nil {
		return err
	}
	return a.emit(tree)
}

// checkFile materializes a config file into its class and saves it back,
// surfacing the deepest failing property path on error.
func (a *App) checkFile(ctx context.Context, path, class string) error {
	tree, err := loader.Load(ctx, path)
	if err != nil {
		return err
	}
	cls, err := a.resolveClass(class)
	if err != nil {
		return err
	}

	obj, err := a.rt.NewLoading().Materialize(ctx, tree, reflect.PointerTo(cls))
	if err != nil {
		return fmt.Errorf("app: %s does not satisfy class %s: %w", path, cls.Name(), err)
	}
	saved, err := adapt.Save(ctx, a.rt, obj)
	if err != nil {
		return err
	}
	return a.emit(saved)
}

// printSchema emits the descriptive metadata tree for a class.
func (a *App) printSchema(ctx context.Context, class string) error {
	cls, err := a.resolveClass(class)
	if err != nil {
		return err
	}
	schema, err := adapt.Schema(ctx, a.rt, reflect.PointerTo(cls))
	if err != nil {
		return err
	}
	return a.emit(schema)
}

func (a *App) resolveClass(name string) (reflect.Type, error) {
	if name == "" {
		return reflect.TypeOf(Device{}), nil
	}
	cls, ok := a.rt.Classes().LookupClass(name)
	if !ok {
		return nil, fmt.Errorf("app: unknown class %q (registered: %v)", name, a.rt.Classes().ClassNames())
	}
	return cls.Type, nil
}

func (a *App) emit(tree any) error {
	out, err := node.CanonicalJSON(tree)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(a.out, string(out))
	return err
}
