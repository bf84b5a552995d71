package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/vk/conftree/internal/app"
	"github.com/vk/conftree/internal/cli"
	"github.com/vk/conftree/internal/ctxlog"
)

// main is the entrypoint for the conftree tool.
func main() {
	if err := run(os.Stdout, os.Args[1:]); err != nil {
		if exitErr, ok := err.(*cli.ExitError); ok {
			fmt.Fprintln(os.Stderr, exitErr.Message)
			os.Exit(exitErr.Code)
		}
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// run encapsulates the program logic for easier testing and error handling.
func run(outW io.Writer, args []string) error {
	opts, shouldExit, err := cli.Parse(args, outW)
	if err != nil {
		return err
	}
	if shouldExit {
		return nil
	}

	logger := newLogger(opts)
	slog.SetDefault(logger)
	ctx := ctxlog.WithLogger(context.Background(), logger)

	a, err := app.New(outW)
	if err != nil {
		return err
	}
	return a.Run(ctx, &app.Config{Mode: opts.Mode, Path: opts.Path, Class: opts.Class})
}

func newLogger(opts *cli.Options) *slog.Logger {
	handlerOpts := &slog.HandlerOptions{Level: opts.Level()}
	if opts.LogFormat == "json" {
		return slog.New(slog.NewJSONHandler(os.Stderr, handlerOpts))
	}
	return slog.New(slog.NewTextHandler(os.Stderr, handlerOpts))
}
