// Package cli parses command-line arguments for the conftree tool.
package cli

import (
	"flag"
	"fmt"
	"io"
	"log/slog"
	"strings"
)

// ExitError is an error carrying a specific process exit code.
type ExitError struct {
	Code    int
	Message string
}

// Error implements the error interface.
func (e *ExitError) Error() string {
	return e.Message
}

// Options is the parsed command line.
type Options struct {
	Mode      string
	Path      string
	Class     string
	LogLevel  string
	LogFormat string
}

// Parse processes command-line arguments. It returns the parsed Options, a
// boolean indicating the program should exit cleanly (help requested), or
// an ExitError for invalid usage.
func Parse(args []string, output io.Writer) (*Options, bool, error) {
	flagSet := flag.NewFlagSet("conftree", flag.ContinueOnError)
	flagSet.SetOutput(output)

	flagSet.Usage = func() {
		fmt.Fprint(output, `
conftree - convert configuration trees to typed objects and back.

Usage:
  conftree [options] MODE [PATH]

Modes:
  fmt     Re-emit PATH as canonical sorted JSON.
  check   Materialize PATH into a class and print the saved form.
  schema  Print the descriptive schema of a class.

Options:
`)
		flagSet.PrintDefaults()
	}

	classFlag := flagSet.String("class", "", "Target class for check/schema. Defaults to the root Device class.")
	logLevelFlag := flagSet.String("log-level", "info", "Logging level: 'debug', 'info', 'warn' or 'error'.")
	logFormatFlag := flagSet.String("log-format", "text", "Log output format: 'text' or 'json'.")

	if err := flagSet.Parse(args); err != nil {
		if err == flag.ErrHelp {
			return nil, true, nil
		}
		return nil, false, &ExitError{Code: 2, Message: err.Error()}
	}

	rest := flagSet.Args()
	if len(rest) == 0 {
		flagSet.Usage()
		return nil, false, &ExitError{Code: 2, Message: "missing MODE argument"}
	}

	opts := &Options{
		Mode:      rest[0],
		Class:     *classFlag,
		LogLevel:  strings.ToLower(*logLevelFlag),
		LogFormat: strings.ToLower(*logFormatFlag),
	}
	switch opts.Mode {
	case "fmt", "check":
		if len(rest) < 2 {
			return nil, false, &ExitError{Code: 2, Message: fmt.Sprintf("mode %q needs a PATH argument", opts.Mode)}
		}
		opts.Path = rest[1]
	case "schema":
	default:
		return nil, false, &ExitError{Code: 2, Message: fmt.Sprintf("unknown mode %q", opts.Mode)}
	}
	return opts, false, nil
}

// Level maps the parsed log level name onto a slog.Level.
func (o *Options) Level() slog.Level {
	switch o.LogLevel {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
