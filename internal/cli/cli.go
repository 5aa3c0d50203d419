// Package cli dispatches the cupctl subcommands. Structured output
// goes to stdout as JSON; diagnostics go to the logger on stderr, so
// command output stays pipeable.
package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/dottey/cupctl/internal/config"
	"github.com/dottey/cupctl/pkg/logger"
	"github.com/dottey/cupctl/pkg/metrics"
)

// exit codes
const (
	exitOK    = 0
	exitError = 1
	exitUsage = 2
)

const usage = `usage: cupctl <command> [flags] [args]

Lifecycle:
  create <code> --title T --league CP [--definition FILE]
  clone <old> <new> --title T
  rename <old> <new> --title T
  delete <code>

Packaging:
  package <code>
  verify-archive <file.zip>

Derived views:
  filter <id-list-file> <records-file>
  zygarde <code | file.zip>
  movesets <code> --league CP

Maintenance:
  resolve-merge <working-tree>
`

// env carries the loaded configuration and the output streams through
// a single invocation.
type env struct {
	cfg    *config.Config
	stdout io.Writer
	stderr io.Writer
	log    logger.Logger
}

// Run executes one cupctl invocation. args excludes the program name.
func Run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	if len(args) == 0 {
		fmt.Fprint(stderr, usage)
		return exitUsage
	}

	cfg, err := config.Load(ctx)
	if err != nil {
		fmt.Fprintln(stderr, "failed to load config:", err)
		return exitError
	}

	log := logger.Get()
	if err := logger.SetLevelString(cfg.LogLevel); err != nil {
		log.Warn(ctx, "invalid log_level; falling back to info",
			logger.String("log_level", cfg.LogLevel), logger.Error(err))
		_ = logger.SetLevelString("info")
	}

	e := &env{cfg: cfg, stdout: stdout, stderr: stderr, log: log}

	code := e.dispatch(ctx, args[0], args[1:])

	// Metrics are exported per invocation, textfile-collector style.
	if cfg.MetricsDir != "" {
		if err := metrics.WriteTextfile(cfg.MetricsDir); err != nil {
			log.Warn(ctx, "metrics export failed", logger.Error(err))
		}
	}

	return code
}

func (e *env) dispatch(ctx context.Context, command string, args []string) int {
	var err error
	switch command {
	case "create":
		err = e.create(ctx, args)
	case "clone":
		err = e.clone(ctx, args)
	case "rename":
		err = e.rename(ctx, args)
	case "delete":
		err = e.delete(ctx, args)
	case "package":
		err = e.packageCup(ctx, args)
	case "verify-archive":
		return e.verifyArchive(ctx, args)
	case "filter":
		err = e.filter(ctx, args)
	case "zygarde":
		err = e.zygarde(ctx, args)
	case "movesets":
		err = e.movesets(ctx, args)
	case "resolve-merge":
		err = e.resolveMerge(ctx, args)
	case "help", "-h", "--help":
		fmt.Fprint(e.stderr, usage)
		return exitOK
	default:
		fmt.Fprintf(e.stderr, "unknown command %q\n%s", command, usage)
		return exitUsage
	}

	if err != nil {
		e.log.Error(ctx, "command failed",
			logger.String("command", command), logger.Error(err))
		fmt.Fprintf(e.stderr, "cupctl %s: %v\n", command, err)
		return exitError
	}
	return exitOK
}

// printJSON writes v to stdout as indented JSON, one document per
// invocation.
func (e *env) printJSON(v any) error {
	enc := json.NewEncoder(e.stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("encode output: %w", err)
	}
	return nil
}

// printRaw writes pre-rendered JSON to stdout with a trailing newline.
func (e *env) printRaw(data []byte) error {
	if _, err := e.stdout.Write(data); err != nil {
		return fmt.Errorf("write output: %w", err)
	}
	if len(data) == 0 || data[len(data)-1] != '\n' {
		_, err := e.stdout.Write([]byte("\n"))
		return err
	}
	return nil
}
