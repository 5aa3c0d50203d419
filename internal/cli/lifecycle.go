package cli

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/pflag"

	"github.com/dottey/cupctl/internal/adapters/archive"
	"github.com/dottey/cupctl/internal/adapters/store"
	lifecycle "github.com/dottey/cupctl/internal/app"
	"github.com/dottey/cupctl/pkg/logger"
)

// flagSet builds a pflag set with the shared --root flag, defaulted
// from configuration. The flag beats the config value when set.
func (e *env) flagSet(name string) (*pflag.FlagSet, *string) {
	fs := pflag.NewFlagSet(name, pflag.ContinueOnError)
	fs.SetOutput(e.stderr)
	root := fs.String("root", e.cfg.Root, "data root directory")
	return fs, root
}

func (e *env) manager(root string) *lifecycle.Manager {
	return lifecycle.New(store.New(root),
		lifecycle.WithLogger(e.log),
		lifecycle.WithTemplateFormat(e.cfg.TemplateFormat),
	)
}

func (e *env) create(ctx context.Context, args []string) error {
	fs, root := e.flagSet("create")
	title := fs.String("title", "", "display title")
	league := fs.Int("league", 1500, "CP tier")
	defFile := fs.String("definition", "", "definition body file")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() != 1 {
		return fmt.Errorf("create takes exactly one codename, got %d args", fs.NArg())
	}

	var body []byte
	if *defFile != "" {
		var err error
		body, err = os.ReadFile(*defFile)
		if err != nil {
			return fmt.Errorf("read definition body: %w", err)
		}
	}

	result, err := e.manager(*root).Create(ctx, fs.Arg(0), *title, *league, body)
	if err != nil {
		return err
	}
	return e.printJSON(result)
}

func (e *env) clone(ctx context.Context, args []string) error {
	fs, root := e.flagSet("clone")
	title := fs.String("title", "", "display title for the clone")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() != 2 {
		return fmt.Errorf("clone takes old and new codenames, got %d args", fs.NArg())
	}

	result, err := e.manager(*root).Clone(ctx, fs.Arg(0), fs.Arg(1), *title)
	if err != nil {
		return err
	}
	return e.printJSON(result)
}

func (e *env) rename(ctx context.Context, args []string) error {
	fs, root := e.flagSet("rename")
	title := fs.String("title", "", "new display title")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() != 2 {
		return fmt.Errorf("rename takes old and new codenames, got %d args", fs.NArg())
	}

	result, err := e.manager(*root).Rename(ctx, fs.Arg(0), fs.Arg(1), *title)
	if err != nil {
		return err
	}
	return e.printJSON(result)
}

func (e *env) delete(ctx context.Context, args []string) error {
	fs, root := e.flagSet("delete")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() != 1 {
		return fmt.Errorf("delete takes exactly one codename, got %d args", fs.NArg())
	}

	result, err := e.manager(*root).Delete(ctx, fs.Arg(0))
	if err != nil {
		return err
	}
	return e.printJSON(result)
}

func (e *env) packageCup(ctx context.Context, args []string) error {
	fs, root := e.flagSet("package")
	distDir := fs.String("dist-dir", e.cfg.DistDir, "archive output directory")
	baseURL := fs.String("base-url", e.cfg.DistBaseURL, "retrieval URL prefix")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() != 1 {
		return fmt.Errorf("package takes exactly one codename, got %d args", fs.NArg())
	}

	// Relative dist dirs resolve against the data root.
	dist := *distDir
	if !filepath.IsAbs(dist) {
		dist = filepath.Join(*root, dist)
	}

	p := archive.New(store.New(*root), dist, *baseURL, archive.WithLogger(e.log))
	result, err := p.Package(ctx, fs.Arg(0))
	if err != nil {
		return err
	}
	return e.printJSON(result)
}

// verifyArchive reports structural problems in a packaged archive. A
// failing report is structured output, not a command error, so it
// still prints before the non-zero exit.
func (e *env) verifyArchive(ctx context.Context, args []string) int {
	fs := pflag.NewFlagSet("verify-archive", pflag.ContinueOnError)
	fs.SetOutput(e.stderr)
	if err := fs.Parse(args); err != nil {
		return exitUsage
	}
	if fs.NArg() != 1 {
		fmt.Fprintln(e.stderr, "verify-archive takes exactly one zip path")
		return exitUsage
	}

	report, err := archive.Verify(fs.Arg(0))
	if err != nil {
		e.log.Error(ctx, "verification failed", logger.Error(err))
		fmt.Fprintln(e.stderr, "cupctl verify-archive:", err)
		return exitError
	}
	if err := e.printJSON(report); err != nil {
		return exitError
	}
	if !report.OK() {
		return exitError
	}
	return exitOK
}
