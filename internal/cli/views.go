package cli

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/pflag"
	"github.com/tidwall/gjson"

	"github.com/dottey/cupctl/internal/adapters/archive"
	"github.com/dottey/cupctl/internal/adapters/store"
	"github.com/dottey/cupctl/internal/adapters/worktree"
	"github.com/dottey/cupctl/internal/domain/model"
	"github.com/dottey/cupctl/internal/domain/moveset"
	"github.com/dottey/cupctl/internal/domain/threatgroup"
	"github.com/dottey/cupctl/internal/domain/zygarde"
)

func (e *env) filter(_ context.Context, args []string) error {
	fs := pflag.NewFlagSet("filter", pflag.ContinueOnError)
	fs.SetOutput(e.stderr)
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() != 2 {
		return fmt.Errorf("filter takes an id-list file and a records file, got %d args", fs.NArg())
	}

	list, err := os.Open(fs.Arg(0))
	if err != nil {
		return fmt.Errorf("open id list: %w", err)
	}
	defer list.Close()

	wanted, err := threatgroup.ParseIDs(list)
	if err != nil {
		return err
	}

	records, err := os.ReadFile(fs.Arg(1))
	if err != nil {
		return fmt.Errorf("read records: %w", err)
	}

	out, err := threatgroup.Filter(wanted, records)
	if err != nil {
		return err
	}
	return e.printRaw(out)
}

// zygarde generates the allow-list config from either a live cup (by
// codename, resolved under the data root) or a packaged archive (by
// .zip path).
func (e *env) zygarde(_ context.Context, args []string) error {
	fs, root := e.flagSet("zygarde")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() != 1 {
		return fmt.Errorf("zygarde takes a codename or a zip path, got %d args", fs.NArg())
	}
	source := fs.Arg(0)

	var def, snapshot []byte
	var err error
	if strings.HasSuffix(source, ".zip") {
		def, snapshot, err = archiveSnapshot(source)
	} else {
		def, snapshot, err = liveSnapshot(store.New(*root), source)
	}
	if err != nil {
		return err
	}

	cfg, err := zygarde.Generate(def, snapshot)
	if err != nil {
		return err
	}
	return e.printJSON(cfg)
}

// liveSnapshot reads a cup's definition and league snapshot from the
// data root, preferring the override record over the overall rankings.
func liveSnapshot(st *store.Store, code string) ([]byte, []byte, error) {
	def, err := st.ReadJSON(st.DefinitionPath(code))
	if err != nil {
		return nil, nil, err
	}

	league := gjson.GetBytes(def, "league")
	if !league.Exists() {
		return nil, nil, fmt.Errorf("%w: definition has no league", model.ErrMissingField)
	}

	snapPath := st.OverridePath(code, int(league.Int()))
	if !st.Exists(snapPath) {
		snapPath = st.RankingPath(code, "overall", int(league.Int()))
	}
	snapshot, err := st.ReadRaw(snapPath)
	if err != nil {
		return nil, nil, err
	}
	return def, snapshot, nil
}

// archiveSnapshot recovers the definition and league snapshot from a
// packaged archive.
func archiveSnapshot(zipPath string) ([]byte, []byte, error) {
	b, err := archive.OpenBundle(zipPath)
	if err != nil {
		return nil, nil, err
	}
	defer b.Close()

	def, err := b.Definition()
	if err != nil {
		return nil, nil, err
	}

	league := gjson.GetBytes(def, "league")
	if !league.Exists() {
		return nil, nil, fmt.Errorf("%w: definition has no league", model.ErrMissingField)
	}

	snapshot, err := b.Snapshot(int(league.Int()))
	if err != nil {
		return nil, nil, err
	}
	return def, snapshot, nil
}

func (e *env) movesets(_ context.Context, args []string) error {
	fs, root := e.flagSet("movesets")
	league := fs.Int("league", 1500, "CP tier")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() != 1 {
		return fmt.Errorf("movesets takes exactly one codename, got %d args", fs.NArg())
	}
	code := fs.Arg(0)

	st := store.New(*root)
	def, err := st.ReadJSON(st.DefinitionPath(code))
	if err != nil {
		return err
	}
	rankings, err := st.ReadJSON(st.RankingPath(code, "overall", *league))
	if err != nil {
		return err
	}

	out, err := moveset.Generate(def, rankings)
	if err != nil {
		return err
	}
	return e.printRaw(out)
}

func (e *env) resolveMerge(ctx context.Context, args []string) error {
	fs := pflag.NewFlagSet("resolve-merge", pflag.ContinueOnError)
	fs.SetOutput(e.stderr)
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() != 1 {
		return fmt.Errorf("resolve-merge takes exactly one working tree path, got %d args", fs.NArg())
	}
	dir := fs.Arg(0)

	conflicts, err := worktree.DetectConflicts(ctx, dir)
	if err != nil {
		return err
	}

	r := worktree.New(worktree.NewGitActions(dir), worktree.WithLogger(e.log))
	resolutions, err := r.Resolve(ctx, conflicts)
	if err != nil {
		return err
	}
	if resolutions == nil {
		resolutions = []worktree.Resolution{}
	}
	return e.printJSON(resolutions)
}
