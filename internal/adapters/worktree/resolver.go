// Package worktree applies the deterministic merge-conflict policy to
// a version-control working tree holding the cup artifact layout.
//
// The policy is ordered; each conflicted file is settled by the first
// rule that claims it and later rules see only what remains:
//
//  1. deleted upstream but modified locally: delete locally
//  2. the formats registry source: keep the local version
//  3. the minified combined-data file: take upstream
//  4. every ranking output file: take upstream
//  5. the raw combined-data file: archive the local content under a
//     timestamped name, then reset it to an empty list
//  6. anything else: take upstream
package worktree

import (
	"context"
	"fmt"
	"path"
	"strings"
	"time"

	"github.com/dottey/cupctl/pkg/logger"
)

// Working-tree-relative locations the policy singles out.
const (
	formatsFile  = "gamemaster/formats.json"
	combinedFile = "gamemaster/gamemaster.json"
	minifiedFile = "gamemaster/gamemaster.min.json"

	rankingsPrefix = "rankings/"
)

// Rule labels reported per resolved file.
const (
	RuleDeleteLocal     = "delete-local"
	RuleKeepLocal       = "keep-local"
	RuleTakeUpstream    = "take-upstream"
	RuleArchiveAndReset = "archive-and-reset"
)

// Conflict is one unmerged path. DeletedUpstream marks files the
// upstream side removed while the local side modified them.
type Conflict struct {
	Path            string `json:"path"`
	DeletedUpstream bool   `json:"deletedUpstream"`
}

// Resolution records which rule settled a path.
type Resolution struct {
	Path string `json:"path"`
	Rule string `json:"rule"`
}

// Actions is the version-control surface the resolver drives. The
// production implementation shells out to git; tests record calls.
type Actions interface {
	// KeepLocal resolves path to the local side and stages it.
	KeepLocal(ctx context.Context, path string) error
	// TakeUpstream resolves path to the upstream side and stages it.
	TakeUpstream(ctx context.Context, path string) error
	// Delete removes path from the tree and the index.
	Delete(ctx context.Context, path string) error
	// ReadLocal returns the working-tree content of path.
	ReadLocal(path string) ([]byte, error)
	// WriteLocal replaces the working-tree content of path.
	WriteLocal(path string, data []byte) error
	// Stage adds path to the index.
	Stage(ctx context.Context, path string) error
}

// Resolver settles merge conflicts per the fixed policy.
type Resolver struct {
	actions Actions
	clock   func() time.Time
	logger  logger.Logger
}

// New creates a Resolver over the given version-control actions.
func New(actions Actions, opts ...Option) *Resolver {
	r := &Resolver{
		actions: actions,
		clock:   time.Now,
	}

	// Apply all options
	for _, opt := range opts {
		opt(r)
	}

	return r
}

// Resolve settles every conflict, in order, and reports the rule
// applied per path. The first failing action aborts with the
// resolutions settled so far.
func (r *Resolver) Resolve(ctx context.Context, conflicts []Conflict) ([]Resolution, error) {
	var resolutions []Resolution

	for _, c := range conflicts {
		rule, err := r.resolve(ctx, c)
		if err != nil {
			return resolutions, fmt.Errorf("resolve %s: %w", c.Path, err)
		}
		resolutions = append(resolutions, Resolution{Path: c.Path, Rule: rule})

		if r.logger != nil {
			r.logger.Info(ctx, "conflict resolved",
				logger.String("path", c.Path),
				logger.String("rule", rule),
			)
		}
	}

	return resolutions, nil
}

func (r *Resolver) resolve(ctx context.Context, c Conflict) (string, error) {
	switch {
	case c.DeletedUpstream:
		return RuleDeleteLocal, r.actions.Delete(ctx, c.Path)
	case c.Path == formatsFile:
		return RuleKeepLocal, r.actions.KeepLocal(ctx, c.Path)
	case c.Path == minifiedFile:
		return RuleTakeUpstream, r.actions.TakeUpstream(ctx, c.Path)
	case strings.HasPrefix(c.Path, rankingsPrefix):
		return RuleTakeUpstream, r.actions.TakeUpstream(ctx, c.Path)
	case c.Path == combinedFile:
		return RuleArchiveAndReset, r.archiveAndReset(ctx, c.Path)
	default:
		return RuleTakeUpstream, r.actions.TakeUpstream(ctx, c.Path)
	}
}

// archiveAndReset preserves the pre-conflict local combined data under
// a timestamped sibling, then resets the file itself to an empty list.
func (r *Resolver) archiveAndReset(ctx context.Context, p string) error {
	if err := r.actions.KeepLocal(ctx, p); err != nil {
		return err
	}

	data, err := r.actions.ReadLocal(p)
	if err != nil {
		return err
	}

	archived := path.Join(path.Dir(p), fmt.Sprintf("gamemaster-%d.json", r.clock().Unix()))
	if err := r.actions.WriteLocal(archived, data); err != nil {
		return err
	}
	if err := r.actions.Stage(ctx, archived); err != nil {
		return err
	}

	if err := r.actions.WriteLocal(p, []byte("[]")); err != nil {
		return err
	}
	return r.actions.Stage(ctx, p)
}
