package worktree

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
)

// GitActions drives a real git working tree. Ours is the local side,
// theirs the upstream side being merged in.
type GitActions struct {
	dir string
}

// NewGitActions returns Actions over the repository rooted at dir.
func NewGitActions(dir string) *GitActions {
	return &GitActions{dir: dir}
}

func (g *GitActions) KeepLocal(ctx context.Context, path string) error {
	if err := g.git(ctx, "checkout", "--ours", "--", path); err != nil {
		return err
	}
	return g.git(ctx, "add", "--", path)
}

func (g *GitActions) TakeUpstream(ctx context.Context, path string) error {
	if err := g.git(ctx, "checkout", "--theirs", "--", path); err != nil {
		return err
	}
	return g.git(ctx, "add", "--", path)
}

func (g *GitActions) Delete(ctx context.Context, path string) error {
	return g.git(ctx, "rm", "--force", "--quiet", "--", path)
}

func (g *GitActions) ReadLocal(path string) ([]byte, error) {
	return os.ReadFile(filepath.Join(g.dir, filepath.FromSlash(path)))
}

func (g *GitActions) WriteLocal(path string, data []byte) error {
	return os.WriteFile(filepath.Join(g.dir, filepath.FromSlash(path)), data, 0o644)
}

func (g *GitActions) Stage(ctx context.Context, path string) error {
	return g.git(ctx, "add", "--", path)
}

func (g *GitActions) git(ctx context.Context, args ...string) error {
	cmd := exec.CommandContext(ctx, "git", append([]string{"-C", g.dir}, args...)...)
	out, err := cmd.CombinedOutput()
	if err != nil {
		return fmt.Errorf("git %s: %w: %s", strings.Join(args, " "), err, strings.TrimSpace(string(out)))
	}
	return nil
}

// DetectConflicts lists the unmerged paths of the repository at dir,
// in porcelain order. UD entries (deleted by the upstream side while
// modified locally) are flagged DeletedUpstream.
func DetectConflicts(ctx context.Context, dir string) ([]Conflict, error) {
	cmd := exec.CommandContext(ctx, "git", "-C", dir, "status", "--porcelain")
	out, err := cmd.Output()
	if err != nil {
		return nil, fmt.Errorf("git status: %w", err)
	}

	var conflicts []Conflict
	for _, line := range strings.Split(string(out), "\n") {
		if len(line) < 4 {
			continue
		}
		code := line[:2]
		if !unmerged(code) {
			continue
		}
		conflicts = append(conflicts, Conflict{
			Path:            strings.TrimSpace(line[3:]),
			DeletedUpstream: code == "UD",
		})
	}
	return conflicts, nil
}

// unmerged reports whether a porcelain XY code marks a conflict.
func unmerged(code string) bool {
	switch code {
	case "DD", "AU", "UD", "UA", "DU", "AA", "UU":
		return true
	}
	return false
}
