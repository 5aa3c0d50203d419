// Package store resolves the canonical filesystem locations of a cup's
// artifacts and performs the raw file access for them.
//
// A codename maps deterministically to exactly one set of locations
// under the data root. The store interprets no content beyond JSON
// well-formedness; the lifecycle manager and the derived-view
// generators own the semantics.
package store

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/dottey/cupctl/internal/domain/model"
	"github.com/tidwall/gjson"
	"github.com/tidwall/jsonc"
	"github.com/tidwall/pretty"
)

// Store resolves artifact paths against a single data root.
type Store struct {
	root     string
	fileMode os.FileMode
	dirMode  os.FileMode
}

// New creates a Store rooted at root. The root is threaded explicitly
// so tests can point separate stores at temporary directories.
func New(root string, opts ...Option) *Store {
	s := &Store{
		root:     root,
		fileMode: 0o644,
		dirMode:  0o755,
	}

	// Apply all options
	for _, opt := range opts {
		opt(s)
	}

	return s
}

// Root returns the data root this store resolves against.
func (s *Store) Root() string {
	return s.root
}

// DefinitionPath returns the location of a cup's definition record.
func (s *Store) DefinitionPath(code string) string {
	return filepath.Join(s.root, "gamemaster", "cups", code+".json")
}

// FormatsPath returns the location of the formats registry collection.
func (s *Store) FormatsPath() string {
	return filepath.Join(s.root, "gamemaster", "formats.json")
}

// GroupPath returns the location of a cup's group record.
func (s *Store) GroupPath(code string) string {
	return filepath.Join(s.root, "groups", code+".json")
}

// OverridesDir returns the directory holding a cup's override records.
func (s *Store) OverridesDir(code string) string {
	return filepath.Join(s.root, "overrides", code)
}

// OverridePath returns the location of a cup's override record for a CP tier.
func (s *Store) OverridePath(code string, cp int) string {
	return filepath.Join(s.OverridesDir(code), fmt.Sprintf("%d.json", cp))
}

// RankingsDir returns the root of a cup's rankings tree.
func (s *Store) RankingsDir(code string) string {
	return filepath.Join(s.root, "rankings", code)
}

// RankingPath returns the location of one ranking list for a
// (category, CP tier) pair.
func (s *Store) RankingPath(code, category string, cp int) string {
	return filepath.Join(s.RankingsDir(code), category, model.RankingFile(cp))
}

// ResolveRead checks that path exists and returns it. Missing paths
// report model.ErrNotFound.
func (s *Store) ResolveRead(path string) (string, error) {
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return "", fmt.Errorf("%s: %w", path, model.ErrNotFound)
		}
		return "", fmt.Errorf("resolve %s: %w", path, err)
	}
	return path, nil
}

// ResolveWrite creates the parent directories of path as needed and
// returns it.
func (s *Store) ResolveWrite(path string) (string, error) {
	if err := os.MkdirAll(filepath.Dir(path), s.dirMode); err != nil {
		return "", fmt.Errorf("resolve %s: %w", path, err)
	}
	return path, nil
}

// Exists reports whether path is present.
func (s *Store) Exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// ReadRaw reads path verbatim. Missing files report model.ErrNotFound.
func (s *Store) ReadRaw(path string) ([]byte, error) {
	resolved, err := s.ResolveRead(path)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(resolved)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	return data, nil
}

// WriteRaw writes data to path verbatim, creating parent directories.
func (s *Store) WriteRaw(path string, data []byte) error {
	resolved, err := s.ResolveWrite(path)
	if err != nil {
		return err
	}
	if err := os.WriteFile(resolved, data, s.fileMode); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}

// ReadJSON reads path and returns its content as plain JSON. Cup
// definitions are hand-maintained and occasionally carry comments or
// trailing commas, so the content is normalized through jsonc first.
// Syntactically invalid content reports model.ErrParse.
func (s *Store) ReadJSON(path string) ([]byte, error) {
	raw, err := s.ReadRaw(path)
	if err != nil {
		return nil, err
	}
	data := jsonc.ToJSON(raw)
	if !gjson.ValidBytes(data) {
		return nil, fmt.Errorf("%s: invalid JSON: %w", path, model.ErrParse)
	}
	return data, nil
}

// WriteJSON formats data and writes it to path. Formatting keeps the
// hand-edited artifact files diffable.
func (s *Store) WriteJSON(path string, data []byte) error {
	if !gjson.ValidBytes(data) {
		return fmt.Errorf("%s: invalid JSON: %w", path, model.ErrParse)
	}
	return s.WriteRaw(path, pretty.PrettyOptions(data, prettyOptions))
}

// prettyOptions matches the two-space indentation of the serving
// application's own data files.
var prettyOptions = &pretty.Options{Indent: "  ", SortKeys: false}

// CopyTree recursively copies the directory tree at src to dst.
// Missing sources report model.ErrNotFound.
func (s *Store) CopyTree(src, dst string) error {
	info, err := os.Stat(src)
	if err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("%s: %w", src, model.ErrNotFound)
		}
		return fmt.Errorf("copy %s: %w", src, err)
	}
	if !info.IsDir() {
		return s.copyFile(src, dst)
	}

	return filepath.Walk(src, func(path string, entry os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(src, path)
		if err != nil {
			return err
		}
		target := filepath.Join(dst, rel)
		if entry.IsDir() {
			return os.MkdirAll(target, s.dirMode)
		}
		return s.copyFile(path, target)
	})
}

func (s *Store) copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return fmt.Errorf("copy %s: %w", src, err)
	}
	defer func() { _ = in.Close() }()

	resolved, err := s.ResolveWrite(dst)
	if err != nil {
		return err
	}
	out, err := os.OpenFile(resolved, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, s.fileMode)
	if err != nil {
		return fmt.Errorf("copy to %s: %w", dst, err)
	}
	if _, err := io.Copy(out, in); err != nil {
		_ = out.Close()
		return fmt.Errorf("copy to %s: %w", dst, err)
	}
	return out.Close()
}

// MoveTree moves the file or directory tree at src to dst. A plain
// rename is attempted first; cross-device moves fall back to
// copy-then-remove.
func (s *Store) MoveTree(src, dst string) error {
	if _, err := s.ResolveRead(src); err != nil {
		return err
	}
	if _, err := s.ResolveWrite(dst); err != nil {
		return err
	}
	if err := os.Rename(src, dst); err == nil {
		return nil
	}
	if err := s.CopyTree(src, dst); err != nil {
		return err
	}
	return os.RemoveAll(src)
}

// RemoveTree removes the file or directory tree at path. Absence is
// tolerated: delete must stay idempotent.
func (s *Store) RemoveTree(path string) error {
	if err := os.RemoveAll(path); err != nil {
		return fmt.Errorf("remove %s: %w", path, err)
	}
	return nil
}
