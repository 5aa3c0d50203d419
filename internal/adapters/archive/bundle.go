package archive

import (
	"archive/zip"
	"fmt"
	"io"
	"path"
	"strings"

	"github.com/dottey/cupctl/internal/domain/model"
)

// Bundle is a read-only view over a packaged cup archive. The first
// top-level entry names the cup's shortname; nested paths derive from
// it.
type Bundle struct {
	rc        *zip.ReadCloser
	shortname string
}

// OpenBundle opens a packaged archive and detects its shortname.
func OpenBundle(zipPath string) (*Bundle, error) {
	rc, err := zip.OpenReader(zipPath)
	if err != nil {
		return nil, fmt.Errorf("open archive %s: %w", zipPath, err)
	}

	short := ""
	for _, f := range rc.File {
		if top, _, ok := strings.Cut(f.Name, "/"); ok && top != "" {
			short = top
			break
		}
	}
	if short == "" {
		rc.Close()
		return nil, fmt.Errorf("%w: archive has no top-level cup directory", model.ErrParse)
	}

	return &Bundle{rc: rc, shortname: short}, nil
}

// Shortname returns the cup codename the archive was packaged under.
func (b *Bundle) Shortname() string {
	return b.shortname
}

// Definition returns the packaged cup definition.
func (b *Bundle) Definition() ([]byte, error) {
	return b.ReadFile(path.Join(b.shortname, "cupfile", b.shortname+".json"))
}

// Snapshot returns the override record for the league when packaged,
// falling back to the overall ranking list.
func (b *Bundle) Snapshot(league int) ([]byte, error) {
	override := path.Join(b.shortname, "overrides", b.shortname, fmt.Sprintf("%d.json", league))
	if data, err := b.ReadFile(override); err == nil {
		return data, nil
	}
	return b.ReadFile(path.Join(b.shortname, "rankings", b.shortname, "overall", model.RankingFile(league)))
}

// ReadFile returns the content of one archive entry by its full name.
func (b *Bundle) ReadFile(name string) ([]byte, error) {
	for _, f := range b.rc.File {
		if f.Name != name {
			continue
		}
		r, err := f.Open()
		if err != nil {
			return nil, fmt.Errorf("open entry %s: %w", name, err)
		}
		defer r.Close()
		data, err := io.ReadAll(r)
		if err != nil {
			return nil, fmt.Errorf("read entry %s: %w", name, err)
		}
		return data, nil
	}
	return nil, fmt.Errorf("%w: archive entry %s", model.ErrNotFound, name)
}

// Close releases the underlying archive.
func (b *Bundle) Close() error {
	return b.rc.Close()
}
