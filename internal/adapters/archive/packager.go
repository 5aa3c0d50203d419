// Package archive packages a cup's artifacts into a distributable zip
// and reads back cup data from packaged archives.
//
// Archive layout, rooted at the cup's codename:
//
//	<code>/cupfile/<code>.json
//	<code>/overrides/<code>/<cp>.json
//	<code>/rankings/<code>/<category>/rankings-<cp>.json
//	<code>/group/<code>.json
//
// Definition and rankings are mandatory; overrides and group are
// packaged when present and skipped otherwise.
package archive

import (
	"archive/zip"
	"context"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/klauspost/compress/flate"

	"github.com/dottey/cupctl/internal/adapters/store"
	"github.com/dottey/cupctl/internal/domain/model"
	"github.com/dottey/cupctl/pkg/logger"
	"github.com/dottey/cupctl/pkg/metrics"
)

// Packager stages cup artifacts into zip archives under a dist
// directory and reports the retrieval URL for each.
type Packager struct {
	store   *store.Store
	distDir string
	baseURL string
	logger  logger.Logger
}

// Result reports where a packaged archive landed.
type Result struct {
	Path  string `json:"path"`
	URL   string `json:"url"`
	Bytes int64  `json:"bytes"`
}

// New creates a Packager writing archives to distDir and deriving
// retrieval URLs from baseURL.
func New(st *store.Store, distDir, baseURL string, opts ...Option) *Packager {
	p := &Packager{
		store:   st,
		distDir: distDir,
		baseURL: strings.TrimSuffix(baseURL, "/"),
	}

	// Apply all options
	for _, opt := range opts {
		opt(p)
	}

	return p
}

// Package stages the cup's definition, rankings, overrides, and group
// record and compresses them into <distDir>/<code>.zip.
func (p *Packager) Package(ctx context.Context, code string) (*Result, error) {
	defPath := p.store.DefinitionPath(code)
	if !p.store.Exists(defPath) {
		return nil, fmt.Errorf("%w: definition for %s", model.ErrNotFound, code)
	}
	rankDir := p.store.RankingsDir(code)
	if !p.store.Exists(rankDir) {
		return nil, fmt.Errorf("%w: rankings for %s", model.ErrNotFound, code)
	}

	if err := os.MkdirAll(p.distDir, 0o755); err != nil {
		return nil, fmt.Errorf("create dist dir: %w", err)
	}

	zipPath := filepath.Join(p.distDir, code+".zip")
	f, err := os.Create(zipPath)
	if err != nil {
		return nil, fmt.Errorf("create archive: %w", err)
	}
	defer f.Close()

	w := zip.NewWriter(f)
	w.RegisterCompressor(zip.Deflate, func(out io.Writer) (io.WriteCloser, error) {
		return flate.NewWriter(out, flate.BestCompression)
	})

	if err := p.addFile(w, defPath, path.Join(code, "cupfile", code+".json")); err != nil {
		return nil, err
	}
	if err := p.addTree(w, rankDir, path.Join(code, "rankings", code)); err != nil {
		return nil, err
	}
	if ovDir := p.store.OverridesDir(code); p.store.Exists(ovDir) {
		if err := p.addTree(w, ovDir, path.Join(code, "overrides", code)); err != nil {
			return nil, err
		}
	}
	if grpPath := p.store.GroupPath(code); p.store.Exists(grpPath) {
		if err := p.addFile(w, grpPath, path.Join(code, "group", code+".json")); err != nil {
			return nil, err
		}
	}

	if err := w.Close(); err != nil {
		return nil, fmt.Errorf("finalize archive: %w", err)
	}

	info, err := os.Stat(zipPath)
	if err != nil {
		return nil, fmt.Errorf("stat archive: %w", err)
	}
	metrics.RecordArchiveBytes(info.Size())

	if p.logger != nil {
		p.logger.Info(ctx, "cup packaged",
			logger.String("cup", code),
			logger.String("path", zipPath),
			logger.Int("bytes", int(info.Size())),
		)
	}

	return &Result{
		Path:  zipPath,
		URL:   p.baseURL + "/" + code + ".zip",
		Bytes: info.Size(),
	}, nil
}

func (p *Packager) addFile(w *zip.Writer, src, name string) error {
	data, err := os.ReadFile(src)
	if err != nil {
		return fmt.Errorf("read %s: %w", src, err)
	}
	dst, err := w.Create(name)
	if err != nil {
		return fmt.Errorf("add %s: %w", name, err)
	}
	if _, err := dst.Write(data); err != nil {
		return fmt.Errorf("write %s: %w", name, err)
	}
	return nil
}

// addTree adds every regular file under src, preserving the relative
// layout below prefix. Zip entry names always use forward slashes.
func (p *Packager) addTree(w *zip.Writer, src, prefix string) error {
	return filepath.WalkDir(src, func(fp string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		rel, err := filepath.Rel(src, fp)
		if err != nil {
			return err
		}
		return p.addFile(w, fp, path.Join(prefix, filepath.ToSlash(rel)))
	})
}
