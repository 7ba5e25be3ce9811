// Package archive packages every built template directory into its own zip
// file.
package archive

import (
	"context"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"

	"github.com/klauspost/compress/zip"
	"golang.org/x/sync/errgroup"

	"github.com/conneroisu/mailwright/internal/errors"
	"github.com/conneroisu/mailwright/internal/logging"
)

// Archiver writes the contents of dir as an archive to w.
type Archiver interface {
	Archive(ctx context.Context, dir string, w io.Writer) error
}

// ZipArchiver produces deflate-compressed zip archives. Entry names are
// relative to the archived directory and use forward slashes.
type ZipArchiver struct{}

// Archive implements Archiver.
func (ZipArchiver) Archive(ctx context.Context, dir string, w io.Writer) error {
	zw := zip.NewWriter(w)

	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}

		rel, err := filepath.Rel(dir, path)
		if err != nil {
			return err
		}
		info, err := d.Info()
		if err != nil {
			return err
		}
		header, err := zip.FileInfoHeader(info)
		if err != nil {
			return err
		}
		header.Name = filepath.ToSlash(rel)
		header.Method = zip.Deflate

		entry, err := zw.CreateHeader(header)
		if err != nil {
			return err
		}
		f, err := os.Open(path)
		if err != nil {
			return err
		}
		defer f.Close()
		_, err = io.Copy(entry, f)
		return err
	})
	if err != nil {
		_ = zw.Close()
		return err
	}
	return zw.Close()
}

// Packager archives the immediate subdirectories of an output directory.
type Packager struct {
	archiver    Archiver
	logger      logging.Logger
	concurrency int
}

// NewPackager creates a Packager. A nil archiver selects ZipArchiver.
func NewPackager(archiver Archiver, logger logging.Logger, concurrency int) *Packager {
	if archiver == nil {
		archiver = ZipArchiver{}
	}
	if logger == nil {
		logger = logging.Nop()
	}
	if concurrency <= 0 {
		concurrency = 4
	}
	return &Packager{archiver: archiver, logger: logger.WithComponent("archive"), concurrency: concurrency}
}

// Result lists the archives written and the directories that failed.
type Result struct {
	Archives []string
	Failed   []error
}

// Package writes <dir>/<name>.zip for every immediate subdirectory of dir.
// A failing directory is recorded in Result.Failed and does not prevent the
// others. Only an unreadable dir is returned as an error.
func (p *Packager) Package(ctx context.Context, dir string) (Result, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return Result{}, errors.NewIOError(errors.ErrCodeReadFailed, "read build output", err).WithPath(dir)
	}

	var names []string
	for _, e := range entries {
		if e.IsDir() {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)

	archives := make([]string, len(names))
	collector := errors.NewErrorCollector()

	var g errgroup.Group
	g.SetLimit(p.concurrency)
	for i, name := range names {
		g.Go(func() error {
			dest := filepath.Join(dir, name+".zip")
			if err := p.packageOne(ctx, filepath.Join(dir, name), dest); err != nil {
				p.logger.Warn(ctx, err, "Packaging failed", "directory", name)
				collector.AddError(err)
				return nil
			}
			archives[i] = dest
			return nil
		})
	}
	_ = g.Wait()

	res := Result{Failed: collector.Errors()}
	for _, a := range archives {
		if a != "" {
			res.Archives = append(res.Archives, a)
		}
	}
	p.logger.Info(ctx, "Packaged templates", "archives", len(res.Archives), "failed", len(res.Failed))
	return res, nil
}

// packageOne writes to a temporary file next to dest and renames it, so a
// failed run never leaves a truncated archive behind.
func (p *Packager) packageOne(ctx context.Context, src, dest string) error {
	tmp, err := os.CreateTemp(filepath.Dir(dest), ".mailwright-*.zip.tmp")
	if err != nil {
		return errors.Recoverable(errors.NewIOError(errors.ErrCodeArchiveFailed, "create temporary archive", err).WithPath(dest))
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if err := p.archiver.Archive(ctx, src, tmp); err != nil {
		_ = tmp.Close()
		return errors.Recoverable(errors.NewIOError(errors.ErrCodeArchiveFailed, "archive directory", err).WithPath(src))
	}
	if err := tmp.Close(); err != nil {
		return errors.Recoverable(errors.NewIOError(errors.ErrCodeArchiveFailed, "close archive", err).WithPath(dest))
	}
	if err := os.Rename(tmpName, dest); err != nil {
		return errors.Recoverable(errors.NewIOError(errors.ErrCodeArchiveFailed, "move archive into place", err).WithPath(dest))
	}
	return nil
}
