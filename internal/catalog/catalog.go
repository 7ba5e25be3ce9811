// Package catalog lists the templates available under a template root.
package catalog

import (
	"context"
	"os"
	"sort"
	"strings"

	"github.com/conneroisu/mailwright/internal/errors"
	"github.com/conneroisu/mailwright/internal/logging"
)

// Entry is one discoverable template.
type Entry struct {
	Title   string `json:"title" yaml:"title"`
	DirName string `json:"dir_name" yaml:"dir_name"`
}

// Scan returns one entry per immediate subdirectory of root, sorted by
// directory name. Files are ignored. A read failure is logged and yields an
// empty catalog.
func Scan(ctx context.Context, root string, logger logging.Logger) []Entry {
	entries, err := os.ReadDir(root)
	if err != nil {
		if logger != nil {
			logger.Warn(ctx, errors.NewIOError(errors.ErrCodeReadFailed, "read template root", err).WithPath(root),
				"Template catalog unavailable")
		}
		return []Entry{}
	}

	catalog := make([]Entry, 0, len(entries))
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		catalog = append(catalog, Entry{
			Title:   Title(entry.Name()),
			DirName: entry.Name(),
		})
	}
	sort.Slice(catalog, func(i, j int) bool { return catalog[i].DirName < catalog[j].DirName })
	return catalog
}

// Title derives a display title from a directory name.
func Title(dirName string) string {
	return strings.ReplaceAll(dirName, "_", " ")
}

// Contains reports whether dirName names a catalog entry.
func Contains(entries []Entry, dirName string) bool {
	for _, e := range entries {
		if e.DirName == dirName {
			return true
		}
	}
	return false
}
