package watcher

import (
	"path/filepath"
	"strings"
)

// ExtensionFilter accepts paths ending in one of exts. Matching is
// case-insensitive.
func ExtensionFilter(exts ...string) FileFilter {
	allowed := make(map[string]bool, len(exts))
	for _, ext := range exts {
		allowed[strings.ToLower(ext)] = true
	}
	return func(path string) bool {
		return allowed[strings.ToLower(filepath.Ext(path))]
	}
}

// TargetFilter restricts events inside dir to the single file target.
// Paths outside dir are accepted.
func TargetFilter(dir, target string) FileFilter {
	dir = filepath.Clean(dir)
	target = filepath.Clean(target)
	return func(path string) bool {
		path = filepath.Clean(path)
		if filepath.Dir(path) != dir {
			return true
		}
		return path == target
	}
}

// NoHiddenFilter rejects dot files.
func NoHiddenFilter(path string) bool {
	return !strings.HasPrefix(filepath.Base(path), ".")
}

// NoEditorTempFilter rejects swap and backup files written by editors.
func NoEditorTempFilter(path string) bool {
	base := filepath.Base(path)
	switch {
	case strings.HasSuffix(base, "~"),
		strings.HasSuffix(base, ".swp"),
		strings.HasSuffix(base, ".swx"),
		strings.HasSuffix(base, ".tmp"),
		strings.HasPrefix(base, ".#"):
		return false
	}
	return true
}
