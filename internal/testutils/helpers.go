// Package testutils builds throwaway mail projects for tests.
package testutils

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// StandardProject is a minimal standard-structure project: shared data, one
// template with per-template data and one without.
var StandardProject = map[string]string{
	"src/data/shared.json":                            `{"settings":{"id":"shared"},"content":{"brand":"Acme"}}`,
	"src/templates/standard/welcome/index.tmpl":       `<p>Hello {{ .Self.name }} from {{ .shared.brand }}</p>`,
	"src/templates/standard/welcome/data.json":        `{"settings":{"id":"welcome"},"content":{"name":"Ada"}}`,
	"src/templates/standard/order_confirm/index.tmpl": `<p>{{ .Template }}</p>`,
}

// CreateTempProject writes files (slash-separated paths relative to the
// project root) into a fresh temp directory and returns its path.
func CreateTempProject(t *testing.T, files map[string]string) string {
	t.Helper()
	root := t.TempDir()
	for name, content := range files {
		WriteFile(t, root, name, content)
	}
	return root
}

// WriteFile writes content to root/name, creating parent directories.
func WriteFile(t *testing.T, root, name, content string) string {
	t.Helper()
	path := filepath.Join(root, filepath.FromSlash(name))
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

// AssertFilePermissions checks the permission bits of path.
func AssertFilePermissions(t *testing.T, path string, expectedMode os.FileMode) {
	t.Helper()
	info, err := os.Stat(path)
	require.NoError(t, err)

	actualMode := info.Mode().Perm()
	require.Equal(t, expectedMode, actualMode,
		"File %s has incorrect permissions: got %o, want %o",
		path, actualMode, expectedMode)
}

// WaitForFile polls until path exists and was modified after since.
func WaitForFile(t *testing.T, path string, since time.Time, timeout time.Duration) {
	t.Helper()
	deadline := time.Now().Add(timeout)

	for time.Now().Before(deadline) {
		info, err := os.Stat(path)
		if err == nil && !info.ModTime().Before(since) {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}

	t.Fatalf("File %s was not written within %v", path, timeout)
}
