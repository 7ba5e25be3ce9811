package catalog

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/conneroisu/mailwright/internal/logging"
)

func TestScan(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.Mkdir(filepath.Join(root, "welcome-email"), 0o755))
	require.NoError(t, os.Mkdir(filepath.Join(root, "order_confirm"), 0o755))
	require.NoError(t, os.MkdirAll(filepath.Join(root, "order_confirm", "nested"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(root, "readme.txt"), []byte("x"), 0o644))

	got := Scan(context.Background(), root, logging.Nop())

	want := []Entry{
		{Title: "order confirm", DirName: "order_confirm"},
		{Title: "welcome-email", DirName: "welcome-email"},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("catalog mismatch (-want +got):\n%s", diff)
	}
	assert.True(t, Contains(got, "order_confirm"))
	assert.False(t, Contains(got, "nested"))
}

func TestScanMissingRoot(t *testing.T) {
	var buf bytes.Buffer
	logger := logging.NewLogger(&logging.LoggerConfig{
		Level:  logging.LevelDebug,
		Format: "json",
		Output: &buf,
	})

	got := Scan(context.Background(), filepath.Join(t.TempDir(), "missing"), logger)

	assert.Empty(t, got)
	assert.NotNil(t, got)
	assert.Contains(t, buf.String(), "Template catalog unavailable")
}

func TestTitle(t *testing.T) {
	tests := map[string]string{
		"order_confirm":   "order confirm",
		"a__b":            "a  b",
		"plain":           "plain",
		"welcome-email_2": "welcome-email 2",
	}
	for in, want := range tests {
		assert.Equal(t, want, Title(in), in)
	}
}
