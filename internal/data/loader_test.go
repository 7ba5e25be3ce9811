package data

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/conneroisu/mailwright/internal/config"
	"github.com/conneroisu/mailwright/internal/errors"
	"github.com/conneroisu/mailwright/internal/paths"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func resolve(t *testing.T, root string) paths.PathSet {
	t.Helper()
	ps, err := paths.Resolve(paths.Options{
		Root:               root,
		StructureType:      config.StructureStandard,
		TemplateExtensions: []string{".tmpl"},
	})
	require.NoError(t, err)
	return ps
}

func newLoader(t *testing.T) *Loader {
	t.Helper()
	l, err := NewLoader(nil, WithConcurrency(2))
	require.NoError(t, err)
	return l
}

func TestLoadLastWriteWins(t *testing.T) {
	root := t.TempDir()
	ps := resolve(t, root)

	writeFile(t, ps.DataShared, `{"settings":{"id":"A"},"content":{"x":1}}`)
	writeFile(t, filepath.Join(ps.Templates, "a_first", "data.json"), `{"settings":{"id":"B"},"content":{"y":2}}`)
	writeFile(t, filepath.Join(ps.Templates, "b_second", "data.yml"), "settings:\n  id: A\ncontent:\n  x: 2\n")

	table, err := newLoader(t).Load(context.Background(), ps)
	require.NoError(t, err)

	want := Table{
		"A": {"x": 2},
		"B": {"y": float64(2)},
	}
	if diff := cmp.Diff(want, table); diff != "" {
		t.Errorf("table mismatch (-want +got):\n%s", diff)
	}
}

func TestLoadRootWithGlobCharacters(t *testing.T) {
	root := filepath.Join(t.TempDir(), "emails[v2]", "{draft}")
	ps := resolve(t, root)

	writeFile(t, ps.DataShared, `{"settings":{"id":"shared"},"content":{"x":1}}`)
	writeFile(t, filepath.Join(ps.Templates, "welcome", "data.json"), `{"settings":{"id":"welcome"},"content":{"name":"Ada"}}`)

	table, err := newLoader(t).Load(context.Background(), ps)
	require.NoError(t, err)
	assert.Equal(t, []string{"shared", "welcome"}, table.Keys())
	assert.Equal(t, "Ada", table["welcome"]["name"])
}

func TestLoadSkipsMalformedUnit(t *testing.T) {
	root := t.TempDir()
	ps := resolve(t, root)

	writeFile(t, ps.DataShared, `{"settings":{"id":"shared"},"content":{"brand":"Acme"}}`)
	writeFile(t, filepath.Join(ps.Templates, "broken", "data.json"), `{"settings":`)
	writeFile(t, filepath.Join(ps.Templates, "no_id", "data.json"), `{"settings":{},"content":{}}`)
	writeFile(t, filepath.Join(ps.Templates, "welcome", "data.json"), `{"settings":{"id":"welcome"},"content":{"title":"Hi"}}`)

	table, err := newLoader(t).Load(context.Background(), ps)
	require.NoError(t, err)

	assert.Equal(t, []string{"shared", "welcome"}, table.Keys())
	assert.Equal(t, "Hi", table["welcome"]["title"])
}

func TestLoadSharedFailureIsFatal(t *testing.T) {
	tests := []struct {
		name    string
		content *string
		errType errors.ErrorType
	}{
		{name: "missing", content: nil, errType: errors.ErrorTypeIO},
		{name: "malformed", content: ptr(`{"settings"`), errType: errors.ErrorTypeParse},
		{name: "schema", content: ptr(`{"settings":{"id":""},"content":{}}`), errType: errors.ErrorTypeParse},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			root := t.TempDir()
			ps := resolve(t, root)
			if tt.content != nil {
				writeFile(t, ps.DataShared, *tt.content)
			}

			_, err := newLoader(t).Load(context.Background(), ps)
			require.Error(t, err)

			var perr *errors.Error
			require.True(t, errors.As(err, &perr))
			assert.Equal(t, tt.errType, perr.Type)
			assert.Equal(t, ps.DataShared, perr.Path)
		})
	}
}

func TestLoadWithoutUnits(t *testing.T) {
	root := t.TempDir()
	ps := resolve(t, root)
	writeFile(t, ps.DataShared, `{"settings":{"id":"shared"},"content":{}}`)

	table, err := newLoader(t).Load(context.Background(), ps)
	require.NoError(t, err)
	assert.Equal(t, []string{"shared"}, table.Keys())
}

func TestParseUnsupportedExtension(t *testing.T) {
	p, err := NewParser()
	require.NoError(t, err)

	_, err = p.Parse("data.toml", []byte("x = 1"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported document extension")
}

func ptr(s string) *string { return &s }
