package renderer

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"text/template"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/conneroisu/mailwright/internal/catalog"
	"github.com/conneroisu/mailwright/internal/config"
	"github.com/conneroisu/mailwright/internal/data"
	"github.com/conneroisu/mailwright/internal/errors"
	"github.com/conneroisu/mailwright/internal/paths"
)

func mustWrite(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func setup(t *testing.T, st config.StructureType) paths.PathSet {
	t.Helper()
	ps, err := paths.Resolve(paths.Options{
		Root:               t.TempDir(),
		StructureType:      st,
		TemplateExtensions: []string{".tmpl"},
	})
	require.NoError(t, err)

	mustWrite(t, filepath.Join(ps.Layouts, "base.tmpl"),
		`<html><body>{{block "content" .}}default{{end}}{{template "footer.tmpl" .}}</body></html>`)
	mustWrite(t, filepath.Join(ps.Partials, "footer.tmpl"),
		`<footer>{{.shared.company}}</footer>`)
	return ps
}

func TestRenderTemplatesStandard(t *testing.T) {
	ps := setup(t, config.StructureStandard)
	mustWrite(t, filepath.Join(ps.Templates, "welcome", "index.tmpl"),
		`{{define "content"}}<h1>{{.Self.heading | title}}</h1><p>{{.Template}}</p>{{end}}{{template "base.tmpl" .}}`)

	table := data.Table{
		"shared":  {"company": "Acme"},
		"welcome": {"heading": "hello there"},
	}

	r := NewTemplateRenderer(ps, nil)
	n, err := r.RenderTemplates(context.Background(), table)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	out, err := os.ReadFile(filepath.Join(ps.BuildOutput, "welcome", "index.html"))
	require.NoError(t, err)
	assert.Equal(t, `<html><body><h1>Hello There</h1><p>welcome</p><footer>Acme</footer></body></html>`, string(out))
}

func TestRenderTemplatesResponsiveWritesMJML(t *testing.T) {
	ps := setup(t, config.StructureResponsive)
	mustWrite(t, filepath.Join(ps.Templates, "order_confirm", "index.tmpl"),
		`<mjml><mj-body>{{lookup .Self "total" "0.00"}}</mj-body></mjml>`)

	r := NewTemplateRenderer(ps, nil)
	_, err := r.RenderTemplates(context.Background(), data.Table{})
	require.NoError(t, err)

	out, err := os.ReadFile(filepath.Join(ps.MJMLOutput, "order_confirm", "index.mjml"))
	require.NoError(t, err)
	assert.Equal(t, `<mjml><mj-body>0.00</mj-body></mjml>`, string(out))

	_, err = os.Stat(filepath.Join(ps.BuildOutput, "order_confirm", "index.html"))
	assert.True(t, os.IsNotExist(err))
}

func TestRenderTemplatesErrors(t *testing.T) {
	t.Run("parse error", func(t *testing.T) {
		ps := setup(t, config.StructureStandard)
		src := filepath.Join(ps.Templates, "bad", "index.tmpl")
		mustWrite(t, src, `{{if}}`)

		_, err := NewTemplateRenderer(ps, nil).RenderTemplates(context.Background(), data.Table{})
		require.Error(t, err)

		var perr *errors.Error
		require.True(t, errors.As(err, &perr))
		assert.Equal(t, errors.ErrorTypeRender, perr.Type)
		assert.Equal(t, errors.ErrCodeTemplateInvalid, perr.Code)
		assert.Equal(t, src, perr.Path)
	})

	t.Run("unknown partial", func(t *testing.T) {
		ps := setup(t, config.StructureStandard)
		mustWrite(t, filepath.Join(ps.Templates, "bad", "index.tmpl"), `{{template "missing.tmpl" .}}`)

		_, err := NewTemplateRenderer(ps, nil).RenderTemplates(context.Background(), data.Table{})
		require.Error(t, err)

		var perr *errors.Error
		require.True(t, errors.As(err, &perr))
		assert.Equal(t, errors.ErrCodeRenderFailed, perr.Code)
	})
}

func TestRenderTemplatesWithoutSources(t *testing.T) {
	ps := setup(t, config.StructureStandard)

	n, err := NewTemplateRenderer(ps, nil).RenderTemplates(context.Background(), data.Table{})
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestUtilsOverrideOrder(t *testing.T) {
	ps := setup(t, config.StructureStandard)
	mustWrite(t, filepath.Join(ps.Utils, "money.tmpl"), `{{printf "$%.2f" .}}`)
	mustWrite(t, filepath.Join(ps.Utils, "footer.tmpl"), `shadowed`)
	src := filepath.Join(ps.Templates, "receipt", "index.tmpl")
	mustWrite(t, src, `{{template "money.tmpl" 3.5}}|{{template "footer.tmpl" .}}`)

	out, err := NewTemplateRenderer(ps, nil).RenderFile(src, data.Table{"shared": {"company": "Acme"}})
	require.NoError(t, err)
	assert.Equal(t, `$3.50|<footer>Acme</footer>`, string(out))
}

func TestIdentifier(t *testing.T) {
	tests := map[string]string{
		"welcome/index.tmpl":         "welcome",
		"order_confirm/a/index.tmpl": "order_confirm",
		"standalone.tmpl":            "standalone",
	}
	for in, want := range tests {
		assert.Equal(t, want, Identifier(filepath.FromSlash(in)), in)
	}
}

func TestContext(t *testing.T) {
	table := data.Table{"welcome": {"a": 1}, "shared": {"b": 2}}

	ctx := Context(table, "welcome")
	assert.Equal(t, "welcome", ctx["Template"])
	assert.Equal(t, map[string]any{"a": 1}, ctx["Self"])
	assert.Equal(t, map[string]any{"b": 2}, ctx["shared"])

	ctx = Context(table, "unknown")
	assert.Equal(t, map[string]any{}, ctx["Self"])
}

func TestRenderPreview(t *testing.T) {
	entries := []catalog.Entry{
		{Title: "order confirm", DirName: "order_confirm"},
		{Title: "welcome", DirName: "welcome"},
	}

	t.Run("project index", func(t *testing.T) {
		ps := setup(t, config.StructureStandard)
		mustWrite(t, ps.Preview,
			`cols={{.Columns}}{{range .Templates}};{{.DirName}}={{.Title}}{{end}}`)

		r := NewTemplateRenderer(ps, nil, WithColumns(4))
		require.NoError(t, r.RenderPreview(context.Background(), entries))

		out, err := os.ReadFile(filepath.Join(ps.BuildOutput, "index.html"))
		require.NoError(t, err)
		assert.Equal(t, "cols=4;order_confirm=order confirm;welcome=welcome", string(out))
	})

	t.Run("built-in index", func(t *testing.T) {
		ps := setup(t, config.StructureStandard)

		r := NewTemplateRenderer(ps, nil)
		require.NoError(t, r.RenderPreview(context.Background(), entries))

		out, err := os.ReadFile(filepath.Join(ps.BuildOutput, "index.html"))
		require.NoError(t, err)
		html := string(out)
		assert.Contains(t, html, "repeat(3, 1fr)")
		assert.Contains(t, html, `href="order_confirm/index.html"`)
		assert.Equal(t, 2, strings.Count(html, `class="card"`))
	})

	t.Run("built-in index escapes and handles an empty catalog", func(t *testing.T) {
		ps := setup(t, config.StructureStandard)
		r := NewTemplateRenderer(ps, nil, WithColumns(2))

		var buf bytes.Buffer
		require.NoError(t, DefaultPreview(PreviewData{
			Templates: []catalog.Entry{{Title: "<b>promo</b>", DirName: "promo"}},
			Columns:   2,
		}).Render(context.Background(), &buf))
		assert.Contains(t, buf.String(), "&lt;b&gt;promo&lt;/b&gt;")
		assert.Contains(t, buf.String(), "repeat(2, 1fr)")

		require.NoError(t, r.RenderPreview(context.Background(), nil))
		out, err := os.ReadFile(filepath.Join(ps.BuildOutput, "index.html"))
		require.NoError(t, err)
		assert.Contains(t, string(out), "No templates found.")
	})
}

func TestWithFuncs(t *testing.T) {
	ps := setup(t, config.StructureStandard)
	src := filepath.Join(ps.Templates, "welcome", "index.tmpl")
	mustWrite(t, src, `{{ buildEnv }}/{{ upper "x" }}`)

	r := NewTemplateRenderer(ps, nil, WithFuncs(template.FuncMap{
		"buildEnv": func() string { return "prod" },
	}))
	out, err := r.RenderFile(src, data.Table{})
	require.NoError(t, err)
	assert.Equal(t, "prod/X", string(out))
}

func TestFuncMap(t *testing.T) {
	funcs := FuncMap()
	for _, name := range []string{"title", "humanize", "lookup", "percent", "upper", "default"} {
		assert.Contains(t, funcs, name)
	}

	percent := funcs["percent"].(func(int) string)
	assert.Equal(t, "33.33%", percent(3))
	assert.Equal(t, "100%", percent(0))
}
