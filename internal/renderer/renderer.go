// Package renderer renders the email template sources and the preview index.
//
// Templates are Go text/template files. Layouts, partials and the optional
// utils directory form a search path: every file found there is registered
// under its path relative to its search root, and the first root that
// provides a name wins. A source template can therefore wrap itself in a
// layout with {{template "base.tmpl" .}} while overriding the layout's
// {{block}} definitions, or include partials by name.
//
// Each source is rendered against a context holding every data table entry
// as a top-level key, the template identifier as .Template and the
// template's own entry as .Self.
package renderer

import (
	"bytes"
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"text/template"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/conneroisu/mailwright/internal/data"
	"github.com/conneroisu/mailwright/internal/errors"
	"github.com/conneroisu/mailwright/internal/logging"
	"github.com/conneroisu/mailwright/internal/paths"
)

// TemplateRenderer renders template sources found under a PathSet.
type TemplateRenderer struct {
	paths   paths.PathSet
	logger  logging.Logger
	funcs   template.FuncMap
	columns int
}

// Option customises a TemplateRenderer.
type Option func(*TemplateRenderer)

// WithColumns sets the column count passed to the preview index.
func WithColumns(n int) Option {
	return func(r *TemplateRenderer) {
		if n > 0 {
			r.columns = n
		}
	}
}

// WithFuncs adds functions to the template function map.
func WithFuncs(funcs template.FuncMap) Option {
	return func(r *TemplateRenderer) {
		for k, v := range funcs {
			r.funcs[k] = v
		}
	}
}

// NewTemplateRenderer creates a renderer for ps.
func NewTemplateRenderer(ps paths.PathSet, logger logging.Logger, opts ...Option) *TemplateRenderer {
	if logger == nil {
		logger = logging.Nop()
	}
	r := &TemplateRenderer{
		paths:   ps,
		logger:  logger.WithComponent("renderer"),
		funcs:   FuncMap(),
		columns: 3,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Sources returns the template sources in lexical order.
func (r *TemplateRenderer) Sources() ([]string, error) {
	sources, err := paths.MatchAll(r.paths.TemplateGlobs, doublestar.WithFilesOnly())
	if err != nil {
		return nil, errors.NewIOError(errors.ErrCodeGlobFailed, "glob template sources", err).WithPath(r.paths.Templates)
	}
	return sources, nil
}

// RenderTemplates renders every source and writes it below the render output
// directory, keeping its path relative to the template root. It returns the
// number of files written. The first failure aborts the run.
func (r *TemplateRenderer) RenderTemplates(ctx context.Context, table data.Table) (int, error) {
	sources, err := r.Sources()
	if err != nil {
		return 0, err
	}
	if len(sources) == 0 {
		r.logger.Warn(ctx, nil, "No template sources found", "root", r.paths.Templates)
		return 0, nil
	}

	base, err := r.loadSearchPath()
	if err != nil {
		return 0, err
	}

	outDir, outExt := r.paths.RenderOutput()
	for _, src := range sources {
		if err := ctx.Err(); err != nil {
			return 0, err
		}

		rel, err := filepath.Rel(r.paths.Templates, src)
		if err != nil {
			return 0, errors.NewInternalError(errors.ErrCodeInternalError, "relativise template path", err).WithPath(src)
		}

		out, err := r.renderSource(base, src, rel, table)
		if err != nil {
			return 0, err
		}

		dest := filepath.Join(outDir, replaceExt(rel, outExt))
		if err := writeFile(dest, out); err != nil {
			return 0, err
		}
		r.logger.Debug(ctx, "Rendered template", "source", rel, "output", dest)
	}

	return len(sources), nil
}

// RenderFile renders a single source against table and returns the output.
func (r *TemplateRenderer) RenderFile(src string, table data.Table) ([]byte, error) {
	base, err := r.loadSearchPath()
	if err != nil {
		return nil, err
	}
	rel, err := filepath.Rel(r.paths.Templates, src)
	if err != nil {
		return nil, errors.NewInternalError(errors.ErrCodeInternalError, "relativise template path", err).WithPath(src)
	}
	return r.renderSource(base, src, rel, table)
}

func (r *TemplateRenderer) renderSource(base *template.Template, src, rel string, table data.Table) ([]byte, error) {
	raw, err := os.ReadFile(src)
	if err != nil {
		return nil, errors.NewIOError(errors.ErrCodeReadFailed, "read template", err).WithPath(src)
	}

	set, err := base.Clone()
	if err != nil {
		return nil, errors.NewInternalError(errors.ErrCodeInternalError, "clone template set", err)
	}
	name := filepath.ToSlash(rel)
	tmpl, err := set.New(name).Parse(string(raw))
	if err != nil {
		return nil, errors.NewRenderError(errors.ErrCodeTemplateInvalid, "parse template", err).WithPath(src)
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, Context(table, Identifier(rel))); err != nil {
		return nil, errors.NewRenderError(errors.ErrCodeRenderFailed, "execute template", err).WithPath(src)
	}
	return buf.Bytes(), nil
}

// loadSearchPath parses every file of the layout, partial and utils roots
// into one template set. Missing roots are skipped.
func (r *TemplateRenderer) loadSearchPath() (*template.Template, error) {
	set := template.New("").Funcs(r.funcs)
	seen := make(map[string]string)

	for _, root := range r.paths.SearchPaths() {
		info, err := os.Stat(root)
		if err != nil || !info.IsDir() {
			continue
		}

		err = filepath.WalkDir(root, func(path string, d fs.DirEntry, walkErr error) error {
			if walkErr != nil {
				return walkErr
			}
			if d.IsDir() {
				return nil
			}
			rel, err := filepath.Rel(root, path)
			if err != nil {
				return err
			}
			name := filepath.ToSlash(rel)
			if prev, ok := seen[name]; ok {
				r.logger.Debug(context.Background(), "Template name shadowed", "name", name, "used", prev, "ignored", path)
				return nil
			}

			raw, err := os.ReadFile(path)
			if err != nil {
				return errors.NewIOError(errors.ErrCodeReadFailed, "read template", err).WithPath(path)
			}
			if _, err := set.New(name).Parse(string(raw)); err != nil {
				return errors.NewRenderError(errors.ErrCodeTemplateInvalid, "parse template", err).WithPath(path)
			}
			seen[name] = path
			return nil
		})
		if err != nil {
			var perr *errors.Error
			if errors.As(err, &perr) {
				return nil, perr
			}
			return nil, errors.NewIOError(errors.ErrCodeReadFailed, "walk search path", err).WithPath(root)
		}
	}

	return set, nil
}

// Identifier returns the template identifier for a source path relative to
// the template root: its first directory, or the file stem for sources placed
// directly in the root.
func Identifier(rel string) string {
	rel = filepath.ToSlash(rel)
	if i := strings.IndexByte(rel, '/'); i >= 0 {
		return rel[:i]
	}
	return strings.TrimSuffix(rel, filepath.Ext(rel))
}

// Context builds the value a template is executed against.
func Context(table data.Table, identifier string) map[string]any {
	ctx := make(map[string]any, len(table)+2)
	for id, content := range table {
		ctx[id] = content
	}
	ctx["Template"] = identifier
	if self, ok := table[identifier]; ok {
		ctx["Self"] = self
	} else {
		ctx["Self"] = map[string]any{}
	}
	return ctx
}

func replaceExt(path, ext string) string {
	return strings.TrimSuffix(path, filepath.Ext(path)) + ext
}

func writeFile(path string, content []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return errors.NewIOError(errors.ErrCodeWriteFailed, "create output directory", err).WithPath(path)
	}
	if err := os.WriteFile(path, content, 0o644); err != nil {
		return errors.NewIOError(errors.ErrCodeWriteFailed, fmt.Sprintf("write %s", filepath.Base(path)), err).WithPath(path)
	}
	return nil
}
