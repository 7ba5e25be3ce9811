package renderer

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"text/template"

	"github.com/a-h/templ"

	"github.com/conneroisu/mailwright/internal/catalog"
	"github.com/conneroisu/mailwright/internal/errors"
)

// PreviewData is the context of the preview index.
type PreviewData struct {
	Templates []catalog.Entry
	Columns   int
}

// RenderPreview writes the preview index to the build output directory.
// When the project has no preview source, a built-in index is written.
func (r *TemplateRenderer) RenderPreview(ctx context.Context, entries []catalog.Entry) error {
	pd := PreviewData{Templates: entries, Columns: r.columns}
	dest := filepath.Join(r.paths.BuildOutput, "index.html")

	raw, err := os.ReadFile(r.paths.Preview)
	if err != nil {
		if !os.IsNotExist(err) {
			return errors.NewIOError(errors.ErrCodeReadFailed, "read preview index", err).WithPath(r.paths.Preview)
		}
		r.logger.Debug(ctx, "No preview source, using built-in index", "path", r.paths.Preview)

		var buf bytes.Buffer
		if err := DefaultPreview(pd).Render(ctx, &buf); err != nil {
			return errors.NewRenderError(errors.ErrCodeRenderFailed, "render built-in preview", err)
		}
		return writeFile(dest, buf.Bytes())
	}

	tmpl, err := template.New("preview").Funcs(r.funcs).Parse(string(raw))
	if err != nil {
		return errors.NewRenderError(errors.ErrCodeTemplateInvalid, "parse preview index", err).WithPath(r.paths.Preview)
	}
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, pd); err != nil {
		return errors.NewRenderError(errors.ErrCodeRenderFailed, "execute preview index", err).WithPath(r.paths.Preview)
	}
	return writeFile(dest, buf.Bytes())
}

// gridColumns sets the column count of the built-in index grid.
func gridColumns(n int) templ.Component {
	if n < 1 {
		n = 1
	}
	return templ.Raw(fmt.Sprintf("<style>.grid { grid-template-columns: repeat(%d, 1fr); }</style>", n))
}
