// Package paths derives every file-system location used by the pipeline from
// the run configuration.
package paths

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/samber/lo"

	"github.com/conneroisu/mailwright/internal/config"
	"github.com/conneroisu/mailwright/internal/errors"
)

// Options are the inputs of Resolve.
type Options struct {
	Root               string
	StructureType      config.StructureType
	Env                config.Env
	TemplateExtensions []string
	ImageExtensions    []string
}

// OptionsFrom extracts resolver options from a loaded configuration.
func OptionsFrom(cfg *config.Config) Options {
	return Options{
		Root:               cfg.Build.Root,
		StructureType:      cfg.Build.StructureType,
		Env:                cfg.Build.Env,
		TemplateExtensions: cfg.Build.TemplateExtensions,
		ImageExtensions:    cfg.Build.ImageExtensions,
	}
}

// PathSet maps logical locations to directories and glob patterns. Globs use
// doublestar syntax.
type PathSet struct {
	StructureType config.StructureType `json:"structure_type" yaml:"structure_type"`
	Env           config.Env           `json:"env" yaml:"env"`

	Layouts  string `json:"layouts" yaml:"layouts"`
	Partials string `json:"partials" yaml:"partials"`
	Utils    string `json:"utils" yaml:"utils"`

	Templates          string   `json:"templates" yaml:"templates"`
	TemplateGlobs      []Glob   `json:"template_globs" yaml:"template_globs"`
	TemplateExtensions []string `json:"template_extensions" yaml:"template_extensions"`

	Preview string `json:"preview" yaml:"preview"`
	Images  []Glob `json:"images" yaml:"images"`

	DataShared      string `json:"data_shared" yaml:"data_shared"`
	DataPerTemplate Glob   `json:"data_per_template" yaml:"data_per_template"`

	MJMLSource  Glob   `json:"mjml_source" yaml:"mjml_source"`
	MJMLOutput  string `json:"mjml_output" yaml:"mjml_output"`
	BuildOutput string `json:"build_output" yaml:"build_output"`
	ZipOutput   string `json:"zip_output" yaml:"zip_output"`
	BuildRoot   string `json:"build_root" yaml:"build_root"`
}

// DataDocumentExtensions are the accepted data document formats.
var DataDocumentExtensions = []string{".json", ".yml", ".yaml"}

// Resolve builds the PathSet for opts. It performs no I/O. A missing or
// unknown structure type is a configuration error, so no returned path can
// contain an unresolved segment.
func Resolve(opts Options) (PathSet, error) {
	if opts.StructureType == "" {
		return PathSet{}, errors.NewConfigError(errors.ErrCodeStructureMissing,
			"structure type is required to resolve paths")
	}
	if !opts.StructureType.Valid() {
		return PathSet{}, errors.NewConfigError(errors.ErrCodeStructureInvalid,
			fmt.Sprintf("unknown structure type %q", opts.StructureType))
	}
	env := opts.Env
	if env == "" {
		env = config.EnvDev
	}
	if !env.Valid() {
		return PathSet{}, errors.NewConfigError(errors.ErrCodeEnvInvalid,
			fmt.Sprintf("unknown env %q", opts.Env))
	}
	if len(opts.TemplateExtensions) == 0 {
		return PathSet{}, errors.NewConfigError(errors.ErrCodeConfigInvalid,
			"at least one template extension is required")
	}

	root := opts.Root
	if root == "" {
		root = "."
	}
	structure := string(opts.StructureType)

	design := filepath.Join(root, "src", "design", structure)
	templates := filepath.Join(root, "src", "templates", structure)
	build := filepath.Join(root, "build")
	html := filepath.Join(build, "html")
	mjml := filepath.Join(build, "mjml")

	templateExts := normaliseExtensions(opts.TemplateExtensions)
	imageExts := normaliseExtensions(opts.ImageExtensions)

	return PathSet{
		StructureType: opts.StructureType,
		Env:           env,

		Layouts:  filepath.Join(design, "layouts"),
		Partials: filepath.Join(design, "partials"),
		Utils:    filepath.Join(design, "utils"),

		Templates:          templates,
		TemplateGlobs:      globsFor(templates, templateExts),
		TemplateExtensions: templateExts,

		Preview: filepath.Join(root, "src", "preview", "index.html"),
		Images:  globsFor(templates, imageExts),

		DataShared:      filepath.Join(root, "src", "data", "shared.json"),
		DataPerTemplate: newGlob(templates, "**", "data.{json,yml,yaml}"),

		MJMLSource:  newGlob(mjml, "**", "*.mjml"),
		MJMLOutput:  mjml,
		BuildOutput: html,
		ZipOutput:   html,
		BuildRoot:   build,
	}, nil
}

// RenderOutput returns the directory rendered templates are written to and
// the extension they get. Responsive templates are MJML that still needs
// compiling; standard templates are final HTML.
func (p PathSet) RenderOutput() (dir, ext string) {
	if p.StructureType == config.StructureResponsive {
		return p.MJMLOutput, ".mjml"
	}
	return p.BuildOutput, ".html"
}

// SearchPaths returns the directories layouts and partials are loaded from,
// in lookup order.
func (p PathSet) SearchPaths() []string {
	return []string{p.Layouts, p.Partials, p.Utils}
}

// WatchRoots returns the directories the dev loop observes.
func (p PathSet) WatchRoots() []string {
	return lo.Uniq([]string{p.Layouts, p.Partials, p.Utils, p.Templates, filepath.Dir(p.DataShared)})
}

// IsTemplateSource reports whether path has one of the template extensions.
func (p PathSet) IsTemplateSource(path string) bool {
	for _, ext := range p.TemplateExtensions {
		if strings.HasSuffix(path, ext) {
			return true
		}
	}
	return false
}

func globsFor(dir string, exts []string) []Glob {
	return lo.Map(exts, func(ext string, _ int) Glob {
		return newGlob(dir, "**", "*"+ext)
	})
}

func normaliseExtensions(exts []string) []string {
	out := make([]string, 0, len(exts))
	for _, ext := range exts {
		ext = strings.ToLower(strings.TrimSpace(ext))
		if ext == "" {
			continue
		}
		if !strings.HasPrefix(ext, ".") {
			ext = "." + ext
		}
		out = append(out, ext)
	}
	return lo.Uniq(out)
}
