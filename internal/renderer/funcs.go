package renderer

import (
	"fmt"
	"strings"
	"text/template"

	"github.com/Masterminds/sprig/v3"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// FuncMap returns the functions available to every template: the sprig
// library plus a few email-specific helpers.
func FuncMap() template.FuncMap {
	funcs := sprig.TxtFuncMap()

	titleCaser := cases.Title(language.English)
	funcs["title"] = func(s string) string {
		return titleCaser.String(s)
	}
	funcs["humanize"] = func(s string) string {
		return titleCaser.String(strings.NewReplacer("_", " ", "-", " ").Replace(s))
	}
	// lookup reads a key from a content object without failing on missing
	// entries, e.g. {{ lookup .welcome "subject" "Welcome" }}.
	funcs["lookup"] = func(content any, key string, fallback ...any) any {
		if m, ok := content.(map[string]any); ok {
			if v, ok := m[key]; ok && v != nil {
				return v
			}
		}
		if len(fallback) > 0 {
			return fallback[0]
		}
		return ""
	}
	funcs["percent"] = func(n int) string {
		if n <= 0 {
			return "100%"
		}
		return fmt.Sprintf("%.4g%%", 100/float64(n))
	}

	return funcs
}
