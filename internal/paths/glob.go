package paths

import (
	"os"
	"path"
	"path/filepath"
	"sort"

	"github.com/bmatcuk/doublestar/v4"
)

// Glob is a doublestar pattern evaluated below a literal base directory.
// Only Pattern is glob syntax; a project root such as "emails[v2]" stays a
// plain directory name.
type Glob struct {
	Base    string
	Pattern string
}

func newGlob(base string, elem ...string) Glob {
	return Glob{Base: base, Pattern: path.Join(elem...)}
}

// String returns the pattern joined to its base, for display.
func (g Glob) String() string {
	return filepath.Join(g.Base, filepath.FromSlash(g.Pattern))
}

func (g Glob) MarshalText() ([]byte, error) {
	return []byte(g.String()), nil
}

// Match returns the matching paths joined to Base, in lexical order. A
// missing base matches nothing.
func (g Glob) Match(opts ...doublestar.GlobOption) ([]string, error) {
	matches, err := doublestar.Glob(os.DirFS(g.Base), g.Pattern, opts...)
	if err != nil {
		return nil, err
	}
	out := make([]string, len(matches))
	for i, m := range matches {
		out[i] = filepath.Join(g.Base, filepath.FromSlash(m))
	}
	sort.Strings(out)
	return out, nil
}

// MatchAll matches every glob and returns the sorted union.
func MatchAll(globs []Glob, opts ...doublestar.GlobOption) ([]string, error) {
	var out []string
	for _, g := range globs {
		matches, err := g.Match(opts...)
		if err != nil {
			return nil, err
		}
		out = append(out, matches...)
	}
	sort.Strings(out)
	return out, nil
}
