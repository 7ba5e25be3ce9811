// Package data aggregates the shared and per-template data documents into
// the table templates are rendered against.
package data

import (
	"context"
	"os"
	"runtime"
	"sort"

	"github.com/bmatcuk/doublestar/v4"
	"golang.org/x/sync/errgroup"

	"github.com/conneroisu/mailwright/internal/errors"
	"github.com/conneroisu/mailwright/internal/logging"
	"github.com/conneroisu/mailwright/internal/paths"
)

// Table maps a template identifier to its content object.
type Table map[string]map[string]any

// Keys returns the identifiers in sorted order.
func (t Table) Keys() []string {
	keys := make([]string, 0, len(t))
	for k := range t {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Loader builds a Table from the documents named by a PathSet.
type Loader struct {
	parser      *Parser
	logger      logging.Logger
	concurrency int
}

// LoaderOption customises a Loader.
type LoaderOption func(*Loader)

// WithConcurrency bounds the number of documents parsed at once.
func WithConcurrency(n int) LoaderOption {
	return func(l *Loader) {
		if n > 0 {
			l.concurrency = n
		}
	}
}

// NewLoader creates a Loader.
func NewLoader(logger logging.Logger, opts ...LoaderOption) (*Loader, error) {
	parser, err := NewParser()
	if err != nil {
		return nil, err
	}
	if logger == nil {
		logger = logging.Nop()
	}
	l := &Loader{
		parser:      parser,
		logger:      logger.WithComponent("data"),
		concurrency: runtime.NumCPU(),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l, nil
}

// Load reads the shared document, then every per-template document in lexical
// path order. Later documents replace earlier ones with the same identifier.
// A failure on the shared document is fatal; a failing per-template document
// is logged and skipped.
func (l *Loader) Load(ctx context.Context, ps paths.PathSet) (Table, error) {
	table := make(Table)

	shared, err := l.readDocument(ps.DataShared)
	if err != nil {
		return nil, err
	}
	table[shared.ID] = shared.Content

	matches, err := ps.DataPerTemplate.Match(doublestar.WithFilesOnly())
	if err != nil {
		l.logger.Warn(ctx, err, "Per-template data glob failed", "pattern", ps.DataPerTemplate.String())
		return table, nil
	}

	docs := make([]*Document, len(matches))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(l.concurrency)
	for i, path := range matches {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			doc, err := l.readDocument(path)
			if err != nil {
				l.logger.Warn(gctx, err, "Skipping data document", "path", path)
				return nil
			}
			docs[i] = &doc
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	registered := 1
	for _, doc := range docs {
		if doc == nil {
			continue
		}
		table[doc.ID] = doc.Content
		registered++
	}

	l.logger.Debug(ctx, "Data table loaded", "documents", registered, "entries", len(table))
	return table, nil
}

func (l *Loader) readDocument(path string) (Document, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return Document{}, errors.NewIOError(errors.ErrCodeReadFailed, "read data document", err).WithPath(path)
	}
	return l.parser.Parse(path, raw)
}
