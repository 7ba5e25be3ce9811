package devloop

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/conneroisu/mailwright/internal/archive"
	"github.com/conneroisu/mailwright/internal/config"
	"github.com/conneroisu/mailwright/internal/logging"
	"github.com/conneroisu/mailwright/internal/paths"
	"github.com/conneroisu/mailwright/internal/pipeline"
)

type fakeBuilder struct {
	mu       sync.Mutex
	builds   int
	packages int
	failWith error
}

func (b *fakeBuilder) Build(context.Context) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.builds++
	return b.failWith
}

func (b *fakeBuilder) Package(context.Context) (archive.Result, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.packages++
	return archive.Result{Archives: []string{"a.zip"}}, nil
}

func (b *fakeBuilder) State() pipeline.State {
	b.mu.Lock()
	defer b.mu.Unlock()
	return pipeline.State{BuildID: fmt.Sprintf("build-%d", b.builds)}
}

func (b *fakeBuilder) counts() (int, int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.builds, b.packages
}

type fakePreviewer struct {
	mu      sync.Mutex
	started bool
	reloads []string
}

func (p *fakePreviewer) Start(ctx context.Context) error {
	p.mu.Lock()
	p.started = true
	p.mu.Unlock()
	<-ctx.Done()
	return nil
}

func (p *fakePreviewer) Reload(buildID string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.reloads = append(p.reloads, buildID)
	return nil
}

func (p *fakePreviewer) isStarted() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.started
}

func (p *fakePreviewer) reloaded() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.reloads...)
}

func sourceTree(t *testing.T) paths.PathSet {
	t.Helper()
	ps, err := paths.Resolve(paths.Options{
		Root:               t.TempDir(),
		StructureType:      config.StructureStandard,
		TemplateExtensions: []string{".tmpl"},
	})
	require.NoError(t, err)
	for _, dir := range []string{ps.Layouts, ps.Partials, ps.Templates, filepath.Dir(ps.DataShared)} {
		require.NoError(t, os.MkdirAll(dir, 0o755))
	}
	require.NoError(t, os.WriteFile(ps.DataShared, []byte(`{}`), 0o644))
	return ps
}

func TestSessionRebuildsAndReloadsOnChange(t *testing.T) {
	ps := sourceTree(t)
	builder := &fakeBuilder{}
	preview := &fakePreviewer{}
	session := &Session{Paths: ps, Builder: builder, Server: preview, Debounce: 20 * time.Millisecond}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- session.Run(ctx) }()

	require.Eventually(t, preview.isStarted, 2*time.Second, 10*time.Millisecond)
	builds, packages := builder.counts()
	assert.Equal(t, 1, builds)
	assert.Equal(t, 0, packages)

	src := filepath.Join(ps.Templates, "welcome", "index.tmpl")
	require.NoError(t, os.MkdirAll(filepath.Dir(src), 0o755))
	time.Sleep(50 * time.Millisecond)
	require.NoError(t, os.WriteFile(src, []byte("hi"), 0o644))

	require.Eventually(t, func() bool {
		return len(preview.reloaded()) > 0
	}, 3*time.Second, 20*time.Millisecond)
	assert.Contains(t, preview.reloaded(), "build-2")

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(3 * time.Second):
		t.Fatal("session did not stop")
	}
}

func TestSessionZipAfterInitialBuild(t *testing.T) {
	ps := sourceTree(t)
	builder := &fakeBuilder{}
	preview := &fakePreviewer{}
	session := &Session{Paths: ps, Builder: builder, Server: preview, Zip: true}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- session.Run(ctx) }()

	require.Eventually(t, preview.isStarted, 2*time.Second, 10*time.Millisecond)
	_, packages := builder.counts()
	assert.Equal(t, 1, packages)

	cancel()
	assert.NoError(t, <-done)
}

func TestSessionInitialBuildFailureIsFatal(t *testing.T) {
	ps := sourceTree(t)
	boom := errors.New("render failed")
	builder := &fakeBuilder{failWith: boom}
	preview := &fakePreviewer{}
	session := &Session{Paths: ps, Builder: builder, Server: preview}

	err := session.Run(context.Background())
	require.ErrorIs(t, err, boom)
	assert.False(t, preview.isStarted())
}

func TestSessionWatchRoots(t *testing.T) {
	ps := sourceTree(t)
	fw, err := (&Session{Paths: ps}).newWatcher(context.Background(), logging.Nop())
	require.NoError(t, err)
	defer fw.Stop()

	list := fw.WatchList()
	assert.Contains(t, list, ps.Layouts)
	assert.Contains(t, list, ps.Templates)
	assert.Contains(t, list, filepath.Dir(ps.DataShared))
	assert.NotContains(t, list, ps.Utils)
}
