package watcher

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEventTypeString(t *testing.T) {
	testCases := []struct {
		eventType EventType
		expected  string
	}{
		{EventTypeCreated, "created"},
		{EventTypeModified, "modified"},
		{EventTypeDeleted, "deleted"},
		{EventTypeRenamed, "renamed"},
		{EventType(42), "unknown"},
	}

	for _, tc := range testCases {
		t.Run(tc.expected, func(t *testing.T) {
			assert.Equal(t, tc.expected, tc.eventType.String())
		})
	}
}

func TestAddPathValidation(t *testing.T) {
	fw, err := NewFileWatcher(50*time.Millisecond, nil)
	require.NoError(t, err)
	defer fw.Stop()

	dir := t.TempDir()
	assert.NoError(t, fw.AddPath(dir))
	assert.Error(t, fw.AddPath(filepath.Join(dir, "missing")))
	assert.Error(t, fw.AddPath(""))

	file := filepath.Join(dir, "f.txt")
	require.NoError(t, os.WriteFile(file, []byte("x"), 0o644))
	assert.Error(t, fw.AddPath(file))
}

func TestAddRecursive(t *testing.T) {
	fw, err := NewFileWatcher(50*time.Millisecond, nil)
	require.NoError(t, err)
	defer fw.Stop()

	root := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(root, "a", "b"), 0o755))

	require.NoError(t, fw.AddRecursive(root))
	assert.ElementsMatch(t,
		[]string{root, filepath.Join(root, "a"), filepath.Join(root, "a", "b")},
		fw.WatchList())
}

// collect starts fw and returns a function yielding all delivered events.
func collect(t *testing.T, fw *FileWatcher) func() []ChangeEvent {
	t.Helper()
	var mu sync.Mutex
	var got []ChangeEvent
	fw.AddHandler(func(events []ChangeEvent) error {
		mu.Lock()
		defer mu.Unlock()
		got = append(got, events...)
		return nil
	})

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	require.NoError(t, fw.Start(ctx))

	return func() []ChangeEvent {
		mu.Lock()
		defer mu.Unlock()
		return append([]ChangeEvent(nil), got...)
	}
}

func TestWatcherDeliversFilteredEvents(t *testing.T) {
	fw, err := NewFileWatcher(50*time.Millisecond, nil)
	require.NoError(t, err)
	defer fw.Stop()

	root := t.TempDir()
	require.NoError(t, fw.AddRecursive(root))
	fw.AddFilter(ExtensionFilter(".tmpl"))
	events := collect(t, fw)

	target := filepath.Join(root, "index.tmpl")
	require.NoError(t, os.WriteFile(target, []byte("a"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(root, "notes.txt"), []byte("a"), 0o644))

	require.Eventually(t, func() bool { return len(events()) > 0 }, 2*time.Second, 20*time.Millisecond)
	time.Sleep(150 * time.Millisecond)

	for _, e := range events() {
		assert.Equal(t, target, e.Path)
	}
}

func TestWatcherDebouncesBursts(t *testing.T) {
	fw, err := NewFileWatcher(150*time.Millisecond, nil)
	require.NoError(t, err)
	defer fw.Stop()

	root := t.TempDir()
	require.NoError(t, fw.AddRecursive(root))

	var mu sync.Mutex
	batches := 0
	fw.AddHandler(func(events []ChangeEvent) error {
		mu.Lock()
		defer mu.Unlock()
		batches++
		return nil
	})
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	require.NoError(t, fw.Start(ctx))

	target := filepath.Join(root, "index.tmpl")
	for i := 0; i < 5; i++ {
		require.NoError(t, os.WriteFile(target, []byte{byte(i)}, 0o644))
		time.Sleep(10 * time.Millisecond)
	}

	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return batches > 0
	}, 2*time.Second, 20*time.Millisecond)
	time.Sleep(300 * time.Millisecond)

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, 1, batches)
}

func TestWatcherFollowsNewDirectories(t *testing.T) {
	fw, err := NewFileWatcher(50*time.Millisecond, nil)
	require.NoError(t, err)
	defer fw.Stop()

	root := t.TempDir()
	require.NoError(t, fw.AddRecursive(root))
	events := collect(t, fw)

	sub := filepath.Join(root, "new_template")
	require.NoError(t, os.Mkdir(sub, 0o755))
	require.Eventually(t, func() bool {
		for _, p := range fw.WatchList() {
			if p == sub {
				return true
			}
		}
		return false
	}, 2*time.Second, 20*time.Millisecond)

	target := filepath.Join(sub, "index.tmpl")
	require.NoError(t, os.WriteFile(target, []byte("x"), 0o644))

	require.Eventually(t, func() bool {
		for _, e := range events() {
			if e.Path == target {
				return true
			}
		}
		return false
	}, 2*time.Second, 20*time.Millisecond)
}

func TestDebouncerFlushDeduplicatesAndSorts(t *testing.T) {
	d := &Debouncer{
		delay:  time.Hour,
		output: make(chan []ChangeEvent, 1),
	}
	d.pending = []ChangeEvent{
		{Path: "b", Type: EventTypeCreated},
		{Path: "a", Type: EventTypeCreated},
		{Path: "b", Type: EventTypeModified},
	}

	d.flush()

	batch := <-d.output
	require.Len(t, batch, 2)
	assert.Equal(t, "a", batch[0].Path)
	assert.Equal(t, "b", batch[1].Path)
	assert.Equal(t, EventTypeModified, batch[1].Type)
	assert.Empty(t, d.pending)
}
