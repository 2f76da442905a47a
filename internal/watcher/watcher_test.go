package watcher_test

import (
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zjrosen/nsresolve/internal/watcher"
)

const resourcePath = "META-INF/nsresolve.handlers"

func writeResource(t *testing.T, root, content string) string {
	t.Helper()
	path := filepath.Join(root, filepath.FromSlash(resourcePath))
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func startWatcher(t *testing.T, roots ...string) <-chan struct{} {
	t.Helper()
	return startWatcherAt(t, resourcePath, roots...)
}

func startWatcherAt(t *testing.T, resource string, roots ...string) <-chan struct{} {
	t.Helper()
	w, err := watcher.New(watcher.Config{
		Roots:        roots,
		ResourcePath: resource,
		DebounceDur:  50 * time.Millisecond,
	})
	require.NoError(t, err, "failed to create watcher")
	t.Cleanup(func() { _ = w.Stop() })

	onChange, err := w.Start()
	require.NoError(t, err, "failed to start watcher")
	return onChange
}

func expectNotification(t *testing.T, onChange <-chan struct{}) {
	t.Helper()
	select {
	case <-onChange:
	case <-time.After(time.Second):
		t.Fatal("expected notification but got timeout")
	}
}

func expectQuiet(t *testing.T, onChange <-chan struct{}, d time.Duration) {
	t.Helper()
	select {
	case <-onChange:
		t.Fatal("unexpected notification")
	case <-time.After(d):
	}
}

func TestWatcher_DebounceMultipleWrites(t *testing.T) {
	root := t.TempDir()
	path := writeResource(t, root, "a=b")
	onChange := startWatcher(t, root)

	// Rapid writes should coalesce into single notification
	for i := 0; i < 10; i++ {
		require.NoError(t, os.WriteFile(path, []byte(fmt.Sprintf("a=b%d", i)), 0o644))
		time.Sleep(10 * time.Millisecond)
	}

	expectNotification(t, onChange)
	expectQuiet(t, onChange, 150*time.Millisecond)
}

func TestWatcher_IgnoresIrrelevantFiles(t *testing.T) {
	root := t.TempDir()
	writeResource(t, root, "a=b")
	onChange := startWatcher(t, root)

	require.NoError(t, os.WriteFile(filepath.Join(root, "README.md"), []byte("x"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(root, "META-INF", "other.txt"), []byte("x"), 0o644))

	expectQuiet(t, onChange, 200*time.Millisecond)
}

func TestWatcher_MultipleRoots(t *testing.T) {
	first, second := t.TempDir(), t.TempDir()
	writeResource(t, first, "a=b")
	secondPath := writeResource(t, second, "c=d")
	onChange := startWatcher(t, first, second)

	require.NoError(t, os.WriteFile(secondPath, []byte("c=e"), 0o644))

	expectNotification(t, onChange)
}

func TestWatcher_ResourceDirectoryCreatedLater(t *testing.T) {
	root := t.TempDir()
	onChange := startWatcher(t, root)

	require.NoError(t, os.MkdirAll(filepath.Join(root, "META-INF"), 0o755))
	time.Sleep(50 * time.Millisecond)
	require.NoError(t, os.WriteFile(filepath.Join(root, "META-INF", "nsresolve.handlers"), []byte("a=b"), 0o644))

	expectNotification(t, onChange)
}

func TestWatcher_NestedResourceCreatedLater(t *testing.T) {
	root := t.TempDir()
	onChange := startWatcherAt(t, "META-INF/deep/x.handlers", root)

	require.NoError(t, os.MkdirAll(filepath.Join(root, "META-INF", "deep"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(root, "META-INF", "deep", "x.handlers"), []byte("a=b"), 0o644))

	expectNotification(t, onChange)
}

func TestWatcher_NestedResourceWrittenAfterDirectories(t *testing.T) {
	root := t.TempDir()
	onChange := startWatcherAt(t, "a/b/res", root)

	require.NoError(t, os.MkdirAll(filepath.Join(root, "a", "b"), 0o755))
	time.Sleep(50 * time.Millisecond)
	expectQuiet(t, onChange, 100*time.Millisecond)

	require.NoError(t, os.WriteFile(filepath.Join(root, "a", "b", "res"), []byte("a=b"), 0o644))
	expectNotification(t, onChange)

	require.NoError(t, os.WriteFile(filepath.Join(root, "a", "b", "res"), []byte("a=c"), 0o644))
	expectNotification(t, onChange)
}

func TestWatcher_RemoveTriggers(t *testing.T) {
	root := t.TempDir()
	path := writeResource(t, root, "a=b")
	onChange := startWatcher(t, root)

	require.NoError(t, os.Remove(path))

	expectNotification(t, onChange)
}

func TestWatcher_Stop(t *testing.T) {
	root := t.TempDir()
	w, err := watcher.New(watcher.DefaultConfig(resourcePath, root))
	require.NoError(t, err)

	_, err = w.Start()
	require.NoError(t, err)

	assert.NoError(t, w.Stop())
}

func TestWatcher_MissingRoot(t *testing.T) {
	w, err := watcher.New(watcher.DefaultConfig(resourcePath, filepath.Join(t.TempDir(), "nope")))
	require.NoError(t, err)
	defer func() { _ = w.Stop() }()

	_, err = w.Start()
	require.Error(t, err)
}

func TestNew_RequiresResourcePath(t *testing.T) {
	_, err := watcher.New(watcher.Config{Roots: []string{t.TempDir()}})
	require.Error(t, err)
}

func TestDefaultConfig(t *testing.T) {
	cfg := watcher.DefaultConfig(resourcePath, "a", "b")

	assert.Equal(t, []string{"a", "b"}, cfg.Roots)
	assert.Equal(t, resourcePath, cfg.ResourcePath)
	assert.Equal(t, 100*time.Millisecond, cfg.DebounceDur)
}
