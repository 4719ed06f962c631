package watcher

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// withFastDebounce shrinks the debounce window for the duration of a test,
// restoring it on cleanup (mirrors rcourtman-Pulse's zeroable debounce
// package vars).
func withFastDebounce(t *testing.T) {
	t.Helper()
	prev := debounceWindow
	debounceWindow = 20 * time.Millisecond
	t.Cleanup(func() { debounceWindow = prev })
}

func TestWatcher_GetWatchStatus_DisabledByDefault(t *testing.T) {
	w := New(func(string) {}, nil)
	status := w.GetWatchStatus()
	assert.False(t, status.Enabled)
	assert.Empty(t, status.WatchingPath)
}

func TestWatcher_StartWatching_ReportsStatus(t *testing.T) {
	dir := t.TempDir()
	w := New(func(string) {}, nil)
	require.NoError(t, w.StartWatching("proj", dir))
	defer w.StopWatchMode()

	status := w.GetWatchStatus()
	assert.True(t, status.Enabled)
	assert.Equal(t, "proj", status.ProjectName)
	assert.Equal(t, dir, status.WatchingPath)
}

func TestWatcher_FileChange_TriggersDebouncedReload(t *testing.T) {
	withFastDebounce(t)
	dir := t.TempDir()

	reloaded := make(chan string, 8)
	w := New(func(name string) { reloaded <- name }, nil)
	require.NoError(t, w.StartWatching("proj", dir))
	defer w.StopWatchMode()

	require.NoError(t, os.WriteFile(filepath.Join(dir, "model.malloy"), []byte("source: s is table('x') extend { }"), 0o644))

	select {
	case name := <-reloaded:
		assert.Equal(t, "proj", name)
	case <-time.After(2 * time.Second):
		t.Fatal("expected a reload notification")
	}
}

func TestWatcher_IrrelevantFile_DoesNotTriggerReload(t *testing.T) {
	withFastDebounce(t)
	dir := t.TempDir()

	reloaded := make(chan string, 8)
	w := New(func(name string) { reloaded <- name }, nil)
	require.NoError(t, w.StartWatching("proj", dir))
	defer w.StopWatchMode()

	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("irrelevant"), 0o644))

	select {
	case name := <-reloaded:
		t.Fatalf("unexpected reload for irrelevant file: %s", name)
	case <-time.After(150 * time.Millisecond):
	}
}

func TestWatcher_StartWatching_ReplacesPriorWatcher(t *testing.T) {
	withFastDebounce(t)
	dirA := t.TempDir()
	dirB := t.TempDir()

	w := New(func(string) {}, nil)
	require.NoError(t, w.StartWatching("a", dirA))
	require.NoError(t, w.StartWatching("b", dirB))
	defer w.StopWatchMode()

	status := w.GetWatchStatus()
	assert.Equal(t, "b", status.ProjectName)
	assert.Equal(t, dirB, status.WatchingPath)
}

func TestWatcher_StopWatchMode_DisablesStatus(t *testing.T) {
	dir := t.TempDir()
	w := New(func(string) {}, nil)
	require.NoError(t, w.StartWatching("proj", dir))
	w.StopWatchMode()

	assert.False(t, w.GetWatchStatus().Enabled)
}
