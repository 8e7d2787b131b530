package watch

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/panbanda/kindred/pkg/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestWatcher(t *testing.T, debounce time.Duration) (*Watcher, string) {
	t.Helper()
	dir := t.TempDir()
	w, err := New(dir, config.DefaultConfig(), debounce, nil)
	require.NoError(t, err)
	t.Cleanup(func() { w.Close() })
	return w, dir
}

func TestNewDefaults(t *testing.T) {
	w, dir := newTestWatcher(t, 0)
	if w.debounce != DefaultDebounce {
		t.Errorf("debounce = %v, want %v", w.debounce, DefaultDebounce)
	}
	if w.root != dir {
		t.Errorf("root = %v, want %v", w.root, dir)
	}
	if w.pending == nil {
		t.Error("pending map should be initialized")
	}

	w2, _ := newTestWatcher(t, -time.Second)
	assert.Equal(t, DefaultDebounce, w2.debounce)
}

func TestHandleEvent(t *testing.T) {
	w, dir := newTestWatcher(t, time.Second)

	tests := []struct {
		name        string
		event       fsnotify.Event
		key         string
		wantPending bool
	}{
		{"write python", fsnotify.Event{Name: filepath.Join(dir, "device.py"), Op: fsnotify.Write}, "device.py", true},
		{"create stub", fsnotify.Event{Name: filepath.Join(dir, "types.pyi"), Op: fsnotify.Create}, "types.pyi", true},
		{"remove python", fsnotify.Event{Name: filepath.Join(dir, "gone.py"), Op: fsnotify.Remove}, "gone.py", true},
		{"chmod ignored", fsnotify.Event{Name: filepath.Join(dir, "mode.py"), Op: fsnotify.Chmod}, "mode.py", false},
		{"non-python ignored", fsnotify.Event{Name: filepath.Join(dir, "notes.txt"), Op: fsnotify.Write}, "notes.txt", false},
		{"excluded dir ignored", fsnotify.Event{Name: filepath.Join(dir, "venv", "lib.py"), Op: fsnotify.Write}, "venv/lib.py", false},
		{"nested python", fsnotify.Event{Name: filepath.Join(dir, "pkg", "motor.py"), Op: fsnotify.Write}, "pkg/motor.py", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w.mu.Lock()
			w.pending = make(map[string]time.Time)
			w.mu.Unlock()

			w.handleEvent(tt.event)

			w.mu.Lock()
			_, found := w.pending[tt.key]
			w.mu.Unlock()
			assert.Equal(t, tt.wantPending, found)
		})
	}
}

func TestSettled(t *testing.T) {
	w, _ := newTestWatcher(t, 100*time.Millisecond)
	now := time.Now()

	w.pending["b.py"] = now.Add(-time.Second)
	w.pending["a.py"] = now.Add(-time.Second)
	w.pending["fresh.py"] = now

	assert.Equal(t, []string{"a.py", "b.py"}, w.settled(now))
	assert.Len(t, w.pending, 1)
	assert.Empty(t, w.settled(now))
	assert.Equal(t, []string{"fresh.py"}, w.settled(now.Add(time.Second)))
}

func TestAddTreeSkipsExcluded(t *testing.T) {
	w, dir := newTestWatcher(t, time.Second)
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "pkg", "sub"), 0o755))
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "__pycache__"), 0o755))

	require.NoError(t, w.addTree(dir))

	watched := w.WatchedDirs()
	assert.Contains(t, watched, dir)
	assert.Contains(t, watched, filepath.Join(dir, "pkg", "sub"))
	assert.NotContains(t, watched, filepath.Join(dir, "__pycache__"))
}

func TestRunDeliversBatch(t *testing.T) {
	w, dir := newTestWatcher(t, 50*time.Millisecond)

	var mu sync.Mutex
	var got []string
	w.OnChange(func(_ context.Context, paths []string) {
		mu.Lock()
		got = append(got, paths...)
		mu.Unlock()
	})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()

	// wait for the root to be registered before writing
	require.Eventually(t, func() bool { return len(w.WatchedDirs()) > 0 }, 2*time.Second, 10*time.Millisecond)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "motor.py"), []byte("class Motor:\n    pass\n"), 0o644))

	assert.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(got) > 0 && got[0] == "motor.py"
	}, 5*time.Second, 20*time.Millisecond)

	cancel()
	assert.ErrorIs(t, <-done, context.Canceled)
}
