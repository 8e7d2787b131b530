package cache

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew(t *testing.T) {
	tmpDir := t.TempDir()

	c, err := New(filepath.Join(tmpDir, "nested", "cache"), 24, true)
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}
	if !c.Enabled() {
		t.Error("cache should be enabled")
	}
	if _, err := os.Stat(filepath.Join(tmpDir, "nested", "cache")); err != nil {
		t.Errorf("cache directory not created: %v", err)
	}

	c, err = New("", 0, false)
	if err != nil {
		t.Fatalf("New() error for disabled cache: %v", err)
	}
	if c.Enabled() {
		t.Error("cache should be disabled")
	}
}

func TestPutGet(t *testing.T) {
	c, err := New(t.TempDir(), 24, true)
	require.NoError(t, err)

	vec := []float64{0.1, -0.2, 0.3}
	require.NoError(t, c.Put("ada", "class A: pass", vec))

	got, ok := c.Get("ada", "class A: pass")
	require.True(t, ok)
	assert.Equal(t, vec, got)

	_, ok = c.Get("other-model", "class A: pass")
	assert.False(t, ok, "entries are scoped by model")

	_, ok = c.Get("ada", "class B: pass")
	assert.False(t, ok)
}

func TestExpiredEntry(t *testing.T) {
	dir := t.TempDir()
	c, err := New(dir, 1, true)
	require.NoError(t, err)
	require.NoError(t, c.Put("m", "text", []float64{1}))

	path := c.keyPath("m", HashText("text"))
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	require.NotEmpty(t, data)

	c.ttl = time.Nanosecond
	time.Sleep(time.Millisecond)
	_, ok := c.Get("m", "text")
	assert.False(t, ok)
	_, err = os.Stat(path)
	assert.True(t, os.IsNotExist(err), "expired entry is removed")
}

func TestDisabledCache(t *testing.T) {
	c, err := New("", 0, false)
	require.NoError(t, err)

	require.NoError(t, c.Put("m", "text", []float64{1}))
	_, ok := c.Get("m", "text")
	assert.False(t, ok)
	assert.NoError(t, c.Clear())

	stats, err := c.GetStats()
	require.NoError(t, err)
	assert.Zero(t, stats.Entries)
}

func TestStatsAndClear(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "cache")
	c, err := New(dir, 0, true)
	require.NoError(t, err)

	require.NoError(t, c.Put("m", "a", []float64{1}))
	require.NoError(t, c.Put("m", "b", []float64{2}))

	stats, err := c.GetStats()
	require.NoError(t, err)
	assert.Equal(t, 2, stats.Entries)
	assert.Positive(t, stats.TotalSize)

	require.NoError(t, c.Clear())
	_, err = os.Stat(dir)
	assert.True(t, os.IsNotExist(err))
}

func TestHashText(t *testing.T) {
	assert.Equal(t, HashText("x"), HashText("x"))
	assert.NotEqual(t, HashText("x"), HashText("y"))
	assert.Len(t, HashText(""), 64)
}
