package scanner

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"

	"github.com/panbanda/kindred/pkg/config"
	"github.com/panbanda/kindred/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func quietService(opts ...Option) *Service {
	base := []Option{
		WithConfig(config.DefaultConfig()),
		WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
	}
	return New(append(base, opts...)...)
}

func writeFile(t *testing.T, root, name, content string) {
	t.Helper()
	path := filepath.Join(root, name)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func TestNewWithConfig(t *testing.T) {
	cfg := &config.Config{}
	svc := New(WithConfig(cfg))
	if svc.config != cfg {
		t.Error("WithConfig did not set config")
	}
}

func TestScanSkipsBrokenFile(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "good.py", "class Base: pass\n\nclass Child(Base):\n    def go(self): pass\n")
	writeFile(t, root, "broken.py", "class Broken(:\n    pass\n")

	result, err := quietService().Scan(context.Background(), root)
	require.NoError(t, err)

	assert.Equal(t, 2, result.FilesScanned)
	assert.Equal(t, 1, result.FilesFailed)
	assert.Equal(t, []string{"good.py"}, result.Index.Files())
	assert.Equal(t, 2, result.Index.Len())

	require.Len(t, result.Diagnostics, 1)
	diag := result.Diagnostics[0]
	assert.Equal(t, models.DiagParseFailure, diag.Kind)
	assert.Equal(t, "broken.py", diag.File)
	assert.Contains(t, diag.Message, "syntax error")
}

func TestScanSameNameDifferentFiles(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "a/models.py", "class Config(Base): pass\n")
	writeFile(t, root, "b/models.py", "class Config(Other): pass\n")

	result, err := quietService().Scan(context.Background(), root)
	require.NoError(t, err)

	a, ok := result.Index.Get(models.ClassRef{File: "a/models.py", Name: "Config"})
	require.True(t, ok)
	b, ok := result.Index.Get(models.ClassRef{File: "b/models.py", Name: "Config"})
	require.True(t, ok)
	assert.Equal(t, []string{"Base"}, a.Parents)
	assert.Equal(t, []string{"Other"}, b.Parents)
}

func TestScanEmptyDirectory(t *testing.T) {
	result, err := quietService().Scan(context.Background(), t.TempDir())
	require.NoError(t, err)
	assert.Zero(t, result.Index.Len())
	assert.Empty(t, result.Diagnostics)
}

func TestScanMissingRoot(t *testing.T) {
	_, err := quietService().Scan(context.Background(), filepath.Join(t.TempDir(), "missing"))
	var perr *PathError
	assert.True(t, errors.As(err, &perr))
}

func TestScanSymlinkedRoot(t *testing.T) {
	base := t.TempDir()
	target := filepath.Join(base, "real")
	writeFile(t, target, "a.py", "class A(Base): pass\n")
	link := filepath.Join(base, "link")
	if err := os.Symlink(target, link); err != nil {
		t.Skipf("symlinks unsupported: %v", err)
	}

	viaLink, err := quietService().Scan(context.Background(), link)
	require.NoError(t, err)
	direct, err := quietService().Scan(context.Background(), target)
	require.NoError(t, err)

	assert.Equal(t, 1, viaLink.FilesScanned)
	assert.Equal(t, direct.Index.Len(), viaLink.Index.Len())
	rec, ok := viaLink.Index.Get(models.ClassRef{File: "a.py", Name: "A"})
	require.True(t, ok)
	assert.Equal(t, []string{"Base"}, rec.Parents)
	assert.Empty(t, viaLink.Diagnostics)
}

func TestScanSingleFile(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "one.py", "class One: pass\n")

	result, err := quietService().Scan(context.Background(), filepath.Join(root, "one.py"))
	require.NoError(t, err)
	_, ok := result.Index.Get(models.ClassRef{File: "one.py", Name: "One"})
	assert.True(t, ok)
}

func TestScanReportsProgress(t *testing.T) {
	root := t.TempDir()
	for _, name := range []string{"a.py", "b.py", "c.py"} {
		writeFile(t, root, name, "class X: pass\n")
	}

	var total int
	var ticks atomic.Int32
	svc := quietService(WithWorkers(2), WithProgress(func(n int) { total = n }, func() { ticks.Add(1) }))

	_, err := svc.Scan(context.Background(), root)
	require.NoError(t, err)
	assert.Equal(t, 3, total)
	assert.Equal(t, int32(3), ticks.Load())
}
