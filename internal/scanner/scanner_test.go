package scanner

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/panbanda/kindred/pkg/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeTree(t *testing.T, root string, files map[string]string) {
	t.Helper()
	for name, content := range files {
		path := filepath.Join(root, name)
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	}
}

func relAll(t *testing.T, root string, files []string) []string {
	t.Helper()
	out := make([]string, 0, len(files))
	for _, f := range files {
		rel, err := filepath.Rel(root, f)
		require.NoError(t, err)
		out = append(out, filepath.ToSlash(rel))
	}
	return out
}

func TestNewScanner(t *testing.T) {
	s := NewScanner(nil)
	require.NotNil(t, s)
	assert.NotNil(t, s.config)

	cfg := config.DefaultConfig()
	assert.Same(t, cfg, NewScanner(cfg).config)
}

func TestScanDir(t *testing.T) {
	root := t.TempDir()
	writeTree(t, root, map[string]string{
		"b.py":                    "class B: pass\n",
		"a.py":                    "class A: pass\n",
		"pkg/devices.py":          "class D: pass\n",
		"pkg/stubs.pyi":           "class S: ...\n",
		"pkg/README.md":           "# docs\n",
		"venv/lib/site.py":        "x = 1\n",
		"pkg/__pycache__/c.py":    "x = 1\n",
		"deep/nested/dir/more.py": "class M: pass\n",
	})

	files, err := NewScanner(config.DefaultConfig()).ScanDir(root)
	require.NoError(t, err)

	assert.Equal(t, []string{
		"a.py",
		"b.py",
		"deep/nested/dir/more.py",
		"pkg/devices.py",
		"pkg/stubs.pyi",
	}, relAll(t, root, files))
}

func TestScanDirExcludePatterns(t *testing.T) {
	root := t.TempDir()
	writeTree(t, root, map[string]string{
		"src/module.py":       "x = 1\n",
		"src/test_module.py":  "x = 1\n",
		"tests/test_other.py": "x = 1\n",
	})

	cfg := config.DefaultConfig()
	cfg.Exclude.Patterns = []string{"test_*.py"}

	files, err := NewScanner(cfg).ScanDir(root)
	require.NoError(t, err)
	assert.Equal(t, []string{"src/module.py"}, relAll(t, root, files))
}

func TestScanDirIncludeGlobs(t *testing.T) {
	root := t.TempDir()
	writeTree(t, root, map[string]string{
		"ophyd/areadetector/cam.py": "x = 1\n",
		"ophyd/signal.py":           "x = 1\n",
		"docs/conf.py":              "x = 1\n",
	})

	cfg := config.DefaultConfig()
	cfg.Include.Patterns = []string{"ophyd/**/*.py"}

	files, err := NewScanner(cfg).ScanDir(root)
	require.NoError(t, err)
	assert.Equal(t, []string{"ophyd/areadetector/cam.py", "ophyd/signal.py"}, relAll(t, root, files))
}

func TestScanDirGitignore(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.Mkdir(filepath.Join(root, ".git"), 0o755))
	writeTree(t, root, map[string]string{
		".gitignore":         "generated/\n",
		"keep.py":            "x = 1\n",
		"generated/auto.py":  "x = 1\n",
		".git/hooks/hook.py": "x = 1\n",
	})

	files, err := NewScanner(config.DefaultConfig()).ScanDir(root)
	require.NoError(t, err)
	assert.Equal(t, []string{"keep.py"}, relAll(t, root, files))

	cfg := config.DefaultConfig()
	cfg.Exclude.Gitignore = false
	files, err = NewScanner(cfg).ScanDir(root)
	require.NoError(t, err)
	assert.Equal(t, []string{"generated/auto.py", "keep.py"}, relAll(t, root, files))
}

func TestScanDirSymlinkOutsideRoot(t *testing.T) {
	outside := t.TempDir()
	writeTree(t, outside, map[string]string{"secret.py": "x = 1\n"})

	root := t.TempDir()
	writeTree(t, root, map[string]string{"inside.py": "x = 1\n"})
	if err := os.Symlink(filepath.Join(outside, "secret.py"), filepath.Join(root, "link.py")); err != nil {
		t.Skipf("symlinks unsupported: %v", err)
	}

	files, err := NewScanner(nil).ScanDir(root)
	require.NoError(t, err)
	assert.Equal(t, []string{"inside.py"}, relAll(t, root, files))
}

func TestScanDirMissingRoot(t *testing.T) {
	_, err := NewScanner(nil).ScanDir(filepath.Join(t.TempDir(), "nope"))
	assert.Error(t, err)
}

func TestScanDirEmpty(t *testing.T) {
	files, err := NewScanner(nil).ScanDir(t.TempDir())
	require.NoError(t, err)
	assert.Empty(t, files)
}

func TestIsWithinRoot(t *testing.T) {
	assert.True(t, isWithinRoot("/repo/a/b.py", "/repo"))
	assert.True(t, isWithinRoot("/repo", "/repo"))
	assert.False(t, isWithinRoot("/repo2/x.py", "/repo"))
	assert.False(t, isWithinRoot("/etc/passwd", "/repo"))
}

func TestScanDirReportsBrokenSymlink(t *testing.T) {
	root := t.TempDir()
	writeTree(t, root, map[string]string{"ok.py": "x = 1\n"})
	if err := os.Symlink(filepath.Join(root, "loop.py"), filepath.Join(root, "loop.py")); err != nil {
		t.Skipf("symlinks unsupported: %v", err)
	}

	var reported []string
	s := NewScanner(nil)
	s.OnError(func(rel string, err error) {
		reported = append(reported, rel)
	})

	files, err := s.ScanDir(root)
	require.NoError(t, err)
	assert.Equal(t, []string{"ok.py"}, relAll(t, root, files))
	assert.Equal(t, []string{"loop.py"}, reported)
}

func TestScanDirSymlinkedRoot(t *testing.T) {
	base := t.TempDir()
	target := filepath.Join(base, "real")
	writeTree(t, target, map[string]string{
		"a.py":     "class A(Base): pass\n",
		"pkg/b.py": "class B: pass\n",
	})
	link := filepath.Join(base, "link")
	if err := os.Symlink(target, link); err != nil {
		t.Skipf("symlinks unsupported: %v", err)
	}

	files, err := NewScanner(nil).ScanDir(link)
	require.NoError(t, err)
	assert.Equal(t, []string{"a.py", "pkg/b.py"}, relAll(t, link, files))
	for _, f := range files {
		assert.True(t, strings.HasPrefix(f, link), "%s is not under the link", f)
	}
}
