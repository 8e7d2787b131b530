package remote

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse_LocalPath(t *testing.T) {
	dir := t.TempDir()

	src, err := Parse(dir)
	require.NoError(t, err)
	assert.Nil(t, src)
}

func TestParse_NotRemote(t *testing.T) {
	for _, in := range []string{"missing.py", "./rel/path/pkg", "a/b/c"} {
		src, err := Parse(in)
		require.NoError(t, err)
		assert.Nil(t, src, in)
	}
}

func TestParse_Remote(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantURL string
		wantRef string
	}{
		{"shorthand", "bluesky/ophyd", "https://github.com/bluesky/ophyd", ""},
		{"shorthand with tag", "bluesky/ophyd@v1.9.0", "https://github.com/bluesky/ophyd", "v1.9.0"},
		{"shorthand with branch", "owner/repo@feature-branch", "https://github.com/owner/repo", "feature-branch"},
		{"github.com without scheme", "github.com/pcdshub/pcdsdevices", "https://github.com/pcdshub/pcdsdevices", ""},
		{"https URL", "https://gitlab.com/group/project", "https://gitlab.com/group/project", ""},
		{"SSH URL", "git@github.com:owner/repo.git", "git@github.com:owner/repo.git", ""},
		{"SSH URL with ref", "git@github.com:owner/repo.git@main", "git@github.com:owner/repo.git", "main"},
		{"URL with ref", "github.com/bluesky/ophyd@abc1234", "https://github.com/bluesky/ophyd", "abc1234"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			src, err := Parse(tt.input)
			require.NoError(t, err)
			require.NotNil(t, src)
			assert.Equal(t, tt.wantURL, src.URL)
			assert.Equal(t, tt.wantRef, src.Ref)
		})
	}
}

func TestSourceString(t *testing.T) {
	assert.Equal(t, "https://github.com/a/b", (&Source{URL: "https://github.com/a/b"}).String())
	assert.Equal(t, "https://github.com/a/b@v1", (&Source{URL: "https://github.com/a/b", Ref: "v1"}).String())
}

// initRepo creates a local repository with one committed Python file.
func initRepo(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	repo, err := git.PlainInit(dir, false)
	require.NoError(t, err)

	require.NoError(t, os.WriteFile(filepath.Join(dir, "device.py"), []byte("class Motor(Device):\n    pass\n"), 0o644))
	wt, err := repo.Worktree()
	require.NoError(t, err)
	_, err = wt.Add("device.py")
	require.NoError(t, err)
	_, err = wt.Commit("initial", &git.CommitOptions{
		Author: &object.Signature{Name: "test", Email: "test@example.com", When: time.Now()},
	})
	require.NoError(t, err)
	return dir
}

func TestSourceCloneLocal(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping clone test in short mode")
	}
	origin := initRepo(t)

	src := &Source{URL: origin}
	require.NoError(t, src.Clone(context.Background(), nil, false))
	defer src.Cleanup()

	require.NotEmpty(t, src.CloneDir)
	content, err := os.ReadFile(filepath.Join(src.CloneDir, "device.py"))
	require.NoError(t, err)
	assert.Contains(t, string(content), "class Motor")

	dir := src.CloneDir
	src.Cleanup()
	assert.Empty(t, src.CloneDir)
	_, err = os.Stat(dir)
	assert.True(t, os.IsNotExist(err))
}

func TestSourceCloneUnknownRef(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping clone test in short mode")
	}
	origin := initRepo(t)

	src := &Source{URL: origin, Ref: "no-such-branch"}
	err := src.Clone(context.Background(), nil, false)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no-such-branch")
	assert.Empty(t, src.CloneDir)
}
