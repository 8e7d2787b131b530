// Package remote resolves repository references such as owner/repo@ref
// and clones them into a temporary directory for scanning.
package remote

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
)

// Source represents a remote repository to scan.
type Source struct {
	URL      string // normalized git URL
	Ref      string // branch, tag, or SHA (empty = default branch)
	CloneDir string // temp directory after clone
}

var shaPattern = regexp.MustCompile(`^[0-9a-f]{7,40}$`)

// Parse detects if a path is a remote reference. It returns nil when the
// path exists on the filesystem, which always takes precedence.
func Parse(path string) (*Source, error) {
	if _, err := os.Stat(path); err == nil {
		return nil, nil
	}

	path, ref := splitRef(path)

	switch {
	case strings.HasPrefix(path, "https://"), strings.HasPrefix(path, "http://"),
		strings.HasPrefix(path, "git@"), strings.HasPrefix(path, "ssh://"):
		return &Source{URL: path, Ref: ref}, nil
	case strings.HasPrefix(path, "github.com/"), strings.HasPrefix(path, "gitlab.com/"),
		strings.HasPrefix(path, "bitbucket.org/"):
		return &Source{URL: "https://" + path, Ref: ref}, nil
	case isGitHubShorthand(path):
		return &Source{URL: "https://github.com/" + path, Ref: ref}, nil
	}

	return nil, nil
}

// splitRef separates a trailing @ref. The user part of an scp-style
// git@host:repo URL is not a ref.
func splitRef(path string) (string, string) {
	idx := strings.LastIndex(path, "@")
	if idx == -1 || (strings.HasPrefix(path, "git@") && idx == len("git")) {
		return path, ""
	}
	return path[:idx], path[idx+1:]
}

// isGitHubShorthand returns true if path matches owner/repo.
func isGitHubShorthand(path string) bool {
	slashIdx := strings.Index(path, "/")
	if slashIdx == -1 {
		return false
	}
	if strings.Count(path, "/") != 1 {
		return false
	}
	// a dot before the slash indicates a domain or a relative path
	if strings.Contains(path[:slashIdx], ".") {
		return false
	}
	return slashIdx > 0 && slashIdx < len(path)-1
}

// Clone fetches the repository into a new temporary directory and checks
// out Ref. Branches and tags are tried in that order; a ref that looks
// like a commit SHA forces a full clone followed by a checkout. Progress
// from the remote is written to progress, which may be nil.
func (s *Source) Clone(ctx context.Context, progress io.Writer, shallow bool) error {
	dir, err := os.MkdirTemp("", "kindred-clone-*")
	if err != nil {
		return fmt.Errorf("create clone directory: %w", err)
	}
	s.CloneDir = dir

	if s.Ref != "" && shaPattern.MatchString(s.Ref) {
		return s.cloneAtCommit(ctx, progress)
	}

	depth := 0
	if shallow {
		depth = 1
	}

	candidates := []plumbing.ReferenceName{""}
	if s.Ref != "" {
		candidates = []plumbing.ReferenceName{
			plumbing.NewBranchReferenceName(s.Ref),
			plumbing.NewTagReferenceName(s.Ref),
		}
	}

	var lastErr error
	for _, name := range candidates {
		_, err := git.PlainCloneContext(ctx, dir, false, &git.CloneOptions{
			URL:           s.URL,
			ReferenceName: name,
			SingleBranch:  name != "",
			Depth:         depth,
			Progress:      progress,
		})
		if err == nil {
			return nil
		}
		lastErr = err
		if err := resetDir(dir); err != nil {
			return err
		}
	}
	s.Cleanup()
	return fmt.Errorf("clone %s: %w", s.String(), lastErr)
}

func (s *Source) cloneAtCommit(ctx context.Context, progress io.Writer) error {
	repo, err := git.PlainCloneContext(ctx, s.CloneDir, false, &git.CloneOptions{
		URL:      s.URL,
		Progress: progress,
	})
	if err != nil {
		s.Cleanup()
		return fmt.Errorf("clone %s: %w", s.URL, err)
	}

	hash, err := repo.ResolveRevision(plumbing.Revision(s.Ref))
	if err != nil {
		s.Cleanup()
		return fmt.Errorf("resolve %s: %w", s.Ref, err)
	}
	wt, err := repo.Worktree()
	if err != nil {
		s.Cleanup()
		return err
	}
	if err := wt.Checkout(&git.CheckoutOptions{Hash: *hash}); err != nil {
		s.Cleanup()
		return fmt.Errorf("checkout %s: %w", s.Ref, err)
	}
	return nil
}

// Cleanup removes the clone directory.
func (s *Source) Cleanup() {
	if s.CloneDir != "" {
		os.RemoveAll(s.CloneDir)
		s.CloneDir = ""
	}
}

// String returns URL@Ref, or URL when no ref is set.
func (s *Source) String() string {
	if s.Ref == "" {
		return s.URL
	}
	return s.URL + "@" + s.Ref
}

func resetDir(dir string) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return err
	}
	var errs []error
	for _, e := range entries {
		errs = append(errs, os.RemoveAll(filepath.Join(dir, e.Name())))
	}
	return errors.Join(errs...)
}
