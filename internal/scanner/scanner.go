// Package scanner discovers Python source files under a directory tree.
package scanner

import (
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/go-git/go-billy/v5/osfs"
	"github.com/go-git/go-git/v5/plumbing/format/gitignore"
	"github.com/panbanda/kindred/pkg/config"
	"github.com/panbanda/kindred/pkg/parser"
)

// Scanner finds source files in a directory.
type Scanner struct {
	config     *config.Config
	matchers   []gitignore.Matcher
	gitMatcher gitignore.Matcher
	gitPrefix  []string
	onError    func(rel string, err error)
}

// NewScanner creates a new file scanner.
func NewScanner(cfg *config.Config) *Scanner {
	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	return &Scanner{config: cfg}
}

// OnError registers a callback for paths that could not be visited, such
// as unreadable directories or symlink loops. Without one they are skipped
// silently.
func (s *Scanner) OnError(fn func(rel string, err error)) {
	s.onError = fn
}

func (s *Scanner) report(root, path string, err error) {
	if s.onError == nil {
		return
	}
	rel, relErr := filepath.Rel(root, path)
	if relErr != nil {
		rel = path
	}
	s.onError(filepath.ToSlash(rel), err)
}

// findGitRoot walks up from start looking for a .git directory.
// Returns empty string if not in a git repository.
func findGitRoot(start string) string {
	dir := start
	for {
		if info, err := os.Stat(filepath.Join(dir, ".git")); err == nil && info.IsDir() {
			return dir
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return ""
		}
		dir = parent
	}
}

// loadExcludePatterns combines configured exclusions with .gitignore files.
// Excluded directory names become "name/" gitignore patterns so they match
// at any depth.
func (s *Scanner) loadExcludePatterns(root string) {
	s.matchers = nil
	s.gitMatcher = nil
	s.gitPrefix = nil
	var patterns []gitignore.Pattern

	for _, dir := range s.config.Exclude.Dirs {
		patterns = append(patterns, gitignore.ParsePattern(strings.TrimSuffix(dir, "/")+"/", nil))
	}
	for _, pattern := range s.config.Exclude.Patterns {
		patterns = append(patterns, gitignore.ParsePattern(pattern, nil))
	}
	if len(patterns) > 0 {
		s.matchers = append(s.matchers, gitignore.NewMatcher(patterns))
	}

	if !s.config.Exclude.Gitignore {
		return
	}
	gitRoot := findGitRoot(root)
	if gitRoot == "" {
		return
	}
	gitPatterns, err := gitignore.ReadPatterns(osfs.New(gitRoot), nil)
	if err != nil || len(gitPatterns) == 0 {
		return
	}
	// .gitignore patterns are relative to the repository root, so they get
	// a matcher that is fed root-relative paths.
	s.gitMatcher = gitignore.NewMatcher(gitPatterns)
	if rel, err := filepath.Rel(gitRoot, root); err == nil && rel != "." {
		s.gitPrefix = strings.Split(filepath.ToSlash(rel), "/")
	}
}

// isExcluded checks a slash-separated root-relative path against every
// exclusion source.
func (s *Scanner) isExcluded(rel string, isDir bool) bool {
	parts := strings.Split(rel, "/")
	for _, m := range s.matchers {
		if m.Match(parts, isDir) {
			return true
		}
	}
	if s.gitMatcher != nil {
		full := append(append([]string{}, s.gitPrefix...), parts...)
		if s.gitMatcher.Match(full, isDir) {
			return true
		}
	}
	return false
}

// isIncluded applies the optional doublestar include globs.
func (s *Scanner) isIncluded(rel string) bool {
	if len(s.config.Include.Patterns) == 0 {
		return true
	}
	for _, pattern := range s.config.Include.Patterns {
		if ok, _ := doublestar.Match(pattern, rel); ok {
			return true
		}
	}
	return false
}

// ScanDir recursively scans root for Python files and returns their paths
// (root joined with the relative path) in lexicographic order. The walk
// starts from the resolved root, so a root that is itself a symlink is
// followed. Symlinks inside the tree that resolve outside root are skipped.
func (s *Scanner) ScanDir(root string) ([]string, error) {
	absRoot, err := filepath.Abs(root)
	if err != nil {
		return nil, err
	}
	absRoot, err = filepath.EvalSymlinks(absRoot)
	if err != nil {
		return nil, err
	}

	s.loadExcludePatterns(absRoot)

	files := make([]string, 0, 256)
	walkErr := filepath.WalkDir(absRoot, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			s.report(absRoot, path, err)
			return nil
		}
		if path == absRoot {
			return nil
		}

		relPath, err := filepath.Rel(absRoot, path)
		if err != nil {
			return nil
		}
		rel := filepath.ToSlash(relPath)

		if d.Type()&fs.ModeSymlink != 0 {
			resolved, err := filepath.EvalSymlinks(path)
			if err != nil {
				s.report(absRoot, path, err)
				return nil
			}
			if !isWithinRoot(resolved, absRoot) {
				return nil
			}
		}

		if d.IsDir() {
			if s.isExcluded(rel, true) {
				return filepath.SkipDir
			}
			return nil
		}

		if s.isExcluded(rel, false) || !s.isIncluded(rel) {
			return nil
		}
		if parser.DetectLanguage(path) != parser.LangUnknown {
			files = append(files, filepath.Join(root, relPath))
		}
		return nil
	})

	sort.Strings(files)
	return files, walkErr
}

// isWithinRoot checks if a path is contained within the root directory.
func isWithinRoot(path, root string) bool {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return false
	}
	absPath = filepath.Clean(absPath)
	root = filepath.Clean(root)

	// separator suffix keeps "/root2" from matching "/root"
	return absPath == root || strings.HasPrefix(absPath, root+string(filepath.Separator))
}
