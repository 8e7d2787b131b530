// Package scanner builds a RepositoryIndex from one or more directory trees.
package scanner

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/panbanda/kindred/internal/fileproc"
	"github.com/panbanda/kindred/internal/scanner"
	"github.com/panbanda/kindred/pkg/analyzer/classes"
	"github.com/panbanda/kindred/pkg/config"
	"github.com/panbanda/kindred/pkg/models"
	"github.com/panbanda/kindred/pkg/parser"
)

// ScanResult is the aggregated output of a repository scan.
type ScanResult struct {
	Index        models.RepositoryIndex `json:"index"`
	Diagnostics  []models.Diagnostic    `json:"diagnostics"`
	FilesScanned int                    `json:"files_scanned"`
	FilesFailed  int                    `json:"files_failed"`
}

// Service walks directories and runs the structural extractor on every
// discovered file.
type Service struct {
	config     *config.Config
	logger     *slog.Logger
	workers    int
	onProgress func()
	onTotal    func(int)
}

// Option configures a Service.
type Option func(*Service)

// WithConfig sets the configuration.
func WithConfig(cfg *config.Config) Option {
	return func(s *Service) {
		s.config = cfg
	}
}

// WithLogger sets the logger that receives per-file diagnostics.
func WithLogger(l *slog.Logger) Option {
	return func(s *Service) {
		s.logger = l
	}
}

// WithWorkers bounds the number of files parsed concurrently.
func WithWorkers(n int) Option {
	return func(s *Service) {
		s.workers = n
	}
}

// WithProgress registers callbacks for the discovered file count and for
// each processed file.
func WithProgress(onTotal func(int), onProgress func()) Option {
	return func(s *Service) {
		s.onTotal = onTotal
		s.onProgress = onProgress
	}
}

// New creates a new scanner service.
func New(opts ...Option) *Service {
	s := &Service{
		config: config.LoadOrDefault(),
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

type sourceFile struct {
	path string // filesystem path
	key  string // slash-separated path used in the index
}

type fileOutcome struct {
	records map[string]*models.ClassRecord
	diag    *models.Diagnostic
}

// Scan discovers Python files under paths and extracts their classes.
// Unreadable and unparseable files are skipped with a diagnostic; only a
// root that cannot be walked at all is an error. With a single root, index
// keys are relative to it; with several, relative to the working directory.
func (s *Service) Scan(ctx context.Context, paths ...string) (*ScanResult, error) {
	files, walkDiags, err := s.discover(paths)
	if err != nil {
		return nil, err
	}
	if s.onTotal != nil {
		s.onTotal(len(files))
	}

	outcomes, err := fileproc.MapWithResource(ctx, files, s.workers,
		func() *classes.Extractor { return classes.NewExtractor(classes.WithLogger(s.logger)) },
		(*classes.Extractor).Close,
		s.processFile,
		s.onProgress,
	)
	if err != nil {
		return nil, err
	}

	result := &ScanResult{
		Index:        models.RepositoryIndex{},
		Diagnostics:  walkDiags,
		FilesScanned: len(files),
	}
	for _, out := range outcomes {
		if out.diag != nil {
			result.FilesFailed++
			result.Diagnostics = append(result.Diagnostics, *out.diag)
			continue
		}
		for _, rec := range out.records {
			result.Index.Add(rec)
		}
	}
	return result, nil
}

func (s *Service) processFile(ctx context.Context, ex *classes.Extractor, f sourceFile) fileOutcome {
	source, err := os.ReadFile(f.path)
	if err != nil {
		return s.fail(models.DiagIOFailure, f.key, err)
	}

	records, err := ex.Extract(ctx, f.key, source)
	if err != nil {
		var perr *parser.ParseError
		if errors.As(err, &perr) {
			return s.fail(models.DiagParseFailure, f.key, err)
		}
		return s.fail(models.DiagIOFailure, f.key, err)
	}
	return fileOutcome{records: records}
}

func (s *Service) fail(kind models.DiagnosticKind, key string, err error) fileOutcome {
	s.logger.Warn("skipping file", "kind", kind, "path", key, "err", err)
	return fileOutcome{diag: &models.Diagnostic{Kind: kind, File: key, Message: err.Error()}}
}

func (s *Service) discover(paths []string) ([]sourceFile, []models.Diagnostic, error) {
	if len(paths) == 0 {
		paths = []string{"."}
	}

	base := ""
	if len(paths) > 1 {
		wd, err := os.Getwd()
		if err != nil {
			return nil, nil, fmt.Errorf("resolve working directory: %w", err)
		}
		base = wd
	}

	scan := scanner.NewScanner(s.config)
	var files []sourceFile
	diags := []models.Diagnostic{}
	seen := make(map[string]bool)

	for _, path := range paths {
		absPath, err := filepath.Abs(path)
		if err != nil {
			return nil, nil, &PathError{Path: path, Err: err}
		}
		info, err := os.Stat(absPath)
		if err != nil {
			return nil, nil, &PathError{Path: path, Err: err}
		}

		root := absPath
		var found []string
		if info.IsDir() {
			scan.OnError(func(rel string, err error) {
				s.logger.Warn("skipping path", "kind", models.DiagIOFailure, "path", rel, "err", err)
				diags = append(diags, models.Diagnostic{Kind: models.DiagIOFailure, File: rel, Message: err.Error()})
			})
			found, err = scan.ScanDir(absPath)
			if err != nil {
				return nil, nil, &ScanError{Path: path, Err: err}
			}
		} else {
			root = filepath.Dir(absPath)
			if parser.DetectLanguage(absPath) != parser.LangUnknown {
				found = []string{absPath}
			}
		}

		keyBase := root
		if base != "" {
			keyBase = base
		}
		for _, f := range found {
			key := f
			if rel, err := filepath.Rel(keyBase, f); err == nil {
				key = filepath.ToSlash(rel)
			}
			if seen[key] {
				continue
			}
			seen[key] = true
			files = append(files, sourceFile{path: f, key: key})
		}
	}

	return files, diags, nil
}

// PathError indicates an invalid path.
type PathError struct {
	Path string
	Err  error
}

func (e *PathError) Error() string {
	return "invalid path " + e.Path + ": " + e.Err.Error()
}

func (e *PathError) Unwrap() error {
	return e.Err
}

// ScanError indicates a scanning failure.
type ScanError struct {
	Path string
	Err  error
}

func (e *ScanError) Error() string {
	return "failed to scan directory " + e.Path + ": " + e.Err.Error()
}

func (e *ScanError) Unwrap() error {
	return e.Err
}
