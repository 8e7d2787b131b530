package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/fatih/color"
	"github.com/panbanda/kindred/internal/cache"
	"github.com/panbanda/kindred/internal/output"
	"github.com/panbanda/kindred/internal/progress"
	"github.com/panbanda/kindred/internal/remote"
	scannerSvc "github.com/panbanda/kindred/internal/service/scanner"
	"github.com/panbanda/kindred/internal/store"
	"github.com/panbanda/kindred/pkg/config"
	"github.com/panbanda/kindred/pkg/embed"
	"github.com/panbanda/kindred/pkg/models"
	"github.com/panbanda/kindred/pkg/summarize"
	"github.com/spf13/cobra"
)

// getPaths returns paths from args, defaulting to ["."]
func getPaths(args []string) []string {
	if len(args) == 0 {
		return []string{"."}
	}
	return args
}

// getFormat returns the format flag value from the command.
func getFormat(cmd *cobra.Command) string {
	format, _ := cmd.Flags().GetString("format")
	return format
}

// getOutputFile returns the output file path from the command.
func getOutputFile(cmd *cobra.Command) string {
	outputFile, _ := cmd.Flags().GetString("output")
	return outputFile
}

// addOutputFlags registers --format and --output.
func addOutputFlags(cmd *cobra.Command, formats string) {
	cmd.Flags().StringP("format", "f", "text", "Output format: "+formats)
	cmd.Flags().StringP("output", "o", "", "Write output to file instead of stdout")
}

// addSourceFlags registers the flags shared by commands that scan
// repositories or read a saved class map.
func addSourceFlags(cmd *cobra.Command) {
	cmd.Flags().String("from", "", "Read a saved class map instead of scanning")
	cmd.Flags().Bool("shallow", true, "Shallow clone remote repositories")
}

// loadConfig loads --config, or the discovered config file, or the
// defaults, and validates the result.
func loadConfig() (*config.Config, error) {
	path := cfgFile
	if path == "" {
		path = config.FindConfigFile()
	}

	cfg := config.DefaultConfig()
	if path != "" {
		loaded, err := config.Load(path)
		if err != nil {
			return nil, err
		}
		cfg = loaded
		slog.Debug("loaded config", "path", path)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// newFormatter creates the formatter selected by --format and --output.
func newFormatter(cmd *cobra.Command, cfg *config.Config) (*output.Formatter, error) {
	format := getFormat(cmd)
	if !cmd.Flags().Changed("format") && cfg.Output.Format != "" {
		format = cfg.Output.Format
	}
	return output.NewFormatter(output.ParseFormat(format), getOutputFile(cmd), cfg.Output.Color)
}

// resolvePaths clones remote references such as owner/repo@ref into
// temporary directories. The returned cleanup removes them.
func resolvePaths(ctx context.Context, args []string, shallow bool) ([]string, func(), error) {
	paths := getPaths(args)
	var clones []*remote.Source
	cleanup := func() {
		for _, src := range clones {
			src.Cleanup()
		}
	}

	resolved := make([]string, len(paths))
	for i, p := range paths {
		src, err := remote.Parse(p)
		if err != nil {
			cleanup()
			return nil, nil, err
		}
		if src == nil {
			resolved[i] = p
			continue
		}

		var progressOut io.Writer
		if verbose {
			progressOut = os.Stderr
		}
		slog.Info("cloning repository", "source", src.String())
		if err := src.Clone(ctx, progressOut, shallow); err != nil {
			cleanup()
			return nil, nil, err
		}
		clones = append(clones, src)
		resolved[i] = src.CloneDir
	}
	return resolved, cleanup, nil
}

// scanPaths runs the repository scanner with a progress bar on stderr.
func scanPaths(ctx context.Context, cfg *config.Config, paths []string) (*scannerSvc.ScanResult, error) {
	tracker := progress.NewSpinner("Extracting classes")
	svc := scannerSvc.New(
		scannerSvc.WithConfig(cfg),
		scannerSvc.WithLogger(slog.Default()),
		scannerSvc.WithProgress(tracker.SetTotal, tracker.Tick),
	)
	result, err := svc.Scan(ctx, paths...)
	if err != nil {
		tracker.FinishError(err)
		return nil, err
	}
	tracker.FinishSuccess()
	return result, nil
}

// indexSource is a class map together with how it was obtained.
type indexSource struct {
	Index        models.RepositoryIndex
	Diagnostics  []models.Diagnostic
	FilesScanned int
	Paths        []string
}

// loadIndex reads --from when set, otherwise scans the positional paths.
func loadIndex(cmd *cobra.Command, cfg *config.Config, args []string) (*indexSource, error) {
	if from, _ := cmd.Flags().GetString("from"); from != "" {
		idx, err := store.LoadClassMap(from)
		if err != nil {
			return nil, err
		}
		return &indexSource{Index: idx, FilesScanned: len(idx), Paths: []string{from}}, nil
	}

	shallow, _ := cmd.Flags().GetBool("shallow")
	paths, cleanup, err := resolvePaths(cmd.Context(), args, shallow)
	if err != nil {
		return nil, err
	}
	defer cleanup()

	result, err := scanPaths(cmd.Context(), cfg, paths)
	if err != nil {
		return nil, err
	}
	return &indexSource{
		Index:        result.Index,
		Diagnostics:  result.Diagnostics,
		FilesScanned: result.FilesScanned,
		Paths:        getPaths(args),
	}, nil
}

// printDiagnostics writes recovered failures to stderr.
func printDiagnostics(diags []models.Diagnostic) {
	if len(diags) == 0 {
		return
	}
	output.Diagnostics(os.Stderr, diags, !color.NoColor)
}

// saveTo writes a store document, creating the parent directory.
func saveTo(path string, save func(string) error) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create %s: %w", dir, err)
		}
	}
	if err := save(path); err != nil {
		return err
	}
	fmt.Fprintln(os.Stderr, color.GreenString("Saved"), path)
	return nil
}

// newEmbedder builds the embedding chain: cache hits skip the provider,
// misses are retried under the configured policy, and every provider call
// is rate limited.
func newEmbedder(cfg *config.Config) (embed.Embedder, error) {
	key := cfg.Embedding.ResolvedAPIKey()
	if err := config.RequireCredential("embedding.api_key", key); err != nil {
		return nil, err
	}
	delay, err := cfg.Embedding.Delay()
	if err != nil {
		return nil, err
	}

	var e embed.Embedder = embed.NewOpenAI(embed.OpenAIConfig{
		APIKey:  key,
		BaseURL: cfg.Embedding.BaseURL,
		Model:   cfg.Embedding.Model,
	})
	e = embed.NewRateLimited(e, cfg.Embedding.RequestsPerSecond)
	e = embed.NewRetrying(e, embed.RetryPolicy{
		MaxAttempts: cfg.Embedding.MaxAttempts,
		Delay:       delay,
		Multiplier:  cfg.Embedding.BackoffMultiplier,
	}, slog.Default())

	c, err := openCache(cfg)
	if err != nil {
		return nil, err
	}
	if c.Enabled() {
		e = embed.NewCached(e, c, cfg.Embedding.Model, slog.Default())
	}
	return e, nil
}

func openCache(cfg *config.Config) (*cache.Cache, error) {
	c, err := cache.New(cfg.Cache.Dir, cfg.Cache.TTL, cfg.Cache.Enabled)
	if err != nil {
		return nil, fmt.Errorf("open cache %s: %w", cfg.Cache.Dir, err)
	}
	return c, nil
}

// newCompleter builds the chat client for the configured summary provider.
func newCompleter(cfg *config.Config) (summarize.Completer, error) {
	key := cfg.Summary.ResolvedAPIKey()
	if err := config.RequireCredential("summary.api_key", key); err != nil {
		return nil, err
	}
	cc := summarize.ClientConfig{
		APIKey:    key,
		BaseURL:   cfg.Summary.BaseURL,
		Model:     cfg.Summary.Model,
		MaxTokens: int64(cfg.Summary.MaxTokens),
	}
	switch cfg.Summary.Provider {
	case "anthropic":
		if cc.Model == config.DefaultConfig().Summary.Model {
			cc.Model = summarize.DefaultAnthropicModel
		}
		return summarize.NewAnthropicMessages(cc), nil
	default:
		return summarize.NewOpenAIChat(cc), nil
	}
}
