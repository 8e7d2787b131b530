package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/go-git/go-git/v5"
	"github.com/panbanda/kindred/internal/report"
	"github.com/panbanda/kindred/internal/store"
	"github.com/panbanda/kindred/pkg/analyzer/hierarchy"
	"github.com/panbanda/kindred/pkg/analyzer/similarity"
	"github.com/panbanda/kindred/pkg/models"
	"github.com/sourcegraph/conc"
	"github.com/spf13/cobra"
)

var (
	reportOutputDir    string
	reportDataDir      string
	reportOutputFile   string
	reportSkipValidate bool
	reportPort         int
	reportEmbed        bool
)

var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "Emit cluster listings, CSV, Mermaid diagrams and HTML reports",
	Long: `Emits the stage documents in human-readable forms.

The HTML workflow consists of:
  1. generate - Scan, group siblings and (with --embed) cluster into a data directory
  2. validate - Validate the data directory against the document schemas
  3. render   - Combine the data directory into a self-contained HTML file
  4. serve    - Serve the HTML with a re-render on every request`,
}

var reportClustersCmd = &cobra.Command{
	Use:   "clusters",
	Short: "List clusters and write CSV or Mermaid output",
	Long: `Reads a saved cluster list and prints one row per member. --csv writes
"Cluster Number,Class Name,File Path" rows numbered from 1; --mermaid writes
a classDiagram of the inheritance edges inside each cluster.

Examples:
  kindred report clusters --from clusters.json
  kindred report clusters --from clusters.json --csv clusters.csv
  kindred report clusters --from clusters.json --mermaid clusters.md --cluster 3`,
	RunE: runReportClusters,
}

var reportGenerateCmd = &cobra.Command{
	Use:   "generate [path...]",
	Short: "Write the class map, similarity report and metadata to a data directory",
	RunE:  runReportGenerate,
}

var reportValidateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate a data directory against the document schemas",
	RunE:  runReportValidate,
}

var reportRenderCmd = &cobra.Command{
	Use:   "render",
	Short: "Render a data directory into self-contained HTML",
	RunE:  runReportRender,
}

var reportServeCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the rendered HTML report, re-rendering on each request",
	RunE:  runReportServe,
}

func init() {
	addOutputFlags(reportClustersCmd, "text, json, markdown, toon")
	reportClustersCmd.Flags().String("from", store.ClustersFile, "Cluster list to read")
	reportClustersCmd.Flags().String("csv", "", "Write cluster membership CSV to this file")
	reportClustersCmd.Flags().String("mermaid", "", "Write a Mermaid class diagram to this file")
	reportClustersCmd.Flags().Int("cluster", 0, "Restrict the diagram to one cluster (1-based)")

	reportGenerateCmd.Flags().StringVarP(&reportOutputDir, "output", "o", "", "Output directory (default: ./kindred-report-<date>/)")
	reportGenerateCmd.Flags().BoolVar(&reportEmbed, "embed", false, "Also cluster classes by embedding similarity")
	addSourceFlags(reportGenerateCmd)
	reportGenerateCmd.Flags().Float64("threshold", 0, "Cosine threshold for --embed (default from config)")
	reportGenerateCmd.Flags().StringSlice("bases", nil, "Only cluster classes declaring one of these parents")
	reportGenerateCmd.Flags().Int("workers", 0, "Concurrent embedding requests (default from config)")
	reportGenerateCmd.Flags().String("model", "", "Embedding model (default from config)")

	reportValidateCmd.Flags().StringVarP(&reportDataDir, "data", "d", "", "Input data directory")

	reportRenderCmd.Flags().StringVarP(&reportDataDir, "data", "d", "", "Input data directory")
	reportRenderCmd.Flags().StringVarP(&reportOutputFile, "output", "o", "kindred-report.html", "Output HTML file")
	reportRenderCmd.Flags().BoolVar(&reportSkipValidate, "skip-validate", false, "Skip validation before rendering")

	reportServeCmd.Flags().StringVarP(&reportDataDir, "data", "d", "", "Input data directory")
	reportServeCmd.Flags().IntVarP(&reportPort, "port", "p", 8080, "Port number")

	reportCmd.AddCommand(reportClustersCmd)
	reportCmd.AddCommand(reportGenerateCmd)
	reportCmd.AddCommand(reportValidateCmd)
	reportCmd.AddCommand(reportRenderCmd)
	reportCmd.AddCommand(reportServeCmd)

	rootCmd.AddCommand(reportCmd)
}

func runReportClusters(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	from, _ := cmd.Flags().GetString("from")
	clusters, err := store.LoadClusters(from)
	if err != nil {
		return err
	}

	if path, _ := cmd.Flags().GetString("csv"); path != "" {
		if err := writeClustersCSV(path, clusters); err != nil {
			return err
		}
	}

	if path, _ := cmd.Flags().GetString("mermaid"); path != "" {
		n, _ := cmd.Flags().GetInt("cluster")
		diagram, err := clusterDiagram(clusters, n)
		if err != nil {
			return err
		}
		if err := os.WriteFile(path, []byte(report.Fence(diagram)), 0o644); err != nil {
			return err
		}
		color.Green("Mermaid diagram written to %s", path)
	}

	if len(clusters) == 0 {
		color.Yellow("No clusters in %s", from)
		return nil
	}

	formatter, err := newFormatter(cmd, cfg)
	if err != nil {
		return err
	}
	defer formatter.Close()
	return formatter.Output(report.ClustersTable(clusters))
}

func writeClustersCSV(path string, clusters models.ClusterList) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := report.WriteClustersCSV(f, clusters); err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}
	color.Green("CSV written to %s", path)
	return nil
}

// clusterDiagram renders cluster n (1-based), or all clusters when n is 0.
func clusterDiagram(clusters models.ClusterList, n int) (string, error) {
	if n == 0 {
		return report.AllClustersDiagram(clusters), nil
	}
	if n < 1 || n > len(clusters) {
		return "", fmt.Errorf("--cluster %d out of range (1-%d)", n, len(clusters))
	}
	return report.ClusterDiagram(clusters[n-1]), nil
}

func runReportGenerate(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if reportEmbed {
		if err := applyClusterFlags(cmd, cfg); err != nil {
			return err
		}
	}

	outputDir := reportOutputDir
	if outputDir == "" {
		outputDir = fmt.Sprintf("kindred-report-%s", time.Now().Format("2006-01-02"))
	}
	if err := os.MkdirAll(outputDir, 0o755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	src, err := loadIndex(cmd, cfg, args)
	if err != nil {
		return err
	}
	printDiagnostics(src.Diagnostics)
	h := hierarchy.Build(src.Index)

	// sibling grouping and clustering only read the index
	var (
		siblings    models.SimilarityReport
		siblingsErr error
		clusters    models.ClusterList
		clusterDiag []models.Diagnostic
		clusterErr  error
	)
	wg := conc.NewWaitGroup()
	wg.Go(func() {
		siblings, siblingsErr = similarity.Group(cmd.Context(), h, cfg.Similarity.Threshold)
	})
	if reportEmbed {
		wg.Go(func() {
			clusters, clusterDiag, clusterErr = clusterIndex(cmd, cfg, src.Index)
		})
	}
	wg.Wait()
	if err := errors.Join(siblingsErr, clusterErr); err != nil {
		return err
	}
	printDiagnostics(clusterDiag)

	meta := report.Metadata{
		Repository:          repoName(src.Paths[0]),
		GeneratedAt:         time.Now().UTC(),
		Version:             version,
		Paths:               src.Paths,
		SimilarityThreshold: cfg.Similarity.Threshold,
	}
	if reportEmbed {
		meta.ClusterThreshold = cfg.Cluster.Threshold
		meta.EmbeddingModel = cfg.Embedding.Model
	}

	writes := []struct {
		name string
		save func(string) error
	}{
		{report.MetadataFile, func(p string) error { return store.WriteJSON(p, meta) }},
		{store.ClassMapFile, func(p string) error { return store.SaveClassMap(p, src.Index) }},
		{store.SimilarityFile, func(p string) error { return store.SaveSimilarity(p, siblings) }},
	}
	if len(clusters) > 0 {
		writes = append(writes, struct {
			name string
			save func(string) error
		}{store.ClustersFile, func(p string) error { return store.SaveClusters(p, clusters) }})
	}
	for _, w := range writes {
		if err := w.save(filepath.Join(outputDir, w.name)); err != nil {
			return fmt.Errorf("failed to write %s: %w", w.name, err)
		}
	}

	fmt.Printf("Report data generated: %s\n", outputDir)
	return nil
}

// dataDocuments maps the schema-checked files of a data directory to
// their kinds. Only the class map is required.
var dataDocuments = []struct {
	file     string
	kind     store.Kind
	required bool
}{
	{store.ClassMapFile, store.KindClassMap, true},
	{store.SimilarityFile, store.KindSimilarity, false},
	{store.ClustersFile, store.KindClusters, false},
}

func runReportValidate(cmd *cobra.Command, args []string) error {
	if reportDataDir == "" {
		return fmt.Errorf("--data flag is required")
	}
	problems := validateDataDir(reportDataDir)
	if len(problems) > 0 {
		for _, p := range problems {
			fmt.Fprintf(os.Stderr, "Validation error: %s\n", p)
		}
		return fmt.Errorf("validation failed with %d error(s)", len(problems))
	}
	fmt.Println("Validation passed")
	return nil
}

func validateDataDir(dir string) []string {
	var problems []string
	for _, doc := range dataDocuments {
		data, err := os.ReadFile(filepath.Join(dir, doc.file))
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) && !doc.required {
				continue
			}
			problems = append(problems, fmt.Sprintf("%s: %v", doc.file, err))
			continue
		}
		if err := store.Validate(doc.kind, data); err != nil {
			problems = append(problems, fmt.Sprintf("%s: %v", doc.file, err))
		}
	}

	for _, file := range []string{report.MetadataFile, report.SummariesFile} {
		data, err := os.ReadFile(filepath.Join(dir, file))
		if err != nil {
			continue
		}
		var js json.RawMessage
		if err := json.Unmarshal(data, &js); err != nil {
			problems = append(problems, fmt.Sprintf("%s: invalid JSON: %v", file, err))
		}
	}
	return problems
}

func runReportRender(cmd *cobra.Command, args []string) error {
	if reportDataDir == "" {
		return fmt.Errorf("--data flag is required")
	}
	if !reportSkipValidate {
		if err := runReportValidate(cmd, args); err != nil {
			return err
		}
	}

	renderer, err := report.NewRenderer()
	if err != nil {
		return fmt.Errorf("failed to create renderer: %w", err)
	}
	if err := renderer.RenderToFile(reportDataDir, reportOutputFile); err != nil {
		return fmt.Errorf("failed to render report: %w", err)
	}

	fmt.Printf("Report rendered: %s\n", reportOutputFile)
	return nil
}

func runReportServe(cmd *cobra.Command, args []string) error {
	if reportDataDir == "" {
		return fmt.Errorf("--data flag is required")
	}
	if err := runReportValidate(cmd, args); err != nil {
		return err
	}

	renderer, err := report.NewRenderer()
	if err != nil {
		return fmt.Errorf("failed to create renderer: %w", err)
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		if err := renderer.Render(reportDataDir, w); err != nil {
			http.Error(w, fmt.Sprintf("render error: %v", err), http.StatusInternalServerError)
		}
	})

	srv := &http.Server{Addr: fmt.Sprintf(":%d", reportPort), Handler: mux, ReadHeaderTimeout: 10 * time.Second}
	go func() {
		<-cmd.Context().Done()
		srv.Close()
	}()

	fmt.Printf("Serving report at http://localhost%s\n", srv.Addr)
	fmt.Println("Press Ctrl+C to stop")
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// repoName returns the name from the origin remote of the repository
// containing path, falling back to the directory name.
func repoName(path string) string {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return filepath.Base(path)
	}

	repo, err := git.PlainOpenWithOptions(absPath, &git.PlainOpenOptions{DetectDotGit: true})
	if err == nil {
		if origin, err := repo.Remote("origin"); err == nil && len(origin.Config().URLs) > 0 {
			url := strings.TrimSuffix(origin.Config().URLs[0], ".git")
			if idx := strings.LastIndexAny(url, "/:"); idx >= 0 {
				return url[idx+1:]
			}
			return url
		}
	} else {
		slog.Debug("no git repository", "path", absPath, "err", err)
	}

	if info, err := os.Stat(absPath); err == nil && !info.IsDir() {
		absPath = filepath.Dir(absPath)
	}
	return filepath.Base(absPath)
}
