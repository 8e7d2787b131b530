package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/panbanda/kindred/internal/progress"
	"github.com/panbanda/kindred/internal/store"
	"github.com/panbanda/kindred/pkg/config"
	"github.com/panbanda/kindred/pkg/summarize"
	"github.com/spf13/cobra"
)

var summarizeCmd = &cobra.Command{
	Use:   "summarize",
	Short: "Describe each cluster with a language model",
	Long: `Sends the source of the first few members of each cluster to a language
model and writes the answers as markdown, one "## Cluster N (k classes)"
section per cluster. A failed request is reported and its section says
the summary is unavailable.

Examples:
  kindred summarize --from clusters.json -o summaries.md
  kindred summarize --from report/clusters.json --provider anthropic --save report/summaries.json
  kindred summarize --from clusters.json --prompt my-prompt.md`,
	RunE: runSummarize,
}

func init() {
	summarizeCmd.Flags().String("from", store.ClustersFile, "Cluster list to read")
	summarizeCmd.Flags().StringP("output", "o", "", "Write markdown to file instead of stdout")
	summarizeCmd.Flags().String("save", "", "Also write the summaries as JSON (for report render)")
	summarizeCmd.Flags().String("provider", "", "Summary provider: openai, anthropic (default from config)")
	summarizeCmd.Flags().String("model", "", "Chat model (default from config)")
	summarizeCmd.Flags().Int("sample-size", 0, "Member sources sent per cluster (default from config)")
	summarizeCmd.Flags().String("prompt", "", "Markdown prompt template replacing the built-in one")

	rootCmd.AddCommand(summarizeCmd)
}

func runSummarize(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if err := applySummaryFlags(cmd, cfg); err != nil {
		return err
	}

	from, _ := cmd.Flags().GetString("from")
	clusters, err := store.LoadClusters(from)
	if err != nil {
		return err
	}

	completer, err := newCompleter(cfg)
	if err != nil {
		return err
	}

	tracker := progress.NewTracker("Summarizing clusters", len(clusters))
	opts := []summarize.Option{
		summarize.WithSampleSize(cfg.Summary.SampleSize),
		summarize.WithProgress(func(done, total int) { tracker.Tick() }),
	}
	if path, _ := cmd.Flags().GetString("prompt"); path != "" {
		content, err := os.ReadFile(path)
		if err != nil {
			return err
		}
		p, err := summarize.ParsePrompt(filepath.Base(path), content)
		if err != nil {
			return err
		}
		opts = append(opts, summarize.WithPrompt(p))
	}

	s, err := summarize.New(completer, opts...)
	if err != nil {
		return err
	}
	summaries, diags, err := s.Summarize(cmd.Context(), clusters)
	if err != nil {
		tracker.FinishError(err)
		return err
	}
	tracker.FinishSuccess()
	printDiagnostics(diags)

	if path, _ := cmd.Flags().GetString("save"); path != "" {
		if err := saveTo(path, func(p string) error { return store.WriteJSON(p, summaries) }); err != nil {
			return err
		}
	}

	out := cmd.OutOrStdout()
	if path := getOutputFile(cmd); path != "" {
		f, err := os.Create(path)
		if err != nil {
			return err
		}
		defer f.Close()
		out = f
	}
	if err := summarize.WriteMarkdown(out, summaries); err != nil {
		return fmt.Errorf("write summaries: %w", err)
	}
	return nil
}

func applySummaryFlags(cmd *cobra.Command, cfg *config.Config) error {
	if p, _ := cmd.Flags().GetString("provider"); p != "" {
		cfg.Summary.Provider = p
	}
	if m, _ := cmd.Flags().GetString("model"); m != "" {
		cfg.Summary.Model = m
	}
	if n, _ := cmd.Flags().GetInt("sample-size"); n > 0 {
		cfg.Summary.SampleSize = n
	}
	return cfg.Validate()
}
