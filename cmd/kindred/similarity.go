package main

import (
	"github.com/fatih/color"
	"github.com/panbanda/kindred/internal/report"
	"github.com/panbanda/kindred/internal/store"
	"github.com/panbanda/kindred/pkg/analyzer/hierarchy"
	"github.com/panbanda/kindred/pkg/analyzer/similarity"
	"github.com/panbanda/kindred/pkg/config"
	"github.com/spf13/cobra"
)

var similarityCmd = &cobra.Command{
	Use:     "similarity [path...]",
	Aliases: []string{"siblings"},
	Short:   "Find sibling classes with overlapping methods or attributes",
	Long: `For every parent with at least two children, compares each pair of
children by the Jaccard similarity of their method names and of their
attribute names. A pair is reported when either score exceeds the
threshold.

Examples:
  kindred similarity ./src
  kindred similarity --from classes.json --threshold 0.5 -f json
  kindred similarity --from classes.json --save similarity.json`,
	RunE: runSimilarity,
}

func init() {
	addOutputFlags(similarityCmd, "text, json, markdown, toon")
	addSourceFlags(similarityCmd)
	similarityCmd.Flags().Float64("threshold", 0, "Similarity threshold in [0, 1) (default from config, 0.7)")
	similarityCmd.Flags().String("save", "", "Write the similarity report to this JSON file")

	rootCmd.AddCommand(similarityCmd)
}

func runSimilarity(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if cmd.Flags().Changed("threshold") {
		cfg.Similarity.Threshold, _ = cmd.Flags().GetFloat64("threshold")
		if err := config.ValidateSimilarityThreshold(cfg.Similarity.Threshold); err != nil {
			return err
		}
	}

	src, err := loadIndex(cmd, cfg, args)
	if err != nil {
		return err
	}
	printDiagnostics(src.Diagnostics)

	result, err := similarity.Group(cmd.Context(), hierarchy.Build(src.Index), cfg.Similarity.Threshold)
	if err != nil {
		return err
	}

	if path, _ := cmd.Flags().GetString("save"); path != "" {
		if err := saveTo(path, func(p string) error { return store.SaveSimilarity(p, result) }); err != nil {
			return err
		}
	}

	if len(result) == 0 {
		color.Yellow("No sibling pairs above %.2f", cfg.Similarity.Threshold)
		return nil
	}

	formatter, err := newFormatter(cmd, cfg)
	if err != nil {
		return err
	}
	defer formatter.Close()
	return formatter.Output(report.SimilarityTable(result))
}
