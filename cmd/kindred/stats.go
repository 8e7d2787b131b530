package main

import (
	"github.com/panbanda/kindred/internal/report"
	"github.com/panbanda/kindred/pkg/analyzer/hierarchy"
	"github.com/spf13/cobra"
)

var statsCmd = &cobra.Command{
	Use:   "stats [path...]",
	Short: "Count classes, methods, attributes and properties",
	Long: `Summarizes a repository's classes: totals, per-class averages, root and
leaf counts, the deepest in-repo inheritance chain, and the files and
parents with the most classes.

Examples:
  kindred stats ./src
  kindred stats --from classes.json -f json`,
	RunE: runStats,
}

func init() {
	addOutputFlags(statsCmd, "text, json, markdown, toon")
	addSourceFlags(statsCmd)

	rootCmd.AddCommand(statsCmd)
}

func runStats(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	src, err := loadIndex(cmd, cfg, args)
	if err != nil {
		return err
	}
	printDiagnostics(src.Diagnostics)

	stats := report.ComputeStats(hierarchy.Build(src.Index), src.FilesScanned)

	formatter, err := newFormatter(cmd, cfg)
	if err != nil {
		return err
	}
	defer formatter.Close()
	return formatter.Output(report.StatsReport(stats))
}
