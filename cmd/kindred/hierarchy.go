package main

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/fatih/color"
	"github.com/panbanda/kindred/internal/report"
	"github.com/panbanda/kindred/pkg/analyzer/hierarchy"
	"github.com/spf13/cobra"
)

var hierarchyCmd = &cobra.Command{
	Use:     "hierarchy [path...]",
	Aliases: []string{"tree"},
	Short:   "Show the parent-to-children inheritance index",
	Long: `Inverts declared base classes into a parent-to-children index. Parents
are matched by bare name; a base that names no analyzed class is shown as
external.

Formats dot and mermaid render the inheritance forest, or a single
parent's subtree with --parent. --split writes one Graphviz file per
parent into a directory.

Examples:
  kindred hierarchy ./src
  kindred hierarchy --from classes.json -f dot -o classes.dot
  kindred hierarchy --from classes.json --parent Device -f mermaid
  kindred hierarchy --from classes.json --split graphs/`,
	RunE: runHierarchy,
}

func init() {
	addOutputFlags(hierarchyCmd, "text, json, markdown, toon, dot, mermaid")
	addSourceFlags(hierarchyCmd)
	hierarchyCmd.Flags().String("parent", "", "Restrict graph output to one parent and its children")
	hierarchyCmd.Flags().String("split", "", "Write one DOT file per parent into this directory")

	rootCmd.AddCommand(hierarchyCmd)
}

func runHierarchy(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	src, err := loadIndex(cmd, cfg, args)
	if err != nil {
		return err
	}
	printDiagnostics(src.Diagnostics)

	h := hierarchy.Build(src.Index)
	for _, cycle := range h.Cycles() {
		slog.Warn("inheritance cycle", "classes", fmt.Sprint(cycle))
	}

	if dir, _ := cmd.Flags().GetString("split"); dir != "" {
		return writeParentGraphs(h, dir)
	}

	parent, _ := cmd.Flags().GetString("parent")
	graph := h.Graph()
	if parent != "" {
		if len(h.Children(parent)) == 0 {
			return fmt.Errorf("no class declares %q as a parent", parent)
		}
		graph = h.ParentGraph(parent)
	}

	switch strings.ToLower(getFormat(cmd)) {
	case "dot", "graphviz":
		out, err := hierarchy.ToDOT(graph)
		if err != nil {
			return fmt.Errorf("render dot: %w", err)
		}
		return writeText(cmd, string(out)+"\n")
	case "mermaid":
		return writeText(cmd, "```mermaid\n"+hierarchy.ToMermaid(graph)+"```\n")
	}

	if len(h.Parents()) == 0 {
		color.Yellow("No inheritance relationships found")
		return nil
	}

	formatter, err := newFormatter(cmd, cfg)
	if err != nil {
		return err
	}
	defer formatter.Close()
	return formatter.Output(report.HierarchyReport(h))
}

// writeParentGraphs writes <parent>.dot for every parent name.
func writeParentGraphs(h *hierarchy.Hierarchy, dir string) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create %s: %w", dir, err)
	}
	for _, parent := range h.Parents() {
		out, err := hierarchy.ToDOT(h.ParentGraph(parent))
		if err != nil {
			return fmt.Errorf("render %s: %w", parent, err)
		}
		path := filepath.Join(dir, parent+".dot")
		if err := os.WriteFile(path, out, 0o644); err != nil {
			return err
		}
	}
	color.Green("Wrote %d parent graphs to %s", len(h.Parents()), dir)
	return nil
}

// writeText writes s to --output or stdout.
func writeText(cmd *cobra.Command, s string) error {
	if path := getOutputFile(cmd); path != "" {
		return os.WriteFile(path, []byte(s), 0o644)
	}
	_, err := fmt.Fprint(cmd.OutOrStdout(), s)
	return err
}
