package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/fatih/color"
	"github.com/panbanda/kindred/internal/report"
	"github.com/panbanda/kindred/internal/store"
	"github.com/panbanda/kindred/pkg/config"
	"github.com/panbanda/kindred/pkg/watch"
	"github.com/spf13/cobra"
)

var extractCmd = &cobra.Command{
	Use:     "extract [path...]",
	Aliases: []string{"classes"},
	Short:   "Extract methods, attributes, properties and parents of every class",
	Long: `Scans Python files under each path and records, for every class, its
methods, attributes, properties and declared parent names.

Paths may be local directories, single files, or remote repositories
given as owner/repo[@ref] or a git URL.

Examples:
  kindred extract ./src
  kindred extract bluesky/ophyd@v1.9.0 --save classes.json
  kindred extract . --watch --save .kindred/classes.json`,
	RunE: runExtract,
}

func init() {
	addOutputFlags(extractCmd, "text, json, markdown, toon")
	addSourceFlags(extractCmd)
	extractCmd.Flags().String("save", "", "Write the class map to this JSON file")
	extractCmd.Flags().Bool("watch", false, "Re-extract when Python files change (local paths only)")

	rootCmd.AddCommand(extractCmd)
}

func runExtract(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	src, err := loadIndex(cmd, cfg, args)
	if err != nil {
		return err
	}
	printDiagnostics(src.Diagnostics)

	if err := emitClasses(cmd, cfg, src); err != nil {
		return err
	}

	if watching, _ := cmd.Flags().GetBool("watch"); watching {
		return watchExtract(cmd, cfg, args)
	}
	return nil
}

func emitClasses(cmd *cobra.Command, cfg *config.Config, src *indexSource) error {
	if path, _ := cmd.Flags().GetString("save"); path != "" {
		if err := saveTo(path, func(p string) error { return store.SaveClassMap(p, src.Index) }); err != nil {
			return err
		}
	}

	if src.Index.Len() == 0 {
		color.Yellow("No classes found")
		return nil
	}

	formatter, err := newFormatter(cmd, cfg)
	if err != nil {
		return err
	}
	defer formatter.Close()
	return formatter.Output(report.ClassesTable(src.Index))
}

// watchExtract re-runs the scan for the first path whenever its Python
// sources settle after a change.
func watchExtract(cmd *cobra.Command, cfg *config.Config, args []string) error {
	root := getPaths(args)[0]
	info, err := os.Stat(root)
	if err != nil || !info.IsDir() {
		return fmt.Errorf("--watch needs a local directory, got %q", root)
	}

	w, err := watch.New(root, cfg, 0, slog.Default())
	if err != nil {
		return err
	}
	defer w.Close()

	w.OnChange(func(ctx context.Context, changed []string) {
		slog.Info("change detected", "files", changed)
		result, err := scanPaths(ctx, cfg, []string{root})
		if err != nil {
			slog.Error("re-extract failed", "err", err)
			return
		}
		printDiagnostics(result.Diagnostics)
		src := &indexSource{Index: result.Index, FilesScanned: result.FilesScanned}
		if err := emitClasses(cmd, cfg, src); err != nil {
			slog.Error("write class map", "err", err)
		}
	})

	color.Cyan("Watching %s for changes. Press Ctrl+C to stop.", root)
	if err := w.Run(cmd.Context()); err != nil && cmd.Context().Err() == nil {
		return err
	}
	return nil
}
