package main

import (
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/panbanda/kindred/internal/progress"
	"github.com/panbanda/kindred/internal/report"
	"github.com/panbanda/kindred/internal/store"
	"github.com/panbanda/kindred/pkg/analyzer/cluster"
	"github.com/panbanda/kindred/pkg/config"
	"github.com/panbanda/kindred/pkg/models"
	"github.com/spf13/cobra"
)

var clusterCmd = &cobra.Command{
	Use:   "cluster [path...]",
	Short: "Group classes by the semantic similarity of their source",
	Long: `Embeds the source of every class (optionally only those declaring one
of --bases as a parent) and groups them greedily: each unclaimed class in
file order opens a cluster and claims every unclaimed class whose cosine
similarity to it is at least the threshold.

Classes whose embedding fails after all retries are reported and left
out of every cluster.

Examples:
  kindred cluster ./src --bases Device,Signal
  kindred cluster --from classes.json --threshold 0.9 --save clusters.json`,
	RunE: runCluster,
}

func init() {
	addOutputFlags(clusterCmd, "text, json, markdown, toon")
	addSourceFlags(clusterCmd)
	clusterCmd.Flags().Float64("threshold", 0, "Cosine threshold in (0, 1] (default from config, 0.85)")
	clusterCmd.Flags().StringSlice("bases", nil, "Only cluster classes declaring one of these parents")
	clusterCmd.Flags().Int("workers", 0, "Concurrent embedding requests (default from config)")
	clusterCmd.Flags().String("model", "", "Embedding model (default from config)")
	clusterCmd.Flags().String("save", "", "Write the cluster list to this JSON file")

	rootCmd.AddCommand(clusterCmd)
}

func runCluster(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if err := applyClusterFlags(cmd, cfg); err != nil {
		return err
	}

	src, err := loadIndex(cmd, cfg, args)
	if err != nil {
		return err
	}
	printDiagnostics(src.Diagnostics)

	clusters, diags, err := clusterIndex(cmd, cfg, src.Index)
	if err != nil {
		return err
	}
	printDiagnostics(diags)

	if path, _ := cmd.Flags().GetString("save"); path != "" {
		if err := saveTo(path, func(p string) error { return store.SaveClusters(p, clusters) }); err != nil {
			return err
		}
	}

	if len(clusters) == 0 {
		if len(diags) > 0 {
			color.Yellow("No clusters (%d classes without embeddings)", len(diags))
		} else {
			color.Yellow("No classes to cluster")
		}
		return nil
	}

	formatter, err := newFormatter(cmd, cfg)
	if err != nil {
		return err
	}
	defer formatter.Close()
	return formatter.Output(report.ClustersTable(clusters))
}

func applyClusterFlags(cmd *cobra.Command, cfg *config.Config) error {
	if cmd.Flags().Changed("threshold") {
		cfg.Cluster.Threshold, _ = cmd.Flags().GetFloat64("threshold")
		if err := config.ValidateClusterThreshold(cfg.Cluster.Threshold); err != nil {
			return err
		}
	}
	if cmd.Flags().Changed("bases") {
		cfg.Cluster.Bases, _ = cmd.Flags().GetStringSlice("bases")
	}
	if cmd.Flags().Changed("workers") {
		cfg.Cluster.Workers, _ = cmd.Flags().GetInt("workers")
	}
	if model, _ := cmd.Flags().GetString("model"); model != "" {
		cfg.Embedding.Model = model
	}
	return nil
}

// clusterIndex embeds the selected classes and clusters them.
func clusterIndex(cmd *cobra.Command, cfg *config.Config, idx models.RepositoryIndex) (models.ClusterList, []models.Diagnostic, error) {
	items := cluster.Items(idx, cfg.Cluster.Bases)
	if len(items) == 0 {
		return nil, nil, nil
	}

	embedder, err := newEmbedder(cfg)
	if err != nil {
		return nil, nil, err
	}

	tracker := progress.NewTracker("Embedding classes", len(items))
	outcomes, err := cluster.Acquire(cmd.Context(), items, embedder, cfg.Cluster.Workers, tracker.Tick)
	if err != nil {
		tracker.FinishError(err)
		return nil, nil, err
	}
	tracker.FinishSuccess()

	clusters, diags, err := cluster.Cluster(items, outcomes, cfg.Cluster.Threshold)
	if err != nil {
		return nil, nil, err
	}
	fmt.Fprintf(os.Stderr, "%d classes in %d clusters, %d without embeddings\n",
		clusters.Members(), len(clusters), len(diags))
	return clusters, diags, nil
}
