package mcpserver

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/panbanda/kindred/internal/output"
	"github.com/panbanda/kindred/internal/report"
	scannerSvc "github.com/panbanda/kindred/internal/service/scanner"
	"github.com/panbanda/kindred/internal/store"
	"github.com/panbanda/kindred/pkg/analyzer/hierarchy"
	"github.com/panbanda/kindred/pkg/analyzer/similarity"
	"github.com/panbanda/kindred/pkg/config"
	"github.com/panbanda/kindred/pkg/models"
)

// ScanInput is shared by every tool that scans repositories.
type ScanInput struct {
	Paths  []string `json:"paths,omitempty" jsonschema:"Files or directories to scan. Defaults to current directory."`
	Format string   `json:"format,omitempty" jsonschema:"Output format: toon (default), json, or markdown."`
}

// HierarchyInput adds hierarchy options.
type HierarchyInput struct {
	ScanInput
	Parent string `json:"parent,omitempty" jsonschema:"Only list the children of this base class name."`
}

// SimilarityInput adds sibling similarity options.
type SimilarityInput struct {
	ScanInput
	Threshold float64 `json:"threshold,omitempty" jsonschema:"Jaccard similarity a pair must exceed on methods or attributes. Default 0.7."`
}

// ClustersInput selects a saved cluster list.
type ClustersInput struct {
	From    string `json:"from,omitempty" jsonschema:"Path of a clusters.json written by kindred cluster --save. Default clusters.json."`
	Cluster int    `json:"cluster,omitempty" jsonschema:"1-based cluster number to show with member sources. Default lists every cluster."`
	Format  string `json:"format,omitempty" jsonschema:"Output format: toon (default), json, or markdown."`
}

func getPaths(input ScanInput) []string {
	if len(input.Paths) == 0 {
		return []string{"."}
	}
	return input.Paths
}

func getFormat(format string) output.Format {
	if format == "" {
		return output.FormatTOON
	}
	if f := output.ParseFormat(format); f != output.FormatText {
		return f
	}
	return output.FormatTOON
}

func toolResult(data any, format output.Format) (*mcp.CallToolResult, any, error) {
	var buf strings.Builder
	if err := output.NewWriterFormatter(format, &buf, false).Output(data); err != nil {
		return nil, nil, err
	}
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			&mcp.TextContent{Text: strings.TrimRight(buf.String(), "\n")},
		},
	}, nil, nil
}

func toolError(msg string) (*mcp.CallToolResult, any, error) {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			&mcp.TextContent{Text: "Error: " + msg},
		},
		IsError: true,
	}, nil, nil
}

// scan extracts the class map. Per-file failures are logged and skipped.
func scan(ctx context.Context, input ScanInput) (*scannerSvc.ScanResult, error) {
	svc := scannerSvc.New(
		scannerSvc.WithConfig(config.LoadOrDefault()),
		scannerSvc.WithLogger(slog.Default()),
	)
	result, err := svc.Scan(ctx, getPaths(input)...)
	if err != nil {
		return nil, err
	}
	for _, d := range result.Diagnostics {
		slog.Warn("skipped file", "diagnostic", d.String())
	}
	if result.FilesScanned == 0 {
		return nil, fmt.Errorf("no python files found")
	}
	return result, nil
}

func handleExtractClasses(ctx context.Context, req *mcp.CallToolRequest, input ScanInput) (*mcp.CallToolResult, any, error) {
	result, err := scan(ctx, input)
	if err != nil {
		return toolError(err.Error())
	}
	return toolResult(report.ClassesTable(result.Index), getFormat(input.Format))
}

func handleClassHierarchy(ctx context.Context, req *mcp.CallToolRequest, input HierarchyInput) (*mcp.CallToolResult, any, error) {
	result, err := scan(ctx, input.ScanInput)
	if err != nil {
		return toolError(err.Error())
	}
	h := hierarchy.Build(result.Index)

	if input.Parent == "" {
		return toolResult(report.HierarchyReport(h), getFormat(input.Format))
	}
	children := h.Children(input.Parent)
	if len(children) == 0 {
		return toolError(fmt.Sprintf("no class declares %q as a base", input.Parent))
	}
	return toolResult(map[string][]models.ClassRef{input.Parent: children}, getFormat(input.Format))
}

func handleSiblingSimilarity(ctx context.Context, req *mcp.CallToolRequest, input SimilarityInput) (*mcp.CallToolResult, any, error) {
	threshold := input.Threshold
	if threshold == 0 {
		threshold = config.DefaultConfig().Similarity.Threshold
	}
	if err := config.ValidateSimilarityThreshold(threshold); err != nil {
		return toolError(err.Error())
	}

	result, err := scan(ctx, input.ScanInput)
	if err != nil {
		return toolError(err.Error())
	}
	sims, err := similarity.Group(ctx, hierarchy.Build(result.Index), threshold)
	if err != nil {
		return toolError(err.Error())
	}
	return toolResult(report.SimilarityTable(sims), getFormat(input.Format))
}

func handleClassStats(ctx context.Context, req *mcp.CallToolRequest, input ScanInput) (*mcp.CallToolResult, any, error) {
	result, err := scan(ctx, input)
	if err != nil {
		return toolError(err.Error())
	}
	stats := report.ComputeStats(hierarchy.Build(result.Index), result.FilesScanned)
	return toolResult(report.StatsReport(stats), getFormat(input.Format))
}

func handleListClusters(ctx context.Context, req *mcp.CallToolRequest, input ClustersInput) (*mcp.CallToolResult, any, error) {
	from := input.From
	if from == "" {
		from = store.ClustersFile
	}
	clusters, err := store.LoadClusters(from)
	if err != nil {
		return toolError(err.Error())
	}

	if input.Cluster == 0 {
		return toolResult(report.ClustersTable(clusters), getFormat(input.Format))
	}
	if input.Cluster < 0 || input.Cluster > len(clusters) {
		return toolError(fmt.Sprintf("cluster %d out of range (1-%d)", input.Cluster, len(clusters)))
	}
	return toolResult(clusters[input.Cluster-1], getFormat(input.Format))
}
