package main

import (
	"fmt"

	"github.com/panbanda/kindred/internal/mcpserver"
	"github.com/spf13/cobra"
)

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Start MCP (Model Context Protocol) server for LLM tool integration",
	Long: `Starts an MCP server over stdio transport that exposes kindred's class
analysis as tools that LLMs can invoke.

To use with Claude Desktop, add to your config:
  {
    "mcpServers": {
      "kindred": {
        "command": "kindred",
        "args": ["mcp"]
      }
    }
  }

Available tools:
  - extract_classes       Methods, attributes, properties and bases per class
  - class_hierarchy       Direct children of every base class name
  - sibling_similarity    Sibling pairs with overlapping methods or attributes
  - class_stats           Class totals, averages, roots, leaves and depth
  - list_clusters         Semantic clusters from a saved cluster file`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return mcpserver.NewServer(version).Run(cmd.Context())
	},
}

var mcpManifestCmd = &cobra.Command{
	Use:   "manifest",
	Short: "Print the MCP registry manifest (server.json)",
	RunE: func(cmd *cobra.Command, args []string) error {
		data, err := mcpserver.GenerateManifest(version)
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), string(data))
		return nil
	},
}

func init() {
	mcpCmd.AddCommand(mcpManifestCmd)
	rootCmd.AddCommand(mcpCmd)
}
