package mcpserver

import (
	"context"

	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// Server wraps the MCP server and registers the kindred class tools.
type Server struct {
	server *mcp.Server
}

// NewServer creates a new MCP server with all kindred tools registered.
func NewServer(version string) *Server {
	if version == "" {
		version = "dev"
	}
	server := mcp.NewServer(
		&mcp.Implementation{
			Name:    "kindred",
			Version: version,
		},
		nil,
	)

	s := &Server{server: server}
	s.registerTools()
	s.registerPrompts()
	return s
}

// Run starts the MCP server over stdio transport.
func (s *Server) Run(ctx context.Context) error {
	return s.server.Run(ctx, &mcp.StdioTransport{})
}

func (s *Server) registerTools() {
	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "extract_classes",
		Description: describeExtract(),
	}, handleExtractClasses)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "class_hierarchy",
		Description: describeHierarchy(),
	}, handleClassHierarchy)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "sibling_similarity",
		Description: describeSimilarity(),
	}, handleSiblingSimilarity)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "class_stats",
		Description: describeStats(),
	}, handleClassStats)

	// Embedding needs credentials, so clusters are read from a saved list.
	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "list_clusters",
		Description: describeClusters(),
	}, handleListClusters)
}
