package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/lenscore/internal/adapters/driving/mcp"
)

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "MCP server commands",
	Long:  `Commands for the Model Context Protocol (MCP) server integration.`,
}

var mcpServeCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the MCP server",
	Long: `Start the Model Context Protocol server for AI assistant integration.

The server exposes two tools:
  retrieve_references  find reference passages for a scoring criterion
  assess_photo         score a photo and return its scorecard

By default, the server communicates over stdio using JSON-RPC.
Use --port to start an HTTP server instead.

Examples:
  # Stdio mode (default)
  lenscore mcp serve

  # HTTP mode (for MCP Inspector, remote access)
  lenscore mcp serve --port 8080

Client configuration:
  {
    "mcpServers": {
      "lenscore": {
        "command": "/path/to/lenscore",
        "args": ["mcp", "serve"]
      }
    }
  }`,
	Args: cobra.NoArgs,
	RunE: runMCPServe,
}

func init() {
	mcpServeCmd.Flags().IntP("port", "p", 0, "HTTP port (0 = use stdio)")
	mcpCmd.AddCommand(mcpServeCmd)
	rootCmd.AddCommand(mcpCmd)
}

func mcpPorts() (*mcp.Ports, error) {
	if retrieverService == nil || assessmentService == nil {
		return nil, errors.New("MCP services not configured")
	}
	return &mcp.Ports{
		Retriever:  retrieverService,
		Assessment: assessmentService,
		Index:      indexService,
		Criteria:   appConfig.Scoring.Criteria,
		TopK:       appConfig.Scoring.TopK,
	}, nil
}

func runMCPServe(cmd *cobra.Command, _ []string) error {
	port, err := cmd.Flags().GetInt("port")
	if err != nil {
		return fmt.Errorf("getting port flag: %w", err)
	}

	ports, err := mcpPorts()
	if err != nil {
		return err
	}

	server, err := mcp.NewServer(ports)
	if err != nil {
		return err
	}

	if port > 0 {
		addr := fmt.Sprintf(":%d", port)
		fmt.Fprintf(cmd.ErrOrStderr(), "MCP server listening on http://localhost%s\n", addr)
		return server.RunHTTP(cmd.Context(), addr)
	}

	return server.Run(cmd.Context())
}
