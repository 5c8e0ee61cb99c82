package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/xtctx/internal/adapters/driving/mcp"
	"github.com/custodia-labs/xtctx/internal/logger"
)

// mcpRunner serves MCP on stdio (port 0) or HTTP. Tests replace it.
var mcpRunner = func(cmd *cobra.Command, server *mcp.Server, port int) error {
	if port > 0 {
		addr := fmt.Sprintf("127.0.0.1:%d", port)
		fmt.Fprintf(cmd.ErrOrStderr(), "MCP server listening on http://%s\n", addr)
		return server.RunHTTP(cmd.Context(), addr)
	}
	return server.Run(cmd.Context())
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the ingestion daemon and the MCP server",
	Long: `Starts the background ingestion daemon and the Model Context Protocol
server for AI assistant integration.

The daemon runs one cycle immediately, then re-runs on a timer and whenever
a watched tool store changes. By default the MCP server speaks JSON-RPC
over stdio.

Examples:
  # Stdio mode (default, for Claude Code, Cursor and other MCP clients)
  xtctx serve

  # HTTP mode on 127.0.0.1 (for MCP Inspector)
  xtctx serve --port 8080

  # Serve only, without background ingestion
  xtctx serve --mcp-only

Claude Code configuration (.mcp.json):
  {
    "mcpServers": {
      "xtctx": {
        "command": "/path/to/xtctx",
        "args": ["serve"]
      }
    }
  }`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().IntP("port", "p", 0, "HTTP port (0 = use stdio)")
	serveCmd.Flags().Bool("mcp-only", false, "do not start the ingestion daemon")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, _ []string) error {
	port, err := cmd.Flags().GetInt("port")
	if err != nil {
		return fmt.Errorf("getting port flag: %w", err)
	}
	mcpOnly, err := cmd.Flags().GetBool("mcp-only")
	if err != nil {
		return fmt.Errorf("getting mcp-only flag: %w", err)
	}

	server, err := mcp.NewServer(&mcp.Ports{
		Search:      searchService,
		Knowledge:   knowledgeService,
		Ingestion:   ingestionService,
		SearchLimit: defaultLimit,
	}, version)
	if err != nil {
		return err
	}

	if !mcpOnly {
		if daemonService == nil {
			return errors.New("ingestion daemon not configured")
		}
		if err := daemonService.Start(cmd.Context()); err != nil {
			return fmt.Errorf("starting daemon: %w", err)
		}
		defer func() {
			if err := daemonService.Stop(); err != nil {
				logger.Warn("stopping daemon: %v", err)
			}
		}()
	}

	return mcpRunner(cmd, server, port)
}
