package main

import (
	"context"
	"fmt"

	"github.com/aretw0/compositor/internal/cli"
	"github.com/aretw0/compositor/pkg/adapters/mcp"
	"github.com/spf13/cobra"
)

// mcpCmd represents the mcp command
var mcpCmd = &cobra.Command{
	Use:   "mcp [dir]",
	Short: "Run the Model Context Protocol (MCP) server",
	Long: `Starts the compositor as an MCP Server.
This allows AI agents to render nodes, inspect the graph and tweak parameters as tools.

Supported Transports:
- stdio (default): Uses Standard Input/Output. Ideal for local process integration.
- sse: Uses Server-Sent Events over HTTP. Ideal for remote agents or debuggers.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		transport, _ := cmd.Flags().GetString("transport")
		port, _ := cmd.Flags().GetInt("port")

		sc := cli.NewSignalContext(context.Background())
		defer sc.Cancel()

		// Logs always go to stderr, so they never corrupt JSON-RPC on stdout.
		ws, logger, err := openWorkspace(sc, cmd, args)
		if err != nil {
			return err
		}
		defer ws.Close()

		srv := mcp.NewServer(ws.Engine, mcp.WithLogger(logger))

		switch transport {
		case "stdio":
			logger.Info("Starting Compositor MCP Server (Stdio)", "source", ws.Source)
			if err := srv.ServeStdio(); err != nil {
				return fmt.Errorf("MCP server execution failed: %w", err)
			}
		case "sse":
			logger.Info("Starting Compositor MCP Server (SSE)", "port", port, "source", ws.Source)
			if err := srv.ServeSSE(sc, port); err != nil {
				return fmt.Errorf("MCP server execution failed: %w", err)
			}
			logger.Info("MCP Server stopped gracefully")
		default:
			return fmt.Errorf("unknown transport: %s. Supported: stdio, sse", transport)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(mcpCmd)

	mcpCmd.Flags().String("transport", "stdio", "Transport protocol to use: 'stdio' or 'sse'")
	mcpCmd.Flags().Int("port", 8080, "Port to listen on (only for SSE)")
}
