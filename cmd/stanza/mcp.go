package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/aretw0/stanza/internal/cli"
	"github.com/aretw0/stanza/pkg/adapters/mcp"
	"github.com/spf13/cobra"
)

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Run the Model Context Protocol (MCP) server",
	Long: `Starts an MCP Server exposing the registered routes to AI agents:
match_keyword, list_routes and validate_script tools plus the stanza://routes resource.

Supported Transports:
- stdio (default): Uses Standard Input/Output. Ideal for local process integration.
- sse: Uses Server-Sent Events over HTTP. Ideal for remote agents or debuggers.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		transport, _ := cmd.Flags().GetString("transport")
		port, _ := cmd.Flags().GetInt("port")

		eng, _, logger, err := setup(cmd, cli.EngineOptions{Out: os.Stderr})
		if err != nil {
			return err
		}
		defer eng.Close()

		srv := mcp.NewServer(eng.Registry(), eng.Dispatcher(), mcp.WithLogger(logger))

		switch transport {
		case "stdio":
			// Keep stdout for JSON-RPC.
			log.SetOutput(os.Stderr)
			logger.Info("Starting Stanza MCP Server (Stdio)")
			return srv.ServeStdio()
		case "sse":
			logger.Info("Starting Stanza MCP Server (SSE)", "port", port)

			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			if err := srv.ServeSSE(ctx, port); err != nil {
				return err
			}
			logger.Info("MCP Server stopped gracefully")
			return nil
		default:
			return fmt.Errorf("unknown transport: %s. Supported: stdio, sse", transport)
		}
	},
}

func init() {
	rootCmd.AddCommand(mcpCmd)

	mcpCmd.Flags().String("transport", "stdio", "Transport protocol to use: 'stdio' or 'sse'")
	mcpCmd.Flags().Int("port", 8080, "Port to listen on (only for SSE)")
}
