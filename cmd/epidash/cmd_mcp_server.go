package main

import (
	"fmt"

	"github.com/nvandessel/epidash/internal/mcp"
	"github.com/spf13/cobra"
)

func newMCPServerCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "mcp-server",
		Short: "Run the MCP server over stdio",
		Long: `Serve epidash_simulate, epidash_compare and epidash_r0 to an MCP client
over stdin/stdout. Logs go to stderr so they never mix with the protocol.

Example client configuration:
  {"mcpServers": {"epidash": {"command": "epidash", "args": ["mcp-server"]}}}`,
		RunE: func(cmd *cobra.Command, args []string) error {
			env, err := loadEnv(cmd)
			if err != nil {
				return err
			}
			defer env.Close()

			server, err := mcp.NewServer(&mcp.Config{
				Name:     "epidash",
				Version:  version,
				Settings: env.cfg,
				Logger:   env.logger,
				RunLog:   env.runLog,
			})
			if err != nil {
				return fmt.Errorf("failed to create MCP server: %w", err)
			}

			env.logger.Info("mcp server starting", "version", version)
			if err := server.Run(cmd.Context()); err != nil {
				return fmt.Errorf("mcp server: %w", err)
			}
			return nil
		},
	}
}
