package cmd

import (
	"github.com/spf13/cobra"

	"github.com/bgdnvk/stackpilot/internal/mcpserver"
)

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Run stackpilot as an MCP server over stdio",
	Long: `Expose the aws_deployer and github_deployer tools over the Model Context
Protocol so that MCP-capable assistants can drive deployments.

Logs go to stderr; stdout carries the protocol stream.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		log := newLogger()
		srv := mcpserver.New(version, newDispatcher(log), newDeployer(log))
		return mcpserver.ServeStdio(srv)
	},
}

func init() {
	rootCmd.AddCommand(mcpCmd)
}
