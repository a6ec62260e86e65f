package main

import (
	"github.com/spf13/cobra"

	"github.com/danielpatrickdp/ethics-harness/internal/mcp"
)

// #region mcp
func newMCPCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "mcp",
		Short: "Serve the active run to an agent over MCP (stdio)",
		Long: `Serve the active run as MCP tools over stdin/stdout.

Every tool call is stored exactly as the equivalent CLI command would store
it, so 'versions', 'history' and 'full-score' work on the served run.
The ethics report is never exposed as a tool.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSession(cmd, func(s *session) error {
				if _, err := s.active(); err != nil {
					return err
				}
				srv, err := mcp.NewServer(&mcp.Config{Name: "harness", Version: version}, storeRunner{s: s})
				if err != nil {
					return err
				}
				s.log.Info("serving mcp on stdio")
				return srv.Run(cmd.Context())
			})
		},
	}
}

// #endregion mcp
