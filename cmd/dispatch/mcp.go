package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/JaimeStill/dispatch/internal/mcpserver"
)

func newMCPCmd(a *app) *cobra.Command {
	var port int

	cmd := &cobra.Command{
		Use:   "mcp",
		Short: "Serve the ask and index_stats tools over MCP",
		Long: `Start a Model Context Protocol server. It speaks JSON-RPC over stdio
unless --port is given, in which case it serves streamable HTTP.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			srv, err := mcpserver.New(a.pipeline, a.store, a.cfg.Version)
			if err != nil {
				return err
			}

			if port > 0 {
				addr := fmt.Sprintf(":%d", port)
				fmt.Fprintf(cmd.ErrOrStderr(), "MCP server listening on http://localhost%s\n", addr)
				return srv.RunHTTP(cmd.Context(), addr)
			}
			return srv.Run(cmd.Context())
		},
	}

	cmd.Flags().IntVarP(&port, "port", "p", 0, "HTTP port (0 = stdio)")
	return cmd
}
