package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/nvandessel/pedigree/internal/mcp"
)

func newMCPServerCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "mcp-server",
		Short: "Run the MCP server over stdio",
		Long: `Start a Model Context Protocol server on stdin/stdout.

Tools: pedigree_simulate, pedigree_runs, pedigree_show, pedigree_delete.
Resources: pedigree://runs/latest and pedigree://runs/{id}.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			root, _ := cmd.Flags().GetString("root")

			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}

			server, err := mcp.NewServer(&mcp.Config{
				Name:     "pedigree",
				Version:  version,
				Root:     root,
				Pedigree: cfg,
			})
			if err != nil {
				return fmt.Errorf("failed to create MCP server: %w", err)
			}

			return server.Run(commandContext(cmd))
		},
	}
}
