package main

import (
	"github.com/spf13/cobra"

	"drone-builds/src/config"
	"drone-builds/src/mcp"
)

func (a *app) mcpCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "mcp",
		Short: "Serve build_report, release_ids and deploy_plan as MCP tools over stdio",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.ResolveAmbient(a.lookup)
			if err != nil {
				return err
			}
			return mcp.NewServer(cfg, a.newProvider).Run()
		},
	}
}
