package main

import (
	"github.com/spf13/cobra"

	"codefix-admin/internal/config"
)

func newRootCmd() *cobra.Command {
	var configDir string
	root := &cobra.Command{
		Use:   "sitectl",
		Short: "Operate a CodeFix site",
		Long: `sitectl manages a CodeFix site from the command line.

Offline commands (hash-password, roles, session) need no running server.
Store commands (user, cache) use the same configuration as the API server.
Client commands (posts, vote) talk to a running site over HTTP.`,
		SilenceUsage: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			if configDir != "" {
				config.SetConfigDir(configDir)
			}
		},
	}
	root.PersistentFlags().StringVar(&configDir, "config", "", "configuration directory (default $CONFIG_DIR)")
	root.AddCommand(
		newHashPasswordCmd(),
		newRolesCmd(),
		newSessionCmd(),
		newUserCmd(),
		newCacheCmd(),
		newPostsCmd(),
		newVoteCmd(),
	)
	return root
}
