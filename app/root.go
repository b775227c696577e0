// Package app implements the main application commands.
package app

import (
	"github.com/spf13/cobra"
)

func init() { //nolint: gochecknoinits
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "./etc", "Directory holding main.toml")
}

var rootCmd = &cobra.Command{
	Use:   "go-rbac-admin",
	Short: "go-rbac-admin is a role based access control backend for admin consoles",
	Long: `go-rbac-admin manages users, roles, permissions and navigation menus
and issues the tokens an admin console frontend authenticates with.`,
	Args:          cobra.OnlyValidArgs,
	SilenceUsage:  true,
	SilenceErrors: false,
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}
